package cache_test

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jonwraymond/fragcache/cache"
	"github.com/jonwraymond/fragcache/kvstore"
	"github.com/jonwraymond/fragcache/objectcache"
)

func ExampleFragment_Run() {
	backend := objectcache.New(objectcache.Config{Store: kvstore.NewMemory()})
	f, err := cache.New(backend, cache.WithOutput(os.Stdout))
	if err != nil {
		fmt.Println(err)
		return
	}

	calls := 0
	hello := func(_ context.Context, w io.Writer, _ cache.Conditions) error {
		calls++
		_, err := io.WriteString(w, "<p>hello</p>")
		return err
	}

	ctx := context.Background()
	_, _ = f.Run(ctx, hello, cache.Conditions{"page": 2, "locale": "en"})
	fmt.Println()
	payload, _ := f.Run(ctx, hello, cache.Conditions{"locale": "en", "page": 2}, cache.NoRender())
	fmt.Println(string(payload), calls)
	// Output:
	// <p>hello</p>
	// <p>hello</p> 1
}

func ExampleFragment_Run_refresh() {
	backend := objectcache.New(objectcache.Config{})
	f, _ := cache.New(backend)

	n := 0
	counter := func(_ context.Context, w io.Writer, _ cache.Conditions) error {
		n++
		_, err := fmt.Fprintf(w, "render %d", n)
		return err
	}

	ctx := context.Background()
	first, _ := f.Run(ctx, counter, nil, cache.NoRender())
	cached, _ := f.Run(ctx, counter, nil, cache.NoRender())
	fresh, _ := f.Run(ctx, counter, nil, cache.NoRender(), cache.Refresh())
	fmt.Println(string(first), "|", string(cached), "|", string(fresh))
	// Output: render 1 | render 1 | render 2
}
