package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mapBackend is an in-memory Backend with injectable failures.
type mapBackend struct {
	mu       sync.Mutex
	ns       string
	entries  map[string][]byte
	readErr  error
	writeErr error
	reads    int
	writes   int
	start    string
	end      string
}

func newMapBackend(ns string) *mapBackend {
	return &mapBackend{ns: ns, entries: make(map[string][]byte)}
}

func (b *mapBackend) key(c Conditions) string {
	k, err := NewDefaultKeyer().Key(c)
	if err != nil {
		panic(err)
	}
	return k
}

func (b *mapBackend) Namespace() string { return b.ns }

func (b *mapBackend) Read(_ context.Context, c Conditions) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reads++
	if b.readErr != nil {
		return nil, false, b.readErr
	}
	v, ok := b.entries[b.key(c)]
	return v, ok, nil
}

func (b *mapBackend) Write(_ context.Context, payload []byte, c Conditions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes++
	if b.writeErr != nil {
		return b.writeErr
	}
	b.entries[b.key(c)] = bytes.Clone(payload)
	return nil
}

func (b *mapBackend) Clear(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[string][]byte)
	return nil
}

func (b *mapBackend) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// markedBackend adds start/end markers.
type markedBackend struct{ *mapBackend }

func (b markedBackend) StartMarker(Conditions) string { return b.start }
func (b markedBackend) EndMarker(Conditions) string   { return b.end }
func (b markedBackend) Kind() string                  { return "marked" }

type countingProducer struct {
	calls atomic.Int32
	body  string
}

func (p *countingProducer) produce(_ context.Context, w io.Writer, _ Conditions) error {
	p.calls.Add(1)
	_, err := io.WriteString(w, p.body)
	return err
}

func newFragment(t *testing.T, b Backend, opts ...Option) *Fragment {
	t.Helper()
	opts = append([]Option{WithOutput(io.Discard)}, opts...)
	f, err := New(b, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestNew_NilBackend(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNilBackend) {
		t.Fatalf("New(nil) = %v, want ErrNilBackend", err)
	}
}

func TestRun_MissThenHit(t *testing.T) {
	b := newMapBackend("pages")
	f := newFragment(t, b)
	p := &countingProducer{body: "<p>hello</p>"}
	c := Conditions{"page": 2, "locale": "en"}

	var out bytes.Buffer
	got, err := f.Run(context.Background(), p.produce, c, RenderTo(&out))
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if string(got) != "<p>hello</p>" || out.String() != "<p>hello</p>" {
		t.Fatalf("first Run = %q rendered %q", got, out.String())
	}

	out.Reset()
	got, err = f.Run(context.Background(), p.produce, Conditions{"locale": "en", "page": 2}, RenderTo(&out))
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if string(got) != "<p>hello</p>" || out.String() != "<p>hello</p>" {
		t.Fatalf("second Run = %q rendered %q", got, out.String())
	}
	if n := p.calls.Load(); n != 1 {
		t.Fatalf("producer called %d times, want 1", n)
	}
}

func TestRun_Refresh(t *testing.T) {
	b := newMapBackend("pages")
	f := newFragment(t, b)
	c := Conditions{"page": 1}

	if _, err := f.Run(context.Background(), (&countingProducer{body: "v1"}).produce, c); err != nil {
		t.Fatalf("Run: %v", err)
	}

	p2 := &countingProducer{body: "v2"}
	got, err := f.Run(context.Background(), p2.produce, c, Refresh())
	if err != nil {
		t.Fatalf("refresh Run: %v", err)
	}
	if string(got) != "v2" || p2.calls.Load() != 1 {
		t.Fatalf("refresh Run = %q, calls %d", got, p2.calls.Load())
	}
	if b.reads != 1 {
		t.Errorf("refresh must not read; reads = %d", b.reads)
	}

	got, _ = f.Run(context.Background(), p2.produce, c)
	if string(got) != "v2" || p2.calls.Load() != 1 {
		t.Fatalf("after refresh Run = %q, calls %d", got, p2.calls.Load())
	}
}

func TestRun_NoRender(t *testing.T) {
	var out bytes.Buffer
	f := newFragment(t, newMapBackend("ns"), WithOutput(&out))

	got, err := f.Run(context.Background(), (&countingProducer{body: "x"}).produce, nil, NoRender())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(got) != "x" || out.Len() != 0 {
		t.Fatalf("Run = %q, rendered %q", got, out.String())
	}

	if _, err := f.Run(context.Background(), (&countingProducer{body: "x"}).produce, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "x" {
		t.Fatalf("default render = %q, want %q", out.String(), "x")
	}
}

func TestRun_NilProducer(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{"silent without diagnostics", nil, nil},
		{"error in diagnostics", []Option{WithDebug(true)}, ErrInvalidProducer},
		{"hook enables diagnostics", []Option{WithHooks(Hooks{Debug: func(bool) bool { return true }})}, ErrInvalidProducer},
		{"hook disables diagnostics", []Option{WithDebug(true), WithHooks(Hooks{Debug: func(bool) bool { return false }})}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newMapBackend("ns")
			f := newFragment(t, b, tt.opts...)
			got, err := f.Run(context.Background(), nil, Conditions{"a": 1})
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Fatalf("Run(nil) error = %v, want %v", err, tt.wantErr)
			}
			if got != nil {
				t.Fatalf("Run(nil) payload = %q, want nil", got)
			}
			if b.reads != 0 || b.writes != 0 {
				t.Fatalf("backend touched: reads=%d writes=%d", b.reads, b.writes)
			}
		})
	}
}

func TestRun_InvalidConditions(t *testing.T) {
	b := newMapBackend("ns")
	f := newFragment(t, b)
	p := &countingProducer{body: "x"}

	_, err := f.Run(context.Background(), p.produce, Conditions{"cb": func() {}})
	if !errors.Is(err, ErrInvalidConditions) {
		t.Fatalf("Run error = %v, want ErrInvalidConditions", err)
	}
	if b.reads != 0 || p.calls.Load() != 0 {
		t.Fatalf("invalid conditions reached backend or producer")
	}
}

func TestRun_ProducerError(t *testing.T) {
	b := newMapBackend("ns")
	var out bytes.Buffer
	f := newFragment(t, b, WithOutput(&out))
	boom := errors.New("boom")

	_, err := f.Run(context.Background(), func(_ context.Context, w io.Writer, _ Conditions) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want boom", err)
	}
	if b.writes != 0 || out.Len() != 0 {
		t.Fatalf("producer failure must not store or render: writes=%d out=%q", b.writes, out.String())
	}
}

func TestRun_StorageFailuresDegrade(t *testing.T) {
	b := newMapBackend("ns")
	b.readErr = fmt.Errorf("%w: disk on fire", ErrStorageUnavailable)
	b.writeErr = fmt.Errorf("%w: disk on fire", ErrStorageUnavailable)
	f := newFragment(t, b)
	p := &countingProducer{body: "fresh"}

	for i := 0; i < 2; i++ {
		got, err := f.Run(context.Background(), p.produce, Conditions{"a": 1})
		if err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
		if string(got) != "fresh" {
			t.Fatalf("Run %d = %q", i, got)
		}
	}
	if p.calls.Load() != 2 {
		t.Fatalf("producer calls = %d, want 2", p.calls.Load())
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestRun_RenderErrorReturnsPayload(t *testing.T) {
	f := newFragment(t, newMapBackend("ns"))
	got, err := f.Run(context.Background(), (&countingProducer{body: "x"}).produce, nil, RenderTo(failWriter{}))
	if err == nil || !strings.Contains(err.Error(), "closed pipe") {
		t.Fatalf("Run error = %v, want render failure", err)
	}
	if string(got) != "x" {
		t.Fatalf("Run payload = %q, want x", got)
	}
}

func TestRun_Markers(t *testing.T) {
	b := markedBackend{newMapBackend("ns")}
	b.start = "start <cached>"
	b.end = "end"

	f := newFragment(t, b)
	got, err := f.Run(context.Background(), (&countingProducer{body: "<p>x</p>"}).produce, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "<!-- start &lt;cached&gt; --><p>x</p><!-- end -->"
	if string(got) != want {
		t.Fatalf("Run = %q, want %q", got, want)
	}

	p := &countingProducer{body: "other"}
	hit, _ := f.Run(context.Background(), p.produce, nil)
	if string(hit) != want || p.calls.Load() != 0 {
		t.Fatalf("hit = %q (calls %d), markers must be served from storage", hit, p.calls.Load())
	}
}

func TestRun_EmptyMarkersEmitNothing(t *testing.T) {
	b := markedBackend{newMapBackend("ns")}
	f := newFragment(t, b)
	got, err := f.Run(context.Background(), (&countingProducer{body: "x"}).produce, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(got) != "x" {
		t.Fatalf("Run = %q, want x", got)
	}
}

func TestRun_DebugTimingMarker(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time {
		now = now.Add(250 * time.Millisecond)
		return now
	}

	f := newFragment(t, newMapBackend("ns"), WithDebug(true), WithClock(clock))
	got, err := f.Run(context.Background(), (&countingProducer{body: "x"}).produce, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "x<!-- Took 0.250000 seconds to store cached content. -->"
	if string(got) != want {
		t.Fatalf("Run = %q, want %q", got, want)
	}
}

func TestRun_CustomComment(t *testing.T) {
	b := markedBackend{newMapBackend("ns")}
	b.start = "s"
	f := newFragment(t, b, WithComment(func(text string) string { return "/* " + text + " */" }))

	got, _ := f.Run(context.Background(), (&countingProducer{body: "x"}).produce, nil)
	if string(got) != "/* s */x/*  */" {
		t.Fatalf("Run = %q", got)
	}
}

func TestRun_NamespaceIsolation(t *testing.T) {
	f1 := newFragment(t, newMapBackend("one"))
	f2 := newFragment(t, newMapBackend("two"))
	c := Conditions{"page": 1}

	_, _ = f1.Run(context.Background(), (&countingProducer{body: "one"}).produce, c)
	got, _ := f2.Run(context.Background(), (&countingProducer{body: "two"}).produce, c)
	if string(got) != "two" {
		t.Fatalf("namespace two served %q", got)
	}
}

func TestFragment_Clear(t *testing.T) {
	b := newMapBackend("ns")
	f := newFragment(t, b)
	p := &countingProducer{body: "x"}

	_, _ = f.Run(context.Background(), p.produce, nil)
	if err := f.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if b.len() != 0 {
		t.Fatalf("entries after clear = %d", b.len())
	}
	_, _ = f.Run(context.Background(), p.produce, nil)
	if p.calls.Load() != 2 {
		t.Fatalf("producer calls = %d, want 2", p.calls.Load())
	}
}

func TestRun_CoalescesConcurrentMisses(t *testing.T) {
	b := newMapBackend("ns")
	f := newFragment(t, b, WithCoalescing(true))

	release := make(chan struct{})
	var calls atomic.Int32
	produce := func(_ context.Context, w io.Writer, _ Conditions) error {
		calls.Add(1)
		<-release
		_, err := io.WriteString(w, "slow")
		return err
	}

	const n = 8
	var started, done sync.WaitGroup
	results := make([][]byte, n)
	for i := 0; i < n; i++ {
		started.Add(1)
		done.Add(1)
		go func(i int) {
			defer done.Done()
			started.Done()
			results[i], _ = f.Run(context.Background(), produce, Conditions{"k": 1})
		}(i)
	}
	started.Wait()
	// Let every goroutine reach the flight before releasing the producer.
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("producer calls = %d, want 1", got)
	}
	for i, r := range results {
		if string(r) != "slow" {
			t.Fatalf("result %d = %q", i, r)
		}
	}
}

func TestRun_CoalescingSurvivesLeaderCancel(t *testing.T) {
	b := newMapBackend("ns")
	f := newFragment(t, b, WithCoalescing(true))

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	produce := func(ctx context.Context, w io.Writer, _ Conditions) error {
		if calls.Add(1) == 1 {
			close(entered)
		}
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
		_, err := io.WriteString(w, "shared")
		return err
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	leaderErr := make(chan error, 1)
	go func() {
		_, err := f.Run(leaderCtx, produce, Conditions{"k": 1})
		leaderErr <- err
	}()
	<-entered

	type result struct {
		payload []byte
		err     error
	}
	follower := make(chan result, 1)
	go func() {
		p, err := f.Run(context.Background(), produce, Conditions{"k": 1})
		follower <- result{p, err}
	}()
	// Let the follower join the flight.
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-leaderErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("leader error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("leader did not return after cancel")
	}

	close(release)
	got := <-follower
	if got.err != nil {
		t.Fatalf("follower error = %v", got.err)
	}
	if string(got.payload) != "shared" {
		t.Fatalf("follower payload = %q", got.payload)
	}
	if b.len() != 1 {
		t.Errorf("entries = %d, want 1", b.len())
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("producer calls = %d, want 1", n)
	}
}

func TestRun_CoalescingSkippedOnRefresh(t *testing.T) {
	f := newFragment(t, newMapBackend("ns"), WithCoalescing(true))
	p := &countingProducer{body: "x"}

	for i := 0; i < 3; i++ {
		if _, err := f.Run(context.Background(), p.produce, nil, Refresh()); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}
	if p.calls.Load() != 3 {
		t.Fatalf("producer calls = %d, want 3", p.calls.Load())
	}
}

func TestRun_ConcurrentSafe(t *testing.T) {
	f := newFragment(t, newMapBackend("ns"))
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf("v%d", i%4)
			got, err := f.Run(context.Background(), (&countingProducer{body: body}).produce, Conditions{"i": i % 4})
			if err != nil {
				t.Errorf("Run: %v", err)
				return
			}
			if string(got) != body {
				t.Errorf("Run = %q, want %q", got, body)
			}
		}(i)
	}
	wg.Wait()
}

func TestHTMLComment(t *testing.T) {
	tests := map[string]string{
		"":           "",
		"plain":      "<!-- plain -->",
		"<b>&</b>":   "<!-- &lt;b&gt;&amp;&lt;/b&gt; -->",
		`quote "it"`: "<!-- quote &#34;it&#34; -->",
	}
	for in, want := range tests {
		if got := HTMLComment(in); got != want {
			t.Errorf("HTMLComment(%q) = %q, want %q", in, got, want)
		}
	}
}
