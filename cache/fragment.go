package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/fragcache/observe"
)

// Producer writes a fragment to w. It is only invoked on a miss or refresh.
// A non-nil error aborts the run: nothing is stored or rendered.
type Producer func(ctx context.Context, w io.Writer, c Conditions) error

// Fragment orchestrates compute-or-serve over a Backend.
//
// Contract:
// - Concurrency: safe for concurrent use. Without WithCoalescing concurrent
//   misses may each run the producer; the last write wins.
// - Errors: backend failures never escape Run. Producer and render errors do.
type Fragment struct {
	backend  Backend
	kind     string
	keyer    Keyer
	debug    bool
	hooks    Hooks
	output   io.Writer
	comment  CommentFunc
	now      func() time.Time
	coalesce bool
	observer observe.Observer
	inst     observe.Instruments
	flight   singleflight.Group
}

// New creates a Fragment over backend.
func New(backend Backend, opts ...Option) (*Fragment, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}

	f := &Fragment{
		backend: backend,
		kind:    backendKind(backend),
		keyer:   NewDefaultKeyer(),
		output:  os.Stdout,
		comment: HTMLComment,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.observer != nil {
		fromObs, err := observe.InstrumentsFromObserver(f.observer)
		if err != nil {
			return nil, fmt.Errorf("cache: instruments: %w", err)
		}
		if f.inst.Tracer == nil {
			f.inst.Tracer = fromObs.Tracer
		}
		if f.inst.Metrics == nil {
			f.inst.Metrics = fromObs.Metrics
		}
		if f.inst.Logger == nil {
			f.inst.Logger = fromObs.Logger
		}
	}
	f.inst = f.inst.Fill()

	return f, nil
}

// Backend returns the backend the Fragment serves from.
func (f *Fragment) Backend() Backend {
	return f.backend
}

// Debug reports whether diagnostics mode is on, after hooks.
func (f *Fragment) Debug() bool {
	if f.hooks.Debug != nil {
		return f.hooks.Debug(f.debug)
	}
	return f.debug
}

// Clear removes every entry in the backend's namespace.
func (f *Fragment) Clear(ctx context.Context) error {
	meta := f.meta("")
	if err := f.backend.Clear(ctx); err != nil {
		f.inst.Metrics.RecordStorageError(ctx, meta, observe.OpClear, err)
		return err
	}
	return nil
}

// Run returns the stored payload for c, or runs produce, stores its output and
// returns that. The payload is also written to the render destination unless
// NoRender is given. A render failure is returned together with the payload.
func (f *Fragment) Run(ctx context.Context, produce Producer, c Conditions, opts ...RunOption) ([]byte, error) {
	ro := runOptions{render: true, out: f.output}
	for _, opt := range opts {
		opt(&ro)
	}

	debug := f.Debug()
	meta := f.meta("")

	if produce == nil {
		if debug {
			f.inst.Logger.WithFragment(meta).Error(ctx, "unable to call producer")
			return nil, ErrInvalidProducer
		}
		return nil, nil
	}

	key, err := f.keyer.Key(c)
	if err != nil {
		if !errors.Is(err, ErrInvalidConditions) {
			err = fmt.Errorf("%w: %v", ErrInvalidConditions, err)
		}
		return nil, err
	}
	meta.Key = key

	ctx, span := f.inst.Tracer.StartSpan(ctx, meta)
	payload, outcome, took, err := f.resolve(ctx, meta, produce, c, ro.refresh, debug)
	f.inst.Tracer.EndSpan(span, outcome, err)
	f.inst.Metrics.RecordRun(ctx, meta, outcome, took, err)
	if err != nil {
		return nil, err
	}

	if ro.render && ro.out != nil {
		if _, err := ro.out.Write(payload); err != nil {
			return payload, fmt.Errorf("cache: render: %w", err)
		}
	}
	return payload, nil
}

func (f *Fragment) meta(key string) observe.FragmentMeta {
	return observe.FragmentMeta{
		Namespace: f.backend.Namespace(),
		Backend:   f.kind,
		Key:       key,
	}
}

func (f *Fragment) resolve(ctx context.Context, meta observe.FragmentMeta, produce Producer, c Conditions, refresh, debug bool) ([]byte, string, time.Duration, error) {
	logger := f.inst.Logger.WithFragment(meta)

	if refresh {
		payload, took, err := f.produceAndStore(ctx, meta, produce, c, debug)
		if err != nil {
			return nil, observe.OutcomeError, took, err
		}
		return payload, observe.OutcomeRefresh, took, nil
	}

	data, ok, err := f.backend.Read(ctx, c)
	switch {
	case err != nil:
		logger.Warn(ctx, "cache read failed; treating as miss", observe.Err(err))
		f.inst.Metrics.RecordStorageError(ctx, meta, observe.OpRead, err)
	case ok:
		logger.Debug(ctx, "cache hit", observe.Field{Key: "bytes", Value: len(data)})
		return data, observe.OutcomeHit, 0, nil
	}

	if !f.coalesce {
		payload, took, err := f.produceAndStore(ctx, meta, produce, c, debug)
		if err != nil {
			return nil, observe.OutcomeError, took, err
		}
		return payload, observe.OutcomeMiss, took, nil
	}

	type flightResult struct {
		payload []byte
		took    time.Duration
	}
	// The flight ignores the leader's cancellation; each caller waits on its
	// own ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := f.flight.DoChan(meta.Namespace+":"+meta.Key, func() (any, error) {
		payload, took, err := f.produceAndStore(flightCtx, meta, produce, c, debug)
		return flightResult{payload: payload, took: took}, err
	})

	var r singleflight.Result
	select {
	case r = <-ch:
	case <-ctx.Done():
		return nil, observe.OutcomeError, 0, ctx.Err()
	}
	res, _ := r.Val.(flightResult)
	if r.Err != nil {
		return nil, observe.OutcomeError, res.took, r.Err
	}
	if r.Shared {
		return bytes.Clone(res.payload), observe.OutcomeMiss, res.took, nil
	}
	return res.payload, observe.OutcomeMiss, res.took, nil
}

// produceAndStore captures the producer's output between the backend's
// markers and persists it. A failed write is logged and the payload is
// still returned.
func (f *Fragment) produceAndStore(ctx context.Context, meta observe.FragmentMeta, produce Producer, c Conditions, debug bool) ([]byte, time.Duration, error) {
	logger := f.inst.Logger.WithFragment(meta)
	marker, _ := f.backend.(Marker)

	var buf bytes.Buffer
	if marker != nil {
		buf.WriteString(f.comment(marker.StartMarker(c)))
	}

	start := f.now()
	if err := produce(ctx, &buf, c); err != nil {
		return nil, f.now().Sub(start), err
	}
	took := f.now().Sub(start)

	if marker != nil {
		buf.WriteString(f.comment(marker.EndMarker(c)))
	}
	if debug {
		buf.WriteString(f.comment(fmt.Sprintf("Took %f seconds to store cached content.", took.Seconds())))
	}

	payload := buf.Bytes()
	if err := f.backend.Write(ctx, payload, c); err != nil {
		logger.Warn(ctx, "cache write failed; payload not persisted", observe.Err(err))
		f.inst.Metrics.RecordStorageError(ctx, meta, observe.OpWrite, err)
	} else {
		logger.Debug(ctx, "cache stored", observe.Field{Key: "bytes", Value: len(payload)})
	}

	return payload, took, nil
}
