package cache

import (
	"html"
	"io"
	"time"

	"github.com/jonwraymond/fragcache/observe"
)

// Hooks override orchestrator behavior. Nil fields keep the default.
type Hooks struct {
	// Debug receives the configured diagnostics flag and returns the
	// effective one. It is consulted on every Run.
	Debug func(enabled bool) bool
}

// CommentFunc formats marker text for inclusion in a captured payload.
// Returning "" emits nothing.
type CommentFunc func(text string) string

// HTMLComment formats text as an escaped HTML comment. Empty text yields "".
func HTMLComment(text string) string {
	if text == "" {
		return ""
	}
	return "<!-- " + html.EscapeString(text) + " -->"
}

// Option configures a Fragment.
type Option func(*Fragment)

// WithDebug sets the diagnostics flag. In diagnostics mode a nil producer is
// an error and freshly produced payloads carry a timing marker.
func WithDebug(enabled bool) Option {
	return func(f *Fragment) {
		f.debug = enabled
	}
}

// WithHooks installs behavior overrides.
func WithHooks(h Hooks) Option {
	return func(f *Fragment) {
		f.hooks = h
	}
}

// WithKeyer replaces the DefaultKeyer used to derive telemetry and
// coalescing keys. Backends derive their own storage keys.
func WithKeyer(k Keyer) Option {
	return func(f *Fragment) {
		if k != nil {
			f.keyer = k
		}
	}
}

// WithOutput sets the default render destination. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(f *Fragment) {
		f.output = w
	}
}

// WithComment sets the marker formatter. Defaults to HTMLComment.
func WithComment(fn CommentFunc) Option {
	return func(f *Fragment) {
		if fn != nil {
			f.comment = fn
		}
	}
}

// WithClock sets the time source used to time producers.
func WithClock(now func() time.Time) Option {
	return func(f *Fragment) {
		if now != nil {
			f.now = now
		}
	}
}

// WithCoalescing collapses concurrent misses for the same namespace and key
// into a single producer call. Refresh runs are never coalesced. The shared
// producer receives a context without the first caller's cancellation; a
// caller whose own context ends stops waiting and gets ctx.Err(), while the
// producer finishes and stores the entry for the others.
func WithCoalescing(enabled bool) Option {
	return func(f *Fragment) {
		f.coalesce = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(f *Fragment) {
		f.inst.Logger = l
	}
}

// WithTracer sets the tracer.
func WithTracer(t observe.Tracer) Option {
	return func(f *Fragment) {
		f.inst.Tracer = t
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observe.Metrics) Option {
	return func(f *Fragment) {
		f.inst.Metrics = m
	}
}

// WithObserver derives logger, tracer and metrics from obs. Handles set by
// WithLogger, WithTracer or WithMetrics take precedence.
func WithObserver(obs observe.Observer) Option {
	return func(f *Fragment) {
		f.observer = obs
	}
}

// RunOption configures a single Run call.
type RunOption func(*runOptions)

type runOptions struct {
	render  bool
	refresh bool
	out     io.Writer
}

// Refresh bypasses the stored payload and regenerates it.
func Refresh() RunOption {
	return func(o *runOptions) {
		o.refresh = true
	}
}

// NoRender suppresses writing the payload to the render destination.
func NoRender() RunOption {
	return func(o *runOptions) {
		o.render = false
	}
}

// RenderTo renders the payload to w instead of the Fragment's output.
func RenderTo(w io.Writer) RunOption {
	return func(o *runOptions) {
		o.render = true
		o.out = w
	}
}
