package health

import (
	"context"
	"fmt"
	"os"

	"github.com/jonwraymond/fragcache/resilience"
)

// NewPingChecker reports Degraded when ping fails. Use it for optional
// remote stores whose failure only costs cache hits.
func NewPingChecker(name string, ping func(context.Context) error) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		if err := ping(ctx); err != nil {
			return Degraded("store unreachable", err)
		}
		return Healthy("store reachable")
	})
}

// NewDirChecker reports Degraded when dir cannot be created or written.
func NewDirChecker(name, dir string) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) Result {
		if err := probeDir(dir); err != nil {
			return Degraded("cache directory unusable", err).
				WithDetails(map[string]any{"dir": dir})
		}
		return Healthy("cache directory writable").
			WithDetails(map[string]any{"dir": dir})
	})
}

func probeDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrNotWritable, err)
	}
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotWritable, err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// NewBreakerChecker reports the state of a store's circuit breaker: open is
// Degraded, half-open is Healthy with a note.
func NewBreakerChecker(name string, cb *resilience.CircuitBreaker) Checker {
	return NewCheckerFunc(name, func(context.Context) Result {
		m := cb.Metrics()
		details := map[string]any{
			"state":    m.State.String(),
			"failures": m.Failures,
		}
		switch m.State {
		case resilience.StateOpen:
			details["opened_at"] = m.OpenedAt
			return Degraded("circuit open", resilience.ErrCircuitOpen).WithDetails(details)
		case resilience.StateHalfOpen:
			return Healthy("circuit probing").WithDetails(details)
		default:
			return Healthy("circuit closed").WithDetails(details)
		}
	})
}
