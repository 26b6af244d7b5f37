// Package resilience guards calls to remote fragment stores.
//
// A CircuitBreaker stops calling a store after repeated failures and probes
// it again after a cool-down. A Timeout bounds each call. An Executor
// composes the two:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        MaxFailures:  5,
//	        ResetTimeout: 30 * time.Second,
//	    })),
//	    resilience.WithTimeout(250*time.Millisecond),
//	)
//
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return store.Set(ctx, group, key, payload, ttl)
//	})
package resilience
