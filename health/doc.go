// Package health reports whether the fragment cache's storage is usable.
//
// A Checker reports a Status: Healthy, Degraded or Unhealthy. Storage
// failures never break fragment rendering (a failed read is a miss), so
// checkers for optional storage usually report Degraded rather than
// Unhealthy.
//
//	agg := health.NewAggregator()
//	agg.Register("file", health.NewDirChecker("file", store.Dir()))
//	agg.Register("redis", health.NewPingChecker("redis", redisStore.Ping))
//	agg.Register("redis-breaker", health.NewBreakerChecker("redis-breaker", breaker))
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
//
// RegisterHandlers serves /healthz (liveness), /readyz (aggregate status as
// text) and /health (per-check JSON).
package health
