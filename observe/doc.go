// Package observe provides observability primitives for fragment caching.
//
// It is a pure instrumentation library: a structured JSON logger, an
// OpenTelemetry tracer and meter for fragment runs, and exporter setup.
// The cache package consumes the Instruments built here; nothing in this
// package reads or writes cached payloads.
package observe
