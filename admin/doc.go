// Package admin serves the fragcache administration API.
//
// Routes:
//
//	POST /fragments/{namespace}/clear[?path=sub]  clear a namespace (JWT)
//	GET  /fragments/{namespace}/stats[?path=sub]  file usage (JWT)
//	GET  /healthz, /readyz, /health               health checks
//	GET  /metrics                                 prometheus exposition
package admin
