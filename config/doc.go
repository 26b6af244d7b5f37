// Package config loads fragcache settings from the environment.
//
// Every variable carries the FRAGCACHE_ prefix and nested sections add their
// own, for example FRAGCACHE_FILE_ROOT or FRAGCACHE_REDIS_ADDR. Secret-bearing
// fields accept ${VAR} expansion and secretref: references (see package secret).
package config
