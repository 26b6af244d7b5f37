// Package secret resolves secret references in configuration values.
//
// A value is first expanded against the environment (see ExpandEnvStrict),
// then any "secretref:<provider>:<ref>" reference is replaced by the value
// the named Provider returns:
//   - Full value:  secretref:env:FRAGCACHE_JWT_SECRET
//   - Inline use:  redis://:secretref:file:/run/secrets/redis@cache:6379
//
// Two providers ship with the package: "env" reads an environment variable
// and "file" reads a mounted secret file.
package secret
