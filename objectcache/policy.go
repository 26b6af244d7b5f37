package objectcache

import "time"

// DefaultRetention is how long an object entry lives when neither the policy
// nor the expires condition says otherwise.
const DefaultRetention = 30 * 24 * time.Hour

// Policy configures entry lifetimes.
type Policy struct {
	// DefaultTTL applies when the expires condition is absent or invalid.
	// Zero or negative means entries never expire.
	DefaultTTL time.Duration

	// MaxTTL caps every TTL, including one taken from the expires
	// condition. Zero disables the cap.
	MaxTTL time.Duration
}

// DefaultPolicy returns a policy retaining entries for one month with no cap.
func DefaultPolicy() Policy {
	return Policy{DefaultTTL: DefaultRetention}
}

// EffectiveTTL returns the TTL to store with, given a per-entry override.
// A non-positive override selects DefaultTTL. The result is clamped to MaxTTL.
// A zero result means no expiry.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if ttl < 0 {
		ttl = 0
	}

	if p.MaxTTL > 0 && (ttl == 0 || ttl > p.MaxTTL) {
		ttl = p.MaxTTL
	}

	return ttl
}
