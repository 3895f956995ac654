package cache

import "time"

// Policy configures the TTL behavior of item, private-value, and variant
// writes (spec §3: "independent TTLs that may re-arm on each write").
// Grounded on the teacher's cache/policy.go TTL-clamping shape, generalized
// from "tool-result caching policy" to "item/variant TTL policy" — this
// repo has no notion of an "unsafe tag" to skip caching for, since every
// write here is explicitly requested by the caller through Set/SetPrivate/
// SetCollection rather than opportunistically memoized around an executor.
type Policy struct {
	// DefaultTTL is the TTL to use when a call passes ttl<=0.
	// If zero, writes with no override reach the substrate with a zero TTL
	// and are stored with no expiry.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Override TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultPolicy returns the default TTL policy: 5 minute default, 1 hour
// maximum.
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: 5 * time.Minute,
		MaxTTL:     1 * time.Hour,
	}
}

// NoCachePolicy returns a policy under which EffectiveTTL is always zero
// unless the caller supplies an explicit override. Facade still stores
// writes made under it; those without an override have no expiry.
func NoCachePolicy() Policy {
	return Policy{
		DefaultTTL: 0,
		MaxTTL:     0,
	}
}

// ShouldCache reports whether DefaultTTL is positive, i.e. whether writes
// that pass no TTL override get an expiring TTL. Facade does not consult
// it: under a zero DefaultTTL such writes are still stored, with no expiry.
func (p Policy) ShouldCache() bool {
	return p.DefaultTTL > 0
}

// EffectiveTTL returns the TTL to use for a write, applying the default
// when override is non-positive and clamping to MaxTTL when set.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}
