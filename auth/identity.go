package auth

import "time"

// Identity is the authenticated principal extracted from a bearer token.
// cmd/cacheserver uses Identity.Principal as the clientID it passes to
// cache.Facade — the one place in this repo where "who is the client" is
// decided from a verified credential instead of trusted from a request
// parameter.
type Identity struct {
	// Principal is the verified caller identifier (the token's subject
	// claim).
	Principal string

	// Claims holds the raw token claims, for callers that need more than
	// Principal.
	Claims map[string]any

	// ExpiresAt is when this identity's token expires. Zero means no
	// expiry claim was present.
	ExpiresAt time.Time

	// IssuedAt is when the token was issued. Zero means no iat claim was
	// present.
	IssuedAt time.Time
}

// IsExpired reports whether ExpiresAt is set and in the past.
func (id *Identity) IsExpired() bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(id.ExpiresAt)
}
