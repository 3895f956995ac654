// Package auth implements the bearer-token authentication cmd/cacheserver
// optionally applies in front of cache.Facade. It is deliberately small:
// spec.md's non-goal "no defense against a client forging its own client
// identifier" keeps identity verification out of the core engine, so this
// package exists only to let a deployment opt into turning a verified JWT
// subject into the clientID a request carries, grounded on the teacher's
// auth.JWTAuthenticator with the composite/RBAC/OAuth2/API-key machinery
// the teacher built for tool-call authorization stripped out — this module
// has no roles or permissions to authorize, only a client identity to
// establish.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Issuer, if set, must match the token's iss claim.
	Issuer string

	// Audience, if set, must appear in the token's aud claim.
	Audience string

	// PrincipalClaim is the claim read into Identity.Principal.
	// Default: "sub".
	PrincipalClaim string
}

// KeyProvider retrieves the signing key used to verify a token.
type KeyProvider interface {
	GetKey(keyID string) (any, error)
}

// StaticKeyProvider verifies every token against one fixed secret.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider builds a StaticKeyProvider over key.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key regardless of keyID.
func (p *StaticKeyProvider) GetKey(_ string) (any, error) {
	return p.key, nil
}

// JWTAuthenticator verifies bearer tokens and extracts an Identity.
type JWTAuthenticator struct {
	config      JWTConfig
	keyProvider KeyProvider
}

// NewJWTAuthenticator builds a JWTAuthenticator over the given config and
// key provider.
func NewJWTAuthenticator(config JWTConfig, keyProvider KeyProvider) *JWTAuthenticator {
	if config.PrincipalClaim == "" {
		config.PrincipalClaim = "sub"
	}
	return &JWTAuthenticator{config: config, keyProvider: keyProvider}
}

// Authenticate parses and verifies tokenString, returning the Identity
// encoded in its claims.
func (a *JWTAuthenticator) Authenticate(tokenString string) (*Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMissingCredentials
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		return a.keyProvider.GetKey(kid)
	})
	if err != nil {
		if strings.Contains(err.Error(), "expired") {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if !token.Valid {
		return nil, ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}

	if a.config.Issuer != "" {
		if iss, ok := claims["iss"].(string); !ok || iss != a.config.Issuer {
			return nil, ErrInvalidCredentials
		}
	}
	if a.config.Audience != "" && !a.hasAudience(claims) {
		return nil, ErrInvalidCredentials
	}

	return a.buildIdentity(claims), nil
}

func (a *JWTAuthenticator) hasAudience(claims jwt.MapClaims) bool {
	switch v := claims["aud"].(type) {
	case string:
		return v == a.config.Audience
	case []interface{}:
		for _, aud := range v {
			if s, ok := aud.(string); ok && s == a.config.Audience {
				return true
			}
		}
	}
	return false
}

func (a *JWTAuthenticator) buildIdentity(claims jwt.MapClaims) *Identity {
	identity := &Identity{Claims: make(map[string]any, len(claims))}
	for k, v := range claims {
		identity.Claims[k] = v
	}
	if principal, ok := claims[a.config.PrincipalClaim].(string); ok {
		identity.Principal = principal
	}
	if exp, ok := claims["exp"].(float64); ok {
		identity.ExpiresAt = time.Unix(int64(exp), 0)
	}
	if iat, ok := claims["iat"].(float64); ok {
		identity.IssuedAt = time.Unix(int64(iat), 0)
	}
	return identity
}

var _ KeyProvider = (*StaticKeyProvider)(nil)
