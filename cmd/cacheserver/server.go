package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jonwraymond/permcache/auth"
	"github.com/jonwraymond/permcache/cache"
	"github.com/jonwraymond/permcache/grammar"
	"github.com/jonwraymond/permcache/health"
	"github.com/jonwraymond/permcache/observe"
	"github.com/jonwraymond/permcache/substrate"
)

// server holds the collaborators each HTTP handler needs. It is
// deliberately a thin layer: every domain decision lives in cache.Facade
// or scripts.Engine, matching the teacher's Node (a thin HTTP shell around
// an internal/cache.Store).
type server struct {
	facade        cache.Interface
	store         substrate.Store
	provider      grammar.Provider
	logger        observe.Logger
	authenticator *auth.JWTAuthenticator
}

// clientIDHeader is the trusted-header client identifier used when no
// -auth mode is configured, matching the teacher's simplest authenticator
// shape (spec.md §1's non-goal: no defense against a forged client ID).
const clientIDHeader = "X-Client-Id"

// resolveClientID determines the caller's client ID either from a verified
// JWT bearer token (-auth=jwt) or from a trusted request header/parameter
// (-auth=none, the default). This is the only place in the repository
// where "who is the client" can be decided from an external credential
// rather than trusted as given.
func (s *server) resolveClientID(r *http.Request) (string, error) {
	if s.authenticator == nil {
		if id := r.Header.Get(clientIDHeader); id != "" {
			return id, nil
		}
		return r.URL.Query().Get("client_id"), nil
	}

	header := r.Header.Get("Authorization")
	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == header {
		return "", auth.ErrMissingCredentials
	}

	identity, err := s.authenticator.Authenticate(tokenString)
	if err != nil {
		return "", err
	}
	if identity.IsExpired() {
		return "", auth.ErrTokenExpired
	}
	return identity.Principal, nil
}

// substratePingChecker round-trips a reserved heartbeat key through the
// substrate to confirm it is reachable and read-after-write consistent,
// grounded on the teacher's health.PingChecker contract.
type substratePingChecker struct {
	store substrate.Store
}

const heartbeatKey = "substrate:heartbeat"

func (c substratePingChecker) Name() string { return "substrate" }

func (c substratePingChecker) Check(ctx context.Context) health.Result {
	value := []byte(time.Now().UTC().Format(time.RFC3339Nano))
	if err := c.store.SetString(ctx, heartbeatKey, value, time.Minute); err != nil {
		return health.Unhealthy("heartbeat write failed", err)
	}
	got, ok := c.store.GetString(ctx, heartbeatKey)
	if !ok || string(got) != string(value) {
		return health.Degraded("heartbeat read did not echo the written value")
	}
	return health.Healthy("substrate round trip OK")
}

func (c substratePingChecker) Ping(ctx context.Context) error {
	if result := c.Check(ctx); result.Status == health.StatusUnhealthy {
		return result.Error
	}
	return nil
}

var _ health.PingChecker = substratePingChecker{}

// grammarSelfCheckChecker runs the provider's universal type pattern
// through Matches against a fixed well-formed token, confirming the pattern
// language the engine depends on for every propagate/filter/dominance call
// is still operating correctly.
type grammarSelfCheckChecker struct {
	provider grammar.Provider
}

func (c grammarSelfCheckChecker) Name() string { return "grammar" }

func (c grammarSelfCheckChecker) Check(ctx context.Context) health.Result {
	pattern := c.provider.EveryTypePattern()
	ok, err := c.provider.Matches(pattern, "perm:selfcheck")
	if err != nil {
		return health.Unhealthy("pattern engine failed", err)
	}
	if !ok {
		return health.Degraded("universal type pattern did not match a well-formed token")
	}
	return health.Healthy("pattern engine OK")
}
