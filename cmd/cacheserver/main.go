// Command cacheserver is a reference HTTP front end over cache.Facade,
// grounded on the cache-node-shaped example in the retrieval pack
// (GET/PUT/DELETE keyed routes, a /health endpoint, graceful shutdown via
// signal.NotifyContext) and re-pointed at this engine's richer operation
// set: items, collections, and the backpropagation admin calls.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/jonwraymond/permcache/auth"
	"github.com/jonwraymond/permcache/cache"
	"github.com/jonwraymond/permcache/grammar"
	"github.com/jonwraymond/permcache/health"
	"github.com/jonwraymond/permcache/observe"
	"github.com/jonwraymond/permcache/substrate"
	"github.com/jonwraymond/permcache/substrate/remote"
)

func main() {
	var (
		addr           = flag.String("addr", ":8080", "listen address")
		defaultTTL     = flag.Duration("default-ttl", 5*time.Minute, "default cache entry TTL")
		maxTTL         = flag.Duration("max-ttl", time.Hour, "maximum cache entry TTL")
		authMode       = flag.String("auth", "none", "caller authentication mode: none|jwt")
		jwtSecret      = flag.String("jwt-secret", "", "HMAC secret for -auth=jwt")
		jwtIssuer      = flag.String("jwt-issuer", "", "required token issuer for -auth=jwt")
		jwtAudience    = flag.String("jwt-audience", "", "required token audience for -auth=jwt")
		tracing        = flag.String("tracing-exporter", "none", "tracing exporter: otlp|stdout|none")
		metrics        = flag.String("metrics-exporter", "none", "metrics exporter: otlp|prometheus|stdout|none")
		substrateMode  = flag.String("substrate", "memory", "substrate backend: memory|remote")
		peer           = flag.String("peer", "", "peer cacheserver base URL, required for -substrate=remote")
		substrateTO    = flag.Duration("substrate-timeout", 5*time.Second, "remote substrate round-trip timeout, for -substrate=remote")
		substrateRetry = flag.Int("substrate-max-retries", 2, "remote substrate max retries, for -substrate=remote")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: "cacheserver",
		Version:     "dev",
		Tracing: observe.TracingConfig{
			Enabled:  *tracing != "none",
			Exporter: *tracing,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  *metrics != "none",
			Exporter: *metrics,
		},
		Logging: observe.LoggingConfig{Enabled: true, Level: "info"},
	})
	if err != nil {
		log.Fatalf("observer init: %v", err)
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = obs.Shutdown(shCtx)
	}()

	var store substrate.Store
	switch *substrateMode {
	case "memory":
		store = substrate.NewMemoryStore()
	case "remote":
		if *peer == "" {
			log.Fatal("-substrate=remote requires -peer")
		}
		store = remote.NewClient(remote.Config{
			BaseURL:        *peer,
			RequestTimeout: *substrateTO,
			MaxRetries:     *substrateRetry,
		})
	default:
		log.Fatalf("unknown -substrate mode %q: want memory|remote", *substrateMode)
	}
	provider := grammar.NewSemicolonProvider()
	policy := cache.Policy{DefaultTTL: *defaultTTL, MaxTTL: *maxTTL}
	facade := cache.NewFacade(store, provider, policy)

	observingFacade, err := cache.NewObservingFacade(facade, obs)
	if err != nil {
		log.Fatalf("observing facade init: %v", err)
	}

	srv := &server{
		facade:   observingFacade,
		store:    store,
		provider: provider,
		logger:   obs.Logger(),
	}

	if *authMode == "jwt" {
		if *jwtSecret == "" {
			log.Fatal("-auth=jwt requires -jwt-secret")
		}
		srv.authenticator = auth.NewJWTAuthenticator(
			auth.JWTConfig{Issuer: *jwtIssuer, Audience: *jwtAudience},
			auth.NewStaticKeyProvider([]byte(*jwtSecret)),
		)
	}

	agg := health.NewAggregator()
	agg.Register("substrate", substratePingChecker{store: store})
	agg.Register("grammar", grammarSelfCheckChecker{provider: provider})
	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           srv.routes(agg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("cacheserver listening on %s (auth=%s, substrate=%s)", *addr, *authMode, *substrateMode)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
	}
}
