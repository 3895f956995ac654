package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/jonwraymond/permcache/grammar"
	"github.com/jonwraymond/permcache/keyname"
	"github.com/jonwraymond/permcache/scripts"
	"github.com/jonwraymond/permcache/substrate"
)

// Result is the facade's single-item read result, the Go realization of
// spec §9's "explicit tagged pairs (hit, payload)" design note.
type Result struct {
	Hit   bool
	Value []byte
}

// CollectionResult is the facade's collection read result.
type CollectionResult struct {
	Hit    bool
	Values [][]byte
}

// Interface is the full operation table of spec §4.D plus §4.E's admin
// helpers. Facade implements it; NewObservingFacade wraps any Interface
// with tracing/metrics/logging without altering its return values.
type Interface interface {
	Set(ctx context.Context, itemKey string, value []byte, ttl time.Duration, clientID string, perms ...string) error
	Get(ctx context.Context, clientID, itemKey string) (Result, error)
	SetPrivate(ctx context.Context, itemKey, clientID string, value []byte, ttl time.Duration) error
	GetPrivate(ctx context.Context, itemKey, clientID string) (Result, error)
	SetUnprotected(ctx context.Context, itemKey string, value []byte, ttl time.Duration) error
	GetUnprotected(ctx context.Context, itemKey string) (Result, error)
	SetCollection(ctx context.Context, clientID, collectionKey string, itemKeys []string, ttl time.Duration, filter string) (variantID string, err error)
	GetCollection(ctx context.Context, clientID, collectionKey string) (CollectionResult, error)
	SetBackpropagation(ctx context.Context, collectionKey, typeToken, targetItemKey string) error
	SetPermissionUnion(ctx context.Context, itemKeys ...string) error
}

// Facade is the stateless entrypoint of spec §4.D: it holds only its
// collaborators (a substrate.Store, a scripts.Engine wrapping that same
// store plus a grammar.Provider, and a TTL Policy) and orchestrates
// keyname + scripts into the eight facade operations. No component here
// owns mutable state across calls, matching §3's "Ownership" paragraph and
// §5's "the facade is stateless."
type Facade struct {
	store    substrate.Store
	engine   *scripts.Engine
	provider grammar.Provider
	policy   Policy

	checkFilterConflict bool
}

// Option configures optional Facade behavior.
type Option func(*Facade)

// WithFilterConflictCheck enables the opt-in caller-fault check described
// by spec §6.5: a SetCollection whose filter differs from a collection's
// already-recorded filter returns ErrConflictingFilter instead of silently
// overwriting it.
func WithFilterConflictCheck() Option {
	return func(f *Facade) { f.checkFilterConflict = true }
}

// NewFacade constructs a Facade over the given substrate and grammar
// provider. A scripts.Engine binding the two is constructed internally
// since §2 treats Atomic Scripts as an implementation detail the facade
// orchestrates, not a concern the caller configures independently.
func NewFacade(store substrate.Store, provider grammar.Provider, policy Policy, opts ...Option) *Facade {
	f := &Facade{
		store:    store,
		engine:   scripts.NewEngine(store, provider),
		provider: provider,
		policy:   policy,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Set stores a protected item: write the value, run Propagate (which
// unions perms into both the item and the client, then fans out across
// backprop edges), and re-arm the item's perms TTL. Idempotent on perms
// (union), non-idempotent on value (overwrite) — spec §4.D.
func (f *Facade) Set(ctx context.Context, itemKey string, value []byte, ttl time.Duration, clientID string, perms ...string) error {
	effectiveTTL := f.policy.EffectiveTTL(ttl)

	if err := f.store.SetString(ctx, keyname.ItemValue(itemKey), value, effectiveTTL); err != nil {
		return err
	}

	if err := f.engine.Propagate(ctx, itemKey, perms, clientID); err != nil {
		return err
	}

	if len(perms) > 0 {
		if err := f.store.Expire(ctx, keyname.ItemPerms(itemKey), effectiveTTL); err != nil {
			return err
		}
	}
	return nil
}

// Get runs Authorize-Get: authorize-then-fetch as a single atomic step.
// A miss (unauthorized, or authorized with an expired value) is reported
// via Result.Hit=false, never an error.
func (f *Facade) Get(ctx context.Context, clientID, itemKey string) (Result, error) {
	out, err := f.engine.AuthorizeGet(ctx, clientID, itemKey)
	if err != nil {
		return Result{}, err
	}
	return Result{Hit: out.Authorized, Value: out.Value}, nil
}

// SetPrivate writes a per-(item, client) value bypassing the permission
// gate entirely (spec §3's private-value-per-client).
func (f *Facade) SetPrivate(ctx context.Context, itemKey, clientID string, value []byte, ttl time.Duration) error {
	return f.store.SetString(ctx, keyname.ItemPrivate(itemKey, clientID), value, f.policy.EffectiveTTL(ttl))
}

// GetPrivate reads a per-(item, client) value with no permission check.
func (f *Facade) GetPrivate(ctx context.Context, itemKey, clientID string) (Result, error) {
	value, ok := f.store.GetString(ctx, keyname.ItemPrivate(itemKey, clientID))
	return Result{Hit: ok, Value: value}, nil
}

// SetUnprotected writes a value only if the item has no perms key (spec
// I5). If the item is already protected, this is a documented no-op, not
// an error (spec §7(iv)).
func (f *Facade) SetUnprotected(ctx context.Context, itemKey string, value []byte, ttl time.Duration) error {
	return f.store.WithLock(ctx, func(ctx context.Context) error {
		if f.store.Exists(ctx, keyname.ItemPerms(itemKey)) {
			return nil // caller-fault no-op per I5, never an error
		}
		return f.store.SetString(ctx, keyname.ItemValue(itemKey), value, f.policy.EffectiveTTL(ttl))
	})
}

// GetUnprotected returns a value only if the item has no perms key. A
// protected item reads as a miss through this path (spec I2).
func (f *Facade) GetUnprotected(ctx context.Context, itemKey string) (Result, error) {
	var result Result
	err := f.store.WithLock(ctx, func(ctx context.Context) error {
		if f.store.Exists(ctx, keyname.ItemPerms(itemKey)) {
			return nil
		}
		value, ok := f.store.GetString(ctx, keyname.ItemValue(itemKey))
		result = Result{Hit: ok, Value: value}
		return nil
	})
	return result, err
}

// SetCollection allocates a fresh variant id, stores items(V) and the
// writer's filtered permission snapshot perms(V), caches count(V), and
// registers the variant. Never idempotent: every call allocates a new
// variant (spec §4.D). The collection's context filter is written the
// first time and, unless WithFilterConflictCheck is set, silently
// overwritten on every later call (§6.5's "may choose to elide").
//
// The legacy flat collection:<ck>:items set (used by SetBackpropagation)
// is kept as the union of every variant's items, per spec §9's design
// note that a clean implementation should "explicitly track which items a
// collection logically contains."
func (f *Facade) SetCollection(ctx context.Context, clientID, collectionKey string, itemKeys []string, ttl time.Duration, filter string) (string, error) {
	effectiveTTL := f.policy.EffectiveTTL(ttl)

	if f.checkFilterConflict {
		if existing, ok := f.store.GetString(ctx, keyname.CollectionFilter(collectionKey)); ok {
			if string(existing) != filter {
				return "", ErrConflictingFilter
			}
		}
	}
	if err := f.store.SetString(ctx, keyname.CollectionFilter(collectionKey), []byte(filter), 0); err != nil {
		return "", err
	}

	variantID := newVariantID()

	if len(itemKeys) > 0 {
		if err := f.store.SAdd(ctx, keyname.CollectionVariantItems(collectionKey, variantID), itemKeys...); err != nil {
			return "", err
		}
		if err := f.store.SAdd(ctx, keyname.CollectionItemsLegacy(collectionKey), itemKeys...); err != nil {
			return "", err
		}
	}
	if err := f.store.Expire(ctx, keyname.CollectionVariantItems(collectionKey, variantID), effectiveTTL); err != nil {
		return "", err
	}

	count, err := f.engine.FilterPermissions(ctx, clientID, keyname.CollectionVariantPerms(collectionKey, variantID), filter)
	if err != nil {
		return "", err
	}
	if err := f.store.Expire(ctx, keyname.CollectionVariantPerms(collectionKey, variantID), effectiveTTL); err != nil {
		return "", err
	}

	if err := f.store.SetString(ctx, keyname.CollectionVariantCount(collectionKey, variantID), []byte(strconv.Itoa(count)), effectiveTTL); err != nil {
		return "", err
	}

	if err := f.store.SAdd(ctx, keyname.CollectionVariants(collectionKey), variantID); err != nil {
		return "", err
	}

	return variantID, nil
}

// GetCollection runs Dominance-Get: it scans the collection's variants
// best-match-first and returns the first dominating, non-stale one's
// per-item-filtered values.
func (f *Facade) GetCollection(ctx context.Context, clientID, collectionKey string) (CollectionResult, error) {
	out, err := f.engine.DominanceGet(ctx, clientID, collectionKey)
	if err != nil {
		return CollectionResult{}, err
	}
	return CollectionResult{Hit: out.Hit, Values: out.Values}, nil
}

// CollectionItems returns the legacy flat view of every item ever added to
// collectionKey across all variants (spec §9's "offer both views").
func (f *Facade) CollectionItems(ctx context.Context, collectionKey string) []string {
	return f.store.SMembers(ctx, keyname.CollectionItemsLegacy(collectionKey))
}

var _ Interface = (*Facade)(nil)
