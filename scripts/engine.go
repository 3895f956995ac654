// Package scripts implements the four atomic, server-side operations
// spec.md §4.C names: Propagate, Authorize-Get, Filter-Permissions, and
// Dominance-Get. Each is realized as one scripts.Engine method whose whole
// body runs inside one substrate.Store.WithLock call, the Go analog of an
// atomic EVAL/EVALSHA invocation: no other Engine or Store call can
// interleave with it, so authorize-then-fetch and subset-then-fetch are
// indivisible (spec §4.C's stated rationale).
//
// Engine holds only its two collaborators (a substrate.Store and a
// grammar.Provider) and the shared item-key prefix; it is stateless across
// calls, grounded on the teacher's resilience.Executor composition shape
// (a struct holding collaborators, each public method one orchestrated
// operation).
package scripts

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/permcache/grammar"
	"github.com/jonwraymond/permcache/keyname"
	"github.com/jonwraymond/permcache/substrate"
)

// Engine runs the four atomic operations against a substrate.Store using a
// grammar.Provider to classify and match permission tokens.
//
// dominanceGroup collapses duplicate concurrent DominanceGet calls for the
// same (clientID, collectionKey) pair into one substrate round trip,
// grounded on the teacher's golang.org/x/sync usage in auth's composite
// authenticator fan-out. This is a cache-stampede guard over identical
// reads, not a change to the script's own locking: each distinct caller
// still observes a result computed under one WithLock call.
type Engine struct {
	store          substrate.Store
	provider       grammar.Provider
	dominanceGroup singleflight.Group
}

// NewEngine constructs an Engine over the given substrate and grammar
// provider.
func NewEngine(store substrate.Store, provider grammar.Provider) *Engine {
	return &Engine{store: store, provider: provider}
}

// edgeTypeFromKey extracts the type token from a backprop edge key of the
// form "item:<itemKey>:backprop:<typeToken>". Returns an error satisfying
// ErrMalformedEdge if the key has no type segment (spec §4.C.1's "a
// malformed edge key is a fatal script error, not silently skipped").
func edgeTypeFromKey(itemKey, edgeKey string) (string, error) {
	prefix := keyname.ItemBackpropPrefix(itemKey)
	if !strings.HasPrefix(edgeKey, prefix) {
		return "", fmt.Errorf("%w: %q has no %q prefix", ErrMalformedEdge, edgeKey, prefix)
	}
	typ := edgeKey[len(prefix):]
	if typ == "" {
		return "", fmt.Errorf("%w: %q has empty type segment", ErrMalformedEdge, edgeKey)
	}
	return typ, nil
}

// Propagate implements spec §4.C.1. It unions P into the client's
// permission set, then BFS-traverses the backprop graph from rootItemKey,
// unioning into each edge target's perms exactly the subset of P that
// matches that edge's type token. Zero-length P short-circuits
// without touching the substrate. Cycles terminate via the visited set.
func (e *Engine) Propagate(ctx context.Context, rootItemKey string, perms []string, clientID string) error {
	if len(perms) == 0 {
		return nil
	}

	return e.store.WithLock(ctx, func(ctx context.Context) error {
		if clientID != "" {
			if err := e.store.SAdd(ctx, keyname.ClientPerms(clientID), perms...); err != nil {
				return err
			}
		}

		visited := map[string]bool{rootItemKey: true}
		frontier := []string{rootItemKey}

		for len(frontier) > 0 {
			item := frontier[0]
			frontier = frontier[1:]

			if err := e.store.SAdd(ctx, keyname.ItemPerms(item), perms...); err != nil {
				return err
			}

			edgeKeys := e.store.Keys(ctx, keyname.ItemBackpropPrefix(item))
			for _, edgeKey := range edgeKeys {
				typeToken, err := edgeTypeFromKey(item, edgeKey)
				if err != nil {
					return err
				}

				matching, err := e.matchingPerms(typeToken, perms)
				if err != nil {
					return err
				}
				if len(matching) == 0 {
					continue
				}

				targets := e.store.SMembers(ctx, edgeKey)
				for _, target := range targets {
					if err := e.store.SAdd(ctx, keyname.ItemPerms(target), matching...); err != nil {
						return err
					}
					if !visited[target] {
						visited[target] = true
						frontier = append(frontier, target)
					}
				}
			}
		}
		return nil
	})
}

// matchingPerms returns the subset of perms that match typePattern under
// the provider's pattern language; each permission token is matched whole,
// not its TypeOf-derived type. The universal
// type pattern (grammar.Provider.EveryTypePattern, used by
// setPermissionUnion) matches every permission regardless of its own type.
func (e *Engine) matchingPerms(typePattern string, perms []string) ([]string, error) {
	if typePattern == e.provider.EveryTypePattern() {
		out := make([]string, len(perms))
		copy(out, perms)
		return out, nil
	}
	var out []string
	for _, p := range perms {
		ok, err := e.provider.Matches(typePattern, p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPatternInvalid, err)
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// AuthorizeResult is the tagged result of AuthorizeGet, the Go realization
// of spec §9's "explicit tagged pairs (hit, payload)" design note.
type AuthorizeResult struct {
	Authorized bool
	Value      []byte
}

// AuthorizeGet implements spec §4.C.2: authorize-then-fetch as one atomic
// step. inter = clientPerms ∩ itemPerms; if non-empty, the value is
// returned alongside Authorized=true.
func (e *Engine) AuthorizeGet(ctx context.Context, clientID, itemKey string) (AuthorizeResult, error) {
	var result AuthorizeResult
	err := e.store.WithLock(ctx, func(ctx context.Context) error {
		inter := e.store.SInter(ctx, keyname.ClientPerms(clientID), keyname.ItemPerms(itemKey))
		if len(inter) == 0 {
			return nil
		}
		value, ok := e.store.GetString(ctx, keyname.ItemValue(itemKey))
		if !ok {
			return nil
		}
		result.Authorized = true
		result.Value = value
		return nil
	})
	return result, err
}

// FilterPermissions implements spec §4.C.3: for each client permission
// matching pattern, add it to dstKey. Returns the resulting cardinality of
// dstKey, cached by callers as a variant's count() (spec §3's
// "count(V) ... cached so sorting can be done without re-counting").
func (e *Engine) FilterPermissions(ctx context.Context, clientID, dstKey, pattern string) (int, error) {
	var count int
	err := e.store.WithLock(ctx, func(ctx context.Context) error {
		clientPerms := e.store.SMembers(ctx, keyname.ClientPerms(clientID))
		filtered, err := e.filterByPattern(pattern, clientPerms)
		if err != nil {
			return err
		}
		if len(filtered) > 0 {
			if err := e.store.SAdd(ctx, dstKey, filtered...); err != nil {
				return err
			}
		}
		count = e.store.SCard(ctx, dstKey)
		return nil
	})
	return count, err
}

func (e *Engine) filterByPattern(pattern string, tokens []string) ([]string, error) {
	var out []string
	for _, t := range tokens {
		ok, err := e.provider.Matches(pattern, t)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPatternInvalid, err)
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// DominanceResult is the tagged result of DominanceGet.
type DominanceResult struct {
	Hit    bool
	Values [][]byte
}

// DominanceGet implements spec §4.C.4: filter the client's permissions
// through the collection's context filter, then scan variants best-match
// (highest cached count) first, testing subset-dominance and, on a
// dominating variant, emitting the per-item intersection of values the
// caller is actually allowed to see. A variant whose items have gone
// partially stale (perms present, value expired) is abandoned in favor of
// the next-best variant rather than failing the whole call.
func (e *Engine) DominanceGet(ctx context.Context, clientID, collectionKey string) (DominanceResult, error) {
	out, err, _ := e.dominanceGroup.Do(clientID+"\x00"+collectionKey, func() (any, error) {
		return e.dominanceGet(ctx, clientID, collectionKey)
	})
	if err != nil {
		return DominanceResult{}, err
	}
	return out.(DominanceResult), nil
}

func (e *Engine) dominanceGet(ctx context.Context, clientID, collectionKey string) (DominanceResult, error) {
	var result DominanceResult
	err := e.store.WithLock(ctx, func(ctx context.Context) error {
		filterBytes, ok := e.store.GetString(ctx, keyname.CollectionFilter(collectionKey))
		if !ok {
			return nil
		}
		filter := string(filterBytes)

		clientPerms := e.store.SMembers(ctx, keyname.ClientPerms(clientID))
		clientFiltered, err := e.filterByPattern(filter, clientPerms)
		if err != nil {
			return err
		}

		variants := e.store.SMembers(ctx, keyname.CollectionVariants(collectionKey))
		if len(variants) == 0 {
			return nil
		}

		type scored struct {
			id    string
			count int
		}
		var surviving []scored
		for _, v := range variants {
			countKey := keyname.CollectionVariantCount(collectionKey, v)
			if !e.store.Exists(ctx, countKey) {
				continue // count key expired: skip per spec §4.C.4 step 4
			}
			raw, ok := e.store.GetString(ctx, countKey)
			if !ok {
				continue
			}
			surviving = append(surviving, scored{id: v, count: parseCount(raw)})
		}

		sort.SliceStable(surviving, func(i, j int) bool {
			return surviving[i].count > surviving[j].count
		})

		for _, v := range surviving {
			permsKey := keyname.CollectionVariantPerms(collectionKey, v.id)
			if !e.dominates(ctx, clientFiltered, permsKey) {
				continue
			}

			items := e.store.SMembers(ctx, keyname.CollectionVariantItems(collectionKey, v.id))
			values, stale := e.emitItems(ctx, clientID, items)
			if stale {
				continue // stale variant: try the next-best one
			}
			result.Hit = true
			result.Values = values
			return nil
		}
		return nil
	})
	return result, err
}

// dominates tests clientFiltered ⊆ the set at permsKey via the substrate's
// multi-member-check primitive, early-exiting on the first non-member.
func (e *Engine) dominates(ctx context.Context, clientFiltered []string, permsKey string) bool {
	if len(clientFiltered) == 0 {
		return true
	}
	present := e.store.SMIsMember(ctx, permsKey, clientFiltered...)
	for _, ok := range present {
		if !ok {
			return false
		}
	}
	return true
}

// emitItems computes, for each item, clientPerms ∩ perms(item); a
// non-empty intersection with a present value emits that value, a
// non-empty intersection with an absent value marks the whole variant
// stale (spec §4.C.4 step 5c).
func (e *Engine) emitItems(ctx context.Context, clientID string, items []string) ([][]byte, bool) {
	var values [][]byte
	for _, item := range items {
		inter := e.store.SInter(ctx, keyname.ClientPerms(clientID), keyname.ItemPerms(item))
		if len(inter) == 0 {
			continue
		}
		value, ok := e.store.GetString(ctx, keyname.ItemValue(item))
		if !ok {
			return nil, true
		}
		values = append(values, value)
	}
	return values, false
}

func parseCount(raw []byte) int {
	n := 0
	for _, c := range raw {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}
