package cache

import (
	"context"

	"github.com/jonwraymond/permcache/keyname"
)

// SetBackpropagation wires every current member of collectionKey's legacy
// items set to targetItemKey under a backprop edge of type typeToken
// (spec §4.E). It must run before items are (re)written with permissions
// the caller expects to propagate: Propagate reads each item's current
// edges to decide propagation, so installing the edge after the fact
// misses permissions already written.
//
// Idempotent: installing the same edge twice is a no-op (set semantics).
func (f *Facade) SetBackpropagation(ctx context.Context, collectionKey, typeToken, targetItemKey string) error {
	items := f.store.SMembers(ctx, keyname.CollectionItemsLegacy(collectionKey))
	for _, item := range items {
		if err := f.store.SAdd(ctx, keyname.ItemBackprop(item, typeToken), targetItemKey); err != nil {
			return err
		}
	}
	return nil
}

// SetPermissionUnion wires every ordered pair (a, b) with a != b among the
// unique itemKeys under the universal any-type edge (spec §4.E), so that a
// permission newly added to any one of them propagates to all the others —
// "aliasing" cache entries that represent the same real-world entity.
// Idempotent.
func (f *Facade) SetPermissionUnion(ctx context.Context, itemKeys ...string) error {
	unique := dedupeKeys(itemKeys)
	every := f.provider.EveryTypePattern()

	for _, a := range unique {
		for _, b := range unique {
			if a == b {
				continue
			}
			if err := f.store.SAdd(ctx, keyname.ItemBackprop(a, every), b); err != nil {
				return err
			}
		}
	}
	return nil
}

func dedupeKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
