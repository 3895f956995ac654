package keyname

import "strings"

// Prefixes the engine owns exclusively. It never reads or writes a
// substrate key outside these three namespaces.
const (
	itemPrefix       = "item:"
	clientPrefix     = "client:"
	collectionPrefix = "collection:"
)

// ItemValue returns the key holding an item's opaque payload.
func ItemValue(itemKey string) string {
	return itemPrefix + itemKey + ":value"
}

// ItemPerms returns the key holding an item's permission set.
func ItemPerms(itemKey string) string {
	return itemPrefix + itemKey + ":perms"
}

// ItemBackprop returns the key holding the set of backpropagation targets
// for the given type token on an item.
func ItemBackprop(itemKey, typeToken string) string {
	return itemPrefix + itemKey + ":backprop:" + typeToken
}

// ItemBackpropPrefix returns the prefix shared by every backprop edge key
// on an item, used to enumerate an item's outgoing edges during Propagate.
func ItemBackpropPrefix(itemKey string) string {
	return itemPrefix + itemKey + ":backprop:"
}

// ItemPrivate returns the key holding a per-(item, client) private value.
func ItemPrivate(itemKey, clientID string) string {
	return itemPrefix + itemKey + ":private:" + clientID
}

// ClientPerms returns the key holding a client's accumulated permission set.
func ClientPerms(clientID string) string {
	return clientPrefix + clientID + ":perms"
}

// CollectionItemsLegacy returns the flat, non-variant items set used by
// setBackpropagation. Distinct from the per-variant item sets written by
// setCollection/getCollection (see CollectionVariantItems).
func CollectionItemsLegacy(collectionKey string) string {
	return collectionPrefix + collectionKey + ":items"
}

// CollectionVariants returns the key holding the set of variant IDs for a
// collection.
func CollectionVariants(collectionKey string) string {
	return collectionPrefix + collectionKey + ":variants"
}

// CollectionFilter returns the key holding a collection's context filter.
// Not TTL'd: topology, not data (see §9 open question on filter TTL).
func CollectionFilter(collectionKey string) string {
	return collectionPrefix + collectionKey + ":filter"
}

// CollectionVariantItems returns the key holding a single variant's item
// set.
func CollectionVariantItems(collectionKey, variantID string) string {
	return collectionPrefix + collectionKey + ":" + variantID + ":items"
}

// CollectionVariantPerms returns the key holding a single variant's
// filtered permission snapshot.
func CollectionVariantPerms(collectionKey, variantID string) string {
	return collectionPrefix + collectionKey + ":" + variantID + ":perms"
}

// CollectionVariantCount returns the key holding a single variant's cached
// permission-set cardinality, used to sort variants without re-counting.
func CollectionVariantCount(collectionKey, variantID string) string {
	return collectionPrefix + collectionKey + ":" + variantID + ":count"
}

// BackpropType extracts the type token from a backprop edge key previously
// produced by ItemBackprop, as enumerated via Store.Keys(ItemBackpropPrefix(I)).
// Returns false if key does not have the expected shape (a malformed edge
// key, a fatal condition for Propagate, not a silently-skipped one).
func BackpropType(itemKey, key string) (string, bool) {
	prefix := ItemBackpropPrefix(itemKey)
	if !strings.HasPrefix(key, prefix) {
		return "", false
	}
	typeToken := key[len(prefix):]
	if typeToken == "" {
		return "", false
	}
	return typeToken, true
}
