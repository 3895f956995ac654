// Package substrate defines the abstract key-value-plus-set service that
// the engine's atomic scripts run against (spec §6's "substrate
// contract"), plus a reference in-process implementation.
//
// The engine owns only three key prefixes on top of a Store
// (item:, client:, collection:, per keyname) and never touches any other
// key. Store itself is prefix-agnostic: it is a plain KV+set service, the
// same shape the teacher's cache.Cache interface takes, extended with the
// set primitives the Redis-family substrate contract in spec §6 requires
// (SADD/SMEMBERS/SINTER/SCARD/SMISMEMBER) plus a prefix scan standing in
// for SCAN MATCH.
package substrate

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors surfaced by Store implementations.
var (
	// ErrUnavailable indicates the substrate could not be reached at all
	// (network error, process not running). Per spec §7(i), the engine
	// surfaces this unchanged and never retries.
	ErrUnavailable = errors.New("substrate: unavailable")

	// ErrTimeout indicates the substrate did not respond within the
	// caller's deadline.
	ErrTimeout = errors.New("substrate: timeout")
)

// Store is the abstract key-value + set + atomic-script substrate the
// engine's scripts.Engine runs against. An implementation may ride on any
// comparable server offering these primitives atomically per operation
// (spec §6); MemoryStore below is the reference in-process realization and
// substrate/remote.Client is a networked one.
//
// Contract:
//   - Concurrency: every method must be safe for concurrent use from
//     multiple goroutines.
//   - Atomicity: each individual method call is atomic with respect to the
//     keys it touches. Composing several calls into one "script" (as
//     scripts.Engine does) is the caller's responsibility via WithLock.
//   - TTL: a TTL of zero or negative means "no expiry" for SetString; an
//     expired key reads as absent, matching §3's "partial expiry is a
//     documented miss, not an error" discipline.
type Store interface {
	// GetString returns a string key's value. ok is false on miss or
	// expiry.
	GetString(ctx context.Context, key string) (value []byte, ok bool)

	// SetString stores a string key's value with the given TTL. ttl<=0
	// means no expiry.
	SetString(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Expire re-arms a key's TTL without changing its value. A no-op,
	// not an error, if the key is absent.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) bool

	// SAdd adds members to the set at key, creating the set if absent.
	SAdd(ctx context.Context, key string, members ...string) error

	// SMembers returns every member of the set at key, or nil on miss.
	SMembers(ctx context.Context, key string) []string

	// SInter returns the intersection of the sets at the given keys. An
	// empty or single-key call is defined (identity / set itself).
	SInter(ctx context.Context, keys ...string) []string

	// SCard returns the cardinality of the set at key, or 0 on miss.
	SCard(ctx context.Context, key string) int

	// SMIsMember reports, for each member, whether it belongs to the set
	// at key. The returned slice has the same length and order as
	// members.
	SMIsMember(ctx context.Context, key string, members ...string) []bool

	// Keys enumerates every string or set key beginning with prefix. The
	// Go analog of `SCAN MATCH "prefix*"`; used by Propagate to discover
	// an item's backprop edges without a separate per-edge index.
	Keys(ctx context.Context, prefix string) []string

	// WithLock runs fn while holding the substrate's single global
	// mutation lock, realizing "atomic script" for substrates (like
	// MemoryStore) that have no native scripting host. Implementations
	// backed by a real scripting-capable server (substrate/remote.Client
	// talking to a peer that runs actual Lua/Redis Functions) may
	// implement this as a single round trip instead of a local lock.
	WithLock(ctx context.Context, fn func(ctx context.Context) error) error
}
