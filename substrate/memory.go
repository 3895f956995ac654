package substrate

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is the reference in-process Store, grounded on the teacher's
// cache.MemoryCache lazy-expiry-on-read pattern and extended with set
// storage. A single sync.Mutex guards all state; WithLock holds that same
// mutex for its whole duration, which is what lets scripts.Engine realize
// "atomic script" as "one WithLock call" without a real scripting host
// (see SPEC_FULL.md §4.C).
//
// WithLock's callback is expected to call back into this same Store
// through the ordinary Store methods (GetString, SAdd, ...); to avoid a
// self-deadlock on the non-reentrant mutex, every method first checks a
// context flag set by WithLock and, if present, skips re-acquiring the
// lock it already holds.
type MemoryStore struct {
	mu      sync.Mutex
	strings map[string]*stringEntry
	sets    map[string]*setEntry
}

type lockedKey struct{}

func withLockedFlag(ctx context.Context) context.Context {
	return context.WithValue(ctx, lockedKey{}, true)
}

func alreadyLocked(ctx context.Context) bool {
	v, _ := ctx.Value(lockedKey{}).(bool)
	return v
}

type stringEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

type setEntry struct {
	members   map[string]struct{}
	expiresAt time.Time
}

func (e *stringEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func (e *setEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryStore creates an empty in-process Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		strings: make(map[string]*stringEntry),
		sets:    make(map[string]*setEntry),
	}
}

func (m *MemoryStore) lock(ctx context.Context) func() {
	if alreadyLocked(ctx) {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *MemoryStore) GetString(ctx context.Context, key string) ([]byte, bool) {
	defer m.lock(ctx)()
	e, ok := m.strings[key]
	if !ok {
		return nil, false
	}
	if e.expired(time.Now()) {
		delete(m.strings, key)
		return nil, false
	}
	return e.value, true
}

func (m *MemoryStore) SetString(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	defer m.lock(ctx)()
	entry := &stringEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.strings[key] = entry
	return nil
}

func (m *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	defer m.lock(ctx)()
	if e, ok := m.strings[key]; ok {
		if ttl > 0 {
			e.expiresAt = time.Now().Add(ttl)
		} else {
			e.expiresAt = time.Time{}
		}
		return nil
	}
	if e, ok := m.sets[key]; ok {
		if ttl > 0 {
			e.expiresAt = time.Now().Add(ttl)
		} else {
			e.expiresAt = time.Time{}
		}
	}
	return nil
}

func (m *MemoryStore) Exists(ctx context.Context, key string) bool {
	defer m.lock(ctx)()
	now := time.Now()
	if e, ok := m.strings[key]; ok && !e.expired(now) {
		return true
	}
	if e, ok := m.sets[key]; ok && !e.expired(now) {
		return true
	}
	return false
}

func (m *MemoryStore) SAdd(ctx context.Context, key string, members ...string) error {
	defer m.lock(ctx)()
	e, ok := m.sets[key]
	if !ok || e.expired(time.Now()) {
		e = &setEntry{members: make(map[string]struct{}, len(members))}
		m.sets[key] = e
	}
	for _, mem := range members {
		e.members[mem] = struct{}{}
	}
	return nil
}

func (m *MemoryStore) SMembers(ctx context.Context, key string) []string {
	defer m.lock(ctx)()
	e, ok := m.sets[key]
	if !ok || e.expired(time.Now()) {
		return nil
	}
	out := make([]string, 0, len(e.members))
	for mem := range e.members {
		out = append(out, mem)
	}
	sort.Strings(out)
	return out
}

func (m *MemoryStore) SInter(ctx context.Context, keys ...string) []string {
	defer m.lock(ctx)()
	if len(keys) == 0 {
		return nil
	}
	now := time.Now()
	first, ok := m.sets[keys[0]]
	if !ok || first.expired(now) {
		return nil
	}
	result := make(map[string]struct{}, len(first.members))
	for mem := range first.members {
		result[mem] = struct{}{}
	}
	for _, k := range keys[1:] {
		e, ok := m.sets[k]
		if !ok || e.expired(now) {
			return nil
		}
		for mem := range result {
			if _, in := e.members[mem]; !in {
				delete(result, mem)
			}
		}
	}
	out := make([]string, 0, len(result))
	for mem := range result {
		out = append(out, mem)
	}
	sort.Strings(out)
	return out
}

func (m *MemoryStore) SCard(ctx context.Context, key string) int {
	defer m.lock(ctx)()
	e, ok := m.sets[key]
	if !ok || e.expired(time.Now()) {
		return 0
	}
	return len(e.members)
}

func (m *MemoryStore) SMIsMember(ctx context.Context, key string, members ...string) []bool {
	defer m.lock(ctx)()
	out := make([]bool, len(members))
	e, ok := m.sets[key]
	if !ok || e.expired(time.Now()) {
		return out
	}
	for i, mem := range members {
		_, out[i] = e.members[mem]
	}
	return out
}

func (m *MemoryStore) Keys(ctx context.Context, prefix string) []string {
	defer m.lock(ctx)()
	now := time.Now()
	var out []string
	for k, e := range m.strings {
		if strings.HasPrefix(k, prefix) && !e.expired(now) {
			out = append(out, k)
		}
	}
	for k, e := range m.sets {
		if strings.HasPrefix(k, prefix) && !e.expired(now) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// WithLock holds the store's single mutex for the duration of fn. fn
// receives a context flagged so that any Store method fn calls on this
// same MemoryStore recognizes the lock is already held and skips
// re-acquiring it, rather than deadlocking on the non-reentrant mutex.
func (m *MemoryStore) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(withLockedFlag(ctx))
}

var _ Store = (*MemoryStore)(nil)
