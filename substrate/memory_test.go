package substrate

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreStringRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, ok := s.GetString(ctx, "missing"); ok {
		t.Fatal("expected miss on absent key")
	}

	if err := s.SetString(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	got, ok := s.GetString(ctx, "k")
	if !ok || string(got) != "v" {
		t.Fatalf("GetString = (%q, %v), want (v, true)", got, ok)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.SetString(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	time.Sleep(time.Millisecond)

	if _, ok := s.GetString(ctx, "k"); ok {
		t.Fatal("expected expired key to read as a miss")
	}
}

func TestMemoryStoreSetOps(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.SAdd(ctx, "a", "x", "y"); err != nil {
		t.Fatalf("SAdd: %v", err)
	}
	if err := s.SAdd(ctx, "b", "y", "z"); err != nil {
		t.Fatalf("SAdd: %v", err)
	}

	inter := s.SInter(ctx, "a", "b")
	if len(inter) != 1 || inter[0] != "y" {
		t.Fatalf("SInter = %v, want [y]", inter)
	}

	if c := s.SCard(ctx, "a"); c != 2 {
		t.Fatalf("SCard = %d, want 2", c)
	}

	mis := s.SMIsMember(ctx, "a", "x", "q")
	if !mis[0] || mis[1] {
		t.Fatalf("SMIsMember = %v, want [true false]", mis)
	}

	members := s.SMembers(ctx, "a")
	if len(members) != 2 {
		t.Fatalf("SMembers = %v, want 2 members", members)
	}
}

func TestMemoryStoreKeysPrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_ = s.SetString(ctx, "item:1:value", []byte("v"), time.Minute)
	_ = s.SAdd(ctx, "item:1:backprop:t", "tgt")
	_ = s.SetString(ctx, "item:2:value", []byte("v"), time.Minute)

	keys := s.Keys(ctx, "item:1:")
	if len(keys) != 2 {
		t.Fatalf("Keys(item:1:) = %v, want 2 entries", keys)
	}
}

func TestMemoryStoreWithLockReentrant(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.WithLock(ctx, func(ctx context.Context) error {
		if err := s.SAdd(ctx, "x", "m"); err != nil {
			return err
		}
		_ = s.SMembers(ctx, "x")
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock: %v", err)
	}

	if c := s.SCard(ctx, "x"); c != 1 {
		t.Fatalf("SCard after WithLock = %d, want 1", c)
	}
}
