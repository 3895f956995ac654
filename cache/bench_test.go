package cache

import (
	"context"
	"testing"
	"time"
)

func BenchmarkFacadeSet(b *testing.B) {
	ctx := context.Background()
	f := newTestFacade()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = f.Set(ctx, "bench-item", []byte("value"), time.Hour, "bench-client", "perm:bench")
	}
}

func BenchmarkFacadeGetHit(b *testing.B) {
	ctx := context.Background()
	f := newTestFacade()
	_ = f.Set(ctx, "bench-item", []byte("value"), time.Hour, "bench-client", "perm:bench")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = f.Get(ctx, "bench-client", "bench-item")
	}
}

func BenchmarkFacadeGetCollectionHit(b *testing.B) {
	ctx := context.Background()
	f := newTestFacade()
	_ = f.Set(ctx, "bench-a", []byte("A"), time.Hour, "bench-writer", "perm:bench:1")
	_ = f.Set(ctx, "bench-b", []byte("B"), time.Hour, "bench-writer", "perm:bench:2")
	_, _ = f.SetCollection(ctx, "bench-writer", "bench-collection", []string{"bench-a", "bench-b"}, time.Hour, "perm:bench:.*")
	_ = f.Set(ctx, "bench-a", []byte("A"), time.Hour, "bench-reader", "perm:bench:1")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = f.GetCollection(ctx, "bench-reader", "bench-collection")
	}
}
