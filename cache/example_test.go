package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/permcache/grammar"
	"github.com/jonwraymond/permcache/substrate"
)

// ExampleFacade_Set demonstrates the permission gate from spec.md §8's S1:
// a client possessing an overlapping permission can read an item back; a
// client with no overlapping permission gets a miss.
func ExampleFacade_Set() {
	ctx := context.Background()
	f := NewFacade(substrate.NewMemoryStore(), grammar.NewSemicolonProvider(), DefaultPolicy())

	_ = f.Set(ctx, "item-1", []byte(`{"name":"one"}`), time.Hour, "client-a", "perm:read")

	a, _ := f.Get(ctx, "client-a", "item-1")
	b, _ := f.Get(ctx, "client-b", "item-1")

	fmt.Println(a.Hit, string(a.Value))
	fmt.Println(b.Hit)
	// Output:
	// true {"name":"one"}
	// false
}

// ExampleFacade_SetCollection demonstrates dominance matching: a reader
// whose filtered permissions are a subset of a writer's snapshot can reuse
// the collection without a re-query, seeing only the items its own
// permissions actually intersect.
func ExampleFacade_SetCollection() {
	ctx := context.Background()
	f := NewFacade(substrate.NewMemoryStore(), grammar.NewSemicolonProvider(), DefaultPolicy())

	_ = f.Set(ctx, "item-a", []byte("A"), time.Hour, "client-alpha", "perm:x:1")
	_ = f.Set(ctx, "item-b", []byte("B"), time.Hour, "client-alpha", "perm:x:2")
	_, _ = f.SetCollection(ctx, "client-alpha", "collection-1", []string{"item-a", "item-b"}, time.Hour, "perm:x:.*")

	_ = f.Set(ctx, "item-a", []byte("A"), time.Hour, "client-beta", "perm:x:1")

	got, _ := f.GetCollection(ctx, "client-beta", "collection-1")
	fmt.Println(got.Hit, len(got.Values))
	// Output:
	// true 1
}
