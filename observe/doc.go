// Package observe provides observability primitives for the cache engine.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. Consumers wire the observer into the cache facade
// or into cmd/cacheserver's HTTP middleware.
package observe
