// Package cache implements the access-aware cache engine's stateless
// entrypoint: Facade. A Facade orchestrates keyname's pure key layout and
// scripts.Engine's four atomic operations into the eight operations spec.md
// §4.D names (Set/Get, SetPrivate/GetPrivate, SetUnprotected/GetUnprotected,
// SetCollection/GetCollection) plus the two backpropagation-admin helpers
// of §4.E (SetBackpropagation, SetPermissionUnion).
//
// A Facade holds only its collaborators (a substrate.Store, a
// scripts.Engine, a grammar.Provider and a Policy) and
// no mutable state across calls, matching §5's "the facade is stateless."
package cache
