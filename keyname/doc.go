// Package keyname builds the substrate keys used by the cache engine.
//
// Every function here is pure and total: given the same logical identifiers
// it always returns the same substrate key, bit-exact, because the atomic
// scripts and the facade must agree on the on-substrate layout without
// passing keys across that boundary as free-form strings. The layout is
// part of the engine's external contract, not an implementation detail.
package keyname
