package scripts

import "errors"

// Sentinel errors surfaced by Engine's four atomic operations. Per
// spec §7(ii), a script evaluation error indicates corrupted topology or a
// grammar bug; it is always surfaced, never silently skipped.
var (
	// ErrMalformedEdge indicates a backprop edge key could not be decomposed
	// into a type token. Spec §4.C.1: "a malformed edge key is a fatal
	// script error, not silently skipped."
	ErrMalformedEdge = errors.New("scripts: malformed backprop edge key")

	// ErrPatternInvalid is returned when the grammar provider cannot
	// compile or evaluate a pattern passed to Propagate or Dominance-Get.
	ErrPatternInvalid = errors.New("scripts: invalid pattern")
)
