package cache

import "errors"

// ErrConflictingFilter is the one error the facade raises itself (spec
// §6.5), and only when a Facade is constructed WithFilterConflictCheck():
// a second SetCollection on the same collectionKey supplied a context
// filter that differs from the one already recorded. Per §6, "the only
// exception raised by the facade itself... implementations may choose to
// elide this check" — this module defaults to eliding it (see DESIGN.md)
// and makes the check opt-in.
var ErrConflictingFilter = errors.New("cache: collection filter conflicts with existing filter")
