package grammar

import "errors"

// Sentinel errors returned by Provider implementations.
var (
	// ErrEmptyToken is returned by TypeOf when given an empty token.
	ErrEmptyToken = errors.New("grammar: token is empty")
	// ErrMalformedToken is returned by TypeOf when a token cannot be
	// decomposed into a type under the provider's rules.
	ErrMalformedToken = errors.New("grammar: token is malformed")
	// ErrInvalidPattern is returned when a context filter or pattern cannot
	// be compiled or matched.
	ErrInvalidPattern = errors.New("grammar: pattern is invalid")
)

// Provider classifies permission tokens and builds context filters for the
// cache engine. Implementations are external collaborators (see §4.B of the
// design): the engine's atomic scripts and the facade call into a Provider
// but never embed grammar-specific logic themselves.
//
// Contract:
//   - Purity: every method is a pure function of its arguments; no I/O, no
//     shared mutable state, no dependence on wall-clock time.
//   - Totality: every method must return for every syntactically well-formed
//     input; an ill-formed input is reported as an error, never a panic.
//   - Concurrency: implementations must be safe for concurrent use.
type Provider interface {
	// TypeOf derives a permission token's type. The default SemicolonProvider
	// extracts the even-indexed segments of a ';'-delimited token, e.g.
	// "domain;X;course;7;user;42" -> "domain;course;user".
	TypeOf(token string) (string, error)

	// ContextFilterFor produces a pattern selecting permissions "relevant"
	// to a collection of the given kind, e.g. ContextFilterFor("prefix",
	// "perm:x") -> "perm:x.*". The pattern is opaque to the engine; only
	// Provider.Matches (via the substrate's pattern engine) interprets it.
	ContextFilterFor(kind string, args ...string) (string, error)

	// FilterToContext filters tokens host-side by a context filter. Used
	// when the substrate's scripting dialect cannot itself express the
	// predicate (e.g. the in-process substrate in this module).
	FilterToContext(filter string, tokens []string) ([]string, error)

	// EveryTypePattern returns the universal type pattern used by
	// setPermissionUnion: every well-formed permission token matches it.
	EveryTypePattern() string

	// Matches reports whether token matches pattern under this provider's
	// pattern language. Used by atomic scripts to decide which permissions
	// propagate along a typed backprop edge and which permissions dominate
	// a collection's context filter.
	Matches(pattern, token string) (bool, error)
}
