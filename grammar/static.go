package grammar

import "strings"

// StaticProvider classifies ':'-delimited tokens ("resource:action" style,
// grounded on the colon-segmented permission strings matched by the
// teacher's RBAC matcher) against a fixed prefix-to-type table supplied at
// construction, instead of deriving a type structurally. Useful when
// permission types are a closed, administrator-curated set rather than
// implied by token shape.
//
// A token's type is the value of the longest registered prefix that the
// token starts with. A token matching no prefix is malformed.
type StaticProvider struct {
	types []prefixType // sorted longest-prefix-first
}

type prefixType struct {
	prefix string
	typ    string
}

// NewStaticProvider builds a StaticProvider from a prefix->type table.
func NewStaticProvider(prefixToType map[string]string) StaticProvider {
	types := make([]prefixType, 0, len(prefixToType))
	for p, t := range prefixToType {
		types = append(types, prefixType{prefix: p, typ: t})
	}
	// Longest prefix first so a more specific entry wins over a shorter one.
	for i := 1; i < len(types); i++ {
		for j := i; j > 0 && len(types[j].prefix) > len(types[j-1].prefix); j-- {
			types[j], types[j-1] = types[j-1], types[j]
		}
	}
	return StaticProvider{types: types}
}

// TypeOf returns the type registered for the longest matching prefix.
func (p StaticProvider) TypeOf(token string) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}
	for _, pt := range p.types {
		if strings.HasPrefix(token, pt.prefix) {
			return pt.typ, nil
		}
	}
	return "", ErrMalformedToken
}

// ContextFilterFor builds a prefix-wildcard pattern from args[0].
func (StaticProvider) ContextFilterFor(kind string, args ...string) (string, error) {
	if len(args) == 0 {
		return "", ErrInvalidPattern
	}
	switch kind {
	case "prefix":
		return regexpEscape(args[0]) + ".*", nil
	case "exact":
		return regexpEscape(args[0]), nil
	default:
		return "", ErrInvalidPattern
	}
}

// FilterToContext filters tokens by pattern, host-side.
func (StaticProvider) FilterToContext(filter string, tokens []string) ([]string, error) {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		ok, err := matchToken(filter, t)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// EveryTypePattern returns the universal pattern.
func (StaticProvider) EveryTypePattern() string {
	return ".*"
}

// Matches reports whether token matches pattern.
func (StaticProvider) Matches(pattern, token string) (bool, error) {
	return matchToken(pattern, token)
}

var _ Provider = StaticProvider{}
