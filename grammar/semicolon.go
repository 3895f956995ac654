package grammar

import "strings"

// SemicolonProvider is the default Provider. Permission tokens are
// ';'-delimited alternating key/value segments, e.g.
// "domain;X;course;7;user;42". The type of a token is the ';'-joined
// sequence of its key segments (the even-indexed ones): "domain;course;user".
//
// ContextFilterFor builds anchored patterns: ContextFilterFor("type",
// "domain;course") yields a pattern matching any token whose key segments
// are exactly "domain;course" (e.g. "domain;X;course;7"), and
// ContextFilterFor("prefix", p) matches any token beginning with p.
// ContextFilterFor("exact", tok) matches tok exactly (a regexp-escaped
// literal).
type SemicolonProvider struct{}

// NewSemicolonProvider constructs the default Provider.
func NewSemicolonProvider() SemicolonProvider {
	return SemicolonProvider{}
}

// TypeOf extracts the even-indexed (0-based) segments of a ';'-delimited
// token and re-joins them with ';'. A token must have an even number of
// segments (key/value pairs); otherwise it is malformed.
func (SemicolonProvider) TypeOf(token string) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}
	segments := strings.Split(token, ";")
	if len(segments)%2 != 0 {
		return "", ErrMalformedToken
	}
	keys := make([]string, 0, len(segments)/2)
	for i := 0; i < len(segments); i += 2 {
		if segments[i] == "" {
			return "", ErrMalformedToken
		}
		keys = append(keys, segments[i])
	}
	return strings.Join(keys, ";"), nil
}

// ContextFilterFor builds a pattern selecting permissions relevant to a
// collection. kind "prefix" treats args[0] as a literal prefix and appends
// a wildcard suffix (e.g. "perm:x" -> "perm:x.*"); kind "type" builds a
// pattern matching every token of the given semicolon type; kind "exact"
// matches a single literal token.
func (SemicolonProvider) ContextFilterFor(kind string, args ...string) (string, error) {
	if len(args) == 0 {
		return "", ErrInvalidPattern
	}
	switch kind {
	case "prefix":
		return regexpEscape(args[0]) + ".*", nil
	case "exact":
		return regexpEscape(args[0]), nil
	case "type":
		// Match any token whose TypeOf equals args[0]: build a pattern that
		// matches the literal key segments followed by wildcard values.
		keys := strings.Split(args[0], ";")
		var b strings.Builder
		for i, k := range keys {
			if i > 0 {
				b.WriteString(";")
			}
			b.WriteString(regexpEscape(k))
			b.WriteString(";[^;]+")
		}
		return b.String(), nil
	default:
		return "", ErrInvalidPattern
	}
}

// FilterToContext filters tokens by pattern, host-side.
func (SemicolonProvider) FilterToContext(filter string, tokens []string) ([]string, error) {
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

// EveryTypePattern returns the universal pattern: ".*" matches every token.
func (SemicolonProvider) EveryTypePattern() string {
	return ".*"
}

// Matches reports whether token matches pattern under this provider.
func (SemicolonProvider) Matches(pattern, token string) (bool, error) {
	return matchToken(pattern, token)
}

var _ Provider = SemicolonProvider{}

func regexpEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '.', '*', '+', '?', '(', ')', '[', ']', '{', '}', '^', '$', '|', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
