package grammar

import (
	"regexp"
	"strings"
	"sync"
)

// patternCache memoizes compiled patterns; patterns are re-used heavily
// across Propagate and Dominance-Get script invocations.
var patternCache sync.Map // pattern string -> *regexp.Regexp

// compilePattern translates the grammar's pattern language into a Go
// regular expression and compiles it, anchoring the match to the full
// token (permission tokens are matched whole, never as substrings).
//
// The pattern language borrows two historically distinct conventions found
// in the wild: Lua-style character classes (%d, %a, %w, %s and their upper-
// case complements) and bare regex metacharacters (., *, +): the
// class-and-quantifier grammar the engine's dominance and backprop
// matching needs (see scripts.Engine).
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	translated := translateClasses(pattern)

	re, err := regexp.Compile("^(?:" + translated + ")$")
	if err != nil {
		return nil, ErrInvalidPattern
	}

	patternCache.Store(pattern, re)
	return re, nil
}

var classReplacer = map[byte]string{
	'd': "[0-9]",
	'D': "[^0-9]",
	'a': "[A-Za-z]",
	'A': "[^A-Za-z]",
	'w': "[A-Za-z0-9]",
	'W': "[^A-Za-z0-9]",
	's': `[ \t\r\n]`,
	'S': `[^ \t\r\n]`,
	'%': "%",
}

// translateClasses rewrites Lua-style '%x' character classes into regexp
// character classes, leaving existing regexp syntax ('.', '*', '+', '[]')
// untouched so patterns like "perm:x:.*" compile as-is.
func translateClasses(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c == '%' && i+1 < len(pattern) {
			next := pattern[i+1]
			if repl, ok := classReplacer[next]; ok {
				b.WriteString(repl)
				i++
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// matchToken reports whether token matches pattern. Any compilation error
// is returned to the caller rather than silently treated as no-match.
func matchToken(pattern, token string) (bool, error) {
	if pattern == "*" {
		return true, nil
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(token), nil
}
