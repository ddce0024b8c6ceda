package runtime

import (
	"github.com/coregx/coregex"
)

// dotallPrefix is prepended to patterns for AWK semantics (dot matches newline).
const dotallPrefix = "(?s)"

// RegexConfig controls regex behavior.
type RegexConfig struct {
	// POSIX enables leftmost-longest matching (AWK/POSIX ERE semantics).
	// When false, uses leftmost-first matching (faster, Perl-like).
	POSIX bool
}

// Regex is a compiled pattern. Subjects missing a literal that every match
// needs are rejected before the regex engine runs.
type Regex struct {
	re       *coregex.Regexp
	literals *literalFilter
}

// CompileWithConfig creates a new Regex with specified configuration.
// AWK semantics: dot matches any character including newlines.
func CompileWithConfig(pattern string, config RegexConfig) (*Regex, error) {
	re, err := coregex.Compile(dotallPrefix + pattern)
	if err != nil {
		return nil, err
	}
	if config.POSIX {
		re.Longest()
	}
	return &Regex{
		re:       re,
		literals: newLiteralFilter(pattern),
	}, nil
}

// MatchString reports whether s contains any match.
func (r *Regex) MatchString(s string) bool {
	if r.literals != nil && r.literals.reject(s) {
		return false
	}
	return r.re.MatchString(s)
}

// Split slices s into substrings separated by matches.
func (r *Regex) Split(s string, n int) []string {
	return r.re.Split(s, n)
}

// RegexCache maps pattern text to its compiled form. Patterns are compiled
// on first use and kept for the lifetime of the cache; a pattern that
// fails to compile is not cached, so the error is reported on every use.
type RegexCache struct {
	reg    Registry[*Regex]
	config RegexConfig
}

// NewRegexCache creates a cache compiling with config.
func NewRegexCache(config RegexConfig) *RegexCache {
	return &RegexCache{config: config}
}

// Get returns the compiled form of pattern.
func (c *RegexCache) Get(pattern string) (*Regex, error) {
	return c.reg.Get(pattern, func(p string) (*Regex, error) {
		return CompileWithConfig(p, c.config)
	})
}

// Match reports whether s contains a match of pattern.
func (c *RegexCache) Match(pattern, s string) (bool, error) {
	re, err := c.Get(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(s), nil
}

// Split splits s around the matches of pattern.
func (c *RegexCache) Split(pattern, s string) ([]string, error) {
	re, err := c.Get(pattern)
	if err != nil {
		return nil, err
	}
	return re.Split(s, -1), nil
}

// Len returns the number of cached patterns.
func (c *RegexCache) Len() int {
	return c.reg.Len()
}
