package runtime

import (
	"strings"
	"unicode/utf8"
)

// literalFilter holds literal text that every match of a pattern must
// contain. Subjects lacking it are rejected without running the regex.
//
// Extraction is conservative: a pattern it does not fully understand
// yields no filter rather than one that could reject a matching subject.
type literalFilter struct {
	prefix   string   // ^prefix
	suffix   string   // suffix$
	required []string // somewhere in the subject
}

// minRequired is the shortest unanchored literal worth a Contains scan.
const minRequired = 2

// newLiteralFilter analyzes pattern and returns nil when no useful
// literal is found.
//
//	^error.*failed$  prefix "error", suffix "failed"
//	warn.*disk       required "warn", "disk"
//	colou?r          required "colo"
func newLiteralFilter(pattern string) *literalFilter {
	// Inline flags such as (?i) change what a literal matches.
	if strings.Contains(pattern, "(?") {
		return nil
	}
	p := pattern
	anchorStart := strings.HasPrefix(p, "^")
	if anchorStart {
		p = p[1:]
	}
	anchorEnd := strings.HasSuffix(p, "$") && !escaped(p, len(p)-1)
	if anchorEnd {
		p = p[:len(p)-1]
	}

	var (
		f       literalFilter
		run     []byte
		leading = true
	)
	flush := func() {
		if len(run) > 0 {
			switch {
			case leading && anchorStart:
				f.prefix = string(run)
			case len(run) >= minRequired:
				f.required = append(f.required, string(run))
			}
			run = run[:0]
		}
		leading = false
	}

	for i := 0; i < len(p); {
		var (
			lit   byte
			isLit bool
		)
		switch c := p[i]; {
		case c == '|':
			// Alternatives share no required text.
			return nil
		case c == '*' || c == '+' || c == '?' || c == '{':
			return nil
		case c == '(':
			end := skipGroup(p, i)
			if end < 0 {
				return nil
			}
			i = end
		case c == '[':
			end := skipClass(p, i)
			if end < 0 {
				return nil
			}
			i = end
		case c == '\\':
			if i+1 == len(p) {
				return nil
			}
			if isLiteralEscape(p[i+1]) {
				lit, isLit = p[i+1], true
			}
			i += 2
		case c == '.' || c == '^' || c == '$':
			i++
		case c >= utf8.RuneSelf:
			// A quantifier after a multi-byte rune repeats the whole rune.
			_, size := utf8.DecodeRuneInString(p[i:])
			i += size
		default:
			lit, isLit = c, true
			i++
		}

		var q byte
		if i < len(p) && strings.IndexByte("*+?{", p[i]) >= 0 {
			q = p[i]
		}
		switch {
		case !isLit:
			flush()
		case q == 0:
			run = append(run, lit)
		case q == '+':
			run = append(run, lit)
			flush()
		default:
			// Zero repetitions are allowed.
			flush()
		}

		switch q {
		case 0:
		case '{':
			end := strings.IndexByte(p[i:], '}')
			if end < 0 {
				return nil
			}
			i += end + 1
		default:
			i++
		}
		if q != 0 && i < len(p) && p[i] == '?' {
			i++
		}
	}

	if anchorEnd && len(run) > 0 {
		f.suffix = string(run)
		if leading && anchorStart {
			f.prefix = f.suffix
		}
	} else {
		flush()
	}

	if f.prefix == "" && f.suffix == "" && len(f.required) == 0 {
		return nil
	}
	return &f
}

// reject reports whether s certainly does not match.
func (f *literalFilter) reject(s string) bool {
	if !strings.HasPrefix(s, f.prefix) || !strings.HasSuffix(s, f.suffix) {
		return true
	}
	for _, r := range f.required {
		if !strings.Contains(s, r) {
			return true
		}
	}
	return false
}

// skipGroup returns the index just past the group opening at p[start], or
// -1 if it is unclosed.
func skipGroup(p string, start int) int {
	depth := 0
	for i := start; i < len(p); {
		switch p[i] {
		case '\\':
			i += 2
			continue
		case '[':
			end := skipClass(p, i)
			if end < 0 {
				return -1
			}
			i = end
			continue
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
		i++
	}
	return -1
}

// skipClass returns the index just past the bracket expression opening at
// p[start], or -1 if it is unclosed.
func skipClass(p string, start int) int {
	i := start + 1
	if i < len(p) && p[i] == '^' {
		i++
	}
	// A leading ] is a member, not the terminator.
	if i < len(p) && p[i] == ']' {
		i++
	}
	for i < len(p) {
		switch {
		case p[i] == '\\':
			i += 2
		case strings.HasPrefix(p[i:], "[:"):
			end := strings.Index(p[i+2:], ":]")
			if end < 0 {
				return -1
			}
			i += end + 4
		case p[i] == ']':
			return i + 1
		default:
			i++
		}
	}
	return -1
}

// isLiteralEscape reports whether \c stands for c itself.
func isLiteralEscape(c byte) bool {
	return strings.IndexByte(`.*+?{}[]()|^$\/`, c) >= 0
}

// escaped reports whether s[i] is preceded by an odd run of backslashes.
func escaped(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}
