package runtime

import (
	"math"
	"strconv"
	"strings"
)

// Number formatting and parsing used by the Convert instruction and by
// printf argument coercion.

// FloatToStr formats n the way AWK's default CONVFMT does: integers
// without a fraction, everything else with %.6g.
func FloatToStr(n float64) string {
	switch {
	case math.IsNaN(n):
		return "nan"
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	case n == math.Trunc(n) && math.Abs(n) < 1e16:
		return strconv.FormatInt(int64(n), 10)
	default:
		return strconv.FormatFloat(n, 'g', 6, 64)
	}
}

// IntToStr formats n in decimal.
func IntToStr(n int64) string {
	return strconv.FormatInt(n, 10)
}

// FloatToInt truncates toward zero, saturating at the int64 bounds. NaN
// converts to 0.
func FloatToInt(f float64) int64 {
	switch {
	case f != f:
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// StrToInt parses the longest decimal integer prefix of s after leading
// whitespace, so "12abc" is 12 and "1e3" is 1. Overflow saturates.
func StrToInt(s string) int64 {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	var n uint64
	overflow := false
	for ; i < len(s) && isDigit(s[i]); i++ {
		d := uint64(s[i] - '0')
		if n > (math.MaxUint64-d)/10 {
			overflow = true
			continue
		}
		n = n*10 + d
	}
	switch {
	case neg && (overflow || n > 1<<63):
		return math.MinInt64
	case neg:
		return -int64(n)
	case overflow || n > math.MaxInt64:
		return math.MaxInt64
	}
	return int64(n)
}

// StrToFloat parses a number from the beginning of s.
// Allows trailing non-numeric characters like "123abc" -> 123.
func StrToFloat(s string) float64 {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if i >= len(s) {
		return 0
	}

	start := i

	if s[i] == '+' || s[i] == '-' {
		i++
	}
	if i >= len(s) {
		return 0
	}

	if i+3 <= len(s) {
		switch strings.ToLower(s[i : i+3]) {
		case "nan":
			return math.NaN()
		case "inf":
			if s[start] == '-' {
				return math.Inf(-1)
			}
			return math.Inf(1)
		}
	}

	if i+2 < len(s) && s[i] == '0' && (s[i+1] == 'x' || s[i+1] == 'X') {
		return parseHexPrefix(s, start, i+2)
	}

	gotDigit := false
	for i < len(s) && isDigit(s[i]) {
		gotDigit = true
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			gotDigit = true
			i++
		}
	}
	if !gotDigit {
		return 0
	}

	// The exponent only counts if it has digits: "1e" is 1.
	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		for i < len(s) && isDigit(s[i]) {
			end = i + 1
			i++
		}
	}

	n, _ := strconv.ParseFloat(s[start:end], 64)
	return n
}

func parseHexPrefix(s string, start, i int) float64 {
	j := i
	for j < len(s) && isHexDigit(s[j]) {
		j++
	}
	if j == i {
		return 0
	}
	u, _ := strconv.ParseUint(s[i:j], 16, 64) // saturates on overflow
	f := float64(u)
	if s[start] == '-' {
		f = -f
	}
	return f
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
