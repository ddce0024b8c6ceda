package runtime

import (
	"fmt"
	"strconv"
	"strings"
)

// ArgKind is the static type of a printf argument.
type ArgKind uint8

const (
	ArgInt ArgKind = iota
	ArgFloat
	ArgStr
)

// FormatArg is one typed printf argument.
type FormatArg struct {
	Kind ArgKind
	Int  int64
	Flt  float64
	Str  string
}

func (a FormatArg) toNum() float64 {
	switch a.Kind {
	case ArgInt:
		return float64(a.Int)
	case ArgFloat:
		return a.Flt
	}
	return StrToFloat(a.Str)
}

func (a FormatArg) toInt() int64 {
	switch a.Kind {
	case ArgInt:
		return a.Int
	case ArgFloat:
		return FloatToInt(a.Flt)
	}
	return FloatToInt(StrToFloat(a.Str))
}

func (a FormatArg) toStr() string {
	switch a.Kind {
	case ArgInt:
		return IntToStr(a.Int)
	case ArgFloat:
		return FloatToStr(a.Flt)
	}
	return a.Str
}

// Sprintf implements sprintf with AWK-compatible formatting. Missing
// arguments format as zero or the empty string; surplus ones are ignored.
func Sprintf(format string, args []FormatArg) string {
	var result strings.Builder
	argIdx := 0

	next := func() FormatArg {
		if argIdx < len(args) {
			a := args[argIdx]
			argIdx++
			return a
		}
		return FormatArg{Kind: ArgStr}
	}

	i := 0
	for i < len(format) {
		if format[i] != '%' {
			result.WriteByte(format[i])
			i++
			continue
		}

		i++
		if i >= len(format) {
			result.WriteByte('%')
			break
		}
		if format[i] == '%' {
			result.WriteByte('%')
			i++
			continue
		}

		// Flags: -+ #0
		var spec strings.Builder
		spec.WriteByte('%')
		for i < len(format) && strings.IndexByte("-+ #0", format[i]) >= 0 {
			spec.WriteByte(format[i])
			i++
		}

		// Width, possibly * for dynamic
		if i < len(format) && format[i] == '*' {
			w := next().toInt()
			if w < 0 {
				spec.WriteByte('-')
				w = -w
			}
			spec.WriteString(strconv.FormatInt(w, 10))
			i++
		} else {
			for i < len(format) && isDigit(format[i]) {
				spec.WriteByte(format[i])
				i++
			}
		}

		// Precision
		if i < len(format) && format[i] == '.' {
			i++
			if i < len(format) && format[i] == '*' {
				// negative precision is ignored
				if p := next().toInt(); p >= 0 {
					spec.WriteByte('.')
					spec.WriteString(strconv.FormatInt(p, 10))
				}
				i++
			} else {
				spec.WriteByte('.')
				for i < len(format) && isDigit(format[i]) {
					spec.WriteByte(format[i])
					i++
				}
			}
		}

		if i >= len(format) {
			result.WriteString(spec.String())
			break
		}

		verb := format[i]
		i++
		goFmt := spec.String()

		switch verb {
		case 'd', 'i':
			fmt.Fprintf(&result, goFmt+"d", next().toInt())
		case 'o', 'x', 'X':
			fmt.Fprintf(&result, goFmt+string(verb), uint64(next().toInt()))
		case 'u':
			fmt.Fprintf(&result, goFmt+"d", uint64(next().toInt()))
		case 'c':
			// Numbers are character codes; strings contribute their first byte.
			a := next()
			if a.Kind == ArgStr {
				if len(a.Str) > 0 {
					result.WriteByte(a.Str[0])
				}
			} else if n := a.toInt(); n >= 0 && n <= 255 {
				result.WriteByte(byte(n))
			}
		case 's':
			fmt.Fprintf(&result, goFmt+"s", next().toStr())
		case 'e', 'E', 'g', 'G':
			fmt.Fprintf(&result, goFmt+string(verb), next().toNum())
		case 'f', 'F':
			fmt.Fprintf(&result, goFmt+"f", next().toNum())
		default:
			result.WriteByte('%')
			result.WriteByte(verb)
		}
	}

	return result.String()
}
