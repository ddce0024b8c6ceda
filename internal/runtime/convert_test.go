package runtime

import (
	"math"
	"testing"
)

func TestFloatToStr(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{42, "42"},
		{-7, "-7"},
		{2.5, "2.5"},
		{0.1, "0.1"},
		{3.14159265, "3.14159"},
		{1e20, "1e+20"},
		{math.NaN(), "nan"},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
	}

	for _, tt := range tests {
		if got := FloatToStr(tt.in); got != tt.want {
			t.Errorf("FloatToStr(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFloatToInt(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{1.9, 1},
		{-1.9, -1},
		{math.NaN(), 0},
		{math.Inf(1), math.MaxInt64},
		{math.Inf(-1), math.MinInt64},
		{1e300, math.MaxInt64},
	}

	for _, tt := range tests {
		if got := FloatToInt(tt.in); got != tt.want {
			t.Errorf("FloatToInt(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestStrToInt(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"12", 12},
		{"  -34", -34},
		{"+5x", 5},
		{"12abc", 12},
		{"1e3", 1},
		{"abc", 0},
		{"99999999999999999999", math.MaxInt64},
		{"-99999999999999999999", math.MinInt64},
		{"-9223372036854775808", math.MinInt64},
	}

	for _, tt := range tests {
		if got := StrToInt(tt.in); got != tt.want {
			t.Errorf("StrToInt(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestStrToFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"3.5", 3.5},
		{" \t-2", -2},
		{"1e3", 1000},
		{"1e", 1},
		{"1e+", 1},
		{".5", 0.5},
		{"5.", 5},
		{"123abc", 123},
		{"0x1A", 26},
		{"-0x10", -16},
		{"0x", 0},
		{"inf", math.Inf(1)},
		{"-Inf", math.Inf(-1)},
		{"+", 0},
		{".", 0},
	}

	for _, tt := range tests {
		if got := StrToFloat(tt.in); got != tt.want {
			t.Errorf("StrToFloat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if !math.IsNaN(StrToFloat("nan")) {
		t.Error("StrToFloat(nan) is not NaN")
	}
}

func TestSprintf(t *testing.T) {
	str := func(s string) FormatArg { return FormatArg{Kind: ArgStr, Str: s} }
	num := func(n int64) FormatArg { return FormatArg{Kind: ArgInt, Int: n} }
	flt := func(f float64) FormatArg { return FormatArg{Kind: ArgFloat, Flt: f} }

	tests := []struct {
		format string
		args   []FormatArg
		want   string
	}{
		{"plain", nil, "plain"},
		{"100%%", nil, "100%"},
		{"%d", []FormatArg{num(42)}, "42"},
		{"%i", []FormatArg{flt(3.9)}, "3"},
		{"%d", []FormatArg{str("12abc")}, "12"},
		{"%5d|", []FormatArg{num(7)}, "    7|"},
		{"%-5d|", []FormatArg{num(7)}, "7    |"},
		{"%05d", []FormatArg{num(-7)}, "-0007"},
		{"%+d", []FormatArg{num(7)}, "+7"},
		{"%x %X %o", []FormatArg{num(255), num(255), num(8)}, "ff FF 10"},
		{"%u", []FormatArg{num(3)}, "3"},
		{"%c", []FormatArg{num(65)}, "A"},
		{"%c", []FormatArg{str("hello")}, "h"},
		{"%s", []FormatArg{flt(2.5)}, "2.5"},
		{"%s", []FormatArg{num(10)}, "10"},
		{"%.3s", []FormatArg{str("abcdef")}, "abc"},
		{"%5.2f", []FormatArg{flt(3.14159)}, " 3.14"},
		{"%e", []FormatArg{flt(1234.5)}, "1.234500e+03"},
		{"%g", []FormatArg{str("0.0001")}, "0.0001"},
		{"%*d", []FormatArg{num(4), num(42)}, "  42"},
		{"%-*d|", []FormatArg{num(-3), num(42)}, "42 |"},
		{"%.*f", []FormatArg{num(1), flt(2.26)}, "2.3"},
		{"%d %s", nil, "0 "},
		{"%d", []FormatArg{num(1), num(2)}, "1"},
		{"%z", nil, "%z"},
		{"tail%", nil, "tail%"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			if got := Sprintf(tt.format, tt.args); got != tt.want {
				t.Errorf("Sprintf(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}
