package ir

// Cmp is a comparison operator. Results are always Int 0 or 1.
type Cmp uint8

const (
	EQ Cmp = iota
	LT
	LTE
	GT
	GTE
)

func (c Cmp) String() string {
	switch c {
	case EQ:
		return "eq"
	case LT:
		return "lt"
	case LTE:
		return "lte"
	case GT:
		return "gt"
	case GTE:
		return "gte"
	}
	return "cmp?"
}

// Arith is an arithmetic operator over Int or Float operands.
type Arith uint8

const (
	Mul Arith = iota
	Add
	Minus
	Neg
	Mod
)

// Arity returns the number of operands the operator takes.
func (a Arith) Arity() int {
	if a == Neg {
		return 1
	}
	return 2
}

func (a Arith) String() string {
	switch a {
	case Mul:
		return "mul"
	case Add:
		return "add"
	case Minus:
		return "sub"
	case Neg:
		return "neg"
	case Mod:
		return "mod"
	}
	return "arith?"
}

// Bitwise is an integer-only bit operator.
type Bitwise uint8

const (
	And Bitwise = iota
	Or
	Xor
	LeftShift
	LogicalRightShift
	ArithmeticRightShift
	Complement
)

// Arity returns the number of operands the operator takes.
func (b Bitwise) Arity() int {
	if b == Complement {
		return 1
	}
	return 2
}

func (b Bitwise) String() string {
	switch b {
	case And:
		return "and"
	case Or:
		return "or"
	case Xor:
		return "xor"
	case LeftShift:
		return "shl"
	case LogicalRightShift:
		return "lshr"
	case ArithmeticRightShift:
		return "ashr"
	case Complement:
		return "compl"
	}
	return "bitwise?"
}

// FloatFunc is a floating point math function.
type FloatFunc uint8

const (
	Sin FloatFunc = iota
	Cos
	Atan
	Atan2
	Log
	Log2
	Log10
	Sqrt
	Exp
)

// Arity returns the number of operands the function takes.
func (f FloatFunc) Arity() int {
	if f == Atan2 {
		return 2
	}
	return 1
}

func (f FloatFunc) String() string {
	switch f {
	case Sin:
		return "sin"
	case Cos:
		return "cos"
	case Atan:
		return "atan"
	case Atan2:
		return "atan2"
	case Log:
		return "log"
	case Log2:
		return "log2"
	case Log10:
		return "log10"
	case Sqrt:
		return "sqrt"
	case Exp:
		return "exp"
	}
	return "math?"
}

// FileSpec selects how an output redirection opens its destination.
type FileSpec uint8

const (
	Trunc  FileSpec = iota // > path
	Append                 // >> path
	Cmd                    // | command
)

func (f FileSpec) String() string {
	switch f {
	case Trunc:
		return ">"
	case Append:
		return ">>"
	case Cmd:
		return "|"
	}
	return "?"
}

// Output is an output sink: a destination text register paired with the
// redirection mode. A nil *Output means the default output stream.
type Output struct {
	Path Ref
	Spec FileSpec
}

// Variable is a built-in AWK variable.
type Variable uint8

const (
	ARGC Variable = iota
	ARGV
	FS
	OFS
	ORS
	NF
	NR
	FILENAME

	NumVariables
)

var varNames = [...]string{
	ARGC:     "ARGC",
	ARGV:     "ARGV",
	FS:       "FS",
	OFS:      "OFS",
	ORS:      "ORS",
	NF:       "NF",
	NR:       "NR",
	FILENAME: "FILENAME",
}

func (v Variable) String() string {
	if v < NumVariables {
		return varNames[v]
	}
	return "VAR?"
}

// Ty returns the type of the built-in variable.
func (v Variable) Ty() Ty {
	switch v {
	case ARGC, NF, NR:
		return Int
	case ARGV:
		return MapIntStr
	case FS, OFS, ORS, FILENAME:
		return Str
	}
	return Null
}
