package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Instr is one IR instruction. Defs lists the registers the instruction
// writes, Uses the registers it reads.
type Instr interface {
	Defs() []Ref
	Uses() []Ref
	String() string
	instr()
}

// LabelID names a jump target within one function.
type LabelID uint32

func (l LabelID) String() string { return "L" + strconv.FormatUint(uint64(l), 10) }

type (
	// StoreConstInt sets Dst to an integer literal.
	StoreConstInt struct {
		Dst Ref
		Val int64
	}

	// StoreConstFloat sets Dst to a floating point literal.
	StoreConstFloat struct {
		Dst Ref
		Val float64
	}

	// StoreConstStr sets Dst to a text literal.
	StoreConstStr struct {
		Dst Ref
		Val string
	}

	// Mov copies Src into Dst. Both registers have the same type.
	Mov struct {
		Dst, Src Ref
	}

	// Compare evaluates L op R into the Int register Dst. Operands are
	// both Int, both Float or both Str.
	Compare struct {
		Dst  Ref
		Op   Cmp
		L, R Ref
	}

	// Arithmetic applies Op to Args. The domain (Int or Float) is the type
	// of Dst.
	Arithmetic struct {
		Dst  Ref
		Op   Arith
		Args []Ref
	}

	// BitOp applies an integer bit operator.
	BitOp struct {
		Dst  Ref
		Op   Bitwise
		Args []Ref
	}

	// Math calls a floating point math function.
	Math struct {
		Dst  Ref
		Fn   FloatFunc
		Args []Ref
	}

	// Div is floating point division. Dst is always Float; Int operands
	// are converted first.
	Div struct {
		Dst, L, R Ref
	}

	// Pow raises L to the power R. Dst is always Float.
	Pow struct {
		Dst, L, R Ref
	}

	// Convert converts Src to the scalar type of Dst.
	Convert struct {
		Dst, Src Ref
	}

	// Concat concatenates two strings.
	Concat struct {
		Dst, L, R Ref
	}

	// StrLen stores the byte length of Src into Dst.
	StrLen struct {
		Dst, Src Ref
	}

	// Match sets Dst to 1 if Src matches the pattern Pat, 0 if it does
	// not and -1 if the pattern does not compile.
	Match struct {
		Dst, Src, Pat Ref
	}

	// Split splits Src on the pattern Pat into Map (MapIntStr or
	// MapStrStr), storing the field count (or -1) into Dst.
	Split struct {
		Dst, Src, Map, Pat Ref
	}

	// Lookup reads Map[Key] into Dst; missing keys yield the zero value.
	Lookup struct {
		Dst, Map, Key Ref
	}

	// Store writes Val into Map[Key].
	Store struct {
		Map, Key, Val Ref
	}

	// Contains sets Dst to 1 if Key is present in Map.
	Contains struct {
		Dst, Map, Key Ref
	}

	// Delete removes Key from Map.
	Delete struct {
		Map, Key Ref
	}

	// Len stores the number of entries of Map into Dst.
	Len struct {
		Dst, Map Ref
	}

	// IterBegin snapshots the keys of Map into the iterator register Dst.
	IterBegin struct {
		Dst, Map Ref
	}

	// IterHasNext sets Dst to 1 while Iter has keys left.
	IterHasNext struct {
		Dst, Iter Ref
	}

	// IterGetNext advances Iter and stores the current key into Dst.
	IterGetNext struct {
		Dst, Iter Ref
	}

	// NextLine reads the next record of the main input and splits it into
	// fields. Dst receives 1, 0 at end of input, or -1 on error.
	NextLine struct {
		Dst Ref
	}

	// GetColumn reads field Index ($0 is the whole record).
	GetColumn struct {
		Dst, Index Ref
	}

	// SetColumn assigns field Index.
	SetColumn struct {
		Index, Src Ref
	}

	// ReadFileLine reads the next line of the file named by Path into
	// Dst. Status receives 1, 0 at end of file, or -1 on error.
	ReadFileLine struct {
		Dst, Status, Path Ref
	}

	// LoadVar reads a built-in variable.
	LoadVar struct {
		Dst Ref
		Var Variable
	}

	// StoreVar assigns a built-in variable.
	StoreVar struct {
		Var Variable
		Src Ref
	}

	// Print writes Args separated by OFS and terminated by ORS. Status,
	// when set, receives 0 on success and -1 on an output error.
	Print struct {
		Output *Output
		Args   []Ref
		Status Ref
	}

	// Printf writes Args formatted by Fmt. Status is as for Print.
	Printf struct {
		Output *Output
		Fmt    Ref
		Args   []Ref
		Status Ref
	}

	// Sprintf formats Args by Fmt into Dst.
	Sprintf struct {
		Dst, Fmt Ref
		Args     []Ref
	}

	// Label marks a jump target.
	Label struct {
		ID LabelID
	}

	// Jmp jumps unconditionally.
	Jmp struct {
		To LabelID
	}

	// JmpIf jumps when the Int register Cond is non-zero.
	JmpIf struct {
		Cond Ref
		To   LabelID
	}

	// Call calls the function at index Func of the program. Dst receives
	// the return value; a Null Dst discards it.
	Call struct {
		Dst  Ref
		Func int
		Args []Ref
	}

	// Ret returns Src from the current function. A Null Src returns
	// nothing.
	Ret struct {
		Src Ref
	}
)

func refs(rs ...Ref) []Ref {
	out := make([]Ref, 0, len(rs))
	for _, r := range rs {
		if r.Ty != Null {
			out = append(out, r)
		}
	}
	return out
}

func (i *StoreConstInt) Defs() []Ref   { return refs(i.Dst) }
func (i *StoreConstFloat) Defs() []Ref { return refs(i.Dst) }
func (i *StoreConstStr) Defs() []Ref   { return refs(i.Dst) }
func (i *Mov) Defs() []Ref             { return refs(i.Dst) }
func (i *Compare) Defs() []Ref         { return refs(i.Dst) }
func (i *Arithmetic) Defs() []Ref      { return refs(i.Dst) }
func (i *BitOp) Defs() []Ref           { return refs(i.Dst) }
func (i *Math) Defs() []Ref            { return refs(i.Dst) }
func (i *Div) Defs() []Ref             { return refs(i.Dst) }
func (i *Pow) Defs() []Ref             { return refs(i.Dst) }
func (i *Convert) Defs() []Ref         { return refs(i.Dst) }
func (i *Concat) Defs() []Ref          { return refs(i.Dst) }
func (i *StrLen) Defs() []Ref          { return refs(i.Dst) }
func (i *Match) Defs() []Ref           { return refs(i.Dst) }
func (i *Split) Defs() []Ref           { return refs(i.Dst) }
func (i *Lookup) Defs() []Ref          { return refs(i.Dst) }
func (i *Store) Defs() []Ref           { return nil }
func (i *Contains) Defs() []Ref        { return refs(i.Dst) }
func (i *Delete) Defs() []Ref          { return nil }
func (i *Len) Defs() []Ref             { return refs(i.Dst) }
func (i *IterBegin) Defs() []Ref       { return refs(i.Dst) }
func (i *IterHasNext) Defs() []Ref     { return refs(i.Dst) }
func (i *IterGetNext) Defs() []Ref     { return refs(i.Dst) }
func (i *NextLine) Defs() []Ref        { return refs(i.Dst) }
func (i *GetColumn) Defs() []Ref       { return refs(i.Dst) }
func (i *SetColumn) Defs() []Ref       { return nil }
func (i *ReadFileLine) Defs() []Ref    { return refs(i.Dst, i.Status) }
func (i *LoadVar) Defs() []Ref         { return refs(i.Dst) }
func (i *StoreVar) Defs() []Ref        { return nil }
func (i *Print) Defs() []Ref           { return refs(i.Status) }
func (i *Printf) Defs() []Ref          { return refs(i.Status) }
func (i *Sprintf) Defs() []Ref         { return refs(i.Dst) }
func (i *Label) Defs() []Ref           { return nil }
func (i *Jmp) Defs() []Ref             { return nil }
func (i *JmpIf) Defs() []Ref           { return nil }
func (i *Call) Defs() []Ref            { return refs(i.Dst) }
func (i *Ret) Defs() []Ref             { return nil }

func (i *StoreConstInt) Uses() []Ref   { return nil }
func (i *StoreConstFloat) Uses() []Ref { return nil }
func (i *StoreConstStr) Uses() []Ref   { return nil }
func (i *Mov) Uses() []Ref             { return refs(i.Src) }
func (i *Compare) Uses() []Ref         { return refs(i.L, i.R) }
func (i *Arithmetic) Uses() []Ref      { return refs(i.Args...) }
func (i *BitOp) Uses() []Ref           { return refs(i.Args...) }
func (i *Math) Uses() []Ref            { return refs(i.Args...) }
func (i *Div) Uses() []Ref             { return refs(i.L, i.R) }
func (i *Pow) Uses() []Ref             { return refs(i.L, i.R) }
func (i *Convert) Uses() []Ref         { return refs(i.Src) }
func (i *Concat) Uses() []Ref          { return refs(i.L, i.R) }
func (i *StrLen) Uses() []Ref          { return refs(i.Src) }
func (i *Match) Uses() []Ref           { return refs(i.Src, i.Pat) }
func (i *Split) Uses() []Ref           { return refs(i.Src, i.Map, i.Pat) }
func (i *Lookup) Uses() []Ref          { return refs(i.Map, i.Key) }
func (i *Store) Uses() []Ref           { return refs(i.Map, i.Key, i.Val) }
func (i *Contains) Uses() []Ref        { return refs(i.Map, i.Key) }
func (i *Delete) Uses() []Ref          { return refs(i.Map, i.Key) }
func (i *Len) Uses() []Ref             { return refs(i.Map) }
func (i *IterBegin) Uses() []Ref       { return refs(i.Map) }
func (i *IterHasNext) Uses() []Ref     { return refs(i.Iter) }
func (i *IterGetNext) Uses() []Ref     { return refs(i.Iter) }
func (i *NextLine) Uses() []Ref        { return nil }
func (i *GetColumn) Uses() []Ref       { return refs(i.Index) }
func (i *SetColumn) Uses() []Ref       { return refs(i.Index, i.Src) }
func (i *ReadFileLine) Uses() []Ref    { return refs(i.Path) }
func (i *LoadVar) Uses() []Ref         { return nil }
func (i *StoreVar) Uses() []Ref        { return refs(i.Src) }
func (i *Print) Uses() []Ref           { return append(outputRefs(i.Output), refs(i.Args...)...) }
func (i *Printf) Uses() []Ref {
	return append(append(outputRefs(i.Output), refs(i.Fmt)...), refs(i.Args...)...)
}
func (i *Sprintf) Uses() []Ref { return append(refs(i.Fmt), refs(i.Args...)...) }
func (i *Label) Uses() []Ref   { return nil }
func (i *Jmp) Uses() []Ref     { return nil }
func (i *JmpIf) Uses() []Ref   { return refs(i.Cond) }
func (i *Call) Uses() []Ref    { return refs(i.Args...) }
func (i *Ret) Uses() []Ref     { return refs(i.Src) }

func outputRefs(o *Output) []Ref {
	if o == nil {
		return nil
	}
	return refs(o.Path)
}

func (*StoreConstInt) instr()   {}
func (*StoreConstFloat) instr() {}
func (*StoreConstStr) instr()   {}
func (*Mov) instr()             {}
func (*Compare) instr()         {}
func (*Arithmetic) instr()      {}
func (*BitOp) instr()           {}
func (*Math) instr()            {}
func (*Div) instr()             {}
func (*Pow) instr()             {}
func (*Convert) instr()         {}
func (*Concat) instr()          {}
func (*StrLen) instr()          {}
func (*Match) instr()           {}
func (*Split) instr()           {}
func (*Lookup) instr()          {}
func (*Store) instr()           {}
func (*Contains) instr()        {}
func (*Delete) instr()          {}
func (*Len) instr()             {}
func (*IterBegin) instr()       {}
func (*IterHasNext) instr()     {}
func (*IterGetNext) instr()     {}
func (*NextLine) instr()        {}
func (*GetColumn) instr()       {}
func (*SetColumn) instr()       {}
func (*ReadFileLine) instr()    {}
func (*LoadVar) instr()         {}
func (*StoreVar) instr()        {}
func (*Print) instr()           {}
func (*Printf) instr()          {}
func (*Sprintf) instr()         {}
func (*Label) instr()           {}
func (*Jmp) instr()             {}
func (*JmpIf) instr()           {}
func (*Call) instr()            {}
func (*Ret) instr()             {}

func (i *StoreConstInt) String() string { return fmt.Sprintf("%s = %d", i.Dst, i.Val) }
func (i *StoreConstFloat) String() string {
	return fmt.Sprintf("%s = %s", i.Dst, strconv.FormatFloat(i.Val, 'g', -1, 64))
}
func (i *StoreConstStr) String() string { return fmt.Sprintf("%s = %q", i.Dst, i.Val) }
func (i *Mov) String() string           { return fmt.Sprintf("%s = mov %s", i.Dst, i.Src) }
func (i *Compare) String() string       { return fmt.Sprintf("%s = %s %s, %s", i.Dst, i.Op, i.L, i.R) }
func (i *Arithmetic) String() string    { return op(i.Dst, i.Op.String(), i.Args) }
func (i *BitOp) String() string         { return op(i.Dst, i.Op.String(), i.Args) }
func (i *Math) String() string          { return op(i.Dst, i.Fn.String(), i.Args) }
func (i *Div) String() string           { return op(i.Dst, "div", []Ref{i.L, i.R}) }
func (i *Pow) String() string           { return op(i.Dst, "pow", []Ref{i.L, i.R}) }
func (i *Convert) String() string       { return op(i.Dst, "convert", []Ref{i.Src}) }
func (i *Concat) String() string        { return op(i.Dst, "concat", []Ref{i.L, i.R}) }
func (i *StrLen) String() string        { return op(i.Dst, "strlen", []Ref{i.Src}) }
func (i *Match) String() string         { return op(i.Dst, "match", []Ref{i.Src, i.Pat}) }
func (i *Split) String() string         { return op(i.Dst, "split", []Ref{i.Src, i.Map, i.Pat}) }
func (i *Lookup) String() string        { return fmt.Sprintf("%s = %s[%s]", i.Dst, i.Map, i.Key) }
func (i *Store) String() string         { return fmt.Sprintf("%s[%s] = %s", i.Map, i.Key, i.Val) }
func (i *Contains) String() string      { return fmt.Sprintf("%s = %s in %s", i.Dst, i.Key, i.Map) }
func (i *Delete) String() string        { return fmt.Sprintf("delete %s[%s]", i.Map, i.Key) }
func (i *Len) String() string           { return op(i.Dst, "len", []Ref{i.Map}) }
func (i *IterBegin) String() string     { return op(i.Dst, "iter_begin", []Ref{i.Map}) }
func (i *IterHasNext) String() string   { return op(i.Dst, "iter_hasnext", []Ref{i.Iter}) }
func (i *IterGetNext) String() string   { return op(i.Dst, "iter_getnext", []Ref{i.Iter}) }
func (i *NextLine) String() string      { return fmt.Sprintf("%s = nextline", i.Dst) }
func (i *GetColumn) String() string     { return fmt.Sprintf("%s = $%s", i.Dst, i.Index) }
func (i *SetColumn) String() string     { return fmt.Sprintf("$%s = %s", i.Index, i.Src) }
func (i *ReadFileLine) String() string {
	return fmt.Sprintf("%s, %s = getline < %s", i.Status, i.Dst, i.Path)
}
func (i *LoadVar) String() string  { return fmt.Sprintf("%s = %s", i.Dst, i.Var) }
func (i *StoreVar) String() string { return fmt.Sprintf("%s = %s", i.Var, i.Src) }
func (i *Print) String() string {
	return statusPrefix(i.Status) + "print " + joinRefs(i.Args) + outputString(i.Output)
}
func (i *Printf) String() string {
	return statusPrefix(i.Status) + "printf " + joinRefs(append([]Ref{i.Fmt}, i.Args...)) + outputString(i.Output)
}
func (i *Sprintf) String() string {
	return op(i.Dst, "sprintf", append([]Ref{i.Fmt}, i.Args...))
}
func (i *Label) String() string { return i.ID.String() + ":" }
func (i *Jmp) String() string   { return "jmp " + i.To.String() }
func (i *JmpIf) String() string { return fmt.Sprintf("jmpif %s, %s", i.Cond, i.To) }
func (i *Call) String() string {
	return fmt.Sprintf("%s = call f%d(%s)", i.Dst, i.Func, joinRefs(i.Args))
}
func (i *Ret) String() string {
	if i.Src.Ty == Null {
		return "ret"
	}
	return "ret " + i.Src.String()
}

func statusPrefix(r Ref) string {
	if r.Ty == Null {
		return ""
	}
	return r.String() + " = "
}

func op(dst Ref, name string, args []Ref) string {
	return fmt.Sprintf("%s = %s %s", dst, name, joinRefs(args))
}

func joinRefs(rs []Ref) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

func outputString(o *Output) string {
	if o == nil {
		return ""
	}
	return fmt.Sprintf(" %s %s", o.Spec, o.Path)
}
