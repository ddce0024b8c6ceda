package ir

import "fmt"

// Error is a well-formedness error found by Validate.
type Error struct {
	Func    string // function name, empty for program-level errors
	Index   int    // instruction index, -1 if not tied to an instruction
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Func == "":
		return e.Message
	case e.Index < 0:
		return fmt.Sprintf("%s: %s", e.Func, e.Message)
	default:
		return fmt.Sprintf("%s[%d]: %s", e.Func, e.Index, e.Message)
	}
}

// ErrorList is a collection of validation errors.
type ErrorList []*Error

// Add appends an error to the list.
func (el *ErrorList) Add(fn string, index int, format string, args ...any) {
	*el = append(*el, &Error{Func: fn, Index: index, Message: fmt.Sprintf(format, args...)})
}

// Error returns a combined error message for all errors.
func (el ErrorList) Error() string {
	switch len(el) {
	case 0:
		return "no errors"
	case 1:
		return el[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more errors)", el[0].Error(), len(el)-1)
	}
}

// Err returns an error if the list is non-empty, nil otherwise.
func (el ErrorList) Err() error {
	if len(el) == 0 {
		return nil
	}
	return el
}

// Validate checks that p is well typed and well formed: operand types match
// each instruction's contract, jump targets exist, calls agree with the
// callee's signature and every function ends in a terminator.
func Validate(p *Program) error {
	var errs ErrorList
	if len(p.Funcs) == 0 {
		errs.Add("", -1, "program has no functions")
		return errs.Err()
	}
	if p.Main < 0 || p.Main >= len(p.Funcs) {
		errs.Add("", -1, "main index %d out of range", p.Main)
		return errs.Err()
	}
	if len(p.Funcs[p.Main].Params) != 0 {
		errs.Add(p.Funcs[p.Main].Name, -1, "main function takes no parameters")
	}
	for _, g := range p.Globals {
		if !g.Ty.Valid() || g.Ty.IsIter() || g.Ty == Null {
			errs.Add("", -1, "global %s has invalid type", g)
		}
	}
	for _, f := range p.Funcs {
		v := validator{p: p, f: f, errs: &errs}
		v.check()
	}
	return errs.Err()
}

type validator struct {
	p     *Program
	f     *Func
	errs  *ErrorList
	at    int
	iters map[Ref]bool // iterators started so far, in instruction order
}

func (v *validator) errorf(format string, args ...any) {
	v.errs.Add(v.f.Name, v.at, format, args...)
}

func (v *validator) want(r Ref, tys ...Ty) {
	for _, t := range tys {
		if r.Ty == t {
			return
		}
	}
	v.errorf("register %s has type %s, want one of %v", r, r.Ty, tys)
}

func (v *validator) same(rs ...Ref) {
	for _, r := range rs[1:] {
		if r.Ty != rs[0].Ty {
			v.errorf("operand %s does not match type of %s", r, rs[0])
		}
	}
}

func (v *validator) arity(args []Ref, n int) bool {
	if len(args) != n {
		v.errorf("got %d operands, want %d", len(args), n)
		return false
	}
	return true
}

func (v *validator) check() {
	v.at = -1
	for _, p := range v.f.Params {
		if !p.Ty.Valid() || p.Ty.IsIter() || p.Ty == Null {
			v.errorf("parameter %s has invalid type", p)
		}
	}
	if v.f.Ret.IsIter() || !v.f.Ret.Valid() {
		v.errorf("invalid return type %s", v.f.Ret)
	}

	labels := make(map[LabelID]bool)
	for i, in := range v.f.Instrs {
		if l, ok := in.(*Label); ok {
			if labels[l.ID] {
				v.at = i
				v.errorf("duplicate label %s", l.ID)
			}
			labels[l.ID] = true
		}
	}

	v.iters = make(map[Ref]bool)
	for i, in := range v.f.Instrs {
		v.at = i
		v.instr(in, labels)
	}

	v.at = -1
	if n := len(v.f.Instrs); n == 0 {
		v.errorf("empty function body")
	} else {
		switch v.f.Instrs[n-1].(type) {
		case *Ret, *Jmp:
		default:
			v.errorf("function does not end in ret or jmp")
		}
	}
}

//nolint:gocyclo // one case per instruction kind
func (v *validator) instr(in Instr, labels map[LabelID]bool) {
	switch i := in.(type) {
	case *StoreConstInt:
		v.want(i.Dst, Int)
	case *StoreConstFloat:
		v.want(i.Dst, Float)
	case *StoreConstStr:
		v.want(i.Dst, Str)
	case *Mov:
		v.same(i.Dst, i.Src)
		if i.Dst.Ty.IsIter() {
			v.errorf("cannot move iterator %s", i.Src)
		}
	case *Compare:
		v.want(i.Dst, Int)
		v.want(i.L, Int, Float, Str)
		v.same(i.L, i.R)
	case *Arithmetic:
		v.want(i.Dst, Int, Float)
		if v.arity(i.Args, i.Op.Arity()) {
			v.same(append([]Ref{i.Dst}, i.Args...)...)
		}
	case *BitOp:
		v.want(i.Dst, Int)
		if v.arity(i.Args, i.Op.Arity()) {
			v.same(append([]Ref{i.Dst}, i.Args...)...)
		}
	case *Math:
		v.want(i.Dst, Float)
		if v.arity(i.Args, i.Fn.Arity()) {
			v.same(append([]Ref{i.Dst}, i.Args...)...)
		}
	case *Div:
		v.want(i.Dst, Float)
		v.want(i.L, Int, Float)
		v.same(i.L, i.R)
	case *Pow:
		v.want(i.Dst, Float)
		v.want(i.L, Int, Float)
		v.same(i.L, i.R)
	case *Convert:
		v.want(i.Dst, Int, Float, Str)
		v.want(i.Src, Int, Float, Str)
	case *Concat:
		v.want(i.Dst, Str)
		v.same(i.Dst, i.L, i.R)
	case *StrLen:
		v.want(i.Dst, Int)
		v.want(i.Src, Str)
	case *Match:
		v.want(i.Dst, Int)
		v.want(i.Src, Str)
		v.want(i.Pat, Str)
	case *Split:
		v.want(i.Dst, Int)
		v.want(i.Src, Str)
		v.want(i.Pat, Str)
		v.want(i.Map, MapIntStr, MapStrStr)
	case *Lookup:
		if v.isMap(i.Map) {
			v.want(i.Key, i.Map.Ty.Key())
			v.want(i.Dst, i.Map.Ty.Val())
		}
	case *Store:
		if v.isMap(i.Map) {
			v.want(i.Key, i.Map.Ty.Key())
			v.want(i.Val, i.Map.Ty.Val())
		}
	case *Contains:
		v.want(i.Dst, Int)
		if v.isMap(i.Map) {
			v.want(i.Key, i.Map.Ty.Key())
		}
	case *Delete:
		if v.isMap(i.Map) {
			v.want(i.Key, i.Map.Ty.Key())
		}
	case *Len:
		v.want(i.Dst, Int)
		v.isMap(i.Map)
	case *IterBegin:
		if v.isMap(i.Map) {
			v.want(i.Dst, i.Map.Ty.IterOf())
		}
		v.iters[i.Dst] = true
	case *IterHasNext:
		v.want(i.Dst, Int)
		v.want(i.Iter, IterInt, IterStr)
		v.begun(i.Iter)
	case *IterGetNext:
		v.want(i.Iter, IterInt, IterStr)
		v.want(i.Dst, i.Iter.Ty.Key())
		v.begun(i.Iter)
	case *NextLine:
		v.want(i.Dst, Int)
	case *GetColumn:
		v.want(i.Dst, Str)
		v.want(i.Index, Int)
	case *SetColumn:
		v.want(i.Index, Int)
		v.want(i.Src, Str)
	case *ReadFileLine:
		v.want(i.Dst, Str)
		v.want(i.Status, Int)
		v.want(i.Path, Str)
	case *LoadVar:
		v.want(i.Dst, i.Var.Ty())
	case *StoreVar:
		v.want(i.Src, i.Var.Ty())
	case *Print:
		v.status(i.Status)
		v.output(i.Output)
		for _, a := range i.Args {
			v.want(a, Str)
		}
	case *Printf:
		v.status(i.Status)
		v.output(i.Output)
		v.want(i.Fmt, Str)
		for _, a := range i.Args {
			v.want(a, Int, Float, Str)
		}
	case *Sprintf:
		v.want(i.Dst, Str)
		v.want(i.Fmt, Str)
		for _, a := range i.Args {
			v.want(a, Int, Float, Str)
		}
	case *Label:
	case *Jmp:
		if !labels[i.To] {
			v.errorf("undefined label %s", i.To)
		}
	case *JmpIf:
		v.want(i.Cond, Int)
		if !labels[i.To] {
			v.errorf("undefined label %s", i.To)
		}
	case *Call:
		v.call(i)
	case *Ret:
		if i.Src.Ty != Null && i.Src.Ty != v.f.Ret {
			v.errorf("returning %s from function returning %s", i.Src, v.f.Ret)
		}
	default:
		v.errorf("unknown instruction %T", in)
	}
}

// begun requires an IterBegin of it to precede every use of an iterator.
func (v *validator) begun(it Ref) {
	if !v.iters[it] {
		v.errorf("iterator %s used before iter_begin", it)
	}
}

func (v *validator) isMap(r Ref) bool {
	if !r.Ty.IsMap() {
		v.errorf("register %s is not a map", r)
		return false
	}
	return true
}

// status checks an optional print status register.
func (v *validator) status(r Ref) {
	if r.Ty != Null {
		v.want(r, Int)
	}
}

func (v *validator) output(o *Output) {
	if o != nil {
		v.want(o.Path, Str)
	}
}

func (v *validator) call(c *Call) {
	if c.Func < 0 || c.Func >= len(v.p.Funcs) {
		v.errorf("call to undefined function f%d", c.Func)
		return
	}
	callee := v.p.Funcs[c.Func]
	if !v.arity(c.Args, len(callee.Params)) {
		return
	}
	for j, a := range c.Args {
		if a.Ty != callee.Params[j].Ty {
			v.errorf("argument %d of %s: got %s, want %s", j, callee.Name, a.Ty, callee.Params[j].Ty)
		}
	}
	if c.Dst.Ty != Null && c.Dst.Ty != callee.Ret {
		v.errorf("%s returns %s, not %s", callee.Name, callee.Ret, c.Dst.Ty)
	}
}
