package codegen

import (
	"fmt"

	"github.com/kolkov/awkjit/internal/jit"
	"github.com/kolkov/awkjit/internal/runtime"
	"github.com/kolkov/awkjit/ir"
)

// shared is the state of one program's generation that outlives any
// single function.
type shared struct {
	module *jit.Module

	// externalFuncs maps a runtime function's address to its import.
	externalFuncs map[uintptr]jit.FuncID

	// sig is reused for every declaration to avoid reallocating.
	sig jit.Signature

	literals []string
	litIndex map[string]int

	prog    *ir.Program
	funcIDs []jit.FuncID
	globals map[ir.Ref]uint64 // data address of each global
}

func newShared(module *jit.Module, prog *ir.Program) *shared {
	return &shared{
		module:        module,
		externalFuncs: make(map[uintptr]jit.FuncID),
		litIndex:      make(map[string]int),
		prog:          prog,
		globals:       make(map[ir.Ref]uint64),
	}
}

type varRef struct {
	v        jit.Variable
	isGlobal bool // v holds the address of the global's slot

	// skipDrop marks a local that only ever holds literals, which are
	// never reference counted.
	skipDrop bool
}

type iterState struct {
	handle jit.Variable // key snapshot
	pos    jit.Variable // next index
}

// frame is the per-function binding of IR registers to JIT variables.
type frame struct {
	fn     *ir.Func
	isMain bool

	vars     map[ir.Ref]varRef
	locals   []ir.Ref // non-global registers in declaration order
	iters    map[ir.Ref]iterState
	iterRefs []ir.Ref
	labels   map[ir.LabelID]jit.Block
	runtime  jit.Variable

	nParams int
	nVars   int
}

func (f *frame) newVar(b *jit.FunctionBuilder, ty jit.Type) jit.Variable {
	v := jit.NewVariable(f.nVars)
	f.nVars++
	b.DeclareVar(v, ty)
	return v
}

// view is the native Backend and CodeGenerator for one function. A view
// with no frame can only declare external functions.
type view struct {
	f      *frame
	b      *jit.FunctionBuilder
	shared *shared
}

var (
	_ Backend[jit.Type]        = (*view)(nil)
	_ CodeGenerator[jit.Value] = (*view)(nil)
	_ Backend[struct{}]        = (*registrationState)(nil)
)

func (v *view) ptrTy() jit.Type { return v.shared.module.TargetConfig().PointerType() }

func (v *view) VoidPtrTy() jit.Type     { return v.ptrTy() }
func (v *view) PtrTo(jit.Type) jit.Type { return v.ptrTy() }
func (v *view) UsizeTy() jit.Type       { return v.ptrTy() }
func (v *view) U32Ty() jit.Type         { return jit.I32 }

func (v *view) GetTy(ty ir.Ty) jit.Type {
	switch {
	case ty == ir.Null, ty == ir.Int:
		return jit.I64
	case ty == ir.Float:
		return jit.F64
	case ty == ir.Str:
		return jit.I128
	case ty.IsMap():
		return v.ptrTy()
	case ty.IsIter():
		panic("taking the type of an iterator")
	}
	panic(fmt.Sprintf("codegen: unknown type %s", ty))
}

func (v *view) RegisterExternalFn(name string, addr uintptr, sig Sig[jit.Type]) error {
	if _, ok := v.shared.externalFuncs[addr]; ok {
		return nil
	}
	s := &v.shared.sig
	s.Clear()
	for _, t := range sig.Args {
		s.Params = append(s.Params, jit.NewAbiParam(t))
	}
	for _, t := range sig.Ret {
		s.Returns = append(s.Returns, jit.NewAbiParam(t))
	}
	id, err := v.shared.module.DeclareFunction(name, jit.Import, s)
	if err != nil {
		return &DeclarationError{Name: name, Err: err}
	}
	v.shared.externalFuncs[addr] = id
	return nil
}

func (v *view) callInst(addr uintptr, args []jit.Value) []jit.Value {
	id, ok := v.shared.externalFuncs[addr]
	if !ok {
		panic(fmt.Sprintf("codegen: no external function registered at %#x", addr))
	}
	ref := v.shared.module.DeclareFuncInFunc(id, v.b.Func())
	return v.b.InstResults(v.b.Ins().Call(ref, args))
}

func (v *view) callExternal(addr uintptr, args ...jit.Value) jit.Value {
	res := v.callInst(addr, args)
	if len(res) != 1 {
		panic(fmt.Sprintf("codegen: external call at %#x returned %d values, want 1", addr, len(res)))
	}
	return res[0]
}

func (v *view) callExternalVoid(addr uintptr, args ...jit.Value) {
	if res := v.callInst(addr, args); len(res) != 0 {
		panic(fmt.Sprintf("codegen: external call at %#x returned %d values, want none", addr, len(res)))
	}
}

func (v *view) CallVoid(addr uintptr, args []jit.Value) error {
	v.callExternalVoid(addr, args...)
	return nil
}

func (v *view) RuntimeVal() jit.Value { return v.b.UseVar(v.f.runtime) }

func (v *view) ConstInt(i int64) jit.Value     { return v.b.Ins().Iconst(jit.I64, i) }
func (v *view) ConstFloat(f float64) jit.Value { return v.b.Ins().F64const(f) }
func (v *view) ConstPtr(addr uintptr) jit.Value {
	return v.b.Ins().Iconst(v.ptrTy(), int64(addr))
}

func (v *view) ConstStr(s string) jit.Value {
	p, ok := runtime.InlineStr(s)
	if !ok {
		idx, seen := v.shared.litIndex[s]
		if !seen {
			idx = len(v.shared.literals)
			v.shared.literals = append(v.shared.literals, s)
			v.shared.litIndex[s] = idx
		}
		p = runtime.PackLiteral(idx, s)
	}
	return v.packStr(p)
}

func (v *view) packStr(p runtime.Str) jit.Value {
	ins := v.b.Ins()
	return ins.Iconcat(ins.Iconst(jit.I64, int64(p.Lo)), ins.Iconst(jit.I64, int64(p.Hi)))
}

// zero returns the zero value of ty. A map zero value is a new empty map,
// owned by the caller.
func (v *view) zero(ty ir.Ty) jit.Value {
	switch {
	case ty == ir.Float:
		return v.ConstFloat(0)
	case ty == ir.Str:
		return v.packStr(runtime.Str{})
	case ty.IsMap():
		return v.callExternal(mapOps[ty].alloc.addr, v.RuntimeVal())
	}
	return v.ConstInt(0)
}

func (v *view) BindVal(r ir.Ref, val jit.Value) error {
	if r.Ty == ir.Null {
		return nil
	}
	if r.Ty.IsIter() {
		return bindErr(r, "attempting to store an iterator value")
	}
	vr, ok := v.f.vars[r]
	if !ok {
		return bindErr(r, "unbound reference in current frame")
	}
	ins := v.b.Ins()
	switch {
	case !r.Ty.IsHeap():
		if vr.isGlobal {
			ins.Store(val, v.b.UseVar(vr.v), 0)
		} else {
			v.b.DefVar(vr.v, val)
		}
	case vr.skipDrop:
		v.b.DefVar(vr.v, val)
	default:
		// Acquire first: val may be the value being replaced.
		v.RefVal(r.Ty, val)
		if vr.isGlobal {
			ptr := v.b.UseVar(vr.v)
			v.DropVal(r.Ty, ins.Load(v.GetTy(r.Ty), ptr, 0))
			ins.Store(val, ptr, 0)
		} else {
			v.DropVal(r.Ty, v.b.UseVar(vr.v))
			v.b.DefVar(vr.v, val)
		}
	}
	return nil
}

func (v *view) GetVal(r ir.Ref) (jit.Value, error) {
	if r.Ty == ir.Null {
		return v.ConstInt(0), nil
	}
	if r.Ty.IsIter() {
		return 0, bindErr(r, "attempting to load an iterator")
	}
	vr, ok := v.f.vars[r]
	if !ok {
		return 0, bindErr(r, "loading an unbound variable")
	}
	if vr.isGlobal {
		return v.b.Ins().Load(v.GetTy(r.Ty), v.b.UseVar(vr.v), 0), nil
	}
	return v.b.UseVar(vr.v), nil
}

func (v *view) RefVal(ty ir.Ty, val jit.Value) {
	switch {
	case ty == ir.Str:
		v.callExternalVoid(refStr.addr, v.RuntimeVal(), val)
	case ty.IsMap():
		v.callExternalVoid(refHandle.addr, v.RuntimeVal(), val)
	}
}

func (v *view) DropVal(ty ir.Ty, val jit.Value) {
	switch {
	case ty == ir.Str:
		v.callExternalVoid(dropStr.addr, v.RuntimeVal(), val)
	case ty.IsMap():
		v.callExternalVoid(dropHandle.addr, v.RuntimeVal(), val)
	}
}

func (v *view) Mov(ty ir.Ty, dst, src ir.NumTy) error {
	val, err := v.GetVal(ir.R(src, ty))
	if err != nil {
		return err
	}
	return v.BindVal(ir.R(dst, ty), val)
}

// VarLoaded releases the extra reference the variable load handed over,
// leaving dst as the only new owner.
func (v *view) VarLoaded(dst ir.Ref) error {
	if !dst.Ty.IsHeap() {
		return nil
	}
	val, err := v.GetVal(dst)
	if err != nil {
		return err
	}
	v.DropVal(dst.Ty, val)
	return nil
}

func intCC(c ir.Cmp) jit.IntCC {
	switch c {
	case ir.LT:
		return jit.SignedLessThan
	case ir.LTE:
		return jit.SignedLessThanOrEqual
	case ir.GT:
		return jit.SignedGreaterThan
	case ir.GTE:
		return jit.SignedGreaterThanOrEqual
	}
	return jit.IntEqual
}

func floatCC(c ir.Cmp) jit.FloatCC {
	switch c {
	case ir.LT:
		return jit.FloatLessThan
	case ir.LTE:
		return jit.FloatLessThanOrEqual
	case ir.GT:
		return jit.FloatGreaterThan
	case ir.GTE:
		return jit.FloatGreaterThanOrEqual
	}
	return jit.FloatEqual
}

//nolint:gocyclo // one case per operator
func (v *view) CallIntrinsic(op Op, args []jit.Value) (jit.Value, error) {
	if err := checkArity(op, len(args)); err != nil {
		return 0, err
	}
	ins := v.b.Ins()
	switch o := op.(type) {
	case OpCmp:
		if o.IsFloat {
			return ins.Bint(jit.I64, ins.Fcmp(floatCC(o.Cmp), args[0], args[1])), nil
		}
		return ins.Bint(jit.I64, ins.Icmp(intCC(o.Cmp), args[0], args[1])), nil

	case OpArith:
		if o.IsFloat {
			switch o.Arith {
			case ir.Add:
				return ins.Fadd(args[0], args[1]), nil
			case ir.Minus:
				return ins.Fsub(args[0], args[1]), nil
			case ir.Mul:
				return ins.Fmul(args[0], args[1]), nil
			case ir.Neg:
				return ins.Fneg(args[0]), nil
			case ir.Mod:
				return v.callExternal(fprem.addr, args...), nil
			}
			break
		}
		switch o.Arith {
		case ir.Add:
			return ins.Iadd(args[0], args[1]), nil
		case ir.Minus:
			return ins.Isub(args[0], args[1]), nil
		case ir.Mul:
			return ins.Imul(args[0], args[1]), nil
		case ir.Neg:
			return ins.Ineg(args[0]), nil
		case ir.Mod:
			return ins.Srem(args[0], args[1]), nil
		}

	case OpBitwise:
		switch o.Bitwise {
		case ir.And:
			return ins.Band(args[0], args[1]), nil
		case ir.Or:
			return ins.Bor(args[0], args[1]), nil
		case ir.Xor:
			return ins.Bxor(args[0], args[1]), nil
		case ir.LeftShift:
			return ins.Ishl(args[0], args[1]), nil
		case ir.LogicalRightShift:
			return ins.Ushr(args[0], args[1]), nil
		case ir.ArithmeticRightShift:
			return ins.Sshr(args[0], args[1]), nil
		case ir.Complement:
			return ins.Bnot(args[0]), nil
		}

	case OpMath:
		if o.Fn == ir.Sqrt {
			return ins.Sqrt(args[0]), nil
		}
		if in, ok := mathFuncs[o.Fn]; ok {
			return v.callExternal(in.addr, args...), nil
		}

	case OpDiv:
		return ins.Fdiv(args[0], args[1]), nil
	case OpPow:
		return v.callExternal(powFn.addr, args...), nil
	case OpFloatToInt:
		return ins.FcvtToSintSat(jit.I64, args[0]), nil
	case OpIntToFloat:
		return ins.FcvtFromSint(jit.F64, args[0]), nil
	case OpIntrinsic:
		return v.callExternal(o.Addr, args...), nil
	}
	return 0, fmt.Errorf("codegen: unsupported operation %s", op)
}

func (v *view) iter(r ir.Ref) (iterState, *iterIntrinsics, error) {
	st, ok := v.f.iters[r]
	if !ok {
		return iterState{}, nil, bindErr(r, "unbound iterator")
	}
	return st, iterOps[r.Ty], nil
}

func (v *view) IterBegin(dst, m ir.Ref) error {
	st, _, err := v.iter(dst)
	if err != nil {
		return err
	}
	mv, err := v.GetVal(m)
	if err != nil {
		return err
	}
	h := v.callExternal(mapOps[m.Ty].iterBegin.addr, v.RuntimeVal(), mv)
	v.callExternalVoid(dropHandle.addr, v.RuntimeVal(), v.b.UseVar(st.handle))
	v.b.DefVar(st.handle, h)
	v.b.DefVar(st.pos, v.ConstInt(0))
	return nil
}

func (v *view) IterHasNext(dst, it ir.Ref) error {
	st, ops, err := v.iter(it)
	if err != nil {
		return err
	}
	n := v.callExternal(ops.len.addr, v.RuntimeVal(), v.b.UseVar(st.handle))
	ins := v.b.Ins()
	more := ins.Bint(jit.I64, ins.Icmp(jit.SignedLessThan, v.b.UseVar(st.pos), n))
	return v.BindVal(dst, more)
}

func (v *view) IterGetNext(dst, it ir.Ref) error {
	st, ops, err := v.iter(it)
	if err != nil {
		return err
	}
	pos := v.b.UseVar(st.pos)
	k := v.callExternal(ops.get.addr, v.RuntimeVal(), v.b.UseVar(st.handle), pos)
	v.b.DefVar(st.pos, v.b.Ins().Iadd(pos, v.ConstInt(1)))
	return bindOwned[jit.Value](v, dst, k)
}

// output returns the mode and path words of an output sink.
func (v *view) output(out *ir.Output) (spec, path jit.Value, err error) {
	if out == nil {
		return v.b.Ins().Iconst(jit.I32, runtime.Stdout), v.ConstStr(""), nil
	}
	path, err = v.GetVal(out.Path)
	if err != nil {
		return 0, 0, err
	}
	return v.b.Ins().Iconst(jit.I32, int64(out.Spec)), path, nil
}

// formatArgs spills args into a stack block, three words per argument:
// the runtime.ArgKind, then the value.
func (v *view) formatArgs(args []ir.Ref) (jit.Value, error) {
	slot := v.b.CreateStackSlot(max(1, 3*len(args)))
	ins := v.b.Ins()
	base := ins.StackAddr(v.ptrTy(), slot, 0)
	for i, a := range args {
		val, err := v.GetVal(a)
		if err != nil {
			return 0, err
		}
		kind := runtime.ArgInt
		switch a.Ty {
		case ir.Float:
			kind = runtime.ArgFloat
		case ir.Str:
			kind = runtime.ArgStr
		}
		off := int32(24 * i)
		ins.Store(v.ConstInt(int64(kind)), base, off)
		ins.Store(val, base, off+8)
	}
	return base, nil
}

func (v *view) usize(n int) jit.Value { return v.b.Ins().Iconst(v.UsizeTy(), int64(n)) }

func (v *view) Printf(status ir.Ref, out *ir.Output, format ir.Ref, args []ir.Ref) error {
	spec, path, err := v.output(out)
	if err != nil {
		return err
	}
	f, err := v.GetVal(format)
	if err != nil {
		return err
	}
	addr, err := v.formatArgs(args)
	if err != nil {
		return err
	}
	st := v.callExternal(printf.addr, v.RuntimeVal(), spec, path, f, addr, v.usize(len(args)))
	return v.BindVal(status, st)
}

func (v *view) Sprintf(dst, format ir.Ref, args []ir.Ref) error {
	f, err := v.GetVal(format)
	if err != nil {
		return err
	}
	addr, err := v.formatArgs(args)
	if err != nil {
		return err
	}
	s := v.callExternal(sprintf.addr, v.RuntimeVal(), f, addr, v.usize(len(args)))
	return bindOwned[jit.Value](v, dst, s)
}

func (v *view) PrintAll(status ir.Ref, out *ir.Output, args []ir.Ref) error {
	spec, path, err := v.output(out)
	if err != nil {
		return err
	}
	slot := v.b.CreateStackSlot(max(1, 2*len(args)))
	ins := v.b.Ins()
	base := ins.StackAddr(v.ptrTy(), slot, 0)
	for i, a := range args {
		val, err := v.GetVal(a)
		if err != nil {
			return err
		}
		ins.Store(val, base, int32(16*i))
	}
	st := v.callExternal(printAll.addr, v.RuntimeVal(), spec, path, base, v.usize(len(args)))
	return v.BindVal(status, st)
}

func (v *view) Label(l ir.LabelID) {
	blk := v.f.labels[l]
	if !v.b.IsTerminated() {
		v.b.Ins().Jump(blk)
	}
	v.b.SwitchToBlock(blk)
}

// unreachable starts a block for any code following a terminator.
func (v *view) unreachable() { v.b.SwitchToBlock(v.b.CreateBlock()) }

func (v *view) Jmp(l ir.LabelID) {
	v.b.Ins().Jump(v.f.labels[l])
	v.unreachable()
}

func (v *view) JmpIf(cond ir.Ref, l ir.LabelID) error {
	c, err := v.GetVal(cond)
	if err != nil {
		return err
	}
	next := v.b.CreateBlock()
	v.b.Ins().Brif(c, v.f.labels[l], next)
	v.b.SwitchToBlock(next)
	return nil
}

func (v *view) Call(dst ir.Ref, fn int, args []ir.Ref) error {
	callee := v.shared.prog.Funcs[fn]
	vals := make([]jit.Value, 0, len(args)+1)
	vals = append(vals, v.RuntimeVal())
	for _, a := range args {
		val, err := v.GetVal(a)
		if err != nil {
			return err
		}
		vals = append(vals, val)
	}
	ref := v.shared.module.DeclareFuncInFunc(v.shared.funcIDs[fn], v.b.Func())
	res := v.b.InstResults(v.b.Ins().Call(ref, vals))
	if callee.Ret == ir.Null {
		return nil
	}
	if dst.Ty == ir.Null {
		v.DropVal(callee.Ret, res[0])
		return nil
	}
	return bindOwned[jit.Value](v, dst, res[0])
}

func (v *view) Ret(src ir.Ref) error {
	var rets []jit.Value
	if ret := v.f.fn.Ret; ret != ir.Null {
		var val jit.Value
		if src.Ty == ir.Null {
			val = v.zero(ret)
		} else {
			var err error
			if val, err = v.GetVal(src); err != nil {
				return err
			}
			v.RefVal(ret, val)
		}
		rets = append(rets, val)
	}
	v.release()
	v.b.Ins().Return(rets...)
	v.unreachable()
	return nil
}

// release drops every reference the function holds: heap locals,
// iterator snapshots and, in main, the globals.
func (v *view) release() {
	for _, r := range v.f.locals {
		if vr := v.f.vars[r]; r.Ty.IsHeap() && !vr.skipDrop {
			v.DropVal(r.Ty, v.b.UseVar(vr.v))
		}
	}
	for _, r := range v.f.iterRefs {
		v.callExternalVoid(dropHandle.addr, v.RuntimeVal(), v.b.UseVar(v.f.iters[r].handle))
	}
	if !v.f.isMain {
		return
	}
	for _, g := range v.shared.prog.Globals {
		if !g.Ty.IsHeap() {
			continue
		}
		ptr := v.b.UseVar(v.f.vars[g].v)
		ins := v.b.Ins()
		v.DropVal(g.Ty, ins.Load(v.GetTy(g.Ty), ptr, 0))
		if g.Ty == ir.Str {
			ins.Store(v.packStr(runtime.Str{}), ptr, 0)
		} else {
			ins.Store(v.b.Ins().Iconst(v.ptrTy(), 0), ptr, 0)
		}
	}
}

// seal closes the block left open after the last instruction. It is
// unreachable in a well-formed function.
func (v *view) seal() {
	if v.b.IsTerminated() {
		return
	}
	v.release()
	if ret := v.f.fn.Ret; ret != ir.Null {
		if ret.IsMap() {
			v.b.Ins().Return(v.b.Ins().Iconst(v.ptrTy(), 0))
			return
		}
		v.b.Ins().Return(v.zero(ret))
		return
	}
	v.b.Ins().Return()
}

// newView prepares function idx for lowering. The entry block binds the
// runtime argument, points a variable at every global, declares every
// local, acquires the parameters and allocates the local maps. Main also
// allocates the global maps.
func (sh *shared) newView(idx int, jf *jit.Function) (*view, error) {
	fn := sh.prog.Funcs[idx]
	b := jit.NewFunctionBuilder(jf)
	f := &frame{
		fn:      fn,
		isMain:  idx == sh.prog.Main,
		vars:    make(map[ir.Ref]varRef),
		iters:   make(map[ir.Ref]iterState),
		labels:  make(map[ir.LabelID]jit.Block),
		nParams: len(fn.Params),
	}
	v := &view{f: f, b: b, shared: sh}

	entry := b.CreateBlock()
	b.AppendBlockParamsForFunctionParams(entry)
	b.SwitchToBlock(entry)
	params := b.BlockParams(entry)

	f.runtime = f.newVar(b, v.VoidPtrTy())
	b.DefVar(f.runtime, params[0])

	for _, g := range sh.prog.Globals {
		ptr := f.newVar(b, v.ptrTy())
		b.DefVar(ptr, v.ConstPtr(uintptr(sh.globals[g])))
		f.vars[g] = varRef{v: ptr, isGlobal: true}
	}

	isParam := make(map[ir.Ref]bool, len(fn.Params))
	for _, p := range fn.Params {
		isParam[p] = true
	}
	literal := literalOnly(fn)
	for _, r := range fn.Locals(sh.prog.GlobalSet()) {
		if r.Ty.IsIter() {
			f.iters[r] = iterState{handle: f.newVar(b, v.UsizeTy()), pos: f.newVar(b, jit.I64)}
			f.iterRefs = append(f.iterRefs, r)
			continue
		}
		f.vars[r] = varRef{
			v:        f.newVar(b, v.GetTy(r.Ty)),
			skipDrop: r.Ty == ir.Str && !isParam[r] && literal[r],
		}
		f.locals = append(f.locals, r)
	}
	for _, in := range fn.Instrs {
		if l, ok := in.(*ir.Label); ok {
			f.labels[l.ID] = b.CreateBlock()
		}
	}

	for i, p := range fn.Params {
		if err := v.BindVal(p, params[i+1]); err != nil {
			return nil, err
		}
	}
	for _, r := range f.locals {
		if r.Ty.IsMap() && !isParam[r] {
			b.DefVar(f.vars[r].v, v.zero(r.Ty))
		}
	}
	if f.isMain {
		for _, g := range sh.prog.Globals {
			if g.Ty.IsMap() {
				b.Ins().Store(v.zero(g.Ty), b.UseVar(f.vars[g].v), 0)
			}
		}
	}
	return v, nil
}

// literalOnly reports, for every Str register fn defines, whether each of
// its definitions is a literal.
func literalOnly(fn *ir.Func) map[ir.Ref]bool {
	only := make(map[ir.Ref]bool)
	for _, in := range fn.Instrs {
		_, isConst := in.(*ir.StoreConstStr)
		for _, d := range in.Defs() {
			if d.Ty != ir.Str {
				continue
			}
			if prev, seen := only[d]; seen {
				only[d] = prev && isConst
			} else {
				only[d] = isConst
			}
		}
	}
	return only
}
