package codegen

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/docker/go-units"

	"github.com/kolkov/awkjit/internal/jit"
	"github.com/kolkov/awkjit/internal/runtime"
	"github.com/kolkov/awkjit/ir"
)

// Config configures Generate.
type Config struct {
	// Logger receives one debug record per lowered function. Nil
	// discards.
	Logger *slog.Logger
}

// Compiled is a finalized module ready to run.
type Compiled struct {
	Module *jit.Module
	Main   jit.FuncID

	// Literals is the literal table the runtime must be created with.
	Literals []string

	// Funcs maps IR function indices to module functions.
	Funcs []jit.FuncID

	mainRet ir.Ty
}

// Run executes main against rt with a call stack of stackWords words
// (the JIT default if zero). Faults in generated code are returned as a
// *jit.Trap.
func (c *Compiled) Run(rt *runtime.Runtime, stackWords int) error {
	in, err := c.Module.Instantiate(rt, stackWords)
	if err != nil {
		return err
	}
	// The runtime word is opaque; host functions reach the runtime
	// through the call context.
	rets, err := in.Call(c.Main, 0)
	if err != nil {
		return err
	}
	switch {
	case c.mainRet == ir.Str:
		rt.Heap.DropStr(runtime.Str{Lo: rets[0], Hi: rets[1]})
	case c.mainRet.IsMap():
		rt.Heap.Drop(rets[0])
	}
	return nil
}

// Generate validates p and lowers every function into a finalized JIT
// module.
func Generate(p *ir.Program, cfg Config) (*Compiled, error) {
	if err := ir.Validate(p); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	builder := jit.NewBuilder()
	if err := registerIntrinsics[struct{}](&registrationState{builder: builder}); err != nil {
		return nil, err
	}
	sh := newShared(jit.NewModule(builder), p)
	decl := &view{shared: sh}
	if err := registerIntrinsics[jit.Type](decl); err != nil {
		return nil, err
	}
	if err := sh.declareGlobals(decl); err != nil {
		return nil, err
	}
	if err := sh.declareFuncs(decl); err != nil {
		return nil, err
	}

	for i, fn := range p.Funcs {
		if err := sh.defineFunc(i); err != nil {
			return nil, err
		}
		log.Debug("lowered function",
			"name", fn.Name,
			"instrs", len(fn.Instrs),
			"params", len(fn.Params),
			"ret", fn.Ret.String())
	}
	if err := sh.module.Finalize(); err != nil {
		return nil, err
	}

	var data int
	for _, s := range sh.module.Symbols() {
		if s.Kind == jit.SymData {
			data++
		}
	}
	log.Debug("module finalized",
		"functions", len(p.Funcs),
		"globals", data,
		"literals", len(sh.literals),
		"target", sh.module.TargetConfig().String(),
		"global_memory", units.BytesSize(float64(sh.globalBytes())))

	return &Compiled{
		Module:   sh.module,
		Main:     sh.funcIDs[p.Main],
		Literals: sh.literals,
		Funcs:    sh.funcIDs,
		mainRet:  p.Funcs[p.Main].Ret,
	}, nil
}

func (sh *shared) declareGlobals(v *view) error {
	for _, g := range sh.prog.Globals {
		name := "global" + g.String()
		_, addr, err := sh.module.DeclareData(name, v.GetTy(g.Ty).Words())
		if err != nil {
			return &DeclarationError{Name: name, Err: err}
		}
		sh.globals[g] = addr
	}
	return nil
}

func (sh *shared) globalBytes() int {
	n := 0
	for _, g := range sh.prog.Globals {
		if g.Ty == ir.Str {
			n += 16
		} else {
			n += 8
		}
	}
	return n
}

// funcSig is the machine signature of fn: the runtime word, then the
// parameters.
func (sh *shared) funcSig(v *view, fn *ir.Func) jit.Signature {
	var sig jit.Signature
	sig.Params = append(sig.Params, jit.NewAbiParam(v.VoidPtrTy()))
	for _, p := range fn.Params {
		sig.Params = append(sig.Params, jit.NewAbiParam(v.GetTy(p.Ty)))
	}
	if fn.Ret != ir.Null {
		sig.Returns = append(sig.Returns, jit.NewAbiParam(v.GetTy(fn.Ret)))
	}
	return sig
}

func (sh *shared) declareFuncs(v *view) error {
	for i, fn := range sh.prog.Funcs {
		if _, dup := sh.module.Lookup(fn.Name); dup {
			return &DeclarationError{Name: fn.Name, Err: errors.New("name already declared")}
		}
		linkage := jit.Local
		if i == sh.prog.Main {
			linkage = jit.Export
		}
		sig := sh.funcSig(v, fn)
		id, err := sh.module.DeclareFunction(fn.Name, linkage, &sig)
		if err != nil {
			return &DeclarationError{Name: fn.Name, Err: err}
		}
		sh.funcIDs = append(sh.funcIDs, id)
	}
	return nil
}

// defineFunc lowers function idx. The body reaches the module only if
// every instruction lowered.
func (sh *shared) defineFunc(idx int) error {
	fn := sh.prog.Funcs[idx]
	jf := jit.NewFunction(fn.Name, sh.funcSig(&view{shared: sh}, fn))
	v, err := sh.newView(idx, jf)
	if err != nil {
		return locate(err, fn.Name, -1)
	}
	for i, in := range fn.Instrs {
		if err := lower[jit.Value](v, in); err != nil {
			return locate(err, fn.Name, i)
		}
	}
	v.seal()
	return sh.module.DefineFunction(sh.funcIDs[idx], jf)
}

func locate(err error, fn string, index int) error {
	var be *BindingError
	if errors.As(err, &be) {
		be.Func, be.Index = fn, index
		return be
	}
	return fmt.Errorf("codegen: %s[%d]: %w", fn, index, err)
}

func vals[V any](cg CodeGenerator[V], rs ...ir.Ref) ([]V, error) {
	out := make([]V, len(rs))
	for i, r := range rs {
		v, err := cg.GetVal(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// callRT calls a runtime function, passing the runtime first.
func callRT[V any](cg CodeGenerator[V], in *intrinsic, args ...V) (V, error) {
	return cg.CallIntrinsic(OpIntrinsic{Addr: in.addr}, append([]V{cg.RuntimeVal()}, args...))
}

func voidRT[V any](cg CodeGenerator[V], in *intrinsic, args ...V) error {
	return cg.CallVoid(in.addr, append([]V{cg.RuntimeVal()}, args...))
}

// bindOwned binds a value the caller already owns, so r ends up the only
// new reference.
func bindOwned[V any](cg CodeGenerator[V], r ir.Ref, v V) error {
	if err := cg.BindVal(r, v); err != nil {
		return err
	}
	cg.DropVal(r.Ty, v)
	return nil
}

// bindResult binds the result of a runtime function, which is owned when
// heap-backed.
func bindResult[V any](cg CodeGenerator[V], r ir.Ref, in *intrinsic, args ...V) error {
	v, err := callRT(cg, in, args...)
	if err != nil {
		return err
	}
	if r.Ty.IsHeap() {
		return bindOwned(cg, r, v)
	}
	return cg.BindVal(r, v)
}

// bindRefs reads refs and binds the result of a runtime function.
func bindRefs[V any](cg CodeGenerator[V], r ir.Ref, in *intrinsic, refs ...ir.Ref) error {
	args, err := vals(cg, refs...)
	if err != nil {
		return err
	}
	return bindResult(cg, r, in, args...)
}

func bindOp[V any](cg CodeGenerator[V], r ir.Ref, op Op, refs ...ir.Ref) error {
	args, err := vals(cg, refs...)
	if err != nil {
		return err
	}
	v, err := cg.CallIntrinsic(op, args)
	if err != nil {
		return err
	}
	return cg.BindVal(r, v)
}

// floats reads rs, converting Int registers to Float.
func floats[V any](cg CodeGenerator[V], rs ...ir.Ref) ([]V, error) {
	out, err := vals(cg, rs...)
	if err != nil {
		return nil, err
	}
	for i, r := range rs {
		if r.Ty != ir.Int {
			continue
		}
		if out[i], err = cg.CallIntrinsic(OpIntToFloat{}, out[i:i+1]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// lower emits the code for one instruction.
//
//nolint:gocyclo // one case per instruction
func lower[V any](cg CodeGenerator[V], in ir.Instr) error {
	switch i := in.(type) {
	case *ir.StoreConstInt:
		return cg.BindVal(i.Dst, cg.ConstInt(i.Val))
	case *ir.StoreConstFloat:
		return cg.BindVal(i.Dst, cg.ConstFloat(i.Val))
	case *ir.StoreConstStr:
		return cg.BindVal(i.Dst, cg.ConstStr(i.Val))
	case *ir.Mov:
		return cg.Mov(i.Dst.Ty, i.Dst.ID, i.Src.ID)

	case *ir.Compare:
		if i.L.Ty != ir.Str {
			return bindOp(cg, i.Dst, OpCmp{IsFloat: i.L.Ty == ir.Float, Cmp: i.Op}, i.L, i.R)
		}
		args, err := vals(cg, i.L, i.R)
		if err != nil {
			return err
		}
		c, err := callRT(cg, strCmp, args...)
		if err != nil {
			return err
		}
		res, err := cg.CallIntrinsic(OpCmp{Cmp: i.Op}, []V{c, cg.ConstInt(0)})
		if err != nil {
			return err
		}
		return cg.BindVal(i.Dst, res)

	case *ir.Arithmetic:
		return bindOp(cg, i.Dst, OpArith{IsFloat: i.Dst.Ty == ir.Float, Arith: i.Op}, i.Args...)
	case *ir.BitOp:
		return bindOp(cg, i.Dst, OpBitwise{Bitwise: i.Op}, i.Args...)
	case *ir.Math:
		return bindOp(cg, i.Dst, OpMath{Fn: i.Fn}, i.Args...)

	case *ir.Div, *ir.Pow:
		var (
			dst, l, r ir.Ref
			op        Op
		)
		if d, ok := i.(*ir.Div); ok {
			dst, l, r, op = d.Dst, d.L, d.R, OpDiv{}
		} else {
			p := i.(*ir.Pow)
			dst, l, r, op = p.Dst, p.L, p.R, OpPow{}
		}
		args, err := floats(cg, l, r)
		if err != nil {
			return err
		}
		res, err := cg.CallIntrinsic(op, args)
		if err != nil {
			return err
		}
		return cg.BindVal(dst, res)

	case *ir.Convert:
		return convert(cg, i)
	case *ir.Concat:
		return bindRefs(cg, i.Dst, concat, i.L, i.R)
	case *ir.StrLen:
		return bindRefs(cg, i.Dst, strLen, i.Src)
	case *ir.Match:
		return bindRefs(cg, i.Dst, match, i.Src, i.Pat)
	case *ir.Split:
		fn := splitInt
		if i.Map.Ty == ir.MapStrStr {
			fn = splitStr
		}
		return bindRefs(cg, i.Dst, fn, i.Src, i.Map, i.Pat)

	case *ir.Lookup:
		return bindRefs(cg, i.Dst, mapOps[i.Map.Ty].lookup, i.Map, i.Key)
	case *ir.Store:
		args, err := vals(cg, i.Map, i.Key, i.Val)
		if err != nil {
			return err
		}
		return voidRT(cg, mapOps[i.Map.Ty].insert, args...)
	case *ir.Contains:
		return bindRefs(cg, i.Dst, mapOps[i.Map.Ty].contains, i.Map, i.Key)
	case *ir.Delete:
		args, err := vals(cg, i.Map, i.Key)
		if err != nil {
			return err
		}
		return voidRT(cg, mapOps[i.Map.Ty].delete, args...)
	case *ir.Len:
		return bindRefs(cg, i.Dst, mapOps[i.Map.Ty].len, i.Map)

	case *ir.IterBegin:
		return cg.IterBegin(i.Dst, i.Map)
	case *ir.IterHasNext:
		return cg.IterHasNext(i.Dst, i.Iter)
	case *ir.IterGetNext:
		return cg.IterGetNext(i.Dst, i.Iter)

	case *ir.NextLine:
		return bindResult(cg, i.Dst, nextLine)
	case *ir.GetColumn:
		return bindRefs(cg, i.Dst, getCol, i.Index)
	case *ir.SetColumn:
		args, err := vals(cg, i.Index, i.Src)
		if err != nil {
			return err
		}
		return voidRT(cg, setCol, args...)
	case *ir.ReadFileLine:
		if err := bindRefs(cg, i.Dst, readFileLine, i.Path); err != nil {
			return err
		}
		return bindResult(cg, i.Status, getlineStatus)

	case *ir.LoadVar:
		id := cg.ConstInt(int64(i.Var))
		var fn *intrinsic
		switch {
		case i.Dst.Ty == ir.Str:
			fn = loadStrVar
		case i.Dst.Ty.IsMap():
			fn = loadMapVar
		default:
			fn = loadIntVar
		}
		v, err := callRT(cg, fn, id)
		if err != nil {
			return err
		}
		if err := cg.BindVal(i.Dst, v); err != nil {
			return err
		}
		return cg.VarLoaded(i.Dst)
	case *ir.StoreVar:
		src, err := cg.GetVal(i.Src)
		if err != nil {
			return err
		}
		fn := storeIntVar
		switch {
		case i.Src.Ty == ir.Str:
			fn = storeStrVar
		case i.Src.Ty.IsMap():
			fn = storeMapVar
		}
		return voidRT(cg, fn, cg.ConstInt(int64(i.Var)), src)

	case *ir.Print:
		return cg.PrintAll(i.Status, i.Output, i.Args)
	case *ir.Printf:
		return cg.Printf(i.Status, i.Output, i.Fmt, i.Args)
	case *ir.Sprintf:
		return cg.Sprintf(i.Dst, i.Fmt, i.Args)

	case *ir.Label:
		cg.Label(i.ID)
		return nil
	case *ir.Jmp:
		cg.Jmp(i.To)
		return nil
	case *ir.JmpIf:
		return cg.JmpIf(i.Cond, i.To)
	case *ir.Call:
		return cg.Call(i.Dst, i.Func, i.Args)
	case *ir.Ret:
		return cg.Ret(i.Src)
	}
	return fmt.Errorf("codegen: cannot lower %T", in)
}

func convert[V any](cg CodeGenerator[V], i *ir.Convert) error {
	src, err := cg.GetVal(i.Src)
	if err != nil {
		return err
	}
	var op Op
	switch from, to := i.Src.Ty, i.Dst.Ty; {
	case from == to:
		return cg.BindVal(i.Dst, src)
	case from == ir.Int && to == ir.Float:
		op = OpIntToFloat{}
	case from == ir.Float && to == ir.Int:
		op = OpFloatToInt{}
	case from == ir.Int && to == ir.Str:
		return bindResult(cg, i.Dst, intToStr, src)
	case from == ir.Float && to == ir.Str:
		return bindResult(cg, i.Dst, floatToStr, src)
	case from == ir.Str && to == ir.Int:
		return bindResult(cg, i.Dst, strToInt, src)
	case from == ir.Str && to == ir.Float:
		return bindResult(cg, i.Dst, strToFloat, src)
	default:
		return fmt.Errorf("codegen: cannot convert %s to %s", from, to)
	}
	res, err := cg.CallIntrinsic(op, []V{src})
	if err != nil {
		return err
	}
	return cg.BindVal(i.Dst, res)
}
