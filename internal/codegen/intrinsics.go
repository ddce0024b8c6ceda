package codegen

import (
	"fmt"
	"math"

	"github.com/kolkov/awkjit/internal/jit"
	"github.com/kolkov/awkjit/internal/runtime"
	"github.com/kolkov/awkjit/ir"
)

// param is the abstract type of an intrinsic parameter or result. The
// backend turns it into a machine type with machineTy.
type param uint8

const (
	pNone    param = iota // no result
	pRuntime              // the runtime context
	pAddr                 // address of an argument block
	pUsize                // element count
	pU32                  // small enumerations (output mode)
	pInt
	pFloat
	pStr
	pMap
	pIter
)

func machineTy[T any](b Backend[T], p param) T {
	switch p {
	case pRuntime:
		return b.VoidPtrTy()
	case pAddr:
		return b.PtrTo(b.UsizeTy())
	case pUsize, pIter:
		return b.UsizeTy()
	case pU32:
		return b.U32Ty()
	case pInt:
		return b.GetTy(ir.Int)
	case pFloat:
		return b.GetTy(ir.Float)
	case pStr:
		return b.GetTy(ir.Str)
	case pMap:
		return b.GetTy(ir.MapIntInt)
	}
	panic(fmt.Sprintf("codegen: no machine type for param %d", p))
}

func paramOf(ty ir.Ty) param {
	switch ty {
	case ir.Int:
		return pInt
	case ir.Float:
		return pFloat
	case ir.Str:
		return pStr
	}
	panic(fmt.Sprintf("codegen: no intrinsic param for %s", ty))
}

// intrinsic is a runtime function generated code may call.
type intrinsic struct {
	name string
	fn   jit.HostFunc
	args []param
	ret  param
	addr uintptr
}

func sigOf[T any](b Backend[T], in *intrinsic) Sig[T] {
	var sig Sig[T]
	for _, p := range in.args {
		sig.Args = append(sig.Args, machineTy(b, p))
	}
	if in.ret != pNone {
		sig.Ret = []T{machineTy(b, in.ret)}
	}
	return sig
}

func newIntrinsic(name string, fn jit.HostFunc, ret param, args ...param) *intrinsic {
	return &intrinsic{name: name, fn: fn, args: args, ret: ret}
}

var (
	refStr     = newIntrinsic("rt.ref_str", hostRefStr, pNone, pRuntime, pStr)
	dropStr    = newIntrinsic("rt.drop_str", hostDropStr, pNone, pRuntime, pStr)
	refHandle  = newIntrinsic("rt.ref", hostRef, pNone, pRuntime, pMap)
	dropHandle = newIntrinsic("rt.drop", hostDrop, pNone, pRuntime, pMap)

	fprem     = newIntrinsic("rt.fprem", hostFprem, pFloat, pFloat, pFloat)
	powFn     = newIntrinsic("rt.pow", hostPow, pFloat, pFloat, pFloat)
	mathFuncs = map[ir.FloatFunc]*intrinsic{
		ir.Sin:   newIntrinsic("rt.sin", hostSin, pFloat, pFloat),
		ir.Cos:   newIntrinsic("rt.cos", hostCos, pFloat, pFloat),
		ir.Atan:  newIntrinsic("rt.atan", hostAtan, pFloat, pFloat),
		ir.Atan2: newIntrinsic("rt.atan2", hostAtan2, pFloat, pFloat, pFloat),
		ir.Log:   newIntrinsic("rt.log", hostLog, pFloat, pFloat),
		ir.Log2:  newIntrinsic("rt.log2", hostLog2, pFloat, pFloat),
		ir.Log10: newIntrinsic("rt.log10", hostLog10, pFloat, pFloat),
		ir.Exp:   newIntrinsic("rt.exp", hostExp, pFloat, pFloat),
	}

	intToStr   = newIntrinsic("rt.int_to_str", hostIntToStr, pStr, pRuntime, pInt)
	floatToStr = newIntrinsic("rt.float_to_str", hostFloatToStr, pStr, pRuntime, pFloat)
	strToInt   = newIntrinsic("rt.str_to_int", hostStrToInt, pInt, pRuntime, pStr)
	strToFloat = newIntrinsic("rt.str_to_float", hostStrToFloat, pFloat, pRuntime, pStr)

	concat   = newIntrinsic("rt.concat", hostConcat, pStr, pRuntime, pStr, pStr)
	strLen   = newIntrinsic("rt.str_len", hostStrLen, pInt, pRuntime, pStr)
	strCmp   = newIntrinsic("rt.str_cmp", hostStrCmp, pInt, pRuntime, pStr, pStr)
	match    = newIntrinsic("rt.match", hostMatch, pInt, pRuntime, pStr, pStr)
	splitInt = newIntrinsic("rt.split_int", hostSplitInt, pInt, pRuntime, pStr, pMap, pStr)
	splitStr = newIntrinsic("rt.split_str", hostSplitStr, pInt, pRuntime, pStr, pMap, pStr)

	nextLine      = newIntrinsic("rt.next_line", hostNextLine, pInt, pRuntime)
	getCol        = newIntrinsic("rt.get_col", hostGetCol, pStr, pRuntime, pInt)
	setCol        = newIntrinsic("rt.set_col", hostSetCol, pNone, pRuntime, pInt, pStr)
	readFileLine  = newIntrinsic("rt.read_file_line", hostReadFileLine, pStr, pRuntime, pStr)
	getlineStatus = newIntrinsic("rt.getline_status", hostGetlineStatus, pInt, pRuntime)

	loadIntVar  = newIntrinsic("rt.load_int_var", hostLoadIntVar, pInt, pRuntime, pInt)
	storeIntVar = newIntrinsic("rt.store_int_var", hostStoreIntVar, pNone, pRuntime, pInt, pInt)
	loadStrVar  = newIntrinsic("rt.load_str_var", hostLoadStrVar, pStr, pRuntime, pInt)
	storeStrVar = newIntrinsic("rt.store_str_var", hostStoreStrVar, pNone, pRuntime, pInt, pStr)
	loadMapVar  = newIntrinsic("rt.load_map_var", hostLoadMapVar, pMap, pRuntime, pInt)
	storeMapVar = newIntrinsic("rt.store_map_var", hostStoreMapVar, pNone, pRuntime, pInt, pMap)

	printAll = newIntrinsic("rt.print_all", hostPrintAll, pInt, pRuntime, pU32, pStr, pAddr, pUsize)
	printf   = newIntrinsic("rt.printf", hostPrintf, pInt, pRuntime, pU32, pStr, pStr, pAddr, pUsize)
	sprintf  = newIntrinsic("rt.sprintf", hostSprintf, pStr, pRuntime, pStr, pAddr, pUsize)

	iterOps = map[ir.Ty]*iterIntrinsics{
		ir.IterInt: {
			len: newIntrinsic("rt.iter_int.len", hostIterLenInt, pInt, pRuntime, pIter),
			get: newIntrinsic("rt.iter_int.get", hostIterGetInt, pInt, pRuntime, pIter, pInt),
		},
		ir.IterStr: {
			len: newIntrinsic("rt.iter_str.len", hostIterLenStr, pInt, pRuntime, pIter),
			get: newIntrinsic("rt.iter_str.get", hostIterGetStr, pStr, pRuntime, pIter, pInt),
		},
	}

	mapOps = map[ir.Ty]*mapIntrinsics{
		ir.MapIntInt:   newMapIntrinsics(ir.MapIntInt, allocII, lookupII, insertII, containsII, deleteII, lenII, iterII),
		ir.MapIntFloat: newMapIntrinsics(ir.MapIntFloat, allocIF, lookupIF, insertIF, containsIF, deleteIF, lenIF, iterIF),
		ir.MapIntStr:   newMapIntrinsics(ir.MapIntStr, allocIS, lookupIS, insertIS, containsIS, deleteIS, lenIS, iterIS),
		ir.MapStrInt:   newMapIntrinsics(ir.MapStrInt, allocSI, lookupSI, insertSI, containsSI, deleteSI, lenSI, iterSI),
		ir.MapStrFloat: newMapIntrinsics(ir.MapStrFloat, allocSF, lookupSF, insertSF, containsSF, deleteSF, lenSF, iterSF),
		ir.MapStrStr:   newMapIntrinsics(ir.MapStrStr, allocSS, lookupSS, insertSS, containsSS, deleteSS, lenSS, iterSS),
	}
)

type iterIntrinsics struct {
	len, get *intrinsic
}

type mapIntrinsics struct {
	alloc, lookup, insert, contains, delete, len, iterBegin *intrinsic
}

var mapSymbols = map[ir.Ty]string{
	ir.MapIntInt:   "map_int_int",
	ir.MapIntFloat: "map_int_float",
	ir.MapIntStr:   "map_int_str",
	ir.MapStrInt:   "map_str_int",
	ir.MapStrFloat: "map_str_float",
	ir.MapStrStr:   "map_str_str",
}

func newMapIntrinsics(ty ir.Ty, alloc, lookup, insert, contains, del, length, iter jit.HostFunc) *mapIntrinsics {
	prefix := "rt." + mapSymbols[ty] + "."
	k, v := paramOf(ty.Key()), paramOf(ty.Val())
	return &mapIntrinsics{
		alloc:     newIntrinsic(prefix+"alloc", alloc, pMap, pRuntime),
		lookup:    newIntrinsic(prefix+"lookup", lookup, v, pRuntime, pMap, k),
		insert:    newIntrinsic(prefix+"insert", insert, pNone, pRuntime, pMap, k, v),
		contains:  newIntrinsic(prefix+"contains", contains, pInt, pRuntime, pMap, k),
		delete:    newIntrinsic(prefix+"delete", del, pNone, pRuntime, pMap, k),
		len:       newIntrinsic(prefix+"len", length, pInt, pRuntime, pMap),
		iterBegin: newIntrinsic(prefix+"iter_begin", iter, pIter, pRuntime, pMap),
	}
}

// allIntrinsics is the registration order. It is fixed so module symbol
// tables and listings are reproducible.
var (
	allIntrinsics []*intrinsic
	byAddr        map[uintptr]*intrinsic
)

func init() {
	allIntrinsics = []*intrinsic{
		refStr, dropStr, refHandle, dropHandle,
		fprem, powFn,
	}
	for _, fn := range []ir.FloatFunc{ir.Sin, ir.Cos, ir.Atan, ir.Atan2, ir.Log, ir.Log2, ir.Log10, ir.Exp} {
		allIntrinsics = append(allIntrinsics, mathFuncs[fn])
	}
	allIntrinsics = append(allIntrinsics,
		intToStr, floatToStr, strToInt, strToFloat,
		concat, strLen, strCmp, match, splitInt, splitStr,
		nextLine, getCol, setCol, readFileLine, getlineStatus,
		loadIntVar, storeIntVar, loadStrVar, storeStrVar, loadMapVar, storeMapVar,
		printAll, printf, sprintf,
		iterOps[ir.IterInt].len, iterOps[ir.IterInt].get,
		iterOps[ir.IterStr].len, iterOps[ir.IterStr].get,
	)
	for ty := ir.MapIntInt; ty <= ir.MapStrStr; ty++ {
		m := mapOps[ty]
		allIntrinsics = append(allIntrinsics, m.alloc, m.lookup, m.insert, m.contains, m.delete, m.len, m.iterBegin)
	}

	byAddr = make(map[uintptr]*intrinsic, len(allIntrinsics))
	for _, in := range allIntrinsics {
		in.addr = jit.AddrOf(in.fn)
		if prev, dup := byAddr[in.addr]; dup {
			panic(fmt.Sprintf("codegen: %s and %s share address %#x", prev.name, in.name, in.addr))
		}
		byAddr[in.addr] = in
	}
}

func intrinsicAt(addr uintptr) (*intrinsic, bool) {
	in, ok := byAddr[addr]
	return in, ok
}

// registerIntrinsics makes every runtime function callable through b.
func registerIntrinsics[T any](b Backend[T]) error {
	for _, in := range allIntrinsics {
		if err := b.RegisterExternalFn(in.name, in.addr, sigOf(b, in)); err != nil {
			return err
		}
	}
	return nil
}

// Host functions. Arguments arrive flattened in signature order: the
// runtime word first, a Str as two words (low first), every other value
// as one word. Heap values returned to generated code are owned.

func rtOf(ctx *jit.Context) *runtime.Runtime {
	rt, ok := ctx.Host.(*runtime.Runtime)
	if !ok {
		panic(&jit.Trap{Code: jit.TrapHost, Err: fmt.Errorf("codegen: host is %T, not a runtime", ctx.Host)})
	}
	return rt
}

func strAt(w []uint64, i int) runtime.Str { return runtime.Str{Lo: w[i], Hi: w[i+1]} }

func putStr(w []uint64, s runtime.Str) { w[0], w[1] = s.Lo, s.Hi }

func f64(w uint64) float64 { return math.Float64frombits(w) }

func putF64(w []uint64, f float64) { w[0] = math.Float64bits(f) }

func hostRefStr(ctx *jit.Context, args, _ []uint64)  { rtOf(ctx).Heap.RefStr(strAt(args, 1)) }
func hostDropStr(ctx *jit.Context, args, _ []uint64) { rtOf(ctx).Heap.DropStr(strAt(args, 1)) }
func hostRef(ctx *jit.Context, args, _ []uint64)     { rtOf(ctx).Heap.Ref(args[1]) }
func hostDrop(ctx *jit.Context, args, _ []uint64)    { rtOf(ctx).Heap.Drop(args[1]) }

func hostFprem(_ *jit.Context, args, rets []uint64) { putF64(rets, math.Mod(f64(args[0]), f64(args[1]))) }
func hostPow(_ *jit.Context, args, rets []uint64)   { putF64(rets, math.Pow(f64(args[0]), f64(args[1]))) }
func hostSin(_ *jit.Context, args, rets []uint64)   { putF64(rets, math.Sin(f64(args[0]))) }
func hostCos(_ *jit.Context, args, rets []uint64)   { putF64(rets, math.Cos(f64(args[0]))) }
func hostAtan(_ *jit.Context, args, rets []uint64)  { putF64(rets, math.Atan(f64(args[0]))) }
func hostAtan2(_ *jit.Context, args, rets []uint64) { putF64(rets, math.Atan2(f64(args[0]), f64(args[1]))) }
func hostLog(_ *jit.Context, args, rets []uint64)   { putF64(rets, math.Log(f64(args[0]))) }
func hostLog2(_ *jit.Context, args, rets []uint64)  { putF64(rets, math.Log2(f64(args[0]))) }
func hostLog10(_ *jit.Context, args, rets []uint64) { putF64(rets, math.Log10(f64(args[0]))) }
func hostExp(_ *jit.Context, args, rets []uint64)   { putF64(rets, math.Exp(f64(args[0]))) }

func hostIntToStr(ctx *jit.Context, args, rets []uint64) {
	putStr(rets, rtOf(ctx).Heap.NewStr(runtime.IntToStr(int64(args[1]))))
}

func hostFloatToStr(ctx *jit.Context, args, rets []uint64) {
	putStr(rets, rtOf(ctx).Heap.NewStr(runtime.FloatToStr(f64(args[1]))))
}

func hostStrToInt(ctx *jit.Context, args, rets []uint64) {
	rets[0] = uint64(runtime.StrToInt(rtOf(ctx).Str(strAt(args, 1))))
}

func hostStrToFloat(ctx *jit.Context, args, rets []uint64) {
	putF64(rets, runtime.StrToFloat(rtOf(ctx).Str(strAt(args, 1))))
}

func hostConcat(ctx *jit.Context, args, rets []uint64) {
	putStr(rets, rtOf(ctx).Concat(strAt(args, 1), strAt(args, 3)))
}

func hostStrLen(ctx *jit.Context, args, rets []uint64) {
	rets[0] = uint64(rtOf(ctx).Heap.StrLen(strAt(args, 1)))
}

func hostStrCmp(ctx *jit.Context, args, rets []uint64) {
	rets[0] = uint64(rtOf(ctx).CompareStr(strAt(args, 1), strAt(args, 3)))
}

func hostMatch(ctx *jit.Context, args, rets []uint64) {
	rets[0] = uint64(rtOf(ctx).Match(strAt(args, 1), strAt(args, 3)))
}

func hostSplitInt(ctx *jit.Context, args, rets []uint64) {
	rets[0] = uint64(rtOf(ctx).SplitInt(strAt(args, 1), args[3], strAt(args, 4)))
}

func hostSplitStr(ctx *jit.Context, args, rets []uint64) {
	rets[0] = uint64(rtOf(ctx).SplitStr(strAt(args, 1), args[3], strAt(args, 4)))
}

func hostNextLine(ctx *jit.Context, _, rets []uint64) {
	rets[0] = uint64(rtOf(ctx).NextLine())
}

func hostGetCol(ctx *jit.Context, args, rets []uint64) {
	putStr(rets, rtOf(ctx).Column(int64(args[1])))
}

func hostSetCol(ctx *jit.Context, args, _ []uint64) {
	rtOf(ctx).SetColumn(int64(args[1]), strAt(args, 2))
}

func hostReadFileLine(ctx *jit.Context, args, rets []uint64) {
	line, _ := rtOf(ctx).ReadFileLine(strAt(args, 1))
	putStr(rets, line)
}

func hostGetlineStatus(ctx *jit.Context, _, rets []uint64) {
	rets[0] = uint64(rtOf(ctx).Status())
}

func hostLoadIntVar(ctx *jit.Context, args, rets []uint64) {
	rets[0] = uint64(rtOf(ctx).LoadInt(ir.Variable(args[1])))
}

func hostStoreIntVar(ctx *jit.Context, args, _ []uint64) {
	rtOf(ctx).StoreInt(ir.Variable(args[1]), int64(args[2]))
}

func hostLoadStrVar(ctx *jit.Context, args, rets []uint64) {
	rt := rtOf(ctx)
	s := rt.LoadStr(ir.Variable(args[1]))
	rt.Heap.RefStr(s)
	putStr(rets, s)
}

func hostStoreStrVar(ctx *jit.Context, args, _ []uint64) {
	rtOf(ctx).StoreStr(ir.Variable(args[1]), strAt(args, 2))
}

func hostLoadMapVar(ctx *jit.Context, args, rets []uint64) {
	rt := rtOf(ctx)
	m := rt.LoadMap(ir.Variable(args[1]))
	rt.Heap.Ref(m)
	rets[0] = m
}

func hostStoreMapVar(ctx *jit.Context, args, _ []uint64) {
	rtOf(ctx).StoreMap(ir.Variable(args[1]), args[2])
}

// outputSpec decodes the output mode word; standard output travels as
// the 32-bit encoding of -1.
func outputSpec(w uint64) int64 { return int64(int32(uint32(w))) }

// Print arguments are laid out as consecutive Strs, 16 bytes each.
func hostPrintAll(ctx *jit.Context, args, rets []uint64) {
	rt := rtOf(ctx)
	addr, n := args[4], int(args[5])
	strs := make([]runtime.Str, n)
	for i := range strs {
		at := addr + uint64(i)*16
		strs[i] = runtime.Str{Lo: ctx.Mem.Load(at), Hi: ctx.Mem.Load(at + 8)}
	}
	rets[0] = uint64(rt.PrintAll(outputSpec(args[1]), strAt(args, 2), strs))
}

// Format arguments are 24 bytes each: an ArgKind word followed by the
// value, which spans two words for a Str.
func formatArgs(ctx *jit.Context, rt *runtime.Runtime, addr uint64, n int) []runtime.FormatArg {
	out := make([]runtime.FormatArg, n)
	for i := range out {
		at := addr + uint64(i)*24
		kind := runtime.ArgKind(ctx.Mem.Load(at))
		lo := ctx.Mem.Load(at + 8)
		out[i].Kind = kind
		switch kind {
		case runtime.ArgInt:
			out[i].Int = int64(lo)
		case runtime.ArgFloat:
			out[i].Flt = f64(lo)
		case runtime.ArgStr:
			out[i].Str = rt.Str(runtime.Str{Lo: lo, Hi: ctx.Mem.Load(at + 16)})
		default:
			panic(fmt.Sprintf("codegen: bad format argument kind %d", kind))
		}
	}
	return out
}

func hostPrintf(ctx *jit.Context, args, rets []uint64) {
	rt := rtOf(ctx)
	fargs := formatArgs(ctx, rt, args[6], int(args[7]))
	rets[0] = uint64(rt.Printf(outputSpec(args[1]), strAt(args, 2), strAt(args, 4), fargs))
}

func hostSprintf(ctx *jit.Context, args, rets []uint64) {
	rt := rtOf(ctx)
	fargs := formatArgs(ctx, rt, args[3], int(args[4]))
	putStr(rets, rt.Sprintf(strAt(args, 1), fargs))
}

func iterLen[K runtime.MapKey](ctx *jit.Context, args, rets []uint64) {
	rets[0] = uint64(len(runtime.IterAt[K](rtOf(ctx).Heap, args[1])))
}

func iterGet[K runtime.MapKey](ctx *jit.Context, args, rets []uint64) {
	h := rtOf(ctx).Heap
	keys := runtime.IterAt[K](h, args[1])
	var k K
	if pos := int64(args[2]); pos >= 0 && pos < int64(len(keys)) {
		k = keys[pos]
	}
	encode(h, k, rets)
}

func hostIterLenInt(ctx *jit.Context, args, rets []uint64) { iterLen[int64](ctx, args, rets) }
func hostIterLenStr(ctx *jit.Context, args, rets []uint64) { iterLen[string](ctx, args, rets) }
func hostIterGetInt(ctx *jit.Context, args, rets []uint64) { iterGet[int64](ctx, args, rets) }
func hostIterGetStr(ctx *jit.Context, args, rets []uint64) { iterGet[string](ctx, args, rets) }

// decode reads a key or value starting at w[0] and returns it with the
// number of words it occupied.
func decode[T runtime.MapVal](h *runtime.Heap, w []uint64) (T, int) {
	var t T
	switch p := any(&t).(type) {
	case *int64:
		*p = int64(w[0])
	case *float64:
		*p = f64(w[0])
	case *string:
		*p = h.String(strAt(w, 0))
		return t, 2
	}
	return t, 1
}

// encode writes v to w. Strings are returned as new owned values.
func encode[T runtime.MapVal](h *runtime.Heap, v T, w []uint64) {
	switch x := any(v).(type) {
	case int64:
		w[0] = uint64(x)
	case float64:
		putF64(w, x)
	case string:
		putStr(w, h.NewStr(x))
	}
}

func mapAlloc[K runtime.MapKey, V runtime.MapVal](ctx *jit.Context, _, rets []uint64) {
	rets[0] = runtime.NewMap[K, V](rtOf(ctx).Heap)
}

func mapLookup[K runtime.MapKey, V runtime.MapVal](ctx *jit.Context, args, rets []uint64) {
	h := rtOf(ctx).Heap
	k, _ := decode[K](h, args[2:])
	v, _ := runtime.MapAt[K, V](h, args[1]).Get(k)
	encode(h, v, rets)
}

func mapInsert[K runtime.MapKey, V runtime.MapVal](ctx *jit.Context, args, _ []uint64) {
	h := rtOf(ctx).Heap
	k, n := decode[K](h, args[2:])
	v, _ := decode[V](h, args[2+n:])
	runtime.MapAt[K, V](h, args[1]).Insert(k, v)
}

func mapContains[K runtime.MapKey, V runtime.MapVal](ctx *jit.Context, args, rets []uint64) {
	h := rtOf(ctx).Heap
	k, _ := decode[K](h, args[2:])
	rets[0] = 0
	if runtime.MapAt[K, V](h, args[1]).Contains(k) {
		rets[0] = 1
	}
}

func mapDelete[K runtime.MapKey, V runtime.MapVal](ctx *jit.Context, args, _ []uint64) {
	h := rtOf(ctx).Heap
	k, _ := decode[K](h, args[2:])
	runtime.MapAt[K, V](h, args[1]).Delete(k)
}

func mapLen[K runtime.MapKey, V runtime.MapVal](ctx *jit.Context, args, rets []uint64) {
	rets[0] = uint64(runtime.MapAt[K, V](rtOf(ctx).Heap, args[1]).Len())
}

func mapIter[K runtime.MapKey, V runtime.MapVal](ctx *jit.Context, args, rets []uint64) {
	h := rtOf(ctx).Heap
	rets[0] = runtime.NewIter(h, runtime.MapAt[K, V](h, args[1]).Keys())
}

// One named function per map type and operation: host functions are
// resolved by code address, so each needs its own.

func allocII(ctx *jit.Context, a, r []uint64)    { mapAlloc[int64, int64](ctx, a, r) }
func lookupII(ctx *jit.Context, a, r []uint64)   { mapLookup[int64, int64](ctx, a, r) }
func insertII(ctx *jit.Context, a, r []uint64)   { mapInsert[int64, int64](ctx, a, r) }
func containsII(ctx *jit.Context, a, r []uint64) { mapContains[int64, int64](ctx, a, r) }
func deleteII(ctx *jit.Context, a, r []uint64)   { mapDelete[int64, int64](ctx, a, r) }
func lenII(ctx *jit.Context, a, r []uint64)      { mapLen[int64, int64](ctx, a, r) }
func iterII(ctx *jit.Context, a, r []uint64)     { mapIter[int64, int64](ctx, a, r) }

func allocIF(ctx *jit.Context, a, r []uint64)    { mapAlloc[int64, float64](ctx, a, r) }
func lookupIF(ctx *jit.Context, a, r []uint64)   { mapLookup[int64, float64](ctx, a, r) }
func insertIF(ctx *jit.Context, a, r []uint64)   { mapInsert[int64, float64](ctx, a, r) }
func containsIF(ctx *jit.Context, a, r []uint64) { mapContains[int64, float64](ctx, a, r) }
func deleteIF(ctx *jit.Context, a, r []uint64)   { mapDelete[int64, float64](ctx, a, r) }
func lenIF(ctx *jit.Context, a, r []uint64)      { mapLen[int64, float64](ctx, a, r) }
func iterIF(ctx *jit.Context, a, r []uint64)     { mapIter[int64, float64](ctx, a, r) }

func allocIS(ctx *jit.Context, a, r []uint64)    { mapAlloc[int64, string](ctx, a, r) }
func lookupIS(ctx *jit.Context, a, r []uint64)   { mapLookup[int64, string](ctx, a, r) }
func insertIS(ctx *jit.Context, a, r []uint64)   { mapInsert[int64, string](ctx, a, r) }
func containsIS(ctx *jit.Context, a, r []uint64) { mapContains[int64, string](ctx, a, r) }
func deleteIS(ctx *jit.Context, a, r []uint64)   { mapDelete[int64, string](ctx, a, r) }
func lenIS(ctx *jit.Context, a, r []uint64)      { mapLen[int64, string](ctx, a, r) }
func iterIS(ctx *jit.Context, a, r []uint64)     { mapIter[int64, string](ctx, a, r) }

func allocSI(ctx *jit.Context, a, r []uint64)    { mapAlloc[string, int64](ctx, a, r) }
func lookupSI(ctx *jit.Context, a, r []uint64)   { mapLookup[string, int64](ctx, a, r) }
func insertSI(ctx *jit.Context, a, r []uint64)   { mapInsert[string, int64](ctx, a, r) }
func containsSI(ctx *jit.Context, a, r []uint64) { mapContains[string, int64](ctx, a, r) }
func deleteSI(ctx *jit.Context, a, r []uint64)   { mapDelete[string, int64](ctx, a, r) }
func lenSI(ctx *jit.Context, a, r []uint64)      { mapLen[string, int64](ctx, a, r) }
func iterSI(ctx *jit.Context, a, r []uint64)     { mapIter[string, int64](ctx, a, r) }

func allocSF(ctx *jit.Context, a, r []uint64)    { mapAlloc[string, float64](ctx, a, r) }
func lookupSF(ctx *jit.Context, a, r []uint64)   { mapLookup[string, float64](ctx, a, r) }
func insertSF(ctx *jit.Context, a, r []uint64)   { mapInsert[string, float64](ctx, a, r) }
func containsSF(ctx *jit.Context, a, r []uint64) { mapContains[string, float64](ctx, a, r) }
func deleteSF(ctx *jit.Context, a, r []uint64)   { mapDelete[string, float64](ctx, a, r) }
func lenSF(ctx *jit.Context, a, r []uint64)      { mapLen[string, float64](ctx, a, r) }
func iterSF(ctx *jit.Context, a, r []uint64)     { mapIter[string, float64](ctx, a, r) }

func allocSS(ctx *jit.Context, a, r []uint64)    { mapAlloc[string, string](ctx, a, r) }
func lookupSS(ctx *jit.Context, a, r []uint64)   { mapLookup[string, string](ctx, a, r) }
func insertSS(ctx *jit.Context, a, r []uint64)   { mapInsert[string, string](ctx, a, r) }
func containsSS(ctx *jit.Context, a, r []uint64) { mapContains[string, string](ctx, a, r) }
func deleteSS(ctx *jit.Context, a, r []uint64)   { mapDelete[string, string](ctx, a, r) }
func lenSS(ctx *jit.Context, a, r []uint64)      { mapLen[string, string](ctx, a, r) }
func iterSS(ctx *jit.Context, a, r []uint64)     { mapIter[string, string](ctx, a, r) }
