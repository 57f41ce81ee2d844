// Released under an MIT license. See LICENSE.

package core

import (
	"fmt"
)

// The bootstrap natives. Each is a paramlist with a Go dispatcher,
// registered as a root and bound into lib by name.

type nativeSpec struct {
	name     string
	enfix    bool
	deferred bool
	params   []Cell
	dispatch Dispatcher
}

func (rt *Runtime) registerNative(n nativeSpec) {
	p := rt.MakeParamlist(n.params, &funcInfo{dispatch: n.dispatch})
	rt.Heap.Manage(p)
	rt.natives = append(rt.natives, p)

	fn := Function(p)
	if n.enfix {
		fn.SetFlag(FlagEnfixed)
	}

	if n.deferred {
		fn.SetFlag(FlagDeferred)
	}

	rt.AddField(rt.lib, rt.Intern(n.name), &fn)
}

// Parameter spec helpers.

func (rt *Runtime) np(name string) Cell { // normal
	return TypesetCell(rt.Intern(name), AnyValueBits, ParamNormal, 0)
}

func (rt *Runtime) tp(name string) Cell { // tight
	return TypesetCell(rt.Intern(name), AnyValueBits, ParamTight, 0)
}

func (rt *Runtime) hq(name string) Cell { // hard quote
	return TypesetCell(rt.Intern(name), AnyValueBits|KindBit(KindBar), ParamHardQuote, 0)
}

func (rt *Runtime) rp(name string) Cell { // refinement
	return TypesetCell(rt.Intern(name), KindBit(KindLogic)|KindBit(KindBlank), ParamRefinement, 0)
}

func (rt *Runtime) vp(name string) Cell { // variadic
	return TypesetCell(rt.Intern(name), AnyValueBits, ParamNormal, paramFlagVariadic)
}

//nolint:funlen
func bootNatives(rt *Runtime) {
	natives := []nativeSpec{
		{name: "func", params: []Cell{rt.np("spec"), rt.np("body")}, dispatch: nativeFunc},

		{name: "add", params: []Cell{rt.np("a"), rt.np("b")}, dispatch: nativeAdd},
		{name: "subtract", params: []Cell{rt.np("a"), rt.np("b")}, dispatch: nativeSubtract},
		{name: "multiply", params: []Cell{rt.np("a"), rt.np("b")}, dispatch: nativeMultiply},
		{name: "divide", params: []Cell{rt.np("a"), rt.np("b")}, dispatch: nativeDivide},

		// The operator forms dispatch infix with relaxed precedence: an
		// expression to their left completes before they take it.
		{name: "+", enfix: true, deferred: true, params: []Cell{rt.tp("a"), rt.tp("b")}, dispatch: nativeAdd},
		{name: "-", enfix: true, deferred: true, params: []Cell{rt.tp("a"), rt.tp("b")}, dispatch: nativeSubtract},
		{name: "*", enfix: true, deferred: true, params: []Cell{rt.tp("a"), rt.tp("b")}, dispatch: nativeMultiply},

		{name: "=", enfix: true, params: []Cell{rt.np("a"), rt.np("b")}, dispatch: nativeEqual},
		{name: "<>", enfix: true, params: []Cell{rt.np("a"), rt.np("b")}, dispatch: nativeNotEqual},
		{name: "<", enfix: true, params: []Cell{rt.np("a"), rt.np("b")}, dispatch: nativeLesser},
		{name: ">", enfix: true, params: []Cell{rt.np("a"), rt.np("b")}, dispatch: nativeGreater},
		{name: "<=", enfix: true, params: []Cell{rt.np("a"), rt.np("b")}, dispatch: nativeLesserEq},
		{name: ">=", enfix: true, params: []Cell{rt.np("a"), rt.np("b")}, dispatch: nativeGreaterEq},

		{name: "if", params: []Cell{rt.np("condition"), rt.np("branch")}, dispatch: nativeIf},
		{name: "either", params: []Cell{rt.np("condition"), rt.np("true-branch"), rt.np("false-branch")}, dispatch: nativeEither},
		{name: "while", params: []Cell{rt.np("condition"), rt.np("body")}, dispatch: nativeWhile},

		{name: "do", params: []Cell{rt.np("value")}, dispatch: nativeDo},
		{name: "set", params: []Cell{rt.np("word"), rt.np("value")}, dispatch: nativeSet},
		{name: "get", params: []Cell{rt.np("word")}, dispatch: nativeGet},
		{name: "quote", params: []Cell{rt.hq("value")}, dispatch: nativeQuote},

		{name: "catch", params: []Cell{rt.np("body")}, dispatch: nativeCatch},
		{name: "throw", params: []Cell{rt.np("value")}, dispatch: nativeThrow},
		{name: "trap", params: []Cell{rt.np("body")}, dispatch: nativeTrap},
		{name: "fail", params: []Cell{rt.np("reason")}, dispatch: nativeFail},

		{name: "append", params: []Cell{rt.np("series"), rt.np("value")}, dispatch: nativeAppend},
		{name: "insert", params: []Cell{rt.np("series"), rt.np("value")}, dispatch: nativeInsert},
		{name: "at", params: []Cell{rt.np("series"), rt.np("index")}, dispatch: nativeAt},
		{name: "pick", params: []Cell{rt.np("series"), rt.np("index")}, dispatch: nativePick},
		{name: "poke", params: []Cell{rt.np("series"), rt.np("index"), rt.np("value")}, dispatch: nativePoke},
		{name: "length?", params: []Cell{rt.np("series")}, dispatch: nativeLength},
		{name: "sort", params: []Cell{rt.np("series"), rt.rp("compare"), rt.np("comparator")}, dispatch: nativeSort},
		{name: "take", params: []Cell{rt.np("source")}, dispatch: nativeTake},
		{name: "first?", params: []Cell{rt.np("feed")}, dispatch: nativeFirst},
		{name: "tail?", params: []Cell{rt.np("source")}, dispatch: nativeTail},

		{name: "make", params: []Cell{rt.np("type"), rt.np("spec")}, dispatch: nativeMake},
		{name: "to", params: []Cell{rt.np("type"), rt.np("value")}, dispatch: nativeTo},

		{name: "mold", params: []Cell{rt.np("value")}, dispatch: nativeMold},
		{name: "form", params: []Cell{rt.np("value")}, dispatch: nativeForm},
		{name: "print", params: []Cell{rt.np("value")}, dispatch: nativePrint},

		{name: "recycle", params: []Cell{}, dispatch: nativeRecycle},
		{name: "protect", params: []Cell{rt.np("value")}, dispatch: nativeProtect},
		{name: "unprotect", params: []Cell{rt.np("value")}, dispatch: nativeUnprotect},

		{name: "sum", params: []Cell{rt.vp("values")}, dispatch: nativeSum},
	}

	for _, n := range natives {
		rt.registerNative(n)
	}

	registerDatatypes(rt)
	registerFFINatives(rt)
}

// registerDatatypes binds every datatype name in lib so type blocks and
// make/to specs resolve.
func registerDatatypes(rt *Runtime) {
	for k := KindBlank; k < KindMax; k++ {
		d := Datatype(k)
		rt.AddField(rt.lib, rt.Intern(k.Name()), &d)
	}

	t := Logic(true)
	f := Logic(false)
	rt.AddField(rt.lib, rt.Intern("true"), &t)
	rt.AddField(rt.lib, rt.Intern("false"), &f)
}

func nativeFunc(rt *Runtime, f *Frame) Signal {
	spec := f.Arg(0)
	body := f.Arg(1)

	if spec.kind != KindBlock || body.kind != KindBlock {
		return rt.Fail(f.Out(), ErrBadMake, spec)
	}

	return rt.MakeFunction(spec, body, f.Out())
}

// Arithmetic. Integer operations stay in integers and fail on overflow;
// mixing with a decimal promotes.

func nativeAdd(rt *Runtime, f *Frame) Signal {
	return rt.arith(f, func(a, b int64) (int64, bool) {
		s := a + b
		return s, (s > a) == (b > 0)
	}, func(a, b float64) float64 { return a + b })
}

func nativeSubtract(rt *Runtime, f *Frame) Signal {
	return rt.arith(f, func(a, b int64) (int64, bool) {
		d := a - b
		return d, (d < a) == (b > 0)
	}, func(a, b float64) float64 { return a - b })
}

func nativeMultiply(rt *Runtime, f *Frame) Signal {
	return rt.arith(f, func(a, b int64) (int64, bool) {
		if a == 0 || b == 0 {
			return 0, true
		}

		p := a * b

		return p, p/b == a
	}, func(a, b float64) float64 { return a * b })
}

func nativeDivide(rt *Runtime, f *Frame) Signal {
	a, b := f.Arg(0), f.Arg(1)

	if b.kind == KindInteger && b.Int() == 0 {
		return rt.Fail(f.Out(), ErrDivideByZero, a)
	}

	if a.kind == KindInteger && b.kind == KindInteger {
		if a.Int()%b.Int() == 0 {
			v := Integer(a.Int() / b.Int())
			f.Out().Copy(&v)

			return SigOK
		}

		v := Decimal(float64(a.Int()) / float64(b.Int()))
		f.Out().Copy(&v)

		return SigOK
	}

	an, aok := numeric(a)
	bn, bok := numeric(b)

	if !aok || !bok {
		return rt.Fail(f.Out(), ErrIllegalAction, a, b)
	}

	if bn == 0 {
		return rt.Fail(f.Out(), ErrDivideByZero, a)
	}

	v := Decimal(an / bn)
	f.Out().Copy(&v)

	return SigOK
}

func (rt *Runtime) arith(f *Frame, iop func(a, b int64) (int64, bool), fop func(a, b float64) float64) Signal {
	a, b := f.Arg(0), f.Arg(1)

	if a.kind == KindInteger && b.kind == KindInteger {
		v, ok := iop(a.Int(), b.Int())
		if !ok {
			return rt.Fail(f.Out(), ErrOverflow, a, b)
		}

		c := Integer(v)
		f.Out().Copy(&c)

		return SigOK
	}

	an, aok := numeric(a)
	bn, bok := numeric(b)

	if !aok || !bok {
		return rt.Fail(f.Out(), ErrIllegalAction, a, b)
	}

	c := Decimal(fop(an, bn))
	f.Out().Copy(&c)

	return SigOK
}

// Comparison.

func nativeEqual(rt *Runtime, f *Frame) Signal {
	return compareOut(f, func(c int, eq bool) bool { return eq || c == 0 })
}

func nativeNotEqual(rt *Runtime, f *Frame) Signal {
	return compareOut(f, func(c int, eq bool) bool { return !eq && c != 0 })
}

func nativeLesser(rt *Runtime, f *Frame) Signal {
	return compareOut(f, func(c int, eq bool) bool { return !eq && c < 0 })
}

func nativeGreater(rt *Runtime, f *Frame) Signal {
	return compareOut(f, func(c int, eq bool) bool { return !eq && c > 0 })
}

func nativeLesserEq(rt *Runtime, f *Frame) Signal {
	return compareOut(f, func(c int, eq bool) bool { return eq || c <= 0 })
}

func nativeGreaterEq(rt *Runtime, f *Frame) Signal {
	return compareOut(f, func(c int, eq bool) bool { return eq || c >= 0 })
}

func compareOut(f *Frame, pred func(c int, eq bool) bool) Signal {
	a, b := f.Arg(0), f.Arg(1)

	v := Logic(pred(Compare(a, b), a.Equal(b)))
	f.Out().Copy(&v)

	return SigOK
}

// Control flow.

func nativeIf(rt *Runtime, f *Frame) Signal {
	cond := f.Arg(0)

	if !cond.Bool() {
		blank := Blank()
		f.Out().Copy(&blank)

		return SigOK
	}

	return rt.runBranch(f, f.Arg(1))
}

func nativeEither(rt *Runtime, f *Frame) Signal {
	branch := f.Arg(1)
	if !f.Arg(0).Bool() {
		branch = f.Arg(2)
	}

	return rt.runBranch(f, branch)
}

func nativeWhile(rt *Runtime, f *Frame) Signal {
	cond := f.Arg(0)
	body := f.Arg(1)

	blank := Blank()
	f.Out().Copy(&blank)

	for {
		var c Cell

		c.Prep()

		if sig := rt.runBranchInto(f, cond, &c); sig != SigOK {
			*f.Out() = c

			return sig
		}

		if !c.Bool() {
			return SigOK
		}

		if sig := rt.runBranch(f, body); sig != SigOK {
			return sig
		}
	}
}

func (rt *Runtime) runBranch(f *Frame, branch *Cell) Signal {
	return rt.runBranchInto(f, branch, f.Out())
}

func (rt *Runtime) runBranchInto(f *Frame, branch *Cell, out *Cell) Signal {
	if branch.kind != KindBlock {
		out.Copy(branch)

		return SigOK
	}

	return rt.Do(branch.ser, branch.idx, f.Specifier(), out)
}

func nativeDo(rt *Runtime, f *Frame) Signal {
	return rt.runBranch(f, f.Arg(0))
}

func nativeSet(rt *Runtime, f *Frame) Signal {
	w := f.Arg(0)
	v := f.Arg(1)

	if !w.IsAnyWord() {
		return rt.Fail(f.Out(), ErrIllegalAction, w)
	}

	// An unbound word sets in the library context, adding the field if
	// required.
	if w.Binding() == nil {
		if i := rt.lib.FindField(w.word); i != 0 {
			rt.lib.Slot(i).Copy(v)
		} else {
			rt.AddField(rt.lib, w.word, v)
		}

		f.Out().Copy(v)

		return SigOK
	}

	if errid := SetVar(w, f.Specifier(), v); errid != "" {
		return rt.Fail(f.Out(), errid, w)
	}

	f.Out().Copy(v)

	return SigOK
}

func nativeGet(rt *Runtime, f *Frame) Signal {
	w := f.Arg(0)

	if !w.IsAnyWord() {
		return rt.Fail(f.Out(), ErrIllegalAction, w)
	}

	// An unbound word reads from the library context.
	if w.Binding() == nil {
		if i := rt.lib.FindField(w.word); i != 0 {
			f.Out().Copy(rt.lib.Slot(i))

			return SigOK
		}

		return rt.Fail(f.Out(), ErrNotBound, w)
	}

	slot, errid := GetVar(w, f.Specifier())
	if errid != "" {
		return rt.Fail(f.Out(), errid, w)
	}

	f.Out().Copy(slot)

	return SigOK
}

func nativeQuote(rt *Runtime, f *Frame) Signal {
	f.Out().Copy(f.Arg(0))

	return SigOK
}

// Throw and catch. A throw is any value in flight; catch stops it and
// yields the value. Failures (thrown errors) pass through catch and are
// stopped only by trap.

func nativeThrow(rt *Runtime, f *Frame) Signal {
	v := f.Arg(0)

	return rt.Throw(f.Out(), v, v)
}

func nativeCatch(rt *Runtime, f *Frame) Signal {
	sig := rt.runBranch(f, f.Arg(0))
	if sig != SigThrown {
		return sig
	}

	if IsFailure(f.Out()) {
		return sig
	}

	arg := rt.Catch(f.Out())
	f.Out().Copy(&arg)

	return SigOK
}

func nativeTrap(rt *Runtime, f *Frame) Signal {
	sig := rt.runBranch(f, f.Arg(0))
	if sig != SigThrown {
		return sig
	}

	if !IsFailure(f.Out()) {
		return sig
	}

	rt.Catch(f.Out())
	f.Out().ClearFlag(FlagThrown)

	return SigOK
}

func nativeFail(rt *Runtime, f *Frame) Signal {
	r := f.Arg(0)

	switch {
	case r.kind == KindError:
		return rt.Throw(f.Out(), r, nil)
	case r.IsAnyWord():
		return rt.Fail(f.Out(), r.word.Name())
	case r.IsAnyString():
		return rt.Fail(f.Out(), r.ser.GoString(r.idx))
	}

	return rt.Fail(f.Out(), ErrIllegalAction, r)
}

// Series natives.

func seriesArg(rt *Runtime, f *Frame, c *Cell) Signal {
	if !c.IsAnySeries() {
		return rt.Fail(f.Out(), ErrIllegalAction, c)
	}

	return SigOK
}

func nativeAppend(rt *Runtime, f *Frame) Signal {
	s := f.Arg(0)

	if sig := seriesArg(rt, f, s); sig != SigOK {
		return sig
	}

	if sig := rt.SeriesAppend(s, f.Arg(1), f.Out()); sig != SigOK {
		return sig
	}

	f.Out().Copy(s)

	return SigOK
}

func nativeInsert(rt *Runtime, f *Frame) Signal {
	s := f.Arg(0)

	if sig := seriesArg(rt, f, s); sig != SigOK {
		return sig
	}

	if sig := rt.SeriesInsert(s, f.Arg(1), f.Out()); sig != SigOK {
		return sig
	}

	f.Out().Copy(s)

	return SigOK
}

func nativeAt(rt *Runtime, f *Frame) Signal {
	s := f.Arg(0)
	n := f.Arg(1)

	if sig := seriesArg(rt, f, s); sig != SigOK {
		return sig
	}

	if n.kind != KindInteger {
		return rt.Fail(f.Out(), ErrIllegalAction, n)
	}

	i := s.idx + int(n.Int()) - 1
	if i < 0 {
		i = 0
	}

	if max := s.ser.Len(); i > max {
		i = max
	}

	v := *s
	v.idx = i
	f.Out().Copy(&v)

	return SigOK
}

func nativePick(rt *Runtime, f *Frame) Signal {
	s := f.Arg(0)
	n := f.Arg(1)

	if sig := seriesArg(rt, f, s); sig != SigOK {
		return sig
	}

	if n.kind != KindInteger {
		return rt.Fail(f.Out(), ErrIllegalAction, n)
	}

	return rt.PickSeries(s, int(n.Int()), f.Out())
}

func nativePoke(rt *Runtime, f *Frame) Signal {
	s := f.Arg(0)
	n := f.Arg(1)
	v := f.Arg(2)

	if sig := seriesArg(rt, f, s); sig != SigOK {
		return sig
	}

	if n.kind != KindInteger {
		return rt.Fail(f.Out(), ErrIllegalAction, n)
	}

	if sig := rt.PokeSeries(s, int(n.Int()), v, f.Out()); sig != SigOK {
		return sig
	}

	f.Out().Copy(v)

	return SigOK
}

func nativeLength(rt *Runtime, f *Frame) Signal {
	s := f.Arg(0)

	switch {
	case s.IsAnySeries():
		v := Integer(int64(SeriesLen(s)))
		f.Out().Copy(&v)

		return SigOK
	case s.kind == KindObject || s.kind == KindFrame || s.kind == KindModule || s.kind == KindError:
		v := Integer(int64(s.ser.Keylist().NumParams()))
		f.Out().Copy(&v)

		return SigOK
	case s.kind == KindMap:
		v := Integer(int64(s.ser.Len() / 2))
		f.Out().Copy(&v)

		return SigOK
	}

	return rt.Fail(f.Out(), ErrIllegalAction, s)
}

func nativeSort(rt *Runtime, f *Frame) Signal {
	s := f.Arg(0)

	if sig := seriesArg(rt, f, s); sig != SigOK {
		return sig
	}

	var comparator *Cell
	if f.Arg(1).kind == KindLogic && f.Arg(1).Bool() {
		comparator = f.Arg(2)
	}

	if sig := rt.SeriesSort(s, comparator, f.Out()); sig != SigOK {
		return sig
	}

	f.Out().Copy(s)

	return SigOK
}

func nativeTake(rt *Runtime, f *Frame) Signal {
	s := f.Arg(0)

	switch {
	case s.kind == KindVarargs:
		return rt.FeedTake(s, f.Out())
	case s.IsAnySeries():
		return rt.SeriesTake(s, f.Out())
	}

	return rt.Fail(f.Out(), ErrIllegalAction, s)
}

func nativeFirst(rt *Runtime, f *Frame) Signal {
	s := f.Arg(0)

	if s.kind != KindVarargs {
		return rt.Fail(f.Out(), ErrIllegalAction, s)
	}

	return rt.FeedFirst(s, f.Out())
}

func nativeTail(rt *Runtime, f *Frame) Signal {
	s := f.Arg(0)

	switch {
	case s.kind == KindVarargs:
		done, sig := rt.FeedTail(s, f.Out())
		if sig != SigOK {
			return sig
		}

		v := Logic(done)
		f.Out().Copy(&v)

		return SigOK
	case s.IsAnySeries():
		v := Logic(s.idx >= s.ser.Len())
		f.Out().Copy(&v)

		return SigOK
	}

	return rt.Fail(f.Out(), ErrIllegalAction, s)
}

// Construction natives.

func typeArg(c *Cell) Kind {
	if c.kind == KindDatatype {
		return c.DatatypeKind()
	}

	// An example value stands in for its type.
	return c.kind
}

func nativeMake(rt *Runtime, f *Frame) Signal {
	return rt.MakeValue(typeArg(f.Arg(0)), f.Arg(1), f.Out())
}

func nativeTo(rt *Runtime, f *Frame) Signal {
	return rt.ToValue(typeArg(f.Arg(0)), f.Arg(1), f.Out())
}

// Rendering natives.

func nativeMold(rt *Runtime, f *Frame) Signal {
	return rt.textOut(f, rt.Mold(f.Arg(0)))
}

func nativeForm(rt *Runtime, f *Frame) Signal {
	return rt.textOut(f, rt.Form(f.Arg(0)))
}

func (rt *Runtime) textOut(f *Frame, text string) Signal {
	s := rt.AllocString(len(text))
	rt.Heap.Guard(s)
	s.AppendString(text)
	rt.Heap.Unguard(s)
	rt.Heap.Manage(s)

	v := String(s)
	f.Out().Copy(&v)

	return SigOK
}

func nativePrint(rt *Runtime, f *Frame) Signal {
	fmt.Fprintln(rt.Stdout, rt.Form(f.Arg(0)))

	void := Void()
	f.Out().Copy(&void)

	return SigOK
}

// Memory natives.

func nativeRecycle(rt *Runtime, f *Frame) Signal {
	v := Integer(int64(rt.Recycle()))
	f.Out().Copy(&v)

	return SigOK
}

func nativeProtect(rt *Runtime, f *Frame) Signal {
	return rt.setProtect(f, true)
}

func nativeUnprotect(rt *Runtime, f *Frame) Signal {
	return rt.setProtect(f, false)
}

func (rt *Runtime) setProtect(f *Frame, on bool) Signal {
	v := f.Arg(0)

	switch {
	case v.IsAnySeries():
		if on {
			v.ser.Protect()
		} else {
			v.ser.Unprotect()
		}
	case v.IsAnyWord():
		slot, errid := GetVar(v, f.Specifier())
		if errid != "" {
			return rt.Fail(f.Out(), errid, v)
		}

		if on {
			slot.SetFlag(FlagProtected)
		} else {
			slot.ClearFlag(FlagProtected)
		}
	default:
		return rt.Fail(f.Out(), ErrIllegalAction, v)
	}

	f.Out().Copy(v)

	return SigOK
}

// nativeSum exercises the variadic feed: it takes numbers until the feed
// ends, honoring barriers and deferred operators like any evaluating
// take.
func nativeSum(rt *Runtime, f *Frame) Signal {
	feed := f.Arg(0)

	total := Integer(0)

	for {
		var v Cell

		v.Prep()

		if sig := rt.FeedTake(feed, &v); sig != SigOK {
			*f.Out() = v

			return sig
		}

		if v.IsEnd() {
			break
		}

		if v.kind != KindInteger && v.kind != KindDecimal {
			return rt.Fail(f.Out(), ErrArgType, &v)
		}

		if total.kind == KindInteger && v.kind == KindInteger {
			s := total.i + v.i
			if (s > total.i) != (v.i > 0) && v.i != 0 {
				return rt.Fail(f.Out(), ErrOverflow, &total, &v)
			}

			total.i = s

			continue
		}

		tn, _ := numeric(&total)
		vn, _ := numeric(&v)
		total = Decimal(tn + vn)
	}

	f.Out().Copy(&total)

	return SigOK
}
