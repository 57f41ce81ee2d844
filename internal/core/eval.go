// Released under an MIT license. See LICENSE.

package core

import (
	"github.com/renlang/ren/internal/sym"
)

const debug = false

// The evaluator. Strictly single-threaded and cooperative: nested calls
// push a frame and recurse through this dispatch loop. Nothing suspends.

// Do evaluates the array from index idx to its end. The output cell
// receives the value of the last expression, or void.
func (rt *Runtime) Do(arr *Series, idx int, specifier *Series, out *Cell) Signal {
	f := rt.pushFrame(out, arr, idx, specifier)
	defer rt.dropFrame(f)

	return rt.doFrame(f)
}

// DoVa evaluates a non-restartable variadic input. If a collection runs
// mid-evaluation the remaining input is reified into an owned array.
func (rt *Runtime) DoVa(out *Cell, vals ...Cell) Signal {
	f := rt.pushFrame(out, nil, 0, nil)
	defer rt.dropFrame(f)

	f.va = NewVaInput(vals...)

	return rt.doFrame(f)
}

func (rt *Runtime) doFrame(f *Frame) Signal {
	f.out.Prep()

	for !f.AtEnd() {
		if sig := rt.evalExpression(f, f.out, false); sig != SigOK {
			return sig
		}
	}

	if f.out.IsEnd() {
		void := Void()
		f.out.Copy(&void)
	}

	return SigOK
}

// evalExpression evaluates one expression from the frame's input into out.
// Lookahead (infix dispatch) is applied unless disabled.
func (rt *Runtime) evalExpression(f *Frame, out *Cell, noLookahead bool) Signal {
	// A literal expression barrier is invisible; it separates
	// expressions and is skipped here without disturbing the output.
	for !f.AtEnd() && f.Head().Kind() == KindBar {
		f.Advance()
	}

	if f.AtEnd() {
		return SigOK
	}

	out.Prep()

	if sig := rt.evalCore(f, out); sig != SigOK {
		return sig
	}

	if noLookahead {
		return SigOK
	}

	return rt.lookahead(f, out)
}

// evalCore evaluates exactly one value (plus its consumed arguments).
func (rt *Runtime) evalCore(f *Frame, out *Cell) Signal {
	v := f.Head()

	switch v.Kind() {
	case KindWord:
		slot, errid := GetVar(v, f.specifier)
		if errid != "" {
			w := Word(v.word)

			return rt.Fail(out, errid, &w)
		}

		if slot.Kind() == KindFunction {
			f.Advance()

			return rt.invoke(f, out, slot, v.word, nil, nil)
		}

		if slot.IsVoid() {
			w := Word(v.word)

			return rt.Fail(out, ErrNoValue, &w)
		}

		out.Copy(slot)
		f.Advance()

	case KindSetWord:
		set := *v

		f.Advance()

		if f.AtEnd() {
			w := Word(set.word)

			return rt.Fail(out, ErrNeedNonEnd, &w)
		}

		if sig := rt.evalExpression(f, out, false); sig != SigOK {
			return sig
		}

		if out.IsEnd() || out.IsVoid() {
			w := Word(set.word)

			return rt.Fail(out, ErrNeedNonEnd, &w)
		}

		if errid := SetVar(&set, f.specifier, out); errid != "" {
			w := Word(set.word)

			return rt.Fail(out, errid, &w)
		}

	case KindGetWord:
		slot, errid := GetVar(v, f.specifier)
		if errid != "" {
			w := Word(v.word)

			return rt.Fail(out, errid, &w)
		}

		out.Copy(slot)
		f.Advance()

	case KindLitWord:
		out.Copy(v)
		out.kind = KindWord
		out.SetFlag(FlagUnevaluated)
		f.Advance()

	case KindLitBar:
		bar := Bar()
		out.Copy(&bar)
		out.SetFlag(FlagUnevaluated)
		f.Advance()

	case KindGroup:
		group := *v

		f.Advance()

		if sig := rt.Do(group.ser, group.idx, groupSpecifier(&group, f), out); sig != SigOK {
			return sig
		}

	case KindFunction:
		// A function value in the feed invokes directly, unlabeled.
		fn := *v

		f.Advance()

		return rt.invoke(f, out, &fn, nil, nil, nil)

	case KindPath, KindGetPath:
		return rt.evalPath(f, out, v)

	case KindSetPath:
		return rt.evalSetPath(f, out, v)

	case KindEnd:
		panic("end sentinel escaped into evaluator input")

	case KindVoid:
		// Voids are legal input only in voids-legal arrays (reified
		// feeds); evaluating one yields void.
		void := Void()
		out.Copy(&void)
		f.Advance()

	default:
		// Inert values evaluate to themselves.
		out.Copy(v)
		f.Advance()
	}

	return SigOK
}

// groupSpecifier selects the binding environment for a group's contents:
// the group's own binding when it has one, else the enclosing frame's.
func groupSpecifier(group *Cell, f *Frame) *Series {
	if group.binding != nil && group.binding.flags&SFlagVarlist != 0 {
		return group.binding
	}

	return f.specifier
}

// lookahead dispatches enfixed functions: while the next value is a word
// bound to an infix function, the current output becomes its left
// argument. A deferred infix function is not consumed while an argument
// is being fulfilled; the enclosing expression completes first.
func (rt *Runtime) lookahead(f *Frame, out *Cell) Signal {
	for !f.AtEnd() {
		v := f.Head()
		if v.Kind() != KindWord {
			return SigOK
		}

		slot, errid := GetVar(v, f.specifier)
		if errid != "" || slot.Kind() != KindFunction || !slot.HasFlag(FlagEnfixed) {
			return SigOK
		}

		if f.flags&FrameFulfillingArg != 0 && slot.HasFlag(FlagDeferred) {
			return SigOK
		}

		f.scratch.Prep()
		f.scratch.Copy(out)
		left := f.scratch

		f.Advance()

		if sig := rt.invoke(f, out, slot, v.word, &left, nil); sig != SigOK {
			return sig
		}
	}

	return SigOK
}

// pickup is the data stack marker for a deferred refinement: the
// parameter and argument cursors to revisit once the end of the parameter
// list is reached.
type pickup struct {
	param int
	arg   int
}

// invoke calls the function cell fn. Arguments are fulfilled from the
// caller frame's input; left is the pre-evaluated left argument of an
// enfixed invocation; refines names refinements supplied via path
// invocation, in the order given.
func (rt *Runtime) invoke(caller *Frame, out *Cell, fn *Cell, label *sym.T, left *Cell, refines []*sym.T) Signal {
	p := fn.ser
	info := p.Info()

	f := rt.pushFrame(out, nil, 0, caller.specifier)
	defer rt.dropFrame(f)

	f.input = caller
	f.original = p
	f.phase = p
	f.label = label
	f.flags |= FrameFulfilling

	rt.allocFrameVarlist(f, p)

	// Refinements requested by path, consumed in order as encountered.
	// One named ahead of its position in the paramlist becomes a pickup.
	requested := append([]*sym.T(nil), refines...)

	pickups := []pickup{}
	usedLeft := false

	nparams := p.NumParams()

	refinementOff := false // inside an unused refinement's argument group

	for f.param = 1; f.param <= nparams; f.param++ {
		ts := p.Param(f.param)
		slot := &f.args[f.param-1]
		f.arg = f.param - 1

		class := ts.ParamClass()

		if class == ParamRefinement {
			refinementOff = false

			use, deferIt := takeRefinement(ts.word, &requested)

			switch {
			case deferIt:
				// Named out of order: fill later, when the
				// parameter walk has passed the earlier names.
				pickups = append(pickups, pickup{param: f.param, arg: f.arg})

				used := Logic(true)
				slot.Copy(&used)

				refinementOff = true // group filled at pickup time
			case use:
				used := Logic(true)
				slot.Copy(&used)
			default:
				blank := Blank()
				slot.Copy(&blank)

				refinementOff = true
			}

			continue
		}

		if class == ParamLocal {
			void := Void()
			slot.Copy(&void)

			continue
		}

		if refinementOff {
			// Argument of an unused (or deferred) refinement.
			blank := Blank()
			slot.Copy(&blank)

			continue
		}

		if ts.ParamVariadic() {
			feed := rt.frameFeed(f, f.param, class)
			slot.Copy(&feed)

			continue
		}

		if fn.HasFlag(FlagEnfixed) && !usedLeft {
			usedLeft = true

			if left == nil {
				w := labelCell(label)

				return rt.Fail(out, ErrExpectedArg, &w)
			}

			slot.Copy(left)

			if sig := rt.checkArg(f, ts, slot, label, out); sig != SigOK {
				return sig
			}

			continue
		}

		if sig := rt.fulfillArg(f, ts, slot, label, out, class); sig != SigOK {
			return sig
		}
	}

	if len(requested) != 0 {
		w := Word(requested[0])

		return rt.Fail(out, ErrBadRefine, &w)
	}

	// Deferred refinement groups fill now, in the order named.
	if len(pickups) > 0 {
		f.flags |= FrameDoingPickups

		for _, pk := range pickups {
			for i := pk.param + 1; i <= nparams; i++ {
				ts := p.Param(i)

				class := ts.ParamClass()
				if class == ParamRefinement || class == ParamLocal {
					break
				}

				f.param, f.arg = i, i-1

				if sig := rt.fulfillArg(f, ts, &f.args[i-1], label, out, class); sig != SigOK {
					return sig
				}
			}
		}

		f.flags &^= FrameDoingPickups
	}

	// Dispatch: the param cursor rests at the end sentinel.
	f.param = nparams + 1
	f.flags &^= FrameFulfilling
	f.flags |= FrameDispatching

	out.Prep()

	var sig Signal
	if info.dispatch != nil {
		sig = info.dispatch(rt, f)
	} else {
		sig = rt.Do(info.body, 0, f.varlist, out)
	}

	if sig != SigOK {
		return sig
	}

	if out.IsEnd() {
		if debug {
			panic("function returned without writing its output slot")
		}

		void := Void()
		out.Copy(&void)
	}

	return SigOK
}

// takeRefinement decides how the refinement canon w is treated given the
// names requested by the caller. It reports use and whether fulfillment
// must be deferred because an earlier requested name is still pending.
func takeRefinement(w *sym.T, requested *[]*sym.T) (use, deferIt bool) {
	for i, name := range *requested {
		if name != w {
			continue
		}

		*requested = append((*requested)[:i], (*requested)[i+1:]...)

		return true, i != 0
	}

	return false, false
}

// fulfillArg fills one argument slot from the frame's input according to
// the parameter class, then type-checks it.
func (rt *Runtime) fulfillArg(f *Frame, ts *Cell, slot *Cell, label *sym.T, out *Cell, class ParamClass) Signal {
	switch class {
	case ParamHardQuote:
		if f.AtEnd() {
			w := paramCell(ts)

			return rt.Fail(out, ErrExpectedArg, &w)
		}

		slot.Copy(f.Head())
		slot.SetFlag(FlagUnevaluated)
		f.Advance()

	case ParamSoftQuote:
		if f.AtEnd() || f.Head().Kind() == KindBar {
			w := paramCell(ts)

			return rt.Fail(out, ErrExpectedArg, &w)
		}

		v := f.Head()

		switch v.Kind() {
		case KindGroup, KindGetWord, KindGetPath:
			if sig := rt.evalArg(f, slot, true); sig != SigOK {
				rt.relayThrow(slot, out)

				return sig
			}
		default:
			slot.Copy(v)
			slot.SetFlag(FlagUnevaluated)
			f.Advance()
		}

	case ParamNormal, ParamTight:
		if f.AtEnd() || argInputEnded(rt, f, class) {
			w := paramCell(ts)

			return rt.Fail(out, ErrExpectedArg, &w)
		}

		if sig := rt.evalArg(f, slot, class == ParamTight); sig != SigOK {
			rt.relayThrow(slot, out)

			return sig
		}

		if slot.IsEnd() {
			w := paramCell(ts)

			return rt.Fail(out, ErrExpectedArg, &w)
		}

	default:
		panic("parameter class unhandled in fulfillment")
	}

	return rt.checkArg(f, ts, slot, label, out)
}

// argInputEnded reports the deferred-operator and barrier conditions that
// make the feed read as exhausted for this argument: a literal barrier, a
// deferred infix word (normal class), or any infix word (tight class).
func argInputEnded(rt *Runtime, f *Frame, class ParamClass) bool {
	v := f.Head()

	if v.Kind() == KindBar {
		return true
	}

	if v.Kind() != KindWord {
		return false
	}

	slot, errid := GetVar(v, f.specifier)
	if errid != "" || slot.Kind() != KindFunction || !slot.HasFlag(FlagEnfixed) {
		return false
	}

	if class == ParamTight {
		return true
	}

	return slot.HasFlag(FlagDeferred)
}

// evalArg evaluates one expression from the frame input into slot with
// the fulfilling-arg flag set so deferred infix is left for the caller.
func (rt *Runtime) evalArg(f *Frame, slot *Cell, noLookahead bool) Signal {
	f.flags |= FrameFulfillingArg
	defer func() { f.flags &^= FrameFulfillingArg }()

	slot.Prep()

	return rt.evalExpression(f, slot, noLookahead)
}

// relayThrow moves a throw that landed in an argument slot to the frame
// output so propagation follows the output-slot discipline.
func (rt *Runtime) relayThrow(slot, out *Cell) {
	if Thrown(slot) {
		out.Copy(slot)
		out.SetFlag(FlagThrown)
		slot.Prep()
	}
}

// checkArg type-checks a filled argument slot against its typeset.
func (rt *Runtime) checkArg(f *Frame, ts *Cell, slot *Cell, label *sym.T, out *Cell) Signal {
	if slot.Kind() == KindVarargs {
		return SigOK
	}

	if !ts.TypesetHas(slot.Kind()) {
		w := paramCell(ts)
		l := labelCell(label)

		return rt.Fail(out, ErrArgType, &w, &l, slot)
	}

	return SigOK
}

func paramCell(ts *Cell) Cell {
	return Word(ts.word)
}

func labelCell(label *sym.T) Cell {
	if label == nil {
		return Blank()
	}

	return Word(label)
}

// evalPath evaluates a path: the head resolves, then each selector picks
// into the value. A function head turns the remaining words into
// refinement requests.
func (rt *Runtime) evalPath(f *Frame, out *Cell, v *Cell) Signal {
	path := v.ser

	if path.Len() == 0 {
		p := *v

		return rt.Fail(out, ErrBadPath, &p)
	}

	head := path.At(0)
	if !head.IsAnyWord() {
		p := *v

		return rt.Fail(out, ErrBadPath, &p)
	}

	slot, errid := GetVar(head, f.specifier)
	if errid != "" {
		w := Word(head.word)

		return rt.Fail(out, errid, &w)
	}

	if slot.Kind() == KindFunction && v.Kind() != KindGetPath {
		refines := make([]*sym.T, 0, path.Len()-1)

		for i, n := 1, path.Len(); i < n; i++ {
			sel := path.At(i)
			if !sel.IsAnyWord() {
				p := *v

				return rt.Fail(out, ErrBadPath, &p)
			}

			refines = append(refines, sel.word)
		}

		f.Advance()

		return rt.invoke(f, out, slot, head.word, nil, refines)
	}

	f.scratch.Prep()
	f.scratch.Copy(slot)

	for i, n := 1, path.Len(); i < n; i++ {
		if sig := rt.pickInto(&f.scratch, path.At(i), out); sig != SigOK {
			return sig
		}
	}

	out.Copy(&f.scratch)
	f.Advance()

	return SigOK
}

// evalSetPath evaluates the right-hand expression and pokes it into the
// location the path designates.
func (rt *Runtime) evalSetPath(f *Frame, out *Cell, v *Cell) Signal {
	path := v.ser

	if path.Len() < 2 {
		p := *v

		return rt.Fail(out, ErrBadPath, &p)
	}

	set := *v

	f.Advance()

	if f.AtEnd() {
		p := set

		return rt.Fail(out, ErrNeedNonEnd, &p)
	}

	if sig := rt.evalExpression(f, out, false); sig != SigOK {
		return sig
	}

	head := path.At(0)
	if !head.IsAnyWord() {
		p := set

		return rt.Fail(out, ErrBadPath, &p)
	}

	slot, errid := GetVar(head, f.specifier)
	if errid != "" {
		w := Word(head.word)

		return rt.Fail(out, errid, &w)
	}

	f.scratch.Prep()
	f.scratch.Copy(slot)

	for i, n := 1, path.Len()-1; i < n; i++ {
		if sig := rt.pickInto(&f.scratch, path.At(i), out); sig != SigOK {
			return sig
		}
	}

	return rt.pokeInto(&f.scratch, path.At(path.Len()-1), out)
}

// pickInto replaces *target with target's element selected by sel.
func (rt *Runtime) pickInto(target *Cell, sel *Cell, out *Cell) Signal {
	switch target.Kind() {
	case KindObject, KindError, KindModule, KindFrame:
		if !sel.IsAnyWord() {
			s := *sel

			return rt.Fail(out, ErrBadPath, &s)
		}

		i := target.ser.FindField(sel.word)
		if i == 0 {
			w := Word(sel.word)

			return rt.Fail(out, ErrBadPath, &w)
		}

		v := *target.ser.Slot(i)
		target.Copy(&v)

		return SigOK

	case KindMap:
		v := target.ser.MapGet(sel)
		if v == nil {
			blank := Blank()
			target.Copy(&blank)

			return SigOK
		}

		picked := *v
		target.Copy(&picked)

		return SigOK
	}

	if target.IsAnySeries() && sel.Kind() == KindInteger {
		return rt.pickSeries(target, int(sel.Int()), out)
	}

	s := *sel

	return rt.Fail(out, ErrBadPath, &s)
}

// pokeInto assigns the frame output value through the final path selector.
func (rt *Runtime) pokeInto(target *Cell, sel *Cell, out *Cell) Signal {
	switch target.Kind() {
	case KindObject, KindModule, KindFrame:
		if !sel.IsAnyWord() {
			s := *sel

			return rt.Fail(out, ErrBadPath, &s)
		}

		i := target.ser.FindField(sel.word)
		if i == 0 {
			w := Word(sel.word)

			return rt.Fail(out, ErrBadPath, &w)
		}

		target.ser.Slot(i).Copy(out)

		return SigOK

	case KindMap:
		target.ser.MapSet(sel, out)

		return SigOK
	}

	if target.IsAnySeries() && sel.Kind() == KindInteger {
		return rt.pokeSeries(target, int(sel.Int()), out, out)
	}

	s := *sel

	return rt.Fail(out, ErrBadPath, &s)
}
