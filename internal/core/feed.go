// Released under an MIT license. See LICENSE.

package core

// Variadic feeds. A varargs cell is a view onto evaluator input that is
// consumed, not indexed: taking from it advances the underlying cursor for
// every holder of the view.
//
// Frame-backed feeds read the feed of a live call frame; they go stale the
// moment that frame returns. Array-backed feeds read from a shared
// position holder, a singular array whose one element is the block being
// consumed, so every copy of the varargs cell observes the same progress.

// frameFeed builds the varargs cell for a variadic parameter of the frame
// f. The feed consumes the frame's own input under the parameter's class.
func (rt *Runtime) frameFeed(f *Frame, param int, class ParamClass) Cell {
	return Cell{
		kind:    KindVarargs,
		flags:   FlagWritable,
		binding: f.varlist,
		i:       int64(param) | int64(class)<<32,
	}
}

// MakeVarargs builds an array-backed feed over the block cell b. The
// position holder is allocated managed; copies of the result share it.
func (rt *Runtime) MakeVarargs(b *Cell, class ParamClass) Cell {
	holder := rt.AllocArray(1)

	at := holder.arrayExtend(1)
	holder.At(at).Copy(b)

	rt.Heap.Manage(holder)

	return Cell{
		kind:  KindVarargs,
		flags: FlagWritable,
		ser:   holder,
		i:     int64(class) << 32,
	}
}

func (c *Cell) feedClass() ParamClass {
	return ParamClass(c.i >> 32)
}

// feedFrame resolves a frame-backed varargs cell to its live frame. The
// empty error id means success.
func feedFrame(c *Cell) (*Frame, string) {
	v := c.binding
	if v == nil || v.flags&SFlagVarlist == 0 {
		return nil, ErrVarargsNoStack
	}

	if v.flags&SFlagFrameLive == 0 {
		return nil, ErrVarargsNoStack
	}

	f, ok := v.misc.(*Frame)
	if !ok {
		return nil, ErrVarargsNoStack
	}

	return f, ""
}

// feedPosition resolves an array-backed varargs cell to its shared
// position cell.
func feedPosition(c *Cell) *Cell {
	return c.ser.At(0)
}

// FeedTail reports whether the feed c is exhausted. Usable on any feed.
func (rt *Runtime) FeedTail(c *Cell, out *Cell) (bool, Signal) {
	if c.kind != KindVarargs {
		panic(c.kind.Name() + " cannot be used in a feed context")
	}

	if c.binding != nil {
		f, errid := feedFrame(c)
		if errid != "" {
			return false, rt.Fail(out, errid)
		}

		return f.AtEnd(), SigOK
	}

	pos := feedPosition(c)

	return pos.idx >= pos.ser.Len(), SigOK
}

// FeedFirst writes the next value of the feed to out without consuming
// it. Only a hard-quoting feed can look ahead; an evaluating feed cannot
// know its next value without consuming input.
func (rt *Runtime) FeedFirst(c *Cell, out *Cell) Signal {
	if c.feedClass() != ParamHardQuote {
		return rt.Fail(out, ErrVarargsNoLook)
	}

	done, sig := rt.FeedTail(c, out)
	if sig != SigOK {
		return sig
	}

	if done {
		e := End()
		out.Copy(&e)

		return SigOK
	}

	if c.binding != nil {
		f, _ := feedFrame(c)
		out.Copy(f.Head())

		return SigOK
	}

	pos := feedPosition(c)
	out.Copy(pos.ser.At(pos.idx))

	return SigOK
}

// FeedTake consumes one value from the feed into out. An evaluating feed
// runs the evaluator over the underlying input; a hard-quoting feed takes
// the next element literally. Taking from an exhausted feed yields end.
func (rt *Runtime) FeedTake(c *Cell, out *Cell) Signal {
	if c.kind != KindVarargs {
		panic(c.kind.Name() + " cannot be used in a feed context")
	}

	done, sig := rt.FeedTail(c, out)
	if sig != SigOK {
		return sig
	}

	if done {
		e := End()
		out.Copy(&e)

		return SigOK
	}

	if c.binding != nil {
		return rt.frameTake(c, out)
	}

	return rt.arrayTake(c, out)
}

// frameTake consumes from the live frame behind the feed. A feed take
// re-entering a frame already mid-take would interleave two cursors over
// one input, so it is refused.
func (rt *Runtime) frameTake(c *Cell, out *Cell) Signal {
	f, errid := feedFrame(c)
	if errid != "" {
		return rt.Fail(out, errid)
	}

	src := f.feedSrc()
	if src.flags&FrameVariadicTake != 0 {
		return rt.Fail(out, ErrRecursiveVarargs)
	}

	src.flags |= FrameVariadicTake
	defer func() { src.flags &^= FrameVariadicTake }()

	class := c.feedClass()

	if class == ParamHardQuote {
		out.Copy(f.Head())
		out.SetFlag(FlagUnevaluated)
		f.Advance()

		return SigOK
	}

	// A barrier, or an infix word the class would not consume, reads as
	// feed exhaustion: the enclosing expression takes over from here.
	if argInputEnded(rt, src, class) {
		e := End()
		out.Copy(&e)

		return SigOK
	}

	src.flags |= FrameFulfillingArg
	defer func() { src.flags &^= FrameFulfillingArg }()

	return rt.evalExpression(src, out, class == ParamTight)
}

// arrayTake consumes from the shared position of an array-backed feed.
func (rt *Runtime) arrayTake(c *Cell, out *Cell) Signal {
	pos := feedPosition(c)
	class := c.feedClass()

	if class == ParamHardQuote {
		out.Copy(pos.ser.At(pos.idx))
		out.SetFlag(FlagUnevaluated)
		pos.idx++

		return SigOK
	}

	f := rt.pushFrame(out, pos.ser, pos.idx, pos.binding)
	defer rt.dropFrame(f)

	if argInputEnded(rt, f, class) {
		e := End()
		out.Copy(&e)

		return SigOK
	}

	f.flags |= FrameFulfillingArg

	sig := rt.evalExpression(f, out, class == ParamTight)

	// Progress is published through the shared position even on unwind.
	pos.idx = f.index

	return sig
}
