// Released under an MIT license. See LICENSE.

package core

import (
	"github.com/renlang/ren/internal/sym"
)

// FrameFlag holds a frame's state bits.
type FrameFlag uint16

const (
	// FrameFulfilling is set while arguments are being gathered. When
	// dispatch begins the param cursor sits at the end sentinel.
	FrameFulfilling FrameFlag = 1 << iota

	// FrameDispatching is set while the function body or native runs.
	FrameDispatching

	// FrameApplying marks a frame invoked with pre-built arguments.
	FrameApplying

	// FrameDoingPickups is set while deferred refinement arguments are
	// being filled. Every argument slot has been initialized by then.
	FrameDoingPickups

	// FrameNoLookahead disables infix lookahead for the next evaluation.
	FrameNoLookahead

	// FrameFulfillingArg is set while one argument is being evaluated.
	FrameFulfillingArg

	// FrameVariadicTake is set while a feed take is consuming through
	// this frame.
	FrameVariadicTake
)

// VaInput is a non-restartable stream of values handed to the evaluator by
// a host caller. Before the collector can walk a frame fed this way, the
// remaining values are reified into an owned array.
type VaInput struct {
	vals []Cell
	pos  int
}

// NewVaInput wraps vals as variadic evaluator input.
func NewVaInput(vals ...Cell) *VaInput {
	return &VaInput{vals: vals}
}

// Frame is one active or fulfilling function call: the source cursor, the
// caller-designated output cell, the argument block, and the parameter
// cursor. Frames form a strict LIFO chain through prior.
type Frame struct {
	prior *Frame

	// Input: either an array cursor or a variadic host input. The va
	// form is reified to an array before any collection. A function-call
	// frame delegates its input to the caller's cursor instead.
	array *Series
	index int
	va    *VaInput
	input *Frame

	// specifier resolves relative bindings: nil for specified code, or
	// the varlist of the context the code executes within.
	specifier *Series

	// out is whatever memory the caller designated. While the frame is
	// on the stack the collector treats it as a root.
	out *Cell

	original *Series // paramlist of the invoked function
	phase    *Series // paramlist currently dispatching

	// varlist owns the argument cells; args aliases its slots.
	varlist *Series
	args    []Cell

	param int // next parameter to fill (1-based); past end when dispatching
	arg   int // next argument slot (0-based into args)

	flags FrameFlag
	label *sym.T

	scratch Cell

	guardDepth int
	dsDepth    int
}

// pushFrame makes f the innermost frame, recording unwind depths.
func (rt *Runtime) pushFrame(out *Cell, array *Series, index int, specifier *Series) *Frame {
	f := &Frame{
		prior:      rt.top,
		array:      array,
		index:      index,
		specifier:  specifier,
		out:        out,
		guardDepth: rt.Heap.GuardDepth(),
		dsDepth:    rt.DSDepth(),
	}

	f.scratch.Prep()

	rt.top = f

	return f
}

// dropFrame pops f, restoring the guard and data stacks to their depth at
// frame entry. A frame being unwound releases everything it pushed.
func (rt *Runtime) dropFrame(f *Frame) {
	if rt.top != f {
		panic("frame stack popped out of order")
	}

	rt.Heap.TrimGuards(f.guardDepth)
	rt.DSDrop(f.dsDepth)

	if f.varlist != nil {
		// The varlist may outlive the frame (feeds, words bound into
		// it). It is no longer on the stack.
		f.varlist.flags &^= SFlagFrameLive
		f.varlist.misc = nil
	}

	rt.top = f.prior
}

// Prior returns the enclosing frame, or nil at the base.
func (f *Frame) Prior() *Frame {
	return f.prior
}

// Out returns the frame's output cell.
func (f *Frame) Out() *Cell {
	return f.out
}

// Label returns the invocation label, or nil.
func (f *Frame) Label() *sym.T {
	return f.label
}

// Specifier returns the frame's binding specifier, or nil.
func (f *Frame) Specifier() *Series {
	return f.specifier
}

// feedSrc returns the frame whose cursor this frame consumes: itself, or
// the caller it delegates to.
func (f *Frame) feedSrc() *Frame {
	for f.input != nil {
		f = f.input
	}

	return f
}

// AtEnd returns true when the frame's input is exhausted.
func (f *Frame) AtEnd() bool {
	f = f.feedSrc()

	if f.va != nil {
		return f.va.pos >= len(f.va.vals)
	}

	return f.array == nil || f.index >= f.array.Len()
}

// Head returns the value at the frame's cursor, or the end sentinel.
func (f *Frame) Head() *Cell {
	if f.AtEnd() {
		return &endArchetype
	}

	f = f.feedSrc()

	if f.va != nil {
		return &f.va.vals[f.va.pos]
	}

	return f.array.At(f.index)
}

// Advance moves the cursor past the current value.
func (f *Frame) Advance() {
	if f.AtEnd() {
		panic("advance past end of frame input")
	}

	f = f.feedSrc()

	if f.va != nil {
		f.va.pos++

		return
	}

	f.index++
}

// Reify copies a frame's remaining variadic input into a freshly managed
// array and rewrites the frame to source from it. Idempotent; a no-op for
// array-fed frames. Must happen before the collector walks the frame.
func (rt *Runtime) Reify(f *Frame) {
	f = f.feedSrc()

	if f.va == nil {
		return
	}

	rest := f.va.vals[f.va.pos:]

	a := rt.AllocArray(len(rest))
	a.flags |= SFlagVoidsLegal

	at := a.arrayExtend(len(rest))
	for i := range rest {
		a.At(at + i).Copy(&rest[i])
	}

	rt.Heap.Manage(a)

	f.array = a
	f.index = 0
	f.va = nil
}

// allocFrameVarlist builds the argument block for an invocation of the
// paramlist p: a varlist whose keylist is p itself, flagged live on the
// call stack.
func (rt *Runtime) allocFrameVarlist(f *Frame, p *Series) {
	n := p.NumParams()

	v := rt.AllocArray(n + 1)
	v.flags |= SFlagVarlist | SFlagVoidsLegal | SFlagFrameLive

	v.arrayExtend(n + 1)

	arch := Cell{kind: KindFrame, flags: FlagWritable, ser: v, ext: p}
	v.At(0).Copy(&arch)

	v.link = p
	v.misc = f

	rt.Heap.Manage(v)

	f.varlist = v
	f.args = v.cells[1 : n+1]
}

// Arg returns argument slot i (0-based).
func (f *Frame) Arg(i int) *Cell {
	return &f.args[i]
}

// ArgFor returns the argument slot for the parameter canon, or nil.
func (f *Frame) ArgFor(name *sym.T) *Cell {
	if f.phase == nil {
		return nil
	}

	for i, n := 1, f.phase.Len(); i < n; i++ {
		if f.phase.At(i).word == name {
			return &f.args[i-1]
		}
	}

	return nil
}

// Varlist returns the frame's argument varlist, or nil before invocation.
func (f *Frame) Varlist() *Series {
	return f.varlist
}

// fulfilling reports whether the frame is still gathering arguments.
func (f *Frame) fulfilling() bool {
	return f.flags&FrameFulfilling != 0
}
