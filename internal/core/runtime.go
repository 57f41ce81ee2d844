// Released under an MIT license. See LICENSE.

package core

import (
	"io"
	"os"

	"github.com/renlang/ren/internal/sym"
)

// Runtime is the single evaluator instance: the series heap, the symbol
// canons, the data stack, the frame stack, and the native table. All
// mutable interpreter state hangs off it; nothing in this package is a
// package-level mutable global.
type Runtime struct {
	Heap *Heap
	Syms *sym.Table

	// Stdout receives the output of the print native.
	Stdout io.Writer

	// ds is the data stack. Cells from the base up to the top are live
	// roots; anything past the top is stale noise the collector skips.
	ds []Cell

	// top is the innermost evaluator frame, or nil when idle.
	top *Frame

	// natives is the native function table, a startup-registered root.
	natives []*Series

	// ffiRoots pins series referenced only from foreign-bridge state,
	// reference counted so a pin is dropped when its holder is freed.
	ffiRoots map[*Series]int

	// lib is the user-visible context words bind into by default.
	lib *Series

	// portPending keeps device request references alive. Legacy root.
	portPending []*Series

	// thrownArg carries the paired argument of an in-flight throw. The
	// label travels in the output cell under FlagThrown.
	thrownArg Cell

	// callbackErr is the shared cell an FFI callback failure is trapped
	// into rather than unwinding through C frames.
	callbackErr Cell

	// astral substitutes representable codepoints for ones above 0xFFFF
	// when decoding UTF-8. Without it, astral input is an error.
	astral AstralHandler

	booted bool
}

// SetAstralHandler registers the substitution applied to codepoints above
// 0xFFFF during UTF-8 decoding. Passing nil restores the default, which
// rejects them.
func (rt *Runtime) SetAstralHandler(h AstralHandler) {
	rt.astral = h
}

// NewRuntime creates a runtime, boots the symbol table, the lib context,
// and the native table.
func NewRuntime() *Runtime {
	rt := &Runtime{
		Heap:     NewHeap(),
		Syms:     sym.NewTable(),
		Stdout:   os.Stdout,
		ffiRoots: map[*Series]int{},
	}

	rt.callbackErr.Prep()

	lib := rt.AllocVarlist(KindObject, 0)
	rt.Heap.Manage(lib)
	rt.Heap.Manage(lib.Link())
	rt.lib = lib

	bootNatives(rt)

	rt.booted = true

	return rt
}

// Lib returns the default binding context.
func (rt *Runtime) Lib() *Series {
	return rt.lib
}

// Allocation. Every entry point gives the collector a chance to run
// before a node is created, so a fresh node can never be swept by the
// pass its own allocation triggered.

func (rt *Runtime) maybeRecycle() {
	if rt.Heap.ballast <= 0 && !rt.Heap.recycling {
		rt.Recycle()
	}
}

// AllocArray allocates an unmanaged, terminated cell array.
func (rt *Runtime) AllocArray(capHint int) *Series {
	rt.maybeRecycle()

	return rt.Heap.newNode(widthCell, capHint)
}

// AllocString allocates an unmanaged narrow string series.
func (rt *Runtime) AllocString(capHint int) *Series {
	rt.maybeRecycle()

	return rt.Heap.newNode(WidthByte, capHint)
}

// AllocBinary allocates an unmanaged byte series.
func (rt *Runtime) AllocBinary(capHint int) *Series {
	rt.maybeRecycle()

	return rt.Heap.newNode(WidthByte, capHint)
}

// AllocQuads allocates an unmanaged width-4 series (hashlists).
func (rt *Runtime) AllocQuads(capHint int) *Series {
	rt.maybeRecycle()

	return rt.Heap.newNode(WidthQuad, capHint)
}

// AllocPairing allocates an unmanaged two-cell node.
func (rt *Runtime) AllocPairing() *Series {
	rt.maybeRecycle()

	return rt.Heap.newPairing()
}

// Data stack.

// DSDepth returns the data stack depth.
func (rt *Runtime) DSDepth() int {
	return len(rt.ds)
}

// DSPush copies v onto the data stack and returns its position.
func (rt *Runtime) DSPush(v *Cell) int {
	rt.ds = append(rt.ds, Cell{})
	top := len(rt.ds) - 1
	rt.ds[top].Prep()
	rt.ds[top].Copy(v)

	return top
}

// DSAt returns a pointer to the data stack cell at position i.
func (rt *Runtime) DSAt(i int) *Cell {
	return &rt.ds[i]
}

// DSDrop pops the data stack back to depth.
func (rt *Runtime) DSDrop(depth int) {
	if depth > len(rt.ds) {
		panic("data stack shallower than recorded depth")
	}

	rt.ds = rt.ds[:depth]
}

// Frame stack.

// Top returns the innermost frame, or nil when the evaluator is idle.
func (rt *Runtime) Top() *Frame {
	return rt.top
}

// Intern is shorthand for interning a spelling in the runtime's table.
func (rt *Runtime) Intern(s string) *sym.T {
	return rt.Syms.Intern(s)
}

// AddFFIRoot pins s as a collector root while foreign-bridge state holds
// a reference to it that the collector cannot see.
func (rt *Runtime) AddFFIRoot(s *Series) {
	rt.ffiRoots[s]++
}

// ReleaseFFIRoot drops one pin on s.
func (rt *Runtime) ReleaseFFIRoot(s *Series) {
	if rt.ffiRoots[s] <= 1 {
		delete(rt.ffiRoots, s)

		return
	}

	rt.ffiRoots[s]--
}
