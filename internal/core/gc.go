// Released under an MIT license. See LICENSE.

package core

// The garbage collector. Precise, non-moving mark and sweep over the
// series node pool. Marking is queue-driven: reaching a series pushes it
// onto a work list instead of recursing, so arbitrarily deep structures
// collect in constant Go stack.
//
// Unmanaged series have manual lifetimes and are never swept; the guard
// stack keeps them (and any cells they reference) alive across the window
// between allocation and management.

// Recycle runs a full collection and returns the number of managed nodes
// reclaimed. A collection requested while one is running is coalesced
// into the running pass.
func (rt *Runtime) Recycle() int {
	h := rt.Heap

	if h.recycling {
		h.pending = true

		return 0
	}

	h.recycling = true
	defer func() { h.recycling = false }()

	// Throws travel in frame output cells; the thrown bit doubles as a
	// "do not collect" interlock because the paired argument is only
	// loosely rooted while in flight.
	for f := rt.top; f != nil; f = f.prior {
		if f.out != nil && Thrown(f.out) {
			panic("collection while a throw is in flight")
		}
	}

	// Variadic host input is unowned Go memory. Reify it into arrays so
	// the frame walk below roots it like any other input.
	for f := rt.top; f != nil; f = f.prior {
		rt.Reify(f)
	}

	rt.markRoots()
	h.drainMarks()

	freed := h.sweep()

	h.ballast = h.ballastInit
	h.pending = false

	return freed
}

func (rt *Runtime) markRoots() {
	h := rt.Heap

	for i := range h.guards {
		g := &h.guards[i]
		if g.series != nil {
			h.queueSeries(g.series)
		}

		if g.cell != nil {
			h.markCell(g.cell)
		}
	}

	for i := range rt.ds {
		h.markCell(&rt.ds[i])
	}

	for f := rt.top; f != nil; f = f.prior {
		if f.out != nil {
			h.markCell(f.out)
		}

		h.queueSeries(f.array)
		h.queueSeries(f.specifier)
		h.queueSeries(f.varlist)
		h.queueSeries(f.original)
		h.queueSeries(f.phase)
		h.markCell(&f.scratch)
	}

	for _, r := range h.apiRoots {
		h.queueSeries(r)
	}

	for _, n := range rt.natives {
		h.queueSeries(n)
	}

	for s := range rt.ffiRoots {
		h.queueSeries(s)
	}

	h.queueSeries(rt.lib)

	for _, p := range rt.portPending {
		h.queueSeries(p)
	}

	h.markCell(&rt.thrownArg)
	h.markCell(&rt.callbackErr)
}

// markCell queues every series a cell references. Bindings are weak for
// ownership but strong for reachability: a bound word must never outlive
// its context's node identity.
func (h *Heap) markCell(c *Cell) {
	h.queueSeries(c.ser)
	h.queueSeries(c.ext)
	h.queueSeries(c.binding)
}

// queueSeries adds s to the mark queue, setting the mark bit eagerly so a
// node is queued at most once.
func (h *Heap) queueSeries(s *Series) {
	if s == nil || s.flags&SFlagMarked != 0 {
		return
	}

	if s.flags&SFlagFreed != 0 {
		panic("reachable series node is freed; heap corrupt")
	}

	s.flags |= SFlagMarked
	h.marks = append(h.marks, s)
}

// drainMarks processes the mark queue to empty, tracing each node's cells
// and subclass slots.
func (h *Heap) drainMarks() {
	for len(h.marks) > 0 {
		top := len(h.marks) - 1
		s := h.marks[top]
		h.marks = h.marks[:top]

		h.queueSeries(s.link)

		switch m := s.misc.(type) {
		case *Series:
			h.queueSeries(m)
		case *funcInfo:
			h.queueSeries(m.body)
			h.queueSeries(m.meta)
			h.queueSeries(m.exemplar)
		case *Frame:
			// Live frame varlist; the frame itself is walked as a root.
		}

		if s.width != widthCell || s.Inaccessible() {
			continue
		}

		for i := range s.cells {
			h.markCell(&s.cells[i])
		}
	}
}

// sweep releases every managed, unmarked node, compacts the pool, and
// clears the mark bits of the survivors.
func (h *Heap) sweep() int {
	freed := 0
	kept := h.nodes[:0]

	for _, s := range h.nodes {
		switch {
		case s.flags&SFlagFreed != 0:
			// Manually freed since the last sweep; drop the husk.
		case s.flags&SFlagMarked != 0:
			s.flags &^= SFlagMarked
			kept = append(kept, s)
		case s.flags&SFlagManaged != 0:
			h.release(s)

			freed++
		default:
			// Unmanaged and unreached: a manual lifetime in progress.
			kept = append(kept, s)
		}
	}

	// Zero the tail so dropped nodes do not linger through the backing
	// array.
	for i := len(kept); i < len(h.nodes); i++ {
		h.nodes[i] = nil
	}

	h.nodes = kept

	return freed
}
