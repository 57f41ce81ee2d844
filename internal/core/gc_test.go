// Released under an MIT license. See LICENSE.

package core

import "testing"

func TestRecycleFreesUnreachable(t *testing.T) {
	rt := NewRuntime()

	rt.Recycle()

	for i := 0; i < 100; i++ {
		s := rt.AllocArray(4)
		rt.Heap.Manage(s)
	}

	if n := rt.Recycle(); n < 100 {
		t.Fatalf("recycled %d series, want at least 100", n)
	}
}

func TestRecycleKeepsGuarded(t *testing.T) {
	rt := NewRuntime()

	s := rt.AllocArray(4)

	v := Integer(42)
	s.Append(&v)

	rt.Heap.Manage(s)
	rt.Heap.Guard(s)

	defer rt.Heap.Unguard(s)

	rt.Recycle()

	if s.Inaccessible() {
		t.Fatal("guarded series was collected")
	}

	if s.At(0).Int() != 42 {
		t.Fatal("guarded series lost content")
	}
}

func TestRecycleKeepsUnmanaged(t *testing.T) {
	rt := NewRuntime()

	s := rt.AllocArray(4)

	rt.Recycle()

	if s.Inaccessible() {
		t.Fatal("unmanaged series was collected")
	}
}

func TestRecycleTransitive(t *testing.T) {
	rt := NewRuntime()

	inner := rt.AllocArray(1)

	v := Integer(7)
	inner.Append(&v)
	rt.Heap.Manage(inner)
	rt.Heap.Guard(inner)

	outer := rt.AllocArray(1)

	c := Block(inner)
	outer.Append(&c)
	rt.Heap.Manage(outer)

	rt.Heap.Guard(outer)
	rt.Heap.Unguard(inner)

	defer rt.Heap.Unguard(outer)

	rt.Recycle()

	if inner.Inaccessible() {
		t.Fatal("series reachable through a kept array was collected")
	}

	if outer.At(0).Series().At(0).Int() != 7 {
		t.Fatal("content lost through collection")
	}
}

func TestRecycleIdempotent(t *testing.T) {
	rt := NewRuntime()

	rt.Recycle()

	if n := rt.Recycle(); n != 0 {
		t.Fatalf("second collection with stable roots freed %d series", n)
	}
}

// TestRecycleDeepNesting exercises the mark queue. Marking recurses
// through data, not the Go stack, so depth is limited by memory only.
func TestRecycleDeepNesting(t *testing.T) {
	rt := NewRuntime()

	rt.Recycle()

	const depth = 200000

	cur := rt.AllocArray(1)
	rt.Heap.Guard(cur)

	v := Integer(1)
	cur.Append(&v)
	rt.Heap.Manage(cur)

	for i := 0; i < depth; i++ {
		parent := rt.AllocArray(1)

		c := Block(cur)
		parent.Append(&c)
		rt.Heap.Manage(parent)

		rt.Heap.Unguard(cur)
		rt.Heap.Guard(parent)

		cur = parent
	}

	defer rt.Heap.Unguard(cur)

	if n := rt.Recycle(); n != 0 {
		t.Fatalf("collection freed %d series of a fully reachable chain", n)
	}

	// Walk back down to prove every level survived.
	c := Block(cur)
	for i := 0; i < depth; i++ {
		s := c.Series()
		if s.Inaccessible() {
			t.Fatalf("level %d was collected", i)
		}

		c = *s.At(0)
	}

	if c.Int() != 1 {
		t.Fatal("leaf value lost")
	}
}

func TestRecycleDropsDeepChainWhenUnrooted(t *testing.T) {
	rt := NewRuntime()

	rt.Recycle()

	const depth = 10000

	cur := rt.AllocArray(1)
	rt.Heap.Guard(cur)
	rt.Heap.Manage(cur)

	for i := 0; i < depth; i++ {
		parent := rt.AllocArray(1)

		c := Block(cur)
		parent.Append(&c)
		rt.Heap.Manage(parent)

		rt.Heap.Unguard(cur)
		rt.Heap.Guard(parent)

		cur = parent
	}

	rt.Heap.Unguard(cur)

	if n := rt.Recycle(); n < depth {
		t.Fatalf("recycled %d series, want at least %d", n, depth)
	}
}

func TestGuardCell(t *testing.T) {
	rt := NewRuntime()

	s := rt.AllocArray(1)
	rt.Heap.Manage(s)

	c := Block(s)
	rt.Heap.GuardCell(&c)

	defer rt.Heap.UnguardCell(&c)

	rt.Recycle()

	if s.Inaccessible() {
		t.Fatal("series guarded through a cell was collected")
	}
}
