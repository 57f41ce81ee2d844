// Released under an MIT license. See LICENSE.

package core

import "testing"

func libValue(t *testing.T, rt *Runtime, name string) Cell {
	t.Helper()

	v := rt.Lib()

	i := v.FindField(rt.Intern(name))
	if i == 0 {
		t.Fatalf("library has no %q", name)
	}

	return *v.Slot(i)
}

func libWord(rt *Runtime, name string) Cell {
	w := Word(rt.Intern(name))
	BindWord(&w, rt.Lib())

	return w
}

func testArray(rt *Runtime, vals ...Cell) *Series {
	s := rt.AllocArray(len(vals))

	for i := range vals {
		s.Append(&vals[i])
	}

	return s
}

func TestDoVaAdd(t *testing.T) {
	rt := NewRuntime()

	add := libValue(t, rt, "add")

	var out Cell

	if sig := rt.DoVa(&out, add, Integer(1), Integer(2)); sig != SigOK {
		t.Fatalf("add failed: %s", rt.Mold(&out))
	}

	if out.Int() != 3 {
		t.Fatalf("add 1 2 = %d", out.Int())
	}
}

func TestDoVaEnfix(t *testing.T) {
	rt := NewRuntime()

	var out Cell

	sig := rt.DoVa(&out,
		Integer(1), libWord(rt, "+"), Integer(2), libWord(rt, "*"), Integer(3))
	if sig != SigOK {
		t.Fatalf("eval failed: %s", rt.Mold(&out))
	}

	// Infix evaluation is strictly left to right.
	if out.Int() != 9 {
		t.Fatalf("1 + 2 * 3 = %d, want 9", out.Int())
	}
}

func TestDoVaComparison(t *testing.T) {
	rt := NewRuntime()

	var out Cell

	sig := rt.DoVa(&out, Integer(2), libWord(rt, "<"), Integer(3))
	if sig != SigOK {
		t.Fatalf("eval failed: %s", rt.Mold(&out))
	}

	if out.Kind() != KindLogic || !out.Bool() {
		t.Fatalf("2 < 3 = %s", rt.Mold(&out))
	}
}

func TestVariadicSum(t *testing.T) {
	rt := NewRuntime()

	sum := libValue(t, rt, "sum")

	var out Cell

	if sig := rt.DoVa(&out, sum, Integer(1), Integer(2), Integer(3)); sig != SigOK {
		t.Fatalf("sum failed: %s", rt.Mold(&out))
	}

	if out.Int() != 6 {
		t.Fatalf("sum 1 2 3 = %d", out.Int())
	}
}

// A deferred infix operator lets a preceding variadic finish first: the
// sum absorbs 1 2 3, then + applies to the sum's result.
func TestVariadicSumDefersInfix(t *testing.T) {
	rt := NewRuntime()

	sum := libValue(t, rt, "sum")

	var out Cell

	sig := rt.DoVa(&out,
		sum, Integer(1), Integer(2), Integer(3), libWord(rt, "+"), Integer(4))
	if sig != SigOK {
		t.Fatalf("eval failed: %s", rt.Mold(&out))
	}

	if out.Int() != 10 {
		t.Fatalf("sum 1 2 3 + 4 = %d, want 10", out.Int())
	}
}

func TestVariadicSumStopsAtBar(t *testing.T) {
	rt := NewRuntime()

	sum := libValue(t, rt, "sum")

	var out Cell

	sig := rt.DoVa(&out, sum, Integer(1), Integer(2), Bar())
	if sig != SigOK {
		t.Fatalf("eval failed: %s", rt.Mold(&out))
	}

	if out.Int() != 3 {
		t.Fatalf("sum 1 2 | = %d, want 3", out.Int())
	}
}

func TestQuoteTakesLiterally(t *testing.T) {
	rt := NewRuntime()

	quote := libValue(t, rt, "quote")

	var out Cell

	sig := rt.DoVa(&out, quote, Word(rt.Intern("zork")))
	if sig != SigOK {
		t.Fatalf("quote failed: %s", rt.Mold(&out))
	}

	if out.Kind() != KindWord || out.Canon().Name() != "zork" {
		t.Fatalf("quote zork = %s", rt.Mold(&out))
	}
}

func TestEitherPicksBranch(t *testing.T) {
	rt := NewRuntime()

	either := libValue(t, rt, "either")

	yes := Block(testArray(rt, Integer(1)))
	no := Block(testArray(rt, Integer(2)))

	var out Cell

	if sig := rt.DoVa(&out, either, Logic(false), yes, no); sig != SigOK {
		t.Fatalf("either failed: %s", rt.Mold(&out))
	}

	if out.Int() != 2 {
		t.Fatalf("either false [1] [2] = %d", out.Int())
	}
}

func TestSetWordAssigns(t *testing.T) {
	rt := NewRuntime()

	s := testArray(rt,
		WordKind(KindSetWord, rt.Intern("x")), Integer(5), Word(rt.Intern("x")))

	rt.Bind(s, rt.Lib(), true)

	var out Cell

	if sig := rt.Do(s, 0, nil, &out); sig != SigOK {
		t.Fatalf("eval failed: %s", rt.Mold(&out))
	}

	if out.Int() != 5 {
		t.Fatalf("x: 5 x = %d", out.Int())
	}
}

func TestSetWordNeedsValue(t *testing.T) {
	rt := NewRuntime()

	s := testArray(rt, WordKind(KindSetWord, rt.Intern("x")))
	rt.Bind(s, rt.Lib(), true)

	var out Cell

	if sig := rt.Do(s, 0, nil, &out); sig != SigThrown {
		t.Fatal("assignment from nothing did not fail")
	}

	if !IsFailure(&out) || out.ErrorID() != ErrNeedNonEnd {
		t.Fatalf("unexpected failure: %s", rt.Mold(&out))
	}
}

func TestUnboundWordFails(t *testing.T) {
	rt := NewRuntime()

	s := testArray(rt, Word(rt.Intern("no-such-thing")))

	var out Cell

	if sig := rt.Do(s, 0, nil, &out); sig != SigThrown {
		t.Fatal("unbound word did not fail")
	}

	if !IsFailure(&out) {
		t.Fatalf("unexpected throw: %s", rt.Mold(&out))
	}

	rt.Catch(&out)
}

func TestGroupEvaluates(t *testing.T) {
	rt := NewRuntime()

	inner := testArray(rt, libWord(rt, "add"), Integer(2), Integer(3))
	s := testArray(rt, Group(inner))

	var out Cell

	if sig := rt.Do(s, 0, nil, &out); sig != SigOK {
		t.Fatalf("eval failed: %s", rt.Mold(&out))
	}

	if out.Int() != 5 {
		t.Fatalf("(add 2 3) = %d", out.Int())
	}
}

func TestArgTypeChecked(t *testing.T) {
	rt := NewRuntime()

	var params []Cell
	params = append(params,
		TypesetCell(rt.Intern("n"), KindBit(KindInteger), ParamNormal, 0))

	body := testArray(rt, Word(rt.Intern("n")))

	p := rt.MakeParamlist(params, &funcInfo{body: body})
	rt.BindRelative(body, p)
	rt.Heap.Manage(p)

	fn := Function(p)

	var out Cell

	if sig := rt.DoVa(&out, fn, Integer(1)); sig != SigOK || out.Int() != 1 {
		t.Fatalf("identity function failed: %s", rt.Mold(&out))
	}

	if sig := rt.DoVa(&out, fn, Logic(true)); sig != SigThrown {
		t.Fatal("type mismatch was not rejected")
	}

	if out.ErrorID() != ErrArgType {
		t.Fatalf("unexpected failure: %s", rt.Mold(&out))
	}
}
