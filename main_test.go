// Released under an MIT license. See LICENSE.

package main

import (
	"testing"

	"github.com/renlang/ren/internal/core"
	"github.com/renlang/ren/internal/reader"
)

func eval(t *testing.T, rt *core.Runtime, src string) core.Cell {
	t.Helper()

	block, err := reader.New(rt, "test").Read(src)
	if err != nil {
		t.Fatalf("read %q: %v", src, err)
	}

	rt.Bind(block.Series(), rt.Lib(), true)

	var out core.Cell

	out.Prep()

	if sig := rt.Do(block.Series(), 0, nil, &out); sig != core.SigOK {
		rt.Catch(&out)
		t.Fatalf("eval %q: %s", src, rt.Mold(&out))
	}

	return out
}

func evalInt(t *testing.T, rt *core.Runtime, src string, want int64) {
	t.Helper()

	out := eval(t, rt, src)
	if out.Kind() != core.KindInteger || out.Int() != want {
		t.Errorf("eval %q = %s, want %d", src, rt.Mold(&out), want)
	}
}

func evalMold(t *testing.T, rt *core.Runtime, src, want string) {
	t.Helper()

	out := eval(t, rt, src)
	if got := rt.Mold(&out); got != want {
		t.Errorf("eval %q = %s, want %s", src, got, want)
	}
}

func TestArithmetic(t *testing.T) {
	rt := core.NewRuntime()

	evalInt(t, rt, "add 1 2", 3)
	evalInt(t, rt, "subtract 10 4", 6)
	evalInt(t, rt, "multiply 6 7", 42)
	evalInt(t, rt, "divide 8 2", 4)
	evalInt(t, rt, "1 + 2 * 3", 9)
	evalInt(t, rt, "10 - 2 - 3", 5)
}

func TestAssignment(t *testing.T) {
	rt := core.NewRuntime()

	evalInt(t, rt, "x: 42 x", 42)
	evalInt(t, rt, "x: 1 x: x + 1 x", 2)
	evalInt(t, rt, "set 'y 7 get 'y", 7)
}

func TestConditionals(t *testing.T) {
	rt := core.NewRuntime()

	evalInt(t, rt, "if 1 < 2 [10]", 10)
	evalInt(t, rt, "either 2 < 1 [10] [20]", 20)
	evalInt(t, rt, "i: 0 while [i < 5] [i: i + 1] i", 5)
}

func TestFunctions(t *testing.T) {
	rt := core.NewRuntime()

	evalInt(t, rt, "double: func [n] [n * 2] double 21", 42)
	evalInt(t, rt, "f: func [a b] [a + b] f 3 4", 7)
	evalInt(t, rt, "fib: func [n] [either n < 2 [n] [(fib n - 1) + (fib n - 2)]] fib 10", 55)
}

func TestVariadic(t *testing.T) {
	rt := core.NewRuntime()

	evalInt(t, rt, "sum 1 2 3", 6)

	// A deferred infix operator waits for the variadic to finish.
	evalInt(t, rt, "sum 1 2 3 + 4", 10)

	// A bar ends the feed; the rest evaluates on its own.
	evalInt(t, rt, "x: sum 1 2 | x", 3)
}

func TestThrowCatch(t *testing.T) {
	rt := core.NewRuntime()

	evalInt(t, rt, "catch [throw 7 99]", 7)

	out := eval(t, rt, `trap [fail "boom"]`)
	if out.Kind() != core.KindError || out.ErrorID() != "boom" {
		t.Fatalf("trapped = %s", rt.Mold(&out))
	}
}

func TestSeries(t *testing.T) {
	rt := core.NewRuntime()

	evalInt(t, rt, "b: [1 2] append b 3 length? b", 3)
	evalInt(t, rt, "pick [10 20 30] 2", 20)
	evalMold(t, rt, "pick [10] 5", "_")
	evalMold(t, rt, "sort [3 1 2]", "[1 2 3]")
	evalMold(t, rt, "sort/compare [1 3 2] func [a b] [a > b]", "[3 2 1]")
	evalInt(t, rt, "take [9 8]", 9)
}

func TestMakeAndTo(t *testing.T) {
	rt := core.NewRuntime()

	evalInt(t, rt, `to integer! "42"`, 42)
	evalMold(t, rt, "to string! 42", `"42"`)
	evalInt(t, rt, "o: make object! [a: 1 b: a + 1] o/b", 2)
	evalInt(t, rt, "o: make object! [a: 1] o/a: 5 o/a", 5)
	evalInt(t, rt, "m: make map! [x 1 y 2] m/y", 2)
}

func TestQuoteAndLiterals(t *testing.T) {
	rt := core.NewRuntime()

	evalMold(t, rt, "quote zork", "zork")
	evalMold(t, rt, "'lit", "lit")
	evalMold(t, rt, "[a b]", "[a b]")
}

func TestRecycleNative(t *testing.T) {
	rt := core.NewRuntime()

	out := eval(t, rt, "recycle")
	if out.Kind() != core.KindInteger {
		t.Fatalf("recycle = %s", rt.Mold(&out))
	}

	evalInt(t, rt, "b: [1 2 3] recycle length? b", 3)
}

func TestProtectNative(t *testing.T) {
	rt := core.NewRuntime()

	block, err := reader.New(rt, "test").Read("b: [1] protect b append b 2")
	if err != nil {
		t.Fatal(err)
	}

	rt.Bind(block.Series(), rt.Lib(), true)

	var out core.Cell

	out.Prep()

	if sig := rt.Do(block.Series(), 0, nil, &out); sig != core.SigThrown {
		t.Fatal("append to a protected block did not fail")
	}

	if out.ErrorID() != core.ErrReadOnly {
		t.Fatalf("unexpected failure: %s", rt.Mold(&out))
	}
}
