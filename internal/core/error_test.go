// Released under an MIT license. See LICENSE.

package core

import (
	"strings"
	"testing"
)

func TestFailCarriesID(t *testing.T) {
	rt := NewRuntime()

	var out Cell

	out.Prep()

	arg := Integer(9)

	if sig := rt.Fail(&out, ErrOutOfRange, &arg); sig != SigThrown {
		t.Fatal("fail did not throw")
	}

	if !Thrown(&out) || !IsFailure(&out) {
		t.Fatal("failure is not a thrown error")
	}

	if out.ErrorID() != ErrOutOfRange {
		t.Fatalf("id = %q", out.ErrorID())
	}

	if a := out.ErrorArg(1); a == nil || a.Int() != 9 {
		t.Fatal("argument lost")
	}
}

func TestThrowPairsArgument(t *testing.T) {
	rt := NewRuntime()

	var out Cell

	out.Prep()

	label := Word(rt.Intern("jump"))
	arg := Integer(3)

	rt.Throw(&out, &label, &arg)

	if IsFailure(&out) {
		t.Fatal("a word throw is not a failure")
	}

	got := rt.Catch(&out)

	if Thrown(&out) {
		t.Fatal("catch left the thrown bit set")
	}

	if got.Int() != 3 {
		t.Fatalf("caught argument = %s", rt.Mold(&got))
	}
}

func TestCatchNativeStopsThrow(t *testing.T) {
	rt := NewRuntime()

	catch := libValue(t, rt, "catch")

	body := Block(testArray(rt,
		libWord(rt, "throw"), Integer(7), Integer(99)))

	var out Cell

	if sig := rt.DoVa(&out, catch, body); sig != SigOK {
		t.Fatalf("catch failed: %s", rt.Mold(&out))
	}

	if out.Int() != 7 {
		t.Fatalf("catch [throw 7 99] = %s", rt.Mold(&out))
	}
}

func TestCatchPassesFailures(t *testing.T) {
	rt := NewRuntime()

	catch := libValue(t, rt, "catch")

	s := rt.AllocString(4)
	s.AppendString("boom")

	body := Block(testArray(rt, libWord(rt, "fail"), String(s)))

	var out Cell

	if sig := rt.DoVa(&out, catch, body); sig != SigThrown {
		t.Fatal("catch swallowed a failure")
	}

	if !IsFailure(&out) {
		t.Fatal("throw is not a failure")
	}

	rt.Catch(&out)
}

func TestTrapCatchesFailures(t *testing.T) {
	rt := NewRuntime()

	trap := libValue(t, rt, "trap")

	s := rt.AllocString(4)
	s.AppendString("boom")

	body := Block(testArray(rt, libWord(rt, "fail"), String(s)))

	var out Cell

	if sig := rt.DoVa(&out, trap, body); sig != SigOK {
		t.Fatalf("trap did not catch: %s", rt.Mold(&out))
	}

	if out.Kind() != KindError {
		t.Fatalf("trap yielded %s, want an error", out.Kind().Name())
	}

	if out.ErrorID() != "boom" {
		t.Fatalf("id = %q", out.ErrorID())
	}
}

func TestHostErrorRendering(t *testing.T) {
	rt := NewRuntime()

	var out Cell

	out.Prep()

	arg := Integer(5)
	rt.Fail(&out, ErrOutOfRange, &arg)
	rt.Catch(&out)

	msg := rt.HostError(&out).Error()
	if !strings.Contains(msg, ErrOutOfRange) || !strings.Contains(msg, "5") {
		t.Fatalf("rendered error = %q", msg)
	}
}

func TestRecycleDuringThrowPanics(t *testing.T) {
	rt := NewRuntime()

	defer func() {
		if recover() == nil {
			t.Fatal("collection with a throw in flight did not panic")
		}
	}()

	var out Cell

	out.Prep()

	f := rt.pushFrame(&out, nil, 0, nil)
	defer rt.dropFrame(f)

	rt.Fail(f.out, ErrOutOfRange)
	rt.Recycle()
}
