// Released under an MIT license. See LICENSE.

package core

// Signal is the result of any operation that may unwind. Exceptional
// control flow returns SigThrown with the throw label written to the
// operation's output cell under FlagThrown; the caller either propagates
// the signal or catches by clearing the flag. The collector must not run
// while a thrown cell is live in any frame output.
type Signal int8

const (
	// SigOK means the operation produced a value (or void).
	SigOK Signal = iota

	// SigThrown means the output cell carries a throw in flight.
	SigThrown
)

// The error kinds raised by the core. Errors are named by symbol and carry
// zero to three contextual cells.
const (
	ErrOutOfMemory       = "out-of-memory"
	ErrReadOnly          = "read-only"
	ErrInaccessible      = "inaccessible"
	ErrOutOfRange        = "out-of-range"
	ErrOverflow          = "overflow"
	ErrBadMake           = "bad-make"
	ErrBadUTF8           = "bad-utf8"
	ErrBadRefines        = "bad-refines"
	ErrBadRefine         = "bad-refine"
	ErrArgType           = "arg-type"
	ErrNotSameType       = "not-same-type"
	ErrIllegalAction     = "illegal-action"
	ErrNoStack           = "no-stack"
	ErrVarargsNoStack    = "varargs-no-stack"
	ErrVarargsNoLook     = "varargs-no-look"
	ErrRecursiveVarargs  = "recursive-varargs"
	ErrFFINotAvailable   = "ffi-not-available"
	ErrFFICIF            = "ffi-cif"
	ErrNoValue           = "no-value"
	ErrNotBound          = "not-bound"
	ErrUncaughtThrow     = "uncaught-throw"
	ErrNeedNonEnd        = "need-non-end"
	ErrBadPath           = "bad-path"
	ErrInvalidArity      = "invalid-arity"
	ErrDivideByZero      = "divide-by-zero"
	ErrProtectedWord     = "protected-word"
	ErrCallbackFailed    = "callback-failed"
	ErrNotFFICallback    = "not-ffi-callback"
	ErrExpectedArg       = "expected-arg"
	ErrMisplacedVariadic = "misplaced-variadic"
)

// NewError builds an error cell: a managed varlist with the kind symbol in
// the id slot and up to three argument cells.
func (rt *Runtime) NewError(id string, args ...*Cell) Cell {
	if len(args) > 3 {
		panic("error context limited to three cells")
	}

	v := rt.AllocVarlist(KindError, 0)
	rt.Heap.Guard(v)

	idc := Word(rt.Intern(id))
	rt.AddField(v, rt.Intern("id"), &idc)

	names := [3]string{"arg1", "arg2", "arg3"}
	for i, a := range args {
		rt.AddField(v, rt.Intern(names[i]), a)
	}

	rt.Heap.Unguard(v)
	rt.Heap.Manage(v)
	rt.Heap.Manage(v.Keylist())

	return ErrorCell(v)
}

// ErrorID returns the kind symbol of an error cell, or "" if c is not an
// error.
func (c *Cell) ErrorID() string {
	if c.kind != KindError {
		return ""
	}

	for i, n := 1, c.ser.Keylist().Len(); i < n; i++ {
		if c.ser.Keylist().At(i).word.Name() == "id" {
			slot := c.ser.Slot(i)
			if slot.IsAnyWord() {
				return slot.word.Name()
			}
		}
	}

	return ""
}

// ErrorArg returns the n-th context cell of an error (1-based), or nil.
func (c *Cell) ErrorArg(n int) *Cell {
	if c.kind != KindError {
		return nil
	}

	name := [4]string{"", "arg1", "arg2", "arg3"}[n]

	kl := c.ser.Keylist()
	for i, m := 1, kl.Len(); i < m; i++ {
		if kl.At(i).word.Name() == name {
			return c.ser.Slot(i)
		}
	}

	return nil
}

// Fail raises the error kind id: the error cell is written to out with the
// thrown bit set and the throw argument cleared.
func (rt *Runtime) Fail(out *Cell, id string, args ...*Cell) Signal {
	e := rt.NewError(id, args...)

	return rt.Throw(out, &e, nil)
}

// Throw writes the label to out under FlagThrown, pairing it with arg (or
// void). Every caller up the frame stack must propagate or catch.
func (rt *Runtime) Throw(out *Cell, label, arg *Cell) Signal {
	out.Copy(label)
	out.SetFlag(FlagThrown)

	rt.thrownArg.Prep()

	if arg != nil {
		rt.thrownArg.Copy(arg)
	} else {
		void := Void()
		rt.thrownArg.Copy(&void)
	}

	return SigThrown
}

// Thrown returns true if out carries a throw in flight.
func Thrown(out *Cell) bool {
	return out.flags&FlagThrown != 0
}

// Catch clears the thrown bit on out and returns the paired argument.
// After Catch the collector may run again.
func (rt *Runtime) Catch(out *Cell) Cell {
	if !Thrown(out) {
		panic("catch of a cell that is not thrown")
	}

	out.ClearFlag(FlagThrown)

	arg := rt.thrownArg
	rt.thrownArg.Prep()

	return arg
}

// IsFailure returns true if out carries a thrown error (as opposed to a
// user-level throw with a non-error label).
func IsFailure(out *Cell) bool {
	return Thrown(out) && out.kind == KindError
}

// Error adapts an error cell to Go's error interface at host boundaries.
type Error struct {
	Value Cell
	rt    *Runtime
}

// HostError wraps the caught error cell c for return through Go APIs.
func (rt *Runtime) HostError(c *Cell) *Error {
	e := &Error{rt: rt}
	e.Value.Prep()
	e.Value.Copy(c)
	e.Value.ClearFlag(FlagThrown)

	return e
}

// Error renders the error for the host.
func (e *Error) Error() string {
	id := e.Value.ErrorID()
	if id == "" {
		return "** error"
	}

	s := "** error: " + id

	for i := 1; i <= 3; i++ {
		a := e.Value.ErrorArg(i)
		if a == nil || a.IsVoid() {
			break
		}

		s += " " + e.rt.Mold(a)
	}

	return s
}
