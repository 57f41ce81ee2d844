// Released under an MIT license. See LICENSE.

// Package core implements the ren runtime: cells, the series heap, the
// garbage collector, binding, the evaluator frame stack, variadic feeds,
// and the foreign-function bridge.
//
// The package is deliberately flat. Cells hold series handles, series hold
// cells, frames hold both, and the collector traces all three, so the type
// graph does not split cleanly into packages.
package core

import (
	"github.com/renlang/ren/internal/sym"
)

// Kind tags a cell with its datatype.
type Kind uint8

// The full set of cell kinds. KindEnd and KindVoid are sentinels: end is
// legal only at terminator positions and in a pending output slot, void
// only in context slots (meaning unset) and voids-legal arrays.
const (
	KindEnd Kind = iota
	KindVoid
	KindBar
	KindLitBar
	KindBlank
	KindLogic
	KindInteger
	KindDecimal
	KindPercent
	KindMoney
	KindChar
	KindPoint
	KindTime
	KindDate
	KindWord
	KindSetWord
	KindGetWord
	KindLitWord
	KindRefinement
	KindIssue
	KindBlock
	KindGroup
	KindPath
	KindSetPath
	KindGetPath
	KindLitPath
	KindString
	KindFile
	KindEmail
	KindURL
	KindTag
	KindBinary
	KindBitset
	KindVector
	KindImage
	KindMap
	KindObject
	KindFrame
	KindModule
	KindError
	KindPort
	KindFunction
	KindVarargs
	KindDatatype
	KindTypeset
	KindLibrary
	KindStruct
	KindRoutine
	KindHandle
	KindMax
)

//nolint:gochecknoglobals
var kindNames = [KindMax]string{
	"end!", "void!", "bar!", "lit-bar!", "blank!", "logic!", "integer!",
	"decimal!", "percent!", "money!", "char!", "point!", "time!", "date!",
	"word!", "set-word!", "get-word!", "lit-word!", "refinement!", "issue!",
	"block!", "group!", "path!", "set-path!", "get-path!", "lit-path!",
	"string!", "file!", "email!", "url!", "tag!", "binary!", "bitset!",
	"vector!", "image!", "map!", "object!", "frame!", "module!", "error!",
	"port!", "function!", "varargs!", "datatype!", "typeset!", "library!",
	"struct!", "routine!", "handle!",
}

// Name returns the datatype name for the kind k.
func (k Kind) Name() string {
	if k >= KindMax {
		return "unknown!"
	}

	return kindNames[k]
}

// Flag holds a cell's header bits.
type Flag uint16

const (
	// FlagWritable marks a cell backed by storage that may be written.
	// Sentinel archetypes never carry it.
	FlagWritable Flag = 1 << iota

	// FlagProtected marks a cell whose value may not be changed.
	FlagProtected

	// FlagThrown marks an output cell carrying an in-flight throw.
	FlagThrown

	// FlagUnevaluated records literal provenance (hard-quoted arguments).
	FlagUnevaluated

	// FlagStack hints that the cell lives in a frame rather than an array.
	FlagStack

	// FlagEnfixed marks a function cell that dispatches infix.
	FlagEnfixed

	// FlagDeferred marks an enfixed function with relaxed right-to-left
	// precedence. Argument fulfillment stops before consuming it.
	FlagDeferred
)

// Cell is ren's fixed-shape tagged value. Every value in the system,
// including code, is one of these. The payload fields are interpreted
// according to the kind; the binding is always a weak back-reference.
type Cell struct {
	kind  Kind
	flags Flag

	// binding resolves relatively bound words and feeds. The referent's
	// lifetime is governed independently; the collector marks through it
	// but never treats this cell as the owner.
	binding *Series

	word *sym.T  // any-word spelling
	ser  *Series // any-series, varlist, paramlist, position holder
	ext  *Series // secondary series (path inner, frame phase)
	idx  int     // index into ser for any-series views
	i    int64   // integer, char, logic, parameter class
	f    float64 // decimal, percent
	u    uint64  // typeset bits
	hand any     // library/handle/routine payloads
}

// Sentinel archetypes. These are shared, have no writable backing storage,
// and must never be overwritten. They are values of type Cell (not
// pointers) so that copying one into a writable slot is safe; taking their
// address and writing through it is the misuse the writable bit catches.
//
//nolint:gochecknoglobals
var (
	endArchetype  = Cell{kind: KindEnd}
	voidArchetype = Cell{kind: KindVoid}
)

// End returns an end-sentinel cell. Legal only at terminator positions and
// in a pending output slot.
func End() Cell {
	return endArchetype
}

// Void returns a void cell: "no value". Legal only as context slot storage
// and in voids-legal arrays.
func Void() Cell {
	return voidArchetype
}

// Bar returns an expression barrier cell.
func Bar() Cell {
	return Cell{kind: KindBar, flags: FlagWritable}
}

// LitBar returns a lit-bar cell, which evaluates to a bar.
func LitBar() Cell {
	return Cell{kind: KindLitBar, flags: FlagWritable}
}

// Blank returns a blank cell.
func Blank() Cell {
	return Cell{kind: KindBlank, flags: FlagWritable}
}

// Logic returns a logic cell for the boolean b.
func Logic(b bool) Cell {
	var i int64
	if b {
		i = 1
	}

	return Cell{kind: KindLogic, flags: FlagWritable, i: i}
}

// Integer returns an integer cell.
func Integer(i int64) Cell {
	return Cell{kind: KindInteger, flags: FlagWritable, i: i}
}

// Decimal returns a decimal cell.
func Decimal(f float64) Cell {
	return Cell{kind: KindDecimal, flags: FlagWritable, f: f}
}

// Percent returns a percent cell holding the fraction f (1% is 0.01).
func Percent(f float64) Cell {
	return Cell{kind: KindPercent, flags: FlagWritable, f: f}
}

// Char returns a char cell for the codepoint r.
func Char(r rune) Cell {
	return Cell{kind: KindChar, flags: FlagWritable, i: int64(r)}
}

// Word returns a word cell for the canon c.
func Word(c *sym.T) Cell {
	return Cell{kind: KindWord, flags: FlagWritable, word: c}
}

// WordKind returns an any-word cell of kind k for the canon c.
func WordKind(k Kind, c *sym.T) Cell {
	if k < KindWord || k > KindIssue {
		panic("not an any-word kind: " + k.Name())
	}

	return Cell{kind: k, flags: FlagWritable, word: c}
}

// Datatype returns a datatype cell for the kind k.
func Datatype(k Kind) Cell {
	return Cell{kind: KindDatatype, flags: FlagWritable, i: int64(k)}
}

// SeriesCell returns an any-series cell of kind k viewing s at index idx.
func SeriesCell(k Kind, s *Series, idx int) Cell {
	if k < KindBlock || k > KindBinary {
		panic("not an any-series kind: " + k.Name())
	}

	return Cell{kind: k, flags: FlagWritable, ser: s, idx: idx}
}

// Block returns a block cell viewing the array s from its head.
func Block(s *Series) Cell {
	return SeriesCell(KindBlock, s, 0)
}

// Group returns a group cell viewing the array s from its head.
func Group(s *Series) Cell {
	return SeriesCell(KindGroup, s, 0)
}

// String returns a string cell viewing the string series s from its head.
func String(s *Series) Cell {
	return SeriesCell(KindString, s, 0)
}

// Binary returns a binary cell viewing the byte series s from its head.
func Binary(s *Series) Cell {
	return SeriesCell(KindBinary, s, 0)
}

// Object returns an object cell for the varlist v.
func Object(v *Series) Cell {
	return Cell{kind: KindObject, flags: FlagWritable, ser: v}
}

// ErrorCell returns an error cell for the error varlist v.
func ErrorCell(v *Series) Cell {
	return Cell{kind: KindError, flags: FlagWritable, ser: v}
}

// Function returns a function cell for the paramlist p.
func Function(p *Series) Cell {
	return Cell{kind: KindFunction, flags: FlagWritable, ser: p}
}

// Handle returns a handle cell wrapping the opaque value v.
func Handle(tag string, v any) Cell {
	return Cell{kind: KindHandle, flags: FlagWritable, word: nil, hand: handlePayload{tag, v}}
}

type handlePayload struct {
	tag string
	v   any
}

// HandleValue returns the payload of a handle cell and its tag.
func (c *Cell) HandleValue() (string, any) {
	p, ok := c.hand.(handlePayload)
	if !ok {
		panic(c.kind.Name() + " cannot be used in a handle context")
	}

	return p.tag, p.v
}

// Kind returns the kind tag of the cell c.
func (c *Cell) Kind() Kind {
	return c.kind
}

// IsEnd returns true if c is the end sentinel.
func (c *Cell) IsEnd() bool {
	return c.kind == KindEnd
}

// IsVoid returns true if c is the void sentinel.
func (c *Cell) IsVoid() bool {
	return c.kind == KindVoid
}

// Flags returns the header flags of the cell c.
func (c *Cell) Flags() Flag {
	return c.flags
}

// HasFlag returns true if every bit of f is set on c.
func (c *Cell) HasFlag(f Flag) bool {
	return c.flags&f == f
}

// SetFlag sets the bits of f on c.
func (c *Cell) SetFlag(f Flag) {
	c.flags |= f
}

// ClearFlag clears the bits of f on c.
func (c *Cell) ClearFlag(f Flag) {
	c.flags &^= f
}

// Binding returns the cell's weak binding back-reference, or nil.
func (c *Cell) Binding() *Series {
	return c.binding
}

// SetBinding sets the cell's binding back-reference.
func (c *Cell) SetBinding(b *Series) {
	c.binding = b
}

// Int returns the integer payload of an integer, char, or logic cell.
func (c *Cell) Int() int64 {
	switch c.kind {
	case KindInteger, KindChar, KindLogic:
		return c.i
	default:
		panic(c.kind.Name() + " cannot be used in an integer context")
	}
}

// Float returns the decimal payload of a decimal or percent cell.
func (c *Cell) Float() float64 {
	switch c.kind {
	case KindDecimal, KindPercent:
		return c.f
	default:
		panic(c.kind.Name() + " cannot be used in a decimal context")
	}
}

// Bool returns the truth value of the cell c. Blank and false are the only
// falsey values; void and end have no truth value.
func (c *Cell) Bool() bool {
	switch c.kind {
	case KindBlank:
		return false
	case KindLogic:
		return c.i != 0
	case KindEnd, KindVoid:
		panic(c.kind.Name() + " cannot be used in a boolean context")
	default:
		return true
	}
}

// Canon returns the canon of an any-word cell.
func (c *Cell) Canon() *sym.T {
	if c.word == nil {
		panic(c.kind.Name() + " cannot be used in a word context")
	}

	return c.word
}

// Series returns the series handle of an any-series or context cell.
func (c *Cell) Series() *Series {
	if c.ser == nil {
		panic(c.kind.Name() + " cannot be used in a series context")
	}

	return c.ser
}

// Index returns the view index of an any-series cell.
func (c *Cell) Index() int {
	return c.idx
}

// SetIndex adjusts the view index of an any-series cell.
func (c *Cell) SetIndex(i int) {
	c.mustWrite()
	c.idx = i
}

// DatatypeKind returns the kind a datatype cell names.
func (c *Cell) DatatypeKind() Kind {
	if c.kind != KindDatatype {
		panic(c.kind.Name() + " cannot be used in a datatype context")
	}

	return Kind(c.i)
}

// writable reports whether the cell may be overwritten.
func (c *Cell) writable() bool {
	return c.flags&FlagWritable != 0 && c.flags&FlagProtected == 0
}

func (c *Cell) mustWrite() {
	if c.flags&FlagWritable == 0 {
		panic("write to non-writable cell (sentinel or unprepared slot)")
	}

	if c.flags&FlagProtected != 0 {
		panic("write to protected cell")
	}
}

// Copy overwrites the cell c with the value v. The destination must be
// writable; sentinels used as terminators are not. Transient header bits
// (thrown, unevaluated) do not travel with the value.
func (c *Cell) Copy(v *Cell) {
	c.mustWrite()

	flags := c.flags

	*c = *v
	c.flags = (v.flags &^ (FlagThrown | FlagUnevaluated | FlagProtected)) | (flags & FlagStack) | FlagWritable
}

// Prep marks an uninitialized slot writable and sets it to end. Used when
// carving argument and output slots out of fresh storage.
func (c *Cell) Prep() *Cell {
	*c = Cell{kind: KindEnd, flags: FlagWritable}

	return c
}

// Equal returns true if c and v are equivalent values. Series compare by
// identity and index; words compare by canon.
func (c *Cell) Equal(v *Cell) bool {
	if c.kind != v.kind {
		return false
	}

	switch c.kind {
	case KindEnd, KindVoid, KindBar, KindLitBar, KindBlank:
		return true
	case KindLogic, KindInteger, KindChar, KindDatatype:
		return c.i == v.i
	case KindDecimal, KindPercent:
		return c.f == v.f
	case KindWord, KindSetWord, KindGetWord, KindLitWord, KindRefinement, KindIssue:
		return c.word == v.word
	case KindTypeset:
		return c.u == v.u && c.word == v.word
	default:
		return c.ser == v.ser && c.idx == v.idx
	}
}

// IsAnyWord returns true for the word kinds.
func (c *Cell) IsAnyWord() bool {
	return c.kind >= KindWord && c.kind <= KindIssue
}

// IsAnyArray returns true for block, group, and the path kinds.
func (c *Cell) IsAnyArray() bool {
	return c.kind >= KindBlock && c.kind <= KindLitPath
}

// IsAnyString returns true for the string kinds.
func (c *Cell) IsAnyString() bool {
	return c.kind >= KindString && c.kind <= KindTag
}

// IsAnySeries returns true for every series-backed kind.
func (c *Cell) IsAnySeries() bool {
	return c.kind >= KindBlock && c.kind <= KindBinary
}

// Typeset bits. A typeset is a set of kinds packed into a uint64; with
// fewer than 64 kinds every datatype gets a bit.

// TypesetCell returns a typeset cell naming the parameter canon w with the
// kind set bits and the parameter description i.
func TypesetCell(w *sym.T, bits uint64, class ParamClass, pflags int64) Cell {
	return Cell{
		kind:  KindTypeset,
		flags: FlagWritable,
		word:  w,
		u:     bits,
		i:     int64(class) | pflags,
	}
}

// KindBit returns the typeset bit for the kind k.
func KindBit(k Kind) uint64 {
	return 1 << uint(k)
}

// TypesetBits returns the kind set of a typeset cell.
func (c *Cell) TypesetBits() uint64 {
	return c.u
}

// TypesetHas returns true if the typeset includes the kind k.
func (c *Cell) TypesetHas(k Kind) bool {
	return c.u&KindBit(k) != 0
}

// AnyValueBits is the typeset covering every value kind (not end, not
// void).
//nolint:gochecknoglobals
var AnyValueBits = func() uint64 {
	var bits uint64
	for k := KindBar; k < KindMax; k++ {
		bits |= KindBit(k)
	}

	return bits
}()
