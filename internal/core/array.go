// Released under an MIT license. See LICENSE.

package core

import (
	"github.com/renlang/ren/internal/sym"
)

// Cell-array subclasses. Each is an ordinary cell array distinguished by
// one header flag, with a distinguished head cell (the archetype) and a
// subclass interpretation of the link and misc slots.

// ParamClass describes how the evaluator fulfills one parameter.
type ParamClass uint8

const (
	// ParamNormal evaluates one expression with lookahead enabled.
	ParamNormal ParamClass = iota

	// ParamTight evaluates one expression with lookahead disabled.
	ParamTight

	// ParamHardQuote takes the next element literally.
	ParamHardQuote

	// ParamSoftQuote takes literally unless the element is a group,
	// get-word, or get-path, which are evaluated.
	ParamSoftQuote

	// ParamRefinement introduces an optional argument group.
	ParamRefinement

	// ParamLocal reserves an unset slot.
	ParamLocal
)

// Parameter description flags, stored alongside the class.
const (
	paramFlagVariadic int64 = 1 << (8 + iota)
	paramFlagEndable
)

// ParamClass returns the parameter class of a typeset cell.
func (c *Cell) ParamClass() ParamClass {
	if c.kind != KindTypeset {
		panic(c.kind.Name() + " cannot be used in a parameter context")
	}

	return ParamClass(c.i & 0xFF)
}

// ParamVariadic returns true if the typeset cell describes a variadic
// parameter.
func (c *Cell) ParamVariadic() bool {
	return c.kind == KindTypeset && c.i&paramFlagVariadic != 0
}

// Dispatcher is the Go entry point of a native function. It reads its
// arguments from the frame and writes the frame's output cell.
type Dispatcher func(rt *Runtime, f *Frame) Signal

// funcInfo hangs off a paramlist's misc slot.
type funcInfo struct {
	body     *Series // function body array; nil for natives
	dispatch Dispatcher
	meta     *Series
	exemplar *Series
}

// MakeParamlist builds a paramlist: archetype at the head, one typeset per
// parameter after it. The facade link starts out self-referential.
func (rt *Runtime) MakeParamlist(params []Cell, info *funcInfo) *Series {
	p := rt.AllocArray(len(params) + 1)
	p.flags |= SFlagParamlist

	p.arrayExtend(len(params) + 1)

	arch := Function(p)
	p.At(0).Copy(&arch)

	for i := range params {
		p.At(i + 1).Copy(&params[i])
	}

	p.link = p // facade
	p.misc = info

	return p
}

// Info returns the function info of a paramlist.
func (p *Series) Info() *funcInfo {
	if p.flags&SFlagParamlist == 0 {
		panic("function info requested from non-paramlist")
	}

	info, ok := p.misc.(*funcInfo)
	if !ok {
		panic("paramlist with corrupt info slot")
	}

	return info
}

// NumParams returns the number of parameters in a paramlist (or keys in a
// keylist).
func (p *Series) NumParams() int {
	return p.Len() - 1
}

// Param returns the typeset for parameter n (1-based).
func (p *Series) Param(n int) *Cell {
	return p.At(n)
}

// AllocVarlist builds a varlist of the context kind k with n unset slots
// and a keylist sized to match. The archetype is at the head.
func (rt *Runtime) AllocVarlist(k Kind, n int) *Series {
	keylist := rt.AllocArray(n + 1)
	keylist.flags |= SFlagParamlist
	keylist.arrayExtend(n + 1)

	blank := Blank()
	keylist.At(0).Copy(&blank)

	rt.Heap.Guard(keylist)

	v := rt.AllocArray(n + 1)
	v.flags |= SFlagVarlist | SFlagVoidsLegal
	v.arrayExtend(n + 1)

	arch := Cell{kind: k, flags: FlagWritable, ser: v}
	v.At(0).Copy(&arch)

	for i := 1; i <= n; i++ {
		void := Void()
		v.At(i).Copy(&void)
	}

	v.link = keylist
	rt.Heap.Unguard(keylist)

	return v
}

// Keylist returns the keylist of a varlist. For a live frame varlist the
// keys are the paramlist of the executing phase.
func (v *Series) Keylist() *Series {
	if v.flags&SFlagVarlist == 0 {
		panic("keylist requested from non-varlist")
	}

	return v.link
}

// AddField appends a key and an initial value to a varlist, growing both
// the varlist and its keylist. Returns the new slot index.
func (rt *Runtime) AddField(v *Series, key *sym.T, value *Cell) int {
	keylist := v.Keylist()

	ts := TypesetCell(key, AnyValueBits|KindBit(KindVoid), ParamNormal, 0)
	keylist.Append(&ts)

	at := v.arrayExtend(1)
	v.At(at).Copy(value)

	return at
}

// FindField returns the slot index of the key canon in the varlist v, or
// zero if absent. Slot indices are 1-based; zero is the archetype.
func (v *Series) FindField(key *sym.T) int {
	keylist := v.Keylist()

	for i, n := 1, keylist.Len(); i < n; i++ {
		if keylist.At(i).word == key {
			return i
		}
	}

	return 0
}

// Slot returns a pointer to slot i of the varlist v.
func (v *Series) Slot(i int) *Cell {
	if v.flags&SFlagVarlist == 0 {
		panic("slot access to non-varlist")
	}

	return v.At(i)
}

// Pairlists: even-indexed cells are keys, odd are values. The link slot
// points to a separate hashlist series for indexing.

// AllocPairlist builds an empty map pairlist with a hashlist.
func (rt *Runtime) AllocPairlist(capHint int) *Series {
	p := rt.AllocArray(capHint * 2)
	p.flags |= SFlagPairlist

	rt.Heap.Guard(p)
	p.link = rt.AllocQuads(capHint * 2)
	rt.Heap.Unguard(p)

	return p
}

// Hashlist returns the hashlist of a pairlist.
func (p *Series) Hashlist() *Series {
	if p.flags&SFlagPairlist == 0 {
		panic("hashlist requested from non-pairlist")
	}

	return p.link
}

// MapFind returns the index of the key cell in the pairlist, or -1. The
// hashlist covers every pair once the first association lands; until then
// (and without one) the scan is linear.
func (p *Series) MapFind(key *Cell) int {
	h := p.link
	if h == nil || len(h.quads) == 0 {
		for i, n := 0, p.Len(); i+1 < n; i += 2 {
			if p.At(i).Equal(key) {
				return i
			}
		}

		return -1
	}

	buckets := len(h.quads)
	slot := int(key.hashValue() % uint64(buckets))

	for h.quads[slot] != 0 {
		pair := int(h.quads[slot]-1) * 2
		if p.At(pair).Equal(key) {
			return pair
		}

		slot = (slot + 1) % buckets
	}

	return -1
}

// MapSet associates key with value in the pairlist, replacing any prior
// association, and refreshes the hashlist.
func (p *Series) MapSet(key, value *Cell) {
	if i := p.MapFind(key); i >= 0 {
		p.At(i + 1).Copy(value)

		return
	}

	p.Append(key)
	p.Append(value)

	p.rehash()
}

// MapGet returns the value associated with key, or nil.
func (p *Series) MapGet(key *Cell) *Cell {
	i := p.MapFind(key)
	if i < 0 {
		return nil
	}

	return p.At(i + 1)
}

// rehash rebuilds the hashlist to cover the pairlist's current length.
// The hashlist stores pair indices biased by one; zero means empty.
func (p *Series) rehash() {
	h := p.link
	if h == nil {
		return
	}

	n := p.Len() / 2
	buckets := n*2 + 1

	h.quads = make([]uint32, buckets)

	for i := 0; i < n; i++ {
		slot := int(p.At(i*2).hashValue() % uint64(buckets))
		for h.quads[slot] != 0 {
			slot = (slot + 1) % buckets
		}

		h.quads[slot] = uint32(i + 1)
	}
}

// hashValue folds a cell to a bucket hash. Only key-capable kinds hash;
// everything else falls back to its kind tag.
func (c *Cell) hashValue() uint64 {
	const prime = 1099511628211

	h := uint64(14695981039346656037)
	mix := func(v uint64) {
		h = (h ^ v) * prime
	}

	mix(uint64(c.kind))

	switch {
	case c.IsAnyWord():
		mix(uint64(c.word.Bind()))
	case c.kind == KindInteger || c.kind == KindChar || c.kind == KindLogic:
		mix(uint64(c.i))
	case c.IsAnyString() && c.ser != nil:
		for i, n := c.idx, c.ser.Len(); i < n; i++ {
			mix(uint64(c.ser.Rune(i)))
		}
	}

	return h
}
