// Released under an MIT license. See LICENSE.

package core

import (
	"strconv"
	"strings"

	"github.com/renlang/ren/internal/sym"
)

// Construction. MAKE builds a new value of a kind from a spec; TO
// converts an existing value, preserving as much meaning as the target
// kind can hold.

// KindByName resolves a datatype name like "integer!" to its kind.
func KindByName(name string) (Kind, bool) {
	for k := Kind(0); k < KindMax; k++ {
		if kindNames[k] == name {
			return k, true
		}
	}

	return 0, false
}

// MakeValue builds a value of kind k from the spec and writes it to out.
//
//nolint:gocyclo
func (rt *Runtime) MakeValue(k Kind, spec *Cell, out *Cell) Signal {
	switch {
	case k >= KindBlock && k <= KindLitPath:
		return rt.makeArray(k, spec, out)

	case k >= KindString && k <= KindTag:
		return rt.makeString(k, spec, out)

	case k == KindBinary:
		return rt.makeBinary(spec, out)

	case k == KindMap:
		return rt.makeMap(spec, out)

	case k == KindObject || k == KindModule:
		return rt.makeContext(k, spec, out)

	case k == KindError:
		return rt.makeError(spec, out)

	case k == KindFunction:
		return rt.makeFunction(spec, out)

	case k == KindVarargs:
		if !spec.IsAnyArray() {
			return rt.Fail(out, ErrBadMake, spec)
		}

		feed := rt.MakeVarargs(spec, ParamNormal)
		out.Copy(&feed)

		return SigOK

	case k == KindInteger || k == KindDecimal || k == KindChar || k == KindLogic || k == KindWord:
		return rt.ToValue(k, spec, out)
	}

	d := Datatype(k)

	return rt.Fail(out, ErrBadMake, &d, spec)
}

func (rt *Runtime) makeArray(k Kind, spec *Cell, out *Cell) Signal {
	switch {
	case spec.kind == KindInteger:
		s := rt.AllocArray(int(spec.Int()))
		rt.Heap.Manage(s)

		v := SeriesCell(k, s, 0)
		out.Copy(&v)

		return SigOK

	case spec.IsAnyArray():
		s := rt.AllocArray(SeriesLen(spec))
		rt.Heap.Guard(s)

		src := spec.ser
		for i, n := spec.idx, src.Len(); i < n; i++ {
			s.Append(src.At(i))
		}

		rt.Heap.Unguard(s)
		rt.Heap.Manage(s)

		v := SeriesCell(k, s, 0)
		out.Copy(&v)

		return SigOK
	}

	return rt.Fail(out, ErrBadMake, spec)
}

func (rt *Runtime) makeString(k Kind, spec *Cell, out *Cell) Signal {
	switch {
	case spec.kind == KindInteger:
		s := rt.AllocString(int(spec.Int()))
		rt.Heap.Manage(s)

		v := SeriesCell(k, s, 0)
		out.Copy(&v)

		return SigOK

	case spec.IsAnyString():
		s := rt.AllocString(SeriesLen(spec))
		rt.Heap.Guard(s)

		for i, n := spec.idx, spec.ser.Len(); i < n; i++ {
			s.AppendRune(spec.ser.Rune(i))
		}

		rt.Heap.Unguard(s)
		rt.Heap.Manage(s)

		v := SeriesCell(k, s, 0)
		out.Copy(&v)

		return SigOK

	case spec.kind == KindBlock && SeriesLen(spec) == 2:
		// Construction form: a view of SOURCE positioned at INDEX,
		// sharing its storage.
		src := spec.ser.At(spec.idx)
		pos := spec.ser.At(spec.idx + 1)

		if !src.IsAnyString() || pos.kind != KindInteger {
			return rt.Fail(out, ErrBadMake, spec)
		}

		n := int(pos.Int())
		if n < 1 || n > SeriesLen(src)+1 {
			return rt.Fail(out, ErrOutOfRange, pos)
		}

		v := SeriesCell(k, src.ser, src.idx+n-1)
		out.Copy(&v)

		return SigOK
	}

	return rt.Fail(out, ErrBadMake, spec)
}

func (rt *Runtime) makeBinary(spec *Cell, out *Cell) Signal {
	switch {
	case spec.kind == KindInteger:
		s := rt.AllocBinary(int(spec.Int()))
		rt.Heap.Manage(s)

		v := Binary(s)
		out.Copy(&v)

		return SigOK

	case spec.kind == KindBlock && SeriesLen(spec) == 2:
		src := spec.ser.At(spec.idx)
		pos := spec.ser.At(spec.idx + 1)

		if src.kind != KindBinary || pos.kind != KindInteger {
			return rt.Fail(out, ErrBadMake, spec)
		}

		n := int(pos.Int())
		if n < 1 || n > SeriesLen(src)+1 {
			return rt.Fail(out, ErrOutOfRange, pos)
		}

		v := SeriesCell(KindBinary, src.ser, src.idx+n-1)
		out.Copy(&v)

		return SigOK
	}

	return rt.ToValue(KindBinary, spec, out)
}

func (rt *Runtime) makeMap(spec *Cell, out *Cell) Signal {
	switch {
	case spec.kind == KindInteger:
		p := rt.AllocPairlist(int(spec.Int()))
		rt.manageMap(p)

		v := Cell{kind: KindMap, flags: FlagWritable, ser: p}
		out.Copy(&v)

		return SigOK

	case spec.kind == KindBlock:
		n := SeriesLen(spec)
		if n%2 != 0 {
			return rt.Fail(out, ErrBadMake, spec)
		}

		p := rt.AllocPairlist(n / 2)
		rt.Heap.Guard(p)

		src := spec.ser
		for i := spec.idx; i+1 < src.Len(); i += 2 {
			p.MapSet(src.At(i), src.At(i+1))
		}

		rt.Heap.Unguard(p)
		rt.manageMap(p)

		v := Cell{kind: KindMap, flags: FlagWritable, ser: p}
		out.Copy(&v)

		return SigOK
	}

	return rt.Fail(out, ErrBadMake, spec)
}

func (rt *Runtime) manageMap(p *Series) {
	rt.Heap.Manage(p)
	rt.Heap.Manage(p.Hashlist())
}

// makeContext builds an object or module: the spec block's set-words
// become fields, then the block body runs inside the new context.
func (rt *Runtime) makeContext(k Kind, spec *Cell, out *Cell) Signal {
	if spec.kind != KindBlock {
		return rt.Fail(out, ErrBadMake, spec)
	}

	v := rt.AllocVarlist(k, 0)
	rt.Heap.Guard(v)

	body := spec.ser

	rt.Bind(body, rt.lib, false)
	rt.Bind(body, v, true)

	rt.Heap.Unguard(v)
	rt.Heap.Manage(v)
	rt.Heap.Manage(v.Keylist())

	if sig := rt.Do(body, spec.idx, nil, out); sig != SigOK {
		return sig
	}

	obj := Cell{kind: k, flags: FlagWritable, ser: v}
	out.Copy(&obj)

	return SigOK
}

func (rt *Runtime) makeError(spec *Cell, out *Cell) Signal {
	switch {
	case spec.IsAnyWord():
		e := rt.NewError(spec.word.Name())
		out.Copy(&e)

		return SigOK

	case spec.IsAnyString():
		e := rt.NewError(spec.ser.GoString(spec.idx))
		out.Copy(&e)

		return SigOK
	}

	return rt.Fail(out, ErrBadMake, spec)
}

// makeFunction builds a function from a two-element spec: the parameter
// block and the body block.
func (rt *Runtime) makeFunction(spec *Cell, out *Cell) Signal {
	if spec.kind != KindBlock || SeriesLen(spec) != 2 {
		return rt.Fail(out, ErrBadMake, spec)
	}

	params := spec.ser.At(spec.idx)
	body := spec.ser.At(spec.idx + 1)

	if params.kind != KindBlock || body.kind != KindBlock {
		return rt.Fail(out, ErrBadMake, spec)
	}

	return rt.MakeFunction(params, body, out)
}

// MakeFunction builds a function cell from a parameter spec block and a
// body block and writes it to out.
//
// Spec notation: plain words evaluate their argument; lit-words take it
// literally; get-words take it literally unless it is a group, get-word,
// or get-path; refinements open optional groups; words after /local are
// unset locals. A block after a word restricts the argument's types by
// datatype name; the tag <...> inside it makes the parameter variadic,
// <end> makes it endable, <tight> disables lookahead.
func (rt *Runtime) MakeFunction(paramSpec, bodySpec *Cell, out *Cell) Signal {
	params := []Cell{}
	local := false

	src := paramSpec.ser
	for i, n := paramSpec.idx, src.Len(); i < n; i++ {
		v := src.At(i)

		var (
			name  *sym.T
			class ParamClass
		)

		switch v.kind {
		case KindWord:
			name, class = v.word, ParamNormal
		case KindLitWord:
			name, class = v.word, ParamHardQuote
		case KindGetWord:
			name, class = v.word, ParamSoftQuote
		case KindRefinement:
			name, class = v.word, ParamRefinement

			if v.word.Name() == "local" {
				local = true

				continue
			}
		case KindString, KindBlock:
			if v.kind == KindString || len(params) == 0 {
				continue // description; ignored here, kept by meta later
			}

			// Type block refining the previous parameter.
			if sig := rt.refineParam(&params[len(params)-1], v, out); sig != SigOK {
				return sig
			}

			continue
		default:
			return rt.Fail(out, ErrBadMake, v)
		}

		if local {
			class = ParamLocal
		}

		bits := AnyValueBits
		if class == ParamLocal || class == ParamRefinement {
			bits |= KindBit(KindVoid)
		}

		params = append(params, TypesetCell(name, bits, class, 0))
	}

	info := &funcInfo{}

	p := rt.MakeParamlist(params, info)
	rt.Heap.Guard(p)

	// The body is copied so reuse of the source block elsewhere cannot
	// disturb the relative bindings.
	body := rt.AllocArray(SeriesLen(bodySpec))
	rt.Heap.Guard(body)

	bsrc := bodySpec.ser
	for i, n := bodySpec.idx, bsrc.Len(); i < n; i++ {
		body.Append(rt.deepCopyCell(bsrc.At(i)))
	}

	rt.Bind(body, rt.lib, false)
	rt.BindRelative(body, p)

	info.body = body

	rt.Heap.Unguard(body)
	rt.Heap.Unguard(p)

	rt.Heap.Manage(body)
	rt.Heap.Manage(p)

	fn := Function(p)
	out.Copy(&fn)

	return SigOK
}

// refineParam applies a type block to the parameter typeset ts.
func (rt *Runtime) refineParam(ts *Cell, block *Cell, out *Cell) Signal {
	var bits uint64

	src := block.ser
	for i, n := block.idx, src.Len(); i < n; i++ {
		v := src.At(i)

		switch v.kind {
		case KindWord:
			k, ok := KindByName(v.word.Name())
			if !ok {
				if v.word.Name() == "any-value" || v.word.Name() == "any-value!" {
					bits |= AnyValueBits

					continue
				}

				return rt.Fail(out, ErrBadMake, v)
			}

			bits |= KindBit(k)
		case KindTag:
			switch v.ser.GoString(v.idx) {
			case "...":
				ts.i |= paramFlagVariadic
				bits |= KindBit(KindVarargs)
			case "end":
				ts.i |= paramFlagEndable
			case "tight":
				ts.i = (ts.i &^ 0xFF) | int64(ParamTight)
			default:
				return rt.Fail(out, ErrBadMake, v)
			}
		default:
			return rt.Fail(out, ErrBadMake, v)
		}
	}

	if bits != 0 {
		ts.u = bits
	}

	return SigOK
}

// deepCopyCell copies c, duplicating any-array storage so bindings in the
// copy are independent of the source.
func (rt *Runtime) deepCopyCell(c *Cell) *Cell {
	if !c.IsAnyArray() {
		return c
	}

	s := rt.AllocArray(SeriesLen(c))
	rt.Heap.Guard(s)

	src := c.ser
	for i, n := c.idx, src.Len(); i < n; i++ {
		s.Append(rt.deepCopyCell(src.At(i)))
	}

	rt.Heap.Unguard(s)
	rt.Heap.Manage(s)

	v := SeriesCell(c.kind, s, 0)
	v.binding = c.binding

	return &v
}

// ToValue converts v to kind k and writes the result to out.
//
//nolint:gocyclo
func (rt *Runtime) ToValue(k Kind, v *Cell, out *Cell) Signal {
	if v.kind == k {
		out.Copy(v)

		return SigOK
	}

	switch k {
	case KindInteger:
		return rt.toInteger(v, out)

	case KindDecimal:
		switch v.kind {
		case KindInteger:
			d := Decimal(float64(v.Int()))
			out.Copy(&d)

			return SigOK
		case KindPercent:
			d := Decimal(v.f)
			out.Copy(&d)

			return SigOK
		}

		if v.IsAnyString() {
			f, err := strconv.ParseFloat(strings.TrimSpace(v.ser.GoString(v.idx)), 64)
			if err != nil {
				return rt.Fail(out, ErrBadMake, v)
			}

			d := Decimal(f)
			out.Copy(&d)

			return SigOK
		}

	case KindChar:
		if v.kind == KindInteger {
			if v.Int() < 0 || v.Int() > 0xFFFF {
				return rt.Fail(out, ErrOutOfRange, v)
			}

			c := Char(rune(v.Int()))
			out.Copy(&c)

			return SigOK
		}

	case KindLogic:
		if v.kind != KindEnd && v.kind != KindVoid {
			l := Logic(v.Bool())
			out.Copy(&l)

			return SigOK
		}

	case KindWord, KindSetWord, KindGetWord, KindLitWord, KindRefinement, KindIssue:
		switch {
		case v.IsAnyWord():
			w := WordKind(k, v.word)
			out.Copy(&w)

			return SigOK
		case v.IsAnyString():
			w := WordKind(k, rt.Intern(v.ser.GoString(v.idx)))
			out.Copy(&w)

			return SigOK
		}

	case KindString, KindFile, KindEmail, KindURL, KindTag:
		return rt.toString(k, v, out)

	case KindBinary:
		return rt.toBinary(v, out)

	case KindBlock, KindGroup:
		return rt.toArray(k, v, out)
	}

	d := Datatype(k)

	return rt.Fail(out, ErrBadMake, &d, v)
}

func (rt *Runtime) toInteger(v *Cell, out *Cell) Signal {
	switch {
	case v.kind == KindDecimal || v.kind == KindPercent:
		i := Integer(int64(v.f))
		out.Copy(&i)

		return SigOK
	case v.kind == KindChar || v.kind == KindLogic:
		i := Integer(v.i)
		out.Copy(&i)

		return SigOK
	case v.IsAnyString():
		n, err := strconv.ParseInt(strings.TrimSpace(v.ser.GoString(v.idx)), 10, 64)
		if err != nil {
			return rt.Fail(out, ErrBadMake, v)
		}

		i := Integer(n)
		out.Copy(&i)

		return SigOK
	}

	return rt.Fail(out, ErrBadMake, v)
}

// toString converts to a string kind. Binary decodes as UTF-8 and fails
// on malformed input; astral codepoints need a registered handler.
func (rt *Runtime) toString(k Kind, v *Cell, out *Cell) Signal {
	s := rt.AllocString(0)
	rt.Heap.Guard(s)

	switch {
	case v.kind == KindBinary:
		if s.appendDecoded(v.ser.data[v.idx:], rt.astral) {
			rt.Heap.Unguard(s)
			rt.Heap.Free(s)

			return rt.Fail(out, ErrBadUTF8, v)
		}
	case v.IsAnyString():
		for i, n := v.idx, v.ser.Len(); i < n; i++ {
			s.AppendRune(v.ser.Rune(i))
		}
	default:
		s.AppendString(rt.Form(v))
	}

	rt.Heap.Unguard(s)
	rt.Heap.Manage(s)

	c := SeriesCell(k, s, 0)
	out.Copy(&c)

	return SigOK
}

// toBinary converts to a byte series. Strings encode as UTF-8.
func (rt *Runtime) toBinary(v *Cell, out *Cell) Signal {
	s := rt.AllocBinary(0)
	rt.Heap.Guard(s)

	switch {
	case v.IsAnyString():
		s.data = append(s.data, v.ser.UTF8Bytes(v.idx)...)
	case v.kind == KindInteger:
		s.data = append(s.data, byte(v.Int()))
	default:
		rt.Heap.Unguard(s)
		rt.Heap.Free(s)

		return rt.Fail(out, ErrBadMake, v)
	}

	rt.Heap.Unguard(s)
	rt.Heap.Manage(s)

	c := Binary(s)
	out.Copy(&c)

	return SigOK
}

// toArray converts to a block or group. Another array converts in place
// (same storage, new kind); anything else wraps in a one-element array.
func (rt *Runtime) toArray(k Kind, v *Cell, out *Cell) Signal {
	if v.IsAnyArray() {
		c := SeriesCell(k, v.ser, v.idx)
		out.Copy(&c)

		return SigOK
	}

	s := rt.AllocArray(1)
	rt.Heap.Guard(s)
	s.Append(v)
	rt.Heap.Unguard(s)
	rt.Heap.Manage(s)

	c := SeriesCell(k, s, 0)
	out.Copy(&c)

	return SigOK
}
