// Released under an MIT license. See LICENSE.

package core

import (
	"sort"
)

// Series actions. Each acts on an any-series cell, interpreting the view
// index, and dispatches on the storage width. Out-of-range reads yield
// blank; out-of-range writes fail.

// seriesWritable checks that the series behind c accepts mutation.
func (rt *Runtime) seriesWritable(c *Cell, out *Cell) Signal {
	s := c.ser

	if s.flags&SFlagFreed != 0 || s.Inaccessible() {
		return rt.Fail(out, ErrInaccessible)
	}

	if s.Protected() || c.flags&FlagProtected != 0 {
		v := *c

		return rt.Fail(out, ErrReadOnly, &v)
	}

	return SigOK
}

// PickSeries writes element n (1-based from the view index) of the series
// cell c to out, or blank when out of range.
func (rt *Runtime) PickSeries(c *Cell, n int, out *Cell) Signal {
	s := c.ser
	i := c.idx + n - 1

	if s.Inaccessible() {
		return rt.Fail(out, ErrInaccessible)
	}

	if n < 1 || i >= s.Len() {
		blank := Blank()
		out.Copy(&blank)

		return SigOK
	}

	switch {
	case c.IsAnyArray():
		out.Copy(s.At(i))
	case c.IsAnyString():
		ch := Char(s.Rune(i))
		out.Copy(&ch)
	default:
		v := Integer(int64(s.ByteAt(i)))
		out.Copy(&v)
	}

	return SigOK
}

// pickSeries replaces the path cursor target with its picked element.
func (rt *Runtime) pickSeries(target *Cell, n int, out *Cell) Signal {
	var tmp Cell

	tmp.Prep()

	if sig := rt.PickSeries(target, n, &tmp); sig != SigOK {
		*out = tmp // preserves the thrown bit

		return sig
	}

	target.Copy(&tmp)

	return SigOK
}

// PokeSeries writes v into element n (1-based from the view index) of the
// series cell c. Out of range fails rather than extending.
func (rt *Runtime) PokeSeries(c *Cell, n int, v *Cell, out *Cell) Signal {
	if sig := rt.seriesWritable(c, out); sig != SigOK {
		return sig
	}

	s := c.ser
	i := c.idx + n - 1

	if n < 1 || i >= s.Len() {
		idx := Integer(int64(n))

		return rt.Fail(out, ErrOutOfRange, &idx)
	}

	switch {
	case c.IsAnyArray():
		s.At(i).Copy(v)
	case c.IsAnyString():
		if v.kind != KindChar {
			return rt.Fail(out, ErrIllegalAction, v)
		}

		r := rune(v.Int())
		if s.width == WidthByte && r > 0xFF {
			s.widen()
		}

		s.setRune(i, r)
	default:
		if v.kind != KindInteger || v.Int() < 0 || v.Int() > 0xFF {
			return rt.Fail(out, ErrIllegalAction, v)
		}

		s.data[i] = byte(v.Int())
	}

	return SigOK
}

// pokeSeries assigns through the final selector of a set-path.
func (rt *Runtime) pokeSeries(target *Cell, n int, v *Cell, out *Cell) Signal {
	return rt.PokeSeries(target, n, v, out)
}

// SeriesLen returns the length of the series cell c from its view index.
func SeriesLen(c *Cell) int {
	n := c.ser.Len() - c.idx
	if n < 0 {
		return 0
	}

	return n
}

// SeriesAppend appends v at the tail of the series behind c. An any-array
// value appended to an array splices its elements.
func (rt *Runtime) SeriesAppend(c *Cell, v *Cell, out *Cell) Signal {
	if sig := rt.seriesWritable(c, out); sig != SigOK {
		return sig
	}

	s := c.ser

	switch {
	case c.IsAnyArray():
		if v.IsAnyArray() {
			src := v.ser
			for i, n := v.idx, src.Len(); i < n; i++ {
				s.Append(src.At(i))
			}

			return SigOK
		}

		s.Append(v)
	case c.IsAnyString():
		return rt.stringAbsorb(s, v, out, s.Len())
	default:
		return rt.binaryAbsorb(s, v, out, s.Len())
	}

	return SigOK
}

// SeriesInsert inserts v at the view index of c. Splicing follows the
// append rules.
func (rt *Runtime) SeriesInsert(c *Cell, v *Cell, out *Cell) Signal {
	if sig := rt.seriesWritable(c, out); sig != SigOK {
		return sig
	}

	s := c.ser

	at := c.idx
	if at > s.Len() {
		at = s.Len()
	}

	switch {
	case c.IsAnyArray():
		if v.IsAnyArray() {
			src := v.ser
			for i, n := v.idx, src.Len(); i < n; i++ {
				s.Insert(at+(i-v.idx), src.At(i))
			}

			return SigOK
		}

		s.Insert(at, v)
	case c.IsAnyString():
		return rt.stringAbsorb(s, v, out, at)
	default:
		return rt.binaryAbsorb(s, v, out, at)
	}

	return SigOK
}

// stringAbsorb inserts the text rendering of v into the string series s
// at index at. A char inserts one codepoint; everything else forms.
func (rt *Runtime) stringAbsorb(s *Series, v *Cell, out *Cell, at int) Signal {
	if v.kind == KindChar {
		s.InsertRune(at, rune(v.Int()))

		return SigOK
	}

	text := rt.Form(v)
	for _, r := range text {
		if r > 0xFFFF {
			ch := Char('?')

			return rt.Fail(out, ErrIllegalAction, &ch)
		}

		s.InsertRune(at, r)
		at++
	}

	return SigOK
}

// binaryAbsorb inserts the byte rendering of v into the byte series s.
func (rt *Runtime) binaryAbsorb(s *Series, v *Cell, out *Cell, at int) Signal {
	var src []byte

	switch {
	case v.kind == KindInteger:
		if v.Int() < 0 || v.Int() > 0xFF {
			return rt.Fail(out, ErrOutOfRange, v)
		}

		src = []byte{byte(v.Int())}
	case v.kind == KindBinary:
		// Snapshot: the source may alias s when inserting into itself.
		src = append([]byte(nil), v.ser.data[v.idx:]...)
	case v.IsAnyString():
		src = v.ser.UTF8Bytes(v.idx)
	default:
		return rt.Fail(out, ErrIllegalAction, v)
	}

	s.data = append(s.data, make([]byte, len(src))...)
	copy(s.data[at+len(src):], s.data[at:len(s.data)-len(src)])
	copy(s.data[at:], src)

	return SigOK
}

// SeriesTake removes the element at the view index of c and writes it to
// out, or blank when the series is exhausted.
func (rt *Runtime) SeriesTake(c *Cell, out *Cell) Signal {
	if sig := rt.seriesWritable(c, out); sig != SigOK {
		return sig
	}

	s := c.ser
	i := c.idx

	if i >= s.Len() {
		blank := Blank()
		out.Copy(&blank)

		return SigOK
	}

	switch {
	case c.IsAnyArray():
		out.Copy(s.At(i))

		copy(s.cells[i:], s.cells[i+1:len(s.cells)])
		s.cells = s.cells[:len(s.cells)-1]
		s.Terminate()
	case c.IsAnyString():
		ch := Char(s.Rune(i))
		out.Copy(&ch)

		switch s.width {
		case WidthByte:
			s.data = append(s.data[:i], s.data[i+1:]...)
		case WidthWide:
			s.wide = append(s.wide[:i], s.wide[i+1:]...)
		}
	default:
		v := Integer(int64(s.ByteAt(i)))
		out.Copy(&v)

		s.data = append(s.data[:i], s.data[i+1:]...)
	}

	return SigOK
}

// Compare orders two cells of comparable kinds: negative, zero, or
// positive. Incomparable pairs order by kind tag so sorting is total.
func Compare(a, b *Cell) int {
	if a.kind != b.kind {
		// Numeric kinds compare across the integer/decimal divide.
		if an, aok := numeric(a); aok {
			if bn, bok := numeric(b); bok {
				return cmpFloat(an, bn)
			}
		}

		return int(a.kind) - int(b.kind)
	}

	switch a.kind {
	case KindInteger, KindChar, KindLogic:
		return cmpInt(a.i, b.i)
	case KindDecimal, KindPercent:
		return cmpFloat(a.f, b.f)
	case KindWord, KindSetWord, KindGetWord, KindLitWord, KindRefinement, KindIssue:
		return cmpString(a.word.Name(), b.word.Name())
	default:
		if a.IsAnyString() {
			return cmpString(a.ser.GoString(a.idx), b.ser.GoString(b.idx))
		}

		return 0
	}
}

func numeric(c *Cell) (float64, bool) {
	switch c.kind {
	case KindInteger:
		return float64(c.i), true
	case KindDecimal, KindPercent:
		return c.f, true
	}

	return 0, false
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}

	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}

	return 0
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}

	return 0
}

// SeriesSort sorts the series behind c from its view index. With a
// comparator function the ordering is the function's; it receives two
// elements and its truthy output means the first sorts earlier.
func (rt *Runtime) SeriesSort(c *Cell, comparator *Cell, out *Cell) Signal {
	if sig := rt.seriesWritable(c, out); sig != SigOK {
		return sig
	}

	s := c.ser
	from := c.idx

	less, sig := rt.sortLess(comparator, out)
	if sig != SigOK {
		return sig
	}

	var failed Signal

	switch {
	case c.IsAnyArray():
		section := s.cells[from:s.Len()]
		sort.SliceStable(section, func(i, j int) bool {
			if failed != SigOK {
				return false
			}

			ok, sig := less(&section[i], &section[j])
			if sig != SigOK {
				failed = sig
			}

			return ok
		})
	case c.IsAnyString():
		failed = rt.sortRunes(s, from, less)
	default:
		section := s.data[from:]
		sort.SliceStable(section, func(i, j int) bool {
			if failed != SigOK {
				return false
			}

			a := Integer(int64(section[i]))
			b := Integer(int64(section[j]))

			ok, sig := less(&a, &b)
			if sig != SigOK {
				failed = sig
			}

			return ok
		})
	}

	if failed != SigOK {
		return failed
	}

	return SigOK
}

// sortLess builds the element ordering: the default comparison, or an
// invocation of the user's comparator function.
func (rt *Runtime) sortLess(comparator *Cell, out *Cell) (func(a, b *Cell) (bool, Signal), Signal) {
	if comparator == nil || comparator.kind == KindBlank {
		return func(a, b *Cell) (bool, Signal) {
			return Compare(a, b) < 0, SigOK
		}, SigOK
	}

	if comparator.kind != KindFunction {
		return nil, rt.Fail(out, ErrIllegalAction, comparator)
	}

	fn := *comparator

	return func(a, b *Cell) (bool, Signal) {
		av := *a
		bv := *b

		sig := rt.DoVa(out, fn, av, bv)
		if sig != SigOK {
			return false, sig
		}

		ok := !out.IsEnd() && !out.IsVoid() && out.Bool()
		out.Prep()

		return ok, SigOK
	}, SigOK
}

// sortRunes sorts the codepoints of a string series in place.
func (rt *Runtime) sortRunes(s *Series, from int, less func(a, b *Cell) (bool, Signal)) Signal {
	n := s.Len()

	runes := make([]rune, 0, n-from)
	for i := from; i < n; i++ {
		runes = append(runes, s.Rune(i))
	}

	var failed Signal

	sort.SliceStable(runes, func(i, j int) bool {
		if failed != SigOK {
			return false
		}

		a := Char(runes[i])
		b := Char(runes[j])

		ok, sig := less(&a, &b)
		if sig != SigOK {
			failed = sig
		}

		return ok
	})

	if failed != SigOK {
		return failed
	}

	for i, r := range runes {
		s.setRune(from+i, r)
	}

	return SigOK
}
