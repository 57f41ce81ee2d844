// Released under an MIT license. See LICENSE.

package core

import (
	"strconv"
	"strings"
)

// Molding renders cells back to source text. Mold produces loadable text
// where the kind permits and #[kind! ...] construction syntax where it
// does not; Form produces human-readable text (strings unquoted).

// Mold renders c as source text.
func (rt *Runtime) Mold(c *Cell) string {
	m := molder{rt: rt, seen: map[*Series]bool{}}
	m.cell(c, false)

	return m.b.String()
}

// Form renders c as display text.
func (rt *Runtime) Form(c *Cell) string {
	m := molder{rt: rt, seen: map[*Series]bool{}}
	m.cell(c, true)

	return m.b.String()
}

type molder struct {
	rt   *Runtime
	b    strings.Builder
	seen map[*Series]bool
}

//nolint:gocyclo
func (m *molder) cell(c *Cell, form bool) {
	switch c.kind {
	case KindEnd:
		m.b.WriteString("#[end!]")
	case KindVoid:
		m.b.WriteString("#[void!]")
	case KindBar:
		m.b.WriteString("|")
	case KindLitBar:
		m.b.WriteString("'|")
	case KindBlank:
		m.b.WriteString("_")
	case KindLogic:
		if c.i != 0 {
			m.b.WriteString("true")
		} else {
			m.b.WriteString("false")
		}
	case KindInteger:
		m.b.WriteString(strconv.FormatInt(c.i, 10))
	case KindDecimal:
		m.decimal(c.f)
	case KindPercent:
		m.decimal(c.f * 100)
		m.b.WriteString("%")
	case KindChar:
		m.b.WriteString("#\"")
		m.escRune(rune(c.i))
		m.b.WriteString("\"")
	case KindWord:
		m.b.WriteString(c.word.Name())
	case KindSetWord:
		m.b.WriteString(c.word.Name())
		m.b.WriteString(":")
	case KindGetWord:
		m.b.WriteString(":")
		m.b.WriteString(c.word.Name())
	case KindLitWord:
		m.b.WriteString("'")
		m.b.WriteString(c.word.Name())
	case KindRefinement:
		m.b.WriteString("/")
		m.b.WriteString(c.word.Name())
	case KindIssue:
		m.b.WriteString("#")
		m.b.WriteString(c.word.Name())
	case KindBlock:
		m.array(c, form, "[", "]")
	case KindGroup:
		m.array(c, form, "(", ")")
	case KindPath:
		m.path(c, form, "", "")
	case KindSetPath:
		m.path(c, form, "", ":")
	case KindGetPath:
		m.path(c, form, ":", "")
	case KindLitPath:
		m.path(c, form, "'", "")
	case KindString:
		m.string(c, form)
	case KindFile:
		m.b.WriteString("%")
		m.b.WriteString(c.ser.GoString(c.idx))
	case KindEmail, KindURL:
		m.b.WriteString(c.ser.GoString(c.idx))
	case KindTag:
		m.b.WriteString("<")
		m.b.WriteString(c.ser.GoString(c.idx))
		m.b.WriteString(">")
	case KindBinary:
		m.binary(c)
	case KindMap:
		m.mapCell(c, form)
	case KindObject, KindModule, KindFrame, KindError:
		m.context(c, form)
	case KindFunction:
		m.function(c)
	case KindVarargs:
		m.b.WriteString("#[varargs!]")
	case KindDatatype:
		m.b.WriteString(Kind(c.i).Name())
	case KindTypeset:
		m.b.WriteString("#[typeset!]")
	default:
		m.b.WriteString("#[")
		m.b.WriteString(c.kind.Name())
		m.b.WriteString("]")
	}
}

func (m *molder) decimal(f float64) {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}

	m.b.WriteString(s)
}

func (m *molder) array(c *Cell, form bool, open, close string) {
	s := c.ser

	if m.seen[s] {
		m.b.WriteString(open)
		m.b.WriteString("...")
		m.b.WriteString(close)

		return
	}

	m.seen[s] = true
	defer delete(m.seen, s)

	m.b.WriteString(open)

	for i, n := c.idx, s.Len(); i < n; i++ {
		if i > c.idx {
			m.b.WriteString(" ")
		}

		m.cell(s.At(i), form)
	}

	m.b.WriteString(close)
}

func (m *molder) path(c *Cell, form bool, prefix, suffix string) {
	s := c.ser

	m.b.WriteString(prefix)

	for i, n := c.idx, s.Len(); i < n; i++ {
		if i > c.idx {
			m.b.WriteString("/")
		}

		m.cell(s.At(i), form)
	}

	m.b.WriteString(suffix)
}

func (m *molder) string(c *Cell, form bool) {
	if form {
		m.b.WriteString(c.ser.GoString(c.idx))

		return
	}

	m.b.WriteString("\"")

	for i, n := c.idx, c.ser.Len(); i < n; i++ {
		m.escRune(c.ser.Rune(i))
	}

	m.b.WriteString("\"")
}

// escRune writes one codepoint using caret escapes for the characters
// that cannot appear raw inside a quoted string.
func (m *molder) escRune(r rune) {
	switch r {
	case '"':
		m.b.WriteString("^\"")
	case '^':
		m.b.WriteString("^^")
	case '\n':
		m.b.WriteString("^/")
	case '\t':
		m.b.WriteString("^-")
	default:
		if r < 0x20 {
			m.b.WriteString("^(")
			m.b.WriteString(strconv.FormatInt(int64(r), 16))
			m.b.WriteString(")")

			return
		}

		m.b.WriteRune(r)
	}
}

const hexDigits = "0123456789ABCDEF"

func (m *molder) binary(c *Cell) {
	m.b.WriteString("#{")

	for i, n := c.idx, c.ser.Len(); i < n; i++ {
		v := c.ser.ByteAt(i)
		m.b.WriteByte(hexDigits[v>>4])
		m.b.WriteByte(hexDigits[v&0xF])
	}

	m.b.WriteString("}")
}

func (m *molder) mapCell(c *Cell, form bool) {
	s := c.ser

	if m.seen[s] {
		m.b.WriteString("make map! [...]")

		return
	}

	m.seen[s] = true
	defer delete(m.seen, s)

	m.b.WriteString("make map! [")

	for i, n := 0, s.Len(); i+1 < n; i += 2 {
		if i > 0 {
			m.b.WriteString(" ")
		}

		m.cell(s.At(i), form)
		m.b.WriteString(" ")
		m.cell(s.At(i+1), form)
	}

	m.b.WriteString("]")
}

func (m *molder) context(c *Cell, form bool) {
	v := c.ser

	if m.seen[v] {
		m.b.WriteString("make " + c.kind.Name() + " [...]")

		return
	}

	m.seen[v] = true
	defer delete(m.seen, v)

	m.b.WriteString("make ")
	m.b.WriteString(c.kind.Name())
	m.b.WriteString(" [")

	kl := v.Keylist()
	for i, n := 1, kl.Len(); i < n; i++ {
		if i > 1 {
			m.b.WriteString(" ")
		}

		m.b.WriteString(kl.At(i).word.Name())
		m.b.WriteString(": ")

		slot := v.Slot(i)
		if slot.IsVoid() {
			m.b.WriteString("#[void!]")
		} else {
			m.cell(slot, form)
		}
	}

	m.b.WriteString("]")
}

func (m *molder) function(c *Cell) {
	p := c.ser

	m.b.WriteString("make function! [[")

	for i, n := 1, p.Len(); i < n; i++ {
		if i > 1 {
			m.b.WriteString(" ")
		}

		ts := p.At(i)

		switch ts.ParamClass() {
		case ParamRefinement:
			m.b.WriteString("/")
		case ParamHardQuote:
			m.b.WriteString("'")
		case ParamSoftQuote:
			m.b.WriteString(":")
		}

		m.b.WriteString(ts.word.Name())
	}

	m.b.WriteString("] [...]]")
}
