// Released under an MIT license. See LICENSE.

package core

import "testing"

func TestMoldScalars(t *testing.T) {
	rt := NewRuntime()

	cases := []struct {
		cell Cell
		want string
	}{
		{Integer(42), "42"},
		{Integer(-7), "-7"},
		{Decimal(1.5), "1.5"},
		{Decimal(2), "2.0"},
		{Percent(0.5), "50.0%"},
		{Logic(true), "true"},
		{Logic(false), "false"},
		{Blank(), "_"},
		{Bar(), "|"},
		{LitBar(), "'|"},
		{Char('x'), `#"x"`},
		{Char('\n'), `#"^/"`},
		{Void(), "#[void!]"},
		{Datatype(KindInteger), "integer!"},
	}

	for _, c := range cases {
		if got := rt.Mold(&c.cell); got != c.want {
			t.Errorf("mold = %q, want %q", got, c.want)
		}
	}
}

func TestMoldWords(t *testing.T) {
	rt := NewRuntime()

	cases := []struct {
		cell Cell
		want string
	}{
		{Word(rt.Intern("foo")), "foo"},
		{WordKind(KindSetWord, rt.Intern("foo")), "foo:"},
		{WordKind(KindGetWord, rt.Intern("foo")), ":foo"},
		{WordKind(KindLitWord, rt.Intern("foo")), "'foo"},
		{WordKind(KindRefinement, rt.Intern("only")), "/only"},
		{WordKind(KindIssue, rt.Intern("404")), "#404"},
	}

	for _, c := range cases {
		if got := rt.Mold(&c.cell); got != c.want {
			t.Errorf("mold = %q, want %q", got, c.want)
		}
	}
}

func TestMoldArrays(t *testing.T) {
	rt := NewRuntime()

	inner := Group(testArray(rt, Integer(2), Integer(3)))
	b := Block(testArray(rt, Integer(1), inner))

	if got := rt.Mold(&b); got != "[1 (2 3)]" {
		t.Fatalf("mold = %q", got)
	}

	p := SeriesCell(KindPath, testArray(rt,
		Word(rt.Intern("a")), Word(rt.Intern("b")), Integer(3)), 0)

	if got := rt.Mold(&p); got != "a/b/3" {
		t.Fatalf("mold path = %q", got)
	}
}

func TestMoldCycle(t *testing.T) {
	rt := NewRuntime()

	s := testArray(rt, Integer(1))

	self := Block(s)
	s.Append(&self)

	if got := rt.Mold(&self); got != "[1 [...]]" {
		t.Fatalf("mold cycle = %q", got)
	}
}

func TestMoldStringEscapes(t *testing.T) {
	rt := NewRuntime()

	s := rt.AllocString(8)
	s.AppendString("a\"b^c\nd")

	str := String(s)

	if got := rt.Mold(&str); got != `"a^"b^^c^/d"` {
		t.Fatalf("mold = %q", got)
	}

	if got := rt.Form(&str); got != "a\"b^c\nd" {
		t.Fatalf("form = %q", got)
	}
}

func TestMoldBinary(t *testing.T) {
	rt := NewRuntime()

	s := rt.AllocBinary(4)

	for _, b := range []byte{0xde, 0xad, 0x01} {
		s.AppendByte(b)
	}

	bin := Binary(s)

	if got := rt.Mold(&bin); got != "#{DEAD01}" {
		t.Fatalf("mold = %q", got)
	}
}

func TestMoldRespectsIndex(t *testing.T) {
	rt := NewRuntime()

	s := testArray(rt, Integer(1), Integer(2), Integer(3))

	view := SeriesCell(KindBlock, s, 1)

	if got := rt.Mold(&view); got != "[2 3]" {
		t.Fatalf("mold from index 1 = %q", got)
	}
}
