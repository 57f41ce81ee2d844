// Released under an MIT license. See LICENSE.

package core

import "testing"

func TestPickInRange(t *testing.T) {
	rt := NewRuntime()

	b := Block(testArray(rt, Integer(10), Integer(20), Integer(30)))

	var out Cell

	out.Prep()

	if sig := rt.PickSeries(&b, 2, &out); sig != SigOK || out.Int() != 20 {
		t.Fatalf("pick 2 = %s", rt.Mold(&out))
	}
}

func TestPickOutOfRangeIsBlank(t *testing.T) {
	rt := NewRuntime()

	b := Block(testArray(rt, Integer(10)))

	var out Cell

	out.Prep()

	for _, n := range []int{0, 2, -1, 99} {
		if sig := rt.PickSeries(&b, n, &out); sig != SigOK || out.Kind() != KindBlank {
			t.Fatalf("pick %d = %s", n, rt.Mold(&out))
		}
	}
}

func TestPokeOutOfRangeFails(t *testing.T) {
	rt := NewRuntime()

	b := Block(testArray(rt, Integer(10)))

	var out Cell

	out.Prep()

	v := Integer(1)

	if sig := rt.PokeSeries(&b, 5, &v, &out); sig != SigThrown {
		t.Fatal("poke past the tail did not fail")
	}

	if out.ErrorID() != ErrOutOfRange {
		t.Fatalf("unexpected failure: %s", rt.Mold(&out))
	}
}

func TestPokeString(t *testing.T) {
	rt := NewRuntime()

	s := rt.AllocString(3)
	s.AppendString("cat")

	str := String(s)

	var out Cell

	out.Prep()

	v := Char('u')

	if sig := rt.PokeSeries(&str, 2, &v, &out); sig != SigOK {
		t.Fatalf("poke failed: %s", rt.Mold(&out))
	}

	if rt.Form(&str) != "cut" {
		t.Fatalf("poked string = %q", rt.Form(&str))
	}
}

func TestPokeProtectedFails(t *testing.T) {
	rt := NewRuntime()

	b := Block(testArray(rt, Integer(1)))
	b.Series().Protect()

	var out Cell

	out.Prep()

	v := Integer(2)

	if sig := rt.PokeSeries(&b, 1, &v, &out); sig != SigThrown {
		t.Fatal("poke of a protected series did not fail")
	}

	if out.ErrorID() != ErrReadOnly {
		t.Fatalf("unexpected failure: %s", rt.Mold(&out))
	}
}

func TestAppendSplicesBlock(t *testing.T) {
	rt := NewRuntime()

	b := Block(testArray(rt, Integer(1)))
	v := Block(testArray(rt, Integer(2), Integer(3)))

	var out Cell

	out.Prep()

	if sig := rt.SeriesAppend(&b, &v, &out); sig != SigOK {
		t.Fatalf("append failed: %s", rt.Mold(&out))
	}

	if got := rt.Mold(&b); got != "[1 2 3]" {
		t.Fatalf("append splice = %s", got)
	}
}

func TestAppendStringForms(t *testing.T) {
	rt := NewRuntime()

	s := rt.AllocString(4)
	s.AppendString("n = ")

	str := String(s)

	var out Cell

	out.Prep()

	v := Integer(42)

	if sig := rt.SeriesAppend(&str, &v, &out); sig != SigOK {
		t.Fatalf("append failed: %s", rt.Mold(&out))
	}

	if rt.Form(&str) != "n = 42" {
		t.Fatalf("appended string = %q", rt.Form(&str))
	}
}

func TestBinarySelfInsert(t *testing.T) {
	rt := NewRuntime()

	s := rt.AllocBinary(4)

	for _, b := range []byte{1, 2, 3} {
		s.AppendByte(b)
	}

	bin := Binary(s)

	var out Cell

	out.Prep()

	if sig := rt.SeriesAppend(&bin, &bin, &out); sig != SigOK {
		t.Fatalf("self append failed: %s", rt.Mold(&out))
	}

	want := []byte{1, 2, 3, 1, 2, 3}
	for i, b := range want {
		if s.ByteAt(i) != b {
			t.Fatalf("byte %d = %d, want %d", i, s.ByteAt(i), b)
		}
	}
}

func TestSortDefaultOrder(t *testing.T) {
	rt := NewRuntime()

	b := Block(testArray(rt, Integer(3), Integer(1), Integer(2)))

	var out Cell

	out.Prep()

	if sig := rt.SeriesSort(&b, nil, &out); sig != SigOK {
		t.Fatalf("sort failed: %s", rt.Mold(&out))
	}

	if got := rt.Mold(&b); got != "[1 2 3]" {
		t.Fatalf("sorted = %s", got)
	}
}

func TestSortComparator(t *testing.T) {
	rt := NewRuntime()

	params := []Cell{
		TypesetCell(rt.Intern("a"), AnyValueBits, ParamNormal, 0),
		TypesetCell(rt.Intern("b"), AnyValueBits, ParamNormal, 0),
	}

	body := testArray(rt,
		Word(rt.Intern("a")), libWord(rt, ">"), Word(rt.Intern("b")))

	p := rt.MakeParamlist(params, &funcInfo{body: body})
	rt.BindRelative(body, p)
	rt.Heap.Manage(p)

	fn := Function(p)

	b := Block(testArray(rt, Integer(1), Integer(3), Integer(2)))

	var out Cell

	out.Prep()

	if sig := rt.SeriesSort(&b, &fn, &out); sig != SigOK {
		t.Fatalf("sort failed: %s", rt.Mold(&out))
	}

	if got := rt.Mold(&b); got != "[3 2 1]" {
		t.Fatalf("sorted descending = %s", got)
	}
}

func TestSortString(t *testing.T) {
	rt := NewRuntime()

	s := rt.AllocString(3)
	s.AppendString("cba")

	str := String(s)

	var out Cell

	out.Prep()

	if sig := rt.SeriesSort(&str, nil, &out); sig != SigOK {
		t.Fatalf("sort failed: %s", rt.Mold(&out))
	}

	if rt.Form(&str) != "abc" {
		t.Fatalf("sorted string = %q", rt.Form(&str))
	}
}

func TestCompareCrossNumeric(t *testing.T) {
	a := Integer(2)
	b := Decimal(2.5)

	if Compare(&a, &b) >= 0 {
		t.Fatal("2 is not less than 2.5")
	}

	c := Decimal(2.0)
	if Compare(&a, &c) != 0 {
		t.Fatal("2 does not equal 2.0")
	}
}

func TestSeriesTakeConsumesHead(t *testing.T) {
	rt := NewRuntime()

	b := Block(testArray(rt, Integer(1), Integer(2)))

	var out Cell

	out.Prep()

	rt.SeriesTake(&b, &out)

	if out.Int() != 1 || SeriesLen(&b) != 1 {
		t.Fatalf("take = %s, %d left", rt.Mold(&out), SeriesLen(&b))
	}

	rt.SeriesTake(&b, &out)
	rt.SeriesTake(&b, &out)

	if out.Kind() != KindBlank {
		t.Fatalf("take past the tail = %s", rt.Mold(&out))
	}
}
