// Released under an MIT license. See LICENSE.

package core

import "testing"

func testString(rt *Runtime, text string) Cell {
	s := rt.AllocString(len(text))
	s.AppendString(text)

	return String(s)
}

func TestMakeBlockWithCapacity(t *testing.T) {
	rt := NewRuntime()

	var out Cell

	out.Prep()

	n := Integer(8)

	if sig := rt.MakeValue(KindBlock, &n, &out); sig != SigOK {
		t.Fatalf("make failed: %s", rt.Mold(&out))
	}

	if out.Kind() != KindBlock || SeriesLen(&out) != 0 {
		t.Fatalf("make block! 8 = %s", rt.Mold(&out))
	}
}

func TestMakeBlockCopies(t *testing.T) {
	rt := NewRuntime()

	src := Block(testArray(rt, Integer(1), Integer(2)))

	var out Cell

	out.Prep()

	if sig := rt.MakeValue(KindBlock, &src, &out); sig != SigOK {
		t.Fatalf("make failed: %s", rt.Mold(&out))
	}

	if out.Series() == src.Series() {
		t.Fatal("make did not copy the source")
	}

	if got := rt.Mold(&out); got != "[1 2]" {
		t.Fatalf("copy = %s", got)
	}
}

func TestMakeMap(t *testing.T) {
	rt := NewRuntime()

	spec := Block(testArray(rt,
		Word(rt.Intern("a")), Integer(1),
		Word(rt.Intern("b")), Integer(2)))

	var out Cell

	out.Prep()

	if sig := rt.MakeValue(KindMap, &spec, &out); sig != SigOK {
		t.Fatalf("make failed: %s", rt.Mold(&out))
	}

	if out.Kind() != KindMap {
		t.Fatalf("made %s", out.Kind().Name())
	}

	key := Word(rt.Intern("b"))

	v := out.Series().MapGet(&key)
	if v == nil || v.Int() != 2 {
		t.Fatal("map lookup failed")
	}
}

func TestMakeObject(t *testing.T) {
	rt := NewRuntime()

	spec := Block(testArray(rt,
		WordKind(KindSetWord, rt.Intern("a")), Integer(1),
		WordKind(KindSetWord, rt.Intern("b")),
		libWord(rt, "add"), Integer(2), Integer(3)))

	var out Cell

	out.Prep()

	if sig := rt.MakeValue(KindObject, &spec, &out); sig != SigOK {
		t.Fatalf("make failed: %s", rt.Mold(&out))
	}

	v := out.Series()

	i := v.FindField(rt.Intern("b"))
	if i == 0 {
		t.Fatal("object has no b")
	}

	if v.Slot(i).Int() != 5 {
		t.Fatalf("b = %s", rt.Mold(v.Slot(i)))
	}
}

func TestMakeError(t *testing.T) {
	rt := NewRuntime()

	id := Word(rt.Intern("custom-problem"))

	var out Cell

	out.Prep()

	if sig := rt.MakeValue(KindError, &id, &out); sig != SigOK {
		t.Fatalf("make failed: %s", rt.Mold(&out))
	}

	if out.Kind() != KindError || out.ErrorID() != "custom-problem" {
		t.Fatalf("made %s", rt.Mold(&out))
	}
}

func TestMakeFunctionAndCall(t *testing.T) {
	rt := NewRuntime()

	params := Block(testArray(rt,
		Word(rt.Intern("a")), Word(rt.Intern("b"))))
	body := Block(testArray(rt,
		Word(rt.Intern("a")), libWord(rt, "+"), Word(rt.Intern("b"))))

	var fn Cell

	fn.Prep()

	if sig := rt.MakeFunction(&params, &body, &fn); sig != SigOK {
		t.Fatalf("make function failed: %s", rt.Mold(&fn))
	}

	var out Cell

	if sig := rt.DoVa(&out, fn, Integer(3), Integer(4)); sig != SigOK {
		t.Fatalf("call failed: %s", rt.Mold(&out))
	}

	if out.Int() != 7 {
		t.Fatalf("f 3 4 = %d", out.Int())
	}
}

func TestFunctionRefinement(t *testing.T) {
	rt := NewRuntime()

	params := Block(testArray(rt,
		Word(rt.Intern("n")),
		WordKind(KindRefinement, rt.Intern("double"))))
	body := Block(testArray(rt,
		libWord(rt, "either"), Word(rt.Intern("double")),
		Block(testArray(rt,
			Word(rt.Intern("n")), libWord(rt, "*"), Integer(2))),
		Block(testArray(rt, Word(rt.Intern("n"))))))

	var fn Cell

	fn.Prep()

	if sig := rt.MakeFunction(&params, &body, &fn); sig != SigOK {
		t.Fatalf("make function failed: %s", rt.Mold(&fn))
	}

	var out Cell

	if sig := rt.DoVa(&out, fn, Integer(5)); sig != SigOK {
		t.Fatalf("plain call failed: %s", rt.Mold(&out))
	}

	if out.Int() != 5 {
		t.Fatalf("f 5 = %d", out.Int())
	}

	// Invoke through a path to switch the refinement on.
	rt.AddField(rt.Lib(), rt.Intern("f"), &fn)

	path := SeriesCell(KindPath, testArray(rt,
		Word(rt.Intern("f")), Word(rt.Intern("double"))), 0)

	prog := testArray(rt, path, Integer(5))
	rt.Bind(prog, rt.Lib(), true)

	if sig := rt.Do(prog, 0, nil, &out); sig != SigOK {
		t.Fatalf("refined call failed: %s", rt.Mold(&out))
	}

	if out.Int() != 10 {
		t.Fatalf("f/double 5 = %d", out.Int())
	}
}

func TestToInteger(t *testing.T) {
	rt := NewRuntime()

	var out Cell

	out.Prep()

	str := testString(rt, "42")

	if sig := rt.ToValue(KindInteger, &str, &out); sig != SigOK || out.Int() != 42 {
		t.Fatalf("to integer! \"42\" = %s", rt.Mold(&out))
	}

	d := Decimal(3.9)

	if sig := rt.ToValue(KindInteger, &d, &out); sig != SigOK || out.Int() != 3 {
		t.Fatalf("to integer! 3.9 = %s", rt.Mold(&out))
	}
}

func TestToString(t *testing.T) {
	rt := NewRuntime()

	var out Cell

	out.Prep()

	n := Integer(42)

	if sig := rt.ToValue(KindString, &n, &out); sig != SigOK {
		t.Fatalf("to failed: %s", rt.Mold(&out))
	}

	if rt.Form(&out) != "42" {
		t.Fatalf("to string! 42 = %q", rt.Form(&out))
	}
}

func TestToCharRange(t *testing.T) {
	rt := NewRuntime()

	var out Cell

	out.Prep()

	n := Integer(65)

	if sig := rt.ToValue(KindChar, &n, &out); sig != SigOK || out.Int() != 'A' {
		t.Fatalf("to char! 65 = %s", rt.Mold(&out))
	}

	big := Integer(0x110000)

	if sig := rt.ToValue(KindChar, &big, &out); sig != SigThrown {
		t.Fatal("out of range codepoint accepted")
	}

	if out.ErrorID() != ErrOutOfRange {
		t.Fatalf("unexpected failure: %s", rt.Mold(&out))
	}
}

func TestToBinaryRoundTrip(t *testing.T) {
	rt := NewRuntime()

	var bin, back Cell

	bin.Prep()
	back.Prep()

	str := testString(rt, "héllo")

	if sig := rt.ToValue(KindBinary, &str, &bin); sig != SigOK {
		t.Fatalf("to binary! failed: %s", rt.Mold(&bin))
	}

	if sig := rt.ToValue(KindString, &bin, &back); sig != SigOK {
		t.Fatalf("to string! failed: %s", rt.Mold(&back))
	}

	if rt.Form(&back) != "héllo" {
		t.Fatalf("round trip = %q", rt.Form(&back))
	}
}

func TestToBlockSharesStorage(t *testing.T) {
	rt := NewRuntime()

	g := Group(testArray(rt, Integer(1), Integer(2)))

	var out Cell

	out.Prep()

	if sig := rt.ToValue(KindBlock, &g, &out); sig != SigOK {
		t.Fatalf("to failed: %s", rt.Mold(&out))
	}

	if out.Kind() != KindBlock || out.Series() != g.Series() {
		t.Fatal("to block! of a group should re-kind the same series")
	}
}

func TestKindByName(t *testing.T) {
	if k, ok := KindByName("integer!"); !ok || k != KindInteger {
		t.Fatal("integer! not found")
	}

	if _, ok := KindByName("no-such-type!"); ok {
		t.Fatal("bogus type found")
	}
}

func TestMakeStringView(t *testing.T) {
	rt := NewRuntime()

	src := testString(rt, "hello")
	pos := Integer(3)
	spec := Block(testArray(rt, src, pos))

	var out Cell

	out.Prep()

	if sig := rt.MakeValue(KindString, &spec, &out); sig != SigOK {
		t.Fatalf("make failed: %s", rt.Mold(&out))
	}

	if out.Series() != src.Series() {
		t.Fatal("view does not share the source storage")
	}

	if got := rt.Mold(&out); got != `"llo"` {
		t.Fatalf("view = %s", got)
	}
}

func TestMakeStringViewOutOfRange(t *testing.T) {
	rt := NewRuntime()

	spec := Block(testArray(rt, testString(rt, "ab"), Integer(9)))

	var out Cell

	out.Prep()

	if sig := rt.MakeValue(KindString, &spec, &out); sig != SigThrown {
		t.Fatal("index past the tail accepted")
	}

	if out.ErrorID() != ErrOutOfRange {
		t.Fatalf("unexpected failure: %s", rt.Mold(&out))
	}
}

func TestMakeBinaryView(t *testing.T) {
	rt := NewRuntime()

	s := rt.AllocBinary(3)

	for _, b := range []byte{0xde, 0xad, 0x01} {
		s.AppendByte(b)
	}

	src := Binary(s)
	spec := Block(testArray(rt, src, Integer(2)))

	var out Cell

	out.Prep()

	if sig := rt.MakeValue(KindBinary, &spec, &out); sig != SigOK {
		t.Fatalf("make failed: %s", rt.Mold(&out))
	}

	if out.Series() != s {
		t.Fatal("view does not share the source storage")
	}

	if got := rt.Mold(&out); got != "#{AD01}" {
		t.Fatalf("view = %s", got)
	}
}

func TestMapHashedLookup(t *testing.T) {
	rt := NewRuntime()

	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	vals := make([]Cell, 0, len(names)*2)
	for i, n := range names {
		vals = append(vals, Word(rt.Intern(n)), Integer(int64(i+1)))
	}

	spec := Block(testArray(rt, vals...))

	var out Cell

	out.Prep()

	if sig := rt.MakeValue(KindMap, &spec, &out); sig != SigOK {
		t.Fatalf("make failed: %s", rt.Mold(&out))
	}

	p := out.Series()

	if len(p.Hashlist().quads) == 0 {
		t.Fatal("pairlist has no hash buckets")
	}

	for i, n := range names {
		key := Word(rt.Intern(n))

		v := p.MapGet(&key)
		if v == nil || v.Int() != int64(i+1) {
			t.Fatalf("lookup %s failed", n)
		}
	}

	missing := Word(rt.Intern("zork"))
	if p.MapGet(&missing) != nil {
		t.Fatal("absent key found")
	}

	key := Word(rt.Intern("c"))
	repl := Integer(99)
	p.MapSet(&key, &repl)

	if v := p.MapGet(&key); v == nil || v.Int() != 99 {
		t.Fatal("replacement not visible through the hash")
	}
}
