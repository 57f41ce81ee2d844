// Released under an MIT license. See LICENSE.

package reader

import (
	"testing"

	"github.com/renlang/ren/internal/core"
)

type harness struct {
	t  *testing.T
	rt *core.Runtime
}

func setup(t *testing.T) *harness {
	t.Helper()

	return &harness{t: t, rt: core.NewRuntime()}
}

func (h *harness) read(src string) core.Cell {
	h.t.Helper()

	c, err := New(h.rt, "test").Read(src)
	if err != nil {
		h.t.Fatalf("read %q: %v", src, err)
	}

	return c
}

// roundtrip checks that src reads as a single value that molds back to
// want.
func (h *harness) roundtrip(src, want string) {
	h.t.Helper()

	c := h.read(src)

	s := c.Series()
	if s.Len() != 1 {
		h.t.Fatalf("read %q: %d values, want 1", src, s.Len())
	}

	if got := h.rt.Mold(s.At(0)); got != want {
		h.t.Errorf("read %q molds as %q, want %q", src, got, want)
	}
}

func TestReadScalars(t *testing.T) {
	h := setup(t)

	for src, want := range map[string]string{
		"42":    "42",
		"-7":    "-7",
		"3.25":  "3.25",
		"50%":   "50.0%",
		"_":     "_",
		"|":     "|",
		"'|":    "'|",
		`#"x"`:  `#"x"`,
		`#"^/"`: `#"^/"`,
	} {
		h.roundtrip(src, want)
	}
}

func TestReadWords(t *testing.T) {
	h := setup(t)

	for src, want := range map[string]string{
		"foo":     "foo",
		"foo:":    "foo:",
		":foo":    ":foo",
		"'foo":    "'foo",
		"/only":   "/only",
		"#issue":  "#issue",
		"+":       "+",
		"->":      "->",
		"length?": "length?",
		"<":       "<",
		"<=":      "<=",
		"<>":      "<>",
		">":       ">",
		">=":      ">=",
	} {
		h.roundtrip(src, want)
	}
}

func TestReadPaths(t *testing.T) {
	h := setup(t)

	for src, want := range map[string]string{
		"a/b":    "a/b",
		"a/b/c":  "a/b/c",
		"a/2":    "a/2",
		"a/b:":   "a/b:",
		":a/b":   ":a/b",
		"'a/b":   "'a/b",
		"obj/x:": "obj/x:",
	} {
		h.roundtrip(src, want)
	}
}

func TestReadArrays(t *testing.T) {
	h := setup(t)

	for src, want := range map[string]string{
		"[1 2 3]":   "[1 2 3]",
		"[]":        "[]",
		"(add 1 2)": "(add 1 2)",
		"[a [b]]":   "[a [b]]",
		"[1, 2]":    "[1 2]",
	} {
		h.roundtrip(src, want)
	}
}

func TestReadStrings(t *testing.T) {
	h := setup(t)

	for src, want := range map[string]string{
		`"hello"`:    `"hello"`,
		`"a^"b"`:     `"a^"b"`,
		`"tab^-end"`: `"tab^-end"`,
		`"nl^/end"`:  `"nl^/end"`,
		`"^(41)"`:    `"A"`,
		"{brace {nested} ok}": `"brace {nested} ok"`,
	} {
		h.roundtrip(src, want)
	}
}

func TestReadBinary(t *testing.T) {
	h := setup(t)

	h.roundtrip("#{DEAD01}", "#{DEAD01}")
	h.roundtrip("#{de ad 01}", "#{DEAD01}")

	if _, err := New(h.rt, "test").Read("#{abc}"); err == nil {
		t.Fatal("odd digit count accepted")
	}
}

func TestReadTagAndFile(t *testing.T) {
	h := setup(t)

	h.roundtrip("<div>", "<div>")
	h.roundtrip("%some/file.txt", "%some/file.txt")
}

func TestReadConstruction(t *testing.T) {
	h := setup(t)

	for src, want := range map[string]string{
		"#[true]":     "true",
		"#[false]":    "false",
		"#[void!]":    "#[void!]",
		"#[integer!]": "integer!",
	} {
		h.roundtrip(src, want)
	}
}

func TestReadComments(t *testing.T) {
	h := setup(t)

	c := h.read("1 ; a comment\n2")

	if c.Series().Len() != 2 {
		t.Fatalf("read %d values, want 2", c.Series().Len())
	}
}

func TestReadMismatchedClose(t *testing.T) {
	h := setup(t)

	for _, src := range []string{"]", "[1)", "(]"} {
		if _, err := New(h.rt, "test").Read(src); err == nil {
			t.Errorf("read %q did not fail", src)
		}
	}
}

func TestScanAccumulates(t *testing.T) {
	h := setup(t)

	r := New(h.rt, "repl")

	c, err := r.Scan("[1 2")
	if err != nil || c != nil {
		t.Fatalf("open block: cell %v, err %v", c, err)
	}

	c, err = r.Scan("3]")
	if err != nil {
		t.Fatalf("close block: %v", err)
	}

	if c == nil {
		t.Fatal("complete input still pending")
	}

	if got := h.rt.Mold(c.Series().At(0)); got != "[1 2\n3]" && got != "[1 2 3]" {
		t.Fatalf("scanned block = %q", got)
	}
}

func TestScanResetsAfterComplete(t *testing.T) {
	h := setup(t)

	r := New(h.rt, "repl")

	if _, err := r.Scan("1 2"); err != nil {
		t.Fatal(err)
	}

	c, err := r.Scan("3")
	if err != nil {
		t.Fatal(err)
	}

	if c.Series().Len() != 1 {
		t.Fatal("scanner kept stale input")
	}
}

func TestScanIncompleteString(t *testing.T) {
	h := setup(t)

	r := New(h.rt, "repl")

	c, err := r.Scan(`{first line`)
	if err != nil || c != nil {
		t.Fatalf("open brace string: cell %v, err %v", c, err)
	}

	c, err = r.Scan("rest}")
	if err != nil || c == nil {
		t.Fatalf("close brace string: cell %v, err %v", c, err)
	}
}
