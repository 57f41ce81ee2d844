// Released under an MIT license. See LICENSE.

// Package reader turns ren source text into cells.
//
// Read loads a whole text as one managed block. Scan is the REPL entry:
// it accumulates lines and returns nil without error until the input
// forms a complete block.
package reader

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/renlang/ren/internal/core"
)

// ErrIncomplete reports source that ends inside an open block, group, or
// string. The caller may supply more input and retry.
var ErrIncomplete = errors.New("incomplete input")

// T holds the state of the reader.
type T struct {
	rt *core.Runtime

	name string // label for errors; a file name or other identifier

	src   string
	index int
	line  int

	pending string // accumulated REPL lines
}

type reader = T

// New creates a new reader for name.
func New(rt *core.Runtime, name string) *T {
	return &T{rt: rt, name: name, line: 1}
}

// Read loads the source text as one block of values.
func (r *reader) Read(src string) (core.Cell, error) {
	r.src = src
	r.index = 0
	r.line = 1

	return r.readArray(core.KindBlock, eof)
}

// Scan accumulates line and attempts a parse. It returns nil with no
// error while the input is incomplete.
func (r *reader) Scan(line string) (*core.Cell, error) {
	if r.pending != "" {
		r.pending += "\n"
	}

	r.pending += line

	c, err := r.Read(r.pending)
	if errors.Is(err, ErrIncomplete) {
		return nil, nil
	}

	r.pending = ""

	if err != nil {
		return nil, err
	}

	return &c, nil
}

const eof = rune(-1)

func (r *reader) peek() rune {
	if r.index >= len(r.src) {
		return eof
	}

	c, _ := utf8.DecodeRuneInString(r.src[r.index:])

	return c
}

func (r *reader) next() rune {
	if r.index >= len(r.src) {
		return eof
	}

	c, w := utf8.DecodeRuneInString(r.src[r.index:])
	r.index += w

	if c == '\n' {
		r.line++
	}

	return c
}

func (r *reader) errorf(format string, args ...any) error {
	return fmt.Errorf("%s:%d: %s", r.name, r.line, fmt.Sprintf(format, args...))
}

// skip consumes whitespace, commas, and ; comments.
func (r *reader) skip() {
	for {
		c := r.peek()

		switch {
		case c == ';':
			for c != '\n' && c != eof {
				c = r.next()
			}
		case c == eof:
			return
		case unicode.IsSpace(c) || c == ',':
			r.next()
		default:
			return
		}
	}
}

// readArray reads values until the closing delimiter (or eof for the
// top level) and returns a managed array cell of the given kind.
func (r *reader) readArray(k core.Kind, closer rune) (core.Cell, error) {
	s := r.rt.AllocArray(8)
	r.rt.Heap.Guard(s)

	defer r.rt.Heap.Unguard(s)

	for {
		r.skip()

		c := r.peek()

		if c == closer {
			r.next()

			break
		}

		if c == eof {
			if closer != eof {
				return core.Blank(), ErrIncomplete
			}

			break
		}

		if c == ']' || c == ')' {
			return core.Blank(), r.errorf("unexpected %q", c)
		}

		v, err := r.readValue()
		if err != nil {
			return core.Blank(), err
		}

		s.Append(&v)
	}

	r.rt.Heap.Manage(s)

	return core.SeriesCell(k, s, 0), nil
}

//nolint:gocyclo
func (r *reader) readValue() (core.Cell, error) {
	c := r.peek()

	switch {
	case c == '[':
		r.next()

		return r.readArray(core.KindBlock, ']')

	case c == '(':
		r.next()

		return r.readArray(core.KindGroup, ')')

	case c == '"':
		r.next()

		return r.readQuoted()

	case c == '{':
		r.next()

		return r.readBraced()

	case c == '#':
		return r.readHash()

	case c == '<':
		return r.readTag()

	case c == '%':
		r.next()

		return r.makeStringKind(core.KindFile, r.fileText())

	case c == '\'':
		r.next()

		if r.peek() == '|' {
			r.next()

			return core.LitBar(), nil
		}

		return r.readWordish(core.KindLitWord, core.KindLitPath)

	case c == ':':
		r.next()

		return r.readWordish(core.KindGetWord, core.KindGetPath)

	case c == '/':
		r.next()

		name := r.word()
		if name == "" {
			return core.Blank(), r.errorf("empty refinement")
		}

		return core.WordKind(core.KindRefinement, r.rt.Intern(name)), nil

	case c == '|':
		r.next()

		return core.Bar(), nil

	case c == '_':
		r.next()

		return core.Blank(), nil

	default:
		return r.readNumberOrWord()
	}
}

// wordStop reports whether c terminates a word spelling.
func wordStop(c rune) bool {
	switch c {
	case eof, '[', ']', '(', ')', '"', '{', '}', ';', '/', ':', ',':
		return true
	}

	return unicode.IsSpace(c)
}

// fileText reads a file name, which unlike a word may contain slashes
// and colons.
func (r *reader) fileText() string {
	var b strings.Builder

	for {
		c := r.peek()
		if c == '/' || c == ':' {
			b.WriteRune(r.next())

			continue
		}

		if wordStop(c) {
			return b.String()
		}

		b.WriteRune(r.next())
	}
}

func (r *reader) word() string {
	var b strings.Builder

	for {
		c := r.peek()
		if wordStop(c) {
			return b.String()
		}

		b.WriteRune(r.next())
	}
}

// readWordish reads a word of kind wk, extending to a path of kind pk
// when slashes follow.
func (r *reader) readWordish(wk, pk core.Kind) (core.Cell, error) {
	name := r.word()
	if name == "" {
		return core.Blank(), r.errorf("expected a word")
	}

	if r.peek() == '/' {
		head := core.Word(r.rt.Intern(name))

		return r.readPath(pk, head)
	}

	return core.WordKind(wk, r.rt.Intern(name)), nil
}

func (r *reader) readPath(pk core.Kind, head core.Cell) (core.Cell, error) {
	s := r.rt.AllocArray(4)
	r.rt.Heap.Guard(s)

	defer r.rt.Heap.Unguard(s)

	s.Append(&head)

	for r.peek() == '/' {
		r.next()

		c := r.peek()

		if unicode.IsDigit(c) {
			text := r.word()

			i, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return core.Blank(), r.errorf("bad path segment %q", text)
			}

			seg := core.Integer(i)
			s.Append(&seg)

			continue
		}

		name := r.word()
		if name == "" {
			return core.Blank(), r.errorf("empty path segment")
		}

		seg := core.Word(r.rt.Intern(name))
		s.Append(&seg)
	}

	kind := pk

	if r.peek() == ':' && pk == core.KindPath {
		r.next()

		kind = core.KindSetPath
	}

	r.rt.Heap.Manage(s)

	return core.SeriesCell(kind, s, 0), nil
}

// readNumberOrWord reads an integer, decimal, or percent; a spelling
// that fails to parse as a number reads as a word (+, -, ->). A
// trailing colon makes the set form; slashes extend into a path.
func (r *reader) readNumberOrWord() (core.Cell, error) {
	text := r.word()
	if text == "" {
		return core.Blank(), r.errorf("unexpected character %q", r.peek())
	}

	if strings.HasSuffix(text, "%") {
		if f, err := strconv.ParseFloat(text[:len(text)-1], 64); err == nil {
			return core.Percent(f / 100), nil
		}
	}

	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return core.Integer(i), nil
	}

	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return core.Decimal(f), nil
	}

	if r.peek() == '/' {
		return r.readPath(core.KindPath, core.Word(r.rt.Intern(text)))
	}

	if r.peek() == ':' {
		r.next()

		return core.WordKind(core.KindSetWord, r.rt.Intern(text)), nil
	}

	return core.Word(r.rt.Intern(text)), nil
}

func (r *reader) readQuoted() (core.Cell, error) {
	s := r.rt.AllocString(16)
	r.rt.Heap.Guard(s)

	defer r.rt.Heap.Unguard(s)

	for {
		c := r.next()

		switch c {
		case eof:
			return core.Blank(), ErrIncomplete
		case '"':
			r.rt.Heap.Manage(s)

			return core.String(s), nil
		case '^':
			e, err := r.escape()
			if err != nil {
				return core.Blank(), err
			}

			s.AppendRune(e)
		default:
			s.AppendRune(c)
		}
	}
}

// escape decodes the character after a caret.
func (r *reader) escape() (rune, error) {
	c := r.next()

	switch c {
	case '"':
		return '"', nil
	case '^':
		return '^', nil
	case '/':
		return '\n', nil
	case '-':
		return '\t', nil
	case '(':
		var b strings.Builder

		for {
			h := r.next()
			if h == ')' {
				break
			}

			if h == eof {
				return 0, ErrIncomplete
			}

			b.WriteRune(h)
		}

		n, err := strconv.ParseInt(b.String(), 16, 32)
		if err != nil || n > 0xFFFF {
			return 0, r.errorf("bad escape ^(%s)", b.String())
		}

		return rune(n), nil
	case eof:
		return 0, ErrIncomplete
	}

	return 0, r.errorf("bad escape ^%c", c)
}

// readBraced reads a {} string; braces nest.
func (r *reader) readBraced() (core.Cell, error) {
	s := r.rt.AllocString(16)
	r.rt.Heap.Guard(s)

	defer r.rt.Heap.Unguard(s)

	depth := 1

	for {
		c := r.next()

		switch c {
		case eof:
			return core.Blank(), ErrIncomplete
		case '{':
			depth++

			s.AppendRune(c)
		case '}':
			depth--

			if depth == 0 {
				r.rt.Heap.Manage(s)

				return core.String(s), nil
			}

			s.AppendRune(c)
		case '^':
			e, err := r.escape()
			if err != nil {
				return core.Blank(), err
			}

			s.AppendRune(e)
		default:
			s.AppendRune(c)
		}
	}
}

// readHash reads the # forms: #"c" char, #{..} binary, #[...] literal
// construction, #issue.
func (r *reader) readHash() (core.Cell, error) {
	r.next() // consume #

	switch r.peek() {
	case '"':
		r.next()

		c := r.next()
		if c == '^' {
			e, err := r.escape()
			if err != nil {
				return core.Blank(), err
			}

			c = e
		}

		if c == eof {
			return core.Blank(), ErrIncomplete
		}

		if r.next() != '"' {
			return core.Blank(), r.errorf("unterminated char literal")
		}

		return core.Char(c), nil

	case '{':
		r.next()

		return r.readBinary()

	case '[':
		r.next()

		return r.readConstruction()

	default:
		name := r.word()
		if name == "" {
			return core.Blank(), r.errorf("empty issue")
		}

		return core.WordKind(core.KindIssue, r.rt.Intern(name)), nil
	}
}

func (r *reader) readBinary() (core.Cell, error) {
	s := r.rt.AllocBinary(8)
	r.rt.Heap.Guard(s)

	defer r.rt.Heap.Unguard(s)

	hi := -1

	for {
		c := r.next()

		switch {
		case c == eof:
			return core.Blank(), ErrIncomplete
		case c == '}':
			if hi != -1 {
				return core.Blank(), r.errorf("odd digit count in binary")
			}

			r.rt.Heap.Manage(s)

			return core.Binary(s), nil
		case unicode.IsSpace(c):
		default:
			d := hexDigit(c)
			if d < 0 {
				return core.Blank(), r.errorf("bad binary digit %q", c)
			}

			if hi < 0 {
				hi = d
			} else {
				s.AppendByte(byte(hi)<<4 | byte(d))
				hi = -1
			}
		}
	}
}

func hexDigit(c rune) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}

	return -1
}

// readConstruction reads #[...]: a datatype name optionally followed by
// a spec, or the literal words true, false, and void.
func (r *reader) readConstruction() (core.Cell, error) {
	blk, err := r.readArray(core.KindBlock, ']')
	if err != nil {
		return core.Blank(), err
	}

	s := blk.Series()
	if s.Len() == 0 {
		return core.Blank(), r.errorf("empty construction")
	}

	head := s.At(0)
	if !head.IsAnyWord() {
		return core.Blank(), r.errorf("construction must start with a word")
	}

	switch head.Canon().Name() {
	case "true":
		return core.Logic(true), nil
	case "false":
		return core.Logic(false), nil
	case "void", "void!":
		return core.Void(), nil
	}

	if k, ok := core.KindByName(head.Canon().Name()); ok {
		if s.Len() == 1 {
			return core.Datatype(k), nil
		}

		var out core.Cell

		out.Prep()

		if sig := r.rt.MakeValue(k, s.At(1), &out); sig != core.SigOK {
			return core.Blank(), r.errorf("bad construction %s", r.rt.Mold(&blk))
		}

		return out, nil
	}

	return core.Blank(), r.errorf("unknown construction %s", head.Canon().Name())
}

// readTag reads a <tag>. A < followed by a space, another bracket, or =
// is one of the comparison words instead.
func (r *reader) readTag() (core.Cell, error) {
	r.next() // consume <

	if c := r.peek(); c == eof || unicode.IsSpace(c) || c == '=' || c == '<' || c == '>' {
		name := "<"

		for {
			c := r.peek()
			if c != '=' && c != '<' && c != '>' {
				break
			}

			name += string(r.next())
		}

		return core.Word(r.rt.Intern(name)), nil
	}

	s := r.rt.AllocString(8)
	r.rt.Heap.Guard(s)

	defer r.rt.Heap.Unguard(s)

	for {
		c := r.next()

		switch c {
		case eof:
			return core.Blank(), ErrIncomplete
		case '>':
			r.rt.Heap.Manage(s)

			return core.SeriesCell(core.KindTag, s, 0), nil
		default:
			s.AppendRune(c)
		}
	}
}

func (r *reader) makeStringKind(k core.Kind, text string) (core.Cell, error) {
	s := r.rt.AllocString(len(text))
	r.rt.Heap.Guard(s)
	s.AppendString(text)
	r.rt.Heap.Unguard(s)
	r.rt.Heap.Manage(s)

	return core.SeriesCell(k, s, 0), nil
}
