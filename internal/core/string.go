// Released under an MIT license. See LICENSE.

package core

import (
	"unicode/utf8"
)

// String series hold codepoints in 1-byte units until a codepoint above
// 0xFF is written, at which point the series widens in place to 2-byte
// units. The node identity is preserved so every view keeps resolving to
// the same codepoints. Codepoints above 0xFFFF are not representable
// directly; see ToStringAstral.

// widen converts a narrow string series to wide storage in place.
func (s *Series) widen() {
	s.mustLive()

	if s.width != WidthByte {
		panic("widening a series that is not narrow")
	}

	wide := make([]uint16, len(s.data))
	for i, b := range s.data {
		wide[i] = uint16(b)
	}

	s.width = WidthWide
	s.wide = wide
	s.data = nil
}

// AppendRune appends the codepoint r, widening if required.
func (s *Series) AppendRune(r rune) {
	s.mustLive()

	if r > 0xFFFF {
		panic("astral codepoint needs an explicit handler")
	}

	if s.width == WidthByte {
		if r <= 0xFF {
			s.data = append(s.data, byte(r))

			return
		}

		s.widen()
	}

	s.wide = append(s.wide, uint16(r))
}

// InsertRune inserts the codepoint r at index i, widening if required.
func (s *Series) InsertRune(i int, r rune) {
	s.mustLive()

	if r > 0xFFFF {
		panic("astral codepoint needs an explicit handler")
	}

	if s.width == WidthByte && r > 0xFF {
		s.widen()
	}

	switch s.width {
	case WidthByte:
		s.data = append(s.data, 0)
		copy(s.data[i+1:], s.data[i:len(s.data)-1])
		s.data[i] = byte(r)
	case WidthWide:
		s.wide = append(s.wide, 0)
		copy(s.wide[i+1:], s.wide[i:len(s.wide)-1])
		s.wide[i] = uint16(r)
	default:
		panic("rune insert into non-string series")
	}
}

// AppendString appends every codepoint of the Go string v.
func (s *Series) AppendString(v string) {
	for _, r := range v {
		s.AppendRune(r)
	}
}

// GoString renders the series codepoints from index i as a Go string.
func (s *Series) GoString(i int) string {
	s.mustLive()

	n := s.Len()
	b := make([]byte, 0, n-i)

	for ; i < n; i++ {
		b = utf8.AppendRune(b, s.Rune(i))
	}

	return string(b)
}

// UTF8Bytes encodes the series codepoints from index i as UTF-8.
func (s *Series) UTF8Bytes(i int) []byte {
	s.mustLive()

	b := make([]byte, 0, s.Len()-i)
	for n := s.Len(); i < n; i++ {
		b = utf8.AppendRune(b, s.Rune(i))
	}

	return b
}

// AstralHandler maps a codepoint above 0xFFFF to the sequence of
// representable codepoints that stands in for it.
type AstralHandler func(rune) []rune

// appendDecoded appends the UTF-8 bytes b to the string series s. Without
// a handler, an astral codepoint or malformed input reports failure.
func (s *Series) appendDecoded(b []byte, astral AstralHandler) (bad bool) {
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			return true
		}

		b = b[size:]

		if r > 0xFFFF {
			if astral == nil {
				return true
			}

			for _, sub := range astral(r) {
				s.AppendRune(sub)
			}

			continue
		}

		s.AppendRune(r)
	}

	return false
}
