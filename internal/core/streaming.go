package core

// streaming.go prepares raw CSV bytes for parsing without loading the whole
// input into memory.
//
// decodeInput applies, in order:
//
//  1. BOM handling: a UTF-8 BOM is dropped; a UTF-16 BOM switches to UTF-16
//     decoding (spreadsheet "Unicode text" exports). Input without a BOM
//     passes through untouched.
//  2. UTF-8 sanitizing: invalid byte sequences become '?'.

import (
	"bufio"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeInput wraps r with BOM detection and UTF-8 sanitizing.
func decodeInput(r io.Reader) io.Reader {
	bom := transform.NewReader(r, unicode.BOMOverride(transform.Nop))
	return newUTF8Sanitizer(bom)
}

// utf8Sanitizer replaces invalid UTF-8 bytes with '?' while streaming.
// Valid runes, including a literal U+FFFD, are copied through unchanged.
type utf8Sanitizer struct {
	br    *bufio.Reader
	spill []byte // encoded bytes that did not fit the caller's buffer
	err   error  // deferred read error
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{br: bufio.NewReader(r)}
}

// Read implements io.Reader. It returns what is already buffered rather
// than blocking for a full p.
func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := copy(p, s.spill)
	s.spill = s.spill[n:]
	if n == 0 && s.err != nil {
		return 0, s.err
	}

	var buf [utf8.UTFMax]byte
	for n < len(p) && len(s.spill) == 0 {
		if n > 0 && s.br.Buffered() == 0 {
			break
		}

		r, size, err := s.br.ReadRune()
		if err != nil {
			if n > 0 {
				s.err = err
				return n, nil
			}
			return 0, err
		}

		w := 1
		if r == utf8.RuneError && size == 1 {
			buf[0] = '?'
		} else {
			w = utf8.EncodeRune(buf[:], r)
		}

		c := copy(p[n:], buf[:w])
		n += c
		if c < w {
			s.spill = append(s.spill[:0], buf[c:w]...)
		}
	}

	return n, nil
}
