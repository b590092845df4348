package util

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// sniffLen matches the window mimetype and net/http inspect.
const sniffLen = 512

// Unmapped is written for runes the core fonts cannot show in any form.
const Unmapped = '?'

// coreFontFallbacks covers common runes outside Windows-1252 that have a
// readable ASCII spelling. An empty value drops the rune.
var coreFontFallbacks = map[rune]string{
	'\uFEFF': "", '\u200B': "", '\u200C': "", '\u200D': "", '\u2060': "",
	'\u2002': " ", '\u2003': " ", '\u2009': " ", '\u200A': " ", '\u202F': " ",
	'\u2010': "-", '\u2011': "-", '\u2012': "-", '\u2212': "-",
	'\u2032': "'", '\u2033': "\"",
	'\u2028': "\n", '\u2029': "\n",
	'\u2190': "<-", '\u2192': "->", '\u2194': "<->", '\u21D2': "=>",
	'\u2260': "!=", '\u2264': "<=", '\u2265': ">=", '\u2248': "~",
	'\u2713': "v", '\u2717': "x",
}

// IsLikelyBinary reports whether the first bytes of path contain a NUL.
func IsLikelyBinary(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, err
	}
	return bytes.IndexByte(head[:n], 0) >= 0, nil
}

// FoldForCoreFonts rewrites raw text so every rune is in the Windows-1252
// repertoire used by the standard PDF fonts. Line endings become "\n", tabs
// become four spaces and other control characters are dropped. C1 controls
// are read as mis-decoded Windows-1252 bytes. Runes with no fallback and no
// decomposable base letter become Unmapped; their count is returned together
// with invalid UTF-8 bytes.
func FoldForCoreFonts(raw []byte) (string, int) {
	var b strings.Builder
	b.Grow(len(raw))
	unmapped := 0

	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		i += size

		switch {
		case r == utf8.RuneError && size <= 1:
			b.WriteRune(Unmapped)
			unmapped++
			continue
		case r == '\r':
			if i < len(raw) && raw[i] == '\n' {
				i++
			}
			b.WriteByte('\n')
			continue
		case r == '\n':
			b.WriteByte('\n')
			continue
		case r == '\t':
			b.WriteString("    ")
			continue
		case r < 0x20 || r == 0x7F:
			continue
		case r >= 0x80 && r <= 0x9F:
			r = charmap.Windows1252.DecodeByte(byte(r))
			if r <= 0x9F {
				continue
			}
		}

		if _, ok := charmap.Windows1252.EncodeRune(r); ok {
			b.WriteRune(r)
			continue
		}
		if s, ok := coreFontFallbacks[r]; ok {
			b.WriteString(s)
			continue
		}
		if base := stripMarks(r); base != "" {
			b.WriteString(base)
			continue
		}
		b.WriteRune(Unmapped)
		unmapped++
	}
	return b.String(), unmapped
}

// stripMarks decomposes r and keeps the encodable non-mark runes, so that
// letters like U+0151 fall back to their base letter.
func stripMarks(r rune) string {
	decomposed := norm.NFD.String(string(r))
	if decomposed == string(r) {
		return ""
	}
	var out []rune
	for _, d := range decomposed {
		if unicode.Is(unicode.Mn, d) {
			continue
		}
		if _, ok := charmap.Windows1252.EncodeRune(d); !ok {
			return ""
		}
		out = append(out, d)
	}
	return string(out)
}
