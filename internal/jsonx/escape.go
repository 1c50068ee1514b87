package jsonx

import (
	"strings"
	"unicode/utf16"
)

const hexDigits = "0123456789abcdef"

// Escape returns s with the characters JSON requires escaped inside a
// string literal: quote, backslash, and control characters. The common
// controls use their short forms (\n, \r, \t, \b, \f); everything else
// below 0x20 becomes \u00XX. The result carries no surrounding quotes.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if c < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte(hexDigits[c>>4])
				b.WriteByte(hexDigits[c&0xf])
			} else {
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

// EscapeTruncated escapes at most max bytes of s. Truncation happens
// before escaping, so the output may exceed max but the source text it
// covers never does. max <= 0 yields an empty string.
func EscapeTruncated(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) > max {
		s = s[:max]
	}
	return Escape(s)
}

// Unescape is the inverse of Escape: it resolves the short escapes and
// \uXXXX sequences (including surrogate pairs) back to raw text.
// Malformed escapes are preserved literally rather than rejected.
func Unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case '/':
			b.WriteByte('/')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'u':
			r, consumed, ok := decodeUnicodeEscape(s, i-1)
			if !ok {
				b.WriteByte('\\')
				b.WriteByte('u')
				continue
			}
			b.WriteRune(r)
			i += consumed - 2
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// decodeUnicodeEscape decodes a \uXXXX sequence starting at the
// backslash, pairing surrogates when a second escape follows. consumed
// counts the bytes of the full sequence.
func decodeUnicodeEscape(s string, pos int) (r rune, consumed int, ok bool) {
	if pos+6 > len(s) {
		return 0, 0, false
	}
	v, ok := parseHex4(s[pos+2 : pos+6])
	if !ok {
		return 0, 0, false
	}
	if utf16.IsSurrogate(rune(v)) && pos+12 <= len(s) && s[pos+6] == '\\' && s[pos+7] == 'u' {
		if lo, ok2 := parseHex4(s[pos+8 : pos+12]); ok2 {
			if combined := utf16.DecodeRune(rune(v), rune(lo)); combined != 0xFFFD {
				return combined, 12, true
			}
		}
	}
	return rune(v), 6, true
}

func parseHex4(s string) (uint32, bool) {
	var v uint32
	for i := 0; i < 4; i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			v = v<<4 | uint32(c-'0')
		case c >= 'a' && c <= 'f':
			v = v<<4 | uint32(c-'a'+10)
		case c >= 'A' && c <= 'F':
			v = v<<4 | uint32(c-'A'+10)
		default:
			return 0, false
		}
	}
	return v, true
}
