// Package jsonx provides allocation-light, single-pass JSON scanning
// primitives for reading fields out of untrusted model output and
// protocol payloads without building a document tree.
//
// All functions are total: malformed input yields the caller's fallback
// (or a false ok), never a panic. None of them mutate their input.
package jsonx

import (
	"strconv"
	"strings"
)

// FindString returns the string value of the first occurrence of key in
// data, or fallback if the key is absent or its value is not a string.
// Key matching distinguishes object keys from identical text appearing
// inside string values: a key is a string token immediately followed
// (after whitespace) by a colon.
func FindString(data, key, fallback string) string {
	pos := findKey(data, key)
	if pos < 0 || pos >= len(data) || data[pos] != '"' {
		return fallback
	}
	content, _, ok := scanString(data, pos)
	if !ok {
		return fallback
	}
	return Unescape(content)
}

// FindInt returns the integer value for key, or fallback if the key is
// absent or the value is not an integer.
func FindInt(data, key string, fallback int64) int64 {
	tok, ok := findScalar(data, key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// FindFloat returns the numeric value for key, or fallback if the key
// is absent or the value is not a number.
func FindFloat(data, key string, fallback float64) float64 {
	tok, ok := findScalar(data, key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return fallback
	}
	return f
}

// FindBool returns the boolean value for key, or fallback if the key is
// absent or the value is not a boolean literal.
func FindBool(data, key string, fallback bool) bool {
	tok, ok := findScalar(data, key)
	if !ok {
		return fallback
	}
	switch tok {
	case "true":
		return true
	case "false":
		return false
	}
	return fallback
}

// ExtractObject returns the balanced {...} substring that is the value
// of key, including the braces. Nested strings are tracked so braces
// inside string values never perturb the depth count. Returns ok=false
// if the key is absent, the value is not an object, or the input ends
// before the object closes.
func ExtractObject(data, key string) (string, bool) {
	return extractBalanced(data, key, '{', '}')
}

// ExtractArray is ExtractObject for [...] values.
func ExtractArray(data, key string) (string, bool) {
	return extractBalanced(data, key, '[', ']')
}

// HasKey reports whether key occurs as an object key anywhere in data,
// using the same key-matching rule as the Find functions.
func HasKey(data, key string) bool {
	return findKey(data, key) >= 0
}

// SkipValue advances past exactly one complete JSON value of any type
// starting at or after pos (leading whitespace is skipped) and returns
// the index of the first byte after it. Returns ok=false on malformed
// or truncated input.
func SkipValue(data string, pos int) (int, bool) {
	pos = skipSpace(data, pos)
	if pos >= len(data) {
		return 0, false
	}
	switch c := data[pos]; {
	case c == '"':
		_, end, ok := scanString(data, pos)
		return end, ok
	case c == '{':
		return skipBalanced(data, pos, '{', '}')
	case c == '[':
		return skipBalanced(data, pos, '[', ']')
	case c == 't':
		return skipLiteral(data, pos, "true")
	case c == 'f':
		return skipLiteral(data, pos, "false")
	case c == 'n':
		return skipLiteral(data, pos, "null")
	case c == '-' || (c >= '0' && c <= '9'):
		end := pos + 1
		for end < len(data) && isNumberByte(data[end]) {
			end++
		}
		return end, true
	}
	return 0, false
}

// findKey locates key as an object key anywhere in data and returns the
// position of the first non-whitespace byte of its value, or -1.
func findKey(data, key string) int {
	i := 0
	for i < len(data) {
		if data[i] != '"' {
			i++
			continue
		}
		content, end, ok := scanString(data, i)
		if !ok {
			return -1
		}
		j := skipSpace(data, end)
		if j >= len(data) || data[j] != ':' {
			// A string value, not a key. Resume after it.
			i = end
			continue
		}
		j = skipSpace(data, j+1)
		if content == key {
			return j
		}
		// Non-matching key: keep scanning. Nested keys are still
		// found because the scan visits every string token.
		i = end
	}
	return -1
}

// findScalar returns the raw token (number or literal) that is the
// value of key.
func findScalar(data, key string) (string, bool) {
	pos := findKey(data, key)
	if pos < 0 {
		return "", false
	}
	end, ok := SkipValue(data, pos)
	if !ok || end <= pos {
		return "", false
	}
	tok := strings.TrimSpace(data[pos:end])
	if tok == "" || tok[0] == '"' || tok[0] == '{' || tok[0] == '[' {
		return "", false
	}
	return tok, true
}

func extractBalanced(data, key string, open, close byte) (string, bool) {
	pos := findKey(data, key)
	if pos < 0 || pos >= len(data) || data[pos] != open {
		return "", false
	}
	end, ok := skipBalanced(data, pos, open, close)
	if !ok {
		return "", false
	}
	return data[pos:end], true
}

// skipBalanced advances past one balanced open...close region starting
// at pos, tracking string state so delimiters inside strings are inert.
func skipBalanced(data string, pos int, open, close byte) (int, bool) {
	depth := 0
	i := pos
	for i < len(data) {
		switch data[i] {
		case '"':
			_, end, ok := scanString(data, i)
			if !ok {
				return 0, false
			}
			i = end
			continue
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
		i++
	}
	return 0, false
}

// scanString parses a string token whose opening quote is at pos.
// It returns the raw (still escaped) content and the index just past
// the closing quote.
func scanString(data string, pos int) (content string, end int, ok bool) {
	i := pos + 1
	for i < len(data) {
		switch data[i] {
		case '\\':
			i += 2
		case '"':
			return data[pos+1 : i], i + 1, true
		default:
			i++
		}
	}
	return "", 0, false
}

func skipLiteral(data string, pos int, lit string) (int, bool) {
	if strings.HasPrefix(data[pos:], lit) {
		return pos + len(lit), true
	}
	return 0, false
}

func skipSpace(data string, i int) int {
	for i < len(data) {
		switch data[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

func isNumberByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E'
}
