package jsonx

import (
	"strings"
	"testing"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"quote", `say "hi"`, `say \"hi\"`},
		{"backslash", `a\b`, `a\\b`},
		{"newline", "line1\nline2", `line1\nline2`},
		{"tab", "a\tb", `a\tb`},
		{"carriage return", "a\rb", `a\rb`},
		{"backspace", "a\bb", `a\bb`},
		{"form feed", "a\fb", `a\fb`},
		{"control char", "a\x01b", `ab`},
		{"null byte", "a\x00b", "a\x00b"},
		{"utf8 passthrough", "héllo wörld", "héllo wörld"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Escape(tt.in); got != tt.want {
				t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnescape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"quote", `say \"hi\"`, `say "hi"`},
		{"newline", `a\nb`, "a\nb"},
		{"unicode", `aAb`, "aAb"},
		{"unicode control", ``, "\x01"},
		{"surrogate pair", `😀`, "\U0001f600"},
		{"lone trailing backslash", `a\`, `a\`},
		{"unknown escape kept", `a\qb`, `a\qb`},
		{"truncated unicode kept", `a\u00`, `a\u00`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Unescape(tt.in); got != tt.want {
				t.Errorf("Unescape(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Escape then Unescape must return the original string for any input
// the agent is likely to produce.
func TestEscapeRoundtrip(t *testing.T) {
	var printable strings.Builder
	for b := byte(0x20); b < 0x7f; b++ {
		printable.WriteByte(b)
	}

	inputs := []string{
		printable.String(),
		"tabs\tand\nnewlines\rand \"quotes\" and \\slashes\\",
		"control \x01\x02\x1f bytes",
		"multibyte: héllo 世界 \U0001f600",
		"",
	}
	for _, in := range inputs {
		if got := Unescape(Escape(in)); got != in {
			t.Errorf("roundtrip mismatch:\n in: %q\ngot: %q", in, got)
		}
	}
}

func TestEscapeTruncated(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"under limit", "hello", 10, "hello"},
		{"at limit", "hello", 5, "hello"},
		{"over limit", "hello world", 5, "hello"},
		{"truncates before escaping", "ab\ncd", 3, `ab\n`},
		{"zero", "hello", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EscapeTruncated(tt.in, tt.max); got != tt.want {
				t.Errorf("EscapeTruncated(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}
