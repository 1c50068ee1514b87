package jsonx

import "testing"

func TestFindString(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		key      string
		fallback string
		want     string
	}{
		{
			name: "simple",
			data: `{"thought":"check the weather"}`,
			key:  "thought",
			want: "check the weather",
		},
		{
			name: "key name inside decoy value",
			data: `{"decoy":"the target is here","target":"correct"}`,
			key:  "target",
			want: "correct",
		},
		{
			name: "nested key",
			data: `{"outer":{"inner":"found"}}`,
			key:  "inner",
			want: "found",
		},
		{
			name: "whitespace around colon",
			data: "{\"action\" \t:\n \"shell\"}",
			key:  "action",
			want: "shell",
		},
		{
			name:  "escaped content",
			data:  `{"text":"line one\nline \"two\""}`,
			key:   "text",
			want:  "line one\nline \"two\"",
		},
		{
			name:     "missing key",
			data:     `{"a":"b"}`,
			key:      "c",
			fallback: "dflt",
			want:     "dflt",
		},
		{
			name:     "type mismatch",
			data:     `{"n":42}`,
			key:      "n",
			fallback: "dflt",
			want:     "dflt",
		},
		{
			name:     "unterminated string",
			data:     `{"a":"unclosed`,
			key:      "a",
			fallback: "dflt",
			want:     "dflt",
		},
		{
			name:     "empty input",
			data:     "",
			key:      "a",
			fallback: "dflt",
			want:     "dflt",
		},
		{
			name:     "not json at all",
			data:     "I think the answer is: 42",
			key:      "answer",
			fallback: "dflt",
			want:     "dflt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindString(tt.data, tt.key, tt.fallback)
			if got != tt.want {
				t.Errorf("FindString(%q, %q) = %q, want %q", tt.data, tt.key, got, tt.want)
			}
		})
	}
}

func TestFindInt(t *testing.T) {
	tests := []struct {
		data     string
		key      string
		fallback int64
		want     int64
	}{
		{`{"n":42}`, "n", -1, 42},
		{`{"n":-17}`, "n", -1, -17},
		{`{"n":"42"}`, "n", -1, -1},   // string, not int
		{`{"n":4.5}`, "n", -1, -1},    // float, not int
		{`{"m":1}`, "n", -1, -1},      // absent
		{`{"n": 7 }`, "n", -1, 7},     // whitespace
	}

	for _, tt := range tests {
		if got := FindInt(tt.data, tt.key, tt.fallback); got != tt.want {
			t.Errorf("FindInt(%q, %q) = %d, want %d", tt.data, tt.key, got, tt.want)
		}
	}
}

func TestFindFloat(t *testing.T) {
	if got := FindFloat(`{"t":0.3}`, "t", -1); got != 0.3 {
		t.Errorf("FindFloat = %v, want 0.3", got)
	}
	if got := FindFloat(`{"t":2}`, "t", -1); got != 2 {
		t.Errorf("FindFloat on integer = %v, want 2", got)
	}
	if got := FindFloat(`{"t":"x"}`, "t", -1); got != -1 {
		t.Errorf("FindFloat on string = %v, want fallback", got)
	}
}

func TestFindBool(t *testing.T) {
	if got := FindBool(`{"ok":true}`, "ok", false); !got {
		t.Error("FindBool(true) = false")
	}
	if got := FindBool(`{"ok":false}`, "ok", true); got {
		t.Error("FindBool(false) = true")
	}
	if got := FindBool(`{"ok":"true"}`, "ok", false); got {
		t.Error("FindBool on string value should use fallback")
	}
}

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		key    string
		want   string
		wantOK bool
	}{
		{
			name:   "flat",
			data:   `{"args":{"path":"/tmp"}}`,
			key:    "args",
			want:   `{"path":"/tmp"}`,
			wantOK: true,
		},
		{
			name:   "nested objects",
			data:   `{"args":{"a":{"b":{"c":1}},"d":2},"tail":0}`,
			key:    "args",
			want:   `{"a":{"b":{"c":1}},"d":2}`,
			wantOK: true,
		},
		{
			name:   "braces inside string values",
			data:   `{"args":{"cmd":"echo {not a brace}"}}`,
			key:    "args",
			want:   `{"cmd":"echo {not a brace}"}`,
			wantOK: true,
		},
		{
			name:   "escaped quote inside string",
			data:   `{"args":{"s":"a\"}b"}}`,
			key:    "args",
			want:   `{"s":"a\"}b"}`,
			wantOK: true,
		},
		{
			name:   "wrong type",
			data:   `{"args":"plain"}`,
			key:    "args",
			wantOK: false,
		},
		{
			name:   "unbalanced",
			data:   `{"args":{"a":1`,
			key:    "args",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractObject(tt.data, tt.key)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ExtractObject = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractArray(t *testing.T) {
	got, ok := ExtractArray(`{"list":[1,[2,3],"[x]"]}`, "list")
	if !ok || got != `[1,[2,3],"[x]"]` {
		t.Errorf("ExtractArray = %q, %v", got, ok)
	}

	if _, ok := ExtractArray(`{"list":{"a":1}}`, "list"); ok {
		t.Error("ExtractArray on object value should fail")
	}
}

func TestHasKey(t *testing.T) {
	if !HasKey(`{"answer":""}`, "answer") {
		t.Error("HasKey should find a key with an empty value")
	}
	if HasKey(`{"note":"the answer is 42"}`, "answer") {
		t.Error("HasKey matched text inside a string value")
	}
	if HasKey(``, "answer") {
		t.Error("HasKey on empty input")
	}
}

func TestSkipValue(t *testing.T) {
	tests := []struct {
		data   string
		pos    int
		want   int
		wantOK bool
	}{
		{`"str" x`, 0, 5, true},
		{`  42,`, 0, 4, true},
		{`true,`, 0, 4, true},
		{`null}`, 0, 4, true},
		{`{"a":[1,2]},`, 0, 11, true},
		{`[{"a":1}],`, 0, 9, true},
		{`-3.5e2,`, 0, 6, true},
		{``, 0, 0, false},
		{`{unclosed`, 0, 0, false},
		{`garbage`, 0, 0, false},
	}

	for _, tt := range tests {
		got, ok := SkipValue(tt.data, tt.pos)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("SkipValue(%q, %d) = %d, %v; want %d, %v",
				tt.data, tt.pos, got, ok, tt.want, tt.wantOK)
		}
	}
}
