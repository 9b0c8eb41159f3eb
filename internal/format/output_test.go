package format

import (
	"bytes"
	"strings"
	"testing"
)

type greeting struct {
	Name string `json:"name"`
}

func (g greeting) Text() string { return "hello " + g.Name }

func TestWrite(t *testing.T) {
	cases := []struct {
		name   string
		v      any
		format string
		pretty bool
		want   string
	}{
		{"default is json", greeting{Name: "ada"}, "", false, "{\"name\":\"ada\"}\n"},
		{"pretty json", greeting{Name: "ada"}, "json", true, "{\n  \"name\": \"ada\"\n}\n"},
		{"text uses Texter", greeting{Name: "ada"}, "text", false, "hello ada\n"},
		{"text falls back to json", map[string]int{"n": 1}, "TEXT", false, "{\n  \"n\": 1\n}\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, tc.v, tc.format, tc.pretty); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if buf.String() != tc.want {
				t.Fatalf("got %q want %q", buf.String(), tc.want)
			}
		})
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, 1, "edn", false)
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Fatalf("expected unknown format error, got %v", err)
	}
}
