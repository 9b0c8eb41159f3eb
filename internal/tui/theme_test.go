package tui

import "testing"

func TestThemeName(t *testing.T) {
	cases := []struct {
		env        string
		configured string
		want       string
	}{
		{"", "", ""},
		{"", "dark", "dark"},
		{"", "Light", "light"},
		{"light", "dark", "light"},
		{"bogus", "dark", "dark"},
		{"", "auto", ""},
	}
	for _, tc := range cases {
		t.Setenv("WORKDESK_TUI_THEME", tc.env)
		if got := themeName(tc.configured); got != tc.want {
			t.Fatalf("env=%q configured=%q: got %q want %q", tc.env, tc.configured, got, tc.want)
		}
	}
}

func TestFormWidth(t *testing.T) {
	cases := map[int]int{0: 60, 40: 36, 200: 60, 10: 20}
	for term, want := range cases {
		if got := formWidth(term); got != want {
			t.Fatalf("formWidth(%d) = %d, want %d", term, got, want)
		}
	}
}
