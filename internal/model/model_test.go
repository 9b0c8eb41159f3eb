package model

import "testing"

func TestColumnIndexOf(t *testing.T) {
	c := Column{ID: ColumnTodo, Tasks: []Task{{ID: "a"}, {ID: "b"}}}
	cases := []struct {
		id   string
		want int
	}{
		{"a", 0},
		{"b", 1},
		{"c", -1},
		{" b ", -1},
		{"", -1},
	}
	for _, tc := range cases {
		if got := c.IndexOf(tc.id); got != tc.want {
			t.Fatalf("IndexOf(%q) = %d, want %d", tc.id, got, tc.want)
		}
	}
}
