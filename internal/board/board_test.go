package board

import (
	"fmt"
	"testing"

	"workdesk/internal/model"
)

func seqIDs() Option {
	n := 0
	return WithIDFunc(func() string {
		n++
		return fmt.Sprintf("t%d", n)
	})
}

func contents(c model.Column) []string {
	out := make([]string, len(c.Tasks))
	for i, t := range c.Tasks {
		out[i] = t.Content
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func column(t *testing.T, b *Board, id model.ColumnID) model.Column {
	t.Helper()
	c, ok := b.Column(id)
	if !ok {
		t.Fatalf("missing column %s", id)
	}
	return c
}

func snapshot(b *Board) string {
	return fmt.Sprintf("%v", b.Columns())
}

func TestNew_Seeded(t *testing.T) {
	b := New(seqIDs())
	cols := b.Columns()
	if len(cols) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(cols))
	}
	wantTitles := []string{"To Do", "In Progress", "Done"}
	for i, c := range cols {
		if c.Title != wantTitles[i] {
			t.Fatalf("column %d: got %q want %q", i, c.Title, wantTitles[i])
		}
	}
	if got := contents(cols[0]); !equalStrings(got, []string{"Design new dashboard layout", "Implement user authentication"}) {
		t.Fatalf("unexpected todo: %v", got)
	}
	if got := contents(cols[1]); !equalStrings(got, []string{"Develop Kanban board"}) {
		t.Fatalf("unexpected in progress: %v", got)
	}
	if got := contents(cols[2]); !equalStrings(got, []string{"Set up project structure", "Configure Supabase"}) {
		t.Fatalf("unexpected done: %v", got)
	}
	if b.TotalTasks() != 5 {
		t.Fatalf("expected 5 tasks, got %d", b.TotalTasks())
	}
}

func TestReorder_NoOps(t *testing.T) {
	b := New(seqIDs())
	before := snapshot(b)

	src := Position{Column: model.ColumnTodo, Index: 0}
	if b.Reorder(src, nil) {
		t.Fatalf("nil destination should be a no-op")
	}
	same := src
	if b.Reorder(src, &same) {
		t.Fatalf("identical destination should be a no-op")
	}
	cases := []struct {
		name string
		src  Position
		dst  Position
	}{
		{"src index past end", Position{model.ColumnTodo, 5}, Position{model.ColumnDone, 0}},
		{"negative src", Position{model.ColumnTodo, -1}, Position{model.ColumnDone, 0}},
		{"dst past end", Position{model.ColumnTodo, 0}, Position{model.ColumnDone, 3}},
		{"same column dst past end", Position{model.ColumnTodo, 0}, Position{model.ColumnTodo, 2}},
		{"unknown column", Position{"backlog", 0}, Position{model.ColumnDone, 0}},
	}
	for _, tc := range cases {
		dst := tc.dst
		if b.Reorder(tc.src, &dst) {
			t.Fatalf("%s: expected no-op", tc.name)
		}
	}
	if after := snapshot(b); after != before {
		t.Fatalf("board changed by no-op reorders:\n%s\n%s", before, after)
	}
}

func TestReorder_WithinColumn(t *testing.T) {
	b := New(seqIDs())
	if !b.Reorder(Position{model.ColumnTodo, 0}, &Position{model.ColumnTodo, 1}) {
		t.Fatalf("expected reorder")
	}
	if got := contents(column(t, b, model.ColumnTodo)); !equalStrings(got, []string{"Implement user authentication", "Design new dashboard layout"}) {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestReorder_AcrossColumns(t *testing.T) {
	b := New(seqIDs())
	total := b.TotalTasks()

	// Append at the end of Done (index == len).
	if !b.Reorder(Position{model.ColumnTodo, 1}, &Position{model.ColumnDone, 2}) {
		t.Fatalf("expected reorder")
	}
	if got := contents(column(t, b, model.ColumnTodo)); !equalStrings(got, []string{"Design new dashboard layout"}) {
		t.Fatalf("unexpected todo: %v", got)
	}
	if got := contents(column(t, b, model.ColumnDone)); !equalStrings(got, []string{"Set up project structure", "Configure Supabase", "Implement user authentication"}) {
		t.Fatalf("unexpected done: %v", got)
	}

	// Insert at the head of In Progress.
	if !b.Reorder(Position{model.ColumnDone, 0}, &Position{model.ColumnInProgress, 0}) {
		t.Fatalf("expected reorder")
	}
	if got := contents(column(t, b, model.ColumnInProgress)); !equalStrings(got, []string{"Set up project structure", "Develop Kanban board"}) {
		t.Fatalf("unexpected in progress: %v", got)
	}
	if b.TotalTasks() != total {
		t.Fatalf("task count changed: %d -> %d", total, b.TotalTasks())
	}
}

func TestReorder_PreservesCountAndMembership(t *testing.T) {
	b := New(seqIDs())
	ids := map[string]bool{}
	for _, c := range b.Columns() {
		for _, task := range c.Tasks {
			ids[task.ID] = true
		}
	}
	cols := []model.ColumnID{model.ColumnTodo, model.ColumnInProgress, model.ColumnDone}
	for i := 0; i < 40; i++ {
		src := Position{Column: cols[i%3], Index: i % 2}
		dst := Position{Column: cols[(i*7+1)%3], Index: i % 3}
		b.Reorder(src, &dst)

		seen := map[string]int{}
		for _, c := range b.Columns() {
			for _, task := range c.Tasks {
				seen[task.ID]++
			}
		}
		if len(seen) != len(ids) {
			t.Fatalf("step %d: expected %d tasks, saw %d", i, len(ids), len(seen))
		}
		for id, n := range seen {
			if !ids[id] || n != 1 {
				t.Fatalf("step %d: task %s appears %d times", i, id, n)
			}
		}
	}
}

func TestAdd(t *testing.T) {
	b := Empty(seqIDs())
	if _, ok := b.Add(model.ColumnTodo, "   "); ok {
		t.Fatalf("blank text should be ignored")
	}
	if _, ok := b.Add("backlog", "x"); ok {
		t.Fatalf("unknown column should be ignored")
	}
	t1, ok := b.Add(model.ColumnTodo, "  Write tests  ")
	if !ok || t1.Content != "Write tests" || t1.ID == "" {
		t.Fatalf("unexpected task %+v", t1)
	}
	t2, _ := b.Add(model.ColumnTodo, "Ship it")
	if t1.ID == t2.ID {
		t.Fatalf("expected distinct ids")
	}
	if got := contents(column(t, b, model.ColumnTodo)); !equalStrings(got, []string{"Write tests", "Ship it"}) {
		t.Fatalf("unexpected todo: %v", got)
	}
}

func TestAdd_DefaultIDsAreUnique(t *testing.T) {
	b := Empty()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		task, ok := b.Add(model.ColumnDone, fmt.Sprintf("task %d", i))
		if !ok {
			t.Fatalf("add %d failed", i)
		}
		if seen[task.ID] {
			t.Fatalf("duplicate id %s", task.ID)
		}
		seen[task.ID] = true
	}
}

func TestDelete(t *testing.T) {
	b := New(seqIDs())
	todo := column(t, b, model.ColumnTodo)
	if b.Delete(model.ColumnTodo, "missing") {
		t.Fatalf("deleting an absent id should be a no-op")
	}
	if b.Delete(model.ColumnDone, todo.Tasks[0].ID) {
		t.Fatalf("deleting from the wrong column should be a no-op")
	}
	if !b.Delete(model.ColumnTodo, todo.Tasks[0].ID) {
		t.Fatalf("expected delete")
	}
	if got := contents(column(t, b, model.ColumnTodo)); !equalStrings(got, []string{"Implement user authentication"}) {
		t.Fatalf("unexpected todo: %v", got)
	}
	if b.TotalTasks() != 4 {
		t.Fatalf("expected 4 tasks, got %d", b.TotalTasks())
	}
}

func TestColumns_ReturnsCopy(t *testing.T) {
	b := New(seqIDs())
	cols := b.Columns()
	cols[0].Tasks[0].Content = "mutated"
	if column(t, b, model.ColumnTodo).Tasks[0].Content == "mutated" {
		t.Fatalf("Columns must not expose internal slices")
	}
}
