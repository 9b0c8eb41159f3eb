package tui

import (
	"fmt"
	"strings"
	"testing"

	"workdesk/internal/board"
	"workdesk/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

func testBoard() *board.Board {
	n := 0
	return board.New(board.WithIDFunc(func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}))
}

func contents(b *board.Board, id model.ColumnID) []string {
	c, _ := b.Column(id)
	out := make([]string, 0, len(c.Tasks))
	for _, t := range c.Tasks {
		out = append(out, t.Content)
	}
	return out
}

var keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}

func TestBoardModel_GrabMoveDrop(t *testing.T) {
	b := testBoard()
	m := newBoardModel(b)

	m, _ = m.Update(keySpace)
	if !m.capturing() {
		t.Fatalf("expected grabbed state")
	}
	m, _ = m.Update(keyOf(tea.KeyRight))
	m, _ = m.Update(keyOf(tea.KeyDown))
	m, _ = m.Update(keyOf(tea.KeyEnter))
	if m.capturing() {
		t.Fatalf("expected drop to release the task")
	}

	if got := contents(b, model.ColumnTodo); len(got) != 1 || got[0] != "Implement user authentication" {
		t.Fatalf("todo: %v", got)
	}
	got := contents(b, model.ColumnInProgress)
	want := []string{"Develop Kanban board", "Design new dashboard layout"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("in progress: got %v want %v", got, want)
	}
	if m.col != 1 || m.row != 1 {
		t.Fatalf("expected selection to follow the task, got col=%d row=%d", m.col, m.row)
	}
}

func TestBoardModel_CancelIsNoop(t *testing.T) {
	b := testBoard()
	m := newBoardModel(b)
	before := contents(b, model.ColumnTodo)

	m, _ = m.Update(keySpace)
	m, _ = m.Update(keyOf(tea.KeyRight))
	m, _ = m.Update(keyOf(tea.KeyEsc))

	if m.capturing() {
		t.Fatalf("expected cancel to release the task")
	}
	if got := contents(b, model.ColumnTodo); strings.Join(got, "|") != strings.Join(before, "|") {
		t.Fatalf("todo changed: %v", got)
	}
	if b.TotalTasks() != 5 {
		t.Fatalf("expected 5 tasks, got %d", b.TotalTasks())
	}
}

func TestBoardModel_TargetStaysInRange(t *testing.T) {
	m := newBoardModel(testBoard())
	m, _ = m.Update(keySpace)
	for i := 0; i < 5; i++ {
		m, _ = m.Update(keyOf(tea.KeyDown))
	}
	// Two tasks in To Do, one of them carried: the last slot is index 1.
	if m.target.Index != 1 {
		t.Fatalf("expected target clamped to 1, got %d", m.target.Index)
	}
}

func TestBoardModel_AddAndDelete(t *testing.T) {
	b := testBoard()
	m := newBoardModel(b)

	m, _ = m.Update(runes("a"))
	if !m.adding {
		t.Fatalf("expected add mode")
	}
	m.input.SetValue("Write release notes")
	m, _ = m.Update(keyOf(tea.KeyEnter))
	got := contents(b, model.ColumnTodo)
	if len(got) != 3 || got[2] != "Write release notes" {
		t.Fatalf("todo after add: %v", got)
	}
	if m.row != 2 {
		t.Fatalf("expected new task selected, got row %d", m.row)
	}

	m, _ = m.Update(runes("d"))
	if got := contents(b, model.ColumnTodo); len(got) != 2 {
		t.Fatalf("todo after delete: %v", got)
	}
	if !strings.Contains(m.status, "Write release notes") {
		t.Fatalf("unexpected status %q", m.status)
	}
}
