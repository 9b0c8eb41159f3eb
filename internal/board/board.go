// Package board holds the in-memory three-column task board and its pure
// mutations. Nothing here is persisted.
package board

import (
	"strings"

	"workdesk/internal/model"

	"github.com/google/uuid"
)

// Position addresses a slot in a column. Index may equal the column length
// when used as a drop destination.
type Position struct {
	Column model.ColumnID
	Index  int
}

// Board is the three-column task board. It is not safe for concurrent use.
type Board struct {
	columns []model.Column
	newID   func() string
}

// Option configures a Board built by New.
type Option func(*Board)

// WithIDFunc overrides task id generation.
func WithIDFunc(fn func() string) Option {
	return func(b *Board) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// New returns a board seeded with the starter tasks.
func New(opts ...Option) *Board {
	b := &Board{newID: uuid.NewString}
	for _, opt := range opts {
		opt(b)
	}
	b.columns = []model.Column{
		{ID: model.ColumnTodo, Title: "To Do"},
		{ID: model.ColumnInProgress, Title: "In Progress"},
		{ID: model.ColumnDone, Title: "Done"},
	}
	seed := map[model.ColumnID][]string{
		model.ColumnTodo:       {"Design new dashboard layout", "Implement user authentication"},
		model.ColumnInProgress: {"Develop Kanban board"},
		model.ColumnDone:       {"Set up project structure", "Configure Supabase"},
	}
	for i := range b.columns {
		for _, text := range seed[b.columns[i].ID] {
			b.columns[i].Tasks = append(b.columns[i].Tasks, model.Task{ID: b.newID(), Content: text})
		}
	}
	return b
}

// Empty returns a board with the three columns and no tasks.
func Empty(opts ...Option) *Board {
	b := New(opts...)
	for i := range b.columns {
		b.columns[i].Tasks = nil
	}
	return b
}

// Columns returns a copy of the columns in display order.
func (b *Board) Columns() []model.Column {
	out := make([]model.Column, len(b.columns))
	for i, c := range b.columns {
		out[i] = c
		out[i].Tasks = append([]model.Task(nil), c.Tasks...)
	}
	return out
}

func (b *Board) index(id model.ColumnID) int {
	for i := range b.columns {
		if b.columns[i].ID == id {
			return i
		}
	}
	return -1
}

// Column returns a copy of the column with id.
func (b *Board) Column(id model.ColumnID) (model.Column, bool) {
	i := b.index(id)
	if i < 0 {
		return model.Column{}, false
	}
	c := b.columns[i]
	c.Tasks = append([]model.Task(nil), c.Tasks...)
	return c, true
}

// TotalTasks counts the tasks across all columns.
func (b *Board) TotalTasks() int {
	n := 0
	for _, c := range b.columns {
		n += len(c.Tasks)
	}
	return n
}

// Reorder moves the task at src to dst and reports whether anything changed.
// A nil dst, a dst equal to src and any out-of-range position are no-ops.
// dst.Index is interpreted after the task has been removed from src, so
// dst.Index == len(destination) appends.
func (b *Board) Reorder(src Position, dst *Position) bool {
	if dst == nil || *dst == src {
		return false
	}
	si := b.index(src.Column)
	di := b.index(dst.Column)
	if si < 0 || di < 0 {
		return false
	}
	if src.Index < 0 || src.Index >= len(b.columns[si].Tasks) {
		return false
	}
	limit := len(b.columns[di].Tasks)
	if si == di {
		limit--
	}
	if dst.Index < 0 || dst.Index > limit {
		return false
	}

	srcTasks := b.columns[si].Tasks
	task := srcTasks[src.Index]
	b.columns[si].Tasks = append(append([]model.Task(nil), srcTasks[:src.Index]...), srcTasks[src.Index+1:]...)

	dstTasks := b.columns[di].Tasks
	out := make([]model.Task, 0, len(dstTasks)+1)
	out = append(out, dstTasks[:dst.Index]...)
	out = append(out, task)
	out = append(out, dstTasks[dst.Index:]...)
	b.columns[di].Tasks = out
	return true
}

// Add appends a task with trimmed text to column. Blank text is ignored.
func (b *Board) Add(column model.ColumnID, text string) (model.Task, bool) {
	text = strings.TrimSpace(text)
	i := b.index(column)
	if text == "" || i < 0 {
		return model.Task{}, false
	}
	t := model.Task{ID: b.newID(), Content: text}
	b.columns[i].Tasks = append(b.columns[i].Tasks, t)
	return t, true
}

// Delete removes the first task with taskID from column.
func (b *Board) Delete(column model.ColumnID, taskID string) bool {
	i := b.index(column)
	if i < 0 {
		return false
	}
	j := b.columns[i].IndexOf(taskID)
	if j < 0 {
		return false
	}
	tasks := b.columns[i].Tasks
	b.columns[i].Tasks = append(append([]model.Task(nil), tasks[:j]...), tasks[j+1:]...)
	return true
}
