package tui

import (
	"fmt"
	"strings"

	"workdesk/internal/board"
	"workdesk/internal/model"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// boardModel is the keyboard drag-and-drop view over a board.Board.
//
// space grabs the selected task, arrows move the drop target, enter drops and
// esc cancels (a drop with no destination).
type boardModel struct {
	b *board.Board

	col int
	row int

	grabbed *board.Position
	target  board.Position

	adding bool
	input  textinput.Model

	status string
	width  int
	height int
}

func newBoardModel(b *board.Board) boardModel {
	if b == nil {
		b = board.New()
	}
	return boardModel{
		b:     b,
		input: newTextInput("New task", 200),
	}
}

// capturing reports whether the board wants every key (typing a task or
// carrying one), so the shell must not treat keys as navigation.
func (m boardModel) capturing() bool {
	return m.adding || m.grabbed != nil
}

func (m boardModel) columns() []model.Column {
	return m.b.Columns()
}

func (m *boardModel) clampSelection() {
	cols := m.columns()
	if m.col < 0 {
		m.col = 0
	}
	if m.col >= len(cols) {
		m.col = len(cols) - 1
	}
	n := len(cols[m.col].Tasks)
	if m.row >= n {
		m.row = n - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

func (m boardModel) selectedTask() (model.Task, bool) {
	cols := m.columns()
	if m.col < 0 || m.col >= len(cols) {
		return model.Task{}, false
	}
	tasks := cols[m.col].Tasks
	if m.row < 0 || m.row >= len(tasks) {
		return model.Task{}, false
	}
	return tasks[m.row], true
}

// targetLimit is the largest valid drop index in column ci for the grabbed task.
func (m boardModel) targetLimit(ci int) int {
	cols := m.columns()
	n := len(cols[ci].Tasks)
	if m.grabbed != nil && cols[ci].ID == m.grabbed.Column {
		n--
	}
	return n
}

func (m boardModel) Update(msg tea.Msg) (boardModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.adding {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
	switch {
	case m.adding:
		return m.updateAdding(km)
	case m.grabbed != nil:
		return m.updateGrabbed(km), nil
	}
	return m.updateBrowse(km)
}

func (m boardModel) updateBrowse(km tea.KeyMsg) (boardModel, tea.Cmd) {
	cols := m.columns()
	switch {
	case key.Matches(km, keyLeft):
		if m.col > 0 {
			m.col--
		}
		m.clampSelection()
	case key.Matches(km, keyRight):
		if m.col < len(cols)-1 {
			m.col++
		}
		m.clampSelection()
	case key.Matches(km, keyUp):
		if m.row > 0 {
			m.row--
		}
	case key.Matches(km, keyDown):
		if m.row < len(cols[m.col].Tasks)-1 {
			m.row++
		}
	case key.Matches(km, keyGrab):
		if _, ok := m.selectedTask(); !ok {
			return m, nil
		}
		src := board.Position{Column: cols[m.col].ID, Index: m.row}
		m.grabbed = &src
		m.target = src
		m.status = ""
	case key.Matches(km, keyAdd):
		m.adding = true
		m.status = ""
		m.input.SetValue("")
		return m, m.input.Focus()
	case key.Matches(km, keyDelete):
		t, ok := m.selectedTask()
		if !ok {
			return m, nil
		}
		if m.b.Delete(cols[m.col].ID, t.ID) {
			m.status = fmt.Sprintf("Deleted %q", t.Content)
		}
		m.clampSelection()
	}
	return m, nil
}

func (m boardModel) updateGrabbed(km tea.KeyMsg) boardModel {
	cols := m.columns()
	ci := m.columnIndex(m.target.Column)
	switch {
	case key.Matches(km, keyCancel):
		m.b.Reorder(*m.grabbed, nil)
		m.grabbed = nil
		m.status = "Move cancelled"
	case key.Matches(km, keyDrop):
		src := *m.grabbed
		dst := m.target
		m.grabbed = nil
		if m.b.Reorder(src, &dst) {
			m.col = m.columnIndex(dst.Column)
			m.row = dst.Index
			m.status = fmt.Sprintf("Moved to %s", cols[m.col].Title)
		}
		m.clampSelection()
	case key.Matches(km, keyLeft):
		if ci > 0 {
			ci--
			m.target = board.Position{Column: cols[ci].ID, Index: min(m.target.Index, m.targetLimit(ci))}
		}
	case key.Matches(km, keyRight):
		if ci < len(cols)-1 {
			ci++
			m.target = board.Position{Column: cols[ci].ID, Index: min(m.target.Index, m.targetLimit(ci))}
		}
	case key.Matches(km, keyUp):
		if m.target.Index > 0 {
			m.target.Index--
		}
	case key.Matches(km, keyDown):
		if m.target.Index < m.targetLimit(ci) {
			m.target.Index++
		}
	}
	return m
}

func (m boardModel) updateAdding(km tea.KeyMsg) (boardModel, tea.Cmd) {
	switch km.String() {
	case "esc":
		m.adding = false
		m.input.Blur()
		return m, nil
	case "enter":
		cols := m.columns()
		if t, ok := m.b.Add(cols[m.col].ID, m.input.Value()); ok {
			m.status = fmt.Sprintf("Added %q", t.Content)
			m.row = len(cols[m.col].Tasks)
		}
		m.adding = false
		m.input.Blur()
		m.input.SetValue("")
		m.clampSelection()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(km)
	return m, cmd
}

func (m boardModel) columnIndex(id model.ColumnID) int {
	for i, c := range m.columns() {
		if c.ID == id {
			return i
		}
	}
	return 0
}

func (m boardModel) View() string {
	cols := m.columns()
	width := m.width
	if width <= 0 {
		width = 90
	}
	colW := (width - 2) / len(cols)
	if colW < 16 {
		colW = 16
	}
	innerW := colW - 4

	rendered := make([]string, 0, len(cols))
	for ci, c := range cols {
		lines := []string{lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%s (%d)", c.Title, len(c.Tasks)))}
		visible := c.Tasks
		grabbedHere := m.grabbed != nil && m.grabbed.Column == c.ID
		if grabbedHere {
			visible = append(append([]model.Task(nil), c.Tasks[:m.grabbed.Index]...), c.Tasks[m.grabbed.Index+1:]...)
		}
		dropHere := m.grabbed != nil && m.target.Column == c.ID
		for i := 0; i <= len(visible); i++ {
			if dropHere && i == m.target.Index {
				carried := cols[m.columnIndex(m.grabbed.Column)].Tasks[m.grabbed.Index]
				lines = append(lines, styleSelected().Render(fitLine("▸ "+carried.Content, innerW)))
			}
			if i == len(visible) {
				break
			}
			line := fitLine("  "+visible[i].Content, innerW)
			if m.grabbed == nil && ci == m.col && i == m.row {
				line = styleSelected().Render(line)
			}
			lines = append(lines, line)
		}
		if len(c.Tasks) == 0 && !dropHere {
			lines = append(lines, styleMuted().Render("  (empty)"))
		}
		if m.adding && ci == m.col {
			lines = append(lines, renderInputLine(innerW, m.input.View()))
		}

		border := colorCardBorder
		if ci == m.col && m.grabbed == nil {
			border = colorSelectedBorder
		}
		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1).
			Width(colW - 2).
			Render(strings.Join(lines, "\n"))
		rendered = append(rendered, box)
	}

	out := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	var hint string
	switch {
	case m.adding:
		hint = helpLine(keySubmit, keyCancel)
	case m.grabbed != nil:
		hint = helpLine(keyLeft, keyRight, keyUp, keyDown, keyDrop, keyCancel)
	default:
		hint = helpLine(keyGrab, keyAdd, keyDelete)
	}
	if m.status != "" {
		hint = styleMuted().Render(m.status) + "\n" + hint
	}
	return out + "\n" + hint
}
