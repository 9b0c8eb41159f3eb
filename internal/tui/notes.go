package tui

import (
	"context"
	"fmt"
	"strings"

	"workdesk/internal/backend"
	"workdesk/internal/model"
	"workdesk/internal/notes"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

// notesModel lists the signed-in user's notes and edits them through the
// notes repository. Failed calls leave the list unchanged and show the
// reason in the status line.
type notesModel struct {
	repo   *notes.Repo
	log    logrus.FieldLogger
	userID string

	notes   []model.Note
	cursor  int
	loading bool

	// composing adds a new note; editing rewrites notes[cursor].
	composing bool
	editing   bool
	editID    int64
	title     textinput.Model
	content   textarea.Model
	focus     int

	status    string
	statusErr bool
	width     int
	height    int
}

func newNotesModel(repo *notes.Repo, log logrus.FieldLogger, userID string) notesModel {
	ta := textarea.New()
	ta.Placeholder = "Write… (markdown)"
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(5)
	return notesModel{
		repo:    repo,
		log:     log,
		userID:  userID,
		title:   newTextInput("Title", 200),
		content: ta,
	}
}

func (m notesModel) capturing() bool {
	return m.composing || m.editing
}

// load fetches the user's notes, newest first.
func (m *notesModel) load() tea.Cmd {
	m.loading = true
	repo, userID := m.repo, m.userID
	return func() tea.Msg {
		ns, err := repo.List(context.Background(), userID)
		return notesLoadedMsg{notes: ns, err: err}
	}
}

func (m *notesModel) fail(what string, err error) {
	m.log.WithError(err).WithField("user_id", m.userID).Error(what)
	m.status = fmt.Sprintf("%s: %s", what, backend.Message(err))
	m.statusErr = true
}

func (m *notesModel) info(s string) {
	m.status = s
	m.statusErr = false
}

func (m notesModel) Update(msg tea.Msg) (notesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case notesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.fail("Could not load notes", msg.err)
			return m, nil
		}
		m.notes = msg.notes
		m.clampCursor()
		m.status = ""
		return m, nil

	case noteCreatedMsg:
		if msg.err != nil {
			m.fail("Could not create note", msg.err)
			return m, nil
		}
		m.notes = append(m.notes, msg.note)
		m.closeEditor()
		m.info(fmt.Sprintf("Created %q", msg.note.Title))
		return m, nil

	case noteUpdatedMsg:
		if msg.err != nil {
			m.fail("Could not update note", msg.err)
			return m, nil
		}
		for i := range m.notes {
			if m.notes[i].ID == msg.id {
				m.notes[i].Title = msg.title
				m.notes[i].Content = msg.content
			}
		}
		m.closeEditor()
		m.info("Note updated")
		return m, nil

	case noteDeletedMsg:
		if msg.err != nil {
			m.fail("Could not delete note", msg.err)
			return m, nil
		}
		out := m.notes[:0:0]
		for _, n := range m.notes {
			if n.ID != msg.id {
				out = append(out, n)
			}
		}
		m.notes = out
		m.clampCursor()
		m.info("Note deleted")
		return m, nil

	case tea.KeyMsg:
		if m.capturing() {
			return m.updateEditor(msg)
		}
		return m.updateBrowse(msg)
	}

	if m.capturing() {
		return m.updateInputs(msg)
	}
	return m, nil
}

func (m *notesModel) clampCursor() {
	if m.cursor >= len(m.notes) {
		m.cursor = len(m.notes) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m notesModel) updateBrowse(km tea.KeyMsg) (notesModel, tea.Cmd) {
	switch {
	case key.Matches(km, keyUp):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(km, keyDown):
		if m.cursor < len(m.notes)-1 {
			m.cursor++
		}
	case key.Matches(km, keyAdd):
		m.composing = true
		m.title.SetValue("")
		m.content.SetValue("")
		m.status = ""
		return m, m.focusEditor(0)
	case key.Matches(km, keyEdit):
		if m.cursor >= len(m.notes) {
			return m, nil
		}
		n := m.notes[m.cursor]
		m.editing = true
		m.editID = n.ID
		m.title.SetValue(n.Title)
		m.content.SetValue(n.Content)
		m.status = ""
		return m, m.focusEditor(0)
	case key.Matches(km, keyDelete):
		if m.cursor >= len(m.notes) {
			return m, nil
		}
		id, repo := m.notes[m.cursor].ID, m.repo
		return m, func() tea.Msg {
			return noteDeletedMsg{id: id, err: repo.Delete(context.Background(), id)}
		}
	case km.String() == "r":
		return m, m.load()
	}
	return m, nil
}

func (m *notesModel) focusEditor(idx int) tea.Cmd {
	m.focus = idx
	if idx == 0 {
		m.content.Blur()
		return m.title.Focus()
	}
	m.title.Blur()
	return m.content.Focus()
}

func (m *notesModel) closeEditor() {
	m.composing = false
	m.editing = false
	m.editID = 0
	m.title.SetValue("")
	m.content.SetValue("")
	m.title.Blur()
	m.content.Blur()
}

func (m notesModel) updateEditor(km tea.KeyMsg) (notesModel, tea.Cmd) {
	switch {
	case key.Matches(km, keyCancel):
		m.closeEditor()
		m.status = ""
		return m, nil
	case km.String() == "tab" || km.String() == "shift+tab":
		return m, m.focusEditor(1 - m.focus)
	case key.Matches(km, keySave):
		return m.save()
	case km.String() == "enter" && m.focus == 0:
		return m, m.focusEditor(1)
	}
	return m.updateInputs(km)
}

func (m notesModel) updateInputs(msg tea.Msg) (notesModel, tea.Cmd) {
	var cmd tea.Cmd
	if m.focus == 0 {
		m.title, cmd = m.title.Update(msg)
	} else {
		m.content, cmd = m.content.Update(msg)
	}
	return m, cmd
}

func (m notesModel) save() (notesModel, tea.Cmd) {
	title := strings.TrimSpace(m.title.Value())
	content := m.content.Value()
	if title == "" {
		m.status = "Title is required"
		m.statusErr = true
		return m, nil
	}
	repo := m.repo
	if m.editing {
		id := m.editID
		return m, func() tea.Msg {
			err := repo.Update(context.Background(), id, title, content)
			return noteUpdatedMsg{id: id, title: title, content: content, err: err}
		}
	}
	userID := m.userID
	return m, func() tea.Msg {
		n, err := repo.Create(context.Background(), userID, title, content)
		return noteCreatedMsg{note: n, err: err}
	}
}

func (m notesModel) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	var b strings.Builder
	b.WriteString(styleTitle().Render("Personal Notes"))
	b.WriteString("\n\n")

	if m.capturing() {
		heading := "New note"
		if m.editing {
			heading = "Edit note"
		}
		m.content.SetWidth(width - 2)
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(heading))
		b.WriteString("\n")
		b.WriteString(labeledInput("Title", m.title, width-2))
		b.WriteString("\n")
		b.WriteString(m.content.View())
		b.WriteString("\n")
		b.WriteString(m.statusView())
		b.WriteString(helpLine(keySave, keyCancel))
		return b.String()
	}

	switch {
	case m.loading && len(m.notes) == 0:
		b.WriteString(styleMuted().Render("Loading…"))
		b.WriteString("\n")
	case len(m.notes) == 0:
		b.WriteString(styleMuted().Render("No notes yet. Press a to add one."))
		b.WriteString("\n")
	}
	for i, n := range m.notes {
		title := fitLine(n.Title, width-4)
		if i == m.cursor {
			title = styleSelected().Render(title)
		} else {
			title = lipgloss.NewStyle().Bold(true).Render(title)
		}
		b.WriteString(title)
		b.WriteString("\n")
		if body := renderMarkdown(n.Content, width-4); body != "" {
			b.WriteString(body)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(m.statusView())
	b.WriteString(helpLine(keyAdd, keyEdit, keyDelete, key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh"))))
	return b.String()
}

func (m notesModel) statusView() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return styleError().Render(m.status) + "\n"
	}
	return styleSuccess().Render(m.status) + "\n"
}
