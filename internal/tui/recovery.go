package tui

import (
	"context"
	"strings"

	"workdesk/internal/backend"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

type recoveryMode int

const (
	recoveryRequest recoveryMode = iota
	recoveryReset
)

const (
	msgResetLinkSent    = "Password reset link sent to your email. Check your inbox."
	msgPasswordUpdated  = "Password successfully updated"
	msgPasswordMismatch = "Passwords do not match"
	msgPasswordTooShort = "Password must be at least 6 characters"
)

// recoveryModel requests a reset link (request mode) or sets a new password
// after following one (reset mode).
type recoveryModel struct {
	auth       backend.Auth
	log        logrus.FieldLogger
	redirectTo string

	mode     recoveryMode
	email    textinput.Model
	password textinput.Model
	confirm  textinput.Model
	focus    int

	err     string
	message string
	busy    bool
	width   int
}

func newRecoveryModel(auth backend.Auth, log logrus.FieldLogger, redirectTo string, mode recoveryMode) recoveryModel {
	m := recoveryModel{
		auth:       auth,
		log:        log,
		redirectTo: redirectTo,
		email:      newTextInput("you@example.com", 254),
		password:   newPasswordInput("New password"),
		confirm:    newPasswordInput("Confirm new password"),
	}
	m.setMode(mode)
	return m
}

func (m *recoveryModel) setMode(mode recoveryMode) {
	m.mode = mode
	m.focus = 0
	m.err = ""
	m.focusInputs()
}

func (m *recoveryModel) inputs() []*textinput.Model {
	if m.mode == recoveryReset {
		return []*textinput.Model{&m.password, &m.confirm}
	}
	return []*textinput.Model{&m.email}
}

func (m *recoveryModel) focusInputs() {
	focusInputs([]*textinput.Model{&m.email, &m.password, &m.confirm}, -1)
	focusInputs(m.inputs(), m.focus)
}

func (m recoveryModel) Update(msg tea.Msg) (recoveryModel, tea.Cmd) {
	switch msg := msg.(type) {
	case resetRequestedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = backend.Message(msg.err)
			m.message = ""
			return m, nil
		}
		m.err = ""
		m.message = msgResetLinkSent
		return m, nil

	case passwordUpdatedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = backend.Message(msg.err)
			m.message = ""
			return m, nil
		}
		m.password.SetValue("")
		m.confirm.SetValue("")
		m.setMode(recoveryRequest)
		m.message = msgPasswordUpdated
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m recoveryModel) updateKey(msg tea.KeyMsg) (recoveryModel, tea.Cmd) {
	inputs := m.inputs()
	switch {
	case key.Matches(msg, keyBackToReset):
		if m.mode == recoveryReset {
			m.setMode(recoveryRequest)
			m.message = ""
		}
		return m, nil
	case key.Matches(msg, keyNextField):
		m.focus = (m.focus + 1) % len(inputs)
		m.focusInputs()
		return m, nil
	case key.Matches(msg, keyPrevField):
		m.focus = (m.focus + len(inputs) - 1) % len(inputs)
		m.focusInputs()
		return m, nil
	case key.Matches(msg, keySubmit):
		if m.focus < len(inputs)-1 {
			m.focus++
			m.focusInputs()
			return m, nil
		}
		return m.submit()
	}

	var cmd tea.Cmd
	in := inputs[m.focus]
	*in, cmd = in.Update(msg)
	return m, cmd
}

func (m recoveryModel) submit() (recoveryModel, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.message = ""
	switch m.mode {
	case recoveryReset:
		pw, confirm := m.password.Value(), m.confirm.Value()
		if pw != confirm {
			m.err = msgPasswordMismatch
			return m, nil
		}
		if len(pw) < backend.MinPasswordLen {
			m.err = msgPasswordTooShort
			return m, nil
		}
		m.err = ""
		m.busy = true
		return m, updatePasswordCmd(m.auth, m.log, pw)
	default:
		m.err = ""
		m.busy = true
		return m, requestResetCmd(m.auth, m.log, strings.TrimSpace(m.email.Value()), m.redirectTo)
	}
}

func requestResetCmd(auth backend.Auth, log logrus.FieldLogger, email, redirectTo string) tea.Cmd {
	return func() tea.Msg {
		err := auth.ResetPasswordForEmail(context.Background(), email, redirectTo)
		if err != nil {
			log.WithError(err).Warn("password reset request failed")
		}
		return resetRequestedMsg{err: err}
	}
}

func updatePasswordCmd(auth backend.Auth, log logrus.FieldLogger, password string) tea.Cmd {
	return func() tea.Msg {
		err := auth.UpdatePassword(context.Background(), password)
		if err != nil {
			log.WithError(err).Warn("password update failed")
		}
		return passwordUpdatedMsg{err: err}
	}
}

func (m recoveryModel) View() string {
	w := formWidth(m.width)
	var b strings.Builder
	if m.mode == recoveryReset {
		b.WriteString(styleTitle().Render("Reset Password"))
		b.WriteString("\n\n")
		b.WriteString(labeledInput("New Password", m.password, w))
		b.WriteString("\n\n")
		b.WriteString(labeledInput("Confirm New Password", m.confirm, w))
	} else {
		b.WriteString(styleTitle().Render("Forgot Password"))
		b.WriteString("\n\n")
		b.WriteString(labeledInput("Email", m.email, w))
	}
	b.WriteString("\n\n")
	b.WriteString(statusLine(m.err, m.message, m.busy))

	bindings := []key.Binding{keySubmit, keyNextField}
	if m.mode == recoveryReset {
		bindings = append(bindings, keyBackToReset)
	}
	b.WriteString("\n")
	b.WriteString(helpLine(bindings...))
	return lipgloss.NewStyle().Width(w).Render(b.String())
}

// formWidth keeps auth forms readable on wide terminals.
func formWidth(termWidth int) int {
	w := termWidth - 4
	if w > 60 || termWidth <= 0 {
		w = 60
	}
	if w < 20 {
		w = 20
	}
	return w
}

// statusLine renders the error (if any), else the message, else a busy hint.
func statusLine(errText, message string, busy bool) string {
	switch {
	case errText != "":
		return styleError().Render(errText)
	case message != "":
		return styleSuccess().Render(message)
	case busy:
		return styleMuted().Render("Working…")
	}
	return ""
}
