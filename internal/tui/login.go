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

type authMode int

const (
	authModeLogin authMode = iota
	authModeSignup
)

const msgConfirmEmail = "Check your email to confirm your account, then sign in."

// loginModel is the sign-in / sign-up form. A successful submit changes
// nothing here: the session event reaches the root model, which swaps views.
type loginModel struct {
	auth       backend.Auth
	log        logrus.FieldLogger
	redirectTo string

	mode     authMode
	email    textinput.Model
	password textinput.Model
	focus    int

	err    string
	notice string
	busy   bool
	width  int

	// forgot shows the reset-request form in place of the login form.
	forgot   bool
	recovery recoveryModel
}

func newLoginModel(auth backend.Auth, log logrus.FieldLogger, redirectTo string) loginModel {
	m := loginModel{
		auth:       auth,
		log:        log,
		redirectTo: redirectTo,
		email:      newTextInput("you@example.com", 254),
		password:   newPasswordInput("Password"),
	}
	m.focusInputs()
	return m
}

func (m *loginModel) inputs() []*textinput.Model {
	return []*textinput.Model{&m.email, &m.password}
}

func (m *loginModel) focusInputs() {
	focusInputs(m.inputs(), m.focus)
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	if m.forgot {
		if km, ok := msg.(tea.KeyMsg); ok && key.Matches(km, keyBack) {
			m.forgot = false
			m.focusInputs()
			return m, nil
		}
		var cmd tea.Cmd
		m.recovery, cmd = m.recovery.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case authResultMsg:
		m.busy = false
		if msg.err != nil {
			m.err = backend.Message(msg.err)
			return m, nil
		}
		m.err = ""
		if msg.pending {
			m.notice = msgConfirmEmail
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m loginModel) updateKey(msg tea.KeyMsg) (loginModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keyToggleSignup):
		if m.mode == authModeLogin {
			m.mode = authModeSignup
		} else {
			m.mode = authModeLogin
		}
		return m, nil
	case key.Matches(msg, keyForgot):
		if m.mode != authModeLogin {
			return m, nil
		}
		m.forgot = true
		m.recovery = newRecoveryModel(m.auth, m.log, m.redirectTo, recoveryRequest)
		m.recovery.width = m.width
		return m, nil
	case key.Matches(msg, keyNextField):
		m.focus = (m.focus + 1) % 2
		m.focusInputs()
		return m, nil
	case key.Matches(msg, keyPrevField):
		m.focus = (m.focus + 1) % 2
		m.focusInputs()
		return m, nil
	case key.Matches(msg, keySubmit):
		if m.focus == 0 {
			m.focus = 1
			m.focusInputs()
			return m, nil
		}
		return m.submit()
	}

	var cmd tea.Cmd
	in := m.inputs()[m.focus]
	*in, cmd = in.Update(msg)
	return m, cmd
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.busy = true
	m.err = ""
	m.notice = ""
	email := strings.TrimSpace(m.email.Value())
	password := m.password.Value()
	if m.mode == authModeSignup {
		return m, signUpCmd(m.auth, m.log, email, password)
	}
	return m, signInCmd(m.auth, m.log, email, password)
}

func signInCmd(auth backend.Auth, log logrus.FieldLogger, email, password string) tea.Cmd {
	return func() tea.Msg {
		_, err := auth.SignInWithPassword(context.Background(), email, password)
		if err != nil {
			log.WithError(err).WithField("email", email).Info("sign in failed")
		}
		return authResultMsg{err: err}
	}
}

func signUpCmd(auth backend.Auth, log logrus.FieldLogger, email, password string) tea.Cmd {
	return func() tea.Msg {
		s, err := auth.SignUp(context.Background(), email, password)
		if err != nil {
			log.WithError(err).WithField("email", email).Info("sign up failed")
			return authResultMsg{err: err}
		}
		return authResultMsg{pending: s == nil}
	}
}

func (m loginModel) View() string {
	if m.forgot {
		return m.recovery.View() + "\n" + helpLine(keyBack)
	}

	w := formWidth(m.width)
	title := "Sign In"
	if m.mode == authModeSignup {
		title = "Create Account"
	}

	var b strings.Builder
	b.WriteString(styleTitle().Render(title))
	b.WriteString("\n\n")
	b.WriteString(labeledInput("Email", m.email, w))
	b.WriteString("\n\n")
	b.WriteString(labeledInput("Password", m.password, w))
	b.WriteString("\n\n")
	b.WriteString(statusLine(m.err, m.notice, m.busy))
	b.WriteString("\n")

	bindings := []key.Binding{keySubmit, keyNextField, keyToggleSignup}
	if m.mode == authModeLogin {
		bindings = append(bindings, keyForgot)
	}
	bindings = append(bindings, keyQuit)
	b.WriteString(helpLine(bindings...))
	return lipgloss.NewStyle().Width(w).Render(b.String())
}
