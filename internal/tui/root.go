package tui

import (
	"context"
	"strings"
	"sync"

	"workdesk/internal/backend"
	"workdesk/internal/model"
	"workdesk/internal/store"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

// authEventBuffer bounds how many session changes can queue while the UI is busy.
const authEventBuffer = 16

type stateStore interface {
	LoadTUIState() (*store.TUIState, error)
	SaveTUIState(st *store.TUIState) error
}

type Options struct {
	Backend backend.Backend
	Log     logrus.FieldLogger
	// RedirectTo is where password reset emails point.
	RedirectTo string
	// RecoveryLink is exchanged on start, opening the app in the reset form.
	RecoveryLink string
	// State remembers the last email between launches. Optional.
	State stateStore
	// Theme is "light", "dark" or "" for auto.
	Theme string
}

// authSubscription is the single session-change subscription of the app.
// Events are handed to the bubbletea loop through a buffered channel.
type authSubscription struct {
	events chan backend.AuthEvent
	sub    *backend.Subscription
	once   sync.Once
}

func subscribeAuth(auth backend.Auth, log logrus.FieldLogger) *authSubscription {
	s := &authSubscription{events: make(chan backend.AuthEvent, authEventBuffer)}
	s.sub = auth.Subscribe(func(ev backend.AuthEvent) {
		select {
		case s.events <- ev:
		default:
			log.WithField("event", ev.Kind).Warn("auth event dropped: UI not keeping up")
		}
	})
	return s
}

// listen waits for the next event. It returns nil once the subscription is closed.
func (s *authSubscription) listen() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-s.events
		if !ok {
			return nil
		}
		return authEventMsg{ev: ev}
	}
}

// Close cancels the subscription. Safe to call more than once; no callback
// runs after it returns.
func (s *authSubscription) Close() {
	s.once.Do(func() {
		s.sub.Unsubscribe()
		close(s.events)
	})
}

// rootState is what the root controller knows about the session.
type rootState struct {
	recovery bool
	user     *model.User
	// seenEvent is set once any session event has been applied; the initial
	// fetch result is stale after that.
	seenEvent bool
}

// nextMode applies a session event. The recovery event switches to the reset
// form whatever the session; any other event replaces the cached user and
// leaves recovery.
func nextMode(s rootState, ev backend.AuthEvent) rootState {
	s.seenEvent = true
	if ev.Kind == backend.EventPasswordRecovery {
		s.recovery = true
		return s
	}
	s.recovery = false
	s.user = ev.User()
	return s
}

type rootModel struct {
	opts Options
	log  logrus.FieldLogger
	sub  *authSubscription

	state rootState

	login    loginModel
	recovery recoveryModel
	dash     *dashboardModel

	width  int
	height int
}

// newRootModel subscribes to session changes before anything else runs, so
// no event between construction and Init is missed.
func newRootModel(opts Options) rootModel {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "tui")
	m := rootModel{
		opts: opts,
		log:  log,
	}
	m.sub = subscribeAuth(opts.Backend, log)
	m.login = m.newLogin()
	m.recovery = newRecoveryModel(opts.Backend, log, opts.RedirectTo, recoveryReset)
	return m
}

func (m rootModel) newLogin() loginModel {
	l := newLoginModel(m.opts.Backend, m.log, m.opts.RedirectTo)
	l.width = m.width
	if m.opts.State != nil {
		if st, err := m.opts.State.LoadTUIState(); err == nil && st.LastEmail != "" {
			l.email.SetValue(st.LastEmail)
			l.focus = 1
			l.focusInputs()
		}
	}
	return l
}

func (m rootModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.sub.listen(), fetchUserCmd(m.opts.Backend)}
	if link := strings.TrimSpace(m.opts.RecoveryLink); link != "" {
		cmds = append(cmds, exchangeRecoveryCmd(m.opts.Backend, m.log, link))
	}
	return tea.Batch(cmds...)
}

func fetchUserCmd(auth backend.Auth) tea.Cmd {
	return func() tea.Msg {
		u, err := auth.GetUser(context.Background())
		return initialUserMsg{user: u, err: err}
	}
}

func exchangeRecoveryCmd(auth backend.Auth, log logrus.FieldLogger, link string) tea.Cmd {
	return func() tea.Msg {
		err := auth.ExchangeRecoveryLink(context.Background(), link)
		if err != nil {
			log.WithError(err).Warn("recovery link rejected")
		}
		return recoveryExchangedMsg{err: err}
	}
}

func (m rootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.login.width = msg.Width
		m.login.recovery.width = msg.Width
		m.recovery.width = msg.Width
		if m.dash != nil {
			m.dash.setSize(msg.Width, msg.Height-2)
		}
		return m, nil

	case authEventMsg:
		m.applyEvent(msg.ev)
		return m, m.sub.listen()

	case initialUserMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).Warn("initial user fetch failed")
		}
		if m.state.seenEvent {
			return m, nil
		}
		m.state.user = msg.user
		m.syncDashboard()
		return m, nil

	case recoveryExchangedMsg:
		if msg.err != nil {
			m.login.err = backend.Message(msg.err)
		}
		return m, nil

	case authResultMsg:
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		return m, cmd

	case resetRequestedMsg:
		var cmd tea.Cmd
		if m.state.recovery {
			m.recovery, cmd = m.recovery.Update(msg)
		} else {
			m.login, cmd = m.login.Update(msg)
		}
		return m, cmd

	case passwordUpdatedMsg:
		// USER_UPDATED may already have left recovery for the dashboard.
		if !m.state.recovery {
			if m.dash != nil && msg.err == nil {
				m.dash.setStatus(msgPasswordUpdated, false)
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.recovery, cmd = m.recovery.Update(msg)
		return m, cmd

	case signedOutMsg, notesLoadedMsg, noteCreatedMsg, noteUpdatedMsg, noteDeletedMsg:
		if m.dash == nil {
			return m, nil
		}
		d, cmd := m.dash.Update(msg)
		m.dash = &d
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, keyQuit) {
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	switch {
	case m.state.recovery:
		m.recovery, cmd = m.recovery.Update(msg)
	case m.state.user == nil:
		m.login, cmd = m.login.Update(msg)
	case m.dash != nil:
		d, c := m.dash.Update(msg)
		m.dash, cmd = &d, c
	}
	return m, cmd
}

func (m *rootModel) applyEvent(ev backend.AuthEvent) {
	prev := m.state
	m.state = nextMode(m.state, ev)
	m.log.WithField("event", ev.Kind).Debug("session changed")

	if m.state.recovery && !prev.recovery {
		m.recovery = newRecoveryModel(m.opts.Backend, m.log, m.opts.RedirectTo, recoveryReset)
		m.recovery.width = m.width
	}
	if prev.user != nil && m.state.user == nil {
		m.login = m.newLogin()
	}
	m.syncDashboard()
	m.rememberEmail()
}

// syncDashboard builds a dashboard for the cached user, keeping the current
// one while the user stays the same.
func (m *rootModel) syncDashboard() {
	u := m.state.user
	if u == nil {
		m.dash = nil
		return
	}
	if m.dash != nil && m.dash.user.ID == u.ID {
		m.dash.user = *u
		return
	}
	d := newDashboardModel(*u, m.opts.Backend, m.opts.Backend, m.log)
	d.setSize(m.width, m.height-2)
	m.dash = &d
}

func (m *rootModel) rememberEmail() {
	if m.opts.State == nil || m.state.user == nil || m.state.user.Email == "" {
		return
	}
	st, err := m.opts.State.LoadTUIState()
	if err != nil || st.LastEmail == m.state.user.Email {
		return
	}
	st.LastEmail = m.state.user.Email
	if err := m.opts.State.SaveTUIState(st); err != nil {
		m.log.WithError(err).Debug("save tui state")
	}
}

func (m rootModel) View() string {
	var out string
	switch {
	case m.state.recovery:
		out = m.recovery.View()
	case m.state.user == nil:
		out = m.login.View()
	case m.dash != nil:
		return m.dash.View()
	}
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, out)
	}
	return out
}

// Close releases the session subscription.
func (m rootModel) Close() {
	m.sub.Close()
}
