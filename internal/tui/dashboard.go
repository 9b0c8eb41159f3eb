package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"workdesk/internal/backend"
	"workdesk/internal/board"
	"workdesk/internal/model"
	"workdesk/internal/notes"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

type dashTab string

const (
	tabOverview dashTab = "overview"
	tabTasks    dashTab = "tasks"
	tabNotes    dashTab = "notes"
	tabProfile  dashTab = "profile"
	tabSettings dashTab = "settings"
)

var dashTabs = []struct {
	tab   dashTab
	label string
}{
	{tabOverview, "Dashboard"},
	{tabTasks, "Tasks"},
	{tabNotes, "Notes"},
	{tabProfile, "Profile"},
	{tabSettings, "Settings"},
}

// shellState is the navigation state of the dashboard.
type shellState struct {
	active      dashTab
	sidebarOpen bool
	flyoutOpen  bool
}

// selectTab activates t. Settings toggles the flyout, any other tab closes it,
// and every selection closes the sidebar.
func selectTab(s shellState, t dashTab) shellState {
	s.active = t
	s.sidebarOpen = false
	if t == tabSettings {
		s.flyoutOpen = !s.flyoutOpen
	} else {
		s.flyoutOpen = false
	}
	return s
}

// chooseFlyoutAction closes the flyout and the sidebar.
func chooseFlyoutAction(s shellState) shellState {
	s.flyoutOpen = false
	s.sidebarOpen = false
	return s
}

const sidebarWidth = 24

type dashboardModel struct {
	user model.User
	auth backend.Auth
	log  logrus.FieldLogger

	state          shellState
	flyoutCursor   int
	settingsCursor int

	board boardModel
	notes notesModel

	status     string
	statusErr  bool
	signingOut bool

	width  int
	height int
}

func newDashboardModel(user model.User, auth backend.Auth, rec backend.Records, log logrus.FieldLogger) dashboardModel {
	return dashboardModel{
		user:  user,
		auth:  auth,
		log:   log,
		state: shellState{active: tabOverview},
		board: newBoardModel(board.New()),
		notes: newNotesModel(notes.NewRepo(rec), log, user.ID),
	}
}

func (m *dashboardModel) setSize(width, height int) {
	m.width = width
	m.height = height
	contentW := width
	if !narrow(width) {
		contentW -= sidebarWidth + 1
	}
	m.board.width = contentW
	m.board.height = height - 2
	m.notes.width = contentW
	m.notes.height = height - 2
}

// childCapturing reports whether the active panel is in a text-entry or
// carrying state and should receive every key.
func (m dashboardModel) childCapturing() bool {
	switch m.state.active {
	case tabTasks:
		return m.board.capturing()
	case tabNotes:
		return m.notes.capturing()
	}
	return false
}

func (m dashboardModel) Update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case signedOutMsg:
		m.signingOut = false
		if msg.err != nil {
			m.log.WithError(msg.err).Error("sign out failed")
			m.setStatus("Sign out failed: "+backend.Message(msg.err), true)
		}
		return m, nil

	case notesLoadedMsg, noteCreatedMsg, noteUpdatedMsg, noteDeletedMsg:
		var cmd tea.Cmd
		m.notes, cmd = m.notes.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.childCapturing() {
			return m.updateChild(msg)
		}
		return m.updateKey(msg)
	}
	return m.updateChild(msg)
}

func (m *dashboardModel) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m dashboardModel) updateKey(msg tea.KeyMsg) (dashboardModel, tea.Cmd) {
	for i, b := range keyTabs {
		if key.Matches(msg, b) {
			return m.selectTab(dashTabs[i].tab)
		}
	}

	switch {
	case key.Matches(msg, keySignOut):
		if m.signingOut {
			return m, nil
		}
		m.signingOut = true
		return m, signOutCmd(m.auth)
	case key.Matches(msg, keySidebar):
		m.state.sidebarOpen = !m.state.sidebarOpen
		return m, nil
	}

	if m.state.flyoutOpen {
		switch {
		case key.Matches(msg, keyUp):
			if m.flyoutCursor > 0 {
				m.flyoutCursor--
			}
		case key.Matches(msg, keyDown):
			if m.flyoutCursor < len(settingsActions)-1 {
				m.flyoutCursor++
			}
		case key.Matches(msg, keyChoose):
			m.runAction(settingsActions[m.flyoutCursor])
			m.state = chooseFlyoutAction(m.state)
		case key.Matches(msg, keyBack):
			m.state.flyoutOpen = false
		}
		return m, nil
	}

	if key.Matches(msg, keyBack) && m.state.sidebarOpen {
		m.state.sidebarOpen = false
		return m, nil
	}

	if m.state.active == tabSettings {
		switch {
		case key.Matches(msg, keyUp), key.Matches(msg, keyLeft):
			if m.settingsCursor > 0 {
				m.settingsCursor--
			}
		case key.Matches(msg, keyDown), key.Matches(msg, keyRight):
			if m.settingsCursor < len(settingsActions)-1 {
				m.settingsCursor++
			}
		case key.Matches(msg, keyChoose):
			m.runAction(settingsActions[m.settingsCursor])
		}
		return m, nil
	}
	return m.updateChild(msg)
}

func (m dashboardModel) selectTab(t dashTab) (dashboardModel, tea.Cmd) {
	prev := m.state.active
	m.state = selectTab(m.state, t)
	if t == tabSettings && m.state.flyoutOpen {
		m.flyoutCursor = 0
	}
	m.status = ""
	if t == tabNotes && prev != tabNotes {
		return m, m.notes.load()
	}
	return m, nil
}

func (m *dashboardModel) runAction(a settingsAction) {
	if err := a.run(m.log); err != nil {
		m.setStatus(err.Error(), !errors.Is(err, errNotImplemented))
	}
}

func (m dashboardModel) updateChild(msg tea.Msg) (dashboardModel, tea.Cmd) {
	var cmd tea.Cmd
	switch m.state.active {
	case tabTasks:
		m.board, cmd = m.board.Update(msg)
	case tabNotes:
		m.notes, cmd = m.notes.Update(msg)
	}
	return m, cmd
}

func signOutCmd(auth backend.Auth) tea.Cmd {
	return func() tea.Msg {
		return signedOutMsg{err: auth.SignOut(context.Background())}
	}
}

func (m dashboardModel) View() string {
	header := m.headerView()
	content := m.contentView()

	showSidebar := !narrow(m.width) || m.state.sidebarOpen
	body := content
	if showSidebar {
		sidebar := m.sidebarView()
		if narrow(m.width) {
			// The open sidebar covers the content on narrow terminals.
			body = sidebar
		} else {
			h := max(lipgloss.Height(sidebar), lipgloss.Height(content))
			body = lipgloss.JoinHorizontal(lipgloss.Top,
				normalizePane(sidebar, sidebarWidth, h),
				" ",
				content,
			)
		}
	}

	footer := helpLine(keyTabs[0], keyTabs[1], keyTabs[2], keyTabs[3], keyTabs[4], keySidebar, keySignOut, keyQuit)
	if m.status != "" {
		st := styleWarning()
		if m.statusErr {
			st = styleError()
		}
		footer = st.Render(m.status) + "\n" + footer
	}
	return header + "\n" + body + "\n" + footer
}

func styleWarning() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorWarning)
}

func (m dashboardModel) headerView() string {
	left := styleTitle().Render("Dashboard")
	right := styleMuted().Render(m.user.Email + "  ·  ctrl+o Logout")
	w := m.width
	if w <= 0 {
		return left + "  " + right
	}
	gap := w - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m dashboardModel) sidebarView() string {
	var b strings.Builder
	for i, t := range dashTabs {
		label := fmt.Sprintf(" %d  %s", i+1, t.label)
		if t.tab == m.state.active {
			label = lipgloss.NewStyle().Foreground(colorAccentFg).Background(colorAccent).Bold(true).Render(fitLine(label, sidebarWidth-1))
		}
		b.WriteString(label)
		b.WriteString("\n")
		if t.tab == tabSettings && m.state.flyoutOpen {
			for j, a := range settingsActions {
				line := fitLine("    "+a.String(), sidebarWidth-1)
				if j == m.flyoutCursor {
					line = styleSelected().Render(line)
				}
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m dashboardModel) contentView() string {
	switch m.state.active {
	case tabTasks:
		return m.board.View()
	case tabNotes:
		return m.notes.View()
	case tabProfile:
		return m.profileView()
	case tabSettings:
		return m.settingsView()
	}
	return m.overviewView()
}

func (m dashboardModel) overviewView() string {
	counters := []struct {
		label string
		value int
		color lipgloss.TerminalColor
	}{
		{"Total Tasks", 12, colorAccent},
		{"Completed Tasks", 8, colorSuccess},
		{"Pending Tasks", 4, colorWarning},
		{"Personal Notes", 5, colorAccent},
	}
	cards := make([]string, 0, len(counters))
	for _, c := range counters {
		value := lipgloss.NewStyle().Bold(true).Foreground(c.color).Render(fmt.Sprint(c.value))
		cards = append(cards, lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorCardBorder).
			Padding(0, 1).
			Width(18).
			Render(c.label+"\n"+value))
	}
	return styleTitle().Render("Dashboard Overview") + "\n\n" + lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (m dashboardModel) profileView() string {
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorCardBorder).
		Padding(0, 2).
		Render(lipgloss.NewStyle().Bold(true).Render(m.user.Email) + "\n" + styleMuted().Render("Registered User"))
	return styleTitle().Render("Profile Details") + "\n\n" + card
}

func (m dashboardModel) settingsView() string {
	cards := make([]string, 0, len(settingsActions))
	for i, a := range settingsActions {
		border := colorCardBorder
		if i == m.settingsCursor {
			border = colorSelectedBorder
		}
		cards = append(cards, lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1).
			Width(22).
			Render(a.String()))
	}
	rows := []string{
		lipgloss.JoinHorizontal(lipgloss.Top, cards[:3]...),
		lipgloss.JoinHorizontal(lipgloss.Top, cards[3:]...),
	}
	return styleTitle().Render("Settings") + "\n\n" + lipgloss.JoinVertical(lipgloss.Left, rows...) + "\n" +
		helpLine(keyLeft, keyRight, keyChoose)
}
