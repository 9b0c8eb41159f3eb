package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the full-screen app and blocks until the user quits.
func Run(opts Options) error {
	if opts.Backend == nil {
		return errors.New("tui: backend is required")
	}
	applyColorProfilePreference()
	applyThemePreference(opts.Theme)

	m := newRootModel(opts)
	defer m.Close()

	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
