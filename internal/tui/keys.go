package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
)

var (
	keyQuit      = key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit"))
	keyNextField = key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field"))
	keyPrevField = key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field"))
	keySubmit    = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit"))
	keyBack      = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back"))

	keyToggleSignup = key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "sign in/sign up"))
	keyForgot       = key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "forgot password"))
	keyBackToReset  = key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "back to reset request"))

	keyTabs = []key.Binding{
		key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "dashboard")),
		key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "tasks")),
		key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "notes")),
		key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "profile")),
		key.NewBinding(key.WithKeys("5"), key.WithHelp("5", "settings")),
	}
	keySidebar = key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "menu"))
	keySignOut = key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "logout"))
	keyUp      = key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up"))
	keyDown    = key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down"))
	keyLeft    = key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left"))
	keyRight   = key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right"))
	keyChoose  = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "choose"))

	keyGrab   = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "grab"))
	keyDrop   = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drop"))
	keyCancel = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
	keyAdd    = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	keyDelete = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	keyEdit   = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	keySave   = key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save"))
)

func helpLine(bindings ...key.Binding) string {
	h := help.New()
	h.ShortSeparator = "   "
	return h.ShortHelpView(bindings)
}
