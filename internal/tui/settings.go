package tui

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

var errNotImplemented = errors.New("not implemented yet")

type settingsAction int

const (
	actionMyAccount settingsAction = iota
	actionNotifications
	actionConnectedApps
	actionPlans
	actionBilling
	actionFeedback
)

var settingsActions = []settingsAction{
	actionMyAccount,
	actionNotifications,
	actionConnectedApps,
	actionPlans,
	actionBilling,
	actionFeedback,
}

func (a settingsAction) String() string {
	switch a {
	case actionMyAccount:
		return "My Account"
	case actionNotifications:
		return "My Notifications"
	case actionConnectedApps:
		return "Connected Apps"
	case actionPlans:
		return "Plans"
	case actionBilling:
		return "Billing & Invoices"
	case actionFeedback:
		return "Give Feedback"
	}
	return fmt.Sprintf("settingsAction(%d)", int(a))
}

// run records the user's intent. None of the settings pages exist yet.
func (a settingsAction) run(log logrus.FieldLogger) error {
	log.WithField("action", a.String()).Info("settings action selected")
	return fmt.Errorf("%s: %w", a, errNotImplemented)
}
