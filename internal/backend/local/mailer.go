package local

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Mailer delivers password recovery links.
type Mailer interface {
	SendRecoveryLink(ctx context.Context, email, link string) error
}

// LogMailer writes the link to the log instead of sending mail.
type LogMailer struct {
	Log logrus.FieldLogger
}

func (m LogMailer) SendRecoveryLink(ctx context.Context, email, link string) error {
	m.Log.WithFields(logrus.Fields{"email": email, "link": link}).Info("password recovery link")
	return nil
}
