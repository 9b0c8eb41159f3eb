package tui

import (
	"workdesk/internal/backend"
	"workdesk/internal/model"
)

type authEventMsg struct {
	ev backend.AuthEvent
}

type initialUserMsg struct {
	user *model.User
	err  error
}

type recoveryExchangedMsg struct {
	err error
}

type authResultMsg struct {
	err error
	// pending is set when sign-up succeeded but the backend wants the email
	// confirmed before issuing a session.
	pending bool
}

type resetRequestedMsg struct {
	err error
}

type passwordUpdatedMsg struct {
	err error
}

type signedOutMsg struct {
	err error
}

type notesLoadedMsg struct {
	notes []model.Note
	err   error
}

type noteCreatedMsg struct {
	note model.Note
	err  error
}

type noteUpdatedMsg struct {
	id      int64
	title   string
	content string
	err     error
}

type noteDeletedMsg struct {
	id  int64
	err error
}
