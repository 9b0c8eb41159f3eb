package backend

import (
	"errors"
	"net/http"
)

// Error is a failure reported by the backend. Message is meant for humans.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return http.StatusText(e.Status)
	}
	return "backend error"
}

// Is matches on Code so decoded errors compare equal to the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Code == "" {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrNoSession          = &Error{Status: http.StatusUnauthorized, Code: "session_not_found", Message: "Auth session missing!"}
	ErrInvalidCredentials = &Error{Status: http.StatusBadRequest, Code: "invalid_credentials", Message: "Invalid login credentials"}
	ErrUserExists         = &Error{Status: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"}
	ErrWeakPassword       = &Error{Status: http.StatusUnprocessableEntity, Code: "weak_password", Message: "Password should be at least 6 characters."}
	ErrInvalidEmail       = &Error{Status: http.StatusBadRequest, Code: "validation_failed", Message: "Unable to validate email address: invalid format"}
	ErrInvalidRecovery    = &Error{Status: http.StatusForbidden, Code: "otp_expired", Message: "Email link is invalid or has expired"}
)

// MinPasswordLen is the shortest password either backend accepts.
const MinPasswordLen = 6

// Message returns the human-readable text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Error()
	}
	return err.Error()
}
