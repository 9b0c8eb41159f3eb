package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"workdesk/internal/backend"
	"workdesk/internal/model"
)

const sessionFileName = "session.json"

var _ backend.SessionStore = Store{}

func (s Store) sessionPath() string {
	return filepath.Join(s.Dir, sessionFileName)
}

// LoadSession returns the persisted session, or nil when there is none. A
// corrupted file is treated as missing.
func (s Store) LoadSession() (*model.Session, error) {
	if s.disabled() {
		return nil, nil
	}
	b, err := os.ReadFile(s.sessionPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var sess model.Session
	if err := json.Unmarshal(b, &sess); err != nil || sess.AccessToken == "" {
		return nil, nil
	}
	return &sess, nil
}

func (s Store) SaveSession(sess *model.Session) error {
	if s.disabled() {
		return nil
	}
	if sess == nil {
		return s.ClearSession()
	}
	if err := s.Ensure(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(s.Dir, "session.json.*.tmp", s.sessionPath(), b, 0o600)
}

func (s Store) ClearSession() error {
	if s.disabled() {
		return nil
	}
	err := os.Remove(s.sessionPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
