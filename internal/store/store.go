// Package store owns the files under the config directory: config.json, the
// persisted auth session and small pieces of TUI state.
package store

import (
	"os"
	"strings"
)

// Store is a directory holding per-user client state.
type Store struct {
	Dir string
}

// Open returns a Store rooted at the config directory.
func Open() (Store, error) {
	dir, err := ConfigDir()
	if err != nil {
		return Store{}, err
	}
	return Store{Dir: dir}, nil
}

func (s Store) Ensure() error {
	return os.MkdirAll(s.Dir, 0o755)
}

func (s Store) disabled() bool {
	return strings.TrimSpace(s.Dir) == ""
}
