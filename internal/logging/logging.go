// Package logging configures the process-wide logrus logger. The TUI owns the
// terminal, so log output normally goes to a file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

const FileName = "workdesk.log"

// Setup points the standard logger at w with the given level ("" means info).
func Setup(level string, w io.Writer) (*log.Logger, error) {
	lvl := log.InfoLevel
	if s := strings.TrimSpace(level); s != "" {
		parsed, err := log.ParseLevel(s)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q", level)
		}
		lvl = parsed
	}
	l := log.StandardLogger()
	l.SetOutput(w)
	l.SetLevel(lvl)
	l.SetFormatter(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
	return l, nil
}

// OpenFile opens (appending) the log file inside dir.
func OpenFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}
