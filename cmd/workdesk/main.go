package main

import (
	"net/url"
	"os"
	"strings"

	"workdesk/internal/cli"
)

// isRecoveryLink reports whether s looks like the link from a password reset
// email (local: ?type=recovery&token=..., hosted: #access_token=...&type=recovery).
func isRecoveryLink(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "://") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Query().Get("type") == "recovery" {
		return true
	}
	frag, err := url.ParseQuery(u.Fragment)
	return err == nil && frag.Get("type") == "recovery"
}

// rewriteRecoveryLinkArgs lets `workdesk <link>` work like
// `workdesk --recover <link>`, so a desktop URL handler can pass the link as-is.
//
// Cobra treats the first non-flag token as a subcommand, so argv is rewritten
// before parsing. Persistent flags may come first, so the first positional
// token is located rather than assuming argv[1].
func rewriteRecoveryLinkArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--backend":   true,
		"--url":       true,
		"--anon-key":  true,
		"--db":        true,
		"--log-level": true,
		"--format":    true,
		"--recover":   true,
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isRecoveryLink(argv[i+1]) {
				out := make([]string, 0, len(argv))
				out = append(out, argv[:i]...)
				out = append(out, "--recover", argv[i+1])
				out = append(out, argv[i+2:]...)
				return out
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}

		if isRecoveryLink(a) {
			out := make([]string, 0, len(argv)+1)
			out = append(out, argv[:i]...)
			out = append(out, "--recover")
			out = append(out, argv[i:]...)
			return out
		}
		return argv
	}
	return argv
}

func main() {
	os.Args = rewriteRecoveryLinkArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
