// Package ttyguard stops terminal capability probing for invocations that
// only print to stdout. Import it for its side effect before any package
// that pulls in lipgloss:
//
//	import _ "github.com/vanderheijden86/pick/pkg/ttyguard"
package ttyguard

import (
	"os"
	"strings"
)

// init runs before Bubble Tea acquires the terminal.
//
// Lipgloss asks the terminal for its background color when adaptive colors
// are first resolved. The reply and the query are OSC/DSR sequences that end
// up in captured output, which breaks scripts reading --history --json.
// Termenv skips the query when CI is set.
func init() {
	if os.Getenv("CI") != "" {
		return
	}
	if !shouldSuppress(os.Args[1:], os.Getenv("PICK_TEST_MODE") != "") {
		return
	}
	_ = os.Setenv("CI", "1")
}

// shouldSuppress reports whether args describe a run that never opens the
// picker.
func shouldSuppress(args []string, testMode bool) bool {
	if testMode {
		return true
	}
	for _, arg := range args {
		if arg == "--" {
			break
		}
		switch strings.TrimLeft(arg, "-") {
		case "version", "help", "h", "history":
			if strings.HasPrefix(arg, "-") {
				return true
			}
		}
	}
	return false
}
