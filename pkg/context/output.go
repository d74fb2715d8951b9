package context

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

// Output prints the right-aligned status lines sheldon shows while locking,
// e.g. "    Cloned https://github.com/owner/repo". All output goes to stderr
// so that `sheldon source` can pipe the script on stdout.
type Output struct {
	verbosity int
	noColor   bool
}

// NewOutput builds an Output. Colors are disabled when noColor is set or
// stderr is not a terminal.
func NewOutput(verbosity int, noColor bool) *Output {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		noColor = true
	}
	return &Output{verbosity: verbosity, noColor: noColor}
}

// Header prints a bold top-level progress line, e.g. "[LOADED] ~/.config/...".
func (o *Output) Header(prefix, msg string) {
	if o.verbosity < 0 {
		return
	}
	if o.noColor {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", strings.ToUpper(prefix), msg)
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", pterm.NewStyle(pterm.FgMagenta, pterm.Bold).Sprint(prefix), msg)
}

// Status prints an indented per-plugin progress line.
func (o *Output) Status(prefix, msg string) {
	if o.verbosity < 0 {
		return
	}
	if o.noColor {
		fmt.Fprintf(os.Stderr, "%12s %s\n", "["+strings.ToUpper(prefix)+"]", msg)
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprintf("%10s", prefix), msg)
}

// StatusVerbose prints a status line only at verbosity >= 1.
func (o *Output) StatusVerbose(prefix, msg string) {
	if o.verbosity >= 1 {
		o.Status(prefix, msg)
	}
}

// Error prints an error with its cause chain indented underneath.
func (o *Output) Error(err error) {
	prefix := "error:"
	if !o.noColor {
		prefix = pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("error:")
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", prefix, err)
}

// Warning prints a warning line.
func (o *Output) Warning(msg string) {
	prefix := "warning:"
	if !o.noColor {
		prefix = pterm.NewStyle(pterm.FgYellow, pterm.Bold).Sprint("warning:")
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", prefix, msg)
}
