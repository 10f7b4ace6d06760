package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = color.Error
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
)

func printSuccess(format string, args ...any) {
	green.Fprintln(stderr, "✓ "+fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	red.Fprintln(stderr, "✗ "+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	yellow.Fprintln(stderr, "⚠ "+fmt.Sprintf(format, args...))
}

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(stderr, "  %s %s\n", bold.Sprint(label+":"), fmt.Sprintf(format, args...))
}

func printStep(format string, args ...any) {
	cyan.Fprintln(stderr, "→ "+fmt.Sprintf(format, args...))
}

// renderMarkdown formats model output for the terminal. Plain text is
// returned when color is disabled or rendering fails.
func renderMarkdown(text string) string {
	if color.NoColor {
		return strings.TrimSpace(text) + "\n"
	}
	out, err := glamour.Render(text, "dark")
	if err != nil {
		return strings.TrimSpace(text) + "\n"
	}
	return out
}

func printHeading(title string) {
	fmt.Fprintln(stdout, bold.Sprint(title))
}
