package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the funil logo and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	lines := []struct{ text, color string }{
		{"   __             _ _ ", "#34d399"},
		{"  / _|_   _ _ __ (_) |", "#10b981"},
		{" | |_| | | | '_ \\| | |", "#059669"},
		{" |  _| |_| | | | | | |", "#047857"},
		{" |_|  \\__,_|_| |_|_|_|", "#065f46"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  "+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}
