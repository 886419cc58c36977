package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const (
	defaultWidth = 100
	minWidth     = 40
)

// styles holds the lipgloss styles used for human-readable output.
type styles struct {
	Title     lipgloss.Style
	Score     lipgloss.Style
	Muted     lipgloss.Style
	Highlight lipgloss.Style
	Warning   lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
}

func newStyles() styles {
	return styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		Score:     lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("#CDD6F4")),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
		Success:   lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
	}
}

// outputWidth returns the terminal width of w, or defaultWidth when w is
// not a terminal.
func outputWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width < minWidth {
		return defaultWidth
	}
	return width
}

// truncate shortens s to at most width runes, ending in an ellipsis.
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 1 || len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
