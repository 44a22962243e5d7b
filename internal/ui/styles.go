// Package ui renders search results and status output for the CLI,
// with colors when attached to a terminal and plain text for pipes.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette, a muted teal accent that reads well on light and dark
// terminals.
const (
	ColorAccent = "43"  // teal accent for titles and scores
	ColorGray   = "245" // secondary text
	ColorDim    = "238" // separators
	ColorRed    = "196" // errors
	ColorYellow = "220" // warnings
)

// Styles holds the render styles used across CLI output.
type Styles struct {
	Title   lipgloss.Style
	Score   lipgloss.Style
	Meta    lipgloss.Style
	Snippet lipgloss.Style
	Divider lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
}

// DefaultStyles returns the colored styles for terminal output.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		Meta:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Snippet: lipgloss.NewStyle(),
		Divider: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDim)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
	}
}

// NoColorStyles returns unstyled output for pipes and CI.
func NoColorStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle(),
		Score:   lipgloss.NewStyle(),
		Meta:    lipgloss.NewStyle(),
		Snippet: lipgloss.NewStyle(),
		Divider: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
	}
}

// StylesFor picks colored or plain styles based on whether f is a
// terminal. NO_COLOR always wins.
func StylesFor(f *os.File) Styles {
	if os.Getenv("NO_COLOR") != "" {
		return NoColorStyles()
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return DefaultStyles()
	}
	return NoColorStyles()
}
