package report

import "github.com/charmbracelet/lipgloss"

// Theme colors used throughout the rendered output
const (
	ColorAccent    = "86"  // Cyan/green - for titles, span kinds
	ColorHighlight = "205" // Magenta - for span names
	ColorDanger    = "196" // Red - for malformed records
	ColorMuted     = "241" // Gray - for tree branches, attributes
	ColorWarning   = "208" // Orange - for events
)

// Styles contains the styles used by Render
type Styles struct {
	Title      lipgloss.Style
	Kind       lipgloss.Style
	Name       lipgloss.Style
	Attribute  lipgloss.Style
	Event      lipgloss.Style
	TreeBranch lipgloss.Style
	Error      lipgloss.Style
	Muted      lipgloss.Style
}

// DefaultStyles returns the colored terminal styles
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorAccent)),
		Kind: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorAccent)),
		Name: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorHighlight)),
		Attribute: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorMuted)),
		Event: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorWarning)),
		TreeBranch: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorMuted)),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorDanger)),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorMuted)),
	}
}

// PlainStyles returns styles that add no escape sequences, for logs and
// error messages
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title:      plain,
		Kind:       plain,
		Name:       plain,
		Attribute:  plain,
		Event:      plain,
		TreeBranch: plain,
		Error:      plain,
		Muted:      plain,
	}
}

// Icons
const (
	IconEvent     = "•"
	IconMalformed = "✗"
)
