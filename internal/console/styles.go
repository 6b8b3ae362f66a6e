package console

import "github.com/charmbracelet/lipgloss"

var (
	colorCyan    = lipgloss.Color("#00FFFF")
	colorYellow  = lipgloss.Color("#FFFF00")
	colorGreen   = lipgloss.Color("#00FF00")
	colorRed     = lipgloss.Color("#FF0000")
	colorGray    = lipgloss.Color("#666666")
	colorMagenta = lipgloss.Color("#FF00FF")
)

// Styles groups the lipgloss styles used by the console.
type Styles struct {
	Status     lipgloss.Style
	Content    lipgloss.Style
	System     lipgloss.Style
	Feedback   lipgloss.Style
	Transcript lipgloss.Style
	Dim        lipgloss.Style
	Error      lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Status: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan),
		Content: lipgloss.NewStyle().
			Foreground(colorGreen).
			PaddingLeft(2).
			Width(78),
		System: lipgloss.NewStyle().
			Foreground(colorYellow),
		Feedback: lipgloss.NewStyle().
			Foreground(colorMagenta).
			Italic(true),
		Transcript: lipgloss.NewStyle().
			Foreground(colorGray),
		Dim: lipgloss.NewStyle().
			Foreground(colorGray),
		Error: lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true),
	}
}

// PlainStyles renders text unstyled; tests use it.
func PlainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Status: s, Content: s, System: s, Feedback: s, Transcript: s, Dim: s, Error: s}
}
