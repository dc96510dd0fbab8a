package theme

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha.
var (
	Base     = lipgloss.Color("#1e1e2e")
	Mantle   = lipgloss.Color("#181825")
	Surface1 = lipgloss.Color("#45475a")
	Text     = lipgloss.Color("#cdd6f4")
	Subtext0 = lipgloss.Color("#a6adc8")
	Lavender = lipgloss.Color("#b4befe")
	Sapphire = lipgloss.Color("#74c7ec")
	Green    = lipgloss.Color("#a6e3a1")
	Yellow   = lipgloss.Color("#f9e2af")
	Peach    = lipgloss.Color("#fab387")
	Red      = lipgloss.Color("#f38ba8")

	App = lipgloss.NewStyle().
		Background(Base).
		Foreground(Text).
		Padding(1, 2)

	Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Surface1).
		Background(Mantle).
		Foreground(Text).
		Padding(0, 1)

	PaneAlert = Pane.BorderForeground(Red)

	Title = lipgloss.NewStyle().Foreground(Sapphire).Bold(true)
	Label = lipgloss.NewStyle().Foreground(Lavender)
	Muted = lipgloss.NewStyle().Foreground(Subtext0)
	Hot   = lipgloss.NewStyle().Foreground(Peach).Bold(true)
)

var statusColors = map[string]lipgloss.Color{
	"created":         Subtext0,
	"active":          Green,
	"paused":          Yellow,
	"completed":       Sapphire,
	"auto_completed":  Sapphire,
	"cancelled":       Peach,
	"security_paused": Red,
}

// Status colors a session status badge.
func Status(status string) lipgloss.Style {
	color, ok := statusColors[status]
	if !ok {
		color = Text
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true)
}
