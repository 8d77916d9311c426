// Package report renders the engine's snapshot, alerts and logs as styled
// terminal text for the command line.
package report

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary   = lipgloss.Color("#06B6D4") // Cyan
	colorHigh      = lipgloss.Color("#EF4444") // Red
	colorMedium    = lipgloss.Color("#F97316") // Orange
	colorOK        = lipgloss.Color("#22C55E") // Green
	colorMuted     = lipgloss.Color("#6B7280") // Gray
	colorHighlight = lipgloss.Color("#FFFFFF")
)

var (
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	styleLabel = lipgloss.NewStyle().Bold(true).Foreground(colorHighlight)
	styleMuted = lipgloss.NewStyle().Foreground(colorMuted)
	styleHead  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// usageStyle colors a percentage by how close it is to its limit.
func usageStyle(value, limit float64) lipgloss.Style {
	switch {
	case limit > 0 && value > limit:
		return lipgloss.NewStyle().Foreground(colorHigh)
	case limit > 0 && value > limit*0.8:
		return lipgloss.NewStyle().Foreground(colorMedium)
	default:
		return lipgloss.NewStyle().Foreground(colorOK)
	}
}
