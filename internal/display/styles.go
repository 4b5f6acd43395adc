package display

import "github.com/charmbracelet/lipgloss"

// Colors used across the terminal output.
var (
	colorHeading = lipgloss.Color("39")  // Blue
	colorMuted   = lipgloss.Color("242") // Gray
	colorGood    = lipgloss.Color("78")  // Green
	colorWarn    = lipgloss.Color("214") // Orange
	colorBad     = lipgloss.Color("196") // Red
	colorAccent  = lipgloss.Color("212") // Pink
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorHeading).
			MarginTop(1)

	topicStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	goodStyle = lipgloss.NewStyle().
			Foreground(colorGood)

	warnStyle = lipgloss.NewStyle().
			Foreground(colorWarn)

	badStyle = lipgloss.NewStyle().
			Foreground(colorBad).
			Bold(true)

	okMark   = goodStyle.Render("✓")
	failMark = badStyle.Render("✗")

	topicCol  = lipgloss.NewStyle().Width(22)
	windowCol = lipgloss.NewStyle().Width(14).Foreground(colorMuted)
	numCol    = lipgloss.NewStyle().Width(9).Align(lipgloss.Right)
	labelCol  = lipgloss.NewStyle().Width(26).Foreground(colorMuted)
)

// scoreStyle picks a color band for a 0-100 score where high is bad.
func scoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 70:
		return badStyle
	case score >= 35:
		return warnStyle
	default:
		return goodStyle
	}
}

// confidenceBadge renders a colored confidence marker.
func confidenceBadge(c string) string {
	switch c {
	case "high":
		return goodStyle.Render("● high")
	case "medium":
		return warnStyle.Render("◐ medium")
	default:
		return dimStyle.Render("○ low")
	}
}
