package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sells-group/roadsafety-cli/internal/report"
)

var (
	ColorRed    = lipgloss.Color("#D75F5F")
	ColorYellow = lipgloss.Color("#D7AF00")

	HeaderStyle = report.TitleStyle

	StatusStyle = report.MutedStyle

	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(report.ColorAccent)

	ActiveFieldStyle = lipgloss.NewStyle().
				Underline(true).
				Foreground(report.ColorAccent)

	EditStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	HelpStyle = report.MutedStyle
)
