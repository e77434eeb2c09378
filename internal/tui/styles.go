package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/eventlens/internal/aggregate"
	"github.com/tinytelemetry/eventlens/internal/logparse"
)

var (
	ColorNavy   = lipgloss.Color("#1B2A4A")
	ColorWhite  = lipgloss.Color("#F5F5F5")
	ColorGray   = lipgloss.Color("8")
	ColorBlue   = lipgloss.Color("39")
	ColorOrange = lipgloss.Color("208")
	ColorRed    = lipgloss.Color("196")
	ColorGreen  = lipgloss.Color("42")
	ColorPurple = lipgloss.Color("201")
)

var (
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray).
			Padding(0, 1)

	activeSectionStyle = sectionStyle.BorderForeground(ColorBlue)

	chartTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorWhite)
	helpStyle       = lipgloss.NewStyle().Foreground(ColorGray)
	headerCellStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorBlue)
	selectedStyle   = lipgloss.NewStyle().Reverse(true)
	errorTextStyle  = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	okTextStyle     = lipgloss.NewStyle().Foreground(ColorGreen)

	statusBarStyle = lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(ColorWhite)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorBlue).
			Padding(1, 2)
)

var severityColors = map[string]lipgloss.Color{
	"TRACE": lipgloss.Color("240"),
	"DEBUG": lipgloss.Color("244"),
	"INFO":  ColorBlue,
	"WARN":  ColorOrange,
	"ERROR": ColorRed,
	"FATAL": ColorPurple,
}

// levelStyle colors a raw level display name by its normalized severity.
func levelStyle(raw string) lipgloss.Style {
	if raw == "" {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(severityColors[logparse.NormalizeLevel(raw)])
}

// classStyle colors a scan row: detected red, cleaned green.
func classStyle(c aggregate.Class) lipgloss.Style {
	switch c {
	case aggregate.ClassDetected:
		return lipgloss.NewStyle().Foreground(ColorRed)
	case aggregate.ClassCleaned:
		return lipgloss.NewStyle().Foreground(ColorGreen)
	}
	return lipgloss.NewStyle()
}
