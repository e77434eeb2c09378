package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/eventlens/internal/aggregate"
	"github.com/tinytelemetry/eventlens/internal/model"
)

// renderHoursChart draws events per hour of day as a 24-bar chart.
func renderHoursChart(hours [24]int64, width int) string {
	var peak int64
	peakHour := 0
	for h, c := range hours {
		if c > peak {
			peak, peakHour = c, h
		}
	}

	header := "Events per hour"
	if peak > 0 {
		stats := fmt.Sprintf("Peak: %02d:00 (%d)", peakHour, peak)
		if gap := width - 4 - len(header) - len(stats); gap > 0 {
			header += strings.Repeat(" ", gap) + stats
		}
	}
	title := chartTitleStyle.Render(header)
	if peak == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, helpStyle.Render("No timestamped records"))
	}

	chartHeight := 8
	if width < 80 {
		chartHeight = 6
	}
	// 24 bars of width 1 with a gap of 1.
	chartWidth := 48

	barStyle := lipgloss.NewStyle().Foreground(ColorBlue).Background(ColorBlue)
	bc := barchart.New(chartWidth, chartHeight,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)
	for h, c := range hours {
		bc.Push(barchart.BarData{
			Label: fmt.Sprintf("%02d", h),
			Values: []barchart.BarValue{
				{Name: "events", Value: float64(c), Style: barStyle},
			},
		})
	}
	bc.Draw()

	axis := helpStyle.Render("00" + strings.Repeat(" ", 10) + "06" + strings.Repeat(" ", 10) +
		"12" + strings.Repeat(" ", 10) + "18" + strings.Repeat(" ", 8) + "23")
	return lipgloss.JoinVertical(lipgloss.Left, title, bc.View(), axis)
}

// renderBarList draws a ranked list of frequency entries with proportional bars.
// styleFor may color each label; nil leaves labels plain.
func renderBarList(title string, entries []model.FrequencyEntry, width, maxItems int, styleFor func(string) lipgloss.Style) string {
	lines := []string{chartTitleStyle.Render(title)}
	if len(entries) == 0 {
		lines = append(lines, helpStyle.Render("No data available"))
		return strings.Join(lines, "\n")
	}
	if maxItems > 0 && len(entries) > maxItems {
		entries = entries[:maxItems]
	}

	topCount := entries[0].Count
	countWidth := max(3, len(fmt.Sprintf("%d", topCount)))
	barWidth := 15
	if width < 40 {
		barWidth = 8
	}
	labelWidth := max(8, width-2-(4+countWidth+2+2)-barWidth)

	for i, e := range entries {
		filled := 0
		if topCount > 0 {
			filled = int(float64(e.Count) / float64(topCount) * float64(barWidth))
		}
		if filled == 0 && e.Count > 0 {
			filled = 1
		}
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

		label := fmt.Sprintf("%-*s", labelWidth, truncate(e.Value, labelWidth))
		if styleFor != nil {
			label = styleFor(e.Value).Render(label)
		}
		lines = append(lines, fmt.Sprintf("%2d. %s %*d |%s|", i+1, label, countWidth, e.Count, bar))
	}
	return strings.Join(lines, "\n")
}

// renderCharts lays out the hour chart and the frequency lists.
func (m *Model) renderCharts(width int) string {
	s := m.view.Summary
	half := max(30, (width-4)/2)

	hours := sectionStyle.Width(width - 2).Render(renderHoursChart(m.view.Hours, width-4))

	topTitle := "Top " + s.TopField
	if s.TopField == "" {
		topTitle = "Top values"
	}
	top := sectionStyle.Width(half).Render(renderBarList(topTitle, s.Top, half-2, 0, nil))

	var right string
	if m.dataset.Schema.LevelField != "" {
		right = renderBarList("Levels", aggregate.BySeverity(s.Levels), half-2, 0, levelStyle)
	} else {
		right = renderClassList(s.Classes)
	}
	side := sectionStyle.Width(half).Render(right)

	return lipgloss.JoinVertical(lipgloss.Left, hours, lipgloss.JoinHorizontal(lipgloss.Top, top, side))
}

// renderClassList shows the scan classification counts.
func renderClassList(cc model.ClassCounts) string {
	return strings.Join([]string{
		chartTitleStyle.Render("Classes"),
		errorTextStyle.Render(fmt.Sprintf("detected %d", cc.Detected)),
		okTextStyle.Render(fmt.Sprintf("cleaned  %d", cc.Cleaned)),
		fmt.Sprintf("neutral  %d", cc.Neutral),
	}, "\n")
}
