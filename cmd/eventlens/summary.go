package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/eventlens/internal/aggregate"
	"github.com/tinytelemetry/eventlens/internal/logparse"
	"github.com/tinytelemetry/eventlens/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	detectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	cleanStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	sectionStyle = lipgloss.NewStyle().Bold(true)
)

var levelColors = map[string]lipgloss.Color{
	"TRACE": lipgloss.Color("240"),
	"DEBUG": lipgloss.Color("244"),
	"INFO":  lipgloss.Color("39"),
	"WARN":  lipgloss.Color("208"),
	"ERROR": lipgloss.Color("196"),
	"FATAL": lipgloss.Color("201"),
}

// renderSummary formats a view as styled plain text for the summary command.
func renderSummary(ds *model.Dataset, view aggregate.View) string {
	s := view.Summary
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render(filepath.Base(ds.Source)),
		labelStyle.Render(fmt.Sprintf("%s / %s", ds.Format, ds.Schema.Name)))
	row := func(label string, value any) {
		fmt.Fprintf(&b, "  %s %v\n", labelStyle.Render(fmt.Sprintf("%-14s", label)), value)
	}

	row("Records", fmt.Sprintf("%d of %d", s.Records, len(ds.Records)))
	row("Timestamped", s.Timed)
	if ds.Skipped > 0 {
		row("Skipped rows", ds.Skipped)
	}

	if ds.Schema.ScannedField != "" {
		b.WriteString("\n" + sectionStyle.Render("Totals") + "\n")
		row("Scanned", s.Totals.Scanned)
		row("Detected", detectStyle.Render(fmt.Sprint(s.Totals.Detected)))
		row("Cleaned", cleanStyle.Render(fmt.Sprint(s.Totals.Cleaned)))

		b.WriteString("\n" + sectionStyle.Render("Classification") + "\n")
		row("Detected", s.Classes.Detected)
		row("Cleaned", s.Classes.Cleaned)
		row("Neutral", s.Classes.Neutral)
	}

	b.WriteString("\n" + sectionStyle.Render("Top "+s.TopField) + "\n")
	writeEntries(&b, s.Top, nil)

	if ds.Schema.LevelField != "" {
		b.WriteString("\n" + sectionStyle.Render("Levels") + "\n")
		writeEntries(&b, aggregate.BySeverity(s.Levels), func(v string) lipgloss.Style {
			return lipgloss.NewStyle().Foreground(levelColors[logparse.NormalizeLevel(v)])
		})
	}

	if peak, hour := peakHour(view.Hours); peak > 0 {
		b.WriteString("\n")
		row("Busiest hour", fmt.Sprintf("%02d:00 (%d events)", hour, peak))
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeEntries(b *strings.Builder, entries []model.FrequencyEntry, styleFor func(string) lipgloss.Style) {
	if len(entries) == 0 {
		b.WriteString("  " + labelStyle.Render("none") + "\n")
		return
	}
	width := 0
	for _, e := range entries {
		width = max(width, len(e.Value))
	}
	for i, e := range entries {
		label := fmt.Sprintf("%-*s", width, e.Value)
		if styleFor != nil {
			label = styleFor(e.Value).Render(label)
		}
		fmt.Fprintf(b, "  %2d. %s  %d\n", i+1, label, e.Count)
	}
}

func peakHour(hours [24]int64) (int64, int) {
	var peak int64
	at := 0
	for h, c := range hours {
		if c > peak {
			peak, at = c, h
		}
	}
	return peak, at
}
