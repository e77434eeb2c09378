package tui

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/eventlens/internal/aggregate"
)

// flatten keeps multi-line values on one table row.
var flatten = strings.NewReplacer("\r\n", " ", "\n", " ", "\t", " ")

const (
	maxColumnWidth = 32
	defaultRows    = 20
)

// View implements tea.Model.
func (m *Model) View() string {
	width := m.width
	if width == 0 {
		width = 100
	}
	if m.modal != nil {
		return m.modal.View(width, max(m.height, 20))
	}

	sections := []string{m.renderHeader(width), m.renderSummary()}
	if m.showCharts {
		sections = append(sections, m.renderCharts(width))
	}
	sections = append(sections, m.renderTable(width), m.renderFilterBar(), m.renderStatus(width))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader(width int) string {
	ds := m.dataset
	left := fmt.Sprintf(" eventlens  %s  [%s/%s]", filepath.Base(ds.Source), ds.Format, ds.Schema.Name)
	right := fmt.Sprintf("%d/%d records ", len(m.view.Records), len(ds.Records))
	if ds.Skipped > 0 {
		right = fmt.Sprintf("%d skipped  ", ds.Skipped) + right
	}
	gap := max(1, width-lipgloss.Width(left)-lipgloss.Width(right))
	return statusBarStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

// renderSummary is the one-line strip under the header.
func (m *Model) renderSummary() string {
	s := m.view.Summary
	parts := []string{fmt.Sprintf("records %d", s.Records), fmt.Sprintf("timed %d", s.Timed)}
	if m.dataset.Schema.ScannedField != "" {
		parts = append(parts,
			fmt.Sprintf("scanned %d", s.Totals.Scanned),
			errorTextStyle.Render(fmt.Sprintf("detected %d", s.Totals.Detected)),
			okTextStyle.Render(fmt.Sprintf("cleaned %d", s.Totals.Cleaned)),
		)
	}
	if len(s.Top) > 0 {
		parts = append(parts, fmt.Sprintf("top %s: %s (%d)", s.TopField, s.Top[0].Value, s.Top[0].Count))
	}
	return " " + strings.Join(parts, helpStyle.Render("  |  "))
}

// columns picks the table columns: schema fields first, then the rest of the
// header while they fit.
func (m *Model) columns() []string {
	header := m.dataset.Header
	var cols []string
	for _, f := range m.dataset.Schema.Fields {
		if slices.Contains(header, f) {
			cols = append(cols, f)
		}
	}
	for _, h := range header {
		if !slices.Contains(cols, h) {
			cols = append(cols, h)
		}
	}
	return cols
}

func (m *Model) renderTable(width int) string {
	records := m.view.Records
	if len(records) == 0 {
		return helpStyle.Render(" No records match the current filters")
	}

	rows := m.visibleRows()
	end := min(len(records), m.offset+rows)
	page := records[m.offset:end]

	var cols []string
	var widths []int
	used := 0
	for _, c := range m.columns() {
		w := lipgloss.Width(c)
		for _, rec := range page {
			w = max(w, lipgloss.Width(rec.Get(c)))
		}
		w = min(w, maxColumnWidth)
		if len(cols) > 0 && used+w+2 > width {
			break
		}
		cols = append(cols, c)
		widths = append(widths, w)
		used += w + 2
	}

	cell := func(s string, w int) string {
		s = truncate(flatten.Replace(s), w)
		return s + strings.Repeat(" ", max(0, w-lipgloss.Width(s)))
	}

	lines := make([]string, 0, len(page)+1)
	var head []string
	for i, c := range cols {
		head = append(head, headerCellStyle.Render(cell(c, widths[i])))
	}
	lines = append(lines, strings.Join(head, "  "))

	schema := m.dataset.Schema
	for i, rec := range page {
		var cells []string
		for j, c := range cols {
			cells = append(cells, cell(rec.Get(c), widths[j]))
		}
		line := strings.Join(cells, "  ")
		switch {
		case m.offset+i == m.cursor:
			line = selectedStyle.Render(line)
		case schema.LevelField != "":
			line = levelStyle(rec.Get(schema.LevelField)).Render(line)
		default:
			line = classStyle(aggregate.Classify(rec, schema)).Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderFilterBar() string {
	if m.filterActive {
		return m.filterInput.View()
	}
	var parts []string
	if m.levelIdx >= 0 && m.levelIdx < len(m.levels) {
		parts = append(parts, "level="+levelStyle(m.levels[m.levelIdx]).Render(m.levels[m.levelIdx]))
	}
	if m.eventID != "" {
		parts = append(parts, "id="+m.eventID)
	}
	if m.filterRegex != nil {
		parts = append(parts, "match=/"+m.filterRegex.String()+"/")
	}
	if len(parts) == 0 {
		return helpStyle.Render(" no filters  (/ regex, l level, i id, ? help)")
	}
	return " " + strings.Join(parts, "  ")
}

func (m *Model) renderStatus(width int) string {
	switch {
	case m.status == "":
		return helpStyle.Render(truncate(" ↑/↓ move  enter details  c charts  e export  q quit", width))
	case m.statusErr:
		return errorTextStyle.Render(truncate(" "+m.status, width))
	}
	return okTextStyle.Render(truncate(" "+m.status, width))
}

// visibleRows is the number of table rows that fit below the other sections.
func (m *Model) visibleRows() int {
	if m.height == 0 {
		return defaultRows
	}
	// header, summary, table header, filter bar, status
	chrome := 5
	if m.showCharts {
		chrome += lipgloss.Height(m.renderCharts(max(m.width, 40)))
	}
	return max(1, m.height-chrome)
}

// truncate shortens s to at most w display cells, marking the cut with "…".
func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= w {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > w {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
