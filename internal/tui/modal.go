package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/eventlens/internal/model"
)

// modal is a full-screen overlay closed with esc, enter or q.
type modal struct {
	title     string
	lines     []string
	pending   string // event ID whose description is still loading
	pendingAt int    // index of the placeholder line the result replaces
}

func (d *modal) View(width, height int) string {
	maxW := max(20, width-8)
	body := make([]string, 0, len(d.lines)+2)
	body = append(body, chartTitleStyle.Render(d.title), "")
	for _, line := range d.lines {
		body = append(body, truncate(line, maxW-6))
	}
	body = append(body, "", helpStyle.Render("esc: close"))

	box := modalStyle.Width(min(maxW, 100)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

// recordModal lists every field of rec in header order, then any extras.
func recordModal(rec model.LogRecord, header []string, title string) *modal {
	d := &modal{title: title}
	seen := make(map[string]bool, len(header))
	width := 0
	for _, name := range header {
		width = max(width, len(name))
	}
	for name := range rec {
		width = max(width, len(name))
	}

	add := func(name string) {
		seen[name] = true
		d.lines = append(d.lines, fmt.Sprintf("%-*s  %s", width, name, rec.Get(name)))
	}
	for _, name := range header {
		add(name)
	}
	var extra []string
	for name := range rec {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		add(name)
	}
	return d
}

func helpModal(k KeyMap) *modal {
	d := &modal{title: "Keys"}
	for _, b := range k.helpBindings() {
		h := b.Help()
		d.lines = append(d.lines, fmt.Sprintf("%-12s %s", h.Key, h.Desc))
	}
	return d
}
