package tui

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"regexp"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tinytelemetry/eventlens/internal/export"
	"github.com/tinytelemetry/eventlens/internal/model"
)

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filterInput.Width = max(10, msg.Width-10)
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case describeResultMsg:
		if m.modal != nil && m.modal.pending == msg.id {
			m.modal.pending = ""
			m.modal.lines = append(m.modal.lines[:m.modal.pendingAt], "Description:", msg.text)
		}
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("export failed: %v", msg.err))
			return m, nil
		}
		m.setStatus(fmt.Sprintf("exported %d records to %s", msg.count, msg.path))
		return m, nil
	}

	if m.filterActive {
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}

	if m.modal != nil {
		if key.Matches(msg, m.keys.Escape, m.keys.Enter, m.keys.Quit) {
			m.modal = nil
		}
		return m, nil
	}

	if m.filterActive {
		return m.handleFilterInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.modal = helpModal(m.keys)
	case key.Matches(msg, m.keys.Escape):
		m.status, m.statusErr = "", false
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-max(1, m.visibleRows()))
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(max(1, m.visibleRows()))
	case key.Matches(msg, m.keys.Home):
		m.moveCursor(-len(m.view.Records))
	case key.Matches(msg, m.keys.End):
		m.moveCursor(len(m.view.Records))
	case key.Matches(msg, m.keys.Enter):
		return m, m.openDetails()
	case key.Matches(msg, m.keys.Filter):
		m.filterActive = true
		return m, m.filterInput.Focus()
	case key.Matches(msg, m.keys.CycleLevel):
		m.cycleLevel()
	case key.Matches(msg, m.keys.FilterID):
		m.toggleEventID()
	case key.Matches(msg, m.keys.ClearFilters):
		m.filterRegex = nil
		m.filterInput.SetValue("")
		m.levelIdx = -1
		m.eventID = ""
		m.rebuild()
	case key.Matches(msg, m.keys.ToggleCharts):
		m.showCharts = !m.showCharts
	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd()
	}
	return m, nil
}

func (m *Model) handleFilterInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		pattern := m.filterInput.Value()
		if pattern == "" {
			m.filterRegex = nil
		} else {
			re, err := regexp.Compile(pattern)
			if err != nil {
				m.setError(fmt.Sprintf("invalid regex: %v", err))
				return m, nil
			}
			m.filterRegex = re
		}
		m.filterActive = false
		m.filterInput.Blur()
		m.rebuild()
		m.status, m.statusErr = "", false
		return m, nil

	case tea.KeyEsc:
		prev := ""
		if m.filterRegex != nil {
			prev = m.filterRegex.String()
		}
		m.filterInput.SetValue(prev)
		m.filterActive = false
		m.filterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

// cycleLevel steps through all levels, then back to no level filter.
func (m *Model) cycleLevel() {
	if len(m.levels) == 0 {
		m.setStatus("this dataset has no level field")
		return
	}
	m.levelIdx++
	if m.levelIdx >= len(m.levels) {
		m.levelIdx = -1
	}
	m.rebuild()
}

// toggleEventID narrows the view to the selected record's event ID, or lifts
// the ID filter when one is already set.
func (m *Model) toggleEventID() {
	if m.eventID != "" {
		m.eventID = ""
		m.rebuild()
		return
	}
	field := m.dataset.Schema.IDField
	if field == "" {
		m.setStatus("this dataset has no event id field")
		return
	}
	rec, ok := m.selected()
	if !ok {
		return
	}
	id := rec.Get(field)
	if id == "" {
		m.setStatus("selected record has no event id")
		return
	}
	m.eventID = id
	m.cursor = 0
	m.rebuild()
}

// openDetails shows the selected record and, for records with an event ID,
// starts an async description lookup.
func (m *Model) openDetails() tea.Cmd {
	rec, ok := m.selected()
	if !ok {
		return nil
	}
	schema := m.dataset.Schema
	m.modal = recordModal(rec, m.dataset.Header, fmt.Sprintf("Record %d of %d", m.cursor+1, len(m.view.Records)))

	id := rec.Get(schema.IDField)
	if schema.IDField == "" || id == "" {
		return nil
	}
	m.modal.pending = id
	m.modal.lines = append(m.modal.lines, "")
	m.modal.pendingAt = len(m.modal.lines)
	m.modal.lines = append(m.modal.lines, helpStyle.Render("looking up description..."))
	return describeCmd(m.describer, id)
}

func describeCmd(d model.Describer, id string) tea.Cmd {
	return func() tea.Msg {
		text := model.NoExplanation
		if d != nil {
			text = d.Describe(context.Background(), id)
		}
		return describeResultMsg{id: id, text: text}
	}
}

// exportCmd writes the filtered records to the export directory.
func (m *Model) exportCmd() tea.Cmd {
	path := filepath.Join(m.exportDir, model.DefaultExportName)
	header := m.dataset.Header
	records := m.view.Records
	return func() tea.Msg {
		err := export.WriteFile(path, header, records)
		if err == nil {
			log.Printf("tui: exported %d records to %s", len(records), path)
		}
		return exportDoneMsg{path: path, count: len(records), err: err}
	}
}

func (m *Model) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *Model) setError(s string) {
	m.status, m.statusErr = s, true
}
