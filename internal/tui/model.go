// Package tui is the terminal dashboard for one loaded dataset.
package tui

import (
	"regexp"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tinytelemetry/eventlens/internal/aggregate"
	"github.com/tinytelemetry/eventlens/internal/model"
	"github.com/tinytelemetry/eventlens/internal/timestamp"
)

// Options configures the dashboard.
type Options struct {
	TopN      int
	Parser    *timestamp.Parser
	Describer model.Describer
	ExportDir string
}

// FilterState holds the regex filter input and the level selection.
type FilterState struct {
	filterInput  textinput.Model
	filterActive bool
	filterRegex  *regexp.Regexp

	levels   []string // distinct level values in the dataset
	levelIdx int      // index into levels; -1 shows every level

	eventID string // "" shows every event ID
}

// TableState holds the cursor and scroll position of the record table.
type TableState struct {
	cursor int
	offset int
}

// Model is the Bubble Tea model of the dashboard. The dataset is never
// mutated; view is rebuilt from it on every filter change.
type Model struct {
	FilterState
	TableState

	dataset   *model.Dataset
	opts      aggregate.Options
	describer model.Describer
	exportDir string
	keys      KeyMap

	view       aggregate.View
	showCharts bool
	modal      *modal

	status    string
	statusErr bool

	width  int
	height int
}

// describeResultMsg carries the outcome of an async description lookup.
type describeResultMsg struct {
	id   string
	text string
}

// exportDoneMsg reports a finished CSV export.
type exportDoneMsg struct {
	path  string
	count int
	err   error
}

// New builds the dashboard for ds.
func New(ds *model.Dataset, opts Options) *Model {
	ti := textinput.New()
	ti.Placeholder = "regex over all fields"
	ti.Prompt = "/ "
	ti.CharLimit = 256

	m := &Model{
		FilterState: FilterState{
			filterInput: ti,
			levels:      aggregate.Distinct(ds.Records, ds.Schema.LevelField),
			levelIdx:    -1,
		},
		dataset:   ds,
		opts:      aggregate.Options{TopN: opts.TopN, Parser: opts.Parser},
		describer: opts.Describer,
		exportDir: opts.ExportDir,
		keys:      DefaultKeyMap(),
	}
	m.rebuild()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// currentFilter assembles the filter from the level, event ID and regex.
func (m *Model) currentFilter() aggregate.Filter {
	f := aggregate.Filter{Pattern: m.filterRegex}
	if m.levelIdx >= 0 && m.levelIdx < len(m.levels) {
		f.Levels = []string{m.levels[m.levelIdx]}
	}
	if m.eventID != "" {
		f.IDs = []string{m.eventID}
	}
	return f
}

// rebuild recomputes the view for the current filter and clamps the cursor.
func (m *Model) rebuild() {
	m.view = aggregate.Build(m.dataset, m.currentFilter(), m.opts)
	m.clampCursor()
}

func (m *Model) clampCursor() {
	n := len(m.view.Records)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if rows > 0 && m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// selected returns the record under the cursor.
func (m *Model) selected() (model.LogRecord, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Records) {
		return nil, false
	}
	return m.view.Records[m.cursor], true
}

// Run starts the dashboard and blocks until the user quits.
func Run(ds *model.Dataset, opts Options) error {
	p := tea.NewProgram(New(ds, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
