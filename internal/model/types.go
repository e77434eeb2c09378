package model

import "time"

// LogRecord is one parsed entry from a scan or event-log export, keyed by
// field name. Records are never mutated after extraction.
type LogRecord map[string]string

// Get returns the value of name, or "" when the record has no such field.
func (r LogRecord) Get(name string) string {
	if r == nil {
		return ""
	}
	return r[name]
}

// Has reports whether the record carries name at all.
func (r LogRecord) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// Format identifies the on-disk encoding of a source document.
type Format string

const (
	FormatXML  Format = "xml"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Dataset is the full, immutable result of loading one export file.
type Dataset struct {
	ID       string
	Source   string
	Format   Format
	Schema   Schema
	Header   []string
	Records  []LogRecord
	Skipped  int // malformed rows dropped during extraction
	LoadedAt time.Time
}

// TimeSeriesPoint is one timestamped value.
type TimeSeriesPoint struct {
	Time  time.Time `json:"time"`
	Value int64     `json:"value"`
}

// FrequencyEntry is one categorical value and how often it occurred.
type FrequencyEntry struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// Totals holds the running sums of the numeric scan fields.
type Totals struct {
	Scanned  int64 `json:"scanned"`
	Detected int64 `json:"detected"`
	Cleaned  int64 `json:"cleaned"`
}

// ClassCounts holds how many records fell in each classification.
type ClassCounts struct {
	Detected int `json:"detected"`
	Cleaned  int `json:"cleaned"`
	Neutral  int `json:"neutral"`
}

// Summary is a derived snapshot of a record sequence.
type Summary struct {
	Records  int              `json:"records"`
	Timed    int              `json:"timed"` // records with a parseable timestamp
	Totals   Totals           `json:"totals"`
	Classes  ClassCounts      `json:"classes"`
	TopField string           `json:"top_field,omitempty"`
	Top      []FrequencyEntry `json:"top"`
	Levels   []FrequencyEntry `json:"levels,omitempty"`
}
