// Package aggregate derives summaries, frequency tables and time series from
// an immutable record sequence.
package aggregate

import (
	"github.com/tinytelemetry/eventlens/internal/logparse"
	"github.com/tinytelemetry/eventlens/internal/model"
)

// Class is the highlighting category of a record.
type Class string

const (
	ClassDetected Class = "detected"
	ClassCleaned  Class = "cleaned"
	ClassNeutral  Class = "neutral"
)

// Classify returns exactly one class per record. Detected takes priority
// over cleaned; anything without a positive count in either is neutral.
func Classify(rec model.LogRecord, schema model.Schema) Class {
	if schema.DetectedField != "" && logparse.Positive(rec.Get(schema.DetectedField)) {
		return ClassDetected
	}
	if schema.CleanedField != "" && logparse.Positive(rec.Get(schema.CleanedField)) {
		return ClassCleaned
	}
	return ClassNeutral
}

// CountClasses tallies Classify over records.
func CountClasses(records []model.LogRecord, schema model.Schema) model.ClassCounts {
	var cc model.ClassCounts
	for _, rec := range records {
		switch Classify(rec, schema) {
		case ClassDetected:
			cc.Detected++
		case ClassCleaned:
			cc.Cleaned++
		default:
			cc.Neutral++
		}
	}
	return cc
}

// ScanTotals sums the scanned, detected and cleaned counts. Values that are
// not plain digit strings are left out.
func ScanTotals(records []model.LogRecord, schema model.Schema) model.Totals {
	var t model.Totals
	for _, rec := range records {
		t.Scanned += countOf(rec, schema.ScannedField)
		t.Detected += countOf(rec, schema.DetectedField)
		t.Cleaned += countOf(rec, schema.CleanedField)
	}
	return t
}

func countOf(rec model.LogRecord, field string) int64 {
	if field == "" {
		return 0
	}
	n, ok := logparse.ParseCount(rec.Get(field))
	if !ok {
		return 0
	}
	return n
}
