package aggregate

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/tinytelemetry/eventlens/internal/model"
)

// Filter narrows a record sequence. An empty level or ID set places no
// constraint; Pattern, when set, must match at least one field value.
type Filter struct {
	Levels  []string
	IDs     []string
	Pattern *regexp.Regexp
}

// NewFilter builds a filter, compiling pattern when non-empty.
func NewFilter(levels, ids []string, pattern string) (Filter, error) {
	f := Filter{Levels: cleanSet(levels), IDs: cleanSet(ids)}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid match pattern: %w", err)
		}
		f.Pattern = re
	}
	return f, nil
}

func cleanSet(in []string) []string {
	var out []string
	for _, v := range in {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// IsZero reports whether the filter lets every record through.
func (f Filter) IsZero() bool {
	return len(f.Levels) == 0 && len(f.IDs) == 0 && f.Pattern == nil
}

// Match reports whether rec passes the filter. Levels compare case-insensitively
// on the raw field value; IDs compare exactly.
func (f Filter) Match(rec model.LogRecord, schema model.Schema) bool {
	if len(f.Levels) > 0 {
		level := rec.Get(schema.LevelField)
		if !slices.ContainsFunc(f.Levels, func(l string) bool { return strings.EqualFold(l, level) }) {
			return false
		}
	}
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, rec.Get(schema.IDField)) {
		return false
	}
	if f.Pattern != nil {
		for _, v := range rec {
			if f.Pattern.MatchString(v) {
				return true
			}
		}
		return false
	}
	return true
}

// Apply returns the records passing the filter, in input order. The result
// shares record values with the input; neither is modified.
func (f Filter) Apply(records []model.LogRecord, schema model.Schema) []model.LogRecord {
	if f.IsZero() {
		return records
	}
	out := make([]model.LogRecord, 0, len(records))
	for _, rec := range records {
		if f.Match(rec, schema) {
			out = append(out, rec)
		}
	}
	return out
}
