package aggregate

import (
	"slices"

	"github.com/tinytelemetry/eventlens/internal/logparse"
	"github.com/tinytelemetry/eventlens/internal/model"
)

// TopN counts the non-empty values of field, skipping any listed in exclude,
// and returns the n most frequent by count descending. Equal counts keep the
// order in which the values were first seen. n <= 0 returns every entry.
func TopN(records []model.LogRecord, field string, n int, exclude ...string) []model.FrequencyEntry {
	if field == "" {
		return nil
	}

	index := make(map[string]int)
	var entries []model.FrequencyEntry
	for _, rec := range records {
		v := rec.Get(field)
		if v == "" || slices.Contains(exclude, v) {
			continue
		}
		i, ok := index[v]
		if !ok {
			i = len(entries)
			index[v] = i
			entries = append(entries, model.FrequencyEntry{Value: v})
		}
		entries[i].Count++
	}

	// entries is in first-seen order, so a stable sort settles ties.
	slices.SortStableFunc(entries, func(a, b model.FrequencyEntry) int {
		switch {
		case a.Count > b.Count:
			return -1
		case a.Count < b.Count:
			return 1
		}
		return 0
	})

	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Distinct returns the non-empty values of field in first-seen order.
func Distinct(records []model.LogRecord, field string) []string {
	if field == "" {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, rec := range records {
		v := rec.Get(field)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// BySeverity returns a copy of level entries ordered most severe first. Raw
// values that normalize to the same level keep their relative order.
func BySeverity(entries []model.FrequencyEntry) []model.FrequencyEntry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b model.FrequencyEntry) int {
		return logparse.LevelRank(logparse.NormalizeLevel(b.Value)) -
			logparse.LevelRank(logparse.NormalizeLevel(a.Value))
	})
	return out
}
