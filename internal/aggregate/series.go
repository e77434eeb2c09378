package aggregate

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tinytelemetry/eventlens/internal/logparse"
	"github.com/tinytelemetry/eventlens/internal/model"
	"github.com/tinytelemetry/eventlens/internal/timestamp"
)

// Granularity is the width of a time bucket.
type Granularity string

const (
	Minute Granularity = "minute"
	Hour   Granularity = "hour"
	Day    Granularity = "day"
)

// ParseGranularity accepts minute, hour or day. Empty means hour.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return Hour, nil
	case Minute, Hour, Day:
		return g, nil
	}
	return "", fmt.Errorf("unknown granularity %q (want minute, hour or day)", s)
}

// Truncate cuts t down to the start of its bucket in loc.
func (g Granularity) Truncate(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	switch g {
	case Minute:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc)
	case Day:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
	}
}

// BucketCounts groups records by the truncated value of their time field
// and returns one point per bucket in ascending order. Records whose time
// cannot be parsed are left out.
func BucketCounts(records []model.LogRecord, field string, parser *timestamp.Parser, g Granularity) []model.TimeSeriesPoint {
	loc := parser.Location()
	counts := make(map[int64]int64)
	for _, rec := range records {
		ts, ok := parser.Parse(rec.Get(field))
		if !ok {
			continue
		}
		counts[g.Truncate(ts, loc).Unix()]++
	}

	points := make([]model.TimeSeriesPoint, 0, len(counts))
	for sec, n := range counts {
		points = append(points, model.TimeSeriesPoint{Time: time.Unix(sec, 0).In(loc), Value: n})
	}
	slices.SortFunc(points, func(a, b model.TimeSeriesPoint) int {
		return a.Time.Compare(b.Time)
	})
	return points
}

// HourOfDay counts records per hour of the day (0-23) regardless of date.
func HourOfDay(records []model.LogRecord, field string, parser *timestamp.Parser) [24]int64 {
	var hours [24]int64
	loc := parser.Location()
	for _, rec := range records {
		if ts, ok := parser.Parse(rec.Get(field)); ok {
			hours[ts.In(loc).Hour()]++
		}
	}
	return hours
}

// ValueSeries returns one point per record that has both a parseable time and
// a numeric value, sorted by time. Records with equal times keep input order.
func ValueSeries(records []model.LogRecord, timeField, valueField string, parser *timestamp.Parser) []model.TimeSeriesPoint {
	var points []model.TimeSeriesPoint
	for _, rec := range records {
		ts, ok := parser.Parse(rec.Get(timeField))
		if !ok {
			continue
		}
		v, ok := logparse.ParseCount(rec.Get(valueField))
		if !ok {
			continue
		}
		points = append(points, model.TimeSeriesPoint{Time: ts, Value: v})
	}
	slices.SortStableFunc(points, func(a, b model.TimeSeriesPoint) int {
		return a.Time.Compare(b.Time)
	})
	return points
}
