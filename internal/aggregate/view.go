package aggregate

import (
	"github.com/tinytelemetry/eventlens/internal/model"
	"github.com/tinytelemetry/eventlens/internal/timestamp"
)

// Options tunes summary computation.
type Options struct {
	TopN        int // 0 = schema default
	Granularity Granularity
	Parser      *timestamp.Parser
	// ValueField switches Series from bucketed counts to the per-record
	// numeric values of that field.
	ValueField string
}

func (o Options) withDefaults(schema model.Schema) Options {
	if o.TopN == 0 {
		o.TopN = model.DefaultTopN
		if schema.Name == model.ScanSchema.Name {
			o.TopN = model.DefaultScanTopN
		}
	}
	if o.Granularity == "" {
		o.Granularity = Hour
	}
	if o.Parser == nil {
		o.Parser = timestamp.NewParser()
	}
	return o
}

// View is everything a presenter needs for one filter state. It is rebuilt
// from the dataset whenever the filter changes.
type View struct {
	Records []model.LogRecord       `json:"-"`
	Summary model.Summary           `json:"summary"`
	Series  []model.TimeSeriesPoint `json:"series"`
	Hours   [24]int64               `json:"hours"`
}

// Build filters the dataset and derives a fresh view from the result.
func Build(ds *model.Dataset, f Filter, opts Options) View {
	opts = opts.withDefaults(ds.Schema)
	records := f.Apply(ds.Records, ds.Schema)
	timeField := ds.Schema.TimeField
	v := View{
		Records: records,
		Summary: Summarize(records, ds.Schema, opts),
		Hours:   HourOfDay(records, timeField, opts.Parser),
	}
	if opts.ValueField != "" {
		v.Series = ValueSeries(records, timeField, opts.ValueField, opts.Parser)
	} else {
		v.Series = BucketCounts(records, timeField, opts.Parser, opts.Granularity)
	}
	return v
}

// Summarize computes the summary of a record sequence.
func Summarize(records []model.LogRecord, schema model.Schema, opts Options) model.Summary {
	opts = opts.withDefaults(schema)

	timed := 0
	for _, rec := range records {
		if _, ok := opts.Parser.Parse(rec.Get(schema.TimeField)); ok {
			timed++
		}
	}

	var exclude []string
	if schema.NoValue != "" {
		exclude = append(exclude, schema.NoValue)
	}

	s := model.Summary{
		Records:  len(records),
		Timed:    timed,
		Totals:   ScanTotals(records, schema),
		Classes:  CountClasses(records, schema),
		TopField: schema.CategoryField,
		Top:      TopN(records, schema.CategoryField, opts.TopN, exclude...),
	}
	if schema.LevelField != "" {
		s.Levels = TopN(records, schema.LevelField, 0)
	}
	return s
}
