package model

import "context"

// DescriptionSource supplies human-readable text for event IDs.
type DescriptionSource interface {
	Descriptions(ctx context.Context) (map[string]string, error)
}

// Describer resolves one event ID to a description. It never fails; unknown
// IDs resolve to NoExplanation.
type Describer interface {
	Describe(ctx context.Context, id string) string
}

// SchemaQuerier provides schema introspection and arbitrary read-only queries.
type SchemaQuerier interface {
	ExecuteQuery(query string) ([]map[string]interface{}, error)
	GetSchemaDescription() string
	TableRowCounts() (map[string]int64, error)
}

// RecordQuerier provides aggregate queries over the loaded records.
type RecordQuerier interface {
	TotalRecordCount() (int64, error)
	CategoryCounts(limit int) ([]FrequencyEntry, error)
	HourlyCounts() ([]TimeSeriesPoint, error)
}

// QueryStore is the unified read contract for SQL-backed surfaces.
type QueryStore interface {
	SchemaQuerier
	RecordQuerier
}
