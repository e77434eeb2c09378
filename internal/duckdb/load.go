package duckdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/tinytelemetry/eventlens/internal/aggregate"
	"github.com/tinytelemetry/eventlens/internal/logparse"
	"github.com/tinytelemetry/eventlens/internal/model"
	"github.com/tinytelemetry/eventlens/internal/timestamp"
)

// LoadDataset inserts every record of ds in a single transaction, deriving
// typed columns from the schema roles. Timestamps are stored as wall-clock
// values in the parser's location.
func (s *Store) LoadDataset(ds *model.Dataset, parser *timestamp.Parser) error {
	if parser == nil {
		parser = timestamp.NewParser()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.QueryTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadTx(ctx, ds, parser); err != nil {
		return fmt.Errorf("load dataset %s: %w", ds.ID, err)
	}
	s.loc = parser.Location()
	s.nextSeq += int64(len(ds.Records))
	log.Printf("duckdb: loaded %d records for dataset %s", len(ds.Records), ds.ID)
	return nil
}

func (s *Store) loadTx(ctx context.Context, ds *model.Dataset, parser *timestamp.Parser) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO datasets (id, source, format, schema_name, record_count, skipped, loaded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ds.ID, ds.Source, string(ds.Format), ds.Schema.Name, len(ds.Records), ds.Skipped, ds.LoadedAt,
	); err != nil {
		return fmt.Errorf("dataset insert: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (seq, dataset_id, ts, raw_time, level, raw_level, category, scanned, detected, cleaned, class, fields) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	schema := ds.Schema
	loc := parser.Location()
	for i, rec := range ds.Records {
		fields, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("record %d fields: %w", i, err)
		}

		rawTime := rec.Get(schema.TimeField)
		var ts any
		if t, ok := parser.Parse(rawTime); ok {
			ts = wallClock(t, loc)
		}

		var level, rawLevel any
		if schema.LevelField != "" {
			if raw := rec.Get(schema.LevelField); raw != "" {
				rawLevel = raw
				level = logparse.NormalizeLevel(raw)
			}
		}

		var category any
		if v := rec.Get(schema.CategoryField); v != "" && v != schema.NoValue {
			category = v
		}

		if _, err := stmt.ExecContext(ctx,
			s.nextSeq+int64(i), ds.ID, ts, rawTime, level, rawLevel, category,
			nullableCount(rec, schema.ScannedField),
			nullableCount(rec, schema.DetectedField),
			nullableCount(rec, schema.CleanedField),
			string(aggregate.Classify(rec, schema)),
			string(fields),
		); err != nil {
			return fmt.Errorf("record insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func nullableCount(rec model.LogRecord, field string) any {
	if field == "" {
		return nil
	}
	if n, ok := logparse.ParseCount(rec.Get(field)); ok {
		return n
	}
	return nil
}

// wallClock re-expresses t's local reading in loc as a zone-less UTC value,
// which is how DuckDB TIMESTAMP columns round-trip.
func wallClock(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func fromWallClock(t time.Time, loc *time.Location) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
