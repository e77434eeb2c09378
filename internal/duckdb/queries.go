package duckdb

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/tinytelemetry/eventlens/internal/model"
)

// dangerousKeywordPattern matches write or side-effecting SQL keywords at
// word boundaries, so "RESET" does not match "SET". It runs after comment
// stripping and semicolon rejection.
var dangerousKeywordPattern = regexp.MustCompile(
	`(?i)\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|COPY|ATTACH|DETACH|LOAD|EXPORT|IMPORT|INSTALL|CALL|EXECUTE|PRAGMA|SET)\b`,
)

// blockCommentPattern matches C-style block comments (/* ... */).
var blockCommentPattern = regexp.MustCompile(`/\*[\s\S]*?\*/`)

// ErrQueryRejected reports a query refused by the read-only guard.
var ErrQueryRejected = errors.New("query rejected")

// maxQueryRows caps the rows ExecuteQuery returns.
const maxQueryRows = 1000

// stripSQLComments removes -- line comments and /* */ block comments from a query.
func stripSQLComments(query string) string {
	cleaned := blockCommentPattern.ReplaceAllString(query, " ")
	var result strings.Builder
	for _, line := range strings.Split(cleaned, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		result.WriteString(line)
		result.WriteByte('\n')
	}
	return result.String()
}

// queryCtx returns a context with the store's configured query timeout.
func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

// TotalRecordCount returns the number of loaded records.
func (s *Store) TotalRecordCount() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count)
	return count, err
}

// CategoryCounts returns category values by descending count. Ties keep the
// order in which values first appeared. limit <= 0 returns every value.
func (s *Store) CategoryCounts(limit int) ([]model.FrequencyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	query := `
		SELECT category, COUNT(*) AS count, MIN(seq) AS first_seq
		FROM records
		WHERE category IS NOT NULL
		GROUP BY category
		ORDER BY count DESC, first_seq ASC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.FrequencyEntry
	for rows.Next() {
		var fe model.FrequencyEntry
		var firstSeq int64
		if err := rows.Scan(&fe.Value, &fe.Count, &firstSeq); err != nil {
			log.Printf("duckdb scan error (CategoryCounts): %v", err)
			continue
		}
		results = append(results, fe)
	}
	return results, rows.Err()
}

// HourlyCounts returns record counts per hour for records with a parsed
// timestamp, in ascending order.
func (s *Store) HourlyCounts() ([]model.TimeSeriesPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT date_trunc('hour', ts) AS hour, COUNT(*) AS count
		FROM records
		WHERE ts IS NOT NULL
		GROUP BY hour
		ORDER BY hour`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.TimeSeriesPoint
	for rows.Next() {
		var p model.TimeSeriesPoint
		if err := rows.Scan(&p.Time, &p.Value); err != nil {
			log.Printf("duckdb scan error (HourlyCounts): %v", err)
			continue
		}
		p.Time = fromWallClock(p.Time, s.loc)
		results = append(results, p)
	}
	return results, rows.Err()
}

// ClassCounts returns how many records fall into each classification.
func (s *Store) ClassCounts() (model.ClassCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var cc model.ClassCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE class = 'detected'),
			COUNT(*) FILTER (WHERE class = 'cleaned'),
			COUNT(*) FILTER (WHERE class = 'neutral')
		FROM records`).Scan(&cc.Detected, &cc.Cleaned, &cc.Neutral)
	return cc, err
}

// ExecuteQuery runs a read-only SQL query and returns results as maps.
// Only SELECT/WITH read queries are allowed; DDL/DML is rejected.
func (s *Store) ExecuteQuery(query string) ([]map[string]interface{}, error) {
	trimmed := strings.TrimSpace(query)

	// Reject semicolons to prevent statement chaining.
	if strings.Contains(trimmed, ";") {
		return nil, fmt.Errorf("%w: query must not contain semicolons", ErrQueryRejected)
	}

	// Strip SQL comments so keywords hidden in comments are still caught.
	stripped := strings.TrimSpace(stripSQLComments(trimmed))
	upper := strings.ToUpper(stripped)

	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return nil, fmt.Errorf("%w: only SELECT/WITH queries are allowed", ErrQueryRejected)
	}

	if match := dangerousKeywordPattern.FindString(stripped); match != "" {
		return nil, fmt.Errorf("%w: query contains disallowed keyword: %s", ErrQueryRejected, strings.ToUpper(match))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()
	rows, err := s.db.QueryContext(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	for rows.Next() && len(results) < maxQueryRows {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			log.Printf("duckdb scan error (ExecuteQuery): %v", err)
			continue
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

// GetSchemaDescription returns a human-readable description of the queryable tables.
func (s *Store) GetSchemaDescription() string {
	return `Table 'records': seq (BIGINT, input order), dataset_id (VARCHAR), ts (TIMESTAMP, NULL when unparseable), ` +
		`raw_time (VARCHAR), level (VARCHAR: TRACE/DEBUG/INFO/WARN/ERROR/FATAL), raw_level (VARCHAR), ` +
		`category (VARCHAR: threat name or event Id), scanned/detected/cleaned (BIGINT), ` +
		`class (VARCHAR: detected/cleaned/neutral), fields (JSON, every source field; use json_extract_string(fields, '$.Name')). ` +
		`Table 'datasets': id, source, format, schema_name, record_count, skipped, loaded_at.`
}

// TableRowCounts returns the row count for each known table using a hardcoded allowlist.
func (s *Store) TableRowCounts() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	allowedTables := []string{"datasets", "records"}
	counts := make(map[string]int64, len(allowedTables))

	for _, table := range allowedTables {
		var count int64
		// Table names are hardcoded constants, not user input.
		err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
		if err != nil {
			continue
		}
		counts[table] = count
	}
	return counts, nil
}
