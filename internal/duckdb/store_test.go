package duckdb

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/eventlens/internal/model"
	"github.com/tinytelemetry/eventlens/internal/timestamp"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func scanDataset() *model.Dataset {
	rec := func(ts, scanned, detected, cleaned, threat string) model.LogRecord {
		return model.LogRecord{"Time": ts, "Scanned": scanned, "Detected": detected, "Cleaned": cleaned, "Threat": threat}
	}
	return &model.Dataset{
		ID:     "ds-scan",
		Source: "scans.xml",
		Format: model.FormatXML,
		Schema: model.ScanSchema,
		Header: model.ScanSchema.Fields,
		Records: []model.LogRecord{
			rec("2025-07-27 10:05:00", "100", "2", "0", "Win32/Agent"),
			rec("2025-07-27 10:45:00", "50", "0", "5", "HTML/Phish"),
			rec("2025-07-27 11:10:00", "n/a", "0", "0", "No Threat"),
			rec("", "25", "1", "0", "HTML/Phish"),
			rec("2025-07-27 13:00:00", "10", "1", "0", "Win32/Agent"),
			rec("2025-07-27 13:30:00", "10", "0", "0", "JS/Miner"),
		},
		LoadedAt: time.Date(2025, 7, 27, 14, 0, 0, 0, time.UTC),
	}
}

func loadTestDataset(t *testing.T, store *Store, ds *model.Dataset) {
	t.Helper()
	if err := store.LoadDataset(ds, timestamp.NewParserIn(time.UTC)); err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
}

func TestLoadDataset(t *testing.T) {
	store := newTestStore(t)
	loadTestDataset(t, store, scanDataset())

	count, err := store.TotalRecordCount()
	if err != nil {
		t.Fatalf("TotalRecordCount: %v", err)
	}
	if count != 6 {
		t.Errorf("TotalRecordCount = %d, want 6", count)
	}

	counts, err := store.TableRowCounts()
	if err != nil {
		t.Fatalf("TableRowCounts: %v", err)
	}
	if counts["datasets"] != 1 || counts["records"] != 6 {
		t.Errorf("TableRowCounts = %v", counts)
	}
}

func TestLoadDataset_DerivedColumns(t *testing.T) {
	store := newTestStore(t)
	loadTestDataset(t, store, scanDataset())

	rows, err := store.ExecuteQuery(`SELECT CAST(SUM(scanned) AS BIGINT) AS scanned, CAST(SUM(detected) AS BIGINT) AS detected, COUNT(ts) AS timed FROM records`)
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if got, _ := rows[0]["scanned"].(int64); got != 195 {
		t.Errorf("scanned = %v, want 195", rows[0]["scanned"])
	}
	if got, _ := rows[0]["detected"].(int64); got != 4 {
		t.Errorf("detected = %v, want 4", rows[0]["detected"])
	}
	if got, _ := rows[0]["timed"].(int64); got != 5 {
		t.Errorf("timed = %v, want 5", rows[0]["timed"])
	}

	cc, err := store.ClassCounts()
	if err != nil {
		t.Fatalf("ClassCounts: %v", err)
	}
	if cc != (model.ClassCounts{Detected: 3, Cleaned: 1, Neutral: 2}) {
		t.Errorf("ClassCounts = %+v", cc)
	}

	rows, err = store.ExecuteQuery(`SELECT json_extract_string(fields, '$.Threat') AS threat FROM records ORDER BY seq LIMIT 1`)
	if err != nil {
		t.Fatalf("ExecuteQuery json: %v", err)
	}
	if rows[0]["threat"] != "Win32/Agent" {
		t.Errorf("threat = %v, want Win32/Agent", rows[0]["threat"])
	}
}

func TestCategoryCounts_TieBreakByFirstOccurrence(t *testing.T) {
	store := newTestStore(t)
	loadTestDataset(t, store, scanDataset())

	got, err := store.CategoryCounts(0)
	if err != nil {
		t.Fatalf("CategoryCounts: %v", err)
	}
	want := []model.FrequencyEntry{
		{Value: "Win32/Agent", Count: 2},
		{Value: "HTML/Phish", Count: 2},
		{Value: "JS/Miner", Count: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("CategoryCounts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %v, want %v", i, got[i], want[i])
		}
	}

	limited, err := store.CategoryCounts(1)
	if err != nil {
		t.Fatalf("CategoryCounts(1): %v", err)
	}
	if len(limited) != 1 || limited[0].Value != "Win32/Agent" {
		t.Errorf("CategoryCounts(1) = %v", limited)
	}
}

func TestHourlyCounts(t *testing.T) {
	store := newTestStore(t)
	loadTestDataset(t, store, scanDataset())

	points, err := store.HourlyCounts()
	if err != nil {
		t.Fatalf("HourlyCounts: %v", err)
	}
	want := []model.TimeSeriesPoint{
		{Time: time.Date(2025, 7, 27, 10, 0, 0, 0, time.UTC), Value: 2},
		{Time: time.Date(2025, 7, 27, 11, 0, 0, 0, time.UTC), Value: 1},
		{Time: time.Date(2025, 7, 27, 13, 0, 0, 0, time.UTC), Value: 2},
	}
	if len(points) != len(want) {
		t.Fatalf("HourlyCounts = %v, want %v", points, want)
	}
	for i := range want {
		if !points[i].Time.Equal(want[i].Time) || points[i].Value != want[i].Value {
			t.Errorf("point %d = %v, want %v", i, points[i], want[i])
		}
	}
}

func TestLoadDataset_EventLevels(t *testing.T) {
	store := newTestStore(t)
	ds := &model.Dataset{
		ID:     "ds-event",
		Source: "events.csv",
		Format: model.FormatCSV,
		Schema: model.EventSchema,
		Records: []model.LogRecord{
			{"TimeCreated": "7/27/2025 10:00:00 AM", "Id": "4624", "LevelDisplayName": "Information"},
			{"TimeCreated": "7/27/2025 10:01:00 AM", "Id": "4625", "LevelDisplayName": "Warning"},
			{"TimeCreated": "7/27/2025 10:02:00 AM", "Id": "1000", "LevelDisplayName": "Critical"},
		},
		LoadedAt: time.Now(),
	}
	loadTestDataset(t, store, ds)

	rows, err := store.ExecuteQuery(`SELECT level, raw_level FROM records ORDER BY seq`)
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	want := []string{"INFO", "WARN", "FATAL"}
	for i, row := range rows {
		if row["level"] != want[i] {
			t.Errorf("row %d level = %v, want %s", i, row["level"], want[i])
		}
	}
}

func TestLoadDataset_SequenceContinuesAcrossDatasets(t *testing.T) {
	store := newTestStore(t)
	first := scanDataset()
	second := scanDataset()
	second.ID = "ds-scan-2"

	loadTestDataset(t, store, first)
	loadTestDataset(t, store, second)

	count, err := store.TotalRecordCount()
	if err != nil {
		t.Fatalf("TotalRecordCount: %v", err)
	}
	if count != 12 {
		t.Errorf("TotalRecordCount = %d, want 12", count)
	}

	if err := store.LoadDataset(first, nil); err == nil {
		t.Error("loading the same dataset id twice should fail")
	}
	count, _ = store.TotalRecordCount()
	if count != 12 {
		t.Errorf("failed load left %d records, want 12", count)
	}
}

func TestTotalRecordCount_Empty(t *testing.T) {
	store := newTestStore(t)

	count, err := store.TotalRecordCount()
	if err != nil {
		t.Fatalf("TotalRecordCount: %v", err)
	}
	if count != 0 {
		t.Errorf("empty store TotalRecordCount = %d, want 0", count)
	}
}

func TestExecuteQuery_SelectAllowed(t *testing.T) {
	store := newTestStore(t)
	loadTestDataset(t, store, scanDataset())

	results, err := store.ExecuteQuery("SELECT COUNT(*) as cnt FROM records")
	if err != nil {
		t.Fatalf("ExecuteQuery SELECT: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("ExecuteQuery returned %d rows, want 1", len(results))
	}
}

func TestExecuteQuery_WithAllowed(t *testing.T) {
	store := newTestStore(t)
	loadTestDataset(t, store, scanDataset())

	results, err := store.ExecuteQuery("WITH c AS (SELECT COUNT(*) AS cnt FROM records) SELECT cnt FROM c")
	if err != nil {
		t.Fatalf("ExecuteQuery WITH: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("ExecuteQuery WITH returned %d rows, want 1", len(results))
	}
}

func TestExecuteQuery_RowCap(t *testing.T) {
	store := newTestStore(t)

	results, err := store.ExecuteQuery("SELECT * FROM range(5000)")
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if len(results) != maxQueryRows {
		t.Errorf("rows = %d, want %d", len(results), maxQueryRows)
	}
}

func TestExecuteQuery_DMLRejected(t *testing.T) {
	store := newTestStore(t)

	rejected := []string{
		"INSERT INTO records (seq, class) VALUES (1, 'neutral')",
		"UPDATE records SET class = 'detected'",
		"DELETE FROM records",
		"DROP TABLE records",
		"CREATE TABLE evil (id int)",
		"ALTER TABLE records ADD COLUMN evil varchar",
		"TRUNCATE records",
	}

	for _, sql := range rejected {
		_, err := store.ExecuteQuery(sql)
		if !errors.Is(err, ErrQueryRejected) {
			t.Errorf("ExecuteQuery(%q) err = %v, want ErrQueryRejected", sql, err)
		}
	}
}

func TestExecuteQuery_KeywordsInCommentsIgnored(t *testing.T) {
	store := newTestStore(t)
	loadTestDataset(t, store, scanDataset())

	results, err := store.ExecuteQuery("SELECT COUNT(*) AS cnt /* DROP */ FROM records -- DELETE")
	if err != nil {
		t.Fatalf("ExecuteQuery: %v", err)
	}
	if results[0]["cnt"] != int64(6) {
		t.Errorf("cnt = %v, want 6", results[0]["cnt"])
	}
}

func TestExecuteQuery_DuckDBKeywordsRejected(t *testing.T) {
	store := newTestStore(t)

	rejected := []struct {
		sql     string
		keyword string
	}{
		{"SELECT COPY(records, '/tmp/dump.csv') FROM records", "COPY"},
		{"SELECT ATTACH FROM records", "ATTACH"},
		{"SELECT DETACH FROM records", "DETACH"},
		{"SELECT LOAD FROM records", "LOAD"},
		{"SELECT EXPORT FROM records", "EXPORT"},
		{"SELECT IMPORT FROM records", "IMPORT"},
		{"SELECT INSTALL FROM records", "INSTALL"},
		{"SELECT CALL FROM records", "CALL"},
		{"SELECT EXECUTE FROM records", "EXECUTE"},
		{"SELECT PRAGMA FROM records", "PRAGMA"},
		{"SELECT SET FROM records", "SET"},
	}

	for _, tt := range rejected {
		_, err := store.ExecuteQuery(tt.sql)
		if err == nil {
			t.Errorf("ExecuteQuery should reject %s keyword", tt.keyword)
		}
		if err != nil && !strings.Contains(err.Error(), tt.keyword) {
			t.Errorf("ExecuteQuery error %q should mention keyword %s", err.Error(), tt.keyword)
		}
	}

	semicolonCases := []string{
		"SELECT * FROM records; DROP TABLE records",
		"SELECT * FROM records; COPY records TO '/tmp/dump.csv'",
	}
	for _, sql := range semicolonCases {
		_, err := store.ExecuteQuery(sql)
		if err == nil {
			t.Errorf("ExecuteQuery should reject query with semicolons: %s", sql)
		}
		if err != nil && !strings.Contains(err.Error(), "semicolons") {
			t.Errorf("ExecuteQuery error %q should mention semicolons", err.Error())
		}
	}
}

func TestGetSchemaDescription(t *testing.T) {
	store := newTestStore(t)

	desc := store.GetSchemaDescription()
	for _, col := range []string{"records", "category", "class", "fields"} {
		if !strings.Contains(desc, col) {
			t.Errorf("schema description missing %q", col)
		}
	}
}
