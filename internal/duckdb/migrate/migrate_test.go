package migrate

import (
	"database/sql"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	_ "github.com/duckdb/duckdb-go/v2"
)

var shipped = []string{"001_datasets.sql", "002_records.sql"}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func appliedVersions(t *testing.T, db *sql.DB) []int {
	t.Helper()
	rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		t.Fatalf("query schema_migrations: %v", err)
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			t.Fatal(err)
		}
		out = append(out, v)
	}
	return out
}

func TestRunAppliesShippedMigrations(t *testing.T) {
	db := openTestDB(t)

	applied, err := NewRunner(db).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !slices.Equal(applied, shipped) {
		t.Errorf("applied = %v, want %v", applied, shipped)
	}

	for _, table := range []string{"datasets", "records", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT table_name FROM information_schema.tables WHERE table_name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	r := NewRunner(db)

	if _, err := r.Run(); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	applied, err := r.Run()
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("second Run applied %v", applied)
	}
	if got := appliedVersions(t, db); !slices.Equal(got, []int{1, 2}) {
		t.Errorf("recorded versions = %v", got)
	}
}

func TestRunFS_OrdersByVersion(t *testing.T) {
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"010_second.sql": {Data: []byte("ALTER TABLE t ADD COLUMN b INTEGER")},
		"002_first.sql":  {Data: []byte("CREATE TABLE t (a INTEGER)")},
		"README.md":      {Data: []byte("not a migration")},
	}

	applied, err := NewRunnerFS(db, fsys).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !slices.Equal(applied, []string{"002_first.sql", "010_second.sql"}) {
		t.Errorf("applied = %v", applied)
	}
}

func TestRunFS_FailedMigrationRollsBack(t *testing.T) {
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"001_ok.sql":     {Data: []byte("CREATE TABLE t (a INTEGER)")},
		"002_broken.sql": {Data: []byte("CREATE TABLE u (a INTEGR")},
	}

	applied, err := NewRunnerFS(db, fsys).Run()
	if err == nil || !strings.Contains(err.Error(), "002_broken.sql") {
		t.Fatalf("expected error naming 002_broken.sql, got %v", err)
	}
	if !slices.Equal(applied, []string{"001_ok.sql"}) {
		t.Errorf("applied = %v", applied)
	}
	if got := appliedVersions(t, db); !slices.Equal(got, []int{1}) {
		t.Errorf("recorded versions = %v, want [1]", got)
	}
}

func TestRunFS_RejectsBadNames(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
		want string
	}{
		{
			name: "duplicate version",
			fsys: fstest.MapFS{
				"001_a.sql": {Data: []byte("SELECT 1")},
				"1_b.sql":   {Data: []byte("SELECT 1")},
			},
			want: "share version 1",
		},
		{
			name: "non-numeric version",
			fsys: fstest.MapFS{"abc_a.sql": {Data: []byte("SELECT 1")}},
			want: "positive number",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunnerFS(openTestDB(t), tt.fsys).Run()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
