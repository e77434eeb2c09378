// Package duckdb keeps the loaded dataset in an in-memory DuckDB database so
// it can be explored with SQL for the lifetime of one run.
package duckdb

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/tinytelemetry/eventlens/internal/duckdb/migrate"
	"github.com/tinytelemetry/eventlens/internal/model"
)

// Store wraps an in-memory DuckDB database holding loaded records.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	loc          *time.Location // zone of the wall-clock times in records.ts
	nextSeq      int64
	QueryTimeout time.Duration
}

var _ model.QueryStore = (*Store)(nil)

// NewStore opens a fresh in-memory database and applies migrations.
// An optional queryTimeout can be passed; it defaults to 30s.
func NewStore(queryTimeout ...time.Duration) (*Store, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if _, err := migrate.NewRunner(db).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	qt := model.DefaultQueryTimeout
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}

	return &Store{
		db:           db,
		loc:          time.Local,
		QueryTimeout: qt,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct query access.
func (s *Store) DB() *sql.DB {
	return s.db
}
