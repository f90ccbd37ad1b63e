package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Source fetches a fresh snapshot.
type Source interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

// StaticSource serves a fixed database -> tables map, typically from the
// [catalog.static] section of console.toml.
type StaticSource map[string][]string

// Fetch returns the static map as a snapshot.
func (s StaticSource) Fetch(ctx context.Context) (*Snapshot, error) {
	return NewSnapshot(s), nil
}

// DefaultQuery reads (database, table) rows from a catalog table.
const DefaultQuery = `SELECT db, name FROM catalog ORDER BY db, name`

// SQLSource reads the catalog from a SQL database. Query must return two
// string columns: database name and table name. A NULL table name lists
// a database with no tables.
type SQLSource struct {
	DB    *sql.DB
	Query string
}

// OpenSQLite opens the sqlite catalog at path.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	return db, nil
}

// Fetch runs the catalog query.
func (s *SQLSource) Fetch(ctx context.Context) (*Snapshot, error) {
	query := s.Query
	if query == "" {
		query = DefaultQuery
	}
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: query: %w", err)
	}
	defer rows.Close()

	tables := make(map[string][]string)
	for rows.Next() {
		var db string
		var name sql.NullString
		if err := rows.Scan(&db, &name); err != nil {
			return nil, fmt.Errorf("catalog: scan: %w", err)
		}
		if _, ok := tables[db]; !ok {
			tables[db] = nil
		}
		if name.Valid && name.String != "" {
			tables[db] = append(tables[db], name.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: rows: %w", err)
	}
	return NewSnapshot(tables), nil
}
