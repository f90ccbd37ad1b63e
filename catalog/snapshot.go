// Package catalog supplies the database and table names offered when
// completing db('...') and table('...') arguments.
package catalog

import (
	"sort"
	"time"
)

// Snapshot is the set of databases and tables known at one point in time.
type Snapshot struct {
	Databases []string
	Tables    map[string][]string // database -> tables
	Fetched   time.Time
}

// NewSnapshot builds a sorted snapshot from a database -> tables map.
func NewSnapshot(tables map[string][]string) *Snapshot {
	s := &Snapshot{Tables: make(map[string][]string, len(tables)), Fetched: time.Now()}
	for db, names := range tables {
		s.Databases = append(s.Databases, db)
		sorted := append([]string(nil), names...)
		sort.Strings(sorted)
		s.Tables[db] = dedupSorted(sorted)
	}
	sort.Strings(s.Databases)
	return s
}

// TablesOf returns the tables of db. An unknown or empty db yields every
// table in the snapshot.
func (s *Snapshot) TablesOf(db string) []string {
	if s == nil {
		return nil
	}
	if tables, ok := s.Tables[db]; ok {
		return tables
	}
	return s.AllTables()
}

// AllTables returns the table names of every database, sorted and
// deduplicated.
func (s *Snapshot) AllTables() []string {
	if s == nil {
		return nil
	}
	var all []string
	for _, tables := range s.Tables {
		all = append(all, tables...)
	}
	sort.Strings(all)
	return dedupSorted(all)
}

// DatabaseNames returns the database names, or nil for a nil snapshot.
func (s *Snapshot) DatabaseNames() []string {
	if s == nil {
		return nil
	}
	return s.Databases
}

func dedupSorted(in []string) []string {
	out := in[:0]
	for i, v := range in {
		if i == 0 || v != in[i-1] {
			out = append(out, v)
		}
	}
	return out
}
