package store

import (
	"errors"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ErrNotFound is returned when no graph is stored for a file.
var ErrNotFound = errors.New("graph not found")

// Report summarizes a database.
type Report struct {
	Files       int64
	Nodes       int64
	Edges       int64
	OrphanEdges int64            // Edges whose endpoints are not stored nodes
	NodesByType map[string]int64 // Node count per construct label
	EdgesByType map[string]int64 // Edge count per dependence type
}

// OK reports whether the database has no integrity problems.
func (r *Report) OK() bool {
	return r.OrphanEdges == 0
}

// Validate counts rows and checks that every edge references stored nodes.
func (s *Store) Validate() (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &Report{
		NodesByType: make(map[string]int64),
		EdgesByType: make(map[string]int64),
	}

	counts := []struct {
		query string
		dst   *int64
	}{
		{"SELECT COUNT(*) FROM files", &r.Files},
		{"SELECT COUNT(*) FROM nodes", &r.Nodes},
		{"SELECT COUNT(*) FROM edges", &r.Edges},
		{`SELECT COUNT(*) FROM edges e
		  WHERE NOT EXISTS (SELECT 1 FROM nodes n WHERE n.file_id = e.file_id AND n.id = e.src)
		     OR NOT EXISTS (SELECT 1 FROM nodes n WHERE n.file_id = e.file_id AND n.id = e.dst)`, &r.OrphanEdges},
	}
	for _, c := range counts {
		dst := c.dst
		if err := sqlitex.ExecuteTransient(s.conn, c.query, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				*dst = stmt.ColumnInt64(0)
				return nil
			},
		}); err != nil {
			return nil, fmt.Errorf("validate: %w", err)
		}
	}

	groups := []struct {
		query string
		dst   map[string]int64
	}{
		{"SELECT type, COUNT(*) FROM nodes GROUP BY type", r.NodesByType},
		{"SELECT type, COUNT(*) FROM edges GROUP BY type", r.EdgesByType},
	}
	for _, g := range groups {
		dst := g.dst
		if err := sqlitex.ExecuteTransient(s.conn, g.query, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				dst[stmt.ColumnText(0)] = stmt.ColumnInt64(1)
				return nil
			},
		}); err != nil {
			return nil, fmt.Errorf("validate: %w", err)
		}
	}

	return r, nil
}
