// Package store persists dependence graphs of many files in one SQLite
// database.
package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/l3aro/jspdg/pkg/pdg"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
    id INTEGER PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    fallback INTEGER NOT NULL DEFAULT 0,
    truncated INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS nodes (
    file_id INTEGER NOT NULL,
    id INTEGER NOT NULL,
    type TEXT NOT NULL,
    start_offset INTEGER NOT NULL,
    end_offset INTEGER NOT NULL,
    snippet TEXT NOT NULL,
    ast_size INTEGER NOT NULL,
    PRIMARY KEY (file_id, id)
);

CREATE TABLE IF NOT EXISTS edges (
    file_id INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    src INTEGER NOT NULL,
    dst INTEGER NOT NULL,
    type TEXT NOT NULL,
    name TEXT,
    PRIMARY KEY (file_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(file_id, dst);
CREATE INDEX IF NOT EXISTS idx_edges_name ON edges(name);
`

// Store is a SQLite graph database. Its methods are safe for concurrent
// use; writes are serialized on a single connection.
type Store struct {
	mu   sync.Mutex
	conn *sqlite.Conn
	path string
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA journal_mode = WAL",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// WriteGraph stores the graph of file, replacing any graph stored for it.
func (s *Store) WriteGraph(file string, g *pdg.Graph) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	endFn, err := sqlitex.ImmediateTransaction(s.conn)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer endFn(&err)

	fileID, found, err := s.fileID(file)
	if err != nil {
		return err
	}
	if found {
		for _, q := range []string{
			"DELETE FROM nodes WHERE file_id = ?",
			"DELETE FROM edges WHERE file_id = ?",
		} {
			if err := sqlitex.Execute(s.conn, q, &sqlitex.ExecOptions{Args: []any{fileID}}); err != nil {
				return fmt.Errorf("clear %s: %w", file, err)
			}
		}
		if err := sqlitex.Execute(s.conn,
			"UPDATE files SET fallback = ?, truncated = ? WHERE id = ?",
			&sqlitex.ExecOptions{Args: []any{g.Fallback, g.Truncated, fileID}}); err != nil {
			return fmt.Errorf("update file %s: %w", file, err)
		}
	} else {
		if err := sqlitex.Execute(s.conn,
			"INSERT INTO files (path, fallback, truncated) VALUES (?, ?, ?)",
			&sqlitex.ExecOptions{Args: []any{file, g.Fallback, g.Truncated}}); err != nil {
			return fmt.Errorf("insert file %s: %w", file, err)
		}
		fileID = s.conn.LastInsertRowID()
	}

	if err := insertNodes(s.conn, fileID, g.Nodes); err != nil {
		return err
	}
	return insertEdges(s.conn, fileID, g.Edges)
}

// WriteGraphs stores several graphs, in path order.
func (s *Store) WriteGraphs(graphs map[string]*pdg.Graph) error {
	files := make([]string, 0, len(graphs))
	for f := range graphs {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		if err := s.WriteGraph(f, graphs[f]); err != nil {
			return err
		}
	}
	return nil
}

// DeleteGraph removes the graph of file. Deleting an unknown file is not
// an error.
func (s *Store) DeleteGraph(file string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	endFn, err := sqlitex.ImmediateTransaction(s.conn)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer endFn(&err)

	fileID, found, err := s.fileID(file)
	if err != nil || !found {
		return err
	}
	for _, q := range []string{
		"DELETE FROM nodes WHERE file_id = ?",
		"DELETE FROM edges WHERE file_id = ?",
		"DELETE FROM files WHERE id = ?",
	} {
		if err := sqlitex.Execute(s.conn, q, &sqlitex.ExecOptions{Args: []any{fileID}}); err != nil {
			return fmt.Errorf("delete %s: %w", file, err)
		}
	}
	return nil
}

func (s *Store) fileID(file string) (id int64, found bool, err error) {
	err = sqlitex.Execute(s.conn, "SELECT id FROM files WHERE path = ?", &sqlitex.ExecOptions{
		Args: []any{file},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			id, found = stmt.ColumnInt64(0), true
			return nil
		},
	})
	if err != nil {
		return 0, false, fmt.Errorf("lookup file %s: %w", file, err)
	}
	return id, found, nil
}

func insertNodes(conn *sqlite.Conn, fileID int64, nodes []pdg.Node) error {
	stmt, err := conn.Prepare(`INSERT INTO nodes (file_id, id, type, start_offset, end_offset, snippet, ast_size) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare node insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, n := range nodes {
		stmt.BindInt64(1, fileID)
		stmt.BindInt64(2, int64(n.ID))
		stmt.BindText(3, n.Kind)
		stmt.BindInt64(4, int64(n.Start))
		stmt.BindInt64(5, int64(n.End))
		stmt.BindText(6, n.Snippet)
		stmt.BindInt64(7, int64(n.Size))

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert node %d: %w", n.ID, err)
		}
		_ = stmt.Reset()
	}
	return nil
}

func insertEdges(conn *sqlite.Conn, fileID int64, edges []pdg.Edge) error {
	stmt, err := conn.Prepare(`INSERT INTO edges (file_id, seq, src, dst, type, name) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare edge insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for i, e := range edges {
		stmt.BindInt64(1, fileID)
		stmt.BindInt64(2, int64(i))
		stmt.BindInt64(3, int64(e.Src))
		stmt.BindInt64(4, int64(e.Dst))
		stmt.BindText(5, string(e.Kind))
		if e.Name == "" {
			stmt.BindNull(6)
		} else {
			stmt.BindText(6, e.Name)
		}

		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert edge %d->%d: %w", e.Src, e.Dst, err)
		}
		_ = stmt.Reset()
	}
	return nil
}

// ReadGraph loads the graph stored for file.
func (s *Store) ReadGraph(file string) (*pdg.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fileID, found, err := s.fileID(file)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", file, ErrNotFound)
	}

	g := &pdg.Graph{Nodes: make([]pdg.Node, 0), Edges: make([]pdg.Edge, 0)}
	err = sqlitex.Execute(s.conn, "SELECT fallback, truncated FROM files WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{fileID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			g.Fallback = stmt.ColumnBool(0)
			g.Truncated = stmt.ColumnBool(1)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", file, err)
	}

	err = sqlitex.Execute(s.conn,
		"SELECT id, type, start_offset, end_offset, snippet, ast_size FROM nodes WHERE file_id = ? ORDER BY id",
		&sqlitex.ExecOptions{
			Args: []any{fileID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				g.Nodes = append(g.Nodes, pdg.Node{
					ID:      int(stmt.ColumnInt64(0)),
					Kind:    stmt.ColumnText(1),
					Start:   int(stmt.ColumnInt64(2)),
					End:     int(stmt.ColumnInt64(3)),
					Snippet: stmt.ColumnText(4),
					Size:    int(stmt.ColumnInt64(5)),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("read nodes of %s: %w", file, err)
	}

	err = sqlitex.Execute(s.conn,
		"SELECT src, dst, type, COALESCE(name, '') FROM edges WHERE file_id = ? ORDER BY seq",
		&sqlitex.ExecOptions{
			Args: []any{fileID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				g.Edges = append(g.Edges, pdg.Edge{
					Src:  int(stmt.ColumnInt64(0)),
					Dst:  int(stmt.ColumnInt64(1)),
					Kind: pdg.DepType(stmt.ColumnText(2)),
					Name: stmt.ColumnText(3),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("read edges of %s: %w", file, err)
	}
	return g, nil
}

// Files returns the stored file paths, sorted.
func (s *Store) Files() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := make([]string, 0)
	err := sqlitex.ExecuteTransient(s.conn, "SELECT path FROM files ORDER BY path", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			files = append(files, stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}
