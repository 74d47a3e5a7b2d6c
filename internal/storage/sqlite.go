package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fortio.org/safecast"
	_ "github.com/mattn/go-sqlite3"

	"natvis/internal/typename"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Catalog = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			path TEXT PRIMARY KEY,
			hash TEXT NOT NULL,
			entries INTEGER,
			skipped INTEGER,
			indexed_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS types (
			doc_path TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			name TEXT NOT NULL,
			base TEXT NOT NULL,
			priority INTEGER,
			payload BLOB,
			PRIMARY KEY (doc_path, ordinal, name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(hash);`,
		`CREATE INDEX IF NOT EXISTS idx_types_base ON types(base);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) HasDocument(ctx context.Context, path, hash string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE path = ? AND hash = ?", path, hash).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) SaveDocument(ctx context.Context, doc *Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Drop the earlier version of the same file. Other paths with the
	// same content keep their own rows.
	if _, err := tx.ExecContext(ctx, "DELETE FROM types WHERE doc_path = ?", doc.Path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE path = ?", doc.Path); err != nil {
		return err
	}

	// 2. Save the document row
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (hash, path, entries, skipped, indexed_at) VALUES (?, ?, ?, ?, ?)
	`, doc.Hash, doc.Path, len(doc.Entries), doc.Skipped, time.Now().Unix()); err != nil {
		return err
	}

	// 3. Save one row per entry name
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO types (doc_path, ordinal, name, base, priority, payload) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_path, ordinal, name) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, entry := range doc.Entries {
		payload, err := encodeEntry(entry)
		if err != nil {
			return fmt.Errorf("failed to encode entry %v: %w", entry.Names, err)
		}
		for _, name := range entry.Names {
			tmpl, err := typename.Parse(name)
			if err != nil {
				return fmt.Errorf("failed to index %q: %w", name, err)
			}
			if _, err := stmt.ExecContext(ctx, doc.Path, i, name, baseName(tmpl), entry.Priority, payload); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) RemoveDocument(ctx context.Context, path string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM types WHERE doc_path = ?", path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE path = ?", path); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Lookup(ctx context.Context, concrete string) ([]Match, error) {
	c, err := typename.Parse(concrete)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.path, t.ordinal, t.name, t.priority, t.payload
		FROM types t JOIN documents d ON d.path = t.doc_path
		WHERE t.base = ? OR t.base = '*'
		ORDER BY t.priority DESC, d.path, t.ordinal
	`, baseName(c))
	if err != nil {
		return nil, fmt.Errorf("failed to query types: %w", err)
	}
	defer rows.Close()

	var matches []Match
	seen := make(map[string]bool)
	for rows.Next() {
		var (
			m        Match
			ordinal  int64
			priority int64
			payload  []byte
		)
		if err := rows.Scan(&m.Path, &ordinal, &m.Name, &priority, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan type: %w", err)
		}
		tmpl, err := typename.Parse(m.Name)
		if err != nil || !tmpl.Match(c) {
			continue
		}
		// An entry with several matching names is reported once.
		key := fmt.Sprintf("%s#%d", m.Path, ordinal)
		if seen[key] {
			continue
		}
		seen[key] = true

		if m.Ordinal, err = safecast.Conv[int](ordinal); err != nil {
			return nil, err
		}
		if m.Entry, err = decodeEntry(payload); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", m.Name, err)
		}
		if m.Priority, err = safecast.Conv[int](priority); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *SQLiteStore) Documents(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT hash, path, entries, skipped, indexed_at FROM documents ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []DocumentInfo
	for rows.Next() {
		var (
			d  DocumentInfo
			at int64
		)
		if err := rows.Scan(&d.Hash, &d.Path, &d.Entries, &d.Skipped, &at); err != nil {
			return nil, err
		}
		d.IndexedAt = time.Unix(at, 0)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// baseName is the prefilter key of a name: its last segment, or `*` for a
// bare wildcard.
func baseName(t *typename.Template) string {
	if t.Wildcard || len(t.Segments) == 0 {
		return "*"
	}
	return t.Segments[len(t.Segments)-1].Name
}
