// Package history stores a local log of artifact pushes in an embedded
// SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // SQLite driver
)

// DefaultListLimit caps List output when no limit is given.
const DefaultListLimit = 10

// Entry is one recorded push.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Package   string    `json:"package"`
	FileName  string    `json:"fileName"`
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256"`
	Status    int       `json:"status"`
	Success   bool      `json:"success"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store records pushes in a SQLite database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default history database location,
// $HOME/.pkgpush/history.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".pkgpush", "history.db"), nil
}

// Open opens the history database at path, creating the file, its parent
// directories and the schema as needed.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	createSQL := `
		CREATE TABLE IF NOT EXISTS pushes (
			id TEXT NOT NULL PRIMARY KEY,
			package TEXT NOT NULL,
			file_name TEXT NOT NULL,
			file_size_bytes INTEGER NOT NULL,
			sha256 TEXT NOT NULL,
			http_status INTEGER NOT NULL,
			success INTEGER NOT NULL,
			url TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create pushes table: %w", err)
	}

	indexSQL := `CREATE INDEX IF NOT EXISTS idx_pushes_created_at ON pushes (created_at)`
	if _, err := s.db.ExecContext(ctx, indexSQL); err != nil {
		return fmt.Errorf("create pushes index: %w", err)
	}

	return nil
}

// Record inserts a push entry, assigning its id and timestamp.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	e.ID = uuid.New()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	insertSQL := `
		INSERT INTO pushes (id, package, file_name, file_size_bytes, sha256, http_status, success, url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, insertSQL,
		e.ID.String(), e.Package, e.FileName, e.Size, e.SHA256, e.Status, boolToInt(e.Success), e.URL, now,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("record push: %w", err)
	}

	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, now)
	return e, nil
}

// List returns the most recent entries, newest first. A limit of zero or
// less applies DefaultListLimit.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, package, file_name, file_size_bytes, sha256, http_status, success, url, created_at
		FROM pushes
		ORDER BY created_at DESC, id
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pushes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var idStr, createdAt string
		var success int

		if scanErr := rows.Scan(&idStr, &e.Package, &e.FileName, &e.Size, &e.SHA256, &e.Status, &success, &e.URL, &createdAt); scanErr != nil {
			return nil, fmt.Errorf("list pushes: scan: %w", scanErr)
		}

		var parseErr error
		e.ID, parseErr = uuid.Parse(idStr)
		if parseErr != nil {
			return nil, fmt.Errorf("list pushes: parse uuid: %w", parseErr)
		}

		e.CreatedAt, parseErr = time.Parse(time.RFC3339Nano, createdAt)
		if parseErr != nil {
			return nil, fmt.Errorf("list pushes: parse created_at: %w", parseErr)
		}

		e.Success = success != 0
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pushes: rows: %w", err)
	}

	return entries, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
