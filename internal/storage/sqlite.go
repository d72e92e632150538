package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

var (
	_ domain.HistoryStore = (*SQLiteStore)(nil)
	_ domain.KVStore      = (*SQLiteStore)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	context TEXT NOT NULL,
	role    TEXT NOT NULL,
	content TEXT NOT NULL,
	ts      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_context ON history(context, id);

CREATE TABLE IF NOT EXISTS kv (
	namespace TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     TEXT NOT NULL,
	updated   INTEGER NOT NULL,
	PRIMARY KEY (namespace, key)
);
`

// SQLiteStore persists history and key-value data in a single SQLite
// file.
type SQLiteStore struct {
	db   *sql.DB
	path string
	log  *logger.Logger
	now  func() time.Time
}

// OpenSQLite opens (or creates) the database at path and applies the
// schema.
func OpenSQLite(ctx context.Context, path string, log *logger.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("storage: creating directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: opening %s: %w", path, err)
	}
	// One writer keeps SQLITE_BUSY out of the picture and makes
	// ":memory:" behave as a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: applying schema: %w", err)
	}
	log.Debug("storage: sqlite ready at %s", path)
	return &SQLiteStore{db: db, path: path, log: log, now: time.Now}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// ── History ──────────────────────────────────────────────────────

// Append implements domain.HistoryStore.
func (s *SQLiteStore) Append(ctx context.Context, rec domain.HistoryRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (context, role, content, ts) VALUES (?, ?, ?, ?)`,
		rec.Context, rec.Role, rec.Content, ts.UnixNano())
	if err != nil {
		return fmt.Errorf("storage: append history: %w", err)
	}
	return nil
}

// Recent implements domain.HistoryStore. Records come back oldest first.
func (s *SQLiteStore) Recent(ctx context.Context, contextName string, n int) ([]domain.HistoryRecord, error) {
	limit := n
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT context, role, content, ts FROM history
		 WHERE context = ? ORDER BY id DESC LIMIT ?`, contextName, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: query history: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoryRecord
	for rows.Next() {
		var (
			rec domain.HistoryRecord
			ts  int64
		)
		if err := rows.Scan(&rec.Context, &rec.Role, &rec.Content, &ts); err != nil {
			return nil, fmt.Errorf("storage: scan history: %w", err)
		}
		rec.Timestamp = time.Unix(0, ts)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: read history: %w", err)
	}
	reverse(out)
	return out, nil
}

// ── Key-value ────────────────────────────────────────────────────

// Put implements domain.KVStore.
func (s *SQLiteStore) Put(ctx context.Context, namespace, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (namespace, key, value, updated) VALUES (?, ?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated = excluded.updated`,
		namespace, key, value, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("storage: put %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Get implements domain.KVStore.
func (s *SQLiteStore) Get(ctx context.Context, namespace, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`, namespace, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("storage: get %s/%s: %w", namespace, key, err)
	}
	return v, nil
}

// List implements domain.KVStore.
func (s *SQLiteStore) List(ctx context.Context, namespace string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM kv WHERE namespace = ?`, namespace)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", namespace, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("storage: scan kv: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Delete implements domain.KVStore.
func (s *SQLiteStore) Delete(ctx context.Context, namespace, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE namespace = ? AND key = ?`, namespace, key)
	if err != nil {
		return fmt.Errorf("storage: delete %s/%s: %w", namespace, key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
