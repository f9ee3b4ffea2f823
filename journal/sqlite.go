package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)
)

// FileName is the journal database file under the versioned cache root.
const FileName = "journal.db"

var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS access_times (
    entry_key   TEXT PRIMARY KEY,
    last_access INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_access_times_last_access ON access_times(last_access);
`,
	},
}

// SQLiteJournal is the durable Journal shared by every process using one
// cache root. Timestamps are stored as unix milliseconds.
type SQLiteJournal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at path and applies any
// pending schema migrations. Parent directories are created as needed.
func Open(path string) (*SQLiteJournal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal: creating %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open sqlite %q: %w", path, err)
	}

	// WAL plus a busy timeout keeps concurrent touches from separate
	// processes from failing with SQLITE_BUSY.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: enable WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: set busy timeout: %w", err)
	}

	j := &SQLiteJournal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return j, nil
}

func (j *SQLiteJournal) migrate() error {
	_, err := j.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
        version    INTEGER PRIMARY KEY,
        applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := j.db.QueryRow(`SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue
		}
		if _, err := j.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := j.db.Exec(`INSERT INTO schema_versions(version) VALUES(?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

// Touch upserts the access record. The WHERE clause on the conflict arm
// keeps records monotonically non-decreasing even when processes race
// with skewed clocks.
func (j *SQLiteJournal) Touch(ctx context.Context, key string, now time.Time) error {
	_, err := j.db.ExecContext(ctx, `
        INSERT INTO access_times(entry_key, last_access) VALUES(?, ?)
        ON CONFLICT(entry_key) DO UPDATE SET last_access = excluded.last_access
        WHERE excluded.last_access > access_times.last_access`,
		key, now.UnixMilli())
	if err != nil {
		return fmt.Errorf("journal: touch %q: %w", key, err)
	}
	return nil
}

// LastAccess returns the recorded access time for key.
func (j *SQLiteJournal) LastAccess(ctx context.Context, key string) (time.Time, bool, error) {
	var millis int64
	err := j.db.QueryRowContext(ctx, `SELECT last_access FROM access_times WHERE entry_key = ?`, key).Scan(&millis)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("journal: last access %q: %w", key, err)
	}
	return time.UnixMilli(millis), true, nil
}

// Remove drops the record for key. Idempotent.
func (j *SQLiteJournal) Remove(ctx context.Context, key string) error {
	if _, err := j.db.ExecContext(ctx, `DELETE FROM access_times WHERE entry_key = ?`, key); err != nil {
		return fmt.Errorf("journal: remove %q: %w", key, err)
	}
	return nil
}

// Entries lists all records ordered by key.
func (j *SQLiteJournal) Entries(ctx context.Context) ([]Access, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT entry_key, last_access FROM access_times ORDER BY entry_key`)
	if err != nil {
		return nil, fmt.Errorf("journal: listing entries: %w", err)
	}
	defer rows.Close()

	var out []Access
	for rows.Next() {
		var (
			key    string
			millis int64
		)
		if err := rows.Scan(&key, &millis); err != nil {
			return nil, fmt.Errorf("journal: scanning entry: %w", err)
		}
		out = append(out, Access{Key: key, LastAccess: time.UnixMilli(millis)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterating entries: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (j *SQLiteJournal) Close() error { return j.db.Close() }

// Ensure SQLiteJournal implements Journal
var _ Journal = (*SQLiteJournal)(nil)
