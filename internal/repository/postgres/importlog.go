package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ImportEntry is one row of the timesheet import log.
type ImportEntry struct {
	OriginalKey string     `json:"original_key"`
	ArchiveKey  string     `json:"archive_key,omitempty"`
	Status      string     `json:"status"`
	FileSize    int64      `json:"file_size"`
	RecordCount int        `json:"record_count"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// ImportLogRepo tracks which watched exports have been processed. It backs
// the ingest watcher's exactly-once guarantee: claims go through UPDATE with
// a status guard, so concurrent watchers cannot both win the same key.
type ImportLogRepo struct{ db *sql.DB }

// NewImportLogRepo creates a Postgres-backed import log.
func NewImportLogRepo(db *sql.DB) *ImportLogRepo { return &ImportLogRepo{db: db} }

// EnsureSchema creates the import log table if it does not exist.
func (r *ImportLogRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS timesheet_import_log (
			original_key  TEXT PRIMARY KEY,
			archive_key   TEXT,
			status        TEXT NOT NULL DEFAULT 'pending',
			file_size     BIGINT NOT NULL DEFAULT 0,
			record_count  INTEGER NOT NULL DEFAULT 0,
			error_message TEXT,
			retry_count   INTEGER NOT NULL DEFAULT 0,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			started_at    TIMESTAMPTZ,
			processed_at  TIMESTAMPTZ
		)`)
	if err != nil {
		return fmt.Errorf("ensure import log schema: %w", err)
	}
	return nil
}

// Discover records a newly seen key as pending. Returns true if the key was
// not already known.
func (r *ImportLogRepo) Discover(ctx context.Context, key string, size int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO timesheet_import_log (original_key, status, file_size)
		VALUES ($1, 'pending', $2)
		ON CONFLICT (original_key) DO NOTHING
	`, key, size)
	if err != nil {
		return false, fmt.Errorf("record pending %s: %w", key, err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

// Pending returns up to limit pending keys, smallest files first so quick
// wins land before large backfills.
func (r *ImportLogRepo) Pending(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT original_key FROM timesheet_import_log
		WHERE status = 'pending'
		ORDER BY file_size ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending imports: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan pending key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Claim atomically moves a pending key to processing. Returns false when
// another worker got there first.
func (r *ImportLogRepo) Claim(ctx context.Context, key string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE timesheet_import_log
		SET status = 'processing', retry_count = retry_count + 1, started_at = NOW()
		WHERE original_key = $1 AND status = 'pending'
	`, key)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

// SetArchiveKey records where the processed original was moved.
func (r *ImportLogRepo) SetArchiveKey(ctx context.Context, key, archiveKey string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE timesheet_import_log SET archive_key = $1 WHERE original_key = $2
	`, archiveKey, key)
	if err != nil {
		return fmt.Errorf("set archive key for %s: %w", key, err)
	}
	return nil
}

// Complete marks a key as done with its imported row count.
func (r *ImportLogRepo) Complete(ctx context.Context, key string, records int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE timesheet_import_log
		SET status = 'completed', record_count = $1, processed_at = NOW()
		WHERE original_key = $2
	`, records, key)
	if err != nil {
		return fmt.Errorf("complete %s: %w", key, err)
	}
	return nil
}

// Fail marks a key as failed with the reason.
func (r *ImportLogRepo) Fail(ctx context.Context, key, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE timesheet_import_log
		SET status = 'failed', error_message = $1
		WHERE original_key = $2
	`, reason, key)
	if err != nil {
		return fmt.Errorf("mark failed %s: %w", key, err)
	}
	return nil
}

// ResumeStuck resets keys left in processing by a prior crash back to
// pending, and fails the ones that have already been retried three times.
func (r *ImportLogRepo) ResumeStuck(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE timesheet_import_log SET status = 'pending'
		WHERE status = 'processing' AND retry_count < 3
	`)
	if err != nil {
		return fmt.Errorf("resume stuck imports: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE timesheet_import_log
		SET status = 'failed', error_message = 'retry limit exceeded'
		WHERE status = 'processing'
	`)
	if err != nil {
		return fmt.Errorf("fail exhausted imports: %w", err)
	}
	return nil
}

// ProcessedCount returns how many keys have left the pending state, used to
// number archived files.
func (r *ImportLogRepo) ProcessedCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM timesheet_import_log WHERE status != 'pending'
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count processed imports: %w", err)
	}
	return n, nil
}

// List returns recent import log entries, newest first.
func (r *ImportLogRepo) List(ctx context.Context, limit int) ([]ImportEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT original_key, COALESCE(archive_key, ''), status, file_size,
		       record_count, COALESCE(error_message, ''), created_at, processed_at
		FROM timesheet_import_log
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var out []ImportEntry
	for rows.Next() {
		var e ImportEntry
		var processedAt sql.NullTime
		if err := rows.Scan(
			&e.OriginalKey, &e.ArchiveKey, &e.Status, &e.FileSize,
			&e.RecordCount, &e.Error, &e.CreatedAt, &processedAt,
		); err != nil {
			return nil, fmt.Errorf("scan import entry: %w", err)
		}
		if processedAt.Valid {
			t := processedAt.Time
			e.ProcessedAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
