package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a Sink that persists records in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the activity database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps ":memory:" databases consistent and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000", // Wait up to 10 seconds on lock
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS activity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			track TEXT NOT NULL,
			artist TEXT NOT NULL,
			album TEXT,
			duration INTEGER NOT NULL DEFAULT 0,
			started_at INTEGER NOT NULL DEFAULT 0,
			extra TEXT,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_activity_created ON activity(created_at);
		CREATE INDEX IF NOT EXISTS idx_activity_kind ON activity(kind, status);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record inserts r. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, r Record) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	var startedAt int64
	if !r.StartedAt.IsZero() {
		startedAt = r.StartedAt.Unix()
	}

	query := `
		INSERT INTO activity (session_id, kind, status, track, artist, album, duration, started_at, extra, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		r.SessionID,
		string(r.Kind),
		string(r.Status),
		r.Track,
		r.Artist,
		nullString(r.Album),
		int64(r.Duration.Seconds()),
		startedAt,
		nullString(r.Extra),
		r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first. A limit of zero
// returns everything.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	query := `
		SELECT id, session_id, kind, status, track, artist, COALESCE(album, ''),
			duration, started_at, COALESCE(extra, ''), created_at
		FROM activity
		ORDER BY created_at DESC, id DESC
	`

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var kind, status string
		var durationSecs, startedAt, createdAt int64

		err := rows.Scan(
			&r.ID,
			&r.SessionID,
			&kind,
			&status,
			&r.Track,
			&r.Artist,
			&r.Album,
			&durationSecs,
			&startedAt,
			&r.Extra,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}

		r.Kind = Kind(kind)
		r.Status = Status(status)
		r.Duration = time.Duration(durationSecs) * time.Second
		if startedAt > 0 {
			r.StartedAt = time.Unix(startedAt, 0)
		}
		r.CreatedAt = time.UnixMilli(createdAt)

		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}

	return records, nil
}

// Count returns the number of records of kind with status. Empty values
// match everything.
func (s *Store) Count(ctx context.Context, kind Kind, status Status) (int, error) {
	query := "SELECT COUNT(*) FROM activity WHERE (? = '' OR kind = ?) AND (? = '' OR status = ?)"

	var count int
	err := s.db.QueryRowContext(ctx, query, string(kind), string(kind), string(status), string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count activity: %w", err)
	}

	return count, nil
}

// Cleanup removes records older than maxAge to prevent unbounded growth.
func (s *Store) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()

	result, err := s.db.ExecContext(ctx, "DELETE FROM activity WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old activity: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
