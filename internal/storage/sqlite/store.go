// Package sqlite provides SQLite-backed persistence for session activity.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sqlitemigrate "github.com/hushwing/mediadeck/internal/platform/storage/sqlitemigrate"
	"github.com/hushwing/mediadeck/internal/storage"
	"github.com/hushwing/mediadeck/internal/storage/filter"
	"github.com/hushwing/mediadeck/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Store provides SQLite-backed persistence for session activity.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens an activity SQLite store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) runMigrations() error {
	return sqlitemigrate.ApplyMigrations(s.sqlDB, migrations.FS, "")
}

// AppendActivity records one session state transition.
func (s *Store) AppendActivity(ctx context.Context, event storage.ActivityEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(event.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(event.Kind) == "" {
		return fmt.Errorf("event kind is required")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO activity (session_id, kind, playback, audible, members, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.SessionID,
		event.Kind,
		event.Playback,
		boolToInt(event.Audible),
		event.Members,
		toMillis(event.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// ListActivity returns activity events ordered by insertion, newest first.
func (s *Store) ListActivity(ctx context.Context, query storage.ListActivityQuery) (storage.ActivityPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.ActivityPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ActivityPage{}, fmt.Errorf("storage is not configured")
	}

	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	cond, err := filter.ParseActivityFilter(query.Filter)
	if err != nil {
		return storage.ActivityPage{}, fmt.Errorf("parse activity filter: %w", err)
	}

	clauses := make([]string, 0, 2)
	params := make([]any, 0, len(cond.Params)+2)
	if cond.Clause != "" {
		clauses = append(clauses, cond.Clause)
		params = append(params, cond.Params...)
	}

	if token := strings.TrimSpace(query.PageToken); token != "" {
		beforeID, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return storage.ActivityPage{}, fmt.Errorf("invalid page token: %q", token)
		}
		clauses = append(clauses, "id < ?")
		params = append(params, beforeID)
	}

	sqlQuery := "SELECT id, session_id, kind, playback, audible, members, timestamp FROM activity"
	if len(clauses) > 0 {
		sqlQuery += " WHERE " + strings.Join(clauses, " AND ")
	}
	// Fetch one extra row to detect whether a next page exists.
	sqlQuery += " ORDER BY id DESC LIMIT ?"
	params = append(params, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, sqlQuery, params...)
	if err != nil {
		return storage.ActivityPage{}, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	events := make([]storage.ActivityEvent, 0, pageSize)
	for rows.Next() {
		var event storage.ActivityEvent
		var audible int
		var millis int64
		if err := rows.Scan(&event.ID, &event.SessionID, &event.Kind, &event.Playback, &audible, &event.Members, &millis); err != nil {
			return storage.ActivityPage{}, fmt.Errorf("scan activity row: %w", err)
		}
		event.Audible = audible != 0
		event.Timestamp = fromMillis(millis)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return storage.ActivityPage{}, fmt.Errorf("iterate activity rows: %w", err)
	}

	page := storage.ActivityPage{}
	if len(events) > pageSize {
		events = events[:pageSize]
		page.NextPageToken = strconv.FormatInt(events[len(events)-1].ID, 10)
	}
	page.Events = events
	return page, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
