package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashureev/gatekeeper/internal/domain"
	_ "modernc.org/sqlite"
)

const defaultListLimit = 50

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS verifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		guild_id TEXT NOT NULL,
		username TEXT NOT NULL,
		answers_json TEXT NOT NULL,
		grant_state TEXT NOT NULL,
		grant_method TEXT,
		webhook_state TEXT NOT NULL,
		joined_at INTEGER NOT NULL,
		completed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_verifications_user ON verifications(user_id);
	CREATE INDEX IF NOT EXISTS idx_verifications_completed ON verifications(completed_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecordVerification stores a completed verification.
// SQLITE_BUSY errors are retried with exponential backoff.
func (s *SQLiteStore) RecordVerification(ctx context.Context, v *domain.Verification) error {
	answers, err := json.Marshal(v.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	query := `
	INSERT INTO verifications (
		session_id, user_id, guild_id, username, answers_json,
		grant_state, grant_method, webhook_state, joined_at, completed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var grantMethod interface{}
	if v.GrantMethod != "" {
		grantMethod = v.GrantMethod
	}

	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		res, err := s.db.ExecContext(ctx, query,
			v.SessionID, v.UserID, v.GuildID, v.Username, string(answers),
			v.GrantState, grantMethod, v.WebhookState,
			v.JoinedAt.Unix(), v.CompletedAt.Unix(),
		)
		if err == nil {
			id, idErr := res.LastInsertId()
			if idErr != nil {
				return fmt.Errorf("get inserted id: %w", idErr)
			}
			v.ID = id
			return nil
		}

		if isConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // exponential backoff: 50ms, 100ms, 200ms
			slog.Debug("RecordVerification failed with SQLITE_BUSY, retrying",
				"user_id", v.UserID,
				"attempt", i+1,
				"delay", delay)
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return fmt.Errorf("record verification: %w", ctx.Err())
			}
		}
		return fmt.Errorf("record verification: %w", err)
	}

	return nil
}

// ListVerifications returns the most recent verifications.
func (s *SQLiteStore) ListVerifications(ctx context.Context, limit int) ([]*domain.Verification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `
		SELECT id, session_id, user_id, guild_id, username, answers_json,
		       grant_state, grant_method, webhook_state, joined_at, completed_at
		FROM verifications ORDER BY completed_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query verifications: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close verification rows", "error", closeErr)
		}
	}()

	var out []*domain.Verification
	for rows.Next() {
		var v domain.Verification
		var answersJSON string
		var grantMethod sql.NullString
		var joinedAt, completedAt int64

		if err := rows.Scan(
			&v.ID, &v.SessionID, &v.UserID, &v.GuildID, &v.Username, &answersJSON,
			&v.GrantState, &grantMethod, &v.WebhookState, &joinedAt, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("scan verification row: %w", err)
		}
		if err := json.Unmarshal([]byte(answersJSON), &v.Answers); err != nil {
			return nil, fmt.Errorf("decode answers for verification %d: %w", v.ID, err)
		}
		v.GrantMethod = grantMethod.String
		v.JoinedAt = time.Unix(joinedAt, 0).UTC()
		v.CompletedAt = time.Unix(completedAt, 0).UTC()
		out = append(out, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verifications: %w", err)
	}

	return out, nil
}

// CountVerifications returns the number of verifications recorded for a user.
func (s *SQLiteStore) CountVerifications(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM verifications WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count verifications: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// isConflictError reports SQLite busy/locked errors that warrant a retry.
func isConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

var _ Repository = (*SQLiteStore)(nil)
