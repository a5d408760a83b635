package storage

import (
	"context"
	"fmt"
	"time"
)

// Turn is one audited chat exchange. Path records which branch answered:
// "refusal", "template" or "generated".
type Turn struct {
	SessionKey string
	RequestID  string
	Message    string
	Response   string
	Intent     string
	Path       string
	CourseID   string
	CreatedAt  time.Time
}

// InsertTurn appends one turn to the audit log.
func (db *DB) InsertTurn(ctx context.Context, t Turn) error {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	const query = `
INSERT INTO turns (session_key, request_id, message, response, intent, path, course_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.conn.ExecContext(ctx, query,
		t.SessionKey, t.RequestID, t.Message, t.Response, t.Intent, t.Path, t.CourseID, createdAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	return nil
}

// PruneTurns deletes turns older than retention and returns how many rows
// were removed. Run periodically from a background job.
func (db *DB) PruneTurns(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()

	res, err := db.conn.ExecContext(ctx, `DELETE FROM turns WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune turns: %w", err)
	}
	return res.RowsAffected()
}

// CountTurns returns the number of logged turns.
func (db *DB) CountTurns(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM turns`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count turns: %w", err)
	}
	return n, nil
}

// RecentTurns returns the latest turns for a session, newest first.
func (db *DB) RecentTurns(ctx context.Context, sessionKey string, limit int) ([]Turn, error) {
	const query = `
SELECT session_key, request_id, message, response, intent, path, course_id, created_at
FROM turns WHERE session_key = ? ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query, sessionKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var createdAt int64
		if err := rows.Scan(&t.SessionKey, &t.RequestID, &t.Message, &t.Response,
			&t.Intent, &t.Path, &t.CourseID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		t.CreatedAt = time.Unix(createdAt, 0)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Ready verifies the database answers queries, for the readiness probe.
func (db *DB) Ready(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
