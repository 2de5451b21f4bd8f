package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/saraatrapero/puerta-garaje/internal/db"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

type AccessLogStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccessLogStore(db *sql.DB, writer *dbpkg.Worker) *AccessLogStore {
	return &AccessLogStore{db: db, writer: writer}
}

func (s *AccessLogStore) AppendLog(ctx context.Context, e types.AccessLog) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var reason any
	if e.Reason != "" {
		reason = e.Reason
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_logs(
  log_id, logged_at_ms, user_name, plate, action, method, reason
) VALUES (?, ?, ?, ?, ?, ?, ?);
`,
			e.ID, e.Timestamp.UTC().UnixMilli(), e.UserName, e.Plate,
			string(e.Action), string(e.Method), reason,
		); err != nil {
			return fmt.Errorf("AppendLog insert: %w", err)
		}
		return nil
	})
}

// ListLogs orders by timestamp, with the insert sequence breaking ties
// between entries logged in the same millisecond.
func (s *AccessLogStore) ListLogs(ctx context.Context, limit int) ([]types.AccessLog, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT log_id, logged_at_ms, user_name, plate, action, method, reason
FROM access_logs
ORDER BY logged_at_ms DESC, seq DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("ListLogs query: %w", err)
	}
	defer rows.Close()

	var out []types.AccessLog
	for rows.Next() {
		var (
			e        types.AccessLog
			loggedMs int64
			action   string
			method   string
			reason   sql.NullString
		)
		if err := rows.Scan(&e.ID, &loggedMs, &e.UserName, &e.Plate, &action, &method, &reason); err != nil {
			return nil, fmt.Errorf("ListLogs scan: %w", err)
		}
		e.Timestamp = time.UnixMilli(loggedMs).UTC()
		e.Action = types.Action(action)
		e.Method = types.Method(method)
		e.Reason = reason.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListLogs rows: %w", err)
	}
	return out, nil
}

// PruneOlderThan is the only path that removes log rows; it exists to bound
// the table on a device with limited flash.
func (s *AccessLogStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM access_logs
WHERE logged_at_ms < ?;
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan access_logs: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}
