package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	dbpkg "github.com/saraatrapero/puerta-garaje/internal/db"
	"github.com/saraatrapero/puerta-garaje/internal/garage/store"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

type UserStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewUserStore(db *sql.DB, writer *dbpkg.Worker) *UserStore {
	return &UserStore{db: db, writer: writer}
}

func (s *UserStore) ListUsers(ctx context.Context) ([]types.AccessUser, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id, name, phone, plate, user_type, active,
       starts_at_ms, ends_at_ms, created_at_ms
FROM users
ORDER BY created_at_ms, rowid;
`)
	if err != nil {
		return nil, fmt.Errorf("ListUsers query: %w", err)
	}
	defer rows.Close()

	var out []types.AccessUser
	for rows.Next() {
		var (
			u         types.AccessUser
			userType  string
			active    int
			startsMs  sql.NullInt64
			endsMs    sql.NullInt64
			createdMs int64
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Phone, &u.Plate, &userType, &active,
			&startsMs, &endsMs, &createdMs); err != nil {
			return nil, fmt.Errorf("ListUsers scan: %w", err)
		}
		u.Type = types.UserType(userType)
		u.Active = active == 1
		u.StartsAt = msPtr(startsMs)
		u.EndsAt = msPtr(endsMs)
		u.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListUsers rows: %w", err)
	}
	return out, nil
}

func (s *UserStore) PutUser(ctx context.Context, u types.AccessUser) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return upsertUser(ctx, tx, u)
	})
}

func (s *UserStore) DeleteUser(ctx context.Context, id string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?;`, id)
		if err != nil {
			return fmt.Errorf("DeleteUser: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (s *UserStore) ReplaceAll(ctx context.Context, users []types.AccessUser) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM users;`); err != nil {
			return fmt.Errorf("ReplaceAll clear: %w", err)
		}
		for _, u := range users {
			if err := upsertUser(ctx, tx, u); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertUser(ctx context.Context, tx *sql.Tx, u types.AccessUser) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	active := 0
	if u.Active {
		active = 1
	}

	_, err := tx.ExecContext(ctx, `
INSERT INTO users(
  user_id, name, phone, plate, user_type, active,
  starts_at_ms, ends_at_ms, created_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
  name         = excluded.name,
  phone        = excluded.phone,
  plate        = excluded.plate,
  user_type    = excluded.user_type,
  active       = excluded.active,
  starts_at_ms = excluded.starts_at_ms,
  ends_at_ms   = excluded.ends_at_ms;
`,
		u.ID, u.Name, u.Phone, u.Plate, string(u.Type), active,
		timePtrMs(u.StartsAt), timePtrMs(u.EndsAt), u.CreatedAt.UTC().UnixMilli(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", store.ErrDuplicatePlate, u.Plate)
	}
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}

// isUniqueViolation matches both the extended and the primary result code,
// since extended codes depend on how the connection was opened.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}

func msPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

func timePtrMs(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().UnixMilli()
}
