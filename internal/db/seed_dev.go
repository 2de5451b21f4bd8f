package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type seedUser struct {
	name     string
	phone    string
	plate    string
	userType string
	window   time.Duration // TEMPORARY only
}

var devRoster = []seedUser{
	{name: "Admin Principal", phone: "+34600112233", plate: "1234ABC", userType: "PERMANENT"},
	{name: "Visitante Demo", phone: "+34611223344", plate: "5678DEF", userType: "TEMPORARY", window: 7 * 24 * time.Hour},
}

// SeedUserID derives a stable id for a seeded plate so reseeding is idempotent.
func SeedUserID(plate string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("garage-seed:"+plate)).String()
}

// SeedDev inserts the demo roster. Existing rows are left untouched.
func SeedDev(ctx context.Context, db *sql.DB) error {
	now := time.Now().UTC()
	nowMs := now.UnixMilli()

	for i, u := range devRoster {
		var startMs, endMs any
		if u.window > 0 {
			startMs = nowMs
			endMs = now.Add(u.window).UnixMilli()
		}
		if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO users(
  user_id, name, phone, plate, user_type, active,
  starts_at_ms, ends_at_ms, created_at_ms
) VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?);`,
			SeedUserID(u.plate), u.name, u.phone, u.plate, u.userType,
			startMs, endMs, nowMs+int64(i),
		); err != nil {
			return fmt.Errorf("seed user %s: %w", u.plate, err)
		}
	}
	return nil
}
