package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/saraatrapero/puerta-garaje/internal/db"
	"github.com/saraatrapero/puerta-garaje/internal/garage/store"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

type TelemetryStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewTelemetryStore(db *sql.DB, writer *dbpkg.Worker) *TelemetryStore {
	return &TelemetryStore{db: db, writer: writer}
}

func (s *TelemetryStore) RecordSample(ctx context.Context, smp types.PowerSample) error {
	if smp.RecordedAt.IsZero() {
		smp.RecordedAt = time.Now().UTC()
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO power_samples(
  recorded_at_ms, battery_level, charging_requested, charging, busy, cpu_temp_c
) VALUES (?, ?, ?, ?, ?, ?);
`,
			smp.RecordedAt.UTC().UnixMilli(), smp.Level,
			boolInt(smp.ChargingRequested), boolInt(smp.Charging), boolInt(smp.Busy),
			smp.CPUTemp,
		); err != nil {
			return fmt.Errorf("RecordSample insert: %w", err)
		}
		return nil
	})
}

func (s *TelemetryStore) LatestSample(ctx context.Context) (types.PowerSample, error) {
	var (
		smp        types.PowerSample
		recordedMs int64
		requested  int
		charging   int
		busy       int
	)
	err := s.db.QueryRowContext(ctx, `
SELECT recorded_at_ms, battery_level, charging_requested, charging, busy, cpu_temp_c
FROM power_samples
ORDER BY recorded_at_ms DESC, sample_id DESC
LIMIT 1;
`).Scan(&recordedMs, &smp.Level, &requested, &charging, &busy, &smp.CPUTemp)
	if errors.Is(err, sql.ErrNoRows) {
		return types.PowerSample{}, store.ErrNotFound
	}
	if err != nil {
		return types.PowerSample{}, fmt.Errorf("LatestSample query: %w", err)
	}

	smp.RecordedAt = time.UnixMilli(recordedMs).UTC()
	smp.ChargingRequested = requested == 1
	smp.Charging = charging == 1
	smp.Busy = busy == 1
	return smp, nil
}

// PruneOlderThan uses the idx_power_samples_time index for the range scan.
func (s *TelemetryStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM power_samples
WHERE recorded_at_ms < ?;
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan power_samples: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
