package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

// MirroredLogStore writes every entry to Primary and copies it to Archive.
// Reads and pruning only touch Primary; the archive keeps full history.
// An archive failure is logged and does not fail the append.
type MirroredLogStore struct {
	Primary AccessLogStore
	Archive AccessLogStore
	Logger  *slog.Logger
}

func (m *MirroredLogStore) AppendLog(ctx context.Context, e types.AccessLog) error {
	if err := m.Primary.AppendLog(ctx, e); err != nil {
		return err
	}
	if err := m.Archive.AppendLog(ctx, e); err != nil {
		m.Logger.Warn("access log archive write failed", "log_id", e.ID, "error", err)
	}
	return nil
}

func (m *MirroredLogStore) ListLogs(ctx context.Context, limit int) ([]types.AccessLog, error) {
	return m.Primary.ListLogs(ctx, limit)
}

func (m *MirroredLogStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.Primary.PruneOlderThan(ctx, cutoff)
}
