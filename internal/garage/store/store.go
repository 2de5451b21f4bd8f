package store

import (
	"context"
	"errors"
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicatePlate = errors.New("plate already registered")
)

// UserStore holds the roster. ListUsers returns users in creation order.
type UserStore interface {
	ListUsers(ctx context.Context) ([]types.AccessUser, error)
	// PutUser inserts u or replaces the user with the same id wholesale.
	PutUser(ctx context.Context, u types.AccessUser) error
	DeleteUser(ctx context.Context, id string) error
	// ReplaceAll swaps the whole roster in one step.
	ReplaceAll(ctx context.Context, users []types.AccessUser) error
}

// AccessLogStore persists access decisions as an append-only audit log.
type AccessLogStore interface {
	AppendLog(ctx context.Context, entry types.AccessLog) error
	// ListLogs returns up to limit entries, newest first. limit <= 0 means all.
	ListLogs(ctx context.Context, limit int) ([]types.AccessLog, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// TelemetryStore keeps the power/thermal history.
type TelemetryStore interface {
	RecordSample(ctx context.Context, s types.PowerSample) error
	LatestSample(ctx context.Context) (types.PowerSample, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
