package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

// AccessLogStore is an in-memory append-only log of access decisions.
// It is intended for use in tests and dev environments.
type AccessLogStore struct {
	mu      sync.Mutex
	entries []types.AccessLog
}

func NewAccessLogStore() *AccessLogStore {
	return &AccessLogStore{}
}

func (s *AccessLogStore) AppendLog(_ context.Context, entry types.AccessLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *AccessLogStore) ListLogs(_ context.Context, limit int) ([]types.AccessLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.AccessLog, len(s.entries))
	copy(out, s.entries)
	// Append order is already chronological; the stable sort only matters
	// for entries that share a timestamp.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *AccessLogStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	var deleted int64
	for _, e := range s.entries {
		if e.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return deleted, nil
}

// Entries returns a copy of all entries in append order.  Test-only helper.
func (s *AccessLogStore) Entries() []types.AccessLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.AccessLog, len(s.entries))
	copy(out, s.entries)
	return out
}
