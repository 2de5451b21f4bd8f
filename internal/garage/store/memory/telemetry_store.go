package memory

import (
	"context"
	"sync"
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/garage/store"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

type TelemetryStore struct {
	mu      sync.RWMutex
	samples []types.PowerSample
}

func NewTelemetryStore() *TelemetryStore {
	return &TelemetryStore{}
}

func (s *TelemetryStore) RecordSample(_ context.Context, smp types.PowerSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if smp.RecordedAt.IsZero() {
		smp.RecordedAt = time.Now().UTC()
	}
	s.samples = append(s.samples, smp)
	return nil
}

func (s *TelemetryStore) LatestSample(_ context.Context) (types.PowerSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.samples) == 0 {
		return types.PowerSample{}, store.ErrNotFound
	}
	return s.samples[len(s.samples)-1], nil
}

func (s *TelemetryStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.samples[:0]
	var deleted int64
	for _, smp := range s.samples {
		if smp.RecordedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, smp)
	}
	s.samples = kept
	return deleted, nil
}

func (s *TelemetryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}
