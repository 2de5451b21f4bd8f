package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/saraatrapero/puerta-garaje/internal/clock"
	"github.com/saraatrapero/puerta-garaje/internal/garage/store"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

// Summarizer turns recent log entries into a short human-readable digest.
// Implementations are best effort and return a placeholder on failure.
type Summarizer interface {
	Summarize(ctx context.Context, logs []types.AccessLog) string
}

// Digest is the most recent log summary.
type Digest struct {
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generated_at"`
	Entries     int       `json:"entries"`
}

// DigestJob summarises the latest access log entries on a cron schedule and
// keeps the last result for the API.
type DigestJob struct {
	logs       store.AccessLogStore
	summarizer Summarizer
	window     int
	clock      clock.Clock
	logger     *slog.Logger

	mu     sync.RWMutex
	latest Digest
	cron   *cron.Cron
}

// NewDigestJob summarises at most window entries per run (default 20).
func NewDigestJob(logs store.AccessLogStore, s Summarizer, window int, clk clock.Clock, logger *slog.Logger) *DigestJob {
	if window <= 0 {
		window = 20
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &DigestJob{logs: logs, summarizer: s, window: window, clock: clk, logger: logger}
}

// Run produces a digest now and stores it as the latest one.
func (j *DigestJob) Run(ctx context.Context) (Digest, error) {
	entries, err := j.logs.ListLogs(ctx, j.window)
	if err != nil {
		return Digest{}, fmt.Errorf("list logs: %w", err)
	}

	d := Digest{
		Text:        j.summarizer.Summarize(ctx, entries),
		GeneratedAt: j.clock.Now(),
		Entries:     len(entries),
	}

	j.mu.Lock()
	j.latest = d
	j.mu.Unlock()

	j.logger.Info("log digest generated", "entries", d.Entries)
	return d, nil
}

// Latest returns the last digest; ok is false before the first run.
func (j *DigestJob) Latest() (Digest, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.latest, !j.latest.GeneratedAt.IsZero()
}

// Start schedules Run with a six-field (seconds) cron spec. An empty spec
// leaves the job manual-only.
func (j *DigestJob) Start(ctx context.Context, spec string) error {
	if spec == "" {
		j.logger.Info("log digest schedule disabled")
		return nil
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(spec, func() {
		if _, err := j.Run(ctx); err != nil && ctx.Err() == nil {
			j.logger.Error("log digest failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("digest schedule %q: %w", spec, err)
	}

	j.mu.Lock()
	j.cron = c
	j.mu.Unlock()

	c.Start()
	j.logger.Info("log digest scheduled", "spec", spec)
	return nil
}

// Stop waits for a running digest to finish.
func (j *DigestJob) Stop() {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}
