package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/garage/store"
)

// RetentionPruner periodically deletes access log entries and power samples
// older than their retention windows. It bounds the otherwise append-only
// tables on a device with limited storage.
//
// A retention of 0 keeps that table forever; with both at 0 the pruner does
// not start.
type RetentionPruner struct {
	logs         store.AccessLogStore
	telemetry    store.TelemetryStore
	logRetention time.Duration
	tmRetention  time.Duration
	interval     time.Duration
	logger       *slog.Logger
	cancel       context.CancelFunc
	done         chan struct{}
}

// PrunerConfig holds the parameters for NewRetentionPruner.
type PrunerConfig struct {
	LogRetentionDays       int
	TelemetryRetentionDays int

	// Interval is how often the pruner runs.  Defaults to 6h.
	Interval time.Duration
}

// NewRetentionPruner creates a pruner but does not start it.
func NewRetentionPruner(logs store.AccessLogStore, tm store.TelemetryStore, cfg PrunerConfig, logger *slog.Logger) *RetentionPruner {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	return &RetentionPruner{
		logs:         logs,
		telemetry:    tm,
		logRetention: time.Duration(cfg.LogRetentionDays) * 24 * time.Hour,
		tmRetention:  time.Duration(cfg.TelemetryRetentionDays) * 24 * time.Hour,
		interval:     interval,
		logger:       logger,
		done:         make(chan struct{}),
	}
}

// Start runs an immediate prune, then repeats on the configured interval
// until ctx is cancelled or Stop is called.
func (p *RetentionPruner) Start(ctx context.Context) {
	if p.logRetention <= 0 && p.tmRetention <= 0 {
		p.logger.Info("retention pruner disabled")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)

	go p.loop(ctx)

	p.logger.Info("retention pruner started",
		"log_retention", p.logRetention, "telemetry_retention", p.tmRetention, "interval", p.interval)
}

// Stop signals the pruner to exit and waits for it to finish.
func (p *RetentionPruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *RetentionPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.PruneOnce(ctx, time.Now().UTC())

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			p.PruneOnce(ctx, t.UTC())
		}
	}
}

// PruneOnce applies both retentions relative to now.
func (p *RetentionPruner) PruneOnce(ctx context.Context, now time.Time) {
	if p.logRetention > 0 && p.logs != nil {
		p.prune(ctx, "access_logs", p.logs.PruneOlderThan, now.Add(-p.logRetention))
	}
	if p.tmRetention > 0 && p.telemetry != nil {
		p.prune(ctx, "power_samples", p.telemetry.PruneOlderThan, now.Add(-p.tmRetention))
	}
}

func (p *RetentionPruner) prune(ctx context.Context, table string, fn func(context.Context, time.Time) (int64, error), cutoff time.Time) {
	deleted, err := fn(ctx, cutoff)
	if err != nil {
		p.logger.Error("prune failed", "table", table, "error", err)
		return
	}
	if deleted > 0 {
		p.logger.Info("pruned rows", "table", table, "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}
}
