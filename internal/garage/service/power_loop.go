package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/garage/store"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

// PowerLoop drives the PowerThermalManager on a fixed period, persists a
// sample per tick and hands it to the publish hooks.
type PowerLoop struct {
	manager   *PowerThermalManager
	telemetry store.TelemetryStore
	interval  time.Duration
	hooks     []func(types.PowerSample)
	logger    *slog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewPowerLoop(m *PowerThermalManager, tm store.TelemetryStore, interval time.Duration, logger *slog.Logger) *PowerLoop {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &PowerLoop{
		manager:   m,
		telemetry: tm,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// OnSample registers fn to receive every sample. Must be called before Start.
func (l *PowerLoop) OnSample(fn func(types.PowerSample)) {
	l.hooks = append(l.hooks, fn)
}

func (l *PowerLoop) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	go l.loop(ctx)
	l.logger.Info("power loop started", "interval", l.interval)
}

// Stop signals the loop to exit and waits for it.
func (l *PowerLoop) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	<-l.done
}

func (l *PowerLoop) loop(ctx context.Context) {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now
			l.step(ctx, now.UTC(), elapsed)
		}
	}
}

func (l *PowerLoop) step(ctx context.Context, now time.Time, elapsed time.Duration) {
	if err := l.manager.Tick(elapsed); err != nil {
		l.logger.Warn("power tick skipped", "elapsed", elapsed, "error", err)
		return
	}

	smp := types.PowerSample{RecordedAt: now, PowerState: l.manager.State()}
	if l.telemetry != nil {
		if err := l.telemetry.RecordSample(ctx, smp); err != nil && ctx.Err() == nil {
			l.logger.Error("telemetry write failed", "error", err)
		}
	}
	for _, fn := range l.hooks {
		fn(smp)
	}
}
