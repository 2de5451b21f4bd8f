package service

import (
	"context"
	"testing"
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/clock"
	"github.com/saraatrapero/puerta-garaje/internal/garage/store/memory"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

// ── RetentionPruner ──────────────────────────────────────────────────────────

func TestRetentionPruner_PruneOnce(t *testing.T) {
	ctx := context.Background()
	logs := memory.NewAccessLogStore()
	tm := memory.NewTelemetryStore()

	for _, age := range []time.Duration{100 * 24 * time.Hour, 24 * time.Hour} {
		logs.AppendLog(ctx, types.AccessLog{ID: age.String(), Timestamp: t0.Add(-age)})
		tm.RecordSample(ctx, types.PowerSample{RecordedAt: t0.Add(-age)})
	}
	tm.RecordSample(ctx, types.PowerSample{RecordedAt: t0.Add(-8 * 24 * time.Hour)})

	p := NewRetentionPruner(logs, tm, PrunerConfig{LogRetentionDays: 90, TelemetryRetentionDays: 7}, discardLogger())
	p.PruneOnce(ctx, t0)

	if got := logs.Entries(); len(got) != 1 || got[0].ID != (24*time.Hour).String() {
		t.Errorf("unexpected logs after prune: %+v", got)
	}
	if n := tm.Len(); n != 1 {
		t.Errorf("expected 1 sample after prune, got %d", n)
	}
}

func TestRetentionPruner_ZeroKeepsForever(t *testing.T) {
	ctx := context.Background()
	logs := memory.NewAccessLogStore()
	logs.AppendLog(ctx, types.AccessLog{ID: "old", Timestamp: t0.AddDate(-5, 0, 0)})

	p := NewRetentionPruner(logs, nil, PrunerConfig{LogRetentionDays: 0, TelemetryRetentionDays: 0}, discardLogger())
	p.PruneOnce(ctx, t0)
	if len(logs.Entries()) != 1 {
		t.Fatal("retention 0 must keep everything")
	}

	// Disabled pruner: Stop returns without a running loop.
	p.Start(ctx)
	p.Stop()
}

func TestRetentionPruner_StartStop(t *testing.T) {
	ctx := context.Background()
	logs := memory.NewAccessLogStore()
	logs.AppendLog(ctx, types.AccessLog{ID: "old", Timestamp: time.Now().UTC().AddDate(-1, 0, 0)})

	p := NewRetentionPruner(logs, nil, PrunerConfig{LogRetentionDays: 30, Interval: time.Hour}, discardLogger())
	p.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for len(logs.Entries()) != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	p.Stop()

	if n := len(logs.Entries()); n != 0 {
		t.Fatalf("initial prune did not run, %d entries left", n)
	}
}

// ── PowerLoop ────────────────────────────────────────────────────────────────

func TestPowerLoop_Step(t *testing.T) {
	m, _ := newManager(t, 50, 30)
	tm := memory.NewTelemetryStore()
	l := NewPowerLoop(m, tm, 0, discardLogger())

	var seen []types.PowerSample
	l.OnSample(func(s types.PowerSample) { seen = append(seen, s) })

	ctx := context.Background()
	l.step(ctx, t0, 2*time.Second)
	l.step(ctx, t0.Add(time.Second), 0)

	if tm.Len() != 1 || len(seen) != 1 {
		t.Fatalf("expected one persisted and published sample, got %d/%d", tm.Len(), len(seen))
	}
	latest, err := tm.LatestSample(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !latest.RecordedAt.Equal(t0) || !approx(latest.Level, 49.9) || latest != seen[0] {
		t.Errorf("unexpected sample: %+v", latest)
	}
}

func TestPowerLoop_StartStop(t *testing.T) {
	m, _ := newManager(t, 50, 30)
	tm := memory.NewTelemetryStore()
	l := NewPowerLoop(m, tm, 10*time.Millisecond, discardLogger())
	l.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for tm.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	l.Stop()

	if tm.Len() == 0 {
		t.Fatal("loop never ticked")
	}
	if m.State().Level >= 50 {
		t.Error("ticks should drain the battery")
	}
}

// ── DigestJob ────────────────────────────────────────────────────────────────

type countingSummarizer struct{ got []int }

func (s *countingSummarizer) Summarize(_ context.Context, logs []types.AccessLog) string {
	s.got = append(s.got, len(logs))
	return "quiet day"
}

func TestDigestJob_Run(t *testing.T) {
	ctx := context.Background()
	logs := memory.NewAccessLogStore()
	for i := 0; i < 5; i++ {
		logs.AppendLog(ctx, types.AccessLog{ID: string(rune('a' + i)), Timestamp: t0.Add(time.Duration(i) * time.Minute)})
	}
	sum := &countingSummarizer{}
	clk := clock.NewManual(t0.Add(time.Hour))
	j := NewDigestJob(logs, sum, 3, clk, discardLogger())

	if _, ok := j.Latest(); ok {
		t.Fatal("no digest before the first run")
	}
	d, err := j.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d.Text != "quiet day" || d.Entries != 3 || !d.GeneratedAt.Equal(clk.Now()) {
		t.Errorf("unexpected digest: %+v", d)
	}
	if latest, ok := j.Latest(); !ok || latest != d {
		t.Errorf("Latest = %+v, %v", latest, ok)
	}
	if len(sum.got) != 1 || sum.got[0] != 3 {
		t.Errorf("summarizer saw %v", sum.got)
	}
}

func TestDigestJob_Schedule(t *testing.T) {
	j := NewDigestJob(memory.NewAccessLogStore(), &countingSummarizer{}, 0, nil, discardLogger())
	ctx := context.Background()

	if err := j.Start(ctx, "every tuesday"); err == nil {
		t.Fatal("expected an error for an invalid cron expression")
	}
	if err := j.Start(ctx, ""); err != nil {
		t.Fatalf("empty schedule: %v", err)
	}
	if err := j.Start(ctx, "0 0 7 * * *"); err != nil {
		t.Fatalf("valid schedule: %v", err)
	}
	j.Stop()
	j.Stop()
}
