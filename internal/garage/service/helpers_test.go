package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/clock"
	"github.com/saraatrapero/puerta-garaje/internal/garage/store/memory"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sensor satisfies both ObstructionSensor and ProximitySensor.
type sensor struct{ atomic.Bool }

func (s *sensor) Obstructed() bool { return s.Load() }
func (s *sensor) Present() bool    { return s.Load() }

type controllerRig struct {
	clk         *clock.Manual
	logs        *memory.AccessLogStore
	obstruction *sensor
	proximity   *sensor
	ctrl        *AccessController
	states      []types.DoorState
}

func newControllerRig(t *testing.T, cfg DoorConfig) *controllerRig {
	t.Helper()
	r := &controllerRig{
		clk:         clock.NewManual(t0),
		logs:        memory.NewAccessLogStore(),
		obstruction: &sensor{},
		proximity:   &sensor{},
	}
	r.ctrl = NewAccessController(cfg, ControllerDeps{
		Clock:       r.clk,
		Logs:        r.logs,
		Obstruction: r.obstruction,
		Proximity:   r.proximity,
		Logger:      discardLogger(),
	})
	r.ctrl.OnStateChange(func(s types.DoorState) { r.states = append(r.states, s) })
	return r
}

func (r *controllerRig) expectState(t *testing.T, want types.DoorState) {
	t.Helper()
	if got := r.ctrl.State(); got != want {
		t.Fatalf("state = %s, want %s", got, want)
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func permanent(id, name, plate string) types.AccessUser {
	return types.AccessUser{ID: id, Name: name, Plate: plate, Type: types.UserPermanent, Active: true, CreatedAt: t0}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

type failingLogStore struct{ memory.AccessLogStore }

func (*failingLogStore) AppendLog(context.Context, types.AccessLog) error {
	return errors.New("disk full")
}
