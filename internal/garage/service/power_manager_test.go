package service

import (
	"errors"
	"testing"
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/clock"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

func newManager(t *testing.T, level, temp float64) (*PowerThermalManager, *clock.Manual) {
	t.Helper()
	cfg := DefaultPowerConfig()
	cfg.InitialLevel = level
	cfg.InitialTemp = temp
	clk := clock.NewManual(t0)
	return NewPowerThermalManager(cfg, clk), clk
}

func mustTick(t *testing.T, m *PowerThermalManager, d time.Duration) types.PowerState {
	t.Helper()
	if err := m.Tick(d); err != nil {
		t.Fatalf("Tick(%s): %v", d, err)
	}
	return m.State()
}

func TestDefaultPowerConfig(t *testing.T) {
	m, _ := newManager(t, DefaultPowerConfig().InitialLevel, DefaultPowerConfig().InitialTemp)
	st := m.State()
	if st.Level != 15 || st.CPUTemp != 35 || st.ChargingRequested || st.Charging || st.Busy {
		t.Fatalf("unexpected initial state: %+v", st)
	}
}

func TestTick_DrainAndCharge(t *testing.T) {
	m, _ := newManager(t, 50, 30)

	st := mustTick(t, m, 2*time.Second)
	if !approx(st.Level, 49.9) {
		t.Errorf("level after drain = %v, want 49.9", st.Level)
	}

	m.SetChargingRequested(true)
	st = mustTick(t, m, 2*time.Second)
	if !approx(st.Level, 50.4) {
		t.Errorf("level after charge = %v, want 50.4", st.Level)
	}
}

func TestTick_Hysteresis(t *testing.T) {
	m, _ := newManager(t, 50, 30)

	// Draining through the middle band never raises the request.
	st := mustTick(t, m, 100*time.Second)
	if st.ChargingRequested || !approx(st.Level, 45) {
		t.Fatalf("after 100s: %+v", st)
	}

	st = mustTick(t, m, 700*time.Second)
	if !st.ChargingRequested || !st.Charging {
		t.Fatalf("request should latch on at the low threshold: %+v", st)
	}

	// Charging through the middle band keeps the request.
	st = mustTick(t, m, 100*time.Second)
	if !st.ChargingRequested || st.Level <= 30 || st.Level >= 40 {
		t.Fatalf("after charging 100s: %+v", st)
	}

	st = mustTick(t, m, 400*time.Second)
	if st.ChargingRequested || st.Charging || st.Level != 100 {
		t.Fatalf("request should latch off at full: %+v", st)
	}
}

func TestTick_LowBatteryScenario(t *testing.T) {
	m, _ := newManager(t, 12, 35)

	st := mustTick(t, m, 2*time.Second)
	if st.ChargingRequested || !approx(st.Level, 11.9) {
		t.Fatalf("12%% should still drain: %+v", st)
	}
	for i := 0; i < 30 && !st.ChargingRequested; i++ {
		st = mustTick(t, m, 2*time.Second)
	}
	if !st.ChargingRequested || !st.Charging {
		t.Fatalf("expected charging once at or below 10%%: %+v", st)
	}
	if st.Level > 10 || !m.Critical() {
		t.Errorf("request latched above the threshold: %+v", st)
	}

	st = mustTick(t, m, 2*time.Second)
	if st.Level <= 10 || !st.ChargingRequested {
		t.Errorf("expected the level to recover while the request holds: %+v", st)
	}
}

func TestTick_RejectsNonPositiveElapsed(t *testing.T) {
	m, _ := newManager(t, 50, 30)
	before := m.State()

	for _, d := range []time.Duration{0, -time.Second} {
		if err := m.Tick(d); !errors.Is(err, ErrNonPositiveElapsed) {
			t.Errorf("Tick(%s) = %v, want ErrNonPositiveElapsed", d, err)
		}
	}
	if m.State() != before {
		t.Errorf("state changed after rejected ticks: %+v", m.State())
	}
}

func TestTick_LevelClamped(t *testing.T) {
	m, _ := newManager(t, 1, 30)
	m.SetBusy(true)
	st := mustTick(t, m, time.Hour)
	if st.Level != 0 {
		t.Errorf("level = %v, want 0", st.Level)
	}
}

func TestBusyGatesCharging(t *testing.T) {
	m, _ := newManager(t, 50, 30)
	m.SetChargingRequested(true)
	if !m.EffectiveCharging() {
		t.Fatal("expected charging")
	}

	m.SetBusy(true)
	st := m.State()
	if st.Charging || !st.ChargingRequested || !st.Busy {
		t.Fatalf("busy must stop charging but keep the request: %+v", st)
	}
	st = mustTick(t, m, 2*time.Second)
	if st.Charging || st.Level >= 50 {
		t.Fatalf("busy tick should drain: %+v", st)
	}

	m.SetBusy(false)
	if !m.EffectiveCharging() {
		t.Fatal("charging should resume when idle")
	}
}

func TestThermalTargets(t *testing.T) {
	t.Run("idle cools to base", func(t *testing.T) {
		m, _ := newManager(t, 50, 35)
		if st := mustTick(t, m, 10*time.Second); !approx(st.CPUTemp, 34) {
			t.Errorf("temp = %v, want 34", st.CPUTemp)
		}
		if st := mustTick(t, m, time.Minute); st.CPUTemp != 30 {
			t.Errorf("temp = %v, want 30", st.CPUTemp)
		}
	})

	t.Run("charging heats to base plus delta", func(t *testing.T) {
		m, _ := newManager(t, 50, 35)
		m.SetChargingRequested(true)
		if st := mustTick(t, m, 10*time.Second); !approx(st.CPUTemp, 37.5) {
			t.Errorf("temp = %v, want 37.5", st.CPUTemp)
		}
		if st := mustTick(t, m, 100*time.Second); st.CPUTemp != 40 {
			t.Errorf("temp = %v, want 40 without overshoot", st.CPUTemp)
		}
	})

	t.Run("busy heats to base plus busy delta", func(t *testing.T) {
		m, _ := newManager(t, 90, 35)
		m.SetBusy(true)
		if st := mustTick(t, m, time.Hour); st.CPUTemp != 45 {
			t.Errorf("temp = %v, want 45", st.CPUTemp)
		}
	})
}

func TestSchedule(t *testing.T) {
	outside := func(clk *clock.Manual) types.ChargeSchedule {
		h := clk.Now().Local().Hour()
		return types.ChargeSchedule{Enabled: true, StartHour: (h + 1) % 24, EndHour: (h + 2) % 24}
	}

	t.Run("blocks charging outside hours", func(t *testing.T) {
		m, clk := newManager(t, 50, 30)
		m.SetSchedule(outside(clk))
		m.SetChargingRequested(true)
		if m.EffectiveCharging() {
			t.Fatal("charging outside the schedule")
		}
		if m.Schedule() != outside(clk) {
			t.Error("schedule not stored")
		}

		m.SetSchedule(types.ChargeSchedule{})
		if !m.EffectiveCharging() {
			t.Fatal("disabled schedule should permit charging")
		}
	})

	t.Run("critical level overrides", func(t *testing.T) {
		m, clk := newManager(t, 5, 30)
		m.SetSchedule(outside(clk))
		m.SetChargingRequested(true)
		if !m.EffectiveCharging() {
			t.Fatal("critical battery should charge outside the schedule")
		}
	})
}
