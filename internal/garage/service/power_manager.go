package service

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/clock"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

var ErrNonPositiveElapsed = errors.New("tick elapsed time must be positive")

// PowerConfig rates are per second so the model does not depend on the
// tick period.
type PowerConfig struct {
	ChargeRate float64 // % per second while charging
	DrainRate  float64 // % per second otherwise

	LowThreshold  float64 // latch on at or below
	HighThreshold float64 // latch off at or above

	BaseTemp    float64
	ChargeDelta float64
	BusyDelta   float64
	HeatRate    float64 // °C per second towards a higher target
	CoolRate    float64 // °C per second towards a lower target

	InitialLevel float64
	InitialTemp  float64

	Schedule types.ChargeSchedule
}

// DefaultPowerConfig is the canonical constant set: 0.5%/0.1% per 2 s tick,
// latch 10..100, 30 °C base, +10 charging, +15 busy, 0.5/0.2 °C per tick.
func DefaultPowerConfig() PowerConfig {
	return PowerConfig{
		ChargeRate:    0.25,
		DrainRate:     0.05,
		LowThreshold:  10,
		HighThreshold: 100,
		BaseTemp:      30,
		ChargeDelta:   10,
		BusyDelta:     15,
		HeatRate:      0.25,
		CoolRate:      0.1,
		InitialLevel:  15,
		InitialTemp:   35,
	}
}

// PowerThermalManager simulates battery level and CPU temperature from two
// drivers: the charging latch and the busy signal. effectiveCharging is
// recomputed on every mutation, so it is never observable as true while busy.
type PowerThermalManager struct {
	cfg   PowerConfig
	clock clock.Clock

	mu        sync.RWMutex
	level     float64
	temp      float64
	requested bool
	busy      bool
	charging  bool
}

func NewPowerThermalManager(cfg PowerConfig, clk clock.Clock) *PowerThermalManager {
	if clk == nil {
		clk = clock.Real{}
	}
	return &PowerThermalManager{
		cfg:   cfg,
		clock: clk,
		level: clamp(cfg.InitialLevel, 0, 100),
		temp:  cfg.InitialTemp,
	}
}

// Tick advances the model by elapsed. Non-positive durations are rejected
// and leave the state untouched.
func (m *PowerThermalManager) Tick(elapsed time.Duration) error {
	if elapsed <= 0 {
		return ErrNonPositiveElapsed
	}
	dt := elapsed.Seconds()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.charging {
		m.level += m.cfg.ChargeRate * dt
	} else {
		m.level -= m.cfg.DrainRate * dt
	}
	m.level = clamp(m.level, 0, 100)

	// Latch before gating: the new level decides the request.
	switch {
	case m.level <= m.cfg.LowThreshold:
		m.requested = true
	case m.level >= m.cfg.HighThreshold:
		m.requested = false
	}
	m.recomputeLocked()

	target := m.cfg.BaseTemp
	if m.charging {
		target += m.cfg.ChargeDelta
	}
	if m.busy {
		target += m.cfg.BusyDelta
	}
	if m.temp < target {
		m.temp = math.Min(target, m.temp+m.cfg.HeatRate*dt)
	} else {
		m.temp = math.Max(target, m.temp-m.cfg.CoolRate*dt)
	}
	return nil
}

// SetBusy gates charging immediately; the thermal target follows on the
// next tick.
func (m *PowerThermalManager) SetBusy(busy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = busy
	m.recomputeLocked()
}

// SetChargingRequested overrides the latch (manual charge button). The
// hysteresis rule takes over again from the next tick.
func (m *PowerThermalManager) SetChargingRequested(requested bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requested = requested
	m.recomputeLocked()
}

func (m *PowerThermalManager) SetSchedule(s types.ChargeSchedule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Schedule = s
	m.recomputeLocked()
}

func (m *PowerThermalManager) Schedule() types.ChargeSchedule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Schedule
}

func (m *PowerThermalManager) EffectiveCharging() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.charging
}

// Critical reports whether the level is at or below the low threshold.
func (m *PowerThermalManager) Critical() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.level <= m.cfg.LowThreshold
}

func (m *PowerThermalManager) State() types.PowerState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return types.PowerState{
		Level:             m.level,
		ChargingRequested: m.requested,
		Charging:          m.charging,
		Busy:              m.busy,
		CPUTemp:           m.temp,
	}
}

// recomputeLocked derives effectiveCharging. Outside the schedule window
// charging is still allowed when the battery is critical.
func (m *PowerThermalManager) recomputeLocked() {
	permitted := m.cfg.Schedule.Permits(m.clock.Now().Local()) || m.level <= m.cfg.LowThreshold
	m.charging = m.requested && !m.busy && permitted
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
