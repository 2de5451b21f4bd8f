package types

import "time"

// PowerState is a snapshot of the battery/thermal model.
type PowerState struct {
	Level             float64 `json:"battery_level"`
	ChargingRequested bool    `json:"charging_requested"`
	Charging          bool    `json:"charging"`
	Busy              bool    `json:"busy"`
	CPUTemp           float64 `json:"cpu_temp_c"`
}

// PowerSample is a persisted PowerState.
type PowerSample struct {
	RecordedAt time.Time `json:"recorded_at"`
	PowerState
}

// ChargeSchedule restricts charging to [StartHour, EndHour) local time.
// A window with StartHour > EndHour wraps midnight.
type ChargeSchedule struct {
	Enabled   bool `json:"enabled"`
	StartHour int  `json:"start_hour"`
	EndHour   int  `json:"end_hour"`
}

func (c ChargeSchedule) Permits(t time.Time) bool {
	if !c.Enabled || c.StartHour == c.EndHour {
		return true
	}
	h := t.Hour()
	if c.StartHour < c.EndHour {
		return h >= c.StartHour && h < c.EndHour
	}
	return h >= c.StartHour || h < c.EndHour
}
