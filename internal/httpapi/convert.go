package httpapi

import (
	"errors"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

// Protobuf bodies are google.protobuf.Struct messages with the same keys as
// the JSON representation.

// ── Door ─────────────────────────────────────────────────────────────────────

func doorStatusToProto(s types.DoorStatus) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"state":        string(s.State),
		"obstructed":   s.Obstructed,
		"changed_at":   s.ChangedAt.UTC().Format(time.RFC3339Nano),
		"pending_user": s.PendingUser,
		"server_time":  s.ServerTime,
	})
}

// ── Power ────────────────────────────────────────────────────────────────────

func powerToProto(p powerResponse) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"battery_level":      p.Level,
		"charging_requested": p.ChargingRequested,
		"charging":           p.Charging,
		"busy":               p.Busy,
		"cpu_temp_c":         p.CPUTemp,
		"schedule": map[string]any{
			"enabled":    p.Schedule.Enabled,
			"start_hour": p.Schedule.StartHour,
			"end_hour":   p.Schedule.EndHour,
		},
	})
}

var errRequestedNotBool = errors.New(`"requested" must be a bool`)

func chargeRequestFromProto(st *structpb.Struct) (chargeRequest, error) {
	var req chargeRequest
	if v, ok := st.GetFields()["requested"]; ok {
		b, ok := v.GetKind().(*structpb.Value_BoolValue)
		if !ok {
			return chargeRequest{}, errRequestedNotBool
		}
		req.Requested = &b.BoolValue
	}

	if sv, ok := st.GetFields()["schedule"]; ok {
		m := sv.GetStructValue().GetFields()
		req.Schedule = &types.ChargeSchedule{
			Enabled:   m["enabled"].GetBoolValue(),
			StartHour: int(m["start_hour"].GetNumberValue()),
			EndHour:   int(m["end_hour"].GetNumberValue()),
		}
	}
	return req, nil
}
