package service

import (
	"testing"
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

func TestDecide(t *testing.T) {
	temp := types.AccessUser{
		ID: "t", Name: "Guest", Plate: "5555TMP", Type: types.UserTemporary, Active: true,
		StartsAt: timePtr(t0.Add(-time.Hour)), EndsAt: timePtr(t0.Add(time.Hour)),
	}
	blacklisted := types.AccessUser{ID: "b", Name: "Banned", Plate: "6666BAN", Type: types.UserBlacklisted, Active: false}
	inactive := permanent("i", "Idle", "7777OFF")
	inactive.Active = false
	roster := []types.AccessUser{permanent("p", "Ana", "1234ABC"), temp, blacklisted, inactive}

	tests := []struct {
		name    string
		plate   string
		now     time.Time
		trusted bool
		kind    types.DecisionKind
		reason  types.DenyReason
	}{
		{"unknown", "0000ZZZ", t0, true, types.DecisionDenied, types.ReasonNotRegistered},
		{"blacklisted even when trusted", "6666BAN", t0, true, types.DecisionDenied, types.ReasonBlacklisted},
		{"inactive", "7777OFF", t0, true, types.DecisionDenied, types.ReasonInactive},
		{"temporary before window", "5555TMP", t0.Add(-2 * time.Hour), true, types.DecisionDenied, types.ReasonExpired},
		{"temporary after window", "5555TMP", t0.Add(2 * time.Hour), true, types.DecisionDenied, types.ReasonExpired},
		{"temporary at window end", "5555TMP", t0.Add(time.Hour), true, types.DecisionAuthorized, ""},
		{"permanent untrusted", "1234ABC", t0, false, types.DecisionPendingAuth, ""},
		{"permanent trusted", "1234ABC", t0, true, types.DecisionAuthorized, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := Decide(tc.plate, roster, tc.now, tc.trusted)
			if d.Kind != tc.kind || d.Reason != tc.reason {
				t.Fatalf("got %s/%q, want %s/%q", d.Kind, d.Reason, tc.kind, tc.reason)
			}
			if d.Plate != tc.plate {
				t.Errorf("plate = %q, want %q", d.Plate, tc.plate)
			}
			if tc.reason != types.ReasonNotRegistered && d.User == nil {
				t.Error("matched decision must carry the user")
			}
		})
	}
}

func TestDecide_FirstMatchWins(t *testing.T) {
	first := permanent("1", "First", "1234ABC")
	second := permanent("2", "Second", "1234ABC")
	second.Type = types.UserBlacklisted

	d := Decide("1234ABC", []types.AccessUser{first, second}, t0, true)
	if d.Kind != types.DecisionAuthorized || d.User.ID != "1" {
		t.Fatalf("expected first entry to win, got %+v", d)
	}
}
