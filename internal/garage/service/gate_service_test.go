package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/garage/store/memory"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

type fakeRecognizer struct {
	plate string
	ok    bool
	calls int
}

func (f *fakeRecognizer) Recognize(context.Context, []byte, string) (string, bool) {
	f.calls++
	return f.plate, f.ok
}

type gateRig struct {
	*controllerRig
	rec      *fakeRecognizer
	activity *Activity
	busy     []bool
	gate     *GateService
}

func newGateRig(t *testing.T, users ...types.AccessUser) *gateRig {
	t.Helper()
	g := &gateRig{controllerRig: newControllerRig(t, DoorConfig{Dwell: dwell}), rec: &fakeRecognizer{}}
	g.activity = NewActivity(g.clk, func(b bool) { g.busy = append(g.busy, b) })
	g.gate = NewGateService(GateDeps{
		Controller:   g.ctrl,
		Roster:       NewRoster(memory.NewUserStore(users...), g.clk),
		Recognizer:   g.rec,
		Activity:     g.activity,
		BusyCooldown: 2 * time.Second,
		Logger:       discardLogger(),
	})
	return g
}

func (g *gateRig) see(plate string) {
	g.rec.plate, g.rec.ok = plate, plate != ""
}

func TestProcessImage_NoPlate(t *testing.T) {
	g := newGateRig(t, permanent("u1", "Ana", "1234ABC"))

	res, err := g.gate.ProcessImage(context.Background(), []byte("jpeg"), "image/jpeg")
	if err != nil || res.Detected || res.Decision != nil {
		t.Fatalf("expected no detection, got %+v %v", res, err)
	}
	if n := len(g.logs.Entries()); n != 0 {
		t.Errorf("no plate must not log, got %d", n)
	}
	g.expectState(t, types.DoorClosed)
}

func TestProcessImage_BusyDuringRecognitionAndCooldown(t *testing.T) {
	g := newGateRig(t)
	g.see("")

	g.gate.ProcessImage(context.Background(), nil, "image/jpeg")
	if !g.activity.Busy() {
		t.Fatal("LPR should stay busy through the cooldown")
	}
	g.clk.Advance(2 * time.Second)
	if g.activity.Busy() {
		t.Fatal("expected idle after cooldown")
	}
	if len(g.busy) != 2 || !g.busy[0] || g.busy[1] {
		t.Errorf("busy edges = %v", g.busy)
	}
}

func TestProcessImage_UnknownPlateDenied(t *testing.T) {
	g := newGateRig(t, permanent("u1", "Ana", "1234ABC"))
	g.see("0000 zzz")

	res, err := g.gate.ProcessImage(context.Background(), []byte("jpeg"), "image/jpeg")
	if err != nil {
		t.Fatal(err)
	}
	if res.Plate != "0000ZZZ" || res.Decision.Kind != types.DecisionDenied || res.Decision.Reason != types.ReasonNotRegistered {
		t.Fatalf("unexpected result: %+v", res)
	}
	logs := g.logs.Entries()
	if len(logs) != 1 || logs[0].Action != types.ActionDenied || logs[0].UserName != "unknown" || logs[0].Reason != "not_registered" {
		t.Fatalf("unexpected logs: %+v", logs)
	}
	g.expectState(t, types.DoorClosed)
}

func TestProcessImage_BlacklistedLogsName(t *testing.T) {
	b := permanent("b", "Banned", "6666BAN")
	b.Type = types.UserBlacklisted
	g := newGateRig(t, b)
	g.see("6666BAN")
	g.proximity.Store(true)

	res, _ := g.gate.ProcessImage(context.Background(), nil, "image/jpeg")
	if res.Opened || res.Entry == nil || res.Entry.UserName != "Banned" || res.Entry.Reason != "blacklisted" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestProcessImage_PendingThenConfirm(t *testing.T) {
	u := permanent("u1", "Ana", "1234ABC")
	g := newGateRig(t, u)
	g.see("1234-abc")
	ctx := context.Background()

	res, err := g.gate.ProcessImage(ctx, nil, "image/jpeg")
	if err != nil || res.Decision.Kind != types.DecisionPendingAuth || res.Opened {
		t.Fatalf("expected PENDING_AUTH, got %+v %v", res, err)
	}
	if n := len(g.logs.Entries()); n != 0 {
		t.Fatalf("pending must not log, got %d", n)
	}

	res, err = g.gate.Confirm(ctx, u.ID, true)
	if err != nil || !res.Opened || res.Decision.Kind != types.DecisionAuthorized {
		t.Fatalf("confirm: %+v %v", res, err)
	}
	g.expectState(t, types.DoorOpening)
	logs := g.logs.Entries()
	if len(logs) != 1 || logs[0].Action != types.ActionEntry || logs[0].Method != types.MethodLPR {
		t.Fatalf("unexpected logs: %+v", logs)
	}

	if _, err := g.gate.Confirm(ctx, u.ID, true); !errors.Is(err, ErrNoPendingAuth) {
		t.Errorf("expected ErrNoPendingAuth, got %v", err)
	}
}

func TestConfirm_Rejected(t *testing.T) {
	u := permanent("u1", "Ana", "1234ABC")
	g := newGateRig(t, u)
	g.see("1234ABC")
	ctx := context.Background()

	g.gate.ProcessImage(ctx, nil, "image/jpeg")
	res, err := g.gate.Confirm(ctx, u.ID, false)
	if err != nil || res.Opened || res.Decision.Reason != types.ReasonSecondFactorRejected {
		t.Fatalf("unexpected result: %+v %v", res, err)
	}
	logs := g.logs.Entries()
	if len(logs) != 1 || logs[0].Action != types.ActionDenied || logs[0].UserName != "Ana" {
		t.Fatalf("unexpected logs: %+v", logs)
	}
	g.expectState(t, types.DoorClosed)
}

func TestProcessImage_TrustedOpensImmediately(t *testing.T) {
	g := newGateRig(t, permanent("u1", "Ana", "1234ABC"))
	g.see("1234ABC")
	g.proximity.Store(true)
	ctx := context.Background()

	res, err := g.gate.ProcessImage(ctx, nil, "image/jpeg")
	if err != nil || !res.Opened || res.Entry == nil {
		t.Fatalf("expected open, got %+v %v", res, err)
	}

	// A second sighting while the door is moving is idempotent.
	res, err = g.gate.ProcessImage(ctx, nil, "image/jpeg")
	if err != nil || res.Opened || res.Decision.Kind != types.DecisionAuthorized {
		t.Fatalf("second sighting: %+v %v", res, err)
	}
	if n := len(g.logs.Entries()); n != 1 {
		t.Errorf("expected 1 entry, got %d", n)
	}
}

// Arrival, open, park, close: the whole path a resident takes.
func TestGate_ResidentArrives(t *testing.T) {
	u := permanent("u1", "Ana", "1234ABC")
	g := newGateRig(t, u)
	ctx := context.Background()
	g.see("1234ABC")
	g.proximity.Store(true)

	if res, _ := g.gate.ProcessImage(ctx, nil, "image/jpeg"); !res.Opened {
		t.Fatal("door did not open")
	}
	g.clk.Advance(dwell)
	g.expectState(t, types.DoorOpen)

	g.obstruction.Store(true)
	if _, err := g.gate.Close(ctx); !errors.Is(err, ErrObstructed) {
		t.Fatalf("expected ErrObstructed, got %v", err)
	}
	g.obstruction.Store(false)
	if ok, err := g.gate.Close(ctx); !ok || err != nil {
		t.Fatalf("close: %v %v", ok, err)
	}
	g.clk.Advance(dwell)
	g.expectState(t, types.DoorClosed)

	if g.activity.Busy() {
		t.Error("activity should have cooled down")
	}
	if st := g.gate.Status(); st.State != types.DoorClosed {
		t.Errorf("status = %+v", st)
	}
}

func TestGate_OperatorOpen(t *testing.T) {
	g := newGateRig(t)
	ctx := context.Background()

	entry, ok, err := g.gate.Open(ctx, "  ", "bogus")
	if err != nil || !ok {
		t.Fatalf("Open: %v %v", ok, err)
	}
	if entry.UserName != "operator" || entry.Method != types.MethodManual || entry.Plate != "" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	g.gate.Stop(ctx)
	g.expectState(t, types.DoorStopped)
}

// ── Confirm against a changed roster ─────────────────────────────────────────

func TestConfirm_RechecksRoster(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		change func(t *testing.T, r *Roster, u types.AccessUser)
		reason types.DenyReason
	}{
		{"blacklisted", func(t *testing.T, r *Roster, u types.AccessUser) {
			u.Type = types.UserBlacklisted
			if _, err := r.ReplaceUser(ctx, u.ID, u); err != nil {
				t.Fatal(err)
			}
		}, types.ReasonBlacklisted},
		{"deactivated", func(t *testing.T, r *Roster, u types.AccessUser) {
			u.Active = false
			if _, err := r.ReplaceUser(ctx, u.ID, u); err != nil {
				t.Fatal(err)
			}
		}, types.ReasonInactive},
		{"removed", func(t *testing.T, r *Roster, u types.AccessUser) {
			if err := r.RemoveUser(ctx, u.ID); err != nil {
				t.Fatal(err)
			}
		}, types.ReasonNotRegistered},
		{"re-added under a new id", func(t *testing.T, r *Roster, u types.AccessUser) {
			if err := r.RemoveUser(ctx, u.ID); err != nil {
				t.Fatal(err)
			}
			if _, err := r.AddUser(ctx, u); err != nil {
				t.Fatal(err)
			}
		}, types.ReasonNotRegistered},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := permanent("u1", "Ana", "1234ABC")
			g := newGateRig(t, u)
			g.see("1234ABC")

			if res, _ := g.gate.ProcessImage(ctx, nil, "image/jpeg"); res.Decision.Kind != types.DecisionPendingAuth {
				t.Fatalf("expected PENDING_AUTH, got %+v", res.Decision)
			}
			tc.change(t, g.gate.roster, u)

			res, err := g.gate.Confirm(ctx, u.ID, true)
			if err != nil {
				t.Fatalf("Confirm: %v", err)
			}
			if res.Opened || res.Decision.Kind != types.DecisionDenied || res.Decision.Reason != tc.reason {
				t.Fatalf("expected denial %q, got %+v", tc.reason, res.Decision)
			}
			logs := g.logs.Entries()
			if len(logs) != 1 || logs[0].Action != types.ActionDenied || logs[0].Reason != string(tc.reason) {
				t.Fatalf("unexpected logs: %+v", logs)
			}
			g.expectState(t, types.DoorClosed)
		})
	}
}

func TestConfirm_TemporaryWindowEnded(t *testing.T) {
	ctx := context.Background()
	u := types.AccessUser{
		ID: "t1", Name: "Guest", Plate: "5555TMP", Type: types.UserTemporary, Active: true,
		StartsAt: timePtr(t0.Add(-time.Hour)), EndsAt: timePtr(t0.Add(30 * time.Second)),
	}
	g := newGateRig(t, u)
	g.see("5555TMP")

	g.gate.ProcessImage(ctx, nil, "image/jpeg")
	g.clk.Advance(45 * time.Second)

	res, err := g.gate.Confirm(ctx, u.ID, true)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if res.Opened || res.Decision.Reason != types.ReasonExpired {
		t.Fatalf("expected expired denial, got %+v", res.Decision)
	}
	g.expectState(t, types.DoorClosed)
}
