package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

// Recognizer extracts a plate from a camera frame. It fails soft: any error
// is reported as ok=false.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, mimeType string) (plate string, ok bool)
}

// GateService runs the recognition flow end to end: busy signal, recogniser,
// decision, audit entry, second factor and door command.
type GateService struct {
	controller *AccessController
	roster     *Roster
	recognizer Recognizer
	activity   *Activity
	cooldown   time.Duration
	logger     *slog.Logger
}

type GateDeps struct {
	Controller *AccessController
	Roster     *Roster
	Recognizer Recognizer
	Activity   *Activity
	// BusyCooldown keeps the LPR source busy for a while after recognition
	// finishes, letting the camera pipeline wind down.
	BusyCooldown time.Duration
	Logger       *slog.Logger
}

func NewGateService(d GateDeps) *GateService {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &GateService{
		controller: d.Controller,
		roster:     d.Roster,
		recognizer: d.Recognizer,
		activity:   d.Activity,
		cooldown:   d.BusyCooldown,
		logger:     d.Logger,
	}
}

type LPRResult struct {
	Detected bool             `json:"detected"`
	Plate    string           `json:"plate,omitempty"`
	Decision *types.Decision  `json:"decision,omitempty"`
	Entry    *types.AccessLog `json:"entry,omitempty"`
	Opened   bool             `json:"opened"`
}

// ProcessImage recognises a plate and acts on the decision. "No plate" is a
// normal result, not an error. The returned error is only set when the door
// refused an AUTHORIZED open or the roster could not be read.
func (g *GateService) ProcessImage(ctx context.Context, image []byte, mimeType string) (LPRResult, error) {
	if g.activity != nil {
		g.activity.Begin(SourceLPR)
		defer g.activity.EndAfter(SourceLPR, g.cooldown)
	}

	plate, ok := g.recognizer.Recognize(ctx, image, mimeType)
	plate = types.NormalizePlate(plate)
	if !ok || plate == "" {
		g.logger.Info("lpr: no plate detected", "bytes", len(image))
		return LPRResult{}, nil
	}

	users, err := g.roster.Users(ctx)
	if err != nil {
		return LPRResult{Detected: true, Plate: plate}, err
	}

	d := g.controller.ResolvePlate(plate, users)
	res := LPRResult{Detected: true, Plate: plate, Decision: &d}
	g.logger.Info("lpr decision", "plate", plate, "decision", d.Kind, "reason", d.Reason)

	switch d.Kind {
	case types.DecisionDenied:
		name := ""
		if d.User != nil {
			name = d.User.Name
		}
		entry := g.controller.RecordDenial(ctx, plate, name, types.MethodLPR, d.Reason)
		res.Entry = &entry
	case types.DecisionPendingAuth:
		g.controller.AwaitSecondFactor(*d.User)
	case types.DecisionAuthorized:
		entry, opened, err := g.controller.OpenDoor(ctx, *d.User, types.MethodLPR)
		if err != nil {
			return res, err
		}
		res.Opened = opened
		if opened {
			res.Entry = &entry
		}
	}
	return res, nil
}

// Confirm completes a PENDING_AUTH. A rejected confirmation is logged as a
// denial. An accepted one re-resolves the plate against the current roster
// and opens only if that still authorizes the same user.
func (g *GateService) Confirm(ctx context.Context, userID string, confirmed bool) (LPRResult, error) {
	u, ok, err := g.controller.ConfirmSecondFactor(userID, confirmed)
	if err != nil {
		return LPRResult{}, err
	}

	res := LPRResult{Detected: true, Plate: u.Plate}
	if !ok {
		d := types.DeniedUser(u, types.ReasonSecondFactorRejected)
		entry := g.controller.RecordDenial(ctx, u.Plate, u.Name, types.MethodLPR, d.Reason)
		res.Decision, res.Entry = &d, &entry
		return res, nil
	}

	users, err := g.roster.Users(ctx)
	if err != nil {
		return res, err
	}
	d := Decide(u.Plate, users, g.controller.clock.Now(), true)
	if d.Kind == types.DecisionAuthorized && d.User.ID != u.ID {
		d = types.Denied(u.Plate, types.ReasonNotRegistered)
	}
	res.Decision = &d
	if d.Denied() {
		name := u.Name
		if d.User != nil {
			name = d.User.Name
		}
		g.logger.Info("lpr confirm denied", "plate", u.Plate, "reason", d.Reason)
		entry := g.controller.RecordDenial(ctx, u.Plate, name, types.MethodLPR, d.Reason)
		res.Entry = &entry
		return res, nil
	}

	entry, opened, err := g.controller.OpenDoor(ctx, *d.User, types.MethodLPR)
	if err != nil {
		return res, err
	}
	res.Opened = opened
	if opened {
		res.Entry = &entry
	}
	return res, nil
}

// Open is an operator command; operator is recorded as the user name.
func (g *GateService) Open(ctx context.Context, operator string, method types.Method) (types.AccessLog, bool, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		operator = "operator"
	}
	if !method.Valid() {
		method = types.MethodManual
	}
	return g.controller.OpenDoor(ctx, types.AccessUser{Name: operator}, method)
}

func (g *GateService) Close(ctx context.Context) (bool, error) {
	return g.controller.CloseDoor(ctx)
}

func (g *GateService) Stop(ctx context.Context) {
	g.controller.Stop(ctx)
}

func (g *GateService) Status() types.DoorStatus {
	return g.controller.Status()
}
