package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saraatrapero/puerta-garaje/internal/clock"
	"github.com/saraatrapero/puerta-garaje/internal/garage/store"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

var (
	ErrObstructed        = errors.New("door obstructed")
	ErrInvalidTransition = errors.New("invalid door transition")
	ErrNoPendingAuth     = errors.New("no pending authorization for user")
)

// ObstructionSensor is the infrared/reed beam-break signal.
type ObstructionSensor interface {
	Obstructed() bool
}

// ProximitySensor is the short-range trust beacon.
type ProximitySensor interface {
	Present() bool
}

type DoorConfig struct {
	// Dwell is how long OPENING and CLOSING last before settling.
	Dwell time.Duration
	// AutoCloseAfter closes the door this long after it settles OPEN.
	// 0 disables auto-close.
	AutoCloseAfter time.Duration
	// PendingAuthTTL bounds how long a PENDING_AUTH user may be confirmed.
	PendingAuthTTL time.Duration
}

type doorCommand int

const (
	cmdOpen doorCommand = iota
	cmdClose
	cmdSettle
)

// doorTransitions is the full transition table except STOP, which is
// accepted from every state.
var doorTransitions = map[types.DoorState]map[doorCommand]types.DoorState{
	types.DoorClosed:  {cmdOpen: types.DoorOpening},
	types.DoorOpening: {cmdSettle: types.DoorOpen},
	types.DoorOpen:    {cmdClose: types.DoorClosing},
	types.DoorClosing: {cmdSettle: types.DoorClosed},
	types.DoorStopped: {cmdOpen: types.DoorOpening, cmdClose: types.DoorClosing},
}

type pendingAuth struct {
	user      types.AccessUser
	expiresAt time.Time
}

// AccessController owns the door state machine and the pending second-factor
// slot. Every dwell timer carries the generation it was scheduled under; a
// timer whose generation is stale does nothing when it fires.
type AccessController struct {
	cfg         DoorConfig
	clock       clock.Clock
	logs        store.AccessLogStore
	obstruction ObstructionSensor
	proximity   ProximitySensor
	logger      *slog.Logger

	mu        sync.Mutex
	state     types.DoorState
	changedAt time.Time
	gen       uint64
	timer     clock.Timer
	pending   *pendingAuth
	listeners []func(types.DoorState)
}

type ControllerDeps struct {
	Clock       clock.Clock
	Logs        store.AccessLogStore
	Obstruction ObstructionSensor
	Proximity   ProximitySensor
	Logger      *slog.Logger
}

func NewAccessController(cfg DoorConfig, d ControllerDeps) *AccessController {
	if cfg.Dwell <= 0 {
		cfg.Dwell = 4 * time.Second
	}
	if cfg.PendingAuthTTL <= 0 {
		cfg.PendingAuthTTL = time.Minute
	}
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &AccessController{
		cfg:         cfg,
		clock:       d.Clock,
		logs:        d.Logs,
		obstruction: d.Obstruction,
		proximity:   d.Proximity,
		logger:      d.Logger,
		state:       types.DoorClosed,
		changedAt:   d.Clock.Now(),
	}
}

// OnStateChange registers fn to be called after every state change. fn runs
// outside the controller lock and must not block.
func (c *AccessController) OnStateChange(fn func(types.DoorState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *AccessController) State() types.DoorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *AccessController) Status() types.DoorStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := types.DoorStatus{
		State:      c.state,
		Obstructed: c.obstructed(),
		ChangedAt:  c.changedAt,
		ServerTime: c.clock.Now().Format(time.RFC3339Nano),
	}
	if p := c.livePending(); p != nil {
		st.PendingUser = p.user.Name
	}
	return st
}

// ResolvePlate runs Decide with the controller's clock and proximity signal.
// It has no side effects.
func (c *AccessController) ResolvePlate(plate string, roster []types.AccessUser) types.Decision {
	trusted := c.proximity != nil && c.proximity.Present()
	return Decide(types.NormalizePlate(plate), roster, c.clock.Now(), trusted)
}

// AwaitSecondFactor parks u as the user waiting for confirmation, replacing
// any earlier one.
func (c *AccessController) AwaitSecondFactor(u types.AccessUser) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = &pendingAuth{user: u, expiresAt: c.clock.Now().Add(c.cfg.PendingAuthTTL)}
}

// PendingUser returns the user awaiting confirmation, if any.
func (c *AccessController) PendingUser() (types.AccessUser, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p := c.livePending(); p != nil {
		return p.user, true
	}
	return types.AccessUser{}, false
}

// ConfirmSecondFactor consumes the pending slot for userID. The confirmation
// outcome comes from the caller (biometric prompt, operator); the controller
// only checks that the slot exists, matches, and has not expired.
func (c *AccessController) ConfirmSecondFactor(userID string, confirmed bool) (types.AccessUser, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.livePending()
	if p == nil || p.user.ID != userID {
		return types.AccessUser{}, false, ErrNoPendingAuth
	}
	c.pending = nil
	return p.user, confirmed, nil
}

// OpenDoor moves CLOSED or STOPPED to OPENING and appends one ENTRY log
// before the dwell starts. While OPEN or OPENING it is a no-op and returns
// ok=false without logging or touching the timer.
func (c *AccessController) OpenDoor(ctx context.Context, u types.AccessUser, method types.Method) (types.AccessLog, bool, error) {
	c.mu.Lock()
	if c.state == types.DoorOpen || c.state == types.DoorOpening {
		c.mu.Unlock()
		return types.AccessLog{}, false, nil
	}
	next, ok := doorTransitions[c.state][cmdOpen]
	if !ok {
		from := c.state
		c.mu.Unlock()
		c.logger.Warn("open rejected", "state", from)
		return types.AccessLog{}, false, ErrInvalidTransition
	}

	entry := types.AccessLog{
		ID:        uuid.NewString(),
		Timestamp: c.clock.Now(),
		UserName:  u.Name,
		Plate:     u.Plate,
		Action:    types.ActionEntry,
		Method:    method,
	}
	if p := c.livePending(); p != nil && p.user.ID == u.ID {
		c.pending = nil
	}
	listeners := c.transitionLocked(next)
	c.mu.Unlock()

	c.appendLog(ctx, entry)
	c.notify(listeners, next)
	return entry, true, nil
}

// CloseDoor moves OPEN or STOPPED to CLOSING. It is refused with
// ErrObstructed whenever the beam is broken; nothing is logged either way.
func (c *AccessController) CloseDoor(_ context.Context) (bool, error) {
	c.mu.Lock()
	if c.state == types.DoorClosed || c.state == types.DoorClosing {
		c.mu.Unlock()
		return false, nil
	}
	if c.obstructed() {
		c.mu.Unlock()
		c.logger.Warn("close refused: obstruction asserted")
		return false, ErrObstructed
	}
	next, ok := doorTransitions[c.state][cmdClose]
	if !ok {
		from := c.state
		c.mu.Unlock()
		c.logger.Warn("close rejected", "state", from)
		return false, ErrInvalidTransition
	}
	listeners := c.transitionLocked(next)
	c.mu.Unlock()

	c.notify(listeners, next)
	return true, nil
}

// Stop forces STOPPED from any state and cancels the in-flight dwell.
func (c *AccessController) Stop(_ context.Context) {
	c.mu.Lock()
	listeners := c.transitionLocked(types.DoorStopped)
	c.mu.Unlock()

	c.notify(listeners, types.DoorStopped)
}

// RecordDenial appends a DENIED entry. name may be empty for unknown plates.
func (c *AccessController) RecordDenial(ctx context.Context, plate, name string, method types.Method, reason types.DenyReason) types.AccessLog {
	if strings.TrimSpace(name) == "" {
		name = "unknown"
	}
	entry := types.AccessLog{
		ID:        uuid.NewString(),
		Timestamp: c.clock.Now(),
		UserName:  name,
		Plate:     plate,
		Action:    types.ActionDenied,
		Method:    method,
		Reason:    string(reason),
	}
	c.appendLog(ctx, entry)
	return entry
}

// transitionLocked enters next, bumps the generation (invalidating any
// pending timer) and schedules the settle for transient states.
func (c *AccessController) transitionLocked(next types.DoorState) []func(types.DoorState) {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	c.state = next
	c.changedAt = c.clock.Now()

	if next.Moving() {
		gen := c.gen
		c.timer = c.clock.AfterFunc(c.cfg.Dwell, func() { c.settle(gen) })
	}
	return c.listeners
}

func (c *AccessController) settle(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	next, ok := doorTransitions[c.state][cmdSettle]
	if !ok {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.state = next
	c.changedAt = c.clock.Now()
	if next == types.DoorOpen && c.cfg.AutoCloseAfter > 0 {
		c.scheduleAutoCloseLocked(gen)
	}
	listeners := c.listeners
	c.mu.Unlock()

	c.notify(listeners, next)
}

func (c *AccessController) scheduleAutoCloseLocked(gen uint64) {
	c.timer = c.clock.AfterFunc(c.cfg.AutoCloseAfter, func() { c.autoClose(gen) })
}

// autoClose runs under the generation of the OPEN it was scheduled from.
// An obstruction defers it by another full delay.
func (c *AccessController) autoClose(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != types.DoorOpen {
		c.mu.Unlock()
		return
	}
	if c.obstructed() {
		c.scheduleAutoCloseLocked(gen)
		c.mu.Unlock()
		c.logger.Info("auto-close deferred: obstruction asserted", "retry_in", c.cfg.AutoCloseAfter)
		return
	}
	listeners := c.transitionLocked(types.DoorClosing)
	c.mu.Unlock()

	c.logger.Info("auto-close started")
	c.notify(listeners, types.DoorClosing)
}

func (c *AccessController) obstructed() bool {
	return c.obstruction != nil && c.obstruction.Obstructed()
}

func (c *AccessController) livePending() *pendingAuth {
	if c.pending == nil {
		return nil
	}
	if c.clock.Now().After(c.pending.expiresAt) {
		c.pending = nil
		return nil
	}
	return c.pending
}

// appendLog persists entry. A failed audit write is logged, never returned:
// the door command has already been accepted.
func (c *AccessController) appendLog(ctx context.Context, entry types.AccessLog) {
	if c.logs == nil {
		return
	}
	if err := c.logs.AppendLog(ctx, entry); err != nil {
		c.logger.Error("access log write failed", "action", entry.Action, "plate", entry.Plate, "error", err)
	}
}

func (c *AccessController) notify(listeners []func(types.DoorState), s types.DoorState) {
	c.logger.Debug("door state", "state", s)
	for _, fn := range listeners {
		fn(s)
	}
}
