package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/saraatrapero/puerta-garaje/internal/clock"
	"github.com/saraatrapero/puerta-garaje/internal/garage/store"
	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

var (
	ErrInvalidName            = errors.New("name is required")
	ErrInvalidPlate           = errors.New("plate is required")
	ErrInvalidUserType        = errors.New("type must be PERMANENT, TEMPORARY or BLACKLISTED")
	ErrValidityWindowRequired = errors.New("temporary users need start_date and end_date")
	ErrInvalidValidityWindow  = errors.New("end_date must be after start_date")
	ErrUserNotFound           = errors.New("user not found")
)

// Roster is the admin-facing view of the user store. All validation happens
// here, at creation; stored users are trusted afterwards.
type Roster struct {
	store store.UserStore
	clock clock.Clock
}

func NewRoster(st store.UserStore, clk clock.Clock) *Roster {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Roster{store: st, clock: clk}
}

func (r *Roster) Users(ctx context.Context) ([]types.AccessUser, error) {
	users, err := r.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// AddUser validates u, assigns a fresh id and stores it.
func (r *Roster) AddUser(ctx context.Context, u types.AccessUser) (types.AccessUser, error) {
	u.ID = uuid.NewString()
	u.CreatedAt = r.clock.Now()
	if err := ValidateUser(&u); err != nil {
		return types.AccessUser{}, err
	}
	if err := r.store.PutUser(ctx, u); err != nil {
		return types.AccessUser{}, err
	}
	return u, nil
}

// ReplaceUser swaps the user with id for u wholesale, keeping id and
// creation time.
func (r *Roster) ReplaceUser(ctx context.Context, id string, u types.AccessUser) (types.AccessUser, error) {
	current, err := r.find(ctx, id)
	if err != nil {
		return types.AccessUser{}, err
	}
	u.ID = current.ID
	u.CreatedAt = current.CreatedAt
	if err := ValidateUser(&u); err != nil {
		return types.AccessUser{}, err
	}
	if err := r.store.PutUser(ctx, u); err != nil {
		return types.AccessUser{}, err
	}
	return u, nil
}

func (r *Roster) RemoveUser(ctx context.Context, id string) error {
	err := r.store.DeleteUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// ReplaceAll validates every user and then swaps the roster in one step.
// Users without an id keep the id (and creation time) of the current entry
// with the same plate, or get a fresh one. Nothing is written if any entry
// is invalid.
func (r *Roster) ReplaceAll(ctx context.Context, users []types.AccessUser) error {
	current, err := r.Users(ctx)
	if err != nil {
		return err
	}
	byPlate := make(map[string]types.AccessUser, len(current))
	for _, u := range current {
		byPlate[u.Plate] = u
	}

	seen := make(map[string]string, len(users))
	out := make([]types.AccessUser, 0, len(users))
	now := r.clock.Now()
	for i, u := range users {
		if err := ValidateUser(&u); err != nil {
			return fmt.Errorf("user %d (%s): %w", i, u.Name, err)
		}
		if other, dup := seen[u.Plate]; dup {
			return fmt.Errorf("%w: %s (%s, %s)", store.ErrDuplicatePlate, u.Plate, other, u.Name)
		}
		seen[u.Plate] = u.Name

		if prev, ok := byPlate[u.Plate]; ok && u.ID == "" {
			u.ID = prev.ID
			if u.CreatedAt.IsZero() {
				u.CreatedAt = prev.CreatedAt
			}
		}
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		out = append(out, u)
	}
	return r.store.ReplaceAll(ctx, out)
}

func (r *Roster) find(ctx context.Context, id string) (types.AccessUser, error) {
	users, err := r.Users(ctx)
	if err != nil {
		return types.AccessUser{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return types.AccessUser{}, ErrUserNotFound
}

// ValidateUser normalises u in place and enforces the creation invariants.
// The validity window is dropped for non-temporary users.
func ValidateUser(u *types.AccessUser) error {
	u.Name = strings.TrimSpace(u.Name)
	u.Phone = strings.TrimSpace(u.Phone)
	u.Plate = types.NormalizePlate(u.Plate)

	if u.Name == "" {
		return ErrInvalidName
	}
	if u.Plate == "" {
		return ErrInvalidPlate
	}
	t, ok := types.ParseUserType(string(u.Type))
	if !ok {
		return ErrInvalidUserType
	}
	u.Type = t

	if u.Type != types.UserTemporary {
		u.StartsAt, u.EndsAt = nil, nil
		return nil
	}
	if u.StartsAt == nil || u.EndsAt == nil {
		return ErrValidityWindowRequired
	}
	if !u.EndsAt.After(*u.StartsAt) {
		return ErrInvalidValidityWindow
	}
	start, end := u.StartsAt.UTC(), u.EndsAt.UTC()
	u.StartsAt, u.EndsAt = &start, &end
	return nil
}
