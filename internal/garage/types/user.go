package types

import (
	"strings"
	"time"
)

type UserType string

const (
	UserPermanent   UserType = "PERMANENT"
	UserTemporary   UserType = "TEMPORARY"
	UserBlacklisted UserType = "BLACKLISTED"
)

func (t UserType) Valid() bool {
	switch t {
	case UserPermanent, UserTemporary, UserBlacklisted:
		return true
	}
	return false
}

// ParseUserType accepts any casing.
func ParseUserType(s string) (UserType, bool) {
	t := UserType(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.Valid()
}

// AccessUser is a roster entry. Entries are replaced wholesale, never edited
// in place. StartsAt/EndsAt only apply to TEMPORARY users.
type AccessUser struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone,omitempty"`
	Plate     string     `json:"plate"`
	Type      UserType   `json:"type"`
	Active    bool       `json:"active"`
	StartsAt  *time.Time `json:"start_date,omitempty"`
	EndsAt    *time.Time `json:"end_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// WithinWindow reports whether t falls inside the user's validity window,
// bounds inclusive. A missing bound leaves that side open.
func (u AccessUser) WithinWindow(t time.Time) bool {
	if u.StartsAt != nil && t.Before(*u.StartsAt) {
		return false
	}
	if u.EndsAt != nil && t.After(*u.EndsAt) {
		return false
	}
	return true
}
