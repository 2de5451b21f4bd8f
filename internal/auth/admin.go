// Package auth holds the admin credential used to guard door commands and
// roster changes.
package auth

import (
	"crypto/subtle"
	"log/slog"
)

// Admin is a single operator account. A zero Admin (no hash) disables the
// admin-only routes.
type Admin struct {
	User string
	Hash string
}

// NewAdmin accepts either a bcrypt hash or a plain password, hashing the
// latter once at startup.
func NewAdmin(user, hash, password string) (Admin, error) {
	if hash == "" && password != "" {
		h, err := HashPassword(password)
		if err != nil {
			return Admin{}, err
		}
		hash = h
	}
	return Admin{User: user, Hash: hash}, nil
}

func (a Admin) Enabled() bool { return a.User != "" && a.Hash != "" }

// Check reports whether user/password match. Malformed hashes count as a
// mismatch.
func (a Admin) Check(user, password string) bool {
	if !a.Enabled() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.User)) == 1
	ok, err := VerifyPassword(password, a.Hash)
	if err != nil {
		slog.Warn("admin password check failed", "error", err)
		return false
	}
	return userOK && ok
}
