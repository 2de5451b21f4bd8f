package service

import (
	"time"

	"github.com/saraatrapero/puerta-garaje/internal/garage/types"
)

// Decide resolves an already-normalised plate against the roster. The first
// user with a matching plate wins. trusted is the proximity signal; when set
// the second factor is skipped.
//
// Denials are returned as data: not_registered, blacklisted (regardless of
// the active flag), inactive, expired (outside a TEMPORARY window).
func Decide(plate string, roster []types.AccessUser, now time.Time, trusted bool) types.Decision {
	var found *types.AccessUser
	for i := range roster {
		if roster[i].Plate == plate {
			found = &roster[i]
			break
		}
	}

	switch {
	case found == nil:
		return types.Denied(plate, types.ReasonNotRegistered)
	case found.Type == types.UserBlacklisted:
		return types.DeniedUser(*found, types.ReasonBlacklisted)
	case !found.Active:
		return types.DeniedUser(*found, types.ReasonInactive)
	case found.Type == types.UserTemporary && !found.WithinWindow(now):
		return types.DeniedUser(*found, types.ReasonExpired)
	}

	if trusted {
		return types.Authorized(*found)
	}
	return types.PendingAuth(*found)
}
