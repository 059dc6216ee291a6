package service

import (
	"errors"

	"github.com/AdamBeresnev/charter-pool/internal/bracket"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("not allowed to perform this action")
	ErrInvalidCredentials = errors.New("invalid username or password")

	ErrTournamentNotOpen   = errors.New("tournament is no longer accepting signups")
	ErrTournamentNotActive = errors.New("tournament is not active")
	ErrAlreadySignedUp     = errors.New("player is already signed up")
	ErrPlayerArchived      = errors.New("player is archived")
	ErrPlayerExists        = errors.New("player already exists")
	ErrPlayerHasGames      = errors.New("player has recorded games and can only be archived")
	ErrAdminExists         = errors.New("admin username is taken")
	ErrTournamentGame      = errors.New("tournament games cannot be deleted")
)

// IsConflict reports whether err means the request clashed with current state.
func IsConflict(err error) bool {
	for _, target := range []error{
		bracket.ErrStateConflict,
		ErrTournamentNotOpen,
		ErrTournamentNotActive,
		ErrAlreadySignedUp,
		ErrPlayerArchived,
		ErrPlayerExists,
		ErrPlayerHasGames,
		ErrAdminExists,
		ErrTournamentGame,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func invalid(field, reason string) error {
	return &bracket.ValidationError{Field: field, Reason: reason}
}
