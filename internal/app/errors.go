package app

import (
	"errors"
	"fmt"
)

var (
	// ErrHatimNotFound indicates the referenced hatim does not exist.
	ErrHatimNotFound = errors.New("hatim does not exist")

	// ErrPieceNotFound indicates no live piece matches the given key.
	ErrPieceNotFound = errors.New("hatim piece does not exist")

	// ErrAmbiguousPiece indicates more than one piece matched a key that
	// must be unique. It points at corrupted data, never normal operation.
	ErrAmbiguousPiece = errors.New("multiple hatim pieces match a unique key")
)

// AlreadyClaimedError reports a claim attempt against a slot that already
// has a live piece, carrying the current claimant for caller feedback.
type AlreadyClaimedError struct {
	UserID int64
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("hatim piece is already selected by user_id: %d", e.UserID)
}
