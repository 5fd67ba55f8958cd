package store

import (
	"errors"

	"hatimgo/pkg/domain"
)

var (
	// ErrSlotTaken reports a claim attempt against a (hatim, piece) slot
	// that already has a live piece. CreatePiece raises it atomically with
	// the insert so racing claimants cannot both win.
	ErrSlotTaken = errors.New("piece slot already claimed")

	// ErrAmbiguousClaim reports more than one piece matching a
	// (hatim, piece, user) key that must identify exactly one record.
	// It indicates corrupted data, not a caller mistake.
	ErrAmbiguousClaim = errors.New("multiple pieces match claim key")
)

// Store defines persistence operations for hatims and piece claims.
type Store interface {
	// hatims
	CreateHatim(creatorID int64) (domain.Hatim, error)
	GetHatim(id int64) (domain.Hatim, bool, error)
	DeleteHatim(id int64) error
	ListHatims(offset, limit int) ([]domain.Hatim, error)
	ListHatimsByCreator(creatorID int64) ([]domain.Hatim, error)

	// pieces
	CreatePiece(piece domain.HatimPiece) (domain.HatimPiece, error)
	FindPieceBySlot(hatimID, pieceIndex int64) (domain.HatimPiece, bool, error)
	FindClaim(hatimID, pieceIndex, userID int64) (domain.HatimPiece, bool, error)
	SetPieceRead(id int64, isRead bool) (domain.HatimPiece, error)
	DeletePiece(id int64) error
	ListPiecesByHatim(hatimID int64) ([]domain.HatimPiece, error)
	ListPiecesByUser(userID int64) ([]domain.HatimPiece, error)
}
