package app

import (
	"errors"
	"fmt"

	"hatimgo/internal/store"
	"hatimgo/pkg/domain"
)

const (
	defaultListOffset = 0
	defaultListLimit  = 100
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	Store       store.Store
}

// App wires the hatim registry and the piece-claim allocation rules over
// a swappable store. It holds no state of its own between calls.
type App struct {
	store store.Store
}

// New constructs the application, opening a Postgres store from
// DatabaseURL unless a store is injected.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required when no store is injected")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}
	return &App{store: dataStore}, nil
}

// CreateHatim registers a new hatim for the given creator. The creator id
// is trusted as supplied; there is no participant registry to check.
func (a *App) CreateHatim(creatorID int64) (domain.Hatim, error) {
	hatim, err := a.store.CreateHatim(creatorID)
	if err != nil {
		return domain.Hatim{}, fmt.Errorf("create hatim: %w", err)
	}
	return hatim, nil
}

// DeleteHatim removes a hatim and confirms the record is gone. Pieces of
// the hatim are left untouched.
func (a *App) DeleteHatim(id int64) (bool, error) {
	_, ok, err := a.store.GetHatim(id)
	if err != nil {
		return false, fmt.Errorf("find hatim: %w", err)
	}
	if !ok {
		return false, ErrHatimNotFound
	}
	if err := a.store.DeleteHatim(id); err != nil {
		return false, fmt.Errorf("delete hatim: %w", err)
	}
	_, stillThere, err := a.store.GetHatim(id)
	if err != nil {
		return false, fmt.Errorf("verify hatim deletion: %w", err)
	}
	return !stillThere, nil
}

// ListHatims returns hatims in insertion order bounded by offset/limit.
// Non-positive limit falls back to the default page size.
func (a *App) ListHatims(offset, limit int) ([]domain.Hatim, error) {
	if offset < 0 {
		offset = defaultListOffset
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	hatims, err := a.store.ListHatims(offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list hatims: %w", err)
	}
	return hatims, nil
}

// ListHatimsByCreator returns all hatims created by one participant.
func (a *App) ListHatimsByCreator(creatorID int64) ([]domain.Hatim, error) {
	hatims, err := a.store.ListHatimsByCreator(creatorID)
	if err != nil {
		return nil, fmt.Errorf("list hatims by creator: %w", err)
	}
	return hatims, nil
}

// ClaimPiece allocates a (hatim, piece) slot to a participant. The
// pre-check gives a friendly conflict with the current claimant; the
// store-level compare-and-insert is the authoritative gate, so a claim
// that loses the race between check and insert still fails cleanly.
func (a *App) ClaimPiece(hatimID, pieceIndex, userID int64) (domain.HatimPiece, error) {
	existing, ok, err := a.store.FindPieceBySlot(hatimID, pieceIndex)
	if err != nil {
		return domain.HatimPiece{}, fmt.Errorf("find piece: %w", err)
	}
	if ok {
		return domain.HatimPiece{}, &AlreadyClaimedError{UserID: existing.UserID}
	}
	piece, err := a.store.CreatePiece(domain.HatimPiece{
		HatimID:    hatimID,
		PieceIndex: pieceIndex,
		UserID:     userID,
	})
	if err != nil {
		if errors.Is(err, store.ErrSlotTaken) {
			return domain.HatimPiece{}, a.claimConflict(hatimID, pieceIndex)
		}
		return domain.HatimPiece{}, fmt.Errorf("create piece: %w", err)
	}
	return piece, nil
}

// claimConflict resolves the winner of a lost claim race so the conflict
// can still name the current claimant.
func (a *App) claimConflict(hatimID, pieceIndex int64) error {
	winner, ok, err := a.store.FindPieceBySlot(hatimID, pieceIndex)
	if err != nil || !ok {
		// Winner already released; report the slot as taken without a holder.
		return &AlreadyClaimedError{}
	}
	return &AlreadyClaimedError{UserID: winner.UserID}
}

// ReleasePiece frees a (hatim, piece) slot and confirms the record is
// gone. The user id is accepted but not checked against the claimant;
// any caller who knows the slot key may release it.
func (a *App) ReleasePiece(hatimID, pieceIndex, userID int64) (bool, error) {
	piece, ok, err := a.store.FindPieceBySlot(hatimID, pieceIndex)
	if err != nil {
		return false, fmt.Errorf("find piece: %w", err)
	}
	if !ok {
		return false, ErrPieceNotFound
	}
	if err := a.store.DeletePiece(piece.ID); err != nil {
		return false, fmt.Errorf("delete piece: %w", err)
	}
	_, stillThere, err := a.store.FindPieceBySlot(hatimID, pieceIndex)
	if err != nil {
		return false, fmt.Errorf("verify piece deletion: %w", err)
	}
	return !stillThere, nil
}

// MarkPieceRead flags the claimant's piece as read.
func (a *App) MarkPieceRead(hatimID, pieceIndex, userID int64) (domain.HatimPiece, error) {
	return a.setPieceRead(hatimID, pieceIndex, userID, true)
}

// MarkPieceUnread clears the read flag on the claimant's piece.
func (a *App) MarkPieceUnread(hatimID, pieceIndex, userID int64) (domain.HatimPiece, error) {
	return a.setPieceRead(hatimID, pieceIndex, userID, false)
}

// setPieceRead locates the piece matching all three key fields and
// persists the flag. The lookup demands exactly one match: zero is a
// missing claim, more than one means the slot invariant broke upstream.
func (a *App) setPieceRead(hatimID, pieceIndex, userID int64, isRead bool) (domain.HatimPiece, error) {
	piece, ok, err := a.store.FindClaim(hatimID, pieceIndex, userID)
	if err != nil {
		if errors.Is(err, store.ErrAmbiguousClaim) {
			return domain.HatimPiece{}, ErrAmbiguousPiece
		}
		return domain.HatimPiece{}, fmt.Errorf("find claim: %w", err)
	}
	if !ok {
		return domain.HatimPiece{}, ErrPieceNotFound
	}
	updated, err := a.store.SetPieceRead(piece.ID, isRead)
	if err != nil {
		return domain.HatimPiece{}, fmt.Errorf("update piece: %w", err)
	}
	return updated, nil
}

// ListPiecesByHatim returns a hatim's pieces in creation order.
func (a *App) ListPiecesByHatim(hatimID int64) ([]domain.HatimPiece, error) {
	pieces, err := a.store.ListPiecesByHatim(hatimID)
	if err != nil {
		return nil, fmt.Errorf("list pieces by hatim: %w", err)
	}
	return pieces, nil
}

// ListPiecesByUser returns a participant's pieces across all hatims.
func (a *App) ListPiecesByUser(userID int64) ([]domain.HatimPiece, error) {
	pieces, err := a.store.ListPiecesByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("list pieces by user: %w", err)
	}
	return pieces, nil
}
