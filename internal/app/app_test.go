package app

import (
	"errors"
	"testing"

	"hatimgo/internal/store"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(Config{Store: store.NewMemoryStore()})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func TestCreateAndListHatims(t *testing.T) {
	a := newTestApp(t)

	first, err := a.CreateHatim(1)
	if err != nil {
		t.Fatalf("create hatim: %v", err)
	}
	if first.ID != 1 || first.CreatorID != 1 {
		t.Fatalf("first = %+v, want id 1 creator 1", first)
	}
	second, err := a.CreateHatim(1)
	if err != nil {
		t.Fatalf("create second hatim: %v", err)
	}
	if second.ID != 2 {
		t.Fatalf("second id = %d, want 2", second.ID)
	}

	all, err := a.ListHatims(0, 0)
	if err != nil {
		t.Fatalf("list hatims: %v", err)
	}
	if len(all) != 2 || all[0].ID != 1 || all[1].ID != 2 {
		t.Fatalf("all = %+v, want ids 1,2 in order", all)
	}

	byCreator, err := a.ListHatimsByCreator(1)
	if err != nil {
		t.Fatalf("list by creator: %v", err)
	}
	if len(byCreator) != 2 {
		t.Fatalf("byCreator len = %d, want 2", len(byCreator))
	}
	none, err := a.ListHatimsByCreator(99)
	if err != nil {
		t.Fatalf("list by unknown creator: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("unknown creator should have no hatims, got %+v", none)
	}
}

func TestDeleteHatim(t *testing.T) {
	a := newTestApp(t)

	if _, err := a.DeleteHatim(1); !errors.Is(err, ErrHatimNotFound) {
		t.Fatalf("delete missing hatim: err = %v, want ErrHatimNotFound", err)
	}

	hatim, err := a.CreateHatim(1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	deleted, err := a.DeleteHatim(hatim.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatalf("deleted = false, want true")
	}
	if _, err := a.DeleteHatim(hatim.ID); !errors.Is(err, ErrHatimNotFound) {
		t.Fatalf("second delete: err = %v, want ErrHatimNotFound", err)
	}
}

func TestClaimPieceConflict(t *testing.T) {
	a := newTestApp(t)

	hatim, err := a.CreateHatim(1)
	if err != nil {
		t.Fatalf("create hatim: %v", err)
	}
	piece, err := a.ClaimPiece(hatim.ID, 1, 1)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if piece.ID != 1 || piece.IsRead {
		t.Fatalf("piece = %+v, want id 1 unread", piece)
	}

	_, err = a.ClaimPiece(hatim.ID, 1, 2)
	var claimed *AlreadyClaimedError
	if !errors.As(err, &claimed) {
		t.Fatalf("competing claim: err = %v, want AlreadyClaimedError", err)
	}
	if claimed.UserID != 1 {
		t.Fatalf("conflict claimant = %d, want 1", claimed.UserID)
	}

	// The same participant cannot double-claim their own slot either.
	if _, err := a.ClaimPiece(hatim.ID, 1, 1); !errors.As(err, &claimed) {
		t.Fatalf("self re-claim: err = %v, want AlreadyClaimedError", err)
	}
}

func TestReadUnreadRoundTrip(t *testing.T) {
	a := newTestApp(t)

	hatim, _ := a.CreateHatim(1)
	original, err := a.ClaimPiece(hatim.ID, 1, 1)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	read, err := a.MarkPieceRead(hatim.ID, 1, 1)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !read.IsRead || read.ID != original.ID {
		t.Fatalf("read = %+v, want same piece with isRead true", read)
	}

	unread, err := a.MarkPieceUnread(hatim.ID, 1, 1)
	if err != nil {
		t.Fatalf("mark unread: %v", err)
	}
	if unread.IsRead != original.IsRead {
		t.Fatalf("round trip should restore isRead to %v", original.IsRead)
	}
}

func TestMarkPieceRequiresExactKey(t *testing.T) {
	a := newTestApp(t)

	hatim, _ := a.CreateHatim(1)
	if _, err := a.ClaimPiece(hatim.ID, 1, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// Wrong user id does not match the claim.
	if _, err := a.MarkPieceRead(hatim.ID, 1, 2); !errors.Is(err, ErrPieceNotFound) {
		t.Fatalf("wrong user: err = %v, want ErrPieceNotFound", err)
	}
	if _, err := a.MarkPieceUnread(hatim.ID, 2, 1); !errors.Is(err, ErrPieceNotFound) {
		t.Fatalf("wrong index: err = %v, want ErrPieceNotFound", err)
	}
}

func TestReleasePieceFreesSlot(t *testing.T) {
	a := newTestApp(t)

	hatim, _ := a.CreateHatim(1)
	if _, err := a.ReleasePiece(hatim.ID, 1, 1); !errors.Is(err, ErrPieceNotFound) {
		t.Fatalf("release missing piece: err = %v, want ErrPieceNotFound", err)
	}

	first, err := a.ClaimPiece(hatim.ID, 1, 1)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	// Release does not check claimant identity; any caller with the key
	// may free the slot.
	released, err := a.ReleasePiece(hatim.ID, 1, 42)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !released {
		t.Fatalf("released = false, want true")
	}

	second, err := a.ClaimPiece(hatim.ID, 1, 2)
	if err != nil {
		t.Fatalf("re-claim after release: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("re-claim should produce a fresh piece id")
	}
	if second.UserID != 2 {
		t.Fatalf("new claimant = %d, want 2", second.UserID)
	}
}

func TestListPiecesScopedToHatim(t *testing.T) {
	a := newTestApp(t)

	first, _ := a.CreateHatim(1)
	other, _ := a.CreateHatim(2)
	if _, err := a.ClaimPiece(first.ID, 1, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := a.ClaimPiece(first.ID, 2, 2); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := a.ClaimPiece(other.ID, 1, 1); err != nil {
		t.Fatalf("claim in other hatim: %v", err)
	}

	pieces, err := a.ListPiecesByHatim(first.ID)
	if err != nil {
		t.Fatalf("list pieces: %v", err)
	}
	if len(pieces) != 2 || pieces[0].PieceIndex != 1 || pieces[1].PieceIndex != 2 {
		t.Fatalf("pieces = %+v, want indexes 1,2 in creation order", pieces)
	}

	userPieces, err := a.ListPiecesByUser(1)
	if err != nil {
		t.Fatalf("list user pieces: %v", err)
	}
	if len(userPieces) != 2 {
		t.Fatalf("user 1 pieces = %+v, want 2 across hatims", userPieces)
	}
}

func TestDeleteHatimDoesNotCascade(t *testing.T) {
	a := newTestApp(t)

	hatim, _ := a.CreateHatim(1)
	if _, err := a.ClaimPiece(hatim.ID, 1, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := a.DeleteHatim(hatim.ID); err != nil {
		t.Fatalf("delete hatim: %v", err)
	}

	// Pieces survive their hatim's deletion; the delete is non-cascading.
	pieces, err := a.ListPiecesByHatim(hatim.ID)
	if err != nil {
		t.Fatalf("list pieces: %v", err)
	}
	if len(pieces) != 1 {
		t.Fatalf("pieces after hatim delete = %+v, want the orphaned piece", pieces)
	}
}

func TestNewRequiresStoreOrDatabaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error when neither store nor database URL is set")
	}
}
