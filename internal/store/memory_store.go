package store

import (
	"fmt"
	"sync"

	"hatimgo/pkg/domain"
)

type slotKey struct {
	hatimID    int64
	pieceIndex int64
}

// MemoryStore keeps hatims and pieces in-process. It backs tests and any
// deployment that can live without durability; the mutex gives it the
// same atomic claim-admission behavior as the Postgres unique index.
type MemoryStore struct {
	mu          sync.RWMutex
	hatims      map[int64]domain.Hatim
	hatimOrder  []int64
	pieces      map[int64]domain.HatimPiece
	pieceOrder  []int64
	slots       map[slotKey]int64 // slot -> piece ID
	nextHatimID int64
	nextPieceID int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hatims: make(map[int64]domain.Hatim),
		pieces: make(map[int64]domain.HatimPiece),
		slots:  make(map[slotKey]int64),
	}
}

// CreateHatim stores a hatim under the next sequential id.
func (m *MemoryStore) CreateHatim(creatorID int64) (domain.Hatim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextHatimID++
	hatim := domain.Hatim{ID: m.nextHatimID, CreatorID: creatorID}
	m.hatims[hatim.ID] = hatim
	m.hatimOrder = append(m.hatimOrder, hatim.ID)
	return hatim, nil
}

// GetHatim returns a hatim by id.
func (m *MemoryStore) GetHatim(id int64) (domain.Hatim, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hatim, ok := m.hatims[id]
	return hatim, ok, nil
}

// DeleteHatim removes a hatim. Its pieces stay; there is no cascade.
func (m *MemoryStore) DeleteHatim(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hatims, id)
	return nil
}

// ListHatims returns hatims in insertion order, bounded by offset/limit.
func (m *MemoryStore) ListHatims(offset, limit int) ([]domain.Hatim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Hatim, 0, limit)
	skipped := 0
	for _, id := range m.hatimOrder {
		hatim, ok := m.hatims[id]
		if !ok {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(res) == limit {
			break
		}
		res = append(res, hatim)
	}
	return res, nil
}

// ListHatimsByCreator returns hatims filtered by creator in insertion order.
func (m *MemoryStore) ListHatimsByCreator(creatorID int64) ([]domain.Hatim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.Hatim
	for _, id := range m.hatimOrder {
		if hatim, ok := m.hatims[id]; ok && hatim.CreatorID == creatorID {
			res = append(res, hatim)
		}
	}
	return res, nil
}

// CreatePiece inserts a claim record, failing with ErrSlotTaken while a
// live piece occupies the slot. Check and insert happen under one lock.
func (m *MemoryStore) CreatePiece(piece domain.HatimPiece) (domain.HatimPiece, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := slotKey{hatimID: piece.HatimID, pieceIndex: piece.PieceIndex}
	if _, taken := m.slots[key]; taken {
		return domain.HatimPiece{}, ErrSlotTaken
	}
	m.nextPieceID++
	piece.ID = m.nextPieceID
	m.pieces[piece.ID] = piece
	m.pieceOrder = append(m.pieceOrder, piece.ID)
	m.slots[key] = piece.ID
	return piece, nil
}

// FindPieceBySlot returns the live piece for a (hatim, piece) slot.
func (m *MemoryStore) FindPieceBySlot(hatimID, pieceIndex int64) (domain.HatimPiece, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.slots[slotKey{hatimID: hatimID, pieceIndex: pieceIndex}]
	if !ok {
		return domain.HatimPiece{}, false, nil
	}
	piece, ok := m.pieces[id]
	return piece, ok, nil
}

// FindClaim returns the piece matching (hatim, piece, user), requiring
// exactly one match. Duplicate matches report ErrAmbiguousClaim.
func (m *MemoryStore) FindClaim(hatimID, pieceIndex, userID int64) (domain.HatimPiece, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var (
		found   domain.HatimPiece
		matches int
	)
	for _, id := range m.pieceOrder {
		piece, ok := m.pieces[id]
		if !ok {
			continue
		}
		if piece.HatimID == hatimID && piece.PieceIndex == pieceIndex && piece.UserID == userID {
			found = piece
			matches++
		}
	}
	switch matches {
	case 0:
		return domain.HatimPiece{}, false, nil
	case 1:
		return found, true, nil
	default:
		return domain.HatimPiece{}, false, ErrAmbiguousClaim
	}
}

// SetPieceRead persists the read flag and returns the updated piece.
func (m *MemoryStore) SetPieceRead(id int64, isRead bool) (domain.HatimPiece, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	piece, ok := m.pieces[id]
	if !ok {
		return domain.HatimPiece{}, fmt.Errorf("piece %d not found", id)
	}
	piece.IsRead = isRead
	m.pieces[id] = piece
	return piece, nil
}

// DeletePiece removes a piece and frees its slot.
func (m *MemoryStore) DeletePiece(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	piece, ok := m.pieces[id]
	if !ok {
		return nil
	}
	delete(m.pieces, id)
	key := slotKey{hatimID: piece.HatimID, pieceIndex: piece.PieceIndex}
	if m.slots[key] == id {
		delete(m.slots, key)
	}
	return nil
}

// ListPiecesByHatim returns a hatim's pieces in insertion order.
func (m *MemoryStore) ListPiecesByHatim(hatimID int64) ([]domain.HatimPiece, error) {
	return m.listPieces(func(p domain.HatimPiece) bool { return p.HatimID == hatimID }), nil
}

// ListPiecesByUser returns a participant's pieces across all hatims.
func (m *MemoryStore) ListPiecesByUser(userID int64) ([]domain.HatimPiece, error) {
	return m.listPieces(func(p domain.HatimPiece) bool { return p.UserID == userID }), nil
}

func (m *MemoryStore) listPieces(match func(domain.HatimPiece) bool) []domain.HatimPiece {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.HatimPiece
	for _, id := range m.pieceOrder {
		if piece, ok := m.pieces[id]; ok && match(piece) {
			res = append(res, piece)
		}
	}
	return res
}
