package store

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hatimgo/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
// TranslateError lets unique-index violations surface as
// gorm.ErrDuplicatedKey instead of driver-specific errors.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&HatimModel{}, &HatimPieceModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateHatim inserts a hatim and returns it with its assigned id.
func (s *GormStore) CreateHatim(creatorID int64) (domain.Hatim, error) {
	model := HatimModel{CreatorID: creatorID}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Hatim{}, err
	}
	return hatimFromModel(model), nil
}

// GetHatim returns a hatim by id.
func (s *GormStore) GetHatim(id int64) (domain.Hatim, bool, error) {
	var model HatimModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Hatim{}, false, nil
		}
		return domain.Hatim{}, false, err
	}
	return hatimFromModel(model), true, nil
}

// DeleteHatim removes a hatim record. Pieces are intentionally left in
// place; there is no cascade.
func (s *GormStore) DeleteHatim(id int64) error {
	return s.db.Delete(&HatimModel{}, "id = ?", id).Error
}

// ListHatims returns hatims in insertion order, bounded by offset/limit.
func (s *GormStore) ListHatims(offset, limit int) ([]domain.Hatim, error) {
	var models []HatimModel
	if err := s.db.Order("id ASC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	return hatimsFromModels(models), nil
}

// ListHatimsByCreator returns hatims filtered by creator in insertion order.
func (s *GormStore) ListHatimsByCreator(creatorID int64) ([]domain.Hatim, error) {
	var models []HatimModel
	if err := s.db.Order("id ASC").Where("creator_id = ?", creatorID).Find(&models).Error; err != nil {
		return nil, err
	}
	return hatimsFromModels(models), nil
}

// CreatePiece inserts a claim record. The unique slot index makes the
// insert the atomic admission gate: of two racing claims exactly one row
// lands, the other gets ErrSlotTaken.
func (s *GormStore) CreatePiece(piece domain.HatimPiece) (domain.HatimPiece, error) {
	model := pieceToModel(piece)
	model.ID = 0
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.HatimPiece{}, ErrSlotTaken
		}
		return domain.HatimPiece{}, err
	}
	return pieceFromModel(model), nil
}

// FindPieceBySlot returns the live piece for a (hatim, piece) slot.
func (s *GormStore) FindPieceBySlot(hatimID, pieceIndex int64) (domain.HatimPiece, bool, error) {
	var model HatimPieceModel
	err := s.db.First(&model, "hatim_id = ? AND piece_index = ?", hatimID, pieceIndex).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.HatimPiece{}, false, nil
		}
		return domain.HatimPiece{}, false, err
	}
	return pieceFromModel(model), true, nil
}

// FindClaim returns the piece matching (hatim, piece, user) and requires
// the match to be unique. More than one row means the slot invariant was
// violated upstream and is reported as ErrAmbiguousClaim.
func (s *GormStore) FindClaim(hatimID, pieceIndex, userID int64) (domain.HatimPiece, bool, error) {
	var models []HatimPieceModel
	err := s.db.Where("hatim_id = ? AND piece_index = ? AND user_id = ?", hatimID, pieceIndex, userID).
		Limit(2).Find(&models).Error
	if err != nil {
		return domain.HatimPiece{}, false, err
	}
	switch len(models) {
	case 0:
		return domain.HatimPiece{}, false, nil
	case 1:
		return pieceFromModel(models[0]), true, nil
	default:
		return domain.HatimPiece{}, false, ErrAmbiguousClaim
	}
}

// SetPieceRead persists the read flag and returns the updated piece.
func (s *GormStore) SetPieceRead(id int64, isRead bool) (domain.HatimPiece, error) {
	if err := s.db.Model(&HatimPieceModel{}).Where("id = ?", id).Update("is_read", isRead).Error; err != nil {
		return domain.HatimPiece{}, err
	}
	var model HatimPieceModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		return domain.HatimPiece{}, err
	}
	return pieceFromModel(model), nil
}

// DeletePiece removes a piece record by id.
func (s *GormStore) DeletePiece(id int64) error {
	return s.db.Delete(&HatimPieceModel{}, "id = ?", id).Error
}

// ListPiecesByHatim returns a hatim's pieces in insertion order.
func (s *GormStore) ListPiecesByHatim(hatimID int64) ([]domain.HatimPiece, error) {
	return s.listPieces("hatim_id = ?", hatimID)
}

// ListPiecesByUser returns a participant's pieces across all hatims.
func (s *GormStore) ListPiecesByUser(userID int64) ([]domain.HatimPiece, error) {
	return s.listPieces("user_id = ?", userID)
}

func (s *GormStore) listPieces(cond string, arg int64) ([]domain.HatimPiece, error) {
	var models []HatimPieceModel
	if err := s.db.Order("id ASC").Where(cond, arg).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.HatimPiece, 0, len(models))
	for _, m := range models {
		res = append(res, pieceFromModel(m))
	}
	return res, nil
}

func hatimFromModel(m HatimModel) domain.Hatim {
	return domain.Hatim{ID: m.ID, CreatorID: m.CreatorID}
}

func hatimsFromModels(models []HatimModel) []domain.Hatim {
	res := make([]domain.Hatim, 0, len(models))
	for _, m := range models {
		res = append(res, hatimFromModel(m))
	}
	return res
}

func pieceToModel(p domain.HatimPiece) HatimPieceModel {
	return HatimPieceModel{
		ID:         p.ID,
		HatimID:    p.HatimID,
		PieceIndex: p.PieceIndex,
		UserID:     p.UserID,
		IsRead:     p.IsRead,
	}
}

func pieceFromModel(m HatimPieceModel) domain.HatimPiece {
	return domain.HatimPiece{
		ID:         m.ID,
		HatimID:    m.HatimID,
		PieceIndex: m.PieceIndex,
		UserID:     m.UserID,
		IsRead:     m.IsRead,
	}
}
