package store

// GORM models used for persistence.
type HatimModel struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	CreatorID int64 `gorm:"not null;index"`
}

func (HatimModel) TableName() string { return "hatims" }

// HatimPieceModel carries the composite unique index that makes the
// one-claimant-per-slot rule hold even when two inserts race.
type HatimPieceModel struct {
	ID         int64 `gorm:"primaryKey;autoIncrement"`
	HatimID    int64 `gorm:"not null;uniqueIndex:idx_hatim_piece_slot;index"`
	PieceIndex int64 `gorm:"not null;uniqueIndex:idx_hatim_piece_slot"`
	UserID     int64 `gorm:"not null;index"`
	IsRead     bool  `gorm:"not null;default:false"`
}

func (HatimPieceModel) TableName() string { return "hatim_pieces" }
