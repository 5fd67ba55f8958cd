package domain

// Hatim is one communal reading instance. It is immutable once created;
// only its piece collection changes over time.
type Hatim struct {
	ID        int64 `json:"id"`
	CreatorID int64 `json:"creatorId"`
}

// HatimPiece binds one reading unit of a hatim to one claimant.
// At most one live piece may exist per (HatimID, PieceIndex) slot.
type HatimPiece struct {
	ID         int64 `json:"id"`
	HatimID    int64 `json:"hatimId"`
	PieceIndex int64 `json:"pieceIndex"`
	UserID     int64 `json:"userId"`
	IsRead     bool  `json:"isRead"`
}
