package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/trading-journal/internal/domain"
)

// SnapshotRequest is an uploaded valuation. Owner is only honoured for the
// machine caller.
type SnapshotRequest struct {
	Owner      string           `json:"owner"`
	TakenAt    *time.Time       `json:"taken_at"`
	Currency   string           `json:"currency"`
	TotalValue *decimal.Decimal `json:"total_value"`
	Holdings   []domain.Holding `json:"holdings"`
}

// SnapshotResponse is the public shape of a snapshot.
type SnapshotResponse struct {
	ID         string           `json:"id"`
	Owner      string           `json:"owner"`
	TakenAt    time.Time        `json:"taken_at"`
	Currency   string           `json:"currency"`
	TotalValue decimal.Decimal  `json:"total_value"`
	Holdings   []domain.Holding `json:"holdings"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NewSnapshotResponse maps a domain snapshot.
func NewSnapshotResponse(s *domain.Snapshot) SnapshotResponse {
	holdings := s.Holdings
	if holdings == nil {
		holdings = []domain.Holding{}
	}
	return SnapshotResponse{
		ID:         s.ID,
		Owner:      s.Owner,
		TakenAt:    s.TakenAt,
		Currency:   s.Currency,
		TotalValue: s.TotalValue,
		Holdings:   holdings,
		CreatedAt:  s.CreatedAt,
	}
}

// SettingResponse is a stored preference; Value is the raw JSON document.
type SettingResponse struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewSettingResponse maps a domain setting.
func NewSettingResponse(s *domain.Setting) SettingResponse {
	return SettingResponse{Key: s.Key, Value: json.RawMessage(s.Value), UpdatedAt: s.UpdatedAt}
}
