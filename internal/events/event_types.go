package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/trading-journal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTransactionRecorded EventType = "transaction_recorded"
	EventTransactionUpdated  EventType = "transaction_updated"
	EventTransactionDeleted  EventType = "transaction_deleted"
	EventSnapshotUploaded    EventType = "snapshot_uploaded"
	EventSnapshotDeleted     EventType = "snapshot_deleted"
	EventSettingChanged      EventType = "setting_changed"
)

// AllEventTypes lists every type, for subscribers that want everything.
var AllEventTypes = []EventType{
	EventTransactionRecorded,
	EventTransactionUpdated,
	EventTransactionDeleted,
	EventSnapshotUploaded,
	EventSnapshotDeleted,
	EventSettingChanged,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Identity string `json:"identity"`
	Role     string `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Owner     string      `json:"owner"`
	SubjectID string      `json:"subject_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// TransactionPayload describes a recorded or updated transaction.
type TransactionPayload struct {
	Symbol   string           `json:"symbol"`
	Side     domain.TradeSide `json:"side"`
	Quantity decimal.Decimal  `json:"quantity"`
	Price    decimal.Decimal  `json:"price"`
}

// RemovalPayload reports how many rows a delete touched.
type RemovalPayload struct {
	Affected int64 `json:"affected"`
}

// SnapshotUploadedPayload payload.
type SnapshotUploadedPayload struct {
	TakenAt    time.Time       `json:"taken_at"`
	TotalValue decimal.Decimal `json:"total_value"`
	Holdings   int             `json:"holdings"`
	Override   bool            `json:"override"`
}

// SettingChangedPayload payload.
type SettingChangedPayload struct {
	Key     string `json:"key"`
	Removed bool   `json:"removed"`
}
