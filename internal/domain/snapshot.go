package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is one position inside a snapshot, priced at snapshot time.
type Holding struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Value    decimal.Decimal `json:"value"`
}

// Snapshot is a precomputed valuation of a user's holdings, usually uploaded
// by the price refresh job.
type Snapshot struct {
	ID         string
	Owner      string
	TakenAt    time.Time
	Currency   string
	TotalValue decimal.Decimal
	Holdings   []Holding
	CreatedAt  time.Time
}
