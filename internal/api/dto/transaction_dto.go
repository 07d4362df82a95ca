package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/trading-journal/internal/domain"
)

// TransactionRequest is the body of create and update calls.
type TransactionRequest struct {
	Symbol   string           `json:"symbol"`
	Side     domain.TradeSide `json:"side"`
	Quantity decimal.Decimal  `json:"quantity"`
	Price    decimal.Decimal  `json:"price"`
	Fee      decimal.Decimal  `json:"fee"`
	Currency string           `json:"currency"`
	TradedAt *time.Time       `json:"traded_at"`
	Note     string           `json:"note"`
}

// TransactionResponse is the public shape of a transaction.
type TransactionResponse struct {
	ID        string           `json:"id"`
	Symbol    string           `json:"symbol"`
	Side      domain.TradeSide `json:"side"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Price     decimal.Decimal  `json:"price"`
	Fee       decimal.Decimal  `json:"fee"`
	Currency  string           `json:"currency"`
	Gross     decimal.Decimal  `json:"gross"`
	CashFlow  decimal.Decimal  `json:"cash_flow"`
	TradedAt  time.Time        `json:"traded_at"`
	Note      string           `json:"note,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// MutationResponse reports an update or delete. A zero Affected looks the
// same whether the id is unknown or belongs to another owner.
type MutationResponse struct {
	ID       string `json:"id"`
	Affected int64  `json:"affected"`
}

// NewTransactionResponse maps a domain transaction.
func NewTransactionResponse(tx *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        tx.ID,
		Symbol:    tx.Symbol,
		Side:      tx.Side,
		Quantity:  tx.Quantity,
		Price:     tx.Price,
		Fee:       tx.Fee,
		Currency:  tx.Currency,
		Gross:     tx.Gross(),
		CashFlow:  tx.CashFlow(),
		TradedAt:  tx.TradedAt,
		Note:      tx.Note,
		CreatedAt: tx.CreatedAt,
		UpdatedAt: tx.UpdatedAt,
	}
}
