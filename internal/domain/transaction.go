package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide is the direction of a transaction.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// Valid reports whether s is a known side.
func (s TradeSide) Valid() bool {
	return s == TradeSideBuy || s == TradeSideSell
}

// Transaction is one buy or sell recorded in a user's journal.
type Transaction struct {
	ID        string
	Owner     string
	Symbol    string
	Side      TradeSide
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Fee       decimal.Decimal
	Currency  string
	TradedAt  time.Time
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Gross is quantity times price, before fees.
func (t *Transaction) Gross() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// CashFlow is the signed cash effect: negative for buys, positive for sells,
// fees always reduce it.
func (t *Transaction) CashFlow() decimal.Decimal {
	gross := t.Gross()
	if t.Side == TradeSideBuy {
		gross = gross.Neg()
	}
	return gross.Sub(t.Fee)
}
