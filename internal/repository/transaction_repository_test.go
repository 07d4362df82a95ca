package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/trading-journal/internal/domain"
)

func TestTransactionStatementsCarryOwnerPredicate(t *testing.T) {
	db := &fakeQuerier{}
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	_, _ = repo.GetByIDAndOwner(ctx, "id-1", "ada@example.com")
	assert.Contains(t, db.last().sql, "WHERE id=$1 AND owner_email=$2")
	assert.Equal(t, []any{"id-1", "ada@example.com"}, db.last().args)

	_, err := repo.DeleteByIDAndOwner(ctx, "id-1", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM transactions WHERE id=$1 AND owner_email=$2", db.last().sql)
	assert.Equal(t, []any{"id-1", "ada@example.com"}, db.last().args)

	_, err = repo.UpdateByIDAndOwner(ctx, &domain.Transaction{ID: "id-1", Owner: "ada@example.com"})
	require.NoError(t, err)
	assert.Contains(t, db.last().sql, "WHERE id=$9 AND owner_email=$10")
	args := db.last().args
	assert.Equal(t, "id-1", args[8])
	assert.Equal(t, "ada@example.com", args[9])

	_, err = repo.ListByOwner(ctx, "ada@example.com", TransactionFilter{})
	require.NoError(t, err)
	assert.Contains(t, db.last().sql, "WHERE owner_email=$1 ORDER BY")
	assert.Equal(t, []any{"ada@example.com"}, db.last().args)
}

func TestTransactionMutationsReportRowsAffected(t *testing.T) {
	db := &fakeQuerier{affected: 0}
	repo := NewTransactionRepository(db)

	n, err := repo.DeleteByIDAndOwner(context.Background(), "id-1", "bob@example.com")
	require.NoError(t, err)
	assert.Zero(t, n)

	db.affected = 1
	n, err = repo.UpdateByIDAndOwner(context.Background(), &domain.Transaction{ID: "id-1", Owner: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	db.err = errors.New("connection reset")
	_, err = repo.DeleteByIDAndOwner(context.Background(), "id-1", "ada@example.com")
	assert.EqualError(t, err, "connection reset")
}

func TestTransactionListFilters(t *testing.T) {
	db := &fakeQuerier{}
	repo := NewTransactionRepository(db)

	symbol := " aapl "
	side := domain.TradeSideSell
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	_, err := repo.ListByOwner(context.Background(), "ada@example.com", TransactionFilter{
		Symbol: &symbol, Side: &side, From: &from, To: &to, Limit: 10_000, Offset: -4,
	})
	require.NoError(t, err)

	call := db.last()
	assert.Contains(t, call.sql, "WHERE owner_email=$1 AND symbol=$2 AND side=$3 AND traded_at >= $4 AND traded_at <= $5")
	assert.Contains(t, call.sql, "LIMIT 500 OFFSET 0")
	assert.Equal(t, []any{"ada@example.com", "AAPL", side, from, to}, call.args)
}

func TestTransactionScanParsesDecimals(t *testing.T) {
	traded := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
	db := &fakeQuerier{rows: [][]any{{
		"6f1c6f9e-4c1a-4a8c-9f8e-0d5a3f1b2c3d", "ada@example.com", "AAPL", "BUY",
		"10.5000000000", "187.1200000000", "1.0000000000", "USD",
		traded, "", traded, traded,
	}}}
	repo := NewTransactionRepository(db)

	tx, err := repo.GetByIDAndOwner(context.Background(), "6f1c6f9e-4c1a-4a8c-9f8e-0d5a3f1b2c3d", "ada@example.com")
	require.NoError(t, err)
	assert.True(t, tx.Quantity.Equal(decimal.RequireFromString("10.5")))
	assert.True(t, tx.Price.Equal(decimal.RequireFromString("187.12")))
	assert.Equal(t, domain.TradeSideBuy, tx.Side)
	assert.True(t, tx.CashFlow().Equal(decimal.RequireFromString("-1965.76")))

	db.rows = nil
	_, err = repo.GetByIDAndOwner(context.Background(), "6f1c6f9e-4c1a-4a8c-9f8e-0d5a3f1b2c3d", "bob@example.com")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestTransactionCreateSendsDecimalText(t *testing.T) {
	now := time.Now()
	db := &fakeQuerier{row: []any{now, now}}
	repo := NewTransactionRepository(db)

	tx := &domain.Transaction{
		ID:       "6f1c6f9e-4c1a-4a8c-9f8e-0d5a3f1b2c3d",
		Owner:    "ada@example.com",
		Symbol:   "AAPL",
		Side:     domain.TradeSideBuy,
		Quantity: decimal.RequireFromString("0.125"),
		Price:    decimal.RequireFromString("100"),
		Fee:      decimal.Zero,
		Currency: "USD",
		TradedAt: now,
	}
	require.NoError(t, repo.Create(context.Background(), tx))
	args := db.last().args
	assert.Equal(t, "ada@example.com", args[1])
	assert.Equal(t, "0.125", args[4])
	assert.Equal(t, "100", args[5])
	assert.Equal(t, "0", args[6])
	assert.Equal(t, now, tx.CreatedAt)
}
