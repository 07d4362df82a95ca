package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/trading-journal/internal/domain"
)

// TransactionFilter narrows a listing. Owner is always applied separately.
type TransactionFilter struct {
	Symbol *string
	Side   *domain.TradeSide
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// TransactionRepository encapsulates transaction persistence. Every method
// takes the owner and applies it inside the statement itself.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByIDAndOwner(ctx context.Context, id, owner string) (*domain.Transaction, error)
	ListByOwner(ctx context.Context, owner string, filter TransactionFilter) ([]domain.Transaction, error)
	UpdateByIDAndOwner(ctx context.Context, tx *domain.Transaction) (int64, error)
	DeleteByIDAndOwner(ctx context.Context, id, owner string) (int64, error)
}

type transactionRepository struct {
	db Querier
}

// NewTransactionRepository returns a Postgres-backed implementation.
func NewTransactionRepository(db Querier) TransactionRepository {
	return &transactionRepository{db: db}
}

const transactionColumns = `id, owner_email, symbol, side, quantity::text, price::text, fee::text,
               currency, traded_at, note, created_at, updated_at`

func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	const query = `
        INSERT INTO transactions (id, owner_email, symbol, side, quantity, price, fee, currency, traded_at, note)
        VALUES ($1,$2,$3,$4,$5::numeric,$6::numeric,$7::numeric,$8,$9,$10)
        RETURNING created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		tx.ID,
		tx.Owner,
		tx.Symbol,
		tx.Side,
		tx.Quantity.String(),
		tx.Price.String(),
		tx.Fee.String(),
		tx.Currency,
		tx.TradedAt,
		tx.Note,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
}

func (r *transactionRepository) GetByIDAndOwner(ctx context.Context, id, owner string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
        FROM transactions WHERE id=$1 AND owner_email=$2`
	rows, err := r.db.Query(ctx, query, id, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	txs, err := scanTransactions(rows)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &txs[0], nil
}

func (r *transactionRepository) ListByOwner(ctx context.Context, owner string, filter TransactionFilter) ([]domain.Transaction, error) {
	clauses := []string{"owner_email=$1"}
	args := []any{owner}

	if filter.Symbol != nil && strings.TrimSpace(*filter.Symbol) != "" {
		args = append(args, strings.ToUpper(strings.TrimSpace(*filter.Symbol)))
		clauses = append(clauses, fmt.Sprintf("symbol=$%d", len(args)))
	}
	if filter.Side != nil {
		args = append(args, *filter.Side)
		clauses = append(clauses, fmt.Sprintf("side=$%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("traded_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("traded_at <= $%d", len(args)))
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY traded_at DESC, id LIMIT %d OFFSET %d`,
		transactionColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *transactionRepository) UpdateByIDAndOwner(ctx context.Context, tx *domain.Transaction) (int64, error) {
	const query = `
        UPDATE transactions SET symbol=$1, side=$2, quantity=$3::numeric, price=$4::numeric, fee=$5::numeric,
            currency=$6, traded_at=$7, note=$8, updated_at=NOW()
        WHERE id=$9 AND owner_email=$10`
	cmd, err := r.db.Exec(ctx, query,
		tx.Symbol,
		tx.Side,
		tx.Quantity.String(),
		tx.Price.String(),
		tx.Fee.String(),
		tx.Currency,
		tx.TradedAt,
		tx.Note,
		tx.ID,
		tx.Owner,
	)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *transactionRepository) DeleteByIDAndOwner(ctx context.Context, id, owner string) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE id=$1 AND owner_email=$2`, id, owner)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var result []domain.Transaction
	for rows.Next() {
		var (
			tx                  domain.Transaction
			qty, price, feeText string
		)
		if err := rows.Scan(
			&tx.ID,
			&tx.Owner,
			&tx.Symbol,
			&tx.Side,
			&qty,
			&price,
			&feeText,
			&tx.Currency,
			&tx.TradedAt,
			&tx.Note,
			&tx.CreatedAt,
			&tx.UpdatedAt,
		); err != nil {
			return nil, err
		}
		var err error
		if tx.Quantity, err = parseDecimal("quantity", qty); err != nil {
			return nil, err
		}
		if tx.Price, err = parseDecimal("price", price); err != nil {
			return nil, err
		}
		if tx.Fee, err = parseDecimal("fee", feeText); err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}
