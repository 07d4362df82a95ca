package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/trading-journal/internal/domain"
)

// SnapshotRepository stores portfolio valuation snapshots per owner.
type SnapshotRepository interface {
	Create(ctx context.Context, snap *domain.Snapshot) error
	ListByOwner(ctx context.Context, owner string, limit, offset int) ([]domain.Snapshot, error)
	LatestByOwner(ctx context.Context, owner string) (*domain.Snapshot, error)
	DeleteByIDAndOwner(ctx context.Context, id, owner string) (int64, error)
}

type snapshotRepository struct {
	db Querier
}

// NewSnapshotRepository returns a Postgres-backed implementation.
func NewSnapshotRepository(db Querier) SnapshotRepository {
	return &snapshotRepository{db: db}
}

const snapshotColumns = `id, owner_email, taken_at, currency, total_value::text, holdings, created_at`

func (r *snapshotRepository) Create(ctx context.Context, snap *domain.Snapshot) error {
	holdings, err := json.Marshal(snap.Holdings)
	if err != nil {
		return fmt.Errorf("encode holdings: %w", err)
	}
	const query = `
        INSERT INTO snapshots (id, owner_email, taken_at, currency, total_value, holdings)
        VALUES ($1,$2,$3,$4,$5::numeric,$6)
        RETURNING created_at`
	return r.db.QueryRow(ctx, query,
		snap.ID,
		snap.Owner,
		snap.TakenAt,
		snap.Currency,
		snap.TotalValue.String(),
		holdings,
	).Scan(&snap.CreatedAt)
}

func (r *snapshotRepository) ListByOwner(ctx context.Context, owner string, limit, offset int) ([]domain.Snapshot, error) {
	limit, offset = pageBounds(limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM snapshots WHERE owner_email=$1 ORDER BY taken_at DESC LIMIT %d OFFSET %d`,
		snapshotColumns, limit, offset)
	rows, err := r.db.Query(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

func (r *snapshotRepository) LatestByOwner(ctx context.Context, owner string) (*domain.Snapshot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots WHERE owner_email=$1 ORDER BY taken_at DESC LIMIT 1`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	snaps, err := scanSnapshots(rows)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &snaps[0], nil
}

func (r *snapshotRepository) DeleteByIDAndOwner(ctx context.Context, id, owner string) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM snapshots WHERE id=$1 AND owner_email=$2`, id, owner)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanSnapshots(rows pgx.Rows) ([]domain.Snapshot, error) {
	var result []domain.Snapshot
	for rows.Next() {
		var (
			snap     domain.Snapshot
			total    string
			holdings []byte
		)
		if err := rows.Scan(
			&snap.ID,
			&snap.Owner,
			&snap.TakenAt,
			&snap.Currency,
			&total,
			&holdings,
			&snap.CreatedAt,
		); err != nil {
			return nil, err
		}
		var err error
		if snap.TotalValue, err = parseDecimal("total_value", total); err != nil {
			return nil, err
		}
		if len(holdings) > 0 {
			if err := json.Unmarshal(holdings, &snap.Holdings); err != nil {
				return nil, fmt.Errorf("decode holdings: %w", err)
			}
		}
		result = append(result, snap)
	}
	return result, rows.Err()
}
