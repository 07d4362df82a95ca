package repository

import (
	"context"

	"github.com/spec-kit/trading-journal/internal/domain"
)

// SettingRepository stores per-user preferences keyed by name.
type SettingRepository interface {
	ListByOwner(ctx context.Context, owner string) ([]domain.Setting, error)
	Upsert(ctx context.Context, setting *domain.Setting) error
	DeleteByKeyAndOwner(ctx context.Context, key, owner string) (int64, error)
}

type settingRepository struct {
	db Querier
}

// NewSettingRepository returns a Postgres-backed implementation.
func NewSettingRepository(db Querier) SettingRepository {
	return &settingRepository{db: db}
}

func (r *settingRepository) ListByOwner(ctx context.Context, owner string) ([]domain.Setting, error) {
	rows, err := r.db.Query(ctx, `
        SELECT owner_email, key, value::text, updated_at
        FROM settings WHERE owner_email=$1 ORDER BY key`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Setting
	for rows.Next() {
		var s domain.Setting
		if err := rows.Scan(&s.Owner, &s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// Upsert writes the setting; the conflict target includes the owner so a
// key can never be claimed across users.
func (r *settingRepository) Upsert(ctx context.Context, setting *domain.Setting) error {
	const query = `
        INSERT INTO settings (owner_email, key, value)
        VALUES ($1, $2, $3::jsonb)
        ON CONFLICT (owner_email, key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query, setting.Owner, setting.Key, setting.Value).Scan(&setting.UpdatedAt)
}

func (r *settingRepository) DeleteByKeyAndOwner(ctx context.Context, key, owner string) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM settings WHERE key=$1 AND owner_email=$2`, key, owner)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
