package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/trading-journal/internal/domain"
)

// The memory repositories back local runs without POSTGRES_DSN and the
// tests. They apply the owner predicate the same way the SQL does.

type memoryTransactionRepository struct {
	mu   sync.RWMutex
	rows map[string]domain.Transaction
}

// NewMemoryTransactionRepository returns an in-process TransactionRepository.
func NewMemoryTransactionRepository() TransactionRepository {
	return &memoryTransactionRepository{rows: make(map[string]domain.Transaction)}
}

func (r *memoryTransactionRepository) Create(_ context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	tx.CreatedAt, tx.UpdatedAt = now, now
	r.rows[tx.ID] = *tx
	return nil
}

func (r *memoryTransactionRepository) GetByIDAndOwner(_ context.Context, id, owner string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.rows[id]
	if !ok || tx.Owner != owner {
		return nil, pgx.ErrNoRows
	}
	return &tx, nil
}

func (r *memoryTransactionRepository) ListByOwner(_ context.Context, owner string, filter TransactionFilter) ([]domain.Transaction, error) {
	r.mu.RLock()
	var result []domain.Transaction
	for _, tx := range r.rows {
		if tx.Owner != owner {
			continue
		}
		if filter.Symbol != nil && strings.TrimSpace(*filter.Symbol) != "" &&
			tx.Symbol != strings.ToUpper(strings.TrimSpace(*filter.Symbol)) {
			continue
		}
		if filter.Side != nil && tx.Side != *filter.Side {
			continue
		}
		if filter.From != nil && tx.TradedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && tx.TradedAt.After(*filter.To) {
			continue
		}
		result = append(result, tx)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].TradedAt.Equal(result[j].TradedAt) {
			return result[i].TradedAt.After(result[j].TradedAt)
		}
		return result[i].ID < result[j].ID
	})
	limit, offset := pageBounds(filter.Limit, filter.Offset)
	return page(result, limit, offset), nil
}

func (r *memoryTransactionRepository) UpdateByIDAndOwner(_ context.Context, tx *domain.Transaction) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.rows[tx.ID]
	if !ok || existing.Owner != tx.Owner {
		return 0, nil
	}
	tx.CreatedAt = existing.CreatedAt
	tx.UpdatedAt = time.Now().UTC()
	r.rows[tx.ID] = *tx
	return 1, nil
}

func (r *memoryTransactionRepository) DeleteByIDAndOwner(_ context.Context, id, owner string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.rows[id]
	if !ok || existing.Owner != owner {
		return 0, nil
	}
	delete(r.rows, id)
	return 1, nil
}

type memorySnapshotRepository struct {
	mu   sync.RWMutex
	rows map[string]domain.Snapshot
}

// NewMemorySnapshotRepository returns an in-process SnapshotRepository.
func NewMemorySnapshotRepository() SnapshotRepository {
	return &memorySnapshotRepository{rows: make(map[string]domain.Snapshot)}
}

func (r *memorySnapshotRepository) Create(_ context.Context, snap *domain.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap.CreatedAt = time.Now().UTC()
	r.rows[snap.ID] = *snap
	return nil
}

func (r *memorySnapshotRepository) ListByOwner(_ context.Context, owner string, limit, offset int) ([]domain.Snapshot, error) {
	r.mu.RLock()
	var result []domain.Snapshot
	for _, snap := range r.rows {
		if snap.Owner == owner {
			result = append(result, snap)
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].TakenAt.After(result[j].TakenAt) })
	limit, offset = pageBounds(limit, offset)
	return page(result, limit, offset), nil
}

func (r *memorySnapshotRepository) LatestByOwner(ctx context.Context, owner string) (*domain.Snapshot, error) {
	snaps, err := r.ListByOwner(ctx, owner, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &snaps[0], nil
}

func (r *memorySnapshotRepository) DeleteByIDAndOwner(_ context.Context, id, owner string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.rows[id]
	if !ok || existing.Owner != owner {
		return 0, nil
	}
	delete(r.rows, id)
	return 1, nil
}

type memorySettingRepository struct {
	mu   sync.RWMutex
	rows map[[2]string]domain.Setting
}

// NewMemorySettingRepository returns an in-process SettingRepository.
func NewMemorySettingRepository() SettingRepository {
	return &memorySettingRepository{rows: make(map[[2]string]domain.Setting)}
}

func (r *memorySettingRepository) ListByOwner(_ context.Context, owner string) ([]domain.Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Setting
	for key, s := range r.rows {
		if key[0] == owner {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (r *memorySettingRepository) Upsert(_ context.Context, setting *domain.Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	setting.UpdatedAt = time.Now().UTC()
	stored := domain.Setting{
		Owner:     strings.Clone(setting.Owner),
		Key:       strings.Clone(setting.Key),
		Value:     strings.Clone(setting.Value),
		UpdatedAt: setting.UpdatedAt,
	}
	r.rows[[2]string{stored.Owner, stored.Key}] = stored
	return nil
}

func (r *memorySettingRepository) DeleteByKeyAndOwner(_ context.Context, key, owner string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := [2]string{owner, key}
	if _, ok := r.rows[k]; !ok {
		return 0, nil
	}
	delete(r.rows, k)
	return 1, nil
}

func page[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}
