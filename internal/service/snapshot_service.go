package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/trading-journal/internal/domain"
	"github.com/spec-kit/trading-journal/internal/events"
	"github.com/spec-kit/trading-journal/internal/repository"
	apperrors "github.com/spec-kit/trading-journal/pkg/util/errorutil"
)

// SnapshotService manages valuation snapshots.
type SnapshotService struct {
	snapshots  repository.SnapshotRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// SnapshotInput is an uploaded snapshot. Owner is honoured only for the
// admin scope.
type SnapshotInput struct {
	Owner      string
	TakenAt    time.Time
	Currency   string
	TotalValue *decimal.Decimal
	Holdings   []domain.Holding
}

// NewSnapshotService constructs the service.
func NewSnapshotService(snapshots repository.SnapshotRepository, dispatcher events.Dispatcher) *SnapshotService {
	return &SnapshotService{snapshots: snapshots, dispatcher: dispatcher, now: time.Now}
}

// UploadSnapshot stores a snapshot. This is the one operation where the
// admin scope may write on behalf of another owner; a user naming any owner
// other than itself is refused.
func (s *SnapshotService) UploadSnapshot(ctx context.Context, scope Scope, input SnapshotInput) (*domain.Snapshot, error) {
	owner := scope.Owner
	override := false
	if target := strings.TrimSpace(input.Owner); target != "" && target != scope.Owner {
		if !scope.IsAdmin() {
			return nil, apperrors.NewForbidden("cannot upload snapshots for another owner")
		}
		owner = target
		override = true
	}

	snap, err := s.buildSnapshot(owner, input)
	if err != nil {
		return nil, err
	}
	if err := s.snapshots.Create(ctx, snap); err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:      events.EventSnapshotUploaded,
			Owner:     snap.Owner,
			SubjectID: snap.ID,
			Actor:     scope.actor(),
			Payload: events.SnapshotUploadedPayload{
				TakenAt:    snap.TakenAt,
				TotalValue: snap.TotalValue,
				Holdings:   len(snap.Holdings),
				Override:   override,
			},
		})
	}
	return snap, nil
}

// ListSnapshots returns the scope's snapshots, newest first.
func (s *SnapshotService) ListSnapshots(ctx context.Context, scope Scope, limit, offset int) ([]domain.Snapshot, error) {
	return s.snapshots.ListByOwner(ctx, scope.Owner, limit, offset)
}

// LatestSnapshot returns the scope's most recent snapshot.
func (s *SnapshotService) LatestSnapshot(ctx context.Context, scope Scope) (*domain.Snapshot, error) {
	snap, err := s.snapshots.LatestByOwner(ctx, scope.Owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("snapshot", nil)
	}
	return snap, err
}

// DeleteSnapshot removes one of the scope's snapshots.
func (s *SnapshotService) DeleteSnapshot(ctx context.Context, scope Scope, id string) (Mutation, error) {
	canonical, ok := normalizeID(id)
	if !ok {
		return Mutation{ID: id}, nil
	}
	affected, err := s.snapshots.DeleteByIDAndOwner(ctx, canonical, scope.Owner)
	if err != nil {
		return Mutation{}, err
	}
	if affected > 0 && s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:      events.EventSnapshotDeleted,
			Owner:     scope.Owner,
			SubjectID: canonical,
			Actor:     scope.actor(),
			Payload:   events.RemovalPayload{Affected: affected},
		})
	}
	return Mutation{ID: id, Affected: affected}, nil
}

func (s *SnapshotService) buildSnapshot(owner string, input SnapshotInput) (*domain.Snapshot, error) {
	details := map[string]any{}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if !currencyPattern.MatchString(currency) {
		details["currency"] = "must be a 3-letter code"
	}

	holdings := make([]domain.Holding, 0, len(input.Holdings))
	sum := decimal.Zero
	for i, h := range input.Holdings {
		h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
		if h.Symbol == "" {
			details["holdings"] = map[string]any{"index": i, "reason": "symbol required"}
			continue
		}
		if h.Quantity.IsNegative() || h.Price.IsNegative() {
			details["holdings"] = map[string]any{"index": i, "reason": "quantity and price must not be negative"}
			continue
		}
		if reason := firstAmountProblem(h.Quantity, h.Price, h.Value); reason != "" {
			details["holdings"] = map[string]any{"index": i, "reason": reason}
			continue
		}
		if h.Value.IsZero() {
			h.Value = h.Quantity.Mul(h.Price)
		}
		sum = sum.Add(h.Value)
		holdings = append(holdings, h)
	}
	total := sum.Round(amountScale)
	if input.TotalValue != nil {
		total = *input.TotalValue
	}
	if reason := amountProblem(total); reason != "" {
		details["total_value"] = reason
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid snapshot", details)
	}
	takenAt := input.TakenAt
	if takenAt.IsZero() {
		takenAt = s.now()
	}

	return &domain.Snapshot{
		ID:         uuid.NewString(),
		Owner:      owner,
		TakenAt:    takenAt.UTC(),
		Currency:   currency,
		TotalValue: total,
		Holdings:   holdings,
	}, nil
}

func firstAmountProblem(amounts ...decimal.Decimal) string {
	for _, d := range amounts {
		if reason := amountProblem(d); reason != "" {
			return reason
		}
	}
	return ""
}
