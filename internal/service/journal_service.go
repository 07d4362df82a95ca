package service

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
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

const defaultCurrency = "USD"

// Amounts are stored as NUMERIC(28,10).
const (
	amountScale         = 10
	amountIntegerDigits = 18
)

var amountLimit = decimal.New(1, amountIntegerDigits)

var (
	currencyPattern   = regexp.MustCompile(`^[A-Z]{3}$`)
	settingKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_.-]{0,63}$`)
)

// JournalService coordinates transaction and settings workflows.
type JournalService struct {
	transactions repository.TransactionRepository
	settings     repository.SettingRepository
	dispatcher   events.Dispatcher
	now          func() time.Time
}

// JournalDependencies bundles repositories for the journal service.
type JournalDependencies struct {
	TransactionRepo repository.TransactionRepository
	SettingRepo     repository.SettingRepository
	Dispatcher      events.Dispatcher
}

// TransactionInput is the writable part of a transaction.
type TransactionInput struct {
	Symbol   string
	Side     domain.TradeSide
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Fee      decimal.Decimal
	Currency string
	TradedAt time.Time
	Note     string
}

// TransactionListFilter describes listing filters.
type TransactionListFilter struct {
	Symbol *string
	Side   *domain.TradeSide
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// Mutation reports the effect of an update or delete. Affected is zero both
// for ids that do not exist and for ids owned by someone else.
type Mutation struct {
	ID       string
	Affected int64
}

// NewJournalService constructs the service.
func NewJournalService(deps JournalDependencies) *JournalService {
	return &JournalService{
		transactions: deps.TransactionRepo,
		settings:     deps.SettingRepo,
		dispatcher:   deps.Dispatcher,
		now:          time.Now,
	}
}

// RecordTransaction stores a new transaction owned by the scope.
func (s *JournalService) RecordTransaction(ctx context.Context, scope Scope, input TransactionInput) (*domain.Transaction, error) {
	input, err := s.normalizeTransaction(input)
	if err != nil {
		return nil, err
	}
	tx := &domain.Transaction{
		ID:       uuid.NewString(),
		Owner:    scope.Owner,
		Symbol:   input.Symbol,
		Side:     input.Side,
		Quantity: input.Quantity,
		Price:    input.Price,
		Fee:      input.Fee,
		Currency: input.Currency,
		TradedAt: input.TradedAt,
		Note:     input.Note,
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}
	s.publish(ctx, scope, events.EventTransactionRecorded, tx.ID, transactionPayload(tx))
	return tx, nil
}

// GetTransaction fetches one of the scope's transactions. Someone else's id
// is reported as not found.
func (s *JournalService) GetTransaction(ctx context.Context, scope Scope, id string) (*domain.Transaction, error) {
	id, ok := normalizeID(id)
	if !ok {
		return nil, apperrors.NewNotFound("transaction", nil)
	}
	tx, err := s.transactions.GetByIDAndOwner(ctx, id, scope.Owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("transaction", nil)
		}
		return nil, err
	}
	return tx, nil
}

// ListTransactions returns the scope's transactions, newest first.
func (s *JournalService) ListTransactions(ctx context.Context, scope Scope, filter TransactionListFilter) ([]domain.Transaction, error) {
	return s.transactions.ListByOwner(ctx, scope.Owner, repository.TransactionFilter{
		Symbol: filter.Symbol,
		Side:   filter.Side,
		From:   filter.From,
		To:     filter.To,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// UpdateTransaction replaces the writable fields of one of the scope's
// transactions.
func (s *JournalService) UpdateTransaction(ctx context.Context, scope Scope, id string, input TransactionInput) (Mutation, error) {
	input, err := s.normalizeTransaction(input)
	if err != nil {
		return Mutation{}, err
	}
	canonical, ok := normalizeID(id)
	if !ok {
		return Mutation{ID: id}, nil
	}
	tx := &domain.Transaction{
		ID:       canonical,
		Owner:    scope.Owner,
		Symbol:   input.Symbol,
		Side:     input.Side,
		Quantity: input.Quantity,
		Price:    input.Price,
		Fee:      input.Fee,
		Currency: input.Currency,
		TradedAt: input.TradedAt,
		Note:     input.Note,
	}
	affected, err := s.transactions.UpdateByIDAndOwner(ctx, tx)
	if err != nil {
		return Mutation{}, err
	}
	if affected > 0 {
		s.publish(ctx, scope, events.EventTransactionUpdated, canonical, transactionPayload(tx))
	}
	return Mutation{ID: id, Affected: affected}, nil
}

// DeleteTransaction removes one of the scope's transactions.
func (s *JournalService) DeleteTransaction(ctx context.Context, scope Scope, id string) (Mutation, error) {
	canonical, ok := normalizeID(id)
	if !ok {
		return Mutation{ID: id}, nil
	}
	affected, err := s.transactions.DeleteByIDAndOwner(ctx, canonical, scope.Owner)
	if err != nil {
		return Mutation{}, err
	}
	if affected > 0 {
		s.publish(ctx, scope, events.EventTransactionDeleted, canonical, events.RemovalPayload{Affected: affected})
	}
	return Mutation{ID: id, Affected: affected}, nil
}

// ListSettings returns the scope's settings.
func (s *JournalService) ListSettings(ctx context.Context, scope Scope) ([]domain.Setting, error) {
	return s.settings.ListByOwner(ctx, scope.Owner)
}

// PutSetting creates or replaces a setting. value must be valid JSON.
func (s *JournalService) PutSetting(ctx context.Context, scope Scope, key string, value []byte) (*domain.Setting, error) {
	if !settingKeyPattern.MatchString(key) {
		return nil, apperrors.NewValidationError("invalid setting key", map[string]any{"key": key})
	}
	if !json.Valid(value) {
		return nil, apperrors.NewValidationError("setting value must be JSON", nil)
	}
	setting := &domain.Setting{Owner: scope.Owner, Key: key, Value: string(value)}
	if err := s.settings.Upsert(ctx, setting); err != nil {
		return nil, err
	}
	s.publish(ctx, scope, events.EventSettingChanged, key, events.SettingChangedPayload{Key: key})
	return setting, nil
}

// DeleteSetting removes a setting of the scope.
func (s *JournalService) DeleteSetting(ctx context.Context, scope Scope, key string) (Mutation, error) {
	affected, err := s.settings.DeleteByKeyAndOwner(ctx, key, scope.Owner)
	if err != nil {
		return Mutation{}, err
	}
	if affected > 0 {
		s.publish(ctx, scope, events.EventSettingChanged, key, events.SettingChangedPayload{Key: key, Removed: true})
	}
	return Mutation{ID: key, Affected: affected}, nil
}

func (s *JournalService) normalizeTransaction(input TransactionInput) (TransactionInput, error) {
	details := map[string]any{}

	input.Symbol = strings.ToUpper(strings.TrimSpace(input.Symbol))
	if input.Symbol == "" || len(input.Symbol) > 32 {
		details["symbol"] = "required, at most 32 characters"
	}
	input.Side = domain.TradeSide(strings.ToUpper(string(input.Side)))
	if !input.Side.Valid() {
		details["side"] = "must be BUY or SELL"
	}
	if !input.Quantity.IsPositive() {
		details["quantity"] = "must be greater than zero"
	}
	if input.Price.IsNegative() {
		details["price"] = "must not be negative"
	}
	if input.Fee.IsNegative() {
		details["fee"] = "must not be negative"
	}
	for field, amount := range map[string]decimal.Decimal{"quantity": input.Quantity, "price": input.Price, "fee": input.Fee} {
		if _, failed := details[field]; failed {
			continue
		}
		if reason := amountProblem(amount); reason != "" {
			details[field] = reason
		}
	}
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if input.Currency == "" {
		input.Currency = defaultCurrency
	}
	if !currencyPattern.MatchString(input.Currency) {
		details["currency"] = "must be a 3-letter code"
	}
	if input.TradedAt.IsZero() {
		input.TradedAt = s.now()
	}
	input.TradedAt = input.TradedAt.UTC()
	input.Note = strings.TrimSpace(input.Note)

	if len(details) > 0 {
		return input, apperrors.NewValidationError("invalid transaction", details)
	}
	return input, nil
}

// amountProblem reports why d cannot be stored exactly, or "" when it can.
func amountProblem(d decimal.Decimal) string {
	if !d.Equal(d.Truncate(amountScale)) {
		return "at most 10 decimal places"
	}
	if d.Abs().GreaterThanOrEqual(amountLimit) {
		return "at most 18 integer digits"
	}
	return ""
}

func (s *JournalService) publish(ctx context.Context, scope Scope, eventType events.EventType, subjectID string, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		Type:      eventType,
		Owner:     scope.Owner,
		SubjectID: subjectID,
		Actor:     scope.actor(),
		Payload:   payload,
	})
}

func transactionPayload(tx *domain.Transaction) events.TransactionPayload {
	return events.TransactionPayload{
		Symbol:   tx.Symbol,
		Side:     tx.Side,
		Quantity: tx.Quantity,
		Price:    tx.Price,
	}
}
