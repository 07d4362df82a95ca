package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/trading-journal/internal/api/dto"
	"github.com/spec-kit/trading-journal/internal/domain"
	"github.com/spec-kit/trading-journal/internal/service"
	apperrors "github.com/spec-kit/trading-journal/pkg/util/errorutil"
)

// TransactionsHandler serves the caller's transaction journal.
type TransactionsHandler struct {
	service *service.JournalService
}

// NewTransactionsHandler constructs handler.
func NewTransactionsHandler(journal *service.JournalService) *TransactionsHandler {
	return &TransactionsHandler{service: journal}
}

// Create POST /api/transactions.
func (h *TransactionsHandler) Create(c *fiber.Ctx) error {
	scope, err := scopeFrom(c)
	if err != nil {
		return err
	}
	input, err := parseTransactionBody(c)
	if err != nil {
		return err
	}
	tx, err := h.service.RecordTransaction(c.UserContext(), scope, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTransactionResponse(tx)})
}

// List GET /api/transactions.
func (h *TransactionsHandler) List(c *fiber.Ctx) error {
	scope, err := scopeFrom(c)
	if err != nil {
		return err
	}
	filter, err := parseTransactionQuery(c)
	if err != nil {
		return err
	}
	txs, err := h.service.ListTransactions(c.UserContext(), scope, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TransactionResponse, 0, len(txs))
	for i := range txs {
		items = append(items, dto.NewTransactionResponse(&txs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /api/transactions/:id.
func (h *TransactionsHandler) Get(c *fiber.Ctx) error {
	scope, err := scopeFrom(c)
	if err != nil {
		return err
	}
	tx, err := h.service.GetTransaction(c.UserContext(), scope, param(c, "id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTransactionResponse(tx)})
}

// Update PUT /api/transactions/:id.
func (h *TransactionsHandler) Update(c *fiber.Ctx) error {
	scope, err := scopeFrom(c)
	if err != nil {
		return err
	}
	input, err := parseTransactionBody(c)
	if err != nil {
		return err
	}
	m, err := h.service.UpdateTransaction(c.UserContext(), scope, param(c, "id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MutationResponse{ID: m.ID, Affected: m.Affected}})
}

// Delete DELETE /api/transactions/:id.
func (h *TransactionsHandler) Delete(c *fiber.Ctx) error {
	scope, err := scopeFrom(c)
	if err != nil {
		return err
	}
	m, err := h.service.DeleteTransaction(c.UserContext(), scope, param(c, "id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MutationResponse{ID: m.ID, Affected: m.Affected}})
}

func parseTransactionBody(c *fiber.Ctx) (service.TransactionInput, error) {
	var req dto.TransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return service.TransactionInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.TransactionInput{
		Symbol:   req.Symbol,
		Side:     req.Side,
		Quantity: req.Quantity,
		Price:    req.Price,
		Fee:      req.Fee,
		Currency: req.Currency,
		Note:     req.Note,
	}
	if req.TradedAt != nil {
		input.TradedAt = *req.TradedAt
	}
	return input, nil
}

func parseTransactionQuery(c *fiber.Ctx) (service.TransactionListFilter, error) {
	filter := service.TransactionListFilter{
		Limit:  parseInt(c.Query("limit"), 0),
		Offset: parseInt(c.Query("offset"), 0),
	}
	if symbol := strings.TrimSpace(c.Query("symbol")); symbol != "" {
		filter.Symbol = &symbol
	}
	if sideStr := c.Query("side"); sideStr != "" {
		side := domain.TradeSide(strings.ToUpper(sideStr))
		if !side.Valid() {
			return filter, apperrors.NewValidationError("side must be BUY or SELL", nil)
		}
		filter.Side = &side
	}
	from, err := parseTime(c.Query("from"))
	if err != nil {
		return filter, apperrors.NewValidationError("from must be RFC3339", nil)
	}
	to, err := parseTime(c.Query("to"))
	if err != nil {
		return filter, apperrors.NewValidationError("to must be RFC3339", nil)
	}
	filter.From, filter.To = from, to
	return filter, nil
}
