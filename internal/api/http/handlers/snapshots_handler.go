package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/trading-journal/internal/api/dto"
	"github.com/spec-kit/trading-journal/internal/service"
	apperrors "github.com/spec-kit/trading-journal/pkg/util/errorutil"
)

// SnapshotsHandler serves valuation snapshots.
type SnapshotsHandler struct {
	service *service.SnapshotService
}

// NewSnapshotsHandler constructs handler.
func NewSnapshotsHandler(snapshots *service.SnapshotService) *SnapshotsHandler {
	return &SnapshotsHandler{service: snapshots}
}

// Upload POST /api/snapshots. The machine caller may name an owner.
func (h *SnapshotsHandler) Upload(c *fiber.Ctx) error {
	scope, err := scopeFrom(c)
	if err != nil {
		return err
	}
	var req dto.SnapshotRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.SnapshotInput{
		Owner:      req.Owner,
		Currency:   req.Currency,
		TotalValue: req.TotalValue,
		Holdings:   req.Holdings,
	}
	if req.TakenAt != nil {
		input.TakenAt = *req.TakenAt
	}
	snap, err := h.service.UploadSnapshot(c.UserContext(), scope, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewSnapshotResponse(snap)})
}

// List GET /api/snapshots.
func (h *SnapshotsHandler) List(c *fiber.Ctx) error {
	scope, err := scopeFrom(c)
	if err != nil {
		return err
	}
	snaps, err := h.service.ListSnapshots(c.UserContext(), scope, parseInt(c.Query("limit"), 0), parseInt(c.Query("offset"), 0))
	if err != nil {
		return err
	}
	items := make([]dto.SnapshotResponse, 0, len(snaps))
	for i := range snaps {
		items = append(items, dto.NewSnapshotResponse(&snaps[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Latest GET /api/snapshots/latest.
func (h *SnapshotsHandler) Latest(c *fiber.Ctx) error {
	scope, err := scopeFrom(c)
	if err != nil {
		return err
	}
	snap, err := h.service.LatestSnapshot(c.UserContext(), scope)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSnapshotResponse(snap)})
}

// Delete DELETE /api/snapshots/:id.
func (h *SnapshotsHandler) Delete(c *fiber.Ctx) error {
	scope, err := scopeFrom(c)
	if err != nil {
		return err
	}
	m, err := h.service.DeleteSnapshot(c.UserContext(), scope, param(c, "id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MutationResponse{ID: m.ID, Affected: m.Affected}})
}
