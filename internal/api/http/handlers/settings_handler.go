package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/trading-journal/internal/api/dto"
	"github.com/spec-kit/trading-journal/internal/auth"
	"github.com/spec-kit/trading-journal/internal/service"
)

// SettingsHandler serves per-user preferences and the caller's identity.
type SettingsHandler struct {
	service *service.JournalService
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(journal *service.JournalService) *SettingsHandler {
	return &SettingsHandler{service: journal}
}

// Me GET /api/me.
func (h *SettingsHandler) Me(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	return c.JSON(fiber.Map{"data": principal})
}

// List GET /api/settings.
func (h *SettingsHandler) List(c *fiber.Ctx) error {
	scope, err := scopeFrom(c)
	if err != nil {
		return err
	}
	settings, err := h.service.ListSettings(c.UserContext(), scope)
	if err != nil {
		return err
	}
	items := make([]dto.SettingResponse, 0, len(settings))
	for i := range settings {
		items = append(items, dto.NewSettingResponse(&settings[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Put PUT /api/settings/:key. The body is the JSON value itself.
func (h *SettingsHandler) Put(c *fiber.Ctx) error {
	scope, err := scopeFrom(c)
	if err != nil {
		return err
	}
	setting, err := h.service.PutSetting(c.UserContext(), scope, param(c, "key"), append([]byte(nil), c.Body()...))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSettingResponse(setting)})
}

// Delete DELETE /api/settings/:key.
func (h *SettingsHandler) Delete(c *fiber.Ctx) error {
	scope, err := scopeFrom(c)
	if err != nil {
		return err
	}
	m, err := h.service.DeleteSetting(c.UserContext(), scope, param(c, "key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MutationResponse{ID: m.ID, Affected: m.Affected}})
}
