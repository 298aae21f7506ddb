package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/creator-service/internal/service"
	apperrors "github.com/spec-kit/creator-service/pkg/util/errorutil"
)

// InvitesHandler exposes the public invite read model.
type InvitesHandler struct {
	invites *service.InviteService
}

// NewInvitesHandler constructs handler.
func NewInvitesHandler(invites *service.InviteService) *InvitesHandler {
	return &InvitesHandler{invites: invites}
}

// Get handles GET /invites/:token.
func (h *InvitesHandler) Get(c *fiber.Ctx) error {
	token := c.Params("token")
	if token == "" {
		return apperrors.NewValidationError("token required", nil)
	}

	state, err := h.invites.GetInviteState(c.UserContext(), token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": state})
}
