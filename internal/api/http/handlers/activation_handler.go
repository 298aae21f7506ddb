package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/creator-service/internal/api/dto"
	"github.com/spec-kit/creator-service/internal/identity"
	"github.com/spec-kit/creator-service/internal/service"
	apperrors "github.com/spec-kit/creator-service/pkg/util/errorutil"
)

// AccountWatcher starts a background watch for a freshly requested account.
type AccountWatcher interface {
	Watch(accountID string)
}

// ActivationHandler exposes payment-activation endpoints.
type ActivationHandler struct {
	activation *service.ActivationService
	watcher    AccountWatcher
}

// NewActivationHandler constructs handler.
func NewActivationHandler(activation *service.ActivationService, watcher AccountWatcher) *ActivationHandler {
	return &ActivationHandler{activation: activation, watcher: watcher}
}

// Activate handles POST /activation.
func (h *ActivationHandler) Activate(c *fiber.Ctx) error {
	ident, ok := identity.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	account, err := h.activation.Activate(c.UserContext(), *ident)
	if err != nil {
		return err
	}
	if h.watcher != nil && !account.Status.IsTerminal() {
		h.watcher.Watch(account.AccountID)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewActivationResponse(account)})
}

// Get handles GET /activation.
func (h *ActivationHandler) Get(c *fiber.Ctx) error {
	ident, ok := identity.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	account, err := h.activation.GetActivationState(c.UserContext(), ident.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewActivationResponse(account)})
}

// Reconcile handles POST /activation/reconcile, forcing one poll. The UI
// calls this when the seller returns from the hosted onboarding flow.
func (h *ActivationHandler) Reconcile(c *fiber.Ctx) error {
	ident, ok := identity.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	account, err := h.activation.GetActivationState(c.UserContext(), ident.ID)
	if err != nil {
		return err
	}
	if account.AccountID == "" {
		return apperrors.NewNotFound("activation account", nil)
	}

	account, err = h.activation.Reconcile(c.UserContext(), account.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewActivationResponse(account)})
}
