package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/creator-service/internal/api/dto"
	"github.com/spec-kit/creator-service/internal/identity"
	"github.com/spec-kit/creator-service/internal/service"
	apperrors "github.com/spec-kit/creator-service/pkg/util/errorutil"
)

// OnboardingHandler exposes the onboarding session endpoints.
type OnboardingHandler struct {
	onboarding *service.OnboardingService
}

// NewOnboardingHandler constructs handler.
func NewOnboardingHandler(onboarding *service.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{onboarding: onboarding}
}

// Start handles POST /onboarding/sessions.
func (h *OnboardingHandler) Start(c *fiber.Ctx) error {
	ident, ok := identity.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.StartSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.InviteToken == "" {
		return apperrors.NewValidationError("invite_token required", nil)
	}

	session, err := h.onboarding.Start(c.UserContext(), req.InviteToken, *ident)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewSessionResponse(session)})
}

// Get handles GET /onboarding/sessions/:id.
func (h *OnboardingHandler) Get(c *fiber.Ctx) error {
	ident, ok := identity.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	session, err := h.onboarding.Get(c.UserContext(), c.Params("id"), ident.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(session)})
}

// Advance handles POST /onboarding/sessions/:id/advance.
func (h *OnboardingHandler) Advance(c *fiber.Ctx) error {
	ident, ok := identity.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.AdvanceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	session, err := h.onboarding.Advance(c.UserContext(), c.Params("id"), ident.ID, req.Input())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(session)})
}

// Retreat handles POST /onboarding/sessions/:id/retreat.
func (h *OnboardingHandler) Retreat(c *fiber.Ctx) error {
	ident, ok := identity.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	session, err := h.onboarding.Retreat(c.UserContext(), c.Params("id"), ident.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(session)})
}

// Finalize handles POST /onboarding/sessions/:id/finalize.
func (h *OnboardingHandler) Finalize(c *fiber.Ctx) error {
	ident, ok := identity.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	outcome, err := h.onboarding.Finalize(c.UserContext(), c.Params("id"), *ident)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"session":           dto.NewSessionResponse(outcome.Session),
		"already_completed": outcome.AlreadyCompleted,
	}})
}
