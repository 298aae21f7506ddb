package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/creator-service/internal/api/http/handlers"
	"github.com/spec-kit/creator-service/internal/identity"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health             *handlers.HealthHandler
	Invites            *handlers.InvitesHandler
	Onboarding         *handlers.OnboardingHandler
	Activation         *handlers.ActivationHandler
	IdentityMiddleware *identity.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// public: the invite landing page needs state before sign-in
	app.Get("/invites/:token", cfg.Invites.Get)

	onboarding := app.Group("/onboarding", cfg.IdentityMiddleware.Handle, identity.Require())
	onboarding.Post("/sessions", cfg.Onboarding.Start)
	onboarding.Get("/sessions/:id", cfg.Onboarding.Get)
	onboarding.Post("/sessions/:id/advance", cfg.Onboarding.Advance)
	onboarding.Post("/sessions/:id/retreat", cfg.Onboarding.Retreat)
	onboarding.Post("/sessions/:id/finalize", cfg.Onboarding.Finalize)

	activation := app.Group("/activation", cfg.IdentityMiddleware.Handle, identity.Require())
	activation.Post("/", cfg.Activation.Activate)
	activation.Get("/", cfg.Activation.Get)
	activation.Post("/reconcile", cfg.Activation.Reconcile)
}
