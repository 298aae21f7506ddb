package identity

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/creator-service/internal/domain"
	apperrors "github.com/spec-kit/creator-service/pkg/util/errorutil"
)

const identityKey = "current_identity"

// Middleware resolves the signed-in identity from a bearer token.
type Middleware struct {
	tokens *TokenVerifier
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenVerifier) *Middleware {
	return &Middleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	ident, err := m.tokens.Verify(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(identityKey, ident)
	return c.Next()
}

// FromContext retrieves the authenticated identity.
func FromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	ident, ok := val.(*domain.Identity)
	return ident, ok
}

// Require ensures an identity is present on the request.
func Require() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := FromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
