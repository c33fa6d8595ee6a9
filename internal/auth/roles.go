package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/forgecomply/forgecomply360/internal/domain"
	apperrors "github.com/forgecomply/forgecomply360/pkg/util/errorutil"
)

// RequireRole ensures the principal's live role ranks at or above min.
// The role comes from the loaded user, so demotions apply before token expiry.
func RequireRole(min domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.User.Role.AtLeast(min) {
			return apperrors.NewForbidden("requires role " + string(min) + " or above")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a principal was loaded.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
