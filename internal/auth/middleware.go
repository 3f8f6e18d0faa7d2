package auth

import (
	"fmt"
	"strings"

	rbac "github.com/bohemiyan/tenant-rbac"
	"github.com/gofiber/fiber/v2"
)

// CtxClaimsKey is the Locals key of the token claims, next to
// rbac.LocalsUserID.
const CtxClaimsKey = "claims"

// Middleware authenticates the bearer token of every request.
func Middleware(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fmt.Errorf("missing authorization header: %w", rbac.ErrUnauthenticated)
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			return fmt.Errorf("authorization must be 'Bearer <token>': %w", rbac.ErrUnauthenticated)
		}

		claims, err := svc.Authenticate(c.UserContext(), strings.TrimSpace(parts[1]))
		if err != nil {
			return err
		}

		c.Locals(rbac.LocalsUserID, claims.UserID)
		c.Locals(CtxClaimsKey, claims)
		return c.Next()
	}
}

// ClaimsFromCtx returns the claims stored by Middleware.
func ClaimsFromCtx(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(CtxClaimsKey).(*Claims)
	return claims, ok
}
