package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/dhwanilabs/dhwani_backend/pkg/reqctx"
)

const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"

	LocalIdentity = "identity"
)

// Identity reads the authenticated caller set by the API gateway from the
// X-User-Id and X-User-Role headers and stores a reqctx.Identity in locals.
// Requests without the headers pass through anonymous; route guards decide
// whether that is acceptable.
func Identity() fiber.Handler {
	return func(c fiber.Ctx) error {
		rawID := c.Get(HeaderUserID)
		if rawID == "" {
			return c.Next()
		}

		userID, err := uuid.Parse(rawID)
		if err != nil {
			return fiber.ErrUnauthorized
		}

		role := c.Get(HeaderUserRole)
		if role == "" {
			role = reqctx.RoleStudent
		}

		c.Locals(LocalIdentity, &reqctx.Identity{UserID: userID, Role: role})
		return c.Next()
	}
}

// IdentityFromFiber retrieves the caller identity stored by Identity().
func IdentityFromFiber(c fiber.Ctx) (*reqctx.Identity, bool) {
	id, ok := c.Locals(LocalIdentity).(*reqctx.Identity)
	return id, ok && id != nil
}

// RequireAuth rejects anonymous requests.
func RequireAuth() fiber.Handler {
	return func(c fiber.Ctx) error {
		if _, ok := IdentityFromFiber(c); !ok {
			return fiber.ErrUnauthorized
		}
		return c.Next()
	}
}

// RequireRole rejects callers whose role is not in the allowed set. It
// implies RequireAuth.
func RequireRole(roles ...string) fiber.Handler {
	return func(c fiber.Ctx) error {
		id, ok := IdentityFromFiber(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		for _, role := range roles {
			if id.Role == role {
				return c.Next()
			}
		}
		return fiber.ErrForbidden
	}
}
