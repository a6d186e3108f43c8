package reqctx

import (
	"context"

	"github.com/google/uuid"
)

// Role values forwarded by the gateway.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// Identity is the caller identity resolved by the upstream gateway and
// forwarded via the X-User-Id and X-User-Role headers. Authentication
// itself happens upstream; this service only consumes the result.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// IsAdmin reports whether the caller has the admin role.
func (i *Identity) IsAdmin() bool { return i != nil && i.Role == RoleAdmin }

// IsTeacher reports whether the caller has the teacher role.
func (i *Identity) IsTeacher() bool { return i != nil && i.Role == RoleTeacher }

// WithIdentity stores the caller identity in the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, keyIdentity, id)
}

// IdentityFromContext retrieves the caller identity from the context.
// Returns nil if the request is unauthenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	v := ctx.Value(keyIdentity)
	if v == nil {
		return nil
	}
	id, ok := v.(*Identity)
	if !ok {
		return nil
	}
	return id
}

// MustIdentity retrieves the identity from the context.
// Panics if not present. Use only behind the identity middleware.
func MustIdentity(ctx context.Context) *Identity {
	id := IdentityFromContext(ctx)
	if id == nil {
		panic("reqctx: identity not found in context")
	}
	return id
}

// IsAuthenticated returns true if a caller identity exists in the context.
func IsAuthenticated(ctx context.Context) bool {
	return IdentityFromContext(ctx) != nil
}

// UserIDFromContext extracts the user ID from the identity.
// Returns uuid.Nil and false if not authenticated.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id := IdentityFromContext(ctx)
	if id == nil {
		return uuid.Nil, false
	}
	return id.UserID, true
}
