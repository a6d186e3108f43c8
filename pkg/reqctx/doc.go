// Package reqctx provides centralized request context management.
//
// This package is the single source of truth for all request-scoped data
// including caller identity, request metadata, and tracing information.
//
// # Context Keys
//
// All context keys are private unexported types to prevent collisions.
// Access is provided through type-safe getter and setter functions.
//
// # Usage
//
// Setting values (typically in middleware):
//
//	ctx = reqctx.WithRequestMeta(ctx, &reqctx.RequestMeta{
//	    RequestID:   "abc-123",
//	    ClientIP:    "192.168.1.1",
//	    UserAgent:   "Mozilla/5.0",
//	    RequestedAt: time.Now(),
//	})
//
//	ctx = reqctx.WithIdentity(ctx, identity)
//
// Getting values (in handlers, services, etc.):
//
//	meta, ok := reqctx.RequestMetaFromContext(ctx)
//	if reqctx.IsAuthenticated(ctx) {
//	    userID, _ := reqctx.UserIDFromContext(ctx)
//	}
package reqctx
