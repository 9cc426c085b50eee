package transport

import (
	"context"

	"storefront/internal/middleware"

	"github.com/google/uuid"
)

// withTestUser mimics what AuthMiddleware stores for an authenticated request
func withTestUser(ctx context.Context, userID uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, middleware.UserIDKey, userID)
	return context.WithValue(ctx, middleware.UserRoleKey, role)
}

// withTestSession mimics what SessionMiddleware stores for an anonymous request
func withTestSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, middleware.SessionIDKey, sessionID)
}
