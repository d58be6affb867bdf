package tenant

import (
	"context"

	"github.com/syntroph/crm/internal/models"
)

type contextKey string

const (
	tenantKey contextKey = "tenant"
	userKey   contextKey = "user"
)

// WithTenant attaches the resolved tenant record to the request context.
// The value is request-scoped and must never outlive the request.
func WithTenant(ctx context.Context, t *models.TenantRecord) context.Context {
	return context.WithValue(ctx, tenantKey, t)
}

func FromContext(ctx context.Context) *models.TenantRecord {
	t, _ := ctx.Value(tenantKey).(*models.TenantRecord)
	return t
}

// WithUser attaches the principal's user row, read fresh from the resolved
// tenant's schema by the authorization gate.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}
