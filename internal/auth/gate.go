package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/syntroph/crm/internal/database"
	"github.com/syntroph/crm/internal/models"
	"github.com/syntroph/crm/internal/tenant"
)

// ErrDenied is a normal, expected outcome, not a fault.
var ErrDenied = errors.New("denied")

// Gate is the defense-in-depth authorization check. Even though routing has
// already scoped the connection, the gate verifies that the principal is a
// member of the resolved tenant (the user row must exist inside that
// tenant's schema) and holds a sufficient role. It runs on the bound
// connection so a forged header can never satisfy the membership check.
type Gate struct {
	binder *database.Binder
}

func NewGate(binder *database.Binder) *Gate {
	return &Gate{binder: binder}
}

// Authorize returns the principal's user row read fresh from the resolved
// tenant's schema, or ErrDenied with a reason.
func (g *Gate) Authorize(ctx context.Context, required models.Role) (*models.User, error) {
	claims := ClaimsFromContext(ctx)
	rec := tenant.FromContext(ctx)
	if claims == nil || rec == nil {
		return nil, fmt.Errorf("%w: no authenticated principal", ErrDenied)
	}
	userID, err := uuid.Parse(claims.Sub)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid subject", ErrDenied)
	}

	var u models.User
	err = g.binder.WithConn(ctx, func(ctx context.Context, q database.Querier) error {
		return q.QueryRow(ctx,
			`SELECT id, email, full_name, role, created_by, created_at FROM users WHERE id = $1`,
			userID,
		).Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.CreatedBy, &u.CreatedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: not a member of tenant %s", ErrDenied, rec.RoutingKey)
	}
	if err != nil {
		return nil, fmt.Errorf("load principal: %w", err)
	}

	if !u.Role.AtLeast(required) {
		return nil, fmt.Errorf("%w: role %s does not satisfy %s", ErrDenied, u.Role, required)
	}
	return &u, nil
}

// RequireRole gates a route subtree on a minimum role and stores the
// verified user in the request context for handlers.
func (g *Gate) RequireRole(required models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := g.Authorize(r.Context(), required)
			if errors.Is(err, ErrDenied) {
				writeError(w, http.StatusForbidden, err.Error())
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, "authorization check failed")
				return
			}
			next.ServeHTTP(w, r.WithContext(tenant.WithUser(r.Context(), u)))
		})
	}
}
