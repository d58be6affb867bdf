package crm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/syntroph/crm/internal/database"
	"github.com/syntroph/crm/internal/models"
)

var ErrNotFound = errors.New("not found")

// Service holds the tenant-scoped business data access. Every query runs
// through the binder against the request's bound connection; no method ever
// names a schema or a tenant id explicitly.
type Service struct {
	binder *database.Binder
}

func NewService(binder *database.Binder) *Service {
	return &Service{binder: binder}
}

// CreateUser inserts a user into the current tenant's schema. Admin-only at
// the routing layer; createdBy tracks which admin issued the account.
func (s *Service) CreateUser(ctx context.Context, email, fullName string, role models.Role, createdBy uuid.UUID) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	var u models.User
	err := s.binder.WithTx(ctx, func(ctx context.Context, q database.Querier) error {
		return q.QueryRow(ctx,
			`INSERT INTO users (email, full_name, role, created_by)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, email, full_name, role, created_by, created_at`,
			email, fullName, role, createdBy,
		).Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.CreatedBy, &u.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
