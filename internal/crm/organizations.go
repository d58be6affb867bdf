package crm

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/syntroph/crm/internal/database"
	"github.com/syntroph/crm/internal/models"
)

func (s *Service) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	var out []models.Organization
	err := s.binder.WithConn(ctx, func(ctx context.Context, q database.Querier) error {
		rows, err := q.Query(ctx, `SELECT id, name, domain, created_at FROM organizations ORDER BY name`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var o models.Organization
			if err := rows.Scan(&o.ID, &o.Name, &o.Domain, &o.CreatedAt); err != nil {
				return err
			}
			out = append(out, o)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return out, nil
}

func (s *Service) CreateOrganization(ctx context.Context, o *models.Organization) error {
	err := s.binder.WithTx(ctx, func(ctx context.Context, q database.Querier) error {
		return q.QueryRow(ctx,
			`INSERT INTO organizations (name, domain) VALUES ($1, $2) RETURNING id, created_at`,
			o.Name, o.Domain,
		).Scan(&o.ID, &o.CreatedAt)
	})
	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

func (s *Service) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var o models.Organization
	err := s.binder.WithConn(ctx, func(ctx context.Context, q database.Querier) error {
		return q.QueryRow(ctx, `SELECT id, name, domain, created_at FROM organizations WHERE id = $1`, id).
			Scan(&o.ID, &o.Name, &o.Domain, &o.CreatedAt)
	})
	if err != nil {
		return nil, notFoundOr(err, "organization")
	}
	return &o, nil
}

func (s *Service) DeleteOrganization(ctx context.Context, id uuid.UUID) error {
	return s.binder.WithTx(ctx, func(ctx context.Context, q database.Querier) error {
		tag, err := q.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: organization", ErrNotFound)
		}
		return nil
	})
}
