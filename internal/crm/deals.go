package crm

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/syntroph/crm/internal/database"
	"github.com/syntroph/crm/internal/models"
)

const dealColumns = `id, title, amount_cents, stage, contact_id, organization_id, owner_id, created_at`

func (s *Service) ListDeals(ctx context.Context) ([]models.Deal, error) {
	var out []models.Deal
	err := s.binder.WithConn(ctx, func(ctx context.Context, q database.Querier) error {
		rows, err := q.Query(ctx, `SELECT `+dealColumns+` FROM deals ORDER BY created_at DESC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var d models.Deal
			if err := rows.Scan(&d.ID, &d.Title, &d.AmountCents, &d.Stage,
				&d.ContactID, &d.OrganizationID, &d.OwnerID, &d.CreatedAt); err != nil {
				return err
			}
			out = append(out, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	return out, nil
}

func (s *Service) CreateDeal(ctx context.Context, d *models.Deal) error {
	if d.Stage == "" {
		d.Stage = "prospecting"
	}
	err := s.binder.WithTx(ctx, func(ctx context.Context, q database.Querier) error {
		return q.QueryRow(ctx,
			`INSERT INTO deals (title, amount_cents, stage, contact_id, organization_id, owner_id)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id, created_at`,
			d.Title, d.AmountCents, d.Stage, d.ContactID, d.OrganizationID, d.OwnerID,
		).Scan(&d.ID, &d.CreatedAt)
	})
	if err != nil {
		return fmt.Errorf("create deal: %w", err)
	}
	return nil
}

func (s *Service) GetDeal(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	var d models.Deal
	err := s.binder.WithConn(ctx, func(ctx context.Context, q database.Querier) error {
		return q.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1`, id).
			Scan(&d.ID, &d.Title, &d.AmountCents, &d.Stage,
				&d.ContactID, &d.OrganizationID, &d.OwnerID, &d.CreatedAt)
	})
	if err != nil {
		return nil, notFoundOr(err, "deal")
	}
	return &d, nil
}

func (s *Service) DeleteDeal(ctx context.Context, id uuid.UUID) error {
	return s.binder.WithTx(ctx, func(ctx context.Context, q database.Querier) error {
		tag, err := q.Exec(ctx, `DELETE FROM deals WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: deal", ErrNotFound)
		}
		return nil
	})
}
