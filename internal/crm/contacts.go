package crm

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/syntroph/crm/internal/database"
	"github.com/syntroph/crm/internal/models"
)

const contactColumns = `id, first_name, last_name, email, phone, organization_id, owner_id, created_at`

func (s *Service) ListContacts(ctx context.Context) ([]models.Contact, error) {
	var out []models.Contact
	err := s.binder.WithConn(ctx, func(ctx context.Context, q database.Querier) error {
		rows, err := q.Query(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY created_at DESC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var c models.Contact
			if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
				&c.OrganizationID, &c.OwnerID, &c.CreatedAt); err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return out, nil
}

func (s *Service) CreateContact(ctx context.Context, c *models.Contact) error {
	err := s.binder.WithTx(ctx, func(ctx context.Context, q database.Querier) error {
		return q.QueryRow(ctx,
			`INSERT INTO contacts (first_name, last_name, email, phone, organization_id, owner_id)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id, created_at`,
			c.FirstName, c.LastName, c.Email, c.Phone, c.OrganizationID, c.OwnerID,
		).Scan(&c.ID, &c.CreatedAt)
	})
	if err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	return nil
}

func (s *Service) GetContact(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	var c models.Contact
	err := s.binder.WithConn(ctx, func(ctx context.Context, q database.Querier) error {
		return q.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id).
			Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
				&c.OrganizationID, &c.OwnerID, &c.CreatedAt)
	})
	if err != nil {
		return nil, notFoundOr(err, "contact")
	}
	return &c, nil
}

func (s *Service) DeleteContact(ctx context.Context, id uuid.UUID) error {
	return s.binder.WithTx(ctx, func(ctx context.Context, q database.Querier) error {
		tag, err := q.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: contact", ErrNotFound)
		}
		return nil
	})
}
