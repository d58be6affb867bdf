package models

import (
	"time"

	"github.com/google/uuid"
)

// CRM entities live inside tenant schemas and are only ever reached through
// a scoped connection; none of them carry a tenant_id column on purpose.

type Contact struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	FirstName      string     `json:"first_name" db:"first_name"`
	LastName       string     `json:"last_name" db:"last_name"`
	Email          string     `json:"email,omitempty" db:"email"`
	Phone          string     `json:"phone,omitempty" db:"phone"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty" db:"organization_id"`
	OwnerID        *uuid.UUID `json:"owner_id,omitempty" db:"owner_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

type Organization struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Domain    string    `json:"domain,omitempty" db:"domain"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Deal struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	Title          string     `json:"title" db:"title"`
	AmountCents    int64      `json:"amount_cents" db:"amount_cents"`
	Stage          string     `json:"stage" db:"stage"`
	ContactID      *uuid.UUID `json:"contact_id,omitempty" db:"contact_id"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty" db:"organization_id"`
	OwnerID        *uuid.UUID `json:"owner_id,omitempty" db:"owner_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
