package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a tenant. Transitions are validated by
// the tenant package; nothing else may write a Status.
type Status string

const (
	StatusProvisioning Status = "provisioning"
	StatusActive       Status = "active"
	// StatusDegraded is a read-only sub-state of active: the tenant failed a
	// schema migration and blocks writes until an operator remediates it.
	StatusDegraded  Status = "degraded"
	StatusSuspended Status = "suspended"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)

// Routable reports whether requests may resolve to a tenant in this state.
// Degraded tenants stay routable; the write fence blocks their mutations.
func (s Status) Routable() bool {
	return s == StatusActive || s == StatusDegraded
}

type TenantRecord struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	RoutingKey    string    `json:"routing_key" db:"routing_key"`
	SchemaName    string    `json:"schema_name" db:"schema_name"`
	Status        Status    `json:"status" db:"status"`
	OwnerEmail    string    `json:"owner_email" db:"owner_email"`
	SchemaVersion int       `json:"schema_version" db:"schema_version"`
	LastError     *string   `json:"last_error,omitempty" db:"last_error"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
