package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditEntry records administrative and lifecycle actions in the shared
// schema, independent of any tenant namespace.
type AuditEntry struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Actor     string          `json:"actor" db:"actor"`
	Action    string          `json:"action" db:"action"`
	TenantID  *uuid.UUID      `json:"tenant_id,omitempty" db:"tenant_id"`
	Details   json.RawMessage `json:"details" db:"details"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
