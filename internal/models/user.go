package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a closed, totally ordered set. Users live inside their tenant's
// schema, so a role only has meaning relative to the tenant it was read from.
type Role string

const (
	RoleSalesperson Role = "salesperson"
	RoleManager     Role = "manager"
	RoleAdmin       Role = "admin"
	RoleOwner       Role = "owner"
)

var roleRank = map[Role]int{
	RoleSalesperson: 1,
	RoleManager:     2,
	RoleAdmin:       3,
	RoleOwner:       4,
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r sits at or above required in the hierarchy
// SALESPERSON < MANAGER < ADMIN < OWNER. Unknown roles never qualify.
func (r Role) AtLeast(required Role) bool {
	rr, ok := roleRank[r]
	if !ok {
		return false
	}
	req, ok := roleRank[required]
	if !ok {
		return false
	}
	return rr >= req
}

type User struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Email     string     `json:"email" db:"email"`
	FullName  string     `json:"full_name,omitempty" db:"full_name"`
	Role      Role       `json:"role" db:"role"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
