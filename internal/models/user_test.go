package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleOrdering(t *testing.T) {
	order := []Role{RoleSalesperson, RoleManager, RoleAdmin, RoleOwner}

	for i, r := range order {
		for j, required := range order {
			assert.Equal(t, i >= j, r.AtLeast(required), "%s.AtLeast(%s)", r, required)
		}
	}
}

func TestRoleAtLeastUnknown(t *testing.T) {
	assert.False(t, Role("superuser").AtLeast(RoleSalesperson))
	assert.False(t, RoleOwner.AtLeast(Role("superuser")))
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleSalesperson, RoleManager, RoleAdmin, RoleOwner} {
		assert.True(t, r.Valid(), string(r))
	}
	assert.False(t, Role("").Valid())
	assert.False(t, Role("root").Valid())
	assert.False(t, Role("Admin").Valid())
}
