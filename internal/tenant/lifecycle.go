package tenant

import (
	"fmt"

	"github.com/syntroph/crm/internal/models"
)

// transitions is the complete lifecycle graph. Degraded behaves as a
// sub-state of active: only reachable from active (migration failure) and
// only recoverable to active after manual remediation. Deleted is terminal.
var transitions = map[models.Status][]models.Status{
	models.StatusProvisioning: {models.StatusActive},
	models.StatusActive:       {models.StatusDegraded, models.StatusSuspended, models.StatusArchived},
	models.StatusDegraded:     {models.StatusActive},
	models.StatusSuspended:    {models.StatusActive, models.StatusArchived},
	models.StatusArchived:     {models.StatusDeleted},
	models.StatusDeleted:      {},
}

func CanTransition(from, to models.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition rejects any (from, to) pair not in the graph before
// any provisioner action runs.
func ValidateTransition(from, to models.Status) error {
	if _, ok := transitions[from]; !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, from)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
