package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syntroph/crm/internal/models"
)

func TestCanTransition(t *testing.T) {
	allowed := map[models.Status][]models.Status{
		models.StatusProvisioning: {models.StatusActive},
		models.StatusActive:       {models.StatusDegraded, models.StatusSuspended, models.StatusArchived},
		models.StatusDegraded:     {models.StatusActive},
		models.StatusSuspended:    {models.StatusActive, models.StatusArchived},
		models.StatusArchived:     {models.StatusDeleted},
		models.StatusDeleted:      {},
	}

	all := []models.Status{
		models.StatusProvisioning, models.StatusActive, models.StatusDegraded,
		models.StatusSuspended, models.StatusArchived, models.StatusDeleted,
	}

	for from, targets := range allowed {
		ok := make(map[models.Status]bool, len(targets))
		for _, to := range targets {
			ok[to] = true
		}
		for _, to := range all {
			got := CanTransition(from, to)
			assert.Equal(t, ok[to], got, "%s -> %s", from, to)
		}
	}
}

func TestValidateTransition(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		require.NoError(t, ValidateTransition(models.StatusActive, models.StatusDegraded))
		require.NoError(t, ValidateTransition(models.StatusDegraded, models.StatusActive))
		require.NoError(t, ValidateTransition(models.StatusArchived, models.StatusDeleted))
	})

	t.Run("rejected", func(t *testing.T) {
		cases := []struct{ from, to models.Status }{
			{models.StatusProvisioning, models.StatusSuspended},
			{models.StatusProvisioning, models.StatusArchived},
			{models.StatusDegraded, models.StatusSuspended},
			{models.StatusDegraded, models.StatusArchived},
			{models.StatusSuspended, models.StatusDegraded},
			{models.StatusArchived, models.StatusActive},
			{models.StatusDeleted, models.StatusActive},
			{models.StatusActive, models.StatusActive},
			{models.StatusActive, models.StatusDeleted},
		}
		for _, tc := range cases {
			err := ValidateTransition(tc.from, tc.to)
			require.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tc.from, tc.to)
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		err := ValidateTransition(models.Status("bogus"), models.StatusActive)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestDeletedIsTerminal(t *testing.T) {
	for _, to := range []models.Status{
		models.StatusProvisioning, models.StatusActive, models.StatusDegraded,
		models.StatusSuspended, models.StatusArchived, models.StatusDeleted,
	} {
		assert.False(t, CanTransition(models.StatusDeleted, to), "deleted -> %s", to)
	}
}
