package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRejectsUnmarshalableDetails(t *testing.T) {
	svc := NewService(nil)

	err := svc.Record(context.Background(), Entry{
		Actor:   "admin@127.0.0.1",
		Action:  "tenant.create",
		Details: map[string]interface{}{"bad": func() {}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal audit details")
}
