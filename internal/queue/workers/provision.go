package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/syntroph/crm/internal/queue"
	"github.com/syntroph/crm/internal/schema"
)

type ProvisionWorker struct {
	provisioner *schema.Provisioner
}

func NewProvisionWorker(p *schema.Provisioner) *ProvisionWorker {
	return &ProvisionWorker{provisioner: p}
}

func (w *ProvisionWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.TenantProvisionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return fmt.Errorf("bad tenant id %q: %v: %w", payload.TenantID, err, asynq.SkipRetry)
	}

	if err := w.provisioner.Provision(ctx, tenantID); err != nil {
		// The failure is already recorded on the registry row; operators
		// re-enqueue explicitly once the cause is fixed.
		slog.Error("provisioning failed", "tenant_id", tenantID, "error", err)
		return fmt.Errorf("provision %s: %v: %w", tenantID, err, asynq.SkipRetry)
	}
	return nil
}
