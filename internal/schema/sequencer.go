package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syntroph/crm/internal/metrics"
	"github.com/syntroph/crm/internal/models"
	"github.com/syntroph/crm/internal/tenant"
)

// TenantReport is one tenant's row in an ApplyPending report.
type TenantReport struct {
	TenantID       uuid.UUID `json:"tenant_id"`
	RoutingKey     string    `json:"routing_key"`
	AppliedVersion int       `json:"applied_version"`
	Status         string    `json:"status"` // up-to-date | applied | failed
	Error          string    `json:"error,omitempty"`
}

// catalog is the registry surface the sequencer needs.
type catalog interface {
	List(ctx context.Context) ([]models.TenantRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next models.Status) error
	SetLastError(ctx context.Context, id uuid.UUID, msg string) error
}

// applier applies one migration to one tenant namespace in its own
// transaction and reads back the tenant's ledger position.
type applier interface {
	lastApplied(ctx context.Context, tenantID uuid.UUID) (int, error)
	apply(ctx context.Context, t models.TenantRecord, m Migration) error
}

// Sequencer replays pending migrations across tenant namespaces. Within one
// tenant migrations run strictly in ascending sequence order; across tenants
// there is no ordering and one tenant's failure never blocks another. A
// failing tenant is marked degraded and left for manual intervention; the
// sequencer never retries a schema change on its own.
type Sequencer struct {
	cat catalog
	src *Source
	ap  applier
}

func NewSequencer(pool *pgxpool.Pool, reg *tenant.Registry, src *Source) *Sequencer {
	return &Sequencer{cat: reg, src: src, ap: &pgApplier{pool: pool}}
}

func (s *Sequencer) ApplyPending(ctx context.Context) ([]TenantReport, error) {
	tenants, err := s.cat.List(ctx)
	if err != nil {
		return nil, err
	}

	var report []TenantReport
	for _, t := range tenants {
		if t.Status != models.StatusActive && t.Status != models.StatusProvisioning {
			continue
		}
		report = append(report, s.applyTenant(ctx, t))
	}
	return report, nil
}

func (s *Sequencer) applyTenant(ctx context.Context, t models.TenantRecord) TenantReport {
	rep := TenantReport{TenantID: t.ID, RoutingKey: t.RoutingKey}

	last, err := s.ap.lastApplied(ctx, t.ID)
	if err != nil {
		rep.Status = "failed"
		rep.Error = err.Error()
		return rep
	}
	rep.AppliedVersion = last

	pending := s.src.Since(last)
	if len(pending) == 0 {
		rep.Status = "up-to-date"
		return rep
	}

	for _, m := range pending {
		if err := s.ap.apply(ctx, t, m); err != nil {
			metrics.Migrations.WithLabelValues("failed").Inc()
			s.markDegraded(ctx, t, m, err)
			rep.Status = "failed"
			rep.Error = fmt.Sprintf("%s: %v", m.Name, err)
			return rep
		}
		metrics.Migrations.WithLabelValues("applied").Inc()
		rep.AppliedVersion = m.Version
	}

	rep.Status = "applied"
	slog.Info("tenant migrated", "tenant", t.RoutingKey, "version", rep.AppliedVersion)
	return rep
}

func (s *Sequencer) markDegraded(ctx context.Context, t models.TenantRecord, m Migration, cause error) {
	slog.Error("migration failed", "tenant", t.RoutingKey, "migration", m.Name, "error", cause)

	// Only an active tenant can degrade; a provisioning tenant has no
	// traffic to fence and keeps its status.
	if t.Status == models.StatusActive {
		if err := s.cat.UpdateStatus(ctx, t.ID, models.StatusDegraded); err != nil {
			slog.Error("marking tenant degraded failed", "tenant", t.RoutingKey, "error", err)
		}
	}
	msg := fmt.Sprintf("%s: %v", m.Name, cause)
	if err := s.cat.SetLastError(ctx, t.ID, msg); err != nil {
		slog.Error("recording migration failure failed", "tenant", t.RoutingKey, "error", err)
	}
}

type pgApplier struct {
	pool *pgxpool.Pool
}

func (a *pgApplier) lastApplied(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var version int
	err := a.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM tenant_migrations WHERE tenant_id = $1`, tenantID,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read migration ledger: %w", err)
	}
	return version, nil
}

func (a *pgApplier) apply(ctx context.Context, t models.TenantRecord, m Migration) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer tx.Rollback(ctx)

	setSQL := "SET LOCAL search_path TO " + pgx.Identifier{t.SchemaName}.Sanitize() + ", public"
	if _, err := tx.Exec(ctx, setSQL); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}
	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO public.tenant_migrations (tenant_id, version, name) VALUES ($1, $2, $3)`,
		t.ID, m.Version, m.Name,
	); err != nil {
		return fmt.Errorf("record in ledger: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE public.tenants SET schema_version = $2, updated_at = now() WHERE id = $1`,
		t.ID, m.Version,
	); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit(ctx)
}
