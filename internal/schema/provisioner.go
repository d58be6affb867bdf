package schema

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syntroph/crm/internal/metrics"
	"github.com/syntroph/crm/internal/models"
	"github.com/syntroph/crm/internal/tenant"
)

// keyedMutex serializes work per routing key. Provisioning the same tenant
// twice concurrently must not race; different tenants proceed in parallel.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// registry is the catalog surface the provisioner needs.
type registry interface {
	LookupID(ctx context.Context, id uuid.UUID) (*models.TenantRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next models.Status) error
	SetLastError(ctx context.Context, id uuid.UUID, msg string) error
}

// Provisioner creates and destroys tenant namespaces. A namespace is only
// ever created inside a single transaction covering CREATE SCHEMA, the full
// migration replay and the ledger rows, so a failure leaves nothing behind.
type Provisioner struct {
	pool    *pgxpool.Pool
	reg     registry
	src     *Source
	locks   keyedMutex
	timeout time.Duration
}

func NewProvisioner(pool *pgxpool.Pool, reg *tenant.Registry, src *Source, timeout time.Duration) *Provisioner {
	return &Provisioner{pool: pool, reg: reg, src: src, timeout: timeout}
}

// Provision builds the tenant's namespace at the latest schema version and
// activates the tenant. Only callable while the tenant is in provisioning
// status; an already-active tenant fails rather than growing a second
// namespace.
func (p *Provisioner) Provision(ctx context.Context, tenantID uuid.UUID) error {
	rec, err := p.reg.LookupID(ctx, tenantID)
	if err != nil {
		return err
	}
	if rec.Status != models.StatusProvisioning {
		return fmt.Errorf("%w: %s is %s", ErrAlreadyProvisioned, rec.RoutingKey, rec.Status)
	}

	unlock := p.locks.lock(rec.RoutingKey)
	defer unlock()

	// Re-read under the lock: a concurrent Provision may have finished and
	// activated the tenant between the first read and lock acquisition, and
	// that caller must get the duplicate error, not a CREATE SCHEMA failure
	// recorded onto a healthy tenant.
	rec, err = p.reg.LookupID(ctx, tenantID)
	if err != nil {
		return err
	}
	if rec.Status != models.StatusProvisioning {
		return fmt.Errorf("%w: %s is %s", ErrAlreadyProvisioned, rec.RoutingKey, rec.Status)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.createNamespace(ctx, rec); err != nil {
		metrics.Provisions.WithLabelValues("failed").Inc()
		if serr := p.reg.SetLastError(context.WithoutCancel(ctx), tenantID, err.Error()); serr != nil {
			slog.Error("recording provisioning failure failed", "tenant", rec.RoutingKey, "error", serr)
		}
		return fmt.Errorf("%w: %s: %v", ErrProvisioningFailed, rec.RoutingKey, err)
	}

	if err := p.reg.UpdateStatus(ctx, tenantID, models.StatusActive); err != nil {
		return err
	}
	if err := p.reg.SetLastError(ctx, tenantID, ""); err != nil {
		slog.Warn("clearing last error failed", "tenant", rec.RoutingKey, "error", err)
	}
	metrics.Provisions.WithLabelValues("ok").Inc()
	slog.Info("tenant provisioned", "tenant", rec.RoutingKey, "schema", rec.SchemaName, "version", p.src.Latest())
	return nil
}

func (p *Provisioner) createNamespace(ctx context.Context, rec *models.TenantRecord) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin provisioning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// No IF NOT EXISTS: a pre-existing schema here means either a stale
	// namespace or a racing provisioner, and both must fail loudly.
	if _, err := tx.Exec(ctx, "CREATE SCHEMA "+pgx.Identifier{rec.SchemaName}.Sanitize()); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	// SET LOCAL scopes the search_path to this transaction only; the
	// connection returns to the pool neutral either way.
	setSQL := "SET LOCAL search_path TO " + pgx.Identifier{rec.SchemaName}.Sanitize() + ", public"
	if _, err := tx.Exec(ctx, setSQL); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}

	for _, m := range p.src.All() {
		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("apply %s: %w", m.Name, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO public.tenant_migrations (tenant_id, version, name) VALUES ($1, $2, $3)`,
			rec.ID, m.Version, m.Name,
		); err != nil {
			return fmt.Errorf("record %s: %w", m.Name, err)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE public.tenants SET schema_version = $2, updated_at = now() WHERE id = $1`,
		rec.ID, p.src.Latest(),
	); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit(ctx)
}

// Archive transitions the tenant out of rotation without touching its data.
// The resolver stops routing to it the moment the status row flips.
func (p *Provisioner) Archive(ctx context.Context, tenantID uuid.UUID) error {
	return p.reg.UpdateStatus(ctx, tenantID, models.StatusArchived)
}

// Destroy irreversibly drops the namespace. The tenant must already be
// archived and the caller must confirm with the tenant's routing key.
// The status row flips to deleted first, so no new request can resolve to
// the namespace while it is being dropped.
func (p *Provisioner) Destroy(ctx context.Context, tenantID uuid.UUID, confirm string) error {
	rec, err := p.reg.LookupID(ctx, tenantID)
	if err != nil {
		return err
	}
	if confirm != rec.RoutingKey {
		return fmt.Errorf("%w: tenant %s", ErrConfirmationMismatch, rec.RoutingKey)
	}

	unlock := p.locks.lock(rec.RoutingKey)
	defer unlock()

	// Validates archived -> deleted and fences new resolutions.
	if err := p.reg.UpdateStatus(ctx, tenantID, models.StatusDeleted); err != nil {
		return err
	}

	if _, err := p.pool.Exec(ctx, "DROP SCHEMA IF EXISTS "+pgx.Identifier{rec.SchemaName}.Sanitize()+" CASCADE"); err != nil {
		if serr := p.reg.SetLastError(ctx, tenantID, "drop schema: "+err.Error()); serr != nil {
			slog.Error("recording drop failure failed", "tenant", rec.RoutingKey, "error", serr)
		}
		return fmt.Errorf("drop schema %s: %w", rec.SchemaName, err)
	}

	slog.Info("tenant namespace dropped", "tenant", rec.RoutingKey, "schema", rec.SchemaName)
	return nil
}
