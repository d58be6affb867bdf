package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syntroph/crm/internal/cache"
	"github.com/syntroph/crm/internal/models"
)

const tenantColumns = `id, name, routing_key, schema_name, status, owner_email, schema_version, last_error, created_at, updated_at`

// routingKeyPattern keeps routing keys usable both as subdomain labels and,
// lowercased with dashes folded to underscores, as schema name suffixes.
var routingKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9-]{1,61}$`)

// SchemaNameFor derives the namespace handle for a routing key. The mapping
// is deterministic; rows are never deleted from the registry, so the unique
// routing_key index guarantees a handle is never reused by a later tenant.
func SchemaNameFor(routingKey string) string {
	return "tenant_" + strings.ReplaceAll(routingKey, "-", "_")
}

// Registry is the authoritative catalog of tenants, stored in the shared
// schema. Lookups may be served from a short-TTL cache; every lifecycle
// transition invalidates the cached entry before anything physical happens.
type Registry struct {
	pool  *pgxpool.Pool
	cache *cache.Cache
	ttl   time.Duration
}

func NewRegistry(pool *pgxpool.Pool, c *cache.Cache, ttl time.Duration) *Registry {
	return &Registry{pool: pool, cache: c, ttl: ttl}
}

func (r *Registry) Register(ctx context.Context, name, routingKey, ownerEmail string) (*models.TenantRecord, error) {
	if !routingKeyPattern.MatchString(routingKey) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRoutingKey, routingKey)
	}

	var t models.TenantRecord
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tenants (name, routing_key, schema_name, status, owner_email)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+tenantColumns,
		name, routingKey, SchemaNameFor(routingKey), models.StatusProvisioning, ownerEmail,
	).Scan(scanTargets(&t)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRoutingKey, routingKey)
		}
		return nil, fmt.Errorf("register tenant: %w", err)
	}
	return &t, nil
}

func (r *Registry) Lookup(ctx context.Context, routingKey string) (*models.TenantRecord, error) {
	key := cacheKeyRouting(routingKey)
	if r.cache != nil {
		var t models.TenantRecord
		if err := r.cache.Get(ctx, key, &t); err == nil {
			return &t, nil
		}
	}

	t, err := r.fetch(ctx, "routing_key = $1", routingKey)
	if err != nil {
		return nil, err
	}
	r.cacheSet(ctx, key, t)
	return t, nil
}

func (r *Registry) LookupID(ctx context.Context, id uuid.UUID) (*models.TenantRecord, error) {
	key := cacheKeyID(id)
	if r.cache != nil {
		var t models.TenantRecord
		if err := r.cache.Get(ctx, key, &t); err == nil {
			return &t, nil
		}
	}

	t, err := r.fetch(ctx, "id = $1", id)
	if err != nil {
		return nil, err
	}
	r.cacheSet(ctx, key, t)
	return t, nil
}

func (r *Registry) List(ctx context.Context) ([]models.TenantRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var out []models.TenantRecord
	for rows.Next() {
		var t models.TenantRecord
		if err := rows.Scan(scanTargets(&t)...); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateStatus validates the transition against the lifecycle graph under a
// row lock, applies it, then drops the cached entry. Callers performing a
// physical schema action must call this first so new resolutions are fenced
// off before the action proceeds.
func (r *Registry) UpdateStatus(ctx context.Context, id uuid.UUID, next models.Status) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin status update: %w", err)
	}
	defer tx.Rollback(ctx)

	var current models.Status
	var routingKey string
	err = tx.QueryRow(ctx,
		`SELECT status, routing_key FROM tenants WHERE id = $1 FOR UPDATE`, id,
	).Scan(&current, &routingKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrTenantNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("lock tenant row: %w", err)
	}

	if err := ValidateTransition(current, next); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE tenants SET status = $2, updated_at = now() WHERE id = $1`, id, next,
	); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit status update: %w", err)
	}

	r.invalidate(ctx, id, routingKey)
	slog.Info("tenant status changed", "tenant", routingKey, "from", current, "to", next)
	return nil
}

// SetLastError records a provisioning or migration failure for operators.
// An empty message clears the field.
func (r *Registry) SetLastError(ctx context.Context, id uuid.UUID, msg string) error {
	var routingKey string
	err := r.pool.QueryRow(ctx,
		`UPDATE tenants SET last_error = NULLIF($2, ''), updated_at = now() WHERE id = $1 RETURNING routing_key`,
		id, msg,
	).Scan(&routingKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrTenantNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("set last error: %w", err)
	}
	r.invalidate(ctx, id, routingKey)
	return nil
}

func (r *Registry) fetch(ctx context.Context, where string, arg interface{}) (*models.TenantRecord, error) {
	var t models.TenantRecord
	err := r.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE `+where, arg,
	).Scan(scanTargets(&t)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", ErrTenantNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

// cacheSet fills via SetNX: a lookup racing with a lifecycle transition may
// carry a row read before the transition committed, and it must lose to the
// tombstone invalidate left behind.
func (r *Registry) cacheSet(ctx context.Context, key string, t *models.TenantRecord) {
	if r.cache == nil {
		return
	}
	if err := r.cache.SetNX(ctx, key, t, r.ttl); err != nil {
		slog.Warn("registry cache set failed", "key", key, "error", err)
	}
}

// invalidate tombstones both keys for the cache TTL, fencing lookups to the
// authoritative row before any physical action runs.
func (r *Registry) invalidate(ctx context.Context, id uuid.UUID, routingKey string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, r.ttl, cacheKeyID(id), cacheKeyRouting(routingKey)); err != nil {
		slog.Warn("registry cache invalidation failed", "tenant", routingKey, "error", err)
	}
}

func cacheKeyRouting(routingKey string) string { return "tenant:rk:" + routingKey }
func cacheKeyID(id uuid.UUID) string           { return "tenant:id:" + id.String() }

func scanTargets(t *models.TenantRecord) []interface{} {
	return []interface{}{
		&t.ID, &t.Name, &t.RoutingKey, &t.SchemaName, &t.Status,
		&t.OwnerEmail, &t.SchemaVersion, &t.LastError, &t.CreatedAt, &t.UpdatedAt,
	}
}
