package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syntroph/crm/internal/models"
)

type fakeCatalog struct {
	byKey map[string]*models.TenantRecord
	byID  map[uuid.UUID]*models.TenantRecord
	errs  map[string]error
}

func newFakeCatalog(recs ...*models.TenantRecord) *fakeCatalog {
	c := &fakeCatalog{
		byKey: make(map[string]*models.TenantRecord),
		byID:  make(map[uuid.UUID]*models.TenantRecord),
		errs:  make(map[string]error),
	}
	for _, r := range recs {
		c.byKey[r.RoutingKey] = r
		c.byID[r.ID] = r
	}
	return c
}

func (c *fakeCatalog) Lookup(_ context.Context, routingKey string) (*models.TenantRecord, error) {
	if err, ok := c.errs[routingKey]; ok {
		return nil, err
	}
	if r, ok := c.byKey[routingKey]; ok {
		return r, nil
	}
	return nil, ErrTenantNotFound
}

func (c *fakeCatalog) LookupID(_ context.Context, id uuid.UUID) (*models.TenantRecord, error) {
	if r, ok := c.byID[id]; ok {
		return r, nil
	}
	return nil, ErrTenantNotFound
}

func record(key string, status models.Status) *models.TenantRecord {
	return &models.TenantRecord{
		ID:         uuid.New(),
		Name:       key,
		RoutingKey: key,
		SchemaName: SchemaNameFor(key),
		Status:     status,
	}
}

func TestResolvePrecedence(t *testing.T) {
	acme := record("acme", models.StatusActive)
	globex := record("globex", models.StatusActive)
	cat := newFakeCatalog(acme, globex)
	r := NewResolver(cat, "crm.example.com")
	ctx := context.Background()

	t.Run("explicit routing key wins over principal", func(t *testing.T) {
		got, err := r.Resolve(ctx, RequestMeta{Explicit: "acme", HomeRoutingKey: "globex"})
		require.NoError(t, err)
		assert.Equal(t, acme.ID, got.ID)
	})

	t.Run("explicit tenant id accepted", func(t *testing.T) {
		got, err := r.Resolve(ctx, RequestMeta{Explicit: globex.ID.String()})
		require.NoError(t, err)
		assert.Equal(t, globex.ID, got.ID)
	})

	t.Run("host subdomain used when no explicit credential", func(t *testing.T) {
		got, err := r.Resolve(ctx, RequestMeta{Host: "acme.crm.example.com:8443", HomeRoutingKey: "globex"})
		require.NoError(t, err)
		assert.Equal(t, acme.ID, got.ID)
	})

	t.Run("principal home tenant is the fallback", func(t *testing.T) {
		got, err := r.Resolve(ctx, RequestMeta{Host: "crm.example.com", HomeRoutingKey: "globex"})
		require.NoError(t, err)
		assert.Equal(t, globex.ID, got.ID)
	})

	t.Run("unknown host falls through to principal", func(t *testing.T) {
		got, err := r.Resolve(ctx, RequestMeta{Host: "nosuch.crm.example.com", HomeRoutingKey: "acme"})
		require.NoError(t, err)
		assert.Equal(t, acme.ID, got.ID)
	})

	t.Run("nothing resolves", func(t *testing.T) {
		_, err := r.Resolve(ctx, RequestMeta{Host: "crm.example.com"})
		require.ErrorIs(t, err, ErrTenantNotFound)
	})
}

func TestResolveAmbiguity(t *testing.T) {
	acme := record("acme", models.StatusActive)
	globex := record("globex", models.StatusActive)
	cat := newFakeCatalog(acme, globex)
	r := NewResolver(cat, "crm.example.com")
	ctx := context.Background()

	t.Run("header and host disagree", func(t *testing.T) {
		_, err := r.Resolve(ctx, RequestMeta{Explicit: "acme", Host: "globex.crm.example.com"})
		require.ErrorIs(t, err, ErrAmbiguousTenant)
	})

	t.Run("header id and host disagree", func(t *testing.T) {
		_, err := r.Resolve(ctx, RequestMeta{Explicit: acme.ID.String(), Host: "globex.crm.example.com"})
		require.ErrorIs(t, err, ErrAmbiguousTenant)
	})

	t.Run("header and host agree", func(t *testing.T) {
		got, err := r.Resolve(ctx, RequestMeta{Explicit: "acme", Host: "acme.crm.example.com"})
		require.NoError(t, err)
		assert.Equal(t, acme.ID, got.ID)
	})

	t.Run("host label not a tenant is not a conflict", func(t *testing.T) {
		got, err := r.Resolve(ctx, RequestMeta{Explicit: "acme", Host: "staging.crm.example.com"})
		require.NoError(t, err)
		assert.Equal(t, acme.ID, got.ID)
	})

	t.Run("registry failure during conflict check fails the request", func(t *testing.T) {
		transient := errors.New("registry unavailable")
		cat.errs["globex"] = transient
		defer delete(cat.errs, "globex")

		_, err := r.Resolve(ctx, RequestMeta{Explicit: "acme", Host: "globex.crm.example.com"})
		require.ErrorIs(t, err, transient,
			"a lookup failure must not silently resolve to the header tenant")
	})
}

func TestResolveRoutability(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		status   models.Status
		routable bool
	}{
		{models.StatusActive, true},
		{models.StatusDegraded, true},
		{models.StatusProvisioning, false},
		{models.StatusSuspended, false},
		{models.StatusArchived, false},
		{models.StatusDeleted, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			rec := record("acme", tc.status)
			r := NewResolver(newFakeCatalog(rec), "")
			got, err := r.Resolve(ctx, RequestMeta{Explicit: "acme"})
			if tc.routable {
				require.NoError(t, err)
				assert.Equal(t, rec.ID, got.ID)
			} else {
				require.ErrorIs(t, err, ErrTenantNotActive)
			}
		})
	}
}

func TestSubdomain(t *testing.T) {
	t.Run("with base domain", func(t *testing.T) {
		r := NewResolver(nil, "crm.example.com")
		assert.Equal(t, "acme", r.subdomain("acme.crm.example.com"))
		assert.Equal(t, "acme", r.subdomain("ACME.crm.example.com:443"))
		assert.Equal(t, "", r.subdomain("crm.example.com"))
		assert.Equal(t, "", r.subdomain("acme.other.example.com"))
		assert.Equal(t, "", r.subdomain("a.b.crm.example.com"))
		assert.Equal(t, "", r.subdomain("www.crm.example.com"))
		assert.Equal(t, "", r.subdomain(""))
	})

	t.Run("without base domain", func(t *testing.T) {
		r := NewResolver(nil, "")
		assert.Equal(t, "acme", r.subdomain("acme.localhost"))
		assert.Equal(t, "", r.subdomain("localhost:8080"))
		assert.Equal(t, "", r.subdomain("api.example.com"))
	})
}
