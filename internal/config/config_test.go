package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/crm")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_TOKEN", "token")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, float64(20), cfg.Server.RateLimitRPS)
	assert.Equal(t, 40, cfg.Server.RateLimitBurst)
	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "X-Tenant-ID", cfg.Auth.TenantHeader)
	assert.Equal(t, "migrations/shared", cfg.Migrations.SharedPath)
	assert.Equal(t, "migrations/tenant", cfg.Migrations.TenantPath)
	assert.Equal(t, "", cfg.Tenancy.BaseDomain)
	assert.Equal(t, 15*time.Second, cfg.Tenancy.RegistryCacheTTL)
	assert.Equal(t, 2*time.Minute, cfg.Tenancy.ProvisionTimeout)
	assert.False(t, cfg.Debug)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/crm")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_TOKEN", "token")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("TENANT_BASE_DOMAIN", "crm.example.com")
	t.Setenv("REGISTRY_CACHE_TTL", "1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "crm.example.com", cfg.Tenancy.BaseDomain)
	assert.Equal(t, time.Minute, cfg.Tenancy.RegistryCacheTTL)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/crm")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ADMIN_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
}
