package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Migrations MigrationsConfig
	Tenancy    TenancyConfig

	Debug bool `env:"DEBUG" envDefault:"false"`
}

type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`

	// Per-tenant token bucket on the tenant-scoped surface.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
}

type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL,required,notEmpty"`
	MaxConns int    `env:"DB_MAX_CONNS" envDefault:"20"`
	MinConns int    `env:"DB_MIN_CONNS" envDefault:"5"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type AuthConfig struct {
	JWTSecret    string `env:"JWT_SECRET,required,notEmpty"`
	AdminToken   string `env:"ADMIN_TOKEN,required,notEmpty"`
	TenantHeader string `env:"TENANT_HEADER" envDefault:"X-Tenant-ID"`
}

type MigrationsConfig struct {
	SharedPath string `env:"MIGRATIONS_SHARED_PATH" envDefault:"migrations/shared"`
	TenantPath string `env:"MIGRATIONS_TENANT_PATH" envDefault:"migrations/tenant"`
}

type TenancyConfig struct {
	// BaseDomain is stripped from request hosts before subdomain matching,
	// e.g. "syntroph.com" turns acme.syntroph.com into routing key "acme".
	BaseDomain       string        `env:"TENANT_BASE_DOMAIN" envDefault:""`
	RegistryCacheTTL time.Duration `env:"REGISTRY_CACHE_TTL" envDefault:"15s"`
	ProvisionTimeout time.Duration `env:"PROVISION_TIMEOUT" envDefault:"2m"`
}

// Load reads configuration from environment variables, with an optional
// .env file for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
