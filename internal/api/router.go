package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/syntroph/crm/internal/api/handlers"
	"github.com/syntroph/crm/internal/api/middleware"
	"github.com/syntroph/crm/internal/audit"
	"github.com/syntroph/crm/internal/auth"
	"github.com/syntroph/crm/internal/cache"
	"github.com/syntroph/crm/internal/config"
	"github.com/syntroph/crm/internal/crm"
	"github.com/syntroph/crm/internal/database"
	"github.com/syntroph/crm/internal/models"
	"github.com/syntroph/crm/internal/queue"
	"github.com/syntroph/crm/internal/schema"
	"github.com/syntroph/crm/internal/tenant"
)

type Router struct {
	mux    *chi.Mux
	db     *pgxpool.Pool
	redis  *redis.Client
	cfg    *config.Config
	reg    *tenant.Registry
	binder *database.Binder
	gate   *auth.Gate
	jwt    *auth.JWTMiddleware
	prov   *schema.Provisioner
	seq    *schema.Sequencer
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, src *schema.Source) *Router {
	reg := tenant.NewRegistry(db, cache.New(rdb), cfg.Tenancy.RegistryCacheTTL)
	binder := database.NewBinder(db)
	return &Router{
		mux:    chi.NewRouter(),
		db:     db,
		redis:  rdb,
		cfg:    cfg,
		reg:    reg,
		binder: binder,
		gate:   auth.NewGate(binder),
		jwt:    auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
		prov:   schema.NewProvisioner(db, reg, src, cfg.Tenancy.ProvisionTimeout),
		seq:    schema.NewSequencer(db, reg, src),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(middleware.Metrics)

	// Infra endpoints (no auth, no tenant)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	queueClient := queue.NewClient(rt.cfg.Redis)
	auditSvc := audit.NewService(rt.db)
	crmSvc := crm.NewService(rt.binder)
	resolver := tenant.NewResolver(rt.reg, rt.cfg.Tenancy.BaseDomain)
	tc := middleware.NewTenantContext(resolver, rt.cfg.Auth.TenantHeader, rt.cfg.Debug)

	// Platform admin surface: lifecycle changes only enter here. These
	// routes run outside tenant routing on purpose.
	adminH := handlers.NewTenantAdminHandler(rt.reg, rt.prov, rt.seq, queueClient, auditSvc)
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(auth.RequireAdminToken(rt.cfg.Auth.AdminToken))

		r.Post("/tenants", adminH.Create)
		r.Get("/tenants", adminH.List)
		r.Put("/tenants/{id}/status", adminH.SetStatus)
		r.Delete("/tenants/{id}", adminH.Drop)
		r.Post("/migrations/run", adminH.RunMigrations)
		r.Get("/audit", adminH.AuditLog)
	})

	// Tenant-scoped surface: authenticate, resolve, fence, then gate per
	// route.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)
		r.Use(tc.Resolve)
		r.Use(middleware.RateLimit(rt.cfg.Server.RateLimitRPS, rt.cfg.Server.RateLimitBurst))
		r.Use(middleware.WriteFence)

		userH := handlers.NewUserHandler(crmSvc)
		r.With(rt.gate.RequireRole(models.RoleAdmin)).Post("/users", userH.Create)

		contactH := handlers.NewContactHandler(crmSvc)
		r.Route("/contacts", func(r chi.Router) {
			r.Use(rt.gate.RequireRole(models.RoleSalesperson))
			r.Get("/", contactH.List)
			r.Post("/", contactH.Create)
			r.Get("/{id}", contactH.Get)
			r.With(rt.gate.RequireRole(models.RoleManager)).Delete("/{id}", contactH.Delete)
		})

		orgH := handlers.NewOrganizationHandler(crmSvc)
		r.Route("/organizations", func(r chi.Router) {
			r.Use(rt.gate.RequireRole(models.RoleSalesperson))
			r.Get("/", orgH.List)
			r.Post("/", orgH.Create)
			r.Get("/{id}", orgH.Get)
			r.With(rt.gate.RequireRole(models.RoleManager)).Delete("/{id}", orgH.Delete)
		})

		dealH := handlers.NewDealHandler(crmSvc)
		r.Route("/deals", func(r chi.Router) {
			r.Use(rt.gate.RequireRole(models.RoleSalesperson))
			r.Get("/", dealH.List)
			r.Post("/", dealH.Create)
			r.Get("/{id}", dealH.Get)
			r.With(rt.gate.RequireRole(models.RoleManager)).Delete("/{id}", dealH.Delete)
		})
	})

	return r
}
