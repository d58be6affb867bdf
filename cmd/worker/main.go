package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/syntroph/crm/internal/cache"
	"github.com/syntroph/crm/internal/config"
	"github.com/syntroph/crm/internal/database"
	"github.com/syntroph/crm/internal/queue"
	"github.com/syntroph/crm/internal/queue/workers"
	"github.com/syntroph/crm/internal/schema"
	"github.com/syntroph/crm/internal/tenant"

	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	src, err := schema.LoadDir(cfg.Migrations.TenantPath)
	if err != nil {
		slog.Error("loading tenant migrations failed", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	reg := tenant.NewRegistry(db, cache.New(rdb), cfg.Tenancy.RegistryCacheTTL)
	provisioner := schema.NewProvisioner(db, reg, src, cfg.Tenancy.ProvisionTimeout)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	mux := asynq.NewServeMux()
	provisionWorker := workers.NewProvisionWorker(provisioner)
	mux.HandleFunc(queue.TypeTenantProvision, provisionWorker.ProcessTask)

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(mux); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
