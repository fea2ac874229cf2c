package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/StarAlexander/inventory-storage-diploma/internal/artifactstore/local"
	"github.com/StarAlexander/inventory-storage-diploma/internal/auth"
	"github.com/StarAlexander/inventory-storage-diploma/internal/config"
	"github.com/StarAlexander/inventory-storage-diploma/internal/db"
	"github.com/StarAlexander/inventory-storage-diploma/internal/inflight"
	"github.com/StarAlexander/inventory-storage-diploma/internal/pdf"
	"github.com/StarAlexander/inventory-storage-diploma/internal/render"
	"github.com/StarAlexander/inventory-storage-diploma/internal/service"
	"github.com/StarAlexander/inventory-storage-diploma/internal/store"
	"github.com/StarAlexander/inventory-storage-diploma/internal/web"
	"github.com/StarAlexander/inventory-storage-diploma/internal/worker"
)

// app holds the wired services and the resources they own.
type app struct {
	db       *sql.DB
	rdb      *redis.Client
	pool     *worker.Pool
	services web.Services
	logger   *slog.Logger
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	database, err := db.Open(cfg.DBDriver, cfg.DBSource())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a := &app{db: database, logger: logger}

	guard, err := a.newGuard(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	artifacts, err := local.NewLocalArtifactStore(cfg.ArtifactPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	renderer, err := render.New()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.pool = worker.NewPool(worker.Config{
		Workers:      cfg.WorkerCount,
		QueueSize:    cfg.QueueSize,
		MaxAttempts:  cfg.MaxAttempts,
		RetryBackoff: cfg.RetryBackoff,
	}, logger)

	uow := store.NewUnitOfWork(database)
	a.services = web.Services{
		Transactions: service.NewTransactionService(uow, renderer, logger),
		Documents:    service.NewDocumentService(uow, artifacts, pdf.New(), a.pool, guard, logger),
		Accounts:     service.NewAccountService(uow, logger),
		Registry:     service.NewRegistryService(uow, logger),
	}
	return a, nil
}

// newGuard returns the Redis-backed in-flight guard when REDIS_ADDR is set,
// so several instances share claims, and a process-local one otherwise.
func (a *app) newGuard(cfg *config.Config) (inflight.Guard, error) {
	if cfg.RedisAddr == "" {
		a.logger.Info("using in-memory materialization guard")
		return inflight.NewMemory(), nil
	}

	a.rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	a.logger.Info("using redis materialization guard", "addr", cfg.RedisAddr, "ttl", cfg.InflightTTL)
	return inflight.NewRedis(a.rdb, cfg.InflightTTL), nil
}

func authorizer(cfg *config.Config) auth.Authorizer {
	if cfg.AuthMode == config.AuthModeAllowAll {
		return auth.AllowAll
	}
	return auth.NewRoleAuthorizer()
}

func (a *app) Close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("failed to close redis client", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", "error", err)
	}
}
