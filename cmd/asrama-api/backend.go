package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/asrama-api/internal/handler"
	"github.com/noah-isme/asrama-api/pkg/cache"
	"github.com/noah-isme/asrama-api/pkg/config"
	"github.com/noah-isme/asrama-api/pkg/database"
	"github.com/noah-isme/asrama-api/pkg/kvstore"
)

// backend bundles the selected store driver with the connections it owns.
// Closing the SQL store closes its database handle.
type backend struct {
	store  kvstore.Store
	redis  *redis.Client
	checks map[string]handler.ReadinessCheck
	watch  []func(ctx context.Context)
	logger *zap.Logger
}

func openBackend(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*backend, error) {
	be := &backend{checks: map[string]handler.ReadinessCheck{}, logger: logr}

	switch cfg.Store.Driver {
	case config.StoreMemory:
		be.store = kvstore.NewMemory()
		logr.Warn("using in-memory store; data is lost on restart")

	case config.StorePostgres, config.StoreSQLite:
		var (
			db      *sqlx.DB
			err     error
			dialect kvstore.Dialect
		)
		if cfg.Store.Driver == config.StorePostgres {
			db, err = database.NewPostgres(cfg.Database)
			dialect = kvstore.DialectPostgres
		} else {
			db, err = database.NewSQLite(cfg.SQLite)
			dialect = kvstore.DialectSQLite
		}
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
		}
		store := kvstore.NewSQL(db, dialect, logr.Named("kvstore"))
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("prepare %s store: %w", cfg.Store.Driver, err)
		}
		be.store = store
		be.checks["store"] = db.PingContext
		be.watch = append(be.watch, func(ctx context.Context) { store.Watch(ctx, cfg.Store.PollInterval) })

	case config.StoreRedis:
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		store := kvstore.NewRedis(client, cfg.Store.ChangeChannel, logr.Named("kvstore"))
		be.store, be.redis = store, client
		be.watch = append(be.watch, store.Listen)
	}

	// The dashboard cache rides on redis whenever one is reachable.
	if be.redis == nil && cfg.Dashboard.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			be.redis = client
		}
	}
	if be.redis != nil {
		client := be.redis
		be.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	return be, nil
}

// startWatchers runs the driver's change listeners until ctx is cancelled.
func (b *backend) startWatchers(ctx context.Context) {
	for _, watch := range b.watch {
		go watch(ctx)
	}
}

func (b *backend) close() {
	if b.store != nil {
		if err := b.store.Close(); err != nil {
			b.logger.Warn("close store", zap.Error(err))
		}
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}
