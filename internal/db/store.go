package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"peer-chat/internal/config"
	"peer-chat/internal/repository"
)

// OpenStore conecta el backend configurado una sola vez. Si no se puede conectar se usa memoria
// durante toda la vida del proceso. El closer devuelto libera las conexiones abiertas.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, func()) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Info("using in-memory storage")
		return repository.NewMemoryStore(), func() {}
	}

	primary, closer, err := connectStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage connect failed, using in-memory storage instead",
			zap.String("driver", cfg.StorageDriver),
			zap.Error(err),
		)
		return repository.NewMemoryStore(), func() {}
	}
	logger.Info("storage connected",
		zap.String("driver", primary.Name()),
		zap.Bool("fallback", cfg.StorageFallback),
	)
	return repository.NewFallbackStore(logger, primary, repository.NewMemoryStore(), cfg.StorageFallback), closer
}

func connectStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, func(), error) {
	switch cfg.StorageDriver {
	case config.StorageMongo:
		client, err := NewMongoClient(ctx, cfg.MongoURI, cfg.StorageConnectTimeout)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewMongoStore(client.Database(cfg.MongoDatabase))
		if err := store.EnsureIndexes(ctx); err != nil {
			logger.Warn("mongo indexes not created", zap.Error(err))
		}
		return store, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Warn("mongo disconnect", zap.Error(err))
			}
		}, nil

	case config.StoragePostgres:
		pool, err := NewPool(ctx, cfg.DatabaseURL, cfg.StorageConnectTimeout)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewPgStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, pool.Close, nil

	case config.StorageBadger:
		bdb, err := OpenBadger(cfg.BadgerDir)
		if err != nil {
			return nil, nil, err
		}
		store, err := repository.NewBadgerStore(bdb)
		if err != nil {
			_ = bdb.Close()
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("badger sequence release", zap.Error(err))
			}
			if err := bdb.Close(); err != nil {
				logger.Warn("badger close", zap.Error(err))
			}
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}
