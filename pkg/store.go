package pkg

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/ec0249-assessment/internal/config"
	"github.com/SAP-F-2025/ec0249-assessment/internal/storage"
)

// NewStore opens the storage backend selected by cfg.StorageDriver. The returned
// close func releases its connections.
func NewStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, func() error, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory, "":
		return storage.NewMemoryStore(), func() error { return nil }, nil

	case config.StorageRedis:
		client, err := NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewRedisStore(client, logger,
			storage.WithPrefix(cfg.RedisPrefix),
			storage.WithTTL(cfg.StorageTTL),
		)
		return store, client.Close, nil

	case config.StoragePostgres:
		db, err := InitDatabase(cfg)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		store, err := storage.NewGormStore(db)
		if err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		return store, sqlDB.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
