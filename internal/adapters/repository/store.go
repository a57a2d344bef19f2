package repository

import (
	"context"
	"fmt"

	"github.com/cinereview/core/internal/infrastructure/config"
	"github.com/cinereview/core/internal/infrastructure/database"
	"github.com/cinereview/core/internal/infrastructure/logger"
	"github.com/cinereview/core/internal/infrastructure/metrics"
	"github.com/cinereview/core/internal/ports"
)

// NewReviewStore opens the backend selected by cfg.Storage.Backend and wraps
// it with instrumentation. m may be nil.
func NewReviewStore(cfg *config.Config, appLogger *logger.Logger, m *metrics.Metrics) (ports.ReviewStore, error) {
	var store ports.ReviewStore

	switch cfg.Storage.Backend {
	case config.BackendFile:
		fileStore, err := NewFileStore(FileStoreOptions{
			Dir:           cfg.Storage.Dir,
			LockTimeout:   cfg.Storage.LockTimeout,
			CorruptPolicy: cfg.Storage.CorruptPolicy,
			Logger:        appLogger,
			OnCorrupt:     m.ObserveCorruption,
		})
		if err != nil {
			return nil, err
		}
		store = fileStore

	case config.BackendSQLite, config.BackendPostgres:
		db, err := openDatabase(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Storage.AutoMigrate {
			if err := db.MigrateUp(); err != nil {
				db.Close()
				return nil, err
			}
		}
		store = NewSQLStore(db, cfg.Storage.LockTimeout, nil)

	case config.BackendRedis:
		redisStore, err := NewRedisStore(context.Background(), RedisStoreOptions{
			Redis:         cfg.Redis,
			CorruptPolicy: cfg.Storage.CorruptPolicy,
			Logger:        appLogger,
			OnCorrupt:     m.ObserveCorruption,
		})
		if err != nil {
			return nil, err
		}
		store = redisStore

	case config.BackendMemory:
		store = NewMemoryStore(nil)

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	return Instrument(store, cfg.Storage.Backend, m, appLogger), nil
}

func openDatabase(cfg *config.Config) (*database.DB, error) {
	if cfg.Storage.Backend == config.BackendPostgres {
		return database.NewPostgres(cfg.Database)
	}
	return database.NewSQLite(cfg.Storage)
}

// OpenDatabase opens the SQL database behind the configured backend, for
// commands that manage the schema directly.
func OpenDatabase(cfg *config.Config) (*database.DB, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite, config.BackendPostgres:
		return openDatabase(cfg)
	default:
		return nil, fmt.Errorf("storage backend %q has no schema to migrate", cfg.Storage.Backend)
	}
}
