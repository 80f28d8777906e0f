package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/LovationAdmin/family-budget-api/config"
)

// Open connects the backend named by cfg.DataBackend and prepares its
// schema. The caller must Close the returned store.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.DataBackend {
	case config.BackendMongo:
		client, err := config.InitMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		st := NewMongoStore(client, cfg.MongoDatabase)
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = st.Close(ctx)
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		logger.Info("initialized mongo backend", "database", cfg.MongoDatabase)
		return st, nil

	case config.BackendPostgres:
		db, err := config.InitPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := config.RunMigrations(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("initialized postgres backend")
		return NewPostgresStore(db), nil

	case config.BackendMemory:
		logger.Warn("using in-memory backend, data is lost on restart")
		return NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
	}
}
