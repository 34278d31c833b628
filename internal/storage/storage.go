// Package storage selects the configured banking store.
package storage

import (
	"context"
	"fmt"

	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/config"
	interfaces "github.com/sheikh-saqib/banking-settlement-pipeline/internal/interfaces"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/logging"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/storage/memory"
	mongostore "github.com/sheikh-saqib/banking-settlement-pipeline/internal/storage/mongo"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/storage/postgres"
)

// Open connects the store named by cfg.StoreDriver. The postgres schema is
// applied on open.
func Open(ctx context.Context, cfg config.Config) (interfaces.Store, error) {
	logger := logging.FromContext(ctx).WithField("driver", cfg.StoreDriver)

	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		return memory.NewMemoryBankingStore(), nil

	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.ApplySchema(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		logger.Info("postgres store ready")
		return store, nil

	case config.DriverMongo:
		store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
