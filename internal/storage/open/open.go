// Package open selects a storage backend from configuration.
package open

import (
	"context"
	"fmt"

	"github.com/hongminglow/fund-ledger/internal/config"
	"github.com/hongminglow/fund-ledger/internal/storage"
	"github.com/hongminglow/fund-ledger/internal/storage/memory"
	"github.com/hongminglow/fund-ledger/internal/storage/postgres"
)

// Store opens the backend named by cfg.StorageDriver.
func Store(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return memory.NewStore(), nil
	case config.DriverPostgres:
		return postgres.NewStore(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
