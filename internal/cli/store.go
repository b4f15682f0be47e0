package cli

import (
	"context"
	"fmt"

	"github.com/region23/navatar/internal/config"
	"github.com/region23/navatar/internal/storage"
	"github.com/region23/navatar/internal/storage/memory"
	"github.com/region23/navatar/internal/storage/postgres"
	"github.com/region23/navatar/internal/storage/remote"
	"github.com/region23/navatar/internal/storage/sqlite"
	"github.com/region23/navatar/pkg/logger"
)

// openStore открывает хранилище по STORAGE_DRIVER и оборачивает его метриками
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (storage.ReservationStore, error) {
	var (
		store storage.ReservationStore
		err   error
	)

	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		store, err = sqlite.New(cfg.Storage.DBFile)
	case config.DriverPostgres:
		store, err = postgres.Open(ctx, cfg.Storage.DatabaseURL)
	case config.DriverMemory:
		store = memory.New()
	case config.DriverRemote:
		opts := []remote.Option{remote.WithTimeout(cfg.Storage.StoreTimeout)}
		if cfg.Identity.OwnerToken != "" {
			opts = append(opts, remote.WithToken(cfg.Identity.OwnerToken))
		}
		store, err = remote.New(cfg.Storage.StoreURL, opts...)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}

	log.Debug("Store opened", logger.String("driver", cfg.Storage.Driver))
	return storage.WithInstrumentation(cfg.Storage.Driver, store, log), nil
}
