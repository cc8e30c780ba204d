package db

import (
	"context"
	"fmt"

	"github.com/cozy-creator/brandgen/internal/config"
	"github.com/cozy-creator/brandgen/internal/db/drivers"
)

func NewConnection(ctx context.Context, cfg *config.Config) (drivers.Driver, error) {
	var opts []drivers.Option
	if cfg.DB.Debug {
		opts = append(opts, drivers.WithQueryDebug(true))
	}

	switch cfg.DB.Driver {
	case config.DBDriverSQLite:
		return drivers.NewSQLiteDriver(ctx, cfg.DB.DSN, opts...)
	case config.DBDriverPG:
		return drivers.NewPGDriver(ctx, cfg.DB.DSN, opts...)
	case config.DBDriverLibSQL:
		return drivers.NewLibSQLDriver(ctx, cfg.DB.DSN, opts...)
	}

	return nil, fmt.Errorf("invalid database driver: %s", cfg.DB.Driver)
}
