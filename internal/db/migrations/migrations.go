package migrations

import (
	"fmt"

	"github.com/cozy-creator/brandgen/internal/config"

	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

// InitMigrations discovers SQL migrations next to this file. Built binaries
// do not ship the source tree, so discovery is skipped in production and
// only the Go migrations registered in init run there.
func InitMigrations() error {
	cfg := config.GetConfig()
	if cfg != nil && (cfg.Environment == "production" || cfg.Environment == "prod") {
		return nil
	}

	if err := Migrations.DiscoverCaller(); err != nil {
		return fmt.Errorf("failed to discover migrations: %w", err)
	}
	return nil
}
