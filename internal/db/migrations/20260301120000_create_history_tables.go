package migrations

import (
	"context"

	"github.com/cozy-creator/brandgen/internal/db/repository"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return repository.CreateSchema(ctx, db)
	}, func(ctx context.Context, db *bun.DB) error {
		return repository.DropSchema(ctx, db)
	})
}
