package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/cozy-creator/brandgen/internal/db/models"

	"github.com/uptrace/bun"
)

type index struct {
	name   string
	model  any
	column string
}

var (
	tables = []any{
		(*models.GenerationRecord)(nil),
		(*models.Favorite)(nil),
	}
	indexes = []index{
		{"idx_history_user_id", (*models.GenerationRecord)(nil), "user_id"},
		{"idx_history_created_at", (*models.GenerationRecord)(nil), "created_at"},
		{"idx_favorites_user_id", (*models.Favorite)(nil), "user_id"},
		{"idx_favorites_created_at", (*models.Favorite)(nil), "created_at"},
	}
)

// Schema creates the history tables on first use. Ensure is safe to call
// from every operation; after one success it returns immediately.
type Schema struct {
	db    *bun.DB
	mu    sync.Mutex
	ready bool
}

func NewSchema(db *bun.DB) *Schema {
	return &Schema{db: db}
}

func (s *Schema) Ensure(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	if err := CreateSchema(ctx, s.db); err != nil {
		return err
	}
	s.ready = true
	return nil
}

// CreateSchema creates every table and index that does not exist yet.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, table := range tables {
			if _, err := tx.NewCreateTable().Model(table).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table: %w", err)
			}
		}
		for _, idx := range indexes {
			_, err := tx.NewCreateIndex().
				Model(idx.model).
				Index(idx.name).
				Column(idx.column).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create index %s: %w", idx.name, err)
			}
		}
		return nil
	})
}

// DropSchema drops the history tables.
func DropSchema(ctx context.Context, db bun.IDB) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, table := range tables {
			if _, err := tx.NewDropTable().Model(table).IfExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop table: %w", err)
			}
		}
		return nil
	})
}
