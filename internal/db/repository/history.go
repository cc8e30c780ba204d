package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cozy-creator/brandgen/internal/db/models"

	"github.com/uptrace/bun"
)

type IHistoryRepository interface {
	Save(ctx context.Context, record *models.GenerationRecord) (*models.GenerationRecord, error)
	Get(ctx context.Context, jobID string, userID *string) (*models.GenerationRecord, error)
	List(ctx context.Context, userID string, limit, offset int) (Page[models.GenerationRecord], error)
	Delete(ctx context.Context, jobID, userID string) (bool, error)
	ClearUser(ctx context.Context, userID string) (*ClearResult, error)
	Stats(ctx context.Context, userID string) (*Stats, error)
}

type ClearResult struct {
	DeletedGenerations int `json:"deleted_generations"`
	DeletedFavorites   int `json:"deleted_favorites"`
}

type Stats struct {
	TotalGenerations  int     `json:"total_generations"`
	TotalImages       int     `json:"total_images"`
	TotalFavorites    int     `json:"total_favorites"`
	MostUsedAssetType *string `json:"most_used_asset_type"`
}

type HistoryRepository struct {
	db     *bun.DB
	schema *Schema
}

func NewHistoryRepository(db *bun.DB, schema *Schema) *HistoryRepository {
	if schema == nil {
		schema = NewSchema(db)
	}
	return &HistoryRepository{db: db, schema: schema}
}

// Save inserts record or, when its job_id is already archived, replaces
// the stored fields while keeping the original id and created_at.
func (r *HistoryRepository) Save(ctx context.Context, record *models.GenerationRecord) (*models.GenerationRecord, error) {
	if record == nil {
		return nil, fmt.Errorf("history record is nil")
	}
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.Images == nil {
		record.Images = []string{}
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewInsert().
			Model(record).
			On("CONFLICT (job_id) DO UPDATE").
			Set("user_id = EXCLUDED.user_id").
			Set("prompt = EXCLUDED.prompt").
			Set("asset_type = EXCLUDED.asset_type").
			Set("quality = EXCLUDED.quality").
			Set("model = EXCLUDED.model").
			Set("images = EXCLUDED.images").
			Returning("*").
			Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save history for job %s: %w", record.JobID, err)
	}

	return record, nil
}

// Get returns the record for jobID. When userID is set, a record owned by
// someone else is reported as not found.
func (r *HistoryRepository) Get(ctx context.Context, jobID string, userID *string) (*models.GenerationRecord, error) {
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}

	var record models.GenerationRecord
	q := r.db.NewSelect().Model(&record).Where("job_id = ?", jobID)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	if err := q.Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &record, nil
}

func (r *HistoryRepository) List(ctx context.Context, userID string, limit, offset int) (Page[models.GenerationRecord], error) {
	if err := checkPaging(limit, offset); err != nil {
		return Page[models.GenerationRecord]{}, err
	}
	if err := r.schema.Ensure(ctx); err != nil {
		return Page[models.GenerationRecord]{}, err
	}

	total, err := r.db.NewSelect().
		Model((*models.GenerationRecord)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
	if err != nil {
		return Page[models.GenerationRecord]{}, err
	}

	var records []models.GenerationRecord
	err = r.db.NewSelect().
		Model(&records).
		Where("user_id = ?", userID).
		Order("created_at DESC", "id DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return Page[models.GenerationRecord]{}, err
	}

	return newPage(records, total, offset), nil
}

func (r *HistoryRepository) Delete(ctx context.Context, jobID, userID string) (bool, error) {
	if err := r.schema.Ensure(ctx); err != nil {
		return false, err
	}

	var affected int64
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*models.GenerationRecord)(nil)).
			Where("job_id = ?", jobID).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// ClearUser removes every history record and favorite owned by userID in
// one transaction.
func (r *HistoryRepository) ClearUser(ctx context.Context, userID string) (*ClearResult, error) {
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}

	result := &ClearResult{}
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*models.GenerationRecord)(nil)).Where("user_id = ?", userID).Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		result.DeletedGenerations = int(n)

		res, err = tx.NewDelete().Model((*models.Favorite)(nil)).Where("user_id = ?", userID).Exec(ctx)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		if err != nil {
			return err
		}
		result.DeletedFavorites = int(n)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clear data for user %s: %w", userID, err)
	}

	return result, nil
}

func (r *HistoryRepository) Stats(ctx context.Context, userID string) (*Stats, error) {
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}

	var records []models.GenerationRecord
	err := r.db.NewSelect().
		Model(&records).
		Column("images").
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalGenerations: len(records)}
	for _, record := range records {
		stats.TotalImages += len(record.Images)
	}

	stats.TotalFavorites, err = r.db.NewSelect().
		Model((*models.Favorite)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
	if err != nil {
		return nil, err
	}

	var usage []struct {
		AssetType string `bun:"asset_type"`
		Uses      int    `bun:"uses"`
	}
	err = r.db.NewSelect().
		Model((*models.GenerationRecord)(nil)).
		Column("asset_type").
		ColumnExpr("COUNT(*) AS uses").
		Where("user_id = ?", userID).
		Group("asset_type").
		OrderExpr("uses DESC, asset_type ASC").
		Limit(1).
		Scan(ctx, &usage)
	if err != nil {
		return nil, err
	}
	if len(usage) > 0 {
		stats.MostUsedAssetType = &usage[0].AssetType
	}

	return stats, nil
}
