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

type IFavoriteRepository interface {
	Add(ctx context.Context, favorite *models.Favorite) (*models.Favorite, error)
	Get(ctx context.Context, userID, jobID string, imageIndex int) (*models.Favorite, error)
	IsFavorite(ctx context.Context, userID, jobID string, imageIndex int) (bool, error)
	List(ctx context.Context, userID string, limit, offset int) (Page[models.Favorite], error)
	Remove(ctx context.Context, userID, jobID string, imageIndex int) (bool, error)
}

type FavoriteRepository struct {
	db     *bun.DB
	schema *Schema
}

func NewFavoriteRepository(db *bun.DB, schema *Schema) *FavoriteRepository {
	if schema == nil {
		schema = NewSchema(db)
	}
	return &FavoriteRepository{db: db, schema: schema}
}

func favoriteKey(q *bun.SelectQuery, userID, jobID string, imageIndex int) *bun.SelectQuery {
	return q.Where("user_id = ?", userID).Where("job_id = ?", jobID).Where("image_index = ?", imageIndex)
}

// Add stores a new favorite. An existing (user, job, image) triple is
// never overwritten; ErrFavoriteExists is returned instead.
func (r *FavoriteRepository) Add(ctx context.Context, favorite *models.Favorite) (*models.Favorite, error) {
	if favorite == nil {
		return nil, fmt.Errorf("favorite is nil")
	}
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}

	if favorite.CreatedAt.IsZero() {
		favorite.CreatedAt = time.Now().UTC()
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := favoriteKey(tx.NewSelect().Model((*models.Favorite)(nil)), favorite.UserID, favorite.JobID, favorite.ImageIndex).Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return ErrFavoriteExists
		}

		return tx.NewInsert().Model(favorite).Returning("*").Scan(ctx)
	})
	if err != nil {
		if errors.Is(err, ErrFavoriteExists) || isUniqueViolation(err) {
			return nil, ErrFavoriteExists
		}
		return nil, fmt.Errorf("failed to add favorite: %w", err)
	}

	return favorite, nil
}

func (r *FavoriteRepository) Get(ctx context.Context, userID, jobID string, imageIndex int) (*models.Favorite, error) {
	if err := r.schema.Ensure(ctx); err != nil {
		return nil, err
	}

	var favorite models.Favorite
	if err := favoriteKey(r.db.NewSelect().Model(&favorite), userID, jobID, imageIndex).Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &favorite, nil
}

func (r *FavoriteRepository) IsFavorite(ctx context.Context, userID, jobID string, imageIndex int) (bool, error) {
	if err := r.schema.Ensure(ctx); err != nil {
		return false, err
	}

	return favoriteKey(r.db.NewSelect().Model((*models.Favorite)(nil)), userID, jobID, imageIndex).Exists(ctx)
}

func (r *FavoriteRepository) List(ctx context.Context, userID string, limit, offset int) (Page[models.Favorite], error) {
	if err := checkPaging(limit, offset); err != nil {
		return Page[models.Favorite]{}, err
	}
	if err := r.schema.Ensure(ctx); err != nil {
		return Page[models.Favorite]{}, err
	}

	total, err := r.db.NewSelect().
		Model((*models.Favorite)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
	if err != nil {
		return Page[models.Favorite]{}, err
	}

	var favorites []models.Favorite
	err = r.db.NewSelect().
		Model(&favorites).
		Where("user_id = ?", userID).
		Order("created_at DESC", "id DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return Page[models.Favorite]{}, err
	}

	return newPage(favorites, total, offset), nil
}

// Remove deletes the favorite matching all three key fields.
func (r *FavoriteRepository) Remove(ctx context.Context, userID, jobID string, imageIndex int) (bool, error) {
	if err := r.schema.Ensure(ctx); err != nil {
		return false, err
	}

	var affected int64
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*models.Favorite)(nil)).
			Where("user_id = ?", userID).
			Where("job_id = ?", jobID).
			Where("image_index = ?", imageIndex).
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
