package commands

import (
	"context"
	"errors"

	"github.com/cozy-creator/brandgen/internal/db/models"
	"github.com/cozy-creator/brandgen/internal/db/repository"
	"github.com/cozy-creator/brandgen/internal/result"
)

type FavoriteAddInput struct {
	JobID      string  `json:"job_id" validate:"required" jsonschema:"description=Job ID of the generation containing the image"`
	ImageIndex *int    `json:"image_index" validate:"required,min=0,max=7" jsonschema:"description=Index of the image in the job results,minimum=0,maximum=7"`
	ImageURL   string  `json:"image_url" validate:"required" jsonschema:"description=URL of the image to favorite"`
	Prompt     *string `json:"prompt,omitempty" jsonschema:"description=Prompt that generated the image"`
}

type FavoriteKeyInput struct {
	JobID      string `json:"job_id" validate:"required" jsonschema:"description=Job ID of the favorited image"`
	ImageIndex *int   `json:"image_index" validate:"required,min=0,max=7" jsonschema:"description=Index of the image to remove,minimum=0,maximum=7"`
}

type FavoritesListInput struct {
	Limit  int `json:"limit,omitempty" validate:"min=1,max=100" jsonschema:"description=Maximum number of favorites to return,minimum=1,maximum=100,default=50"`
	Offset int `json:"offset,omitempty" validate:"min=0" jsonschema:"description=Number of favorites to skip,minimum=0,default=0"`
}

type FavoritesListOutput struct {
	Favorites  []models.Favorite `json:"favorites"`
	TotalCount int               `json:"total_count"`
	HasMore    bool              `json:"has_more"`
}

type FavoriteRemoveOutput struct {
	Removed    bool   `json:"removed"`
	JobID      string `json:"job_id"`
	ImageIndex int    `json:"image_index"`
}

func (s *Service) registerFavorites(r *Registry) {
	register(r, "favorites.add", "Add a generated image to your favorites",
		func() FavoriteAddInput { return FavoriteAddInput{} }, s.AddFavorite)
	register(r, "favorites.list", "List your favorite images, newest first",
		func() FavoritesListInput { return FavoritesListInput{Limit: 50} }, s.ListFavorites)
	register(r, "favorites.remove", "Remove an image from your favorites",
		func() FavoriteKeyInput { return FavoriteKeyInput{} }, s.RemoveFavorite)
}

func (s *Service) AddFavorite(ctx context.Context, in *FavoriteAddInput) *result.Result {
	if res := s.requireRepo(s.favorites != nil, "favorites.add"); res != nil {
		return res
	}

	favorite, err := s.favorites.Add(ctx, &models.Favorite{
		UserID:     UserID(ctx),
		JobID:      in.JobID,
		ImageIndex: *in.ImageIndex,
		ImageURL:   in.ImageURL,
		Prompt:     in.Prompt,
		CreatedAt:  s.now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrFavoriteExists) {
			return result.FromTemplate(result.CodeFavoriteAlreadyExists)
		}
		return s.storageFault(ctx, "favorites.add", err)
	}

	return result.Success(favorite,
		result.WithReasoning("Added image %d from job %s to favorites", *in.ImageIndex, in.JobID))
}

func (s *Service) ListFavorites(ctx context.Context, in *FavoritesListInput) *result.Result {
	if res := s.requireRepo(s.favorites != nil, "favorites.list"); res != nil {
		return res
	}

	page, err := s.favorites.List(ctx, UserID(ctx), in.Limit, in.Offset)
	if err != nil {
		return s.storageFault(ctx, "favorites.list", err)
	}

	return result.Success(FavoritesListOutput{
		Favorites:  page.Items,
		TotalCount: page.Total,
		HasMore:    page.HasMore,
	}, result.WithReasoning("Retrieved %d of %d favorites", len(page.Items), page.Total))
}

func (s *Service) RemoveFavorite(ctx context.Context, in *FavoriteKeyInput) *result.Result {
	if res := s.requireRepo(s.favorites != nil, "favorites.remove"); res != nil {
		return res
	}

	removed, err := s.favorites.Remove(ctx, UserID(ctx), in.JobID, *in.ImageIndex)
	if err != nil {
		return s.storageFault(ctx, "favorites.remove", err)
	}
	if !removed {
		return result.FromTemplate(result.CodeFavoriteNotFound)
	}

	return result.Success(FavoriteRemoveOutput{Removed: true, JobID: in.JobID, ImageIndex: *in.ImageIndex},
		result.WithReasoning("Removed image %d from job %s from favorites", *in.ImageIndex, in.JobID))
}
