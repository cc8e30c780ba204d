package commands

import (
	"context"
	"errors"

	"github.com/cozy-creator/brandgen/internal/db/models"
	"github.com/cozy-creator/brandgen/internal/db/repository"
	"github.com/cozy-creator/brandgen/internal/result"
)

type HistoryListInput struct {
	Limit  int `json:"limit,omitempty" validate:"min=1,max=200" jsonschema:"description=Maximum number of records to return,minimum=1,maximum=200,default=50"`
	Offset int `json:"offset,omitempty" validate:"min=0" jsonschema:"description=Number of records to skip,minimum=0,default=0"`
}

type HistoryListOutput struct {
	Generations []models.GenerationRecord `json:"generations"`
	TotalCount  int                       `json:"total_count"`
	HasMore     bool                      `json:"has_more"`
}

type HistoryDeleteOutput struct {
	Deleted bool   `json:"deleted"`
	JobID   string `json:"job_id"`
}

func (s *Service) registerHistory(r *Registry) {
	register(r, "history.list", "List your generation history, newest first",
		func() HistoryListInput { return HistoryListInput{Limit: 50} }, s.ListHistory)
	register(r, "history.get", "Get one generation from your history",
		func() JobIDInput { return JobIDInput{} }, s.GetHistory)
	register(r, "history.delete", "Delete a generation from your history",
		func() JobIDInput { return JobIDInput{} }, s.DeleteHistory)
	register(r, "history.stats", "Summarize your generation usage",
		func() emptyInput { return emptyInput{} }, s.HistoryStats)
	register(r, "history.clear", "Delete all of your history and favorites",
		func() emptyInput { return emptyInput{} }, s.ClearHistory)
}

func (s *Service) ListHistory(ctx context.Context, in *HistoryListInput) *result.Result {
	if res := s.requireRepo(s.history != nil, "history.list"); res != nil {
		return res
	}

	page, err := s.history.List(ctx, UserID(ctx), in.Limit, in.Offset)
	if err != nil {
		return s.storageFault(ctx, "history.list", err)
	}

	return result.Success(HistoryListOutput{
		Generations: page.Items,
		TotalCount:  page.Total,
		HasMore:     page.HasMore,
	}, result.WithReasoning("Retrieved %d of %d generations", len(page.Items), page.Total))
}

func (s *Service) GetHistory(ctx context.Context, in *JobIDInput) *result.Result {
	if res := s.requireRepo(s.history != nil, "history.get"); res != nil {
		return res
	}

	userID := UserID(ctx)
	record, err := s.history.Get(ctx, in.JobID, &userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return result.FromTemplate(result.CodeHistoryNotFound)
		}
		return s.storageFault(ctx, "history.get", err)
	}

	return result.Success(record, result.WithReasoning("Retrieved generation with %d images", len(record.Images)))
}

func (s *Service) DeleteHistory(ctx context.Context, in *JobIDInput) *result.Result {
	if res := s.requireRepo(s.history != nil, "history.delete"); res != nil {
		return res
	}

	deleted, err := s.history.Delete(ctx, in.JobID, UserID(ctx))
	if err != nil {
		return s.storageFault(ctx, "history.delete", err)
	}
	if !deleted {
		return result.FromTemplate(result.CodeHistoryNotFound)
	}

	return result.Success(HistoryDeleteOutput{Deleted: true, JobID: in.JobID},
		result.WithReasoning("Deleted generation %s from history", in.JobID))
}

func (s *Service) HistoryStats(ctx context.Context, _ *emptyInput) *result.Result {
	if res := s.requireRepo(s.history != nil, "history.stats"); res != nil {
		return res
	}

	stats, err := s.history.Stats(ctx, UserID(ctx))
	if err != nil {
		return s.storageFault(ctx, "history.stats", err)
	}

	return result.Success(stats, result.WithReasoning("%d generations with %d images and %d favorites",
		stats.TotalGenerations, stats.TotalImages, stats.TotalFavorites))
}

func (s *Service) ClearHistory(ctx context.Context, _ *emptyInput) *result.Result {
	if res := s.requireRepo(s.history != nil, "history.clear"); res != nil {
		return res
	}

	cleared, err := s.history.ClearUser(ctx, UserID(ctx))
	if err != nil {
		return s.storageFault(ctx, "history.clear", err)
	}

	return result.Success(cleared, result.WithReasoning("Deleted %d generations and %d favorites",
		cleared.DeletedGenerations, cleared.DeletedFavorites))
}
