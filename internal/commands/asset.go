package commands

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cozy-creator/brandgen/internal/registry"
	"github.com/cozy-creator/brandgen/internal/result"
	"github.com/cozy-creator/brandgen/internal/types"

	"go.uber.org/zap"
)

const maxPromptLength = 500

type GenerateInput struct {
	Prompt    string              `json:"prompt" jsonschema:"description=Text description of the image to generate,minLength=1,maxLength=500"`
	AssetType types.AssetType     `json:"asset_type,omitempty" validate:"oneof=icons product logo premium" jsonschema:"description=Type of asset to generate,enum=icons,enum=product,enum=logo,enum=premium,default=product"`
	Model     types.ModelID       `json:"model,omitempty" validate:"oneof=hidream flux sd35" jsonschema:"description=Model to use for generation,enum=hidream,enum=flux,enum=sd35,default=hidream"`
	Quality   types.QualityPreset `json:"quality,omitempty" validate:"oneof=draft standard high" jsonschema:"description=Quality preset trading speed for quality,enum=draft,enum=standard,enum=high,default=standard"`
	Count     int                 `json:"count,omitempty" validate:"min=1,max=4" jsonschema:"description=Number of variations to generate,minimum=1,maximum=4,default=4"`
}

type GenerateOutput struct {
	Job              *types.Job `json:"job"`
	EstimatedSeconds int        `json:"estimated_seconds"`
}

type AssetTypesOutput struct {
	Types []registry.AssetTypeInfo `json:"types"`
}

type emptyInput struct{}

func (s *Service) registerAsset(r *Registry) {
	register(r, "asset.generate", "Generate brand images from a text prompt",
		func() GenerateInput {
			return GenerateInput{
				AssetType: types.AssetTypeProduct,
				Model:     types.ModelHiDream,
				Quality:   types.QualityStandard,
				Count:     4,
			}
		}, s.Generate)
	register(r, "asset.types", "List available asset types",
		func() emptyInput { return emptyInput{} }, s.AssetTypes)
}

// Generate queues a generation job and hands it to the processor.
func (s *Service) Generate(ctx context.Context, in *GenerateInput) *result.Result {
	if strings.TrimSpace(in.Prompt) == "" {
		return result.FromTemplate(result.CodePromptEmpty)
	}
	if utf8.RuneCountInString(in.Prompt) > maxPromptLength {
		return result.FromTemplate(result.CodePromptTooLong)
	}

	model, ok := registry.Model(in.Model)
	if !ok || !model.Available {
		return result.Fail(result.CodeModelUnavailable,
			fmt.Sprintf("Model '%s' is not currently available", in.Model),
			"Try 'hidream' which is commercially licensed and available",
		)
	}

	job := &types.Job{
		ID:        s.newID(),
		Status:    types.JobStatusQueued,
		Prompt:    in.Prompt,
		AssetType: in.AssetType,
		Model:     in.Model,
		Quality:   in.Quality,
		Count:     in.Count,
		Images:    []types.GeneratedImage{},
		CreatedAt: s.jobs.Now(),
	}
	if err := s.jobs.Insert(job); err != nil {
		return s.storageFault(ctx, "job.insert", err)
	}

	var opts []result.Option
	if !model.CommercialOK {
		opts = append(opts, result.WithWarning("NON_COMMERCIAL",
			fmt.Sprintf("Model '%s' is for non-commercial use only", model.Name)))
	}

	if s.publisher != nil {
		req := types.GenerationRequest{JobID: job.ID, UserID: UserID(ctx)}
		if err := s.publisher.Enqueue(ctx, req); err != nil {
			s.log.Warn("failed to enqueue generation request", zap.String("job_id", job.ID), zap.Error(err))
			opts = append(opts, result.WithWarning("QUEUE_UNAVAILABLE",
				"Generation queue is unavailable; the job stays queued until it is resubmitted"))
		}
	}

	if in.Quality == types.QualityDraft {
		opts = append(opts, result.WithSuggestions("Use 'standard' quality for better results"))
	}
	if in.AssetType == types.AssetTypeProduct {
		opts = append(opts, result.WithSuggestions("Try 'premium' asset type for marketing-grade quality"))
	}
	opts = append(opts, result.WithReasoning("Started generation of %d %s images using %s", in.Count, in.AssetType, model.Name))

	// Report the job as inserted; the processor may already have moved it.
	return result.Success(GenerateOutput{
		Job:              job,
		EstimatedSeconds: registry.EstimateSeconds(in.Quality, in.Count),
	}, opts...)
}

func (s *Service) AssetTypes(ctx context.Context, _ *emptyInput) *result.Result {
	list := registry.AssetTypes()
	return result.Success(AssetTypesOutput{Types: list},
		result.WithReasoning("%d asset types available", len(list)))
}
