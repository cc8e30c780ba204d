package commands

import (
	"context"
	"fmt"

	"github.com/cozy-creator/brandgen/internal/registry"
	"github.com/cozy-creator/brandgen/internal/result"
	"github.com/cozy-creator/brandgen/internal/types"
)

type ModelInfoInput struct {
	ModelID string `json:"model_id" validate:"required" jsonschema:"description=Model ID to describe,examples=hidream"`
}

type ModelListOutput struct {
	Models []registry.ModelInfo `json:"models"`
}

type ModelInfoOutput struct {
	Model registry.ModelInfo `json:"model"`
}

func (s *Service) registerModel(r *Registry) {
	register(r, "model.list", "List image generation models with licensing and availability",
		func() emptyInput { return emptyInput{} }, s.ListModels)
	register(r, "model.info", "Get details about one model",
		func() ModelInfoInput { return ModelInfoInput{} }, s.ModelInfo)
}

func (s *Service) ListModels(ctx context.Context, _ *emptyInput) *result.Result {
	list := registry.Models()
	available := 0
	for _, m := range list {
		if m.Available {
			available++
		}
	}

	return result.Success(ModelListOutput{Models: list},
		result.WithReasoning("%d models (%d available)", len(list), available),
		result.WithSuggestions(
			"Use 'hidream' for commercial projects (Apache-2.0 license)",
			"Use 'flux' for highest quality (non-commercial only)",
		),
	)
}

func (s *Service) ModelInfo(ctx context.Context, in *ModelInfoInput) *result.Result {
	model, ok := registry.Model(types.ModelID(in.ModelID))
	if !ok {
		return result.Fail(result.CodeModelNotFound, fmt.Sprintf("Model '%s' not found", in.ModelID), "")
	}

	opts := []result.Option{result.WithReasoning("%s: %s", model.Name, model.Description)}
	if !model.CommercialOK {
		opts = append(opts, result.WithWarning("NON_COMMERCIAL", fmt.Sprintf("'%s' is for non-commercial use only", model.Name)))
	}
	if !model.Available {
		opts = append(opts, result.WithWarning("UNAVAILABLE", fmt.Sprintf("'%s' is not currently available", model.Name)))
	}

	return result.Success(ModelInfoOutput{Model: model}, opts...)
}
