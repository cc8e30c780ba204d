package generation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/cozy-creator/brandgen/internal/config"
	"github.com/cozy-creator/brandgen/internal/registry"
	"github.com/cozy-creator/brandgen/internal/types"
)

const (
	BackendMock        = "mock"
	BackendHuggingFace = "huggingface"
	BackendFireworks   = "fireworks"
	BackendReplicate   = "replicate"
	BackendOpenAI      = "openai"
)

var ErrMissingAPIKey = errors.New("backend api key is not configured")

// Request is everything a backend needs to render one job.
type Request struct {
	JobID          string
	Subject        string
	Prompt         string
	NegativePrompt string
	AssetType      types.AssetType
	Model          types.ModelID
	Quality        types.QualityPreset
	Count          int
	Width          int
	Height         int
	Steps          int
	Guidance       float64
}

// Output is one rendered image. Backends return either a hosted URL or the
// raw bytes, which the processor uploads to file storage.
type Output struct {
	URL    string
	Bytes  []byte
	Width  int
	Height int
	Seed   *int64
}

// ProgressFunc receives overall progress in percent.
type ProgressFunc func(percent float64)

type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request, progress ProgressFunc) ([]Output, error)
}

// NewRequest expands a job into a backend request using the asset,
// model and quality tables.
func NewRequest(job *types.Job) (Request, error) {
	asset, ok := registry.AssetType(job.AssetType)
	if !ok {
		return Request{}, fmt.Errorf("unknown asset type %q", job.AssetType)
	}
	model, ok := registry.Model(job.Model)
	if !ok {
		return Request{}, fmt.Errorf("unknown model %q", job.Model)
	}
	preset, ok := registry.QualityPreset(job.Quality)
	if !ok {
		return Request{}, fmt.Errorf("unknown quality preset %q", job.Quality)
	}

	return Request{
		JobID:          job.ID,
		Subject:        job.Prompt,
		Prompt:         asset.ExpandPrompt(job.Prompt),
		NegativePrompt: asset.NegativePrompt,
		AssetType:      job.AssetType,
		Model:          job.Model,
		Quality:        job.Quality,
		Count:          job.Count,
		Width:          preset.Width,
		Height:         preset.Height,
		Steps:          preset.Steps,
		Guidance:       model.DefaultCFG,
	}, nil
}

// NewGenerator selects the configured backend.
func NewGenerator(cfg *config.Config) (Generator, error) {
	switch strings.ToLower(cfg.Generator.Backend) {
	case BackendMock, "":
		return NewMockGenerator(), nil
	case BackendHuggingFace, "hf":
		if cfg.HuggingFace == nil {
			return nil, fmt.Errorf("%s: %w (HF_TOKEN)", BackendHuggingFace, ErrMissingAPIKey)
		}
		return NewHuggingFaceGenerator(cfg.HuggingFace.APIKey), nil
	case BackendFireworks:
		if cfg.Fireworks == nil {
			return nil, fmt.Errorf("%s: %w (FIREWORKS_API_KEY)", BackendFireworks, ErrMissingAPIKey)
		}
		return NewFireworksGenerator(cfg.Fireworks.APIKey), nil
	case BackendReplicate:
		if cfg.Replicate == nil {
			return nil, fmt.Errorf("%s: %w (REPLICATE_API_TOKEN)", BackendReplicate, ErrMissingAPIKey)
		}
		return NewReplicateGenerator(cfg.Replicate.APIKey), nil
	case BackendOpenAI:
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("%s: %w (OPENAI_API_KEY)", BackendOpenAI, ErrMissingAPIKey)
		}
		return NewOpenAIGenerator(cfg.OpenAI.APIKey), nil
	}

	return nil, fmt.Errorf("unknown generator backend: %s", cfg.Generator.Backend)
}

func randomSeed() *int64 {
	seed := rand.Int64N(999999) + 1
	return &seed
}

func report(progress ProgressFunc, done, total int) {
	if progress != nil && total > 0 {
		progress(float64(done) * 100 / float64(total))
	}
}
