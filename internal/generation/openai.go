package generation

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/cozy-creator/brandgen/internal/types"

	"github.com/sashabaranov/go-openai"
)

// OpenAIGenerator renders with the OpenAI images API. dall-e-3 only
// accepts n=1, so each image is its own request.
type OpenAIGenerator struct {
	client *openai.Client
}

func NewOpenAIGenerator(apiKey string) *OpenAIGenerator {
	return &OpenAIGenerator{client: openai.NewClient(apiKey)}
}

func NewOpenAIGeneratorWithConfig(cfg openai.ClientConfig) *OpenAIGenerator {
	return &OpenAIGenerator{client: openai.NewClientWithConfig(cfg)}
}

func (g *OpenAIGenerator) Name() string {
	return BackendOpenAI
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request, progress ProgressFunc) ([]Output, error) {
	quality := openai.CreateImageQualityStandard
	if req.Quality == types.QualityHigh {
		quality = openai.CreateImageQualityHD
	}

	outputs := make([]Output, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
			Prompt:         req.Prompt,
			Model:          openai.CreateImageModelDallE3,
			N:              1,
			Size:           openai.CreateImageSize1024x1024,
			Quality:        quality,
			ResponseFormat: openai.CreateImageResponseFormatB64JSON,
			User:           req.JobID,
		})
		if err != nil {
			return nil, fmt.Errorf("openai image request failed: %w", err)
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("openai returned no image")
		}

		content, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
		if err != nil {
			return nil, fmt.Errorf("could not decode openai image: %w", err)
		}

		outputs = append(outputs, Output{Bytes: content, Width: 1024, Height: 1024})
		report(progress, i+1, req.Count)
	}

	return outputs, nil
}
