package generation

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cozy-creator/brandgen/internal/types"
)

const fireworksBaseURL = "https://api.fireworks.ai/inference/v1/workflows"

var fireworksModels = map[types.ModelID]string{
	types.ModelFlux: "accounts/fireworks/models/flux-1-schnell-fp8",
	types.ModelSD35: "accounts/fireworks/models/flux-1-dev-fp8",
}

var fireworksSizes = map[types.QualityPreset]int{
	types.QualityDraft:    512,
	types.QualityStandard: 1024,
	types.QualityHigh:     1024,
}

// FireworksGenerator calls the Fireworks text_to_image workflow, which
// answers with JPEG bytes.
type FireworksGenerator struct {
	client restClient
}

func NewFireworksGenerator(apiKey string) *FireworksGenerator {
	return &FireworksGenerator{client: newRESTClient(BackendFireworks, fireworksBaseURL, apiKey, time.Minute)}
}

func (g *FireworksGenerator) Name() string {
	return BackendFireworks
}

func (g *FireworksGenerator) Generate(ctx context.Context, req Request, progress ProgressFunc) ([]Output, error) {
	modelID, ok := fireworksModels[req.Model]
	if !ok {
		modelID = fireworksModels[types.ModelFlux]
	}
	size, ok := fireworksSizes[req.Quality]
	if !ok {
		size = 1024
	}
	url := fmt.Sprintf("%s/%s/text_to_image", g.client.baseURL, modelID)

	outputs := make([]Output, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		seed := randomSeed()
		payload := map[string]any{
			"prompt": req.Prompt,
			"width":  size,
			"height": size,
			"seed":   *seed,
		}

		body, err := g.client.doRequest(ctx, http.MethodPost, url, payload, map[string]string{"Accept": "image/jpeg"})
		if err != nil {
			return nil, err
		}

		outputs = append(outputs, Output{Bytes: body, Width: size, Height: size, Seed: seed})
		report(progress, i+1, req.Count)
	}

	return outputs, nil
}
