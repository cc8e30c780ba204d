package generation

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cozy-creator/brandgen/internal/types"
)

const huggingFaceBaseURL = "https://router.huggingface.co/hf-inference/models"

var huggingFaceModels = map[types.ModelID]string{
	types.ModelFlux: "black-forest-labs/FLUX.1-schnell",
	types.ModelSD35: "stabilityai/stable-diffusion-3.5-large",
}

// HuggingFaceGenerator renders through the Hugging Face inference router,
// one request per image. A cold model answers 503; the request is retried
// once after RetryDelay.
type HuggingFaceGenerator struct {
	client     restClient
	RetryDelay time.Duration
}

func NewHuggingFaceGenerator(token string) *HuggingFaceGenerator {
	return &HuggingFaceGenerator{
		client:     newRESTClient(BackendHuggingFace, huggingFaceBaseURL, token, 2*time.Minute),
		RetryDelay: 20 * time.Second,
	}
}

func (g *HuggingFaceGenerator) Name() string {
	return BackendHuggingFace
}

func (g *HuggingFaceGenerator) Generate(ctx context.Context, req Request, progress ProgressFunc) ([]Output, error) {
	modelID, ok := huggingFaceModels[req.Model]
	if !ok {
		modelID = huggingFaceModels[types.ModelFlux]
	}
	url := g.client.baseURL + "/" + modelID
	payload := map[string]any{"inputs": req.Prompt}

	outputs := make([]Output, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		body, err := g.client.doRequest(ctx, http.MethodPost, url, payload, nil)

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(g.RetryDelay):
			}
			body, err = g.client.doRequest(ctx, http.MethodPost, url, payload, nil)
		}
		if err != nil {
			return nil, err
		}

		outputs = append(outputs, Output{Bytes: body, Width: 1024, Height: 1024})
		report(progress, i+1, req.Count)
	}

	return outputs, nil
}
