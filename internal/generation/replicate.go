package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cozy-creator/brandgen/internal/types"
)

const replicateBaseURL = "https://api.replicate.com/v1"

var replicateModels = map[types.ModelID]string{
	types.ModelHiDream: "mcai/hidream-i1-full:50c0e2241017e6713ab94a5f984e6b1e9646dc95ef0d60e7a3045017e7d1e33c",
	types.ModelFlux:    "black-forest-labs/flux-1.1-pro",
	types.ModelSD35:    "stability-ai/stable-diffusion-3.5-large",
}

var replicateSteps = map[types.QualityPreset]int{
	types.QualityDraft:    20,
	types.QualityStandard: 28,
	types.QualityHigh:     50,
}

type replicatePrediction struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Output any    `json:"output"`
	Error  any    `json:"error,omitempty"`
	URLs   struct {
		Get    string `json:"get"`
		Cancel string `json:"cancel"`
	} `json:"urls"`
}

func (p *replicatePrediction) done() bool {
	switch p.Status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

// firstURL extracts the image URL from either output shape Replicate
// uses: a single string or a list of strings.
func (p *replicatePrediction) firstURL() string {
	switch out := p.Output.(type) {
	case string:
		return out
	case []any:
		if len(out) > 0 {
			if s, ok := out[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// ReplicateGenerator runs one prediction per image and polls each until it
// settles.
type ReplicateGenerator struct {
	client       restClient
	PollInterval time.Duration
	MaxPolls     int
}

func NewReplicateGenerator(token string) *ReplicateGenerator {
	return &ReplicateGenerator{
		client:       newRESTClient(BackendReplicate, replicateBaseURL, token, 30*time.Second),
		PollInterval: 2 * time.Second,
		MaxPolls:     60,
	}
}

func (g *ReplicateGenerator) Name() string {
	return BackendReplicate
}

func (g *ReplicateGenerator) Generate(ctx context.Context, req Request, progress ProgressFunc) ([]Output, error) {
	model, ok := replicateModels[req.Model]
	if !ok {
		return nil, fmt.Errorf("model %s is not supported on replicate", req.Model)
	}
	steps, ok := replicateSteps[req.Quality]
	if !ok {
		steps = 28
	}

	input := map[string]any{
		"prompt":              req.Prompt,
		"negative_prompt":     req.NegativePrompt,
		"num_inference_steps": steps,
		"width":               1024,
		"height":              1024,
	}

	outputs := make([]Output, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		pred, err := g.createPrediction(ctx, model, input)
		if err != nil {
			return nil, err
		}
		if pred, err = g.poll(ctx, pred); err != nil {
			return nil, err
		}
		if pred.Status != "succeeded" {
			return nil, fmt.Errorf("replicate prediction %s %s: %v", pred.ID, pred.Status, pred.Error)
		}

		url := pred.firstURL()
		if url == "" {
			return nil, fmt.Errorf("replicate prediction %s returned no image", pred.ID)
		}
		outputs = append(outputs, Output{URL: url, Width: 1024, Height: 1024})
		report(progress, i+1, req.Count)
	}

	return outputs, nil
}

// createPrediction posts to the model endpoint for official models and to
// /predictions with an explicit version for pinned "owner/name:version"
// references.
func (g *ReplicateGenerator) createPrediction(ctx context.Context, model string, input map[string]any) (*replicatePrediction, error) {
	var (
		url     string
		payload = map[string]any{"input": input}
	)
	if _, version, pinned := strings.Cut(model, ":"); pinned {
		url = g.client.baseURL + "/predictions"
		payload["version"] = version
	} else {
		url = fmt.Sprintf("%s/models/%s/predictions", g.client.baseURL, model)
	}

	body, err := g.client.doRequest(ctx, http.MethodPost, url, payload, map[string]string{"Prefer": "wait"})
	if err != nil {
		return nil, err
	}

	var pred replicatePrediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	return &pred, nil
}

func (g *ReplicateGenerator) poll(ctx context.Context, pred *replicatePrediction) (*replicatePrediction, error) {
	for attempt := 0; !pred.done(); attempt++ {
		if attempt >= g.MaxPolls {
			return nil, fmt.Errorf("replicate prediction %s timed out in status %s", pred.ID, pred.Status)
		}
		if pred.URLs.Get == "" {
			return nil, fmt.Errorf("replicate prediction %s has no status url", pred.ID)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.PollInterval):
		}

		body, err := g.client.doRequest(ctx, http.MethodGet, pred.URLs.Get, nil, nil)
		if err != nil {
			return nil, err
		}
		next := &replicatePrediction{}
		if err := json.Unmarshal(body, next); err != nil {
			return nil, fmt.Errorf("error decoding response: %w", err)
		}
		pred = next
	}

	return pred, nil
}
