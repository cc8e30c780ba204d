package generation

import (
	"context"
	"time"
)

var placeholderURLs = []string{
	"https://placehold.co/1024x1024/107C10/white?text=Generated+1",
	"https://placehold.co/1024x1024/0078D4/white?text=Generated+2",
	"https://placehold.co/1024x1024/5C2D91/white?text=Generated+3",
	"https://placehold.co/1024x1024/D83B01/white?text=Generated+4",
}

// MockGenerator returns placeholder images without calling any backend.
type MockGenerator struct {
	// Delay is slept before each image.
	Delay time.Duration
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (g *MockGenerator) Name() string {
	return BackendMock
}

func (g *MockGenerator) Generate(ctx context.Context, req Request, progress ProgressFunc) ([]Output, error) {
	outputs := make([]Output, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		if g.Delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(g.Delay):
			}
		}

		outputs = append(outputs, Output{
			URL:    placeholderURLs[i%len(placeholderURLs)],
			Width:  1024,
			Height: 1024,
			Seed:   randomSeed(),
		})
		report(progress, i+1, req.Count)
	}

	return outputs, nil
}
