package ethical_filter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const seed int64 = 420

// Classification is the JSON verdict the screening model returns for one
// prompt.
type Classification struct {
	Child          bool     `json:"child"`
	SexualizeChild bool     `json:"sexualize_child"`
	Nudity         bool     `json:"nudity"`
	Sexual         bool     `json:"sexual"`
	Violence       bool     `json:"violence"`
	Disturbing     bool     `json:"disturbing"`
	Hateful        bool     `json:"hateful"`
	Celebrities    []string `json:"celebrities"`
	Trademarks     []string `json:"trademarks"`
}

type PromptFilterResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason"`
}

// SafetyFilter screens image prompts with an OpenAI chat model before
// they reach a generation backend.
type SafetyFilter struct {
	client *openai.Client
	model  openai.ChatModel
}

func NewSafetyFilter(apiKey string, opts ...option.RequestOption) (*SafetyFilter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &SafetyFilter{
		client: openai.NewClient(opts...),
		model:  openai.ChatModelGPT4oMini,
	}, nil
}

func (f *SafetyFilter) Classify(ctx context.Context, positivePrompt, negativePrompt string) (*Classification, error) {
	completion, err := f.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(fmt.Sprintf("Positive prompt: %s", positivePrompt)),
			openai.UserMessage(fmt.Sprintf("Negative prompt: %s", negativePrompt)),
		}),
		ResponseFormat: openai.F[openai.ChatCompletionNewParamsResponseFormatUnion](
			openai.ResponseFormatJSONObjectParam{
				Type: openai.F(openai.ResponseFormatJSONObjectTypeJSONObject),
			},
		),
		Seed:        openai.F(seed),
		Model:       openai.F(f.model),
		Temperature: openai.F(0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("prompt screening request failed: %w", err)
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("prompt screening returned no verdict")
	}

	var c Classification
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &c); err != nil {
		return nil, fmt.Errorf("could not parse screening verdict: %w", err)
	}

	return &c, nil
}

func (f *SafetyFilter) EvaluatePrompt(ctx context.Context, positivePrompt, negativePrompt string) (*PromptFilterResponse, error) {
	c, err := f.Classify(ctx, positivePrompt, negativePrompt)
	if err != nil {
		return nil, err
	}

	response := EvaluateResponse(c)
	return &response, nil
}

// EvaluateResponse turns a classification into an accept/reject decision.
// Rules are checked in order and the first match supplies the reason.
func EvaluateResponse(c *Classification) PromptFilterResponse {
	switch {
	case c.SexualizeChild || (c.Child && (c.Sexual || c.Nudity)):
		return reject("contains child sexual content")
	case c.Child && (c.Violence || c.Disturbing):
		return reject("contains children and violent or disturbing content")
	case (c.Sexual || c.Nudity) && len(c.Celebrities) > 0:
		return reject("contains sexual or nude content of a real person")
	case c.Hateful:
		return reject("contains hateful symbols or slurs")
	case len(c.Trademarks) > 0:
		return reject(fmt.Sprintf("references third-party trademarks: %v", c.Trademarks))
	}

	return PromptFilterResponse{Accepted: true}
}

func reject(reason string) PromptFilterResponse {
	return PromptFilterResponse{Accepted: false, Reason: reason}
}
