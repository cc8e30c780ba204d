package types

import "time"

type GeneratedImage struct {
	Index  int    `json:"index" msgpack:"index"`
	URL    string `json:"url" msgpack:"url"`
	Width  int    `json:"width" msgpack:"width"`
	Height int    `json:"height" msgpack:"height"`
	Seed   *int64 `json:"seed,omitempty" msgpack:"seed,omitempty"`
}

type Job struct {
	ID           string           `json:"id"`
	Status       JobStatus        `json:"status"`
	Prompt       string           `json:"prompt"`
	AssetType    AssetType        `json:"asset_type"`
	Model        ModelID          `json:"model"`
	Quality      QualityPreset    `json:"quality"`
	Count        int              `json:"count"`
	Progress     float64          `json:"progress"`
	Images       []GeneratedImage `json:"images"`
	CreatedAt    time.Time        `json:"created_at"`
	CompletedAt  *time.Time       `json:"completed_at"`
	ErrorMessage *string          `json:"error_message"`
}

// Clone returns a deep copy so callers never share slices with a store.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}

	c := *j
	c.Images = make([]GeneratedImage, len(j.Images))
	copy(c.Images, j.Images)
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.ErrorMessage != nil {
		msg := *j.ErrorMessage
		c.ErrorMessage = &msg
	}

	return &c
}

// ImageURLs lists the image URLs in order.
func (j *Job) ImageURLs() []string {
	urls := make([]string, 0, len(j.Images))
	for _, img := range j.Images {
		urls = append(urls, img.URL)
	}
	return urls
}

// GenerationRequest is the message queued for the generation processor.
type GenerationRequest struct {
	JobID  string `json:"job_id" msgpack:"job_id"`
	UserID string `json:"user_id" msgpack:"user_id"`
}
