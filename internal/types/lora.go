package types

import "time"

const (
	LoraMinImages         = 10
	LoraMaxImages         = 100
	LoraRecommendedImages = 20
)

type TrainingImage struct {
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	Caption    *string   `json:"caption"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type Lora struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Description       *string         `json:"description"`
	TriggerWord       string          `json:"trigger_word"`
	BaseModel         BaseModel       `json:"base_model"`
	Status            LoraStatus      `json:"status"`
	Images            []TrainingImage `json:"images"`
	MinImages         int             `json:"min_images"`
	MaxImages         int             `json:"max_images"`
	Steps             int             `json:"steps"`
	LearningRate      float64         `json:"learning_rate"`
	LoraURL           *string         `json:"lora_url"`
	IsActive          bool            `json:"is_active"`
	Progress          float64         `json:"progress"`
	CurrentStep       int             `json:"current_step"`
	ErrorMessage      *string         `json:"error_message"`
	CreatedAt         time.Time       `json:"created_at"`
	TrainingStartedAt *time.Time      `json:"training_started_at"`
	CompletedAt       *time.Time      `json:"completed_at"`
}

// LoraInfo is the list projection of a Lora, without per-image detail.
type LoraInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	TriggerWord string     `json:"trigger_word"`
	BaseModel   BaseModel  `json:"base_model"`
	Status      LoraStatus `json:"status"`
	ImageCount  int        `json:"image_count"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (l *Lora) Info() LoraInfo {
	return LoraInfo{
		ID:          l.ID,
		Name:        l.Name,
		TriggerWord: l.TriggerWord,
		BaseModel:   l.BaseModel,
		Status:      l.Status,
		ImageCount:  len(l.Images),
		IsActive:    l.IsActive,
		CreatedAt:   l.CreatedAt,
	}
}

func (l *Lora) Clone() *Lora {
	if l == nil {
		return nil
	}

	c := *l
	c.Images = make([]TrainingImage, len(l.Images))
	copy(c.Images, l.Images)
	c.Description = clonePtr(l.Description)
	c.LoraURL = clonePtr(l.LoraURL)
	c.ErrorMessage = clonePtr(l.ErrorMessage)
	c.TrainingStartedAt = clonePtr(l.TrainingStartedAt)
	c.CompletedAt = clonePtr(l.CompletedAt)

	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
