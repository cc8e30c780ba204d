package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobStatusQueued.Terminal())
	assert.False(t, JobStatusProcessing.Terminal())
	assert.True(t, JobStatusComplete.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
	assert.True(t, JobStatusCancelled.Terminal())
}

func TestLoraStatusGates(t *testing.T) {
	tests := []struct {
		status    LoraStatus
		canUpload bool
		canTrain  bool
	}{
		{LoraStatusCreated, true, true},
		{LoraStatusUploading, true, true},
		{LoraStatusReadyToTrain, true, true},
		{LoraStatusTraining, false, false},
		{LoraStatusCompleted, false, false},
		{LoraStatusFailed, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.canUpload, tt.status.CanUpload())
			assert.Equal(t, tt.canTrain, tt.status.CanTrain())
		})
	}
}

func TestUnknownEnumValuesAreInvalid(t *testing.T) {
	assert.False(t, AssetType("banner").Valid())
	assert.False(t, ModelID("dalle").Valid())
	assert.False(t, QualityPreset("ultra").Valid())
	assert.False(t, BaseModel("sd15").Valid())
	assert.False(t, UpscaleModel("lanczos").Valid())
	assert.False(t, OutputFormat("gif").Valid())
	assert.True(t, OutputWebP.Valid())
}

func TestLoraCloneIsDeep(t *testing.T) {
	now := time.Now()
	url := "https://example.com/w.safetensors"
	l := &Lora{ID: "lora_1", Images: []TrainingImage{{URL: "a"}}, LoraURL: &url, CompletedAt: &now}

	c := l.Clone()
	c.Images[0].URL = "b"
	*c.LoraURL = "changed"

	assert.Equal(t, "a", l.Images[0].URL)
	assert.Equal(t, "https://example.com/w.safetensors", *l.LoraURL)
	assert.Equal(t, 1, l.Info().ImageCount)
}
