package training

import (
	"testing"
	"time"

	"github.com/cozy-creator/brandgen/internal/config"
	"github.com/cozy-creator/brandgen/internal/store"
	"github.com/cozy-creator/brandgen/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainingLora(t *testing.T, s *store.LoraStore, name string) *types.Lora {
	t.Helper()
	l, err := s.Create(&types.Lora{ID: "lora_" + name, Name: name, TriggerWord: "tw_" + name, BaseModel: types.BaseModelSDXL, Steps: 1000})
	require.NoError(t, err)

	images := make([]types.TrainingImage, types.LoraMinImages)
	for i := range images {
		images[i] = types.TrainingImage{Filename: "f.jpg", URL: "https://img/x.jpg"}
	}
	_, err = s.AppendImages(l.ID, images)
	require.NoError(t, err)

	l, err = s.StartTraining(l.ID)
	require.NoError(t, err)
	return l
}

func TestArtifactURL(t *testing.T) {
	assert.Equal(t, "https://storage.example.com/loras/lora_1/weights.safetensors", ArtifactURL("example.com", "lora_1"))
	assert.Equal(t, "https://storage.brandgen.dev/loras/lora_1/weights.safetensors", ArtifactURL("", "lora_1"))
}

func TestImmediateTrainerCompletes(t *testing.T) {
	s := store.NewLoraStore()
	l := trainingLora(t, s, "alpha")

	require.NoError(t, NewImmediateTrainer(s, "example.com").Submit(l))

	got, err := s.Get(l.ID)
	require.NoError(t, err)
	assert.Equal(t, types.LoraStatusCompleted, got.Status)
	assert.Equal(t, 100.0, got.Progress)
	assert.Equal(t, got.Steps, got.CurrentStep)
	require.NotNil(t, got.LoraURL)
	assert.Equal(t, ArtifactURL("example.com", l.ID), *got.LoraURL)
}

func TestPoolTrainerCompletesInBackground(t *testing.T) {
	s := store.NewLoraStore()
	l := trainingLora(t, s, "beta")

	trainer := NewPoolTrainer(s, PoolOptions{Workers: 1, StepInterval: time.Millisecond})
	defer trainer.Stop()
	require.NoError(t, trainer.Submit(l))

	require.Eventually(t, func() bool {
		got, err := s.Get(l.ID)
		return err == nil && got.Status == types.LoraStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)
}

func TestPoolTrainerStopFailsRunningJobs(t *testing.T) {
	s := store.NewLoraStore()
	l := trainingLora(t, s, "gamma")

	trainer := NewPoolTrainer(s, PoolOptions{Workers: 1, StepInterval: time.Hour})
	require.NoError(t, trainer.Submit(l))
	trainer.Stop()

	got, err := s.Get(l.ID)
	require.NoError(t, err)
	assert.Equal(t, types.LoraStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)

	assert.ErrorIs(t, trainer.Submit(l), ErrTrainerStopped)
}

func TestPoolTrainerAbandonsDeletedProject(t *testing.T) {
	s := store.NewLoraStore()
	l := trainingLora(t, s, "delta")
	_, err := s.Delete(l.ID, true)
	require.NoError(t, err)

	trainer := NewPoolTrainer(s, PoolOptions{Workers: 1, StepInterval: time.Millisecond})
	require.NoError(t, trainer.Submit(l))
	trainer.Stop()

	_, err = s.Get(l.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNewTrainerByMode(t *testing.T) {
	s := store.NewLoraStore()

	immediate := NewTrainer(&config.Config{Training: config.TrainingConfig{Mode: config.TrainingModeImmediate}}, s, nil)
	assert.IsType(t, &ImmediateTrainer{}, immediate)

	pool := NewTrainer(&config.Config{Training: config.TrainingConfig{Mode: config.TrainingModeAsync, Workers: 2}}, s, nil)
	defer pool.Stop()
	assert.IsType(t, &PoolTrainer{}, pool)
}
