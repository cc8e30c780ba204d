package training

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cozy-creator/brandgen/internal/config"
	"github.com/cozy-creator/brandgen/internal/types"

	"go.uber.org/zap"
)

var ErrTrainerStopped = errors.New("trainer stopped")

// Sink receives training callbacks. *store.LoraStore satisfies it.
type Sink interface {
	TrainingProgress(id string, step int) (*types.Lora, error)
	CompleteTraining(id string, artifactURL string) (*types.Lora, error)
	FailTraining(id string, message string) (*types.Lora, error)
}

// Trainer runs LoRA training for a project that the store has already
// moved to training.
type Trainer interface {
	Submit(lora *types.Lora) error
	Stop()
}

// ArtifactURL is where the trained weights of a project are published.
func ArtifactURL(domain, loraID string) string {
	domain = strings.TrimSuffix(domain, "/")
	if domain == "" {
		domain = config.DefaultStorageDomain
	}
	return fmt.Sprintf("https://storage.%s/loras/%s/weights.safetensors", domain, loraID)
}

func NewTrainer(cfg *config.Config, sink Sink, logger *zap.Logger) Trainer {
	if cfg.Training.Mode == config.TrainingModeImmediate {
		return NewImmediateTrainer(sink, cfg.Training.StorageDomain)
	}

	return NewPoolTrainer(sink, PoolOptions{
		Workers:       cfg.Training.Workers,
		StepInterval:  cfg.Training.StepInterval,
		StorageDomain: cfg.Training.StorageDomain,
		Logger:        logger,
	})
}

// ImmediateTrainer completes training inside Submit.
type ImmediateTrainer struct {
	sink   Sink
	domain string
}

func NewImmediateTrainer(sink Sink, storageDomain string) *ImmediateTrainer {
	return &ImmediateTrainer{sink: sink, domain: storageDomain}
}

func (t *ImmediateTrainer) Submit(lora *types.Lora) error {
	_, err := t.sink.CompleteTraining(lora.ID, ArtifactURL(t.domain, lora.ID))
	return err
}

func (t *ImmediateTrainer) Stop() {}
