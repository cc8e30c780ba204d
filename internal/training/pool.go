package training

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cozy-creator/brandgen/internal/store"
	"github.com/cozy-creator/brandgen/internal/types"

	"github.com/gammazero/workerpool"
	"go.uber.org/zap"
)

const checkpoints = 10

type PoolOptions struct {
	Workers       int
	StepInterval  time.Duration
	StorageDomain string
	Logger        *zap.Logger
}

// PoolTrainer runs simulated training runs on a bounded worker pool. Each
// run reports progress at fixed checkpoints and then completes. A run
// whose project left the training state (deleted or failed elsewhere)
// stops at its next checkpoint.
type PoolTrainer struct {
	wp       *workerpool.WorkerPool
	sink     Sink
	domain   string
	interval time.Duration
	logger   *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	stopped bool
}

func NewPoolTrainer(sink Sink, opts PoolOptions) *PoolTrainer {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &PoolTrainer{
		wp:       workerpool.New(opts.Workers),
		sink:     sink,
		domain:   opts.StorageDomain,
		interval: opts.StepInterval,
		logger:   opts.Logger.Named("trainer"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (t *PoolTrainer) Submit(lora *types.Lora) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return ErrTrainerStopped
	}

	id, steps := lora.ID, lora.Steps
	t.wp.Submit(func() { t.train(id, steps) })
	return nil
}

// Stop interrupts running jobs, fails them and waits for the pool to
// drain. Queued runs are failed as well.
func (t *PoolTrainer) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.mu.Unlock()

	t.cancel()
	t.wp.StopWait()
}

// Waiting reports how many runs are queued behind busy workers.
func (t *PoolTrainer) Waiting() int {
	return t.wp.WaitingQueueSize()
}

func (t *PoolTrainer) train(id string, steps int) {
	log := t.logger.With(zap.String("lora_id", id))
	log.Info("training started", zap.Int("steps", steps))

	for i := 1; i <= checkpoints; i++ {
		select {
		case <-t.ctx.Done():
			t.fail(log, id, "training interrupted by shutdown")
			return
		case <-time.After(t.interval):
		}

		if _, err := t.sink.TrainingProgress(id, steps*i/checkpoints); err != nil {
			if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidTransition) {
				log.Info("training abandoned", zap.Error(err))
				return
			}
			t.fail(log, id, err.Error())
			return
		}
	}

	if _, err := t.sink.CompleteTraining(id, ArtifactURL(t.domain, id)); err != nil {
		log.Warn("failed to complete training", zap.Error(err))
		return
	}
	log.Info("training completed")
}

func (t *PoolTrainer) fail(log *zap.Logger, id, message string) {
	if _, err := t.sink.FailTraining(id, message); err != nil {
		log.Warn("failed to record training failure", zap.Error(err))
		return
	}
	log.Warn("training failed", zap.String("reason", message))
}
