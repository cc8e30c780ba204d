package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/cozy-creator/brandgen/internal/db/models"
	"github.com/cozy-creator/brandgen/internal/mq"
	"github.com/cozy-creator/brandgen/internal/store"
	"github.com/cozy-creator/brandgen/internal/types"
	"github.com/cozy-creator/brandgen/pkg/ethical_filter"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/cozy-creator/brandgen/internal/generation")

type Uploader interface {
	UploadAll(ctx context.Context, images [][]byte) ([]string, error)
}

type HistoryWriter interface {
	Save(ctx context.Context, record *models.GenerationRecord) (*models.GenerationRecord, error)
}

type PromptScreener interface {
	EvaluatePrompt(ctx context.Context, positivePrompt, negativePrompt string) (*ethical_filter.PromptFilterResponse, error)
}

type ProcessorOptions struct {
	Topic     string
	Workers   int
	Uploader  Uploader
	History   HistoryWriter
	Screener  PromptScreener
	Logger    *zap.Logger
	Generator Generator
}

// Processor consumes generation requests and drives each job through
// processing to complete or failed. A job cancelled mid-flight makes its
// next store transition fail; the processor then drops the output.
type Processor struct {
	jobs  *store.JobStore
	queue mq.MQ
	opts  ProcessorOptions
	log   *zap.Logger
}

func NewProcessor(jobs *store.JobStore, queue mq.MQ, opts ProcessorOptions) *Processor {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Generator == nil {
		opts.Generator = NewMockGenerator()
	}

	return &Processor{
		jobs:  jobs,
		queue: queue,
		opts:  opts,
		log:   opts.Logger.Named("processor"),
	}
}

// Run consumes the request topic until ctx ends or the queue closes.
func (p *Processor) Run(ctx context.Context) error {
	p.log.Info("generation processor started",
		zap.String("topic", p.opts.Topic),
		zap.String("backend", p.opts.Generator.Name()),
		zap.Int("workers", p.opts.Workers),
	)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.opts.Workers; i++ {
		g.Go(func() error { return p.consume(ctx) })
	}
	return g.Wait()
}

func (p *Processor) consume(ctx context.Context) error {
	for {
		msg, err := p.queue.Receive(ctx, p.opts.Topic)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, mq.ErrQueueClosed) || errors.Is(err, mq.ErrTopicClosed) {
				return nil
			}
			p.log.Error("failed to receive generation request", zap.Error(err))
			continue
		}

		req, err := DecodeRequest(msg.Data())
		if err != nil {
			p.log.Error("dropping malformed request", zap.Error(err))
		} else if err := p.Process(ctx, req); err != nil {
			p.log.Error("generation failed", zap.String("job_id", req.JobID), zap.Error(err))
		}

		if err := p.queue.Ack(p.opts.Topic, msg); err != nil {
			p.log.Warn("failed to ack request", zap.Error(err))
		}
	}
}

// Process runs one job to completion. It returns an error only for
// failures that could not be recorded on the job itself.
func (p *Processor) Process(ctx context.Context, req types.GenerationRequest) error {
	ctx, span := tracer.Start(ctx, "generation.process")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", req.JobID), attribute.String("backend", p.opts.Generator.Name()))

	log := p.log.With(zap.String("job_id", req.JobID))

	job, err := p.jobs.Start(req.JobID)
	if err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			log.Info("skipping job that is no longer queued", zap.String("status", string(job.Status)))
			return nil
		}
		return err
	}

	genReq, err := NewRequest(job)
	if err != nil {
		return p.fail(log, job.ID, err.Error())
	}

	if p.opts.Screener != nil {
		verdict, err := p.opts.Screener.EvaluatePrompt(ctx, genReq.Prompt, genReq.NegativePrompt)
		if err != nil {
			return p.fail(log, job.ID, fmt.Sprintf("Prompt screening failed: %v", err))
		}
		if !verdict.Accepted {
			return p.fail(log, job.ID, "Prompt rejected: "+verdict.Reason)
		}
	}

	outputs, err := p.opts.Generator.Generate(ctx, genReq, func(percent float64) {
		// Keep headroom for the upload and archive steps.
		if _, err := p.jobs.Progress(job.ID, percent*0.9); err != nil && !errors.Is(err, store.ErrInvalidTransition) {
			log.Warn("failed to record progress", zap.Error(err))
		}
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return p.fail(log, job.ID, err.Error())
	}

	images, err := p.materialize(ctx, outputs)
	if err != nil {
		return p.fail(log, job.ID, err.Error())
	}

	done, err := p.jobs.Complete(job.ID, images)
	if err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			log.Info("discarding output of cancelled job", zap.String("status", string(done.Status)))
			return nil
		}
		return p.fail(log, job.ID, err.Error())
	}
	log.Info("generation complete", zap.Int("images", len(images)))

	return p.archive(ctx, log, done, req.UserID)
}

// materialize uploads byte outputs and numbers every image.
func (p *Processor) materialize(ctx context.Context, outputs []Output) ([]types.GeneratedImage, error) {
	var (
		pending [][]byte
		slots   []int
	)
	for i, out := range outputs {
		if out.URL == "" {
			pending = append(pending, out.Bytes)
			slots = append(slots, i)
		}
	}

	urls := make([]string, len(outputs))
	for i, out := range outputs {
		urls[i] = out.URL
	}
	if len(pending) > 0 {
		if p.opts.Uploader == nil {
			return nil, fmt.Errorf("backend returned image bytes but no file storage is configured")
		}
		uploaded, err := p.opts.Uploader.UploadAll(ctx, pending)
		if err != nil {
			return nil, fmt.Errorf("failed to store images: %w", err)
		}
		for i, slot := range slots {
			urls[slot] = uploaded[i]
		}
	}

	images := make([]types.GeneratedImage, len(outputs))
	for i, out := range outputs {
		images[i] = types.GeneratedImage{
			Index:  i,
			URL:    urls[i],
			Width:  out.Width,
			Height: out.Height,
			Seed:   out.Seed,
		}
	}
	return images, nil
}

func (p *Processor) archive(ctx context.Context, log *zap.Logger, job *types.Job, userID string) error {
	if p.opts.History == nil {
		return nil
	}
	if userID == "" {
		userID = "anonymous"
	}

	quality, model := string(job.Quality), string(job.Model)
	record := &models.GenerationRecord{
		JobID:     job.ID,
		UserID:    userID,
		Prompt:    job.Prompt,
		AssetType: string(job.AssetType),
		Quality:   &quality,
		Model:     &model,
		Images:    job.ImageURLs(),
	}
	if job.CompletedAt != nil {
		record.CreatedAt = *job.CompletedAt
	}

	if _, err := p.opts.History.Save(ctx, record); err != nil {
		log.Error("failed to archive generation", zap.Error(err))
		return err
	}
	return nil
}

func (p *Processor) fail(log *zap.Logger, jobID, message string) error {
	if _, err := p.jobs.Fail(jobID, message); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			return nil
		}
		return err
	}
	log.Warn("job failed", zap.String("reason", message))
	return nil
}
