package commands

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/cozy-creator/brandgen/internal/db/repository"
	"github.com/cozy-creator/brandgen/internal/result"
	"github.com/cozy-creator/brandgen/internal/store"
	"github.com/cozy-creator/brandgen/internal/training"
	"github.com/cozy-creator/brandgen/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher hands a queued job to the generation processor.
type Publisher interface {
	Enqueue(ctx context.Context, req types.GenerationRequest) error
}

// Deps are the collaborators commands operate on. Jobs and Loras are
// required; History and Favorites are required by their command groups
// only. A nil Publisher leaves generated jobs queued, and a nil Trainer
// completes training immediately.
type Deps struct {
	Jobs      *store.JobStore
	Loras     *store.LoraStore
	History   repository.IHistoryRepository
	Favorites repository.IFavoriteRepository
	Publisher Publisher
	Trainer   training.Trainer
	Logger    *zap.Logger

	// StorageDomain names the host of trained LoRA weights when Trainer
	// is nil.
	StorageDomain string
	// TempDir roots the file:// URLs of quality stubs. Defaults to
	// os.TempDir().
	TempDir string
	Clock   func() time.Time
}

type Service struct {
	jobs      *store.JobStore
	loras     *store.LoraStore
	history   repository.IHistoryRepository
	favorites repository.IFavoriteRepository
	publisher Publisher
	trainer   training.Trainer
	log       *zap.Logger
	tempDir   string
	now       func() time.Time
	newID     func() string
}

func NewService(deps Deps) *Service {
	if deps.Jobs == nil {
		deps.Jobs = store.NewJobStore()
	}
	if deps.Loras == nil {
		deps.Loras = store.NewLoraStore()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Trainer == nil {
		deps.Trainer = training.NewImmediateTrainer(deps.Loras, deps.StorageDomain)
	}
	if deps.TempDir == "" {
		deps.TempDir = os.TempDir()
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		jobs:      deps.Jobs,
		loras:     deps.Loras,
		history:   deps.History,
		favorites: deps.Favorites,
		publisher: deps.Publisher,
		trainer:   deps.Trainer,
		log:       deps.Logger.Named("service"),
		tempDir:   deps.TempDir,
		now:       deps.Clock,
		newID:     uuid.NewString,
	}
}

// New builds a Registry with every command bound to a Service over deps.
func New(deps Deps) (*Registry, *Service) {
	svc := NewService(deps)
	r := NewRegistry(deps.Logger)
	svc.Register(r)
	return r, svc
}

// Register binds every command group to r.
func (s *Service) Register(r *Registry) {
	s.registerAsset(r)
	s.registerJob(r)
	s.registerLora(r)
	s.registerHistory(r)
	s.registerFavorites(r)
	s.registerModel(r)
	s.registerQuality(r)
}

func (s *Service) Jobs() *store.JobStore {
	return s.jobs
}

func (s *Service) Loras() *store.LoraStore {
	return s.loras
}

// storageFault logs err and wraps it in an INTERNAL_ERROR envelope.
func (s *Service) storageFault(ctx context.Context, op string, err error) *result.Result {
	s.log.Error("storage operation failed",
		zap.String("op", op),
		zap.String("user_id", UserID(ctx)),
		zap.Error(err),
	)
	return result.Internal(err)
}

func (s *Service) requireRepo(ok bool, op string) *result.Result {
	if ok {
		return nil
	}
	return result.Internal(errors.New(op + ": durable store not configured"))
}

func newLoraID() string {
	return "lora_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func ptr[T any](v T) *T {
	return &v
}
