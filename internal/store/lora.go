package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cozy-creator/brandgen/internal/types"
)

type loraEntry struct {
	lora *types.Lora
	seq  uint64
}

// LoraFilter selects projects in List. Zero fields match everything and
// set fields are combined with AND.
type LoraFilter struct {
	Status     *types.LoraStatus
	BaseModel  *types.BaseModel
	ActiveOnly bool
}

func (f LoraFilter) match(l *types.Lora) bool {
	if f.Status != nil && l.Status != *f.Status {
		return false
	}
	if f.BaseModel != nil && l.BaseModel != *f.BaseModel {
		return false
	}
	if f.ActiveOnly && !l.IsActive {
		return false
	}
	return true
}

// LoraStore keeps LoRA training projects in memory and owns their state
// machine. Creation holds createMu across the uniqueness scan and the
// insert; every other mutation holds the project's key lock.
type LoraStore struct {
	createMu sync.Mutex
	mu       sync.RWMutex
	loras    map[string]*loraEntry
	seq      uint64
	locks    *KeyedMutex
	now      func() time.Time
}

func NewLoraStore(opts ...Option) *LoraStore {
	o := buildOptions(opts)
	return &LoraStore{
		loras: make(map[string]*loraEntry),
		locks: NewKeyedMutex(),
		now:   o.now,
	}
}

func (s *LoraStore) Now() time.Time {
	return s.now()
}

// Create inserts l unless its name or trigger word collides,
// case-insensitively, with an existing project. Name collisions are
// reported before trigger collisions.
func (s *LoraStore) Create(l *types.Lora) (*types.Lora, error) {
	if l == nil || l.ID == "" {
		return nil, fmt.Errorf("lora must have an id")
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	s.mu.RLock()
	for _, entry := range s.loras {
		if strings.EqualFold(entry.lora.Name, l.Name) {
			s.mu.RUnlock()
			return nil, ErrNameTaken
		}
	}
	for _, entry := range s.loras {
		if strings.EqualFold(entry.lora.TriggerWord, l.TriggerWord) {
			s.mu.RUnlock()
			return nil, ErrTriggerTaken
		}
	}
	_, exists := s.loras[l.ID]
	s.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("lora %s: %w", l.ID, ErrAlreadyExists)
	}

	created := l.Clone()
	if created.Images == nil {
		created.Images = []types.TrainingImage{}
	}
	if created.MinImages == 0 {
		created.MinImages = types.LoraMinImages
	}
	if created.MaxImages == 0 {
		created.MaxImages = types.LoraMaxImages
	}
	created.Status = types.LoraStatusCreated
	created.IsActive = false

	s.mu.Lock()
	s.seq++
	s.loras[created.ID] = &loraEntry{lora: created, seq: s.seq}
	s.mu.Unlock()

	return created.Clone(), nil
}

func (s *LoraStore) Get(id string) (*types.Lora, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.loras[id]
	if !ok {
		return nil, fmt.Errorf("lora %s: %w", id, ErrNotFound)
	}
	return entry.lora.Clone(), nil
}

// List returns the projects matching filter, newest first.
func (s *LoraStore) List(filter LoraFilter) []*types.Lora {
	s.mu.RLock()
	entries := make([]*loraEntry, 0, len(s.loras))
	for _, entry := range s.loras {
		if filter.match(entry.lora) {
			entries = append(entries, &loraEntry{lora: entry.lora.Clone(), seq: entry.seq})
		}
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.lora.CreatedAt.Equal(b.lora.CreatedAt) {
			return a.lora.CreatedAt.After(b.lora.CreatedAt)
		}
		return a.seq > b.seq
	})

	loras := make([]*types.Lora, len(entries))
	for i, entry := range entries {
		loras[i] = entry.lora
	}
	return loras
}

func (s *LoraStore) update(id string, fn func(l *types.Lora) error) (*types.Lora, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	s.mu.RLock()
	entry, ok := s.loras[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("lora %s: %w", id, ErrNotFound)
	}

	next := entry.lora.Clone()
	if err := fn(next); err != nil {
		return entry.lora.Clone(), err
	}

	s.mu.Lock()
	entry.lora = next
	s.mu.Unlock()

	return next.Clone(), nil
}

// AppendImages adds images to a project that still accepts uploads. The
// whole batch is rejected when it would exceed the project's maximum. On
// success the status becomes uploading below the minimum image count and
// ready_to_train at or above it.
func (s *LoraStore) AppendImages(id string, images []types.TrainingImage) (*types.Lora, error) {
	return s.update(id, func(l *types.Lora) error {
		if !l.Status.CanUpload() {
			return &StateError{Op: "upload", Status: string(l.Status)}
		}

		current := len(l.Images)
		if current+len(images) > l.MaxImages {
			return &LimitError{Err: ErrTooManyImages, Current: current, Adding: len(images), Limit: l.MaxImages}
		}

		l.Images = append(l.Images, images...)
		if len(l.Images) < l.MinImages {
			l.Status = types.LoraStatusUploading
		} else {
			l.Status = types.LoraStatusReadyToTrain
		}
		return nil
	})
}

// StartTraining moves a project with enough images into training and
// resets its progress.
func (s *LoraStore) StartTraining(id string) (*types.Lora, error) {
	return s.update(id, func(l *types.Lora) error {
		if !l.Status.CanTrain() {
			return &StateError{Op: "train", Status: string(l.Status)}
		}
		if len(l.Images) < l.MinImages {
			return &LimitError{Err: ErrInsufficientImages, Current: len(l.Images), Limit: l.MinImages}
		}

		now := s.now()
		l.Status = types.LoraStatusTraining
		l.TrainingStartedAt = &now
		l.Progress = 0
		l.CurrentStep = 0
		l.ErrorMessage = nil
		l.CompletedAt = nil
		return nil
	})
}

// TrainingProgress records the current step of a training project.
func (s *LoraStore) TrainingProgress(id string, step int) (*types.Lora, error) {
	return s.update(id, func(l *types.Lora) error {
		if l.Status != types.LoraStatusTraining {
			return &StateError{Op: "progress", Status: string(l.Status)}
		}
		step = min(max(step, 0), l.Steps)
		l.CurrentStep = step
		if l.Steps > 0 {
			l.Progress = float64(step) * 100 / float64(l.Steps)
		}
		return nil
	})
}

// CompleteTraining finishes a training project with its artifact URL.
func (s *LoraStore) CompleteTraining(id string, artifactURL string) (*types.Lora, error) {
	return s.update(id, func(l *types.Lora) error {
		if l.Status != types.LoraStatusTraining {
			return &StateError{Op: "complete", Status: string(l.Status)}
		}
		now := s.now()
		l.Status = types.LoraStatusCompleted
		l.CompletedAt = &now
		l.Progress = 100
		l.CurrentStep = l.Steps
		l.LoraURL = &artifactURL
		return nil
	})
}

// FailTraining moves a training project to failed.
func (s *LoraStore) FailTraining(id string, message string) (*types.Lora, error) {
	return s.update(id, func(l *types.Lora) error {
		if l.Status != types.LoraStatusTraining {
			return &StateError{Op: "fail", Status: string(l.Status)}
		}
		l.Status = types.LoraStatusFailed
		l.ErrorMessage = &message
		return nil
	})
}

// SetActive flips is_active. Activation requires a completed project;
// deactivation is always allowed.
func (s *LoraStore) SetActive(id string, active bool) (before, after *types.Lora, err error) {
	after, err = s.update(id, func(l *types.Lora) error {
		before = l.Clone()
		if active && l.Status != types.LoraStatusCompleted {
			return &StateError{Op: "activate", Status: string(l.Status)}
		}
		l.IsActive = active
		return nil
	})
	return before, after, err
}

// Delete removes a project. Active projects are never deleted, and
// projects in training only when force is set.
func (s *LoraStore) Delete(id string, force bool) (*types.Lora, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.loras[id]
	if !ok {
		return nil, fmt.Errorf("lora %s: %w", id, ErrNotFound)
	}
	if entry.lora.IsActive {
		return entry.lora.Clone(), ErrActive
	}
	if entry.lora.Status == types.LoraStatusTraining && !force {
		return entry.lora.Clone(), &StateError{Op: "delete", Status: string(entry.lora.Status)}
	}

	delete(s.loras, id)
	return entry.lora, nil
}
