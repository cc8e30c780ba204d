package store

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cozy-creator/brandgen/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(start time.Time) func() time.Time {
	var n atomic.Int64
	return func() time.Time {
		return start.Add(time.Duration(n.Add(1)) * time.Second)
	}
}

func newJob(id string, createdAt time.Time) *types.Job {
	return &types.Job{
		ID:        id,
		Status:    types.JobStatusQueued,
		Prompt:    "a cloud",
		AssetType: types.AssetTypeProduct,
		Model:     types.ModelHiDream,
		Quality:   types.QualityStandard,
		Count:     2,
		Images:    []types.GeneratedImage{},
		CreatedAt: createdAt,
	}
}

func assertJobInvariants(t *testing.T, job *types.Job) {
	t.Helper()
	assert.Equal(t, job.Status == types.JobStatusComplete, len(job.Images) > 0, "images non-empty iff complete")
	assert.Equal(t, job.Status == types.JobStatusFailed, job.ErrorMessage != nil, "error_message set iff failed")
}

func TestJobLifecycle(t *testing.T) {
	s := NewJobStore()
	require.NoError(t, s.Insert(newJob("j1", time.Now())))

	job, err := s.Start("j1")
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusProcessing, job.Status)
	assertJobInvariants(t, job)

	job, err = s.Progress("j1", 150)
	require.NoError(t, err)
	assert.Equal(t, 100.0, job.Progress)

	job, err = s.Complete("j1", []types.GeneratedImage{{Index: 0, URL: "https://example.com/0.png"}})
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusComplete, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assertJobInvariants(t, job)

	_, err = s.Cancel("j1")
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, string(types.JobStatusComplete), stateErr.Status)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestJobFailSetsMessage(t *testing.T) {
	s := NewJobStore()
	require.NoError(t, s.Insert(newJob("j1", time.Now())))

	job, err := s.Fail("j1", "")
	require.NoError(t, err)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "Unknown error", *job.ErrorMessage)
	assertJobInvariants(t, job)

	_, err = s.Start("j1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestJobCancelledCannotComplete(t *testing.T) {
	s := NewJobStore()
	require.NoError(t, s.Insert(newJob("j1", time.Now())))
	_, err := s.Start("j1")
	require.NoError(t, err)

	_, err = s.Cancel("j1")
	require.NoError(t, err)

	job, err := s.Complete("j1", []types.GeneratedImage{{URL: "x"}})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, types.JobStatusCancelled, job.Status)
	assert.Empty(t, job.Images)
}

func TestJobCompleteNeedsImages(t *testing.T) {
	s := NewJobStore()
	require.NoError(t, s.Insert(newJob("j1", time.Now())))
	_, err := s.Start("j1")
	require.NoError(t, err)

	_, err = s.Complete("j1", nil)
	assert.ErrorIs(t, err, ErrNoImages)
}

func TestJobGetReturnsCopy(t *testing.T) {
	s := NewJobStore()
	require.NoError(t, s.Insert(newJob("j1", time.Now())))

	job, err := s.Get("j1")
	require.NoError(t, err)
	job.Status = types.JobStatusComplete

	again, err := s.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusQueued, again.Status)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobListNewestFirstWithFilter(t *testing.T) {
	s := NewJobStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Insert(newJob(fmt.Sprintf("j%d", i), base.Add(time.Duration(i)*time.Minute))))
	}
	_, err := s.Cancel("j3")
	require.NoError(t, err)

	all := s.List(nil)
	require.Len(t, all, 5)
	assert.Equal(t, "j4", all[0].ID)
	assert.Equal(t, "j0", all[4].ID)

	cancelled := types.JobStatusCancelled
	filtered := s.List(&cancelled)
	require.Len(t, filtered, 1)
	assert.Equal(t, "j3", filtered[0].ID)
}

func TestJobListBreaksTiesByInsertion(t *testing.T) {
	s := NewJobStore()
	now := time.Now()
	require.NoError(t, s.Insert(newJob("first", now)))
	require.NoError(t, s.Insert(newJob("second", now)))

	jobs := s.List(nil)
	assert.Equal(t, "second", jobs[0].ID)
}

func newLora(id, name, trigger string) *types.Lora {
	return &types.Lora{
		ID:           id,
		Name:         name,
		TriggerWord:  trigger,
		BaseModel:    types.BaseModelFlux,
		Steps:        1000,
		LearningRate: 1e-4,
		CreatedAt:    time.Now(),
	}
}

func images(n int) []types.TrainingImage {
	list := make([]types.TrainingImage, n)
	for i := range list {
		list[i] = types.TrainingImage{Filename: fmt.Sprintf("image_%d.jpg", i), URL: fmt.Sprintf("https://example.com/%d.jpg", i)}
	}
	return list
}

func TestLoraCreateUniqueness(t *testing.T) {
	s := NewLoraStore()

	created, err := s.Create(newLora("lora_1", "Foo", "foostyle"))
	require.NoError(t, err)
	assert.Equal(t, types.LoraStatusCreated, created.Status)
	assert.Equal(t, types.LoraMinImages, created.MinImages)
	assert.Equal(t, types.LoraMaxImages, created.MaxImages)

	_, err = s.Create(newLora("lora_2", "foo", "other"))
	assert.ErrorIs(t, err, ErrNameTaken)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = s.Create(newLora("lora_3", "Bar", "FOOSTYLE"))
	assert.ErrorIs(t, err, ErrTriggerTaken)
}

func TestLoraConcurrentCreateSameName(t *testing.T) {
	s := NewLoraStore()

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Create(newLora(fmt.Sprintf("lora_%d", i), "Brand", fmt.Sprintf("trigger%d", i)))
			if err == nil {
				successes.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrNameTaken)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Len(t, s.List(LoraFilter{}), 1)
}

func TestLoraUploadBoundaries(t *testing.T) {
	s := NewLoraStore()
	_, err := s.Create(newLora("lora_1", "Foo", "foo"))
	require.NoError(t, err)

	l, err := s.AppendImages("lora_1", images(9))
	require.NoError(t, err)
	assert.Equal(t, types.LoraStatusUploading, l.Status)

	_, err = s.StartTraining("lora_1")
	var limitErr *LimitError
	require.ErrorAs(t, err, &limitErr)
	assert.ErrorIs(t, err, ErrInsufficientImages)
	assert.Equal(t, 9, limitErr.Current)

	l, err = s.AppendImages("lora_1", images(1))
	require.NoError(t, err)
	assert.Equal(t, types.LoraStatusReadyToTrain, l.Status)
	assert.Len(t, l.Images, 10)

	l, err = s.StartTraining("lora_1")
	require.NoError(t, err)
	assert.Equal(t, types.LoraStatusTraining, l.Status)
	assert.NotNil(t, l.TrainingStartedAt)
}

func TestLoraUploadRejectsOverflowWithoutPartialApply(t *testing.T) {
	s := NewLoraStore()
	_, err := s.Create(newLora("lora_1", "Foo", "foo"))
	require.NoError(t, err)
	_, err = s.AppendImages("lora_1", images(95))
	require.NoError(t, err)

	_, err = s.AppendImages("lora_1", images(6))
	var limitErr *LimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 95, limitErr.Current)
	assert.Equal(t, 6, limitErr.Adding)

	l, err := s.Get("lora_1")
	require.NoError(t, err)
	assert.Len(t, l.Images, 95)
}

func TestLoraTrainingCompletionAndActivation(t *testing.T) {
	s := NewLoraStore(WithClock(fixedClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))))
	_, err := s.Create(newLora("lora_1", "Foo", "foo"))
	require.NoError(t, err)

	_, _, err = s.SetActive("lora_1", true)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.AppendImages("lora_1", images(10))
	require.NoError(t, err)
	_, err = s.StartTraining("lora_1")
	require.NoError(t, err)

	_, err = s.AppendImages("lora_1", images(1))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.Delete("lora_1", false)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	l, err := s.TrainingProgress("lora_1", 500)
	require.NoError(t, err)
	assert.Equal(t, 50.0, l.Progress)

	l, err = s.CompleteTraining("lora_1", "https://storage.example.com/loras/lora_1/weights.safetensors")
	require.NoError(t, err)
	assert.Equal(t, types.LoraStatusCompleted, l.Status)
	assert.Equal(t, 100.0, l.Progress)
	assert.Equal(t, 1000, l.CurrentStep)

	_, err = s.StartTraining("lora_1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	before, after, err := s.SetActive("lora_1", true)
	require.NoError(t, err)
	assert.False(t, before.IsActive)
	assert.True(t, after.IsActive)

	_, err = s.Delete("lora_1", true)
	assert.ErrorIs(t, err, ErrActive)

	_, _, err = s.SetActive("lora_1", false)
	require.NoError(t, err)
	deleted, err := s.Delete("lora_1", false)
	require.NoError(t, err)
	assert.Equal(t, "Foo", deleted.Name)

	_, err = s.Get("lora_1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoraFailedTrainingCanRetry(t *testing.T) {
	s := NewLoraStore()
	_, err := s.Create(newLora("lora_1", "Foo", "foo"))
	require.NoError(t, err)
	_, err = s.AppendImages("lora_1", images(10))
	require.NoError(t, err)
	_, err = s.StartTraining("lora_1")
	require.NoError(t, err)

	l, err := s.FailTraining("lora_1", "gpu lost")
	require.NoError(t, err)
	assert.Equal(t, types.LoraStatusFailed, l.Status)

	l, err = s.StartTraining("lora_1")
	require.NoError(t, err)
	assert.Nil(t, l.ErrorMessage)
}

func TestLoraForceDeleteDuringTraining(t *testing.T) {
	s := NewLoraStore()
	_, err := s.Create(newLora("lora_1", "Foo", "foo"))
	require.NoError(t, err)
	_, err = s.AppendImages("lora_1", images(10))
	require.NoError(t, err)
	_, err = s.StartTraining("lora_1")
	require.NoError(t, err)

	_, err = s.Delete("lora_1", true)
	require.NoError(t, err)

	_, err = s.CompleteTraining("lora_1", "x")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoraListFilters(t *testing.T) {
	s := NewLoraStore()
	a := newLora("lora_a", "A", "aa")
	b := newLora("lora_b", "B", "bb")
	b.BaseModel = types.BaseModelSDXL
	b.CreatedAt = a.CreatedAt.Add(time.Second)
	_, err := s.Create(a)
	require.NoError(t, err)
	_, err = s.Create(b)
	require.NoError(t, err)

	all := s.List(LoraFilter{})
	require.Len(t, all, 2)
	assert.Equal(t, "lora_b", all[0].ID)

	sdxl := types.BaseModelSDXL
	created := types.LoraStatusCreated
	filtered := s.List(LoraFilter{BaseModel: &sdxl, Status: &created})
	require.Len(t, filtered, 1)
	assert.Equal(t, "lora_b", filtered[0].ID)

	assert.Empty(t, s.List(LoraFilter{BaseModel: &sdxl, ActiveOnly: true}))
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := NewKeyedMutex()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("same")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, k.size())
}
