package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cozy-creator/brandgen/internal/db/drivers"
	"github.com/cozy-creator/brandgen/internal/db/models"
	"github.com/cozy-creator/brandgen/internal/db/repository"
	"github.com/cozy-creator/brandgen/internal/result"
	"github.com/cozy-creator/brandgen/internal/store"
	"github.com/cozy-creator/brandgen/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu   sync.Mutex
	reqs []types.GenerationRequest
	err  error
}

func (p *recordingPublisher) Enqueue(_ context.Context, req types.GenerationRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.reqs = append(p.reqs, req)
	return nil
}

type fixture struct {
	reg *Registry
	svc *Service
	pub *recordingPublisher
	ctx context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	driver, err := drivers.NewSQLiteDriver(context.Background(), "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { driver.Close() })

	db := driver.GetDB()
	schema := repository.NewSchema(db)
	pub := &recordingPublisher{}
	reg, svc := New(Deps{
		Jobs:      store.NewJobStore(),
		Loras:     store.NewLoraStore(),
		History:   repository.NewHistoryRepository(db, schema),
		Favorites: repository.NewFavoriteRepository(db, schema),
		Publisher: pub,
		TempDir:   t.TempDir(),
	})

	return &fixture{reg: reg, svc: svc, pub: pub, ctx: WithUserID(context.Background(), "u1")}
}

func (f *fixture) exec(t *testing.T, name string, input any) *result.Result {
	t.Helper()
	res := f.reg.ExecuteValue(f.ctx, name, input)
	require.NotNil(t, res)
	return res
}

func (f *fixture) ok(t *testing.T, name string, input any) *result.Result {
	t.Helper()
	res := f.exec(t, name, input)
	require.True(t, res.Success, "%s failed: %+v", name, res.Error)
	return res
}

func assertCode(t *testing.T, res *result.Result, code result.Code) {
	t.Helper()
	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, code, res.Error.Code)
	assert.Nil(t, res.Data)
}

func data[T any](t *testing.T, res *result.Result) T {
	t.Helper()
	out, ok := res.Data.(T)
	require.True(t, ok, "unexpected data type %T", res.Data)
	return out
}

func TestGenerateStatusCancelScenario(t *testing.T) {
	f := newFixture(t)

	res := f.ok(t, "asset.generate", map[string]any{
		"prompt": "a cloud", "asset_type": "product", "model": "hidream", "quality": "standard", "count": 2,
	})
	gen := data[GenerateOutput](t, res)
	assert.Equal(t, types.JobStatusQueued, gen.Job.Status)
	assert.Equal(t, 2, gen.Job.Count)
	assert.Equal(t, 40, gen.EstimatedSeconds)
	assert.Equal(t, "Started generation of 2 product images using HiDream-I1", *res.Reasoning)
	assert.Contains(t, res.Suggestions, "Try 'premium' asset type for marketing-grade quality")
	require.Len(t, f.pub.reqs, 1)
	assert.Equal(t, types.GenerationRequest{JobID: gen.Job.ID, UserID: "u1"}, f.pub.reqs[0])

	res = f.ok(t, "job.status", map[string]any{"job_id": gen.Job.ID})
	assert.Equal(t, types.JobStatusQueued, data[JobOutput](t, res).Job.Status)
	assert.Equal(t, "Job is queued, waiting to start", *res.Reasoning)

	res = f.ok(t, "job.cancel", map[string]any{"job_id": gen.Job.ID})
	cancelled := data[JobOutput](t, res).Job
	assert.Equal(t, types.JobStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CompletedAt)
	assert.Equal(t, "Job cancelled (was 0% complete)", *res.Reasoning)

	assertCode(t, f.exec(t, "job.cancel", map[string]any{"job_id": gen.Job.ID}), result.CodeJobAlreadyCancel)

	job, err := f.svc.Jobs().Get(gen.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusCancelled, job.Status)
}

func TestGenerateRejections(t *testing.T) {
	f := newFixture(t)

	assertCode(t, f.exec(t, "asset.generate", map[string]any{"prompt": ""}), result.CodePromptEmpty)
	assertCode(t, f.exec(t, "asset.generate", map[string]any{"prompt": "   "}), result.CodePromptEmpty)

	res := f.exec(t, "asset.generate", map[string]any{"prompt": "a cloud", "model": "sd35"})
	assertCode(t, res, result.CodeModelUnavailable)
	assert.Equal(t, "Model 'sd35' is not currently available", res.Error.Message)

	long := make([]byte, 501)
	for i := range long {
		long[i] = 'a'
	}
	assertCode(t, f.exec(t, "asset.generate", map[string]any{"prompt": string(long)}), result.CodePromptTooLong)

	assert.Empty(t, f.svc.Jobs().List(nil))
	assert.Empty(t, f.pub.reqs)
}

func TestGenerateWarningsAndQueueFailure(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("queue full")

	res := f.ok(t, "asset.generate", map[string]any{"prompt": "a cloud", "model": "flux", "quality": "draft", "asset_type": "icons"})
	codes := make([]string, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		codes = append(codes, w.Code)
	}
	assert.ElementsMatch(t, []string{"NON_COMMERCIAL", "QUEUE_UNAVAILABLE"}, codes)
	assert.Equal(t, []string{"Use 'standard' quality for better results"}, res.Suggestions)

	gen := data[GenerateOutput](t, res)
	job, err := f.svc.Jobs().Get(gen.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusQueued, job.Status)
}

func TestInputValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		command string
		input   string
		code    result.Code
	}{
		{"unknown enum", "asset.generate", `{"prompt":"x","asset_type":"poster"}`, result.CodeValidationError},
		{"count too high", "asset.generate", `{"prompt":"x","count":5}`, result.CodeValidationError},
		{"wrong type", "asset.generate", `{"prompt":"x","count":"two"}`, result.CodeValidationError},
		{"missing job id", "job.status", `{}`, result.CodeValidationError},
		{"limit out of range", "job.list", `{"limit":0}`, result.CodeValidationError},
		{"malformed json", "job.list", `{"limit":`, result.CodeInvalidJSON},
		{"not an object", "job.list", `[1,2]`, result.CodeInvalidJSON},
		{"short trigger", "lora.create", `{"name":"x","trigger_word":"a"}`, result.CodeValidationError},
		{"learning rate bound", "lora.create", `{"name":"x","trigger_word":"ab","learning_rate":1}`, result.CodeValidationError},
		{"missing image index", "favorites.add", `{"job_id":"j1","image_url":"https://x"}`, result.CodeValidationError},
		{"bad upscale factor", "quality.upscale", `{"image_url":"https://x","scale":3}`, result.CodeValidationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertCode(t, f.reg.Execute(f.ctx, tt.command, []byte(tt.input)), tt.code)
		})
	}
}

func TestValidationDetailsUseJSONNames(t *testing.T) {
	f := newFixture(t)

	res := f.reg.Execute(f.ctx, "job.list", []byte(`{"limit":500}`))
	assertCode(t, res, result.CodeValidationError)
	details, ok := res.Error.Details.([]FieldError)
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, "limit", details[0].Field)
	assert.Equal(t, "max", details[0].Rule)
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)

	res := f.reg.Execute(f.ctx, "asset.destroy", nil)
	assertCode(t, res, result.CodeCommandNotFound)
	assert.Equal(t, "Unknown command 'asset.destroy'", res.Error.Message)
}

func TestPanicsBecomeInternalErrors(t *testing.T) {
	reg := NewRegistry(nil)
	register(reg, "test.panic", "panics", func() emptyInput { return emptyInput{} },
		func(context.Context, *emptyInput) *result.Result { panic("boom") })

	res := reg.Execute(context.Background(), "test.panic", nil)
	assertCode(t, res, result.CodeInternalError)
	assert.Equal(t, "An internal error occurred", res.Error.Message)
	assert.Equal(t, "panic: boom", res.Error.Details)
}

func TestJobList(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		f.ok(t, "asset.generate", map[string]any{"prompt": fmt.Sprintf("p%d", i)})
	}

	res := f.ok(t, "job.list", map[string]any{"limit": 2})
	list := data[JobListOutput](t, res)
	assert.Len(t, list.Jobs, 2)
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, "Found 3 jobs (showing first 2)", *res.Reasoning)

	res = f.ok(t, "job.list", map[string]any{"status_filter": "complete"})
	assert.Equal(t, 0, data[JobListOutput](t, res).Total)
	assert.Equal(t, "Found 0 complete jobs", *res.Reasoning)
}

func TestJobStatusReasoning(t *testing.T) {
	f := newFixture(t)
	res := f.ok(t, "asset.generate", map[string]any{"prompt": "a cloud"})
	id := data[GenerateOutput](t, res).Job.ID

	_, err := f.svc.Jobs().Start(id)
	require.NoError(t, err)
	_, err = f.svc.Jobs().Progress(id, 42.4)
	require.NoError(t, err)
	res = f.ok(t, "job.status", map[string]any{"job_id": id})
	assert.Equal(t, "Job is processing (42% complete)", *res.Reasoning)

	_, err = f.svc.Jobs().Fail(id, "backend down")
	require.NoError(t, err)
	res = f.ok(t, "job.status", map[string]any{"job_id": id})
	assert.Equal(t, "Job failed: backend down", *res.Reasoning)
	assertCode(t, f.exec(t, "job.cancel", map[string]any{"job_id": id}), result.CodeJobAlreadyFailed)

	res = f.exec(t, "job.status", map[string]any{"job_id": "missing"})
	assertCode(t, res, result.CodeJobNotFound)
	assert.Equal(t, "Job 'missing' not found", res.Error.Message)
}

func TestCancelCompletedJob(t *testing.T) {
	f := newFixture(t)
	id := data[GenerateOutput](t, f.ok(t, "asset.generate", map[string]any{"prompt": "a cloud"})).Job.ID

	_, err := f.svc.Jobs().Start(id)
	require.NoError(t, err)
	_, err = f.svc.Jobs().Complete(id, []types.GeneratedImage{{Index: 0, URL: "https://img/0.png"}})
	require.NoError(t, err)

	assertCode(t, f.exec(t, "job.cancel", map[string]any{"job_id": id}), result.CodeJobAlreadyDone)
}

func createLora(t *testing.T, f *fixture, name, trigger string) *types.Lora {
	t.Helper()
	res := f.ok(t, "lora.create", map[string]any{"name": name, "trigger_word": trigger})
	return data[LoraOutput](t, res).Lora
}

func uploadImages(t *testing.T, f *fixture, id string, n int) *result.Result {
	t.Helper()
	images := make([]map[string]any, n)
	for i := range images {
		images[i] = map[string]any{"url": fmt.Sprintf("https://img.example/%d.jpg", i)}
	}
	return f.exec(t, "lora.upload-images", map[string]any{"lora_id": id, "images": images})
}

func TestLoraCreateUniqueness(t *testing.T) {
	f := newFixture(t)

	res := f.ok(t, "lora.create", map[string]any{"name": "Foo", "trigger_word": "foostyle"})
	lora := data[LoraOutput](t, res).Lora
	assert.Equal(t, types.LoraStatusCreated, lora.Status)
	assert.Equal(t, types.BaseModelFlux, lora.BaseModel)
	assert.Equal(t, 1000, lora.Steps)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "FLUX_NON_COMMERCIAL", res.Warnings[0].Code)

	res = f.exec(t, "lora.create", map[string]any{"name": "foo", "trigger_word": "other"})
	assertCode(t, res, result.CodeLoraAlreadyExists)
	assert.Equal(t, "A LoRA named 'foo' already exists", res.Error.Message)

	res = f.exec(t, "lora.create", map[string]any{"name": "Bar", "trigger_word": "FOOSTYLE", "base_model": "sdxl"})
	assertCode(t, res, result.CodeLoraAlreadyExists)
	assert.Equal(t, "Trigger word 'FOOSTYLE' is already in use", res.Error.Message)
}

func TestConcurrentLoraCreatesYieldOneSuccess(t *testing.T) {
	f := newFixture(t)

	const n = 16
	var wg sync.WaitGroup
	results := make([]*result.Result, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.reg.ExecuteValue(f.ctx, "lora.create", map[string]any{
				"name": "Same", "trigger_word": fmt.Sprintf("trigger%d", i),
			})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, res := range results {
		if res.Success {
			successes++
		} else {
			assert.Equal(t, result.CodeLoraAlreadyExists, res.Code())
		}
	}
	assert.Equal(t, 1, successes)
}

func TestLoraUploadBoundary(t *testing.T) {
	f := newFixture(t)
	lora := createLora(t, f, "Brand", "brandstyle")

	res := uploadImages(t, f, lora.ID, 9)
	require.True(t, res.Success)
	up := data[UploadImagesOutput](t, res)
	assert.Equal(t, types.LoraStatusUploading, up.Lora.Status)
	assert.Equal(t, 9, up.UploadedCount)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "INSUFFICIENT_IMAGES", res.Warnings[0].Code)
	assert.Equal(t, []string{"Upload 1 more images"}, res.Suggestions)
	assert.Equal(t, "image_0.jpg", up.Lora.Images[0].Filename)

	res = uploadImages(t, f, lora.ID, 1)
	require.True(t, res.Success)
	up = data[UploadImagesOutput](t, res)
	assert.Equal(t, types.LoraStatusReadyToTrain, up.Lora.Status)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "LOW_IMAGE_COUNT", res.Warnings[0].Code)
	assert.Equal(t, "Uploaded 1 images. Total: 10/100. Status: ready_to_train", *res.Reasoning)
}

func TestLoraUploadRejections(t *testing.T) {
	f := newFixture(t)
	lora := createLora(t, f, "Brand", "brandstyle")

	assertCode(t, uploadImages(t, f, "lora_missing", 1), result.CodeLoraNotFound)

	res := f.exec(t, "lora.upload-images", map[string]any{
		"lora_id": lora.ID,
		"images":  []map[string]any{{"url": "https://img/0.jpg"}, {"caption": "no url"}},
	})
	assertCode(t, res, result.CodeInvalidTrainingData)

	res = uploadImages(t, f, lora.ID, 101)
	assertCode(t, res, result.CodeTooManyImages)
	assert.Equal(t, "Would exceed maximum of 100 images (current: 0, uploading: 101)", res.Error.Message)

	current, err := f.svc.Loras().Get(lora.ID)
	require.NoError(t, err)
	assert.Empty(t, current.Images)
	assert.Equal(t, types.LoraStatusCreated, current.Status)
}

func TestLoraTrainBoundary(t *testing.T) {
	f := newFixture(t)
	lora := createLora(t, f, "Brand", "brandstyle")

	require.True(t, uploadImages(t, f, lora.ID, 9).Success)
	res := f.exec(t, "lora.train", map[string]any{"lora_id": lora.ID})
	assertCode(t, res, result.CodeInsufficientImages)
	assert.Equal(t, "Need at least 10 images, have 9", res.Error.Message)

	require.True(t, uploadImages(t, f, lora.ID, 1).Success)
	res = f.ok(t, "lora.train", map[string]any{"lora_id": lora.ID})
	trained := data[LoraOutput](t, res).Lora
	assert.Equal(t, types.LoraStatusCompleted, trained.Status)
	assert.Equal(t, 100.0, trained.Progress)
	assert.Equal(t, trained.Steps, trained.CurrentStep)
	require.NotNil(t, trained.LoraURL)
	assert.Equal(t, fmt.Sprintf("https://storage.brandgen.dev/loras/%s/weights.safetensors", lora.ID), *trained.LoraURL)

	res = f.exec(t, "lora.train", map[string]any{"lora_id": lora.ID})
	assertCode(t, res, result.CodeTrainingInProgress)
	assert.Equal(t, "Training has already completed", res.Error.Message)

	assertCode(t, uploadImages(t, f, lora.ID, 1), result.CodeTrainingInProgress)
}

type parkedTrainer struct {
	submitted []*types.Lora
}

func (p *parkedTrainer) Submit(l *types.Lora) error {
	p.submitted = append(p.submitted, l)
	return nil
}

func (p *parkedTrainer) Stop() {}

func TestLoraTrainAsynchronously(t *testing.T) {
	trainer := &parkedTrainer{}
	loras := store.NewLoraStore()
	reg, _ := New(Deps{Loras: loras, Trainer: trainer})
	ctx := context.Background()

	res := reg.ExecuteValue(ctx, "lora.create", map[string]any{"name": "Async", "trigger_word": "asyncstyle"})
	require.True(t, res.Success)
	id := res.Data.(LoraOutput).Lora.ID

	images := make([]map[string]any, 10)
	for i := range images {
		images[i] = map[string]any{"url": fmt.Sprintf("https://img/%d.jpg", i)}
	}
	require.True(t, reg.ExecuteValue(ctx, "lora.upload-images", map[string]any{"lora_id": id, "images": images}).Success)

	res = reg.ExecuteValue(ctx, "lora.train", map[string]any{"lora_id": id})
	require.True(t, res.Success)
	assert.Equal(t, types.LoraStatusTraining, res.Data.(LoraOutput).Lora.Status)
	require.Len(t, trainer.submitted, 1)

	res = reg.ExecuteValue(ctx, "lora.train", map[string]any{"lora_id": id})
	assertCode(t, res, result.CodeTrainingInProgress)
	assert.Equal(t, "Training is already in progress", res.Error.Message)

	res = reg.ExecuteValue(ctx, "lora.delete", map[string]any{"lora_id": id})
	assertCode(t, res, result.CodeTrainingInProgress)

	res = reg.ExecuteValue(ctx, "lora.delete", map[string]any{"lora_id": id, "force": true})
	require.True(t, res.Success)
	assert.Equal(t, LoraDeleteOutput{DeletedID: id, Name: "Async"}, res.Data)
}

func TestLoraActivateAndDelete(t *testing.T) {
	f := newFixture(t)
	lora := createLora(t, f, "Brand", "brandstyle")

	res := f.exec(t, "lora.activate", map[string]any{"lora_id": lora.ID})
	assertCode(t, res, result.CodeLoraNotReady)
	assert.Equal(t, "Cannot activate LoRA in 'created' state", res.Error.Message)

	require.True(t, uploadImages(t, f, lora.ID, 10).Success)
	f.ok(t, "lora.train", map[string]any{"lora_id": lora.ID})

	res = f.ok(t, "lora.activate", map[string]any{"lora_id": lora.ID})
	assert.True(t, data[LoraOutput](t, res).Lora.IsActive)
	assert.Equal(t, "LoRA 'Brand' changed from inactive to active. Use trigger word 'brandstyle' in prompts.", *res.Reasoning)

	res = f.exec(t, "lora.delete", map[string]any{"lora_id": lora.ID})
	assertCode(t, res, result.CodeCannotDeleteActive)

	res = f.ok(t, "lora.activate", map[string]any{"lora_id": lora.ID, "active": false})
	assert.False(t, data[LoraOutput](t, res).Lora.IsActive)

	f.ok(t, "lora.delete", map[string]any{"lora_id": lora.ID})
	assertCode(t, f.exec(t, "lora.status", map[string]any{"lora_id": lora.ID}), result.CodeLoraNotFound)
}

func TestLoraListFilters(t *testing.T) {
	f := newFixture(t)
	createLora(t, f, "One", "onestyle")
	f.ok(t, "lora.create", map[string]any{"name": "Two", "trigger_word": "twostyle", "base_model": "sdxl"})

	res := f.ok(t, "lora.list", map[string]any{})
	list := data[LoraListOutput](t, res)
	require.Len(t, list.Loras, 2)
	assert.Equal(t, "Two", list.Loras[0].Name)
	assert.Equal(t, "Found 2 LoRAs", *res.Reasoning)

	res = f.ok(t, "lora.list", map[string]any{"base_model": "sdxl", "status": "created"})
	assert.Equal(t, 1, data[LoraListOutput](t, res).Total)
	assert.Equal(t, "Found 1 LoRAs (filters: status=created, base_model=sdxl)", *res.Reasoning)

	res = f.ok(t, "lora.list", map[string]any{"active_only": true})
	assert.Equal(t, 0, data[LoraListOutput](t, res).Total)
}

func TestFavorites(t *testing.T) {
	f := newFixture(t)
	input := map[string]any{"job_id": "j1", "image_index": 0, "image_url": "https://img/0.png"}

	res := f.ok(t, "favorites.add", input)
	fav := data[*models.Favorite](t, res)
	assert.Equal(t, "u1", fav.UserID)
	assert.Equal(t, 0, fav.ImageIndex)

	assertCode(t, f.exec(t, "favorites.add", input), result.CodeFavoriteAlreadyExists)

	res = f.ok(t, "favorites.list", map[string]any{})
	list := data[FavoritesListOutput](t, res)
	assert.Equal(t, 1, list.TotalCount)
	assert.False(t, list.HasMore)

	f.ok(t, "favorites.remove", map[string]any{"job_id": "j1", "image_index": 0})
	assertCode(t, f.exec(t, "favorites.remove", map[string]any{"job_id": "j1", "image_index": 0}), result.CodeFavoriteNotFound)
}

func seedHistory(t *testing.T, f *fixture, userID string, n int) {
	t.Helper()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		_, err := f.svc.history.Save(context.Background(), &models.GenerationRecord{
			JobID:     fmt.Sprintf("%s-job-%02d", userID, i),
			UserID:    userID,
			Prompt:    "a cloud",
			AssetType: "product",
			Images:    []string{"https://img/0.png", "https://img/1.png"},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
}

func TestHistoryPagination(t *testing.T) {
	f := newFixture(t)
	seedHistory(t, f, "u1", 10)

	res := f.ok(t, "history.list", map[string]any{"limit": 3, "offset": 9})
	page := data[HistoryListOutput](t, res)
	assert.Len(t, page.Generations, 1)
	assert.Equal(t, 10, page.TotalCount)
	assert.False(t, page.HasMore)

	res = f.ok(t, "history.list", map[string]any{"limit": 3, "offset": 0})
	page = data[HistoryListOutput](t, res)
	assert.Len(t, page.Generations, 3)
	assert.True(t, page.HasMore)
	assert.Equal(t, "u1-job-09", page.Generations[0].JobID)
	assert.Equal(t, "Retrieved 3 of 10 generations", *res.Reasoning)
}

func TestHistoryOwnership(t *testing.T) {
	f := newFixture(t)
	seedHistory(t, f, "u1", 1)
	seedHistory(t, f, "u2", 1)

	res := f.ok(t, "history.get", map[string]any{"job_id": "u1-job-00"})
	assert.Equal(t, "Retrieved generation with 2 images", *res.Reasoning)

	assertCode(t, f.exec(t, "history.get", map[string]any{"job_id": "u2-job-00"}), result.CodeHistoryNotFound)
	assertCode(t, f.exec(t, "history.delete", map[string]any{"job_id": "u2-job-00"}), result.CodeHistoryNotFound)

	res = f.ok(t, "history.delete", map[string]any{"job_id": "u1-job-00"})
	assert.Equal(t, HistoryDeleteOutput{Deleted: true, JobID: "u1-job-00"}, res.Data)
}

func TestHistoryStatsAndClear(t *testing.T) {
	f := newFixture(t)
	seedHistory(t, f, "u1", 3)
	f.ok(t, "favorites.add", map[string]any{"job_id": "u1-job-00", "image_index": 1, "image_url": "https://img/1.png"})

	res := f.ok(t, "history.stats", nil)
	stats := data[*repository.Stats](t, res)
	assert.Equal(t, 3, stats.TotalGenerations)
	assert.Equal(t, 6, stats.TotalImages)
	assert.Equal(t, 1, stats.TotalFavorites)
	require.NotNil(t, stats.MostUsedAssetType)
	assert.Equal(t, "product", *stats.MostUsedAssetType)

	res = f.ok(t, "history.clear", nil)
	cleared := data[*repository.ClearResult](t, res)
	assert.Equal(t, 3, cleared.DeletedGenerations)
	assert.Equal(t, 1, cleared.DeletedFavorites)
}

func TestHistoryWithoutDurableStore(t *testing.T) {
	reg, _ := New(Deps{})
	assertCode(t, reg.Execute(context.Background(), "history.list", nil), result.CodeInternalError)
}

func TestModelCommands(t *testing.T) {
	f := newFixture(t)

	res := f.ok(t, "model.list", nil)
	assert.Len(t, data[ModelListOutput](t, res).Models, 3)
	assert.Equal(t, "3 models (2 available)", *res.Reasoning)
	assert.Len(t, res.Suggestions, 2)

	res = f.ok(t, "model.info", map[string]any{"model_id": "flux"})
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "NON_COMMERCIAL", res.Warnings[0].Code)

	res = f.ok(t, "model.info", map[string]any{"model_id": "sd35"})
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "UNAVAILABLE", res.Warnings[0].Code)

	res = f.exec(t, "model.info", map[string]any{"model_id": "dalle"})
	assertCode(t, res, result.CodeModelNotFound)
	assert.Equal(t, "Model 'dalle' not found", res.Error.Message)
}

func TestCatalogCommands(t *testing.T) {
	f := newFixture(t)

	res := f.ok(t, "asset.types", nil)
	assert.Len(t, data[AssetTypesOutput](t, res).Types, 4)
	assert.Equal(t, "4 asset types available", *res.Reasoning)

	res = f.ok(t, "quality.presets", nil)
	assert.Equal(t, 3, data[QualityPresetsOutput](t, res).Total)
	assert.Equal(t, "Found 3 quality presets: draft, standard, high", *res.Reasoning)
}

func TestQualityStubs(t *testing.T) {
	f := newFixture(t)

	res := f.exec(t, "quality.refine", map[string]any{"image_url": "ftp://img/0.png"})
	assertCode(t, res, result.CodeImageURLInvalid)

	res = f.ok(t, "quality.upscale", map[string]any{"image_url": "https://img/0.png", "scale": 4, "model": "supir"})
	up := data[UpscaleOutput](t, res).Upscaled
	assert.Equal(t, 4096, up.Width)
	assert.Equal(t, 4096, up.Height)
	assert.Contains(t, up.URL, "file://")
	assert.Contains(t, up.URL, "/brandgen/upscaled/upscaled_4x_supir_")

	res = f.ok(t, "quality.variations", map[string]any{"source_image": "https://img/0.png", "count": 8})
	vars := data[VariationsOutput](t, res)
	require.Len(t, vars.Variations, 8)
	for i, v := range vars.Variations {
		assert.Equal(t, i, v.Index)
		assert.GreaterOrEqual(t, v.Seed, int64(1))
		assert.LessOrEqual(t, v.Seed, int64(maxVariationSeed))
	}
	assertCode(t, f.exec(t, "quality.variations", map[string]any{"source_image": "img.png"}), result.CodeImageURLInvalid)

	res = f.ok(t, "quality.post-process", map[string]any{"image_url": "https://img/0.png", "sharpen": true, "format": "webp"})
	processed := data[PostProcessOutput](t, res).Processed
	assert.True(t, processed.Sharpened)
	assert.Contains(t, processed.URL, "_sharp.webp")
	assert.Equal(t, "Applied sharpening; output format: webp", *res.Reasoning)

	res = f.ok(t, "quality.refine", map[string]any{"image_url": "https://img/0.png"})
	refined := data[RefineOutput](t, res).Refined
	assert.Equal(t, 0.3, refined.DenoiseStrength)
	assert.Equal(t, 20, refined.Steps)
}

func TestSchemaAndListing(t *testing.T) {
	f := newFixture(t)

	infos := f.reg.List()
	require.NotEmpty(t, infos)
	assert.Equal(t, "asset.generate", infos[0].Name)
	assert.Equal(t, "asset", infos[0].Group)
	assert.True(t, f.reg.Has("quality.post-process"))

	schema, err := f.reg.Schema("asset.generate")
	require.NoError(t, err)
	raw, err := json.Marshal(schema)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "object", doc["type"])
	assert.Equal(t, []any{"prompt"}, doc["required"])
	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "asset_type")

	_, err = f.reg.Schema("nope")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestUserIDDefaultsToAnonymous(t *testing.T) {
	assert.Equal(t, AnonymousUser, UserID(context.Background()))
	assert.Equal(t, AnonymousUser, UserID(WithUserID(context.Background(), "")))
	assert.Equal(t, "u9", UserID(WithUserID(context.Background(), "u9")))
}
