package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cozy-creator/brandgen/internal/result"
	"github.com/cozy-creator/brandgen/internal/store"
	"github.com/cozy-creator/brandgen/internal/types"

	"go.uber.org/zap"
)

type CreateLoraInput struct {
	Name         string          `json:"name" validate:"required,min=1,max=100" jsonschema:"description=Human-readable name for the LoRA,minLength=1,maxLength=100"`
	TriggerWord  string          `json:"trigger_word" validate:"required,min=2,max=50" jsonschema:"description=Unique trigger word or phrase that activates this style,minLength=2,maxLength=50"`
	BaseModel    types.BaseModel `json:"base_model,omitempty" validate:"oneof=flux sdxl" jsonschema:"description=Base model to fine-tune,enum=flux,enum=sdxl,default=flux"`
	Description  *string         `json:"description,omitempty" validate:"omitempty,max=500" jsonschema:"description=What this LoRA captures,maxLength=500"`
	Steps        int             `json:"steps,omitempty" validate:"min=100,max=5000" jsonschema:"description=Number of training steps,minimum=100,maximum=5000,default=1000"`
	LearningRate float64         `json:"learning_rate,omitempty" validate:"gt=0,lt=1" jsonschema:"description=Learning rate for training,exclusiveMinimum=0,exclusiveMaximum=1,default=0.0001"`
}

type UploadImage struct {
	URL      string  `json:"url" jsonschema:"description=Image URL"`
	Filename string  `json:"filename,omitempty"`
	Caption  *string `json:"caption,omitempty"`
}

type UploadImagesInput struct {
	LoraID string        `json:"lora_id" validate:"required" jsonschema:"description=ID of the LoRA project"`
	Images []UploadImage `json:"images" validate:"required,min=1" jsonschema:"description=Images with url and optional filename and caption,minItems=1"`
}

type UploadImagesOutput struct {
	Lora          *types.Lora `json:"lora"`
	UploadedCount int         `json:"uploaded_count"`
}

type LoraIDInput struct {
	LoraID string `json:"lora_id" validate:"required" jsonschema:"description=ID of the LoRA project"`
}

type LoraOutput struct {
	Lora *types.Lora `json:"lora"`
}

type LoraListInput struct {
	Status     *types.LoraStatus `json:"status,omitempty" validate:"omitempty,oneof=created uploading ready_to_train training completed failed" jsonschema:"description=Filter by status,enum=created,enum=uploading,enum=ready_to_train,enum=training,enum=completed,enum=failed"`
	BaseModel  *types.BaseModel  `json:"base_model,omitempty" validate:"omitempty,oneof=flux sdxl" jsonschema:"description=Filter by base model,enum=flux,enum=sdxl"`
	ActiveOnly bool              `json:"active_only,omitempty" jsonschema:"description=Only show active LoRAs,default=false"`
}

type LoraListOutput struct {
	Loras []types.LoraInfo `json:"loras"`
	Total int              `json:"total"`
}

type LoraActivateInput struct {
	LoraID string `json:"lora_id" validate:"required" jsonschema:"description=ID of the LoRA to activate or deactivate"`
	Active *bool  `json:"active,omitempty" validate:"required" jsonschema:"description=Whether to activate or deactivate,default=true"`
}

type LoraDeleteInput struct {
	LoraID string `json:"lora_id" validate:"required" jsonschema:"description=ID of the LoRA to delete"`
	Force  bool   `json:"force,omitempty" jsonschema:"description=Delete even while training is in progress,default=false"`
}

type LoraDeleteOutput struct {
	DeletedID string `json:"deleted_id"`
	Name      string `json:"name"`
}

func (s *Service) registerLora(r *Registry) {
	register(r, "lora.create", "Create a new LoRA training project",
		func() CreateLoraInput {
			return CreateLoraInput{BaseModel: types.BaseModelFlux, Steps: 1000, LearningRate: 1e-4}
		}, s.CreateLora)
	register(r, "lora.upload-images", "Upload training images to a LoRA project",
		func() UploadImagesInput { return UploadImagesInput{} }, s.UploadImages)
	register(r, "lora.train", "Start training a LoRA project",
		func() LoraIDInput { return LoraIDInput{} }, s.TrainLora)
	register(r, "lora.status", "Get the full status of a LoRA project",
		func() LoraIDInput { return LoraIDInput{} }, s.LoraStatus)
	register(r, "lora.list", "List LoRA projects",
		func() LoraListInput { return LoraListInput{} }, s.ListLoras)
	register(r, "lora.activate", "Activate or deactivate a trained LoRA",
		func() LoraActivateInput { return LoraActivateInput{Active: ptr(true)} }, s.ActivateLora)
	register(r, "lora.delete", "Delete a LoRA project",
		func() LoraDeleteInput { return LoraDeleteInput{} }, s.DeleteLora)
}

func loraNotFound(id string) *result.Result {
	return result.Fail(result.CodeLoraNotFound,
		fmt.Sprintf("LoRA '%s' not found", id),
		"Use lora.list to see available LoRAs",
	)
}

func (s *Service) CreateLora(ctx context.Context, in *CreateLoraInput) *result.Result {
	lora, err := s.loras.Create(&types.Lora{
		ID:           newLoraID(),
		Name:         in.Name,
		Description:  in.Description,
		TriggerWord:  in.TriggerWord,
		BaseModel:    in.BaseModel,
		Steps:        in.Steps,
		LearningRate: in.LearningRate,
		CreatedAt:    s.loras.Now(),
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNameTaken):
			return result.Fail(result.CodeLoraAlreadyExists,
				fmt.Sprintf("A LoRA named '%s' already exists", in.Name),
				"Use a different name or delete the existing LoRA",
			)
		case errors.Is(err, store.ErrTriggerTaken):
			return result.Fail(result.CodeLoraAlreadyExists,
				fmt.Sprintf("Trigger word '%s' is already in use", in.TriggerWord),
				"Use a different trigger word",
			)
		}
		return s.storageFault(ctx, "lora.create", err)
	}

	opts := []result.Option{
		result.WithReasoning("Created LoRA project '%s' with trigger word '%s'. Next: upload %d-%d training images with lora.upload-images.",
			in.Name, in.TriggerWord, lora.MinImages, lora.MaxImages),
		result.WithSuggestions("Upload training images: lora.upload-images"),
	}
	if in.BaseModel.NonCommercial() {
		opts = append(opts, result.WithWarning("FLUX_NON_COMMERCIAL",
			"FLUX base model is non-commercial. Resulting LoRA inherits this license."))
	}

	return result.Success(LoraOutput{Lora: lora}, opts...)
}

// uploadRefusal reports why adding images to l is refused, or nil.
func uploadRefusal(l *types.Lora, adding int) *result.Result {
	if !l.Status.CanUpload() {
		return result.Fail(result.CodeTrainingInProgress,
			fmt.Sprintf("Cannot upload images while LoRA is in '%s' state", l.Status),
			"Wait for training to complete or create a new LoRA",
		)
	}

	current := len(l.Images)
	if total := current + adding; total > l.MaxImages {
		return result.Fail(result.CodeTooManyImages,
			fmt.Sprintf("Would exceed maximum of %d images (current: %d, uploading: %d)", l.MaxImages, current, adding),
			fmt.Sprintf("Remove %d images from the upload", total-l.MaxImages),
		)
	}
	return nil
}

func (s *Service) UploadImages(ctx context.Context, in *UploadImagesInput) *result.Result {
	lora, err := s.loras.Get(in.LoraID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return loraNotFound(in.LoraID)
		}
		return s.storageFault(ctx, "lora.get", err)
	}
	if res := uploadRefusal(lora, len(in.Images)); res != nil {
		return res
	}

	now := s.loras.Now()
	images := make([]types.TrainingImage, 0, len(in.Images))
	for i, img := range in.Images {
		if strings.TrimSpace(img.URL) == "" {
			return result.Fail(result.CodeInvalidTrainingData,
				"Each image must have a 'url' field",
				"Provide images as [{url: '...', caption: '...'}]",
			)
		}
		filename := img.Filename
		if filename == "" {
			filename = fmt.Sprintf("image_%d.jpg", i)
		}
		images = append(images, types.TrainingImage{
			Filename:   filename,
			URL:        img.URL,
			Caption:    img.Caption,
			UploadedAt: now,
		})
	}

	lora, err = s.loras.AppendImages(in.LoraID, images)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return loraNotFound(in.LoraID)
		}
		if lora != nil {
			if res := uploadRefusal(lora, len(images)); res != nil {
				return res
			}
		}
		return s.storageFault(ctx, "lora.upload", err)
	}

	total := len(lora.Images)
	var opts []result.Option
	switch {
	case total < lora.MinImages:
		opts = append(opts,
			result.WithWarning("INSUFFICIENT_IMAGES", fmt.Sprintf("Need at least %d images, have %d", lora.MinImages, total)),
			result.WithSuggestions(fmt.Sprintf("Upload %d more images", lora.MinImages-total)),
		)
	case total < types.LoraRecommendedImages:
		opts = append(opts,
			result.WithWarning("LOW_IMAGE_COUNT", "20-30 images recommended for best results"),
			result.WithSuggestions("Consider uploading more diverse examples"),
		)
	default:
		opts = append(opts, result.WithSuggestions("Ready to train: use lora.train to start"))
	}
	opts = append(opts, result.WithReasoning("Uploaded %d images. Total: %d/%d. Status: %s",
		len(images), total, lora.MaxImages, lora.Status))

	return result.Success(UploadImagesOutput{Lora: lora, UploadedCount: len(images)}, opts...)
}

// trainRefusal reports why training l cannot start, or nil.
func trainRefusal(l *types.Lora) *result.Result {
	switch {
	case l.Status == types.LoraStatusTraining:
		return result.Fail(result.CodeTrainingInProgress,
			"Training is already in progress",
			"Use lora.status to check progress",
		)
	case l.Status == types.LoraStatusCompleted:
		return result.Fail(result.CodeTrainingInProgress,
			"Training has already completed",
			"Use lora.activate to enable this LoRA for generation",
		)
	case !l.Status.CanTrain():
		return result.Fail(result.CodeTrainingNotStarted,
			fmt.Sprintf("Cannot start training from '%s' state", l.Status),
			"LoRA must be in 'ready_to_train' state",
		)
	case len(l.Images) < l.MinImages:
		return result.Fail(result.CodeInsufficientImages,
			fmt.Sprintf("Need at least %d images, have %d", l.MinImages, len(l.Images)),
			fmt.Sprintf("Upload %d more images first", l.MinImages-len(l.Images)),
		)
	}
	return nil
}

func (s *Service) TrainLora(ctx context.Context, in *LoraIDInput) *result.Result {
	lora, err := s.loras.StartTraining(in.LoraID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return loraNotFound(in.LoraID)
		}
		if lora != nil {
			if res := trainRefusal(lora); res != nil {
				return res
			}
		}
		return s.storageFault(ctx, "lora.train", err)
	}

	if err := s.trainer.Submit(lora); err != nil {
		s.log.Error("failed to submit training", zap.String("lora_id", lora.ID), zap.Error(err))
		if _, ferr := s.loras.FailTraining(lora.ID, err.Error()); ferr != nil && !errors.Is(ferr, store.ErrInvalidTransition) {
			s.log.Error("failed to record training failure", zap.String("lora_id", lora.ID), zap.Error(ferr))
		}
		return result.FromTemplate(result.CodeTrainingFailed, result.WithDetails(err.Error()))
	}

	if current, err := s.loras.Get(lora.ID); err == nil {
		lora = current
	}

	if lora.Status == types.LoraStatusCompleted {
		return result.Success(LoraOutput{Lora: lora},
			result.WithReasoning("Training completed for '%s' using %d images. LoRA is ready to use with trigger word '%s'.",
				lora.Name, len(lora.Images), lora.TriggerWord),
			result.WithSuggestions("Activate for generation: lora.activate", "Test with: asset.generate"),
		)
	}

	return result.Success(LoraOutput{Lora: lora},
		result.WithReasoning("Training started for '%s' using %d images. Status: %s (%.0f%% complete).",
			lora.Name, len(lora.Images), lora.Status, lora.Progress),
		result.WithSuggestions("Check progress: lora.status"),
	)
}

func (s *Service) LoraStatus(ctx context.Context, in *LoraIDInput) *result.Result {
	lora, err := s.loras.Get(in.LoraID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return loraNotFound(in.LoraID)
		}
		return s.storageFault(ctx, "lora.get", err)
	}

	var suggestions []string
	switch {
	case lora.Status == types.LoraStatusCreated:
		suggestions = append(suggestions, "Upload training images: lora.upload-images")
	case lora.Status == types.LoraStatusUploading:
		suggestions = append(suggestions, fmt.Sprintf("Upload %d more images", lora.MinImages-len(lora.Images)))
	case lora.Status == types.LoraStatusReadyToTrain:
		suggestions = append(suggestions, "Start training: lora.train")
	case lora.Status == types.LoraStatusTraining:
		suggestions = append(suggestions, "Training in progress. Check back for updates.")
	case lora.Status == types.LoraStatusCompleted && !lora.IsActive:
		suggestions = append(suggestions, "Activate for generation: lora.activate")
	case lora.Status == types.LoraStatusFailed:
		suggestions = append(suggestions, "Retry training: lora.train")
	}

	active := "Not active"
	if lora.IsActive {
		active = "Active"
	}

	return result.Success(LoraOutput{Lora: lora},
		result.WithReasoning("LoRA '%s' is %s. %d training images. %s for generation.",
			lora.Name, lora.Status, len(lora.Images), active),
		result.WithSuggestions(suggestions...),
	)
}

func (s *Service) ListLoras(ctx context.Context, in *LoraListInput) *result.Result {
	loras := s.loras.List(store.LoraFilter{
		Status:     in.Status,
		BaseModel:  in.BaseModel,
		ActiveOnly: in.ActiveOnly,
	})

	infos := make([]types.LoraInfo, 0, len(loras))
	for _, l := range loras {
		infos = append(infos, l.Info())
	}

	var filters []string
	if in.Status != nil {
		filters = append(filters, "status="+string(*in.Status))
	}
	if in.BaseModel != nil {
		filters = append(filters, "base_model="+string(*in.BaseModel))
	}
	if in.ActiveOnly {
		filters = append(filters, "active_only=true")
	}

	reasoning := fmt.Sprintf("Found %d LoRAs", len(infos))
	if len(filters) > 0 {
		reasoning += fmt.Sprintf(" (filters: %s)", strings.Join(filters, ", "))
	}

	return result.Success(LoraListOutput{Loras: infos, Total: len(infos)}, result.WithReasoning("%s", reasoning))
}

func activeState(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func (s *Service) ActivateLora(ctx context.Context, in *LoraActivateInput) *result.Result {
	active := *in.Active
	before, after, err := s.loras.SetActive(in.LoraID, active)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return loraNotFound(in.LoraID)
		case errors.Is(err, store.ErrInvalidTransition):
			return result.Fail(result.CodeLoraNotReady,
				fmt.Sprintf("Cannot activate LoRA in '%s' state", after.Status),
				"Wait for training to complete (status: completed)",
			)
		}
		return s.storageFault(ctx, "lora.activate", err)
	}

	reasoning := fmt.Sprintf("LoRA '%s' changed from %s to %s. ", after.Name, activeState(before.IsActive), activeState(after.IsActive))
	var opts []result.Option
	if active {
		reasoning += fmt.Sprintf("Use trigger word '%s' in prompts.", after.TriggerWord)
		opts = append(opts, result.WithSuggestions(
			fmt.Sprintf("Generate with: asset.generate --prompt '%s your description'", after.TriggerWord)))
	}
	opts = append(opts, result.WithReasoning("%s", reasoning))

	return result.Success(LoraOutput{Lora: after}, opts...)
}

func (s *Service) DeleteLora(ctx context.Context, in *LoraDeleteInput) *result.Result {
	lora, err := s.loras.Delete(in.LoraID, in.Force)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return loraNotFound(in.LoraID)
		case errors.Is(err, store.ErrActive):
			return result.Fail(result.CodeCannotDeleteActive,
				"Cannot delete an active LoRA",
				"Deactivate first: lora.activate --lora_id ... --active false",
			)
		case errors.Is(err, store.ErrInvalidTransition):
			return result.Fail(result.CodeTrainingInProgress,
				"Cannot delete while training is in progress",
				"Wait for training to complete or use force=true to cancel and delete",
			)
		}
		return s.storageFault(ctx, "lora.delete", err)
	}

	return result.Success(LoraDeleteOutput{DeletedID: lora.ID, Name: lora.Name},
		result.WithReasoning("Deleted LoRA '%s' and all associated training data.", lora.Name))
}
