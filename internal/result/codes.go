package result

type Code string

const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeJobNotFound       Code = "JOB_NOT_FOUND"
	CodeModelNotFound     Code = "MODEL_NOT_FOUND"
	CodeValidationError   Code = "VALIDATION_ERROR"
	CodePromptTooLong     Code = "PROMPT_TOO_LONG"
	CodePromptEmpty       Code = "PROMPT_EMPTY"
	CodeInvalidCount      Code = "INVALID_COUNT"
	CodeJobAlreadyDone    Code = "JOB_ALREADY_COMPLETE"
	CodeJobAlreadyCancel  Code = "JOB_ALREADY_CANCELLED"
	CodeJobAlreadyFailed  Code = "JOB_ALREADY_FAILED"
	CodeModelUnavailable  Code = "MODEL_UNAVAILABLE"
	CodeForbidden         Code = "FORBIDDEN"
	CodeRateLimited       Code = "RATE_LIMITED"
	CodeGenerationFailed  Code = "GENERATION_FAILED"
	CodeGenerationTimeout Code = "GENERATION_TIMEOUT"
	CodeInternalError     Code = "INTERNAL_ERROR"
	CodeServiceUnavail    Code = "SERVICE_UNAVAILABLE"

	CodeLoraNotFound        Code = "LORA_NOT_FOUND"
	CodeLoraAlreadyExists   Code = "LORA_ALREADY_EXISTS"
	CodeTrainingFailed      Code = "TRAINING_FAILED"
	CodeTrainingInProgress  Code = "TRAINING_IN_PROGRESS"
	CodeTrainingNotStarted  Code = "TRAINING_NOT_STARTED"
	CodeInvalidTrainingData Code = "INVALID_TRAINING_DATA"
	CodeInsufficientImages  Code = "INSUFFICIENT_IMAGES"
	CodeTooManyImages       Code = "TOO_MANY_IMAGES"
	CodeUploadFailed        Code = "UPLOAD_FAILED"
	CodeLoraNotReady        Code = "LORA_NOT_READY"
	CodeCannotDeleteActive  Code = "CANNOT_DELETE_ACTIVE"

	CodeImageURLInvalid   Code = "IMAGE_URL_INVALID"
	CodeImageFetchFailed  Code = "IMAGE_FETCH_FAILED"
	CodeRefineFailed      Code = "REFINE_FAILED"
	CodeUpscaleFailed     Code = "UPSCALE_FAILED"
	CodeVariationsFailed  Code = "VARIATIONS_FAILED"
	CodePostProcessFailed Code = "POST_PROCESS_FAILED"

	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeTokenExpired          Code = "TOKEN_EXPIRED"
	CodeTokenInvalid          Code = "TOKEN_INVALID"
	CodeHistoryNotFound       Code = "HISTORY_NOT_FOUND"
	CodeFavoriteNotFound      Code = "FAVORITE_NOT_FOUND"
	CodeFavoriteAlreadyExists Code = "FAVORITE_ALREADY_EXISTS"
	CodeStorageError          Code = "STORAGE_ERROR"

	CodeCommandNotFound Code = "COMMAND_NOT_FOUND"
	CodeInvalidJSON     Code = "INVALID_JSON"
)

// Kind groups codes by how a transport should surface them.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindResourceLimit
	KindAuth
	KindRateLimit
	KindUpstream
	KindUnavailable
)

type Template struct {
	Message    string
	Suggestion string
	Kind       Kind
}

var templates = map[Code]Template{
	CodeNotFound:          {"Resource not found", "Verify the resource ID and try again", KindNotFound},
	CodeJobNotFound:       {"Generation job not found", "Check the job ID or list recent jobs with job.list", KindNotFound},
	CodeModelNotFound:     {"Model not found", "Use model.list to see available models", KindNotFound},
	CodeValidationError:   {"Input validation failed", "Check the command schema and provide valid input", KindValidation},
	CodePromptTooLong:     {"Prompt exceeds maximum length (500 characters)", "Shorten your prompt or split into multiple requests", KindValidation},
	CodePromptEmpty:       {"Prompt cannot be empty", "Provide a description of the image you want to generate", KindValidation},
	CodeInvalidCount:      {"Count must be between 1 and 4", "Specify a count between 1 and 4", KindValidation},
	CodeJobAlreadyDone:    {"Cannot modify a completed job", "Start a new generation instead", KindConflict},
	CodeJobAlreadyCancel:  {"Job was already cancelled", "Start a new generation instead", KindConflict},
	CodeJobAlreadyFailed:  {"Job has already failed", "Start a new generation instead", KindConflict},
	CodeModelUnavailable:  {"Selected model is not currently available", "Try a different model or wait and retry", KindValidation},
	CodeForbidden:         {"You don't have permission to perform this action", "Contact your administrator for access", KindAuth},
	CodeRateLimited:       {"Too many requests", "Wait a moment and try again", KindRateLimit},
	CodeGenerationFailed:  {"Image generation failed", "Try with a different prompt or model", KindUpstream},
	CodeGenerationTimeout: {"Generation timed out", "Try with 'draft' quality for faster results", KindUpstream},
	CodeInternalError:     {"An internal error occurred", "Please try again or report this issue", KindInternal},
	CodeServiceUnavail:    {"Service is temporarily unavailable", "Please try again in a few moments", KindUnavailable},

	CodeLoraNotFound:        {"LoRA not found", "Check the LoRA ID or use lora.list to see available LoRAs", KindNotFound},
	CodeLoraAlreadyExists:   {"A LoRA with this name already exists", "Use a different name or delete the existing LoRA first", KindConflict},
	CodeTrainingFailed:      {"LoRA training failed", "Check training images quality and try again with different parameters", KindUpstream},
	CodeTrainingInProgress:  {"Training is already in progress", "Wait for current training to complete or cancel it first", KindConflict},
	CodeTrainingNotStarted:  {"Training has not been started", "Use lora.train to start training after uploading images", KindConflict},
	CodeInvalidTrainingData: {"Invalid training data format", "Ensure images are JPEG or PNG, min 512x512, max 4096x4096", KindValidation},
	CodeInsufficientImages:  {"Not enough training images", "Upload at least 10 images (20-30 recommended for best results)", KindResourceLimit},
	CodeTooManyImages:       {"Too many training images", "Maximum 100 images allowed. Remove some and try again", KindResourceLimit},
	CodeUploadFailed:        {"Image upload failed", "Check file format and size, then retry the upload", KindUpstream},
	CodeLoraNotReady:        {"LoRA is not ready for use", "Wait for training to complete (status: completed)", KindConflict},
	CodeCannotDeleteActive:  {"Cannot delete an active LoRA", "Deactivate the LoRA first with lora.activate --active false", KindConflict},

	CodeImageURLInvalid:   {"Invalid image URL", "Provide a valid HTTP/HTTPS URL to an image", KindValidation},
	CodeImageFetchFailed:  {"Failed to fetch image from URL", "Check that the URL is accessible and returns a valid image", KindUpstream},
	CodeRefineFailed:      {"Image refinement failed", "Try a lower denoise strength or different image", KindUpstream},
	CodeUpscaleFailed:     {"Image upscaling failed", "Try a different upscaling model or smaller image", KindUpstream},
	CodeVariationsFailed:  {"Failed to generate variations", "Try a different source image or variation strength", KindUpstream},
	CodePostProcessFailed: {"Post-processing failed", "Try different processing options or a different image", KindUpstream},

	CodeUnauthorized:          {"Authentication required", "Sign in to access this feature", KindAuth},
	CodeTokenExpired:          {"Your session has expired", "Sign in again to refresh your session", KindAuth},
	CodeTokenInvalid:          {"Invalid authentication token", "Sign out and sign in again", KindAuth},
	CodeHistoryNotFound:       {"History record not found", "Check the job ID or use history.list to see your history", KindNotFound},
	CodeFavoriteNotFound:      {"Favorite not found", "Check the job ID and image index, or use favorites.list", KindNotFound},
	CodeFavoriteAlreadyExists: {"Image is already in favorites", "Use favorites.list to see your current favorites", KindConflict},
	CodeStorageError:          {"Storage operation failed", "Please try again or contact support", KindInternal},

	CodeCommandNotFound: {"Unknown command", "Run 'brandgen commands' to list available commands", KindNotFound},
	CodeInvalidJSON:     {"Input is not valid JSON", "Pass the command input as a single JSON object", KindValidation},
}

// Template returns the default message and suggestion for c. Unknown codes
// get the internal error template.
func (c Code) Template() Template {
	if tmpl, ok := templates[c]; ok {
		return tmpl
	}

	return templates[CodeInternalError]
}

func (c Code) Kind() Kind {
	return c.Template().Kind
}

func (c Code) String() string {
	return string(c)
}
