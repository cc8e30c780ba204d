package types

type AssetType string

const (
	AssetTypeIcons   AssetType = "icons"
	AssetTypeProduct AssetType = "product"
	AssetTypeLogo    AssetType = "logo"
	AssetTypePremium AssetType = "premium"
)

var AssetTypes = []AssetType{AssetTypeIcons, AssetTypeProduct, AssetTypeLogo, AssetTypePremium}

func (a AssetType) Valid() bool {
	switch a {
	case AssetTypeIcons, AssetTypeProduct, AssetTypeLogo, AssetTypePremium:
		return true
	}
	return false
}

type ModelID string

const (
	ModelHiDream ModelID = "hidream"
	ModelFlux    ModelID = "flux"
	ModelSD35    ModelID = "sd35"
)

var ModelIDs = []ModelID{ModelHiDream, ModelFlux, ModelSD35}

func (m ModelID) Valid() bool {
	switch m {
	case ModelHiDream, ModelFlux, ModelSD35:
		return true
	}
	return false
}

type QualityPreset string

const (
	QualityDraft    QualityPreset = "draft"
	QualityStandard QualityPreset = "standard"
	QualityHigh     QualityPreset = "high"
)

var QualityPresets = []QualityPreset{QualityDraft, QualityStandard, QualityHigh}

func (q QualityPreset) Valid() bool {
	switch q {
	case QualityDraft, QualityStandard, QualityHigh:
		return true
	}
	return false
}

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusComplete   JobStatus = "complete"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusProcessing, JobStatusComplete, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusComplete, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

type LoraStatus string

const (
	LoraStatusCreated      LoraStatus = "created"
	LoraStatusUploading    LoraStatus = "uploading"
	LoraStatusReadyToTrain LoraStatus = "ready_to_train"
	LoraStatusTraining     LoraStatus = "training"
	LoraStatusCompleted    LoraStatus = "completed"
	LoraStatusFailed       LoraStatus = "failed"
)

func (s LoraStatus) Valid() bool {
	switch s {
	case LoraStatusCreated, LoraStatusUploading, LoraStatusReadyToTrain,
		LoraStatusTraining, LoraStatusCompleted, LoraStatusFailed:
		return true
	}
	return false
}

// CanUpload reports whether training images may still be appended.
func (s LoraStatus) CanUpload() bool {
	switch s {
	case LoraStatusCreated, LoraStatusUploading, LoraStatusReadyToTrain:
		return true
	}
	return false
}

// CanTrain reports whether training may start (or restart) from s.
func (s LoraStatus) CanTrain() bool {
	switch s {
	case LoraStatusCreated, LoraStatusUploading, LoraStatusReadyToTrain, LoraStatusFailed:
		return true
	}
	return false
}

type BaseModel string

const (
	BaseModelFlux BaseModel = "flux"
	BaseModelSDXL BaseModel = "sdxl"
)

func (b BaseModel) Valid() bool {
	switch b {
	case BaseModelFlux, BaseModelSDXL:
		return true
	}
	return false
}

// NonCommercial reports whether weights trained on b inherit a
// non-commercial license.
func (b BaseModel) NonCommercial() bool {
	switch b {
	case BaseModelFlux:
		return true
	case BaseModelSDXL:
		return false
	}
	return false
}

type UpscaleModel string

const (
	UpscaleRealESRGAN UpscaleModel = "real-esrgan"
	UpscaleSUPIR      UpscaleModel = "supir"
)

func (u UpscaleModel) Valid() bool {
	switch u {
	case UpscaleRealESRGAN, UpscaleSUPIR:
		return true
	}
	return false
}

type OutputFormat string

const (
	OutputPNG  OutputFormat = "png"
	OutputWebP OutputFormat = "webp"
	OutputJPEG OutputFormat = "jpeg"
)

func (f OutputFormat) Valid() bool {
	switch f {
	case OutputPNG, OutputWebP, OutputJPEG:
		return true
	}
	return false
}
