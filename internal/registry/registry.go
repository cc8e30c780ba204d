// Package registry holds the static lookup tables for asset types, models
// and quality presets. The tables are read-only after package init.
package registry

import (
	"strings"

	"github.com/cozy-creator/brandgen/internal/types"
)

const subjectPlaceholder = "{subject}"

type AssetTypeInfo struct {
	ID              types.AssetType `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	PromptTemplate  string          `json:"prompt_template"`
	NegativePrompt  string          `json:"negative_prompt"`
	RecommendedUses []string        `json:"recommended_for"`
}

// ExpandPrompt substitutes subject into the asset's prompt template.
func (a AssetTypeInfo) ExpandPrompt(subject string) string {
	return strings.ReplaceAll(a.PromptTemplate, subjectPlaceholder, subject)
}

type ModelInfo struct {
	ID           types.ModelID `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	License      string        `json:"license"`
	CommercialOK bool          `json:"commercial_ok"`
	Available    bool          `json:"available"`
	DefaultSteps int           `json:"default_steps"`
	DefaultCFG   float64       `json:"default_guidance"`
}

type QualityPresetInfo struct {
	Name             types.QualityPreset `json:"name"`
	Description      string              `json:"description"`
	Steps            int                 `json:"steps"`
	Width            int                 `json:"width"`
	Height           int                 `json:"height"`
	UseRefiner       bool                `json:"use_refiner"`
	UseUpscaler      bool                `json:"use_upscaler"`
	EstimatedSeconds int                 `json:"estimated_time_seconds"`
}

var assetTypes = map[types.AssetType]AssetTypeInfo{
	types.AssetTypeIcons: {
		ID:              types.AssetTypeIcons,
		Name:            "Icons (Fluent 2)",
		Description:     "Minimal vector-style icons for UI",
		PromptTemplate:  "{subject}, Fluent 2 design icon, minimal vector style, simple shapes, clean lines, professional UI icon",
		NegativePrompt:  "photorealistic, 3d render, complex, detailed background, shadows",
		RecommendedUses: []string{"UI elements", "app icons", "buttons", "navigation"},
	},
	types.AssetTypeProduct: {
		ID:              types.AssetTypeProduct,
		Name:            "Product Illustrations",
		Description:     "Clean illustrations for product pages and documentation",
		PromptTemplate:  "{subject}, product illustration style, clean modern design, soft gradients, professional, brand-aligned",
		NegativePrompt:  "cluttered, amateur, stock photo, watermark, text",
		RecommendedUses: []string{"documentation", "product pages", "feature callouts", "diagrams"},
	},
	types.AssetTypeLogo: {
		ID:              types.AssetTypeLogo,
		Name:            "Logo Illustrations",
		Description:     "Simple iconic illustrations for branding",
		PromptTemplate:  "{subject}, simple iconic illustration, minimal design, memorable, scalable, brand-friendly",
		NegativePrompt:  "complex, detailed, photorealistic, busy background",
		RecommendedUses: []string{"app tiles", "feature icons", "badges", "small graphics"},
	},
	types.AssetTypePremium: {
		ID:              types.AssetTypePremium,
		Name:            "Premium Illustrations",
		Description:     "Rich marketing-grade illustrations",
		PromptTemplate:  "{subject}, premium editorial illustration, high quality, detailed, professional marketing art, rich colors",
		NegativePrompt:  "amateur, stock photo, generic, watermark, low quality",
		RecommendedUses: []string{"marketing", "hero images", "campaigns", "presentations"},
	},
}

var models = map[types.ModelID]ModelInfo{
	types.ModelHiDream: {
		ID:           types.ModelHiDream,
		Name:         "HiDream-I1",
		Description:  "High-quality image generation model with commercial license",
		License:      "Apache-2.0",
		CommercialOK: true,
		Available:    true,
		DefaultSteps: 28,
		DefaultCFG:   5.0,
	},
	types.ModelFlux: {
		ID:           types.ModelFlux,
		Name:         "FLUX.1-dev",
		Description:  "State-of-the-art image generation (non-commercial)",
		License:      "FLUX.1-dev Non-Commercial License",
		CommercialOK: false,
		Available:    true,
		DefaultSteps: 30,
		DefaultCFG:   3.5,
	},
	types.ModelSD35: {
		ID:           types.ModelSD35,
		Name:         "Stable Diffusion 3.5",
		Description:  "Stable Diffusion with improved quality",
		License:      "Stability AI Community License",
		CommercialOK: true,
		Available:    false,
		DefaultSteps: 28,
		DefaultCFG:   7.0,
	},
}

var qualityPresets = map[types.QualityPreset]QualityPresetInfo{
	types.QualityDraft: {
		Name:             types.QualityDraft,
		Description:      "Quick ideation, lower quality",
		Steps:            4,
		Width:            512,
		Height:           512,
		EstimatedSeconds: 2,
	},
	types.QualityStandard: {
		Name:             types.QualityStandard,
		Description:      "Balanced quality for most use cases",
		Steps:            8,
		Width:            1024,
		Height:           1024,
		EstimatedSeconds: 5,
	},
	types.QualityHigh: {
		Name:             types.QualityHigh,
		Description:      "Higher quality with upscaling",
		Steps:            12,
		Width:            1024,
		Height:           1024,
		UseUpscaler:      true,
		EstimatedSeconds: 10,
	},
}

// Per-image seconds used for job completion estimates. These are coarser
// than the preset's own estimate because they include queueing.
var jobBaseSeconds = map[types.QualityPreset]int{
	types.QualityDraft:    10,
	types.QualityStandard: 20,
	types.QualityHigh:     40,
}

func AssetType(id types.AssetType) (AssetTypeInfo, bool) {
	info, ok := assetTypes[id]
	return info, ok
}

// AssetTypes lists asset types in declaration order.
func AssetTypes() []AssetTypeInfo {
	list := make([]AssetTypeInfo, 0, len(types.AssetTypes))
	for _, id := range types.AssetTypes {
		list = append(list, assetTypes[id])
	}
	return list
}

func Model(id types.ModelID) (ModelInfo, bool) {
	info, ok := models[id]
	return info, ok
}

func Models() []ModelInfo {
	list := make([]ModelInfo, 0, len(types.ModelIDs))
	for _, id := range types.ModelIDs {
		list = append(list, models[id])
	}
	return list
}

func QualityPreset(id types.QualityPreset) (QualityPresetInfo, bool) {
	info, ok := qualityPresets[id]
	return info, ok
}

func QualityPresets() []QualityPresetInfo {
	list := make([]QualityPresetInfo, 0, len(types.QualityPresets))
	for _, id := range types.QualityPresets {
		list = append(list, qualityPresets[id])
	}
	return list
}

// EstimateSeconds estimates how long a job of count images takes at quality q.
func EstimateSeconds(q types.QualityPreset, count int) int {
	base, ok := jobBaseSeconds[q]
	if !ok {
		base = jobBaseSeconds[types.QualityStandard]
	}
	return base * count
}
