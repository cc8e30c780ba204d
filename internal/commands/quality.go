package commands

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"

	"github.com/cozy-creator/brandgen/internal/registry"
	"github.com/cozy-creator/brandgen/internal/result"
	"github.com/cozy-creator/brandgen/internal/types"
)

const maxVariationSeed = 999999999

type QualityPresetsOutput struct {
	Presets []registry.QualityPresetInfo `json:"presets"`
	Total   int                          `json:"total"`
}

type RefineInput struct {
	ImageURL        string  `json:"image_url" validate:"required" jsonschema:"description=URL of the image to refine"`
	DenoiseStrength float64 `json:"denoise_strength,omitempty" validate:"min=0.1,max=0.5" jsonschema:"description=Denoise strength where lower preserves more of the original,minimum=0.1,maximum=0.5,default=0.3"`
	Steps           int     `json:"steps,omitempty" validate:"min=10,max=50" jsonschema:"description=Number of refinement steps,minimum=10,maximum=50,default=20"`
	Prompt          *string `json:"prompt,omitempty" jsonschema:"description=Prompt to guide refinement"`
}

type RefinedImage struct {
	URL             string  `json:"url"`
	OriginalURL     string  `json:"original_url"`
	DenoiseStrength float64 `json:"denoise_strength"`
	Steps           int     `json:"steps"`
}

type RefineOutput struct {
	Refined RefinedImage `json:"refined"`
}

type UpscaleInput struct {
	ImageURL string             `json:"image_url" validate:"required" jsonschema:"description=URL of the image to upscale"`
	Scale    int                `json:"scale,omitempty" validate:"oneof=2 4" jsonschema:"description=Upscale factor,enum=2,enum=4,default=2"`
	Model    types.UpscaleModel `json:"model,omitempty" validate:"oneof=real-esrgan supir" jsonschema:"description=Upscaling model,enum=real-esrgan,enum=supir,default=real-esrgan"`
}

type UpscaledImage struct {
	URL         string             `json:"url"`
	OriginalURL string             `json:"original_url"`
	Scale       int                `json:"scale"`
	Model       types.UpscaleModel `json:"model"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
}

type UpscaleOutput struct {
	Upscaled UpscaledImage `json:"upscaled"`
}

type VariationsInput struct {
	SourceImage       string  `json:"source_image" validate:"required" jsonschema:"description=URL of the source image"`
	Count             int     `json:"count,omitempty" validate:"min=1,max=8" jsonschema:"description=Number of variations to generate,minimum=1,maximum=8,default=4"`
	VariationStrength float64 `json:"variation_strength,omitempty" validate:"min=0.1,max=0.7" jsonschema:"description=How far variations may drift from the source,minimum=0.1,maximum=0.7,default=0.3"`
	Prompt            *string `json:"prompt,omitempty" jsonschema:"description=Prompt to guide variations"`
}

type ImageVariation struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
	Seed  int64  `json:"seed"`
}

type VariationsOutput struct {
	Variations        []ImageVariation `json:"variations"`
	SourceImage       string           `json:"source_image"`
	VariationStrength float64          `json:"variation_strength"`
}

type PostProcessInput struct {
	ImageURL     string             `json:"image_url" validate:"required" jsonschema:"description=URL of the image to process"`
	Sharpen      bool               `json:"sharpen,omitempty" jsonschema:"description=Apply sharpening,default=false"`
	ColorCorrect bool               `json:"color_correct,omitempty" jsonschema:"description=Apply color correction,default=false"`
	Format       types.OutputFormat `json:"format,omitempty" validate:"oneof=png webp jpeg" jsonschema:"description=Output format,enum=png,enum=webp,enum=jpeg,default=png"`
}

type PostProcessedImage struct {
	URL            string             `json:"url"`
	OriginalURL    string             `json:"original_url"`
	Format         types.OutputFormat `json:"format"`
	Sharpened      bool               `json:"sharpened"`
	ColorCorrected bool               `json:"color_corrected"`
}

type PostProcessOutput struct {
	Processed PostProcessedImage `json:"processed"`
}

func (s *Service) registerQuality(r *Registry) {
	register(r, "quality.presets", "List quality presets with their settings",
		func() emptyInput { return emptyInput{} }, s.QualityPresets)
	register(r, "quality.refine", "Apply a low-denoise refinement pass to an image",
		func() RefineInput { return RefineInput{DenoiseStrength: 0.3, Steps: 20} }, s.Refine)
	register(r, "quality.upscale", "Upscale an image 2x or 4x",
		func() UpscaleInput { return UpscaleInput{Scale: 2, Model: types.UpscaleRealESRGAN} }, s.Upscale)
	register(r, "quality.variations", "Generate variations of an existing image",
		func() VariationsInput { return VariationsInput{Count: 4, VariationStrength: 0.3} }, s.Variations)
	register(r, "quality.post-process", "Sharpen, color correct or convert an image",
		func() PostProcessInput { return PostProcessInput{Format: types.OutputPNG} }, s.PostProcess)
}

func (s *Service) QualityPresets(ctx context.Context, _ *emptyInput) *result.Result {
	presets := registry.QualityPresets()
	names := make([]string, 0, len(presets))
	for _, p := range presets {
		names = append(names, string(p.Name))
	}

	return result.Success(QualityPresetsOutput{Presets: presets, Total: len(presets)},
		result.WithReasoning("Found %d quality presets: %s", len(presets), strings.Join(names, ", ")))
}

func invalidImageURL(url, subject string) *result.Result {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return nil
	}
	return result.Fail(result.CodeImageURLInvalid,
		subject+" must start with http:// or https://",
		"Provide a valid URL to an image",
	)
}

// stubURL names the file a quality stage would write.
func (s *Service) stubURL(kind, name string) string {
	return "file://" + filepath.ToSlash(filepath.Join(s.tempDir, "brandgen", kind, name))
}

func (s *Service) Refine(ctx context.Context, in *RefineInput) *result.Result {
	if res := invalidImageURL(in.ImageURL, "Image URL"); res != nil {
		return res
	}

	name := fmt.Sprintf("refined_%d_%d.jpg", s.now().Unix(), int(in.DenoiseStrength*100))
	return result.Success(RefineOutput{Refined: RefinedImage{
		URL:             s.stubURL("refined", name),
		OriginalURL:     in.ImageURL,
		DenoiseStrength: in.DenoiseStrength,
		Steps:           in.Steps,
	}},
		result.WithReasoning("Applied refinement with denoise=%g, steps=%d", in.DenoiseStrength, in.Steps),
		result.WithSuggestions("Use denoise 0.2-0.3 for subtle improvements, 0.4-0.5 for more dramatic changes"),
	)
}

func (s *Service) Upscale(ctx context.Context, in *UpscaleInput) *result.Result {
	if res := invalidImageURL(in.ImageURL, "Image URL"); res != nil {
		return res
	}

	const baseSize = 1024
	width, height := baseSize*in.Scale, baseSize*in.Scale
	note := "fast, good quality"
	if in.Model == types.UpscaleSUPIR {
		note = "slow, excellent quality"
	}

	name := fmt.Sprintf("upscaled_%dx_%s_%d.jpg", in.Scale, in.Model, s.now().Unix())
	return result.Success(UpscaleOutput{Upscaled: UpscaledImage{
		URL:         s.stubURL("upscaled", name),
		OriginalURL: in.ImageURL,
		Scale:       in.Scale,
		Model:       in.Model,
		Width:       width,
		Height:      height,
	}},
		result.WithReasoning("Upscaled %dx using %s (%s) to %dx%d", in.Scale, in.Model, note, width, height),
		result.WithSuggestions(
			"Use 2x for most cases, 4x for print/large displays",
			"SUPIR produces better results but is slower",
		),
	)
}

func (s *Service) Variations(ctx context.Context, in *VariationsInput) *result.Result {
	if res := invalidImageURL(in.SourceImage, "Source image URL"); res != nil {
		return res
	}

	ts := s.now().Unix()
	variations := make([]ImageVariation, 0, in.Count)
	for i := range in.Count {
		seed := rand.Int64N(maxVariationSeed) + 1
		variations = append(variations, ImageVariation{
			Index: i,
			URL:   s.stubURL("variations", fmt.Sprintf("variation_%d_%d_%d.jpg", ts, i, seed)),
			Seed:  seed,
		})
	}

	return result.Success(VariationsOutput{
		Variations:        variations,
		SourceImage:       in.SourceImage,
		VariationStrength: in.VariationStrength,
	},
		result.WithReasoning("Generated %d variations with strength=%g", in.Count, in.VariationStrength),
		result.WithSuggestions(
			"Use 0.1-0.3 for subtle variations, 0.4-0.7 for more creative alternatives",
			"Re-run with a specific seed to reproduce a variation you like",
		),
	)
}

func (s *Service) PostProcess(ctx context.Context, in *PostProcessInput) *result.Result {
	if res := invalidImageURL(in.ImageURL, "Image URL"); res != nil {
		return res
	}

	suffix := ""
	var operations []string
	if in.Sharpen {
		suffix += "_sharp"
		operations = append(operations, "sharpening")
	}
	if in.ColorCorrect {
		suffix += "_cc"
		operations = append(operations, "color correction")
	}
	if len(operations) == 0 {
		operations = append(operations, "format conversion")
	}

	name := fmt.Sprintf("processed_%d%s.%s", s.now().Unix(), suffix, in.Format)
	return result.Success(PostProcessOutput{Processed: PostProcessedImage{
		URL:            s.stubURL("processed", name),
		OriginalURL:    in.ImageURL,
		Format:         in.Format,
		Sharpened:      in.Sharpen,
		ColorCorrected: in.ColorCorrect,
	}},
		result.WithReasoning("Applied %s; output format: %s", strings.Join(operations, ", "), in.Format),
		result.WithSuggestions(
			"Use PNG for icons and assets with transparency",
			"Use WebP for web with good compression",
			"Use JPEG for photos where smaller size is needed",
		),
	)
}
