package detection

import (
	"context"
	"fmt"
	"image"

	"github.com/menta2k/facecrop/pkg/client"
	"github.com/menta2k/facecrop/pkg/processing"
	"github.com/menta2k/facecrop/pkg/types"
)

// DefaultPrompt asks a vision model for every face in the image.
const DefaultPrompt = `You are a face locator.

Return JSON only:
{
  "faces": [
    {"box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}, "confidence": 0.0}
  ]
}

HARD RULES
- One entry per visible human face, ordered left to right.
- All coordinates are normalized to [0,1] (NOT pixels); x,y is the top-left corner.
- The box covers the face from the hairline to the chin, ear to ear.
- confidence is your certainty in [0,1].
- If there is no face, return {"faces": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// VisionConfig controls how images are sent to the vision model.
type VisionConfig struct {
	Model         string  `json:"model"`
	Prompt        string  `json:"prompt"`
	SendFormat    string  `json:"send_format"`
	SendSize      int     `json:"send_size"`
	SendQuality   int     `json:"send_quality"`
	MinConfidence float64 `json:"min_confidence"`
}

// DefaultVisionConfig returns the settings used with MiniCPM-V class models.
func DefaultVisionConfig() VisionConfig {
	return VisionConfig{
		Model:       "openbmb/minicpm-v4.5",
		Prompt:      DefaultPrompt,
		SendFormat:  "jpg",
		SendSize:    1536,
		SendQuality: 85,
	}
}

// VisionDetector locates faces with a vision language model.
type VisionDetector struct {
	client    client.VisionClient
	processor *processing.Processor
	config    VisionConfig
}

// NewVisionDetector creates a detector backed by a vision client.
func NewVisionDetector(c client.VisionClient, config VisionConfig) *VisionDetector {
	if config.Prompt == "" {
		config.Prompt = DefaultPrompt
	}
	return &VisionDetector{
		client:    c,
		processor: processing.NewProcessor(),
		config:    config,
	}
}

// Detect implements Detector.
func (d *VisionDetector) Detect(ctx context.Context, img image.Image) ([]types.Face, error) {
	imgB64, err := d.processor.PrepareImageForModel(img, d.config.SendFormat, d.config.SendSize, d.config.SendQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image for model: %w", err)
	}

	report, err := d.client.LocateFaces(ctx, d.config.Model, d.config.Prompt, imgB64)
	if err != nil {
		return nil, fmt.Errorf("face location failed: %w", err)
	}

	b := img.Bounds()
	return reportToFaces(report, b.Dx(), b.Dy(), d.config.MinConfidence), nil
}

// reportToFaces scales normalized boxes to pixels, dropping boxes that
// are empty once clamped to the image or below minConfidence.
func reportToFaces(report *types.FaceReport, imgW, imgH int, minConfidence float64) []types.Face {
	faces := make([]types.Face, 0, len(report.Faces))
	for _, f := range report.Faces {
		if f.Confidence < minConfidence {
			continue
		}
		box := normalizeBox(f.Box)
		if box.W <= 0 || box.H <= 0 {
			continue
		}
		faces = append(faces, types.Face{
			Rect:       box.ToPixels(imgW, imgH),
			Confidence: clamp(f.Confidence, 0, 1),
		})
	}
	return faces
}

// normalizeBox clamps a box so it lies within [0,1]
func normalizeBox(b types.Box) types.Box {
	x0 := clamp(b.X, 0, 1)
	y0 := clamp(b.Y, 0, 1)
	x1 := clamp(b.X+b.W, 0, 1)
	y1 := clamp(b.Y+b.H, 0, 1)
	return types.Box{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}
