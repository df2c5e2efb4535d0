// Package detection provides the face detectors used to feed the cropper.
package detection

import (
	"context"
	"image"

	"github.com/menta2k/facecrop/pkg/types"
)

// Detector finds faces in a decoded image. Rectangles are in pixel
// coordinates relative to the image's top-left corner.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]types.Face, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, img image.Image) ([]types.Face, error)

// Detect calls f(ctx, img).
func (f DetectorFunc) Detect(ctx context.Context, img image.Image) ([]types.Face, error) {
	return f(ctx, img)
}

// StaticDetector returns the same faces for every image.
type StaticDetector []types.Face

// Detect returns a copy of the configured faces.
func (s StaticDetector) Detect(ctx context.Context, _ image.Image) ([]types.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	faces := make([]types.Face, len(s))
	copy(faces, s)
	return faces, nil
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
