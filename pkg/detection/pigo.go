package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	pigo "github.com/esimov/pigo/core"

	"github.com/menta2k/facecrop/pkg/types"
)

// ErrEmptyCascade is returned when the cascade data is empty.
var ErrEmptyCascade = errors.New("empty cascade file")

// PigoConfig holds the cascade parameters of the pigo detector.
type PigoConfig struct {
	MinSize          int     `json:"min_size"`
	MaxSize          int     `json:"max_size"` // 0 uses the longest image side
	ShiftFactor      float64 `json:"shift_factor"`
	ScaleFactor      float64 `json:"scale_factor"`
	IoUThreshold     float64 `json:"iou_threshold"`
	QualityThreshold float32 `json:"quality_threshold"`
	Angle            float64 `json:"angle"`
}

// DefaultPigoConfig returns the parameters used for portrait photos.
func DefaultPigoConfig() PigoConfig {
	return PigoConfig{
		MinSize:          20,
		ShiftFactor:      0.1,
		ScaleFactor:      1.1,
		IoUThreshold:     0.2,
		QualityThreshold: 5.0,
	}
}

// PigoDetector runs the pigo pixel-intensity cascade. The classifier is
// read-only once unpacked, so a single detector can serve concurrent calls.
type PigoDetector struct {
	classifier *pigo.Pigo
	config     PigoConfig
}

// NewPigoDetector unpacks a facefinder cascade.
func NewPigoDetector(cascade []byte, config PigoConfig) (*PigoDetector, error) {
	if len(cascade) == 0 {
		return nil, ErrEmptyCascade
	}

	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the cascade file: %w", err)
	}

	return &PigoDetector{classifier: classifier, config: config}, nil
}

// NewPigoDetectorFromFile reads and unpacks the cascade stored at path.
func NewPigoDetectorFromFile(path string, config PigoConfig) (*PigoDetector, error) {
	cascade, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file: %w", err)
	}
	return NewPigoDetector(cascade, config)
}

// Detect implements Detector.
func (d *PigoDetector) Detect(ctx context.Context, img image.Image) ([]types.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// pigo indexes pixels from the origin
	src := imaging.Clone(img)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()
	if cols == 0 || rows == 0 {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", cols, rows)
	}

	maxSize := d.config.MaxSize
	if maxSize <= 0 {
		maxSize = max(cols, rows)
	}

	cParams := pigo.CascadeParams{
		MinSize:     d.config.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: d.config.ShiftFactor,
		ScaleFactor: d.config.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(src),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(cParams, d.config.Angle)
	dets = d.classifier.ClusterDetections(dets, d.config.IoUThreshold)

	return detectionsToFaces(dets, d.config.QualityThreshold), nil
}

// detectionsToFaces converts cascade hits to face rectangles. Row and Col
// locate the window center and Scale is the side of the square window.
func detectionsToFaces(dets []pigo.Detection, qualityThreshold float32) []types.Face {
	faces := make([]types.Face, 0, len(dets))
	for _, det := range dets {
		if det.Q < qualityThreshold {
			continue
		}

		size := float64(det.Scale)
		faces = append(faces, types.Face{
			Rect: types.NewRect(
				float64(det.Col)-size/2,
				float64(det.Row)-size/2,
				size,
				size,
			),
			Confidence: clamp(float64(det.Q)/100, 0, 1),
		})
	}
	return faces
}
