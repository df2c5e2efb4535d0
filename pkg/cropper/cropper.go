// Package cropper turns face rectangles into image-bounded crop regions.
package cropper

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/facecrop/pkg/types"
)

// CropKind selects how the crop size is derived. It is implemented by
// Absolute and Relative only.
type CropKind interface {
	dimensions(face types.Rect) (height, width float64)
}

// Absolute crops a fixed number of pixels regardless of the face size.
type Absolute struct {
	Height uint
	Width  uint
}

func (a Absolute) dimensions(types.Rect) (float64, float64) {
	return float64(a.Height), float64(a.Width)
}

// Relative derives the crop size from the face height. The face takes up
// ProportionOfFace of the crop height and the width follows AspectRatio
// (width / height).
type Relative struct {
	AspectRatio      float64
	ProportionOfFace float64
}

func (r Relative) dimensions(face types.Rect) (float64, float64) {
	height := face.Height / r.ProportionOfFace
	return height, height * r.AspectRatio
}

// CropParams holds the crop configuration shared by every face of a run.
type CropParams struct {
	// TopPadding is the fraction of the crop height placed above the face.
	TopPadding float64
	Kind       CropKind
}

// CropOutput is a single extracted face crop.
type CropOutput struct {
	// Index is the position of the face in the detector output.
	Index      int
	Image      *image.NRGBA
	Confidence float64
	Region     types.Rect
}

// Dimensions returns the crop height and width before clamping.
func Dimensions(face types.Rect, kind CropKind) (float64, float64) {
	return kind.dimensions(face)
}

// Position returns the top-left corner of a crop of the given size,
// centered horizontally on the face.
func Position(face types.Rect, cropHeight, cropWidth, topPadding float64) (float64, float64) {
	x := face.X + face.Width/2 - cropWidth/2
	y := face.Y - cropHeight*topPadding
	return x, y
}

// Unclamped returns the crop rectangle before it is cut to the image.
func Unclamped(face types.Rect, params CropParams) types.Rect {
	h, w := Dimensions(face, params.Kind)
	x, y := Position(face, h, w, params.TopPadding)
	return types.NewRect(x, y, w, h)
}

// ComputeCrop returns the crop rectangle for a face, intersected with the
// image bounds. A crop that misses the image entirely comes back empty.
func ComputeCrop(face, bounds types.Rect, params CropParams) types.Rect {
	return Unclamped(face, params).Intersect(bounds)
}

// CropFaces extracts one crop per face. The second result is false when
// there are no faces. Faces whose crop falls outside the image are left
// out of the result; the others keep their detector index.
func CropFaces(img image.Image, faces []types.Face, params CropParams) ([]CropOutput, bool) {
	if len(faces) == 0 {
		return nil, false
	}

	bounds := types.BoundsOf(img)
	origin := img.Bounds().Min
	outputs := make([]CropOutput, 0, len(faces))
	for i, face := range faces {
		region := ComputeCrop(face.Rect, bounds, params)
		rect := region.Image()
		if region.Empty() || rect.Empty() {
			continue
		}

		outputs = append(outputs, CropOutput{
			Index:      i,
			Image:      imaging.Crop(img, rect.Add(origin)),
			Confidence: face.Confidence,
			Region:     region,
		})
	}

	return outputs, true
}
