// Package postprocess decides the final fate of an extracted crop.
package postprocess

import (
	"image"

	"github.com/disintegration/imaging"
)

// Params controls post-processing of every crop in a run.
type Params struct {
	Resize       bool
	FilterBySize bool
	Height       uint
	Width        uint
}

// TooSmall reports whether img is below the target size in either dimension.
func (p Params) TooSmall(img image.Image) bool {
	b := img.Bounds()
	return uint(b.Dx()) < p.Width || uint(b.Dy()) < p.Height
}

// Apply filters and resizes a crop. It returns false when the crop is
// discarded for being smaller than the target size, or when a resize is
// requested without a positive target height and width. Filtering is done
// on the crop as extracted, before any resize.
func Apply(img image.Image, p Params) (image.Image, bool) {
	if p.FilterBySize && p.TooSmall(img) {
		return nil, false
	}

	if p.Resize {
		if p.Width == 0 || p.Height == 0 {
			return nil, false
		}
		return imaging.Resize(img, int(p.Width), int(p.Height), imaging.Lanczos), true
	}

	return img, true
}
