package types

import (
	"image"
	"math"
)

// Rect is an axis-aligned rectangle in pixel space. Coordinates stay
// fractional until the rectangle is converted for pixel extraction.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewRect builds a rectangle from its top-left corner and size.
func NewRect(x, y, width, height float64) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// CenterX returns the horizontal center of the rectangle.
func (r Rect) CenterX() float64 { return r.X + r.Width/2 }

// Area returns the area of the rectangle
func (r Rect) Area() float64 { return r.Width * r.Height }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Intersect returns the overlap of r and o. When the rectangles do not
// overlap the result is the zero Rect.
func (r Rect) Intersect(o Rect) Rect {
	x0 := math.Max(r.X, o.X)
	y0 := math.Max(r.Y, o.Y)
	x1 := math.Min(r.Right(), o.Right())
	y1 := math.Min(r.Bottom(), o.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Image converts the rectangle to integer pixel coordinates. Origin and
// size are truncated toward zero independently, never rounded.
func (r Rect) Image() image.Rectangle {
	x, y := int(r.X), int(r.Y)
	return image.Rect(x, y, x+int(r.Width), y+int(r.Height))
}

// BoundsOf returns the rectangle covering the whole image, with its
// top-left corner at the origin.
func BoundsOf(img image.Image) Rect {
	b := img.Bounds()
	return Rect{Width: float64(b.Dx()), Height: float64(b.Dy())}
}

// Face is a single detector result for one image.
type Face struct {
	Rect       Rect    `json:"rect"`
	Confidence float64 `json:"confidence"`
}

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ToPixels scales a normalized box to an image of the given size.
func (b Box) ToPixels(imgW, imgH int) Rect {
	return Rect{
		X:      b.X * float64(imgW),
		Y:      b.Y * float64(imgH),
		Width:  b.W * float64(imgW),
		Height: b.H * float64(imgH),
	}
}

// FaceBox is one face as reported by a vision model.
type FaceBox struct {
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
}

// FaceReport contains the face list returned by a vision model
type FaceReport struct {
	Faces []FaceBox `json:"faces"`
}

// OutputConfig defines how crops are encoded on disk
type OutputConfig struct {
	Dir       string
	Extension string
	Quality   int
	Lossless  bool
}
