package processing

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/facecrop/pkg/types"
)

func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{64, 64, 64, 255})
		}
	}
	return img
}

func TestSaveAndLoadImage(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()

	for _, format := range []string{"jpg", "png", "webp"} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(dir, "out."+format)
			require.NoError(t, p.SaveImage(createTestImage(40, 30), path, format, 90, false))

			img, err := p.LoadImage(path)
			require.NoError(t, err)
			assert.Equal(t, 40, img.Bounds().Dx())
			assert.Equal(t, 30, img.Bounds().Dy())
		})
	}
}

func TestLoadImage_Missing(t *testing.T) {
	_, err := NewProcessor().LoadImage(filepath.Join(t.TempDir(), "nope.jpg"))
	assert.Error(t, err)
}

func TestLoadImage_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a png"), 0o644))

	_, err := NewProcessor().LoadImage(path)
	assert.Error(t, err)
}

func transparentRedPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoadImage_DropsAlpha(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transparent.png")
	require.NoError(t, os.WriteFile(path, transparentRedPNG(t), 0o644))

	img, err := NewProcessor().LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, img.NRGBAAt(99, 99))
}

func TestDecodeImageFromBytes_DropsAlpha(t *testing.T) {
	img, err := NewProcessor().decodeImageFromBytes(transparentRedPNG(t))
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{255, 0, 0, 255}, img.NRGBAAt(50, 50))
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/a.jpg"))
	assert.True(t, IsURL("http://example.com/a.jpg"))
	assert.False(t, IsURL("/tmp/a.jpg"))
}

func TestPrepareImageForModel_Downscales(t *testing.T) {
	p := NewProcessor()

	encoded, err := p.PrepareImageForModel(createTestImage(800, 400), "jpg", 200, 80)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())
}

func TestCreateDebugOverlay(t *testing.T) {
	p := NewProcessor()
	src := createTestImage(200, 200)
	faces := []types.Face{{Rect: types.NewRect(50, 50, 40, 40), Confidence: 0.9}}
	crops := []types.Rect{types.NewRect(20, 20, 100, 150), {}}

	out := p.CreateDebugOverlay(src, faces, crops)

	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, out.NRGBAAt(50, 60))
	assert.Equal(t, color.NRGBA{255, 204, 0, 255}, out.NRGBAAt(20, 100))
	// the source is untouched
	assert.Equal(t, color.NRGBA{64, 64, 64, 255}, src.NRGBAAt(50, 60))
}
