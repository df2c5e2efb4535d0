package detection

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"testing"

	pigo "github.com/esimov/pigo/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/facecrop/pkg/types"
)

type fakeVisionClient struct {
	report *types.FaceReport
	err    error
	model  string
	prompt string
	image  string
}

func (f *fakeVisionClient) LocateFaces(ctx context.Context, model, prompt, imgB64 string) (*types.FaceReport, error) {
	f.model, f.prompt, f.image = model, prompt, imgB64
	return f.report, f.err
}

func TestStaticDetector(t *testing.T) {
	faces := StaticDetector{{Rect: types.NewRect(1, 2, 3, 4), Confidence: 0.5}}

	got, err := faces.Detect(context.Background(), image.NewGray(image.Rect(0, 0, 10, 10)))
	require.NoError(t, err)
	assert.Equal(t, []types.Face(faces), got)

	got[0].Confidence = 1
	assert.Equal(t, 0.5, faces[0].Confidence, "detector output must be a copy")
}

func TestStaticDetector_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := StaticDetector{}.Detect(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectorFunc(t *testing.T) {
	want := errors.New("inference failed")
	var d Detector = DetectorFunc(func(context.Context, image.Image) ([]types.Face, error) {
		return nil, want
	})

	_, err := d.Detect(context.Background(), nil)
	assert.ErrorIs(t, err, want)
}

func TestNewPigoDetector_EmptyCascade(t *testing.T) {
	_, err := NewPigoDetector(nil, DefaultPigoConfig())
	assert.ErrorIs(t, err, ErrEmptyCascade)
}

func TestNewPigoDetectorFromFile_Missing(t *testing.T) {
	_, err := NewPigoDetectorFromFile(filepath.Join(t.TempDir(), "facefinder"), DefaultPigoConfig())
	assert.Error(t, err)
}

func TestDetectionsToFaces(t *testing.T) {
	dets := []pigo.Detection{
		{Row: 100, Col: 200, Scale: 60, Q: 42.5},
		{Row: 10, Col: 10, Scale: 20, Q: 2.0},
		{Row: 50, Col: 50, Scale: 40, Q: 250},
	}

	faces := detectionsToFaces(dets, 5.0)
	require.Len(t, faces, 2)

	assert.Equal(t, types.NewRect(170, 70, 60, 60), faces[0].Rect)
	assert.InDelta(t, 0.425, faces[0].Confidence, 1e-6)
	assert.Equal(t, 1.0, faces[1].Confidence)
}

func TestVisionDetector(t *testing.T) {
	fake := &fakeVisionClient{report: &types.FaceReport{Faces: []types.FaceBox{
		{Box: types.Box{X: 0.25, Y: 0.5, W: 0.25, H: 0.25}, Confidence: 0.9},
		{Box: types.Box{X: 0.9, Y: 0.9, W: 0.5, H: 0.5}, Confidence: 0.8},
		{Box: types.Box{X: 0.1, Y: 0.1, W: 0, H: 0.2}, Confidence: 0.8},
		{Box: types.Box{X: 0.1, Y: 0.1, W: 0.1, H: 0.1}, Confidence: 0.1},
	}}}
	cfg := DefaultVisionConfig()
	cfg.Model = "llava"
	cfg.MinConfidence = 0.5
	d := NewVisionDetector(fake, cfg)

	faces, err := d.Detect(context.Background(), image.NewNRGBA(image.Rect(0, 0, 400, 200)))
	require.NoError(t, err)
	require.Len(t, faces, 2)

	assert.Equal(t, "llava", fake.model)
	assert.Equal(t, DefaultPrompt, fake.prompt)
	assert.NotEmpty(t, fake.image)

	assert.Equal(t, types.NewRect(100, 100, 100, 50), faces[0].Rect)
	// clamped to the image edge
	assert.InDelta(t, 360, faces[1].Rect.X, 1e-9)
	assert.InDelta(t, 40, faces[1].Rect.Width, 1e-9)
	assert.InDelta(t, 20, faces[1].Rect.Height, 1e-9)
}

func TestVisionDetector_ClientError(t *testing.T) {
	want := errors.New("connection refused")
	d := NewVisionDetector(&fakeVisionClient{err: want}, DefaultVisionConfig())

	_, err := d.Detect(context.Background(), image.NewNRGBA(image.Rect(0, 0, 10, 10)))
	assert.ErrorIs(t, err, want)
}
