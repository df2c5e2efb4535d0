// Package facecrop extracts face crops from still images.
//
// Each image goes through the same steps: decode, detect faces, compute a
// crop rectangle per face, post-process the crop, save it. The detector is
// injected, so the geometry and post-processing can run on synthetic face
// lists:
//
//	fc, err := facecrop.New(facecrop.Options{
//		Detector: detection.StaticDetector{{Rect: types.NewRect(400, 300, 200, 200), Confidence: 0.9}},
//		Crop: cropper.CropParams{
//			TopPadding: 0.1,
//			Kind:       cropper.Relative{AspectRatio: 1, ProportionOfFace: 0.5},
//		},
//		Output: types.OutputConfig{Dir: "out"},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	summary, err := fc.Run(ctx, []string{"photo.jpg"})
//
// Crops are written as {stem}-{face index}-{confidence}.jpg. Images without
// faces and crops below the size filter are logged as warnings and skipped.
// Failing images either abort the run or are skipped, depending on
// Options.OnError.
package facecrop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/menta2k/facecrop/internal/utils"
	"github.com/menta2k/facecrop/pkg/cropper"
	"github.com/menta2k/facecrop/pkg/detection"
	"github.com/menta2k/facecrop/pkg/postprocess"
	"github.com/menta2k/facecrop/pkg/processing"
	"github.com/menta2k/facecrop/pkg/types"
)

// Version of the facecrop library
const Version = "1.0.0"

// LevelTrace is the log level of per-face details, below slog.LevelDebug.
const LevelTrace = slog.Level(-8)

// ErrorPolicy decides what happens when an image cannot be processed.
type ErrorPolicy int

const (
	// AbortOnError stops the run at the first failing image.
	AbortOnError ErrorPolicy = iota
	// SkipOnError logs the failure and moves on to the next image.
	SkipOnError
)

func (p ErrorPolicy) String() string {
	if p == SkipOnError {
		return "skip"
	}
	return "abort"
}

// ErrNoDetector is returned by New when Options.Detector is nil.
var ErrNoDetector = errors.New("face detector is required")

// Options configures a FaceCropper
type Options struct {
	Detector    detection.Detector
	Crop        cropper.CropParams
	PostProcess postprocess.Params
	Output      types.OutputConfig
	// Workers is the number of images processed at once. Values below 2
	// process images one after another.
	Workers int
	OnError ErrorPolicy
	// Debug writes an overlay of faces and crop regions per image.
	Debug  bool
	Logger *slog.Logger
}

// FaceCropper runs the detect, crop, post-process and save steps.
type FaceCropper struct {
	opts      Options
	processor *processing.Processor
	logger    *slog.Logger
}

// ImageResult describes what happened to one source image
type ImageResult struct {
	Path  string
	Faces int
	// Saved lists the written crop files in face order.
	Saved []string
	// Discarded counts crops dropped by the size filter.
	Discarded int
	// Empty counts faces whose crop fell outside the image.
	Empty int
	Err   error
}

// Summary aggregates the results of a run
type Summary struct {
	Images    int
	Faces     int
	Saved     int
	NoFaces   int
	Discarded int
	Empty     int
	Failed    int
}

func (s *Summary) add(r ImageResult) {
	s.Images++
	if r.Err != nil {
		s.Failed++
		return
	}
	s.Faces += r.Faces
	s.Saved += len(r.Saved)
	s.Discarded += r.Discarded
	s.Empty += r.Empty
	if r.Faces == 0 {
		s.NoFaces++
	}
}

// New creates a FaceCropper. Parameters are expected to be validated.
func New(opts Options) (*FaceCropper, error) {
	if opts.Detector == nil {
		return nil, ErrNoDetector
	}
	if opts.Crop.Kind == nil {
		return nil, errors.New("crop kind is required")
	}
	if opts.Output.Extension == "" {
		opts.Output.Extension = "jpg"
	}
	if opts.Output.Quality == 0 {
		opts.Output.Quality = 90
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &FaceCropper{
		opts:      opts,
		processor: processing.NewProcessor(),
		logger:    logger,
	}, nil
}

// Run processes every image in paths. Under AbortOnError the first failure
// stops the run and is returned; under SkipOnError failures are counted
// in the summary.
func (fc *FaceCropper) Run(ctx context.Context, paths []string) (Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]ImageResult, len(paths))
	done := make([]bool, len(paths))
	jobs := make(chan int)

	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)

	workers := min(fc.opts.Workers, max(len(paths), 1))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := fc.ProcessImage(ctx, paths[i])
				if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
					// cancelled before completion, not counted
					continue
				}
				results[i], done[i] = res, true
				if err == nil {
					continue
				}
				if fc.opts.OnError == AbortOnError {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
						cancel()
					}
					mu.Unlock()
					continue
				}
				fc.logger.Error("skipping image", "path", paths[i], "error", err)
			}
		}()
	}

feed:
	for i := range paths {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	var summary Summary
	for i, r := range results {
		if done[i] {
			summary.add(r)
		}
	}

	if firstErr != nil {
		return summary, firstErr
	}
	return summary, ctx.Err()
}

// ProcessImage decodes, crops and saves the faces of a single image.
func (fc *FaceCropper) ProcessImage(ctx context.Context, path string) (ImageResult, error) {
	res := ImageResult{Path: path}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res, err
	}

	img, err := fc.processor.LoadImageSmart(path)
	if err != nil {
		res.Err = fmt.Errorf("failed to load %s: %w", path, err)
		return res, res.Err
	}

	stem := utils.Stem(path)
	if processing.IsURL(path) {
		stem = utils.Stem(strings.SplitN(path, "?", 2)[0])
	}

	return fc.ProcessDecoded(ctx, img, path, stem)
}

// ProcessDecoded runs detection, cropping and saving on an image that is
// already in memory. stem names the output files.
func (fc *FaceCropper) ProcessDecoded(ctx context.Context, img image.Image, path, stem string) (ImageResult, error) {
	res := ImageResult{Path: path}

	faces, err := fc.opts.Detector.Detect(ctx, img)
	if err != nil {
		res.Err = fmt.Errorf("face detection failed for %s: %w", path, err)
		return res, res.Err
	}
	res.Faces = len(faces)
	fc.logger.Debug("detected faces", "count", len(faces), "path", path)

	crops, ok := cropper.CropFaces(img, faces, fc.opts.Crop)
	if !ok {
		fc.logger.Warn("no crops for image, skipping", "image", stem)
		return res, nil
	}
	res.Empty = len(faces) - len(crops)
	if res.Empty > 0 {
		fc.logger.Warn("crop region outside the image, skipping", "image", stem, "count", res.Empty)
	}

	if fc.opts.Debug {
		fc.writeDebugOverlay(img, faces, crops, stem)
	}

	for _, crop := range crops {
		fc.logger.Log(ctx, LevelTrace, "crop region",
			"image", stem, "face", crop.Index, "confidence", crop.Confidence,
			"x", crop.Region.X, "y", crop.Region.Y, "width", crop.Region.Width, "height", crop.Region.Height)

		out, keep := postprocess.Apply(crop.Image, fc.opts.PostProcess)
		if !keep {
			b := crop.Image.Bounds()
			fc.logger.Warn("cropped image is too small, skipping",
				"image", stem, "face", crop.Index, "width", b.Dx(), "height", b.Dy())
			res.Discarded++
			continue
		}

		name := utils.CropFilename(stem, crop.Index, crop.Confidence, fc.opts.Output.Extension)
		outputPath := filepath.Join(fc.opts.Output.Dir, name)
		if err := fc.processor.SaveImage(out, outputPath, fc.opts.Output.Extension, fc.opts.Output.Quality, fc.opts.Output.Lossless); err != nil {
			res.Err = fmt.Errorf("failed to save %s: %w", outputPath, err)
			return res, res.Err
		}
		res.Saved = append(res.Saved, outputPath)
		fc.logger.Info("saved face", "face", crop.Index, "image", stem, "path", outputPath)
	}

	return res, nil
}

func (fc *FaceCropper) writeDebugOverlay(img image.Image, faces []types.Face, crops []cropper.CropOutput, stem string) {
	regions := make([]types.Rect, 0, len(crops))
	for _, c := range crops {
		regions = append(regions, c.Region)
	}

	overlay := fc.processor.CreateDebugOverlay(img, faces, regions)
	path := filepath.Join(fc.opts.Output.Dir, utils.DebugFilename(stem, "png"))
	if err := fc.processor.SaveImage(overlay, path, "png", 0, false); err != nil {
		fc.logger.Warn("debug overlay save failed", "path", path, "error", err)
		return
	}
	fc.logger.Debug("wrote debug overlay", "path", path)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
