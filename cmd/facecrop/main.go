package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/menta2k/facecrop"
	"github.com/menta2k/facecrop/internal/config"
	"github.com/menta2k/facecrop/internal/utils"
	"github.com/menta2k/facecrop/pkg/client"
	"github.com/menta2k/facecrop/pkg/detection"
	"github.com/menta2k/facecrop/pkg/llamacpp"
	"github.com/menta2k/facecrop/pkg/ollama"
	"github.com/menta2k/facecrop/pkg/processing"
	"github.com/menta2k/facecrop/pkg/types"
)

const usage = `facecrop extracts crops of all faces within a given image (.png|.jpeg|.jpg)
or directory of images.

Crops are calculated based on the face bounding box and can be either absolute (pixels)
or relative to the face size (proportion of the face height to crop). Each crop is then
optionally resized to the given size and/or filtered out.

usage: %s [flags] <image_path_or_dir> <output_dir>

`

// verbosity counts repeated -v flags
type verbosity int

func (v *verbosity) String() string   { return strconv.Itoa(int(*v)) }
func (v *verbosity) IsBoolFlag() bool { return true }
func (v *verbosity) Set(s string) error {
	on, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if on {
		*v++
	}
	return nil
}

// level maps the -v count to a log level: none is info, one is debug and
// two or more is trace.
func (v verbosity) level() slog.Level {
	switch {
	case v >= 2:
		return facecrop.LevelTrace
	case v == 1:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func replaceLevelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= facecrop.LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

func main() {
	def := config.Default()

	var configPath string
	var strategy, backend, cascade, model, url, ext, onError string
	var aspectRatio, topPadding, proportion float64
	var height, width uint
	var resize, filterBySize, debug, lossless bool
	var quality, workers, sendSize int
	var verbose verbosity

	flag.StringVar(&configPath, "config", "", "JSON configuration file, defaults to "+config.GetConfigPath()+" when present; explicit flags override it")
	flag.StringVar(&strategy, "strategy", def.Crop.Strategy, `strategy used to crop faces: "absolute" or "relative"`)
	flag.Float64Var(&aspectRatio, "aspect_ratio", def.Crop.AspectRatio, "aspect ratio (width:height) of relative crops, 1.0 is square")
	flag.Float64Var(&topPadding, "top_padding", def.Crop.TopPadding, "portion of the crop height above the face (0.0..1.0)")
	flag.Float64Var(&proportion, "proportion_of_face", def.Crop.ProportionOfFace, "portion of the crop height taken by the face (0.0..1.0)")
	flag.UintVar(&height, "height", def.Crop.Height, "crop height for strategy=absolute, resize/filter target otherwise")
	flag.UintVar(&width, "width", def.Crop.Width, "crop width for strategy=absolute, resize/filter target otherwise")
	flag.BoolVar(&resize, "resize", def.PostProcess.Resize, "resize crops to -width x -height")
	flag.BoolVar(&filterBySize, "filter_by_size", def.PostProcess.FilterBySize, "drop crops smaller than -width x -height")

	flag.StringVar(&backend, "detector", def.Detector.Backend, "face detector: pigo, ollama or llamacpp")
	flag.StringVar(&cascade, "cascade", def.Detector.Cascade, "pigo facefinder cascade file")
	flag.StringVar(&model, "model", def.Detector.Vision.Model, "vision model name (ollama/llamacpp)")
	flag.StringVar(&url, "url", "", "vision server URL (defaults: ollama=http://localhost:11434, llamacpp=http://localhost:8080)")
	flag.IntVar(&sendSize, "sendsize", def.Detector.Vision.SendSize, "max long side sent to the vision model (px), 0=original")

	flag.StringVar(&ext, "ext", def.Output.Format, "output format for crops: jpg|png|webp")
	flag.IntVar(&quality, "quality", def.Output.Quality, "JPEG/WebP output quality (1-100)")
	flag.BoolVar(&lossless, "lossless", def.Output.Lossless, "WebP lossless mode")
	flag.BoolVar(&debug, "debug", def.Output.Debug, "write an overlay of faces and crop regions per image")

	flag.IntVar(&workers, "workers", def.Run.Workers, "number of images processed concurrently")
	flag.StringVar(&onError, "on_error", def.Run.OnError, `what to do when an image fails: "abort" or "skip"`)
	flag.Var(&verbose, "v", "verbose logging: -v for debug, -v -v for trace")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage, filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	inputPath, outputDir := flag.Arg(0), flag.Arg(1)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       verbose.level(),
		ReplaceAttr: replaceLevelNames,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "strategy":
			cfg.Crop.Strategy = strings.ToLower(strategy)
		case "aspect_ratio":
			cfg.Crop.AspectRatio = aspectRatio
		case "top_padding":
			cfg.Crop.TopPadding = topPadding
		case "proportion_of_face":
			cfg.Crop.ProportionOfFace = proportion
		case "height":
			cfg.Crop.Height = height
		case "width":
			cfg.Crop.Width = width
		case "resize":
			cfg.PostProcess.Resize = resize
		case "filter_by_size":
			cfg.PostProcess.FilterBySize = filterBySize
		case "detector":
			cfg.Detector.Backend = backend
		case "cascade":
			cfg.Detector.Cascade = cascade
		case "model":
			cfg.Detector.Vision.Model = model
		case "url":
			cfg.Detector.URL = url
		case "sendsize":
			cfg.Detector.Vision.SendSize = sendSize
		case "ext":
			cfg.Output.Format = strings.ToLower(ext)
		case "quality":
			cfg.Output.Quality = quality
		case "lossless":
			cfg.Output.Lossless = lossless
		case "debug":
			cfg.Output.Debug = debug
		case "workers":
			cfg.Run.Workers = workers
		case "on_error":
			cfg.Run.OnError = onError
		}
	})

	logger.Info("running with",
		"image_path_or_dir", inputPath,
		"output_dir", outputDir,
		"strategy", cfg.Crop.Strategy,
		"aspect_ratio", cfg.Crop.AspectRatio,
		"top_padding", cfg.Crop.TopPadding,
		"proportion_of_face", cfg.Crop.ProportionOfFace,
		"height", cfg.Crop.Height,
		"width", cfg.Crop.Width,
		"resize", cfg.PostProcess.Resize,
		"filter_by_size", cfg.PostProcess.FilterBySize,
		"detector", cfg.Detector.Backend,
		"workers", cfg.Run.Workers,
		"on_error", cfg.Run.OnError,
		"verbose", int(verbose),
	)

	logger.Info("checking args")
	if err := cfg.Validate(); err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	var paths []string
	if processing.IsURL(inputPath) {
		paths = []string{inputPath}
	} else {
		var err error
		if paths, err = utils.ResolveInputs(inputPath); err != nil {
			log.Fatal(err)
		}
	}
	if err := utils.PrepareOutputDir(outputDir); err != nil {
		log.Fatal(err)
	}
	logger.Info("found images", "count", len(paths))

	logger.Info("instantiating face detector", "backend", cfg.Detector.Backend)
	detector, err := newDetector(cfg)
	if err != nil {
		log.Fatalf("failed to create face detector: %v", err)
	}

	policy := facecrop.AbortOnError
	if cfg.Run.OnError == config.OnErrorSkip {
		policy = facecrop.SkipOnError
	}

	output := types.OutputConfig{
		Dir:       outputDir,
		Extension: cfg.Output.Format,
		Quality:   cfg.Output.Quality,
		Lossless:  cfg.Output.Lossless,
	}

	fc, err := facecrop.New(facecrop.Options{
		Detector:    detector,
		Crop:        cfg.CropParams(),
		PostProcess: cfg.PostProcessParams(),
		Output:      output,
		Workers:     cfg.Run.Workers,
		OnError:     policy,
		Debug:       cfg.Output.Debug,
		Logger:      logger,
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("starting inference and cropping")
	summary, err := fc.Run(ctx, paths)
	logger.Info("finished processing images",
		"images", summary.Images,
		"faces", summary.Faces,
		"saved", summary.Saved,
		"no_faces", summary.NoFaces,
		"too_small", summary.Discarded,
		"outside_image", summary.Empty,
		"failed", summary.Failed,
	)
	if err != nil {
		stop()
		log.Fatal(err)
	}
}

func newDetector(cfg *config.Config) (detection.Detector, error) {
	var visionClient client.VisionClient
	var err error

	switch cfg.Detector.Backend {
	case "pigo":
		return detection.NewPigoDetectorFromFile(cfg.Detector.Cascade, cfg.Detector.Pigo)
	case "ollama":
		url := cfg.Detector.URL
		if url == "" {
			url = "http://localhost:11434"
		}
		visionClient, err = ollama.NewClient(url)
	case "llamacpp":
		url := cfg.Detector.URL
		if url == "" {
			url = "http://localhost:8080"
		}
		visionClient, err = llamacpp.NewClient(url)
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Detector.Backend)
	}
	if err != nil {
		return nil, err
	}
	return detection.NewVisionDetector(visionClient, cfg.Detector.Vision), nil
}
