package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/menta2k/facecrop/internal/utils"
	"github.com/menta2k/facecrop/pkg/cropper"
	"github.com/menta2k/facecrop/pkg/detection"
	"github.com/menta2k/facecrop/pkg/postprocess"
)

// Crop strategies
const (
	StrategyAbsolute = "absolute"
	StrategyRelative = "relative"
)

// Error policies
const (
	OnErrorAbort = "abort"
	OnErrorSkip  = "skip"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError describes a single out-of-range setting.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Config holds the application configuration
type Config struct {
	Crop        CropConfig        `json:"crop"`
	PostProcess PostProcessConfig `json:"post_process"`
	Detector    DetectorConfig    `json:"detector"`
	Output      OutputConfig      `json:"output"`
	Run         RunConfig         `json:"run"`
}

// CropConfig holds the crop geometry settings
type CropConfig struct {
	Strategy         string  `json:"strategy"`
	TopPadding       float64 `json:"top_padding"`
	AspectRatio      float64 `json:"aspect_ratio"`
	ProportionOfFace float64 `json:"proportion_of_face"`
	// Height and Width size absolute crops and are the resize and
	// filter target for both strategies.
	Height uint `json:"height"`
	Width  uint `json:"width"`
}

// PostProcessConfig holds the resize and filter switches
type PostProcessConfig struct {
	Resize       bool `json:"resize"`
	FilterBySize bool `json:"filter_by_size"`
}

// DetectorConfig selects and tunes the face detector
type DetectorConfig struct {
	Backend string                 `json:"backend"`
	Cascade string                 `json:"cascade"`
	URL     string                 `json:"url"`
	Pigo    detection.PigoConfig   `json:"pigo"`
	Vision  detection.VisionConfig `json:"vision"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Format   string `json:"format"`
	Quality  int    `json:"quality"`
	Lossless bool   `json:"lossless"`
	Debug    bool   `json:"debug"`
}

// RunConfig holds batch execution settings
type RunConfig struct {
	Workers int    `json:"workers"`
	OnError string `json:"on_error"`
}

// Supported detector backends
var Backends = []string{"pigo", "ollama", "llamacpp"}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Crop: CropConfig{
			Strategy:         StrategyRelative,
			TopPadding:       0.1,
			AspectRatio:      1.0,
			ProportionOfFace: 0.3,
			Height:           1024,
			Width:            1024,
		},
		Detector: DetectorConfig{
			Backend: "pigo",
			Cascade: "cascade/facefinder",
			Pigo:    detection.DefaultPigoConfig(),
			Vision:  detection.DefaultVisionConfig(),
		},
		Output: OutputConfig{
			Format:  "jpg",
			Quality: 90,
		},
		Run: RunConfig{
			Workers: 1,
			OnError: OnErrorAbort,
		},
	}
}

// LoadFromFile loads configuration from a JSON file on top of the defaults
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks every range before any image is touched
func (c *Config) Validate() error {
	if c.Crop.TopPadding < 0 || c.Crop.TopPadding > 1 {
		return invalid("crop.top_padding", "must be between 0.0 and 1.0")
	}

	switch c.Crop.Strategy {
	case StrategyAbsolute:
		if c.Crop.Height == 0 || c.Crop.Width == 0 {
			return invalid("crop.height/width", "must be positive for the absolute strategy")
		}
	case StrategyRelative:
		if c.Crop.AspectRatio <= 0 {
			return invalid("crop.aspect_ratio", "must be greater than 0")
		}
		// zero would divide the face height
		if c.Crop.ProportionOfFace <= 0 || c.Crop.ProportionOfFace > 1 {
			return invalid("crop.proportion_of_face", "must be greater than 0.0 and at most 1.0")
		}
	default:
		return invalid("crop.strategy", fmt.Sprintf("must be %q or %q, got %q", StrategyAbsolute, StrategyRelative, c.Crop.Strategy))
	}

	if c.PostProcess.Resize && (c.Crop.Height == 0 || c.Crop.Width == 0) {
		return invalid("crop.height/width", "must be positive when resize is enabled")
	}

	if !contains(Backends, c.Detector.Backend) {
		return invalid("detector.backend", fmt.Sprintf("must be one of %s", strings.Join(Backends, ", ")))
	}
	if c.Detector.Backend == "pigo" && c.Detector.Cascade == "" {
		return invalid("detector.cascade", "is required for the pigo backend")
	}
	if p := c.Detector.Pigo; p.MinSize < 1 || p.ShiftFactor <= 0 || p.ScaleFactor <= 1 {
		return invalid("detector.pigo", "needs min_size >= 1, shift_factor > 0 and scale_factor > 1")
	}

	switch strings.ToLower(c.Output.Format) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return invalid("output.format", fmt.Sprintf("unsupported format %q", c.Output.Format))
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return invalid("output.quality", "must be between 1 and 100")
	}

	if c.Run.Workers < 1 {
		return invalid("run.workers", "must be at least 1")
	}
	if c.Run.OnError != OnErrorAbort && c.Run.OnError != OnErrorSkip {
		return invalid("run.on_error", fmt.Sprintf("must be %q or %q", OnErrorAbort, OnErrorSkip))
	}

	return nil
}

// CropParams builds the crop geometry parameters. Call Validate first.
func (c *Config) CropParams() cropper.CropParams {
	var kind cropper.CropKind
	if c.Crop.Strategy == StrategyAbsolute {
		kind = cropper.Absolute{Height: c.Crop.Height, Width: c.Crop.Width}
	} else {
		kind = cropper.Relative{AspectRatio: c.Crop.AspectRatio, ProportionOfFace: c.Crop.ProportionOfFace}
	}
	return cropper.CropParams{TopPadding: c.Crop.TopPadding, Kind: kind}
}

// PostProcessParams builds the post-processing parameters.
func (c *Config) PostProcessParams() postprocess.Params {
	return postprocess.Params{
		Resize:       c.PostProcess.Resize,
		FilterBySize: c.PostProcess.FilterBySize,
		Height:       c.Crop.Height,
		Width:        c.Crop.Width,
	}
}

// Load reads the configuration at path. An empty path falls back to the
// file at GetConfigPath when it exists, and to Default otherwise.
func Load(path string) (*Config, error) {
	if path == "" {
		path = GetConfigPath()
		if !utils.FileExists(path) {
			return Default(), nil
		}
	}
	return LoadFromFile(path)
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "facecrop", "config.json")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
