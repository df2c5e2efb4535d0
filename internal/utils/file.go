package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotDirectory is returned when the output path exists as a file.
var ErrNotDirectory = errors.New("output path is not a directory")

// imageExts lists the inputs picked up from a directory
var imageExts = []string{"jpg", "jpeg", "png"}

// GetFileExtension returns the file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsImageFile checks if a file has a supported input extension
func IsImageFile(filename string) bool {
	ext := GetFileExtension(filename)
	for _, imgExt := range imageExts {
		if ext == imgExt {
			return true
		}
	}
	return false
}

// Stem returns the file name without directory and extension
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CropFilename names the crop of face index taken from the image stem.
func CropFilename(stem string, index int, confidence float64, ext string) string {
	return fmt.Sprintf("%s-%d-%.3f.%s", stem, index, confidence, ext)
}

// DebugFilename names the overlay written for an image in debug mode.
func DebugFilename(stem, ext string) string {
	return fmt.Sprintf("%s-debug.%s", stem, ext)
}

// ListImageFiles lists the image files directly inside dir, sorted by name
func ListImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsImageFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)

	return files, nil
}

// ResolveInputs expands an input path to the images to process
func ResolveInputs(path string) ([]string, error) {
	if FileExists(path) {
		return []string{path}, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("input path does not exist: %w", err)
	}
	return ListImageFiles(path)
}

// PrepareOutputDir creates dir when missing
func PrepareOutputDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil && !info.IsDir() {
		return fmt.Errorf("%s: %w", dir, ErrNotDirectory)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
