package utils

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCropFilename(t *testing.T) {
	got := CropFilename("holiday", 2, 0.98765, "jpg")
	if got != "holiday-2-0.988.jpg" {
		t.Errorf("Unexpected name %q", got)
	}
}

func TestStem(t *testing.T) {
	if got := Stem("/a/b/photo.test.JPG"); got != "photo.test" {
		t.Errorf("Expected photo.test, got %q", got)
	}
}

func TestIsImageFile(t *testing.T) {
	for _, name := range []string{"a.jpg", "b.JPEG", "c.png"} {
		if !IsImageFile(name) {
			t.Errorf("%s should be an image", name)
		}
	}
	for _, name := range []string{"a.gif", "b.txt", "noext"} {
		if IsImageFile(name) {
			t.Errorf("%s should not be an image", name)
		}
	}
}

func TestResolveInputs(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.png"))
	touch(t, filepath.Join(dir, "a.jpg"))
	touch(t, filepath.Join(dir, "notes.txt"))
	if err := os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(dir, "nested.jpg", "c.jpg"))

	files, err := ResolveInputs(dir)
	if err != nil {
		t.Fatalf("ResolveInputs failed: %v", err)
	}
	want := []string{filepath.Join(dir, "a.jpg"), filepath.Join(dir, "b.png")}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Expected %v, got %v", want, files)
	}

	single, err := ResolveInputs(want[0])
	if err != nil || len(single) != 1 || single[0] != want[0] {
		t.Errorf("Expected single file, got %v (%v)", single, err)
	}

	if _, err := ResolveInputs(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for missing path")
	}
}

func TestPrepareOutputDir(t *testing.T) {
	dir := t.TempDir()

	out := filepath.Join(dir, "x", "y")
	if err := PrepareOutputDir(out); err != nil {
		t.Fatalf("PrepareOutputDir failed: %v", err)
	}
	if info, err := os.Stat(out); err != nil || !info.IsDir() {
		t.Error("Expected output directory to be created")
	}

	file := filepath.Join(dir, "file")
	touch(t, file)
	if err := PrepareOutputDir(file); !errors.Is(err, ErrNotDirectory) {
		t.Errorf("Expected ErrNotDirectory, got %v", err)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.jpg")
	touch(t, file)

	if !FileExists(file) {
		t.Errorf("Expected %s to exist", file)
	}
	if FileExists(dir) {
		t.Error("Expected a directory not to count as a file")
	}
	if FileExists(filepath.Join(dir, "missing.jpg")) {
		t.Error("Expected missing file not to exist")
	}
}
