// Package imagestore gives the pipeline stages filename-keyed access to a flat
// directory of raster files.
package imagestore

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mooney-stimuli/internal/models"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

type Store struct {
	dir string
}

// Open creates dir when it is missing.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("image directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// List returns regular files whose extension matches one of exts
// (case-insensitive), sorted lexicographically. No exts lists everything.
func (s *Store) List(exts ...string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if len(exts) > 0 && !hasExt(e.Name(), exts) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range exts {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

func (s *Store) Exists(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && info.Mode().IsRegular()
}

// Read decodes any supported raster file.
func (s *Store) Read(name string) (image.Image, error) {
	img, err := imaging.Open(s.Path(name))
	if err != nil {
		return nil, &models.ImageLoadError{Filename: name, Cause: err}
	}
	return img, nil
}

// ReadGray decodes name as single-channel intensity.
func (s *Store) ReadGray(name string) (*image.Gray, error) {
	img, err := s.Read(name)
	if err != nil {
		return nil, err
	}
	return ToGray(img), nil
}

// ToGray returns img unchanged when it already is greyscale.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Over)
	return gray
}

// Write encodes img in the format implied by the name's extension, replacing
// any existing file via rename so readers never see a half-written image.
func (s *Store) Write(name string, img image.Image) error {
	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	return s.writeAtomic(name, func(f *os.File) error {
		return imaging.Encode(f, img, format, imaging.JPEGQuality(95))
	})
}

func (s *Store) ReadBytes(name string) ([]byte, error) {
	return os.ReadFile(s.Path(name))
}

func (s *Store) WriteBytes(name string, data []byte) error {
	return s.writeAtomic(name, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

// Remove deletes name; a missing file is not an error.
func (s *Store) Remove(name string) error {
	err := os.Remove(s.Path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

func (s *Store) writeAtomic(name string, fill func(*os.File) error) error {
	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp.*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := fill(tmp); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	committed = true
	return nil
}
