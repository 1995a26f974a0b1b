// Package curate builds the stimulus source folder from two raw photo
// folders: a random A/B split per category, partition-prefixed names and a
// centre square crop.
package curate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand/v2"
	"os"
	"strings"

	"mooney-stimuli/internal/imagestore"
	"mooney-stimuli/internal/logger"
	"mooney-stimuli/internal/models"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/stat/sampleuv"
)

const component = "Curator"

// ErrSourceExists is returned when the source folder already has files and
// the run was not forced.
var ErrSourceExists = errors.New("source folder already has content")

// ImageExts are the raster types picked up from the raw folders.
var ImageExts = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".gif"}

type Config struct {
	ManufacturedDir string
	NaturalDir      string
	SourceDir       string
	StageDirs       []string
	Size            int
	Force           bool
}

// Summary counts what landed in each partition.
type Summary map[string]int

type Curator struct {
	rng *rand.Rand
	log logger.Logger
}

func New(src rand.Source, log logger.Logger) *Curator {
	if log == nil {
		log = logger.Nop()
	}
	return &Curator{rng: rand.New(src), log: log}
}

// Split shuffles names and returns the first half (rounded down) as group A
// and the rest as group B.
func (c *Curator) Split(names []string) (a, b []string) {
	perm := make([]int, len(names))
	if len(names) > 0 {
		sampleuv.WithoutReplacement(perm, len(names), c.rng)
	}
	shuffled := make([]string, len(names))
	for i, idx := range perm {
		shuffled[i] = names[idx]
	}
	mid := len(shuffled) / 2
	return shuffled[:mid], shuffled[mid:]
}

// CleanName drops a leftover a_/b_ group tag from a previous run.
func CleanName(name string) string {
	if strings.HasPrefix(name, "a_") || strings.HasPrefix(name, "b_") {
		return name[2:]
	}
	return name
}

// CropSquare takes the largest centred square and resamples it to size×size.
func CropSquare(img image.Image, size int) *image.NRGBA {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	square := imaging.CropCenter(img, side, side)
	return imaging.Resize(square, size, size, imaging.Lanczos)
}

// Run populates the source folder and creates the remaining stage folders.
// The source folder is staged and only replaced once every file is written.
func (c *Curator) Run(ctx context.Context, cfg Config) (Summary, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("crop size must be positive, got %d", cfg.Size)
	}

	categories := []struct {
		cat models.Category
		dir string
	}{
		{models.Manufactured, cfg.ManufacturedDir},
		{models.Natural, cfg.NaturalDir},
	}

	inputs := make(map[models.Category][]string, len(categories))
	stores := make(map[models.Category]*imagestore.Store, len(categories))
	for _, k := range categories {
		if _, err := os.Stat(k.dir); err != nil {
			return nil, fmt.Errorf("%s folder: %w", k.cat, err)
		}
		store, err := imagestore.Open(k.dir)
		if err != nil {
			return nil, err
		}
		names, err := store.List(ImageExts...)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("no images found in the %s folder %s", k.cat, k.dir)
		}
		inputs[k.cat] = names
		stores[k.cat] = store
	}

	if err := c.checkTarget(cfg); err != nil {
		return nil, err
	}

	staging, err := imagestore.NewStaging(cfg.SourceDir)
	if err != nil {
		return nil, err
	}
	defer staging.Abort()

	c.log.Info(component, "curating sources", map[string]interface{}{
		"manufactured": len(inputs[models.Manufactured]),
		"natural":      len(inputs[models.Natural]),
		"size":         cfg.Size,
		"target":       cfg.SourceDir,
	})

	summary := Summary{}
	for _, k := range categories {
		a, b := c.Split(inputs[k.cat])
		for _, part := range []struct {
			group models.Group
			names []string
		}{{models.GroupA, a}, {models.GroupB, b}} {
			for _, name := range part.names {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				dest := models.StimulusName(part.group, k.cat, CleanName(name))
				if err := c.copyCropped(stores[k.cat], name, staging.Store(), dest, cfg.Size); err != nil {
					c.log.Error(component, err, map[string]interface{}{"file": name})
					return nil, err
				}
				summary[models.Prefix(part.group, k.cat)]++
			}
		}
	}

	if err := staging.Commit(); err != nil {
		return nil, err
	}

	for _, dir := range cfg.StageDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	c.log.Info(component, "sources ready", map[string]interface{}{
		"a_man": summary[models.Prefix(models.GroupA, models.Manufactured)],
		"b_man": summary[models.Prefix(models.GroupB, models.Manufactured)],
		"a_nat": summary[models.Prefix(models.GroupA, models.Natural)],
		"b_nat": summary[models.Prefix(models.GroupB, models.Natural)],
	})
	return summary, nil
}

func (c *Curator) checkTarget(cfg Config) error {
	entries, err := os.ReadDir(cfg.SourceDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("inspect %s: %w", cfg.SourceDir, err)
	}
	if len(entries) > 0 && !cfg.Force {
		return fmt.Errorf("%w: %s", ErrSourceExists, cfg.SourceDir)
	}
	return nil
}

func (c *Curator) copyCropped(from *imagestore.Store, name string, to *imagestore.Store, dest string, size int) error {
	img, err := from.Read(name)
	if err != nil {
		return err
	}
	if err := to.Write(dest, CropSquare(img, size)); err != nil {
		return err
	}
	c.log.Debug(component, "source written", map[string]interface{}{"from": name, "to": dest})
	return nil
}
