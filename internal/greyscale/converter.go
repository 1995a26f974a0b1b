// Package greyscale converts the curated colour sources into single-channel
// JPEGs for the thresholding stage.
package greyscale

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"mooney-stimuli/internal/imagestore"
	"mooney-stimuli/internal/logger"
	"mooney-stimuli/internal/models"
	"mooney-stimuli/internal/opencv/conversion"
	"mooney-stimuli/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const component = "Greyscale"

// Exts lists the inputs the converter accepts.
var Exts = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".gif"}

// Report describes a finished conversion.
type Report struct {
	Converted []string
	Skipped   []string
}

type Converter struct {
	log logger.Logger
}

func NewConverter(log logger.Logger) *Converter {
	if log == nil {
		log = logger.Nop()
	}
	return &Converter{log: log}
}

// OutputName maps cup.png to cup.jpg.
func OutputName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
}

// Run converts every supported file in inputDir into outputDir. Files that
// cannot be decoded are logged and skipped; the output folder is replaced
// only when the whole batch has been written.
func (c *Converter) Run(ctx context.Context, inputDir, outputDir string) (Report, error) {
	input, err := imagestore.Open(inputDir)
	if err != nil {
		return Report{}, err
	}
	names, err := input.List(Exts...)
	if err != nil {
		return Report{}, err
	}

	staging, err := imagestore.NewStaging(outputDir)
	if err != nil {
		return Report{}, err
	}
	defer staging.Abort()

	c.log.Info(component, "converting to greyscale", map[string]interface{}{
		"input":  inputDir,
		"output": outputDir,
		"files":  len(names),
	})

	var report Report
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}

		gray, err := c.Load(input, name)
		if err != nil {
			c.log.Error(component, err, map[string]interface{}{"file": name})
			report.Skipped = append(report.Skipped, name)
			continue
		}

		out := OutputName(name)
		if err := staging.Store().Write(out, gray); err != nil {
			return Report{}, err
		}
		report.Converted = append(report.Converted, out)
		c.log.Debug(component, "converted", map[string]interface{}{"from": name, "to": out})
	}

	if err := staging.Commit(); err != nil {
		return Report{}, err
	}

	c.log.Info(component, "greyscale complete", map[string]interface{}{
		"converted": len(report.Converted),
		"skipped":   len(report.Skipped),
	})
	return report, nil
}

// Load reads name through OpenCV and converts BGR to a single channel. Formats
// OpenCV cannot decode fall back to the Go decoders.
func (c *Converter) Load(store *imagestore.Store, name string) (*image.Gray, error) {
	mat := gocv.IMRead(store.Path(name), gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		img, err := store.ReadGray(name)
		if err != nil {
			return nil, err
		}
		return img, nil
	}

	src, err := safe.Adopt(mat, name)
	if err != nil {
		return nil, &models.ImageLoadError{Filename: name, Cause: err}
	}
	defer src.Close()

	gray, err := conversion.ConvertToGrayscale(src)
	if err != nil {
		return nil, &models.ImageLoadError{Filename: name, Cause: err}
	}
	defer gray.Close()

	img, err := conversion.MatToGray(gray)
	if err != nil {
		return nil, &models.ImageLoadError{Filename: name, Cause: fmt.Errorf("convert: %w", err)}
	}
	return img, nil
}
