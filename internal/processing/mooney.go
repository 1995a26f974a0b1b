// Package processing turns greyscale photographs into two-tone Mooney images.
package processing

import (
	"context"
	"fmt"
	"image"

	"mooney-stimuli/internal/models"
	"mooney-stimuli/internal/opencv/conversion"
	"mooney-stimuli/internal/processing/chain"
	"mooney-stimuli/internal/processing/filters"
	"mooney-stimuli/internal/processing/threshold"
)

// MooneyProcessor is a pure function of (image, sigma, threshold): Gaussian blur
// followed by a fixed global binary threshold.
type MooneyProcessor struct {
	chain *chain.ProcessingChain
}

func NewMooneyProcessor() *MooneyProcessor {
	return &MooneyProcessor{
		chain: chain.NewProcessingChain(
			filters.NewGaussianFilter(),
			threshold.NewBinaryThreshold(),
		),
	}
}

// Process never modifies src.
func (p *MooneyProcessor) Process(ctx context.Context, src *image.Gray, params models.ThresholdParams) (*image.Gray, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	input, err := conversion.GrayToMat(src, "mooney_source")
	if err != nil {
		return nil, fmt.Errorf("prepare source: %w", err)
	}
	defer input.Close()

	out, err := p.chain.Execute(ctx, input, params)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	return conversion.MatToGray(out)
}

func (p *MooneyProcessor) Steps() []string {
	return p.chain.Steps()
}
