package filters

import (
	"context"
	"fmt"
	"image"
	"math"

	"mooney-stimuli/internal/models"
	"mooney-stimuli/internal/opencv/safe"

	"gocv.io/x/gocv"
)

type GaussianFilter struct{}

func NewGaussianFilter() *GaussianFilter {
	return &GaussianFilter{}
}

func (g *GaussianFilter) Name() string {
	return "gaussian_filter"
}

// ShouldExecute skips blurring entirely for sigma 0.
func (g *GaussianFilter) ShouldExecute(params models.ThresholdParams) bool {
	return params.Sigma > 0
}

func (g *GaussianFilter) Apply(ctx context.Context, input *safe.Mat, params models.ThresholdParams) (*safe.Mat, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := safe.ValidateMatForOperation(input, g.Name()); err != nil {
		return nil, err
	}

	if params.Sigma <= 0 {
		return input.Clone()
	}

	return g.applyGaussianBlur(input, params.Sigma)
}

// KernelSize returns the odd kernel edge 2*round(3*sigma)+1. Halves round to
// even so sigma 0.5 gives 5 and sigma 1.5 gives 9.
func KernelSize(sigma float64) int {
	if sigma <= 0 {
		return 1
	}
	return 2*int(math.RoundToEven(3*sigma)) + 1
}

func (g *GaussianFilter) applyGaussianBlur(src *safe.Mat, sigma float64) (*safe.Mat, error) {
	dst, err := safe.NewMat(src.Rows(), src.Cols(), src.Type(), src.Tag()+"_blur")
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	kernelSize := KernelSize(sigma)

	srcMat := src.GetMat()
	dstMat := dst.GetMat()

	gocv.GaussianBlur(srcMat, &dstMat, image.Point{X: kernelSize, Y: kernelSize}, sigma, sigma, gocv.BorderDefault)

	return dst, nil
}
