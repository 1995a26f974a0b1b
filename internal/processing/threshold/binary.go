package threshold

import (
	"context"
	"fmt"

	"mooney-stimuli/internal/models"
	"mooney-stimuli/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// BinaryThreshold maps pixels above the level to 255 and everything else to 0.
type BinaryThreshold struct{}

func NewBinaryThreshold() *BinaryThreshold {
	return &BinaryThreshold{}
}

func (b *BinaryThreshold) Name() string {
	return "binary_threshold"
}

func (b *BinaryThreshold) ShouldExecute(models.ThresholdParams) bool {
	return true
}

func (b *BinaryThreshold) Apply(ctx context.Context, input *safe.Mat, params models.ThresholdParams) (*safe.Mat, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := safe.ValidateSingleChannel(input, b.Name()); err != nil {
		return nil, err
	}
	if params.Threshold < 0 || params.Threshold > models.MaxThreshold {
		return nil, fmt.Errorf("%w: threshold %d", models.ErrInvalidParams, params.Threshold)
	}

	dst, err := safe.NewMat(input.Rows(), input.Cols(), input.Type(), input.Tag()+"_binary")
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	srcMat := input.GetMat()
	dstMat := dst.GetMat()
	gocv.Threshold(srcMat, &dstMat, float32(params.Threshold), 255, gocv.ThresholdBinary)

	return dst, nil
}
