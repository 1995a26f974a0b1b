package chain

import (
	"context"
	"fmt"

	"mooney-stimuli/internal/models"
	"mooney-stimuli/internal/opencv/safe"
)

type ProcessingStep interface {
	Apply(ctx context.Context, input *safe.Mat, params models.ThresholdParams) (*safe.Mat, error)
	Name() string
	ShouldExecute(params models.ThresholdParams) bool
}

type ProcessingChain struct {
	steps []ProcessingStep
}

func NewProcessingChain(steps ...ProcessingStep) *ProcessingChain {
	return &ProcessingChain{
		steps: steps,
	}
}

// Execute runs every applicable step in order. The input is never closed; the
// returned Mat is always a fresh allocation owned by the caller.
func (pc *ProcessingChain) Execute(ctx context.Context, input *safe.Mat, params models.ThresholdParams) (*safe.Mat, error) {
	current := input

	release := func() {
		if current != input {
			current.Close()
		}
	}

	for _, step := range pc.steps {
		if err := ctx.Err(); err != nil {
			release()
			return nil, err
		}

		if !step.ShouldExecute(params) {
			continue
		}

		result, err := step.Apply(ctx, current, params)
		if err != nil {
			release()
			return nil, fmt.Errorf("step %s failed: %w", step.Name(), err)
		}

		release()
		current = result
	}

	if current == input {
		return input.Clone()
	}
	return current, nil
}

func (pc *ProcessingChain) Steps() []string {
	names := make([]string, 0, len(pc.steps))
	for _, step := range pc.steps {
		names = append(names, step.Name())
	}
	return names
}
