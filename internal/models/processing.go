package models

import (
	"fmt"
	"math"
)

const (
	DefaultSigma     = 2.0
	DefaultThreshold = 127
	MaxThreshold     = 255
)

// ThresholdParams are the two knobs of the Mooney transform.
type ThresholdParams struct {
	Sigma     float64
	Threshold int
}

// DefaultThresholdParams matches the starting slider positions of the operator front end.
func DefaultThresholdParams() ThresholdParams {
	return ThresholdParams{Sigma: DefaultSigma, Threshold: DefaultThreshold}
}

// Validate rejects negative or non-finite sigma and thresholds outside [0,255].
func (p ThresholdParams) Validate() error {
	if math.IsNaN(p.Sigma) || math.IsInf(p.Sigma, 0) || p.Sigma < 0 {
		return fmt.Errorf("%w: sigma %v must be a finite value >= 0", ErrInvalidParams, p.Sigma)
	}
	if p.Threshold < 0 || p.Threshold > MaxThreshold {
		return fmt.Errorf("%w: threshold %d outside [0,%d]", ErrInvalidParams, p.Threshold, MaxThreshold)
	}
	return nil
}

// ThresholdRecord is one finalised row of the threshold ledger.
type ThresholdRecord struct {
	Filename string
	ThresholdParams
}

// Crossing labels which group pools were paired.
type Crossing string

const (
	CrossingAManBNat Crossing = "a_man_b_nat"
	CrossingBManANat Crossing = "b_man_a_nat"
)

// Pairing links one manufactured and one natural Mooney image.
type Pairing struct {
	PairIndex int
	Crossing  Crossing
	Man       string
	Nat       string
}

// Bucket is a counterbalance presentation bucket.
type Bucket string

const (
	CB1 Bucket = "CB1"
	CB2 Bucket = "CB2"
)
