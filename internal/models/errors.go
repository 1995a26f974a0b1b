package models

import (
	"errors"
	"fmt"
)

var (
	ErrNoHistory     = errors.New("nothing to undo")
	ErrStageFinished = errors.New("stage finished")
	ErrEmptyPool     = errors.New("empty pool")
	ErrInvalidAlpha  = errors.New("alpha must be a number between 0 and 1")
	ErrImageLoad     = errors.New("image load failed")
	ErrInvalidParams = errors.New("invalid threshold parameters")
	ErrNotGenerated  = errors.New("no pairing generated yet")
	ErrSizeMismatch  = errors.New("paired images differ in size")
)

// ImageLoadError identifies the file, and the pair when one is involved, that could not be read.
type ImageLoadError struct {
	Filename  string
	PairIndex int
	Cause     error
}

func (e *ImageLoadError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: %s", ErrImageLoad.Error(), e.Filename)
	if e.PairIndex > 0 {
		msg = fmt.Sprintf("%s (pair %d)", msg, e.PairIndex)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ImageLoadError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrImageLoad}
	}
	return []error{ErrImageLoad, e.Cause}
}

// EmptyPoolError names the crossing and the pool that had no members.
type EmptyPoolError struct {
	Crossing Crossing
	Pool     string
}

func (e *EmptyPoolError) Error() string {
	return fmt.Sprintf("%s: %s has no %s files", ErrEmptyPool.Error(), e.Crossing, e.Pool)
}

func (e *EmptyPoolError) Unwrap() error { return ErrEmptyPool }

// InvalidAlphaError keeps the operator input that was rejected.
type InvalidAlphaError struct {
	Input string
}

func (e *InvalidAlphaError) Error() string {
	return fmt.Sprintf("%s, got %q", ErrInvalidAlpha.Error(), e.Input)
}

func (e *InvalidAlphaError) Unwrap() error { return ErrInvalidAlpha }
