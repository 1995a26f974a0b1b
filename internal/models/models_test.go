package models

import (
	"errors"
	"io/fs"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStimulusName(t *testing.T) {
	img, err := ParseStimulusName("b_nat_pine_cone.jpg")
	require.NoError(t, err)
	assert.Equal(t, GroupB, img.Group)
	assert.Equal(t, Natural, img.Category)
	assert.Equal(t, "pine_cone.jpg", img.Original)
	assert.Equal(t, "b_nat_pine_cone.jpg", StimulusName(img.Group, img.Category, img.Original))

	for _, bad := range []string{"cup.jpg", "c_man_cup.jpg", "a_veg_cup.jpg", "a_man_"} {
		_, err := ParseStimulusName(bad)
		assert.Error(t, err, bad)
	}
}

func TestThresholdParams_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholdParams().Validate())
	assert.NoError(t, ThresholdParams{Sigma: 0, Threshold: 0}.Validate())
	assert.NoError(t, ThresholdParams{Sigma: 15, Threshold: 255}.Validate())

	for _, p := range []ThresholdParams{
		{Sigma: -0.5, Threshold: 10},
		{Sigma: math.NaN(), Threshold: 10},
		{Sigma: math.Inf(1), Threshold: 10},
		{Sigma: 1, Threshold: -1},
		{Sigma: 1, Threshold: 256},
	} {
		assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
	}
}

func TestImageLoadError_Unwraps(t *testing.T) {
	err := error(&ImageLoadError{Filename: "a_man_cup.jpg", PairIndex: 4, Cause: fs.ErrNotExist})

	assert.ErrorIs(t, err, ErrImageLoad)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "pair 4")

	var target *ImageLoadError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "a_man_cup.jpg", target.Filename)
}

func TestTypedErrors_Unwrap(t *testing.T) {
	assert.ErrorIs(t, &EmptyPoolError{Crossing: CrossingAManBNat, Pool: "b_nat"}, ErrEmptyPool)
	assert.ErrorIs(t, &InvalidAlphaError{Input: "x"}, ErrInvalidAlpha)
}
