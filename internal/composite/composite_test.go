package composite

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"mooney-stimuli/internal/imagestore"
	"mooney-stimuli/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// halves is black on the left half and white on the right.
func halves(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x >= w/2 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func TestParseAlpha(t *testing.T) {
	for _, in := range []string{"0", "0.5", "1", " 0.25 "} {
		_, err := ParseAlpha(in)
		assert.NoError(t, err, in)
	}
	for _, in := range []string{"-0.01", "1.01", "x", "", "NaN"} {
		_, err := ParseAlpha(in)
		require.Error(t, err, in)
		assert.ErrorIs(t, err, models.ErrInvalidAlpha, in)

		var ae *models.InvalidAlphaError
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, in, ae.Input)
	}
}

func TestLayer_ForegroundOnly(t *testing.T) {
	gray := halves(4, 2)
	gray.SetGray(0, 0, color.Gray{Y: 127})
	gray.SetGray(1, 0, color.Gray{Y: 128})

	cyan := MakeCyan(gray, 0.5)
	assert.Equal(t, color.NRGBA{R: 0, G: 255, B: 255, A: 128}, cyan.NRGBAAt(0, 0))
	assert.Equal(t, uint8(0), cyan.NRGBAAt(1, 0).A, "128/255 is not below the cutoff")
	assert.Equal(t, color.NRGBA{R: 0, G: 255, B: 255, A: 128}, cyan.NRGBAAt(1, 1))
	assert.Equal(t, uint8(0), cyan.NRGBAAt(3, 1).A)

	magenta := MakeMagenta(gray, 1)
	assert.Equal(t, color.NRGBA{R: 255, G: 0, B: 255, A: 255}, magenta.NRGBAAt(0, 1))
	assert.Equal(t, uint8(0), magenta.NRGBAAt(2, 1).A)

	none := MakeCyan(gray, 0)
	for i := 3; i < len(none.Pix); i += 4 {
		assert.Equal(t, uint8(0), none.Pix[i])
	}
}

func TestCompositeOverWhite(t *testing.T) {
	gray := halves(4, 1)
	out, err := CompositeOverWhite(MakeCyan(gray, 1), MakeMagenta(image.NewGray(image.Rect(0, 0, 4, 1)), 0))
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{R: 0, G: 255, B: 255, A: 255}, out.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out.RGBAAt(3, 0))

	_, err = CompositeOverWhite(MakeCyan(halves(4, 1), 1), MakeMagenta(halves(5, 1), 1))
	assert.ErrorIs(t, err, models.ErrSizeMismatch)
}

func TestBucketFor(t *testing.T) {
	assert.Equal(t, models.CB1, BucketFor(1, ComboACyanBMagenta))
	assert.Equal(t, models.CB2, BucketFor(1, ComboBCyanAMagenta))
	assert.Equal(t, models.CB2, BucketFor(2, ComboACyanBMagenta))
	assert.Equal(t, models.CB1, BucketFor(2, ComboBCyanAMagenta))
}

type fixture struct {
	base    string
	input   *imagestore.Store
	outputs Outputs
}

func newFixture(t *testing.T, files ...string) fixture {
	t.Helper()
	base := t.TempDir()
	input, err := imagestore.Open(filepath.Join(base, "mooney"))
	require.NoError(t, err)
	for _, name := range files {
		require.NoError(t, input.Write(name, halves(8, 6)))
	}
	return fixture{
		base:  base,
		input: input,
		outputs: Outputs{
			CyanDir:     filepath.Join(base, "cyan"),
			MagentaDir:  filepath.Join(base, "magenta"),
			CombinedDir: filepath.Join(base, "combined"),
		},
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	store, err := imagestore.Open(dir)
	require.NoError(t, err)
	names, err := store.List()
	require.NoError(t, err)
	return names
}

func TestRun_WritesLayersAndBuckets(t *testing.T) {
	fx := newFixture(t, "a_man_1.jpg", "b_nat_1.jpg", "b_man_1.jpg", "a_nat_1.jpg")
	pairs := []models.Pairing{
		{PairIndex: 1, Crossing: models.CrossingAManBNat, Man: "a_man_1.jpg", Nat: "b_nat_1.jpg"},
		{PairIndex: 2, Crossing: models.CrossingBManANat, Man: "b_man_1.jpg", Nat: "a_nat_1.jpg"},
	}

	engine, err := NewEngine(fx.input.Dir(), fx.outputs, nil)
	require.NoError(t, err)

	counts, err := engine.Run(context.Background(), pairs, 0.5)
	require.NoError(t, err)
	assert.Equal(t, Counts{Pairs: 2, Cyan: 4, Magenta: 4, CB1: 2, CB2: 2}, counts)

	assert.Equal(t, []string{"1_A_cyan.png", "1_B_cyan.png", "2_A_cyan.png", "2_B_cyan.png"}, listDir(t, fx.outputs.CyanDir))
	assert.Equal(t, []string{"1_A_magenta.png", "1_B_magenta.png", "2_A_magenta.png", "2_B_magenta.png"}, listDir(t, fx.outputs.MagentaDir))
	assert.Equal(t, []string{"1_A_cyan__B_magenta.png", "2_B_cyan__A_magenta.png"}, listDir(t, filepath.Join(fx.outputs.CombinedDir, "CB1")))
	assert.Equal(t, []string{"1_B_cyan__A_magenta.png", "2_A_cyan__B_magenta.png"}, listDir(t, filepath.Join(fx.outputs.CombinedDir, "CB2")))

	cyan, err := imagestore.Open(fx.outputs.CyanDir)
	require.NoError(t, err)
	img, err := cyan.Read("1_A_cyan.png")
	require.NoError(t, err)
	_, _, _, a := img.At(0, 0).RGBA()
	assert.NotZero(t, a)
	_, _, _, a = img.At(7, 0).RGBA()
	assert.Zero(t, a)
}

func TestRun_ReplacesPreviousOutput(t *testing.T) {
	fx := newFixture(t, "a_man_1.jpg", "b_nat_1.jpg")
	require.NoError(t, os.MkdirAll(fx.outputs.CyanDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(fx.outputs.CyanDir, "9_A_cyan.png"), []byte("stale"), 0o644))

	engine, err := NewEngine(fx.input.Dir(), fx.outputs, nil)
	require.NoError(t, err)
	_, err = engine.Run(context.Background(), []models.Pairing{
		{PairIndex: 1, Crossing: models.CrossingAManBNat, Man: "a_man_1.jpg", Nat: "b_nat_1.jpg"},
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"1_A_cyan.png", "1_B_cyan.png"}, listDir(t, fx.outputs.CyanDir))
}

func TestRun_MissingImageLeavesOutputsUntouched(t *testing.T) {
	fx := newFixture(t, "a_man_1.jpg", "b_nat_1.jpg", "b_man_1.jpg")
	require.NoError(t, os.MkdirAll(fx.outputs.CyanDir, 0o755))
	marker := filepath.Join(fx.outputs.CyanDir, "keep.png")
	require.NoError(t, os.WriteFile(marker, []byte("old"), 0o644))

	engine, err := NewEngine(fx.input.Dir(), fx.outputs, nil)
	require.NoError(t, err)
	_, err = engine.Run(context.Background(), []models.Pairing{
		{PairIndex: 1, Crossing: models.CrossingAManBNat, Man: "a_man_1.jpg", Nat: "b_nat_1.jpg"},
		{PairIndex: 2, Crossing: models.CrossingBManANat, Man: "b_man_1.jpg", Nat: "a_nat_missing.jpg"},
	}, 0.5)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrImageLoad)

	var le *models.ImageLoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "a_nat_missing.jpg", le.Filename)
	assert.Equal(t, 2, le.PairIndex)

	assert.FileExists(t, marker)
	assert.NoDirExists(t, fx.outputs.MagentaDir)

	leftovers, err := filepath.Glob(filepath.Join(fx.base, ".*staging*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestRun_SizeMismatch(t *testing.T) {
	fx := newFixture(t, "a_man_1.jpg")
	require.NoError(t, fx.input.Write("b_nat_1.jpg", halves(9, 6)))

	engine, err := NewEngine(fx.input.Dir(), fx.outputs, nil)
	require.NoError(t, err)
	_, err = engine.Run(context.Background(), []models.Pairing{
		{PairIndex: 1, Crossing: models.CrossingAManBNat, Man: "a_man_1.jpg", Nat: "b_nat_1.jpg"},
	}, 0.5)
	assert.ErrorIs(t, err, models.ErrSizeMismatch)
}

func TestRun_InvalidAlphaTouchesNothing(t *testing.T) {
	fx := newFixture(t, "a_man_1.jpg", "b_nat_1.jpg")
	engine, err := NewEngine(fx.input.Dir(), fx.outputs, nil)
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), nil, 1.5)
	assert.ErrorIs(t, err, models.ErrInvalidAlpha)
	assert.NoDirExists(t, fx.outputs.CyanDir)
	assert.NoDirExists(t, fx.outputs.CombinedDir)
}

func TestNewEngine_RejectsOverlappingOutputs(t *testing.T) {
	dir := t.TempDir()
	_, err := NewEngine(dir, Outputs{CyanDir: "x", MagentaDir: "x", CombinedDir: "y"}, nil)
	assert.Error(t, err)
}
