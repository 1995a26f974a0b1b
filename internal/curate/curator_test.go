package curate

import (
	"context"
	"image"
	"image/color"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mooney-stimuli/internal/imagestore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rect(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	return img
}

func writeRaw(t *testing.T, dir string, names ...string) {
	t.Helper()
	store, err := imagestore.Open(dir)
	require.NoError(t, err)
	for _, n := range names {
		require.NoError(t, store.Write(n, rect(40, 24)))
	}
}

func TestSplit_HalvesWithoutLoss(t *testing.T) {
	c := New(rand.NewPCG(7, 7), nil)
	names := []string{"a", "b", "c", "d", "e"}

	a, b := c.Split(names)
	assert.Len(t, a, 2)
	assert.Len(t, b, 3)
	assert.ElementsMatch(t, names, append(append([]string{}, a...), b...))

	a, b = c.Split(nil)
	assert.Empty(t, a)
	assert.Empty(t, b)
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "man_cup.jpg", CleanName("a_man_cup.jpg"))
	assert.Equal(t, "cup.jpg", CleanName("b_cup.jpg"))
	assert.Equal(t, "cup.jpg", CleanName("cup.jpg"))
}

func TestCropSquare(t *testing.T) {
	out := CropSquare(rect(40, 24), 12)
	assert.Equal(t, image.Rect(0, 0, 12, 12), out.Bounds())
}

func TestRun_PopulatesSourcesAndStageDirs(t *testing.T) {
	base := t.TempDir()
	man := filepath.Join(base, "raw_man")
	nat := filepath.Join(base, "raw_nat")
	writeRaw(t, man, "cup.jpg", "pen.png", "b_chair.jpg", "lamp.jpg")
	writeRaw(t, nat, "tree.jpg", "rock.jpg", "leaf.jpg")
	require.NoError(t, os.WriteFile(filepath.Join(nat, "notes.txt"), []byte("skip"), 0o644))

	cfg := Config{
		ManufacturedDir: man,
		NaturalDir:      nat,
		SourceDir:       filepath.Join(base, "1_source_images"),
		StageDirs:       []string{filepath.Join(base, "2_grey"), filepath.Join(base, "8_experiment")},
		Size:            16,
	}

	summary, err := New(rand.NewPCG(1, 2), nil).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, Summary{"a_man_": 2, "b_man_": 2, "a_nat_": 1, "b_nat_": 2}, summary)

	out, err := imagestore.Open(cfg.SourceDir)
	require.NoError(t, err)
	names, err := out.List()
	require.NoError(t, err)
	require.Len(t, names, 7)
	for _, n := range names {
		assert.Regexp(t, `^[ab]_(man|nat)_`, n)
		assert.False(t, strings.Contains(n, "b_chair"), "stale group tag must be stripped: %s", n)

		img, err := out.Read(n)
		require.NoError(t, err)
		assert.Equal(t, 16, img.Bounds().Dx())
		assert.Equal(t, 16, img.Bounds().Dy())
	}

	for _, d := range cfg.StageDirs {
		assert.DirExists(t, d)
	}
}

func TestRun_RefusesExistingWithoutForce(t *testing.T) {
	base := t.TempDir()
	man := filepath.Join(base, "man")
	nat := filepath.Join(base, "nat")
	writeRaw(t, man, "cup.jpg", "pen.jpg")
	writeRaw(t, nat, "tree.jpg", "rock.jpg")

	source := filepath.Join(base, "1_source_images")
	require.NoError(t, os.MkdirAll(source, 0o755))
	old := filepath.Join(source, "a_man_old.jpg")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))

	cfg := Config{ManufacturedDir: man, NaturalDir: nat, SourceDir: source, Size: 10}
	c := New(rand.NewPCG(3, 4), nil)

	_, err := c.Run(context.Background(), cfg)
	require.ErrorIs(t, err, ErrSourceExists)
	assert.FileExists(t, old)

	cfg.Force = true
	_, err = c.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoFileExists(t, old)
}

func TestRun_EmptyFolderFails(t *testing.T) {
	base := t.TempDir()
	man := filepath.Join(base, "man")
	nat := filepath.Join(base, "nat")
	writeRaw(t, man, "cup.jpg")
	require.NoError(t, os.MkdirAll(nat, 0o755))

	_, err := New(rand.NewPCG(1, 1), nil).Run(context.Background(), Config{
		ManufacturedDir: man,
		NaturalDir:      nat,
		SourceDir:       filepath.Join(base, "src"),
		Size:            10,
	})
	require.Error(t, err)
	assert.NoDirExists(t, filepath.Join(base, "src"))
}
