package imagestore

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"mooney-stimuli/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestStore_ListFiltersAndSorts(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"b.jpg", "a.JPG", "c.png", "notes.txt"} {
		require.NoError(t, os.WriteFile(store.Path(name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(store.Path("sub.jpg"), 0o755))

	names, err := store.List(".jpg")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.JPG", "b.jpg"}, names)

	all, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.JPG", "b.jpg", "c.png", "notes.txt"}, all)
}

func TestStore_WriteReadGray(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Write("white.jpg", solid(6, 4, 255)))
	require.NoError(t, store.Write("black.png", solid(6, 4, 0)))

	white, err := store.ReadGray("white.jpg")
	require.NoError(t, err)
	assert.Equal(t, 6, white.Bounds().Dx())
	for _, v := range white.Pix {
		assert.Equal(t, uint8(255), v)
	}

	black, err := store.ReadGray("black.png")
	require.NoError(t, err)
	for _, v := range black.Pix {
		assert.Equal(t, uint8(0), v)
	}

	leftovers, err := filepath.Glob(filepath.Join(store.Dir(), ".*tmp*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestStore_ReadMissingIsImageLoadError(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = store.ReadGray("nope.jpg")
	assert.ErrorIs(t, err, models.ErrImageLoad)

	require.NoError(t, os.WriteFile(store.Path("corrupt.jpg"), []byte("not a jpeg"), 0o644))
	_, err = store.ReadGray("corrupt.jpg")
	assert.ErrorIs(t, err, models.ErrImageLoad)
}

func TestStore_RemoveMissingIsNoop(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, store.Remove("ghost.jpg"))
}

func TestToGray_ConvertsColour(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img.Set(1, 0, color.NRGBA{A: 255})

	g := ToGray(img)
	assert.Equal(t, uint8(255), g.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), g.GrayAt(1, 0).Y)
}

func TestStaging_CommitReplacesTarget(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "5_cyan")
	require.NoError(t, os.MkdirAll(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "stale.png"), []byte("old"), 0o644))

	st, err := NewStaging(target)
	require.NoError(t, err)
	require.NoError(t, st.Store().WriteBytes("fresh.png", []byte("new")))

	_, err = os.Stat(filepath.Join(target, "fresh.png"))
	assert.True(t, os.IsNotExist(err), "staged file must not be visible before commit")

	require.NoError(t, st.Commit())
	require.NoError(t, st.Abort())

	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh.png", entries[0].Name())

	siblings, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, siblings, 1)
}

func TestStaging_AbortLeavesTargetUntouched(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "7_superimposed")
	require.NoError(t, os.MkdirAll(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "keep.png"), []byte("old"), 0o644))

	st, err := NewStaging(target)
	require.NoError(t, err)
	sub, err := st.Sub("CB1")
	require.NoError(t, err)
	require.NoError(t, sub.WriteBytes("1.png", []byte("x")))

	require.NoError(t, st.Abort())

	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keep.png", entries[0].Name())

	siblings, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, siblings, 1)
}
