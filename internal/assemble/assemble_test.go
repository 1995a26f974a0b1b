package assemble

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mooney-stimuli/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSuperName(t *testing.T) {
	assert.Equal(t, "3_super_CB1_12.png", SuperName(models.CB1, "12_A_cyan__B_magenta.png"))
	assert.Equal(t, "3_super_CB2_3.png", SuperName(models.CB2, "3_B_cyan__A_magenta.png"))
}

func TestRun_CopiesWithPresentationNames(t *testing.T) {
	base := t.TempDir()
	cfg := Config{
		GreyDir:         filepath.Join(base, "2_grey"),
		MooneyDir:       filepath.Join(base, "3_mooney"),
		SuperimposedDir: filepath.Join(base, "7_superimposed"),
		ExperimentDir:   filepath.Join(base, "8_experiment"),
	}
	touch(t, filepath.Join(cfg.GreyDir, "a_man_cup.jpg"), "grey")
	touch(t, filepath.Join(cfg.GreyDir, "notes.txt"), "skip")
	touch(t, filepath.Join(cfg.MooneyDir, "a_man_cup.jpg"), "mooney")
	touch(t, filepath.Join(cfg.SuperimposedDir, "CB1", "1_A_cyan__B_magenta.png"), "cb1")
	touch(t, filepath.Join(cfg.SuperimposedDir, "CB2", "1_B_cyan__A_magenta.png"), "cb2")

	n, err := New(nil).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	for name, want := range map[string]string{
		"1_greyscale_a_man_cup.jpg": "grey",
		"2_mooney_a_man_cup.jpg":    "mooney",
		"3_super_CB1_1.png":         "cb1",
		"3_super_CB2_1.png":         "cb2",
	} {
		got, err := os.ReadFile(filepath.Join(cfg.ExperimentDir, name))
		require.NoError(t, err, name)
		assert.Equal(t, want, string(got))
	}
}
