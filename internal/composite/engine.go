// Package composite renders paired Mooney images into cyan and magenta layers
// and counterbalanced superimpositions.
package composite

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"mooney-stimuli/internal/imagestore"
	"mooney-stimuli/internal/logger"
	"mooney-stimuli/internal/models"
)

const component = "Composite"

// Outputs are the three folders a run replaces.
type Outputs struct {
	CyanDir     string
	MagentaDir  string
	CombinedDir string
}

func (o Outputs) validate() error {
	if strings.TrimSpace(o.CyanDir) == "" || strings.TrimSpace(o.MagentaDir) == "" || strings.TrimSpace(o.CombinedDir) == "" {
		return errors.New("cyan, magenta and combined output folders are required")
	}
	dirs := []string{filepath.Clean(o.CyanDir), filepath.Clean(o.MagentaDir), filepath.Clean(o.CombinedDir)}
	if dirs[0] == dirs[1] || dirs[0] == dirs[2] || dirs[1] == dirs[2] {
		return errors.New("cyan, magenta and combined output folders must differ")
	}
	return nil
}

// Counts summarises a finished run.
type Counts struct {
	Pairs   int
	Cyan    int
	Magenta int
	CB1     int
	CB2     int
}

// Combo identifies which superimposition of a pair is meant.
type Combo int

const (
	// ComboACyanBMagenta is combo1: A's cyan layer under B's magenta layer.
	ComboACyanBMagenta Combo = iota + 1
	// ComboBCyanAMagenta is combo2: B's cyan layer under A's magenta layer.
	ComboBCyanAMagenta
)

// BucketFor routes a combo by pair index parity: odd indices send combo1 to
// CB1, even indices send it to CB2.
func BucketFor(pairIndex int, combo Combo) models.Bucket {
	odd := pairIndex%2 == 1
	if (combo == ComboACyanBMagenta) == odd {
		return models.CB1
	}
	return models.CB2
}

func ComboFilename(pairIndex int, combo Combo) string {
	if combo == ComboACyanBMagenta {
		return fmt.Sprintf("%d_A_cyan__B_magenta.png", pairIndex)
	}
	return fmt.Sprintf("%d_B_cyan__A_magenta.png", pairIndex)
}

func LayerFilename(pairIndex int, role string, tint Tint) string {
	return fmt.Sprintf("%d_%s_%s.png", pairIndex, role, tint.Name)
}

type Engine struct {
	input   *imagestore.Store
	outputs Outputs
	log     logger.Logger
}

func NewEngine(inputDir string, outputs Outputs, log logger.Logger) (*Engine, error) {
	if err := outputs.validate(); err != nil {
		return nil, err
	}
	input, err := imagestore.Open(inputDir)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{input: input, outputs: outputs, log: log}, nil
}

type staged struct {
	cyan, magenta, combined *imagestore.Staging
	cb1, cb2                *imagestore.Store
}

func (s *staged) all() []*imagestore.Staging {
	return []*imagestore.Staging{s.cyan, s.magenta, s.combined}
}

func (s *staged) abort() {
	for _, st := range s.all() {
		if st != nil {
			_ = st.Abort()
		}
	}
}

// Run renders every pair into staging folders and publishes them only when
// all pairs succeed. Alpha is checked before anything is touched.
func (e *Engine) Run(ctx context.Context, pairs []models.Pairing, alpha float64) (Counts, error) {
	if err := ValidateAlpha(alpha); err != nil {
		return Counts{}, err
	}

	st, err := e.stage()
	if err != nil {
		return Counts{}, err
	}
	defer st.abort()

	e.log.Info(component, "superimposing pairs", map[string]interface{}{
		"pairs": len(pairs),
		"alpha": alpha,
		"input": e.input.Dir(),
	})

	var counts Counts
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return Counts{}, err
		}
		if err := e.renderPair(st, p, alpha, &counts); err != nil {
			e.log.Error(component, err, map[string]interface{}{"pair_index": p.PairIndex})
			return Counts{}, err
		}
		counts.Pairs++
	}

	for _, s := range st.all() {
		if err := s.Commit(); err != nil {
			return Counts{}, err
		}
	}

	e.log.Info(component, "superimposition complete", map[string]interface{}{
		"pairs": counts.Pairs,
		"cb1":   counts.CB1,
		"cb2":   counts.CB2,
	})
	return counts, nil
}

func (e *Engine) stage() (*staged, error) {
	st := &staged{}
	var err error
	if st.cyan, err = imagestore.NewStaging(e.outputs.CyanDir); err != nil {
		return nil, err
	}
	if st.magenta, err = imagestore.NewStaging(e.outputs.MagentaDir); err != nil {
		st.abort()
		return nil, err
	}
	if st.combined, err = imagestore.NewStaging(e.outputs.CombinedDir); err != nil {
		st.abort()
		return nil, err
	}
	if st.cb1, err = st.combined.Sub(string(models.CB1)); err != nil {
		st.abort()
		return nil, err
	}
	if st.cb2, err = st.combined.Sub(string(models.CB2)); err != nil {
		st.abort()
		return nil, err
	}
	return st, nil
}

func (e *Engine) load(name string, pairIndex int) (*image.Gray, error) {
	img, err := e.input.ReadGray(name)
	if err != nil {
		var le *models.ImageLoadError
		if errors.As(err, &le) {
			le.PairIndex = pairIndex
		}
		return nil, err
	}
	return img, nil
}

func (e *Engine) renderPair(st *staged, p models.Pairing, alpha float64, counts *Counts) error {
	a, err := e.load(p.Man, p.PairIndex)
	if err != nil {
		return err
	}
	b, err := e.load(p.Nat, p.PairIndex)
	if err != nil {
		return err
	}
	if a.Bounds().Size() != b.Bounds().Size() {
		return fmt.Errorf("pair %d (%s, %s): %w", p.PairIndex, p.Man, p.Nat, models.ErrSizeMismatch)
	}

	aCyan, bCyan := MakeCyan(a, alpha), MakeCyan(b, alpha)
	aMagenta, bMagenta := MakeMagenta(a, alpha), MakeMagenta(b, alpha)

	layers := []struct {
		store *imagestore.Store
		name  string
		img   image.Image
	}{
		{st.cyan.Store(), LayerFilename(p.PairIndex, "A", Cyan), aCyan},
		{st.cyan.Store(), LayerFilename(p.PairIndex, "B", Cyan), bCyan},
		{st.magenta.Store(), LayerFilename(p.PairIndex, "A", Magenta), aMagenta},
		{st.magenta.Store(), LayerFilename(p.PairIndex, "B", Magenta), bMagenta},
	}
	for _, l := range layers {
		if err := l.store.Write(l.name, l.img); err != nil {
			return fmt.Errorf("pair %d: %w", p.PairIndex, err)
		}
	}
	counts.Cyan += 2
	counts.Magenta += 2

	combo1, err := CompositeOverWhite(aCyan, bMagenta)
	if err != nil {
		return fmt.Errorf("pair %d: %w", p.PairIndex, err)
	}
	combo2, err := CompositeOverWhite(bCyan, aMagenta)
	if err != nil {
		return fmt.Errorf("pair %d: %w", p.PairIndex, err)
	}

	combos := []struct {
		combo Combo
		img   image.Image
	}{
		{ComboACyanBMagenta, combo1},
		{ComboBCyanAMagenta, combo2},
	}
	for _, c := range combos {
		combo, img := c.combo, c.img
		bucket := BucketFor(p.PairIndex, combo)
		target := st.cb1
		if bucket == models.CB2 {
			target = st.cb2
			counts.CB2++
		} else {
			counts.CB1++
		}
		if err := target.Write(ComboFilename(p.PairIndex, combo), img); err != nil {
			return fmt.Errorf("pair %d: %w", p.PairIndex, err)
		}
	}

	e.log.Debug(component, "pair rendered", map[string]interface{}{
		"pair_index": p.PairIndex,
		"man":        p.Man,
		"nat":        p.Nat,
	})
	return nil
}
