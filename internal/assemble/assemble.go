// Package assemble copies finished stimuli into a flat experiment folder
// under presentation names.
package assemble

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mooney-stimuli/internal/imagestore"
	"mooney-stimuli/internal/logger"
	"mooney-stimuli/internal/models"
)

const component = "Assembler"

type Config struct {
	GreyDir         string
	MooneyDir       string
	SuperimposedDir string
	ExperimentDir   string
}

// Entry is one planned copy.
type Entry struct {
	Source string
	Target string
}

type Assembler struct {
	log logger.Logger
}

func New(log logger.Logger) *Assembler {
	if log == nil {
		log = logger.Nop()
	}
	return &Assembler{log: log}
}

// SuperName renames a bucketed composite after its pair index, the part of
// the filename before the first underscore.
func SuperName(bucket models.Bucket, filename string) string {
	index, _, _ := strings.Cut(filename, "_")
	return fmt.Sprintf("3_super_%s_%s.png", bucket, index)
}

// Plan lists the copies without touching the experiment folder.
func (a *Assembler) Plan(cfg Config) ([]Entry, error) {
	var plan []Entry

	for _, src := range []struct {
		dir    string
		prefix string
	}{
		{cfg.GreyDir, "1_greyscale_"},
		{cfg.MooneyDir, "2_mooney_"},
	} {
		store, err := imagestore.Open(src.dir)
		if err != nil {
			return nil, err
		}
		names, err := store.List(".jpg")
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			plan = append(plan, Entry{Source: store.Path(n), Target: src.prefix + n})
		}
	}

	for _, bucket := range []models.Bucket{models.CB1, models.CB2} {
		dir := filepath.Join(cfg.SuperimposedDir, string(bucket))
		store, err := imagestore.Open(dir)
		if err != nil {
			return nil, err
		}
		names, err := store.List(".png")
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			plan = append(plan, Entry{Source: store.Path(n), Target: SuperName(bucket, n)})
		}
	}
	return plan, nil
}

// Run copies every planned file byte for byte and returns how many were copied.
func (a *Assembler) Run(ctx context.Context, cfg Config) (int, error) {
	plan, err := a.Plan(cfg)
	if err != nil {
		return 0, err
	}

	out, err := imagestore.Open(cfg.ExperimentDir)
	if err != nil {
		return 0, err
	}

	a.log.Info(component, "assembling experiment folder", map[string]interface{}{
		"files":  len(plan),
		"output": cfg.ExperimentDir,
	})

	for i, e := range plan {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		data, err := os.ReadFile(e.Source)
		if err != nil {
			return i, &models.ImageLoadError{Filename: e.Source, Cause: err}
		}
		if err := out.WriteBytes(e.Target, data); err != nil {
			return i, err
		}
		a.log.Debug(component, "copied", map[string]interface{}{"from": e.Source, "to": e.Target})
	}

	a.log.Info(component, "experiment folder ready", map[string]interface{}{"copied": len(plan)})
	return len(plan), nil
}
