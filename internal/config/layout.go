// Package config describes the on-disk workspace every stage reads from and
// writes to, and the flag plumbing shared by the subcommands.
package config

import (
	"errors"
	"path/filepath"
	"strings"
)

const (
	SourceDirName       = "1_source_images"
	GreyDirName         = "2_grey"
	MooneyDirName       = "3_mooney"
	PairingsDirName     = "4_super_pairings"
	CyanDirName         = "5_cyan"
	MagentaDirName      = "6_magenta"
	SuperimposedDirName = "7_superimposed"
	ExperimentDirName   = "8_experiment"

	PairsFileName     = "pairs.csv"
	ThresholdFileName = "threshold_blur.csv"
)

// Layout resolves stage folders under a single base directory.
type Layout struct {
	Base string
}

func NewLayout(base string) (Layout, error) {
	if strings.TrimSpace(base) == "" {
		return Layout{}, errors.New("base directory is required")
	}
	return Layout{Base: filepath.Clean(base)}, nil
}

func (l Layout) join(name string) string {
	return filepath.Join(l.Base, name)
}

func (l Layout) SourceDir() string       { return l.join(SourceDirName) }
func (l Layout) GreyDir() string         { return l.join(GreyDirName) }
func (l Layout) MooneyDir() string       { return l.join(MooneyDirName) }
func (l Layout) PairingsDir() string     { return l.join(PairingsDirName) }
func (l Layout) CyanDir() string         { return l.join(CyanDirName) }
func (l Layout) MagentaDir() string      { return l.join(MagentaDirName) }
func (l Layout) SuperimposedDir() string { return l.join(SuperimposedDirName) }
func (l Layout) ExperimentDir() string   { return l.join(ExperimentDirName) }

// ThresholdLedger sits at the base, beside the stage folders.
func (l Layout) ThresholdLedger() string { return l.join(ThresholdFileName) }

func (l Layout) PairsLedger() string {
	return filepath.Join(l.PairingsDir(), PairsFileName)
}

// StageDirs lists the folders the curator creates after populating the sources.
func (l Layout) StageDirs() []string {
	return []string{
		l.GreyDir(),
		l.MooneyDir(),
		l.PairingsDir(),
		l.CyanDir(),
		l.MagentaDir(),
		l.SuperimposedDir(),
		l.ExperimentDir(),
	}
}

// PairsLedgerFor places the pairing ledger in a sibling of the mooney folder.
func PairsLedgerFor(mooneyDir string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(mooneyDir)), PairingsDirName, PairsFileName)
}
