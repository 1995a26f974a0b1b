package config

import (
	"flag"
	"fmt"
	"strings"

	"github.com/sfomuseum/go-flags/flagset"
)

// EnvPrefix is prepended to upper-cased flag names, so -log-level can come
// from MOONEY_LOG_LEVEL.
const EnvPrefix = "MOONEY"

const (
	DefaultSeed     uint64 = 12345
	DefaultAlpha           = 0.5
	DefaultCropSize        = 500
	MinCropSize            = 10
	MaxCropSize            = 2000
)

// Common holds the flags every subcommand accepts.
type Common struct {
	Base     string
	LogLevel string
	LogJSON  bool
}

// NewFlagSet returns a flag set for a subcommand with the common flags bound.
func NewFlagSet(name string, common *Common) *flag.FlagSet {
	fs := flagset.NewFlagSet(name)
	fs.Init(name, flag.ContinueOnError)
	fs.StringVar(&common.Base, "base", ".", "Workspace base directory holding the numbered stage folders.")
	fs.StringVar(&common.LogLevel, "log-level", "info", "One of debug, info, warn, error.")
	fs.BoolVar(&common.LogJSON, "log-json", false, "Emit JSON log lines instead of console output.")
	return fs
}

// Parse applies MOONEY_* environment variables and then the command line,
// so explicit flags win.
func Parse(fs *flag.FlagSet, args []string) error {
	if err := flagset.SetFlagsFromEnvVars(fs, EnvPrefix); err != nil {
		return fmt.Errorf("read %s_* environment: %w", EnvPrefix, err)
	}
	return fs.Parse(args)
}

// Layout resolves the common base into a Layout.
func (c Common) Layout() (Layout, error) {
	return NewLayout(c.Base)
}

// Or returns v unless it is blank.
func Or(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func ValidateCropSize(size int) error {
	if size < MinCropSize || size > MaxCropSize {
		return fmt.Errorf("crop size %d outside [%d,%d]", size, MinCropSize, MaxCropSize)
	}
	return nil
}
