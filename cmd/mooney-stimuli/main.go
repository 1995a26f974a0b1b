package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"mooney-stimuli/internal/config"
	"mooney-stimuli/internal/debug/memtracker"
	"mooney-stimuli/internal/debug/timing"
	"mooney-stimuli/internal/logger"
	"mooney-stimuli/internal/opencv/safe"
	"mooney-stimuli/internal/shutdown"

	"github.com/rs/zerolog"
)

const (
	AppName    = "mooney-stimuli"
	AppVersion = "1.0.0"
)

// env bundles what every subcommand needs.
type env struct {
	ctx    context.Context
	log    logger.Logger
	timer  *timing.Tracker
	mats   *memtracker.Tracker
	stop   *shutdown.Manager
	stdin  io.Reader
	stdout io.Writer
}

type command struct {
	summary string
	run     func(e *env, args []string) error
}

var commands = map[string]command{
	"init":        {"split raw manufactured/natural folders into 1_source_images", runInit},
	"greyscale":   {"convert 1_source_images into 2_grey", runGreyscale},
	"mooney":      {"threshold 2_grey into 3_mooney interactively", runMooney},
	"pairs":       {"pair Mooney images into 4_super_pairings/pairs.csv", runPairs},
	"superimpose": {"render cyan/magenta layers and CB1/CB2 composites", runSuperimpose},
	"assemble":    {"copy finished stimuli into 8_experiment", runAssemble},
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		usage(stdout)
		return nil
	}
	if args[0] == "version" {
		fmt.Fprintf(stdout, "%s %s\n", AppName, AppVersion)
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		usage(stdout)
		return fmt.Errorf("unknown command %q", args[0])
	}

	stop := shutdown.NewManager(ctx, logger.Nop())
	stop.Listen()
	defer stop.Shutdown()

	e := &env{
		ctx:    stop.Context(),
		stop:   stop,
		stdin:  stdin,
		stdout: stdout,
	}
	return cmd.run(e, args[1:])
}

// setup parses the subcommand flags and wires logging and timing.
func (e *env) setup(fs *flag.FlagSet, common *config.Common, args []string) (config.Layout, error) {
	if err := config.Parse(fs, args); err != nil {
		return config.Layout{}, err
	}

	level, err := logger.ParseLevel(common.LogLevel)
	if err != nil {
		return config.Layout{}, err
	}
	if common.LogJSON {
		e.log = logger.NewZerolog(os.Stderr, level)
	} else {
		e.log = logger.NewConsoleLogger(level)
	}
	e.timer = timing.NewTracker(e.log)
	if level <= zerolog.DebugLevel {
		e.mats = memtracker.NewTracker(e.log, false)
		safe.SetTracker(e.mats)
		e.stop.Register("mat-tracker", func() { safe.SetTracker(nil) })
	}

	return common.Layout()
}

// timed runs fn as a named operation and logs its duration.
func (e *env) timed(operation string, fn func(ctx context.Context) error) error {
	ctx := e.timer.StartTiming(e.ctx, operation)
	err := fn(ctx)
	d := e.timer.EndTiming(ctx)
	if err != nil {
		e.log.Error(AppName, err, map[string]interface{}{"stage": operation})
		return err
	}
	e.log.Info(AppName, "stage finished", map[string]interface{}{
		"stage":       operation,
		"duration_ms": d.Milliseconds(),
	})
	if e.mats != nil {
		stats := e.mats.GetStats()
		e.log.Debug(AppName, "native Mat usage", map[string]interface{}{
			"allocated": stats.AllocationCount,
			"active":    stats.CurrentlyActive,
			"bytes":     stats.TotalAllocated,
		})
	}
	return nil
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "usage: %s <command> [flags]\n\ncommands:\n", AppName)
	for _, name := range names {
		fmt.Fprintf(&b, "  %-12s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(&b, "\nEvery flag can also be set as %s_<FLAG>, e.g. %s_BASE.\n", config.EnvPrefix, config.EnvPrefix)
	fmt.Fprint(w, b.String())
}
