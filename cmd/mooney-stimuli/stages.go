package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"

	"mooney-stimuli/internal/assemble"
	"mooney-stimuli/internal/composite"
	"mooney-stimuli/internal/config"
	"mooney-stimuli/internal/curate"
	"mooney-stimuli/internal/greyscale"
	"mooney-stimuli/internal/imagestore"
	"mooney-stimuli/internal/ledger"
	"mooney-stimuli/internal/pairing"
)

func runInit(e *env, args []string) error {
	var common config.Common
	var man, nat string
	var size int
	var seed uint64
	var force bool

	fs := config.NewFlagSet("init", &common)
	fs.StringVar(&man, "manufactured", "", "Folder of raw manufactured-object photos.")
	fs.StringVar(&nat, "natural", "", "Folder of raw natural-object photos.")
	fs.IntVar(&size, "size", config.DefaultCropSize, "Square crop size in pixels.")
	fs.Uint64Var(&seed, "seed", 0, "Seed for the A/B split; 0 draws one at random.")
	fs.BoolVar(&force, "force", false, "Replace an existing 1_source_images folder.")

	layout, err := e.setup(fs, &common, args)
	if err != nil {
		return err
	}
	if man == "" || nat == "" {
		return fmt.Errorf("-manufactured and -natural are required")
	}
	if err := config.ValidateCropSize(size); err != nil {
		return err
	}
	if seed == 0 {
		seed = rand.Uint64()
	}

	c := curate.New(rand.NewPCG(seed, seed), e.log)
	return e.timed("init", func(ctx context.Context) error {
		summary, err := c.Run(ctx, curate.Config{
			ManufacturedDir: man,
			NaturalDir:      nat,
			SourceDir:       layout.SourceDir(),
			StageDirs:       layout.StageDirs(),
			Size:            size,
			Force:           force,
		})
		if err != nil {
			return err
		}
		total := 0
		for _, n := range summary {
			total += n
		}
		fmt.Fprintf(e.stdout, "%d images written to %s (seed %d)\n", total, layout.SourceDir(), seed)
		return nil
	})
}

func runGreyscale(e *env, args []string) error {
	var common config.Common
	var in, out string

	fs := config.NewFlagSet("greyscale", &common)
	fs.StringVar(&in, "in", "", "Input folder. Defaults to <base>/1_source_images.")
	fs.StringVar(&out, "out", "", "Output folder. Defaults to <base>/2_grey.")

	layout, err := e.setup(fs, &common, args)
	if err != nil {
		return err
	}

	conv := greyscale.NewConverter(e.log)
	return e.timed("greyscale", func(ctx context.Context) error {
		report, err := conv.Run(ctx, config.Or(in, layout.SourceDir()), config.Or(out, layout.GreyDir()))
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "%d converted, %d skipped\n", len(report.Converted), len(report.Skipped))
		for _, name := range report.Skipped {
			fmt.Fprintf(e.stdout, "  skipped %s\n", name)
		}
		return nil
	})
}

func runPairs(e *env, args []string) error {
	var common config.Common
	var mooneyDir string
	var seed uint64
	var rerolls int

	fs := config.NewFlagSet("pairs", &common)
	fs.StringVar(&mooneyDir, "in", "", "Mooney folder. Defaults to <base>/3_mooney.")
	fs.Uint64Var(&seed, "seed", config.DefaultSeed, "Seed for the pairing draw.")
	fs.IntVar(&rerolls, "rerandomize", 0, "Redraw this many times with fresh seeds before saving.")

	layout, err := e.setup(fs, &common, args)
	if err != nil {
		return err
	}
	if seed > pairing.MaxSeed {
		return fmt.Errorf("seed %d above %d", seed, pairing.MaxSeed)
	}
	mooneyDir = config.Or(mooneyDir, layout.MooneyDir())

	return e.timed("pairs", func(ctx context.Context) error {
		store, err := imagestore.Open(mooneyDir)
		if err != nil {
			return err
		}
		names, err := store.List(".jpg")
		if err != nil {
			return err
		}

		engine := pairing.NewEngine(nil)
		res, err := engine.Generate(pairing.PoolsFromNames(names), seed)
		if err != nil {
			return err
		}
		for i := 0; i < rerolls; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if res, err = engine.Rerandomize(); err != nil {
				return err
			}
		}

		path := config.PairsLedgerFor(mooneyDir)
		if err := ledger.WritePairs(path, res.All()); err != nil {
			return err
		}

		e.log.Info("Pairing", "pairs saved", map[string]interface{}{
			"seed":        res.Seed,
			"a_man_b_nat": len(res.AManBNat),
			"b_man_a_nat": len(res.BManANat),
			"ledger":      path,
		})
		fmt.Fprintf(e.stdout, "seed %d\n", res.Seed)
		for _, p := range res.All() {
			fmt.Fprintln(e.stdout, pairing.Describe(p))
		}
		return nil
	})
}

func runSuperimpose(e *env, args []string) error {
	var common config.Common
	var in, pairsPath, alphaText string

	fs := config.NewFlagSet("superimpose", &common)
	fs.StringVar(&in, "in", "", "Mooney folder. Defaults to <base>/3_mooney.")
	fs.StringVar(&pairsPath, "pairs", "", "Pairing ledger. Defaults to <base>/4_super_pairings/pairs.csv.")
	fs.StringVar(&alphaText, "alpha", fmt.Sprint(config.DefaultAlpha), "Layer opacity between 0 and 1.")

	layout, err := e.setup(fs, &common, args)
	if err != nil {
		return err
	}
	alpha, err := composite.ParseAlpha(alphaText)
	if err != nil {
		return err
	}

	engine, err := composite.NewEngine(config.Or(in, layout.MooneyDir()), composite.Outputs{
		CyanDir:     layout.CyanDir(),
		MagentaDir:  layout.MagentaDir(),
		CombinedDir: layout.SuperimposedDir(),
	}, e.log)
	if err != nil {
		return err
	}

	return e.timed("superimpose", func(ctx context.Context) error {
		pairs, err := ledger.ReadPairs(config.Or(pairsPath, layout.PairsLedger()))
		if err != nil {
			return err
		}
		counts, err := engine.Run(ctx, pairs, alpha)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "%d pairs: %d cyan, %d magenta, CB1 %d, CB2 %d\n",
			counts.Pairs, counts.Cyan, counts.Magenta, counts.CB1, counts.CB2)
		return nil
	})
}

func runAssemble(e *env, args []string) error {
	var common config.Common
	var out string

	fs := config.NewFlagSet("assemble", &common)
	fs.StringVar(&out, "out", "", "Experiment folder. Defaults to <base>/8_experiment.")

	layout, err := e.setup(fs, &common, args)
	if err != nil {
		return err
	}

	a := assemble.New(e.log)
	return e.timed("assemble", func(ctx context.Context) error {
		n, err := a.Run(ctx, assemble.Config{
			GreyDir:         layout.GreyDir(),
			MooneyDir:       layout.MooneyDir(),
			SuperimposedDir: layout.SuperimposedDir(),
			ExperimentDir:   config.Or(out, layout.ExperimentDir()),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "%d files copied to %s\n", n, filepath.Clean(config.Or(out, layout.ExperimentDir())))
		return nil
	})
}
