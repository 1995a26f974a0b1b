package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"mooney-stimuli/internal/config"
	"mooney-stimuli/internal/imagestore"
	"mooney-stimuli/internal/models"
	"mooney-stimuli/internal/mooney"
)

const previewName = "preview.png"

func runMooney(e *env, args []string) error {
	var common config.Common
	var in, out, ledgerPath, previewDir string
	var resume, startOver bool

	fs := config.NewFlagSet("mooney", &common)
	fs.StringVar(&in, "in", "", "Greyscale folder. Defaults to <base>/2_grey.")
	fs.StringVar(&out, "out", "", "Mooney folder. Defaults to <base>/3_mooney.")
	fs.StringVar(&ledgerPath, "ledger", "", "Threshold ledger. Defaults to <base>/threshold_blur.csv.")
	fs.StringVar(&previewDir, "preview-dir", "", "Where preview.png is written. Defaults to the base folder.")
	fs.BoolVar(&resume, "resume", false, "Continue from an existing ledger without asking.")
	fs.BoolVar(&startOver, "start-over", false, "Empty an existing ledger without asking.")

	layout, err := e.setup(fs, &common, args)
	if err != nil {
		return err
	}
	if resume && startOver {
		return errors.New("-resume and -start-over are mutually exclusive")
	}

	cfg := mooney.Config{
		SourceDir:  config.Or(in, layout.GreyDir()),
		OutputDir:  config.Or(out, layout.MooneyDir()),
		LedgerPath: config.Or(ledgerPath, layout.ThresholdLedger()),
	}
	previews, err := imagestore.Open(config.Or(previewDir, layout.Base))
	if err != nil {
		return err
	}

	lines := bufio.NewScanner(e.stdin)
	mode := mooney.Resume
	switch {
	case startOver:
		mode = mooney.StartOver
	case resume:
	case mooney.LedgerExists(cfg.LedgerPath):
		mode, err = askResume(e, lines, cfg.LedgerPath)
		if err != nil {
			return err
		}
	}

	stage, err := mooney.Open(cfg, mode, e.log)
	if err != nil {
		return err
	}

	return e.timed("mooney", func(ctx context.Context) error {
		s := &session{env: e, stage: stage, previews: previews}
		return s.loop(ctx, lines)
	})
}

func askResume(e *env, lines *bufio.Scanner, path string) (mooney.ResumeMode, error) {
	for {
		fmt.Fprintf(e.stdout, "A threshold ledger exists at %s. Resume or start over? [r/s] ", path)
		if !lines.Scan() {
			if err := lines.Err(); err != nil {
				return mooney.Resume, err
			}
			return mooney.Resume, errors.New("no answer to the resume prompt")
		}
		switch strings.ToLower(strings.TrimSpace(lines.Text())) {
		case "r", "resume", "":
			return mooney.Resume, nil
		case "s", "start", "start over", "start-over":
			return mooney.StartOver, nil
		}
	}
}

type session struct {
	env      *env
	stage    *mooney.Stage
	previews *imagestore.Store
}

func (s *session) loop(ctx context.Context, lines *bufio.Scanner) error {
	s.status()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(s.env.stdout, "mooney> ")
		if !lines.Scan() {
			fmt.Fprintln(s.env.stdout)
			return lines.Err()
		}

		fields := strings.Fields(lines.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch fields[0] {
		case "status", "s":
			s.status()
		case "preview", "p":
			err = s.preview(ctx, fields[1:])
		case "commit", "c":
			err = s.commit(ctx, fields[1:])
		case "undo", "u":
			err = s.undo()
		case "quit", "q", "exit":
			return nil
		case "help", "h", "?":
			s.help()
		default:
			err = fmt.Errorf("unknown command %q", fields[0])
		}
		if err != nil {
			// Reported to the operator; the session goes on.
			fmt.Fprintf(s.env.stdout, "error: %v\n", err)
		}
	}
}

func (s *session) help() {
	fmt.Fprintln(s.env.stdout, `commands:
  status                               show the current file and parameters
  preview [sigma threshold] [file]     render the current file to a PNG
  commit [sigma threshold]             save the current file and move on
  undo                                 revert the last commit
  quit`)
}

func (s *session) status() {
	p := s.stage.Params()
	name, err := s.stage.CurrentFilename()
	if errors.Is(err, models.ErrStageFinished) {
		fmt.Fprintf(s.env.stdout, "all %d images processed", len(s.stage.Processed()))
		if s.stage.CanUndo() {
			fmt.Fprint(s.env.stdout, " (undo available)")
		}
		fmt.Fprintln(s.env.stdout)
		return
	}
	fmt.Fprintf(s.env.stdout, "%s  (%d pending)  sigma=%s threshold=%d\n",
		name, s.stage.PendingCount(), strconv.FormatFloat(p.Sigma, 'f', -1, 64), p.Threshold)
}

// params reads "sigma threshold" or falls back to the active parameters.
func (s *session) params(args []string) (models.ThresholdParams, []string, error) {
	p := s.stage.Params()
	if len(args) < 2 {
		return p, args, nil
	}
	sigma, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return p, nil, fmt.Errorf("%w: sigma %q", models.ErrInvalidParams, args[0])
	}
	threshold, err := strconv.Atoi(args[1])
	if err != nil {
		return p, nil, fmt.Errorf("%w: threshold %q", models.ErrInvalidParams, args[1])
	}
	p = models.ThresholdParams{Sigma: sigma, Threshold: threshold}
	return p, args[2:], p.Validate()
}

func (s *session) preview(ctx context.Context, args []string) error {
	p, rest, err := s.params(args)
	if err != nil {
		return err
	}
	name := previewName
	if len(rest) > 0 {
		name = rest[0]
	}

	img, err := s.stage.Preview(ctx, p)
	if err != nil {
		return err
	}
	if err := s.previews.Write(name, img); err != nil {
		return err
	}
	fmt.Fprintf(s.env.stdout, "preview sigma=%s threshold=%d written to %s\n",
		strconv.FormatFloat(p.Sigma, 'f', -1, 64), p.Threshold, s.previews.Path(name))
	return nil
}

func (s *session) commit(ctx context.Context, args []string) error {
	p, _, err := s.params(args)
	if err != nil {
		return err
	}
	res, err := s.stage.Commit(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.env.stdout, "committed %s\n", res.Record.Filename)
	s.status()
	return nil
}

func (s *session) undo() error {
	rec, err := s.stage.UndoLast()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.env.stdout, "undid %s\n", rec.Filename)
	s.status()
	return nil
}
