// Package mooney implements the resumable, undoable thresholding stage that
// turns the greyscale stimulus set into Mooney images one file at a time.
package mooney

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"mooney-stimuli/internal/imagestore"
	"mooney-stimuli/internal/ledger"
	"mooney-stimuli/internal/logger"
	"mooney-stimuli/internal/models"
	"mooney-stimuli/internal/processing"
)

const component = "MooneyStage"

// SourceExt is the only extension the stage picks up from the greyscale folder.
const SourceExt = ".jpg"

type ResumeMode int

const (
	// Resume keeps the existing ledger and continues with what is left.
	Resume ResumeMode = iota
	// StartOver truncates the ledger to empty.
	StartOver
)

func (m ResumeMode) String() string {
	if m == StartOver {
		return "start_over"
	}
	return "resume"
}

type Config struct {
	SourceDir  string
	OutputDir  string
	LedgerPath string
}

func (c Config) validate() error {
	var missing []string
	if strings.TrimSpace(c.SourceDir) == "" {
		missing = append(missing, "source dir")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		missing = append(missing, "output dir")
	}
	if strings.TrimSpace(c.LedgerPath) == "" {
		missing = append(missing, "ledger path")
	}
	if len(missing) > 0 {
		return fmt.Errorf("mooney stage config missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// LedgerExists tells a front end whether to offer the resume/start-over choice.
func LedgerExists(path string) bool {
	return ledger.Exists(path)
}

// Result is what a commit wrote.
type Result struct {
	Record models.ThresholdRecord
	Image  *image.Gray
}

// undoSlot remembers the single most recent commit, including any stale
// output file it overwrote so undo can put it back.
type undoSlot struct {
	record      models.ThresholdRecord
	previous    []byte
	hadPrevious bool
}

type Stage struct {
	cfg       Config
	source    *imagestore.Store
	output    *imagestore.Store
	ledger    *ledger.ThresholdLedger
	processor *processing.MooneyProcessor
	log       logger.Logger

	sources []string
	pending PendingQueue
	params  models.ThresholdParams
	last    *undoSlot
}

// Open prepares the stage. The resume choice is made here, once, before any
// preview or commit.
func Open(cfg Config, mode ResumeMode, log logger.Logger) (*Stage, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	source, err := imagestore.Open(cfg.SourceDir)
	if err != nil {
		return nil, err
	}
	output, err := imagestore.Open(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	var l *ledger.ThresholdLedger
	if mode == Resume && ledger.Exists(cfg.LedgerPath) {
		l, err = ledger.LoadThreshold(cfg.LedgerPath)
	} else {
		l, err = ledger.ResetThreshold(cfg.LedgerPath)
	}
	if err != nil {
		return nil, err
	}

	s := &Stage{
		cfg:       cfg,
		source:    source,
		output:    output,
		ledger:    l,
		processor: processing.NewMooneyProcessor(),
		log:       log,
		params:    models.DefaultThresholdParams(),
	}
	if err := s.Refresh(); err != nil {
		return nil, err
	}

	log.Info(component, "stage opened", map[string]interface{}{
		"mode":      mode.String(),
		"source":    cfg.SourceDir,
		"output":    cfg.OutputDir,
		"ledger":    cfg.LedgerPath,
		"processed": l.Len(),
		"pending":   s.pending.Len(),
	})
	return s, nil
}

// Refresh re-reads the source directory and recomputes the pending queue.
func (s *Stage) Refresh() error {
	names, err := s.source.List(SourceExt)
	if err != nil {
		return err
	}
	s.sources = names
	s.recompute()
	return nil
}

func (s *Stage) recompute() {
	s.pending = ComputePending(s.sources, s.ledger.Filenames())
}

func (s *Stage) PendingCount() int {
	return s.pending.Len()
}

// Pending returns a copy of the queue.
func (s *Stage) Pending() []string {
	return append([]string(nil), s.pending...)
}

// CurrentFilename fails with ErrStageFinished once nothing is pending.
func (s *Stage) CurrentFilename() (string, error) {
	name, ok := s.pending.Head()
	if !ok {
		return "", models.ErrStageFinished
	}
	return name, nil
}

func (s *Stage) IsFinished() bool {
	return s.pending.Len() == 0
}

// Params are the active preview parameters: defaults after a commit, the
// undone commit's values after an undo.
func (s *Stage) Params() models.ThresholdParams {
	return s.params
}

func (s *Stage) CanUndo() bool {
	return s.last != nil
}

func (s *Stage) Processed() []models.ThresholdRecord {
	return s.ledger.Records()
}

// Preview renders the current file with params. It touches neither the
// ledger, the output folder nor the queue. An unreadable source yields an
// ImageLoadError and no image.
func (s *Stage) Preview(ctx context.Context, params models.ThresholdParams) (*image.Gray, error) {
	name, err := s.CurrentFilename()
	if err != nil {
		return nil, err
	}

	img, err := s.render(ctx, name, params)
	if err != nil {
		if errors.Is(err, models.ErrImageLoad) {
			s.log.Warning(component, "no preview available", map[string]interface{}{
				"filename": name,
				"error":    err.Error(),
			})
		}
		return nil, err
	}
	return img, nil
}

// Commit renders the current file exactly as Preview would, writes it to the
// output folder under the source filename, appends the ledger and advances.
func (s *Stage) Commit(ctx context.Context, params models.ThresholdParams) (Result, error) {
	name, err := s.CurrentFilename()
	if err != nil {
		return Result{}, err
	}

	img, err := s.render(ctx, name, params)
	if err != nil {
		s.log.Error(component, err, map[string]interface{}{"filename": name})
		return Result{}, err
	}

	slot := &undoSlot{
		record: models.ThresholdRecord{Filename: name, ThresholdParams: params},
	}
	if s.output.Exists(name) {
		prev, err := s.output.ReadBytes(name)
		if err != nil {
			return Result{}, fmt.Errorf("read stale output %s: %w", name, err)
		}
		slot.previous = prev
		slot.hadPrevious = true
	}

	if err := s.output.Write(name, img); err != nil {
		return Result{}, err
	}

	if err := s.ledger.Append(slot.record); err != nil {
		if rerr := s.restoreOutput(slot); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return Result{}, err
	}

	s.last = slot
	s.params = models.DefaultThresholdParams()
	s.recompute()

	s.log.Info(component, "image committed", map[string]interface{}{
		"filename":  name,
		"sigma":     params.Sigma,
		"threshold": params.Threshold,
		"pending":   s.pending.Len(),
	})
	if s.IsFinished() {
		s.log.Info(component, "all images processed", map[string]interface{}{
			"processed": s.ledger.Len(),
		})
	}

	return Result{Record: slot.record, Image: img}, nil
}

// UndoLast reverts the most recent commit of this session: the ledger entry is
// removed, the output folder is restored and the queue rewinds to that file.
// Only one step is kept; a second undo fails with ErrNoHistory.
func (s *Stage) UndoLast() (models.ThresholdRecord, error) {
	if s.last == nil {
		return models.ThresholdRecord{}, models.ErrNoHistory
	}
	slot := s.last

	if _, err := s.ledger.Remove(slot.record.Filename); err != nil {
		return models.ThresholdRecord{}, err
	}
	if err := s.restoreOutput(slot); err != nil {
		return models.ThresholdRecord{}, err
	}

	s.last = nil
	s.params = slot.record.ThresholdParams
	s.recompute()

	s.log.Info(component, "commit undone", map[string]interface{}{
		"filename": slot.record.Filename,
		"pending":  s.pending.Len(),
	})
	return slot.record, nil
}

func (s *Stage) restoreOutput(slot *undoSlot) error {
	if slot.hadPrevious {
		return s.output.WriteBytes(slot.record.Filename, slot.previous)
	}
	return s.output.Remove(slot.record.Filename)
}

func (s *Stage) render(ctx context.Context, name string, params models.ThresholdParams) (*image.Gray, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	src, err := s.source.ReadGray(name)
	if err != nil {
		return nil, err
	}

	out, err := s.processor.Process(ctx, src, params)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", name, err)
	}
	return out, nil
}
