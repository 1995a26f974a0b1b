package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"mooney-stimuli/internal/models"
)

var thresholdHeader = []string{"filename", "sigma", "threshold"}

// ThresholdLedger records which greyscale files have a finalised Mooney
// counterpart and the parameters chosen for each. Every mutation rewrites the
// file before returning.
type ThresholdLedger struct {
	path    string
	records []models.ThresholdRecord
}

func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// LoadThreshold reads the ledger at path. A missing file yields an empty,
// not yet persisted ledger.
func LoadThreshold(path string) (*ThresholdLedger, error) {
	l := &ThresholdLedger{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read threshold ledger: %w", err)
	}

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse threshold ledger %s: %w", path, err)
	}
	if len(rows) == 0 {
		return l, nil
	}
	if err := checkHeader(rows[0], thresholdHeader); err != nil {
		return nil, fmt.Errorf("threshold ledger %s: %w", path, err)
	}

	for i, row := range rows[1:] {
		rec, err := parseThresholdRow(row)
		if err != nil {
			return nil, fmt.Errorf("threshold ledger %s row %d: %w", path, i+2, err)
		}
		// Later rows win so a filename keeps only its last committed choice.
		l.drop(rec.Filename)
		l.records = append(l.records, rec)
	}
	return l, nil
}

// ResetThreshold truncates the ledger at path to just its header.
func ResetThreshold(path string) (*ThresholdLedger, error) {
	l := &ThresholdLedger{path: path}
	if err := l.flush(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *ThresholdLedger) Path() string {
	return l.path
}

func (l *ThresholdLedger) Len() int {
	return len(l.records)
}

// Records returns a copy in commit order.
func (l *ThresholdLedger) Records() []models.ThresholdRecord {
	out := make([]models.ThresholdRecord, len(l.records))
	copy(out, l.records)
	return out
}

func (l *ThresholdLedger) Has(filename string) bool {
	return l.index(filename) >= 0
}

// Filenames is the processed set used to derive the pending queue.
func (l *ThresholdLedger) Filenames() map[string]struct{} {
	set := make(map[string]struct{}, len(l.records))
	for _, r := range l.records {
		set[r.Filename] = struct{}{}
	}
	return set
}

// Append adds rec and persists. A filename already present is replaced.
func (l *ThresholdLedger) Append(rec models.ThresholdRecord) error {
	if strings.TrimSpace(rec.Filename) == "" {
		return errors.New("threshold record needs a filename")
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	prev := l.Records()
	l.drop(rec.Filename)
	l.records = append(l.records, rec)
	if err := l.flush(); err != nil {
		l.records = prev
		return err
	}
	return nil
}

// Remove deletes the entry for filename and persists. It reports whether an
// entry existed.
func (l *ThresholdLedger) Remove(filename string) (bool, error) {
	if l.index(filename) < 0 {
		return false, nil
	}

	prev := l.Records()
	l.drop(filename)
	if err := l.flush(); err != nil {
		l.records = prev
		return false, err
	}
	return true, nil
}

func (l *ThresholdLedger) index(filename string) int {
	for i, r := range l.records {
		if r.Filename == filename {
			return i
		}
	}
	return -1
}

func (l *ThresholdLedger) drop(filename string) {
	if i := l.index(filename); i >= 0 {
		l.records = append(l.records[:i], l.records[i+1:]...)
	}
}

func (l *ThresholdLedger) flush() error {
	rows := make([][]string, 0, len(l.records))
	for _, r := range l.records {
		rows = append(rows, []string{r.Filename, formatSigma(r.Sigma), strconv.Itoa(r.Threshold)})
	}

	data, err := encodeCSV(thresholdHeader, rows)
	if err != nil {
		return fmt.Errorf("encode threshold ledger: %w", err)
	}
	if err := writeFileAtomicDurable(l.path, data, 0o644); err != nil {
		return fmt.Errorf("write threshold ledger: %w", err)
	}
	return nil
}

// formatSigma always keeps a decimal point ("2.0"), which is how the ledger
// has historically been written.
func formatSigma(sigma float64) string {
	s := strconv.FormatFloat(sigma, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func parseThresholdRow(row []string) (models.ThresholdRecord, error) {
	if len(row) != len(thresholdHeader) {
		return models.ThresholdRecord{}, fmt.Errorf("want %d columns, got %d", len(thresholdHeader), len(row))
	}

	sigma, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
	if err != nil {
		return models.ThresholdRecord{}, fmt.Errorf("sigma: %w", err)
	}
	threshold, err := parseInt(row[2])
	if err != nil {
		return models.ThresholdRecord{}, fmt.Errorf("threshold: %w", err)
	}

	rec := models.ThresholdRecord{
		Filename:        row[0],
		ThresholdParams: models.ThresholdParams{Sigma: sigma, Threshold: threshold},
	}
	return rec, rec.Validate()
}

// parseInt also accepts integral floats such as "127.0".
func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int(f), nil
}

func checkHeader(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("header %v, want %v", got, want)
	}
	for i := range want {
		if strings.TrimSpace(strings.TrimPrefix(got[i], "\ufeff")) != want[i] {
			return fmt.Errorf("header %v, want %v", got, want)
		}
	}
	return nil
}
