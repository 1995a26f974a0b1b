package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"mooney-stimuli/internal/models"
)

var pairsHeader = []string{"super_number", "man", "nat"}

// WritePairs replaces the pairing ledger at path with pairs, in order.
func WritePairs(path string, pairs []models.Pairing) error {
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{strconv.Itoa(p.PairIndex), p.Man, p.Nat})
	}

	data, err := encodeCSV(pairsHeader, rows)
	if err != nil {
		return fmt.Errorf("encode pairs ledger: %w", err)
	}
	if err := writeFileAtomicDurable(path, data, 0o644); err != nil {
		return fmt.Errorf("write pairs ledger: %w", err)
	}
	return nil
}

// ReadPairs loads the pairing ledger. Crossing is derived from the man
// filename's group prefix when it parses.
func ReadPairs(path string) ([]models.Pairing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pairs ledger: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse pairs ledger %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if err := checkHeader(rows[0], pairsHeader); err != nil {
		return nil, fmt.Errorf("pairs ledger %s: %w", path, err)
	}

	pairs := make([]models.Pairing, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(pairsHeader) {
			return nil, fmt.Errorf("pairs ledger %s row %d: want %d columns, got %d", path, i+2, len(pairsHeader), len(row))
		}
		idx, err := parseInt(row[0])
		if err != nil {
			return nil, fmt.Errorf("pairs ledger %s row %d: super_number: %w", path, i+2, err)
		}

		p := models.Pairing{PairIndex: idx, Man: row[1], Nat: row[2]}
		if img, err := models.ParseStimulusName(row[1]); err == nil {
			if img.Group == models.GroupA {
				p.Crossing = models.CrossingAManBNat
			} else {
				p.Crossing = models.CrossingBManANat
			}
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}
