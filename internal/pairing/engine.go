// Package pairing links manufactured and natural Mooney images across the two
// counterbalancing groups with a reproducible random draw.
package pairing

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"mooney-stimuli/internal/models"

	"gonum.org/v1/gonum/stat/sampleuv"
)

// MaxSeed bounds seeds drawn for re-randomisation.
const MaxSeed = 999_999_999

// Pools are the four filename partitions a generation draws from.
type Pools struct {
	AMan []string
	BNat []string
	BMan []string
	ANat []string
}

// PoolsFromNames partitions .jpg names by prefix. Each pool is sorted so the
// draw depends only on the seed, not on directory order.
func PoolsFromNames(names []string) Pools {
	var p Pools
	for _, name := range names {
		if !strings.EqualFold(extOf(name), ".jpg") {
			continue
		}
		switch {
		case strings.HasPrefix(name, models.Prefix(models.GroupA, models.Manufactured)):
			p.AMan = append(p.AMan, name)
		case strings.HasPrefix(name, models.Prefix(models.GroupB, models.Natural)):
			p.BNat = append(p.BNat, name)
		case strings.HasPrefix(name, models.Prefix(models.GroupB, models.Manufactured)):
			p.BMan = append(p.BMan, name)
		case strings.HasPrefix(name, models.Prefix(models.GroupA, models.Natural)):
			p.ANat = append(p.ANat, name)
		}
	}
	sort.Strings(p.AMan)
	sort.Strings(p.BNat)
	sort.Strings(p.BMan)
	sort.Strings(p.ANat)
	return p
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

func (p Pools) clone() Pools {
	return Pools{
		AMan: append([]string(nil), p.AMan...),
		BNat: append([]string(nil), p.BNat...),
		BMan: append([]string(nil), p.BMan...),
		ANat: append([]string(nil), p.ANat...),
	}
}

// Result holds one generation. Pairs carry their final pair index.
type Result struct {
	Seed     uint64
	AManBNat []models.Pairing
	BManANat []models.Pairing
}

// All concatenates both crossings, first a_man×b_nat then b_man×a_nat.
func (r Result) All() []models.Pairing {
	out := make([]models.Pairing, 0, len(r.AManBNat)+len(r.BManANat))
	out = append(out, r.AManBNat...)
	return append(out, r.BManANat...)
}

// Engine remembers the pools of the last Generate so Rerandomize can redraw
// over them.
type Engine struct {
	seeds *rand.Rand
	pools *Pools
}

// NewEngine draws re-randomisation seeds from seeds; nil uses a randomly
// seeded source.
func NewEngine(seeds rand.Source) *Engine {
	if seeds == nil {
		seeds = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Engine{seeds: rand.New(seeds)}
}

// Generate pairs the pools using seed. Both crossings are checked before any
// draw so an empty pool aborts the whole generation.
func (e *Engine) Generate(pools Pools, seed uint64) (Result, error) {
	if err := checkPools(pools); err != nil {
		return Result{}, err
	}

	src := sourceFor(seed)
	first := crossing(models.CrossingAManBNat, pools.AMan, pools.BNat, src)
	second := crossing(models.CrossingBManANat, pools.BMan, pools.ANat, src)

	idx := 1
	for i := range first {
		first[i].PairIndex = idx
		idx++
	}
	for i := range second {
		second[i].PairIndex = idx
		idx++
	}

	p := pools.clone()
	e.pools = &p

	return Result{Seed: seed, AManBNat: first, BManANat: second}, nil
}

// Rerandomize discards the previous pairing and redraws over the pools of
// the last Generate with a fresh internal seed.
func (e *Engine) Rerandomize() (Result, error) {
	if e.pools == nil {
		return Result{}, models.ErrNotGenerated
	}
	return e.Generate(*e.pools, e.seeds.Uint64N(MaxSeed+1))
}

func checkPools(p Pools) error {
	switch {
	case len(p.AMan) == 0:
		return &models.EmptyPoolError{Crossing: models.CrossingAManBNat, Pool: "a_man"}
	case len(p.BNat) == 0:
		return &models.EmptyPoolError{Crossing: models.CrossingAManBNat, Pool: "b_nat"}
	case len(p.BMan) == 0:
		return &models.EmptyPoolError{Crossing: models.CrossingBManANat, Pool: "b_man"}
	case len(p.ANat) == 0:
		return &models.EmptyPoolError{Crossing: models.CrossingBManANat, Pool: "a_nat"}
	}
	return nil
}

func sourceFor(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// crossing samples min(|man|,|nat|) names from each side independently and
// zips the two samples by position.
func crossing(label models.Crossing, man, nat []string, src rand.Source) []models.Pairing {
	n := min(len(man), len(nat))
	manIdx := make([]int, n)
	natIdx := make([]int, n)
	sampleuv.WithoutReplacement(manIdx, len(man), src)
	sampleuv.WithoutReplacement(natIdx, len(nat), src)

	pairs := make([]models.Pairing, n)
	for i := 0; i < n; i++ {
		pairs[i] = models.Pairing{
			Crossing: label,
			Man:      man[manIdx[i]],
			Nat:      nat[natIdx[i]],
		}
	}
	return pairs
}

// Describe renders a pairing the way the operator listing shows it.
func Describe(p models.Pairing) string {
	return fmt.Sprintf("%d: %s  <-->  %s", p.PairIndex, p.Man, p.Nat)
}
