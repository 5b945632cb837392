package packing

import (
	"fmt"
	"slices"
	"strings"

	"github.com/eugenenazirov/cargo-loader/internal/cargo"
)

var algorithms = []Algorithm{FirstFit, FirstFitDecreasing}

// Algorithms returns the names of all available strategies.
func Algorithms() []Algorithm {
	return slices.Clone(algorithms)
}

// ParseAlgorithm maps a strategy name to an Algorithm. An empty name selects
// DefaultAlgorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultAlgorithm, nil
	}
	algorithm := Algorithm(name)
	if !slices.Contains(algorithms, algorithm) {
		return "", fmt.Errorf("%w %q", ErrUnknownAlgorithm, name)
	}
	return algorithm, nil
}

// New creates the Strategy registered under algorithm.
func New(algorithm Algorithm) (Strategy, error) {
	switch algorithm {
	case FirstFit:
		return &firstFit{capacity: TrolleyMaxWeightKg}, nil
	case FirstFitDecreasing:
		return &firstFitDecreasing{capacity: TrolleyMaxWeightKg}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownAlgorithm, algorithm)
	}
}

// Run packs items with the named strategy and reports the outcome.
func Run(algorithm Algorithm, items []cargo.Item) (Result, error) {
	strategy, err := New(algorithm)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Algorithm: strategy.Name(),
		Items:     len(items),
		Trolleys:  strategy.Pack(items),
	}, nil
}

// firstFit fills the current trolley until the next item does not fit, then
// moves on. Earlier trolleys are never revisited.
type firstFit struct {
	capacity float64
}

func (s *firstFit) Name() Algorithm {
	return FirstFit
}

func (s *firstFit) Pack(items []cargo.Item) int {
	if len(items) == 0 {
		return 0
	}

	currentWeight := 0.0
	trolleys := 1
	for _, item := range items {
		weight := item.WeightKg()
		if currentWeight+weight <= s.capacity {
			currentWeight += weight
			continue
		}
		trolleys++
		currentWeight = weight
	}

	return trolleys
}

// firstFitDecreasing places the heaviest items first, each into the earliest
// opened trolley with room for it.
type firstFitDecreasing struct {
	capacity float64
}

func (s *firstFitDecreasing) Name() Algorithm {
	return FirstFitDecreasing
}

func (s *firstFitDecreasing) Pack(items []cargo.Item) int {
	if len(items) == 0 {
		return 0
	}

	// Sort a copy; equal weights keep their input order.
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b cargo.Item) int {
		switch {
		case a.WeightKg() > b.WeightKg():
			return -1
		case a.WeightKg() < b.WeightKg():
			return 1
		default:
			return 0
		}
	})

	trolleys := make([]float64, 0, len(sorted))
	for _, item := range sorted {
		weight := item.WeightKg()
		placed := false
		for i, load := range trolleys {
			if load+weight <= s.capacity {
				trolleys[i] = load + weight
				placed = true
				break
			}
		}
		if !placed {
			trolleys = append(trolleys, weight)
		}
	}

	return len(trolleys)
}
