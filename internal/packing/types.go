package packing

import (
	"fmt"

	"github.com/eugenenazirov/cargo-loader/internal/cargo"
)

// TrolleyMaxWeightKg is the total weight a single trolley can carry.
// It must stay at or above cargo.MaxWeightKg so every valid item fits
// into an empty trolley.
const TrolleyMaxWeightKg = 2000.0

// Algorithm names a packing strategy.
type Algorithm string

const (
	FirstFit           Algorithm = "first_fit"
	FirstFitDecreasing Algorithm = "first_fit_decreasing"

	DefaultAlgorithm = FirstFit
)

// Strategy describes the behaviour required from a trolley packing heuristic.
type Strategy interface {
	Name() Algorithm
	// Pack returns the number of trolleys needed for items. It never
	// mutates or reorders items and returns 0 for an empty input.
	Pack(items []cargo.Item) int
}

// Result summarises a packing run.
type Result struct {
	Algorithm Algorithm
	Items     int
	Trolleys  int
}

// Summary renders the result as reported to the user.
func (r Result) Summary() string {
	noun := "trolleys"
	if r.Trolleys == 1 {
		noun = "trolley"
	}
	return fmt.Sprintf("Loaded %d items into %d %s", r.Items, r.Trolleys, noun)
}
