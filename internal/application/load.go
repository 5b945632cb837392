package application

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/cargo-loader/internal/cargo"
	"github.com/eugenenazirov/cargo-loader/internal/manifest"
	"github.com/eugenenazirov/cargo-loader/internal/packing"
)

// LoadOptions describes a single batch run of the command-line tool.
type LoadOptions struct {
	Algorithm packing.Algorithm
	// Cargo holds items in "name weight length width height" form.
	Cargo []string
	// Files lists YAML manifests, read in order.
	Files []string
}

// Load collects the requested cargo, packs it with the selected strategy and
// writes the progress line and the summary to out. Any invalid item or
// unreadable file aborts the run before packing starts. A nil logger
// discards log output.
func Load(opts LoadOptions, out io.Writer, logger *zap.Logger) (packing.Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	strategy, err := packing.New(opts.Algorithm)
	if err != nil {
		return packing.Result{}, err
	}

	items, err := collectItems(opts)
	if err != nil {
		return packing.Result{}, err
	}

	if _, err := fmt.Fprintf(out, "Loading %d items into trolleys using %s ...\n", len(items), strategy.Name()); err != nil {
		return packing.Result{}, fmt.Errorf("write progress: %w", err)
	}

	start := time.Now()
	result := packing.Result{
		Algorithm: strategy.Name(),
		Items:     len(items),
		Trolleys:  strategy.Pack(items),
	}

	logger.Info("cargo loaded",
		zap.String("algorithm", string(result.Algorithm)),
		zap.Int("items", result.Items),
		zap.Int("trolleys", result.Trolleys),
		zap.Duration("duration", time.Since(start)),
	)

	if _, err := fmt.Fprintln(out, result.Summary()); err != nil {
		return packing.Result{}, fmt.Errorf("write summary: %w", err)
	}

	return result, nil
}

func collectItems(opts LoadOptions) ([]cargo.Item, error) {
	items := make([]cargo.Item, 0, len(opts.Cargo))
	for _, raw := range opts.Cargo {
		item, err := cargo.Parse(raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if len(opts.Files) > 0 {
		fromFiles, err := manifest.LoadFiles(opts.Files...)
		if err != nil {
			return nil, err
		}
		items = append(items, fromFiles...)
	}

	return items, nil
}
