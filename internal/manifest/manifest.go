// Package manifest decodes cargo manifests stored as YAML documents.
//
// A manifest maps item names to their mass and dimensions:
//
//	Item1:
//	  mass: 100
//	  volume: [1, 1, 1]
//	Item2:
//	  mass: 200
//	  volume: [0.5, 1, 2]
//
// Items are returned in document order.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/cargo-loader/internal/cargo"
)

const dimensionCount = 3

// yamlItem represents a single manifest entry.
type yamlItem struct {
	Mass   *float64  `yaml:"mass"`
	Volume []float64 `yaml:"volume"`
}

// Parse decodes a manifest document. An empty document yields no items.
func Parse(data []byte) ([]cargo.Item, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, parseError(fmt.Errorf("%w: %v", cargo.ErrMalformedCargo, err))
	}

	if doc.Kind == 0 || len(doc.Content) == 0 {
		return []cargo.Item{}, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return []cargo.Item{}, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, parseError(fmt.Errorf("%w: manifest root must be a mapping of item names (line %d)", cargo.ErrMalformedCargo, root.Line))
	}

	items := make([]cargo.Item, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		name := keyNode.Value

		var entry yamlItem
		if err := valueNode.Decode(&entry); err != nil {
			return nil, parseError(fmt.Errorf("%w: item %s (line %d): %v", cargo.ErrMalformedCargo, name, valueNode.Line, err))
		}
		if entry.Mass == nil {
			return nil, parseError(fmt.Errorf("%w: item %s (line %d) has no mass", cargo.ErrMalformedCargo, name, valueNode.Line))
		}
		if len(entry.Volume) != dimensionCount {
			return nil, parseError(fmt.Errorf("%w: item %s (line %d) must list %d dimensions, got %d",
				cargo.ErrMalformedCargo, name, valueNode.Line, dimensionCount, len(entry.Volume)))
		}

		item, err := cargo.New(name, *entry.Mass, entry.Volume[0], entry.Volume[1], entry.Volume[2])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, nil
}

// LoadFile reads and decodes the manifest at path.
func LoadFile(path string) ([]cargo.Item, error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		absolute = path
	}

	data, err := os.ReadFile(absolute)
	if err != nil {
		cause := fmt.Errorf("%w: %s: %v", cargo.ErrFileUnreadable, path, err)
		if errors.Is(err, fs.ErrNotExist) {
			cause = fmt.Errorf("%w: %s", cargo.ErrFileNotFound, path)
		}
		return nil, &cargo.Error{
			Op:   "manifest.load",
			Kind: cargo.KindResource,
			Path: absolute,
			Err:  cause,
		}
	}

	items, err := Parse(data)
	if err != nil {
		var ce *cargo.Error
		if errors.As(err, &ce) {
			return nil, &cargo.Error{Op: "manifest.load", Kind: ce.Kind, Path: absolute, Err: err}
		}
		return nil, fmt.Errorf("load manifest %s: %w", absolute, err)
	}

	return items, nil
}

// LoadFiles loads every manifest in order and concatenates the items.
// The first failing file aborts the whole load.
func LoadFiles(paths ...string) ([]cargo.Item, error) {
	var result []cargo.Item
	for _, path := range paths {
		items, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		result = append(result, items...)
	}
	if result == nil {
		result = []cargo.Item{}
	}
	return result, nil
}

func parseError(err error) error {
	return &cargo.Error{
		Op:   "manifest.parse",
		Kind: cargo.KindParse,
		Err:  err,
	}
}
