package storage

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/eugenenazirov/cargo-loader/internal/cargo"
)

var (
	// ErrInvalidManifest indicates the manifest name or contents violate validation rules.
	ErrInvalidManifest = errors.New("manifest must have a name and at least one item")
	// ErrManifestNotFound indicates no manifest is stored under the requested name.
	ErrManifestNotFound = errors.New("manifest not found")
)

// Storage provides access to named cargo manifests.
type Storage interface {
	ListManifests() ([]string, error)
	GetManifest(name string) ([]cargo.Item, error)
	PutManifest(name string, items []cargo.Item) error
	DeleteManifest(name string) error
}

// MemoryStorage keeps manifests in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu        sync.RWMutex
	manifests map[string][]cargo.Item
}

// NewMemoryStorage initialises an empty storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		manifests: make(map[string][]cargo.Item),
	}
}

// ListManifests returns the stored manifest names in lexical order.
func (s *MemoryStorage) ListManifests() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.manifests))
	for name := range s.manifests {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// GetManifest returns a defensive copy of the items stored under name.
func (s *MemoryStorage) GetManifest(name string) ([]cargo.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, ok := s.manifests[normalizeName(name)]
	if !ok {
		return nil, ErrManifestNotFound
	}
	return slices.Clone(items), nil
}

// PutManifest validates and stores a copy of items under name, replacing any
// previous manifest with the same name.
func (s *MemoryStorage) PutManifest(name string, items []cargo.Item) error {
	key := normalizeName(name)
	if key == "" || len(items) == 0 {
		return ErrInvalidManifest
	}

	s.mu.Lock()
	s.manifests[key] = slices.Clone(items)
	s.mu.Unlock()

	return nil
}

// DeleteManifest removes the manifest stored under name.
func (s *MemoryStorage) DeleteManifest(name string) error {
	key := normalizeName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.manifests[key]; !ok {
		return ErrManifestNotFound
	}
	delete(s.manifests, key)
	return nil
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}
