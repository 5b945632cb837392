package packing

import "errors"

var (
	// ErrUnknownAlgorithm is returned when a strategy is requested by a name that is not registered.
	ErrUnknownAlgorithm = errors.New("unknown packing algorithm")
)
