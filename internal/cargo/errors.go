package cargo

import (
	"errors"
	"fmt"
)

// Sentinel errors describing why an item was rejected.
var (
	// ErrEmptyName is returned when the item name is empty or only whitespace.
	ErrEmptyName = errors.New("name of cargo item cannot be empty")
	// ErrNonPositiveWeight is returned when the weight is zero, negative or NaN.
	ErrNonPositiveWeight = errors.New("weight of cargo item must be greater than 0")
	// ErrWeightLimit is returned when the weight exceeds MaxWeightKg.
	ErrWeightLimit = errors.New("weight of cargo item exceeds the maximum weight")
	// ErrNonPositiveDimensions is returned when any dimension is zero, negative or NaN.
	ErrNonPositiveDimensions = errors.New("dimensions of cargo item must be greater than 0")
	// ErrVolumeLimit is returned when length*width*height exceeds MaxVolumeM3.
	ErrVolumeLimit = errors.New("volume of cargo item exceeds the maximum volume")
	// ErrMalformedCargo is returned when textual or structured input cannot be decoded.
	ErrMalformedCargo = errors.New("malformed cargo description")
	// ErrFileNotFound is returned when a referenced input file does not exist.
	ErrFileNotFound = errors.New("file does not exist")
	// ErrFileUnreadable is returned when an input file exists but cannot be read.
	ErrFileUnreadable = errors.New("file cannot be read")
)

// ErrorKind is a coarse-grained categorization for errors.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindParse      ErrorKind = "parse"
	KindResource   ErrorKind = "resource"
)

// Error wraps an underlying error with operation context and a kind.
type Error struct {
	Op   string
	Kind ErrorKind
	Path string // Optional: absolute path of the offending file
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind reports whether any *Error in err's chain has the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

func validationError(cause error, format string, args ...any) error {
	return &Error{
		Op:   "cargo.new",
		Kind: KindValidation,
		Err:  fmt.Errorf("%w: %s", cause, fmt.Sprintf(format, args...)),
	}
}
