package cargo

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// MaxWeightKg is the heaviest single item that may be loaded.
	MaxWeightKg = 200.0
	// MaxVolumeM3 is the largest single item volume that may be loaded.
	MaxVolumeM3 = 2.0
)

const fieldCount = 5

// Item is a validated cargo item. It can only be obtained through New or
// Parse, so holding an Item means its invariants hold.
type Item struct {
	name     string
	weightKg float64
	lengthM  float64
	widthM   float64
	heightM  float64
}

// New validates the supplied values and returns the corresponding Item.
// Checks run in a fixed order so the reported error is deterministic.
func New(name string, weightKg, lengthM, widthM, heightM float64) (Item, error) {
	if strings.TrimSpace(name) == "" {
		return Item{}, &Error{Op: "cargo.new", Kind: KindValidation, Err: ErrEmptyName}
	}

	if !(weightKg > 0) {
		return Item{}, validationError(ErrNonPositiveWeight,
			"item %s has weight %skg", name, formatFloat(weightKg))
	}

	if weightKg > MaxWeightKg {
		return Item{}, validationError(ErrWeightLimit,
			"item %s has weight %skg, limit is %skg", name, formatFloat(weightKg), formatFloat(MaxWeightKg))
	}

	if !(lengthM > 0) || !(widthM > 0) || !(heightM > 0) {
		return Item{}, validationError(ErrNonPositiveDimensions,
			"item %s has dimensions %sm x %sm x %sm", name, formatFloat(lengthM), formatFloat(widthM), formatFloat(heightM))
	}

	if volume := lengthM * widthM * heightM; volume > MaxVolumeM3 {
		return Item{}, validationError(ErrVolumeLimit,
			"item %s has volume %sm3, limit is %sm3", name, formatFloat(volume), formatFloat(MaxVolumeM3))
	}

	return Item{
		name:     name,
		weightKg: weightKg,
		lengthM:  lengthM,
		widthM:   widthM,
		heightM:  heightM,
	}, nil
}

// Parse reads an item from its "name weight length width height" form.
// Fields are separated by single spaces; whitespace around a number, such as
// a trailing newline, is ignored.
func Parse(raw string) (Item, error) {
	fields := strings.Split(raw, " ")
	if len(fields) != fieldCount {
		return Item{}, &Error{
			Op:   "cargo.parse",
			Kind: KindParse,
			Err:  fmt.Errorf("%w: expected %d space separated fields in %q, got %d", ErrMalformedCargo, fieldCount, raw, len(fields)),
		}
	}

	values := make([]float64, 0, fieldCount-1)
	for _, field := range fields[1:] {
		value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return Item{}, &Error{
				Op:   "cargo.parse",
				Kind: KindParse,
				Err:  fmt.Errorf("%w: invalid number %q in %q", ErrMalformedCargo, field, raw),
			}
		}
		values = append(values, value)
	}

	return New(fields[0], values[0], values[1], values[2], values[3])
}

func (i Item) Name() string { return i.name }
func (i Item) WeightKg() float64 { return i.weightKg }
func (i Item) LengthM() float64 { return i.lengthM }
func (i Item) WidthM() float64 { return i.widthM }
func (i Item) HeightM() float64 { return i.heightM }
func (i Item) VolumeM3() float64 { return i.lengthM * i.widthM * i.heightM }

// String renders the item in the form accepted by Parse.
func (i Item) String() string {
	return strings.Join([]string{
		i.name,
		formatFloat(i.weightKg),
		formatFloat(i.lengthM),
		formatFloat(i.widthM),
		formatFloat(i.heightM),
	}, " ")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
