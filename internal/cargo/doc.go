// Package cargo models a single physical cargo item: a name, a weight in
// kilograms and three dimensions in meters. Items are validated on
// construction, so code holding an Item never observes an invalid one.
// Errors carry a Kind that separates validation, parse and resource
// failures for callers that need to react differently to each.
package cargo
