// Package packing assigns cargo items to trolleys with greedy bin-packing
// heuristics. Only the number of trolleys is computed; which item ends up in
// which trolley is not tracked.
package packing
