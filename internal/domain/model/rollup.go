package model

import "github.com/shopspring/decimal"

// Rollup is the additive state of an aggregate document: the fold of every
// increment applied to it, keyed by field path.
type Rollup map[string]decimal.Decimal

// RollupOf converts a set of increments into a rollup.
func RollupOf(inc Increments) Rollup {
	r := make(Rollup)
	r.Add(inc.Fields()...)
	return r
}

// Add folds the increments into r in place.
func (r Rollup) Add(fields ...FieldIncrement) {
	for _, f := range fields {
		r[f.Path] = r[f.Path].Add(f.Value)
	}
}

// Merge returns the sum of the given rollups. It is commutative and associative,
// and leaves its arguments untouched.
func Merge(parts ...Rollup) Rollup {
	out := make(Rollup)
	for _, p := range parts {
		for path, v := range p {
			out[path] = out[path].Add(v)
		}
	}
	return out
}

// Equal reports whether both rollups hold the same values, treating a missing
// path and a zero value as equal.
func (r Rollup) Equal(other Rollup) bool {
	for path, v := range r {
		if !v.Equal(other[path]) {
			return false
		}
	}
	for path, v := range other {
		if !v.Equal(r[path]) {
			return false
		}
	}
	return true
}
