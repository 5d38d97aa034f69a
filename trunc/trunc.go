// Package trunc implements the tagged SVD-truncation value used throughout
// the update core: either an energy fraction in (0,1] or an integer
// subspace dimension >= 1. Representing it as a single tagged Value keeps
// the two interpretations from being silently conflated, and makes a
// wrong-branch query return an explicit sentinel instead of a zero value.
package trunc

import "fmt"

// Value is either an energy-fraction truncation or an integer-dimension
// truncation. Exactly one branch is populated; the zero Value is the
// fraction branch with f == 0, which Validate rejects.
type Value struct {
	isDimension bool
	fraction    float64
	dimension   int
}

// Fraction returns a truncation that retains the leading singular values
// whose cumulative squared-energy ratio reaches f.
func Fraction(f float64) Value {
	return Value{fraction: f}
}

// Dimension returns a truncation that retains exactly min(k, rank) leading
// singular values.
func Dimension(k int) Value {
	return Value{isDimension: true, dimension: k}
}

// IsDimension reports whether v holds an integer dimension rather than an
// energy fraction.
func (v Value) IsDimension() bool { return v.isDimension }

// AsFraction returns the energy fraction v holds, or -1 if v holds a
// dimension instead.
func (v Value) AsFraction() float64 {
	if v.isDimension {
		return -1
	}
	return v.fraction
}

// AsDimension returns the integer dimension v holds, or -1 if v holds a
// fraction instead.
func (v Value) AsDimension() int {
	if !v.isDimension {
		return -1
	}
	return v.dimension
}

// Validate reports an error if v's populated branch is out of range: a
// fraction must lie in (0,1], a dimension must be >= 1.
func (v Value) Validate() error {
	if v.isDimension {
		if v.dimension < 1 {
			return fmt.Errorf("truncation dimension must be >= 1, got %d", v.dimension)
		}
		return nil
	}
	if v.fraction <= 0 || v.fraction > 1 {
		return fmt.Errorf("truncation fraction must be in (0,1], got %v", v.fraction)
	}
	return nil
}

// Rank returns the number of leading singular values to retain from sv,
// which must be sorted in non-increasing order. For a dimension k it is
// min(k, len(sv)). For a fraction f it is the smallest k such that the
// cumulative squared energy of sv[:k] reaches f times the total energy;
// the threshold is floored, it is never rounded up past what the energy
// ratio actually requires.
func (v Value) Rank(sv []float64) int {
	if len(sv) == 0 {
		return 0
	}
	if v.isDimension {
		if v.dimension < len(sv) {
			return v.dimension
		}
		return len(sv)
	}
	total := 0.0
	for _, s := range sv {
		total += s * s
	}
	if total == 0 {
		return len(sv)
	}
	cum := 0.0
	for i, s := range sv {
		cum += s * s
		if cum/total >= v.fraction {
			return i + 1
		}
	}
	return len(sv)
}
