// Package mask implements the ordered boolean masks used to track which
// realizations and observations are active across an IES iteration chain,
// and the active-count bookkeeping needed to materialize sub-matrices from
// them without repeated scans.
package mask

// Mask is an ordered sequence of booleans together with the precomputed
// count of true entries.
type Mask struct {
	bits   []bool
	active int
}

// New returns a Mask copying bits.
func New(bits []bool) Mask {
	m := Mask{bits: append([]bool(nil), bits...)}
	for _, b := range m.bits {
		if b {
			m.active++
		}
	}
	return m
}

// All returns a Mask of length n with every entry true.
func All(n int) Mask {
	bits := make([]bool, n)
	for i := range bits {
		bits[i] = true
	}
	return New(bits)
}

// Len returns the mask's length.
func (m Mask) Len() int { return len(m.bits) }

// Active returns the number of true entries.
func (m Mask) Active() int { return m.active }

// At reports the i'th entry.
func (m Mask) At(i int) bool { return m.bits[i] }

// Bits returns a copy of the underlying booleans.
func (m Mask) Bits() []bool { return append([]bool(nil), m.bits...) }

// Clone returns an independent copy of m.
func (m Mask) Clone() Mask {
	return Mask{bits: append([]bool(nil), m.bits...), active: m.active}
}

// ShrinkOnly reports whether every entry true in next was already true in
// m — the monotonicity invariant required of ens_mask transitions between
// successive iterations. It also requires m and next to have equal length.
func (m Mask) ShrinkOnly(next Mask) bool {
	if m.Len() != next.Len() {
		return false
	}
	for i, b := range next.bits {
		if b && !m.bits[i] {
			return false
		}
	}
	return true
}

// Indices returns the ascending indices of the true entries.
func (m Mask) Indices() []int {
	idx := make([]int, 0, m.active)
	for i, b := range m.bits {
		if b {
			idx = append(idx, i)
		}
	}
	return idx
}
