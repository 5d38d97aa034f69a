package mask

import "testing"

func TestNewCountsActive(t *testing.T) {
	for _, test := range []struct {
		bits []bool
		want int
	}{
		{bits: nil, want: 0},
		{bits: []bool{false, false}, want: 0},
		{bits: []bool{true, false, true}, want: 2},
		{bits: []bool{true, true, true}, want: 3},
	} {
		m := New(test.bits)
		if m.Active() != test.want {
			t.Errorf("New(%v).Active() = %d, want %d", test.bits, m.Active(), test.want)
		}
		if m.Len() != len(test.bits) {
			t.Errorf("New(%v).Len() = %d, want %d", test.bits, m.Len(), len(test.bits))
		}
	}
}

func TestAll(t *testing.T) {
	m := All(5)
	if m.Active() != 5 {
		t.Errorf("All(5).Active() = %d, want 5", m.Active())
	}
	for i := 0; i < 5; i++ {
		if !m.At(i) {
			t.Errorf("All(5).At(%d) = false, want true", i)
		}
	}
}

func TestIndices(t *testing.T) {
	m := New([]bool{true, false, true, true, false})
	got := m.Indices()
	want := []int{0, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("Indices() = %v, want %v", got, want)
	}
	for i, v := range want {
		if got[i] != v {
			t.Errorf("Indices()[%d] = %d, want %d", i, got[i], v)
		}
	}
}

func TestShrinkOnly(t *testing.T) {
	for _, test := range []struct {
		name string
		from []bool
		to   []bool
		want bool
	}{
		{name: "unchanged", from: []bool{true, true, false}, to: []bool{true, true, false}, want: true},
		{name: "shrink", from: []bool{true, true, true}, to: []bool{true, false, true}, want: true},
		{name: "grow", from: []bool{true, false, true}, to: []bool{true, true, true}, want: false},
		{name: "length mismatch", from: []bool{true, true}, to: []bool{true, true, false}, want: false},
	} {
		from, to := New(test.from), New(test.to)
		if got := from.ShrinkOnly(to); got != test.want {
			t.Errorf("%s: ShrinkOnly() = %v, want %v", test.name, got, test.want)
		}
	}
}

func TestCloneIndependence(t *testing.T) {
	m := New([]bool{true, false})
	c := m.Clone()
	bits := c.Bits()
	bits[0] = false
	if !m.At(0) {
		t.Error("mutating a clone's Bits() copy affected the original mask")
	}
}
