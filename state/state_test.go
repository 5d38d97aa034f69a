package state

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/equinor/ies-update/mask"
)

func TestUpdateEnsMaskFirstCallSizesW(t *testing.T) {
	d := Allocate()
	if err := d.UpdateEnsMask(mask.All(3)); err != nil {
		t.Fatalf("UpdateEnsMask: %v", err)
	}
	r, c := d.W.Dims()
	if r != 3 || c != 3 {
		t.Errorf("W dims = %dx%d, want 3x3", r, c)
	}
}

func TestUpdateEnsMaskRejectsGrowth(t *testing.T) {
	d := Allocate()
	if err := d.UpdateEnsMask(mask.New([]bool{true, false, true})); err != nil {
		t.Fatalf("UpdateEnsMask: %v", err)
	}
	err := d.UpdateEnsMask(mask.New([]bool{true, true, true}))
	if err == nil {
		t.Error("UpdateEnsMask reactivating a deactivated realization returned nil error")
	}
}

func TestUpdateEnsMaskRejectsLengthChange(t *testing.T) {
	d := Allocate()
	if err := d.UpdateEnsMask(mask.All(3)); err != nil {
		t.Fatalf("UpdateEnsMask: %v", err)
	}
	if err := d.UpdateEnsMask(mask.All(4)); err == nil {
		t.Error("UpdateEnsMask with a changed length returned nil error")
	}
}

func TestStoreInitialObsMaskFirstCallWins(t *testing.T) {
	d := Allocate()
	d.StoreInitialObsMask(mask.New([]bool{true, false}))
	d.StoreInitialObsMask(mask.New([]bool{false, true}))
	if d.ObsMask0.At(0) != true || d.ObsMask0.At(1) != false {
		t.Errorf("ObsMask0 = %v, want first-call value [true false]", d.ObsMask0.Bits())
	}
}

func TestStoreInitialAFirstCallWins(t *testing.T) {
	d := Allocate()
	a1 := mat.NewDense(1, 2, []float64{1, 2})
	a2 := mat.NewDense(1, 2, []float64{9, 9})
	d.StoreInitialA(a1)
	d.StoreInitialA(a2)
	if !mat.Equal(d.A0, a1) {
		t.Errorf("A0 = %v, want %v (the first-stored value)", mat.Formatted(d.A0), mat.Formatted(a1))
	}
}

func TestIncIterationNr(t *testing.T) {
	d := Allocate()
	for k := 1; k <= 3; k++ {
		if got := d.IncIterationNr(); got != k {
			t.Errorf("IncIterationNr() = %d, want %d", got, k)
		}
	}
}

// TestObsAugmentation exercises scenario S4: the active observation set
// grows between iteration 1 and 2, and E's row 0 must stay bit-identical
// to what was supplied at iteration 1.
func TestObsAugmentation(t *testing.T) {
	d := Allocate()
	d.StoreInitialObsMask(mask.New([]bool{true, false, false}))
	d.UpdateObsMask(mask.New([]bool{true, false, false}))

	e1 := mat.NewDense(1, 4, []float64{0.1, -0.1, 0.05, -0.05})
	d.StoreInitialE(e1)

	if r, _ := d.E.Dims(); r != 1 {
		t.Fatalf("after StoreInitialE, rows(E) = %d, want 1", r)
	}

	d.UpdateObsMask(mask.New([]bool{true, true, false}))
	e2 := mat.NewDense(2, 4, []float64{
		0.1, -0.1, 0.05, -0.05,
		0.2, -0.2, 0.1, -0.1,
	})
	if err := d.AugmentInitialE(e2); err != nil {
		t.Fatalf("AugmentInitialE: %v", err)
	}

	r, _ := d.E.Dims()
	if r != 2 {
		t.Fatalf("after AugmentInitialE, rows(E) = %d, want 2", r)
	}
	row0 := mat.Row(nil, 0, d.E)
	want := mat.Row(nil, 0, e1)
	for i := range want {
		if row0[i] != want[i] {
			t.Errorf("E row 0 = %v, want bit-identical %v", row0, want)
		}
	}
}

func TestAllocActiveE(t *testing.T) {
	d := Allocate()
	d.StoreInitialObsMask(mask.All(2))
	d.UpdateObsMask(mask.All(2))
	e := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 5, 6,
	})
	d.StoreInitialE(e)

	ensMask := mask.New([]bool{true, false, true})
	active, err := d.AllocActiveE(ensMask)
	if err != nil {
		t.Fatalf("AllocActiveE: %v", err)
	}
	want := mat.NewDense(2, 2, []float64{1, 3, 4, 6})
	if !mat.Equal(active, want) {
		t.Errorf("AllocActiveE() = %v, want %v", mat.Formatted(active), mat.Formatted(want))
	}
}
