package inversion

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/equinor/ies-update/trunc"
)

func TestFromInt(t *testing.T) {
	for _, test := range []struct {
		v       int
		want    Mode
		wantErr bool
	}{
		{v: 0, want: Exact},
		{v: 1, want: SubspaceExactR},
		{v: 2, want: SubspaceEER},
		{v: 3, want: SubspaceRE},
		{v: 4, wantErr: true},
		{v: -1, wantErr: true},
	} {
		got, err := FromInt(test.v)
		if (err != nil) != test.wantErr {
			t.Fatalf("FromInt(%d) error = %v, wantErr %v", test.v, err, test.wantErr)
		}
		if err == nil && got != test.want {
			t.Errorf("FromInt(%d) = %v, want %v", test.v, got, test.want)
		}
	}
}

func TestModeString(t *testing.T) {
	for _, test := range []struct {
		m    Mode
		want string
	}{
		{Exact, "EXACT"},
		{SubspaceExactR, "SUBSPACE_EXACT_R"},
		{SubspaceEER, "SUBSPACE_EE_R"},
		{SubspaceRE, "SUBSPACE_RE"},
	} {
		if got := test.m.String(); got != test.want {
			t.Errorf("%v.String() = %q, want %q", int(test.m), got, test.want)
		}
	}
}

// zero W0 with no innovation (H == 0) must yield an unchanged update: the
// exact branch solves Z Lambda^-1 Z^T S^T H with H == 0, so the delta is 0
// and W is left at (1-gamma)*0 + gamma*0 == 0.
func TestExactNoInnovationIsZero(t *testing.T) {
	n := 3
	w0 := mat.NewDense(n, n, nil)
	s := mat.NewDense(2, n, []float64{0.1, 0.2, 0.3, -0.1, 0.0, 0.2})
	h := mat.NewDense(2, n, nil)

	got, err := Update(Exact, w0, s, nil, nil, h, n, trunc.Fraction(1.0), 1.0)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	zero := mat.NewDense(n, n, nil)
	if !mat.EqualApprox(got, zero, 1e-12) {
		t.Errorf("Update() = %v, want zero matrix", mat.Formatted(got))
	}
}

func TestExactAndSubspaceExactRAgreeWhenRIsIdentity(t *testing.T) {
	// SUBSPACE_EXACT_R internally scales R by 1/(N-1)^2; with N=2 that
	// factor is 1, so R=I here matches EXACT's implicit R=I exactly.
	n := 2
	w0 := mat.NewDense(n, n, nil)
	s := mat.NewDense(2, n, []float64{0.1, 0.2, -0.1, 0.0})
	h := mat.NewDense(2, n, []float64{0.5, -0.2, 0.3, 0.0})
	r := mat.NewDense(2, 2, []float64{1, 0, 0, 1})

	exact, err := Update(Exact, w0, s, nil, nil, h, n, trunc.Fraction(1.0), 1.0)
	if err != nil {
		t.Fatalf("Update(Exact): %v", err)
	}
	subspace, err := Update(SubspaceExactR, w0, s, r, nil, h, n, trunc.Fraction(1.0), 1.0)
	if err != nil {
		t.Fatalf("Update(SubspaceExactR): %v", err)
	}
	if !mat.EqualApprox(exact, subspace, 1e-8) {
		t.Errorf("EXACT and SUBSPACE_EXACT_R disagree:\nexact = %v\nsubspace = %v",
			mat.Formatted(exact), mat.Formatted(subspace))
	}
}

func TestUpdateRequiresRorE(t *testing.T) {
	n := 2
	w0 := mat.NewDense(n, n, nil)
	s := mat.NewDense(1, n, []float64{1, 2})
	h := mat.NewDense(1, n, []float64{1, 2})

	if _, err := Update(SubspaceExactR, w0, s, nil, nil, h, n, trunc.Fraction(1.0), 1.0); err == nil {
		t.Error("Update(SubspaceExactR) with nil R returned nil error")
	}
	if _, err := Update(SubspaceEER, w0, s, nil, nil, h, n, trunc.Fraction(1.0), 1.0); err == nil {
		t.Error("Update(SubspaceEER) with nil E returned nil error")
	}
	if _, err := Update(SubspaceRE, w0, s, nil, nil, h, n, trunc.Fraction(1.0), 1.0); err == nil {
		t.Error("Update(SubspaceRE) with nil E returned nil error")
	}
}
