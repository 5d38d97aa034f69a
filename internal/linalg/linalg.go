// Package linalg implements the dense-matrix kernel the update core is
// built on: row-mean subtraction, active-slice algebra, and the low-rank
// pseudo-inverses used by the subspace inversion modes. It is a thin layer
// over gonum.org/v1/gonum/mat — every primitive gonum/mat already exposes
// (SVD, symmetric eigendecomposition, linear solve) is used directly rather
// than reimplemented.
package linalg

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/equinor/ies-update/internal/ierr"
	"github.com/equinor/ies-update/mask"
	"github.com/equinor/ies-update/trunc"
)

// SubtractRowMean subtracts, from every column of m, the vector of row
// means, i.e. right-multiplies m by (I - 11^T/cols(m)).
func SubtractRowMean(m *mat.Dense) {
	r, c := m.Dims()
	if c == 0 {
		return
	}
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		mean := sum / float64(c)
		for j, v := range row {
			row[j] = v - mean
		}
	}
}

// ScaleRow scales row i of m by s in place.
func ScaleRow(m *mat.Dense, i int, s float64) {
	row := m.RawRowView(i)
	for j, v := range row {
		row[j] = v * s
	}
}

// AddIdentity adds 1 to every diagonal entry of the square matrix m.
func AddIdentity(m *mat.Dense) {
	r, c := m.Dims()
	if r != c {
		panic("linalg: AddIdentity on non-square matrix")
	}
	for i := 0; i < r; i++ {
		m.Set(i, i, m.At(i, i)+1)
	}
}

// AllocActive returns the count(rowMask.Active())xcount(colMask.Active())
// sub-matrix of m selecting the rows and columns where the respective mask
// is true, preserving m's row and column order.
func AllocActive(m *mat.Dense, rowMask, colMask mask.Mask) (*mat.Dense, error) {
	r, c := m.Dims()
	if r != rowMask.Len() || c != colMask.Len() {
		return nil, &ierr.ShapeError{Op: "AllocActive", Msg: fmt.Sprintf(
			"matrix is %dx%d but masks have length %d,%d", r, c, rowMask.Len(), colMask.Len())}
	}
	rows := rowMask.Indices()
	cols := colMask.Indices()
	out := mat.NewDense(len(rows), len(cols), nil)
	for i, ri := range rows {
		for j, cj := range cols {
			out.Set(i, j, m.At(ri, cj))
		}
	}
	return out, nil
}

// StoreActiveW writes active, a just-computed N_active x N_active
// coefficient block, back into the full N0xN0 matrix w at the positions
// selected by ensMask x ensMask; every entry in an inactive row or column of
// w is set to zero, including entries of realizations deactivated after
// earlier iterations. StoreActiveW is a hard error if active is not exactly
// sized to ensMask.Active() squared — this module never silently skips an
// out-of-range write.
func StoreActiveW(w, active *mat.Dense, ensMask mask.Mask) error {
	n := ensMask.Len()
	wr, wc := w.Dims()
	if wr != n || wc != n {
		return &ierr.ShapeError{Op: "StoreActiveW", Msg: "w is not sized to the ensemble mask"}
	}
	ar, ac := active.Dims()
	if ar != ensMask.Active() || ac != ensMask.Active() {
		return &ierr.ShapeError{Op: "StoreActiveW", Msg: fmt.Sprintf(
			"active block is %dx%d but %d realizations are active", ar, ac, ensMask.Active())}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if !ensMask.At(i) || !ensMask.At(j) {
				w.Set(i, j, 0)
			}
		}
	}
	idx := ensMask.Indices()
	for i, ri := range idx {
		for j, cj := range idx {
			w.Set(ri, cj, active.At(i, j))
		}
	}
	return nil
}

// truncatedLeftBasis factorizes S = U0 Sigma0 V0^T (thin SVD), truncates to
// the rank t.Rank selects from the singular values, and returns
// x0 = Sigma0^-1 U0^T, a rank x rows(S) matrix.
func truncatedLeftBasis(S *mat.Dense, t trunc.Value) (x0 *mat.Dense, rank int, err error) {
	m, _ := S.Dims()
	var svd mat.SVD
	if !svd.Factorize(S, mat.SVDThin) {
		return nil, 0, &ierr.NumericalError{Op: "lowrank", Msg: "SVD of S did not converge"}
	}
	sv := svd.Values(nil)
	p := t.Rank(sv)
	if p < 1 {
		return nil, 0, &ierr.NumericalError{Op: "lowrank", Msg: "truncated rank is zero"}
	}
	var uThin mat.Dense
	svd.UTo(&uThin)
	u := mat.DenseCopyOf(uThin.Slice(0, m, 0, p))
	x0 = new(mat.Dense)
	x0.CloneFrom(u.T())
	for i := 0; i < p; i++ {
		ScaleRow(x0, i, 1/sv[i])
	}
	return x0, p, nil
}

// eigenBasis eigendecomposes the symmetric p x p matrix b = Z Lambda Z^T
// and returns X1 = x0^T Z (rows(x0's columns) x p) and eig_i = 1/(1+Lambda_i).
func eigenBasis(x0 *mat.Dense, b *mat.Dense) (X1 *mat.Dense, eig []float64, err error) {
	p, _ := b.Dims()
	sym := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := 0.5 * (b.At(i, j) + b.At(j, i))
			sym.SetSym(i, j, v)
		}
	}
	var es mat.EigenSym
	if !es.Factorize(sym, true) {
		return nil, nil, &ierr.NumericalError{Op: "lowrank", Msg: "eigendecomposition did not converge"}
	}
	lambda := es.Values(nil)
	var Z mat.Dense
	es.VectorsTo(&Z)

	X1 = new(mat.Dense)
	X1.Mul(x0.T(), &Z)

	eig = make([]float64, p)
	for i, l := range lambda {
		eig[i] = 1 / (1 + l)
	}
	return X1, eig, nil
}

// LowRankCinv computes X1 and eig such that X1 diag(eig) X1^T approximates
// (S S^T + C)^-1, truncating the SVD of S according to t.
func LowRankCinv(S, C *mat.Dense, t trunc.Value) (X1 *mat.Dense, eig []float64, err error) {
	x0, _, err := truncatedLeftBasis(S, t)
	if err != nil {
		return nil, nil, err
	}
	var tmp, b mat.Dense
	tmp.Mul(x0, C)
	b.Mul(&tmp, x0.T())
	return eigenBasis(x0, &b)
}

// LowRankE computes X1 and eig such that X1 diag(eig) X1^T approximates
// (S S^T + E E^T)^-1, truncating the SVD of S according to t. Unlike
// LowRankCinv it never forms the rows(S) x rows(S) matrix E E^T explicitly,
// which is what makes it suited to the case of many observations.
func LowRankE(S, E *mat.Dense, t trunc.Value) (X1 *mat.Dense, eig []float64, err error) {
	x0, _, err := truncatedLeftBasis(S, t)
	if err != nil {
		return nil, nil, err
	}
	var x0E, b mat.Dense
	x0E.Mul(x0, E)
	b.Mul(&x0E, x0E.T())
	return eigenBasis(x0, &b)
}

// GenX3 computes X3 = X1 diag(eig) X1^T H.
func GenX3(X1 *mat.Dense, eig []float64, H *mat.Dense) *mat.Dense {
	d := mat.NewDiagDense(len(eig), eig)
	var x1d, x3, out mat.Dense
	x1d.Mul(X1, d)
	x3.Mul(&x1d, X1.T())
	out.Mul(&x3, H)
	return &out
}
