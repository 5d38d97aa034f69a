// Package state implements the iteration state carried across an IES
// chain: the coefficient matrix W, the augmented initial perturbations E,
// the initial parameters A0, and the ensemble/observation masks. A Data is
// allocated once before the first iteration and used until the chain ends.
package state

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/equinor/ies-update/internal/ierr"
	"github.com/equinor/ies-update/mask"
)

// Data is the persistent, mutable state of one IES iteration chain.
type Data struct {
	W  *mat.Dense // N0 x N0, coefficient matrix; zero outside the active block.
	E  *mat.Dense // rows grow over time x N0, initial observation perturbations.
	A0 *mat.Dense // n x N0, parameters at iteration 1.

	EnsMask  mask.Mask
	ObsMask  mask.Mask
	ObsMask0 mask.Mask

	// obsRow maps an observation's position in the obs_mask universe to its
	// row in E, or -1 if that observation has never been active. It grows
	// alongside E as previously-unseen observations are appended.
	obsRow []int

	haveObsMask0 bool
	haveA0       bool
	haveE        bool

	IterationNr int
	StateSize   int
}

// Allocate returns a fresh, empty iteration state.
func Allocate() *Data {
	return &Data{}
}

// UpdateEnsMask installs m as the current ensemble mask. On the first call
// it also sizes and zero-fills W. On later calls m must have the same
// length as the stored mask, and no bit may transition false -> true.
func (d *Data) UpdateEnsMask(m mask.Mask) error {
	if d.EnsMask.Len() == 0 {
		d.EnsMask = m.Clone()
		d.W = mat.NewDense(m.Len(), m.Len(), nil)
		return nil
	}
	if d.EnsMask.Len() != m.Len() {
		return &ierr.MaskError{Op: "UpdateEnsMask", Msg: fmt.Sprintf(
			"ensemble mask length changed from %d to %d", d.EnsMask.Len(), m.Len())}
	}
	if !d.EnsMask.ShrinkOnly(m) {
		return &ierr.MaskError{Op: "UpdateEnsMask", Msg: "a deactivated realization was reactivated"}
	}
	d.EnsMask = m.Clone()
	return nil
}

// StoreInitialObsMask records m as obs_mask0 the first time it is called;
// later calls are a no-op.
func (d *Data) StoreInitialObsMask(m mask.Mask) {
	if d.haveObsMask0 {
		return
	}
	d.ObsMask0 = m.Clone()
	d.haveObsMask0 = true
}

// UpdateObsMask installs m as the current observation mask. Unlike the
// ensemble mask, it may toggle in either direction across iterations.
func (d *Data) UpdateObsMask(m mask.Mask) { d.ObsMask = m.Clone() }

// AllocateW ensures W is present, zero-filled, and sized to the ensemble mask.
func (d *Data) AllocateW() error {
	if d.W != nil {
		return nil
	}
	if d.EnsMask.Len() == 0 {
		return &ierr.StateError{Op: "AllocateW", Msg: "ensemble mask must be set before allocating W"}
	}
	d.W = mat.NewDense(d.EnsMask.Len(), d.EnsMask.Len(), nil)
	return nil
}

// HasE reports whether an initial E has been committed.
func (d *Data) HasE() bool { return d.haveE }

// PlanInitialE returns the E matrix and obsRow mapping that StoreInitialE
// would install, without mutating d. The caller commits the result with
// CommitE once every other fallible step of the same iteration has
// succeeded.
func (d *Data) PlanInitialE(in *mat.Dense) (newE *mat.Dense, newObsRow []int) {
	newE = mat.DenseCopyOf(in)
	newObsRow = make([]int, d.ObsMask0.Len())
	for i := range newObsRow {
		newObsRow[i] = -1
	}
	for row, pos := range d.ObsMask0.Indices() {
		newObsRow[pos] = row
	}
	return newE, newObsRow
}

// StoreInitialE copies in as E on the first iteration and records, for
// every active position of obs_mask0, which row of E holds it. Later calls
// are a no-op; use AugmentInitialE instead.
func (d *Data) StoreInitialE(in *mat.Dense) {
	if d.haveE {
		return
	}
	d.CommitE(d.PlanInitialE(in))
}

// PlanAugmentInitialE computes the E matrix and obsRow mapping that
// AugmentInitialE would install, without mutating d. The caller commits
// the result with CommitE once every other fallible step of the same
// iteration has succeeded. in must be sized to the current active
// observation and ensemble counts.
func (d *Data) PlanAugmentInitialE(in *mat.Dense) (newE *mat.Dense, newObsRow []int, err error) {
	if !d.haveE {
		return nil, nil, &ierr.StateError{Op: "AugmentInitialE", Msg: "no initial E stored; call StoreInitialE first"}
	}
	_, n := d.E.Dims()
	inRows, inCols := in.Dims()
	// in holds only the active realizations; they map onto E's columns
	// through the ensemble mask, or onto all of them when no mask of E's
	// width is recorded.
	ensIdx := mask.All(n).Indices()
	if d.EnsMask.Len() == n {
		ensIdx = d.EnsMask.Indices()
	}
	if inCols != len(ensIdx) {
		return nil, nil, &ierr.ShapeError{Op: "AugmentInitialE", Msg: fmt.Sprintf(
			"augmenting E has ensemble width %d, want %d", inCols, len(ensIdx))}
	}
	active := d.ObsMask.Indices()
	if inRows != len(active) {
		return nil, nil, &ierr.ShapeError{Op: "AugmentInitialE", Msg: fmt.Sprintf(
			"augmenting E has %d rows, want %d active observations", inRows, len(active))}
	}

	obsRow := append([]int(nil), d.obsRow...)
	var newRows [][]float64
	var newPos []int
	for i, pos := range active {
		if pos < len(obsRow) && obsRow[pos] >= 0 {
			continue
		}
		if pos >= len(obsRow) {
			grown := make([]int, pos+1)
			for j := range grown {
				grown[j] = -1
			}
			copy(grown, obsRow)
			obsRow = grown
		}
		newRows = append(newRows, mat.Row(nil, i, in))
		newPos = append(newPos, pos)
	}
	if len(newRows) == 0 {
		return d.E, d.obsRow, nil
	}

	oldRows, _ := d.E.Dims()
	grownE := mat.NewDense(oldRows+len(newRows), n, nil)
	grownE.Copy(d.E)
	for i, r := range newRows {
		for j, cj := range ensIdx {
			grownE.Set(oldRows+i, cj, r[j])
		}
		obsRow[newPos[i]] = oldRows + i
	}
	return grownE, obsRow, nil
}

// AugmentInitialE appends, to E, the rows of in that correspond to
// observation positions active in obs_mask for the first time. Rows
// already present in E are never rewritten. in must be sized to the
// current active observation and ensemble counts.
func (d *Data) AugmentInitialE(in *mat.Dense) error {
	newE, newObsRow, err := d.PlanAugmentInitialE(in)
	if err != nil {
		return err
	}
	d.CommitE(newE, newObsRow)
	return nil
}

// CommitE installs newE and newObsRow as computed by PlanInitialE or
// PlanAugmentInitialE. It is the only way E is ever mutated after being
// planned, so a caller staging a multi-step update can compute the plan
// early and defer the commit until every other fallible step succeeds.
func (d *Data) CommitE(newE *mat.Dense, newObsRow []int) {
	d.E = newE
	d.obsRow = newObsRow
	d.haveE = true
}

// ActiveEFrom returns the currently active sub-matrix of a (not necessarily
// yet committed) E/obsRow pair: one row per active position of obsMask (in
// ascending position order), restricted to the columns selected by ensMask.
// It underlies both AllocActiveE and any caller that must read the active
// slice of a planned-but-not-yet-committed E.
func ActiveEFrom(e *mat.Dense, obsRow []int, obsMask, ensMask mask.Mask) (*mat.Dense, error) {
	_, n := e.Dims()
	if n != ensMask.Len() {
		return nil, &ierr.ShapeError{Op: "AllocActiveE", Msg: fmt.Sprintf(
			"E has ensemble width %d, ensemble mask has length %d", n, ensMask.Len())}
	}
	active := obsMask.Indices()
	ensIdx := ensMask.Indices()
	out := mat.NewDense(len(active), len(ensIdx), nil)
	for i, pos := range active {
		if pos >= len(obsRow) || obsRow[pos] < 0 {
			return nil, &ierr.StateError{Op: "AllocActiveE", Msg: fmt.Sprintf(
				"observation %d is active but was never stored into E", pos)}
		}
		row := obsRow[pos]
		for j, cj := range ensIdx {
			out.Set(i, j, e.At(row, cj))
		}
	}
	return out, nil
}

// AllocActiveE returns the currently active sub-matrix of E: one row per
// active observation position (in ascending position order), restricted
// to the columns selected by ensMask.
func (d *Data) AllocActiveE(ensMask mask.Mask) (*mat.Dense, error) {
	if d.E == nil {
		return nil, &ierr.StateError{Op: "AllocActiveE", Msg: "no E stored"}
	}
	return ActiveEFrom(d.E, d.obsRow, d.ObsMask, ensMask)
}

// HasA0 reports whether an initial A0 has been committed.
func (d *Data) HasA0() bool { return d.haveA0 }

// InitialA returns the committed A0, or nil if StoreInitialA has never
// succeeded.
func (d *Data) InitialA() *mat.Dense { return d.A0 }

// StoreInitialA copies a as A0 on the first iteration; later calls are a no-op.
func (d *Data) StoreInitialA(a *mat.Dense) {
	if d.haveA0 {
		return
	}
	d.A0 = mat.DenseCopyOf(a)
	d.haveA0 = true
}

// IncIterationNr increments and returns the iteration counter; the first
// value returned is 1.
func (d *Data) IncIterationNr() int {
	d.IterationNr++
	return d.IterationNr
}

// UpdateStateSize records n as the last-seen parameter-vector length.
func (d *Data) UpdateStateSize(n int) { d.StateSize = n }
