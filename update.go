package ies

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/equinor/ies-update/internal/ierr"
	"github.com/equinor/ies-update/internal/linalg"
	"github.com/equinor/ies-update/inversion"
	"github.com/equinor/ies-update/mask"
	"github.com/equinor/ies-update/state"
)

// InitUpdateInput carries one iteration's masks. S, R, DObs, E and D are
// accepted for dispatch-table parity with the original interface but are
// not consumed here; they are supplied again to UpdateA.
type InitUpdateInput struct {
	EnsMask mask.Mask
	ObsMask mask.Mask

	S, R, E, D *mat.Dense
	DObs       []float64
}

// InitUpdate refreshes the iteration masks ahead of the next UpdateA call.
// It must be called before the first UpdateA; later UpdateA calls reuse the
// masks of the most recent InitUpdate until it is called again.
func InitUpdate(s *State, in InitUpdateInput) error {
	if err := s.data.UpdateEnsMask(in.EnsMask); err != nil {
		return err
	}
	if err := s.data.AllocateW(); err != nil {
		return err
	}
	s.data.StoreInitialObsMask(in.ObsMask)
	s.data.UpdateObsMask(in.ObsMask)
	s.initialized = true
	return nil
}

// UpdateAInput carries one iteration's ensemble and observation data.
// A is both input and output: on success it is overwritten in place with
// A0_active * X. R may be nil for inversion modes that don't use it.
type UpdateAInput struct {
	A    *mat.Dense // n x N, updated in place
	Y    *mat.Dense // m x N, simulated responses
	R    *mat.Dense // m x m, observation error covariance
	DObs []float64  // m, observation values; unused by the update math
	E    *mat.Dense // m x N, this iteration's observation perturbations
	D    *mat.Dense // m x N, perturbed observations minus simulated responses
}

// UpdateA advances the chain by one iteration: it folds in this
// iteration's data, computes the new coefficient matrix, and applies the
// resulting transform to A in place. Every step that can fail runs against
// local copies or read-only views of *State; IterationNr, StateSize, E,
// A0 and W are committed only after doInitX and StoreActiveW have both
// succeeded, so a failed call leaves *State exactly as it found it (spec
// §7: "either the entire iteration completes and commits ..., or nothing
// changes").
func UpdateA(s *State, in UpdateAInput) error {
	if !s.initialized {
		return &ierr.StateError{Op: "UpdateA", Msg: "UpdateA called before InitUpdate"}
	}

	ensMask := s.data.EnsMask
	obsMask := s.data.ObsMask
	N := ensMask.Active()
	m := obsMask.Active()
	n, cA := in.A.Dims()

	if cA != N {
		return shapeErrf("UpdateA", "A has %d columns, ensemble mask has %d active realizations", cA, N)
	}
	if rY, cY := in.Y.Dims(); rY != m || cY != N {
		return shapeErrf("UpdateA", "Y is %dx%d, want %dx%d", rY, cY, m, N)
	}
	if in.R != nil {
		if rR, cR := in.R.Dims(); rR != m || cR != m {
			return shapeErrf("UpdateA", "R is %dx%d, want %dx%d", rR, cR, m, m)
		}
	}
	if rE, cE := in.E.Dims(); rE != m || cE != N {
		return shapeErrf("UpdateA", "E is %dx%d, want %dx%d", rE, cE, m, N)
	}
	if rD, cD := in.D.Dims(); rD != m || cD != N {
		return shapeErrf("UpdateA", "D is %dx%d, want %dx%d", rD, cD, m, N)
	}

	k := s.data.IterationNr + 1
	gamma, err := s.Config.StepLength(k)
	if err != nil {
		return err
	}

	var plannedE *mat.Dense
	var plannedObsRow []int
	if s.data.HasE() {
		plannedE, plannedObsRow, err = s.data.PlanAugmentInitialE(in.E)
		if err != nil {
			return err
		}
	} else {
		plannedE, plannedObsRow = s.data.PlanInitialE(in.E)
	}

	activeE, err := state.ActiveEFrom(plannedE, plannedObsRow, obsMask, ensMask)
	if err != nil {
		return err
	}

	Y := mat.DenseCopyOf(in.Y)
	R := denseCopyOrNil(in.R)
	D := mat.DenseCopyOf(in.D)

	// Reconcile D onto the basis of the stored, augmented perturbations:
	// D <- D - E_in + E.
	var diff mat.Dense
	diff.Sub(D, in.E)
	D.Add(&diff, activeE)

	w0, err := linalg.AllocActive(s.data.W, ensMask, ensMask)
	if err != nil {
		return err
	}

	var aBasis *mat.Dense
	if s.data.HasA0() {
		aBasis = s.data.InitialA()
	} else {
		aBasis = in.A
	}
	aRows, aCols := aBasis.Dims()
	if aRows != n {
		return shapeErrf("UpdateA", "A0 has %d parameter rows, current A has %d", aRows, n)
	}
	if aCols != ensMask.Len() {
		return shapeErrf("UpdateA", "A0 has %d columns, ensemble mask has length %d", aCols, ensMask.Len())
	}
	aActive, err := linalg.AllocActive(aBasis, mask.All(aRows), ensMask)
	if err != nil {
		return err
	}

	newW0, x, costf, err := doInitX(w0, aActive, Y, R, activeE, D, s.Config, gamma, true)
	if err != nil {
		return err
	}
	if err := linalg.StoreActiveW(s.data.W, newW0, ensMask); err != nil {
		return err
	}

	var out mat.Dense
	out.Mul(aActive, x)

	// Every fallible step has succeeded: commit.
	s.data.CommitE(plannedE, plannedObsRow)
	if !s.data.HasA0() {
		s.data.StoreInitialA(in.A)
	}
	s.data.UpdateStateSize(n)
	s.data.IncIterationNr()
	in.A.Copy(&out)

	if s.Config.Logger != nil {
		_ = s.Config.Logger.LogUpdate(LogRecord{
			ID:           s.ID,
			Iteration:    k,
			CostFunction: costf,
			Inversion:    s.Config.Inversion.String(),
			StepLength:   gamma,
		})
	}
	return nil
}

func shapeErrf(op, format string, args ...any) error {
	return &ierr.ShapeError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// InitXInput carries the stateless inputs to InitX.
type InitXInput struct {
	Config *Config
	Y      *mat.Dense
	R      *mat.Dense
	E      *mat.Dense
	D      *mat.Dense
}

// InitX computes X for a single update with no persistent iteration
// state: the coefficient matrix is taken to be zero and the step length
// to be 1, matching the dispatch table's stateless
// initX(cfg, Y, R, E, D, X) entry. It never applies AA-projection, since
// no A is available to project against.
func InitX(in InitXInput) (*mat.Dense, error) {
	if err := in.Config.Validate(); err != nil {
		return nil, err
	}
	_, N := in.Y.Dims()
	w0 := mat.NewDense(N, N, nil)
	_, x, _, err := doInitX(w0, nil, in.Y, in.R, in.E, in.D, in.Config, 1, false)
	return x, err
}

// doInitX is the shared core of UpdateA and InitX: it builds S from Y and
// the current coefficient matrix, dispatches to the configured inversion
// mode, and assembles X. aActive may be nil to skip AA-projection. Every
// temporary it allocates is local to the call; nothing is retained past
// return except what the caller stores itself.
func doInitX(w0, aActive, yIn, r, e, dIn *mat.Dense, cfg *Config, gamma float64, computeCost bool) (newW0, x *mat.Dense, costf float64, err error) {
	m, N := yIn.Dims()
	if N < 2 {
		return nil, nil, 0, &ierr.ShapeError{Op: "initX", Msg: "active ensemble size must be >= 2"}
	}
	if wr, wc := w0.Dims(); wr != N || wc != N {
		return nil, nil, 0, &ierr.ShapeError{Op: "initX", Msg: fmt.Sprintf("W0 is %dx%d, want %dx%d", wr, wc, N, N)}
	}
	if r != nil {
		if rr, rc := r.Dims(); rr != m || rc != m {
			return nil, nil, 0, &ierr.ShapeError{Op: "initX", Msg: fmt.Sprintf("R is %dx%d, want %dx%d", rr, rc, m, m)}
		}
	}
	if e != nil {
		if er, ec := e.Dims(); er != m || ec != N {
			return nil, nil, 0, &ierr.ShapeError{Op: "initX", Msg: fmt.Sprintf("E is %dx%d, want %dx%d", er, ec, m, N)}
		}
	}
	if dr, dc := dIn.Dims(); dr != m || dc != N {
		return nil, nil, 0, &ierr.ShapeError{Op: "initX", Msg: fmt.Sprintf("D is %dx%d, want %dx%d", dr, dc, m, N)}
	}
	if aActive != nil {
		if ar, ac := aActive.Dims(); ac != N {
			return nil, nil, 0, &ierr.ShapeError{Op: "initX", Msg: fmt.Sprintf("A is %dx%d, want %d columns", ar, ac, N)}
		}
	}
	nsc := 1 / math.Sqrt(float64(N-1))

	Y := mat.DenseCopyOf(yIn)
	linalg.SubtractRowMean(Y)
	Y.Scale(nsc, Y)

	if aActive != nil && cfg.UseProjection {
		n, _ := aActive.Dims()
		if n <= N-1 {
			ad := mat.DenseCopyOf(aActive)
			linalg.SubtractRowMean(ad)
			var svd mat.SVD
			if !svd.Factorize(ad, mat.SVDThin) {
				return nil, nil, 0, &ierr.NumericalError{Op: "initX", Msg: "SVD of A-projection basis did not converge"}
			}
			var v mat.Dense
			svd.VTo(&v)
			var proj mat.Dense
			proj.Mul(&v, v.T())
			var projected mat.Dense
			projected.Mul(Y, &proj)
			Y = &projected
		}
	}

	w0Scaled := mat.DenseCopyOf(w0)
	linalg.SubtractRowMean(w0Scaled)
	w0Scaled.Scale(nsc, w0Scaled)
	omega := mat.DenseCopyOf(w0Scaled)
	linalg.AddIdentity(omega)

	var st mat.Dense
	if err := st.Solve(omega.T(), Y.T()); err != nil {
		return nil, nil, 0, &ierr.NumericalError{Op: "initX", Msg: fmt.Sprintf("solving for S: %v", err)}
	}
	var s mat.Dense
	s.CloneFrom(st.T())

	h := mat.DenseCopyOf(dIn)
	var sw0 mat.Dense
	sw0.Mul(&s, w0)
	h.Add(&sw0, h)

	savedW0 := mat.DenseCopyOf(w0)

	newW0, err = inversion.Update(cfg.Inversion, w0, &s, r, e, h, N, cfg.Truncation, gamma)
	if err != nil {
		return nil, nil, 0, err
	}

	x = mat.DenseCopyOf(newW0)
	x.Scale(nsc, x)
	linalg.AddIdentity(x)

	if computeCost {
		costf = costFunction(savedW0, dIn)
	}
	return newW0, x, costf, nil
}

func denseCopyOrNil(m *mat.Dense) *mat.Dense {
	if m == nil {
		return nil
	}
	return mat.DenseCopyOf(m)
}

// costFunction computes (1/N) * sum_i (||W_col_i||^2 + ||D_col_i||^2).
func costFunction(w, d *mat.Dense) float64 {
	_, N := w.Dims()
	total := 0.0
	for j := 0; j < N; j++ {
		wcol := mat.Col(nil, j, w)
		dcol := mat.Col(nil, j, d)
		total += floats.Dot(wcol, wcol) + floats.Dot(dcol, dcol)
	}
	return total / float64(N)
}
