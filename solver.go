/*
Copyright © 2024 the TokTrans authors.
This file is part of TokTrans.

TokTrans is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

TokTrans is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with TokTrans.  If not, see <http://www.gnu.org/licenses/>.
*/

package toktrans

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// BCPair holds the two boundary constraints of one equation.
type BCPair struct {
	Left, Right FaceConstraint
}

// BoundaryConditions holds the boundary constraints of all four
// equations.
type BoundaryConditions struct {
	Ti, Te, Ne, Psi BCPair
}

// CoeffsCallback re-evaluates the equation coefficients at the given
// iterate. Solvers invoke it at least once per iteration so coefficients
// can depend on the solved state.
type CoeffsCallback func(iterate *CoreProfiles) (*EquationCoeffs, error)

// SolveRequest carries everything one solver invocation needs: the
// timestep, the static configuration, the mesh, the boundary conditions
// at the old and new time (BCsOld may be nil when they coincide), the
// state at the old time, and the coefficient callback.
type SolveRequest struct {
	Dt       float64
	Static   *StaticParams
	Geom     *Geometry
	BCs      *BoundaryConditions
	BCsOld   *BoundaryConditions
	Profiles *CoreProfiles
	Coeffs   CoeffsCallback
}

func (req *SolveRequest) bcsOld() *BoundaryConditions {
	if req.BCsOld != nil {
		return req.BCsOld
	}
	return req.BCs
}

// SolverResult reports the outcome of one solver invocation. Solvers
// never fail on non-convergence; they report it here and leave the retry
// policy to the orchestrator.
type SolverResult struct {
	Profiles   *CoreProfiles
	Iterations int
	Residual   float64
	Converged  bool
	Metadata   map[string]float64
}

// Solver advances the evolved profiles by one θ-weighted implicit
// timestep.
type Solver interface {
	Name() string
	Solve(req *SolveRequest) (*SolverResult, error)
}

// fluxDivergence applies the transport operator ∇·F to a cell variable,
// where F = -D·∇x + v·x on faces and the divergence carries the
// Jacobian-weighted face areas of the mesh. The axis face has zero area,
// so no flux crosses it regardless of the boundary constraint.
func fluxDivergence(c *Block1DCoeffs, cv *CellVariable, geom *Geometry) Array {
	n := len(cv.Values)
	flux := make(Array, n+1)
	for i := 0; i <= n; i++ {
		flux[i] = -c.DFace[i]*cv.FaceGradient(i) + c.VFace[i]*cv.FaceValue(i)
	}
	out := make(Array, n)
	for i := 0; i < n; i++ {
		out[i] = (geom.FaceArea[i+1]*flux[i+1] - geom.FaceArea[i]*flux[i]) / geom.Volume[i]
	}
	return out
}

// tridiag holds one tridiagonal system a·x[i-1] + b·x[i] + c·x[i+1] = d.
type tridiag struct {
	a, b, c, d Array
}

func newTridiag(n int) *tridiag {
	return &tridiag{a: NewArray(n), b: NewArray(n), c: NewArray(n), d: NewArray(n)}
}

// solve runs the Thomas algorithm. It overwrites the system in place and
// returns the solution, or an error when elimination hits a zero pivot.
func (t *tridiag) solve() (Array, error) {
	n := len(t.b)
	for i := 1; i < n; i++ {
		if t.b[i-1] == 0 {
			return nil, fmt.Errorf("toktrans: tridiagonal solve: zero pivot in row %d", i-1)
		}
		m := t.a[i] / t.b[i-1]
		t.b[i] -= m * t.c[i-1]
		t.d[i] -= m * t.d[i-1]
	}
	if t.b[n-1] == 0 {
		return nil, fmt.Errorf("toktrans: tridiagonal solve: zero pivot in row %d", n-1)
	}
	x := make(Array, n)
	x[n-1] = t.d[n-1] / t.b[n-1]
	for i := n - 2; i >= 0; i-- {
		x[i] = (t.d[i] - t.c[i]*x[i+1]) / t.b[i]
	}
	return x, nil
}

// assembleTheta builds the linear system of the θ-weighted implicit update
//
//	T(x_new − x_old)/Δt + θ∇·F_new(x_new) + (1−θ)∇·F_old(x_old) = S
//
// for one equation. cNew and cOld are the coefficients at the new and old
// time; xOld is the state at the old time with its boundary constraints;
// bcNew constrains the new state. The implicit operator is expressed
// through the same face rules as fluxDivergence, so the two stay
// consistent.
func assembleTheta(cNew, cOld *Block1DCoeffs, xOld *CellVariable, bcNew BCPair,
	geom *Geometry, dt, theta float64) *tridiag {

	n := len(xOld.Values)
	dr := geom.Dr
	sys := newTridiag(n)

	// Transient and source.
	for i := 0; i < n; i++ {
		sys.b[i] = cNew.Transient[i] / dt
		sys.d[i] = cNew.Transient[i]/dt*xOld.Values[i] + cNew.Source[i]
	}

	// Explicit part of the flux divergence.
	if theta < 1 {
		div := fluxDivergence(cOld, xOld, geom)
		for i := 0; i < n; i++ {
			sys.d[i] -= (1 - theta) * div[i]
		}
	}

	// Implicit part. For each face, the area-weighted flux
	//   A·F = A·(-D·∂x/∂r + v·x_face)
	// is linear in the adjacent cell values and the boundary constants;
	// its stencil contributions enter the rows of the two cells it
	// separates with opposite signs.
	for face := 0; face <= n; face++ {
		area := geom.FaceArea[face]
		if area == 0 {
			continue
		}
		d := cNew.DFace[face]
		v := cNew.VFace[face]

		// wL, wR multiply x[face-1] and x[face]; k is the constant
		// term, so that A·F = area·(wL·x[face-1] + wR·x[face] + k).
		var wL, wR, k float64
		switch {
		case face == 0:
			if bcNew.Left.Kind == ConstraintValue {
				// grad = (x[0]-xL)/(dr/2), val = xL
				wR = -d / (dr / 2)
				k = d*bcNew.Left.V/(dr/2) + v*bcNew.Left.V
			} else {
				// grad = gL, val = x[0] - gL·dr/2
				wR = v
				k = -d*bcNew.Left.V - v*bcNew.Left.V*dr/2
			}
		case face == n:
			if bcNew.Right.Kind == ConstraintValue {
				wL = d / (dr / 2)
				k = -d*bcNew.Right.V/(dr/2) + v*bcNew.Right.V
			} else {
				wL = v
				k = -d*bcNew.Right.V + v*bcNew.Right.V*dr/2
			}
		default:
			wL = d/dr + v/2
			wR = -d/dr + v/2
		}

		addFaceTerms(sys, geom, face, n, area, wL, wR, k, theta)
	}
	return sys
}

// addFaceTerms distributes one face's area-weighted flux into the rows of
// the adjacent cells. For the cell left of the face the divergence adds
// +A·F/V; for the cell right of it, −A·F/V. wL and wR are the weights of
// the cells left and right of the face (the boundary faces have only
// one), and k is the constant term, which lands on the right-hand side
// with opposite sign.
func addFaceTerms(sys *tridiag, geom *Geometry, face, n int, area, wL, wR, k, theta float64) {
	if face > 0 { // cell face-1 is left of the face
		i := face - 1
		w := theta * area / geom.Volume[i]
		if face < n {
			sys.b[i] += w * wL // x[face-1] = x[i]
			sys.c[i] += w * wR // x[face] = x[i+1]
		} else { // right boundary: only x[n-1] participates
			sys.b[i] += w * wL
		}
		sys.d[i] -= w * k
	}
	if face < n { // cell face is right of the face
		i := face
		w := theta * area / geom.Volume[i]
		if face > 0 {
			sys.a[i] -= w * wL // x[face-1] = x[i-1]
			sys.b[i] -= w * wR // x[face] = x[i]
		} else { // left boundary: only x[0] participates
			sys.b[i] -= w * wR
		}
		sys.d[i] += w * k
	}
}

// equationState pairs a Block1DCoeffs selector with the matching profile
// array, so the solvers can loop over evolved equations uniformly.
type equationState struct {
	name string
	bc   func(*BoundaryConditions) BCPair
	get  func(*CoreProfiles) Array
	set  func(*CoreProfiles, Array)
	eq   func(*EquationCoeffs) *Block1DCoeffs
}

var equations = []equationState{
	{VarTi,
		func(b *BoundaryConditions) BCPair { return b.Ti },
		func(p *CoreProfiles) Array { return p.Ti },
		func(p *CoreProfiles, a Array) { p.Ti = a },
		func(c *EquationCoeffs) *Block1DCoeffs { return c.Ti }},
	{VarTe,
		func(b *BoundaryConditions) BCPair { return b.Te },
		func(p *CoreProfiles) Array { return p.Te },
		func(p *CoreProfiles, a Array) { p.Te = a },
		func(c *EquationCoeffs) *Block1DCoeffs { return c.Te }},
	{VarNe,
		func(b *BoundaryConditions) BCPair { return b.Ne },
		func(p *CoreProfiles) Array { return p.Ne },
		func(p *CoreProfiles, a Array) { p.Ne = a },
		func(c *EquationCoeffs) *Block1DCoeffs { return c.Ne }},
	{VarPsi,
		func(b *BoundaryConditions) BCPair { return b.Psi },
		func(p *CoreProfiles) Array { return p.Psi },
		func(p *CoreProfiles, a Array) { p.Psi = a },
		func(c *EquationCoeffs) *Block1DCoeffs { return c.Psi }},
}

// residualNorm evaluates the nonlinear residual of the θ-weighted update
// at the candidate state xNew, with coefficients re-evaluated there, and
// returns its scaled RMS norm. Each equation is normalized by the RMS of
// its own state so temperatures and densities weigh equally.
func residualNorm(cNew, cOld *EquationCoeffs, old, candidate *CoreProfiles,
	bcNew, bcOld *BoundaryConditions, geom *Geometry, dt, theta float64) float64 {

	var sumsq float64
	var count int
	for _, eq := range equations {
		blockNew := eq.eq(cNew)
		if blockNew == nil {
			continue
		}
		blockOld := eq.eq(cOld)
		xO := &CellVariable{Values: eq.get(old), Dr: geom.Dr,
			LeftBC: eq.bc(bcOld).Left, RightBC: eq.bc(bcOld).Right}
		xN := &CellVariable{Values: eq.get(candidate), Dr: geom.Dr,
			LeftBC: eq.bc(bcNew).Left, RightBC: eq.bc(bcNew).Right}

		divNew := fluxDivergence(blockNew, xN, geom)
		divOld := fluxDivergence(blockOld, xO, geom)

		scale := math.Max(floats.Norm(eq.get(candidate), 2)/math.Sqrt(float64(len(divNew))), 1e-30)
		for i := range divNew {
			r := blockNew.Transient[i]*(xN.Values[i]-xO.Values[i])/dt +
				theta*divNew[i] + (1-theta)*divOld[i] - blockNew.Source[i]
			// Normalize by the transient scale so the residual is
			// in units of the state per unit time step.
			r *= dt / blockNew.Transient[i] / scale
			sumsq += r * r
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(sumsq / float64(count))
}

// LinearSolver advances the state with the predictor–corrector scheme:
// each corrector pass rebuilds the coefficients at the previous iterate
// and solves the resulting tridiagonal systems once. It is the solver the
// differentiable pipeline mirrors, with NCorrector=1.
type LinearSolver struct {
	// NCorrector is the number of corrector passes; at least one runs.
	NCorrector int
	// Tolerance is the residual norm below which the step counts as
	// converged.
	Tolerance float64
	// PereverzevFactor scales the artificial stiffness-damping
	// diffusivity when StaticParams.UsePereverzev is set.
	PereverzevFactor float64
}

// NewLinearSolver returns a linear solver with the given corrector count
// and tolerance.
func NewLinearSolver(nCorrector int, tolerance float64) *LinearSolver {
	if nCorrector < 1 {
		nCorrector = 1
	}
	return &LinearSolver{NCorrector: nCorrector, Tolerance: tolerance, PereverzevFactor: 2}
}

// Name implements Solver.
func (s *LinearSolver) Name() string { return "linear" }

// Solve implements Solver.
func (s *LinearSolver) Solve(req *SolveRequest) (*SolverResult, error) {
	cOld, err := req.Coeffs(req.Profiles)
	if err != nil {
		return nil, err
	}

	candidate := req.Profiles.Clone()
	cNew := cOld
	iters := 0
	var resid float64

	for k := 0; k < s.NCorrector; k++ {
		iters++
		next := candidate.Clone()
		for _, eq := range equations {
			block := eq.eq(cNew)
			if block == nil {
				continue
			}
			blockOld := eq.eq(cOld)
			impl := block
			if req.Static.UsePereverzev {
				impl = s.pereverzev(block, eq.get(candidate), eq.bc(req.bcsOld()), req.Geom)
			}
			xOld := &CellVariable{Values: eq.get(req.Profiles), Dr: req.Geom.Dr,
				LeftBC: eq.bc(req.bcsOld()).Left, RightBC: eq.bc(req.bcsOld()).Right}
			sys := assembleTheta(impl, blockOld, xOld, eq.bc(req.BCs), req.Geom, req.Dt, req.Static.Theta)
			x, err := sys.solve()
			if err != nil {
				return nil, err
			}
			eq.set(next, x)
		}
		candidate = next

		// Re-evaluate the coefficients at the new iterate so the
		// next corrector pass, and the reported residual, are
		// consistent with the solved state.
		cNew, err = req.Coeffs(candidate)
		if err != nil {
			return nil, err
		}
		resid = residualNorm(cNew, cOld, req.Profiles, candidate, req.BCs, req.bcsOld(),
			req.Geom, req.Dt, req.Static.Theta)
		if resid < s.Tolerance {
			break
		}
	}

	return &SolverResult{
		Profiles:   candidate,
		Iterations: iters,
		Residual:   resid,
		Converged:  resid < s.Tolerance,
		Metadata:   map[string]float64{"corrector_steps": float64(iters)},
	}, nil
}

// pereverzev returns a copy of block with the artificial predictor
// diffusivity added implicitly and the matching explicit flux of the
// current iterate added to the source, so the correction vanishes at
// convergence while the implicit operator is stiffened.
func (s *LinearSolver) pereverzev(block *Block1DCoeffs, xIter Array, bc BCPair, geom *Geometry) *Block1DCoeffs {
	n := len(block.Transient)
	dp := s.PereverzevFactor * block.DFace.Max()
	if dp <= 0 {
		return block
	}
	out := &Block1DCoeffs{
		DFace:     block.DFace.AddScalar(dp),
		VFace:     block.VFace,
		Transient: block.Transient,
		Source:    block.Source.Clone(),
	}
	aux := &Block1DCoeffs{
		DFace:     ConstArray(n+1, dp),
		VFace:     NewArray(n + 1),
		Transient: block.Transient,
		Source:    NewArray(n),
	}
	cv := &CellVariable{Values: xIter, Dr: geom.Dr, LeftBC: bc.Left, RightBC: bc.Right}
	div := fluxDivergence(aux, cv, geom)
	for i := 0; i < n; i++ {
		out.Source[i] -= div[i]
	}
	return out
}
