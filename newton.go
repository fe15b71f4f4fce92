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
	"gonum.org/v1/gonum/mat"
)

// NewtonSolver advances the state by Newton–Raphson iteration on the
// θ-weighted implicit update. The Jacobian of each equation is the
// analytic linearization of its discrete operator at the current iterate
// (transient weight plus implicitly weighted flux stencil); the
// derivatives of the coefficients themselves with respect to the iterate
// are picked up by re-assembling at every iteration. A backtracking line
// search guards each step.
type NewtonSolver struct {
	Tolerance     float64
	MaxIterations int
	// MaxLineSearch bounds the number of step halvings per iteration.
	MaxLineSearch int
	// EstimateCondition adds a condition-number estimate of the Jacobian
	// blocks of the first Newton iteration (the largest over the evolved
	// equations) to the result metadata.
	EstimateCondition bool
}

// NewNewtonSolver returns a Newton solver with the given tolerance and
// iteration cap.
func NewNewtonSolver(tolerance float64, maxIterations int) *NewtonSolver {
	return &NewtonSolver{
		Tolerance:     tolerance,
		MaxIterations: maxIterations,
		MaxLineSearch: 5,
	}
}

// Name implements Solver.
func (s *NewtonSolver) Name() string { return "newton_raphson" }

// Solve implements Solver.
func (s *NewtonSolver) Solve(req *SolveRequest) (*SolverResult, error) {
	cOld, err := req.Coeffs(req.Profiles)
	if err != nil {
		return nil, err
	}

	x := req.Profiles.Clone()
	cIter := cOld
	resid := residualNorm(cIter, cOld, req.Profiles, x, req.BCs, req.bcsOld(),
		req.Geom, req.Dt, req.Static.Theta)

	var iters, lineRetries int
	var condition float64

	for iters = 0; iters < s.MaxIterations && resid >= s.Tolerance; iters++ {
		next := x.Clone()
		for _, eq := range equations {
			block := eq.eq(cIter)
			if block == nil {
				continue
			}
			blockOld := eq.eq(cOld)
			xOldCV := &CellVariable{Values: eq.get(req.Profiles), Dr: req.Geom.Dr,
				LeftBC: eq.bc(req.bcsOld()).Left, RightBC: eq.bc(req.bcsOld()).Right}
			xCV := &CellVariable{Values: eq.get(x), Dr: req.Geom.Dr,
				LeftBC: eq.bc(req.BCs).Left, RightBC: eq.bc(req.BCs).Right}

			// Residual of this equation at the current iterate.
			divNew := fluxDivergence(block, xCV, req.Geom)
			divOld := fluxDivergence(blockOld, xOldCV, req.Geom)
			n := len(divNew)
			f := make(Array, n)
			for i := 0; i < n; i++ {
				f[i] = block.Transient[i]*(xCV.Values[i]-xOldCV.Values[i])/req.Dt +
					req.Static.Theta*divNew[i] + (1-req.Static.Theta)*divOld[i] -
					block.Source[i]
			}

			// The matrix assembled for the implicit update is the
			// Jacobian ∂F/∂x at the current iterate; solve J·δ = −F.
			sys := assembleTheta(block, blockOld, xOldCV, eq.bc(req.BCs),
				req.Geom, req.Dt, req.Static.Theta)
			jac := &tridiag{a: sys.a, b: sys.b, c: sys.c, d: f.Scale(-1)}
			if s.EstimateCondition && iters == 0 {
				condition = max(condition, tridiagCondition(jac))
			}
			delta, err := jac.solve()
			if err != nil {
				return nil, err
			}
			eq.set(next, eq.get(x).Add(delta))
		}

		// Backtracking line search on the scaled residual.
		lambda := 1.0
		var candidate *CoreProfiles
		var candResid float64
		for ls := 0; ; ls++ {
			candidate = blend(x, next, lambda)
			cCand, err := req.Coeffs(candidate)
			if err != nil {
				return nil, err
			}
			candResid = residualNorm(cCand, cOld, req.Profiles, candidate, req.BCs,
				req.bcsOld(), req.Geom, req.Dt, req.Static.Theta)
			if candResid <= resid || ls >= s.MaxLineSearch {
				cIter = cCand
				break
			}
			lambda /= 2
			lineRetries++
		}
		x = candidate
		resid = candResid
	}

	meta := map[string]float64{
		"linesearch_retries": float64(lineRetries),
	}
	if s.EstimateCondition {
		meta["jacobian_condition"] = condition
	}
	return &SolverResult{
		Profiles:   x,
		Iterations: iters,
		Residual:   resid,
		Converged:  resid < s.Tolerance,
		Metadata:   meta,
	}, nil
}

// blend returns a + λ(b−a) per evolved array.
func blend(a, b *CoreProfiles, lambda float64) *CoreProfiles {
	out := a.Clone()
	mix := func(x, y Array) Array {
		z := make(Array, len(x))
		for i := range z {
			z[i] = x[i] + lambda*(y[i]-x[i])
		}
		return z
	}
	out.Ti = mix(a.Ti, b.Ti)
	out.Te = mix(a.Te, b.Te)
	out.Ne = mix(a.Ne, b.Ne)
	out.Psi = mix(a.Psi, b.Psi)
	return out
}

// tridiagCondition estimates the 2-norm condition number of a
// tridiagonal Jacobian block by densifying it.
func tridiagCondition(t *tridiag) float64 {
	n := len(t.b)
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, t.b[i])
		if i > 0 {
			m.Set(i, i-1, t.a[i])
		}
		if i < n-1 {
			m.Set(i, i+1, t.c[i])
		}
	}
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDNone) {
		return 0
	}
	vals := svd.Values(nil)
	if len(vals) == 0 || vals[len(vals)-1] == 0 {
		return 0
	}
	return vals[0] / vals[len(vals)-1]
}
