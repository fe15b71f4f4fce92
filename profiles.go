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
)

// Names of the evolved quantities, in equation order.
const (
	VarTi  = "Ti"
	VarTe  = "Te"
	VarNe  = "ne"
	VarPsi = "psi"
)

// CoreProfiles holds the four evolved radial profiles: ion temperature
// [eV], electron temperature [eV], electron density [m⁻³], and poloidal
// flux [Wb]. All four share the same mesh length.
type CoreProfiles struct {
	Ti  Array
	Te  Array
	Ne  Array
	Psi Array
}

// NCells returns the shared mesh length.
func (p *CoreProfiles) NCells() int { return len(p.Ti) }

// Clone returns a deep copy of p.
func (p *CoreProfiles) Clone() *CoreProfiles {
	return &CoreProfiles{
		Ti:  p.Ti.Clone(),
		Te:  p.Te.Clone(),
		Ne:  p.Ne.Clone(),
		Psi: p.Psi.Clone(),
	}
}

// Equal reports whether p and q hold identical values. The MHD hook uses
// it to detect that a model left the profiles untouched.
func (p *CoreProfiles) Equal(q *CoreProfiles) bool {
	if p.NCells() != q.NCells() {
		return false
	}
	for i := range p.Ti {
		if p.Ti[i] != q.Ti[i] || p.Te[i] != q.Te[i] ||
			p.Ne[i] != q.Ne[i] || p.Psi[i] != q.Psi[i] {
			return false
		}
	}
	return true
}

// Validate checks the profile invariants: all four arrays share the mesh
// length, temperatures are positive and finite, and the density is finite
// and no smaller than NeFloor.
func (p *CoreProfiles) Validate() error {
	n := len(p.Ti)
	if len(p.Te) != n || len(p.Ne) != n || len(p.Psi) != n {
		return fmt.Errorf("toktrans.CoreProfiles.Validate: mismatched lengths Ti=%d Te=%d ne=%d psi=%d",
			len(p.Ti), len(p.Te), len(p.Ne), len(p.Psi))
	}
	if n == 0 {
		return fmt.Errorf("toktrans.CoreProfiles.Validate: empty profiles")
	}
	for i := 0; i < n; i++ {
		if !isFinite(p.Ti[i]) || p.Ti[i] <= 0 {
			return fmt.Errorf("toktrans.CoreProfiles.Validate: Ti[%d]=%g is not a positive finite temperature", i, p.Ti[i])
		}
		if !isFinite(p.Te[i]) || p.Te[i] <= 0 {
			return fmt.Errorf("toktrans.CoreProfiles.Validate: Te[%d]=%g is not a positive finite temperature", i, p.Te[i])
		}
		if !isFinite(p.Ne[i]) || p.Ne[i] < NeFloor {
			return fmt.Errorf("toktrans.CoreProfiles.Validate: ne[%d]=%g is below the density floor %g", i, p.Ne[i], float64(NeFloor))
		}
		if !isFinite(p.Psi[i]) {
			return fmt.Errorf("toktrans.CoreProfiles.Validate: psi[%d]=%g is not finite", i, p.Psi[i])
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// CheckStability scans the profiles for NaN or ±Inf and returns an
// InstabilityError naming the first offending variable, or nil.
func (p *CoreProfiles) CheckStability(time float64) error {
	for _, q := range []struct {
		name string
		a    Array
	}{{VarTi, p.Ti}, {VarTe, p.Te}, {VarNe, p.Ne}, {VarPsi, p.Psi}} {
		name, a := q.name, q.a
		for _, v := range a {
			if !isFinite(v) {
				return &InstabilityError{Time: time, Variable: name, Value: v}
			}
		}
	}
	return nil
}

// Serialize flattens the profiles into aligned arrays of length NCells in
// the order (Ti, Te, ne, psi).
func (p *CoreProfiles) Serialize() (ti, te, ne, psi []float64) {
	return p.Ti.Clone(), p.Te.Clone(), p.Ne.Clone(), p.Psi.Clone()
}

// ParabolicProfile returns a profile with the given center and edge values
// falling off as 1-(r/a)² on the cell centers of g.
func ParabolicProfile(g *Geometry, center, edge float64) Array {
	a := make(Array, g.NCells)
	for i := range a {
		rho := g.RhoNorm(i)
		a[i] = edge + (center-edge)*(1-rho*rho)
	}
	return a
}
