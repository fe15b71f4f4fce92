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
	"math"
	"testing"
)

// different reports whether a and b differ by more than the given
// relative tolerance.
func different(a, b, tolerance float64) bool {
	if a == b {
		return false
	}
	return math.Abs(a-b)/math.Max(math.Abs(a), math.Abs(b)) > tolerance
}

// absDifferent reports whether a and b differ by more than the given
// absolute tolerance.
func absDifferent(a, b, tolerance float64) bool {
	return math.Abs(a-b) > tolerance
}

// testGeometry returns the circular ITER-like mesh the end-to-end
// scenarios use: 25 cells, R=6.2 m, a=2.0 m, B=5.3 T.
func testGeometry(t *testing.T) *Geometry {
	t.Helper()
	g, err := NewCircularGeometry(25, 6.2, 2.0, 5.3)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// uniformProfiles returns flat 10 keV temperatures and 1e20 density.
func uniformProfiles(g *Geometry) *CoreProfiles {
	n := g.NCells
	return &CoreProfiles{
		Ti:  ConstArray(n, 1e4),
		Te:  ConstArray(n, 1e4),
		Ne:  ConstArray(n, 1e20),
		Psi: ConstArray(n, 0),
	}
}

// peakedProfiles returns parabolic 10 keV profiles falling to 100 eV at
// the edge with a quadratic seed flux.
func peakedProfiles(g *Geometry) *CoreProfiles {
	p := &CoreProfiles{
		Ti:  ParabolicProfile(g, 1e4, 100),
		Te:  ParabolicProfile(g, 1e4, 100),
		Ne:  ParabolicProfile(g, 1e20, 5e19),
		Psi: make(Array, g.NCells),
	}
	// Flux gradient giving a poloidal field near half a tesla at
	// mid-radius.
	for i := 0; i < g.NCells; i++ {
		rho := g.RhoNorm(i)
		p.Psi[i] = 39 * rho * rho
	}
	return p
}

func TestHarmonicMeanBounds(t *testing.T) {
	pairs := [][2]float64{{1, 1}, {1, 2}, {0.1, 10}, {1e18, 1e20}, {3.7, 0.04}}
	for _, pr := range pairs {
		a, b := pr[0], pr[1]
		h := harmonicMean(a, b)
		lo, hi := math.Min(a, b), math.Max(a, b)
		if h < lo || h > hi {
			t.Errorf("harmonicMean(%g,%g)=%g outside [%g,%g]", a, b, h, lo, hi)
		}
	}
	if h := harmonicMean(2, 2); different(h, 2, 1e-12) {
		t.Errorf("harmonicMean(2,2)=%g, want 2", h)
	}
}

func TestProfileValidation(t *testing.T) {
	g := testGeometry(t)
	p := uniformProfiles(g)
	if err := p.Validate(); err != nil {
		t.Error(err)
	}

	bad := p.Clone()
	bad.Ti[3] = -5
	if err := bad.Validate(); err == nil {
		t.Error("negative Ti passed validation")
	}

	bad = p.Clone()
	bad.Te[0] = math.NaN()
	if err := bad.Validate(); err == nil {
		t.Error("NaN Te passed validation")
	}

	bad = p.Clone()
	bad.Ne[10] = 1e17 // below the floor
	if err := bad.Validate(); err == nil {
		t.Error("sub-floor density passed validation")
	}

	bad = p.Clone()
	bad.Psi = bad.Psi[:len(bad.Psi)-1]
	if err := bad.Validate(); err == nil {
		t.Error("mismatched lengths passed validation")
	}
}

func TestCheckStability(t *testing.T) {
	g := testGeometry(t)
	p := uniformProfiles(g)
	if err := p.CheckStability(0); err != nil {
		t.Error(err)
	}
	p.Te[7] = math.Inf(1)
	err := p.CheckStability(1.5)
	ie, ok := err.(*InstabilityError)
	if !ok {
		t.Fatalf("got %v, want InstabilityError", err)
	}
	if ie.Variable != VarTe || ie.Time != 1.5 {
		t.Errorf("got %+v, want Te at t=1.5", ie)
	}
}

func TestGeometryVolumes(t *testing.T) {
	const testTolerance = 1e-10
	g := testGeometry(t)
	// The cell volumes must sum to the analytic torus volume
	// 2π²R₀a² of the midpoint rule.
	var sum float64
	for _, v := range g.Volume {
		sum += v
	}
	if different(sum, g.TotalVolume, testTolerance) {
		t.Errorf("volume sum %g != TotalVolume %g", sum, g.TotalVolume)
	}
	analytic := 2 * math.Pi * math.Pi * 6.2 * 2.0 * 2.0
	if different(sum, analytic, 1e-3) {
		t.Errorf("total volume %g, analytic %g", sum, analytic)
	}
	// Faces and cells interleave.
	for i := 0; i < g.NCells; i++ {
		if g.RCell[i] <= g.RFace[i] || g.RCell[i] >= g.RFace[i+1] {
			t.Errorf("cell center %d not between its faces", i)
		}
	}
	if g.FaceArea[0] != 0 {
		t.Errorf("axis face area %g, want 0", g.FaceArea[0])
	}
}
