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

func constTransport(n int, chi float64) *TransportCoefficients {
	return &TransportCoefficients{
		ChiIon:      ConstArray(n, chi),
		ChiElectron: ConstArray(n, chi),
		DParticle:   ConstArray(n, chi/2),
		VConv:       NewArray(n),
	}
}

func TestHarmonicFaceInterpolation(t *testing.T) {
	const testTolerance = 1e-12
	dCell := Array{1, 4, 9}
	dFace := cellDiffusivityToFaces(dCell)
	if len(dFace) != 4 {
		t.Fatalf("got %d faces, want 4", len(dFace))
	}
	// Boundary faces take the nearest cell value unchanged.
	if dFace[0] != 1 || dFace[3] != 9 {
		t.Errorf("boundary faces %g, %g; want 1, 9", dFace[0], dFace[3])
	}
	// Interior faces are harmonic means and stay within the cell
	// values.
	if different(dFace[1], 2.0*1*4/(1+4), 1e-9) {
		t.Errorf("face 1: got %g, want %g", dFace[1], 2.0*4/5)
	}
	for i := 1; i < 3; i++ {
		lo := math.Min(dCell[i-1], dCell[i])
		hi := math.Max(dCell[i-1], dCell[i])
		if dFace[i] < lo-testTolerance || dFace[i] > hi+testTolerance {
			t.Errorf("face %d: %g outside [%g,%g]", i, dFace[i], lo, hi)
		}
	}
}

func TestSourceAdditivity(t *testing.T) {
	n := 4
	s := ZeroSources(n)
	s.IonHeating[1] = 2
	s.ElectronHeating[2] = 3
	s.Metadata.Contributions = []SourceContribution{{Model: "a"}}

	zero := ZeroSources(n)
	left := zero.Add(s)
	right := s.Add(zero)
	for i := 0; i < n; i++ {
		if left.IonHeating[i] != s.IonHeating[i] || right.IonHeating[i] != s.IonHeating[i] {
			t.Errorf("cell %d: zero is not the additive identity", i)
		}
	}
	if len(left.Metadata.Contributions) != 1 || len(right.Metadata.Contributions) != 1 {
		t.Error("identity changed the metadata")
	}

	u := ZeroSources(n)
	u.IonHeating[1] = 5
	u.Metadata.Contributions = []SourceContribution{{Model: "b"}}
	sum := s.Add(u)
	if sum.IonHeating[1] != 7 {
		t.Errorf("got %g, want 7", sum.IonHeating[1])
	}
	// Metadata entries equal the number of contributing non-zero
	// components.
	if len(sum.Metadata.Contributions) != 2 {
		t.Errorf("got %d metadata entries, want 2", len(sum.Metadata.Contributions))
	}

	// A zero-valued term loses its metadata in the merge even if the
	// model recorded one.
	idle := ZeroSources(n)
	idle.Metadata.Contributions = []SourceContribution{{Model: "idle"}}
	sum = sum.Add(idle)
	if len(sum.Metadata.Contributions) != 2 {
		t.Errorf("zero-valued term kept its metadata: %d entries, want 2",
			len(sum.Metadata.Contributions))
	}
}

func TestBuildCoeffsHeatEquation(t *testing.T) {
	const testTolerance = 1e-9
	g := testGeometry(t)
	p := uniformProfiles(g)
	static := DefaultStaticParams()

	src := ZeroSources(g.NCells)
	for i := range src.ElectronHeating {
		src.ElectronHeating[i] = 0.5 // MW/m³
	}

	coeffs, err := BuildCoeffs(p, g, constTransport(g.NCells, 1), src, &static)
	if err != nil {
		t.Fatal(err)
	}
	if coeffs.Ne != nil || coeffs.Psi != nil {
		t.Error("unevolved equations have coefficients")
	}

	// The transient weight of a temperature equation is the floored
	// density and the face diffusivity is n·χ.
	for i := 0; i < g.NCells; i++ {
		if different(coeffs.Ti.Transient[i], 1e20, testTolerance) {
			t.Errorf("transient[%d]=%g, want 1e20", i, coeffs.Ti.Transient[i])
		}
	}
	for i := 1; i < g.NCells; i++ {
		if different(coeffs.Te.DFace[i], 1e20, testTolerance) {
			t.Errorf("DFace[%d]=%g, want 1e20", i, coeffs.Te.DFace[i])
		}
	}

	// Heating converts from MW/m³ to eV/(m³·s) with the single
	// authoritative factor.
	want := 0.5 * 6.2415090744e24
	for i := range coeffs.Te.Source {
		if different(coeffs.Te.Source[i], want, testTolerance) {
			t.Errorf("source[%d]=%g, want %g", i, coeffs.Te.Source[i], want)
		}
	}
}

func TestDensityFloorAtAssembly(t *testing.T) {
	g := testGeometry(t)
	p := uniformProfiles(g)
	// Force the stored density below the floor; the builder must
	// floor it without touching the profile.
	for i := range p.Ne {
		p.Ne[i] = 1e10
	}
	static := DefaultStaticParams()
	coeffs, err := BuildCoeffs(p, g, constTransport(g.NCells, 1), ZeroSources(g.NCells), &static)
	if err != nil {
		t.Fatal(err)
	}
	for i := range coeffs.Ti.Transient {
		if coeffs.Ti.Transient[i] < NeFloor {
			t.Errorf("transient[%d]=%g below floor", i, coeffs.Ti.Transient[i])
		}
	}
	if p.Ne[0] != 1e10 {
		t.Error("builder mutated the density profile")
	}
}

// Bootstrap-bearing flat edge: with peaked pressure and a 50% density
// pedestal, the bootstrap share of a 1 MA/m² external drive lands between
// 5% and 50% at mid-radius, bounded by 10 MA/m², with the sign of the
// pressure gradient.
func TestBootstrapCurrent(t *testing.T) {
	g := testGeometry(t)
	p := peakedProfiles(g)

	jbs := BootstrapCurrent(p, g)
	mid := g.NCells / 2
	const jExt = 1e6
	ratio := math.Abs(jbs[mid]) / jExt
	if ratio < 0.05 || ratio > 0.5 {
		t.Errorf("bootstrap fraction %g at mid-radius outside [0.05,0.5]", ratio)
	}
	for i, v := range jbs {
		if math.Abs(v) > BootstrapCurrentMax {
			t.Errorf("|J_bs[%d]|=%g exceeds the bound", i, math.Abs(v))
		}
	}
	// Peaked pressure has a negative gradient; the bootstrap term
	// carries its sign.
	if jbs[mid] >= 0 {
		t.Errorf("J_bs=%g at mid-radius, want the pressure gradient sign (negative)", jbs[mid])
	}

	static := DefaultStaticParams()
	static.EvolveCurrent = true
	src := ZeroSources(g.NCells)
	for i := range src.Current {
		src.Current[i] = jExt
	}
	coeffs, err := BuildCoeffs(p, g, constTransport(g.NCells, 1), src, &static)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range coeffs.Psi.Source {
		if math.Abs(v) > jExt+BootstrapCurrentMax {
			t.Errorf("|J_total[%d]|=%g exceeds the combined bound", i, math.Abs(v))
		}
	}
	for i, d := range coeffs.Psi.DFace {
		if d <= 0 {
			t.Errorf("flux diffusivity %g on face %d is not positive", d, i)
		}
	}
}

func TestStaticParamsValidation(t *testing.T) {
	sp := DefaultStaticParams()
	if err := sp.Validate(); err != nil {
		t.Error(err)
	}
	sp.Theta = 1.5
	if err := sp.Validate(); err == nil {
		t.Error("theta=1.5 accepted")
	}
	sp = DefaultStaticParams()
	sp.EvolveIonHeat = false
	sp.EvolveElectronHeat = false
	if err := sp.Validate(); err == nil {
		t.Error("no evolved equation accepted")
	}
	sp = DefaultStaticParams()
	sp.ChiMax = -1
	if err := sp.Validate(); err == nil {
		t.Error("negative chi_max accepted")
	}
}
