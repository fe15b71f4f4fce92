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

// Conservation sequential: inject a 2% temperature and 1% density drift
// and enforce [Particle, Energy]. Both invariants must be restored to
// within 0.1% with both laws reporting a correction.
func TestConservationSequential(t *testing.T) {
	g := testGeometry(t)
	base := uniformProfiles(g)

	e := NewConservationEnforcer()
	e.SetReference(base, g)

	drifted := base.Clone()
	drifted.Ti = drifted.Ti.Scale(1.02)
	drifted.Te = drifted.Te.Scale(1.02)
	drifted.Ne = drifted.Ne.Scale(1.01)

	corrected, results := e.Enforce(drifted, g, 7, 0.12)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if !r.Corrected {
			t.Errorf("law %s did not correct (drift %g)", r.Law, r.Drift)
		}
		if r.Step != 7 || r.Time != 0.12 {
			t.Errorf("law %s: step/time not carried through", r.Law)
		}
	}

	nRef := ParticleConservation{}.ComputeConserved(base, g)
	nNow := ParticleConservation{}.ComputeConserved(corrected, g)
	if math.Abs(nNow-nRef)/nRef > 1e-3 {
		t.Errorf("particle drift %g after enforcement, want ≤ 0.1%%", (nNow-nRef)/nRef)
	}
	wRef := EnergyConservation{}.ComputeConserved(base, g)
	wNow := EnergyConservation{}.ComputeConserved(corrected, g)
	if math.Abs(wNow-wRef)/wRef > 1e-3 {
		t.Errorf("energy drift %g after enforcement, want ≤ 0.1%%", (wNow-wRef)/wRef)
	}
}

// Applying the laws twice in a row must reduce the drift below tolerance
// once and then abstain.
func TestConservationIdempotence(t *testing.T) {
	g := testGeometry(t)
	base := uniformProfiles(g)

	e := NewConservationEnforcer()
	e.SetReference(base, g)

	drifted := base.Clone()
	drifted.Ne = drifted.Ne.Scale(1.05)
	drifted.Te = drifted.Te.Scale(1.04)

	once, first := e.Enforce(drifted, g, 0, 0)
	twice, second := e.Enforce(once, g, 1, 0)

	for _, r := range first {
		if !r.Corrected {
			t.Errorf("first pass: law %s did not correct", r.Law)
		}
	}
	for _, r := range second {
		if r.Corrected {
			t.Errorf("second pass: law %s corrected again (drift %g)", r.Law, r.Drift)
		}
		if r.Factor != 1 {
			t.Errorf("second pass: law %s factor %g, want 1", r.Law, r.Factor)
		}
	}
	for i := range once.Ne {
		if once.Ne[i] != twice.Ne[i] || once.Te[i] != twice.Te[i] {
			t.Errorf("cell %d: second enforcement changed the state", i)
		}
	}
}

// The energy correction must be linear in the factor: rescaling by k
// multiplies the total energy by exactly k.
func TestEnergyCorrectionLinearity(t *testing.T) {
	const testTolerance = 1e-5
	g := testGeometry(t)
	p := peakedProfiles(g)
	law := EnergyConservation{}

	before := law.ComputeConserved(p, g)
	for _, k := range []float64{0.85, 1.0, 1.15} {
		after := law.ComputeConserved(law.Apply(p, k), g)
		if different(after, k*before, testTolerance) {
			t.Errorf("factor %g: W scaled by %g", k, after/before)
		}
	}
}

// Correction factors stay inside the [0.8, 1.2] band no matter how big
// the drift is.
func TestCorrectionFactorClamp(t *testing.T) {
	for _, law := range []ConservationLaw{ParticleConservation{}, EnergyConservation{}} {
		if f := law.CorrectionFactor(1, 10); f != 1.2 {
			t.Errorf("%s: factor %g, want clamp at 1.2", law.Name(), f)
		}
		if f := law.CorrectionFactor(10, 1); f != 0.8 {
			t.Errorf("%s: factor %g, want clamp at 0.8", law.Name(), f)
		}
		if f := law.CorrectionFactor(0, 1); f != 1 {
			t.Errorf("%s: zero current gave factor %g, want 1", law.Name(), f)
		}
	}
}

// Laws apply in order: the particle law's density rescale happens before
// the energy law reads the state.
func TestConservationOrder(t *testing.T) {
	g := testGeometry(t)
	base := uniformProfiles(g)

	e := NewConservationEnforcer()
	e.SetReference(base, g)

	// Density-only drift: after the particle law fixes it, the energy
	// drift is back within tolerance and the energy law must abstain.
	drifted := base.Clone()
	drifted.Ne = drifted.Ne.Scale(1.03)

	_, results := e.Enforce(drifted, g, 0, 0)
	if !results[0].Corrected {
		t.Error("particle law did not correct")
	}
	if results[1].Corrected {
		t.Error("energy law corrected although the particle fix restored W")
	}
}
