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

import "math"

// ConservationLaw is one invariant of the discretized plasma: it knows
// how to compute the conserved integral from the profiles, how to turn a
// drift into a bounded correction factor, and how to apply that factor.
type ConservationLaw interface {
	Name() string
	// ComputeConserved returns the conserved integral at the given
	// state.
	ComputeConserved(profiles *CoreProfiles, geom *Geometry) float64
	// CorrectionFactor maps the current and reference values of the
	// invariant to the rescaling factor that restores the reference.
	CorrectionFactor(current, reference float64) float64
	// Apply rescales the profiles by factor and returns the result.
	Apply(profiles *CoreProfiles, factor float64) *CoreProfiles
	// DriftTolerance is the relative drift below which the law
	// abstains from correcting.
	DriftTolerance() float64
}

// correction factors are bounded to this band so a single enforcement
// never rewrites the state by more than 20%.
const (
	correctionFactorMin = 0.8
	correctionFactorMax = 1.2
)

func clampFactor(f float64) float64 {
	if f < correctionFactorMin {
		return correctionFactorMin
	}
	if f > correctionFactorMax {
		return correctionFactorMax
	}
	return f
}

// ParticleConservation restores the total particle inventory N = ∫ne dV
// by rescaling the density uniformly.
type ParticleConservation struct {
	// Tolerance is the relative drift below which no correction is
	// applied; zero means the 0.5% default.
	Tolerance float64
}

// Name implements ConservationLaw.
func (ParticleConservation) Name() string { return "particle" }

// ComputeConserved implements ConservationLaw.
func (ParticleConservation) ComputeConserved(p *CoreProfiles, g *Geometry) float64 {
	return g.VolumeIntegrate(p.Ne)
}

// CorrectionFactor implements ConservationLaw.
func (ParticleConservation) CorrectionFactor(current, reference float64) float64 {
	if current == 0 {
		return 1
	}
	return clampFactor(reference / current)
}

// Apply implements ConservationLaw.
func (ParticleConservation) Apply(p *CoreProfiles, factor float64) *CoreProfiles {
	out := p.Clone()
	out.Ne = out.Ne.Scale(factor)
	return out
}

// DriftTolerance implements ConservationLaw.
func (l ParticleConservation) DriftTolerance() float64 {
	if l.Tolerance > 0 {
		return l.Tolerance
	}
	return 0.005
}

// EnergyConservation restores the thermal energy
// W = (3/2)∫ne(Te+Ti)e dV by rescaling both temperatures. The correction
// is linear in the factor, not its square root, because W is linear in T
// at fixed density.
type EnergyConservation struct {
	// Tolerance is the relative drift below which no correction is
	// applied; zero means the 1% default.
	Tolerance float64
}

// Name implements ConservationLaw.
func (EnergyConservation) Name() string { return "energy" }

// ComputeConserved implements ConservationLaw.
func (EnergyConservation) ComputeConserved(p *CoreProfiles, g *Geometry) float64 {
	var w float64
	for i := range p.Ne {
		w += 1.5 * p.Ne[i] * (p.Te[i] + p.Ti[i]) * EVToJoule * g.Volume[i]
	}
	return w
}

// CorrectionFactor implements ConservationLaw.
func (EnergyConservation) CorrectionFactor(current, reference float64) float64 {
	if current == 0 {
		return 1
	}
	return clampFactor(reference / current)
}

// Apply implements ConservationLaw.
func (EnergyConservation) Apply(p *CoreProfiles, factor float64) *CoreProfiles {
	out := p.Clone()
	out.Ti = out.Ti.Scale(factor)
	out.Te = out.Te.Scale(factor)
	return out
}

// DriftTolerance implements ConservationLaw.
func (l EnergyConservation) DriftTolerance() float64 {
	if l.Tolerance > 0 {
		return l.Tolerance
	}
	return 0.01
}

// ConservationResult reports one law's action during an enforcement pass.
type ConservationResult struct {
	Law       string
	Reference float64
	Current   float64
	Drift     float64
	Factor    float64
	Corrected bool
	Step      int
	Time      float64
}

// ConservationEnforcer projects the state back onto its invariants. Laws
// apply in list order and each law sees its predecessor's output, so the
// particle inventory is restored before the energy rescaling reads the
// density.
type ConservationEnforcer struct {
	Laws       []ConservationLaw
	references map[string]float64
}

// NewConservationEnforcer returns an enforcer with the baseline particle
// and energy laws, in that order.
func NewConservationEnforcer() *ConservationEnforcer {
	return &ConservationEnforcer{
		Laws: []ConservationLaw{ParticleConservation{}, EnergyConservation{}},
	}
}

// SetReference records the invariants of the given state as the targets
// all later enforcement restores.
func (e *ConservationEnforcer) SetReference(profiles *CoreProfiles, geom *Geometry) {
	e.references = make(map[string]float64, len(e.Laws))
	for _, law := range e.Laws {
		e.references[law.Name()] = law.ComputeConserved(profiles, geom)
	}
}

// Enforce applies the laws in order and returns the corrected profiles
// together with one result per law. A law abstains when its drift is
// within tolerance; enforcement never fails, it only reports.
func (e *ConservationEnforcer) Enforce(profiles *CoreProfiles, geom *Geometry,
	step int, time float64) (*CoreProfiles, []ConservationResult) {

	if e.references == nil {
		e.SetReference(profiles, geom)
	}
	out := profiles
	results := make([]ConservationResult, 0, len(e.Laws))
	for _, law := range e.Laws {
		ref := e.references[law.Name()]
		current := law.ComputeConserved(out, geom)
		drift := 0.0
		if ref != 0 {
			drift = (current - ref) / ref
		}
		res := ConservationResult{
			Law:       law.Name(),
			Reference: ref,
			Current:   current,
			Drift:     drift,
			Factor:    1,
			Step:      step,
			Time:      time,
		}
		if math.Abs(drift) >= law.DriftTolerance() {
			res.Factor = law.CorrectionFactor(current, ref)
			out = law.Apply(out, res.Factor)
			res.Corrected = true
		}
		results = append(results, res)
	}
	return out, results
}

// Drifts returns the current relative drift of each law's invariant
// without correcting anything.
func (e *ConservationEnforcer) Drifts(profiles *CoreProfiles, geom *Geometry) map[string]float64 {
	out := make(map[string]float64, len(e.Laws))
	if e.references == nil {
		return out
	}
	for _, law := range e.Laws {
		ref := e.references[law.Name()]
		if ref == 0 {
			continue
		}
		out[law.Name()] = (law.ComputeConserved(profiles, geom) - ref) / ref
	}
	return out
}
