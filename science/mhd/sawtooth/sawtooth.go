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

// Package sawtooth contains a Kadomtsev-style sawtooth crash model:
// when the core electron temperature exceeds the trigger ratio over the
// mixing-radius value, the ion temperature, electron temperature and
// density inside the mixing radius each flatten to their volume average.
// This conserves the particles inside the mixing volume; the thermal
// energy there is conserved only where the density is already flat.
package sawtooth

import "github.com/plasmamodel/toktrans"

// Model fulfils the github.com/plasmamodel/toktrans.MHDModel interface.
type Model struct {
	// TriggerRatio is the core-to-mixing-radius Te ratio above which a
	// crash fires; default 3.
	TriggerRatio float64
	// MixingRho is the normalized mixing radius; default 0.4.
	MixingRho float64
	// CrashDuration is the timestep the orchestrator advances by on a
	// crash [s]; default 1e-3.
	CrashDuration float64
	// MinInterval is the minimum simulated time between crashes [s];
	// default 0.1.
	MinInterval float64

	lastCrash float64
	crashed   bool
}

// Name implements toktrans.MHDModel.
func (m *Model) Name() string { return "sawtooth" }

// CrashStepDuration implements toktrans.MHDModel.
func (m *Model) CrashStepDuration() float64 {
	if m.CrashDuration > 0 {
		return m.CrashDuration
	}
	return 1e-3
}

func (m *Model) triggerRatio() float64 {
	if m.TriggerRatio > 0 {
		return m.TriggerRatio
	}
	return 3
}

func (m *Model) mixingRho() float64 {
	if m.MixingRho > 0 {
		return m.MixingRho
	}
	return 0.4
}

func (m *Model) minInterval() float64 {
	if m.MinInterval > 0 {
		return m.MinInterval
	}
	return 0.1
}

// Apply implements toktrans.MHDModel. The returned profiles equal the
// input when no crash fires.
func (m *Model) Apply(p *toktrans.CoreProfiles, g *toktrans.Geometry,
	time, dt float64) (*toktrans.CoreProfiles, error) {

	mix := 0
	for i := 0; i < g.NCells; i++ {
		if g.RhoNorm(i) <= m.mixingRho() {
			mix = i + 1
		}
	}
	if mix < 2 {
		return p, nil
	}
	if m.crashed && time-m.lastCrash < m.minInterval() {
		return p, nil
	}
	if p.Te[0] < m.triggerRatio()*p.Te[mix-1] {
		return p, nil
	}

	out := p.Clone()
	flatten := func(a toktrans.Array) {
		var sum, vol float64
		for i := 0; i < mix; i++ {
			sum += a[i] * g.Volume[i]
			vol += g.Volume[i]
		}
		avg := sum / vol
		for i := 0; i < mix; i++ {
			a[i] = avg
		}
	}
	flatten(out.Ti)
	flatten(out.Te)
	flatten(out.Ne)
	m.lastCrash = time
	m.crashed = true
	return out, nil
}
