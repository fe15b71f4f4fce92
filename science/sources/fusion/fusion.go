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

// Package fusion contains the D-T alpha heating source. The reactivity
// uses the Bosch–Hale parameterization; a fifth of the fusion power
// stays in the plasma as alpha heating, split between the channels by a
// temperature-dependent fraction.
package fusion

import (
	"math"

	"github.com/ctessum/unit"
	"github.com/plasmamodel/toktrans"
)

// Bosch-Hale D-T reactivity fit coefficients (Nucl. Fusion 32, 611).
const (
	bg    = 34.3827 // keV^(1/2)
	mrc2  = 1124656 // keV
	c1    = 1.17302e-9
	c2    = 1.51361e-2
	c3    = 7.51886e-2
	c4    = 4.60643e-3
	c5    = 1.35000e-2
	c6    = -1.06750e-4
	c7    = 1.36600e-5
)

// alphaEnergy is the energy of one fusion alpha [J].
const alphaEnergy = 3.52e6 * 1.602176634e-19

// reactivity returns the D-T ⟨σv⟩ [m³/s] at ion temperature ti [keV].
func reactivity(ti float64) float64 {
	if ti < 0.2 {
		return 0
	}
	theta := ti / (1 - ti*(c2+ti*(c4+ti*c6))/(1+ti*(c3+ti*(c5+ti*c7))))
	xi := math.Pow(bg*bg/(4*theta), 1.0/3.0)
	return c1 * theta * math.Sqrt(xi/(mrc2*ti*ti*ti)) * math.Exp(-3*xi) * 1e-6
}

// Model fulfils the github.com/plasmamodel/toktrans.SourceModel
// interface. Recognized parameters: fuel_mix (deuterium fraction of the
// electron density, default 0.5 for a 50:50 D-T mix).
type Model struct{}

// Name implements toktrans.SourceModel.
func (Model) Name() string { return "fusion" }

// ComputeTerms implements toktrans.SourceModel.
func (Model) ComputeTerms(p *toktrans.CoreProfiles, g *toktrans.Geometry,
	params toktrans.Params) (*toktrans.SourceTerms, error) {

	mix := params.Float("fuel_mix", 0.5)
	n := p.NCells()
	out := toktrans.ZeroSources(n)
	var ionTotal, elTotal float64
	for i := 0; i < n; i++ {
		nd := mix * p.Ne[i]
		nt := (1 - mix) * p.Ne[i]
		sv := reactivity(p.Ti[i] / 1000)
		palpha := nd * nt * sv * alphaEnergy // W/m³

		// Alphas slow down mostly on electrons at low temperature;
		// the ion share grows with Te.
		fIon := ionHeatingFraction(p.Te[i] / 1000)
		out.IonHeating[i] = palpha * fIon / 1e6
		out.ElectronHeating[i] = palpha * (1 - fIon) / 1e6
		ionTotal += palpha * fIon * g.Volume[i]
		elTotal += palpha * (1 - fIon) * g.Volume[i]
	}
	// A plasma too cold to react contributes nothing.
	if ionTotal+elTotal == 0 {
		return out, nil
	}
	out.Metadata.Contributions = []toktrans.SourceContribution{{
		Model:         "fusion",
		IonPower:      unit.New(ionTotal, unit.Watt),
		ElectronPower: unit.New(elTotal, unit.Watt),
	}}
	return out, nil
}

// ionHeatingFraction interpolates the fraction of alpha power reaching
// the ions as a function of electron temperature [keV].
func ionHeatingFraction(teKeV float64) float64 {
	f := teKeV / (teKeV + 33)
	if f > 0.9 {
		f = 0.9
	}
	return f
}
