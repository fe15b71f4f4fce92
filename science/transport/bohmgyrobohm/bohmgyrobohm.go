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

// Package bohmgyrobohm contains the Bohm–GyroBohm anomalous transport
// model: a Bohm term driven by the normalized pressure gradient and a
// GyroBohm term scaling with the ion gyroradius.
package bohmgyrobohm

import (
	"math"

	"github.com/plasmamodel/toktrans"
)

// physical constants
const (
	electronCharge = 1.602176634e-19 // C
	deuteronMass   = 3.343583772e-27 // kg
)

// Default mixture weights, after Erba et al. (1997).
const (
	defaultBohmCoeff     = 8e-5
	defaultGyroBohmCoeff = 3.5e-2
	// ion-to-electron channel ratio
	chiRatioIon = 2.0
	// chiMin keeps the diffusivity away from zero on the flat axis.
	chiMin = 0.05
)

// Model fulfils the github.com/plasmamodel/toktrans.TransportModel
// interface. Recognized parameters: bohm_coefficient,
// gyrobohm_coefficient, particle_diffusivity, convection_velocity.
type Model struct{}

// Name implements toktrans.TransportModel.
func (Model) Name() string { return "bohm-gyrobohm" }

// ComputeCoefficients implements toktrans.TransportModel.
func (Model) ComputeCoefficients(p *toktrans.CoreProfiles, g *toktrans.Geometry,
	params toktrans.Params) (*toktrans.TransportCoefficients, error) {

	n := p.NCells()
	alphaB := params.Float("bohm_coefficient", defaultBohmCoeff)
	alphaGB := params.Float("gyrobohm_coefficient", defaultGyroBohmCoeff)

	chiE := make(toktrans.Array, n)
	chiI := make(toktrans.Array, n)
	b := math.Abs(g.ToroidalField)
	if b == 0 {
		b = 1
	}
	for i := 0; i < n; i++ {
		te := p.Te[i] // eV
		// Normalized electron pressure gradient length.
		var dpe float64
		switch {
		case i == 0:
			dpe = (p.Te[1]*p.Ne[1] - p.Te[0]*p.Ne[0]) / g.Dr
		case i == n-1:
			dpe = (p.Te[n-1]*p.Ne[n-1] - p.Te[n-2]*p.Ne[n-2]) / g.Dr
		default:
			dpe = (p.Te[i+1]*p.Ne[i+1] - p.Te[i-1]*p.Ne[i-1]) / (2 * g.Dr)
		}
		pe := p.Te[i] * p.Ne[i]
		lpe := math.Abs(dpe) / math.Max(pe, 1) * g.MinorRadius

		// Bohm: χ ∝ (T/eB)·a·|∇p|/p.
		bohm := alphaB * te / b * lpe

		// GyroBohm: χ ∝ (T/eB)·ρ_i/a, with the gradient drive of the
		// Bohm term removed.
		rhoI := math.Sqrt(deuteronMass*te*electronCharge) / (electronCharge * b)
		gyro := alphaGB * te / b * rhoI / g.MinorRadius

		chiE[i] = chiMin + bohm + gyro
		chiI[i] = chiRatioIon * chiE[i]
	}

	d := params.Float("particle_diffusivity", 0)
	dArr := make(toktrans.Array, n)
	for i := range dArr {
		if d > 0 {
			dArr[i] = d
		} else {
			// Particle transport follows the electron heat channel
			// at a reduced level.
			dArr[i] = 0.3 * chiE[i]
		}
	}

	return &toktrans.TransportCoefficients{
		ChiIon:      chiI,
		ChiElectron: chiE,
		DParticle:   dArr,
		VConv:       toktrans.ConstArray(n, params.Float("convection_velocity", 0)),
	}, nil
}
