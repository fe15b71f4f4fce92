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

// Package fixedtransport contains a transport model with spatially and
// temporally constant coefficients, the baseline for verification runs.
package fixedtransport

import "github.com/plasmamodel/toktrans"

// Model fulfils the github.com/plasmamodel/toktrans.TransportModel
// interface with constant coefficients taken from the parameter bag:
// chi_ion, chi_electron [m²/s] (default 1), particle_diffusivity [m²/s]
// (default 0.5·chi_ion), and convection_velocity [m/s] (default 0).
type Model struct{}

// Name implements toktrans.TransportModel.
func (Model) Name() string { return "fixed" }

// ComputeCoefficients implements toktrans.TransportModel.
func (Model) ComputeCoefficients(p *toktrans.CoreProfiles, g *toktrans.Geometry,
	params toktrans.Params) (*toktrans.TransportCoefficients, error) {

	n := p.NCells()
	chiI := params.Float("chi_ion", 1)
	chiE := params.Float("chi_electron", 1)
	d := params.Float("particle_diffusivity", 0.5*chiI)
	v := params.Float("convection_velocity", 0)
	return &toktrans.TransportCoefficients{
		ChiIon:      toktrans.ConstArray(n, chiI),
		ChiElectron: toktrans.ConstArray(n, chiE),
		DParticle:   toktrans.ConstArray(n, d),
		VConv:       toktrans.ConstArray(n, v),
	}, nil
}
