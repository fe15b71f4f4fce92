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

	"github.com/spf13/cast"
)

// Params is a bag of named model parameters. Transport, source, pedestal,
// and MHD models read their recognized entries from it; unrecognized
// entries are ignored so one bag can serve several models.
type Params map[string]interface{}

// Float returns the named parameter coerced to float64, or fallback when
// the entry is absent.
func (p Params) Float(name string, fallback float64) float64 {
	v, ok := p[name]
	if !ok {
		return fallback
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return fallback
	}
	return f
}

// Bool returns the named parameter coerced to bool, or fallback when the
// entry is absent.
func (p Params) Bool(name string, fallback bool) bool {
	v, ok := p[name]
	if !ok {
		return fallback
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return fallback
	}
	return b
}

// TransportCoefficients holds per-cell transport coefficients: the ion and
// electron thermal diffusivities [m²/s], the particle diffusivity [m²/s],
// and the convection velocity [m/s].
type TransportCoefficients struct {
	ChiIon      Array
	ChiElectron Array
	DParticle   Array
	VConv       Array
}

// NCells returns the mesh length of the coefficient arrays.
func (tc *TransportCoefficients) NCells() int { return len(tc.ChiIon) }

// Validate checks that all arrays share the mesh length and the
// diffusivities are non-negative.
func (tc *TransportCoefficients) Validate() error {
	n := len(tc.ChiIon)
	if len(tc.ChiElectron) != n || len(tc.DParticle) != n || len(tc.VConv) != n {
		return fmt.Errorf("toktrans.TransportCoefficients.Validate: mismatched lengths")
	}
	for i := 0; i < n; i++ {
		if tc.ChiIon[i] < 0 || tc.ChiElectron[i] < 0 || tc.DParticle[i] < 0 {
			return fmt.Errorf("toktrans.TransportCoefficients.Validate: negative diffusivity in cell %d", i)
		}
	}
	return nil
}

// Bound returns a copy of tc with every diffusivity bounded above by
// chiMax. The solvers never see unbounded coefficients.
func (tc *TransportCoefficients) Bound(chiMax float64) *TransportCoefficients {
	return &TransportCoefficients{
		ChiIon:      tc.ChiIon.ClampMax(chiMax),
		ChiElectron: tc.ChiElectron.ClampMax(chiMax),
		DParticle:   tc.DParticle.ClampMax(chiMax),
		VConv:       tc.VConv.Clone(),
	}
}

// MaxChi returns the largest thermal or particle diffusivity anywhere on
// the mesh, the quantity the CFL timestep estimator needs.
func (tc *TransportCoefficients) MaxChi() float64 {
	return max(tc.ChiIon.Max(), tc.ChiElectron.Max(), tc.DParticle.Max())
}

// TransportModel computes transport coefficients from the current plasma
// state. Recognized Params entries: chi_ion, chi_electron,
// particle_diffusivity, convection_velocity, bohm_coefficient,
// gyrobohm_coefficient.
type TransportModel interface {
	// Name identifies the model in diagnostics and metadata.
	Name() string
	// ComputeCoefficients returns per-cell coefficients for the given
	// state. Implementations must not retain or mutate the inputs.
	ComputeCoefficients(profiles *CoreProfiles, geom *Geometry, params Params) (*TransportCoefficients, error)
}
