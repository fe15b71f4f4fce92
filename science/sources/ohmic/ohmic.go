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

// Package ohmic contains the ohmic heating source: resistive dissipation
// of the driven plasma current deposited into the electrons.
package ohmic

import (
	"math"

	"github.com/ctessum/unit"
	"github.com/plasmamodel/toktrans"
)

// Model fulfils the github.com/plasmamodel/toktrans.SourceModel
// interface. Recognized parameters: plasma_current [MA] (default 15) and
// zeff (default 1). The driven current density is spread uniformly over
// the cross section; the dissipated power η·J² goes to the electron
// channel and the same current density is reported as the external drive
// of the current equation.
type Model struct{}

// Name implements toktrans.SourceModel.
func (Model) Name() string { return "ohmic" }

// ComputeTerms implements toktrans.SourceModel.
func (Model) ComputeTerms(p *toktrans.CoreProfiles, g *toktrans.Geometry,
	params toktrans.Params) (*toktrans.SourceTerms, error) {

	n := p.NCells()
	ip := params.Float("plasma_current", 15) * 1e6 // A
	zeff := params.Float("zeff", 1)
	out := toktrans.ZeroSources(n)
	if ip == 0 {
		return out, nil
	}
	area := math.Pi * g.MinorRadius * g.MinorRadius
	j := ip / area // A/m²

	var totalPower float64
	for i := 0; i < n; i++ {
		eps := g.RCell[i] / g.MajorRadius
		eta := toktrans.NeoclassicalResistivity(p.Ne[i], p.Te[i], zeff, eps)
		pw := eta * j * j // W/m³
		out.ElectronHeating[i] = pw / 1e6
		out.Current[i] = j
		totalPower += pw * g.Volume[i]
	}
	out.Metadata.Contributions = []toktrans.SourceContribution{{
		Model:         "ohmic",
		IonPower:      unit.New(0, unit.Watt),
		ElectronPower: unit.New(totalPower, unit.Watt),
	}}
	return out, nil
}
