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

// Package gaspuff contains the edge gas fueling source: neutral influx
// deposited in an exponential layer inside the last closed surface.
package gaspuff

import (
	"math"

	"github.com/ctessum/unit"
	"github.com/plasmamodel/toktrans"
)

// Model fulfils the github.com/plasmamodel/toktrans.SourceModel
// interface. Recognized parameters: gas_puff_rate [particles/s]
// (default 0) and gas_puff_depth (e-folding depth in normalized radius,
// default 0.05).
type Model struct{}

// Name implements toktrans.SourceModel.
func (Model) Name() string { return "gas-puff" }

// ComputeTerms implements toktrans.SourceModel.
func (Model) ComputeTerms(p *toktrans.CoreProfiles, g *toktrans.Geometry,
	params toktrans.Params) (*toktrans.SourceTerms, error) {

	rate := params.Float("gas_puff_rate", 0)
	depth := params.Float("gas_puff_depth", 0.05)

	n := p.NCells()
	out := toktrans.ZeroSources(n)
	if rate == 0 {
		return out, nil
	}

	shape := make(toktrans.Array, n)
	var integral float64
	for i := 0; i < n; i++ {
		shape[i] = math.Exp(-(1 - g.RhoNorm(i)) / depth)
		integral += shape[i] * g.Volume[i]
	}
	for i := 0; i < n; i++ {
		out.Particle[i] = rate * shape[i] / integral
	}
	out.Metadata.Contributions = []toktrans.SourceContribution{{
		Model:     "gas-puff",
		Particles: unit.New(rate, unit.Herz),
	}}
	return out, nil
}
