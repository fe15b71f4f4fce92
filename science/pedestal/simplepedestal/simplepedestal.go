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

// Package simplepedestal contains a fixed-height pedestal model: the
// edge barrier is prescribed by configuration rather than predicted.
package simplepedestal

import "github.com/plasmamodel/toktrans"

// Model fulfils the github.com/plasmamodel/toktrans.PedestalModel
// interface. Recognized parameters: pedestal_temperature [eV] (default
// 1000), pedestal_density [m⁻³] (default 5e19), pedestal_width [m]
// (default 0.05·a).
type Model struct{}

// Name implements toktrans.PedestalModel.
func (Model) Name() string { return "simple-pedestal" }

// ComputePedestal implements toktrans.PedestalModel.
func (Model) ComputePedestal(p *toktrans.CoreProfiles, g *toktrans.Geometry,
	params toktrans.Params) (toktrans.Pedestal, error) {

	return toktrans.Pedestal{
		Temperature: params.Float("pedestal_temperature", 1000),
		Density:     params.Float("pedestal_density", 5e19),
		Width:       params.Float("pedestal_width", 0.05*g.MinorRadius),
	}, nil
}
