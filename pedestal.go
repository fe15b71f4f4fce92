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

// Pedestal describes the edge transport barrier: the temperature and
// density at its top and its radial width.
type Pedestal struct {
	Temperature float64 // eV
	Density     float64 // m⁻³
	Width       float64 // m
}

// PedestalModel predicts the edge pedestal from the current plasma state.
// The orchestrator feeds the prediction into the edge boundary conditions
// of the temperature and density equations.
type PedestalModel interface {
	Name() string
	ComputePedestal(profiles *CoreProfiles, geom *Geometry, params Params) (Pedestal, error)
}
