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
	"math"
)

// Geometry holds the radial mesh and the metric factors of a circular,
// large-aspect-ratio torus. It is derived once per mesh and immutable
// afterwards; all fields are in SI units.
type Geometry struct {
	NCells        int
	MajorRadius   float64 // R₀ [m]
	MinorRadius   float64 // a [m]
	ToroidalField float64 // B₀ [T]

	Dr    float64 // radial cell width [m]
	RCell Array   // cell-center radii, length NCells
	RFace Array   // face radii, length NCells+1

	// Metric factors on faces, length NCells+1. G0 is ∂V/∂r, the flux
	// surface area; G1 = G0²; G2 = G1/R₀², the poloidal-flux diffusion
	// weight; G3 = ⟨1/R²⟩ ≈ 1/R₀² for a thin circular torus.
	G0, G1, G2, G3 Array

	// Jacobian √g on cell centers [m²]: the volume element per unit
	// radius, 4π²R₀r for a thin circular torus.
	Jacobian Array

	Volume      Array   // per-cell volumes [m³], length NCells
	FaceArea    Array   // flux-surface areas on faces [m²], length NCells+1
	TotalVolume float64 // plasma volume [m³]
}

// NewCircularGeometry builds the mesh and metric factors for a circular
// torus with nCells radial cells between the magnetic axis and r = a.
func NewCircularGeometry(nCells int, majorRadius, minorRadius, toroidalField float64) (*Geometry, error) {
	if nCells < 2 {
		return nil, fmt.Errorf("toktrans.NewCircularGeometry: need at least 2 cells, got %d", nCells)
	}
	if majorRadius <= 0 || minorRadius <= 0 || minorRadius >= majorRadius {
		return nil, fmt.Errorf("toktrans.NewCircularGeometry: inconsistent radii R₀=%g a=%g",
			majorRadius, minorRadius)
	}
	g := &Geometry{
		NCells:        nCells,
		MajorRadius:   majorRadius,
		MinorRadius:   minorRadius,
		ToroidalField: toroidalField,
		Dr:            minorRadius / float64(nCells),
	}
	g.RCell = make(Array, nCells)
	g.Volume = make(Array, nCells)
	g.Jacobian = make(Array, nCells)
	g.RFace = make(Array, nCells+1)
	g.FaceArea = make(Array, nCells+1)
	g.G0 = make(Array, nCells+1)
	g.G1 = make(Array, nCells+1)
	g.G2 = make(Array, nCells+1)
	g.G3 = make(Array, nCells+1)

	fourPi2R := 4 * math.Pi * math.Pi * majorRadius
	for i := 0; i <= nCells; i++ {
		r := float64(i) * g.Dr
		g.RFace[i] = r
		g.FaceArea[i] = fourPi2R * r
		g.G0[i] = fourPi2R * r
		g.G1[i] = g.G0[i] * g.G0[i]
		g.G2[i] = g.G1[i] / (majorRadius * majorRadius)
		g.G3[i] = 1 / (majorRadius * majorRadius)
	}
	for i := 0; i < nCells; i++ {
		r := (float64(i) + 0.5) * g.Dr
		g.RCell[i] = r
		g.Jacobian[i] = fourPi2R * r
		g.Volume[i] = fourPi2R * r * g.Dr
		g.TotalVolume += g.Volume[i]
	}
	return g, nil
}

// VolumeIntegrate returns ∫x dV over the plasma for a cell-centered
// profile x.
func (g *Geometry) VolumeIntegrate(x Array) float64 {
	var sum float64
	for i, v := range x {
		sum += v * g.Volume[i]
	}
	return sum
}

// VolumeAverage returns the volume-weighted mean of a cell-centered
// profile.
func (g *Geometry) VolumeAverage(x Array) float64 {
	return g.VolumeIntegrate(x) / g.TotalVolume
}

// RhoNorm returns the normalized radius r/a at cell center i.
func (g *Geometry) RhoNorm(i int) float64 {
	return g.RCell[i] / g.MinorRadius
}
