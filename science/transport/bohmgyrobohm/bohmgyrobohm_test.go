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

package bohmgyrobohm

import (
	"testing"

	"github.com/plasmamodel/toktrans"
)

func TestCoefficientsValid(t *testing.T) {
	g, err := toktrans.NewCircularGeometry(25, 6.2, 2.0, 5.3)
	if err != nil {
		t.Fatal(err)
	}
	p := &toktrans.CoreProfiles{
		Ti:  toktrans.ParabolicProfile(g, 1e4, 100),
		Te:  toktrans.ParabolicProfile(g, 1e4, 100),
		Ne:  toktrans.ParabolicProfile(g, 1e20, 5e19),
		Psi: toktrans.ConstArray(25, 0),
	}
	tc, err := Model{}.ComputeCoefficients(p, g, toktrans.Params{})
	if err != nil {
		t.Fatal(err)
	}
	if err := tc.Validate(); err != nil {
		t.Fatal(err)
	}
	// The ion channel carries the configured multiple of the electron
	// channel.
	for i := range tc.ChiIon {
		if different(tc.ChiIon[i], chiRatioIon*tc.ChiElectron[i]) {
			t.Errorf("cell %d: χi/χe=%g, want %g", i, tc.ChiIon[i]/tc.ChiElectron[i], chiRatioIon)
		}
	}
	// A gradient-driven model transports more in the steep outer half
	// than on the flat axis.
	if tc.ChiElectron[20] <= tc.ChiElectron[0] {
		t.Errorf("χe(edge)=%g not above χe(axis)=%g", tc.ChiElectron[20], tc.ChiElectron[0])
	}
}

func different(a, b float64) bool {
	if a == b {
		return false
	}
	d := a - b
	if d < 0 {
		d = -d
	}
	m := a
	if b > m {
		m = b
	}
	return d/m > 1e-9
}

func TestCoefficientOverrides(t *testing.T) {
	g, err := toktrans.NewCircularGeometry(10, 6.2, 2.0, 5.3)
	if err != nil {
		t.Fatal(err)
	}
	p := &toktrans.CoreProfiles{
		Ti:  toktrans.ConstArray(10, 5e3),
		Te:  toktrans.ConstArray(10, 5e3),
		Ne:  toktrans.ConstArray(10, 8e19),
		Psi: toktrans.ConstArray(10, 0),
	}
	tc, err := Model{}.ComputeCoefficients(p, g, toktrans.Params{
		"particle_diffusivity": 0.7,
		"convection_velocity":  -0.2,
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := range tc.DParticle {
		if tc.DParticle[i] != 0.7 || tc.VConv[i] != -0.2 {
			t.Fatalf("cell %d: D=%g v=%g", i, tc.DParticle[i], tc.VConv[i])
		}
	}
}
