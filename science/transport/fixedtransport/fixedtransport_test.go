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

package fixedtransport

import (
	"testing"

	"github.com/plasmamodel/toktrans"
)

func TestFixedCoefficients(t *testing.T) {
	g, err := toktrans.NewCircularGeometry(10, 6.2, 2.0, 5.3)
	if err != nil {
		t.Fatal(err)
	}
	p := &toktrans.CoreProfiles{
		Ti:  toktrans.ConstArray(10, 1e4),
		Te:  toktrans.ConstArray(10, 1e4),
		Ne:  toktrans.ConstArray(10, 1e20),
		Psi: toktrans.ConstArray(10, 0),
	}
	tc, err := Model{}.ComputeCoefficients(p, g, toktrans.Params{
		"chi_ion": 2.0, "chi_electron": 3.0, "convection_velocity": -0.1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := tc.Validate(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if tc.ChiIon[i] != 2 || tc.ChiElectron[i] != 3 || tc.VConv[i] != -0.1 {
			t.Fatalf("cell %d: %g %g %g", i, tc.ChiIon[i], tc.ChiElectron[i], tc.VConv[i])
		}
		// The particle diffusivity defaults to half the ion channel.
		if tc.DParticle[i] != 1 {
			t.Fatalf("cell %d: D=%g, want 1", i, tc.DParticle[i])
		}
	}
}

func TestDefaults(t *testing.T) {
	g, err := toktrans.NewCircularGeometry(5, 6.2, 2.0, 5.3)
	if err != nil {
		t.Fatal(err)
	}
	p := &toktrans.CoreProfiles{
		Ti:  toktrans.ConstArray(5, 1e4),
		Te:  toktrans.ConstArray(5, 1e4),
		Ne:  toktrans.ConstArray(5, 1e20),
		Psi: toktrans.ConstArray(5, 0),
	}
	tc, err := Model{}.ComputeCoefficients(p, g, toktrans.Params{})
	if err != nil {
		t.Fatal(err)
	}
	if tc.ChiIon[0] != 1 || tc.ChiElectron[0] != 1 || tc.VConv[0] != 0 {
		t.Errorf("defaults: χi=%g χe=%g v=%g", tc.ChiIon[0], tc.ChiElectron[0], tc.VConv[0])
	}
}
