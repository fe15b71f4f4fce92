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

package gaspuff

import (
	"math"
	"testing"

	"github.com/plasmamodel/toktrans"
)

func TestFuelingIntegratesToRate(t *testing.T) {
	g, err := toktrans.NewCircularGeometry(25, 6.2, 2.0, 5.3)
	if err != nil {
		t.Fatal(err)
	}
	p := &toktrans.CoreProfiles{
		Ti:  toktrans.ConstArray(25, 1e3),
		Te:  toktrans.ConstArray(25, 1e3),
		Ne:  toktrans.ConstArray(25, 5e19),
		Psi: toktrans.ConstArray(25, 0),
	}
	terms, err := Model{}.ComputeTerms(p, g, toktrans.Params{"gas_puff_rate": 1e21})
	if err != nil {
		t.Fatal(err)
	}
	var total float64
	for i, v := range terms.Particle {
		total += v * g.Volume[i]
	}
	if math.Abs(total-1e21)/1e21 > 1e-9 {
		t.Errorf("integrated fueling %g, want 1e21", total)
	}
	// The deposition is edge-localized: the outermost cell dominates
	// the innermost by orders of magnitude.
	if terms.Particle[24] < 1e3*terms.Particle[0] {
		t.Errorf("fueling not edge-localized: edge %g, core %g",
			terms.Particle[24], terms.Particle[0])
	}
	// No heating from fueling.
	for i := range terms.IonHeating {
		if terms.IonHeating[i] != 0 || terms.ElectronHeating[i] != 0 {
			t.Error("gas puff produced heating")
		}
	}
}

func TestZeroRateIsZeroSource(t *testing.T) {
	g, err := toktrans.NewCircularGeometry(10, 6.2, 2.0, 5.3)
	if err != nil {
		t.Fatal(err)
	}
	p := &toktrans.CoreProfiles{
		Ti:  toktrans.ConstArray(10, 1e3),
		Te:  toktrans.ConstArray(10, 1e3),
		Ne:  toktrans.ConstArray(10, 5e19),
		Psi: toktrans.ConstArray(10, 0),
	}
	terms, err := Model{}.ComputeTerms(p, g, toktrans.Params{})
	if err != nil {
		t.Fatal(err)
	}
	if !terms.IsZero() {
		t.Error("zero rate produced a nonzero source")
	}
	if len(terms.Metadata.Contributions) != 0 {
		t.Error("zero rate recorded metadata")
	}
}
