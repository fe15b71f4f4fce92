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
	"bytes"
	"testing"
)

func testHistory() *History {
	h := &History{NCells: 3}
	h.Add(SamplePoint{Step: 0, Time: 0,
		Ti: []float64{1, 2, 3}, Te: []float64{4, 5, 6},
		Ne: []float64{7, 8, 9}, Psi: []float64{0, 0, 0}})
	h.Add(SamplePoint{Step: 10, Time: 1e-3,
		Ti: []float64{1.1, 2.1, 3.1}, Te: []float64{4, 5, 6},
		Ne: []float64{7, 8, 9}, Psi: []float64{0, 0, 0},
		Derived: map[string]float64{"W_th": 12.5}})
	return h
}

func TestHistorySaveLoad(t *testing.T) {
	h := testHistory()
	var buf bytes.Buffer
	if err := h.Save(&buf); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadHistory(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.NCells != 3 || len(loaded.Points) != 2 {
		t.Fatalf("loaded %d cells, %d points", loaded.NCells, len(loaded.Points))
	}
	if loaded.Points[1].Derived["W_th"] != 12.5 {
		t.Error("derived quantities lost in the roundtrip")
	}
	if loaded.Points[1].Ti[2] != 3.1 {
		t.Error("profile values lost in the roundtrip")
	}
}

func TestHistorySaveEmpty(t *testing.T) {
	h := &History{NCells: 3}
	var buf bytes.Buffer
	if err := h.Save(&buf); err == nil {
		t.Error("empty history saved without error")
	}
}

func TestProfileArray(t *testing.T) {
	h := testHistory()
	arr, err := h.ProfileArray(VarTi)
	if err != nil {
		t.Fatal(err)
	}
	if arr.Shape[0] != 2 || arr.Shape[1] != 3 {
		t.Fatalf("shape %v, want [2 3]", arr.Shape)
	}
	if arr.Get(1, 2) != 3.1 {
		t.Errorf("arr[1,2]=%g, want 3.1", arr.Get(1, 2))
	}
	if _, err := h.ProfileArray("vorticity"); err == nil {
		t.Error("unknown profile accepted")
	}
}
