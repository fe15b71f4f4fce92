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
	"math"
	"testing"
)

func TestArrayArithmetic(t *testing.T) {
	const testTolerance = 1e-12
	a := Array{1, 2, 3}
	b := Array{4, 5, 6}

	if s := a.Add(b); different(s[2], 9, testTolerance) {
		t.Errorf("add: %v", s)
	}
	if s := b.Sub(a); different(s[0], 3, testTolerance) {
		t.Errorf("sub: %v", s)
	}
	if s := a.Mul(b); different(s[1], 10, testTolerance) {
		t.Errorf("mul: %v", s)
	}
	if s := b.Div(a); different(s[2], 2, testTolerance) {
		t.Errorf("div: %v", s)
	}
	if s := a.Scale(2).AddScalar(1); different(s[0], 3, testTolerance) {
		t.Errorf("scale+const: %v", s)
	}
	// Operands are never mutated.
	if a[0] != 1 || b[0] != 4 {
		t.Error("arithmetic mutated an operand")
	}
}

func TestArrayReductions(t *testing.T) {
	const testTolerance = 1e-12
	a := Array{3, -1, 4, 1.5}
	if different(a.Sum(), 7.5, testTolerance) {
		t.Errorf("sum %g", a.Sum())
	}
	if different(a.Mean(), 1.875, testTolerance) {
		t.Errorf("mean %g", a.Mean())
	}
	if a.Min() != -1 || a.Max() != 4 {
		t.Errorf("min/max %g/%g", a.Min(), a.Max())
	}
}

func TestArrayElementwise(t *testing.T) {
	const testTolerance = 1e-12
	a := Array{4, 9}
	if s := a.Sqrt(); different(s[1], 3, testTolerance) {
		t.Errorf("sqrt: %v", s)
	}
	if s := a.Pow(0.5); different(s[0], 2, testTolerance) {
		t.Errorf("pow: %v", s)
	}
	if s := (Array{-2, 2}).Abs(); s[0] != 2 {
		t.Errorf("abs: %v", s)
	}
	if s := (Array{0, 1}).Exp(); different(s[1], math.E, testTolerance) {
		t.Errorf("exp: %v", s)
	}
	if s := (Array{math.E}).Log(); different(s[0], 1, testTolerance) {
		t.Errorf("log: %v", s)
	}
}

func TestWhereAndClamp(t *testing.T) {
	a := Array{1, 2, 3}
	b := Array{10, 20, 30}
	w := Where([]bool{true, false, true}, a, b)
	if w[0] != 1 || w[1] != 20 || w[2] != 3 {
		t.Errorf("where: %v", w)
	}
	c := Array{0.5, 5, 50}.ClampMax(10).ClampMin(1)
	if c[0] != 1 || c[1] != 5 || c[2] != 10 {
		t.Errorf("clamp: %v", c)
	}
}

func TestSliceAndFinite(t *testing.T) {
	a := Array{0, 1, 2, 3, 4}
	s := a.Slice(1, 4)
	if len(s) != 3 || s[0] != 1 || s[2] != 3 {
		t.Errorf("slice: %v", s)
	}
	s[0] = 99
	if a[1] != 1 {
		t.Error("slice aliases the source")
	}
	if !a.AllFinite() {
		t.Error("finite array reported non-finite")
	}
	if (Array{1, math.NaN()}).AllFinite() || (Array{math.Inf(-1)}).AllFinite() {
		t.Error("non-finite array passed")
	}
}
