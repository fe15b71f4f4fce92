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

	"gonum.org/v1/gonum/floats"
)

// Array is a dense, eagerly evaluated 1-D numeric array. It is the value
// type flowing between the coefficient builder, the solvers, and the
// physics models. Once constructed its elements are plain numbers:
// reading them triggers no further computation. The tape-linked
// counterpart used by the differentiable pipeline lives in tape.go.
type Array []float64

// NewArray returns an array of n zeros.
func NewArray(n int) Array { return make(Array, n) }

// ConstArray returns an array of n copies of v.
func ConstArray(n int, v float64) Array {
	a := make(Array, n)
	for i := range a {
		a[i] = v
	}
	return a
}

// Clone returns an independent copy of a.
func (a Array) Clone() Array {
	b := make(Array, len(a))
	copy(b, a)
	return b
}

// Slice returns a copy of a[lo:hi].
func (a Array) Slice(lo, hi int) Array {
	b := make(Array, hi-lo)
	copy(b, a[lo:hi])
	return b
}

// Add returns a+b element-wise.
func (a Array) Add(b Array) Array {
	c := a.Clone()
	floats.Add(c, b)
	return c
}

// Sub returns a-b element-wise.
func (a Array) Sub(b Array) Array {
	c := a.Clone()
	floats.Sub(c, b)
	return c
}

// Mul returns a*b element-wise.
func (a Array) Mul(b Array) Array {
	c := a.Clone()
	floats.Mul(c, b)
	return c
}

// Div returns a/b element-wise.
func (a Array) Div(b Array) Array {
	c := a.Clone()
	floats.Div(c, b)
	return c
}

// Scale returns s*a.
func (a Array) Scale(s float64) Array {
	c := a.Clone()
	floats.Scale(s, c)
	return c
}

// AddScalar returns a+s element-wise.
func (a Array) AddScalar(s float64) Array {
	c := a.Clone()
	floats.AddConst(s, c)
	return c
}

// Abs returns |a| element-wise.
func (a Array) Abs() Array { return a.mapElems(math.Abs) }

// Sqrt returns √a element-wise.
func (a Array) Sqrt() Array { return a.mapElems(math.Sqrt) }

// Exp returns eᵃ element-wise.
func (a Array) Exp() Array { return a.mapElems(math.Exp) }

// Log returns ln(a) element-wise.
func (a Array) Log() Array { return a.mapElems(math.Log) }

// Pow returns aᵖ element-wise.
func (a Array) Pow(p float64) Array {
	return a.mapElems(func(v float64) float64 { return math.Pow(v, p) })
}

func (a Array) mapElems(f func(float64) float64) Array {
	b := make(Array, len(a))
	for i, v := range a {
		b[i] = f(v)
	}
	return b
}

// Sum returns the sum of the elements of a.
func (a Array) Sum() float64 { return floats.Sum(a) }

// Mean returns the arithmetic mean of the elements of a.
func (a Array) Mean() float64 {
	if len(a) == 0 {
		return 0
	}
	return floats.Sum(a) / float64(len(a))
}

// Min returns the smallest element of a.
func (a Array) Min() float64 { return floats.Min(a) }

// Max returns the largest element of a.
func (a Array) Max() float64 { return floats.Max(a) }

// Where returns an array selecting a[i] where cond[i] is true and b[i]
// otherwise.
func Where(cond []bool, a, b Array) Array {
	c := make(Array, len(a))
	for i := range c {
		if cond[i] {
			c[i] = a[i]
		} else {
			c[i] = b[i]
		}
	}
	return c
}

// ClampMax returns a with every element bounded above by hi.
func (a Array) ClampMax(hi float64) Array {
	return a.mapElems(func(v float64) float64 { return math.Min(v, hi) })
}

// ClampMin returns a with every element bounded below by lo.
func (a Array) ClampMin(lo float64) Array {
	return a.mapElems(func(v float64) float64 { return math.Max(v, lo) })
}

// AllFinite reports whether every element of a is neither NaN nor ±Inf.
func (a Array) AllFinite() bool {
	for _, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
