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

// Tape records the arithmetic of a differentiable forward pass as a flat
// sequence of nodes, each holding its value and the local derivatives
// with respect to at most two parents. A reverse sweep then yields the
// gradient of any recorded scalar with respect to any recorded inputs.
// A tape serves one forward pass at a time; it is not safe for
// concurrent use and must not be shared between passes.
type Tape struct {
	vals   []float64
	pa, pb []int32
	da, db []float64
}

// NewTape returns an empty tape.
func NewTape() *Tape { return &Tape{} }

// Len returns the number of recorded nodes.
func (t *Tape) Len() int { return len(t.vals) }

// Num is a scalar linked to a tape node, or a plain constant when its
// tape is nil. Reading Value never touches the tape.
type Num struct {
	t *Tape
	i int32
	v float64
}

// Value returns the scalar value.
func (n Num) Value() float64 { return n.v }

// Const returns an untaped constant.
func Const(v float64) Num { return Num{t: nil, i: -1, v: v} }

// Var records a new independent variable on the tape.
func (t *Tape) Var(v float64) Num {
	i := t.push(v, -1, -1, 0, 0)
	return Num{t: t, i: i, v: v}
}

func (t *Tape) push(v float64, pa, pb int32, da, db float64) int32 {
	t.vals = append(t.vals, v)
	t.pa = append(t.pa, pa)
	t.pb = append(t.pb, pb)
	t.da = append(t.da, da)
	t.db = append(t.db, db)
	return int32(len(t.vals) - 1)
}

// tapeOf returns the common tape of the operands; untaped constants
// adopt the other operand's tape.
func tapeOf(a, b Num) *Tape {
	if a.t != nil {
		return a.t
	}
	return b.t
}

func record(t *Tape, v float64, a, b Num, da, db float64) Num {
	if t == nil {
		return Num{t: nil, i: -1, v: v}
	}
	ia, ib := int32(-1), int32(-1)
	if a.t == t {
		ia = a.i
	}
	if b.t == t {
		ib = b.i
	}
	i := t.push(v, ia, ib, da, db)
	return Num{t: t, i: i, v: v}
}

// Add returns a+b.
func (a Num) Add(b Num) Num {
	return record(tapeOf(a, b), a.v+b.v, a, b, 1, 1)
}

// Sub returns a-b.
func (a Num) Sub(b Num) Num {
	return record(tapeOf(a, b), a.v-b.v, a, b, 1, -1)
}

// Mul returns a*b.
func (a Num) Mul(b Num) Num {
	return record(tapeOf(a, b), a.v*b.v, a, b, b.v, a.v)
}

// Div returns a/b.
func (a Num) Div(b Num) Num {
	return record(tapeOf(a, b), a.v/b.v, a, b, 1/b.v, -a.v/(b.v*b.v))
}

// Neg returns -a.
func (a Num) Neg() Num {
	return record(a.t, -a.v, a, Num{i: -1}, -1, 0)
}

// Scale returns s*a for a plain constant s.
func (a Num) Scale(s float64) Num {
	return record(a.t, s*a.v, a, Num{i: -1}, s, 0)
}

// AddConst returns a+s for a plain constant s.
func (a Num) AddConst(s float64) Num {
	return record(a.t, a.v+s, a, Num{i: -1}, 1, 0)
}

// Sqrt returns √a.
func (a Num) Sqrt() Num {
	v := math.Sqrt(a.v)
	return record(a.t, v, a, Num{i: -1}, 0.5/v, 0)
}

// Exp returns eᵃ.
func (a Num) Exp() Num {
	v := math.Exp(a.v)
	return record(a.t, v, a, Num{i: -1}, v, 0)
}

// Log returns ln(a).
func (a Num) Log() Num {
	return record(a.t, math.Log(a.v), a, Num{i: -1}, 1/a.v, 0)
}

// Pow returns aᵖ for a plain constant p.
func (a Num) Pow(p float64) Num {
	v := math.Pow(a.v, p)
	return record(a.t, v, a, Num{i: -1}, p*math.Pow(a.v, p-1), 0)
}

// Abs returns |a|. The derivative at zero is taken as zero.
func (a Num) Abs() Num {
	d := 0.0
	if a.v > 0 {
		d = 1
	} else if a.v < 0 {
		d = -1
	}
	return record(a.t, math.Abs(a.v), a, Num{i: -1}, d, 0)
}

// MaxConst returns max(a, s). The branch is frozen at the recorded
// values, as in any where-style selection on a tape.
func (a Num) MaxConst(s float64) Num {
	if a.v >= s {
		return record(a.t, a.v, a, Num{i: -1}, 1, 0)
	}
	return record(a.t, s, a, Num{i: -1}, 0, 0)
}

// Gradient runs the reverse sweep from loss and returns ∂loss/∂w for
// each of the given recorded variables. It fails when loss is not a
// recorded node.
func (t *Tape) Gradient(loss Num, wrt []Num) ([]float64, error) {
	if loss.t != t || loss.i < 0 {
		return nil, fmt.Errorf("toktrans.Tape.Gradient: loss is not recorded on this tape")
	}
	adj := make([]float64, len(t.vals))
	adj[loss.i] = 1
	for i := int32(len(t.vals) - 1); i >= 0; i-- {
		if adj[i] == 0 {
			continue
		}
		if p := t.pa[i]; p >= 0 {
			adj[p] += adj[i] * t.da[i]
		}
		if p := t.pb[i]; p >= 0 {
			adj[p] += adj[i] * t.db[i]
		}
	}
	out := make([]float64, len(wrt))
	for k, w := range wrt {
		if w.t != t || w.i < 0 {
			return nil, fmt.Errorf("toktrans.Tape.Gradient: variable %d is not recorded on this tape", k)
		}
		out[k] = adj[w.i]
	}
	return out, nil
}

// Vector helpers for tape-linked profiles. A nil tape in the operands
// degenerates to plain arithmetic, so the same code serves both modes.

// numVector lifts a plain array onto the tape as constants.
func numVector(a Array) []Num {
	out := make([]Num, len(a))
	for i, v := range a {
		out[i] = Const(v)
	}
	return out
}

// numValues extracts the plain values of a tape-linked vector.
func numValues(a []Num) Array {
	out := make(Array, len(a))
	for i, v := range a {
		out[i] = v.Value()
	}
	return out
}

// numMean returns the arithmetic mean of a tape-linked vector.
func numMean(a []Num) Num {
	sum := Const(0)
	for _, v := range a {
		sum = sum.Add(v)
	}
	return sum.Scale(1 / float64(len(a)))
}
