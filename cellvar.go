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

import "fmt"

// FaceConstraintKind distinguishes the two ways a profile can be pinned at
// a mesh boundary.
type FaceConstraintKind int

const (
	// ConstraintValue pins the face value (Dirichlet).
	ConstraintValue FaceConstraintKind = iota
	// ConstraintGradient pins the face gradient (Neumann).
	ConstraintGradient
)

// FaceConstraint is a boundary condition on one side of the mesh: either a
// fixed face value or a fixed face gradient, with units matching the
// constrained quantity.
type FaceConstraint struct {
	Kind FaceConstraintKind
	V    float64
}

// ValueBC returns a fixed-value boundary constraint.
func ValueBC(x float64) FaceConstraint {
	return FaceConstraint{Kind: ConstraintValue, V: x}
}

// GradientBC returns a fixed-gradient boundary constraint.
func GradientBC(g float64) FaceConstraint {
	return FaceConstraint{Kind: ConstraintGradient, V: g}
}

func (fc FaceConstraint) String() string {
	switch fc.Kind {
	case ConstraintValue:
		return fmt.Sprintf("Value(%g)", fc.V)
	default:
		return fmt.Sprintf("Gradient(%g)", fc.V)
	}
}

// CellVariable is a cell-centered radial profile together with the mesh
// spacing and one boundary constraint per side. Face values and face
// gradients are derived on demand; all operations are pure.
type CellVariable struct {
	Values  Array
	Dr      float64
	LeftBC  FaceConstraint
	RightBC FaceConstraint
}

// NewCellVariable constructs a cell variable, checking the mesh contract.
func NewCellVariable(values Array, dr float64, left, right FaceConstraint) (*CellVariable, error) {
	if dr <= 0 {
		return nil, fmt.Errorf("toktrans.NewCellVariable: dr must be positive, got %g", dr)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("toktrans.NewCellVariable: empty profile")
	}
	return &CellVariable{Values: values, Dr: dr, LeftBC: left, RightBC: right}, nil
}

// FaceValue returns the profile value on face i, 0 ≤ i ≤ len(Values).
// Interior faces take the arithmetic mean of the adjacent cells. A
// boundary face with a value constraint takes that value; with a gradient
// constraint it extrapolates a half cell from the neighboring center.
func (cv *CellVariable) FaceValue(i int) float64 {
	n := len(cv.Values)
	switch {
	case i == 0:
		if cv.LeftBC.Kind == ConstraintValue {
			return cv.LeftBC.V
		}
		return cv.Values[0] - cv.LeftBC.V*cv.Dr/2
	case i == n:
		if cv.RightBC.Kind == ConstraintValue {
			return cv.RightBC.V
		}
		return cv.Values[n-1] + cv.RightBC.V*cv.Dr/2
	default:
		return (cv.Values[i-1] + cv.Values[i]) / 2
	}
}

// FaceGradient returns ∂x/∂r on face i. Interior faces use the centered
// difference of the adjacent cells. A boundary face with a gradient
// constraint returns that gradient; with a value constraint it uses the
// one-sided difference over the half cell between the face and the
// neighboring center.
func (cv *CellVariable) FaceGradient(i int) float64 {
	n := len(cv.Values)
	switch {
	case i == 0:
		if cv.LeftBC.Kind == ConstraintGradient {
			return cv.LeftBC.V
		}
		return (cv.Values[0] - cv.LeftBC.V) / (cv.Dr / 2)
	case i == n:
		if cv.RightBC.Kind == ConstraintGradient {
			return cv.RightBC.V
		}
		return (cv.RightBC.V - cv.Values[n-1]) / (cv.Dr / 2)
	default:
		return (cv.Values[i] - cv.Values[i-1]) / cv.Dr
	}
}

// FaceValues returns the profile interpolated onto all len(Values)+1 faces.
func (cv *CellVariable) FaceValues() Array {
	out := make(Array, len(cv.Values)+1)
	for i := range out {
		out[i] = cv.FaceValue(i)
	}
	return out
}

// FaceGradients returns ∂x/∂r on all len(Values)+1 faces.
func (cv *CellVariable) FaceGradients() Array {
	out := make(Array, len(cv.Values)+1)
	for i := range out {
		out[i] = cv.FaceGradient(i)
	}
	return out
}

// Grad returns the cell-centered gradient, the difference of the two
// bounding face values divided by the cell width.
func (cv *CellVariable) Grad() Array {
	fv := cv.FaceValues()
	out := make(Array, len(cv.Values))
	for i := range out {
		out[i] = (fv[i+1] - fv[i]) / cv.Dr
	}
	return out
}
