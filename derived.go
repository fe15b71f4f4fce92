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

	"github.com/Knetic/govaluate"
)

// baseQuantities evaluates the built-in scalar aggregates derived
// quantities can reference.
func baseQuantities(p *CoreProfiles, g *Geometry) map[string]interface{} {
	wth := EnergyConservation{}.ComputeConserved(p, g)
	return map[string]interface{}{
		"Ti_core": p.Ti[0],
		"Te_core": p.Te[0],
		"ne_core": p.Ne[0],
		"Ti_avg":  g.VolumeAverage(p.Ti),
		"Te_avg":  g.VolumeAverage(p.Te),
		"ne_avg":  g.VolumeAverage(p.Ne),
		"ne_line": p.Ne.Mean(),
		"W_th":    wth,
		"N_total": ParticleConservation{}.ComputeConserved(p, g),
		"volume":  g.TotalVolume,
		"B0":      g.ToroidalField,
		"R0":      g.MajorRadius,
		"a":       g.MinorRadius,
	}
}

// DerivedQuantities maps output names to expressions over the built-in
// aggregates (Ti_core, Te_avg, W_th, N_total, volume, B0, R0, a, ...).
// Expressions compile once and evaluate at every sampled step, the same
// way user-defined output variables work in the output layer.
type DerivedQuantities struct {
	exprs map[string]*govaluate.EvaluableExpression
}

// NewDerivedQuantities compiles the named expressions. Unknown variables
// surface at evaluation time, syntax errors here.
func NewDerivedQuantities(defs map[string]string) (*DerivedQuantities, error) {
	d := &DerivedQuantities{exprs: make(map[string]*govaluate.EvaluableExpression, len(defs))}
	for name, src := range defs {
		e, err := govaluate.NewEvaluableExpression(src)
		if err != nil {
			return nil, fmt.Errorf("toktrans.NewDerivedQuantities: %q: %v", name, err)
		}
		d.exprs[name] = e
	}
	return d, nil
}

// Evaluate computes every derived quantity at the given state. A failed
// expression does not abort the others; it is reported in the error after
// all succeed or fail.
func (d *DerivedQuantities) Evaluate(p *CoreProfiles, g *Geometry) (map[string]float64, error) {
	params := baseQuantities(p, g)
	out := make(map[string]float64, len(d.exprs))
	var firstErr error
	for name, e := range d.exprs {
		v, err := e.Evaluate(params)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("toktrans.DerivedQuantities.Evaluate: %q: %v", name, err)
			}
			continue
		}
		f, ok := v.(float64)
		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("toktrans.DerivedQuantities.Evaluate: %q is not numeric", name)
			}
			continue
		}
		out[name] = f
	}
	return out, firstErr
}
