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

func TestAdamMinimizesQuadratic(t *testing.T) {
	// minimize (x-3)² + (y+1)²
	x := []float64{0, 0}
	opt := newAdam(0.05, 2)
	for i := 0; i < 2000; i++ {
		grad := []float64{2 * (x[0] - 3), 2 * (x[1] + 1)}
		opt.step(x, grad)
	}
	if absDifferent(x[0], 3, 1e-2) || absDifferent(x[1], -1, 1e-2) {
		t.Errorf("converged to (%g, %g), want (3, -1)", x[0], x[1])
	}
}

func TestBoundsProjection(t *testing.T) {
	b := ITERBounds()
	act := NewActuatorTimeSeries(3)
	act.Set(45, 0, ChannelECRH)         // above 30
	act.Set(-3, 1, ChannelICRH)         // below 0
	act.Set(2, 2, ChannelPlasmaCurrent) // below 5
	b.Project(act)
	if v := act.Get(0, ChannelECRH); v != 30 {
		t.Errorf("ECRH projected to %g, want 30", v)
	}
	if v := act.Get(1, ChannelICRH); v != 0 {
		t.Errorf("ICRH projected to %g, want 0", v)
	}
	if v := act.Get(2, ChannelPlasmaCurrent); v != 5 {
		t.Errorf("I_p projected to %g, want 5", v)
	}
}

// The optimizer must raise the heating power towards its bound when the
// loss rewards temperature.
func TestScenarioOptimizerImprovesLoss(t *testing.T) {
	sim := testDiffSim(t, 1e-3, 1e-4)
	g := testGeometry(t)
	opt := &ScenarioOptimizer{
		Sim:          sim,
		Bounds:       ITERBounds(),
		LearningRate: 0.5,
		MaxIter:      25,
		Tolerance:    1e-12,
		Log:          quietLog(),
	}
	start := NewActuatorTimeSeries(10)
	for i := 0; i < 10; i++ {
		start.Set(5, i, ChannelECRH)
	}
	res, err := opt.Optimize(uniformProfiles(g), start)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.History) < 2 {
		t.Fatalf("only %d iterations recorded", len(res.History))
	}
	first, last := res.History[0], res.History[len(res.History)-1]
	if last >= first {
		t.Errorf("loss went from %g to %g; want an improvement", first, last)
	}
	// The schedule stayed inside the box.
	for step := 0; step < res.Actuators.NSteps(); step++ {
		v := res.Actuators.Get(step, ChannelECRH)
		if v < 0 || v > 30 {
			t.Errorf("step %d: ECRH %g outside [0,30]", step, v)
		}
	}
	// Gradient descent on a monotone loss pushes the power up.
	if res.Actuators.ChannelMean(ChannelECRH) <= start.ChannelMean(ChannelECRH) {
		t.Error("optimizer did not increase the heating power")
	}
	if math.IsNaN(res.Loss) {
		t.Error("NaN final loss")
	}
}

func TestOptimizerDefaults(t *testing.T) {
	sim := testDiffSim(t, 1e-3, 1e-4)
	g := testGeometry(t)
	opt := &ScenarioOptimizer{Sim: sim, Bounds: ITERBounds(), Log: quietLog(), Tolerance: 1e-1}
	res, err := opt.Optimize(uniformProfiles(g), NewActuatorTimeSeries(5))
	if err != nil {
		t.Fatal(err)
	}
	// A loose tolerance converges almost immediately.
	if !res.Converged {
		t.Error("did not converge under a loose tolerance")
	}
}
