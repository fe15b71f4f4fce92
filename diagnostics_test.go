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
	"testing"

	"github.com/sirupsen/logrus"
)

func TestWarningLevels(t *testing.T) {
	cases := []struct {
		diag StepDiagnostics
		want int
	}{
		{StepDiagnostics{Converged: true}, WarnNone},
		{StepDiagnostics{Converged: true, Drifts: map[string]float64{"particle": 0.002}}, WarnNone},
		{StepDiagnostics{Converged: true, Drifts: map[string]float64{"particle": 0.03}}, WarnModerate},
		{StepDiagnostics{Converged: true, Drifts: map[string]float64{"energy": -0.02}}, WarnModerate},
		{StepDiagnostics{Converged: true, Drifts: map[string]float64{"energy": 0.08}}, WarnSevere},
		{StepDiagnostics{Converged: false}, WarnSevere},
	}
	for i, c := range cases {
		if got := classify(c.diag); got != c.want {
			t.Errorf("case %d: level %d, want %d", i, got, c.want)
		}
	}
}

func TestWarningThrottling(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	h := NewHealthMonitor(log)

	// Level-1 warnings for the same metric inside the throttle window
	// must not re-arm the throttle bookkeeping.
	h.Observe(StepDiagnostics{Step: 10, Converged: true,
		Drifts: map[string]float64{"particle": 0.02}})
	first := h.lastWarned["particle"]
	h.Observe(StepDiagnostics{Step: 500, Converged: true,
		Drifts: map[string]float64{"particle": 0.02}})
	if h.lastWarned["particle"] != first {
		t.Error("throttled warning re-armed the throttle")
	}
	h.Observe(StepDiagnostics{Step: first + throttleInterval + 1, Converged: true,
		Drifts: map[string]float64{"particle": 0.02}})
	if h.lastWarned["particle"] == first {
		t.Error("warning outside the throttle window did not emit")
	}
}

func TestDiagnosticsReport(t *testing.T) {
	h := NewHealthMonitor(quietLog())
	for step := 0; step < 5; step++ {
		h.Observe(StepDiagnostics{
			Step:       step * 100,
			Converged:  true,
			Iterations: 2,
			Residual:   float64(step) * 1e-7,
			Drifts:     map[string]float64{"particle": 0.001 * float64(step)},
		})
	}
	rep := h.Report()
	if rep.Entries != 5 {
		t.Errorf("entries %d, want 5", rep.Entries)
	}
	if rep.WorstLevel != WarnNone {
		t.Errorf("worst level %d, want 0", rep.WorstLevel)
	}
	if different(rep.MaxResidual, 4e-7, 1e-9) {
		t.Errorf("max residual %g, want 4e-7", rep.MaxResidual)
	}
	if different(rep.MeanIterations, 2, 1e-12) {
		t.Errorf("mean iterations %g, want 2", rep.MeanIterations)
	}
	// The injected drift grows by 1e-5 per step.
	if slope, ok := rep.DriftTrend["particle"]; !ok || different(slope, 1e-5, 1e-6) {
		t.Errorf("drift trend %g, want 1e-5 per step", slope)
	}
}

func TestReportEmpty(t *testing.T) {
	h := NewHealthMonitor(quietLog())
	rep := h.Report()
	if rep.Entries != 0 || rep.WorstLevel != WarnNone {
		t.Error("empty monitor produced a non-empty report")
	}
}
