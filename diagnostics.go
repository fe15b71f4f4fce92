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

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// Warning levels of the numerical health monitor.
const (
	// WarnNone: converged and all drifts below 1%.
	WarnNone = 0
	// WarnModerate: some drift between 1% and 5%.
	WarnModerate = 1
	// WarnSevere: drift above 5% or a convergence failure.
	WarnSevere = 2
)

// StepDiagnostics holds the numerical health metrics of one timestep.
type StepDiagnostics struct {
	Step       int
	Time       float64
	Iterations int
	Residual   float64
	Converged  bool
	WallTime   float64 // seconds
	CFL        float64 // χ·Δt/Δr², above 0.5 the explicit part is unstable
	Drifts     map[string]float64
	Condition  float64 // Jacobian condition estimate, 0 when unavailable
	Level      int
}

// moderate- and severe-drift thresholds of the warning levels.
const (
	driftWarnModerate = 0.01
	driftWarnSevere   = 0.05
)

// throttleInterval is the minimum step distance between two emissions of
// the same level-1 warning metric.
const throttleInterval = 1000

// HealthMonitor classifies per-step diagnostics into warning levels and
// logs them, throttling the moderate level so a slowly drifting run does
// not flood the log. Severe warnings always emit immediately.
// Unavailability of a metric never aborts anything; it is itself recorded
// in the diagnostics entry.
type HealthMonitor struct {
	Log logrus.FieldLogger

	lastWarned map[string]int
	history    []StepDiagnostics
}

// NewHealthMonitor returns a monitor logging to log, or to the standard
// logger when log is nil.
func NewHealthMonitor(log logrus.FieldLogger) *HealthMonitor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &HealthMonitor{Log: log, lastWarned: make(map[string]int)}
}

// Observe classifies d, logs according to its level and the throttling
// policy, and retains it for the report.
func (h *HealthMonitor) Observe(d StepDiagnostics) StepDiagnostics {
	d.Level = classify(d)
	h.history = append(h.history, d)

	switch d.Level {
	case WarnSevere:
		h.Log.WithFields(logrus.Fields{
			"step": d.Step, "time": d.Time, "residual": d.Residual,
			"converged": d.Converged, "drifts": d.Drifts,
		}).Warn("toktrans: severe numerical health warning")
	case WarnModerate:
		for name, drift := range d.Drifts {
			if math.Abs(drift) < driftWarnModerate {
				continue
			}
			if last, ok := h.lastWarned[name]; ok && d.Step-last < throttleInterval {
				continue
			}
			h.lastWarned[name] = d.Step
			h.Log.WithFields(logrus.Fields{
				"step": d.Step, "metric": name, "drift": drift,
			}).Info("toktrans: conservation drift")
		}
	}
	return d
}

func classify(d StepDiagnostics) int {
	if !d.Converged {
		return WarnSevere
	}
	level := WarnNone
	for _, drift := range d.Drifts {
		a := math.Abs(drift)
		if a >= driftWarnSevere {
			return WarnSevere
		}
		if a >= driftWarnModerate {
			level = WarnModerate
		}
	}
	return level
}

// DiagnosticsReport summarizes the health history of a run.
type DiagnosticsReport struct {
	Entries        int
	WorstLevel     int
	MaxResidual    float64
	MeanIterations float64
	MaxDrift       map[string]float64
	// DriftTrend is the per-step linear slope of each drift series; a
	// steady slope means the run is leaking an invariant.
	DriftTrend map[string]float64
}

// Report aggregates everything observed so far.
func (h *HealthMonitor) Report() DiagnosticsReport {
	rep := DiagnosticsReport{
		Entries:    len(h.history),
		MaxDrift:   make(map[string]float64),
		DriftTrend: make(map[string]float64),
	}
	if len(h.history) == 0 {
		return rep
	}
	var iterSum float64
	series := make(map[string][][2]float64)
	for _, d := range h.history {
		if d.Level > rep.WorstLevel {
			rep.WorstLevel = d.Level
		}
		if d.Residual > rep.MaxResidual {
			rep.MaxResidual = d.Residual
		}
		iterSum += float64(d.Iterations)
		for name, drift := range d.Drifts {
			if math.Abs(drift) > math.Abs(rep.MaxDrift[name]) {
				rep.MaxDrift[name] = drift
			}
			series[name] = append(series[name], [2]float64{float64(d.Step), drift})
		}
	}
	rep.MeanIterations = iterSum / float64(len(h.history))
	for name, pts := range series {
		if len(pts) < 2 {
			continue
		}
		xs := make([]float64, len(pts))
		ys := make([]float64, len(pts))
		for i, p := range pts {
			xs[i], ys[i] = p[0], p[1]
		}
		_, slope := stat.LinearRegression(xs, ys, nil, false)
		rep.DriftTrend[name] = slope
	}
	return rep
}
