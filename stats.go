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
	"time"

	"github.com/GaryBoone/GoStats/stats"
)

// Statistics accumulates run totals: step and solver-iteration counts,
// wall time, the worst residual seen, and whether the last step
// converged. Per-step wall times additionally feed a running-moment
// accumulator so the diagnostics report can quote mean and spread
// without storing the series.
type Statistics struct {
	Steps          int
	SolverCalls    int
	Iterations     int
	MaxResidual    float64
	LastResidual   float64
	Converged      bool
	WallTime       time.Duration
	stepWall       stats.Stats
	failedAttempts int
}

// RecordStep folds one solver outcome into the totals.
func (s *Statistics) RecordStep(res *SolverResult, wall time.Duration) {
	s.Steps++
	s.SolverCalls++
	s.Iterations += res.Iterations
	s.LastResidual = res.Residual
	if res.Residual > s.MaxResidual {
		s.MaxResidual = res.Residual
	}
	s.Converged = res.Converged
	s.WallTime += wall
	s.stepWall.Update(wall.Seconds())
}

// RecordRetry counts a failed solver attempt that the orchestrator is
// about to retry with a halved timestep.
func (s *Statistics) RecordRetry(res *SolverResult) {
	s.SolverCalls++
	s.Iterations += res.Iterations
	s.failedAttempts++
}

// FailedAttempts returns the number of solver attempts that did not
// converge and were retried.
func (s *Statistics) FailedAttempts() int { return s.failedAttempts }

// StepWallMean returns the mean per-step wall time in seconds.
func (s *Statistics) StepWallMean() float64 {
	if s.stepWall.Count() == 0 {
		return 0
	}
	return s.stepWall.Mean()
}

// StepWallStdDev returns the sample standard deviation of the per-step
// wall time in seconds.
func (s *Statistics) StepWallStdDev() float64 {
	if s.stepWall.Count() < 2 {
		return 0
	}
	return s.stepWall.SampleStandardDeviation()
}
