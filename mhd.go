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

// MHDModel represents an instantaneous profile-rewrite event such as a
// sawtooth crash. Apply returns the (possibly rewritten) profiles; when
// the returned profiles equal the input, no event occurred. When an event
// does occur, the orchestrator skips the PDE solve for that step and
// advances time by the model's crash duration instead of the adaptive
// timestep. Crash steps are exogenous: the adaptive estimator resumes
// from the pre-crash timestep afterwards.
type MHDModel interface {
	Name() string
	Apply(profiles *CoreProfiles, geom *Geometry, time, dt float64) (*CoreProfiles, error)
	// CrashStepDuration is the timestep [s] the orchestrator should
	// advance by when this model rewrites the profiles.
	CrashStepDuration() float64
}
