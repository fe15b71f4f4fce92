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
	"errors"
	"fmt"
)

// ErrCancelled is returned when a run honors a cooperative cancellation
// request. The simulation unwinds without further state mutation.
var ErrCancelled = errors.New("toktrans: simulation cancelled")

// ErrNotInitialized is returned when Run is called before Init.
var ErrNotInitialized = errors.New("toktrans: model is not initialized")

// ConfigurationError reports configuration values that are out of range or
// contradictory. It is fatal before the simulation starts.
type ConfigurationError struct {
	Option string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("toktrans: invalid configuration %q: %s", e.Option, e.Reason)
}

// InitializationError reports initial profiles that violate invariants or
// a physics model that could not be constructed.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("toktrans: initialization failed: %v", e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// ConvergenceError reports that the solver failed to converge even after
// the timestep was halved down to the configured minimum. Reducing the
// initial timestep or increasing the mesh resolution may help.
type ConvergenceError struct {
	Time       float64
	Iterations int
	Residual   float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("toktrans: solver failed to converge at t=%gs after %d iterations (residual %g); "+
		"consider reducing the initial timestep or increasing mesh resolution",
		e.Time, e.Iterations, e.Residual)
}

// InstabilityError reports a NaN or ±Inf detected in the state during or
// after a step.
type InstabilityError struct {
	Time     float64
	Variable string
	Value    float64
}

func (e *InstabilityError) Error() string {
	return fmt.Sprintf("toktrans: numerical instability at t=%gs: %s=%g; "+
		"consider reducing the timestep", e.Time, e.Variable, e.Value)
}
