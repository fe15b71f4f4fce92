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

	"github.com/ctessum/sparse"
)

// Actuator channels, in the layout order of ActuatorTimeSeries.
type ActuatorChannel int

const (
	ChannelECRH ActuatorChannel = iota // electron cyclotron heating power [MW]
	ChannelICRH                        // ion cyclotron heating power [MW]
	ChannelGasPuff                     // edge fueling rate [particles/s]
	ChannelPlasmaCurrent               // plasma current [MA]

	numActuatorChannels
)

// ActuatorTimeSeries is the externally controllable input schedule of a
// scenario, a dense [nSteps × 4] array with one row per step and the
// channels in ActuatorChannel order. It is the quantity the scenario
// optimizer differentiates the loss against.
type ActuatorTimeSeries struct {
	Series *sparse.DenseArray
}

// NewActuatorTimeSeries returns an all-zero schedule for nSteps steps.
func NewActuatorTimeSeries(nSteps int) *ActuatorTimeSeries {
	return &ActuatorTimeSeries{Series: sparse.ZerosDense(nSteps, int(numActuatorChannels))}
}

// NSteps returns the schedule length.
func (a *ActuatorTimeSeries) NSteps() int { return a.Series.Shape[0] }

// Get returns the channel value at the given step.
func (a *ActuatorTimeSeries) Get(step int, ch ActuatorChannel) float64 {
	return a.Series.Get(step, int(ch))
}

// Set sets the channel value at the given step.
func (a *ActuatorTimeSeries) Set(v float64, step int, ch ActuatorChannel) {
	a.Series.Set(v, step, int(ch))
}

// ChannelMean returns the time average of one channel.
func (a *ActuatorTimeSeries) ChannelMean(ch ActuatorChannel) float64 {
	n := a.NSteps()
	var sum float64
	for i := 0; i < n; i++ {
		sum += a.Get(i, ch)
	}
	return sum / float64(n)
}

// Clone returns an independent copy.
func (a *ActuatorTimeSeries) Clone() *ActuatorTimeSeries {
	return &ActuatorTimeSeries{Series: a.Series.Copy()}
}

// TapeSource is the capability of source models that can keep the
// autodiff tape attached: after SetPowerHandle, ComputeTermsTape returns
// heating terms [MW/m³] as tape-linked scalars threading the handle
// through the same algebra the plain path uses.
type TapeSource interface {
	SourceModel
	PowerHandleSetter
	ActuatorChannel() ActuatorChannel
	ComputeTermsTape(profiles *CoreProfiles, geom *Geometry, params Params) (ionHeating, electronHeating []Num, err error)
}

// LossFunc maps the final tape-linked temperature profiles to the scalar
// the optimizer minimizes.
type LossFunc func(ti, te []Num) Num

// NegAvgTemperature is the default loss: the negated average of
// (Ti+Te)/2, so minimizing it maximizes the mean temperature.
func NegAvgTemperature(ti, te []Num) Num {
	return numMean(ti).Add(numMean(te)).Scale(-0.5)
}

// ProfileMatchingLoss returns the L2 distance to target profiles,
// normalized by the cell count.
func ProfileMatchingLoss(targetTi, targetTe Array) LossFunc {
	return func(ti, te []Num) Num {
		sum := Const(0)
		for i := range ti {
			di := ti[i].AddConst(-targetTi[i])
			de := te[i].AddConst(-targetTe[i])
			sum = sum.Add(di.Mul(di)).Add(de.Mul(de))
		}
		return sum.Scale(1 / float64(2*len(ti)))
	}
}

// DifferentiableSimulation is a pure forward model for gradient-based
// scenario optimization: it advances the temperature equations for a
// fixed horizon at a fixed timestep with the linear solver, single
// corrector pass, fully implicit weighting, and no retries, keeping the
// autodiff tape attached from the actuator handles through to the loss.
// Density and poloidal flux stay frozen over the horizon. One forward
// pass owns one tape; passes must not run concurrently.
type DifferentiableSimulation struct {
	Geom      *Geometry
	Static    StaticParams
	Dynamic   DynamicParams
	Transport TransportModel
	Sources   []SourceModel

	Horizon float64
	Dt      float64

	// Loss defaults to NegAvgTemperature.
	Loss LossFunc
}

// ForwardResult carries the outcome of one differentiable forward pass.
type ForwardResult struct {
	Profiles *CoreProfiles
	Loss     float64

	tape    *Tape
	lossNum Num
	handles [numActuatorChannels]Num
}

// Forward runs the tape-preserving forward pass: it extracts the
// per-channel mean actuator handles, feeds them to the gradient-aware
// sources, advances ⌊horizon/Δt⌋ steps, and evaluates the loss.
func (d *DifferentiableSimulation) Forward(initial *CoreProfiles, act *ActuatorTimeSeries) (*ForwardResult, error) {
	if d.Dt <= 0 || d.Horizon < d.Dt {
		return nil, &ConfigurationError{Option: "differentiable.dt",
			Reason: fmt.Sprintf("need 0 < dt ≤ horizon, got dt=%g horizon=%g", d.Dt, d.Horizon)}
	}
	if err := initial.Validate(); err != nil {
		return nil, &InitializationError{Err: err}
	}
	loss := d.Loss
	if loss == nil {
		loss = NegAvgTemperature
	}

	t := NewTape()
	res := &ForwardResult{tape: t}
	for ch := ActuatorChannel(0); ch < numActuatorChannels; ch++ {
		res.handles[ch] = t.Var(act.ChannelMean(ch))
	}

	// Hand the handles to the gradient-aware sources for the duration
	// of the pass.
	var tapeSources []TapeSource
	for _, s := range d.Sources {
		if ts, ok := s.(TapeSource); ok {
			ts.SetPowerHandle(res.handles[ts.ActuatorChannel()])
			tapeSources = append(tapeSources, ts)
		}
	}
	defer func() {
		for _, ts := range tapeSources {
			ts.ClearPowerHandle()
		}
	}()

	static := d.Static
	static.Theta = 1
	static.UsePereverzev = false
	static.EvolveIonHeat = true
	static.EvolveElectronHeat = true
	static.EvolveDensity = false
	static.EvolveCurrent = false

	tiN := numVector(initial.Ti)
	teN := numVector(initial.Te)
	frozen := initial.Clone()

	nSteps := int(d.Horizon / d.Dt)
	for step := 0; step < nSteps; step++ {
		// Coefficients are evaluated at the detached values of the
		// previous iterate, exactly as the linear solver sees them
		// with a single corrector pass.
		state := frozen.Clone()
		state.Ti = numValues(tiN)
		state.Te = numValues(teN)

		tc, err := d.Transport.ComputeCoefficients(state, d.Geom, d.Dynamic.Transport)
		if err != nil {
			return nil, err
		}
		plainSrc := ZeroSources(state.NCells())
		for _, s := range d.Sources {
			if _, ok := s.(TapeSource); ok {
				continue
			}
			terms, err := s.ComputeTerms(state, d.Geom, d.Dynamic.Sources)
			if err != nil {
				return nil, err
			}
			plainSrc = plainSrc.Add(terms)
		}
		coeffs, err := BuildCoeffs(state, d.Geom, tc, plainSrc, &static)
		if err != nil {
			return nil, err
		}

		// Tape-linked heating from the handle-driven sources.
		ionTape := make([]Num, state.NCells())
		elTape := make([]Num, state.NCells())
		for i := range ionTape {
			ionTape[i] = Const(0)
			elTape[i] = Const(0)
		}
		for _, ts := range tapeSources {
			ih, eh, err := ts.ComputeTermsTape(state, d.Geom, d.Dynamic.Sources)
			if err != nil {
				return nil, err
			}
			for i := range ionTape {
				ionTape[i] = ionTape[i].Add(ih[i])
				elTape[i] = elTape[i].Add(eh[i])
			}
		}

		tiN, err = stepTape(coeffs.Ti, tiN, ionTape, d.Dynamic.BCs.Ti, d.Geom, d.Dt)
		if err != nil {
			return nil, err
		}
		teN, err = stepTape(coeffs.Te, teN, elTape, d.Dynamic.BCs.Te, d.Geom, d.Dt)
		if err != nil {
			return nil, err
		}
	}

	res.lossNum = loss(tiN, teN)
	res.Loss = res.lossNum.Value()
	res.Profiles = frozen
	res.Profiles.Ti = numValues(tiN)
	res.Profiles.Te = numValues(teN)
	return res, nil
}

// stepTape advances one temperature equation by a single backward-Euler
// solve with a plain matrix and a tape-linked right-hand side. The
// matrix entries come from detached coefficient values, so the only
// derivatives that survive are those threaded through the state and the
// handle-driven sources, matching the single-pass linear solver.
func stepTape(block *Block1DCoeffs, xOld []Num, tapeHeatMW []Num, bc BCPair,
	geom *Geometry, dt float64) ([]Num, error) {

	n := len(xOld)
	xOldPlain := numValues(xOld)
	cv := &CellVariable{Values: xOldPlain, Dr: geom.Dr, LeftBC: bc.Left, RightBC: bc.Right}
	sys := assembleTheta(block, block, cv, bc, geom, dt, 1)

	// Boundary constants of the implicit operator: assemble the same
	// system for a zero state with zero transient and source; what is
	// left on the right-hand side is exactly the constant part.
	zeroBlock := &Block1DCoeffs{
		DFace:     block.DFace,
		VFace:     block.VFace,
		Transient: NewArray(n),
		Source:    NewArray(n),
	}
	zcv := &CellVariable{Values: NewArray(n), Dr: geom.Dr, LeftBC: bc.Left, RightBC: bc.Right}
	bcSys := assembleTheta(zeroBlock, zeroBlock, zcv, bc, geom, 1, 1)

	// Right-hand side with the tape attached: transient history,
	// sources (plain part plus tape-linked heating in eV units), and
	// the boundary constants.
	d := make([]Num, n)
	for i := 0; i < n; i++ {
		d[i] = xOld[i].Scale(block.Transient[i] / dt).
			AddConst(block.Source[i] + bcSys.d[i]).
			Add(tapeHeatMW[i].Scale(MWToEVConv))
	}

	// Thomas elimination with a plain matrix and Num right-hand side.
	b := sys.b.Clone()
	for i := 1; i < n; i++ {
		if b[i-1] == 0 {
			return nil, fmt.Errorf("toktrans: differentiable solve: zero pivot in row %d", i-1)
		}
		m := sys.a[i] / b[i-1]
		b[i] -= m * sys.c[i-1]
		d[i] = d[i].Sub(d[i-1].Scale(m))
	}
	if b[n-1] == 0 {
		return nil, fmt.Errorf("toktrans: differentiable solve: zero pivot in row %d", n-1)
	}
	x := make([]Num, n)
	x[n-1] = d[n-1].Scale(1 / b[n-1])
	for i := n - 2; i >= 0; i-- {
		x[i] = d[i].Sub(x[i+1].Scale(sys.c[i])).Scale(1 / b[i])
	}
	return x, nil
}

// Gradient returns ∂loss/∂actuator for every entry of the schedule the
// forward pass consumed, as a [nSteps × 4] array. Each channel's handle
// is the time mean, so the per-step sensitivity is the channel gradient
// divided by the step count.
func (r *ForwardResult) Gradient(nSteps int) (*sparse.DenseArray, error) {
	wrt := make([]Num, numActuatorChannels)
	for ch := 0; ch < int(numActuatorChannels); ch++ {
		wrt[ch] = r.handles[ch]
	}
	chanGrad, err := r.tape.Gradient(r.lossNum, wrt)
	if err != nil {
		return nil, err
	}
	out := sparse.ZerosDense(nSteps, int(numActuatorChannels))
	for step := 0; step < nSteps; step++ {
		for ch := 0; ch < int(numActuatorChannels); ch++ {
			out.Set(chanGrad[ch]/float64(nSteps), step, ch)
		}
	}
	return out, nil
}
