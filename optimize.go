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
	"math/rand"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
)

// ForwardSensitivity computes ∂loss/∂actuators of a differentiable
// simulation by reverse-mode differentiation over the recorded forward
// pass.
func ForwardSensitivity(sim *DifferentiableSimulation, initial *CoreProfiles,
	act *ActuatorTimeSeries) (loss float64, grad *sparse.DenseArray, err error) {

	res, err := sim.Forward(initial, act)
	if err != nil {
		return 0, nil, err
	}
	grad, err = res.Gradient(act.NSteps())
	if err != nil {
		return 0, nil, err
	}
	return res.Loss, grad, nil
}

// GradientCheck compares the analytic gradient against a
// finite-difference estimate on sampleSize randomly chosen actuator
// entries, perturbing each by eps, and returns the L2 relative error.
// Agreement within 1% passes the standard validation.
func GradientCheck(sim *DifferentiableSimulation, initial *CoreProfiles,
	act *ActuatorTimeSeries, sampleSize int, eps float64, rng *rand.Rand) (float64, error) {

	_, analytic, err := ForwardSensitivity(sim, initial, act)
	if err != nil {
		return 0, err
	}

	nEntries := act.NSteps() * int(numActuatorChannels)
	if sampleSize > nEntries {
		sampleSize = nEntries
	}
	idx := rng.Perm(nEntries)[:sampleSize]

	// Loss as a function of the sampled entries only, for the
	// finite-difference engine.
	x0 := make([]float64, sampleSize)
	for k, flat := range idx {
		x0[k] = act.Get(flat/int(numActuatorChannels), ActuatorChannel(flat%int(numActuatorChannels)))
	}
	f := func(x []float64) float64 {
		probe := act.Clone()
		for k, flat := range idx {
			probe.Set(x[k], flat/int(numActuatorChannels), ActuatorChannel(flat%int(numActuatorChannels)))
		}
		res, err := sim.Forward(initial, probe)
		if err != nil {
			return math.NaN()
		}
		return res.Loss
	}
	numeric := fd.Gradient(nil, f, x0, &fd.Settings{Step: eps, Formula: fd.Central})

	analyticSample := make([]float64, sampleSize)
	for k, flat := range idx {
		analyticSample[k] = analytic.Get(flat/int(numActuatorChannels), flat%int(numActuatorChannels))
	}

	diff := make([]float64, sampleSize)
	floats.SubTo(diff, numeric, analyticSample)
	denom := floats.Norm(numeric, 2)
	if denom == 0 {
		denom = math.Max(floats.Norm(analyticSample, 2), 1e-300)
	}
	return floats.Norm(diff, 2) / denom, nil
}

// ActuatorBounds is the per-channel box constraint of a scenario.
type ActuatorBounds struct {
	Lo, Hi [numActuatorChannels]float64
}

// ITERBounds returns the standard ITER actuator envelope.
func ITERBounds() ActuatorBounds {
	var b ActuatorBounds
	b.Lo[ChannelECRH], b.Hi[ChannelECRH] = 0, 30
	b.Lo[ChannelICRH], b.Hi[ChannelICRH] = 0, 20
	b.Lo[ChannelGasPuff], b.Hi[ChannelGasPuff] = 0, 1e21
	b.Lo[ChannelPlasmaCurrent], b.Hi[ChannelPlasmaCurrent] = 5, 20
	return b
}

// Project clamps every schedule entry into the box.
func (b ActuatorBounds) Project(act *ActuatorTimeSeries) {
	for step := 0; step < act.NSteps(); step++ {
		for ch := ActuatorChannel(0); ch < numActuatorChannels; ch++ {
			v := act.Get(step, ch)
			if v < b.Lo[ch] {
				v = b.Lo[ch]
			}
			if v > b.Hi[ch] {
				v = b.Hi[ch]
			}
			act.Set(v, step, ch)
		}
	}
}

// ScenarioOptimizer searches the actuator schedule that minimizes the
// forward-model loss with Adam, projecting each update into the box
// constraints before the next forward pass.
type ScenarioOptimizer struct {
	Sim    *DifferentiableSimulation
	Bounds ActuatorBounds

	// LearningRate, MaxIter, and Tolerance default to 1e-3, 100, and
	// 1e-4 when left zero.
	LearningRate float64
	MaxIter      int
	Tolerance    float64

	Log logrus.FieldLogger
}

// OptimizeResult reports the best schedule found and the loss history.
type OptimizeResult struct {
	Actuators  *ActuatorTimeSeries
	Loss       float64
	History    []float64
	Iterations int
	Converged  bool
}

// adam holds the moment estimates of the Adam update.
type adam struct {
	lr, beta1, beta2, eps float64
	m, v                  []float64
	t                     int
}

func newAdam(lr float64, n int) *adam {
	return &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8,
		m: make([]float64, n), v: make([]float64, n)}
}

// step applies one bias-corrected Adam update of x against grad.
func (a *adam) step(x, grad []float64) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for i := range x {
		a.m[i] = a.beta1*a.m[i] + (1-a.beta1)*grad[i]
		a.v[i] = a.beta2*a.v[i] + (1-a.beta2)*grad[i]*grad[i]
		mhat := a.m[i] / c1
		vhat := a.v[i] / c2
		x[i] -= a.lr * mhat / (math.Sqrt(vhat) + a.eps)
	}
}

// Optimize runs the Adam loop from the given starting schedule.
func (o *ScenarioOptimizer) Optimize(initial *CoreProfiles, start *ActuatorTimeSeries) (*OptimizeResult, error) {
	lr := o.LearningRate
	if lr == 0 {
		lr = 1e-3
	}
	maxIter := o.MaxIter
	if maxIter == 0 {
		maxIter = 100
	}
	tol := o.Tolerance
	if tol == 0 {
		tol = 1e-4
	}
	log := o.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	act := start.Clone()
	o.Bounds.Project(act)
	n := len(act.Series.Elements)
	opt := newAdam(lr, n)

	res := &OptimizeResult{}
	prevLoss := math.Inf(1)
	for iter := 0; iter < maxIter; iter++ {
		loss, grad, err := ForwardSensitivity(o.Sim, initial, act)
		if err != nil {
			return nil, fmt.Errorf("toktrans.ScenarioOptimizer.Optimize: iteration %d: %v", iter, err)
		}
		res.History = append(res.History, loss)
		res.Loss = loss
		res.Iterations = iter + 1

		if math.Abs(prevLoss-loss) < tol {
			res.Converged = true
			break
		}
		prevLoss = loss

		opt.step(act.Series.Elements, grad.Elements)
		o.Bounds.Project(act)

		log.WithFields(logrus.Fields{
			"iteration": iter, "loss": loss,
		}).Debug("toktrans: optimizer iteration")
	}
	res.Actuators = act
	return res, nil
}
