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
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// timeAccumulator tracks simulated time by compensated (Kahan) summation,
// so accumulating 10⁴–10⁵ small timesteps does not drift.
type timeAccumulator struct {
	sum, comp float64
}

func (t *timeAccumulator) Add(dt float64) {
	y := dt - t.comp
	s := t.sum + y
	t.comp = (s - t.sum) - y
	t.sum = s
}

func (t *timeAccumulator) Value() float64 { return t.sum }

// AdaptiveConfig controls the timestep policy.
type AdaptiveConfig struct {
	// SafetyFactor scales the CFL-style estimate Δr²/max(χ).
	SafetyFactor float64
	// InitialDt is used on the first step, before any estimate exists.
	InitialDt float64
	// MinDt and MaxDt clamp the estimate; a solve that still fails at
	// MinDt is a convergence failure.
	MinDt, MaxDt float64
	// MaxSolverRetries bounds the number of Δt halvings per step.
	MaxSolverRetries int
}

// DefaultAdaptiveConfig returns the standard timestep policy.
func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		SafetyFactor:     0.45,
		InitialDt:        1e-4,
		MinDt:            1e-8,
		MaxDt:            1e-1,
		MaxSolverRetries: 5,
	}
}

// DynamicParams carries the run inputs that are allowed to differ between
// runs on the same mesh: boundary conditions and the parameter bags the
// physics models read.
type DynamicParams struct {
	BCs       BoundaryConditions
	Transport Params
	Sources   Params
	Pedestal  Params
}

// SimulationState is the evolving state of one simulation.
type SimulationState struct {
	Profiles *CoreProfiles
	Dt       float64
	Step     int
	Stats    *Statistics

	// Caches of the most recent evaluations, for logging and sampling.
	Transport   *TransportCoefficients
	Sources     *SourceTerms
	Derived     map[string]float64
	Diagnostics *StepDiagnostics

	timeAcc timeAccumulator
}

// Time returns the accumulated simulated time [s].
func (s *SimulationState) Time() float64 { return s.timeAcc.Value() }

// ProgressInfo is a consistent step-boundary snapshot of a running
// simulation.
type ProgressInfo struct {
	Time      float64
	Step      int
	LastDt    float64
	Converged bool
	Profiles  *CoreProfiles
}

// diagnosticsInterval is the step cadence of the numerical health checks.
const diagnosticsInterval = 100

// yieldInterval is the step cadence at which the loop yields the
// processor so progress queries are never starved.
const yieldInterval = 10

// Model is a complete simulation: mesh, physics models, solver, and
// policies. Fill the exported fields, call Init, then Run. The run loop
// is the sole mutator of the state; Pause, Resume, Cancel, and Progress
// interact with it through a mutex-and-condition façade whose effects
// the loop honors at the start of each step.
type Model struct {
	Geom            *Geometry
	InitialProfiles *CoreProfiles
	Static          StaticParams
	Dynamic         DynamicParams

	Transport TransportModel
	Sources   []SourceModel
	Pedestal  PedestalModel
	MHD       []MHDModel

	Solver   Solver
	Adaptive AdaptiveConfig
	Sampling SamplingConfig
	Derived  *DerivedQuantities

	// EndTime is the simulated time [s] at which the run stops.
	EndTime float64

	Log logrus.FieldLogger

	// LogInterval prints a progress line every that many steps; 0
	// disables them.
	LogInterval int

	enforcer             *ConservationEnforcer
	conservationInterval int
	conservationResults  []ConservationResult

	monitor            *HealthMonitor
	diagnosticsEnabled bool

	history     *History
	subscribers []chan SamplePoint

	state       *SimulationState
	initialized bool

	mu        sync.Mutex
	cond      *sync.Cond
	paused    bool
	suspended bool
	cancelled bool
	snapshot  ProgressInfo
}

// Init validates the configuration and the initial profiles and prepares
// the run state. It must be called before Run.
func (m *Model) Init() error {
	if m.Geom == nil || m.InitialProfiles == nil || m.Transport == nil || m.Solver == nil {
		return &InitializationError{Err: &ConfigurationError{
			Option: "model", Reason: "geometry, initial profiles, transport model, and solver are required"}}
	}
	if err := m.Static.Validate(); err != nil {
		return err
	}
	if m.Adaptive == (AdaptiveConfig{}) {
		m.Adaptive = DefaultAdaptiveConfig()
	}
	if m.Adaptive.MinDt <= 0 || m.Adaptive.MaxDt < m.Adaptive.MinDt || m.Adaptive.InitialDt <= 0 {
		return &ConfigurationError{Option: "time.adaptive", Reason: "timestep bounds are not ordered and positive"}
	}
	if m.EndTime <= 0 {
		return &ConfigurationError{Option: "time.end", Reason: "end time must be positive"}
	}
	if err := m.InitialProfiles.Validate(); err != nil {
		return &InitializationError{Err: err}
	}
	if m.InitialProfiles.NCells() != m.Geom.NCells {
		return &InitializationError{Err: &ConfigurationError{
			Option: "mesh.n_cells", Reason: "initial profiles do not match the mesh"}}
	}
	if m.Log == nil {
		m.Log = logrus.StandardLogger()
	}
	m.cond = sync.NewCond(&m.mu)
	m.state = &SimulationState{
		Profiles: m.InitialProfiles.Clone(),
		Stats:    &Statistics{},
	}
	m.history = &History{NCells: m.Geom.NCells}
	if m.enforcer != nil {
		m.enforcer.SetReference(m.state.Profiles, m.Geom)
	}
	if m.monitor == nil {
		m.monitor = NewHealthMonitor(m.Log)
	}
	m.initialized = true
	return nil
}

// EnableConservation turns on invariant enforcement every interval
// steps, with the baseline particle and energy laws unless others are
// given. Call before Run.
func (m *Model) EnableConservation(interval int, laws ...ConservationLaw) {
	e := NewConservationEnforcer()
	if len(laws) > 0 {
		e.Laws = laws
	}
	m.enforcer = e
	m.conservationInterval = interval
	if m.initialized {
		e.SetReference(m.state.Profiles, m.Geom)
	}
}

// EnableDiagnostics turns on the periodic numerical health checks.
func (m *Model) EnableDiagnostics() { m.diagnosticsEnabled = true }

// ConservationResults returns the accumulated enforcement results.
func (m *Model) ConservationResults() []ConservationResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ConservationResult, len(m.conservationResults))
	copy(out, m.conservationResults)
	return out
}

// DiagnosticsReport summarizes the health history observed so far.
func (m *Model) DiagnosticsReport() DiagnosticsReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monitor.Report()
}

// History returns the sampled time series.
func (m *Model) History() *History { return m.history }

// Subscribe returns a channel receiving every captured sample. Slow
// consumers miss samples rather than stalling the loop.
func (m *Model) Subscribe() <-chan SamplePoint {
	ch := make(chan SamplePoint, 16)
	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()
	return ch
}

// Pause asks the loop to suspend at the start of the next step.
func (m *Model) Pause() {
	m.mu.Lock()
	m.paused = true
	m.mu.Unlock()
}

// Resume wakes a suspended loop. One Resume releases exactly one
// suspended step.
func (m *Model) Resume() {
	m.mu.Lock()
	m.paused = false
	m.mu.Unlock()
	m.cond.Broadcast()
}

// IsPaused reports whether the loop is suspended at the pause point.
func (m *Model) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspended
}

// Cancel asks the loop to stop cooperatively. The run returns
// ErrCancelled without further state mutation.
func (m *Model) Cancel() {
	m.mu.Lock()
	m.cancelled = true
	m.mu.Unlock()
	m.cond.Broadcast()
}

// Progress returns a snapshot consistent with the most recent step
// boundary. It never blocks the loop for a non-trivial duration.
func (m *Model) Progress() ProgressInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func (m *Model) publish() {
	m.mu.Lock()
	m.snapshot = ProgressInfo{
		Time:      m.state.Time(),
		Step:      m.state.Step,
		LastDt:    m.state.Dt,
		Converged: m.state.Stats.Converged,
		Profiles:  m.state.Profiles.Clone(),
	}
	m.mu.Unlock()
}

// checkpoint is the single cooperative suspension point at the start of
// each step: it honors cancellation, both through the context and
// through Cancel, and blocks while paused.
func (m *Model) checkpoint(ctx context.Context) error {
	m.mu.Lock()
	for m.paused && !m.cancelled && ctx.Err() == nil {
		m.suspended = true
		m.cond.Wait()
	}
	m.suspended = false
	cancelled := m.cancelled
	m.mu.Unlock()
	if cancelled || ctx.Err() != nil {
		return ErrCancelled
	}
	return nil
}

// Run advances the simulation until EndTime. It is not reentrant: one
// Run owns the state exclusively until it returns.
func (m *Model) Run(ctx context.Context) error {
	if !m.initialized {
		return ErrNotInitialized
	}
	st := m.state
	m.publish()
	start := time.Now()

	for st.Time() < m.EndTime {
		if err := m.checkpoint(ctx); err != nil {
			return err
		}

		// Transport at the current state drives the timestep
		// estimate.
		tc, err := m.Transport.ComputeCoefficients(st.Profiles, m.Geom, m.Dynamic.Transport)
		if err != nil {
			return err
		}
		if err := tc.Validate(); err != nil {
			return err
		}
		st.Transport = tc.Bound(m.Static.ChiMax)
		dt := m.chooseDt(st)

		// MHD hook: a model that rewrites the profiles replaces the
		// PDE solve for this step. The crash timestep is exogenous
		// and never enters the adaptive estimate.
		if crashed, crashDt, err := m.applyMHD(st, dt); err != nil {
			return err
		} else if crashed {
			st.timeAcc.Add(crashDt)
			st.Step++
			m.afterStep(st, nil)
			continue
		}

		// Pre-step sources, captured for logging and sampling only;
		// the solver callback recomputes them at each iterate.
		src, err := sumSources(m.Sources, st.Profiles, m.Geom, m.Dynamic.Sources)
		if err != nil {
			return err
		}
		st.Sources = src

		res, usedDt, err := m.solveWithRetry(st, dt)
		if err != nil {
			return err
		}
		if err := res.Profiles.CheckStability(st.Time()); err != nil {
			return err
		}

		wall := time.Since(start)
		start = time.Now()
		st.Profiles = res.Profiles
		st.Dt = usedDt
		st.timeAcc.Add(usedDt)
		st.Step++
		st.Stats.RecordStep(res, wall)

		m.afterStep(st, res)
	}

	m.publish()
	return nil
}

// chooseDt derives the timestep from the CFL-style stability estimate of
// the current transport coefficients, clamped to the configured band.
// The first step has no history and uses the configured initial value.
func (m *Model) chooseDt(st *SimulationState) float64 {
	if st.Step == 0 {
		return m.Adaptive.InitialDt
	}
	chi := st.Transport.MaxChi()
	if chi <= 0 {
		return m.Adaptive.MaxDt
	}
	dt := m.Adaptive.SafetyFactor * m.Geom.Dr * m.Geom.Dr / chi
	if dt < m.Adaptive.MinDt {
		dt = m.Adaptive.MinDt
	}
	if dt > m.Adaptive.MaxDt {
		dt = m.Adaptive.MaxDt
	}
	if remaining := m.EndTime - st.Time(); dt > remaining {
		dt = remaining
	}
	return dt
}

// applyMHD lets each registered model rewrite the profiles. The first
// model that changes them wins the step.
func (m *Model) applyMHD(st *SimulationState, dt float64) (bool, float64, error) {
	for _, model := range m.MHD {
		out, err := model.Apply(st.Profiles, m.Geom, st.Time(), dt)
		if err != nil {
			return false, 0, err
		}
		if !out.Equal(st.Profiles) {
			m.Log.WithFields(logrus.Fields{
				"model": model.Name(), "step": st.Step, "time": st.Time(),
			}).Info("toktrans: MHD event rewrote profiles")
			st.Profiles = out
			return true, model.CrashStepDuration(), nil
		}
	}
	return false, 0, nil
}

// boundaryConditions returns the boundary set for the next solve. A
// pedestal model, when present, overrides the edge values of the
// temperature and density equations.
func (m *Model) boundaryConditions(st *SimulationState) (*BoundaryConditions, error) {
	bcs := m.Dynamic.BCs
	if m.Pedestal != nil {
		ped, err := m.Pedestal.ComputePedestal(st.Profiles, m.Geom, m.Dynamic.Pedestal)
		if err != nil {
			return nil, err
		}
		bcs.Ti.Right = ValueBC(ped.Temperature)
		bcs.Te.Right = ValueBC(ped.Temperature)
		bcs.Ne.Right = ValueBC(ped.Density)
	}
	return &bcs, nil
}

// solveWithRetry runs the solver, halving Δt on non-convergence up to
// the retry budget. Non-convergence becomes an error only once the
// budget or the Δt floor is exhausted.
func (m *Model) solveWithRetry(st *SimulationState, dt float64) (*SolverResult, float64, error) {
	bcs, err := m.boundaryConditions(st)
	if err != nil {
		return nil, 0, err
	}
	cb := func(it *CoreProfiles) (*EquationCoeffs, error) {
		tc, err := m.Transport.ComputeCoefficients(it, m.Geom, m.Dynamic.Transport)
		if err != nil {
			return nil, err
		}
		src, err := sumSources(m.Sources, it, m.Geom, m.Dynamic.Sources)
		if err != nil {
			return nil, err
		}
		return BuildCoeffs(it, m.Geom, tc, src, &m.Static)
	}

	for attempt := 0; ; attempt++ {
		req := &SolveRequest{
			Dt:       dt,
			Static:   &m.Static,
			Geom:     m.Geom,
			BCs:      bcs,
			Profiles: st.Profiles,
			Coeffs:   cb,
		}
		res, err := m.Solver.Solve(req)
		if err != nil {
			return nil, 0, err
		}
		if res.Converged {
			return res, dt, nil
		}
		st.Stats.RecordRetry(res)
		if attempt >= m.Adaptive.MaxSolverRetries || dt/2 < m.Adaptive.MinDt {
			return nil, 0, &ConvergenceError{
				Time:       st.Time(),
				Iterations: res.Iterations,
				Residual:   res.Residual,
			}
		}
		dt /= 2
		m.Log.WithFields(logrus.Fields{
			"step": st.Step, "dt": dt, "residual": res.Residual,
		}).Debug("toktrans: solver retry with halved timestep")
	}
}

// afterStep runs the fixed per-step bookkeeping: conservation cadence,
// diagnostics cadence, sampling, progress publication, log line, and the
// cooperative yield.
func (m *Model) afterStep(st *SimulationState, res *SolverResult) {
	if m.enforcer != nil && m.conservationInterval > 0 && st.Step%m.conservationInterval == 0 {
		corrected, results := m.enforcer.Enforce(st.Profiles, m.Geom, st.Step, st.Time())
		st.Profiles = corrected
		m.mu.Lock()
		m.conservationResults = append(m.conservationResults, results...)
		m.mu.Unlock()
	}

	if m.diagnosticsEnabled && st.Step%diagnosticsInterval == 0 {
		m.runDiagnostics(st, res)
	}

	if m.Sampling.ProfileInterval > 0 && st.Step%m.Sampling.ProfileInterval == 0 {
		m.capture(st)
	}

	m.publish()

	if m.LogInterval > 0 && st.Step%m.LogInterval == 0 {
		m.Log.WithFields(logrus.Fields{
			"step": st.Step, "time": st.Time(), "dt": st.Dt,
			"residual": st.Stats.LastResidual, "walltime": st.Stats.WallTime.Seconds(),
		}).Info("toktrans: step")
	}

	if st.Step%yieldInterval == 0 {
		runtime.Gosched()
	}
}

func (m *Model) runDiagnostics(st *SimulationState, res *SolverResult) {
	d := StepDiagnostics{
		Step:      st.Step,
		Time:      st.Time(),
		Converged: st.Stats.Converged,
		Residual:  st.Stats.LastResidual,
		WallTime:  st.Stats.StepWallMean(),
	}
	if res != nil {
		d.Iterations = res.Iterations
		if c, ok := res.Metadata["jacobian_condition"]; ok {
			d.Condition = c
		}
	}
	if st.Transport != nil {
		d.CFL = st.Transport.MaxChi() * st.Dt / (m.Geom.Dr * m.Geom.Dr)
	}
	if m.enforcer != nil {
		d.Drifts = m.enforcer.Drifts(st.Profiles, m.Geom)
	}
	observed := m.monitor.Observe(d)
	st.Diagnostics = &observed
}

func (m *Model) capture(st *SimulationState) {
	ti, te, ne, psi := st.Profiles.Serialize()
	p := SamplePoint{
		Step: st.Step,
		Time: st.Time(),
		Ti:   ti, Te: te, Ne: ne, Psi: psi,
	}
	if m.Sampling.EnableDerived && m.Derived != nil {
		vals, err := m.Derived.Evaluate(st.Profiles, m.Geom)
		if err != nil {
			m.Log.WithField("err", err).Debug("toktrans: derived quantity evaluation failed")
		}
		p.Derived = vals
		st.Derived = vals
	}
	if m.Sampling.EnableDiagnostics && st.Diagnostics != nil {
		d := *st.Diagnostics
		p.Diag = &d
	}
	m.history.Add(p)

	m.mu.Lock()
	subs := m.subscribers
	m.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- p:
		default:
		}
	}
}
