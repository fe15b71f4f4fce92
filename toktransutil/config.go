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

package toktransutil

import (
	"context"
	"fmt"
	"os"

	"github.com/plasmamodel/toktrans"
	"github.com/plasmamodel/toktrans/science/mhd/sawtooth"
	"github.com/plasmamodel/toktrans/science/pedestal/simplepedestal"
	"github.com/plasmamodel/toktrans/science/sources/auxheat"
	"github.com/plasmamodel/toktrans/science/sources/fusion"
	"github.com/plasmamodel/toktrans/science/sources/gaspuff"
	"github.com/plasmamodel/toktrans/science/sources/ohmic"
	"github.com/plasmamodel/toktrans/science/transport/bohmgyrobohm"
	"github.com/plasmamodel/toktrans/science/transport/fixedtransport"
	"github.com/sirupsen/logrus"
)

// Geometry builds the mesh from the configuration.
func Geometry(cfg *Cfg) (*toktrans.Geometry, error) {
	if gt := cfg.GetString("mesh.geometry_type"); gt != "circular" {
		return nil, fmt.Errorf("toktrans: unsupported mesh.geometry_type %q; only \"circular\" is available", gt)
	}
	return toktrans.NewCircularGeometry(
		cfg.GetInt("mesh.n_cells"),
		cfg.GetFloat64("mesh.major_radius"),
		cfg.GetFloat64("mesh.minor_radius"),
		cfg.GetFloat64("mesh.toroidal_field"),
	)
}

// InitialProfiles builds parabolic starting profiles from the
// configuration, with a flat seed poloidal flux.
func InitialProfiles(cfg *Cfg, geom *toktrans.Geometry) *toktrans.CoreProfiles {
	tc := cfg.GetFloat64("initial.core_temperature")
	te := cfg.GetFloat64("initial.edge_temperature")
	nc := cfg.GetFloat64("initial.core_density")
	ne := cfg.GetFloat64("initial.edge_density")
	n := geom.NCells
	p := &toktrans.CoreProfiles{
		Ti:  toktrans.ParabolicProfile(geom, tc, te),
		Te:  toktrans.ParabolicProfile(geom, tc, te),
		Ne:  toktrans.ParabolicProfile(geom, nc, ne),
		Psi: make(toktrans.Array, n),
	}
	// Seed flux consistent with a uniform current density.
	for i := 0; i < n; i++ {
		rho := geom.RhoNorm(i)
		p.Psi[i] = rho * rho
	}
	return p
}

// transportModel selects the configured transport model.
func transportModel(cfg *Cfg) (toktrans.TransportModel, error) {
	switch name := cfg.GetString("transport.model"); name {
	case "fixed":
		return fixedtransport.Model{}, nil
	case "bohm-gyrobohm":
		return bohmgyrobohm.Model{}, nil
	default:
		return nil, fmt.Errorf("toktrans: unknown transport.model %q", name)
	}
}

// sourceModels assembles the enabled source models.
func sourceModels(cfg *Cfg) []toktrans.SourceModel {
	var out []toktrans.SourceModel
	if cfg.GetBool("sources.ohmic") {
		out = append(out, ohmic.Model{})
	}
	if cfg.GetBool("sources.fusion") {
		out = append(out, fusion.Model{})
	}
	if cfg.GetBool("sources.ecrh") {
		out = append(out, auxheat.NewECRH())
	}
	if cfg.GetBool("sources.icrh") {
		out = append(out, auxheat.NewICRH())
	}
	if cfg.GetBool("sources.gas_puff") {
		out = append(out, gaspuff.Model{})
	}
	return out
}

// solver selects the configured PDE solver. The "optimizer" type is not
// a PDE solver; requesting it for a plain run is a configuration error.
func solver(cfg *Cfg) (toktrans.Solver, error) {
	tol := cfg.GetFloat64("solver.tolerance")
	maxIter := cfg.GetInt("solver.max_iterations")
	switch name := cfg.GetString("solver.type"); name {
	case "linear":
		return toktrans.NewLinearSolver(maxIter, tol), nil
	case "newton_raphson":
		return toktrans.NewNewtonSolver(tol, maxIter), nil
	case "optimizer":
		return nil, fmt.Errorf("toktrans: solver.type \"optimizer\" is only valid for the optimize command")
	default:
		return nil, fmt.Errorf("toktrans: unknown solver.type %q", name)
	}
}

// boundaryConditions derives the boundary set from the configuration:
// zero gradient on the axis for every equation, fixed edge values from
// the initial profile configuration, and the configured edge kind for
// the poloidal flux.
func boundaryConditions(cfg *Cfg) (toktrans.BoundaryConditions, error) {
	te := cfg.GetFloat64("initial.edge_temperature")
	ne := cfg.GetFloat64("initial.edge_density")
	axis := toktrans.GradientBC(0)
	bcs := toktrans.BoundaryConditions{
		Ti: toktrans.BCPair{Left: axis, Right: toktrans.ValueBC(te)},
		Te: toktrans.BCPair{Left: axis, Right: toktrans.ValueBC(te)},
		Ne: toktrans.BCPair{Left: axis, Right: toktrans.ValueBC(ne)},
	}
	switch kind := cfg.GetString("current.edge_bc"); kind {
	case "value":
		bcs.Psi = toktrans.BCPair{Left: axis, Right: toktrans.ValueBC(1)}
	case "gradient":
		bcs.Psi = toktrans.BCPair{Left: axis, Right: toktrans.GradientBC(0)}
	default:
		return bcs, fmt.Errorf("toktrans: unknown current.edge_bc %q", kind)
	}
	return bcs, nil
}

// modelParams collects the flat parameter bag the physics models read.
func modelParams(cfg *Cfg, act *toktrans.ActuatorTimeSeries) toktrans.Params {
	p := toktrans.Params{
		"zeff": cfg.GetFloat64("plasma.zeff"),
	}
	if act != nil && act.NSteps() > 0 {
		p["ecrh_power"] = act.ChannelMean(toktrans.ChannelECRH)
		p["icrh_power"] = act.ChannelMean(toktrans.ChannelICRH)
		p["gas_puff_rate"] = act.ChannelMean(toktrans.ChannelGasPuff)
		p["plasma_current"] = act.ChannelMean(toktrans.ChannelPlasmaCurrent)
	}
	return p
}

// BuildModel assembles a ready-to-init model from the configuration.
func BuildModel(cfg *Cfg) (*toktrans.Model, error) {
	geom, err := Geometry(cfg)
	if err != nil {
		return nil, err
	}
	tm, err := transportModel(cfg)
	if err != nil {
		return nil, err
	}
	sv, err := solver(cfg)
	if err != nil {
		return nil, err
	}
	bcs, err := boundaryConditions(cfg)
	if err != nil {
		return nil, err
	}

	var act *toktrans.ActuatorTimeSeries
	if sf := cfg.GetString("scenario_file"); sf != "" {
		act, err = LoadScenario(os.ExpandEnv(sf))
		if err != nil {
			return nil, err
		}
	}
	params := modelParams(cfg, act)

	m := &toktrans.Model{
		Geom:            geom,
		InitialProfiles: InitialProfiles(cfg, geom),
		Static: toktrans.StaticParams{
			EvolveIonHeat:      cfg.GetBool("evolution.ion_heat"),
			EvolveElectronHeat: cfg.GetBool("evolution.electron_heat"),
			EvolveDensity:      cfg.GetBool("evolution.density"),
			EvolveCurrent:      cfg.GetBool("evolution.current"),
			ChiMax:             cfg.GetFloat64("transport.chi_max"),
			Zeff:               cfg.GetFloat64("plasma.zeff"),
			Theta:              cfg.GetFloat64("scheme.theta"),
			UsePereverzev:      cfg.GetBool("scheme.use_pereverzev"),
		},
		Dynamic: toktrans.DynamicParams{
			BCs:       bcs,
			Transport: params,
			Sources:   params,
			Pedestal:  params,
		},
		Transport: tm,
		Sources:   sourceModels(cfg),
		Solver:    sv,
		Adaptive: toktrans.AdaptiveConfig{
			SafetyFactor:     cfg.GetFloat64("time.adaptive.safety_factor"),
			InitialDt:        cfg.GetFloat64("time.initial_dt"),
			MinDt:            cfg.GetFloat64("time.adaptive.min_dt"),
			MaxDt:            cfg.GetFloat64("time.adaptive.max_dt"),
			MaxSolverRetries: 5,
		},
		Sampling: toktrans.SamplingConfig{
			ProfileInterval:     cfg.GetInt("sampling.profile_interval"),
			EnableDerived:       cfg.GetBool("sampling.enable_derived"),
			EnableDiagnostics:   cfg.GetBool("sampling.enable_diagnostics"),
			EnableLiveStreaming: cfg.GetBool("sampling.enable_live_streaming"),
		},
		EndTime:     cfg.GetFloat64("time.end"),
		Log:         logrus.StandardLogger(),
		LogInterval: 100,
	}
	if cfg.GetBool("pedestal.enable") {
		m.Pedestal = simplepedestal.Model{}
	}
	if cfg.GetBool("mhd.sawtooth") {
		m.MHD = append(m.MHD, &sawtooth.Model{})
	}
	if cfg.GetBool("conservation.enable") {
		m.EnableConservation(cfg.GetInt("conservation.interval"))
	}
	if cfg.GetBool("sampling.enable_diagnostics") {
		m.EnableDiagnostics()
	}
	return m, nil
}

// Run initializes and runs the model and writes the sampled history.
func Run(ctx context.Context, cfg *Cfg, m *toktrans.Model) error {
	if err := m.Init(); err != nil {
		return err
	}
	if m.Sampling.EnableLiveStreaming {
		go m.WebServer(cfg.GetString("http_port"))
	}
	if err := m.Run(ctx); err != nil {
		return err
	}
	out := os.ExpandEnv(cfg.GetString("output_file"))
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("toktrans: creating output file: %w", err)
	}
	defer f.Close()
	return m.History().Save(f)
}

// Optimize runs the gradient-based scenario optimizer from the schedule
// in the scenario file and reports the optimized schedule.
func Optimize(cfg *Cfg) error {
	geom, err := Geometry(cfg)
	if err != nil {
		return err
	}
	bcs, err := boundaryConditions(cfg)
	if err != nil {
		return err
	}
	sf := cfg.GetString("scenario_file")
	if sf == "" {
		return fmt.Errorf("toktrans: optimize requires a scenario_file")
	}
	act, err := LoadScenario(os.ExpandEnv(sf))
	if err != nil {
		return err
	}
	params := modelParams(cfg, act)

	sim := &toktrans.DifferentiableSimulation{
		Geom: geom,
		Static: toktrans.StaticParams{
			EvolveIonHeat:      true,
			EvolveElectronHeat: true,
			ChiMax:             cfg.GetFloat64("transport.chi_max"),
			Zeff:               cfg.GetFloat64("plasma.zeff"),
			Theta:              1,
		},
		Dynamic: toktrans.DynamicParams{
			BCs:       bcs,
			Transport: params,
			Sources:   params,
		},
		Transport: fixedtransport.Model{},
		Sources:   []toktrans.SourceModel{auxheat.NewECRH(), auxheat.NewICRH(), ohmic.Model{}},
		Horizon:   cfg.GetFloat64("optimizer.horizon"),
		Dt:        cfg.GetFloat64("optimizer.dt"),
	}
	opt := &toktrans.ScenarioOptimizer{
		Sim:          sim,
		Bounds:       toktrans.ITERBounds(),
		LearningRate: cfg.GetFloat64("optimizer.learning_rate"),
		MaxIter:      cfg.GetInt("optimizer.max_iterations"),
		Tolerance:    cfg.GetFloat64("optimizer.tolerance"),
		Log:          logrus.StandardLogger(),
	}
	res, err := opt.Optimize(InitialProfiles(cfg, geom), act)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"loss": res.Loss, "iterations": res.Iterations, "converged": res.Converged,
	}).Info("toktrans: optimization finished")
	return SaveScenario(os.ExpandEnv(cfg.GetString("output_file")), res.Actuators)
}
