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

// Package toktransutil holds the configuration and command-line glue of
// the TokTrans plasma transport model.
package toktransutil

import (
	"context"
	"fmt"

	"github.com/lnashier/viper"
	"github.com/plasmamodel/toktrans"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
type Cfg struct {
	*viper.Viper

	Root, versionCmd, runCmd, optimizeCmd *cobra.Command
}

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

// InitializeConfig builds the command tree and registers every
// configuration option. Configuration priority is command line, then
// environment variables in the format 'TOKTRANS_var', then the
// configuration file, then the defaults declared here.
func InitializeConfig() *Cfg {

	cfg := &Cfg{
		Viper: viper.New(),
	}

	cfg.Root = &cobra.Command{
		Use:   "toktrans",
		Short: "A 1-D tokamak core transport model.",
		Long: `TokTrans advances the coupled radial profiles of ion temperature,
electron temperature, electron density, and poloidal flux under transport
and source terms with an implicit finite-volume solver.

Configuration can be changed with a configuration file (--config), with
command-line arguments, or with environment variables in the format
'TOKTRANS_var' where 'var' is the name of the option to be set.`,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return setConfig(cfg)
		},
	}

	cfg.versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Long:  "version prints the version number of this version of TokTrans.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("TokTrans v%s\n", toktrans.Version)
		},
		DisableAutoGenTag: true,
	}

	cfg.runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a time-dependent simulation.",
		Long: `run advances the configured scenario from the start time to the end
time and writes the sampled history to the output file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := BuildModel(cfg)
			if err != nil {
				return err
			}
			return Run(context.Background(), cfg, model)
		},
		DisableAutoGenTag: true,
	}

	cfg.optimizeCmd = &cobra.Command{
		Use:   "optimize",
		Short: "Optimize an actuator schedule.",
		Long: `optimize searches the actuator schedule that minimizes the configured
loss with the gradient-based scenario optimizer, starting from the
schedule in the scenario file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Optimize(cfg)
		},
		DisableAutoGenTag: true,
	}

	cfg.Root.AddCommand(cfg.versionCmd, cfg.runCmd, cfg.optimizeCmd)

	// Options are the configuration options available to TokTrans.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name:       "config",
			usage:      `config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "mesh.n_cells",
			usage:      `mesh.n_cells is the number of radial cells.`,
			defaultVal: 25,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "mesh.major_radius",
			usage:      `mesh.major_radius is the torus major radius R0 [m].`,
			defaultVal: 6.2,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "mesh.minor_radius",
			usage:      `mesh.minor_radius is the plasma minor radius a [m].`,
			defaultVal: 2.0,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "mesh.toroidal_field",
			usage:      `mesh.toroidal_field is the on-axis toroidal field B0 [T].`,
			defaultVal: 5.3,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "mesh.geometry_type",
			usage:      `mesh.geometry_type selects the flux-surface geometry; "circular" is the only available type.`,
			defaultVal: "circular",
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "evolution.ion_heat",
			usage:      `evolution.ion_heat selects whether the ion temperature equation is evolved.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "evolution.electron_heat",
			usage:      `evolution.electron_heat selects whether the electron temperature equation is evolved.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "evolution.density",
			usage:      `evolution.density selects whether the electron density equation is evolved.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "evolution.current",
			usage:      `evolution.current selects whether the poloidal flux equation is evolved.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "solver.type",
			usage:      `solver.type selects the PDE solver: "linear" or "newton_raphson" ("optimizer" is only valid for the optimize command).`,
			defaultVal: "linear",
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "solver.tolerance",
			usage:      `solver.tolerance is the residual norm below which a step converges.`,
			defaultVal: 1e-6,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "solver.max_iterations",
			usage:      `solver.max_iterations bounds the solver iterations per step.`,
			defaultVal: 30,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "scheme.theta",
			usage:      `scheme.theta is the implicit time weighting; 1 is backward Euler, 0.5 is Crank-Nicolson.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "scheme.use_pereverzev",
			usage:      `scheme.use_pereverzev enables the Pereverzev stiffness-damping corrector in the linear solver.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "time.start",
			usage:      `time.start is the initial simulated time [s].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.PersistentFlags()},
		},
		{
			name:       "time.end",
			usage:      `time.end is the simulated time at which the run stops [s].`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.PersistentFlags()},
		},
		{
			name:       "time.initial_dt",
			usage:      `time.initial_dt is the first timestep [s].`,
			defaultVal: 1e-4,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.PersistentFlags()},
		},
		{
			name:       "time.adaptive.safety_factor",
			usage:      `time.adaptive.safety_factor scales the CFL timestep estimate.`,
			defaultVal: 0.45,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.PersistentFlags()},
		},
		{
			name:       "time.adaptive.min_dt",
			usage:      `time.adaptive.min_dt is the smallest allowed timestep [s].`,
			defaultVal: 1e-8,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.PersistentFlags()},
		},
		{
			name:       "time.adaptive.max_dt",
			usage:      `time.adaptive.max_dt is the largest allowed timestep [s].`,
			defaultVal: 1e-1,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.PersistentFlags()},
		},
		{
			name:       "sampling.profile_interval",
			usage:      `sampling.profile_interval captures a time-series point every that many steps; 0 disables capture.`,
			defaultVal: 10,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.PersistentFlags()},
		},
		{
			name:       "sampling.enable_derived",
			usage:      `sampling.enable_derived evaluates derived quantities at every sample.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.PersistentFlags()},
		},
		{
			name:       "sampling.enable_diagnostics",
			usage:      `sampling.enable_diagnostics attaches numerical health diagnostics to samples.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.PersistentFlags()},
		},
		{
			name:       "sampling.enable_live_streaming",
			usage:      `sampling.enable_live_streaming serves progress and samples over HTTP.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.PersistentFlags()},
		},
		{
			name:       "http_port",
			usage:      `http_port is the port of the live streaming server.`,
			defaultVal: "8080",
			flagsets:   []*pflag.FlagSet{cfg.runCmd.PersistentFlags()},
		},
		{
			name:       "transport.model",
			usage:      `transport.model selects the transport model: "fixed" or "bohm-gyrobohm".`,
			defaultVal: "fixed",
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "transport.chi_max",
			usage:      `transport.chi_max bounds every diffusivity [m²/s].`,
			defaultVal: 100.0,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "plasma.zeff",
			usage:      `plasma.zeff is the effective ion charge.`,
			defaultVal: 1.5,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "sources.ohmic",
			usage:      `sources.ohmic enables ohmic heating.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "sources.fusion",
			usage:      `sources.fusion enables D-T alpha heating.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "sources.ecrh",
			usage:      `sources.ecrh enables electron cyclotron heating.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "sources.icrh",
			usage:      `sources.icrh enables ion cyclotron heating.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "sources.gas_puff",
			usage:      `sources.gas_puff enables edge gas fueling.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "pedestal.enable",
			usage:      `pedestal.enable couples the edge boundary conditions to the pedestal model.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "mhd.sawtooth",
			usage:      `mhd.sawtooth enables the sawtooth crash model.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "conservation.enable",
			usage:      `conservation.enable turns on particle and energy invariant enforcement.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.PersistentFlags()},
		},
		{
			name:       "conservation.interval",
			usage:      `conservation.interval is the step cadence of invariant enforcement.`,
			defaultVal: 50,
			flagsets:   []*pflag.FlagSet{cfg.runCmd.PersistentFlags()},
		},
		{
			name:       "initial.core_temperature",
			usage:      `initial.core_temperature is the on-axis initial temperature [eV].`,
			defaultVal: 10000.0,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "initial.edge_temperature",
			usage:      `initial.edge_temperature is the edge initial temperature [eV].`,
			defaultVal: 100.0,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "initial.core_density",
			usage:      `initial.core_density is the on-axis initial electron density [m⁻³].`,
			defaultVal: 1e20,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "initial.edge_density",
			usage:      `initial.edge_density is the edge initial electron density [m⁻³].`,
			defaultVal: 5e19,
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "current.edge_bc",
			usage:      `current.edge_bc selects the poloidal flux edge boundary kind: "value" or "gradient".`,
			defaultVal: "value",
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name:       "scenario_file",
			usage:      `scenario_file is the TOML actuator schedule consumed by run and optimize.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.runCmd.PersistentFlags(), cfg.optimizeCmd.Flags()},
		},
		{
			name:       "output_file",
			usage:      `output_file is the location where the sampled history is written.`,
			defaultVal: "toktrans_history.gob",
			flagsets:   []*pflag.FlagSet{cfg.runCmd.PersistentFlags(), cfg.optimizeCmd.Flags()},
		},
		{
			name:       "optimizer.learning_rate",
			usage:      `optimizer.learning_rate is the Adam step size.`,
			defaultVal: 1e-3,
			flagsets:   []*pflag.FlagSet{cfg.optimizeCmd.Flags()},
		},
		{
			name:       "optimizer.max_iterations",
			usage:      `optimizer.max_iterations bounds the optimizer iterations.`,
			defaultVal: 100,
			flagsets:   []*pflag.FlagSet{cfg.optimizeCmd.Flags()},
		},
		{
			name:       "optimizer.tolerance",
			usage:      `optimizer.tolerance is the loss change below which the optimizer stops.`,
			defaultVal: 1e-4,
			flagsets:   []*pflag.FlagSet{cfg.optimizeCmd.Flags()},
		},
		{
			name:       "optimizer.horizon",
			usage:      `optimizer.horizon is the forward-model horizon [s].`,
			defaultVal: 2e-3,
			flagsets:   []*pflag.FlagSet{cfg.optimizeCmd.Flags()},
		},
		{
			name:       "optimizer.dt",
			usage:      `optimizer.dt is the fixed forward-model timestep [s].`,
			defaultVal: 1e-4,
			flagsets:   []*pflag.FlagSet{cfg.optimizeCmd.Flags()},
		},
	}

	// Set the prefix for configuration environment variables.
	cfg.SetEnvPrefix("TOKTRANS")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				set.String(option.name, option.defaultVal.(string), option.usage)
			case bool:
				set.Bool(option.name, option.defaultVal.(bool), option.usage)
			case int:
				set.Int(option.name, option.defaultVal.(int), option.usage)
			case float64:
				set.Float64(option.name, option.defaultVal.(float64), option.usage)
			default:
				panic(fmt.Errorf("invalid argument type: %T", option.defaultVal))
			}
			cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
	return cfg
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig(cfg *Cfg) error {
	if cfgpath := cfg.GetString("config"); cfgpath != "" {
		cfg.SetConfigFile(cfgpath)
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("toktrans: problem reading configuration file: %v", err)
		}
	}
	return nil
}
