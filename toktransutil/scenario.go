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
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/plasmamodel/toktrans"
)

// scenarioFile is the on-disk TOML layout of an actuator schedule. A
// channel given as a single value is held constant over the schedule; a
// channel given as a series must have n_steps entries.
type scenarioFile struct {
	NSteps        int       `toml:"n_steps"`
	ECRH          []float64 `toml:"ecrh"`
	ICRH          []float64 `toml:"icrh"`
	GasPuff       []float64 `toml:"gas_puff"`
	PlasmaCurrent []float64 `toml:"plasma_current"`
}

// LoadScenario reads a TOML actuator schedule.
func LoadScenario(path string) (*toktrans.ActuatorTimeSeries, error) {
	var sc scenarioFile
	if _, err := toml.DecodeFile(path, &sc); err != nil {
		return nil, fmt.Errorf("toktrans: reading scenario file %s: %v", path, err)
	}
	if sc.NSteps <= 0 {
		return nil, fmt.Errorf("toktrans: scenario file %s: n_steps must be positive", path)
	}
	act := toktrans.NewActuatorTimeSeries(sc.NSteps)
	channels := []struct {
		name   string
		ch     toktrans.ActuatorChannel
		series []float64
	}{
		{"ecrh", toktrans.ChannelECRH, sc.ECRH},
		{"icrh", toktrans.ChannelICRH, sc.ICRH},
		{"gas_puff", toktrans.ChannelGasPuff, sc.GasPuff},
		{"plasma_current", toktrans.ChannelPlasmaCurrent, sc.PlasmaCurrent},
	}
	for _, c := range channels {
		switch len(c.series) {
		case 0:
			// Channel stays zero.
		case 1:
			for step := 0; step < sc.NSteps; step++ {
				act.Set(c.series[0], step, c.ch)
			}
		case sc.NSteps:
			for step, v := range c.series {
				act.Set(v, step, c.ch)
			}
		default:
			return nil, fmt.Errorf("toktrans: scenario file %s: channel %s has %d entries, want 1 or %d",
				path, c.name, len(c.series), sc.NSteps)
		}
	}
	return act, nil
}

// SaveScenario writes an actuator schedule as a TOML scenario file.
func SaveScenario(path string, act *toktrans.ActuatorTimeSeries) error {
	n := act.NSteps()
	sc := scenarioFile{NSteps: n}
	series := func(ch toktrans.ActuatorChannel) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = act.Get(i, ch)
		}
		return out
	}
	sc.ECRH = series(toktrans.ChannelECRH)
	sc.ICRH = series(toktrans.ChannelICRH)
	sc.GasPuff = series(toktrans.ChannelGasPuff)
	sc.PlasmaCurrent = series(toktrans.ChannelPlasmaCurrent)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("toktrans: creating scenario file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(sc); err != nil {
		return fmt.Errorf("toktrans: writing scenario file: %v", err)
	}
	return nil
}
