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
	"os"
	"path/filepath"
	"testing"

	"github.com/plasmamodel/toktrans"
)

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.toml")
	content := `
n_steps = 4
ecrh = [10.0]
icrh = [1.0, 2.0, 3.0, 4.0]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	act, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	if act.NSteps() != 4 {
		t.Fatalf("n_steps %d, want 4", act.NSteps())
	}
	// A single value holds over the schedule.
	for i := 0; i < 4; i++ {
		if act.Get(i, toktrans.ChannelECRH) != 10 {
			t.Errorf("ECRH[%d]=%g, want 10", i, act.Get(i, toktrans.ChannelECRH))
		}
	}
	// A full series maps one to one.
	for i := 0; i < 4; i++ {
		if act.Get(i, toktrans.ChannelICRH) != float64(i+1) {
			t.Errorf("ICRH[%d]=%g, want %d", i, act.Get(i, toktrans.ChannelICRH), i+1)
		}
	}
	// Unlisted channels stay zero.
	if act.Get(2, toktrans.ChannelGasPuff) != 0 {
		t.Error("unlisted channel is not zero")
	}
}

func TestLoadScenarioRejectsBadLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.toml")
	content := `
n_steps = 4
ecrh = [1.0, 2.0]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScenario(path); err == nil {
		t.Error("mismatched series length accepted")
	}
}

func TestScenarioRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.toml")
	act := toktrans.NewActuatorTimeSeries(3)
	for i := 0; i < 3; i++ {
		act.Set(float64(10+i), i, toktrans.ChannelECRH)
		act.Set(15, i, toktrans.ChannelPlasmaCurrent)
	}
	if err := SaveScenario(path, act); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		for ch := toktrans.ActuatorChannel(0); ch < 4; ch++ {
			if loaded.Get(i, ch) != act.Get(i, ch) {
				t.Errorf("step %d channel %d: %g != %g", i, ch, loaded.Get(i, ch), act.Get(i, ch))
			}
		}
	}
}
