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
	"encoding/gob"
	"fmt"
	"io"

	"github.com/ctessum/sparse"
)

// historyDataVersion guards saved histories against being loaded by an
// incompatible version of the software.
const historyDataVersion = "1"

// SamplingConfig selects what a run captures along the way.
type SamplingConfig struct {
	// ProfileInterval captures a time-series point every that many
	// steps; 0 disables profile capture.
	ProfileInterval int
	// EnableDerived evaluates the derived quantities at every sample.
	EnableDerived bool
	// EnableDiagnostics attaches the latest step diagnostics to each
	// sample.
	EnableDiagnostics bool
	// EnableLiveStreaming serves samples to websocket subscribers as
	// they are captured.
	EnableLiveStreaming bool
}

// SamplePoint is one captured time-series entry: the serialized profiles
// plus optional derived quantities and diagnostics.
type SamplePoint struct {
	Step    int
	Time    float64
	Ti      []float64
	Te      []float64
	Ne      []float64
	Psi     []float64
	Derived map[string]float64
	Diag    *StepDiagnostics
}

// History accumulates sampled points. Only the points are stored;
// ProfileArray assembles a profile series into a dense step-by-radius
// array on each call.
type History struct {
	NCells int
	Points []SamplePoint
}

// Add appends a sample.
func (h *History) Add(p SamplePoint) {
	h.Points = append(h.Points, p)
}

// ProfileArray returns the named profile series as a dense
// [nSamples × nCells] array.
func (h *History) ProfileArray(name string) (*sparse.DenseArray, error) {
	out := sparse.ZerosDense(len(h.Points), h.NCells)
	for i, p := range h.Points {
		var row []float64
		switch name {
		case VarTi:
			row = p.Ti
		case VarTe:
			row = p.Te
		case VarNe:
			row = p.Ne
		case VarPsi:
			row = p.Psi
		default:
			return nil, fmt.Errorf("toktrans.History.ProfileArray: unknown profile %q", name)
		}
		for j, v := range row {
			out.Set(v, i, j)
		}
	}
	return out, nil
}

type versionedHistory struct {
	DataVersion string
	History     *History
}

// Save writes the history to w as a gob stream with a version guard.
func (h *History) Save(w io.Writer) error {
	if len(h.Points) == 0 {
		return fmt.Errorf("toktrans.History.Save: no samples to save")
	}
	e := gob.NewEncoder(w)
	if err := e.Encode(versionedHistory{DataVersion: historyDataVersion, History: h}); err != nil {
		return fmt.Errorf("toktrans.History.Save: %v", err)
	}
	return nil
}

// LoadHistory reads a history previously written by Save.
func LoadHistory(r io.Reader) (*History, error) {
	var data versionedHistory
	if err := gob.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("toktrans.LoadHistory: %v", err)
	}
	if data.DataVersion != historyDataVersion {
		return nil, fmt.Errorf("toktrans.LoadHistory: history version %s is not compatible with required version %s",
			data.DataVersion, historyDataVersion)
	}
	return data.History, nil
}
