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

// Package auxheat contains the auxiliary heating sources: Gaussian
// power deposition for the electron and ion cyclotron systems. The
// models are gradient-aware; the scenario optimizer injects tape-linked
// power handles through the SetPowerHandle capability.
package auxheat

import (
	"math"

	"github.com/ctessum/unit"
	"github.com/plasmamodel/toktrans"
)

// Model fulfils the github.com/plasmamodel/toktrans.SourceModel and
// toktrans.TapeSource interfaces: Gaussian power deposition centered at
// a normalized radius, with a configurable ion/electron split.
//
// Recognized parameters: <prefix>_power [MW], <prefix>_rho (deposition
// center, default 0.3 for ECRH and 0.35 for ICRH), <prefix>_width
// (default 0.1), where prefix is "ecrh" or "icrh".
type Model struct {
	// Channel selects the actuator this model draws from; it also
	// selects the parameter prefix and the default ion fraction:
	// ECRH deposits entirely into electrons, ICRH mostly into ions.
	Channel toktrans.ActuatorChannel

	handle    toktrans.Num
	handleSet bool
}

// NewECRH returns an electron cyclotron heating model.
func NewECRH() *Model { return &Model{Channel: toktrans.ChannelECRH} }

// NewICRH returns an ion cyclotron heating model.
func NewICRH() *Model { return &Model{Channel: toktrans.ChannelICRH} }

// Name implements toktrans.SourceModel.
func (m *Model) Name() string { return m.prefix() }

func (m *Model) prefix() string {
	if m.Channel == toktrans.ChannelICRH {
		return "icrh"
	}
	return "ecrh"
}

func (m *Model) ionFraction() float64 {
	if m.Channel == toktrans.ChannelICRH {
		return 0.8
	}
	return 0
}

func (m *Model) defaultRho() float64 {
	if m.Channel == toktrans.ChannelICRH {
		return 0.35
	}
	return 0.3
}

// shape returns the normalized deposition profile [1/m³]: a Gaussian in
// normalized radius scaled so its volume integral is one, making the
// per-cell power density shape[i]·P.
func (m *Model) shape(g *toktrans.Geometry, params toktrans.Params) toktrans.Array {
	rho0 := params.Float(m.prefix()+"_rho", m.defaultRho())
	width := params.Float(m.prefix()+"_width", 0.1)
	n := g.NCells
	s := make(toktrans.Array, n)
	var integral float64
	for i := 0; i < n; i++ {
		d := (g.RhoNorm(i) - rho0) / width
		s[i] = math.Exp(-0.5 * d * d)
		integral += s[i] * g.Volume[i]
	}
	for i := range s {
		s[i] /= integral
	}
	return s
}

// ComputeTerms implements toktrans.SourceModel using the configured
// plain power.
func (m *Model) ComputeTerms(p *toktrans.CoreProfiles, g *toktrans.Geometry,
	params toktrans.Params) (*toktrans.SourceTerms, error) {

	power := params.Float(m.prefix()+"_power", 0) // MW
	out := toktrans.ZeroSources(p.NCells())
	if power == 0 {
		return out, nil
	}
	s := m.shape(g, params)
	fi := m.ionFraction()

	for i := range s {
		out.IonHeating[i] = power * fi * s[i]
		out.ElectronHeating[i] = power * (1 - fi) * s[i]
	}
	out.Metadata.Contributions = []toktrans.SourceContribution{{
		Model:         m.Name(),
		IonPower:      unit.New(power*fi*1e6, unit.Watt),
		ElectronPower: unit.New(power*(1-fi)*1e6, unit.Watt),
	}}
	return out, nil
}

// SetPowerHandle implements toktrans.PowerHandleSetter.
func (m *Model) SetPowerHandle(h toktrans.Num) {
	m.handle = h
	m.handleSet = true
}

// ClearPowerHandle implements toktrans.PowerHandleSetter.
func (m *Model) ClearPowerHandle() {
	m.handle = toktrans.Num{}
	m.handleSet = false
}

// ActuatorChannel implements toktrans.TapeSource.
func (m *Model) ActuatorChannel() toktrans.ActuatorChannel { return m.Channel }

// ComputeTermsTape implements toktrans.TapeSource: the same deposition
// profile with the tape-linked power threaded through in place of the
// configured value.
func (m *Model) ComputeTermsTape(p *toktrans.CoreProfiles, g *toktrans.Geometry,
	params toktrans.Params) (ion, electron []toktrans.Num, err error) {

	s := m.shape(g, params)
	fi := m.ionFraction()
	power := m.handle
	if !m.handleSet {
		power = toktrans.Const(params.Float(m.prefix()+"_power", 0))
	}
	ion = make([]toktrans.Num, len(s))
	electron = make([]toktrans.Num, len(s))
	for i := range s {
		ion[i] = power.Scale(fi * s[i])
		electron[i] = power.Scale((1 - fi) * s[i])
	}
	return ion, electron, nil
}
