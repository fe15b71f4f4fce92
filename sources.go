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

	"github.com/ctessum/unit"
)

// SourceContribution records one model's share of the merged source
// terms: the model name and its volume-integrated powers.
type SourceContribution struct {
	Model         string
	IonPower      *unit.Unit // W
	ElectronPower *unit.Unit // W
	Particles     *unit.Unit // particles/s
}

// SourceMetadata lists the models that contributed to a merged SourceTerms
// and their partial powers.
type SourceMetadata struct {
	Contributions []SourceContribution
}

// SourceTerms holds per-cell volumetric sources: ion and electron heating
// [MW/m³], particle fueling [m⁻³s⁻¹], and externally driven current
// density [A/m²], plus metadata naming the contributing models.
type SourceTerms struct {
	IonHeating      Array
	ElectronHeating Array
	Particle        Array
	Current         Array
	Metadata        SourceMetadata
}

// ZeroSources returns the additive identity source for an n-cell mesh:
// all-zero arrays and empty metadata.
func ZeroSources(n int) *SourceTerms {
	return &SourceTerms{
		IonHeating:      NewArray(n),
		ElectronHeating: NewArray(n),
		Particle:        NewArray(n),
		Current:         NewArray(n),
	}
}

// IsZero reports whether s carries no heating, fueling, or current.
func (s *SourceTerms) IsZero() bool {
	for _, a := range []Array{s.IonHeating, s.ElectronHeating, s.Particle, s.Current} {
		for _, v := range a {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

// Add returns the element-wise sum of s and t with concatenated metadata.
// Addition is associative and ZeroSources is its identity. An operand that
// carries no heating, fueling, or current contributes no metadata either,
// even if its model recorded entries; a non-zero operand contributes all
// the entries it carries.
func (s *SourceTerms) Add(t *SourceTerms) *SourceTerms {
	out := &SourceTerms{
		IonHeating:      s.IonHeating.Add(t.IonHeating),
		ElectronHeating: s.ElectronHeating.Add(t.ElectronHeating),
		Particle:        s.Particle.Add(t.Particle),
		Current:         s.Current.Add(t.Current),
	}
	if !s.IsZero() {
		out.Metadata.Contributions = append(out.Metadata.Contributions, s.Metadata.Contributions...)
	}
	if !t.IsZero() {
		out.Metadata.Contributions = append(out.Metadata.Contributions, t.Metadata.Contributions...)
	}
	return out
}

// Describe lists the contributing models and their powers, for logs.
func (s *SourceTerms) Describe() string {
	if len(s.Metadata.Contributions) == 0 {
		return "no sources"
	}
	out := ""
	for i, c := range s.Metadata.Contributions {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("%s: Pi=%v Pe=%v", c.Model, c.IonPower, c.ElectronPower)
	}
	return out
}

// SourceModel computes volumetric source terms from the current plasma
// state.
type SourceModel interface {
	// Name identifies the model in diagnostics and metadata.
	Name() string
	// ComputeTerms returns this model's source contribution for the
	// given state. Implementations must not retain or mutate the
	// inputs, and should record themselves in the returned metadata.
	ComputeTerms(profiles *CoreProfiles, geom *Geometry, params Params) (*SourceTerms, error)
}

// PowerHandleSetter is an opt-in capability of source models that can take
// their injected power from an autodiff-tape handle instead of a plain
// configuration value. The differentiable pipeline calls SetPowerHandle
// before each forward pass and ClearPowerHandle afterwards; models without
// gradient support simply do not implement the interface.
type PowerHandleSetter interface {
	SetPowerHandle(h Num)
	ClearPowerHandle()
}

// sumSources merges the contributions of all models at the given state.
// Models that return a zero term drop out of the merge entirely.
func sumSources(models []SourceModel, profiles *CoreProfiles, geom *Geometry, params Params) (*SourceTerms, error) {
	total := ZeroSources(profiles.NCells())
	for _, m := range models {
		s, err := m.ComputeTerms(profiles, geom, params)
		if err != nil {
			return nil, fmt.Errorf("toktrans: source model %s: %v", m.Name(), err)
		}
		if s.IsZero() {
			continue
		}
		total = total.Add(s)
	}
	return total, nil
}
