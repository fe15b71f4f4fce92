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

import "math"

// coulombLog returns the electron Coulomb logarithm for density ne [m⁻³]
// and temperature te [eV].
func coulombLog(ne, te float64) float64 {
	return 15.2 - 0.5*math.Log(ne/1e20) + math.Log(te/1000)
}

// SpitzerResistivity returns the parallel Spitzer resistivity [Ω·m] for
// electron temperature te [eV] and density ne [m⁻³] with effective charge
// zeff.
func SpitzerResistivity(ne, te, zeff float64) float64 {
	te = math.Max(te, 1)
	lnL := math.Max(coulombLog(ne, te), 5)
	return 5.25e-5 * zeff * lnL / math.Pow(te, 1.5)
}

// NeoclassicalResistivity returns the Spitzer resistivity corrected for
// trapped-particle effects at inverse aspect ratio eps = r/R₀.
func NeoclassicalResistivity(ne, te, zeff, eps float64) float64 {
	ft := 1 - math.Sqrt(math.Max(eps, 0))
	return SpitzerResistivity(ne, te, zeff) / (ft * ft)
}

// BootstrapCurrent returns the bootstrap current density [A/m²] on cell
// centers. The pressure-gradient drive uses the collisionless limit
// J_bs = 2.44·√ε·(dp/dr)/B_θ, so the result carries the sign of the
// pressure gradient. The magnitude is bounded by BootstrapCurrentMax
// before it enters the current equation; the sign is preserved.
func BootstrapCurrent(profiles *CoreProfiles, geom *Geometry) Array {
	n := profiles.NCells()
	out := make(Array, n)

	// Total pressure [Pa] on cell centers.
	p := make(Array, n)
	for i := 0; i < n; i++ {
		p[i] = profiles.Ne[i] * (profiles.Te[i] + profiles.Ti[i]) * EVToJoule
	}

	for i := 0; i < n; i++ {
		var dpdr, dpsidr float64
		switch {
		case i == 0:
			dpdr = (p[1] - p[0]) / geom.Dr
			dpsidr = (profiles.Psi[1] - profiles.Psi[0]) / geom.Dr
		case i == n-1:
			dpdr = (p[n-1] - p[n-2]) / geom.Dr
			dpsidr = (profiles.Psi[n-1] - profiles.Psi[n-2]) / geom.Dr
		default:
			dpdr = (p[i+1] - p[i-1]) / (2 * geom.Dr)
			dpsidr = (profiles.Psi[i+1] - profiles.Psi[i-1]) / (2 * geom.Dr)
		}
		// Poloidal field magnitude from the flux gradient.
		bpol := math.Abs(dpsidr) / (2 * math.Pi * geom.MajorRadius)
		if bpol < 1e-3 {
			bpol = 1e-3
		}
		eps := geom.RCell[i] / geom.MajorRadius
		jbs := 2.44 * math.Sqrt(eps) * dpdr / bpol
		if jbs > BootstrapCurrentMax {
			jbs = BootstrapCurrentMax
		} else if jbs < -BootstrapCurrentMax {
			jbs = -BootstrapCurrentMax
		}
		out[i] = jbs
	}
	return out
}
