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

import "fmt"

// Block1DCoeffs holds the assembled coefficients of one transport
// equation on the finite-volume mesh: face diffusivities and convection
// velocities (length nCells+1), and the transient weight and merged
// source on cell centers (length nCells).
type Block1DCoeffs struct {
	DFace     Array
	VFace     Array
	Transient Array
	Source    Array
}

// EquationCoeffs holds the per-equation coefficient blocks for one solver
// iteration. Equations that are not evolved have nil entries.
type EquationCoeffs struct {
	Ti  *Block1DCoeffs
	Te  *Block1DCoeffs
	Ne  *Block1DCoeffs
	Psi *Block1DCoeffs
}

// StaticParams holds the configuration the coefficient builder needs that
// does not change over a run.
type StaticParams struct {
	EvolveIonHeat      bool
	EvolveElectronHeat bool
	EvolveDensity      bool
	EvolveCurrent      bool

	// ChiMax bounds every diffusivity [m²/s] before use.
	ChiMax float64

	// Zeff is the effective ion charge entering the resistivity.
	Zeff float64

	// Theta is the implicit time-weighting coefficient; 1 is backward
	// Euler.
	Theta float64

	// UsePereverzev enables the stiffness-damping predictor term in
	// the linear solver.
	UsePereverzev bool
}

// DefaultStaticParams returns the parameters of a fully implicit run
// evolving both temperatures only.
func DefaultStaticParams() StaticParams {
	return StaticParams{
		EvolveIonHeat:      true,
		EvolveElectronHeat: true,
		ChiMax:             100,
		Zeff:               1,
		Theta:              1,
	}
}

// Validate rejects contradictory or out-of-range static parameters.
func (sp *StaticParams) Validate() error {
	if !sp.EvolveIonHeat && !sp.EvolveElectronHeat && !sp.EvolveDensity && !sp.EvolveCurrent {
		return &ConfigurationError{Option: "evolution", Reason: "no equation selected for evolution"}
	}
	if sp.ChiMax <= 0 {
		return &ConfigurationError{Option: "chi_max", Reason: fmt.Sprintf("must be positive, got %g", sp.ChiMax)}
	}
	if sp.Zeff < 1 {
		return &ConfigurationError{Option: "zeff", Reason: fmt.Sprintf("must be at least 1, got %g", sp.Zeff)}
	}
	if sp.Theta < 0 || sp.Theta > 1 {
		return &ConfigurationError{Option: "theta", Reason: fmt.Sprintf("must lie in [0,1], got %g", sp.Theta)}
	}
	return nil
}

// cellDiffusivityToFaces interpolates a cell-centered diffusivity to the
// faces by harmonic mean, the interpolant that keeps fluxes continuous
// across interfaces with strongly varying coefficients. Boundary faces
// take the nearest cell value unchanged.
func cellDiffusivityToFaces(dCell Array) Array {
	n := len(dCell)
	out := make(Array, n+1)
	out[0] = dCell[0]
	out[n] = dCell[n-1]
	for i := 1; i < n; i++ {
		out[i] = harmonicMean(dCell[i-1], dCell[i])
	}
	return out
}

// cellVelocityToFaces interpolates a cell-centered convection velocity to
// the faces by linear average.
func cellVelocityToFaces(vCell Array) Array {
	n := len(vCell)
	out := make(Array, n+1)
	out[0] = vCell[0]
	out[n] = vCell[n-1]
	for i := 1; i < n; i++ {
		out[i] = (vCell[i-1] + vCell[i]) / 2
	}
	return out
}

// BuildCoeffs assembles the per-equation Block1D coefficients for the
// given state. It is pure: the same inputs always produce the same
// coefficients, and nothing is cached between calls. The solvers call it
// once per iteration so iterative schemes see coefficients consistent
// with the current iterate.
//
// Heating sources arrive in MW/m³ and are converted to eV/(m³·s) here,
// at the assembly boundary; particle sources stay in m⁻³s⁻¹.
func BuildCoeffs(profiles *CoreProfiles, geom *Geometry, transport *TransportCoefficients,
	sources *SourceTerms, static *StaticParams) (*EquationCoeffs, error) {

	n := profiles.NCells()
	if transport.NCells() != n {
		return nil, fmt.Errorf("toktrans.BuildCoeffs: transport has %d cells, profiles have %d",
			transport.NCells(), n)
	}
	bounded := transport.Bound(static.ChiMax)

	// Density with the floor applied. The floor lives here, not in the
	// boundary conditions, so harmonic-mean interpolation never divides
	// by zero while the physical boundary contract stays intact.
	neF := profiles.Ne.ClampMin(NeFloor)

	out := &EquationCoeffs{}

	if static.EvolveIonHeat {
		out.Ti = buildHeatEquation(neF, bounded.ChiIon, bounded.VConv, sources.IonHeating)
	}
	if static.EvolveElectronHeat {
		out.Te = buildHeatEquation(neF, bounded.ChiElectron, bounded.VConv, sources.ElectronHeating)
	}
	if static.EvolveDensity {
		out.Ne = &Block1DCoeffs{
			DFace:     cellDiffusivityToFaces(bounded.DParticle),
			VFace:     cellVelocityToFaces(bounded.VConv),
			Transient: ConstArray(n, 1),
			Source:    sources.Particle.Clone(),
		}
	}
	if static.EvolveCurrent {
		out.Psi = buildCurrentEquation(profiles, geom, sources, static)
	}
	return out, nil
}

// buildHeatEquation assembles one temperature equation. The conserved
// quantity is n·T, so the cell diffusivity is n·χ and the transient
// weight is the floored density. Heating converts from MW/m³ to
// eV/(m³·s).
func buildHeatEquation(neF, chi, vconv, heating Array) *Block1DCoeffs {
	n := len(neF)
	dCell := make(Array, n)
	for i := 0; i < n; i++ {
		dCell[i] = neF[i] * chi[i]
	}
	src := make(Array, n)
	for i := 0; i < n; i++ {
		src[i] = heating[i] * MWToEVConv
	}
	return &Block1DCoeffs{
		DFace:     cellDiffusivityToFaces(dCell),
		VFace:     cellVelocityToFaces(vconv),
		Transient: neF.Clone(),
		Source:    src,
	}
}

// buildCurrentEquation assembles the poloidal-flux diffusion equation.
// The face diffusivity is the neoclassically corrected Spitzer
// resistivity over μ₀, the transient weight is the metric factor
// G3·r/Δr bounded below by 1e-2, and the source is the externally driven plus bootstrap current
// density, the latter bounded in magnitude with its sign preserved.
func buildCurrentEquation(profiles *CoreProfiles, geom *Geometry, sources *SourceTerms,
	static *StaticParams) *Block1DCoeffs {

	n := profiles.NCells()
	etaCell := make(Array, n)
	for i := 0; i < n; i++ {
		eps := geom.RCell[i] / geom.MajorRadius
		etaCell[i] = NeoclassicalResistivity(profiles.Ne[i], profiles.Te[i], static.Zeff, eps) / Mu0
	}

	jbs := BootstrapCurrent(profiles, geom)
	src := make(Array, n)
	for i := 0; i < n; i++ {
		src[i] = sources.Current[i] + jbs[i]
	}

	transient := make(Array, n)
	for i := 0; i < n; i++ {
		// Geometric weighting of the flux transient; bounded away
		// from zero on the axis cell.
		transient[i] = max(geom.G3[i]*geom.RCell[i]/geom.Dr, 1e-2)
	}

	return &Block1DCoeffs{
		DFace:     cellDiffusivityToFaces(etaCell),
		VFace:     NewArray(n + 1),
		Transient: transient,
		Source:    src,
	}
}
