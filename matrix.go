package skeldyn

import "gonum.org/v1/gonum/mat"

// symFromDense copies the upper triangle of a square dense matrix into a
// new SymDense, the shape ArticulatedInertia's internal representation
// requires. Used wherever a computed result (e.g. a congruence transform
// or a reduced inertia) is known to be symmetric by construction but
// arrives as a plain Dense from an intermediate gonum.Mul.
func symFromDense(d mat.Matrix) ArticulatedInertia {
	r, _ := d.Dims()
	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for k := i; k < r; k++ {
			sym.SetSym(i, k, d.At(i, k))
		}
	}
	return ArticulatedInertia{dense: sym}
}

// accelGuard/velGuard save a GenCoordSystem's accelerations or velocities,
// zero them out, and restore the saved values on Release. This is the
// scoped-zeroing mechanism getCoriolisForceVector/getGravityForceVector/
// getCombinedVector use to reuse the inverse-dynamics recursion with
// selected velocity-dependent or q̈-dependent terms suppressed, instead of
// writing three near-duplicate backward passes (spec.md §4.5 note).
type accelGuard struct {
	sys   *GenCoordSystem
	saved *mat.VecDense
}

func zeroAccelerations(sys *GenCoordSystem) *accelGuard {
	saved := sys.Accelerations()
	sys.SetAccelerations(mat.NewVecDense(sys.Dof(), nil))
	return &accelGuard{sys: sys, saved: saved}
}

func (g *accelGuard) Release() { g.sys.SetAccelerations(g.saved) }

type velGuard struct {
	sys   *GenCoordSystem
	saved *mat.VecDense
}

func zeroVelocities(sys *GenCoordSystem) *velGuard {
	saved := sys.Velocities()
	sys.SetVelocities(mat.NewVecDense(sys.Dof(), nil))
	return &velGuard{sys: sys, saved: saved}
}

func (g *velGuard) Release() { g.sys.SetVelocities(g.saved) }
