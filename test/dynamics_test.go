package skeldyn_test

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/corvid-sim/skeldyn"
	"github.com/go-gl/mathgl/mgl64"
)

// TestDynamicsConsistency checks property 5: after setGenForces(tau) and
// computeForwardDynamics, M*q̈ + C + g - tau - f_ext ≈ 0 (no external
// forces and no damping here, so the equality is exact up to floating
// point).
func TestDynamicsConsistency(t *testing.T) {
	sk, _, _ := newPendulumSkeleton(0.001, mgl64.Vec3{0, 0, -9.81})

	tau := mat.NewVecDense(sk.Dof(), []float64{0.5, -0.2})
	sk.SetGenForces(tau)

	q0 := mat.NewVecDense(sk.Dof(), []float64{0.3, -0.4})
	qd0 := mat.NewVecDense(sk.Dof(), []float64{0.1, 0.2})
	sk.SetPositions(q0, true, true, true)
	sk.SetVelocities(qd0, true, true)

	sk.ComputeForwardDynamics()

	M := sk.GetMassMatrix()
	Cg := sk.GetCombinedVector()
	qdd := sk.Accelerations()
	fext := sk.GetExternalForceVector()

	n := sk.Dof()
	var Mqdd mat.VecDense
	Mqdd.MulVec(M, qdd)

	worst := 0.0
	for i := 0; i < n; i++ {
		residual := Mqdd.AtVec(i) + Cg.AtVec(i) - tau.AtVec(i) - fext.AtVec(i)
		if math.Abs(residual) > worst {
			worst = math.Abs(residual)
		}
	}
	if worst > 1e-6 {
		t.Errorf("max |M*q̈ + Cg - tau - f_ext| = %v, want < 1e-6", worst)
	}
}

// TestInverseOfForward checks property 6: running forward dynamics then
// inverse dynamics (no external forces, no damping) reproduces the
// original tau.
func TestInverseOfForward(t *testing.T) {
	sk, _, _ := newPendulumSkeleton(0.001, mgl64.Vec3{0, 0, -9.81})

	tau := mat.NewVecDense(sk.Dof(), []float64{0.7, -1.3})
	sk.SetGenForces(tau)

	q0 := mat.NewVecDense(sk.Dof(), []float64{0.2, 0.5})
	qd0 := mat.NewVecDense(sk.Dof(), []float64{-0.1, 0.3})
	sk.SetPositions(q0, true, true, true)
	sk.SetVelocities(qd0, true, true)

	sk.ComputeForwardDynamics()
	sk.ComputeInverseDynamics(false, false)

	recovered := sk.GetInternalForceVector()
	for i := 0; i < sk.Dof(); i++ {
		if got, want := recovered.AtVec(i), tau.AtVec(i); math.Abs(got-want) > 1e-6 {
			t.Errorf("recovered tau[%d] = %v, want %v", i, got, want)
		}
	}
}

// TestCacheFreshness checks property 8: reading a cached quantity twice
// with no intervening write recomputes once; a write (here, a position
// change) forces a recompute on the next read.
func TestCacheFreshness(t *testing.T) {
	sk, _, _ := newPendulumSkeleton(0.001, mgl64.Vec3{0, 0, -9.81})

	_ = sk.GetMassMatrix()
	after1 := sk.RecomputeCount()
	_ = sk.GetMassMatrix()
	after2 := sk.RecomputeCount()
	if after2 != after1 {
		t.Errorf("RecomputeCount changed from %d to %d on a repeat read with no write", after1, after2)
	}

	q := mat.NewVecDense(sk.Dof(), []float64{0.05, 0.05})
	sk.SetPositions(q, true, true, true)
	_ = sk.GetMassMatrix()
	after3 := sk.RecomputeCount()
	if after3 == after2 {
		t.Errorf("RecomputeCount did not change after a write followed by a read")
	}
}

// TestIdempotentClears checks property 12: clearing external forces zeroes
// the external force vector, and clearing twice in a row is a no-op.
func TestIdempotentClears(t *testing.T) {
	sk, link1, _ := newPendulumSkeleton(0.001, mgl64.Vec3{0, 0, -9.81})

	link1.AddExternalForce(skeldyn.SpatialVector{
		Angular: mgl64.Vec3{1, 2, 3},
		Linear:  mgl64.Vec3{4, 5, 6},
	})
	sk.ClearExternalForces()
	fext := sk.GetExternalForceVector()
	for i := 0; i < sk.Dof(); i++ {
		if fext.AtVec(i) != 0 {
			t.Errorf("f_ext[%d] = %v after clear, want 0", i, fext.AtVec(i))
		}
	}

	sk.ClearExternalForces()
	fext2 := sk.GetExternalForceVector()
	for i := 0; i < sk.Dof(); i++ {
		if fext2.AtVec(i) != 0 {
			t.Errorf("f_ext[%d] = %v after second clear, want 0", i, fext2.AtVec(i))
		}
	}
}
