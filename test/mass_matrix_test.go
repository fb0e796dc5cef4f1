package skeldyn_test

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/go-gl/mathgl/mgl64"
)

const eps = 1e-8

func maxAsymmetry(m *mat.Dense) float64 {
	r, c := m.Dims()
	worst := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d := math.Abs(m.At(i, j) - m.At(j, i))
			if d > worst {
				worst = d
			}
		}
	}
	return worst
}

// TestMassMatrixSymmetric checks property 2 for M.
func TestMassMatrixSymmetric(t *testing.T) {
	sk, _, _ := newPendulumSkeleton(0.001, mgl64.Vec3{0, 0, -9.81})
	M := sk.GetMassMatrix()
	if got := maxAsymmetry(M); got > eps {
		t.Errorf("max |M - M^T| = %v, want < %v", got, eps)
	}
}

// TestInvMassMatrixSymmetric checks property 2 for M^-1.
func TestInvMassMatrixSymmetric(t *testing.T) {
	sk, _, _ := newPendulumSkeleton(0.001, mgl64.Vec3{0, 0, -9.81})
	Minv := sk.GetInvMassMatrix()
	if got := maxAsymmetry(Minv); got > eps {
		t.Errorf("max |M^-1 - (M^-1)^T| = %v, want < %v", got, eps)
	}
}

// TestMassMatrixPositiveDefinite checks property 3: x^T M x > 0 for every
// nonzero x, sampled over a handful of directions including the axes.
func TestMassMatrixPositiveDefinite(t *testing.T) {
	sk, _, _ := newPendulumSkeleton(0.001, mgl64.Vec3{0, 0, -9.81})
	M := sk.GetMassMatrix()
	n, _ := M.Dims()

	dirs := [][]float64{
		{1, 0}, {0, 1}, {1, 1}, {1, -1}, {0.3, -0.7},
	}
	for _, d := range dirs {
		x := mat.NewVecDense(n, d)
		var Mx mat.VecDense
		Mx.MulVec(M, x)
		quad := mat.Dot(x, &Mx)
		if quad <= 0 {
			t.Errorf("x^T M x = %v for x=%v, want > 0", quad, d)
		}
	}
}

// TestMassMatrixInverseConsistency checks property 4 for both the plain
// and damping-augmented mass matrices.
func TestMassMatrixInverseConsistency(t *testing.T) {
	sk, _, _ := newPendulumSkeleton(0.001, mgl64.Vec3{0, 0, -9.81})

	M := sk.GetMassMatrix()
	Minv := sk.GetInvMassMatrix()
	n, _ := M.Dims()
	var prod mat.Dense
	prod.Mul(M, Minv)
	if got := maxDeviationFromIdentity(&prod, n); got > 1e-6 {
		t.Errorf("max |M*M^-1 - I| = %v, want < 1e-6", got)
	}

	Maug := sk.GetAugMassMatrix()
	MaugInv := sk.GetInvAugMassMatrix()
	var prodAug mat.Dense
	prodAug.Mul(Maug, MaugInv)
	if got := maxDeviationFromIdentity(&prodAug, n); got > 1e-6 {
		t.Errorf("max |M~*M~^-1 - I| = %v, want < 1e-6", got)
	}
}

func maxDeviationFromIdentity(m *mat.Dense, n int) float64 {
	worst := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			d := math.Abs(m.At(i, j) - want)
			if d > worst {
				worst = d
			}
		}
	}
	return worst
}

// TestMassMatrixAssemblyIsSinglePath documents property 13
// (short-circuit equivalence) for this implementation: mass matrix
// assembly has exactly one code path (bottom-up composite-inertia
// summation plus ancestor-chain propagation, see DESIGN.md), so there is
// no separate short-circuited variant to compare against. The property is
// trivially satisfied; this test pins the one path's result to be stable
// across repeated calls instead.
func TestMassMatrixAssemblyIsSinglePath(t *testing.T) {
	sk, _, _ := newPendulumSkeleton(0.001, mgl64.Vec3{0, 0, -9.81})
	first := sk.GetMassMatrix()
	n, _ := first.Dims()
	second := sk.GetMassMatrix()
	if got := maxAsymmetry(second); got > eps {
		t.Errorf("second GetMassMatrix call produced an asymmetric result: %v", got)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if first.At(i, j) != second.At(i, j) {
				t.Errorf("mass matrix entry (%d,%d) changed between calls with no state change: %v vs %v",
					i, j, first.At(i, j), second.At(i, j))
			}
		}
	}
}
