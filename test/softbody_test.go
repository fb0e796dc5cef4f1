package skeldyn_test

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/corvid-sim/skeldyn"
	"github.com/go-gl/mathgl/mgl64"
)

// TestSoftBodySpringPullsTowardRest checks that a single displaced point
// mass accelerates back toward its rest position under the vertex spring
// law, with no edge springs involved.
func TestSoftBodySpringPullsTowardRest(t *testing.T) {
	sk := skeldyn.NewSkeleton("soft")
	sb := skeldyn.NewSoftBodyNode("blob", 0, mgl64.Vec3{}, mgl64.Mat3{}, 10.0, 0.0, 0.0)
	pm := skeldyn.NewPointMass(mgl64.Vec3{0, 0, 0}, 1.0)
	sb.AddPointMass(pm)
	sk.AddSoftBodyNode(nil, nil, sb)
	sk.Init(0.001, mgl64.Vec3{})

	sb.PointMassAt(0).SetPositions(mat.NewVecDense(3, []float64{1, 0, 0}))

	for i := 0; i < 500; i++ {
		sk.ComputeForwardDynamics()
	}

	pos := sb.PointMassAt(0).LocalPosition()
	if pos.Len() > 0.5 {
		t.Errorf("point mass position after relaxation = %v, want norm well under the initial 1.0 displacement", pos)
	}
	if math.Abs(pos[1]) > 1e-9 || math.Abs(pos[2]) > 1e-9 {
		t.Errorf("point mass drifted off the x axis: %v", pos)
	}
}

// TestSoftBodyFoldsIntoExternalForceVector checks that a displaced point
// mass's spring force lands in that point mass's own slots of the
// skeleton's external force vector, the way Skeleton.cpp's
// updateExternalForceVector assigns mFext.segment<3>(iStart) per point
// mass instead of folding it onto the parent rigid body.
func TestSoftBodyFoldsIntoExternalForceVector(t *testing.T) {
	sk := skeldyn.NewSkeleton("soft")
	sb := skeldyn.NewSoftBodyNode("blob", 0, mgl64.Vec3{}, mgl64.Mat3{}, 10.0, 0.0, 0.0)
	pm := skeldyn.NewPointMass(mgl64.Vec3{0, 0, 0}, 1.0)
	sb.AddPointMass(pm)
	sk.AddSoftBodyNode(nil, nil, sb)
	sk.Init(0.001, mgl64.Vec3{})

	sb.PointMassAt(0).SetPositions(mat.NewVecDense(3, []float64{1, 0, 0}))

	fext := sk.GetExternalForceVector()

	base := pm.GenCoordAt(0).IndexInSkeleton()
	want := -10.0 // -kv * displacement, zero velocity and no edge springs
	if got := fext.AtVec(base); math.Abs(got-want) > 1e-9 {
		t.Errorf("external force x slot = %v, want %v", got, want)
	}
	if got := fext.AtVec(base + 1); math.Abs(got) > 1e-9 {
		t.Errorf("external force y slot = %v, want 0", got)
	}
	if got := fext.AtVec(base + 2); math.Abs(got) > 1e-9 {
		t.Errorf("external force z slot = %v, want 0", got)
	}
}
