package skeldyn_test

import (
	"math"
	"testing"

	"github.com/corvid-sim/skeldyn"
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// TestWeldJointZeroDof checks that a welded body contributes nothing to
// Dof() and stays rigidly fixed to its parent regardless of the parent's
// own motion.
func TestWeldJointZeroDof(t *testing.T) {
	sk := skeldyn.NewSkeleton("welded")
	base := skeldyn.NewBodyNode("base", 1, mgl64.Vec3{}, mgl64.Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1})
	baseJoint := skeldyn.NewPrismaticJoint("slide", mgl64.Vec3{1, 0, 0})
	sk.AddBodyNode(nil, baseJoint, base)

	attached := skeldyn.NewBodyNode("attached", 1, mgl64.Vec3{}, mgl64.Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1})
	sk.AddBodyNode(base, skeldyn.NewWeldJoint("weld"), attached)

	sk.Init(0.001, mgl64.Vec3{})
	if sk.Dof() != 1 {
		t.Fatalf("Dof() = %d, want 1 (weld joint owns no coordinates)", sk.Dof())
	}

	q := mat.NewVecDense(1, []float64{2.5})
	sk.SetPositions(q, true, true, true)

	com := attached.WorldCOM()
	if math.Abs(com[0]-2.5) > 1e-9 {
		t.Errorf("welded body x = %v, want 2.5 (rigidly follows its parent's slide)", com[0])
	}
}

// TestPrismaticJointTranslatesAlongAxis checks that a prismatic joint's
// position maps linearly onto the child's world translation along its
// axis.
func TestPrismaticJointTranslatesAlongAxis(t *testing.T) {
	sk := skeldyn.NewSkeleton("slider")
	body := skeldyn.NewBodyNode("body", 1, mgl64.Vec3{}, mgl64.Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1})
	sk.AddBodyNode(nil, skeldyn.NewPrismaticJoint("slide", mgl64.Vec3{0, 0, 1}), body)
	sk.Init(0.001, mgl64.Vec3{})

	q := mat.NewVecDense(1, []float64{3.0})
	sk.SetPositions(q, true, true, true)

	com := body.WorldCOM()
	if math.Abs(com[2]-3.0) > 1e-9 {
		t.Errorf("body z = %v, want 3 (prismatic joint along z)", com[2])
	}
}

// TestRevoluteJointRotatesAboutAxis checks that a quarter turn about the y
// axis carries a point initially on the local x axis onto -z, through the
// closed-form ChildTransform set by SetPositions.
func TestRevoluteJointRotatesAboutAxis(t *testing.T) {
	sk := skeldyn.NewSkeleton("hinge")
	body := skeldyn.NewBodyNode("body", 1, mgl64.Vec3{1, 0, 0}, mgl64.Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1})
	sk.AddBodyNode(nil, skeldyn.NewRevoluteJoint("hinge", mgl64.Vec3{0, 1, 0}), body)
	sk.Init(0.001, mgl64.Vec3{})

	q := mat.NewVecDense(1, []float64{math.Pi / 2})
	sk.SetPositions(q, true, true, true)

	com := body.WorldCOM()
	if math.Abs(com[0]) > 1e-6 || math.Abs(com[2]+1) > 1e-6 {
		t.Errorf("body com after pi/2 about y = %v, want ~(0,0,-1)", com)
	}
}

func TestMarkerWorldPosition(t *testing.T) {
	sk := skeldyn.NewSkeleton("marked")
	body := skeldyn.NewBodyNode("body", 1, mgl64.Vec3{}, mgl64.Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1})
	sk.AddBodyNode(nil, skeldyn.NewPrismaticJoint("slide", mgl64.Vec3{1, 0, 0}), body)
	marker := skeldyn.NewMarker("tip", body, mgl64.Vec3{0, 0, 1})
	body.AddMarker(marker)
	sk.Init(0.001, mgl64.Vec3{})

	q := mat.NewVecDense(1, []float64{5})
	sk.SetPositions(q, true, true, true)

	got := sk.GetMarkerByName("tip").WorldPosition()
	want := mgl64.Vec3{5, 0, 1}
	for i := 0; i < 3; i++ {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("marker world position = %v, want %v", got, want)
		}
	}
	if sk.GetMarkerByName("missing") != nil {
		t.Errorf("GetMarkerByName(missing) = non-nil, want nil")
	}
}

func TestUnionFindGrouping(t *testing.T) {
	a := skeldyn.NewSkeleton("a")
	a.AddBodyNode(nil, skeldyn.NewWeldJoint("w"), skeldyn.NewBodyNode("a-root", 1, mgl64.Vec3{}, mgl64.Mat3{}))
	a.Init(0.001, mgl64.Vec3{})

	b := skeldyn.NewSkeleton("b")
	b.AddBodyNode(nil, skeldyn.NewWeldJoint("w"), skeldyn.NewBodyNode("b-root", 1, mgl64.Vec3{}, mgl64.Mat3{}))
	b.Init(0.001, mgl64.Vec3{})

	if a.UnionFindRoot() != a || b.UnionFindRoot() != b {
		t.Fatalf("freshly initialized skeletons should each be their own union-find root")
	}

	skeldyn.UnionFindUnion(a, b)
	if a.UnionFindRoot() != b.UnionFindRoot() {
		t.Errorf("a and b should share a root after UnionFindUnion")
	}
	if a.UnionFindRoot().UnionFindSize() != 2 {
		t.Errorf("group size after union = %d, want 2", a.UnionFindRoot().UnionFindSize())
	}
}
