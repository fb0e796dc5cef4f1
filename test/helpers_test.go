package skeldyn_test

import (
	"math"

	"github.com/corvid-sim/skeldyn"
	"github.com/go-gl/mathgl/mgl64"
)

func diagInertia(ixx, iyy, izz float64) mgl64.Mat3 {
	return mgl64.Mat3{
		ixx, 0, 0,
		0, iyy, 0,
		0, 0, izz,
	}
}

// newFreeFallSkeleton builds a single rigid body hanging off a 6-dof free
// joint, unattached to any parent: a floating base with nothing else in the
// tree, the rig TestFreeFallDrop uses for testable property 9.
func newFreeFallSkeleton(h float64, gravity mgl64.Vec3) *skeldyn.Skeleton {
	sk := skeldyn.NewSkeleton("freefall")
	body := skeldyn.NewBodyNode("base", 1.0, mgl64.Vec3{}, diagInertia(0.1, 0.1, 0.1))
	joint := skeldyn.NewFreeJoint("root")
	sk.AddBodyNode(nil, joint, body)
	sk.Init(h, gravity)
	return sk
}

// newPendulumSkeleton builds a two-link pendulum: a fixed (zero-dof) base
// and two unit-mass, 1m rods connected by revolute joints about the y axis,
// each rod's origin coinciding with its proximal joint and its center of
// mass offset half the rod length along local x.
func newPendulumSkeleton(h float64, gravity mgl64.Vec3) (*skeldyn.Skeleton, *skeldyn.BodyNode, *skeldyn.BodyNode) {
	sk := skeldyn.NewSkeleton("pendulum")

	base := skeldyn.NewBodyNode("base", 0, mgl64.Vec3{}, mgl64.Mat3{})
	sk.AddBodyNode(nil, nil, base)

	const length = 1.0
	rodInertia := diagInertia(1e-4, 1.0/12.0, 1.0/12.0)

	link1 := skeldyn.NewBodyNode("link1", 1.0, mgl64.Vec3{length / 2, 0, 0}, rodInertia)
	j1 := skeldyn.NewRevoluteJoint("j1", mgl64.Vec3{0, 1, 0})
	sk.AddBodyNode(base, j1, link1)

	link2 := skeldyn.NewBodyNode("link2", 1.0, mgl64.Vec3{length / 2, 0, 0}, rodInertia)
	j2 := skeldyn.NewRevoluteJoint("j2", mgl64.Vec3{0, 1, 0})
	j2.SetTransformFromParent(skeldyn.Transform{
		Rotation:    mgl64.Ident3(),
		Translation: mgl64.Vec3{length, 0, 0},
	})
	sk.AddBodyNode(link1, j2, link2)

	sk.Init(h, gravity)
	return sk, link1, link2
}

func nearlyEqual(a, b, eps float64) bool { return math.Abs(a-b) < eps }
