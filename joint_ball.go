package skeldyn

import "github.com/go-gl/mathgl/mgl64"

// BallJoint gives the child full 3-DOF rotation relative to the parent
// (a spherical/ball-and-socket joint), with no translation. Position is
// stored as exponential (axis*angle) coordinates and integrated on SO(3)
// rather than component-wise, so large angular velocities never wrap or
// gimbal-lock the representation (spec.md §3, §9: "Lie-group handling for
// rotational DOFs").
type BallJoint struct{}

// NewBallJoint returns a 3-dof Joint.
func NewBallJoint(name string) *Joint {
	return newJoint(name, &BallJoint{}, []string{"wx", "wy", "wz"})
}

func (BallJoint) Dof() int { return 3 }

func (BallJoint) ChildTransform(j *Joint) Transform {
	w := currentExpCoords(j)
	return Transform{Rotation: expMapSO3(w), Translation: mgl64.Vec3{}}
}

// MotionSubspace for a ball joint is the body-frame coordinate axes: q̇
// is itself the child's angular velocity relative to the parent,
// expressed in the child frame.
func (BallJoint) MotionSubspace(j *Joint) []SpatialVector {
	return []SpatialVector{
		{Angular: mgl64.Vec3{1, 0, 0}},
		{Angular: mgl64.Vec3{0, 1, 0}},
		{Angular: mgl64.Vec3{0, 0, 1}},
	}
}

func (BallJoint) MotionSubspaceDeriv(j *Joint) []SpatialVector {
	return []SpatialVector{{}, {}, {}}
}

// IntegratePositions composes the current rotation with the increment
// Exp(h*q̇) on SO(3), then re-reads the exponential coordinates of the
// result back into the GenCoords.
func (BallJoint) IntegratePositions(j *Joint, h float64) {
	w := currentExpCoords(j)
	wDot := mgl64.Vec3{j.coords[0].Vel(), j.coords[1].Vel(), j.coords[2].Vel()}
	rOld := expMapSO3(w)
	rDelta := expMapSO3(wDot.Mul(h))
	rNew := rOld.Mul3(rDelta)
	wNew := logMapSO3(rNew)
	j.coords[0].SetPos(wNew[0])
	j.coords[1].SetPos(wNew[1])
	j.coords[2].SetPos(wNew[2])
}

func currentExpCoords(j *Joint) mgl64.Vec3 {
	return mgl64.Vec3{j.coords[0].Pos(), j.coords[1].Pos(), j.coords[2].Pos()}
}
