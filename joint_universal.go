package skeldyn

import "github.com/go-gl/mathgl/mgl64"

// UniversalJoint composes two revolute axes, two degrees of freedom. The
// joint rotation is Rot(axis0, q0)·Rot(axis1, q1): axis0 is fixed in the
// parent joint frame and axis1 is fixed in the child frame, so axis1
// turns with q0. Unlike Ball, the two angles are integrated component-wise
// rather than through an exponential-map update.
type UniversalJoint struct {
	axis0, axis1 mgl64.Vec3
}

// NewUniversalJoint returns a 2-dof Joint.
func NewUniversalJoint(name string, axis0, axis1 mgl64.Vec3) *Joint {
	return newJoint(name, &UniversalJoint{axis0: axis0.Normalize(), axis1: axis1.Normalize()}, []string{"q0", "q1"})
}

func (UniversalJoint) Dof() int { return 2 }

func (u *UniversalJoint) ChildTransform(j *Joint) Transform {
	q0 := j.coords[0].Pos()
	q1 := j.coords[1].Pos()
	r0 := expMapSO3(u.axis0.Mul(q0))
	r1 := expMapSO3(u.axis1.Mul(q1))
	return Transform{Rotation: r0.Mul3(r1), Translation: mgl64.Vec3{}}
}

func (u *UniversalJoint) MotionSubspace(j *Joint) []SpatialVector {
	q1 := j.coords[1].Pos()
	r1 := expMapSO3(u.axis1.Mul(q1))
	return []SpatialVector{
		{Angular: r1.Transpose().Mul3x1(u.axis0)},
		{Angular: u.axis1},
	}
}

func (u *UniversalJoint) MotionSubspaceDeriv(j *Joint) []SpatialVector {
	s0 := u.MotionSubspace(j)[0].Angular
	return []SpatialVector{{Angular: s0.Cross(u.axis1).Mul(j.coords[1].Vel())}, {}}
}

func (UniversalJoint) IntegratePositions(j *Joint, h float64) {
	for _, g := range j.coords {
		g.SetPos(g.Pos() + h*g.Vel())
	}
}
