package skeldyn

import "github.com/go-gl/mathgl/mgl64"

// FreeJoint gives the child unrestricted 6-DOF motion relative to the
// parent: three rotational coordinates (exponential map, same treatment
// as BallJoint) followed by three translational coordinates. This is the
// joint used to attach a floating base to the world.
type FreeJoint struct{}

// NewFreeJoint returns a 6-dof Joint: wx,wy,wz,x,y,z.
func NewFreeJoint(name string) *Joint {
	return newJoint(name, &FreeJoint{}, []string{"wx", "wy", "wz", "x", "y", "z"})
}

func (FreeJoint) Dof() int { return 6 }

func (FreeJoint) ChildTransform(j *Joint) Transform {
	w := mgl64.Vec3{j.coords[0].Pos(), j.coords[1].Pos(), j.coords[2].Pos()}
	t := mgl64.Vec3{j.coords[3].Pos(), j.coords[4].Pos(), j.coords[5].Pos()}
	return Transform{Rotation: expMapSO3(w), Translation: t}
}

// MotionSubspace is the identity spatial basis: the first three columns
// are pure body-frame angular unit axes, the last three pure body-frame
// linear unit axes.
func (FreeJoint) MotionSubspace(j *Joint) []SpatialVector {
	return []SpatialVector{
		{Angular: mgl64.Vec3{1, 0, 0}},
		{Angular: mgl64.Vec3{0, 1, 0}},
		{Angular: mgl64.Vec3{0, 0, 1}},
		{Linear: mgl64.Vec3{1, 0, 0}},
		{Linear: mgl64.Vec3{0, 1, 0}},
		{Linear: mgl64.Vec3{0, 0, 1}},
	}
}

func (FreeJoint) MotionSubspaceDeriv(j *Joint) []SpatialVector {
	return make([]SpatialVector, 6)
}

// IntegratePositions integrates the rotational block on SO(3) (as
// BallJoint does) and the translational block component-wise.
func (FreeJoint) IntegratePositions(j *Joint, h float64) {
	w := mgl64.Vec3{j.coords[0].Pos(), j.coords[1].Pos(), j.coords[2].Pos()}
	wDot := mgl64.Vec3{j.coords[0].Vel(), j.coords[1].Vel(), j.coords[2].Vel()}
	rOld := expMapSO3(w)
	rDelta := expMapSO3(wDot.Mul(h))
	wNew := logMapSO3(rOld.Mul3(rDelta))
	j.coords[0].SetPos(wNew[0])
	j.coords[1].SetPos(wNew[1])
	j.coords[2].SetPos(wNew[2])

	for _, g := range j.coords[3:] {
		g.SetPos(g.Pos() + h*g.Vel())
	}
}
