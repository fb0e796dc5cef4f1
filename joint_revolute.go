package skeldyn

import "github.com/go-gl/mathgl/mgl64"

// RevoluteJoint rotates the child about a fixed axis (expressed in the
// joint frame), one degree of freedom.
type RevoluteJoint struct {
	axis mgl64.Vec3 // unit vector
}

// NewRevoluteJoint returns a 1-dof Joint rotating about axis.
func NewRevoluteJoint(name string, axis mgl64.Vec3) *Joint {
	return newJoint(name, &RevoluteJoint{axis: axis.Normalize()}, []string{"q"})
}

func (RevoluteJoint) Dof() int { return 1 }

func (r *RevoluteJoint) ChildTransform(j *Joint) Transform {
	q := j.coords[0].Pos()
	return Transform{Rotation: expMapSO3(r.axis.Mul(q)), Translation: mgl64.Vec3{}}
}

func (r *RevoluteJoint) MotionSubspace(j *Joint) []SpatialVector {
	return []SpatialVector{{Angular: r.axis}}
}

func (r *RevoluteJoint) MotionSubspaceDeriv(j *Joint) []SpatialVector {
	return []SpatialVector{{}}
}

func (RevoluteJoint) IntegratePositions(j *Joint, h float64) {
	g := j.coords[0]
	g.SetPos(g.Pos() + h*g.Vel())
}
