package skeldyn

import "github.com/go-gl/mathgl/mgl64"

// PrismaticJoint slides the child along a fixed axis (expressed in the
// joint frame), one degree of freedom.
type PrismaticJoint struct {
	axis mgl64.Vec3 // unit vector
}

// NewPrismaticJoint returns a 1-dof Joint sliding along axis.
func NewPrismaticJoint(name string, axis mgl64.Vec3) *Joint {
	return newJoint(name, &PrismaticJoint{axis: axis.Normalize()}, []string{"q"})
}

func (PrismaticJoint) Dof() int { return 1 }

func (p *PrismaticJoint) ChildTransform(j *Joint) Transform {
	q := j.coords[0].Pos()
	return Transform{Rotation: mgl64.Ident3(), Translation: p.axis.Mul(q)}
}

func (p *PrismaticJoint) MotionSubspace(j *Joint) []SpatialVector {
	return []SpatialVector{{Linear: p.axis}}
}

func (p *PrismaticJoint) MotionSubspaceDeriv(j *Joint) []SpatialVector {
	return []SpatialVector{{}}
}

func (PrismaticJoint) IntegratePositions(j *Joint, h float64) {
	g := j.coords[0]
	g.SetPos(g.Pos() + h*g.Vel())
}
