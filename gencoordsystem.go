package skeldyn

import "gonum.org/v1/gonum/mat"

// GenCoordSystem is a vector view over a flat slice of GenCoords: the
// shared behavior Joint, PointMass, and Skeleton all need for reading and
// writing positions/velocities/accelerations/forces in bulk. Skeleton
// embeds one over its full flattened coordinate sequence and PointMass
// embeds one over its own three coords; Joint gathers its own slice
// directly instead of holding one.
type GenCoordSystem struct {
	coords []*GenCoord
}

func newGenCoordSystem(coords []*GenCoord) GenCoordSystem {
	return GenCoordSystem{coords: coords}
}

// Dof is the number of scalar coordinates in this view.
func (s *GenCoordSystem) Dof() int { return len(s.coords) }

func (s *GenCoordSystem) GenCoordAt(i int) *GenCoord { return s.coords[i] }

func (s *GenCoordSystem) Positions() *mat.VecDense {
	return s.gather(func(g *GenCoord) float64 { return g.Pos() })
}

func (s *GenCoordSystem) Velocities() *mat.VecDense {
	return s.gather(func(g *GenCoord) float64 { return g.Vel() })
}

func (s *GenCoordSystem) Accelerations() *mat.VecDense {
	return s.gather(func(g *GenCoord) float64 { return g.Acc() })
}

func (s *GenCoordSystem) Forces() *mat.VecDense {
	return s.gather(func(g *GenCoord) float64 { return g.Force() })
}

func (s *GenCoordSystem) SetPositions(v mat.Vector)     { s.scatter(v, (*GenCoord).SetPos) }
func (s *GenCoordSystem) SetVelocities(v mat.Vector)    { s.scatter(v, (*GenCoord).SetVel) }
func (s *GenCoordSystem) SetAccelerations(v mat.Vector) { s.scatter(v, (*GenCoord).SetAcc) }
func (s *GenCoordSystem) SetForces(v mat.Vector)        { s.scatter(v, (*GenCoord).SetForce) }

func (s *GenCoordSystem) gather(f func(*GenCoord) float64) *mat.VecDense {
	out := mat.NewVecDense(len(s.coords), nil)
	for i, g := range s.coords {
		out.SetVec(i, f(g))
	}
	return out
}

func (s *GenCoordSystem) scatter(v mat.Vector, f func(*GenCoord, float64)) {
	if v.Len() != len(s.coords) {
		panic("skeldyn: vector length does not match degrees of freedom")
	}
	for i, g := range s.coords {
		f(g, v.AtVec(i))
	}
}
