package skeldyn

import (
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// PointMass is one node of a SoftBodyNode's lattice: a 3-DOF point in the
// parent body's local frame, connected to neighbouring masses by vertex
// and edge springs, with its own constraint-impulse slot for the impulse
// solver (spec.md §3, §4.6).
type PointMass struct {
	GenCoordSystem // 3 coords: x, v, a, f per axis

	coords [3]*GenCoord

	restPosition mgl64.Vec3
	connected    []int // indices of neighbouring PointMasses within the same SoftBodyNode

	mass float64

	constraintImpulse mgl64.Vec3
}

// NewPointMass creates a point mass at restPosition with no connections;
// connections are added with Connect after all masses in the lattice
// exist.
func NewPointMass(restPosition mgl64.Vec3, mass float64) *PointMass {
	coords := [3]*GenCoord{
		NewGenCoord("x"),
		NewGenCoord("y"),
		NewGenCoord("z"),
	}
	pm := &PointMass{
		coords:       coords,
		restPosition: restPosition,
		mass:         mass,
	}
	pm.GenCoordSystem = newGenCoordSystem(coords[:])
	pm.SetPositions(vec3ToVec(restPosition))
	return pm
}

func (pm *PointMass) Mass() float64 { return pm.mass }

func vec3ToVec(v mgl64.Vec3) *mat.VecDense {
	return mat.NewVecDense(3, []float64{v[0], v[1], v[2]})
}

// Connect records a neighbour by its index within the owning
// SoftBodyNode's PointMass slice; edges are undirected and callers are
// expected to call Connect on both ends.
func (pm *PointMass) Connect(neighborIndex int) {
	pm.connected = append(pm.connected, neighborIndex)
}

func (pm *PointMass) NumConnectedPointMasses() int { return len(pm.connected) }
func (pm *PointMass) ConnectedIndex(i int) int     { return pm.connected[i] }

// LocalPosition is the point mass's current position in the parent body's
// frame.
func (pm *PointMass) LocalPosition() mgl64.Vec3 {
	return mgl64.Vec3{pm.coords[0].Pos(), pm.coords[1].Pos(), pm.coords[2].Pos()}
}

func (pm *PointMass) LocalVelocity() mgl64.Vec3 {
	return mgl64.Vec3{pm.coords[0].Vel(), pm.coords[1].Vel(), pm.coords[2].Vel()}
}

func (pm *PointMass) RestPosition() mgl64.Vec3 { return pm.restPosition }

func (pm *PointMass) ConstraintImpulse() mgl64.Vec3 { return pm.constraintImpulse }

func (pm *PointMass) SetConstraintImpulse(imp mgl64.Vec3) { pm.constraintImpulse = imp }

func (pm *PointMass) AddConstraintImpulse(imp mgl64.Vec3) {
	pm.constraintImpulse = pm.constraintImpulse.Add(imp)
}

func (pm *PointMass) ClearConstraintImpulse() { pm.constraintImpulse = mgl64.Vec3{} }

// ApplyForce accumulates f (in the parent body's frame) into this point
// mass's generalized force slots.
func (pm *PointMass) ApplyForce(f mgl64.Vec3) {
	for i := 0; i < 3; i++ {
		pm.coords[i].SetForce(pm.coords[i].Force() + f[i])
	}
}

func (pm *PointMass) ClearForces() {
	for i := 0; i < 3; i++ {
		pm.coords[i].SetForce(0)
	}
}

func (pm *PointMass) Force() mgl64.Vec3 {
	return mgl64.Vec3{pm.coords[0].Force(), pm.coords[1].Force(), pm.coords[2].Force()}
}

// ComputeAccelerationFromForce sets q̈ = f/m per axis: a point mass has no
// coupling beyond the spring forces already folded into Force, so its
// forward dynamics is a plain division by mass.
func (pm *PointMass) ComputeAccelerationFromForce() {
	for i := 0; i < 3; i++ {
		pm.coords[i].SetAcc(pm.coords[i].Force() / pm.mass)
	}
}

// IntegratePositions advances x by the semi-implicit Euler rule
// x += h * v, matching Joint.IntegratePositions's per-DOF convention.
func (pm *PointMass) IntegratePositions(h float64) {
	for i := 0; i < 3; i++ {
		g := pm.coords[i]
		g.SetPos(g.Pos() + h*g.Vel())
	}
}

// IntegrateVelocities advances v by v += h * a.
func (pm *PointMass) IntegrateVelocities(h float64) {
	for i := 0; i < 3; i++ {
		g := pm.coords[i]
		g.SetVel(g.Vel() + h*g.Acc())
	}
}

