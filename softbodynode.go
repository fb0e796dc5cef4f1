package skeldyn

import "github.com/go-gl/mathgl/mgl64"

// SoftBodyNode is a BodyNode whose mass is not concentrated at a single
// rigid inertia but distributed over a lattice of PointMasses connected
// by vertex springs (pulling each mass back toward its rest position)
// and edge springs (pulling connected masses toward their rest
// separation), matching DART's soft-body extension (spec.md §2, §3;
// SoftBodyNode supplemented from the reference implementation since the
// distilled spec names the fields but not the force law).
type SoftBodyNode struct {
	*BodyNode

	pointMasses []*PointMass

	vertexStiffness float64 // kv
	edgeStiffness   float64 // ke
	damping         float64
}

// NewSoftBodyNode returns a soft body with no point masses yet; add them
// with AddPointMass before Skeleton.Init.
func NewSoftBodyNode(name string, mass float64, localCOM mgl64.Vec3, inertia mgl64.Mat3, vertexStiffness, edgeStiffness, damping float64) *SoftBodyNode {
	return &SoftBodyNode{
		BodyNode:        NewBodyNode(name, mass, localCOM, inertia),
		vertexStiffness: vertexStiffness,
		edgeStiffness:   edgeStiffness,
		damping:         damping,
	}
}

func (s *SoftBodyNode) AddPointMass(pm *PointMass) int {
	s.pointMasses = append(s.pointMasses, pm)
	return len(s.pointMasses) - 1
}

func (s *SoftBodyNode) NumPointMasses() int          { return len(s.pointMasses) }
func (s *SoftBodyNode) PointMassAt(i int) *PointMass { return s.pointMasses[i] }

func (s *SoftBodyNode) VertexStiffness() float64 { return s.vertexStiffness }
func (s *SoftBodyNode) EdgeStiffness() float64   { return s.edgeStiffness }
func (s *SoftBodyNode) Damping() float64         { return s.damping }

// computeSpringForces clears every point mass's accumulated force and
// refills it with the vertex-spring restoring force (toward rest
// position, with linear damping) plus the edge-spring restoring force
// from each connected neighbour (Hooke's law on the separation distance,
// split evenly onto both ends of the edge).
func (s *SoftBodyNode) computeSpringForces() {
	for _, pm := range s.pointMasses {
		pm.ClearForces()
	}
	for _, pm := range s.pointMasses {
		displacement := pm.LocalPosition().Sub(pm.RestPosition())
		f := displacement.Mul(-s.vertexStiffness).Sub(pm.LocalVelocity().Mul(s.damping))
		pm.ApplyForce(f)
	}
	seen := make(map[[2]int]bool)
	for i, pm := range s.pointMasses {
		for k := 0; k < pm.NumConnectedPointMasses(); k++ {
			j := pm.ConnectedIndex(k)
			edge := [2]int{i, j}
			if i > j {
				edge = [2]int{j, i}
			}
			if seen[edge] {
				continue
			}
			seen[edge] = true

			other := s.pointMasses[j]
			delta := other.LocalPosition().Sub(pm.LocalPosition())
			dist := delta.Len()
			restDist := other.RestPosition().Sub(pm.RestPosition()).Len()
			if dist < 1e-12 {
				continue
			}
			dir := delta.Mul(1 / dist)
			f := dir.Mul(s.edgeStiffness * (dist - restDist))
			pm.ApplyForce(f)
			other.ApplyForce(f.Mul(-1))
		}
	}
}

// integratePointMasses advances every point mass's state by one step of
// semi-implicit Euler using the spring forces just computed, the same
// integration order Joint.IntegratePositions/IntegrateVelocities use.
func (s *SoftBodyNode) integratePointMasses(h float64) {
	s.computeSpringForces()
	for _, pm := range s.pointMasses {
		pm.ComputeAccelerationFromForce()
		pm.IntegrateVelocities(h)
		pm.IntegratePositions(h)
	}
}

// TotalPointMassMass is the sum of every point mass's own mass, kept
// separate from BodyNode.Mass() (the rigid-shell inertia, if any); a
// purely soft body has BodyNode.Mass() == 0 and all its mass here.
func (s *SoftBodyNode) TotalPointMassMass() float64 {
	total := 0.0
	for _, pm := range s.pointMasses {
		total += pm.Mass()
	}
	return total
}
