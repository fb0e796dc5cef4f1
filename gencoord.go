package skeldyn

import "math"

// GenCoord is a single scalar generalized coordinate: position, velocity,
// acceleration, force, and the velocity/force bounds an external
// trajectory optimizer may want to read back. It does not enforce the
// bounds itself (spec.md §1: constraint solving is out of scope).
type GenCoord struct {
	name string

	pos   float64
	vel   float64
	acc   float64
	force float64

	velMin, velMax     float64
	forceMin, forceMax float64

	// indexInSkeleton is this coordinate's slot in the owning Skeleton's
	// flattened GenCoord sequence, assigned at Init and otherwise
	// immutable. -1 means "not yet wired".
	indexInSkeleton int
}

// NewGenCoord returns a GenCoord with unbounded velocity/force limits.
func NewGenCoord(name string) *GenCoord {
	return &GenCoord{
		name:            name,
		velMin:          math.Inf(-1),
		velMax:          math.Inf(1),
		forceMin:        math.Inf(-1),
		forceMax:        math.Inf(1),
		indexInSkeleton: -1,
	}
}

func (g *GenCoord) Name() string { return g.name }

func (g *GenCoord) Pos() float64      { return g.pos }
func (g *GenCoord) SetPos(v float64)  { g.pos = v }
func (g *GenCoord) Vel() float64      { return g.vel }
func (g *GenCoord) SetVel(v float64)  { g.vel = v }
func (g *GenCoord) Acc() float64      { return g.acc }
func (g *GenCoord) SetAcc(v float64)  { g.acc = v }
func (g *GenCoord) Force() float64     { return g.force }
func (g *GenCoord) SetForce(v float64) { g.force = v }

func (g *GenCoord) VelMin() float64         { return g.velMin }
func (g *GenCoord) VelMax() float64         { return g.velMax }
func (g *GenCoord) SetVelBounds(lo, hi float64) { g.velMin, g.velMax = lo, hi }

func (g *GenCoord) ForceMin() float64           { return g.forceMin }
func (g *GenCoord) ForceMax() float64           { return g.forceMax }
func (g *GenCoord) SetForceBounds(lo, hi float64) { g.forceMin, g.forceMax = lo, hi }

// IndexInSkeleton is this coordinate's position in the Skeleton's
// flattened GenCoord array, assigned during Skeleton.Init.
func (g *GenCoord) IndexInSkeleton() int { return g.indexInSkeleton }

func (g *GenCoord) setIndexInSkeleton(i int) { g.indexInSkeleton = i }
