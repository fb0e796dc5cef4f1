package skeldyn

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/go-gl/mathgl/mgl64"
)

// IJoint is the capability contract a joint type variant must satisfy.
// Joint holds the fields common to every variant (name, owned GenCoords,
// damping) and dispatches the kinematics-specific behavior to Class,
// mirroring how the teacher's Shape dispatches to IShape and Constraint
// to IConstraint.
type IJoint interface {
	// Dof is this joint type's fixed number of degrees of freedom, in
	// {0,...,6}.
	Dof() int

	// ChildTransform returns the transform from the child body's frame to
	// the parent body's frame implied by the joint's current positions.
	ChildTransform(j *Joint) Transform

	// MotionSubspace returns the dof spatial basis vectors (expressed in
	// the child body's frame) that q̇ is mapped through to produce the
	// child's relative spatial velocity: v_rel = S * q̇.
	MotionSubspace(j *Joint) []SpatialVector

	// MotionSubspaceDeriv returns d/dt of each MotionSubspace basis
	// vector; zero for every joint type in this module except
	// UniversalJoint, whose first axis seen from the child frame turns
	// with q1.
	MotionSubspaceDeriv(j *Joint) []SpatialVector

	// IntegratePositions advances q by h using this joint's Lie-group
	// update rule (trivial addition for scalar DOFs, exponential-map
	// composition for rotational DOFs).
	IntegratePositions(j *Joint, h float64)
}

// Joint maps a parent body to a child body through a fixed-DOF mechanism.
// It owns a contiguous slice of the Skeleton's GenCoord array starting at
// IndexInSkeleton(0).
type Joint struct {
	Class IJoint

	name string

	parent *BodyNode
	child  *BodyNode

	coords []*GenCoord

	// damping coefficient per DOF, used to build h*D in the augmented
	// mass matrix and the inverse-dynamics damping torque.
	damping []float64

	// transformFromParent/transformFromChild are the joint's fixed
	// offset transforms: where the joint frame sits in each body's local
	// frame. The joint's own q-dependent transform (Class.ChildTransform)
	// is sandwiched between these.
	transformFromParent Transform
	transformFromChild  Transform
}

// newJoint is shared variant-constructor plumbing: it allocates `dof`
// GenCoords named coordNames and wires the embedding Class.
func newJoint(name string, class IJoint, coordNames []string) *Joint {
	coords := make([]*GenCoord, len(coordNames))
	for i, n := range coordNames {
		coords[i] = NewGenCoord(n)
	}
	return &Joint{
		Class:                class,
		name:                 name,
		coords:               coords,
		damping:              make([]float64, len(coordNames)),
		transformFromParent:  IdentityTransform(),
		transformFromChild:   IdentityTransform(),
	}
}

func (j *Joint) Name() string  { return j.name }
func (j *Joint) Dof() int      { return j.Class.Dof() }
func (j *Joint) Parent() *BodyNode { return j.parent }
func (j *Joint) Child() *BodyNode  { return j.child }

func (j *Joint) SetTransformFromParent(t Transform) { j.transformFromParent = t }
func (j *Joint) SetTransformFromChild(t Transform)  { j.transformFromChild = t }

// GenCoordAt returns the i-th GenCoord owned by this joint (0-indexed
// within the joint, not the skeleton).
func (j *Joint) GenCoordAt(i int) *GenCoord { return j.coords[i] }

// IndexInSkeleton returns the skeleton-global index of the i-th local
// GenCoord; valid only after Skeleton.Init.
func (j *Joint) IndexInSkeleton(i int) int { return j.coords[i].IndexInSkeleton() }

func (j *Joint) SetDamping(dofIndex int, coeff float64) { j.damping[dofIndex] = coeff }
func (j *Joint) Damping(dofIndex int) float64           { return j.damping[dofIndex] }

// Positions/Velocities/Accelerations/Forces gather this joint's local
// GenCoords into a dense vector; mirrors GenCoordSystem but Joint does not
// embed one because its GenCoord slice composition varies by variant
// construction order (some variants reorder axes).
func (j *Joint) Positions() *mat.VecDense     { return gatherCoords(j.coords, (*GenCoord).Pos) }
func (j *Joint) Velocities() *mat.VecDense    { return gatherCoords(j.coords, (*GenCoord).Vel) }
func (j *Joint) Accelerations() *mat.VecDense { return gatherCoords(j.coords, (*GenCoord).Acc) }
func (j *Joint) Forces() *mat.VecDense        { return gatherCoords(j.coords, (*GenCoord).Force) }

func gatherCoords(coords []*GenCoord, f func(*GenCoord) float64) *mat.VecDense {
	if len(coords) == 0 {
		// gonum has no zero-length VecDense constructor; a zero-DOF joint
		// gets an empty zero value.
		return &mat.VecDense{}
	}
	out := mat.NewVecDense(len(coords), nil)
	for i, g := range coords {
		out.SetVec(i, f(g))
	}
	return out
}

// LocalTransform is the transform from the child body's frame to the
// parent body's frame, composing the joint's fixed offsets around the
// variant's q-dependent motion.
func (j *Joint) LocalTransform() Transform {
	return j.transformFromChild.Inverse().Compose(j.Class.ChildTransform(j)).Compose(j.transformFromParent)
}

// RelativeSpatialVelocity returns S*q̇ expressed in the child body's
// frame, the velocity the child has relative to the parent purely due to
// this joint's own motion.
func (j *Joint) RelativeSpatialVelocity() SpatialVector {
	S := j.Class.MotionSubspace(j)
	out := ZeroSpatialVector
	for i, s := range S {
		out = out.Add(s.Scale(j.coords[i].Vel()))
	}
	return out
}

// RelativeSpatialVelocityJacobian returns S*vec, for an arbitrary
// dof-length vector (used to apply q̈ or unit basis vectors during mass
// matrix assembly).
func (j *Joint) RelativeSpatialVelocityJacobian(v mat.Vector) SpatialVector {
	S := j.Class.MotionSubspace(j)
	out := ZeroSpatialVector
	for i, s := range S {
		out = out.Add(s.Scale(v.AtVec(i)))
	}
	return out
}

// ProjectForce projects a spatial force (expressed in the child body's
// frame) onto this joint's DOFs: tau = S^T f.
func (j *Joint) ProjectForce(f SpatialVector) *mat.VecDense {
	S := j.Class.MotionSubspace(j)
	out := mat.NewVecDense(len(S), nil)
	for i, s := range S {
		out.SetVec(i, s.Dot(f))
	}
	return out
}

// ProjectInertia projects an articulated inertia through the motion
// subspace: S^T I S, the dof x dof matrix a joint's forward-dynamics
// solve must invert.
func (j *Joint) ProjectInertia(ai ArticulatedInertia) *mat.Dense {
	S := j.Class.MotionSubspace(j)
	n := len(S)
	out := mat.NewDense(n, n, nil)
	applied := make([]SpatialVector, n)
	for i, s := range S {
		applied[i] = ai.Apply(s)
	}
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			out.Set(i, k, S[i].Dot(applied[k]))
		}
	}
	return out
}

// IntegratePositions advances this joint's q by h (semi-implicit Euler in
// joint coordinates, with Lie-group handling for rotational DOFs
// delegated to the variant).
func (j *Joint) IntegratePositions(h float64) { j.Class.IntegratePositions(j, h) }

// IntegrateVelocities advances this joint's q̇ by h (q̇ += h*q̈), identical
// across variants since velocity lives in a vector space (the tangent
// space) regardless of how position composes.
func (j *Joint) IntegrateVelocities(h float64) {
	for _, g := range j.coords {
		g.SetVel(g.Vel() + h*g.Acc())
	}
}

// PotentialEnergy is the joint's own elastic potential energy (e.g. a
// rotational/prismatic spring); zero unless a variant overrides it by
// implementing the optional springEnergy hook.
func (j *Joint) PotentialEnergy() float64 {
	if se, ok := j.Class.(interface{ SpringEnergy(*Joint) float64 }); ok {
		return se.SpringEnergy(j)
	}
	return 0
}

// expMapSO3 is the Lie-group exponential map from an angular-velocity-like
// 3-vector (axis * angle) to a rotation, via Rodrigues' formula, used by
// Ball/Free joints to integrate orientation without coordinate
// singularities:
//
//	R = I + sin(theta) K + (1 - cos(theta)) K^2,  K = skew(axis)
func expMapSO3(w mgl64.Vec3) mgl64.Mat3 {
	theta := w.Len()
	if theta < 1e-12 {
		return mgl64.Ident3()
	}
	axis := w.Mul(1 / theta)
	k := skewMat3(axis)
	return mgl64.Ident3().Add(k.Mul(math.Sin(theta))).Add(k.Mul3(k).Mul(1 - math.Cos(theta)))
}

// logMapSO3 is the inverse of expMapSO3: it recovers the axis*angle
// exponential coordinates of a rotation matrix, used after composing two
// rotations so a Lie-group joint's GenCoords stay in the same
// representation they started in.
func logMapSO3(r mgl64.Mat3) mgl64.Vec3 {
	trace := r.At(0, 0) + r.At(1, 1) + r.At(2, 2)
	cosTheta := clampUnit((trace - 1) / 2)
	theta := math.Acos(cosTheta)
	if theta < 1e-12 {
		return mgl64.Vec3{}
	}
	v := mgl64.Vec3{
		r.At(2, 1) - r.At(1, 2),
		r.At(0, 2) - r.At(2, 0),
		r.At(1, 0) - r.At(0, 1),
	}
	return v.Mul(theta / (2 * math.Sin(theta)))
}

func clampUnit(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
