package skeldyn

import (
	"log"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// Skeleton owns a tree of BodyNodes (some of them SoftBodyNodes) connected
// by Joints, the flattened GenCoord sequence that spans every joint and
// point mass, and the cached mass matrix / bias-force / external-force
// quantities every dynamics query reads. It is the top-level object a
// caller builds and drives (spec.md §4).
type Skeleton struct {
	GenCoordSystem

	name string

	bodies     []*BodyNode     // BFS order, root first
	softBodies []*SoftBodyNode // subset of bodies, in the same relative order
	coords     []*GenCoord     // flattened, index == GenCoord.IndexInSkeleton()

	initialized bool
	timeStep    float64
	gravity     mgl64.Vec3
	totalMass   float64
	mobile      bool

	selfCollisionCheck    bool
	adjacentBodyCheck     bool

	massMatrix    *mat.Dense
	augMassMatrix *mat.Dense
	invMassMatrix *mat.Dense
	invAugMassMatrix *mat.Dense

	coriolisVec  *mat.VecDense
	gravityVec   *mat.VecDense
	combinedVec  *mat.VecDense
	extForceVec  *mat.VecDense
	constraintForceVec *mat.VecDense

	massMatrixDirty       bool
	augMassMatrixDirty    bool
	invMassMatrixDirty    bool
	invAugMassMatrixDirty bool
	coriolisDirty         bool
	gravityDirty          bool
	combinedDirty         bool
	extForceDirty         bool

	// artInertiaDirty/artInertiaAugmented track whether every body's
	// cached articulated inertia (BodyNode.artInertia/jointProjInv/jointIS)
	// reflects the augmented (h*D folded in) or plain variant most
	// recently requested; ComputeForwardDynamics and getInv*MassMatrix
	// each ask for the variant they need and pay the recompute only when
	// the cache disagrees.
	artInertiaDirty     bool
	artInertiaAugmented bool

	impulseApplied bool

	uf unionFind

	// recomputeCount increments once per lazy recompute of any cached
	// dynamics quantity, so tests can observe that a getter served a
	// cached value instead of recomputing (spec.md §8 property 8).
	recomputeCount int
}

// NewSkeleton returns an empty, uninitialized skeleton. Add bodies with
// AddBodyNode/AddSoftBodyNode, then call Init once the tree is complete.
func NewSkeleton(name string) *Skeleton {
	return &Skeleton{
		name:               name,
		timeStep:           0.001,
		mobile:             true,
		selfCollisionCheck: false,
		adjacentBodyCheck:  true,
	}
}

func (sk *Skeleton) Name() string { return sk.name }

// addBody wires child under parent (or registers it as the root, if parent
// is nil) and appends it to the insertion-order body list; BFS order is
// reconstructed later in Init.
func (sk *Skeleton) addBody(parent *BodyNode, joint *Joint, child *BodyNode) {
	if sk.initialized {
		panic("skeldyn: cannot add a body node after Init")
	}
	if parent == nil {
		if len(sk.bodies) > 0 {
			panic("skeldyn: only the first body added may be the root")
		}
		child.parentJoint = joint
		if joint != nil {
			joint.child = child
		}
	} else {
		parent.attachChild(joint, child)
	}
	sk.bodies = append(sk.bodies, child)
	sk.uf.root = sk
}

// AddBodyNode attaches child to parent through joint. parent must already
// be part of this skeleton, or nil to make child the root.
func (sk *Skeleton) AddBodyNode(parent *BodyNode, joint *Joint, child *BodyNode) {
	sk.addBody(parent, joint, child)
}

// AddSoftBodyNode attaches a soft body the same way AddBodyNode does, and
// additionally records it for the point-mass integration/spring-folding
// passes Init and ComputeForwardDynamics drive.
func (sk *Skeleton) AddSoftBodyNode(parent *BodyNode, joint *Joint, child *SoftBodyNode) {
	sk.addBody(parent, joint, child.BodyNode)
	sk.softBodies = append(sk.softBodies, child)
}

// Init finalizes the tree: it reconstructs canonical BFS order (parent
// always before every descendant), assigns body and GenCoord indices,
// flattens every joint's and point mass's coordinates into the skeleton's
// own GenCoordSystem, records each body's dependent-coordinate chain,
// totals the mass, sizes every cache, and runs one initial forward
// kinematics pass. h is the default integration time step; gravity is a
// constant world-frame vector (spec.md §4.1, §9: BFS reconstruction is
// explicit rather than trusted from insertion order).
func (sk *Skeleton) Init(h float64, gravity mgl64.Vec3) {
	if sk.initialized {
		panic("skeldyn: Init called twice")
	}
	if len(sk.bodies) == 0 {
		panic("skeldyn: cannot Init an empty skeleton")
	}
	if h <= 0 {
		panic("skeldyn: time step must be positive")
	}
	sk.timeStep = h
	sk.gravity = gravity

	root := sk.bodies[0]
	var ordered []*BodyNode
	queue := []*BodyNode{root}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		ordered = append(ordered, b)
		queue = append(queue, b.children...)
	}
	sk.bodies = ordered

	var coords []*GenCoord
	for i, b := range sk.bodies {
		b.setIndex(i)
		if j := b.parentJoint; j != nil {
			for d := 0; d < j.Dof(); d++ {
				g := j.GenCoordAt(d)
				g.setIndexInSkeleton(len(coords))
				coords = append(coords, g)
			}
		}
	}
	for _, sb := range sk.softBodies {
		for i := 0; i < sb.NumPointMasses(); i++ {
			pm := sb.PointMassAt(i)
			for d := 0; d < 3; d++ {
				g := pm.GenCoordAt(d)
				g.setIndexInSkeleton(len(coords))
				coords = append(coords, g)
			}
		}
	}
	sk.coords = coords
	sk.GenCoordSystem = newGenCoordSystem(coords)

	for _, b := range sk.bodies {
		b.setDependentGenCoords()
	}

	sk.totalMass = 0
	for _, b := range sk.bodies {
		sk.totalMass += b.Mass()
	}
	for _, sb := range sk.softBodies {
		sk.totalMass += sb.TotalPointMassMass()
	}

	n := sk.Dof()
	if n == 0 {
		// gonum rejects zero-sized constructors, so a skeleton without
		// degrees of freedom keeps empty zero values as its caches.
		sk.massMatrix, sk.augMassMatrix = &mat.Dense{}, &mat.Dense{}
		sk.invMassMatrix, sk.invAugMassMatrix = &mat.Dense{}, &mat.Dense{}
		sk.coriolisVec, sk.gravityVec, sk.combinedVec = &mat.VecDense{}, &mat.VecDense{}, &mat.VecDense{}
		sk.extForceVec, sk.constraintForceVec = &mat.VecDense{}, &mat.VecDense{}
		sk.uf = newUnionFind(sk)
		sk.initialized = true
		sk.ComputeForwardKinematics(true, true, true)
		return
	}
	sk.massMatrix = mat.NewDense(n, n, nil)
	sk.augMassMatrix = mat.NewDense(n, n, nil)
	sk.invMassMatrix = mat.NewDense(n, n, nil)
	sk.invAugMassMatrix = mat.NewDense(n, n, nil)
	sk.coriolisVec = mat.NewVecDense(n, nil)
	sk.gravityVec = mat.NewVecDense(n, nil)
	sk.combinedVec = mat.NewVecDense(n, nil)
	sk.extForceVec = mat.NewVecDense(n, nil)
	sk.constraintForceVec = mat.NewVecDense(n, nil)

	sk.uf = newUnionFind(sk)
	sk.initialized = true

	sk.ComputeForwardKinematics(true, true, true)
}

// --- state I/O (spec.md §4.1) ---

// SetPositions writes q and re-runs forward kinematics per the requested
// flags.
func (sk *Skeleton) SetPositions(q mat.Vector, updateTransforms, updateVelocities, updateAccelerations bool) {
	sk.GenCoordSystem.SetPositions(q)
	sk.ComputeForwardKinematics(updateTransforms, updateVelocities, updateAccelerations)
}

// SetVelocities writes q̇ and re-runs the velocity/acceleration stages of
// forward kinematics per the requested flags; transforms are left alone
// since they don't depend on q̇.
func (sk *Skeleton) SetVelocities(qdot mat.Vector, updateVelocities, updateAccelerations bool) {
	sk.GenCoordSystem.SetVelocities(qdot)
	sk.ComputeForwardKinematics(false, updateVelocities, updateAccelerations)
}

// SetAccelerations writes q̈. Unlike SetPositions/SetVelocities this does
// not invalidate any cached dynamics quantity: none of M, M̃, C, g, Cg, or
// the external/constraint force vectors depend on q̈.
func (sk *Skeleton) SetAccelerations(qddot mat.Vector, updateAccelerations bool) {
	sk.GenCoordSystem.SetAccelerations(qddot)
	if updateAccelerations {
		for _, b := range sk.bodies {
			b.updateAcceleration()
		}
	}
}

// SetState writes the combined [q; q̇] state vector and refreshes
// everything forward kinematics depends on.
func (sk *Skeleton) SetState(state mat.Vector) {
	n := sk.Dof()
	if state.Len() != 2*n {
		panic("skeldyn: state vector length must be 2*dof")
	}
	q := mat.NewVecDense(n, nil)
	qdot := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		q.SetVec(i, state.AtVec(i))
		qdot.SetVec(i, state.AtVec(n+i))
	}
	sk.GenCoordSystem.SetPositions(q)
	sk.GenCoordSystem.SetVelocities(qdot)
	sk.ComputeForwardKinematics(true, true, true)
}

// GetState returns the combined [q; q̇] state vector.
func (sk *Skeleton) GetState() *mat.VecDense {
	n := sk.Dof()
	out := mat.NewVecDense(2*n, nil)
	q := sk.Positions()
	qdot := sk.Velocities()
	for i := 0; i < n; i++ {
		out.SetVec(i, q.AtVec(i))
		out.SetVec(n+i, qdot.AtVec(i))
	}
	return out
}

// SetGenForces writes τ directly; it is an input, not a derived quantity,
// so nothing is invalidated.
func (sk *Skeleton) SetGenForces(tau mat.Vector) {
	sk.GenCoordSystem.SetForces(tau)
}

// SetConfigSegs writes a subset of q by skeleton-global GenCoord index and
// re-runs forward kinematics per the requested flags.
func (sk *Skeleton) SetConfigSegs(ids []int, values []float64, updateTransforms, updateVelocities, updateAccelerations bool) {
	if len(ids) != len(values) {
		panic("skeldyn: ids and values length mismatch")
	}
	for i, id := range ids {
		sk.coords[id].SetPos(values[i])
	}
	sk.ComputeForwardKinematics(updateTransforms, updateVelocities, updateAccelerations)
}

// GetConfigSegs reads a subset of q by skeleton-global GenCoord index.
func (sk *Skeleton) GetConfigSegs(ids []int) []float64 {
	out := make([]float64, len(ids))
	for i, id := range ids {
		out[i] = sk.coords[id].Pos()
	}
	return out
}

// IntegrateConfigs advances q for every joint and point mass by one
// semi-implicit Euler step of size h, using the currently stored q̇. It does
// not itself refresh forward kinematics; callers combine it with
// ComputeForwardKinematics as their integration loop requires.
func (sk *Skeleton) IntegrateConfigs(h float64) {
	for _, b := range sk.bodies {
		if j := b.parentJoint; j != nil {
			j.IntegratePositions(h)
		}
	}
	for _, sb := range sk.softBodies {
		for i := 0; i < sb.NumPointMasses(); i++ {
			sb.PointMassAt(i).IntegratePositions(h)
		}
	}
}

// IntegrateGenVels advances q̇ for every joint and point mass by one
// semi-implicit Euler step of size h, using the currently stored q̈.
func (sk *Skeleton) IntegrateGenVels(h float64) {
	for _, b := range sk.bodies {
		if j := b.parentJoint; j != nil {
			j.IntegrateVelocities(h)
		}
	}
	for _, sb := range sk.softBodies {
		for i := 0; i < sb.NumPointMasses(); i++ {
			sb.PointMassAt(i).IntegrateVelocities(h)
		}
	}
}

func (sk *Skeleton) ClearExternalForces() {
	for _, b := range sk.bodies {
		b.ClearExternalForce()
	}
	sk.extForceDirty = true
}

// ClearInternalForces zeroes every joint's τ and every point mass's
// accumulated spring force; getInternalForceVector is simply the current
// τ, so there is nothing to mark dirty here.
func (sk *Skeleton) ClearInternalForces() {
	for _, c := range sk.coords {
		if c.IndexInSkeleton() >= 0 {
			c.SetForce(0)
		}
	}
}

func (sk *Skeleton) ClearConstraintImpulses() {
	for _, b := range sk.bodies {
		b.ClearConstraintImpulse()
	}
	sk.constraintForceVec = mat.NewVecDense(sk.Dof(), nil)
}

// GetInternalForceVector returns the currently stored τ (spec.md's synonym
// for GenCoordSystem.Forces at the skeleton level).
func (sk *Skeleton) GetInternalForceVector() *mat.VecDense {
	return sk.Forces()
}

// --- forward kinematics (spec.md §4.2) ---

// ComputeForwardKinematics updates world transforms, spatial velocities
// (and their velocity-dependent partial accelerations), and spatial
// accelerations, each conditional on its flag, walking the tree root to
// leaf. Every cached dynamics quantity (mass matrices, bias-force vectors,
// articulated inertia, per-body Jacobians) is marked dirty regardless of
// which flags were set, since a position or velocity change invalidates
// all of them.
func (sk *Skeleton) ComputeForwardKinematics(updateTransforms, updateVelocities, updateAccelerations bool) {
	if updateTransforms {
		for _, b := range sk.bodies {
			b.updateTransform()
		}
	}
	if updateVelocities {
		for _, b := range sk.bodies {
			b.updateVelocity()
			b.updatePartialAcceleration()
		}
	}
	if updateAccelerations {
		for _, b := range sk.bodies {
			b.updateAcceleration()
		}
	}
	sk.markDynamicsDirty()
}

func (sk *Skeleton) markDynamicsDirty() {
	sk.massMatrixDirty = true
	sk.augMassMatrixDirty = true
	sk.invMassMatrixDirty = true
	sk.invAugMassMatrixDirty = true
	sk.coriolisDirty = true
	sk.gravityDirty = true
	sk.combinedDirty = true
	sk.extForceDirty = true
	sk.artInertiaDirty = true
	for _, b := range sk.bodies {
		b.jacobianDirty = true
	}
}

// --- mass matrix / inverse mass matrix (spec.md §4.3) ---

func (sk *Skeleton) updateCompositeInertias() {
	for i := len(sk.bodies) - 1; i >= 0; i-- {
		sk.bodies[i].updateCompositeInertia()
	}
}

func (sk *Skeleton) updateMassMatrix() {
	sk.updateCompositeInertias()
	for _, b := range sk.bodies {
		b.aggregateMassMatrix(sk.massMatrix, 0, false)
	}
	sk.massMatrixDirty = false
	sk.recomputeCount++
}

// GetMassMatrix returns M, recomputing it via the composite rigid body
// algorithm only if a prior state change invalidated the cache.
func (sk *Skeleton) GetMassMatrix() *mat.Dense {
	if sk.massMatrixDirty {
		sk.updateMassMatrix()
	}
	return sk.massMatrix
}

func (sk *Skeleton) updateAugMassMatrix() {
	sk.updateCompositeInertias()
	for _, b := range sk.bodies {
		b.aggregateMassMatrix(sk.augMassMatrix, sk.timeStep, true)
	}
	sk.augMassMatrixDirty = false
	sk.recomputeCount++
}

// GetAugMassMatrix returns M̃ = M + h*diag(D), the augmented mass matrix
// joint damping is folded into.
func (sk *Skeleton) GetAugMassMatrix() *mat.Dense {
	if sk.augMassMatrixDirty {
		sk.updateAugMassMatrix()
	}
	return sk.augMassMatrix
}

// ensureArtInertiaFresh refreshes every body's articulated inertia and
// per-joint projection cache for the requested variant (plain or
// h*D-augmented), skipping the recompute if the cache already reflects it.
func (sk *Skeleton) ensureArtInertiaFresh(augmented bool) {
	if !sk.artInertiaDirty && sk.artInertiaAugmented == augmented {
		return
	}
	for i := len(sk.bodies) - 1; i >= 0; i-- {
		sk.bodies[i].updateArtInertia(sk.timeStep, augmented)
	}
	sk.artInertiaDirty = false
	sk.artInertiaAugmented = augmented
	sk.recomputeCount++
}

// invertMassMatrixColumns fills dst (n x n) column by column with the ABA
// column-forming primitive, reusing whichever articulated-inertia variant
// is already fresh.
func (sk *Skeleton) invertMassMatrixColumns(dst *mat.Dense) {
	n := sk.Dof()
	accel := make([]SpatialVector, len(sk.bodies))
	for col := 0; col < n; col++ {
		tau := mat.NewVecDense(n, nil)
		tau.SetVec(col, 1)
		for i, b := range sk.bodies {
			var parentAccel SpatialVector
			if b.parent != nil {
				parentAccel = accel[b.parent.Index()]
			}
			accel[i] = b.aggregateInvMassMatrixColumn(parentAccel, tau, col, dst)
		}
	}
}

// GetInvMassMatrix returns M^-1, formed one unit-force column at a time
// from the (non-augmented) articulated inertia cache.
func (sk *Skeleton) GetInvMassMatrix() *mat.Dense {
	if sk.invMassMatrixDirty {
		sk.ensureArtInertiaFresh(false)
		sk.invertMassMatrixColumns(sk.invMassMatrix)
		sk.invMassMatrixDirty = false
		sk.recomputeCount++
	}
	return sk.invMassMatrix
}

// GetInvAugMassMatrix returns M̃^-1, the inverse of the damping-augmented
// mass matrix.
func (sk *Skeleton) GetInvAugMassMatrix() *mat.Dense {
	if sk.invAugMassMatrixDirty {
		sk.ensureArtInertiaFresh(true)
		sk.invertMassMatrixColumns(sk.invAugMassMatrix)
		sk.invAugMassMatrixDirty = false
		sk.recomputeCount++
	}
	return sk.invAugMassMatrix
}

// --- Coriolis/gravity/combined force vectors, shared RNEA machinery
// (spec.md §4.5 note; reuses netSpatialForce/projectToJoint with velocity
// and/or q̈ selectively zeroed rather than three separate recursions) ---

func (sk *Skeleton) scatterJointVector(dst *mat.VecDense, tau *mat.VecDense, b *BodyNode) {
	j := b.ParentJoint()
	if j == nil {
		return
	}
	base := j.IndexInSkeleton(0)
	for d := 0; d < j.Dof(); d++ {
		dst.SetVec(base+d, tau.AtVec(d))
	}
}

func (sk *Skeleton) runRNEAPass(dst *mat.VecDense, gravity mgl64.Vec3, withExt, withDamp bool) {
	for i := len(sk.bodies) - 1; i >= 0; i-- {
		b := sk.bodies[i]
		f := b.netSpatialForce(gravity, withExt)
		if tau := b.projectToJoint(f, withDamp); tau != nil {
			sk.scatterJointVector(dst, tau, b)
		}
	}
}

func (sk *Skeleton) updateCoriolisForceVector() {
	guard := zeroAccelerations(&sk.GenCoordSystem)
	for _, b := range sk.bodies {
		b.updateAcceleration()
	}
	sk.runRNEAPass(sk.coriolisVec, mgl64.Vec3{}, false, false)
	guard.Release()
	for _, b := range sk.bodies {
		b.updateAcceleration()
	}
	sk.coriolisDirty = false
	sk.recomputeCount++
}

// GetCoriolisForceVector returns C(q,q̇)q̇, derived from the inverse
// dynamics recursion with gravity and q̈ zeroed.
func (sk *Skeleton) GetCoriolisForceVector() *mat.VecDense {
	if sk.coriolisDirty {
		sk.updateCoriolisForceVector()
	}
	return sk.coriolisVec
}

func (sk *Skeleton) updateGravityForceVector() {
	aGuard := zeroAccelerations(&sk.GenCoordSystem)
	vGuard := zeroVelocities(&sk.GenCoordSystem)
	for _, b := range sk.bodies {
		b.updateVelocity()
		b.updatePartialAcceleration()
		b.updateAcceleration()
	}
	sk.runRNEAPass(sk.gravityVec, sk.gravity, false, false)
	vGuard.Release()
	aGuard.Release()
	for _, b := range sk.bodies {
		b.updateVelocity()
		b.updatePartialAcceleration()
		b.updateAcceleration()
	}
	sk.gravityDirty = false
	sk.recomputeCount++
}

// GetGravityForceVector returns g(q), derived from the inverse dynamics
// recursion with q̇ and q̈ zeroed.
func (sk *Skeleton) GetGravityForceVector() *mat.VecDense {
	if sk.gravityDirty {
		sk.updateGravityForceVector()
	}
	return sk.gravityVec
}

func (sk *Skeleton) updateCombinedVector() {
	guard := zeroAccelerations(&sk.GenCoordSystem)
	for _, b := range sk.bodies {
		b.updateAcceleration()
	}
	sk.runRNEAPass(sk.combinedVec, sk.gravity, false, false)
	guard.Release()
	for _, b := range sk.bodies {
		b.updateAcceleration()
	}
	sk.combinedDirty = false
	sk.recomputeCount++
}

// GetCombinedVector returns Cg(q,q̇) = C(q,q̇)q̇ + g(q), derived from the
// inverse dynamics recursion with q̈ zeroed.
func (sk *Skeleton) GetCombinedVector() *mat.VecDense {
	if sk.combinedDirty {
		sk.updateCombinedVector()
	}
	return sk.combinedVec
}

// --- external/constraint force vectors ---

// updateExternalForceVector aggregates every rigid body's applied wrench
// up the tree into its joint's generalized force slots, then fills each
// soft body's point-mass slots directly with that point mass's own
// vertex/edge spring force (its 3 GenCoords are already Cartesian in the
// owning body's local frame, so no joint projection is needed), mirroring
// Skeleton.cpp:773-807's mFext segment assignment.
func (sk *Skeleton) updateExternalForceVector() {
	sk.extForceVec.Zero()
	for i := len(sk.bodies) - 1; i >= 0; i-- {
		b := sk.bodies[i]
		f := b.aggregateExternalForce()
		if tau := b.projectToJoint(f, false); tau != nil {
			sk.scatterJointVector(sk.extForceVec, tau, b)
		}
	}
	for _, sb := range sk.softBodies {
		sb.computeSpringForces()
		for i := 0; i < sb.NumPointMasses(); i++ {
			pm := sb.PointMassAt(i)
			f := pm.Force()
			for d := 0; d < 3; d++ {
				sk.extForceVec.SetVec(pm.GenCoordAt(d).IndexInSkeleton(), f[d])
			}
		}
	}
	sk.extForceDirty = false
	sk.recomputeCount++
}

func (sk *Skeleton) GetExternalForceVector() *mat.VecDense {
	if sk.extForceDirty {
		sk.updateExternalForceVector()
	}
	return sk.extForceVec
}

// GetConstraintForceVector returns the joint-space projection of every
// body's currently stored constraint impulse, freshly aggregated each call
// (an external constraint solver is expected to set constraint impulses
// and read this back every step, so there is no benefit in caching it).
func (sk *Skeleton) GetConstraintForceVector() *mat.VecDense {
	for i := len(sk.bodies) - 1; i >= 0; i-- {
		b := sk.bodies[i]
		f := b.aggregateConstraintForce()
		if tau := b.projectToJoint(f, false); tau != nil {
			sk.scatterJointVector(sk.constraintForceVec, tau, b)
		}
	}
	sk.recomputeCount++
	return sk.constraintForceVec
}

// SetConstraintForceVector lets an external constraint solver write back a
// joint-space constraint force directly into τ's constraint slot, by
// folding it additively into every joint's stored generalized force.
func (sk *Skeleton) SetConstraintForceVector(v mat.Vector) {
	if v.Len() != sk.Dof() {
		panic("skeldyn: vector length does not match degrees of freedom")
	}
	for i, c := range sk.coords {
		c.SetForce(c.Force() + v.AtVec(i))
	}
}

// --- forward dynamics (spec.md §4.4) ---

// ComputeForwardDynamics runs the two-pass articulated-body algorithm:
// Part A refreshes transforms, velocities, and partial accelerations
// (accelerations are not yet known); Part B computes the damping-augmented
// articulated inertia and bias force leaf to root, then solves q̈ and
// propagates spatial acceleration and transmitted force root to leaf.
// Joint damping is folded into the augmented articulated inertia rather
// than added as an explicit bias-force term, so no separate damping-force
// vector is needed.
func (sk *Skeleton) ComputeForwardDynamics() {
	sk.ComputeForwardKinematics(true, true, false)

	sk.ensureArtInertiaFresh(true)
	for i := len(sk.bodies) - 1; i >= 0; i-- {
		sk.bodies[i].updateBiasForce(sk.gravity)
	}
	for _, b := range sk.bodies {
		b.updateJointAndBodyAcceleration()
	}
	for _, b := range sk.bodies {
		b.updateTransmittedForce()
	}
	for _, sb := range sk.softBodies {
		sb.integratePointMasses(sk.timeStep)
	}
}

// --- inverse dynamics (RNEA, spec.md §4.5) ---

// ComputeInverseDynamics runs the RNEA backward pass and writes the
// resulting τ into every joint's GenCoord force slots. withExternalForces
// includes each body's applied external wrench in the force balance;
// withDamping adds each joint's damping torque. A skeleton with zero total
// DOF is a no-op.
func (sk *Skeleton) ComputeInverseDynamics(withExternalForces, withDamping bool) {
	if sk.Dof() == 0 {
		return
	}
	sk.ComputeForwardKinematics(true, true, true)
	for i := len(sk.bodies) - 1; i >= 0; i-- {
		b := sk.bodies[i]
		f := b.netSpatialForce(sk.gravity, withExternalForces)
		if tau := b.projectToJoint(f, withDamping); tau != nil {
			j := b.ParentJoint()
			for d := 0; d < j.Dof(); d++ {
				j.GenCoordAt(d).SetForce(tau.AtVec(d))
			}
		}
	}
}

// ComputeHybridDynamics is a stub: mixed force/acceleration-controlled
// joint solving is not implemented (spec.md's Non-goals exclude a
// constraint solver, and hybrid dynamics needs one to pick which joints
// are force- versus acceleration-driven at runtime). Calling it logs to
// the diagnostics channel and returns without side effects, instead of
// crashing callers who unconditionally invoke it as part of a generic
// dynamics interface; it performs no computation and leaves every cached
// quantity untouched.
func (sk *Skeleton) ComputeHybridDynamics() {
	log.Println("skeldyn: computeHybridDynamics and its recursive parts are not implemented")
}

// --- impulse-based forward dynamics (spec.md §4.6) ---

// UpdateBiasImpulse recomputes every body's bias impulse leaf to root from
// the currently stored BodyNode constraint impulses, the entry point used
// when an external solver has already set them directly; PointMass
// constraint impulses are not read here.
func (sk *Skeleton) UpdateBiasImpulse() {
	sk.ensureArtInertiaFresh(false)
	for i := len(sk.bodies) - 1; i >= 0; i-- {
		sk.bodies[i].updateBiasImpulse()
	}
}

// UpdateBiasImpulseAtBody is the single-impulse entry point: it sets
// body's constraint impulse to imp, propagates the bias impulse
// recursion up body's own ancestor chain only (the one path an isolated
// contact impulse affects), and then clears body's constraint impulse
// back to zero. The clear-on-exit is faithful to the DART source this is
// grounded on, a known latent-bug-compatible quirk rather than something
// silently "fixed": callers who expect the impulse to still be readable
// from the body afterward will be surprised (see DESIGN.md).
func (sk *Skeleton) UpdateBiasImpulseAtBody(body *BodyNode, imp SpatialVector) {
	sk.ensureArtInertiaFresh(false)
	body.SetConstraintImpulse(imp)
	for cur := body; cur != nil; cur = cur.Parent() {
		cur.updateBiasImpulse()
	}
	body.ClearConstraintImpulse()
}

// UpdateBiasImpulseAtPointMass is UpdateBiasImpulseAtBody's soft-body
// counterpart: a linear impulse at one point mass is folded into an
// equivalent spatial impulse at the owning body's origin (force plus
// r x force), bias impulse is refreshed up the owning
// body's ancestor chain, and the body's constraint impulse is cleared
// back to zero on exit for the same reason UpdateBiasImpulseAtBody is.
func (sk *Skeleton) UpdateBiasImpulseAtPointMass(soft *SoftBodyNode, pointMassIndex int, imp mgl64.Vec3) {
	sk.ensureArtInertiaFresh(false)
	pm := soft.PointMassAt(pointMassIndex)
	r := pm.LocalPosition()
	wrench := SpatialVector{Linear: imp, Angular: r.Cross(imp)}
	soft.BodyNode.SetConstraintImpulse(wrench)
	for cur := soft.BodyNode; cur != nil; cur = cur.Parent() {
		cur.updateBiasImpulse()
	}
	soft.BodyNode.ClearConstraintImpulse()
}

// UpdateVelocityChange solves for Δq̇ at every joint root to leaf from the
// currently fresh bias impulses.
func (sk *Skeleton) UpdateVelocityChange() {
	for _, b := range sk.bodies {
		b.updateJointVelocityChange()
	}
}

// ComputeImpulseForwardDynamics runs the full impulse solve (bias impulse,
// velocity change, impulsive transmitted force) and folds the result into
// q̇, q̈, and transmitted force, marking the skeleton as impulse-applied.
func (sk *Skeleton) ComputeImpulseForwardDynamics() {
	sk.UpdateBiasImpulse()
	sk.UpdateVelocityChange()
	for _, b := range sk.bodies {
		b.updateImpulsiveTransmittedForce()
	}
	h := sk.timeStep
	for _, b := range sk.bodies {
		b.applyVelocityChange(h)
	}
	sk.impulseApplied = true
	sk.markDynamicsDirty()
}

func (sk *Skeleton) SetImpulseApplied(v bool) { sk.impulseApplied = v }
func (sk *Skeleton) IsImpulseApplied() bool   { return sk.impulseApplied }

// --- aggregate reads (spec.md §4.7) ---

// GetWorldCOM returns the mass-weighted center of mass of every rigid body
// and every soft body's point-mass lattice.
func (sk *Skeleton) GetWorldCOM() mgl64.Vec3 {
	if sk.totalMass == 0 {
		return mgl64.Vec3{}
	}
	var sum mgl64.Vec3
	for _, b := range sk.bodies {
		sum = sum.Add(b.WorldCOM().Mul(b.Mass()))
	}
	for _, sb := range sk.softBodies {
		for i := 0; i < sb.NumPointMasses(); i++ {
			pm := sb.PointMassAt(i)
			world := sb.WorldTransform().ApplyPoint(pm.LocalPosition())
			sum = sum.Add(world.Mul(pm.Mass()))
		}
	}
	return sum.Mul(1 / sk.totalMass)
}

func (sk *Skeleton) GetWorldCOMVelocity() mgl64.Vec3 {
	if sk.totalMass == 0 {
		return mgl64.Vec3{}
	}
	var sum mgl64.Vec3
	for _, b := range sk.bodies {
		sum = sum.Add(b.WorldCOMVelocity().Mul(b.Mass()))
	}
	for _, sb := range sk.softBodies {
		t := sb.WorldTransform()
		sv := sb.SpatialVelocity()
		bodyWorldVel := SpatialVector{Angular: t.ApplyVector(sv.Angular), Linear: t.ApplyVector(sv.Linear)}
		for i := 0; i < sb.NumPointMasses(); i++ {
			pm := sb.PointMassAt(i)
			r := t.Rotation.Mul3x1(pm.LocalPosition())
			localVelWorld := t.Rotation.Mul3x1(pm.LocalVelocity())
			v := bodyWorldVel.Linear.Sub(r.Cross(bodyWorldVel.Angular)).Add(localVelWorld)
			sum = sum.Add(v.Mul(pm.Mass()))
		}
	}
	return sum.Mul(1 / sk.totalMass)
}

func (sk *Skeleton) GetWorldCOMAcceleration() mgl64.Vec3 {
	if sk.totalMass == 0 {
		return mgl64.Vec3{}
	}
	var sum mgl64.Vec3
	for _, b := range sk.bodies {
		sum = sum.Add(b.WorldCOMAcceleration().Mul(b.Mass()))
	}
	for _, sb := range sk.softBodies {
		t := sb.WorldTransform()
		sv, sa := sb.SpatialVelocity(), sb.SpatialAcceleration()
		bodyWorldAcc := SpatialVector{Angular: t.ApplyVector(sa.Angular), Linear: t.ApplyVector(sa.Linear.Add(sv.Angular.Cross(sv.Linear)))}
		bodyWorldVel := SpatialVector{Angular: t.ApplyVector(sv.Angular), Linear: t.ApplyVector(sv.Linear)}
		for i := 0; i < sb.NumPointMasses(); i++ {
			pm := sb.PointMassAt(i)
			r := t.Rotation.Mul3x1(pm.LocalPosition())
			localAccWorld := t.Rotation.Mul3x1(mgl64.Vec3{pm.GenCoordAt(0).Acc(), pm.GenCoordAt(1).Acc(), pm.GenCoordAt(2).Acc()})
			localVelWorld := t.Rotation.Mul3x1(pm.LocalVelocity())
			a := bodyWorldAcc.Linear.Sub(r.Cross(bodyWorldAcc.Angular)).
				Add(bodyWorldVel.Angular.Cross(bodyWorldVel.Angular.Cross(r))).
				Add(bodyWorldVel.Angular.Cross(localVelWorld).Mul(2)).
				Add(localAccWorld)
			sum = sum.Add(a.Mul(pm.Mass()))
		}
	}
	return sum.Mul(1 / sk.totalMass)
}

// GetWorldCOMJacobian returns the 3 x Dof() translational Jacobian mapping
// q̇ to the skeleton's overall center-of-mass velocity, mass-weighting and
// scattering each rigid body's own COM Jacobian into the full-width
// output by its dependent coordinate indices.
func (sk *Skeleton) GetWorldCOMJacobian() *mat.Dense {
	n := sk.Dof()
	out := mat.NewDense(3, n, nil)
	if sk.totalMass == 0 {
		return out
	}
	for _, b := range sk.bodies {
		if b.Mass() == 0 {
			continue
		}
		J := b.WorldJacobian(b.LocalCOM())
		w := b.Mass() / sk.totalMass
		for k := 0; k < b.NumDependentGenCoords(); k++ {
			col := b.DependentGenCoordIndex(k)
			for r := 0; r < 3; r++ {
				out.Set(r, col, out.At(r, col)+w*J.At(r+3, k))
			}
		}
	}
	return out
}

// GetWorldCOMJacobianTimeDeriv is GetWorldCOMJacobian's derivative
// counterpart, built the same way from each body's WorldJacobianTimeDeriv.
func (sk *Skeleton) GetWorldCOMJacobianTimeDeriv() *mat.Dense {
	n := sk.Dof()
	out := mat.NewDense(3, n, nil)
	if sk.totalMass == 0 {
		return out
	}
	for _, b := range sk.bodies {
		if b.Mass() == 0 {
			continue
		}
		J := b.WorldJacobianTimeDeriv(b.LocalCOM())
		w := b.Mass() / sk.totalMass
		for k := 0; k < b.NumDependentGenCoords(); k++ {
			col := b.DependentGenCoordIndex(k)
			for r := 0; r < 3; r++ {
				out.Set(r, col, out.At(r, col)+w*J.At(r+3, k))
			}
		}
	}
	return out
}

func (sk *Skeleton) GetKineticEnergy() float64 {
	ke := 0.0
	for _, b := range sk.bodies {
		ke += b.KineticEnergy()
	}
	for _, sb := range sk.softBodies {
		for i := 0; i < sb.NumPointMasses(); i++ {
			pm := sb.PointMassAt(i)
			v := pm.LocalVelocity()
			ke += 0.5 * pm.Mass() * v.Dot(v)
		}
	}
	return ke
}

func (sk *Skeleton) GetPotentialEnergy() float64 {
	pe := 0.0
	for _, b := range sk.bodies {
		pe += b.PotentialEnergy(sk.gravity)
	}
	for _, sb := range sk.softBodies {
		for i := 0; i < sb.NumPointMasses(); i++ {
			pm := sb.PointMassAt(i)
			world := sb.WorldTransform().ApplyPoint(pm.LocalPosition())
			pe -= pm.Mass() * sk.gravity.Dot(world)
			d := pm.LocalPosition().Sub(pm.RestPosition())
			pe += 0.5 * sb.VertexStiffness() * d.Dot(d)
		}
		for i := 0; i < sb.NumPointMasses(); i++ {
			pm := sb.PointMassAt(i)
			for k := 0; k < pm.NumConnectedPointMasses(); k++ {
				j := pm.ConnectedIndex(k)
				if j <= i {
					continue
				}
				other := sb.PointMassAt(j)
				dist := other.LocalPosition().Sub(pm.LocalPosition()).Len()
				restDist := other.RestPosition().Sub(pm.RestPosition()).Len()
				stretch := dist - restDist
				pe += 0.5 * sb.EdgeStiffness() * stretch * stretch
			}
		}
	}
	return pe
}

// --- structural queries ---

func (sk *Skeleton) NumBodyNodes() int     { return len(sk.bodies) }
func (sk *Skeleton) NumSoftBodyNodes() int { return len(sk.softBodies) }

func (sk *Skeleton) GetBodyNode(i int) *BodyNode { return sk.bodies[i] }

func (sk *Skeleton) GetBodyNodeByName(name string) *BodyNode {
	for _, b := range sk.bodies {
		if b.Name() == name {
			return b
		}
	}
	return nil
}

func (sk *Skeleton) GetSoftBodyNode(i int) *SoftBodyNode { return sk.softBodies[i] }

func (sk *Skeleton) GetSoftBodyNodeByName(name string) *SoftBodyNode {
	for _, sb := range sk.softBodies {
		if sb.Name() == name {
			return sb
		}
	}
	return nil
}

func (sk *Skeleton) NumJoints() int { return len(sk.bodies) }

func (sk *Skeleton) GetJoint(i int) *Joint { return sk.bodies[i].ParentJoint() }

func (sk *Skeleton) GetJointByName(name string) *Joint {
	for _, b := range sk.bodies {
		if j := b.ParentJoint(); j != nil && j.Name() == name {
			return j
		}
	}
	return nil
}

func (sk *Skeleton) GetMarkerByName(name string) *Marker {
	for _, b := range sk.bodies {
		for _, m := range b.Markers() {
			if m.Name() == name {
				return m
			}
		}
	}
	return nil
}

func (sk *Skeleton) GetRootBodyNode() *BodyNode { return sk.bodies[0] }

func (sk *Skeleton) EnableSelfCollision()  { sk.selfCollisionCheck = true }
func (sk *Skeleton) DisableSelfCollision() { sk.selfCollisionCheck = false }
func (sk *Skeleton) IsEnabledSelfCollisionCheck() bool { return sk.selfCollisionCheck }

func (sk *Skeleton) EnableAdjacentBodyCheck()  { sk.adjacentBodyCheck = true }
func (sk *Skeleton) DisableAdjacentBodyCheck() { sk.adjacentBodyCheck = false }
func (sk *Skeleton) IsEnabledAdjacentBodyCheck() bool { return sk.adjacentBodyCheck }

func (sk *Skeleton) SetMobile(v bool) { sk.mobile = v }
func (sk *Skeleton) IsMobile() bool   { return sk.mobile }

func (sk *Skeleton) SetTimeStep(h float64) {
	if h <= 0 {
		panic("skeldyn: time step must be positive")
	}
	sk.timeStep = h
}
func (sk *Skeleton) GetTimeStep() float64  { return sk.timeStep }

func (sk *Skeleton) SetGravity(g mgl64.Vec3) {
	sk.gravity = g
	sk.gravityDirty = true
	sk.combinedDirty = true
}
func (sk *Skeleton) GetGravity() mgl64.Vec3 { return sk.gravity }

func (sk *Skeleton) GetMass() float64 { return sk.totalMass }

// SetForceLowerBounds/SetForceUpperBounds/ForceLowerBounds/ForceUpperBounds
// batch-apply per-DOF generalized force bounds across every GenCoord in
// skeleton-global order.
func (sk *Skeleton) SetForceLowerBounds(v mat.Vector) {
	for i, c := range sk.coords {
		c.SetForceBounds(v.AtVec(i), c.ForceMax())
	}
}

func (sk *Skeleton) SetForceUpperBounds(v mat.Vector) {
	for i, c := range sk.coords {
		c.SetForceBounds(c.ForceMin(), v.AtVec(i))
	}
}

func (sk *Skeleton) ForceLowerBounds() *mat.VecDense {
	out := mat.NewVecDense(len(sk.coords), nil)
	for i, c := range sk.coords {
		out.SetVec(i, c.ForceMin())
	}
	return out
}

func (sk *Skeleton) ForceUpperBounds() *mat.VecDense {
	out := mat.NewVecDense(len(sk.coords), nil)
	for i, c := range sk.coords {
		out.SetVec(i, c.ForceMax())
	}
	return out
}

// RecomputeCount is a diagnostic hook so tests can observe cache
// freshness: it increments once per lazy recompute of any cached dynamics
// quantity, so calling a getter twice in a row without an intervening
// state change must leave it unchanged.
func (sk *Skeleton) RecomputeCount() int { return sk.recomputeCount }
