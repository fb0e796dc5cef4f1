package skeldyn

import (
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// BodyNode is a rigid body in the skeleton tree: spatial inertia, its
// transform/velocity/acceleration relative to the world, and the scratch
// fields the articulated-body and Newton-Euler recursions read and write
// as they walk the tree. Parent/child links are plain pointers into the
// Skeleton's own body array (spec.md §9: "arena-style, reference by
// index" is honored at the Skeleton level; BodyNode itself just holds
// the pointers it needs to walk locally).
type BodyNode struct {
	name  string
	index int // position in the skeleton's BFS order; -1 until Init

	parent      *BodyNode
	children    []*BodyNode
	parentJoint *Joint

	mass     float64
	localCOM mgl64.Vec3
	inertia  mgl64.Mat3 // about the COM, body-local frame

	worldTransform Transform

	velocity     SpatialVector // body frame
	partialAccel SpatialVector // velocity-dependent term, computed before acceleration
	acceleration SpatialVector

	artInertia ArticulatedInertia
	biasForce  SpatialVector

	// jointProjInv/jointIS cache this body's own joint projection
	// (S^T I^A S)^-1 and I^A*S, computed once per articulated-inertia
	// refresh and reused by the parent when it reflects this body's
	// inertia and bias force/impulse up the tree.
	jointProjInv *mat.Dense
	jointIS      *mat.Dense

	compositeInertia ArticulatedInertia // rigid composite sum, for the mass matrix

	externalForce     SpatialVector // applied wrench, body frame at body origin
	constraintImpulse SpatialVector
	biasImpulse       SpatialVector
	deltaVelocity     SpatialVector
	jointVelChange    *mat.VecDense
	impulsiveForce    SpatialVector

	transmittedForce      SpatialVector // dual use: ABA (I*a+p) or RNEA net force
	extForceAccum         SpatialVector // aggregateExternalForce scratch
	constraintForceAccum  SpatialVector // aggregateConstraintForce scratch

	dependentGenCoords []int // skeleton-global GenCoord indices this body's motion depends on

	jacobianDirty bool
	jacobianCache *mat.Dense // 6 x len(dependentGenCoords), world frame, at body origin

	markers []*Marker
}

// NewBodyNode returns a body with the given rigid-body parameters. inertia
// is the 3x3 rotational inertia tensor about the center of mass, expressed
// in the body's own local frame.
func NewBodyNode(name string, mass float64, localCOM mgl64.Vec3, inertia mgl64.Mat3) *BodyNode {
	return &BodyNode{
		name:           name,
		index:          -1,
		mass:           mass,
		localCOM:       localCOM,
		inertia:        inertia,
		worldTransform: IdentityTransform(),
		jacobianDirty:  true,
	}
}

func (b *BodyNode) Name() string       { return b.name }
func (b *BodyNode) Index() int         { return b.index }
func (b *BodyNode) setIndex(i int)     { b.index = i }
func (b *BodyNode) Parent() *BodyNode  { return b.parent }
func (b *BodyNode) Children() []*BodyNode { return b.children }
func (b *BodyNode) ParentJoint() *Joint { return b.parentJoint }

func (b *BodyNode) Mass() float64          { return b.mass }
func (b *BodyNode) LocalCOM() mgl64.Vec3   { return b.localCOM }
func (b *BodyNode) InertiaTensor() mgl64.Mat3 { return b.inertia }

// SpatialInertiaLocal is this body's own (rigid, unreflected) spatial
// inertia about its origin, in its own local frame.
func (b *BodyNode) SpatialInertiaLocal() SpatialInertia {
	return SpatialInertia{Mass: b.mass, COM: b.localCOM, Inertia: b.inertia}
}

func (b *BodyNode) WorldTransform() Transform        { return b.worldTransform }
func (b *BodyNode) SpatialVelocity() SpatialVector    { return b.velocity }
func (b *BodyNode) SpatialAcceleration() SpatialVector { return b.acceleration }
func (b *BodyNode) PartialAcceleration() SpatialVector { return b.partialAccel }
func (b *BodyNode) ArticulatedInertia() ArticulatedInertia { return b.artInertia }
func (b *BodyNode) BiasForce() SpatialVector          { return b.biasForce }
func (b *BodyNode) TransmittedForce() SpatialVector   { return b.transmittedForce }

func (b *BodyNode) ExternalForce() SpatialVector         { return b.externalForce }
func (b *BodyNode) SetExternalForce(f SpatialVector)     { b.externalForce = f }
func (b *BodyNode) AddExternalForce(f SpatialVector)     { b.externalForce = b.externalForce.Add(f) }
func (b *BodyNode) ClearExternalForce()                  { b.externalForce = ZeroSpatialVector }

func (b *BodyNode) ConstraintImpulse() SpatialVector     { return b.constraintImpulse }
func (b *BodyNode) SetConstraintImpulse(f SpatialVector) { b.constraintImpulse = f }
func (b *BodyNode) AddConstraintImpulse(f SpatialVector) {
	b.constraintImpulse = b.constraintImpulse.Add(f)
}
func (b *BodyNode) ClearConstraintImpulse() { b.constraintImpulse = ZeroSpatialVector }

func (b *BodyNode) Markers() []*Marker    { return b.markers }
func (b *BodyNode) AddMarker(m *Marker)   { b.markers = append(b.markers, m) }

// attachChild wires a freshly added body under this one through joint.
// Called by Skeleton.addBodyNode; sets the unexported parent/child
// fields shared within the package.
func (b *BodyNode) attachChild(joint *Joint, child *BodyNode) {
	joint.parent = b
	joint.child = child
	child.parent = b
	child.parentJoint = joint
	b.children = append(b.children, child)
}

// --- forward kinematics (spec.md §4.2) ---

func (b *BodyNode) updateTransform() {
	j := b.parentJoint
	switch {
	case j == nil:
		b.worldTransform = IdentityTransform()
	case b.parent == nil:
		b.worldTransform = j.LocalTransform()
	default:
		b.worldTransform = j.LocalTransform().Compose(b.parent.worldTransform)
	}
	b.jacobianDirty = true
}

func (b *BodyNode) updateVelocity() {
	j := b.parentJoint
	if j == nil {
		b.velocity = ZeroSpatialVector
		return
	}
	rel := j.RelativeSpatialVelocity()
	if b.parent == nil {
		b.velocity = rel
		return
	}
	b.velocity = j.LocalTransform().AdInv(b.parent.velocity).Add(rel)
}

// updatePartialAcceleration computes the velocity-cross term that is
// independent of q̈, using this body's own (already fresh) spatial
// velocity and its joint's relative velocity contribution.
func (b *BodyNode) updatePartialAcceleration() {
	j := b.parentJoint
	if j == nil {
		b.partialAccel = ZeroSpatialVector
		return
	}
	rel := j.RelativeSpatialVelocity()
	b.partialAccel = b.velocity.Cross(rel)
}

func (b *BodyNode) updateAcceleration() {
	j := b.parentJoint
	if j == nil {
		b.acceleration = ZeroSpatialVector
		return
	}
	relAccel := j.RelativeSpatialVelocityJacobian(j.Accelerations())
	if b.parent == nil {
		b.acceleration = b.partialAccel.Add(relAccel)
		return
	}
	parentTerm := j.LocalTransform().AdInv(b.parent.acceleration)
	b.acceleration = parentTerm.Add(b.partialAccel).Add(relAccel)
}

// --- articulated inertia & bias force (Featherstone ABA, spec.md §4.4) ---

// updateArtInertia combines this body's own rigid inertia with the
// reflected articulated inertia of each child (through that child's
// joint), and, if this body itself hangs off a joint with nonzero DOF,
// precomputes the joint-inertia projection the parent will need when
// IT reflects this body's inertia in turn. Must be called leaf-to-root.
func (b *BodyNode) updateArtInertia(h float64, augmented bool) {
	ai := FromSpatialInertia(b.SpatialInertiaLocal())
	for _, c := range b.children {
		ai = ai.Add(c.parentJoint.LocalTransform().TransformInertia(c.reducedArticulatedInertia()))
	}
	b.artInertia = ai
	if b.parentJoint != nil && b.parentJoint.Dof() > 0 {
		b.computeJointProjection(h, augmented)
	}
}

func (b *BodyNode) computeJointProjection(h float64, augmented bool) {
	j := b.parentJoint
	n := j.Dof()
	S := j.Class.MotionSubspace(j)

	proj := j.ProjectInertia(b.artInertia)
	if augmented {
		for i := 0; i < n; i++ {
			proj.Set(i, i, proj.At(i, i)+h*j.Damping(i))
		}
	}
	var inv mat.Dense
	if err := inv.Inverse(proj); err != nil {
		panic("skeldyn: singular joint inertia projection at joint " + j.Name())
	}

	IS := mat.NewDense(6, n, nil)
	for k, s := range S {
		v := b.artInertia.Apply(s).Vec()
		for r := 0; r < 6; r++ {
			IS.Set(r, k, v.AtVec(r))
		}
	}
	b.jointProjInv = &inv
	b.jointIS = IS
}

// reducedArticulatedInertia is the inertia this body presents to its
// parent once its own joint's DOFs have been projected out:
//
//	I^A - I^A S (S^T I^A S)^-1 S^T I^A
func (b *BodyNode) reducedArticulatedInertia() ArticulatedInertia {
	j := b.parentJoint
	if j == nil || j.Dof() == 0 {
		return b.artInertia
	}
	var tmp, middle mat.Dense
	tmp.Mul(b.jointIS, b.jointProjInv)
	middle.Mul(&tmp, b.jointIS.T())
	var reduced mat.Dense
	reduced.Sub(b.artInertia.Dense(), &middle)
	return symFromDense(&reduced)
}

// updateBiasForce forms this body's bias force: the velocity product
// force, minus gravity, external wrench and constraint impulse, plus the
// reduced bias force of every child reflected through its joint. Must be
// called leaf-to-root, after updateArtInertia for the same body.
func (b *BodyNode) updateBiasForce(gravity mgl64.Vec3) {
	rigid := FromSpatialInertia(b.SpatialInertiaLocal())
	Iv := rigid.Apply(b.velocity)
	gLocal := b.worldTransform.Rotation.Transpose().Mul3x1(gravity)
	weight := rigid.Apply(SpatialVector{Linear: gLocal})
	bias := b.velocity.CrossForce(Iv).Sub(weight).Sub(b.externalForce).Sub(b.constraintImpulse)
	for _, c := range b.children {
		t := c.parentJoint.LocalTransform()
		bias = bias.Add(t.AdDual(c.reducedBiasForce()))
	}
	b.biasForce = bias
}

func (b *BodyNode) reducedBiasForce() SpatialVector {
	j := b.parentJoint
	if j == nil || j.Dof() == 0 {
		return b.biasForce
	}
	tau := j.Forces()
	Stp := j.ProjectForce(b.biasForce)
	var rhs mat.VecDense
	rhs.SubVec(tau, Stp)
	var qSolve mat.VecDense
	qSolve.MulVec(b.jointProjInv, &rhs)
	var add mat.VecDense
	add.MulVec(b.jointIS, &qSolve)
	return b.biasForce.Add(b.reducedArticulatedInertia().Apply(b.partialAccel)).Add(SpatialVectorFromVec(&add))
}

// updateJointAndBodyAcceleration solves this joint's q̈ from the bias
// system (writing it back into the owning GenCoords) and propagates the
// result into this body's own spatial acceleration. Must be called
// root-to-leaf, after every body's articulated inertia and bias force
// are fresh.
func (b *BodyNode) updateJointAndBodyAcceleration() {
	j := b.parentJoint
	if j == nil {
		b.acceleration = ZeroSpatialVector
		return
	}
	var parentTerm SpatialVector
	if b.parent != nil {
		parentTerm = j.LocalTransform().AdInv(b.parent.acceleration)
	}
	if j.Dof() == 0 {
		b.acceleration = parentTerm.Add(b.partialAccel)
		return
	}
	tau := j.Forces()
	Stp := j.ProjectForce(b.biasForce)
	IAdInvParent := j.ProjectForce(b.artInertia.Apply(parentTerm.Add(b.partialAccel)))
	var rhs mat.VecDense
	rhs.SubVec(tau, Stp)
	rhs.SubVec(&rhs, IAdInvParent)
	var qddot mat.VecDense
	qddot.MulVec(b.jointProjInv, &rhs)
	for i := 0; i < j.Dof(); i++ {
		j.GenCoordAt(i).SetAcc(qddot.AtVec(i))
	}
	b.acceleration = parentTerm.Add(b.partialAccel).Add(j.RelativeSpatialVelocityJacobian(&qddot))
}

// updateTransmittedForce is the ABA-side use of the dual-purpose
// transmittedForce field: the spatial force this body's parent joint
// must supply, I^A*a + p.
func (b *BodyNode) updateTransmittedForce() {
	b.transmittedForce = b.artInertia.Apply(b.acceleration).Add(b.biasForce)
}

// --- inverse dynamics (RNEA, spec.md §4.5); also the shared machinery
// behind getCoriolisForceVector/getGravityForceVector/getCombinedVector,
// which the Skeleton drives by temporarily zeroing velocity and/or q̈ and
// re-running forward kinematics before calling these. ---

// netSpatialForce is the RNEA backward-pass primitive, using this body's
// OWN (rigid, unreflected) inertia rather than the articulated one: the
// force needed to produce its current acceleration given its current
// velocity, minus gravity and, if requested, its external wrench, plus
// the reflected transmitted force of every child. Must be called
// leaf-to-root.
func (b *BodyNode) netSpatialForce(gravity mgl64.Vec3, withExt bool) SpatialVector {
	rigid := FromSpatialInertia(b.SpatialInertiaLocal())
	Ia := rigid.Apply(b.acceleration)
	Iv := rigid.Apply(b.velocity)
	gLocal := b.worldTransform.Rotation.Transpose().Mul3x1(gravity)
	weight := rigid.Apply(SpatialVector{Linear: gLocal})
	f := Ia.Add(b.velocity.CrossForce(Iv)).Sub(weight)
	if withExt {
		f = f.Sub(b.externalForce)
	}
	for _, c := range b.children {
		t := c.parentJoint.LocalTransform()
		f = f.Add(t.AdDual(c.transmittedForce))
	}
	b.transmittedForce = f
	return f
}

// projectToJoint is shared by inverse dynamics and external-force
// aggregation: S^T f, optionally with per-DOF damping torque added.
func (b *BodyNode) projectToJoint(f SpatialVector, withDamp bool) *mat.VecDense {
	j := b.parentJoint
	if j == nil || j.Dof() == 0 {
		return nil
	}
	tau := j.ProjectForce(f)
	if withDamp {
		for i := 0; i < j.Dof(); i++ {
			tau.SetVec(i, tau.AtVec(i)+j.Damping(i)*j.GenCoordAt(i).Vel())
		}
	}
	return tau
}

// aggregateExternalForce propagates applied external wrenches up the tree
// without any velocity/acceleration/gravity term, for
// getExternalForceVector. Must be called leaf-to-root.
func (b *BodyNode) aggregateExternalForce() SpatialVector {
	f := b.externalForce
	for _, c := range b.children {
		t := c.parentJoint.LocalTransform()
		f = f.Add(t.AdDual(c.extForceAccum))
	}
	b.extForceAccum = f
	return f
}

// aggregateConstraintForce is aggregateExternalForce's counterpart for
// constraint impulses, for getConstraintForceVector.
func (b *BodyNode) aggregateConstraintForce() SpatialVector {
	f := b.constraintImpulse
	for _, c := range b.children {
		t := c.parentJoint.LocalTransform()
		f = f.Add(t.AdDual(c.constraintForceAccum))
	}
	b.constraintForceAccum = f
	return f
}

// --- mass matrix assembly (composite rigid body, spec.md §4.3) ---

// updateCompositeInertia sums this body's own rigid inertia with the
// reflected (unprojected) composite inertia of each child. Unlike
// updateArtInertia this never subtracts a joint's own DOF projection:
// the composite inertia is the rigid inertia the whole subtree presents
// when none of its joints are free to move, exactly what the mass
// matrix's off-diagonal coupling terms need. Must be called leaf-to-root.
func (b *BodyNode) updateCompositeInertia() {
	ci := FromSpatialInertia(b.SpatialInertiaLocal())
	for _, c := range b.children {
		ci = ci.Add(c.parentJoint.LocalTransform().TransformInertia(c.compositeInertia))
	}
	b.compositeInertia = ci
}

// aggregateMassMatrix writes this joint's own diagonal block and, for
// every ancestor joint, the symmetric off-diagonal coupling block, using
// the composite inertia computed by updateCompositeInertia. h/augmented
// add h*damping to the diagonal for the augmented mass matrix M̃.
func (b *BodyNode) aggregateMassMatrix(M *mat.Dense, h float64, augmented bool) {
	j := b.parentJoint
	if j == nil || j.Dof() == 0 {
		return
	}
	n := j.Dof()
	S := j.Class.MotionSubspace(j)
	F := make([]SpatialVector, n)
	for k, s := range S {
		F[k] = b.compositeInertia.Apply(s)
	}
	base := j.IndexInSkeleton(0)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			val := S[r].Dot(F[c])
			if augmented && r == c {
				val += h * j.Damping(r)
			}
			M.Set(base+r, base+c, val)
		}
	}

	cur := b
	for cur.parent != nil {
		ancestor := cur.parent
		t := cur.parentJoint.LocalTransform()
		for k := range F {
			F[k] = t.AdDual(F[k])
		}
		aj := ancestor.parentJoint
		if aj != nil && aj.Dof() > 0 {
			Sa := aj.Class.MotionSubspace(aj)
			abase := aj.IndexInSkeleton(0)
			for r := 0; r < len(Sa); r++ {
				for c := 0; c < n; c++ {
					val := Sa[r].Dot(F[c])
					M.Set(abase+r, base+c, val)
					M.Set(base+c, abase+r, val)
				}
			}
		}
		cur = ancestor
	}
}

// aggregateInvMassMatrixColumn is the ABA-based M^-1/M̃^-1 column-forming
// primitive: given the parent's column-j acceleration contribution and
// the full column-j generalized force vector, it solves this joint's
// slice of q̈ using the already-fresh articulated inertia/projection
// (identical to the one forward dynamics uses, since neither depends on
// τ or velocity), writes it into the M^-1 column, and returns its own
// contribution to pass down to children. Must be called root-to-leaf.
func (b *BodyNode) aggregateInvMassMatrixColumn(parentAccel SpatialVector, tau mat.Vector, col int, Minv *mat.Dense) SpatialVector {
	j := b.parentJoint
	if j == nil {
		return ZeroSpatialVector
	}
	var parentTerm SpatialVector
	if b.parent != nil {
		parentTerm = j.LocalTransform().AdInv(parentAccel)
	}
	if j.Dof() == 0 {
		return parentTerm
	}
	n := j.Dof()
	tauLocal := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		tauLocal.SetVec(i, tau.AtVec(j.IndexInSkeleton(i)))
	}
	IAdInvParent := j.ProjectForce(b.artInertia.Apply(parentTerm))
	var rhs mat.VecDense
	rhs.SubVec(tauLocal, IAdInvParent)
	var qddot mat.VecDense
	qddot.MulVec(b.jointProjInv, &rhs)

	base := j.IndexInSkeleton(0)
	for i := 0; i < n; i++ {
		Minv.Set(base+i, col, qddot.AtVec(i))
	}
	return parentTerm.Add(j.RelativeSpatialVelocityJacobian(&qddot))
}

// --- impulse-based forward dynamics (spec.md §4.6) ---

func (b *BodyNode) updateBiasImpulse() {
	bi := b.constraintImpulse.Scale(-1)
	for _, c := range b.children {
		t := c.parentJoint.LocalTransform()
		bi = bi.Add(t.AdDual(c.reducedBiasImpulse()))
	}
	b.biasImpulse = bi
}

func (b *BodyNode) reducedBiasImpulse() SpatialVector {
	j := b.parentJoint
	if j == nil || j.Dof() == 0 {
		return b.biasImpulse
	}
	Stp := j.ProjectForce(b.biasImpulse)
	var rhs mat.VecDense
	rhs.ScaleVec(-1, Stp)
	var qSolve mat.VecDense
	qSolve.MulVec(b.jointProjInv, &rhs)
	var add mat.VecDense
	add.MulVec(b.jointIS, &qSolve)
	return b.biasImpulse.Add(SpatialVectorFromVec(&add))
}

// updateJointVelocityChange solves for Δq̇ the same way
// updateJointAndBodyAcceleration solves for q̈, with the bias impulse
// standing in for the bias force and zero standing in for τ. Must be
// called root-to-leaf.
func (b *BodyNode) updateJointVelocityChange() {
	j := b.parentJoint
	if j == nil {
		b.deltaVelocity = ZeroSpatialVector
		return
	}
	var parentTerm SpatialVector
	if b.parent != nil {
		parentTerm = j.LocalTransform().AdInv(b.parent.deltaVelocity)
	}
	if j.Dof() == 0 {
		b.deltaVelocity = parentTerm
		return
	}
	n := j.Dof()
	Stp := j.ProjectForce(b.biasImpulse)
	IAdInvParent := j.ProjectForce(b.artInertia.Apply(parentTerm))
	var sum mat.VecDense
	sum.AddVec(Stp, IAdInvParent)
	var rhs mat.VecDense
	rhs.ScaleVec(-1, &sum)
	var dq mat.VecDense
	dq.MulVec(b.jointProjInv, &rhs)
	b.jointVelChange = mat.NewVecDense(n, nil)
	b.jointVelChange.CopyVec(&dq)
	b.deltaVelocity = parentTerm.Add(j.RelativeSpatialVelocityJacobian(&dq))
}

func (b *BodyNode) updateImpulsiveTransmittedForce() {
	b.impulsiveForce = b.artInertia.Apply(b.deltaVelocity).Add(b.biasImpulse)
}

// applyVelocityChange folds this body's solved Δq̇ into its joint's
// state: q̇ += Δq̇, q̈ += Δq̇/h, and the transmitted force grows by the
// impulsive force/h. The joint's τ is left unchanged.
func (b *BodyNode) applyVelocityChange(h float64) {
	j := b.parentJoint
	if j == nil || j.Dof() == 0 || b.jointVelChange == nil {
		return
	}
	for i := 0; i < j.Dof(); i++ {
		g := j.GenCoordAt(i)
		dq := b.jointVelChange.AtVec(i)
		g.SetVel(g.Vel() + dq)
		g.SetAcc(g.Acc() + dq/h)
	}
	b.transmittedForce = b.transmittedForce.Add(b.impulsiveForce.Scale(1 / h))
}

// --- aggregate reads (spec.md §4.7) ---

func (b *BodyNode) WorldCOM() mgl64.Vec3 {
	return b.worldTransform.ApplyPoint(b.localCOM)
}

func (b *BodyNode) WorldCOMVelocity() mgl64.Vec3 {
	R := b.worldTransform.Rotation
	w := R.Mul3x1(b.velocity.Angular)
	r := R.Mul3x1(b.localCOM)
	return R.Mul3x1(b.velocity.Linear).Sub(r.Cross(w))
}

// WorldCOMAcceleration converts the spatial acceleration (which omits the
// velocity-squared term a constant frame shift can't capture) into the
// classical point acceleration at the center of mass: a_com = a_origin +
// alpha x r + omega x (omega x r), where a_origin = R(a_lin + omega x v)
// is the classical acceleration of the body origin.
func (b *BodyNode) WorldCOMAcceleration() mgl64.Vec3 {
	R := b.worldTransform.Rotation
	w := R.Mul3x1(b.velocity.Angular)
	alpha := R.Mul3x1(b.acceleration.Angular)
	aOrigin := R.Mul3x1(b.acceleration.Linear.Add(b.velocity.Angular.Cross(b.velocity.Linear)))
	r := R.Mul3x1(b.localCOM)
	return aOrigin.Sub(r.Cross(alpha)).Add(w.Cross(w.Cross(r)))
}

func (b *BodyNode) KineticEnergy() float64 {
	Iv := b.SpatialInertiaLocal().Dense()
	vec := b.velocity.Vec()
	var Ivv mat.VecDense
	Ivv.MulVec(Iv, vec)
	ke := 0.5 * mat.Dot(vec, &Ivv)
	if ke < 0 {
		panic("skeldyn: negative kinetic energy for body " + b.name)
	}
	return ke
}

func (b *BodyNode) PotentialEnergy(gravity mgl64.Vec3) float64 {
	pe := -b.mass * gravity.Dot(b.WorldCOM())
	if b.parentJoint != nil {
		pe += b.parentJoint.PotentialEnergy()
	}
	return pe
}

// setDependentGenCoords records, once at Init, the skeleton-global
// GenCoord indices this body's world pose depends on: its own joint's
// coords and every ancestor's, collected leaf to root and then reversed,
// so the chain runs root to leaf and index 0 is nearest the root.
func (b *BodyNode) setDependentGenCoords() {
	var chain []int
	for cur := b; cur != nil && cur.parentJoint != nil; cur = cur.parent {
		for i := cur.parentJoint.Dof() - 1; i >= 0; i-- {
			chain = append(chain, cur.parentJoint.IndexInSkeleton(i))
		}
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	b.dependentGenCoords = chain
}

func (b *BodyNode) NumDependentGenCoords() int { return len(b.dependentGenCoords) }
func (b *BodyNode) DependentGenCoordIndex(i int) int { return b.dependentGenCoords[i] }

// worldJacobian returns the 6 x NumDependentGenCoords spatial Jacobian,
// in world frame, relating q̇ (restricted to this body's dependent
// coords) to this body's spatial velocity at its own origin. Recomputed
// lazily and cached until the next updateTransform.
func (b *BodyNode) worldJacobian() *mat.Dense {
	if !b.jacobianDirty && b.jacobianCache != nil {
		return b.jacobianCache
	}
	n := len(b.dependentGenCoords)
	J := mat.NewDense(6, n, nil)

	var chain []*BodyNode
	for cur := b; cur != nil && cur.parentJoint != nil; cur = cur.parent {
		chain = append(chain, cur)
	}

	col := 0
	for idx := len(chain) - 1; idx >= 0; idx-- {
		cur := chain[idx]
		j := cur.parentJoint
		S := j.Class.MotionSubspace(j)
		// cur.worldTransform already IS the joint's world pose (composed
		// from LocalTransform during updateTransform), so rotating the
		// motion subspace basis by it gives world axes, still referenced
		// at cur's origin.
		for _, s := range S {
			worldCol := SpatialVector{
				Angular: cur.worldTransform.ApplyVector(s.Angular),
				Linear:  cur.worldTransform.ApplyVector(s.Linear),
			}
			// shift the reference point from cur's origin to b's origin
			// (same rigid chain, constant offset in world frame).
			offset := b.worldTransform.Translation.Sub(cur.worldTransform.Translation)
			shifted := SpatialVector{
				Angular: worldCol.Angular,
				Linear:  worldCol.Linear.Sub(offset.Cross(worldCol.Angular)),
			}
			v := shifted.Vec()
			for r := 0; r < 6; r++ {
				J.Set(r, col, v.AtVec(r))
			}
			col++
		}
	}
	b.jacobianCache = J
	b.jacobianDirty = false
	return J
}

// WorldJacobian returns the 6 x NumDependentGenCoords spatial Jacobian at
// localPoint (expressed in this body's local frame), in world frame.
func (b *BodyNode) WorldJacobian(localPoint mgl64.Vec3) *mat.Dense {
	J := b.worldJacobian()
	worldPoint := b.worldTransform.ApplyPoint(localPoint)
	offset := worldPoint.Sub(b.worldTransform.Translation)
	_, n := J.Dims()
	out := mat.NewDense(6, n, nil)
	out.Copy(J)
	for c := 0; c < n; c++ {
		w := mgl64.Vec3{J.At(0, c), J.At(1, c), J.At(2, c)}
		lin := mgl64.Vec3{J.At(3, c), J.At(4, c), J.At(5, c)}
		shifted := lin.Sub(offset.Cross(w))
		out.Set(3, c, shifted[0])
		out.Set(4, c, shifted[1])
		out.Set(5, c, shifted[2])
	}
	return out
}

// WorldJacobianTimeDeriv approximates d/dt of WorldJacobian using the
// standard body-fixed-axis identity dJ_k/dt = v ×_spatial S_k, which
// ignores Ṡ; Ṡ is zero for every joint type here except UniversalJoint.
func (b *BodyNode) WorldJacobianTimeDeriv(localPoint mgl64.Vec3) *mat.Dense {
	J := b.WorldJacobian(localPoint)
	r, n := J.Dims()
	out := mat.NewDense(r, n, nil)
	worldVel := b.worldTransform.Ad(b.velocity)
	for c := 0; c < n; c++ {
		col := SpatialVector{
			Angular: mgl64.Vec3{J.At(0, c), J.At(1, c), J.At(2, c)},
			Linear:  mgl64.Vec3{J.At(3, c), J.At(4, c), J.At(5, c)},
		}
		d := worldVel.Cross(col)
		v := d.Vec()
		for rr := 0; rr < 6; rr++ {
			out.Set(rr, c, v.AtVec(rr))
		}
	}
	return out
}
