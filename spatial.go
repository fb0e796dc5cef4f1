package skeldyn

import (
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// SpatialVector is a 6-dimensional spatial vector on SE(3): an angular part
// (first three components) and a linear part (last three). It represents
// spatial velocity, spatial acceleration, or a spatial force/impulse
// depending on context.
type SpatialVector struct {
	Angular mgl64.Vec3
	Linear  mgl64.Vec3
}

// ZeroSpatialVector is the additive identity.
var ZeroSpatialVector = SpatialVector{}

func (a SpatialVector) Add(b SpatialVector) SpatialVector {
	return SpatialVector{a.Angular.Add(b.Angular), a.Linear.Add(b.Linear)}
}

func (a SpatialVector) Sub(b SpatialVector) SpatialVector {
	return SpatialVector{a.Angular.Sub(b.Angular), a.Linear.Sub(b.Linear)}
}

func (a SpatialVector) Scale(s float64) SpatialVector {
	return SpatialVector{a.Angular.Mul(s), a.Linear.Mul(s)}
}

// Dot is the plain Euclidean inner product over the six components.
func (a SpatialVector) Dot(b SpatialVector) float64 {
	return a.Angular.Dot(b.Angular) + a.Linear.Dot(b.Linear)
}

// Cross is the spatial motion cross product used to build the
// velocity-dependent bias term: (w, v) x (w', v') = (w x w', w x v' + v x w').
func (a SpatialVector) Cross(b SpatialVector) SpatialVector {
	return SpatialVector{
		Angular: a.Angular.Cross(b.Angular),
		Linear:  a.Angular.Cross(b.Linear).Add(a.Linear.Cross(b.Angular)),
	}
}

// CrossForce is the dual (force) cross product v x* f: (w,v) x* (n,f) =
// (w x n + v x f, w x f).
func (a SpatialVector) CrossForce(f SpatialVector) SpatialVector {
	return SpatialVector{
		Angular: a.Angular.Cross(f.Angular).Add(a.Linear.Cross(f.Linear)),
		Linear:  a.Angular.Cross(f.Linear),
	}
}

// Vec returns the vector as a dense gonum 6-vector [wx,wy,wz,vx,vy,vz], the
// form the skeleton-level mass matrix and force-vector assembly consume.
func (a SpatialVector) Vec() *mat.VecDense {
	return mat.NewVecDense(6, []float64{a.Angular[0], a.Angular[1], a.Angular[2], a.Linear[0], a.Linear[1], a.Linear[2]})
}

// SpatialVectorFromVec is the inverse of Vec.
func SpatialVectorFromVec(v mat.Vector) SpatialVector {
	return SpatialVector{
		Angular: mgl64.Vec3{v.AtVec(0), v.AtVec(1), v.AtVec(2)},
		Linear:  mgl64.Vec3{v.AtVec(3), v.AtVec(4), v.AtVec(5)},
	}
}

// Transform is a rigid SE(3) transform: rotation plus translation, mapping
// points/vectors from its own (local/child) frame into the frame it is
// relative to (world/parent).
type Transform struct {
	Rotation    mgl64.Mat3
	Translation mgl64.Vec3
}

// IdentityTransform is the identity pose.
func IdentityTransform() Transform {
	return Transform{Rotation: mgl64.Ident3(), Translation: mgl64.Vec3{}}
}

// Compose returns the transform equivalent to first applying t, then o.
func (t Transform) Compose(o Transform) Transform {
	return Transform{
		Rotation:    o.Rotation.Mul3(t.Rotation),
		Translation: o.Rotation.Mul3x1(t.Translation).Add(o.Translation),
	}
}

// Inverse returns the inverse rigid transform.
func (t Transform) Inverse() Transform {
	rInv := t.Rotation.Transpose()
	return Transform{
		Rotation:    rInv,
		Translation: rInv.Mul3x1(t.Translation).Mul(-1),
	}
}

// ApplyPoint maps a point from this transform's local frame to its parent
// frame.
func (t Transform) ApplyPoint(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Mul3x1(p).Add(t.Translation)
}

// ApplyVector rotates (but does not translate) a free vector.
func (t Transform) ApplyVector(v mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Mul3x1(v)
}

// Ad is the spatial motion adjoint transform of t: it maps a spatial
// vector expressed in t's local (child) frame into the frame t is
// relative to (parent):
//
//	Ad(t) [w;v] = [R w ; R v + p x R w]
func (t Transform) Ad(s SpatialVector) SpatialVector {
	rw := t.Rotation.Mul3x1(s.Angular)
	rv := t.Rotation.Mul3x1(s.Linear)
	return SpatialVector{
		Angular: rw,
		Linear:  rv.Add(t.Translation.Cross(rw)),
	}
}

// AdInv applies Ad(t.Inverse()) without materializing the inverse transform.
func (t Transform) AdInv(s SpatialVector) SpatialVector {
	return t.Inverse().Ad(s)
}

// AdDual is the dual (force) adjoint transform of t, mapping a spatial
// force/impulse expressed in t's local frame into the parent frame:
//
//	AdDual(t) [n;f] = [R n + p x R f ; R f]
func (t Transform) AdDual(s SpatialVector) SpatialVector {
	rf := t.Rotation.Mul3x1(s.Linear)
	rn := t.Rotation.Mul3x1(s.Angular)
	return SpatialVector{
		Angular: rn.Add(t.Translation.Cross(rf)),
		Linear:  rf,
	}
}

func (t Transform) AdDualInv(s SpatialVector) SpatialVector {
	return t.Inverse().AdDual(s)
}

// skewMat3 returns the skew-symmetric cross-product matrix of v.
func skewMat3(v mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3{
		0, v[2], -v[1],
		-v[2], 0, v[0],
		v[1], -v[0], 0,
	}
}

// motionAdjointMatrix returns the 6x6 dense matrix form of Ad(t), in
// [angular;linear] block order, used where the adjoint must be composed or
// transposed rather than just applied to one vector (inertia transport).
func (t Transform) motionAdjointMatrix() *mat.Dense {
	R := t.Rotation
	P := skewMat3(t.Translation)
	PR := P.Mul3(R)

	out := mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, R.At(i, j))
			out.Set(i, j+3, 0)
			out.Set(i+3, j, PR.At(i, j))
			out.Set(i+3, j+3, R.At(i, j))
		}
	}
	return out
}

// SpatialInertia is a rigid body's 6x6 spatial inertia, stored in the
// factored form (mass, local center of mass, rotational inertia about the
// COM) matching how BodyNode stores its rigid-body parameters.
type SpatialInertia struct {
	Mass    float64
	COM     mgl64.Vec3 // center of mass, body-local frame
	Inertia mgl64.Mat3 // rotational inertia about the COM, body-local frame
}

// Dense returns the 6x6 spatial inertia about the body origin (not the
// COM), in [angular;linear] block order:
//
//	[ Ic - m[c][c]   m[c]  ]
//	[ m[c]^T          m I3 ]
func (si SpatialInertia) Dense() *mat.SymDense {
	c := skewMat3(si.COM)
	mc := c.Mul(si.Mass)
	upperLeft := si.Inertia.Sub(c.Mul3(c).Mul(si.Mass))

	out := mat.NewSymDense(6, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			out.SetSym(i, j, upperLeft.At(i, j))
			out.SetSym(i+3, j+3, boolF(i == j)*si.Mass)
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.SetSym(i, j+3, mc.At(i, j))
		}
	}
	return out
}

func boolF(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ArticulatedInertia is a general 6x6 symmetric spatial inertia, the form
// an inertia takes once a joint's reflected child inertia has been folded
// in and it no longer factors into (mass, COM, rotational inertia).
type ArticulatedInertia struct {
	dense *mat.SymDense
}

// FromSpatialInertia lifts a rigid body's factored inertia into the
// general articulated-inertia representation.
func FromSpatialInertia(si SpatialInertia) ArticulatedInertia {
	return ArticulatedInertia{dense: si.Dense()}
}

// NewArticulatedInertia wraps a precomputed 6x6 symmetric dense matrix.
func NewArticulatedInertia(d *mat.SymDense) ArticulatedInertia {
	return ArticulatedInertia{dense: d}
}

func (ai ArticulatedInertia) Dense() *mat.SymDense { return ai.dense }

func (ai ArticulatedInertia) Add(o ArticulatedInertia) ArticulatedInertia {
	var sum mat.SymDense
	sum.AddSym(ai.dense, o.dense)
	return ArticulatedInertia{dense: &sum}
}

// Apply computes the articulated inertia times a spatial vector.
func (ai ArticulatedInertia) Apply(s SpatialVector) SpatialVector {
	var out mat.VecDense
	out.MulVec(ai.dense, s.Vec())
	return SpatialVectorFromVec(&out)
}

// TransformInertia carries an articulated inertia expressed in this
// transform's local (child) frame across into the parent frame:
//
//	I_parent = Ad(t^-1)^T * I_child * Ad(t^-1)
//
// which is the standard congruence law for spatial inertia under a change
// of reference frame.
func (t Transform) TransformInertia(child ArticulatedInertia) ArticulatedInertia {
	xinv := t.Inverse().motionAdjointMatrix()

	var tmp mat.Dense
	tmp.Mul(xinv.T(), child.dense)
	var full mat.Dense
	full.Mul(&tmp, xinv)

	sym := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		for j := i; j < 6; j++ {
			sym.SetSym(i, j, full.At(i, j))
		}
	}
	return ArticulatedInertia{dense: sym}
}
