package skeldyn

// WeldJoint rigidly fixes the child body to the parent: zero degrees of
// freedom. It exists so a skeleton can attach a body without giving it
// independent motion, the same role Weld plays in DART.
type WeldJoint struct{}

// NewWeldJoint returns a Joint with zero GenCoords.
func NewWeldJoint(name string) *Joint {
	return newJoint(name, &WeldJoint{}, nil)
}

func (WeldJoint) Dof() int { return 0 }

func (WeldJoint) ChildTransform(j *Joint) Transform { return IdentityTransform() }

func (WeldJoint) MotionSubspace(j *Joint) []SpatialVector      { return nil }
func (WeldJoint) MotionSubspaceDeriv(j *Joint) []SpatialVector { return nil }

func (WeldJoint) IntegratePositions(j *Joint, h float64) {}
