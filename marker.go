package skeldyn

import "github.com/go-gl/mathgl/mgl64"

// Marker is a named point rigidly attached to a BodyNode, used by external
// tools (motion capture fitting, IK goals) that need a stable handle into
// the skeleton's geometry without owning a full body.
type Marker struct {
	name       string
	body       *BodyNode
	localPos   mgl64.Vec3
}

// NewMarker attaches a marker at localPos in body's local frame.
func NewMarker(name string, body *BodyNode, localPos mgl64.Vec3) *Marker {
	return &Marker{name: name, body: body, localPos: localPos}
}

func (m *Marker) Name() string      { return m.name }
func (m *Marker) Body() *BodyNode   { return m.body }
func (m *Marker) LocalPosition() mgl64.Vec3 { return m.localPos }

// WorldPosition returns the marker's current position in the world frame.
func (m *Marker) WorldPosition() mgl64.Vec3 {
	return m.body.WorldTransform().ApplyPoint(m.localPos)
}
