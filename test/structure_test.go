package skeldyn_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// TestBFSOrdering checks property 1: after Init every non-root body's
// index is strictly greater than its parent's.
func TestBFSOrdering(t *testing.T) {
	sk, _, _ := newPendulumSkeleton(0.001, mgl64.Vec3{0, 0, -9.81})
	for i := 0; i < sk.NumBodyNodes(); i++ {
		b := sk.GetBodyNode(i)
		if b.Parent() == nil {
			continue
		}
		if !(b.Parent().Index() < b.Index()) {
			t.Errorf("body %q (index %d) has parent %q at index %d, want parent index < child index",
				b.Name(), b.Index(), b.Parent().Name(), b.Parent().Index())
		}
	}
}

func TestStructuralLookups(t *testing.T) {
	sk, link1, link2 := newPendulumSkeleton(0.001, mgl64.Vec3{0, 0, -9.81})

	if sk.NumBodyNodes() != 3 {
		t.Fatalf("NumBodyNodes() = %d, want 3", sk.NumBodyNodes())
	}
	if sk.GetRootBodyNode().Name() != "base" {
		t.Errorf("root body = %q, want base", sk.GetRootBodyNode().Name())
	}
	if sk.GetBodyNodeByName("link1") != link1 {
		t.Errorf("GetBodyNodeByName(link1) did not return the body added as link1")
	}
	if sk.GetBodyNodeByName("link2") != link2 {
		t.Errorf("GetBodyNodeByName(link2) did not return the body added as link2")
	}
	if sk.GetBodyNodeByName("nope") != nil {
		t.Errorf("GetBodyNodeByName(nope) = non-nil, want nil for absent name")
	}
	if sk.GetJointByName("j1") == nil {
		t.Errorf("GetJointByName(j1) = nil")
	}
	if sk.Dof() != 2 {
		t.Errorf("Dof() = %d, want 2 (one revolute joint per link)", sk.Dof())
	}
}

func TestMassTotals(t *testing.T) {
	sk, _, _ := newPendulumSkeleton(0.001, mgl64.Vec3{0, 0, -9.81})
	if sk.GetMass() != 2.0 {
		t.Errorf("GetMass() = %v, want 2 (two unit-mass rods, the fixed base contributes nothing)", sk.GetMass())
	}
}
