package skeldyn_test

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/go-gl/mathgl/mgl64"
)

// TestWorldCOMLinearity checks property 11: worldCOM equals the
// mass-weighted average of every body's own COM, exactly.
func TestWorldCOMLinearity(t *testing.T) {
	sk, _, _ := newPendulumSkeleton(0.001, mgl64.Vec3{0, 0, -9.81})

	q := mat.NewVecDense(sk.Dof(), []float64{0.4, -0.6})
	sk.SetPositions(q, true, true, true)

	var sum mgl64.Vec3
	total := 0.0
	for i := 0; i < sk.NumBodyNodes(); i++ {
		b := sk.GetBodyNode(i)
		if b.Mass() == 0 {
			continue
		}
		sum = sum.Add(b.WorldCOM().Mul(b.Mass()))
		total += b.Mass()
	}
	want := sum.Mul(1 / total)
	got := sk.GetWorldCOM()

	for i := 0; i < 3; i++ {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("worldCOM[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

// TestFreeFallDrop checks property 9: a single 6-dof free-jointed body
// released from rest falls according to z(t) = -1/2 g t^2 under
// semi-implicit Euler integration.
func TestFreeFallDrop(t *testing.T) {
	const h = 0.001
	const steps = 1000
	sk := newFreeFallSkeleton(h, mgl64.Vec3{0, 0, -9.81})

	for i := 0; i < steps; i++ {
		sk.ComputeForwardDynamics()
		sk.IntegrateGenVels(h)
		sk.IntegrateConfigs(h)
		sk.ComputeForwardKinematics(true, true, false)
	}

	body := sk.GetBodyNode(0)
	z := body.WorldCOM()[2]
	const want = -4.905
	if math.Abs(z-want) > 5e-3 {
		t.Errorf("final z = %v after %d steps, want %v ± 5e-3", z, steps, want)
	}
}

// TestPendulumEnergyBehavior checks property 10: a two-link pendulum
// released from horizontal gains kinetic energy monotonically over its
// first 100ms of fall, and total mechanical energy drifts by less than 1%
// over a 2s integration under semi-implicit Euler.
func TestPendulumEnergyBehavior(t *testing.T) {
	const h = 0.001
	sk, _, _ := newPendulumSkeleton(h, mgl64.Vec3{0, 0, -9.81})

	// q=0 puts both rods flat along x, i.e. horizontal; gravity acting in
	// -z still exerts a torque about each joint's y axis since each rod's
	// COM is offset along x, so the pendulum starts swinging immediately.
	e0 := sk.GetKineticEnergy() + sk.GetPotentialEnergy()
	// PE is gauge-zero at this horizontal pose (every COM has z=0), so
	// relative drift is measured against the energy scale the swing
	// actually exchanges (m*g*L per rod) rather than against e0 itself.
	const energyScale = 2 * 9.81 * 1.0

	lastKE := sk.GetKineticEnergy()
	const earlyWindow = 0.1
	earlySteps := int(earlyWindow / h)
	for i := 0; i < earlySteps; i++ {
		sk.ComputeForwardDynamics()
		sk.IntegrateGenVels(h)
		sk.IntegrateConfigs(h)
		sk.ComputeForwardKinematics(true, true, false)

		ke := sk.GetKineticEnergy()
		if ke < lastKE-1e-9 {
			t.Errorf("kinetic energy decreased at step %d: %v -> %v", i, lastKE, ke)
		}
		lastKE = ke
	}

	const totalTime = 2.0
	totalSteps := int(totalTime / h)
	for i := earlySteps; i < totalSteps; i++ {
		sk.ComputeForwardDynamics()
		sk.IntegrateGenVels(h)
		sk.IntegrateConfigs(h)
		sk.ComputeForwardKinematics(true, true, false)
	}

	eFinal := sk.GetKineticEnergy() + sk.GetPotentialEnergy()
	drift := math.Abs(eFinal-e0) / energyScale
	if drift > 0.01 {
		t.Errorf("energy drift over %vs = %v, want < 1%%", totalTime, drift)
	}
}
