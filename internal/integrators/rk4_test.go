package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/thermotune/internal/sim"
)

// lagDynamics is a first-order lag driven by u[0] with time constant tau.
type lagDynamics struct{ tau float64 }

func (l *lagDynamics) Derivative(x sim.State, u sim.Control, t float64) sim.State {
	return sim.State{(u[0] - x[0]) / l.tau}
}

func (l *lagDynamics) StateDim() int   { return 1 }
func (l *lagDynamics) ControlDim() int { return 1 }

type oscillator struct{}

func (o *oscillator) Derivative(x sim.State, u sim.Control, t float64) sim.State {
	return sim.State{x[1], -x[0]}
}

func (o *oscillator) StateDim() int   { return 2 }
func (o *oscillator) ControlDim() int { return 0 }

func TestRK4Accuracy(t *testing.T) {
	dyn := &oscillator{}
	integ := NewRK4()

	x := sim.State{1.0, 0.0}
	dt := 0.01
	steps := 100
	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-8 {
		t.Errorf("position error too large: got %.10f, expected %.10f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-8 {
		t.Errorf("velocity error too large: got %.10f, expected %.10f", x[1], expectedV)
	}
}

func TestRK4StepResponse(t *testing.T) {
	dyn := &lagDynamics{tau: 10}
	integ := NewRK4()

	x := sim.State{0}
	for i := 0; i < 100; i++ {
		x = integ.Step(dyn, x, sim.Control{1}, float64(i)*0.1, 0.1)
	}

	expected := 1 - math.Exp(-1)
	if math.Abs(x[0]-expected) > 1e-9 {
		t.Errorf("expected %.10f after one time constant, got %.10f", expected, x[0])
	}
}

func TestEulerMatchesRecursion(t *testing.T) {
	dyn := &lagDynamics{tau: 10}
	integ := NewEuler()

	x := sim.State{0}
	ref := 0.0
	for i := 0; i < 50; i++ {
		x = integ.Step(dyn, x, sim.Control{1}, float64(i)*0.1, 0.1)
		ref += 0.1 * ((1 - ref) / 10)
		if x[0] != ref {
			t.Fatalf("step %d: expected %v, got %v", i, ref, x[0])
		}
	}
}

func TestEulerDoesNotMutateInput(t *testing.T) {
	x := sim.State{0.5}
	NewEuler().Step(&lagDynamics{tau: 1}, x, sim.Control{1}, 0, 0.1)
	if x[0] != 0.5 {
		t.Errorf("input state modified: %v", x)
	}
}

func TestRK4ResizesScratch(t *testing.T) {
	integ := NewRK4()
	integ.Step(&lagDynamics{tau: 1}, sim.State{0}, sim.Control{1}, 0, 0.1)
	x := integ.Step(&oscillator{}, sim.State{1, 0}, nil, 0, 0.1)
	if len(x) != 2 {
		t.Errorf("expected 2 components after switching plants, got %d", len(x))
	}
}
