package control

import (
	"math"
	"testing"

	"github.com/san-kum/thermotune/internal/sim"
)

func TestPIFeedForward_HoldsAtSetpoint(t *testing.T) {
	ctrl := NewPIFeedForward(2, 100, 0.01, 130, 70)

	u := ctrl.Compute(sim.State{130, 0}, 0)
	if math.Abs(u[0]-0.6) > 1e-12 {
		t.Errorf("expected feed-forward duty 0.6, got %v", u[0])
	}
	u = ctrl.Compute(sim.State{130, 0}, 1)
	if math.Abs(u[0]-0.6) > 1e-12 {
		t.Errorf("expected duty to stay at 0.6 with zero error, got %v", u[0])
	}
}

func TestPIFeedForward_ProportionalAndIntegral(t *testing.T) {
	ctrl := NewPIFeedForward(0.1, 10, 0, 100, 100)

	u := ctrl.Compute(sim.State{99}, 0)
	if math.Abs(u[0]-0.1) > 1e-12 {
		t.Errorf("expected proportional duty 0.1, got %v", u[0])
	}

	// One second of unit error adds Kp*1/Ti = 0.01.
	u = ctrl.Compute(sim.State{99}, 1)
	if math.Abs(u[0]-0.11) > 1e-12 {
		t.Errorf("expected 0.11 after integrating, got %v", u[0])
	}
}

func TestPIFeedForward_Clamps(t *testing.T) {
	ctrl := NewPIFeedForward(10, 100, 0, 130, 70)

	if u := ctrl.Compute(sim.State{60}, 0); u[0] != 1 {
		t.Errorf("expected full duty far below setpoint, got %v", u[0])
	}
	if u := ctrl.Compute(sim.State{200}, 1); u[0] != 0 {
		t.Errorf("expected heater off far above setpoint, got %v", u[0])
	}
}

func TestPIFeedForward_AntiWindup(t *testing.T) {
	ctrl := NewPIFeedForward(10, 100, 0, 130, 70)

	for i := 0; i < 1000; i++ {
		ctrl.Compute(sim.State{60}, float64(i))
	}
	if ctrl.integral != 0 {
		t.Errorf("integral wound up while saturated: %v", ctrl.integral)
	}

	// Back at the setpoint the output must not stay pinned.
	u := ctrl.Compute(sim.State{130}, 1000)
	if u[0] >= 1 {
		t.Errorf("expected unsaturated output at setpoint, got %v", u[0])
	}
}

func TestPIFeedForward_Reset(t *testing.T) {
	ctrl := NewPIFeedForward(0.1, 10, 0, 100, 100)
	ctrl.Compute(sim.State{99}, 0)
	ctrl.Compute(sim.State{99}, 5)

	ctrl.Reset()
	u := ctrl.Compute(sim.State{99}, 7)
	if math.Abs(u[0]-0.1) > 1e-12 {
		t.Errorf("expected integral cleared by Reset, got %v", u[0])
	}
}

func TestPIFeedForward_Params(t *testing.T) {
	ctrl := NewPIFeedForward(1, 2, 3, 4, 5)
	ctrl.SetParam("Kp", 9)
	ctrl.SetParam("Setpoint", 131)
	ctrl.SetParam("Unknown", 1)

	params := ctrl.GetParams()
	if params["Kp"] != 9 || params["Setpoint"] != 131 || params["Ti"] != 2 {
		t.Errorf("unexpected params %v", params)
	}
	if len(params) != 5 {
		t.Errorf("expected 5 params, got %d", len(params))
	}
}

func TestPIFeedForward_EmptyState(t *testing.T) {
	ctrl := NewPIFeedForward(1, 1, 1, 1, 0)
	if u := ctrl.Compute(sim.State{}, 0); len(u) != 1 || u[0] != 0 {
		t.Errorf("expected single zero output, got %v", u)
	}
}

func TestConstant(t *testing.T) {
	ctrl := NewConstant(0.4)
	u := ctrl.Compute(sim.State{1.0, 2.0}, 3.0)
	if len(u) != 1 || u[0] != 0.4 {
		t.Errorf("expected [0.4], got %v", u)
	}
}
