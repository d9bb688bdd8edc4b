package deployer

import (
	"testing"

	"github.com/skylift/skylift/pkg/cfapi"
)

func TestMapInstanceState(t *testing.T) {
	tests := []struct {
		raw  string
		want DeploymentState
	}{
		{"STARTING", StateDeploying},
		{"DOWN", StateDeploying},
		{"CRASHED", StateFailed},
		{"FLAPPING", StateDeployed},
		{"RUNNING", StateDeployed},
		{"UNKNOWN", StateUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := mapInstanceState(tt.raw)
			if err != nil {
				t.Fatalf("mapInstanceState(%s) failed: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("mapInstanceState(%s) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMapInstanceStateUnsupportedIsFatal(t *testing.T) {
	for _, raw := range []string{"EXPLODED", "", "running"} {
		_, err := mapInstanceState(raw)
		if err == nil {
			t.Errorf("mapInstanceState(%q) did not fail", raw)
			continue
		}
		if !IsInvariant(err) {
			t.Errorf("mapInstanceState(%q) error not classified invariant: %v", raw, err)
		}
	}
}

func TestMapTaskState(t *testing.T) {
	tests := []struct {
		raw  cfapi.TaskState
		want LaunchState
	}{
		{cfapi.TaskStateSucceeded, LaunchStateComplete},
		{cfapi.TaskStateRunning, LaunchStateRunning},
		{cfapi.TaskStatePending, LaunchStateLaunching},
		{cfapi.TaskStateCanceling, LaunchStateCancelled},
		{cfapi.TaskStateFailed, LaunchStateFailed},
	}
	for _, tt := range tests {
		got, err := mapTaskState(tt.raw)
		if err != nil {
			t.Fatalf("mapTaskState(%s) failed: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("mapTaskState(%s) = %s, want %s", tt.raw, got, tt.want)
		}
	}

	if _, err := mapTaskState("PAUSED"); err == nil || !IsInvariant(err) {
		t.Errorf("expected invariant error for unsupported task state, got %v", err)
	}
}

func TestReduceInstanceStates(t *testing.T) {
	tests := []struct {
		name   string
		states []DeploymentState
		want   DeploymentState
	}{
		{"empty", nil, StateUnknown},
		{"all deployed", []DeploymentState{StateDeployed, StateDeployed}, StateDeployed},
		{"all failed", []DeploymentState{StateFailed, StateFailed}, StateFailed},
		{"single unknown", []DeploymentState{StateUnknown}, StateUnknown},
		{"error wins", []DeploymentState{StateDeployed, StateError}, StateError},
		{"deploying beats partial", []DeploymentState{StateDeploying, StateDeployed}, StateDeploying},
		{"mixed deployed and failed", []DeploymentState{StateDeployed, StateFailed}, StatePartial},
		{"failed and unknown", []DeploymentState{StateFailed, StateUnknown}, StateFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reduceInstanceStates(tt.states); got != tt.want {
				t.Errorf("reduceInstanceStates(%v) = %s, want %s", tt.states, got, tt.want)
			}
		})
	}
}

func TestLaunchStateTerminal(t *testing.T) {
	terminal := []LaunchState{LaunchStateComplete, LaunchStateCancelled, LaunchStateFailed}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []LaunchState{LaunchStateLaunching, LaunchStateRunning, LaunchStateUnknown, LaunchStateError} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
