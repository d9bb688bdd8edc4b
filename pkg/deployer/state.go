package deployer

import (
	"fmt"

	"github.com/skylift/skylift/pkg/cfapi"
)

// DeploymentState is the canonical state of a deployed application or one
// of its instances.
type DeploymentState string

const (
	// StateDeploying indicates the application is still coming up.
	StateDeploying DeploymentState = "deploying"

	// StateDeployed indicates the application is serving.
	StateDeployed DeploymentState = "deployed"

	// StatePartial indicates some instances are serving and some are not.
	// Aggregate-only; a single instance is never partial.
	StatePartial DeploymentState = "partial"

	// StateFailed indicates the application or instance crashed or is
	// missing from the platform's instance report.
	StateFailed DeploymentState = "failed"

	// StateUnknown indicates the platform could not determine the state,
	// or the deployment does not exist.
	StateUnknown DeploymentState = "unknown"

	// StateError indicates status could not be computed at all, after
	// retries. Status queries report this instead of failing.
	StateError DeploymentState = "error"
)

// Validate checks that the state is one of the defined values.
func (s DeploymentState) Validate() error {
	switch s {
	case StateDeploying, StateDeployed, StatePartial, StateFailed, StateUnknown, StateError:
		return nil
	}
	return fmt.Errorf("invalid deployment state: %s", s)
}

// LaunchState is the canonical state of a one-shot task launch.
type LaunchState string

const (
	// LaunchStateLaunching indicates the task is queued but not running.
	LaunchStateLaunching LaunchState = "launching"

	// LaunchStateRunning indicates the task is executing.
	LaunchStateRunning LaunchState = "running"

	// LaunchStateComplete indicates the task finished successfully.
	LaunchStateComplete LaunchState = "complete"

	// LaunchStateCancelled indicates cancellation was requested or took
	// effect.
	LaunchStateCancelled LaunchState = "cancelled"

	// LaunchStateFailed indicates the task failed.
	LaunchStateFailed LaunchState = "failed"

	// LaunchStateError indicates the launch status could not be computed.
	LaunchStateError LaunchState = "error"

	// LaunchStateUnknown indicates the task does not exist.
	LaunchStateUnknown LaunchState = "unknown"
)

// Validate checks that the state is one of the defined values.
func (s LaunchState) Validate() error {
	switch s {
	case LaunchStateLaunching, LaunchStateRunning, LaunchStateComplete,
		LaunchStateCancelled, LaunchStateFailed, LaunchStateError, LaunchStateUnknown:
		return nil
	}
	return fmt.Errorf("invalid launch state: %s", s)
}

// IsTerminal reports whether the launch can no longer make progress.
func (s LaunchState) IsTerminal() bool {
	switch s {
	case LaunchStateComplete, LaunchStateCancelled, LaunchStateFailed:
		return true
	}
	return false
}

// mapInstanceState maps a raw platform instance state to the canonical
// deployment state. The mapping is closed: a raw state with no entry is an
// invariant violation, never silently coerced.
func mapInstanceState(raw string) (DeploymentState, error) {
	switch raw {
	case "STARTING", "DOWN":
		return StateDeploying, nil
	case "CRASHED":
		return StateFailed, nil
	// FLAPPING instances still serve intermittently; they report deployed.
	case "FLAPPING", "RUNNING":
		return StateDeployed, nil
	case "UNKNOWN":
		return StateUnknown, nil
	}
	return "", NewInvariantError(fmt.Sprintf("unsupported instance state %q", raw), nil)
}

// mapTaskState maps a raw platform task state to the canonical launch
// state. Closed mapping, same rules as mapInstanceState.
func mapTaskState(raw cfapi.TaskState) (LaunchState, error) {
	switch raw {
	case cfapi.TaskStateSucceeded:
		return LaunchStateComplete, nil
	case cfapi.TaskStateRunning:
		return LaunchStateRunning, nil
	case cfapi.TaskStatePending:
		return LaunchStateLaunching, nil
	case cfapi.TaskStateCanceling:
		return LaunchStateCancelled, nil
	case cfapi.TaskStateFailed:
		return LaunchStateFailed, nil
	}
	return "", NewInvariantError(fmt.Sprintf("unsupported task state %q", raw), nil)
}

// reduceInstanceStates folds per-instance states into one aggregate.
//
// An empty set reports unknown (nothing observed). A set with exactly one
// distinct state reports that state. Mixed sets reduce by precedence:
// error wins, then deploying, then partial when any instance is serving,
// then failed.
func reduceInstanceStates(states []DeploymentState) DeploymentState {
	if len(states) == 0 {
		return StateUnknown
	}

	distinct := make(map[DeploymentState]bool, len(states))
	for _, s := range states {
		distinct[s] = true
	}
	if len(distinct) == 1 {
		return states[0]
	}
	if distinct[StateError] {
		return StateError
	}
	if distinct[StateDeploying] {
		return StateDeploying
	}
	if distinct[StateDeployed] {
		return StatePartial
	}
	return StateFailed
}
