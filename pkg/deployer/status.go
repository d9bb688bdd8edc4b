package deployer

import (
	"fmt"
	"strconv"

	"github.com/skylift/skylift/pkg/cfapi"
)

// Attribute keys published on instance statuses.
const (
	// AttrGUID is the deployer-scoped instance id (name-index).
	AttrGUID = "guid"

	// AttrCFGUID is the platform application guid, shared by all instances.
	AttrCFGUID = "cf-guid"

	// AttrIndex is the zero-based instance index.
	AttrIndex = "index"

	// AttrURL is the first mapped route; url.N holds the Nth route.
	AttrURL = "url"

	// AttrCPU is the instance CPU utilization in percent.
	AttrCPU = "metrics.machine.cpu"

	// AttrMemory is the instance memory utilization in percent of quota.
	AttrMemory = "metrics.machine.memory"

	// AttrDisk is the instance disk utilization in percent of quota.
	AttrDisk = "metrics.machine.disk"
)

// InstanceStatus is the observed state of one application instance.
type InstanceStatus struct {
	// ID is the deployer-scoped instance identifier, name-index. It is
	// distinct from the platform guid, which every instance shares.
	ID string `json:"id"`

	// Index is the zero-based instance index.
	Index int `json:"index"`

	// State is the canonical instance state.
	State DeploymentState `json:"state"`

	// Attributes carries routes, guids, and utilization metrics.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Status is the aggregate observed state of one deployment.
type Status struct {
	// DeploymentID is the platform application name.
	DeploymentID string `json:"deployment_id"`

	// State is the aggregate deployment state.
	State DeploymentState `json:"state"`

	// Instances holds per-instance status, ordered by index.
	Instances []InstanceStatus `json:"instances,omitempty"`

	// Error describes why the state is StateError, when it is.
	Error string `json:"error,omitempty"`
}

// InstanceID composes the deployer-scoped id for one instance of a
// deployment.
func InstanceID(deploymentID string, index int) string {
	return fmt.Sprintf("%s-%d", deploymentID, index)
}

// errorStatus builds the typed never-throw status for a failed query.
func errorStatus(deploymentID string, err error) *Status {
	return &Status{
		DeploymentID: deploymentID,
		State:        StateError,
		Error:        err.Error(),
	}
}

// unknownStatus builds the status for a deployment the platform has no
// record of.
func unknownStatus(deploymentID string) *Status {
	return &Status{DeploymentID: deploymentID, State: StateUnknown}
}

// buildStatus synthesizes the aggregate status from the operations-level
// application detail. Expected instances missing from the platform report
// are synthesized as failed so the aggregate always covers the full
// desired count.
func buildStatus(deploymentID string, detail *cfapi.ApplicationDetail) (*Status, error) {
	reported := make(map[int]cfapi.InstanceDetail, len(detail.InstanceDetails))
	for _, inst := range detail.InstanceDetails {
		reported[inst.Index] = inst
	}

	count := detail.Instances
	if count < len(detail.InstanceDetails) {
		count = len(detail.InstanceDetails)
	}

	instances := make([]InstanceStatus, 0, count)
	states := make([]DeploymentState, 0, count)
	for index := 0; index < count; index++ {
		status := InstanceStatus{
			ID:         InstanceID(deploymentID, index),
			Index:      index,
			State:      StateFailed,
			Attributes: instanceAttributes(deploymentID, index, detail),
		}
		if inst, ok := reported[index]; ok {
			state, err := mapInstanceState(inst.State)
			if err != nil {
				return nil, err
			}
			status.State = state
			addUtilization(status.Attributes, inst)
		}
		instances = append(instances, status)
		states = append(states, status.State)
	}

	return &Status{
		DeploymentID: deploymentID,
		State:        reduceInstanceStates(states),
		Instances:    instances,
	}, nil
}

func instanceAttributes(deploymentID string, index int, detail *cfapi.ApplicationDetail) map[string]string {
	attrs := map[string]string{
		AttrGUID:   InstanceID(deploymentID, index),
		AttrCFGUID: detail.GUID,
		AttrIndex:  strconv.Itoa(index),
	}
	for i, u := range detail.URLs {
		if i == 0 {
			attrs[AttrURL] = u
		}
		attrs[fmt.Sprintf("%s.%d", AttrURL, i)] = u
	}
	return attrs
}

func addUtilization(attrs map[string]string, inst cfapi.InstanceDetail) {
	if inst.CPU != nil {
		attrs[AttrCPU] = percent(*inst.CPU * 100)
	}
	if inst.MemoryUsage != nil && inst.MemoryQuota != nil && *inst.MemoryQuota > 0 {
		attrs[AttrMemory] = percent(float64(*inst.MemoryUsage) / float64(*inst.MemoryQuota) * 100)
	}
	if inst.DiskUsage != nil && inst.DiskQuota != nil && *inst.DiskQuota > 0 {
		attrs[AttrDisk] = percent(float64(*inst.DiskUsage) / float64(*inst.DiskQuota) * 100)
	}
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// LaunchStatus is the observed state of one task launch.
type LaunchStatus struct {
	// LaunchID is the platform task guid.
	LaunchID string `json:"launch_id"`

	// State is the canonical launch state.
	State LaunchState `json:"state"`

	// Error describes why the state is LaunchStateError, when it is.
	Error string `json:"error,omitempty"`
}
