package cfapi

import (
	"fmt"
	"io"
	"time"
)

// PackageState represents the remote lifecycle state of an uploaded package.
type PackageState string

const (
	// PackageStateAwaitingUpload indicates the package shell exists but no
	// bits have been uploaded yet.
	PackageStateAwaitingUpload PackageState = "AWAITING_UPLOAD"

	// PackageStateProcessingUpload indicates uploaded bits are being processed.
	PackageStateProcessingUpload PackageState = "PROCESSING_UPLOAD"

	// PackageStateReady indicates the package can be staged.
	PackageStateReady PackageState = "READY"

	// PackageStateFailed indicates upload or processing failed.
	PackageStateFailed PackageState = "FAILED"

	// PackageStateExpired indicates the platform expired the package.
	PackageStateExpired PackageState = "EXPIRED"
)

// DropletState represents the remote lifecycle state of a staged droplet.
type DropletState string

const (
	// DropletStatePending indicates staging has not completed yet.
	DropletStatePending DropletState = "PENDING"

	// DropletStateStaging indicates the buildpack is running.
	DropletStateStaging DropletState = "STAGING"

	// DropletStateStaged indicates the droplet is ready to run.
	DropletStateStaged DropletState = "STAGED"

	// DropletStateFailed indicates staging failed.
	DropletStateFailed DropletState = "FAILED"

	// DropletStateExpired indicates the platform expired the droplet.
	DropletStateExpired DropletState = "EXPIRED"
)

// TaskState represents the remote state of a one-shot task.
type TaskState string

const (
	// TaskStatePending indicates the task is queued but not yet running.
	TaskStatePending TaskState = "PENDING"

	// TaskStateRunning indicates the task is executing.
	TaskStateRunning TaskState = "RUNNING"

	// TaskStateSucceeded indicates the task completed successfully.
	TaskStateSucceeded TaskState = "SUCCEEDED"

	// TaskStateCanceling indicates a cancel has been requested.
	TaskStateCanceling TaskState = "CANCELING"

	// TaskStateFailed indicates the task failed.
	TaskStateFailed TaskState = "FAILED"
)

// Application is the v3 application resource.
type Application struct {
	// GUID is the platform-assigned identifier, shared by every instance
	// of the application.
	GUID string `json:"guid"`

	// Name is the space-unique application name.
	Name string `json:"name"`

	// State is the raw application state (STARTED, STOPPED).
	State string `json:"state,omitempty"`

	// CreatedAt is when the platform created the application.
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// InstanceDetail describes one running (or expected) instance of an
// application. Utilization fields are nil when the platform has not
// reported them.
type InstanceDetail struct {
	// Index is the zero-based instance index.
	Index int `json:"index"`

	// State is the raw instance state string (RUNNING, STARTING, DOWN,
	// CRASHED, FLAPPING, UNKNOWN). Mapping to a canonical state is the
	// caller's concern; unknown values must not be coerced here.
	State string `json:"state"`

	// CPU is the fractional CPU utilization (0.0-1.0).
	CPU *float64 `json:"cpu,omitempty"`

	// MemoryUsage and MemoryQuota are in bytes.
	MemoryUsage *int64 `json:"memory_usage,omitempty"`
	MemoryQuota *int64 `json:"memory_quota,omitempty"`

	// DiskUsage and DiskQuota are in bytes.
	DiskUsage *int64 `json:"disk_usage,omitempty"`
	DiskQuota *int64 `json:"disk_quota,omitempty"`
}

// ApplicationDetail is the operations-level view of an application,
// including its routes and per-instance detail.
type ApplicationDetail struct {
	// GUID is the platform-assigned application identifier.
	GUID string `json:"guid"`

	// Name is the application name.
	Name string `json:"name"`

	// URLs are the mapped routes, most significant first.
	URLs []string `json:"urls,omitempty"`

	// Instances is the desired instance count.
	Instances int `json:"instances"`

	// RunningInstances is the count the platform currently reports running.
	RunningInstances int `json:"running_instances"`

	// InstanceDetails holds per-instance state, ordered by index. It may be
	// shorter than Instances while the application is still provisioning.
	InstanceDetails []InstanceDetail `json:"instance_details,omitempty"`
}

// Package is the v3 package resource (uploaded application bits prior to
// staging).
type Package struct {
	GUID  string       `json:"guid"`
	State PackageState `json:"state"`
}

// Droplet is the v3 droplet resource: a staged, runnable artifact derived
// from a package.
type Droplet struct {
	GUID  string       `json:"guid"`
	State DropletState `json:"state"`

	// ProcessTypes maps process type names ("web", "worker") to the start
	// command recorded at staging time. Buildpack staging always records a
	// "web" entry; docker droplets may not.
	ProcessTypes map[string]string `json:"process_types,omitempty"`
}

// Task is the v3 task resource: a one-shot execution of a droplet.
type Task struct {
	GUID    string    `json:"guid"`
	Name    string    `json:"name"`
	State   TaskState `json:"state"`
	Command string    `json:"command,omitempty"`
}

// ServiceInstance is a provisioned service available for binding.
type ServiceInstance struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
}

// Space is the organizational unit applications deploy into.
type Space struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
}

// JobSchedule is one cron schedule attached to a scheduler-service job.
type JobSchedule struct {
	GUID string `json:"guid"`

	// Expression is the cron expression the scheduler evaluates.
	Expression string `json:"expression"`

	// Enabled reports whether the schedule fires.
	Enabled bool `json:"enabled"`
}

// Job is a scheduler-service job: a recurring task launch bound to an
// application.
type Job struct {
	GUID string `json:"guid"`

	// Name is the schedule name the job was created under.
	Name string `json:"name"`

	// ApplicationGUID is the owning application.
	ApplicationGUID string `json:"application_guid"`

	// Command is the task command executed on each trigger.
	Command string `json:"command,omitempty"`

	// Schedules are the cron schedules attached to the job. Listing with
	// detail populates this; a job may legitimately have none attached.
	Schedules []JobSchedule `json:"schedules,omitempty"`
}

// CreateApplicationRequest creates a bare application shell in a space.
type CreateApplicationRequest struct {
	Name      string `json:"name"`
	SpaceGUID string `json:"space_guid"`

	// Buildpack selects the buildpack lifecycle; empty lets the platform
	// detect one.
	Buildpack string `json:"buildpack,omitempty"`

	// Environment variables set on the application shell.
	Environment map[string]string `json:"environment,omitempty"`
}

// StagePackageRequest stages a READY package into a droplet.
type StagePackageRequest struct {
	PackageGUID string `json:"package_guid"`

	// StagingMemoryMB and StagingDiskMB bound the staging container.
	StagingMemoryMB int `json:"staging_memory_in_mb,omitempty"`
	StagingDiskMB   int `json:"staging_disk_in_mb,omitempty"`

	// Environment variables visible during staging and recorded on the
	// droplet.
	Environment map[string]string `json:"environment_variables,omitempty"`
}

// CreateTaskRequest launches a one-shot task against a staged droplet.
type CreateTaskRequest struct {
	ApplicationGUID string `json:"application_guid"`
	DropletGUID     string `json:"droplet_guid"`
	Name            string `json:"name"`
	Command         string `json:"command"`
}

// CreateJobRequest creates a scheduler-service job for an application.
type CreateJobRequest struct {
	ApplicationGUID string `json:"application_guid"`
	Name            string `json:"name"`
	Command         string `json:"command"`
}

// Manifest is the declarative application bundle pushed in one call. The
// remote side owns create-or-update semantics for the application shell.
type Manifest struct {
	// Name is the application name (the externally visible deployment id).
	Name string `json:"name"`

	// Bits is the artifact stream to upload. Exactly one of Bits and
	// DockerImage must be set.
	Bits io.Reader `json:"-"`

	// DockerImage is an image reference deployed instead of uploaded bits.
	DockerImage string `json:"docker_image,omitempty"`

	Buildpack string `json:"buildpack,omitempty"`
	MemoryMB  int    `json:"memory_in_mb,omitempty"`
	DiskMB    int    `json:"disk_in_mb,omitempty"`
	Instances int    `json:"instances,omitempty"`

	// HealthCheckType is one of "port", "process", "http".
	HealthCheckType string `json:"health_check_type,omitempty"`

	// Routing options. Domain/Host/RoutePath compose the route; NoRoute
	// suppresses route creation entirely.
	Domain    string `json:"domain,omitempty"`
	Host      string `json:"host,omitempty"`
	RoutePath string `json:"route_path,omitempty"`
	NoRoute   bool   `json:"no_route,omitempty"`

	// Services are service instance names bound to the application.
	Services []string `json:"services,omitempty"`

	// Environment is the full set of environment variables for the app.
	Environment map[string]string `json:"environment,omitempty"`
}

// PushReceipt identifies what a manifest push created. PackageGUID is set
// only for bits pushes, where the caller still owes staging and a droplet
// assignment; docker pushes have nothing to stage locally.
type PushReceipt struct {
	AppGUID     string
	PackageGUID string
}

// Validate rejects manifests that specify neither or both artifact forms.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest: name is required")
	}
	if (m.Bits == nil) == (m.DockerImage == "") {
		return fmt.Errorf("manifest %s: exactly one of bits and docker image must be set", m.Name)
	}
	return nil
}

// ListApplicationsOptions filters an application listing.
type ListApplicationsOptions struct {
	// Name restricts results to applications with this exact name.
	Name string

	// Page is the 1-based page index.
	Page int
}

// ListJobsOptions filters a scheduler-service job listing.
type ListJobsOptions struct {
	// SpaceGUID scopes the listing to one space.
	SpaceGUID string

	// Page is the 1-based page index.
	Page int

	// Detailed includes the attached schedules in each job.
	Detailed bool
}
