package cfapi

import (
	"context"
	"io"
)

// Applications covers the application resource lifecycle plus the
// operations-level views the status reconciler depends on.
type Applications interface {
	// CreateApplication creates a bare application shell.
	CreateApplication(ctx context.Context, req CreateApplicationRequest) (*Application, error)

	// GetApplication retrieves an application by GUID.
	GetApplication(ctx context.Context, guid string) (*Application, error)

	// ListApplications returns one page of applications matching opts.
	ListApplications(ctx context.Context, opts ListApplicationsOptions) (*Page[Application], error)

	// DeleteApplication deletes an application and its routes.
	DeleteApplication(ctx context.Context, guid string) error

	// GetApplicationDetail retrieves the instance-level view by name.
	GetApplicationDetail(ctx context.Context, name string) (*ApplicationDetail, error)

	// GetApplicationEnv returns the user-provided environment by name.
	GetApplicationEnv(ctx context.Context, name string) (map[string]string, error)

	// ListApplicationDroplets returns one page of an application's droplets,
	// newest first.
	ListApplicationDroplets(ctx context.Context, guid string, page int) (*Page[Droplet], error)

	// PushManifest pushes the declarative application bundle in one call.
	// The platform owns create-or-update semantics for the shell. The
	// receipt names the resolved application and, for bits pushes, the
	// uploaded package awaiting staging.
	PushManifest(ctx context.Context, m Manifest) (*PushReceipt, error)

	// SetCurrentDroplet assigns the droplet an application runs from.
	SetCurrentDroplet(ctx context.Context, appGUID, dropletGUID string) error

	// StartApplication starts a pushed application by name.
	StartApplication(ctx context.Context, name string) error
}

// Packages covers uploaded application bits prior to staging.
type Packages interface {
	// CreatePackage creates an empty bits package for an application.
	CreatePackage(ctx context.Context, appGUID string) (*Package, error)

	// GetPackage retrieves a package by GUID. Used by readiness polls.
	GetPackage(ctx context.Context, guid string) (*Package, error)

	// UploadPackage streams application bits into a package.
	UploadPackage(ctx context.Context, guid string, bits io.Reader) (*Package, error)
}

// Droplets covers staged artifacts.
type Droplets interface {
	// StagePackage stages a READY package into a droplet.
	StagePackage(ctx context.Context, req StagePackageRequest) (*Droplet, error)

	// GetDroplet retrieves a droplet by GUID. Used by readiness polls.
	GetDroplet(ctx context.Context, guid string) (*Droplet, error)
}

// Tasks covers one-shot executions.
type Tasks interface {
	// CreateTask launches a task from a droplet.
	CreateTask(ctx context.Context, req CreateTaskRequest) (*Task, error)

	// GetTask retrieves a task by GUID.
	GetTask(ctx context.Context, guid string) (*Task, error)

	// CancelTask requests cancellation. Cancelling a finished task is the
	// platform's concern; the call is idempotent by construction.
	CancelTask(ctx context.Context, guid string) error
}

// Services covers service instances and bindings.
type Services interface {
	// ListServiceInstances returns one page of bindable service instances
	// in the configured space.
	ListServiceInstances(ctx context.Context, page int) (*Page[ServiceInstance], error)

	// CreateServiceBinding binds a service instance to an application.
	CreateServiceBinding(ctx context.Context, appGUID, serviceInstanceGUID string) error
}

// Jobs covers the external scheduler service.
type Jobs interface {
	// CreateJob creates a job bound to an application.
	CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error)

	// ScheduleJob attaches a cron expression to a job.
	ScheduleJob(ctx context.Context, jobGUID, cronExpression string) (*JobSchedule, error)

	// DeleteJob removes a job and its schedules.
	DeleteJob(ctx context.Context, jobGUID string) error

	// ListJobs returns one page of jobs matching opts.
	ListJobs(ctx context.Context, opts ListJobsOptions) (*Page[Job], error)
}

// Spaces covers space lookup.
type Spaces interface {
	// ListSpaces returns one page of visible spaces, optionally filtered
	// by exact name.
	ListSpaces(ctx context.Context, name string, page int) (*Page[Space], error)
}

// Client aggregates every platform operation the orchestrators consume.
type Client interface {
	Applications
	Packages
	Droplets
	Tasks
	Services
	Jobs
	Spaces
}
