package deployer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skylift/skylift/pkg/cfapi"
	"github.com/skylift/skylift/pkg/poll"
	"github.com/skylift/skylift/pkg/telemetry"
)

// TaskLauncher orchestrates one-shot task executions: reuse or create the
// backing application, stage it, bind services, and create the task.
type TaskLauncher struct {
	client cfapi.Client
	opts   Options
	tel    *telemetry.Telemetry
	logger *telemetry.Logger
}

// NewTaskLauncher creates a TaskLauncher. A nil tel falls back to no-op
// telemetry.
func NewTaskLauncher(client cfapi.Client, opts Options, tel *telemetry.Telemetry) *TaskLauncher {
	if tel == nil {
		tel = telemetry.NewNop()
	}
	return &TaskLauncher{
		client: client,
		opts:   opts,
		tel:    tel,
		logger: tel.Logger.NewComponentLogger("launcher"),
	}
}

// stagedApp is the outcome of the staging sequence: a started application
// shell with a runnable droplet and its recorded start command.
type stagedApp struct {
	AppGUID     string
	DropletGUID string
	Command     string
}

// Launch runs the full launch sequence and returns the platform task id.
// It blocks until the task is created or the sequence fails.
func (l *TaskLauncher) Launch(ctx context.Context, req *Request) (string, error) {
	start := time.Now()
	l.tel.Metrics.RecordLaunchStarted()

	ctx, span := l.tel.Tracer.StartLaunchSpan(ctx, req.Definition.Name)
	defer span.End()

	taskID, err := l.launch(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		l.tel.Metrics.RecordLaunchCompleted("failed", time.Since(start))
		return "", err
	}
	telemetry.RecordSuccess(span)
	l.tel.Metrics.RecordLaunchCompleted("succeeded", time.Since(start))
	return taskID, nil
}

func (l *TaskLauncher) launch(ctx context.Context, req *Request) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}
	settings, err := resolveSettings(l.opts.Defaults, req)
	if err != nil {
		return "", err
	}

	env, err := buildEnvironment(req.Definition, nil, l.opts.CombinedProperties, l.logger)
	if err != nil {
		return "", err
	}

	staged, err := l.stage(ctx, req, settings, env)
	if err != nil {
		return "", err
	}

	command := staged.Command
	if len(req.Args) > 0 {
		command = command + " " + strings.Join(req.Args, " ")
	}

	task, err := l.client.CreateTask(ctx, cfapi.CreateTaskRequest{
		ApplicationGUID: staged.AppGUID,
		DropletGUID:     staged.DropletGUID,
		Name:            req.Definition.Name,
		Command:         command,
	})
	if err != nil {
		return "", fmt.Errorf("creating task for %s: %w", req.Definition.Name, err)
	}

	l.logger.WithTaskID(task.GUID).Infof("task %s launched", req.Definition.Name)
	return task.GUID, nil
}

// stage resolves the backing application: an existing application's latest
// staged droplet is reused, an absent one is created, uploaded, and staged
// from scratch. Either way the result carries a droplet whose recorded
// "web" command can seed the task command.
func (l *TaskLauncher) stage(ctx context.Context, req *Request, settings *settings, env map[string]string) (*stagedApp, error) {
	name := req.Definition.Name
	logger := l.logger.WithField("app", name)

	apps, err := cfapi.DrainPages(ctx, func(ctx context.Context, page int) (*cfapi.Page[cfapi.Application], error) {
		return l.client.ListApplications(ctx, cfapi.ListApplicationsOptions{Name: name, Page: page})
	})
	if err != nil {
		return nil, fmt.Errorf("looking up application %s: %w", name, err)
	}

	var appGUID string
	if len(apps) > 0 {
		appGUID = apps[0].GUID
		logger.Debug("reusing existing application")
	} else {
		appGUID, err = l.createAndStage(ctx, req, settings, env)
		if err != nil {
			return nil, err
		}
	}

	if err := l.bindServices(ctx, appGUID, settings.Services); err != nil {
		return nil, err
	}

	droplet, err := l.latestStagedDroplet(ctx, appGUID, name)
	if err != nil {
		return nil, err
	}
	command, ok := droplet.ProcessTypes["web"]
	if !ok || command == "" {
		return nil, NewInvariantError("droplet has no web process type", nil).WithResource(name)
	}

	return &stagedApp{AppGUID: appGUID, DropletGUID: droplet.GUID, Command: command}, nil
}

// createAndStage drives the from-scratch path: application shell, package
// upload, readiness poll, staging, staging poll.
func (l *TaskLauncher) createAndStage(ctx context.Context, req *Request, settings *settings, env map[string]string) (string, error) {
	name := req.Definition.Name
	if req.Bits == nil {
		return "", NewInvalidInputError("task staging requires an artifact stream", nil).WithResource(name)
	}
	logger := l.logger.WithField("app", name)
	logger.Info("creating application")

	app, err := l.client.CreateApplication(ctx, cfapi.CreateApplicationRequest{
		Name:        name,
		SpaceGUID:   l.opts.SpaceGUID,
		Buildpack:   settings.Buildpack,
		Environment: env,
	})
	if err != nil {
		return "", fmt.Errorf("creating application %s: %w", name, err)
	}

	pkg, err := l.client.CreatePackage(ctx, app.GUID)
	if err != nil {
		return "", fmt.Errorf("creating package for %s: %w", name, err)
	}
	if _, err := l.client.UploadPackage(ctx, pkg.GUID, req.Bits); err != nil {
		return "", fmt.Errorf("uploading package for %s: %w", name, err)
	}

	s := stager{client: l.client, metrics: l.tel.Metrics, overall: l.opts.StagingTimeout}
	if _, err := s.run(ctx, name, cfapi.StagePackageRequest{
		PackageGUID:     pkg.GUID,
		StagingMemoryMB: settings.MemoryMB,
		StagingDiskMB:   settings.DiskMB,
		Environment:     env,
	}); err != nil {
		return "", err
	}

	logger.Info("application staged")
	return app.GUID, nil
}

// bindServices binds every named service instance to the application.
// Names that resolve to no instance in the space are rejected.
func (l *TaskLauncher) bindServices(ctx context.Context, appGUID string, services []string) error {
	if len(services) == 0 {
		return nil
	}

	instances, err := cfapi.DrainPages(ctx, func(ctx context.Context, page int) (*cfapi.Page[cfapi.ServiceInstance], error) {
		return l.client.ListServiceInstances(ctx, page)
	})
	if err != nil {
		return fmt.Errorf("listing service instances: %w", err)
	}
	byName := make(map[string]string, len(instances))
	for _, instance := range instances {
		byName[instance.Name] = instance.GUID
	}

	for _, service := range services {
		guid, ok := byName[service]
		if !ok {
			return NewInvalidInputError(fmt.Sprintf("service instance %q not found in space", service), nil)
		}
		if err := l.client.CreateServiceBinding(ctx, appGUID, guid); err != nil {
			return fmt.Errorf("binding service %s: %w", service, err)
		}
	}
	return nil
}

// latestStagedDroplet returns the newest STAGED droplet of an application.
func (l *TaskLauncher) latestStagedDroplet(ctx context.Context, appGUID, name string) (*cfapi.Droplet, error) {
	droplets, err := cfapi.DrainPages(ctx, func(ctx context.Context, page int) (*cfapi.Page[cfapi.Droplet], error) {
		return l.client.ListApplicationDroplets(ctx, appGUID, page)
	})
	if err != nil {
		return nil, fmt.Errorf("listing droplets for %s: %w", name, err)
	}
	for i := range droplets {
		if droplets[i].State == cfapi.DropletStateStaged {
			return &droplets[i], nil
		}
	}
	return nil, NewNotFoundError("no staged droplet available", nil).WithResource(name)
}

// Cancel requests cancellation of a task. Cancelling a finished task is
// the platform's concern; no local state is tracked.
func (l *TaskLauncher) Cancel(ctx context.Context, taskID string) error {
	if err := l.client.CancelTask(ctx, taskID); err != nil {
		return fmt.Errorf("cancelling task %s: %w", taskID, err)
	}
	l.logger.WithTaskID(taskID).Info("cancel requested")
	return nil
}

// Status reports the state of a task launch, bounded by the task status
// timeout. Absence reports unknown, retry exhaustion reports error; an
// unsupported remote state is the only returned error.
func (l *TaskLauncher) Status(ctx context.Context, taskID string) (*LaunchStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, l.opts.TaskStatusTimeout)
	defer cancel()

	var task *cfapi.Task
	notFound := errors.New("task absent")

	cfg := poll.Config{
		MaxAttempts:  l.opts.StatusRetryAttempts,
		InitialDelay: l.opts.StatusRetryDelay,
		MaxDelay:     l.opts.StatusRetryDelay * 8,
		Overall:      l.opts.TaskStatusTimeout,
	}
	err := poll.Until(ctx, cfg, func(ctx context.Context) (bool, error) {
		got, err := l.client.GetTask(ctx, taskID)
		if err != nil {
			if cfapi.IsNotFound(err) {
				return false, poll.Fatal(notFound)
			}
			l.tel.Metrics.RecordAPIError(classify(err))
			return false, err
		}
		task = got
		return true, nil
	})

	switch {
	case err == nil:
		state, mapErr := mapTaskState(task.State)
		if mapErr != nil {
			return nil, mapErr
		}
		l.tel.Metrics.RecordStatusQuery("task", string(state))
		return &LaunchStatus{LaunchID: taskID, State: state}, nil
	case errors.Is(err, notFound):
		l.tel.Metrics.RecordStatusQuery("task", string(LaunchStateUnknown))
		return &LaunchStatus{LaunchID: taskID, State: LaunchStateUnknown}, nil
	default:
		l.tel.Metrics.RecordStatusQuery("task", string(LaunchStateError))
		return &LaunchStatus{LaunchID: taskID, State: LaunchStateError, Error: err.Error()}, nil
	}
}
