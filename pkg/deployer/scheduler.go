package deployer

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/skylift/skylift/pkg/cfapi"
	"github.com/skylift/skylift/pkg/stores"
	"github.com/skylift/skylift/pkg/telemetry"
)

// ScheduleRequest asks for a recurring launch of a task definition.
type ScheduleRequest struct {
	// ScheduleName is the externally visible schedule name.
	ScheduleName string

	// CronExpression is validated locally before any remote mutation.
	CronExpression string

	// Request describes the task to stage; its definition name is the
	// task-definition name recorded for the schedule.
	Request *Request
}

// ScheduleInfo describes one existing schedule.
type ScheduleInfo struct {
	// ScheduleName is the schedule's name.
	ScheduleName string `json:"schedule_name"`

	// TaskDefinitionName is the owning task definition, resolved from the
	// local cache or backfilled from the remote environment.
	TaskDefinitionName string `json:"task_definition_name"`

	// CronExpression is the attached cron expression, empty when the job
	// has no schedule attached.
	CronExpression string `json:"cron_expression,omitempty"`
}

// Scheduler manages recurring task launches through the external
// scheduler service.
//
// The schedule-name cache is best-effort: entries are populated on
// creation and opportunistically during listing, removed on unschedule,
// and never treated as authoritative.
type Scheduler struct {
	client   cfapi.Client
	launcher *TaskLauncher
	cache    stores.ScheduleCache
	opts     Options
	tel      *telemetry.Telemetry
	logger   *telemetry.Logger
}

// NewScheduler creates a Scheduler sharing the launcher's staging
// machinery. A nil cache falls back to an in-memory one; a nil tel falls
// back to no-op telemetry.
func NewScheduler(client cfapi.Client, launcher *TaskLauncher, cache stores.ScheduleCache, opts Options, tel *telemetry.Telemetry) *Scheduler {
	if cache == nil {
		cache = stores.NewMemoryCache()
	}
	if tel == nil {
		tel = telemetry.NewNop()
	}
	return &Scheduler{
		client:   client,
		launcher: launcher,
		cache:    cache,
		opts:     opts,
		tel:      tel,
		logger:   tel.Logger.NewComponentLogger("scheduler"),
	}
}

// Schedule stages the task once, then creates the job and attaches the
// cron expression. The create-and-attach pair retries only on the SSL
// failure class; any terminal failure triggers a best-effort deletion of
// the just-created job before the error is returned.
func (s *Scheduler) Schedule(ctx context.Context, req *ScheduleRequest) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ScheduleTimeout)
	defer cancel()

	ctx, span := s.tel.Tracer.StartScheduleSpan(ctx, "create", req.ScheduleName)
	defer span.End()

	err := s.schedule(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		s.tel.Metrics.RecordScheduleCreated("failed")
		return err
	}
	telemetry.RecordSuccess(span)
	s.tel.Metrics.RecordScheduleCreated("succeeded")
	return nil
}

func (s *Scheduler) schedule(ctx context.Context, req *ScheduleRequest) error {
	if req.ScheduleName == "" {
		return NewInvalidInputError("schedule name is required", nil)
	}
	if _, err := cron.ParseStandard(req.CronExpression); err != nil {
		return NewInvalidInputError(
			fmt.Sprintf("malformed cron expression %q", req.CronExpression), err).WithResource(req.ScheduleName)
	}
	if err := validateRequest(req.Request); err != nil {
		return err
	}
	settings, err := resolveSettings(s.opts.Defaults, req.Request)
	if err != nil {
		return err
	}

	taskDefinition := req.Request.Definition.Name
	logger := s.logger.WithScheduleName(req.ScheduleName)

	// The staging environment carries the task definition name so listing
	// can recover it from the remote side after a restart.
	definition := req.Request.Definition
	definition.Properties = withTaskDefinition(definition.Properties, taskDefinition)
	env, err := buildEnvironment(definition, nil, s.opts.CombinedProperties, logger)
	if err != nil {
		return err
	}

	staged, err := s.launcher.stage(ctx, req.Request, settings, env)
	if err != nil {
		return fmt.Errorf("staging %s for schedule: %w", taskDefinition, err)
	}

	if err := s.createJobWithRetry(ctx, req, staged); err != nil {
		return err
	}

	if err := s.cache.Put(ctx, req.ScheduleName, taskDefinition); err != nil {
		logger.WithError(err).Warn("schedule created but cache write failed")
	}
	logger.Infof("schedule created with expression %s", req.CronExpression)
	return nil
}

// createJobWithRetry runs the create-job and attach-schedule pair,
// retrying the pair only when the failure classifies as SSL.
func (s *Scheduler) createJobWithRetry(ctx context.Context, req *ScheduleRequest, staged *stagedApp) error {
	var lastErr error

	for attempt := 0; attempt <= s.opts.ScheduleSSLRetries; attempt++ {
		var createdJobGUID string
		job, err := s.client.CreateJob(ctx, cfapi.CreateJobRequest{
			ApplicationGUID: staged.AppGUID,
			Name:            req.ScheduleName,
			Command:         staged.Command,
		})
		if err == nil {
			createdJobGUID = job.GUID
			if _, err = s.client.ScheduleJob(ctx, job.GUID, req.CronExpression); err == nil {
				return nil
			}
		}

		lastErr = err
		s.rollbackJob(ctx, req.ScheduleName, createdJobGUID)
		if !cfapi.IsSSL(err) {
			break
		}
		s.logger.WithScheduleName(req.ScheduleName).WithError(err).
			Warnf("ssl failure creating schedule, attempt %d/%d", attempt+1, s.opts.ScheduleSSLRetries+1)
	}

	if cfapi.IsSSL(lastErr) {
		return NewSSLError("schedule creation failed after ssl retries", lastErr).WithResource(req.ScheduleName)
	}
	return NewTransientError("schedule creation failed", lastErr).WithResource(req.ScheduleName)
}

// rollbackJob best-effort deletes a partially created job. Absence during
// rollback is ignored.
func (s *Scheduler) rollbackJob(ctx context.Context, scheduleName, jobGUID string) {
	if jobGUID == "" {
		return
	}
	if err := s.client.DeleteJob(ctx, jobGUID); err != nil && !cfapi.IsNotFound(err) {
		s.logger.WithScheduleName(scheduleName).WithError(err).
			Warn("rollback of partially created job failed")
	}
}

// Unschedule removes the cache entry, resolves the job by a full
// paginated scan, and deletes it. An absent job is a not-found error.
func (s *Scheduler) Unschedule(ctx context.Context, scheduleName string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.UnscheduleTimeout)
	defer cancel()

	if err := s.cache.Remove(ctx, scheduleName); err != nil {
		s.logger.WithScheduleName(scheduleName).WithError(err).Warn("cache removal failed")
	}

	job, err := s.findJobByName(ctx, scheduleName)
	if err != nil {
		return err
	}
	if err := s.client.DeleteJob(ctx, job.GUID); err != nil {
		return fmt.Errorf("deleting job for schedule %s: %w", scheduleName, err)
	}

	s.tel.Metrics.RecordScheduleDeleted()
	s.logger.WithScheduleName(scheduleName).Info("schedule removed")
	return nil
}

// findJobByName scans every job page for an exact name match. The
// scheduler service has no get-by-name endpoint.
func (s *Scheduler) findJobByName(ctx context.Context, scheduleName string) (*cfapi.Job, error) {
	jobs, err := cfapi.DrainPages(ctx, func(ctx context.Context, page int) (*cfapi.Page[cfapi.Job], error) {
		return s.client.ListJobs(ctx, cfapi.ListJobsOptions{SpaceGUID: s.opts.SpaceGUID, Page: page})
	})
	if err != nil {
		return nil, fmt.Errorf("scanning jobs for schedule %s: %w", scheduleName, err)
	}
	for i := range jobs {
		if jobs[i].Name == scheduleName {
			return &jobs[i], nil
		}
	}
	return nil, NewNotFoundError("schedule not found", nil).WithResource(scheduleName)
}

// List returns every schedule in the space, optionally filtered by task
// definition name. Task definitions missing from the cache are backfilled
// by decoding the owning application's remote environment; a present but
// malformed blob is a fatal invariant violation.
func (s *Scheduler) List(ctx context.Context, taskDefinitionFilter string) ([]ScheduleInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ListTimeout)
	defer cancel()

	jobs, err := cfapi.DrainPages(ctx, func(ctx context.Context, page int) (*cfapi.Page[cfapi.Job], error) {
		return s.client.ListJobs(ctx, cfapi.ListJobsOptions{SpaceGUID: s.opts.SpaceGUID, Page: page, Detailed: true})
	})
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}

	appNames, err := s.applicationNames(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]ScheduleInfo, 0, len(jobs))
	for _, job := range jobs {
		taskDefinition, err := s.resolveTaskDefinition(ctx, &job, appNames)
		if err != nil {
			return nil, err
		}
		if taskDefinitionFilter != "" && taskDefinition != taskDefinitionFilter {
			continue
		}
		info := ScheduleInfo{
			ScheduleName:       job.Name,
			TaskDefinitionName: taskDefinition,
		}
		if len(job.Schedules) > 0 {
			info.CronExpression = job.Schedules[0].Expression
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// applicationNames drains the application listing once per List call so
// job-to-name joins need no per-job remote lookup.
func (s *Scheduler) applicationNames(ctx context.Context) (map[string]string, error) {
	apps, err := cfapi.DrainPages(ctx, func(ctx context.Context, page int) (*cfapi.Page[cfapi.Application], error) {
		return s.client.ListApplications(ctx, cfapi.ListApplicationsOptions{Page: page})
	})
	if err != nil {
		return nil, fmt.Errorf("listing applications: %w", err)
	}
	names := make(map[string]string, len(apps))
	for _, app := range apps {
		names[app.GUID] = app.Name
	}
	return names, nil
}

// resolveTaskDefinition consults the cache first and falls back to the
// owning application's remote environment, writing back on success.
func (s *Scheduler) resolveTaskDefinition(ctx context.Context, job *cfapi.Job, appNames map[string]string) (string, error) {
	if cached, ok, err := s.cache.Get(ctx, job.Name); err == nil && ok {
		return cached, nil
	}

	appName, ok := appNames[job.ApplicationGUID]
	if !ok {
		return "", NewInvariantError(
			fmt.Sprintf("job %s references unknown application %s", job.Name, job.ApplicationGUID), nil)
	}
	env, err := s.client.GetApplicationEnv(ctx, appName)
	if err != nil {
		return "", fmt.Errorf("reading environment of %s: %w", appName, err)
	}
	taskDefinition, err := decodeTaskDefinition(env)
	if err != nil {
		return "", err
	}
	if taskDefinition != "" {
		if err := s.cache.Put(ctx, job.Name, taskDefinition); err != nil {
			s.logger.WithScheduleName(job.Name).WithError(err).Warn("cache backfill failed")
		}
	}
	return taskDefinition, nil
}
