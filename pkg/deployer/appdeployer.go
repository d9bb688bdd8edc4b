package deployer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skylift/skylift/pkg/cfapi"
	"github.com/skylift/skylift/pkg/poll"
	"github.com/skylift/skylift/pkg/telemetry"
)

// AppDeployer orchestrates long-running application deployments.
//
// Deploy returns the deployment id synchronously after validating
// non-existence; the push itself completes asynchronously. Callers learn
// the final outcome either from the returned result channel or by polling
// Status.
type AppDeployer struct {
	client cfapi.Client
	opts   Options
	tel    *telemetry.Telemetry
	logger *telemetry.Logger
}

// NewAppDeployer creates an AppDeployer. A nil tel falls back to no-op
// telemetry.
func NewAppDeployer(client cfapi.Client, opts Options, tel *telemetry.Telemetry) *AppDeployer {
	if tel == nil {
		tel = telemetry.NewNop()
	}
	return &AppDeployer{
		client: client,
		opts:   opts,
		tel:    tel,
		logger: tel.Logger.NewComponentLogger("deployer"),
	}
}

// Deploy validates the request, rejects ids that are already live, and
// starts the asynchronous push. The returned channel receives exactly one
// value, the push outcome, and is then closed; callers may ignore it and
// poll Status instead.
//
// The existence check is check-then-act and inherently racy against
// concurrent deploys of the same id; the platform's last-write-wins is the
// accepted resolution.
func (d *AppDeployer) Deploy(ctx context.Context, req *Request) (string, <-chan error, error) {
	if err := validateRequest(req); err != nil {
		return "", nil, err
	}
	settings, err := resolveSettings(d.opts.Defaults, req)
	if err != nil {
		return "", nil, err
	}

	id := DeploymentID(d.opts.GroupPrefix, req.Definition.Group, req.Definition.Name)
	if d.opts.RandomizeNames {
		suffix, err := RandomSuffix()
		if err != nil {
			return "", nil, fmt.Errorf("randomizing deployment id: %w", err)
		}
		id = id + "-" + suffix
	}
	logger := d.logger.WithDeploymentID(id).WithCorrelationID(uuid.NewString())

	current, err := d.Status(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if current.State != StateUnknown && current.State != StateError {
		return "", nil, NewInvariantError(
			fmt.Sprintf("already deployed in state %s", current.State), nil).WithResource(id)
	}

	env, err := buildEnvironment(req.Definition, req.Args, d.opts.CombinedProperties, logger)
	if err != nil {
		return "", nil, err
	}

	manifest := cfapi.Manifest{
		Name:            id,
		Bits:            req.Bits,
		DockerImage:     req.DockerImage,
		Buildpack:       settings.Buildpack,
		MemoryMB:        settings.MemoryMB,
		DiskMB:          settings.DiskMB,
		Instances:       settings.Instances,
		HealthCheckType: settings.HealthCheck,
		Domain:          settings.Domain,
		Host:            settings.Host,
		RoutePath:       settings.RoutePath,
		NoRoute:         settings.NoRoute,
		Services:        settings.Services,
		Environment:     env,
	}

	d.tel.Metrics.RecordDeployStarted(req.Definition.Group)
	logger.Info("deployment accepted, pushing asynchronously")

	result := make(chan error, 1)
	go d.push(logger, manifest, result)

	return id, result, nil
}

// push runs the asynchronous part of a deployment. It owns its own
// context: the accepting call's context ends when the caller returns.
func (d *AppDeployer) push(logger *telemetry.Logger, manifest cfapi.Manifest, result chan<- error) {
	defer close(result)
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), d.opts.StartupTimeout)
	defer cancel()

	_, span := d.tel.Tracer.StartDeploySpan(ctx, manifest.Name)
	defer span.End()

	err := d.pushAndStart(ctx, logger, manifest)
	switch {
	case err == nil:
		telemetry.RecordSuccess(span)
		d.tel.Metrics.RecordDeployCompleted("succeeded", time.Since(start))
		logger.Info("deployment push complete")
	case cfapi.IsNotFound(err):
		// The app can legitimately disappear mid-push (concurrent
		// undeploy); not a hard failure.
		d.tel.Metrics.RecordDeployCompleted("gone", time.Since(start))
		logger.WithError(err).Warn("application disappeared during push")
		err = nil
	default:
		telemetry.RecordError(span, err)
		d.tel.Metrics.RecordDeployCompleted("failed", time.Since(start))
		d.tel.Metrics.RecordAPIError(classify(err))
		logger.WithError(err).Error("deployment push failed")
		err = NewTransientError("deployment push failed", err).WithResource(manifest.Name)
	}
	if err != nil {
		result <- err
	}
}

// pushAndStart drives a push through the full lifecycle: apply the
// manifest, stage uploaded bits into the current droplet, start the
// application. Docker pushes carry no package; the platform stages the
// image itself when the application starts.
func (d *AppDeployer) pushAndStart(ctx context.Context, logger *telemetry.Logger, manifest cfapi.Manifest) error {
	receipt, err := d.client.PushManifest(ctx, manifest)
	if err != nil {
		return err
	}

	if receipt.PackageGUID != "" {
		s := stager{client: d.client, metrics: d.tel.Metrics, overall: d.opts.StagingTimeout}
		droplet, err := s.run(ctx, manifest.Name, cfapi.StagePackageRequest{
			PackageGUID:     receipt.PackageGUID,
			StagingMemoryMB: manifest.MemoryMB,
			StagingDiskMB:   manifest.DiskMB,
			Environment:     manifest.Environment,
		})
		if err != nil {
			return err
		}
		if err := d.client.SetCurrentDroplet(ctx, receipt.AppGUID, droplet.GUID); err != nil {
			return err
		}
		logger.Debug("droplet staged and assigned")
	}

	return d.client.StartApplication(ctx, manifest.Name)
}

// Undeploy removes a deployment. The delete itself runs asynchronously
// after the deployment is confirmed to exist; the returned channel
// receives the outcome.
func (d *AppDeployer) Undeploy(ctx context.Context, id string) (<-chan error, error) {
	logger := d.logger.WithDeploymentID(id)

	detail, err := d.client.GetApplicationDetail(ctx, id)
	if err != nil {
		if cfapi.IsNotFound(err) {
			return nil, NewNotFoundError("deployment not found", err).WithResource(id)
		}
		return nil, fmt.Errorf("resolving deployment %s: %w", id, err)
	}

	logger.Info("undeploy accepted")
	result := make(chan error, 1)
	go func() {
		defer close(result)
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.StartupTimeout)
		defer cancel()
		if err := d.client.DeleteApplication(ctx, detail.GUID); err != nil && !cfapi.IsNotFound(err) {
			d.tel.Metrics.RecordAPIError(classify(err))
			logger.WithError(err).Error("undeploy failed")
			result <- NewTransientError("undeploy failed", err).WithResource(id)
			return
		}
		logger.Info("undeploy complete")
	}()
	return result, nil
}

// Status reports the aggregate state of a deployment. Absence and retry
// exhaustion produce typed statuses, never errors; the only returned error
// is an invariant violation (an instance state with no mapping).
func (d *AppDeployer) Status(ctx context.Context, id string) (*Status, error) {
	var detail *cfapi.ApplicationDetail
	notFound := errors.New("deployment absent")

	cfg := poll.Config{
		MaxAttempts:  d.opts.StatusRetryAttempts,
		InitialDelay: d.opts.StatusRetryDelay,
		MaxDelay:     d.opts.StatusRetryDelay * 8,
		Overall:      d.opts.StatusTimeout,
	}
	err := poll.Until(ctx, cfg, func(ctx context.Context) (bool, error) {
		d.tel.Metrics.RecordPollAttempt("status")
		got, err := d.client.GetApplicationDetail(ctx, id)
		if err != nil {
			if cfapi.IsNotFound(err) {
				return false, poll.Fatal(notFound)
			}
			d.tel.Metrics.RecordAPIError(classify(err))
			return false, err
		}
		detail = got
		return true, nil
	})

	switch {
	case err == nil:
		status, buildErr := buildStatus(id, detail)
		if buildErr != nil {
			return nil, buildErr
		}
		d.tel.Metrics.RecordStatusQuery("deployment", string(status.State))
		return status, nil
	case errors.Is(err, notFound):
		d.tel.Metrics.RecordStatusQuery("deployment", string(StateUnknown))
		return unknownStatus(id), nil
	default:
		d.logger.WithDeploymentID(id).WithError(err).Warn("status query exhausted retries")
		d.tel.Metrics.RecordStatusQuery("deployment", string(StateError))
		return errorStatus(id, err), nil
	}
}

// classify maps a platform error onto the metric label for its class.
func classify(err error) string {
	switch {
	case cfapi.IsNotFound(err):
		return string(ErrorClassNotFound)
	case cfapi.IsSSL(err):
		return string(ErrorClassSSL)
	case cfapi.IsTransient(err):
		return string(ErrorClassTransient)
	default:
		return "other"
	}
}
