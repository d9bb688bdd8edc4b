package deployer

import (
	"context"
	"fmt"
	"time"

	"github.com/skylift/skylift/pkg/cfapi"
	"github.com/skylift/skylift/pkg/poll"
	"github.com/skylift/skylift/pkg/telemetry"
)

// stager drives an uploaded package through readiness and staging polls.
// Both the deploy and the task-launch paths feed packages through it.
type stager struct {
	client  cfapi.Client
	metrics *telemetry.Metrics
	overall time.Duration
}

// run waits for the package to become READY, stages it, and waits for the
// resulting droplet to finish staging. name scopes the returned errors.
func (s stager) run(ctx context.Context, name string, req cfapi.StagePackageRequest) (*cfapi.Droplet, error) {
	if err := s.waitPackageReady(ctx, req.PackageGUID); err != nil {
		return nil, NewExhaustedError("package never became ready", err).WithResource(name)
	}
	droplet, err := s.client.StagePackage(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("staging package for %s: %w", name, err)
	}
	if err := s.waitDropletStaged(ctx, droplet.GUID); err != nil {
		return nil, NewExhaustedError("droplet never finished staging", err).WithResource(name)
	}
	return droplet, nil
}

// waitPackageReady polls until the package reports READY.
func (s stager) waitPackageReady(ctx context.Context, packageGUID string) error {
	cfg := poll.Config{
		MaxAttempts:  packagePollAttempts,
		InitialDelay: packagePollInitialDelay,
		MaxDelay:     pollMaxDelay,
		Overall:      s.overall,
	}
	return poll.Until(ctx, cfg, func(ctx context.Context) (bool, error) {
		s.metrics.RecordPollAttempt("package")
		pkg, err := s.client.GetPackage(ctx, packageGUID)
		if err != nil {
			return false, err
		}
		switch pkg.State {
		case cfapi.PackageStateReady:
			return true, nil
		case cfapi.PackageStateFailed, cfapi.PackageStateExpired:
			return false, poll.Fatal(NewInvariantError(
				fmt.Sprintf("package entered terminal state %s", pkg.State), nil))
		}
		return false, nil
	})
}

// waitDropletStaged polls until the droplet reports STAGED. A terminal
// failure ends the poll immediately.
func (s stager) waitDropletStaged(ctx context.Context, dropletGUID string) error {
	cfg := poll.Config{
		MaxAttempts:  dropletPollAttempts,
		InitialDelay: dropletPollInitialDelay,
		MaxDelay:     pollMaxDelay,
		Overall:      s.overall,
	}
	return poll.Until(ctx, cfg, func(ctx context.Context) (bool, error) {
		s.metrics.RecordPollAttempt("droplet")
		droplet, err := s.client.GetDroplet(ctx, dropletGUID)
		if err != nil {
			return false, err
		}
		switch droplet.State {
		case cfapi.DropletStateStaged:
			return true, nil
		case cfapi.DropletStateFailed, cfapi.DropletStateExpired:
			return false, poll.Fatal(NewInvariantError(
				fmt.Sprintf("droplet entered terminal state %s", droplet.State), nil))
		}
		return false, nil
	})
}
