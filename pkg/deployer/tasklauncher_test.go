package deployer

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/skylift/skylift/pkg/cfapi"
)

// launchFixture stubs the full from-scratch staging path.
func launchFixture() *fakeClient {
	return &fakeClient{
		createApplicationFn: func(ctx context.Context, req cfapi.CreateApplicationRequest) (*cfapi.Application, error) {
			return &cfapi.Application{GUID: "app-guid", Name: req.Name}, nil
		},
		createPackageFn: func(ctx context.Context, appGUID string) (*cfapi.Package, error) {
			return &cfapi.Package{GUID: "pkg-guid", State: cfapi.PackageStateAwaitingUpload}, nil
		},
		uploadPackageFn: func(ctx context.Context, guid string, bits io.Reader) (*cfapi.Package, error) {
			return &cfapi.Package{GUID: guid, State: cfapi.PackageStateProcessingUpload}, nil
		},
		getPackageFn: func(ctx context.Context, guid string) (*cfapi.Package, error) {
			return &cfapi.Package{GUID: guid, State: cfapi.PackageStateReady}, nil
		},
		stagePackageFn: func(ctx context.Context, req cfapi.StagePackageRequest) (*cfapi.Droplet, error) {
			return &cfapi.Droplet{GUID: "droplet-guid", State: cfapi.DropletStateStaging}, nil
		},
		getDropletFn: func(ctx context.Context, guid string) (*cfapi.Droplet, error) {
			return &cfapi.Droplet{GUID: guid, State: cfapi.DropletStateStaged}, nil
		},
		listDropletsFn: func(ctx context.Context, guid string, page int) (*cfapi.Page[cfapi.Droplet], error) {
			return singlePage(cfapi.Droplet{
				GUID:         "droplet-guid",
				State:        cfapi.DropletStateStaged,
				ProcessTypes: map[string]string{"web": "java -jar app.jar"},
			}), nil
		},
		createTaskFn: func(ctx context.Context, req cfapi.CreateTaskRequest) (*cfapi.Task, error) {
			return &cfapi.Task{GUID: "task-guid", Name: req.Name, State: cfapi.TaskStatePending, Command: req.Command}, nil
		},
	}
}

func TestLaunchFromScratch(t *testing.T) {
	client := launchFixture()
	var created cfapi.CreateTaskRequest
	client.createTaskFn = func(ctx context.Context, req cfapi.CreateTaskRequest) (*cfapi.Task, error) {
		created = req
		return &cfapi.Task{GUID: "task-guid", State: cfapi.TaskStatePending}, nil
	}

	l := NewTaskLauncher(client, testOptions(), nil)
	taskID, err := l.Launch(context.Background(), &Request{
		Definition: Definition{Name: "report-task"},
		Bits:       strings.NewReader("zip"),
		Args:       []string{"--batch.size=100"},
	})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	if taskID != "task-guid" {
		t.Errorf("task id = %q, want task-guid", taskID)
	}
	if created.Command != "java -jar app.jar --batch.size=100" {
		t.Errorf("task command = %q", created.Command)
	}
	if created.ApplicationGUID != "app-guid" || created.DropletGUID != "droplet-guid" {
		t.Errorf("task created against %s/%s", created.ApplicationGUID, created.DropletGUID)
	}

	// The from-scratch path drives the full sequence.
	for _, call := range []string{"CreateApplication", "CreatePackage", "UploadPackage", "GetPackage", "StagePackage", "GetDroplet", "CreateTask"} {
		if client.countCalls(call) == 0 {
			t.Errorf("expected %s to be called", call)
		}
	}
}

func TestLaunchReusesExistingApplication(t *testing.T) {
	client := launchFixture()
	client.listApplicationsFn = func(ctx context.Context, opts cfapi.ListApplicationsOptions) (*cfapi.Page[cfapi.Application], error) {
		return singlePage(cfapi.Application{GUID: "app-guid", Name: opts.Name}), nil
	}

	l := NewTaskLauncher(client, testOptions(), nil)
	if _, err := l.Launch(context.Background(), &Request{
		Definition: Definition{Name: "report-task"},
		Bits:       strings.NewReader("zip"),
	}); err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	for _, call := range []string{"CreateApplication", "CreatePackage", "UploadPackage", "StagePackage"} {
		if n := client.countCalls(call); n != 0 {
			t.Errorf("%s called %d times on the reuse path", call, n)
		}
	}
	if client.countCalls("CreateTask") != 1 {
		t.Error("expected exactly one task creation")
	}
}

func TestLaunchMissingWebProcess(t *testing.T) {
	client := launchFixture()
	client.listApplicationsFn = func(ctx context.Context, opts cfapi.ListApplicationsOptions) (*cfapi.Page[cfapi.Application], error) {
		return singlePage(cfapi.Application{GUID: "app-guid", Name: opts.Name}), nil
	}
	client.listDropletsFn = func(ctx context.Context, guid string, page int) (*cfapi.Page[cfapi.Droplet], error) {
		return singlePage(cfapi.Droplet{
			GUID:         "droplet-guid",
			State:        cfapi.DropletStateStaged,
			ProcessTypes: map[string]string{"worker": "run-worker"},
		}), nil
	}

	l := NewTaskLauncher(client, testOptions(), nil)
	_, err := l.Launch(context.Background(), &Request{
		Definition: Definition{Name: "dockerish"},
		Bits:       strings.NewReader("zip"),
	})
	if err == nil || !IsInvariant(err) {
		t.Fatalf("expected invariant error for missing web process, got %v", err)
	}
}

func TestLaunchBindsServices(t *testing.T) {
	client := launchFixture()
	client.listApplicationsFn = func(ctx context.Context, opts cfapi.ListApplicationsOptions) (*cfapi.Page[cfapi.Application], error) {
		return singlePage(cfapi.Application{GUID: "app-guid", Name: opts.Name}), nil
	}
	client.listServicesFn = func(ctx context.Context, page int) (*cfapi.Page[cfapi.ServiceInstance], error) {
		return singlePage(
			cfapi.ServiceInstance{GUID: "pg-guid", Name: "postgres"},
			cfapi.ServiceInstance{GUID: "mq-guid", Name: "rabbit"},
		), nil
	}
	var bound []string
	client.createBindingFn = func(ctx context.Context, appGUID, serviceGUID string) error {
		bound = append(bound, serviceGUID)
		return nil
	}

	l := NewTaskLauncher(client, testOptions(), nil)
	_, err := l.Launch(context.Background(), &Request{
		Definition: Definition{Name: "report-task"},
		Bits:       strings.NewReader("zip"),
		DeploymentProperties: map[string]string{
			PropServices: "postgres,rabbit",
		},
	})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	if len(bound) != 2 {
		t.Errorf("bound %d services, want 2: %v", len(bound), bound)
	}
}

func TestLaunchRejectsUnknownService(t *testing.T) {
	client := launchFixture()
	client.listApplicationsFn = func(ctx context.Context, opts cfapi.ListApplicationsOptions) (*cfapi.Page[cfapi.Application], error) {
		return singlePage(cfapi.Application{GUID: "app-guid", Name: opts.Name}), nil
	}
	client.listServicesFn = func(ctx context.Context, page int) (*cfapi.Page[cfapi.ServiceInstance], error) {
		return singlePage(cfapi.ServiceInstance{GUID: "pg-guid", Name: "postgres"}), nil
	}

	l := NewTaskLauncher(client, testOptions(), nil)
	_, err := l.Launch(context.Background(), &Request{
		Definition:           Definition{Name: "report-task"},
		Bits:                 strings.NewReader("zip"),
		DeploymentProperties: map[string]string{PropServices: "mystery-db"},
	})
	if err == nil || !IsInvalidInput(err) {
		t.Fatalf("expected invalid-input error, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	var cancelled string
	client := &fakeClient{
		cancelTaskFn: func(ctx context.Context, guid string) error {
			cancelled = guid
			return nil
		},
	}
	l := NewTaskLauncher(client, testOptions(), nil)
	if err := l.Cancel(context.Background(), "task-guid"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled != "task-guid" {
		t.Errorf("cancelled %q, want task-guid", cancelled)
	}
}

func TestTaskStatusMapsStates(t *testing.T) {
	tests := []struct {
		remote cfapi.TaskState
		want   LaunchState
	}{
		{cfapi.TaskStateSucceeded, LaunchStateComplete},
		{cfapi.TaskStateRunning, LaunchStateRunning},
		{cfapi.TaskStatePending, LaunchStateLaunching},
		{cfapi.TaskStateCanceling, LaunchStateCancelled},
		{cfapi.TaskStateFailed, LaunchStateFailed},
	}
	for _, tt := range tests {
		client := &fakeClient{
			getTaskFn: func(ctx context.Context, guid string) (*cfapi.Task, error) {
				return &cfapi.Task{GUID: guid, State: tt.remote}, nil
			},
		}
		l := NewTaskLauncher(client, testOptions(), nil)
		status, err := l.Status(context.Background(), "task-guid")
		if err != nil {
			t.Fatalf("Status(%s) failed: %v", tt.remote, err)
		}
		if status.State != tt.want {
			t.Errorf("Status(%s) = %s, want %s", tt.remote, status.State, tt.want)
		}
	}
}

func TestTaskStatusUnsupportedStateFails(t *testing.T) {
	client := &fakeClient{
		getTaskFn: func(ctx context.Context, guid string) (*cfapi.Task, error) {
			return &cfapi.Task{GUID: guid, State: "PAUSED"}, nil
		},
	}
	l := NewTaskLauncher(client, testOptions(), nil)
	if _, err := l.Status(context.Background(), "task-guid"); err == nil || !IsInvariant(err) {
		t.Fatalf("expected invariant error, got %v", err)
	}
}

func TestTaskStatusAbsentReportsUnknown(t *testing.T) {
	client := &fakeClient{
		getTaskFn: func(ctx context.Context, guid string) (*cfapi.Task, error) {
			return nil, notFoundErr()
		},
	}
	l := NewTaskLauncher(client, testOptions(), nil)
	status, err := l.Status(context.Background(), "ghost-task")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.State != LaunchStateUnknown {
		t.Errorf("state = %s, want unknown", status.State)
	}
}

func TestTaskStatusExhaustedReportsError(t *testing.T) {
	client := &fakeClient{
		getTaskFn: func(ctx context.Context, guid string) (*cfapi.Task, error) {
			return nil, serverErr()
		},
	}
	l := NewTaskLauncher(client, testOptions(), nil)
	status, err := l.Status(context.Background(), "flaky-task")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.State != LaunchStateError {
		t.Errorf("state = %s, want error", status.State)
	}
}
