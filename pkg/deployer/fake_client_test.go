package deployer

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/skylift/skylift/pkg/cfapi"
)

// fakeClient implements cfapi.Client with per-method function hooks. A
// call with no hook installed fails the operation, so tests surface any
// remote call they did not expect. Calls are recorded in order.
type fakeClient struct {
	mu    sync.Mutex
	calls []string

	createApplicationFn func(ctx context.Context, req cfapi.CreateApplicationRequest) (*cfapi.Application, error)
	getApplicationFn    func(ctx context.Context, guid string) (*cfapi.Application, error)
	listApplicationsFn  func(ctx context.Context, opts cfapi.ListApplicationsOptions) (*cfapi.Page[cfapi.Application], error)
	deleteApplicationFn func(ctx context.Context, guid string) error
	getDetailFn         func(ctx context.Context, name string) (*cfapi.ApplicationDetail, error)
	getEnvFn            func(ctx context.Context, name string) (map[string]string, error)
	listDropletsFn      func(ctx context.Context, guid string, page int) (*cfapi.Page[cfapi.Droplet], error)
	pushManifestFn      func(ctx context.Context, m cfapi.Manifest) (*cfapi.PushReceipt, error)
	setCurrentDropletFn func(ctx context.Context, appGUID, dropletGUID string) error
	startApplicationFn  func(ctx context.Context, name string) error

	createPackageFn func(ctx context.Context, appGUID string) (*cfapi.Package, error)
	getPackageFn    func(ctx context.Context, guid string) (*cfapi.Package, error)
	uploadPackageFn func(ctx context.Context, guid string, bits io.Reader) (*cfapi.Package, error)

	stagePackageFn func(ctx context.Context, req cfapi.StagePackageRequest) (*cfapi.Droplet, error)
	getDropletFn   func(ctx context.Context, guid string) (*cfapi.Droplet, error)

	createTaskFn func(ctx context.Context, req cfapi.CreateTaskRequest) (*cfapi.Task, error)
	getTaskFn    func(ctx context.Context, guid string) (*cfapi.Task, error)
	cancelTaskFn func(ctx context.Context, guid string) error

	listServicesFn  func(ctx context.Context, page int) (*cfapi.Page[cfapi.ServiceInstance], error)
	createBindingFn func(ctx context.Context, appGUID, serviceInstanceGUID string) error

	createJobFn   func(ctx context.Context, req cfapi.CreateJobRequest) (*cfapi.Job, error)
	scheduleJobFn func(ctx context.Context, jobGUID, cronExpression string) (*cfapi.JobSchedule, error)
	deleteJobFn   func(ctx context.Context, jobGUID string) error
	listJobsFn    func(ctx context.Context, opts cfapi.ListJobsOptions) (*cfapi.Page[cfapi.Job], error)

	listSpacesFn func(ctx context.Context, name string, page int) (*cfapi.Page[cfapi.Space], error)
}

var _ cfapi.Client = (*fakeClient)(nil)

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeClient) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) countCalls(name string) int {
	n := 0
	for _, c := range f.recorded() {
		if c == name {
			n++
		}
	}
	return n
}

func errNotStubbed(method string) error {
	return fmt.Errorf("unexpected call to %s", method)
}

func (f *fakeClient) CreateApplication(ctx context.Context, req cfapi.CreateApplicationRequest) (*cfapi.Application, error) {
	f.record("CreateApplication")
	if f.createApplicationFn == nil {
		return nil, errNotStubbed("CreateApplication")
	}
	return f.createApplicationFn(ctx, req)
}

func (f *fakeClient) GetApplication(ctx context.Context, guid string) (*cfapi.Application, error) {
	f.record("GetApplication")
	if f.getApplicationFn == nil {
		return nil, errNotStubbed("GetApplication")
	}
	return f.getApplicationFn(ctx, guid)
}

func (f *fakeClient) ListApplications(ctx context.Context, opts cfapi.ListApplicationsOptions) (*cfapi.Page[cfapi.Application], error) {
	f.record("ListApplications")
	if f.listApplicationsFn == nil {
		return &cfapi.Page[cfapi.Application]{Pagination: cfapi.Pagination{TotalPages: 1}}, nil
	}
	return f.listApplicationsFn(ctx, opts)
}

func (f *fakeClient) DeleteApplication(ctx context.Context, guid string) error {
	f.record("DeleteApplication")
	if f.deleteApplicationFn == nil {
		return errNotStubbed("DeleteApplication")
	}
	return f.deleteApplicationFn(ctx, guid)
}

func (f *fakeClient) GetApplicationDetail(ctx context.Context, name string) (*cfapi.ApplicationDetail, error) {
	f.record("GetApplicationDetail")
	if f.getDetailFn == nil {
		return nil, errNotStubbed("GetApplicationDetail")
	}
	return f.getDetailFn(ctx, name)
}

func (f *fakeClient) GetApplicationEnv(ctx context.Context, name string) (map[string]string, error) {
	f.record("GetApplicationEnv")
	if f.getEnvFn == nil {
		return nil, errNotStubbed("GetApplicationEnv")
	}
	return f.getEnvFn(ctx, name)
}

func (f *fakeClient) ListApplicationDroplets(ctx context.Context, guid string, page int) (*cfapi.Page[cfapi.Droplet], error) {
	f.record("ListApplicationDroplets")
	if f.listDropletsFn == nil {
		return nil, errNotStubbed("ListApplicationDroplets")
	}
	return f.listDropletsFn(ctx, guid, page)
}

func (f *fakeClient) PushManifest(ctx context.Context, m cfapi.Manifest) (*cfapi.PushReceipt, error) {
	f.record("PushManifest")
	if f.pushManifestFn == nil {
		return nil, errNotStubbed("PushManifest")
	}
	return f.pushManifestFn(ctx, m)
}

func (f *fakeClient) SetCurrentDroplet(ctx context.Context, appGUID, dropletGUID string) error {
	f.record("SetCurrentDroplet")
	if f.setCurrentDropletFn == nil {
		return errNotStubbed("SetCurrentDroplet")
	}
	return f.setCurrentDropletFn(ctx, appGUID, dropletGUID)
}

func (f *fakeClient) StartApplication(ctx context.Context, name string) error {
	f.record("StartApplication")
	if f.startApplicationFn == nil {
		return errNotStubbed("StartApplication")
	}
	return f.startApplicationFn(ctx, name)
}

func (f *fakeClient) CreatePackage(ctx context.Context, appGUID string) (*cfapi.Package, error) {
	f.record("CreatePackage")
	if f.createPackageFn == nil {
		return nil, errNotStubbed("CreatePackage")
	}
	return f.createPackageFn(ctx, appGUID)
}

func (f *fakeClient) GetPackage(ctx context.Context, guid string) (*cfapi.Package, error) {
	f.record("GetPackage")
	if f.getPackageFn == nil {
		return nil, errNotStubbed("GetPackage")
	}
	return f.getPackageFn(ctx, guid)
}

func (f *fakeClient) UploadPackage(ctx context.Context, guid string, bits io.Reader) (*cfapi.Package, error) {
	f.record("UploadPackage")
	if f.uploadPackageFn == nil {
		return nil, errNotStubbed("UploadPackage")
	}
	return f.uploadPackageFn(ctx, guid, bits)
}

func (f *fakeClient) StagePackage(ctx context.Context, req cfapi.StagePackageRequest) (*cfapi.Droplet, error) {
	f.record("StagePackage")
	if f.stagePackageFn == nil {
		return nil, errNotStubbed("StagePackage")
	}
	return f.stagePackageFn(ctx, req)
}

func (f *fakeClient) GetDroplet(ctx context.Context, guid string) (*cfapi.Droplet, error) {
	f.record("GetDroplet")
	if f.getDropletFn == nil {
		return nil, errNotStubbed("GetDroplet")
	}
	return f.getDropletFn(ctx, guid)
}

func (f *fakeClient) CreateTask(ctx context.Context, req cfapi.CreateTaskRequest) (*cfapi.Task, error) {
	f.record("CreateTask")
	if f.createTaskFn == nil {
		return nil, errNotStubbed("CreateTask")
	}
	return f.createTaskFn(ctx, req)
}

func (f *fakeClient) GetTask(ctx context.Context, guid string) (*cfapi.Task, error) {
	f.record("GetTask")
	if f.getTaskFn == nil {
		return nil, errNotStubbed("GetTask")
	}
	return f.getTaskFn(ctx, guid)
}

func (f *fakeClient) CancelTask(ctx context.Context, guid string) error {
	f.record("CancelTask")
	if f.cancelTaskFn == nil {
		return errNotStubbed("CancelTask")
	}
	return f.cancelTaskFn(ctx, guid)
}

func (f *fakeClient) ListServiceInstances(ctx context.Context, page int) (*cfapi.Page[cfapi.ServiceInstance], error) {
	f.record("ListServiceInstances")
	if f.listServicesFn == nil {
		return &cfapi.Page[cfapi.ServiceInstance]{Pagination: cfapi.Pagination{TotalPages: 1}}, nil
	}
	return f.listServicesFn(ctx, page)
}

func (f *fakeClient) CreateServiceBinding(ctx context.Context, appGUID, serviceInstanceGUID string) error {
	f.record("CreateServiceBinding")
	if f.createBindingFn == nil {
		return errNotStubbed("CreateServiceBinding")
	}
	return f.createBindingFn(ctx, appGUID, serviceInstanceGUID)
}

func (f *fakeClient) CreateJob(ctx context.Context, req cfapi.CreateJobRequest) (*cfapi.Job, error) {
	f.record("CreateJob")
	if f.createJobFn == nil {
		return nil, errNotStubbed("CreateJob")
	}
	return f.createJobFn(ctx, req)
}

func (f *fakeClient) ScheduleJob(ctx context.Context, jobGUID, cronExpression string) (*cfapi.JobSchedule, error) {
	f.record("ScheduleJob")
	if f.scheduleJobFn == nil {
		return nil, errNotStubbed("ScheduleJob")
	}
	return f.scheduleJobFn(ctx, jobGUID, cronExpression)
}

func (f *fakeClient) DeleteJob(ctx context.Context, jobGUID string) error {
	f.record("DeleteJob")
	if f.deleteJobFn == nil {
		return errNotStubbed("DeleteJob")
	}
	return f.deleteJobFn(ctx, jobGUID)
}

func (f *fakeClient) ListJobs(ctx context.Context, opts cfapi.ListJobsOptions) (*cfapi.Page[cfapi.Job], error) {
	f.record("ListJobs")
	if f.listJobsFn == nil {
		return &cfapi.Page[cfapi.Job]{Pagination: cfapi.Pagination{TotalPages: 1}}, nil
	}
	return f.listJobsFn(ctx, opts)
}

func (f *fakeClient) ListSpaces(ctx context.Context, name string, page int) (*cfapi.Page[cfapi.Space], error) {
	f.record("ListSpaces")
	if f.listSpacesFn == nil {
		return nil, errNotStubbed("ListSpaces")
	}
	return f.listSpacesFn(ctx, name, page)
}

// singlePage wraps resources into a one-page listing.
func singlePage[T any](resources ...T) *cfapi.Page[T] {
	return &cfapi.Page[T]{
		Pagination: cfapi.Pagination{TotalResults: len(resources), TotalPages: 1},
		Resources:  resources,
	}
}

// testOptions returns options with tight budgets so tests run fast.
func testOptions() Options {
	opts := DefaultOptions()
	opts.SpaceGUID = "space-guid"
	opts.StagingTimeout = 200 * time.Millisecond
	opts.StartupTimeout = 200 * time.Millisecond
	opts.StatusTimeout = 200 * time.Millisecond
	opts.StatusRetryDelay = time.Millisecond
	opts.TaskStatusTimeout = 200 * time.Millisecond
	opts.ScheduleTimeout = 200 * time.Millisecond
	opts.UnscheduleTimeout = 200 * time.Millisecond
	opts.ListTimeout = 200 * time.Millisecond
	return opts
}
