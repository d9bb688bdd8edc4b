package cfapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the connection settings for the HTTP client. Token refresh
// and SSO flows are outside this adapter; the caller supplies a valid
// bearer token.
type Config struct {
	// APIURL is the platform API endpoint, e.g. "https://api.sys.example.com".
	APIURL string

	// SchedulerURL is the scheduler-service endpoint. Required only for
	// the Jobs operations.
	SchedulerURL string

	// Token is the OAuth bearer token presented on every request.
	Token string

	// SpaceGUID scopes space-bound listings (service instances).
	SpaceGUID string

	// SkipSSLValidation disables certificate verification.
	SkipSSLValidation bool

	// RequestTimeout bounds each HTTP round trip. Zero means 30s.
	RequestTimeout time.Duration
}

// HTTPClient implements Client against the platform's REST API and the
// scheduler service's REST API.
type HTTPClient struct {
	cfg  Config
	http *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client from cfg.
func NewHTTPClient(cfg Config) *HTTPClient {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.SkipSSLValidation},
	}
	return &HTTPClient{
		cfg: cfg,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// platformError mirrors the first error object of a platform error body.
type platformError struct {
	Errors []struct {
		Code   int    `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (c *HTTPClient) do(ctx context.Context, method, rawURL string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, rawURL, err)
	}
	req.Header.Set("Authorization", "bearer "+c.cfg.Token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var perr platformError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&perr); decodeErr == nil && len(perr.Errors) > 0 {
			apiErr.Code = perr.Errors[0].Code
			apiErr.Title = perr.Errors[0].Title
			apiErr.Detail = perr.Errors[0].Detail
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, rawURL, err)
	}
	return nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, rawURL string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s %s request: %w", method, rawURL, err)
		}
		body = bytes.NewReader(encoded)
	}
	return c.do(ctx, method, rawURL, body, "application/json", out)
}

func (c *HTTPClient) apiURL(path string, query url.Values) string {
	u := c.cfg.APIURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *HTTPClient) schedulerURL(path string, query url.Values) string {
	u := c.cfg.SchedulerURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// CreateApplication implements Applications.
func (c *HTTPClient) CreateApplication(ctx context.Context, req CreateApplicationRequest) (*Application, error) {
	payload := map[string]interface{}{
		"name": req.Name,
		"relationships": map[string]interface{}{
			"space": map[string]interface{}{
				"data": map[string]string{"guid": req.SpaceGUID},
			},
		},
	}
	if req.Buildpack != "" {
		payload["lifecycle"] = map[string]interface{}{
			"type": "buildpack",
			"data": map[string]interface{}{"buildpacks": []string{req.Buildpack}},
		}
	}
	if len(req.Environment) > 0 {
		payload["environment_variables"] = req.Environment
	}
	var app Application
	if err := c.doJSON(ctx, http.MethodPost, c.apiURL("/v3/apps", nil), payload, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// GetApplication implements Applications.
func (c *HTTPClient) GetApplication(ctx context.Context, guid string) (*Application, error) {
	var app Application
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL("/v3/apps/"+guid, nil), nil, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// ListApplications implements Applications.
func (c *HTTPClient) ListApplications(ctx context.Context, opts ListApplicationsOptions) (*Page[Application], error) {
	query := url.Values{}
	if opts.Name != "" {
		query.Set("names", opts.Name)
	}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	var page Page[Application]
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL("/v3/apps", query), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DeleteApplication implements Applications.
func (c *HTTPClient) DeleteApplication(ctx context.Context, guid string) error {
	return c.doJSON(ctx, http.MethodDelete, c.apiURL("/v3/apps/"+guid, nil), nil, nil)
}

// GetApplicationDetail implements Applications. The platform has no
// get-by-name endpoint, so the name is resolved through a filtered listing
// first; no match maps to NotFound.
func (c *HTTPClient) GetApplicationDetail(ctx context.Context, name string) (*ApplicationDetail, error) {
	app, err := c.findApplicationByName(ctx, name)
	if err != nil {
		return nil, err
	}
	var detail ApplicationDetail
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL("/v3/apps/"+app.GUID+"/summary", nil), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetApplicationEnv implements Applications.
func (c *HTTPClient) GetApplicationEnv(ctx context.Context, name string) (map[string]string, error) {
	app, err := c.findApplicationByName(ctx, name)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		EnvironmentVariables map[string]string `json:"environment_variables"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL("/v3/apps/"+app.GUID+"/env", nil), nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.EnvironmentVariables, nil
}

// ListApplicationDroplets implements Applications.
func (c *HTTPClient) ListApplicationDroplets(ctx context.Context, guid string, page int) (*Page[Droplet], error) {
	query := url.Values{"order_by": []string{"-created_at"}}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	var result Page[Droplet]
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL("/v3/apps/"+guid+"/droplets", query), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// manifestDocument is the YAML document accepted by the space manifest
// endpoint.
type manifestDocument struct {
	Applications []manifestApplication `yaml:"applications"`
}

type manifestApplication struct {
	Name            string            `yaml:"name"`
	Buildpacks      []string          `yaml:"buildpacks,omitempty"`
	Memory          string            `yaml:"memory,omitempty"`
	DiskQuota       string            `yaml:"disk_quota,omitempty"`
	Instances       int               `yaml:"instances,omitempty"`
	HealthCheckType string            `yaml:"health-check-type,omitempty"`
	Docker          *manifestDocker   `yaml:"docker,omitempty"`
	NoRoute         bool              `yaml:"no-route,omitempty"`
	Routes          []manifestRoute   `yaml:"routes,omitempty"`
	Services        []string          `yaml:"services,omitempty"`
	Env             map[string]string `yaml:"env,omitempty"`
}

type manifestDocker struct {
	Image string `yaml:"image"`
}

type manifestRoute struct {
	Route string `yaml:"route"`
}

// PushManifest implements Applications. The manifest is applied through the
// space's declarative manifest endpoint (create-or-update on the remote
// side); uploaded bits, when present, go through a fresh package afterwards.
// The returned receipt carries the guids the caller needs to finish the
// lifecycle: staging the package and assigning the droplet.
func (c *HTTPClient) PushManifest(ctx context.Context, m Manifest) (*PushReceipt, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	app := manifestApplication{
		Name:            m.Name,
		Memory:          mbString(m.MemoryMB),
		DiskQuota:       mbString(m.DiskMB),
		Instances:       m.Instances,
		HealthCheckType: m.HealthCheckType,
		NoRoute:         m.NoRoute,
		Services:        m.Services,
		Env:             m.Environment,
	}
	if m.Buildpack != "" {
		app.Buildpacks = []string{m.Buildpack}
	}
	if m.DockerImage != "" {
		app.Docker = &manifestDocker{Image: m.DockerImage}
	}
	if route := composeRoute(m); route != "" {
		app.Routes = []manifestRoute{{Route: route}}
	}

	doc, err := yaml.Marshal(manifestDocument{Applications: []manifestApplication{app}})
	if err != nil {
		return nil, fmt.Errorf("encoding manifest for %s: %w", m.Name, err)
	}

	applyURL := c.apiURL("/v3/spaces/"+c.cfg.SpaceGUID+"/actions/apply_manifest", nil)
	if err := c.do(ctx, http.MethodPost, applyURL, bytes.NewReader(doc), "application/x-yaml", nil); err != nil {
		return nil, err
	}

	appResource, err := c.findApplicationByName(ctx, m.Name)
	if err != nil {
		return nil, err
	}
	receipt := &PushReceipt{AppGUID: appResource.GUID}
	if m.Bits == nil {
		return receipt, nil
	}
	pkg, err := c.CreatePackage(ctx, appResource.GUID)
	if err != nil {
		return nil, err
	}
	if _, err := c.UploadPackage(ctx, pkg.GUID, m.Bits); err != nil {
		return nil, err
	}
	receipt.PackageGUID = pkg.GUID
	return receipt, nil
}

// SetCurrentDroplet implements Applications.
func (c *HTTPClient) SetCurrentDroplet(ctx context.Context, appGUID, dropletGUID string) error {
	payload := map[string]interface{}{
		"data": map[string]string{"guid": dropletGUID},
	}
	relURL := c.apiURL("/v3/apps/"+appGUID+"/relationships/current_droplet", nil)
	return c.doJSON(ctx, http.MethodPatch, relURL, payload, nil)
}

// StartApplication implements Applications.
func (c *HTTPClient) StartApplication(ctx context.Context, name string) error {
	app, err := c.findApplicationByName(ctx, name)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, c.apiURL("/v3/apps/"+app.GUID+"/actions/start", nil), nil, nil)
}

// CreatePackage implements Packages.
func (c *HTTPClient) CreatePackage(ctx context.Context, appGUID string) (*Package, error) {
	payload := map[string]interface{}{
		"type": "bits",
		"relationships": map[string]interface{}{
			"app": map[string]interface{}{
				"data": map[string]string{"guid": appGUID},
			},
		},
	}
	var pkg Package
	if err := c.doJSON(ctx, http.MethodPost, c.apiURL("/v3/packages", nil), payload, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// GetPackage implements Packages.
func (c *HTTPClient) GetPackage(ctx context.Context, guid string) (*Package, error) {
	var pkg Package
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL("/v3/packages/"+guid, nil), nil, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// UploadPackage implements Packages.
func (c *HTTPClient) UploadPackage(ctx context.Context, guid string, bits io.Reader) (*Package, error) {
	var pkg Package
	uploadURL := c.apiURL("/v3/packages/"+guid+"/upload", nil)
	if err := c.do(ctx, http.MethodPost, uploadURL, bits, "application/zip", &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// StagePackage implements Droplets.
func (c *HTTPClient) StagePackage(ctx context.Context, req StagePackageRequest) (*Droplet, error) {
	payload := map[string]interface{}{
		"staging_memory_in_mb":  req.StagingMemoryMB,
		"staging_disk_in_mb":    req.StagingDiskMB,
		"environment_variables": req.Environment,
	}
	var droplet Droplet
	stageURL := c.apiURL("/v3/packages/"+req.PackageGUID+"/droplets", nil)
	if err := c.doJSON(ctx, http.MethodPost, stageURL, payload, &droplet); err != nil {
		return nil, err
	}
	return &droplet, nil
}

// GetDroplet implements Droplets.
func (c *HTTPClient) GetDroplet(ctx context.Context, guid string) (*Droplet, error) {
	var droplet Droplet
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL("/v3/droplets/"+guid, nil), nil, &droplet); err != nil {
		return nil, err
	}
	return &droplet, nil
}

// CreateTask implements Tasks.
func (c *HTTPClient) CreateTask(ctx context.Context, req CreateTaskRequest) (*Task, error) {
	payload := map[string]interface{}{
		"name":         req.Name,
		"command":      req.Command,
		"droplet_guid": req.DropletGUID,
	}
	var task Task
	taskURL := c.apiURL("/v3/apps/"+req.ApplicationGUID+"/tasks", nil)
	if err := c.doJSON(ctx, http.MethodPost, taskURL, payload, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask implements Tasks.
func (c *HTTPClient) GetTask(ctx context.Context, guid string) (*Task, error) {
	var task Task
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL("/v3/tasks/"+guid, nil), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CancelTask implements Tasks.
func (c *HTTPClient) CancelTask(ctx context.Context, guid string) error {
	return c.doJSON(ctx, http.MethodPost, c.apiURL("/v3/tasks/"+guid+"/actions/cancel", nil), nil, nil)
}

// ListServiceInstances implements Services.
func (c *HTTPClient) ListServiceInstances(ctx context.Context, page int) (*Page[ServiceInstance], error) {
	query := url.Values{"space_guids": []string{c.cfg.SpaceGUID}}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	var result Page[ServiceInstance]
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL("/v3/service_instances", query), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateServiceBinding implements Services.
func (c *HTTPClient) CreateServiceBinding(ctx context.Context, appGUID, serviceInstanceGUID string) error {
	payload := map[string]interface{}{
		"type": "app",
		"relationships": map[string]interface{}{
			"app": map[string]interface{}{
				"data": map[string]string{"guid": appGUID},
			},
			"service_instance": map[string]interface{}{
				"data": map[string]string{"guid": serviceInstanceGUID},
			},
		},
	}
	return c.doJSON(ctx, http.MethodPost, c.apiURL("/v3/service_credential_bindings", nil), payload, nil)
}

// CreateJob implements Jobs.
func (c *HTTPClient) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	query := url.Values{"app_guid": []string{req.ApplicationGUID}}
	payload := map[string]string{
		"name":    req.Name,
		"command": req.Command,
	}
	var job Job
	if err := c.doJSON(ctx, http.MethodPost, c.schedulerURL("/jobs", query), payload, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ScheduleJob implements Jobs.
func (c *HTTPClient) ScheduleJob(ctx context.Context, jobGUID, cronExpression string) (*JobSchedule, error) {
	payload := map[string]interface{}{
		"expression":      cronExpression,
		"expression_type": "cron_expression",
		"enabled":         true,
	}
	var schedule JobSchedule
	if err := c.doJSON(ctx, http.MethodPost, c.schedulerURL("/jobs/"+jobGUID+"/schedules", nil), payload, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// DeleteJob implements Jobs.
func (c *HTTPClient) DeleteJob(ctx context.Context, jobGUID string) error {
	return c.doJSON(ctx, http.MethodDelete, c.schedulerURL("/jobs/"+jobGUID, nil), nil, nil)
}

// ListJobs implements Jobs.
func (c *HTTPClient) ListJobs(ctx context.Context, opts ListJobsOptions) (*Page[Job], error) {
	query := url.Values{"space_guid": []string{opts.SpaceGUID}}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Detailed {
		query.Set("detailed", "true")
	}
	var page Page[Job]
	if err := c.doJSON(ctx, http.MethodGet, c.schedulerURL("/jobs", query), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListSpaces implements Spaces.
func (c *HTTPClient) ListSpaces(ctx context.Context, name string, page int) (*Page[Space], error) {
	query := url.Values{}
	if name != "" {
		query.Set("names", name)
	}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	var result Page[Space]
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL("/v3/spaces", query), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// findApplicationByName resolves a name through a filtered listing. Zero
// matches map to a NotFound APIError so callers can branch on absence.
func (c *HTTPClient) findApplicationByName(ctx context.Context, name string) (*Application, error) {
	apps, err := DrainPages(ctx, func(ctx context.Context, page int) (*Page[Application], error) {
		return c.ListApplications(ctx, ListApplicationsOptions{Name: name, Page: page})
	})
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return nil, &APIError{
			StatusCode: http.StatusNotFound,
			Title:      "CF-ResourceNotFound",
			Detail:     fmt.Sprintf("application %s not found", name),
		}
	}
	return &apps[0], nil
}

func composeRoute(m Manifest) string {
	if m.Domain == "" {
		return ""
	}
	route := m.Domain
	if m.Host != "" {
		route = m.Host + "." + m.Domain
	}
	if m.RoutePath != "" {
		route += m.RoutePath
	}
	return route
}

func mbString(mb int) string {
	if mb <= 0 {
		return ""
	}
	return strconv.Itoa(mb) + "M"
}
