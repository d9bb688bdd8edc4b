package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/skylift/skylift/pkg/cfapi"
	"github.com/skylift/skylift/pkg/deployer"
	"github.com/skylift/skylift/pkg/telemetry"
)

// Duration wraps time.Duration so budgets can be written as "30s" or
// "5m" in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration.
type Config struct {
	// Connection describes the platform and scheduler endpoints.
	Connection ConnectionConfig `yaml:"connection" validate:"required"`

	// Deployer holds deployment defaults and operation budgets.
	Deployer DeployerConfig `yaml:"deployer"`

	// Cache selects the schedule-name cache backend.
	Cache CacheConfig `yaml:"cache"`

	// Telemetry configures logging, tracing, and metrics.
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// ConnectionConfig describes how to reach the platform.
type ConnectionConfig struct {
	// APIURL is the platform API endpoint.
	APIURL string `yaml:"api_url" validate:"required,url"`

	// SchedulerURL is the scheduler-service endpoint. Required only when
	// schedule operations are used.
	SchedulerURL string `yaml:"scheduler_url" validate:"omitempty,url"`

	// Token is the OAuth bearer token.
	Token string `yaml:"token" validate:"required"`

	// SpaceGUID is the target space. Leave empty to resolve it from
	// SpaceName at startup.
	SpaceGUID string `yaml:"space_guid" validate:"required_without=SpaceName"`

	// SpaceName is the target space by name, resolved to a guid through
	// the platform's space listing. SpaceGUID takes precedence when both
	// are set.
	SpaceName string `yaml:"space_name"`

	// SkipSSLValidation disables certificate verification.
	SkipSSLValidation bool `yaml:"skip_ssl_validation"`

	// RequestTimeout bounds each HTTP round trip.
	RequestTimeout Duration `yaml:"request_timeout"`
}

// DeployerConfig holds process-wide deployment defaults and the budgets
// for each orchestrator operation. Zero values fall back to the built-in
// defaults.
type DeployerConfig struct {
	GroupPrefix        string `yaml:"group_prefix"`
	RandomizeNames     bool   `yaml:"randomize_names"`
	CombinedProperties *bool  `yaml:"combined_properties"`

	MemoryMB    int      `yaml:"memory_mb" validate:"omitempty,min=1"`
	DiskMB      int      `yaml:"disk_mb" validate:"omitempty,min=1"`
	Buildpack   string   `yaml:"buildpack"`
	Services    []string `yaml:"services"`
	Instances   int      `yaml:"instances" validate:"omitempty,min=1"`
	Domain      string   `yaml:"domain"`
	Host        string   `yaml:"host"`
	RoutePath   string   `yaml:"route_path"`
	HealthCheck string   `yaml:"health_check" validate:"omitempty,oneof=port process http"`

	StagingTimeout      Duration `yaml:"staging_timeout"`
	StartupTimeout      Duration `yaml:"startup_timeout"`
	StatusTimeout       Duration `yaml:"status_timeout"`
	StatusRetryAttempts int      `yaml:"status_retry_attempts" validate:"omitempty,min=1"`
	StatusRetryDelay    Duration `yaml:"status_retry_delay"`
	TaskStatusTimeout   Duration `yaml:"task_status_timeout"`
	ScheduleSSLRetries  *int     `yaml:"schedule_ssl_retries" validate:"omitempty,min=0"`
	ScheduleTimeout     Duration `yaml:"schedule_timeout"`
	UnscheduleTimeout   Duration `yaml:"unschedule_timeout"`
	ListTimeout         Duration `yaml:"list_timeout"`
}

// CacheConfig selects the schedule-name cache backend.
type CacheConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend" validate:"omitempty,oneof=memory sqlite"`

	// Path is the database file, required for the sqlite backend.
	Path string `yaml:"path"`
}

// Default returns the configuration used when the file supplies nothing
// beyond the connection section.
func Default() *Config {
	return &Config{
		Cache:     CacheConfig{Backend: "memory"},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// Load reads, decodes, and validates the configuration file at path.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates raw YAML configuration bytes.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks structural constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Cache.Backend == "sqlite" && c.Cache.Path == "" {
		return fmt.Errorf("invalid config: cache.path is required for the sqlite backend")
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ClientConfig converts the connection section into the API client's
// configuration.
func (c *Config) ClientConfig() cfapi.Config {
	return cfapi.Config{
		APIURL:            c.Connection.APIURL,
		SchedulerURL:      c.Connection.SchedulerURL,
		Token:             c.Connection.Token,
		SpaceGUID:         c.Connection.SpaceGUID,
		SkipSSLValidation: c.Connection.SkipSSLValidation,
		RequestTimeout:    c.Connection.RequestTimeout.Std(),
	}
}

// Options converts the deployer section into orchestrator options,
// filling every unset field from the built-in defaults.
func (c *Config) Options() deployer.Options {
	opts := deployer.DefaultOptions()
	d := c.Deployer

	opts.GroupPrefix = d.GroupPrefix
	opts.RandomizeNames = d.RandomizeNames
	opts.SpaceGUID = c.Connection.SpaceGUID
	if d.CombinedProperties != nil {
		opts.CombinedProperties = *d.CombinedProperties
	}

	if d.MemoryMB > 0 {
		opts.Defaults.MemoryMB = d.MemoryMB
	}
	if d.DiskMB > 0 {
		opts.Defaults.DiskMB = d.DiskMB
	}
	if d.Buildpack != "" {
		opts.Defaults.Buildpack = d.Buildpack
	}
	if len(d.Services) > 0 {
		opts.Defaults.Services = append([]string(nil), d.Services...)
	}
	if d.Instances > 0 {
		opts.Defaults.Instances = d.Instances
	}
	if d.Domain != "" {
		opts.Defaults.Domain = d.Domain
	}
	if d.Host != "" {
		opts.Defaults.Host = d.Host
	}
	if d.RoutePath != "" {
		opts.Defaults.RoutePath = d.RoutePath
	}
	if d.HealthCheck != "" {
		opts.Defaults.HealthCheck = d.HealthCheck
	}

	if d.StagingTimeout > 0 {
		opts.StagingTimeout = d.StagingTimeout.Std()
	}
	if d.StartupTimeout > 0 {
		opts.StartupTimeout = d.StartupTimeout.Std()
	}
	if d.StatusTimeout > 0 {
		opts.StatusTimeout = d.StatusTimeout.Std()
	}
	if d.StatusRetryAttempts > 0 {
		opts.StatusRetryAttempts = d.StatusRetryAttempts
	}
	if d.StatusRetryDelay > 0 {
		opts.StatusRetryDelay = d.StatusRetryDelay.Std()
	}
	if d.TaskStatusTimeout > 0 {
		opts.TaskStatusTimeout = d.TaskStatusTimeout.Std()
	}
	if d.ScheduleSSLRetries != nil {
		opts.ScheduleSSLRetries = *d.ScheduleSSLRetries
	}
	if d.ScheduleTimeout > 0 {
		opts.ScheduleTimeout = d.ScheduleTimeout.Std()
	}
	if d.UnscheduleTimeout > 0 {
		opts.UnscheduleTimeout = d.UnscheduleTimeout.Std()
	}
	if d.ListTimeout > 0 {
		opts.ListTimeout = d.ListTimeout.Std()
	}
	return opts
}
