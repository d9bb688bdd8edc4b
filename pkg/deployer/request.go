package deployer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Deployment property keys recognized in a request's deployment-property
// bag. Each overrides the corresponding process-wide default.
const (
	PropMemory      = "cf.memory"
	PropDisk        = "cf.disk"
	PropBuildpack   = "cf.buildpack"
	PropServices    = "cf.services"
	PropInstances   = "cf.instances"
	PropHost        = "cf.host"
	PropDomain      = "cf.domain"
	PropRoutePath   = "cf.route-path"
	PropNoRoute     = "cf.no-route"
	PropHealthCheck = "cf.health-check"
)

// Request is an immutable deployment, launch, or schedule request. It is
// consumed once per orchestration call and never mutated.
type Request struct {
	// Definition carries the application identity and its properties.
	Definition Definition

	// Bits is the artifact stream. Exactly one of Bits and DockerImage
	// must be set.
	Bits io.Reader

	// DockerImage is an image reference deployed instead of uploaded bits.
	DockerImage string

	// DeploymentProperties are platform-specific overrides keyed by the
	// Prop* constants.
	DeploymentProperties map[string]string

	// Args are command-line arguments passed to the application or
	// appended to a task command.
	Args []string
}

// Definition is the application identity and its application-level
// properties. Properties become the environment (see env.go).
type Definition struct {
	// Name is the application name within its group.
	Name string

	// Group is the optional logical grouping, folded into the deployment
	// id.
	Group string

	// Properties is application-level configuration, delivered to the
	// running application through the environment.
	Properties map[string]string
}

// Defaults is the process-wide deployment configuration, merged with each
// request's deployment properties under override-wins precedence. Loaded
// once at startup and read-only thereafter.
type Defaults struct {
	MemoryMB    int
	DiskMB      int
	Buildpack   string
	Services    []string
	Instances   int
	Domain      string
	Host        string
	RoutePath   string
	HealthCheck string
}

// settings is the resolved per-request view after merging Defaults with a
// request's deployment properties.
type settings struct {
	MemoryMB    int
	DiskMB      int
	Buildpack   string
	Services    []string
	Instances   int
	Domain      string
	Host        string
	RoutePath   string
	NoRoute     bool
	HealthCheck string
}

// healthCheckLiterals are the accepted health-check types.
var healthCheckLiterals = map[string]bool{
	"port":    true,
	"process": true,
	"http":    true,
}

// resolveSettings merges defaults with the request's deployment
// properties. Request values win. Malformed numeric or enum literals are
// rejected here, before any remote call.
func resolveSettings(defaults Defaults, req *Request) (*settings, error) {
	s := &settings{
		MemoryMB:    defaults.MemoryMB,
		DiskMB:      defaults.DiskMB,
		Buildpack:   defaults.Buildpack,
		Services:    append([]string(nil), defaults.Services...),
		Instances:   defaults.Instances,
		Domain:      defaults.Domain,
		Host:        defaults.Host,
		RoutePath:   defaults.RoutePath,
		HealthCheck: defaults.HealthCheck,
	}
	if s.Instances == 0 {
		s.Instances = 1
	}

	props := req.DeploymentProperties
	var err error
	if s.MemoryMB, err = intProp(props, PropMemory, s.MemoryMB); err != nil {
		return nil, err
	}
	if s.DiskMB, err = intProp(props, PropDisk, s.DiskMB); err != nil {
		return nil, err
	}
	if s.Instances, err = intProp(props, PropInstances, s.Instances); err != nil {
		return nil, err
	}
	if v, ok := props[PropBuildpack]; ok {
		s.Buildpack = v
	}
	if v, ok := props[PropDomain]; ok {
		s.Domain = v
	}
	if v, ok := props[PropHost]; ok {
		s.Host = v
	}
	if v, ok := props[PropRoutePath]; ok {
		s.RoutePath = v
	}
	if v, ok := props[PropNoRoute]; ok {
		noRoute, parseErr := strconv.ParseBool(v)
		if parseErr != nil {
			return nil, NewInvalidInputError(fmt.Sprintf("property %s: %q is not a boolean", PropNoRoute, v), parseErr)
		}
		s.NoRoute = noRoute
	}
	if v, ok := props[PropHealthCheck]; ok {
		s.HealthCheck = v
	}
	if s.HealthCheck != "" && !healthCheckLiterals[s.HealthCheck] {
		return nil, NewInvalidInputError(fmt.Sprintf("property %s: %q is not one of port, process, http", PropHealthCheck, s.HealthCheck), nil)
	}

	// Request services are a union with the defaults, not a replacement.
	if v, ok := props[PropServices]; ok {
		for _, svc := range strings.Split(v, ",") {
			if svc = strings.TrimSpace(svc); svc != "" {
				s.Services = appendUnique(s.Services, svc)
			}
		}
	}

	return s, nil
}

func intProp(props map[string]string, key string, fallback int) (int, error) {
	v, ok := props[key]
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, NewInvalidInputError(fmt.Sprintf("property %s: %q is not an integer", key, v), err)
	}
	return n, nil
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}

// validateRequest rejects requests that cannot possibly succeed remotely.
func validateRequest(req *Request) error {
	if req == nil {
		return NewInvalidInputError("request is nil", nil)
	}
	if req.Definition.Name == "" {
		return NewInvalidInputError("application name is required", nil)
	}
	if (req.Bits == nil) == (req.DockerImage == "") {
		return NewInvalidInputError("exactly one of bits and docker image must be set", nil).WithResource(req.Definition.Name)
	}
	return nil
}
