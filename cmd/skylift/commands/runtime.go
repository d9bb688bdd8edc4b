package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/skylift/skylift/pkg/cfapi"
	"github.com/skylift/skylift/pkg/config"
	"github.com/skylift/skylift/pkg/deployer"
	"github.com/skylift/skylift/pkg/stores"
	"github.com/skylift/skylift/pkg/telemetry"
)

// runtime bundles everything a command needs after configuration load.
type runtime struct {
	cfg      *config.Config
	tel      *telemetry.Telemetry
	client   cfapi.Client
	cache    stores.ScheduleCache
	deployer *deployer.AppDeployer
	launcher *deployer.TaskLauncher
	schedule *deployer.Scheduler
}

// newRuntime loads the configuration and wires the client, cache,
// telemetry, and orchestrators.
func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.New(&cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	var cache stores.ScheduleCache
	switch cfg.Cache.Backend {
	case "sqlite":
		cache, err = stores.NewSQLiteCache(ctx, stores.SQLiteConfig{Path: cfg.Cache.Path})
		if err != nil {
			return nil, fmt.Errorf("opening schedule cache: %w", err)
		}
	default:
		cache = stores.NewMemoryCache()
	}

	client := cfapi.NewHTTPClient(cfg.ClientConfig())
	if cfg.Connection.SpaceGUID == "" {
		// Space-bound endpoints need the guid, so resolve the configured
		// name before building the orchestrators.
		guid, err := cfapi.SpaceByName(ctx, client, cfg.Connection.SpaceName)
		if err != nil {
			return nil, fmt.Errorf("resolving space %q: %w", cfg.Connection.SpaceName, err)
		}
		cfg.Connection.SpaceGUID = guid
		client = cfapi.NewHTTPClient(cfg.ClientConfig())
		tel.Logger.WithField("space", cfg.Connection.SpaceName).Debugf("resolved space guid %s", guid)
	}
	opts := cfg.Options()

	launcher := deployer.NewTaskLauncher(client, opts, tel)
	return &runtime{
		cfg:      cfg,
		tel:      tel,
		client:   client,
		cache:    cache,
		deployer: deployer.NewAppDeployer(client, opts, tel),
		launcher: launcher,
		schedule: deployer.NewScheduler(client, launcher, cache, opts, tel),
	}, nil
}

// close flushes telemetry and releases the cache.
func (r *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.cache.Close(); err != nil {
		r.tel.Logger.WithError(err).Warn("closing schedule cache failed")
	}
	if err := r.tel.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", err)
	}
}

// parseProperties turns repeated key=value flags into a map.
func parseProperties(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	props := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed property %q, want key=value", pair)
		}
		props[key] = value
	}
	return props, nil
}

// printResult writes v as indented JSON when --json is set and as a
// plain line otherwise.
func printResult(v any, plain string) error {
	if jsonOutput {
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	fmt.Println(plain)
	return nil
}
