package telemetry

import (
	"context"
)

// Telemetry bundles the logger, tracer, and metrics behind one handle.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Config  *Config
}

// New creates a telemetry instance from configuration.
func New(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}
	if err := metrics.StartServer(); err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Config:  cfg,
	}, nil
}

// NewNop returns a telemetry instance that records nothing. Used by tests
// and as the default when no instance is supplied.
func NewNop() *Telemetry {
	cfg := DefaultConfig()
	cfg.Logging.Level = "fatal"
	cfg.Logging.Format = "json"
	tel, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return tel
}

// Shutdown flushes and stops every telemetry subsystem.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var firstErr error
	if t.Tracer != nil {
		if err := t.Tracer.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if t.Metrics != nil {
		if err := t.Metrics.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
