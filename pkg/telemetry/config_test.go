package telemetry

import "testing"

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestValidateRejectsBadExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "jaeger"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unsupported exporter")
	}
}

func TestValidateRejectsBadSamplingRate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tracing.SamplingRate = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for sampling rate > 1")
	}
}

func TestNopTelemetry(t *testing.T) {
	tel := NewNop()
	tel.Logger.Info("dropped")
	tel.Metrics.RecordDeployStarted("ticktock")
	tel.Metrics.RecordPollAttempt("package")
}
