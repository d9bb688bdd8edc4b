// Package telemetry provides observability instrumentation for the
// adapter: structured logging (zerolog), distributed tracing
// (OpenTelemetry), and Prometheus metrics.
//
// Initialize telemetry at startup:
//
//	tel, err := telemetry.New(telemetry.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Orchestrators take component loggers and record operation metrics:
//
//	logger := tel.Logger.NewComponentLogger("deployer").
//	    WithDeploymentID("dataflow-server-ticktock-time")
//	logger.Info("deployment accepted")
package telemetry
