// Package telemetry provides observability instrumentation for the heuristic
// engine and search driver.
//
// The package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), and metrics (Prometheus) into a unified system for
// monitoring and debugging heuristic computation and search runs.
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "planward"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	// Start metrics server
//	if err := tel.StartMetricsServer(); err != nil {
//	    log.Fatal(err)
//	}
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context
// propagation:
//
//	logger := tel.Logger.NewComponentLogger("heuristic")
//	logger = logger.WithTaskName("gripper-4").WithMode("add")
//	logger.Info("computing heuristic value")
//	logger.WithError(err).Error("oracle call failed")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Distributed Tracing
//
// Tracing provides visibility into heuristic computation and search flow:
//
//	ctx, span := tel.Tracer.StartComputeSpan(ctx, "add")
//	defer span.End()
//
//	span.SetAttributes(
//	    telemetry.AttrValue.Int(value),
//	    telemetry.AttrCacheHit.Bool(hit),
//	)
//
//	if err != nil {
//	    telemetry.RecordError(span, err)
//	}
//
// Supported exporters: OTLP/gRPC (production), stdout (development), none
// (testing).
//
// # Metrics
//
// Prometheus metrics track engine behavior and performance:
//
//	tel.Metrics.RecordComputeCall("add", duration)
//	tel.Metrics.RecordCacheHit()
//	tel.Metrics.RecordOracleCall(duration, false)
//	tel.Metrics.RecordDeadEnd()
//
// Metrics are exposed via HTTP at /metrics (default: :9090/metrics).
//
// # Graceful Shutdown
//
// Always shut down telemetry gracefully to flush pending traces:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	if err := tel.Shutdown(ctx); err != nil {
//	    log.Printf("telemetry shutdown error: %v", err)
//	}
package telemetry
