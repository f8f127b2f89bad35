// Package metric provides Prometheus-based metrics collection and an HTTP
// server for Gauss pipeline observability.
//
// The package offers a centralized metrics registry managing both core
// engine metrics (pipeline status, topic depth, zero-copy bypass activity)
// and custom processor-specific metrics. It includes an HTTP server exposing
// metrics in Prometheus format for monitoring system integration.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core Metrics: Engine-level metrics automatically registered (Metrics type)
//  2. Processor Registry: Extensible registration for processor-specific metrics (MetricsRegistrar interface)
//  3. HTTP Server: Metrics endpoint with health checks (Server type)
//
// This architecture separates infrastructure concerns (core metrics) from
// processor-specific concerns while providing a unified metrics endpoint for
// monitoring systems.
//
// # Basic Usage
//
// Setting up metrics collection and HTTP server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil && err != http.ErrServerClosed {
//	        log.Printf("Metrics server error: %v", err)
//	    }
//	}()
//
//	coreMetrics := registry.CoreMetrics()
//	coreMetrics.RecordServiceStatus("ingest-pipeline", 3) // 3 = running
//
// The metrics server exposes Prometheus-formatted metrics at
// http://localhost:9090/metrics and a health check at
// http://localhost:9090/health.
//
// # Core Metrics
//
// The package automatically registers core engine metrics tracking:
//
//   - Pipeline lifecycle: pipeline_status
//   - Record flow: messages_received_total, messages_processed_total, messages_published_total
//   - Processing performance: processing_duration_seconds
//   - Topic storage: topic_depth, topic_overflow_total
//   - Zero-copy bypass: zerocopy_bytes_total, zerocopy_fallbacks_total
//   - Error tracking: errors_total
//
// # Processor-Specific Metrics
//
// Processors register custom metrics through the registry:
//
//	requestCounter := prometheus.NewCounter(prometheus.CounterOpts{
//	    Name: "rows_converted_total",
//	    Help: "Total number of rows converted",
//	})
//	err := registry.RegisterCounter("pg-to-ch", "rows_converted_total", requestCounter)
//
// # HTTP Server
//
// The metrics server provides three endpoints:
//
//   - GET / - HTML page with links to metrics and health endpoints
//   - GET /metrics - Prometheus-formatted metrics (default path, configurable)
//   - GET /health - plain-text health check response
//
// # MetricsRegistrar Interface
//
// Processors depend on the MetricsRegistrar interface rather than the
// concrete registry, enabling tests to supply a mock.
//
// # Thread Safety
//
// All registry operations are thread-safe: registration uses mutex
// protection, metric recording is lock-free (a Prometheus guarantee), and
// CoreMetrics/PrometheusRegistry are safe for concurrent access.
package metric
