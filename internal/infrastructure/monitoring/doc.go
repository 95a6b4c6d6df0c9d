/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the shell,
tracking lifecycle transitions, intent dispatches, result delivery, package
installs, HTTP requests, and WebSocket connections.

# Features

- Lifecycle hook metrics (count by hook and component, duration)
- Back stack depth gauge
- Intent dispatch metrics (kind, outcome)
- Result channel metrics (delivered, discarded)
- Package install metrics
- HTTP request metrics (latency, throughput, size)
- WebSocket connection metrics
- Rolling hook-latency aggregation for the JSON endpoint

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record navigator activity
	metrics.RecordTransition(transition)
	metrics.SetStackDepth(3)

	// Aggregated snapshot for the JSON API
	agg := metrics.Snapshot()

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
