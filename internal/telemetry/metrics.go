/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var buildDurationBuckets = []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

var (
	// APIActiveConnections tracks in-flight HTTP requests served by the
	// ops surface (metrics/health endpoints only; the scheduler API itself
	// is a Non-goal).
	APIActiveConnections = newGauge(
		"signalcaster_api_active_connections",
		"Number of in-flight HTTP requests.",
	)

	// APIRequestDuration is request latency partitioned by method, route and status.
	APIRequestDuration = newHistogram(
		"signalcaster_api_request_duration_seconds",
		"HTTP request latency in seconds.",
		buildDurationBuckets,
		"method", "endpoint", "status",
	)

	// APIRequestsTotal counts HTTP requests partitioned by method, route and status.
	APIRequestsTotal = newCounter(
		"signalcaster_api_requests_total",
		"Total HTTP requests served.",
		"method", "endpoint", "status",
	)

	// SchedulerTicksTotal counts scheduler loop iterations.
	SchedulerTicksTotal = newCounter(
		"signalcaster_scheduler_ticks_total",
		"Total scheduler loop ticks.",
	).WithLabelValues()

	// SchedulerErrorsTotal counts scheduler failures by station and stage.
	SchedulerErrorsTotal = newCounter(
		"signalcaster_scheduler_errors_total",
		"Total scheduler errors, partitioned by station and failing stage.",
		"station_id", "stage",
	)

	// ScheduleBuildDuration is the wall-clock time to build+persist one station's schedule.
	ScheduleBuildDuration = newHistogram(
		"signalcaster_schedule_build_duration_seconds",
		"Time to compile and materialize one station's schedule.",
		buildDurationBuckets,
		"station_id",
	)

	// ScheduleEntriesTotal counts persisted ScheduleEntry rows by station.
	ScheduleEntriesTotal = newCounter(
		"signalcaster_schedule_entries_total",
		"Total materialized schedule entries, partitioned by station.",
		"station_id",
	)

	// SmartBlockMaterializeDuration is the time spent inside the smart
	// block engine per station/block.
	SmartBlockMaterializeDuration = newHistogram(
		"signalcaster_smart_block_materialize_duration_seconds",
		"Time spent generating a smart block sequence.",
		buildDurationBuckets,
		"station_id", "smart_block_id",
	)

	// BuildProgressRatio is set once after each station's playout build to the
	// fraction of schedule items it dispatched, consumed by operators rather
	// than by the core.
	BuildProgressRatio = newGaugeVec(
		"signalcaster_build_progress_ratio",
		"Fraction of a station's schedule items processed by the current build, 0 to 1.",
		"station_id",
	)

	// BuildErrorsTotal counts playout.BuildError occurrences by error kind.
	BuildErrorsTotal = newCounter(
		"signalcaster_build_errors_total",
		"Total playout build errors, partitioned by error kind.",
		"kind",
	)

	// ExecutorState reports the liveness of the downstream playout executor: 1 up, 0 down.
	ExecutorState = newGauge(
		"signalcaster_executor_state",
		"Playout executor connection state (1=up, 0=down).",
	)

	// PlayoutDropoutCountTotal counts observed dead-air/dropout events per station.
	PlayoutDropoutCountTotal = newCounter(
		"signalcaster_playout_dropout_count_total",
		"Total observed playout dropouts (dead air), partitioned by station.",
		"station_id",
	)

	// MediaEngineConnectionStatus reports media engine connectivity: 1 up, 0 down.
	MediaEngineConnectionStatus = newGauge(
		"signalcaster_media_engine_connection_status",
		"Media engine connection status (1=up, 0=down).",
	)

	// DatabaseConnectionsActive reports the active DB pool size.
	DatabaseConnectionsActive = newGauge(
		"signalcaster_database_connections_active",
		"Active database connections.",
	)

	// LeaderElectionStatus reports whether this node currently holds scheduling leadership.
	LeaderElectionStatus = newGaugeVec(
		"signalcaster_leader_election_status",
		"Leadership status of this node (1=leader, 0=follower).",
		"instance_id",
	)

	// LeaderElectionChanges counts leadership transitions by instance and event (acquired/lost).
	LeaderElectionChanges = newCounter(
		"signalcaster_leader_election_changes_total",
		"Total leadership transitions, partitioned by instance and event.",
		"instance_id", "event",
	)

	// DatabaseQueryDuration is gorm query latency by operation and table.
	DatabaseQueryDuration = newHistogram(
		"signalcaster_database_query_duration_seconds",
		"Database query latency in seconds, partitioned by operation and table.",
		buildDurationBuckets,
		"operation", "table",
	)

	// DatabaseErrorsTotal counts gorm query errors by operation and reason.
	DatabaseErrorsTotal = newCounter(
		"signalcaster_database_errors_total",
		"Total database errors, partitioned by operation and reason.",
		"operation", "reason",
	)

	// ScheduleValidationViolationsTotal counts schedule rule violations found
	// after materialization, partitioned by station and severity.
	ScheduleValidationViolationsTotal = newCounter(
		"signalcaster_schedule_validation_violations_total",
		"Total schedule rule violations detected, partitioned by station and severity.",
		"station_id", "severity",
	)

	// LiveSessionsActive counts concurrently active live-source sessions.
	LiveSessionsActive = newGauge(
		"signalcaster_live_sessions_active",
		"Number of active live-source sessions.",
	)

	// WebstreamHealthStatus reports relay stream health: 1 healthy, 0 unhealthy.
	WebstreamHealthStatus = newGauge(
		"signalcaster_webstream_health_status",
		"Webstream relay health status (1=healthy, 0=unhealthy).",
	)
)

func newCounter(name, help string, labels ...string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	prometheus.MustRegister(cv)
	return cv
}

func newHistogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    help,
		Buckets: buckets,
	}, labels)
	prometheus.MustRegister(hv)
	return hv
}

func newGauge(name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	prometheus.MustRegister(g)
	return g
}

func newGaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
	prometheus.MustRegister(gv)
	return gv
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
