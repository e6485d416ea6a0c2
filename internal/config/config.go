/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseBackend selects the gorm dialector used to open the schedule store.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int

	DBBackend DatabaseBackend
	DBDSN     string

	// Playout build parameters.
	BuildLookahead  time.Duration // how far past "now" a build pass must materialize
	BuildHardStop   time.Duration // absolute ceiling on a single build call, regardless of lookahead
	StationTimezone string        // IANA zone name used when no per-station override is stored

	MetricsBind string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Multi-instance configuration
	LeaderElectionEnabled bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	InstanceID            string

	// Event bus configuration (NATS JetStream, falls back to in-memory).
	NATSURL    string
	NATSStream string

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"SIGNALCASTER_ENV", "GRIMNIR_ENV"}, "development"),
		HTTPBind:    getEnvAny([]string{"SIGNALCASTER_HTTP_BIND", "GRIMNIR_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:    getEnvIntAny([]string{"SIGNALCASTER_HTTP_PORT", "GRIMNIR_HTTP_PORT"}, 8080),

		DBBackend: DatabaseBackend(getEnvAny([]string{"SIGNALCASTER_DB_BACKEND", "GRIMNIR_DB_BACKEND"}, string(DatabasePostgres))),
		DBDSN:     getEnvAny([]string{"SIGNALCASTER_DB_DSN", "GRIMNIR_DB_DSN"}, ""),

		BuildLookahead:  time.Duration(getEnvIntAny([]string{"SIGNALCASTER_BUILD_LOOKAHEAD_HOURS"}, 48)) * time.Hour,
		BuildHardStop:   time.Duration(getEnvIntAny([]string{"SIGNALCASTER_BUILD_HARD_STOP_HOURS"}, 24*14)) * time.Hour,
		StationTimezone: getEnvAny([]string{"SIGNALCASTER_DEFAULT_TIMEZONE"}, "UTC"),

		MetricsBind: getEnvAny([]string{"SIGNALCASTER_METRICS_BIND", "GRIMNIR_METRICS_BIND"}, "127.0.0.1:9000"),

		TracingEnabled:    getEnvBoolAny([]string{"SIGNALCASTER_TRACING_ENABLED", "GRIMNIR_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"SIGNALCASTER_OTLP_ENDPOINT", "GRIMNIR_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"SIGNALCASTER_TRACING_SAMPLE_RATE", "GRIMNIR_TRACING_SAMPLE_RATE"}, 1.0),

		LeaderElectionEnabled: getEnvBoolAny([]string{"SIGNALCASTER_LEADER_ELECTION_ENABLED", "GRIMNIR_LEADER_ELECTION_ENABLED"}, false),
		RedisAddr:             getEnvAny([]string{"SIGNALCASTER_REDIS_ADDR", "GRIMNIR_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword:         getEnvAny([]string{"SIGNALCASTER_REDIS_PASSWORD", "GRIMNIR_REDIS_PASSWORD"}, ""),
		RedisDB:               getEnvIntAny([]string{"SIGNALCASTER_REDIS_DB", "GRIMNIR_REDIS_DB"}, 0),
		InstanceID:            getEnvAny([]string{"SIGNALCASTER_INSTANCE_ID", "GRIMNIR_INSTANCE_ID"}, ""),

		NATSURL:    getEnvAny([]string{"SIGNALCASTER_NATS_URL"}, "nats://localhost:4222"),
		NATSStream: getEnvAny([]string{"SIGNALCASTER_NATS_STREAM"}, "PLAYOUT_EVENTS"),
	}

	if getEnvAny([]string{"SIGNALCASTER_BUILD_LOOKAHEAD_HOURS"}, "") == "" {
		if mins := getEnvIntAny([]string{"GRIMNIR_SCHEDULER_LOOKAHEAD_MINUTES"}, 0); mins > 0 {
			cfg.BuildLookahead = time.Duration(mins) * time.Minute
		}
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("SIGNALCASTER_DB_DSN or GRIMNIR_DB_DSN must be provided")
	}

	if cfg.BuildLookahead <= 0 {
		return nil, fmt.Errorf("SIGNALCASTER_BUILD_LOOKAHEAD_HOURS must be positive")
	}

	if cfg.BuildHardStop < cfg.BuildLookahead {
		return nil, fmt.Errorf("SIGNALCASTER_BUILD_HARD_STOP_HOURS must be >= the lookahead window")
	}

	if _, err := time.LoadLocation(cfg.StationTimezone); err != nil {
		return nil, fmt.Errorf("invalid SIGNALCASTER_DEFAULT_TIMEZONE %q: %w", cfg.StationTimezone, err)
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"GRIMNIR_ENV":                         "use SIGNALCASTER_ENV",
		"GRIMNIR_DB_DSN":                      "use SIGNALCASTER_DB_DSN",
		"GRIMNIR_SCHEDULER_LOOKAHEAD_MINUTES": "use SIGNALCASTER_BUILD_LOOKAHEAD_HOURS",
		"GRIMNIR_LEADER_ELECTION_ENABLED":     "use SIGNALCASTER_LEADER_ELECTION_ENABLED",
		"GRIMNIR_TRACING_ENABLED":             "use SIGNALCASTER_TRACING_ENABLED",
		"GRIMNIR_OTLP_ENDPOINT":               "use SIGNALCASTER_OTLP_ENDPOINT",
		"GRIMNIR_TRACING_SAMPLE_RATE":         "use SIGNALCASTER_TRACING_SAMPLE_RATE",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
