// Package config loads the control plane's environment-variable
// configuration (spec §6). Every setting has a default, so the process
// boots cleanly with nothing set beyond cloud/Service credentials.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnv returns the trimmed value of key, or defaultValue if unset/blank.
func GetEnv(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool parses key as a bool ("true"/"1"/"yes" case-insensitive count
// as true), or returns defaultValue if unset/unparsable.
func GetEnvBool(key string, defaultValue bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "y":
		return true
	case "false", "0", "no", "n":
		return false
	default:
		return defaultValue
	}
}

// GetEnvInt parses key as an int, or returns defaultValue if unset/unparsable.
func GetEnvInt(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// GetEnvDuration parses key as a count of seconds, or returns defaultValue
// if unset/unparsable. Spec §6 expresses every interval in whole seconds.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return time.Duration(secs) * time.Second
}

// Config is the control plane's process-wide configuration, loaded once at
// startup via Load.
type Config struct {
	WorkerMetricsPollInterval time.Duration
	LabsRefreshInterval       time.Duration
	ActivityDetectionInterval time.Duration

	AutoImportWorkersEnabled  bool
	AutoImportWorkersInterval time.Duration
	AutoImportWorkersRegion   string
	AutoImportWorkersImage    string

	ServiceAPITimeout    time.Duration
	CloudControlTimeout  time.Duration
	CloudMetricsTimeout  time.Duration
	WorkerRefreshThrottle time.Duration
	IdleWindow           time.Duration

	// ServiceUsername/ServicePassword are the control plane's own Service
	// account, shared across every managed worker (spec §4.1: the Service
	// has no per-tenant credential store of its own).
	ServiceUsername    string
	ServicePassword    string
	ServicePort        string
	ServiceScheme      string
	ServiceSkipTLSVerify bool

	ShutdownGrace   time.Duration
	SubscriberQueue int

	HTTPAddr string
	DataDir  string

	// APITokens holds the raw "token:subject[:admin]" entries for the
	// static bearer-token validator (spec §6 scopes token issuance out
	// as an injected port; this is the reference implementation of it).
	APITokens []string
}

// Load reads Config from the environment, applying the defaults from
// spec §6.
func Load() Config {
	return Config{
		WorkerMetricsPollInterval: GetEnvDuration("WORKER_METRICS_POLL_INTERVAL", 300*time.Second),
		LabsRefreshInterval:       GetEnvDuration("LABS_REFRESH_INTERVAL", 1800*time.Second),
		ActivityDetectionInterval: GetEnvDuration("ACTIVITY_DETECTION_INTERVAL", 600*time.Second),

		AutoImportWorkersEnabled:  GetEnvBool("AUTO_IMPORT_WORKERS_ENABLED", false),
		AutoImportWorkersInterval: GetEnvDuration("AUTO_IMPORT_WORKERS_INTERVAL", 3600*time.Second),
		AutoImportWorkersRegion:   GetEnv("AUTO_IMPORT_WORKERS_REGION", ""),
		AutoImportWorkersImage:    GetEnv("AUTO_IMPORT_WORKERS_IMAGE_NAME", ""),

		ServiceAPITimeout:     GetEnvDuration("SERVICE_API_TIMEOUT", 15*time.Second),
		CloudControlTimeout:   GetEnvDuration("CLOUD_CONTROL_TIMEOUT", 15*time.Second),
		CloudMetricsTimeout:   GetEnvDuration("CLOUD_METRICS_TIMEOUT", 60*time.Second),
		WorkerRefreshThrottle: GetEnvDuration("WORKER_REFRESH_THROTTLE", 60*time.Second),
		IdleWindow:            GetEnvDuration("IDLE_WINDOW", 1800*time.Second),

		ShutdownGrace:   GetEnvDuration("SHUTDOWN_GRACE", 30*time.Second),
		SubscriberQueue: GetEnvInt("SUBSCRIBER_QUEUE", 1024),

		HTTPAddr: GetEnv("HTTP_ADDR", ":8080"),
		DataDir:  GetEnv("DATA_DIR", "./data"),

		ServiceUsername:      GetEnv("SERVICE_USERNAME", "admin"),
		ServicePassword:      GetEnv("SERVICE_PASSWORD", ""),
		ServicePort:          GetEnv("SERVICE_PORT", "443"),
		ServiceScheme:        GetEnv("SERVICE_SCHEME", "https"),
		ServiceSkipTLSVerify: GetEnvBool("SERVICE_SKIP_TLS_VERIFY", true),

		APITokens: splitNonEmpty(GetEnv("API_TOKENS", "")),
	}
}

// splitNonEmpty splits a comma-separated list, dropping blank entries.
func splitNonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
