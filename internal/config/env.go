package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvOrg       = "COPILOTSPEND_ORG"
	EnvSeed      = "COPILOTSPEND_SEED"
	EnvListen    = "COPILOTSPEND_LISTEN"
	EnvGH        = "COPILOTSPEND_GH"
	EnvDebug     = "COPILOTSPEND_DEBUG"
	EnvReportTTL = "COPILOTSPEND_REPORT_TTL"
)

// EnvPaths lists the .env locations checked, in priority order.
func EnvPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	paths = append(paths, filepath.Join(ConfigDir(), ".env"))
	return paths
}

// LookupEnv returns a lookup that prefers the process environment and falls
// back to the first readable .env file among paths. The process environment
// is never modified.
func LookupEnv(paths []string) func(string) string {
	var dotenv map[string]string
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if vars, err := godotenv.Read(path); err == nil {
			dotenv = vars
			break
		}
	}
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}
}

// ApplyEnv overlays COPILOTSPEND_* values onto cfg. Unparsable values are
// ignored.
func ApplyEnv(cfg Config, getenv func(string) string) Config {
	if v := strings.TrimSpace(getenv(EnvOrg)); v != "" {
		cfg.Org = v
	}
	if v := strings.TrimSpace(getenv(EnvSeed)); v != "" {
		cfg.Seed = v
	}
	if v := strings.TrimSpace(getenv(EnvListen)); v != "" {
		cfg.Listen = v
	}
	if v := strings.TrimSpace(getenv(EnvGH)); v != "" {
		cfg.GHBinary = v
	}
	if v := strings.TrimSpace(getenv(EnvDebug)); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			cfg.Verbose = debug
		}
	}
	if ttl := getEnvDuration(getenv, EnvReportTTL, 0); ttl > 0 {
		cfg.ReportCacheTTLSeconds = max(1, int(ttl/time.Second))
	}
	return cfg
}

// getEnvDuration accepts values like "30s" or "5m", or bare seconds.
func getEnvDuration(getenv func(string) string, key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(getenv(key)); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
