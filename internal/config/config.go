package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/janekbaraniewski/copilotspend/internal/core"
)

const (
	defaultGHBinary       = "gh"
	defaultSeed           = "copilotspend"
	defaultListen         = "127.0.0.1:5174"
	defaultReportCacheTTL = 300
	defaultGHConcurrency  = 4
)

type Config struct {
	Org                   string `json:"org"`
	GHBinary              string `json:"gh_binary"`
	Seed                  string `json:"seed"`
	Range                 string `json:"range"`
	Mode                  string `json:"mode"`
	Listen                string `json:"listen"`
	ReportCacheTTLSeconds int    `json:"report_cache_ttl_seconds"`
	GHConcurrency         int    `json:"gh_concurrency"`
	Verbose               bool   `json:"verbose"`
}

func DefaultConfig() Config {
	return Config{
		GHBinary:              defaultGHBinary,
		Seed:                  defaultSeed,
		Range:                 string(core.Range14d),
		Mode:                  string(core.ModeCost),
		Listen:                defaultListen,
		ReportCacheTTLSeconds: defaultReportCacheTTL,
		GHConcurrency:         defaultGHConcurrency,
	}
}

// ReportCacheTTL is the metrics report reuse window.
func (c Config) ReportCacheTTL() time.Duration {
	return time.Duration(c.ReportCacheTTLSeconds) * time.Second
}

func (c Config) RangePreset() core.RangePreset {
	return core.ParseRangePreset(c.Range)
}

func (c Config) ViewMode() core.ViewMode {
	mode, _ := core.ParseViewMode(c.Mode)
	return mode
}

func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "copilotspend")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "copilotspend")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "settings.json")
}

// Load reads the settings file and applies .env and environment overrides.
func Load() (Config, error) {
	cfg, err := LoadFrom(ConfigPath())
	if err != nil {
		return cfg, err
	}
	return ApplyEnv(cfg, LookupEnv(EnvPaths())), nil
}

func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
	}
	return normalize(cfg), nil
}

// normalize resets unusable values to their defaults.
func normalize(cfg Config) Config {
	def := DefaultConfig()

	cfg.Org = strings.TrimSpace(cfg.Org)
	if strings.TrimSpace(cfg.GHBinary) == "" {
		cfg.GHBinary = def.GHBinary
	}
	if strings.TrimSpace(cfg.Seed) == "" {
		cfg.Seed = def.Seed
	}
	if string(core.ParseRangePreset(cfg.Range)) != cfg.Range {
		cfg.Range = def.Range
	}
	if _, ok := core.ParseViewMode(cfg.Mode); !ok {
		cfg.Mode = def.Mode
	}
	if strings.TrimSpace(cfg.Listen) == "" {
		cfg.Listen = def.Listen
	}
	if cfg.ReportCacheTTLSeconds <= 0 {
		cfg.ReportCacheTTLSeconds = def.ReportCacheTTLSeconds
	}
	if cfg.GHConcurrency <= 0 {
		cfg.GHConcurrency = def.GHConcurrency
	}
	return cfg
}

// saveMu guards read-modify-write cycles on the config file.
var saveMu sync.Mutex

func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

func SaveTo(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SaveOrg persists the default org into the config file (read-modify-write).
func SaveOrg(org string) error {
	return SaveOrgTo(ConfigPath(), org)
}

func SaveOrgTo(path string, org string) error {
	saveMu.Lock()
	defer saveMu.Unlock()

	cfg, err := LoadFrom(path)
	if err != nil {
		cfg = DefaultConfig()
	}
	cfg.Org = strings.TrimSpace(org)
	return SaveTo(path, cfg)
}
