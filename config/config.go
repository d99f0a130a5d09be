package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	coretypes "github.com/projecteru2/core/types"
)

// Config holds global corral configuration.
type Config struct {
	// DataDir is the base directory for persistent, authoritative state
	// (the instance registry, settings, MAC allocations).
	DataDir string `json:"data_dir"`
	// CacheDir is the legacy/fallback directory consulted when DataDir
	// does not yet hold a registry file, and where downloaded image
	// artifacts are cached.
	CacheDir string `json:"cache_dir"`
	// Backend names the hypervisor back-end in use; it selects the
	// per-backend subdirectory under DataDir/CacheDir.
	Backend string `json:"backend"`
	// PoolSize is the worker-pool size for concurrent async readiness
	// waits. Defaults to runtime.NumCPU() if zero.
	PoolSize int `json:"pool_size"`
	// Log configuration, uses eru core's ServerLogConfig.
	Log coretypes.ServerLogConfig `json:"log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:  "/var/lib/corral",
		CacheDir: "/var/cache/corral",
		Backend:  "default",
		PoolSize: runtime.NumCPU(),
		Log: coretypes.ServerLogConfig{
			Level:      "info",
			MaxSize:    500,
			MaxAge:     28,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from file, falling back to defaults.
// A missing file is not an error: the defaults are used as-is.
func LoadConfig(path string) (*Config, error) {
	conf := DefaultConfig()
	if path == "" {
		return conf, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // config path from CLI flag
	if err != nil {
		if os.IsNotExist(err) {
			return conf, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if conf.PoolSize <= 0 {
		conf.PoolSize = runtime.NumCPU()
	}
	return conf, nil
}
