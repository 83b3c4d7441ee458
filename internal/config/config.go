// Package config loads the core's tunables from YAML with environment
// overrides layered on top of built-in defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// KDFIterations is the PBKDF2 cost for master-key derivation. Values
	// below the securestore floor are clamped up at derivation time.
	KDFIterations int `yaml:"kdfIterations"`
	// DataDir is where locally persisted state lives, when any is configured.
	DataDir string `yaml:"dataDir"`
	// SnapshotPassphrase seals the local state snapshot in DataDir. Both must
	// be set for persistence to be active; it normally arrives via env.
	SnapshotPassphrase string `yaml:"snapshotPassphrase"`
	// LoginRPS / LoginBurst shape the per-account login rate limit.
	LoginRPS   float64 `yaml:"loginRps"`
	LoginBurst int     `yaml:"loginBurst"`
	// LoginIdleTTL bounds how long an idle rate-limit bucket is kept.
	LoginIdleTTL time.Duration `yaml:"loginIdleTtl"`
	// MetricsAddr is the Prometheus scrape listen address; empty disables it.
	MetricsAddr string `yaml:"metricsAddr"`
}

func Default() Config {
	return Config{
		KDFIterations: 100_000,
		LoginRPS:      0.2,
		LoginBurst:    5,
		LoginIdleTTL:  15 * time.Minute,
	}
}

// LoadFromPath reads configPath if given, otherwise tries the conventional
// locations. A missing or unparsable file falls back to defaults; env
// overrides always apply last.
func LoadFromPath(configPath string) Config {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates, "configs/core.yaml", "core.yaml")
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		Merge(&cfg, parsed)
		break
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

func Merge(dst *Config, src Config) {
	if src.KDFIterations != 0 {
		dst.KDFIterations = src.KDFIterations
	}
	if src.DataDir != "" {
		dst.DataDir = src.DataDir
	}
	if src.SnapshotPassphrase != "" {
		dst.SnapshotPassphrase = src.SnapshotPassphrase
	}
	if src.LoginRPS != 0 {
		dst.LoginRPS = src.LoginRPS
	}
	if src.LoginBurst != 0 {
		dst.LoginBurst = src.LoginBurst
	}
	if src.LoginIdleTTL != 0 {
		dst.LoginIdleTTL = src.LoginIdleTTL
	}
	if src.MetricsAddr != "" {
		dst.MetricsAddr = src.MetricsAddr
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if raw := strings.TrimSpace(os.Getenv("SEALCHAT_KDF_ITERATIONS")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.KDFIterations = v
		}
	}
	if dir := strings.TrimSpace(os.Getenv("SEALCHAT_DATA_DIR")); dir != "" {
		cfg.DataDir = dir
	}
	if addr := strings.TrimSpace(os.Getenv("SEALCHAT_METRICS_ADDR")); addr != "" {
		cfg.MetricsAddr = addr
	}
	if pass := os.Getenv("SEALCHAT_SNAPSHOT_PASSPHRASE"); pass != "" {
		cfg.SnapshotPassphrase = pass
	}
}
