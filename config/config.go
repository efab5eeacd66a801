// Package config loads server configuration from YAML with environment
// overrides.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the server configuration.
type Config struct {
	HTTPAddr             string
	StreamAddr           string
	RedisURL             string
	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	HeartbeatInterval    time.Duration
	SessionSweepInterval time.Duration
	LoginRPS             float64
	LoginBurst           int
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:             ":9000",
		StreamAddr:           ":9001",
		AccessTTL:            15 * time.Minute,
		RefreshTTL:           7 * 24 * time.Hour,
		HeartbeatInterval:    30 * time.Second,
		SessionSweepInterval: time.Minute,
		LoginRPS:             1,
		LoginBurst:           5,
	}
}

// fileConfig is the YAML-facing shape. Durations are strings in Go duration
// syntax ("15m", "24h").
type fileConfig struct {
	HTTPAddr             string  `yaml:"httpAddr"`
	StreamAddr           string  `yaml:"streamAddr"`
	RedisURL             string  `yaml:"redisUrl"`
	AccessTTL            string  `yaml:"accessTtl"`
	RefreshTTL           string  `yaml:"refreshTtl"`
	HeartbeatInterval    string  `yaml:"heartbeatInterval"`
	SessionSweepInterval string  `yaml:"sessionSweepInterval"`
	LoginRPS             float64 `yaml:"loginRps"`
	LoginBurst           int     `yaml:"loginBurst"`
}

// Load merges defaults, the first readable config file and environment
// overrides, in that order.
func Load(configPath string) Config {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates, "configs/config.yaml")
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		merge(&cfg, parsed)
		break
	}

	applyEnvOverrides(&cfg)
	return cfg
}

func merge(dst *Config, src fileConfig) {
	if src.HTTPAddr != "" {
		dst.HTTPAddr = src.HTTPAddr
	}
	if src.StreamAddr != "" {
		dst.StreamAddr = src.StreamAddr
	}
	if src.RedisURL != "" {
		dst.RedisURL = src.RedisURL
	}
	mergeDuration(&dst.AccessTTL, src.AccessTTL)
	mergeDuration(&dst.RefreshTTL, src.RefreshTTL)
	mergeDuration(&dst.HeartbeatInterval, src.HeartbeatInterval)
	mergeDuration(&dst.SessionSweepInterval, src.SessionSweepInterval)
	if src.LoginRPS > 0 {
		dst.LoginRPS = src.LoginRPS
	}
	if src.LoginBurst > 0 {
		dst.LoginBurst = src.LoginBurst
	}
}

func mergeDuration(dst *time.Duration, raw string) {
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		*dst = d
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COURIER_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("COURIER_STREAM_ADDR"); v != "" {
		cfg.StreamAddr = v
	}
	if v := os.Getenv("COURIER_REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("COURIER_ACCESS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.AccessTTL = d
		}
	}
	if v := os.Getenv("COURIER_REFRESH_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RefreshTTL = d
		}
	}
	if v := os.Getenv("COURIER_HEARTBEAT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.HeartbeatInterval = d
		}
	}
	if v := os.Getenv("COURIER_SESSION_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SessionSweepInterval = d
		}
	}
	if v := os.Getenv("COURIER_LOGIN_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.LoginRPS = f
		}
	}
	if v := os.Getenv("COURIER_LOGIN_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LoginBurst = n
		}
	}
}
