// Package config loads the service configuration from YAML with environment
// overrides for deployment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server struct {
		Addr        string   `yaml:"addr"`
		CORSOrigins []string `yaml:"cors_origins"`
		RateLimit   struct {
			RequestsPerSecond int `yaml:"requests_per_second"`
			Burst             int `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`

	Catalog struct {
		DatasetPath string `yaml:"dataset_path"`
	} `yaml:"catalog"`

	Model struct {
		TrainSchedule string `yaml:"train_schedule"`
	} `yaml:"model"`

	Geocoder struct {
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"geocoder"`

	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`

	Cache struct {
		RedisAddr string        `yaml:"redis_addr"`
		TTL       time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
}

// Default returns the configuration used when no file is present: listen on
// port 8000 with in-memory storage.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8000"
	cfg.Server.CORSOrigins = []string{"*"}
	cfg.Model.TrainSchedule = "@every 10m"
	cfg.Cache.TTL = time.Minute
	return cfg
}

// Load reads the configuration file at path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err):
		// defaults
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	applyEnv(cfg)
	return cfg, nil
}

// applyEnv lets deployment override file values without editing the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("RECOMMENDER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("RECOMMENDER_DATASET"); v != "" {
		cfg.Catalog.DatasetPath = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("GEOCODER_ENDPOINT"); v != "" {
		cfg.Geocoder.Endpoint = v
	}
	if v := os.Getenv("GEOCODER_API_KEY"); v != "" {
		cfg.Geocoder.APIKey = v
	}
	if v := os.Getenv("TRAIN_SCHEDULE"); v != "" {
		cfg.Model.TrainSchedule = v
	}
}
