package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server struct {
		Port           string `yaml:"port"`
		RequestTimeout string `yaml:"request_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Storage struct {
		Driver     string `yaml:"driver"`
		SQLitePath string `yaml:"sqlite_path"`
		SeedFile   string `yaml:"seed_file"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Leaderboard struct {
		TTL string `yaml:"ttl"`
	} `yaml:"leaderboard"`
	Scoring struct {
		PassThreshold         int `yaml:"pass_threshold"`
		MinSecondsPerQuestion int `yaml:"min_seconds_per_question"`
	} `yaml:"scoring"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

// Default returns the configuration used when no file sets a value.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Server.RequestTimeout = "15s"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Storage.Driver = DriverMemory
	cfg.Quiz.TTL = "10m"
	cfg.Leaderboard.TTL = "30s"
	cfg.Scoring.PassThreshold = 70
	cfg.Scoring.MinSecondsPerQuestion = 5
	cfg.CORS.AllowedOrigins = []string{"*"}
	return cfg
}

// Load reads YAML config from path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("storage driver %q needs postgres.url", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Scoring.PassThreshold < 0 || c.Scoring.PassThreshold > 100 {
		return fmt.Errorf("scoring.pass_threshold must be within 0..100, got %d", c.Scoring.PassThreshold)
	}
	if c.Scoring.MinSecondsPerQuestion < 0 {
		return fmt.Errorf("scoring.min_seconds_per_question must not be negative")
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
