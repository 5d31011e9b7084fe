package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DevJWTSecret signs tokens when no secret is configured in the dev environment.
const DevJWTSecret = "quiz-app-secret-key-dev"

type Config struct {
	Env    string `yaml:"env"`
	Server struct {
		Port         string   `yaml:"port"`
		ReadTimeout  string   `yaml:"read_timeout"`
		WriteTimeout string   `yaml:"write_timeout"`
		CORSOrigins  []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Stats struct {
		Consistency string `yaml:"consistency"`
		MaxRetries  int    `yaml:"max_retries"`
	} `yaml:"stats"`
	RabbitMQ struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"rabbitmq"`
	Storage struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
		PublicURL string `yaml:"public_url"`
	} `yaml:"storage"`
	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`
}

// Load reads .env (if present), then the YAML config at path (if present), then applies
// environment overrides and defaults.
func Load(path string) (Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	override(&cfg.Env, "APP_ENV")
	override(&cfg.Server.Port, "PORT")
	override(&cfg.Postgres.URL, "DATABASE_URL")
	override(&cfg.Redis.Addr, "REDIS_ADDR")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	override(&cfg.Auth.JWTSecret, "JWT_SECRET")
	override(&cfg.RabbitMQ.URL, "RABBITMQ_URL")
	override(&cfg.Log.Level, "LOG_LEVEL")
	override(&cfg.Stats.Consistency, "STATS_CONSISTENCY")
	if v := os.Getenv("STATS_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Stats.MaxRetries = n
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Auth.JWTSecret == "" && cfg.IsDev() {
		cfg.Auth.JWTSecret = DevJWTSecret
	}
	if cfg.Stats.Consistency == "" {
		cfg.Stats.Consistency = "legacy"
	}
	if cfg.Stats.MaxRetries == 0 {
		cfg.Stats.MaxRetries = 5
	}
	if cfg.RabbitMQ.Queue == "" {
		cfg.RabbitMQ.Queue = "quiz.submitted"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "avatars"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate reports configuration the server cannot start with.
func (c Config) Validate() error {
	switch c.Stats.Consistency {
	case "legacy", "atomic", "transactional":
	default:
		return fmt.Errorf("stats.consistency must be legacy, atomic or transactional, got %q", c.Stats.Consistency)
	}
	if c.Stats.MaxRetries < 0 {
		return fmt.Errorf("stats.max_retries cannot be negative")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required in %s", c.Env)
	}
	if c.Storage.Endpoint != "" && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		return fmt.Errorf("storage.access_key and storage.secret_key are required with storage.endpoint")
	}
	return nil
}

// IsDev reports whether the service runs in the local development environment.
func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "dev"
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

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
