// Package config loads the service configuration: config.yml first, then
// variables from .env and the process environment (TRACKER_*), which win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"teamTracker/internal/policy"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "TRACKER_"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Policy   PolicyConfig   `yaml:"policy"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// RateLimit is requests per minute per client IP. Zero disables it.
	RateLimit   int      `yaml:"rate_limit"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type LoggingConfig struct {
	Development bool   `yaml:"development"`
	Level       string `yaml:"level"`
}

type StorageConfig struct {
	Type string `yaml:"type"` // "inmemory", "postgres" or "mongo"
}

type DatabaseConfig struct {
	URL            string        `yaml:"url"`
	MaxConnections int32         `yaml:"max_connections"`
	MinConnections int32         `yaml:"min_connections"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	// Migrate applies pending schema migrations on startup.
	Migrate bool `yaml:"migrate"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RedisConfig struct {
	// Addr enables the shared role cache when set.
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	Provider        string        `yaml:"provider"` // "local" or "firebase"
	CredentialsPath string        `yaml:"credentials_path"`
	WebAPIKey       string        `yaml:"web_api_key"`
	Secret          string        `yaml:"secret"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
}

type PolicyConfig struct {
	AllowReopen     bool   `yaml:"allow_reopen"`
	MemberProjects  bool   `yaml:"member_projects"`
	OnProjectDelete string `yaml:"on_project_delete"`
}

// WorkerConfig drives the background job that applies the project
// deletion policy to tasks left behind by a failed delete.
type WorkerConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
}

func Default() *Config {
	rules := policy.DefaultRules()
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       100,
		},
		Logging: LoggingConfig{Level: "info"},
		Storage: StorageConfig{Type: "inmemory"},
		Database: DatabaseConfig{
			MaxConnections: 10,
			MinConnections: 2,
			IdleTimeout:    5 * time.Minute,
			Migrate:        true,
		},
		Mongo: MongoConfig{Database: "tracker"},
		Redis: RedisConfig{TTL: 5 * time.Minute},
		Auth: AuthConfig{
			Provider: "local",
			TokenTTL: time.Hour,
		},
		Policy: PolicyConfig{
			AllowReopen:     rules.AllowReopen,
			MemberProjects:  rules.MemberProjects,
			OnProjectDelete: string(rules.OnProjectDelete),
		},
		Worker: WorkerConfig{
			Enabled:   true,
			Interval:  5 * time.Minute,
			BatchSize: 100,
		},
	}
}

// Load reads path (a missing file is fine), applies .env and environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString("SERVER_HOST", &c.Server.Host)
	setString("SERVER_PORT", &c.Server.Port)
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("STORAGE", &c.Storage.Type)
	setString("DATABASE_URL", &c.Database.URL)
	setString("MONGO_URI", &c.Mongo.URI)
	setString("MONGO_DATABASE", &c.Mongo.Database)
	setString("REDIS_ADDR", &c.Redis.Addr)
	setString("REDIS_PASSWORD", &c.Redis.Password)
	setString("AUTH_PROVIDER", &c.Auth.Provider)
	setString("AUTH_CREDENTIALS_PATH", &c.Auth.CredentialsPath)
	setString("AUTH_WEB_API_KEY", &c.Auth.WebAPIKey)
	setString("AUTH_SECRET", &c.Auth.Secret)
	setString("ON_PROJECT_DELETE", &c.Policy.OnProjectDelete)

	if v, ok := os.LookupEnv("TRACKER_CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitList(v)
	}

	return errors.Join(
		setInt("RATE_LIMIT", &c.Server.RateLimit),
		setInt("REDIS_DB", &c.Redis.DB),
		setBool("LOG_DEVELOPMENT", &c.Logging.Development),
		setBool("DATABASE_MIGRATE", &c.Database.Migrate),
		setBool("ALLOW_REOPEN", &c.Policy.AllowReopen),
		setBool("MEMBER_PROJECTS", &c.Policy.MemberProjects),
		setBool("WORKER_ENABLED", &c.Worker.Enabled),
		setDuration("WORKER_INTERVAL", &c.Worker.Interval),
		setDuration("AUTH_TOKEN_TTL", &c.Auth.TokenTTL),
		setDuration("REQUEST_TIMEOUT", &c.Server.RequestTimeout),
	)
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}

	switch c.Storage.Type {
	case "inmemory":
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for postgres storage"))
		}
		if c.Database.MinConnections > c.Database.MaxConnections {
			errs = append(errs, errors.New("database.min_connections exceeds max_connections"))
		}
	case "mongo":
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			errs = append(errs, errors.New("mongo.uri and mongo.database are required for mongo storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type must be inmemory, postgres or mongo, got %q", c.Storage.Type))
	}

	switch c.Auth.Provider {
	case "local":
		if len(c.Auth.Secret) < 16 {
			errs = append(errs, errors.New("auth.secret must be at least 16 bytes for the local provider"))
		}
	case "firebase":
		if c.Auth.WebAPIKey == "" {
			errs = append(errs, errors.New("auth.web_api_key is required for firebase"))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.provider must be local or firebase, got %q", c.Auth.Provider))
	}

	if c.Worker.Enabled && c.Worker.Interval <= 0 {
		errs = append(errs, errors.New("worker.interval must be positive when the worker is enabled"))
	}

	if err := c.Rules().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("policy: %w", err))
	}

	return errors.Join(errs...)
}

func (c *Config) Rules() policy.Rules {
	return policy.Rules{
		AllowReopen:     c.Policy.AllowReopen,
		MemberProjects:  c.Policy.MemberProjects,
		OnProjectDelete: policy.OnProjectDelete(c.Policy.OnProjectDelete),
	}
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

func setString(key string, dst *string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		*dst = v
	}
}

func setInt(key string, dst *int) error {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = n
	return nil
}

func setBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = b
	return nil
}

func setDuration(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = d
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
