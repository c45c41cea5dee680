package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

// Config is built once at startup and handed to every component.
// Defaults are only suitable for local development.
type Config struct {
	Port   int    `yaml:"port" env:"PORT"`
	Region string `yaml:"region" env:"REGION"`

	StoreDriver       string `yaml:"store_driver" env:"STORE_DRIVER"`
	BoltPath          string `yaml:"bolt_path" env:"BOLT_PATH"`
	DatabaseURL       string `yaml:"database_url" env:"DATABASE_URL"`
	UsersTable        string `yaml:"users_table" env:"USERS_TABLE"`
	AppointmentsTable string `yaml:"appointments_table" env:"APPOINTMENTS_TABLE"`

	NotifyTopic   string        `yaml:"notify_topic" env:"NOTIFY_TOPIC"`
	RedisURL      string        `yaml:"redis_url" env:"REDIS_URL"`
	NotifyTimeout time.Duration `yaml:"notify_timeout" env:"NOTIFY_TIMEOUT"`

	EnableEmail    bool   `yaml:"enable_email" env:"ENABLE_EMAIL"`
	SMTPServer     string `yaml:"smtp_server" env:"SMTP_SERVER"`
	SMTPPort       int    `yaml:"smtp_port" env:"SMTP_PORT"`
	SenderEmail    string `yaml:"sender_email" env:"SENDER_EMAIL"`
	SenderPassword string `yaml:"sender_password" env:"SENDER_PASSWORD"`

	SessionSecret string        `yaml:"session_secret" env:"SESSION_SECRET"`
	SessionTTL    time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
	CookieSecure  bool          `yaml:"cookie_secure" env:"COOKIE_SECURE"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`

	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`
}

func Default() Config {
	return Config{
		Port:              5000,
		Region:            "us-east-1",
		StoreDriver:       DriverBolt,
		BoltPath:          "medtrack.db",
		UsersTable:        "UsersTable",
		AppointmentsTable: "AppointmentsTable",
		RedisURL:          "redis://localhost:6379/0",
		NotifyTimeout:     10 * time.Second,
		EnableEmail:       true,
		SMTPServer:        "smtp.gmail.com",
		SMTPPort:          587,
		SenderEmail:       "your@email.com",
		SenderPassword:    "your-app-password",
		SessionSecret:     "super-secret-key",
		SessionTTL:        12 * time.Hour,
		RateLimitRPS:      5,
		RateLimitBurst:    10,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Load layers defaults, the optional YAML file at path, a .env file and
// the process environment, later sources winning.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	_ = godotenv.Load()
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return cfg, fmt.Errorf("decode env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverBolt:
		if c.BoltPath == "" {
			return errors.New("BOLT_PATH is required for the bolt store")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.UsersTable == "" || c.AppointmentsTable == "" {
		return errors.New("table names must not be empty")
	}
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	return nil
}

func (c Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }
