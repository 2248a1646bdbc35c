package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Fal     FalConfig
	Server  ServerConfig
	Logging LoggingConfig
}

type FalConfig struct {
	APIKey       string        `envconfig:"FAL_KEY"`
	QueueURL     string        `envconfig:"FAL_QUEUE_URL" default:"https://queue.fal.run"`
	StorageURL   string        `envconfig:"FAL_STORAGE_URL" default:"https://rest.alpha.fal.ai"`
	AppID        string        `envconfig:"FAL_APP_ID" default:"fashn/tryon"`
	PollInterval time.Duration `envconfig:"FAL_POLL_INTERVAL" default:"500ms"`
	Timeout      time.Duration `envconfig:"FAL_TIMEOUT" default:"10m"`
}

type ServerConfig struct {
	Port           string        `envconfig:"SERVER_PORT" default:"8000"`
	Host           string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	ReadTimeout    time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout   time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	MaxUploadBytes int64         `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`
	MaxInFlight    int           `envconfig:"MAX_IN_FLIGHT" default:"1"`
	SubmitRate     float64       `envconfig:"SUBMIT_RATE" default:"0.5"`
	SubmitBurst    int           `envconfig:"SUBMIT_BURST" default:"2"`
	JobTTL         time.Duration `envconfig:"JOB_TTL" default:"1h"`
	SentryDSN      string        `envconfig:"SENTRY_DSN"`
}

type LoggingConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"`
}

// legacyKeyVar is the variable the browser build of the app read its key from.
const legacyKeyVar = "VITE_FAL_AI_KEY"

// LoadConfig reads a .env file when present, then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}
	return loadFromEnv()
}

func loadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.Fal.APIKey == "" {
		cfg.Fal.APIKey = os.Getenv(legacyKeyVar)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Info("configuration loaded successfully")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Fal.APIKey == "" {
		return errors.New("FAL_KEY is required")
	}
	if c.Fal.PollInterval <= 0 {
		return errors.New("FAL_POLL_INTERVAL must be positive")
	}
	if c.Server.MaxInFlight < 1 {
		return errors.New("MAX_IN_FLIGHT must be at least 1")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.Server.SubmitRate <= 0 || c.Server.SubmitBurst < 1 {
		return errors.New("SUBMIT_RATE must be positive and SUBMIT_BURST at least 1")
	}
	if c.Server.JobTTL <= 0 {
		return errors.New("JOB_TTL must be positive")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// Addr is the listen address of the web server.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
