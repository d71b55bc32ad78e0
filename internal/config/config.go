package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	configutil "github.com/NYCU-SDC/summer/pkg/config"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTestRunTimeout     = "30s"
	DefaultSessionIdleTimeout = "30m"
)

var (
	ErrDatabaseURLRequired       = errors.New("database_url is required")
	ErrInvalidTestRunTimeout     = errors.New("test_run_timeout must be a positive duration")
	ErrInvalidSessionIdleTimeout = errors.New("session_idle_timeout must be a duration of zero or more")
)

type Config struct {
	Debug              bool     `yaml:"debug"                envconfig:"DEBUG"`
	Host               string   `yaml:"host"                 envconfig:"HOST"`
	Port               string   `yaml:"port"                 envconfig:"PORT"`
	DatabaseURL        string   `yaml:"database_url"         envconfig:"DATABASE_URL"`
	MigrationSource    string   `yaml:"migration_source"     envconfig:"MIGRATION_SOURCE"`
	OtelCollectorUrl   string   `yaml:"otel_collector_url"   envconfig:"OTEL_COLLECTOR_URL"`
	AllowOrigins       []string `yaml:"allow_origins"        envconfig:"ALLOW_ORIGINS"`
	TestRunTimeout     string   `yaml:"test_run_timeout"     envconfig:"TEST_RUN_TIMEOUT"`
	SessionIdleTimeout string   `yaml:"session_idle_timeout" envconfig:"SESSION_IDLE_TIMEOUT"`
}

type LogBuffer struct {
	buffer []logEntry
}

type logEntry struct {
	msg  string
	err  error
	meta map[string]string
}

func NewConfigLogger() *LogBuffer {
	return &LogBuffer{}
}

func (cl *LogBuffer) Warn(msg string, err error, meta map[string]string) {
	cl.buffer = append(cl.buffer, logEntry{msg: msg, err: err, meta: meta})
}

func (cl *LogBuffer) FlushToZap(logger *zap.Logger) {
	for _, e := range cl.buffer {
		var fields []zap.Field
		if e.err != nil {
			fields = append(fields, zap.Error(e.err))
		}
		for k, v := range e.meta {
			fields = append(fields, zap.String(k, v))
		}
		logger.Warn(e.msg, fields...)
	}
	cl.buffer = nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrDatabaseURLRequired
	}

	if _, err := c.TestRunTimeoutDuration(); err != nil {
		return err
	}

	if _, err := c.SessionIdleTimeoutDuration(); err != nil {
		return err
	}

	return nil
}

// TestRunTimeoutDuration bounds how long the builder waits for a test run call.
func (c *Config) TestRunTimeoutDuration() (time.Duration, error) {
	value := c.TestRunTimeout
	if value == "" {
		value = DefaultTestRunTimeout
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidTestRunTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTestRunTimeout, value)
	}

	return d, nil
}

// SessionIdleTimeoutDuration is how long an untouched builder session stays
// open. Zero disables expiry.
func (c *Config) SessionIdleTimeoutDuration() (time.Duration, error) {
	value := c.SessionIdleTimeout
	if value == "" {
		value = DefaultSessionIdleTimeout
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidSessionIdleTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidSessionIdleTimeout, value)
	}

	return d, nil
}

// splitList parses a comma separated list, dropping empty items.
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func Load() (Config, *LogBuffer) {
	logger := NewConfigLogger()

	config := &Config{
		Debug:              false,
		Host:               "localhost",
		Port:               "8080",
		DatabaseURL:        "",
		MigrationSource:    "file://internal/database/migrations",
		OtelCollectorUrl:   "",
		AllowOrigins:       []string{"http://localhost:3000"},
		TestRunTimeout:     DefaultTestRunTimeout,
		SessionIdleTimeout: DefaultSessionIdleTimeout,
	}

	var err error

	config, err = FromFile("config.yaml", config, logger)
	if err != nil {
		logger.Warn("Failed to load config from file", err, map[string]string{"path": "config.yaml"})
	}

	config, err = FromEnv(config, logger)
	if err != nil {
		logger.Warn("Failed to load config from env", err, map[string]string{"path": ".env"})
	}

	config, err = FromFlags(config)
	if err != nil {
		logger.Warn("Failed to load config from flags", err, map[string]string{"path": "flags"})
	}

	return *config, logger
}

func FromFile(filePath string, config *Config, logger *LogBuffer) (*Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return config, err
	}
	defer func(file *os.File) {
		err := file.Close()
		if err != nil {
			logger.Warn("Failed to close config file", err, map[string]string{"path": filePath})
		}
	}(file)

	fileConfig := Config{}
	if err := yaml.NewDecoder(file).Decode(&fileConfig); err != nil {
		return config, err
	}

	return configutil.Merge[Config](config, &fileConfig)
}

func FromEnv(config *Config, logger *LogBuffer) (*Config, error) {
	if err := godotenv.Overload(); err != nil {
		if os.IsNotExist(err) {
			logger.Warn("No .env file found", err, map[string]string{"path": ".env"})
		} else {
			return nil, err
		}
	}

	envConfig := &Config{
		Debug:              os.Getenv("DEBUG") == "true",
		Host:               os.Getenv("HOST"),
		Port:               os.Getenv("PORT"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		MigrationSource:    os.Getenv("MIGRATION_SOURCE"),
		OtelCollectorUrl:   os.Getenv("OTEL_COLLECTOR_URL"),
		AllowOrigins:       splitList(os.Getenv("ALLOW_ORIGINS")),
		TestRunTimeout:     os.Getenv("TEST_RUN_TIMEOUT"),
		SessionIdleTimeout: os.Getenv("SESSION_IDLE_TIMEOUT"),
	}

	return configutil.Merge[Config](config, envConfig)
}

func FromFlags(config *Config) (*Config, error) {
	flagConfig := &Config{}
	var allowOrigins string

	flag.BoolVar(&flagConfig.Debug, "debug", false, "debug mode")
	flag.StringVar(&flagConfig.Host, "host", "", "host")
	flag.StringVar(&flagConfig.Port, "port", "", "port")
	flag.StringVar(&flagConfig.DatabaseURL, "database_url", "", "database url")
	flag.StringVar(&flagConfig.MigrationSource, "migration_source", "", "migration source")
	flag.StringVar(&flagConfig.OtelCollectorUrl, "otel_collector_url", "", "OpenTelemetry collector URL")
	flag.StringVar(&allowOrigins, "allow_origins", "", "comma separated CORS origins")
	flag.StringVar(&flagConfig.TestRunTimeout, "test_run_timeout", "", "builder test run timeout")
	flag.StringVar(&flagConfig.SessionIdleTimeout, "session_idle_timeout", "", "builder session idle timeout, 0 to disable")

	flag.Parse()

	flagConfig.AllowOrigins = splitList(allowOrigins)

	return configutil.Merge[Config](config, flagConfig)
}
