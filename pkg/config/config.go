// Package config loads graphdir server configuration. Values come from
// defaults, then an optional YAML file, then GRAPHDIR_* environment
// variables, and are validated last.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config is the complete server configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required,hostname_port"`
	ReadTimeout     time.Duration `yaml:"readTimeout" validate:"min=0"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" validate:"min=0"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"gt=0"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes" validate:"gt=0"`
	CORSOrigins     []string      `yaml:"corsOrigins" validate:"dive,required"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// StorageConfig selects where graphs are persisted
type StorageConfig struct {
	Backend          string        `yaml:"backend" validate:"oneof=badger memory"`
	DataDir          string        `yaml:"dataDir" validate:"required_if=Backend badger"`
	SyncWrites       bool          `yaml:"syncWrites"`
	Journal          bool          `yaml:"journal"`
	SnapshotInterval int           `yaml:"snapshotInterval" validate:"min=1"`
	GCInterval       time.Duration `yaml:"gcInterval" validate:"min=0"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"omitempty,startswith=/"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
			CORSOrigins:     []string{"*"},
		},
		Log: LogConfig{Level: "info"},
		Storage: StorageConfig{
			Backend:          BackendBadger,
			DataDir:          "data",
			SyncWrites:       true,
			Journal:          true,
			SnapshotInterval: 100,
			GCInterval:       5 * time.Minute,
		},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

// SnapshotDir is where the badger backend keeps its files
func (s StorageConfig) SnapshotDir() string {
	return filepath.Join(s.DataDir, "snapshots")
}

// JournalDir is where batch journals are written. It is empty when
// journaling is off or there is no data directory.
func (s StorageConfig) JournalDir() string {
	if !s.Journal || s.DataDir == "" {
		return ""
	}
	return filepath.Join(s.DataDir, "journal")
}

// Load builds the configuration from defaults, the YAML file at path (when
// path is not empty) and the environment
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvironment(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvironment overlays GRAPHDIR_* variables
func (c *Config) applyEnvironment() error {
	var errs []error

	str := func(name string, target *string) {
		if val, ok := os.LookupEnv(name); ok {
			*target = val
		}
	}
	boolean := func(name string, target *bool) {
		if val, ok := os.LookupEnv(name); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*target = b
		}
	}
	duration := func(name string, target *time.Duration) {
		if val, ok := os.LookupEnv(name); ok {
			d, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*target = d
		}
	}

	str("GRAPHDIR_ADDR", &c.Server.Addr)
	duration("GRAPHDIR_READ_TIMEOUT", &c.Server.ReadTimeout)
	duration("GRAPHDIR_WRITE_TIMEOUT", &c.Server.WriteTimeout)
	duration("GRAPHDIR_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	if val, ok := os.LookupEnv("GRAPHDIR_CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitList(val)
	}

	str("GRAPHDIR_LOG_LEVEL", &c.Log.Level)

	str("GRAPHDIR_STORAGE_BACKEND", &c.Storage.Backend)
	str("GRAPHDIR_DATA_DIR", &c.Storage.DataDir)
	boolean("GRAPHDIR_SYNC_WRITES", &c.Storage.SyncWrites)
	boolean("GRAPHDIR_JOURNAL", &c.Storage.Journal)
	duration("GRAPHDIR_GC_INTERVAL", &c.Storage.GCInterval)
	if val, ok := os.LookupEnv("GRAPHDIR_SNAPSHOT_INTERVAL"); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			errs = append(errs, fmt.Errorf("GRAPHDIR_SNAPSHOT_INTERVAL: %w", err))
		} else {
			c.Storage.SnapshotInterval = n
		}
	}

	boolean("GRAPHDIR_METRICS", &c.Metrics.Enabled)

	return errors.Join(errs...)
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var validate = validator.New()

// Validate checks the configuration against its validate tags
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("validation error: %w", err)
	}

	messages := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		messages = append(messages, formatFieldError(e))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.TrimPrefix(e.Namespace(), "Config.")

	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", field, e.Param(), e.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", field, e.Param(), e.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s (got: %v)", field, e.Param(), e.Value())
	case "startswith":
		return fmt.Sprintf("%s must start with %q (got: %v)", field, e.Param(), e.Value())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port (got: %v)", field, e.Value())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, e.Tag())
	}
}
