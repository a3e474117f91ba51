// Package config loads dogmatch settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/alfredjeanlab/dogmatch/internal/model"
)

// DefaultAPIURL is the public Fetch take-home service.
const DefaultAPIURL = "https://frontend-take-home-service.fetch.com"

// MemoryDSN selects the in-process store (nothing survives the run).
const MemoryDSN = "memory"

type Config struct {
	APIURL   string `env:"DOGMATCH_API_URL" envDefault:"https://frontend-take-home-service.fetch.com"`
	StateDSN string `env:"DOGMATCH_STATE_DSN"` // postgres:// URL, "memory", or a sqlite file path; empty = sqlite in StateDir
	StateDir string `env:"DOGMATCH_STATE_DIR"` // default ~/.local/state/dogmatch
	Profile  string `env:"DOGMATCH_PROFILE" envDefault:"default"`
	NATSURL  string `env:"DOGMATCH_NATS_URL"` // optional, empty = no events

	HTTPTimeout time.Duration `env:"DOGMATCH_HTTP_TIMEOUT" envDefault:"15s"`
	RetryMax    int           `env:"DOGMATCH_RETRY_MAX" envDefault:"3"`
	PageSize    int           `env:"DOGMATCH_PAGE_SIZE" envDefault:"25"`
	LogLevel    string        `env:"DOGMATCH_LOG_LEVEL" envDefault:"warn"`

	KeepFavorites bool `env:"DOGMATCH_KEEP_FAVORITES"` // keep favorites across logout

	Export ExportConfig `envPrefix:"DOGMATCH_EXPORT_"`
}

// ExportConfig controls where `dm favorites export --s3` writes.
type ExportConfig struct {
	S3Bucket   string `env:"S3_BUCKET"`   // enables S3 when set
	S3Endpoint string `env:"S3_ENDPOINT"` // custom endpoint for MinIO
	S3Region   string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Prefix   string `env:"S3_PREFIX" envDefault:"dogmatch/favorites"`
}

// Load parses the environment and checks the result.
func Load() (*Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if c.StateDir == "" {
		dir, err := defaultStateDir()
		if err != nil {
			return nil, err
		}
		c.StateDir = dir
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("DOGMATCH_API_URL must not be empty")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("DOGMATCH_HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("DOGMATCH_RETRY_MAX must not be negative, got %d", c.RetryMax)
	}
	if c.PageSize < 1 || c.PageSize > model.MaxBatch {
		return fmt.Errorf("DOGMATCH_PAGE_SIZE must be between 1 and %d, got %d", model.MaxBatch, c.PageSize)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("DOGMATCH_LOG_LEVEL: %w", err)
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}

// ParseLevel accepts debug, info, warn or error (any case).
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelWarn, err
	}
	return l, nil
}

// SQLitePath is the default sqlite state file. Profiles other than
// "default" get their own file.
func (c *Config) SQLitePath() string {
	if c.Profile == "" || c.Profile == "default" {
		return filepath.Join(c.StateDir, "state.db")
	}
	return filepath.Join(c.StateDir, "state-"+c.Profile+".db")
}

// RemotesPath is the named-remotes TOML file.
func (c *Config) RemotesPath() string {
	return filepath.Join(c.StateDir, "remotes.toml")
}

func defaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "dogmatch"), nil
}
