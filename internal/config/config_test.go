package config

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allEnvVars = []string{
	"DOGMATCH_API_URL", "DOGMATCH_STATE_DSN", "DOGMATCH_STATE_DIR", "DOGMATCH_PROFILE",
	"DOGMATCH_NATS_URL", "DOGMATCH_HTTP_TIMEOUT", "DOGMATCH_RETRY_MAX", "DOGMATCH_PAGE_SIZE",
	"DOGMATCH_LOG_LEVEL", "DOGMATCH_KEEP_FAVORITES",
	"DOGMATCH_EXPORT_S3_BUCKET", "DOGMATCH_EXPORT_S3_ENDPOINT",
	"DOGMATCH_EXPORT_S3_REGION", "DOGMATCH_EXPORT_S3_PREFIX",
}

// clearAllEnv unsets every variable so envDefault values apply.
func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearAllEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Errorf("HTTPTimeout = %v, want 15s", cfg.HTTPTimeout)
	}
	if cfg.RetryMax != 3 || cfg.PageSize != 25 {
		t.Errorf("RetryMax=%d PageSize=%d", cfg.RetryMax, cfg.PageSize)
	}
	if cfg.Profile != "default" || cfg.KeepFavorites {
		t.Errorf("Profile=%q KeepFavorites=%v", cfg.Profile, cfg.KeepFavorites)
	}
	if cfg.Level() != slog.LevelWarn {
		t.Errorf("Level() = %v", cfg.Level())
	}
	if !strings.HasSuffix(cfg.StateDir, filepath.Join(".local", "state", "dogmatch")) {
		t.Errorf("StateDir = %q", cfg.StateDir)
	}
	if filepath.Base(cfg.SQLitePath()) != "state.db" || filepath.Base(cfg.RemotesPath()) != "remotes.toml" {
		t.Errorf("paths = %q, %q", cfg.SQLitePath(), cfg.RemotesPath())
	}
	if cfg.Export.S3Region != "us-east-1" || cfg.Export.S3Prefix != "dogmatch/favorites" || cfg.Export.S3Bucket != "" {
		t.Errorf("Export = %+v", cfg.Export)
	}
}

func TestLoad_Custom(t *testing.T) {
	clearAllEnv(t)
	dir := t.TempDir()
	for k, v := range map[string]string{
		"DOGMATCH_API_URL":            "http://localhost:8080/",
		"DOGMATCH_STATE_DIR":          dir,
		"DOGMATCH_STATE_DSN":          "postgres://db/dogmatch",
		"DOGMATCH_PROFILE":            "alice",
		"DOGMATCH_NATS_URL":           "nats://localhost:4222",
		"DOGMATCH_HTTP_TIMEOUT":       "2s",
		"DOGMATCH_RETRY_MAX":          "0",
		"DOGMATCH_PAGE_SIZE":          "100",
		"DOGMATCH_LOG_LEVEL":          "DEBUG",
		"DOGMATCH_KEEP_FAVORITES":     "true",
		"DOGMATCH_EXPORT_S3_BUCKET":   "backups",
		"DOGMATCH_EXPORT_S3_ENDPOINT": "http://minio:9000",
	} {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIURL != "http://localhost:8080" {
		t.Errorf("APIURL = %q, want trailing slash trimmed", cfg.APIURL)
	}
	if cfg.StateDir != dir || cfg.StateDSN != "postgres://db/dogmatch" || cfg.Profile != "alice" {
		t.Errorf("state = %q %q %q", cfg.StateDir, cfg.StateDSN, cfg.Profile)
	}
	if cfg.HTTPTimeout != 2*time.Second || cfg.RetryMax != 0 || cfg.PageSize != 100 {
		t.Errorf("timeout=%v retry=%d size=%d", cfg.HTTPTimeout, cfg.RetryMax, cfg.PageSize)
	}
	if cfg.Level() != slog.LevelDebug || !cfg.KeepFavorites {
		t.Errorf("level=%v keep=%v", cfg.Level(), cfg.KeepFavorites)
	}
	if cfg.Export.S3Bucket != "backups" || cfg.Export.S3Endpoint != "http://minio:9000" {
		t.Errorf("Export = %+v", cfg.Export)
	}
}

func TestLoad_Invalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		key  string
		val  string
	}{
		{name: "bad duration", key: "DOGMATCH_HTTP_TIMEOUT", val: "soon"},
		{name: "zero timeout", key: "DOGMATCH_HTTP_TIMEOUT", val: "0s"},
		{name: "negative retries", key: "DOGMATCH_RETRY_MAX", val: "-1"},
		{name: "page size zero", key: "DOGMATCH_PAGE_SIZE", val: "0"},
		{name: "page size too big", key: "DOGMATCH_PAGE_SIZE", val: "101"},
		{name: "not a number", key: "DOGMATCH_PAGE_SIZE", val: "lots"},
		{name: "bad level", key: "DOGMATCH_LOG_LEVEL", val: "chatty"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q succeeded", tc.key, tc.val)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{"debug": slog.LevelDebug, "INFO": slog.LevelInfo, " warn ": slog.LevelWarn, "error": slog.LevelError} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
}
