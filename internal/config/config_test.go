package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Matching.Threshold != 0.5 {
		t.Errorf("expected threshold 0.5, got %v", cfg.Matching.Threshold)
	}
	if cfg.Matching.Strategy != StrategyLinear {
		t.Errorf("expected linear strategy, got %q", cfg.Matching.Strategy)
	}
	if cfg.Session.Window != 5*time.Second {
		t.Errorf("expected 5s window, got %v", cfg.Session.Window)
	}
	if cfg.Session.AcquireTimeout != 3*time.Second {
		t.Errorf("expected 3s acquire timeout, got %v", cfg.Session.AcquireTimeout)
	}
	if cfg.Frames.Scale != 0.5 || !cfg.Frames.Mirror {
		t.Errorf("unexpected frame preprocessing defaults: %+v", cfg.Frames)
	}
	if cfg.Store.Backend != BackendFile {
		t.Errorf("expected file backend, got %q", cfg.Store.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "0.42")
	t.Setenv("MATCH_STRATEGY", "HNSW")
	t.Setenv("SESSION_WINDOW", "750ms")
	t.Setenv("FRAME_SOURCE", "stream")
	t.Setenv("VIDEO_STREAM_URL", "http://camera:5001/video_feed")
	t.Setenv("FRAME_MIRROR", "false")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("STORE_PATH", "/tmp/ids.db")

	cfg := Load()

	if cfg.Matching.Threshold != 0.42 {
		t.Errorf("expected threshold 0.42, got %v", cfg.Matching.Threshold)
	}
	if cfg.Matching.Strategy != StrategyHNSW {
		t.Errorf("expected hnsw strategy, got %q", cfg.Matching.Strategy)
	}
	if cfg.Session.Window != 750*time.Millisecond {
		t.Errorf("expected 750ms window, got %v", cfg.Session.Window)
	}
	if cfg.Frames.Source != SourceStream || cfg.Frames.StreamURL != "http://camera:5001/video_feed" {
		t.Errorf("unexpected frames config: %+v", cfg.Frames)
	}
	if cfg.Frames.Mirror {
		t.Error("expected mirror to be disabled")
	}
	if cfg.Store.Backend != BackendSQLite || cfg.Store.Path != "/tmp/ids.db" {
		t.Errorf("unexpected store config: %+v", cfg.Store)
	}
}

func TestEnvHelpers_InvalidFallsBack(t *testing.T) {
	t.Setenv("TEST_INT", "-3")
	t.Setenv("TEST_FLOAT", "abc")
	t.Setenv("TEST_DURATION", "0s")
	t.Setenv("TEST_BOOL", "maybe")

	if got := envInt("TEST_INT", 7); got != 7 {
		t.Errorf("envInt: expected fallback 7, got %d", got)
	}
	if got := envFloat("TEST_FLOAT", 0.5); got != 0.5 {
		t.Errorf("envFloat: expected fallback 0.5, got %v", got)
	}
	if got := envDuration("TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("envDuration: expected fallback 1s, got %v", got)
	}
	if got := envBool("TEST_BOOL", true); !got {
		t.Error("envBool: expected fallback true")
	}
}

func TestValidate_WindowAtCapAccepted(t *testing.T) {
	cfg := Defaults()
	cfg.Session.Window = 30 * time.Second
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected 30s window to be valid, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero threshold", func(c *Config) { c.Matching.Threshold = 0 }, "threshold"},
		{"unknown strategy", func(c *Config) { c.Matching.Strategy = "kd-tree" }, "match strategy"},
		{"zero window", func(c *Config) { c.Session.Window = 0 }, "session window"},
		{"window above cap", func(c *Config) { c.Session.Window = time.Minute }, "must not exceed 30s"},
		{"zero acquire timeout", func(c *Config) { c.Session.AcquireTimeout = 0 }, "acquire timeout"},
		{"unknown source", func(c *Config) { c.Frames.Source = "ftp" }, "frame source"},
		{"scale above one", func(c *Config) { c.Frames.Scale = 2 }, "frame scale"},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "cloud" }, "embedding provider"},
		{"postgres without url", func(c *Config) { c.Store.Backend = BackendPostgres; c.Store.URL = "" }, "DATABASE_URL"},
		{"file without path", func(c *Config) { c.Store.Path = "" }, "STORE_PATH"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }, "store backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
