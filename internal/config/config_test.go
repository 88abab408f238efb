package config

import (
	"testing"
	"time"
)

// --- Load Tests ---

func TestLoad_Defaults(t *testing.T) {
	s, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if s.Log.Level != "info" || s.Log.Format != "text" {
		t.Errorf("unexpected log settings: %+v", s.Log)
	}
	if s.Engine.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", s.Engine.Workers)
	}
	if s.Store.Enabled() || s.MQ.Enabled() {
		t.Error("store and mq must be disabled by default")
	}
	if s.API.ShutdownTimeout != 10*time.Second {
		t.Errorf("unexpected shutdown timeout: %v", s.API.ShutdownTimeout)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("TEXTFLOW_ENGINE_WORKERS", "16")
	t.Setenv("TEXTFLOW_LOG_FORMAT", "json")
	t.Setenv("TEXTFLOW_STORE_DSN", "postgres://localhost/textflow")
	t.Setenv("TEXTFLOW_STORE_MAX_CONNS", "3")
	t.Setenv("TEXTFLOW_MQ_MAX_BACKOFF", "5s")
	t.Setenv("TEXTFLOW_API_MAX_BODY_BYTES", "2048")
	t.Setenv("TEXTFLOW_METRICS_ENABLED", "false")

	s, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if s.Engine.Workers != 16 {
		t.Errorf("expected 16 workers, got %d", s.Engine.Workers)
	}
	if s.Log.Format != "json" {
		t.Errorf("expected json format, got %s", s.Log.Format)
	}
	if !s.Store.Enabled() || s.Store.MaxConns != 3 {
		t.Errorf("unexpected store settings: %+v", s.Store)
	}
	if s.MQ.MaxBackoff != 5*time.Second {
		t.Errorf("expected 5s backoff, got %v", s.MQ.MaxBackoff)
	}
	if s.API.MaxBodyBytes != 2048 {
		t.Errorf("expected 2048 bytes, got %d", s.API.MaxBodyBytes)
	}
	if s.Metrics.Enabled {
		t.Error("expected metrics disabled")
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("TEXTFLOW_LOG_LEVEL", "verbose")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_ZeroWorkersRejected(t *testing.T) {
	t.Setenv("TEXTFLOW_ENGINE_WORKERS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error")
	}
}

// --- Env Key Tests ---

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"TEXTFLOW_ENGINE_WORKERS":     "engine.workers",
		"TEXTFLOW_API_MAX_BODY_BYTES": "api.max_body_bytes",
		"TEXTFLOW_DEBUG":              "",
		"TEXTFLOW_":                   "",
	}

	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
