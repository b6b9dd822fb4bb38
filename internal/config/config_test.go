package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if cfg.Engine.TargetSampleRate != 24000 {
		t.Fatalf("expected 24000 sample rate, got %d", cfg.Engine.TargetSampleRate)
	}
	if !cfg.Engine.EnableCache || !cfg.Engine.NormalizeText {
		t.Fatal("expected cache and text normalization enabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "kotoba.yaml")
	content := []byte(`
engine:
  kokoro_model_path: /models/kokoro.onnx
  max_concurrent_requests: 8
  max_cache_size_mb: 1
  normalize_audio: false
history:
  retention_mode: days
  retention_days: 3
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.KokoroModelPath != "/models/kokoro.onnx" {
		t.Fatalf("expected model path override, got %q", cfg.Engine.KokoroModelPath)
	}
	if cfg.Engine.MaxConcurrentRequests != 8 {
		t.Fatalf("expected 8 workers, got %d", cfg.Engine.MaxConcurrentRequests)
	}
	if cfg.Engine.MaxCacheSizeMB != 1 {
		t.Fatalf("expected 1 MB cache, got %d", cfg.Engine.MaxCacheSizeMB)
	}
	if cfg.Engine.NormalizeAudio {
		t.Fatal("expected normalize_audio disabled")
	}
	if cfg.History.RetentionMode != "days" || cfg.History.RetentionDays != 3 {
		t.Fatalf("expected history override, got %+v", cfg.History)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KOTOBA_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("KOTOBA_BUS_USERNAME", "alice")
	t.Setenv("KOTOBA_BUS_PASSWORD", "secret")
	t.Setenv("KOTOBA_BUS_TLS_INSECURE", "true")
	t.Setenv("KOTOBA_BUS_CONNECT_TIMEOUT_MS", "5000")
	t.Setenv("KOTOBA_ENGINE_KOKORO_MODEL_PATH", "/opt/kokoro.onnx")
	t.Setenv("KOTOBA_ENGINE_MAX_CONCURRENT_REQUESTS", "2")
	t.Setenv("KOTOBA_ENGINE_ENABLE_GPU", "true")
	t.Setenv("KOTOBA_ENGINE_CACHE_TTL_SECONDS", "60")
	t.Setenv("KOTOBA_HISTORY_PATH", "./tmp.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if !cfg.Bus.TLSInsecure {
		t.Fatal("expected tls insecure override true")
	}
	if cfg.Bus.ConnectTimeout != 5000 {
		t.Fatalf("expected timeout 5000, got %d", cfg.Bus.ConnectTimeout)
	}
	if cfg.Engine.KokoroModelPath != "/opt/kokoro.onnx" {
		t.Fatalf("expected model path override")
	}
	if cfg.Engine.MaxConcurrentRequests != 2 {
		t.Fatalf("expected worker override")
	}
	if !cfg.Engine.EnableGPU {
		t.Fatal("expected gpu override true")
	}
	if cfg.Engine.CacheTTLSeconds != 60 {
		t.Fatalf("expected ttl override, got %d", cfg.Engine.CacheTTLSeconds)
	}
	if cfg.History.Path != "./tmp.db" {
		t.Fatalf("expected history path override")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("KOTOBA_ENGINE_TARGET_SAMPLE_RATE", "0")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}
