package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_DefaultsWhenMissing(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))

	if cfg.Ollama.Host != "http://localhost:11434" {
		t.Errorf("host = %q", cfg.Ollama.Host)
	}
	if cfg.Ollama.Model != "llama3.2" {
		t.Errorf("model = %q", cfg.Ollama.Model)
	}
	if cfg.Memory.MaxHistory != 10 {
		t.Errorf("max history = %d", cfg.Memory.MaxHistory)
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"ollama": {"host": "http://gpu-box:11434", "model": "qwen2.5", "timeout_seconds": 60, "retries": 3},
		"gateways": {"telegram": {"token": "tg-token", "enabled": true}}
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadConfig(path)

	if cfg.Ollama.Host != "http://gpu-box:11434" || cfg.Ollama.Model != "qwen2.5" {
		t.Errorf("ollama config not read: %+v", cfg.Ollama)
	}
	gw, ok := cfg.GetGateway("telegram")
	if !ok || gw.Token != "tg-token" {
		t.Errorf("telegram gateway = %+v, ok=%v", gw, ok)
	}
	if _, ok := cfg.GetGateway("discord"); ok {
		t.Error("unconfigured gateway reported as enabled")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ASTRA_OLLAMA_HOST", "http://override:11434")
	t.Setenv("ASTRA_OLLAMA_MODEL", "mistral")

	cfg := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))

	if cfg.Ollama.Host != "http://override:11434" {
		t.Errorf("env host override ignored: %q", cfg.Ollama.Host)
	}
	if cfg.Ollama.Model != "mistral" {
		t.Errorf("env model override ignored: %q", cfg.Ollama.Model)
	}
}

func TestGetGateway_DisabledOrTokenless(t *testing.T) {
	cfg := &Config{Gateways: map[string]GatewayConfig{
		"telegram": {Token: "t", Enabled: false},
		"discord":  {Token: "", Enabled: true},
	}}

	if _, ok := cfg.GetGateway("telegram"); ok {
		t.Error("disabled gateway returned")
	}
	if _, ok := cfg.GetGateway("discord"); ok {
		t.Error("tokenless gateway returned")
	}
}
