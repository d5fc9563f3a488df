package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Reply.MaxTokens != 150 {
		t.Errorf("MaxTokens = %d, want 150", cfg.Reply.MaxTokens)
	}
	if cfg.Reply.HistoryLimit != 20 {
		t.Errorf("HistoryLimit = %d, want 20", cfg.Reply.HistoryLimit)
	}
	if cfg.Delivery.DefaultCountryCode != "55" {
		t.Errorf("DefaultCountryCode = %q, want 55", cfg.Delivery.DefaultCountryCode)
	}
}

func TestLoad_JSON5AndEnvOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		// comments are allowed
		provider: { name: "openrouter", model: "openai/gpt-4o-mini" },
		reply: { max_tokens: 120, handoff_triggers: ["falar com atendente", 123] },
		delivery: { base_url: "evolution.example.com" },
	}`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AUTOREPLY_DELIVERY_API_KEY", "secret")
	t.Setenv("AUTOREPLY_MODEL", "gpt-4.1-mini")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider.Name != "openrouter" {
		t.Errorf("Provider.Name = %q", cfg.Provider.Name)
	}
	if cfg.Provider.Model != "gpt-4.1-mini" {
		t.Errorf("env should override model, got %q", cfg.Provider.Model)
	}
	if cfg.Reply.MaxTokens != 120 {
		t.Errorf("MaxTokens = %d, want 120", cfg.Reply.MaxTokens)
	}
	if len(cfg.Reply.HandoffTriggers) != 2 || cfg.Reply.HandoffTriggers[1] != "123" {
		t.Errorf("HandoffTriggers = %v", cfg.Reply.HandoffTriggers)
	}
	if !cfg.Delivery.Configured() {
		t.Error("delivery should be configured with base_url + env api key")
	}
}

func TestDeliveryConfig_AttemptTimeoutDefault(t *testing.T) {
	if got := (DeliveryConfig{}).AttemptTimeout(); got != 10*time.Second {
		t.Errorf("AttemptTimeout() = %v", got)
	}
	if got := (DeliveryConfig{AttemptTimeoutMs: 250}).AttemptTimeout(); got != 250*time.Millisecond {
		t.Errorf("AttemptTimeout() = %v", got)
	}
}

func TestMaskedCopy(t *testing.T) {
	cfg := Default()
	cfg.Provider.APIKey = "sk-live"
	cfg.Delivery.APIKey = ""

	cp := cfg.MaskedCopy()
	if cp.Provider.APIKey != secretMask {
		t.Errorf("provider key not masked: %q", cp.Provider.APIKey)
	}
	if cp.Delivery.APIKey != "" {
		t.Errorf("empty key should stay empty, got %q", cp.Delivery.APIKey)
	}
	if cfg.Provider.APIKey != "sk-live" {
		t.Error("original config must not be modified")
	}
}
