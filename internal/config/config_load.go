package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// DefaultHandoffMessage is the fixed acknowledgment sent when a conversation is handed to a human.
const DefaultHandoffMessage = "Entendi! Vou transferir você para um dos nossos atendentes. Em instantes alguém da equipe continua o atendimento por aqui."

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Mode: "standalone",
		},
		Gateway: GatewayConfig{
			Host:         "0.0.0.0",
			Port:         18800,
			RateLimitRPM: 30,
			MaxBodyBytes: 1 << 20,
		},
		Provider: ProviderConfig{
			Name:    "openai",
			APIBase: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Delivery: DeliveryConfig{
			SendPath:           "/message/sendText",
			DefaultCountryCode: "55",
			AttemptTimeoutMs:   10000,
		},
		Reply: ReplyConfig{
			MaxTokens:         150,
			Temperature:       0.5,
			MaxResponseTimeMs: 30000,
			HistoryLimit:      20,
			KnowledgeLimit:    10,
			KnowledgeTopK:     3,
			SnippetMaxChars:   400,
			Language:          "pt-BR",
			HandoffMessage:    DefaultHandoffMessage,
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "autoreply",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error: defaults plus env are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*dst = n
			}
		}
	}

	// Secrets (env only)
	envStr("AUTOREPLY_POSTGRES_DSN", &c.Database.PostgresDSN)
	envStr("AUTOREPLY_PROVIDER_API_KEY", &c.Provider.APIKey)
	envStr("AUTOREPLY_DELIVERY_API_KEY", &c.Delivery.APIKey)
	envStr("AUTOREPLY_GATEWAY_TOKEN", &c.Gateway.Token)

	// Database
	envStr("AUTOREPLY_MODE", &c.Database.Mode)
	envStr("AUTOREPLY_SEED_FILE", &c.Database.SeedFile)

	// Provider
	envStr("AUTOREPLY_PROVIDER", &c.Provider.Name)
	envStr("AUTOREPLY_PROVIDER_API_BASE", &c.Provider.APIBase)
	envStr("AUTOREPLY_MODEL", &c.Provider.Model)

	// Delivery
	envStr("AUTOREPLY_DELIVERY_BASE_URL", &c.Delivery.BaseURL)
	envStr("AUTOREPLY_DELIVERY_COUNTRY_CODE", &c.Delivery.DefaultCountryCode)
	envInt("AUTOREPLY_DELIVERY_ATTEMPT_TIMEOUT_MS", &c.Delivery.AttemptTimeoutMs)

	// Reply defaults
	envInt("AUTOREPLY_MAX_TOKENS", &c.Reply.MaxTokens)
	envInt("AUTOREPLY_MAX_RESPONSE_TIME_MS", &c.Reply.MaxResponseTimeMs)
	if v := os.Getenv("AUTOREPLY_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil && t >= 0 {
			c.Reply.Temperature = t
		}
	}
	if v := os.Getenv("AUTOREPLY_HANDOFF_TRIGGERS"); v != "" {
		c.Reply.HandoffTriggers = splitCSV(v)
	}

	// Gateway host/port
	envStr("AUTOREPLY_HOST", &c.Gateway.Host)
	envInt("AUTOREPLY_PORT", &c.Gateway.Port)
	if v := os.Getenv("AUTOREPLY_ALLOWED_ORIGINS"); v != "" {
		c.Gateway.AllowedOrigins = splitCSV(v)
	}

	// WhatsApp bridge
	envStr("AUTOREPLY_BRIDGE_URL", &c.Bridge.URL)
	envStr("AUTOREPLY_BRIDGE_RECEIVER", &c.Bridge.ReceiverAddress)
	if c.Bridge.URL != "" && os.Getenv("AUTOREPLY_BRIDGE_URL") != "" {
		c.Bridge.Enabled = true
	}

	// Telemetry
	envStr("AUTOREPLY_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("AUTOREPLY_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("AUTOREPLY_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	if v := os.Getenv("AUTOREPLY_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("AUTOREPLY_TELEMETRY_INSECURE"); v != "" {
		c.Telemetry.Insecure = v == "true" || v == "1"
	}
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Save writes the config to a JSON file. Secrets are tagged json:"-" and never persist.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Hash returns a SHA-256 hash of the config for change detection.
func (c *Config) Hash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, _ := json.Marshal(c)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:8])
}

const secretMask = "***"

// MaskedCopy returns a copy of the config with all secret fields masked.
// Used by the doctor command so secrets never reach the terminal.
func (c *Config) MaskedCopy() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cp := &Config{
		Database:  c.Database,
		Gateway:   c.Gateway,
		Provider:  c.Provider,
		Delivery:  c.Delivery,
		Reply:     c.Reply,
		Telemetry: c.Telemetry,
		Bridge:    c.Bridge,
	}
	maskNonEmpty(&cp.Database.PostgresDSN)
	maskNonEmpty(&cp.Gateway.Token)
	maskNonEmpty(&cp.Provider.APIKey)
	maskNonEmpty(&cp.Delivery.APIKey)
	return cp
}

func maskNonEmpty(s *string) {
	if *s != "" {
		*s = secretMask
	}
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
