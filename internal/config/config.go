package config

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// FlexibleStringSlice accepts both ["str"] and [123] in JSON.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Config is the root configuration for the autoreply service.
type Config struct {
	Database  DatabaseConfig  `json:"database,omitempty"`
	Gateway   GatewayConfig   `json:"gateway"`
	Provider  ProviderConfig  `json:"provider"`
	Delivery  DeliveryConfig  `json:"delivery"`
	Reply     ReplyConfig     `json:"reply"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
	Bridge    BridgeConfig    `json:"bridge,omitempty"`
	mu        sync.RWMutex
}

// DatabaseConfig selects the store backend.
// PostgresDSN is NEVER read from config.json (secret); only from env AUTOREPLY_POSTGRES_DSN.
type DatabaseConfig struct {
	PostgresDSN string `json:"-"`                   // from env AUTOREPLY_POSTGRES_DSN only
	Mode        string `json:"mode,omitempty"`      // "standalone" (default) or "managed"
	SeedFile    string `json:"seed_file,omitempty"` // standalone: JSON5 file with personas, knowledge, orders
}

// IsManagedMode returns true if the service reads and writes Postgres.
func (c *Config) IsManagedMode() bool {
	return c.Database.Mode == "managed" && c.Database.PostgresDSN != ""
}

// GatewayConfig configures the HTTP listener that receives inbound events.
type GatewayConfig struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	Token          string   `json:"-"`                         // from env AUTOREPLY_GATEWAY_TOKEN only
	AllowedOrigins []string `json:"allowed_origins,omitempty"` // websocket origin whitelist (empty = allow all)
	RateLimitRPM   int      `json:"rate_limit_rpm,omitempty"`  // per-sender inbound limit, 0 = disabled
	MaxBodyBytes   int64    `json:"max_body_bytes,omitempty"`
}

// ProviderConfig configures the OpenAI-compatible completion provider.
type ProviderConfig struct {
	Name    string `json:"name"`               // "openai", "openrouter", "groq", ...
	APIKey  string `json:"-"`                  // from env AUTOREPLY_PROVIDER_API_KEY only
	APIBase string `json:"api_base,omitempty"` // default https://api.openai.com/v1
	Model   string `json:"model"`
}

// DeliveryConfig configures the outbound messaging gateway (Evolution-style HTTP API).
// Missing BaseURL or APIKey means replies are generated and logged but never sent.
type DeliveryConfig struct {
	BaseURL            string `json:"base_url,omitempty"`
	APIKey             string `json:"-"` // from env AUTOREPLY_DELIVERY_API_KEY only
	SendPath           string `json:"send_path,omitempty"`            // default "/message/sendText"
	DefaultCountryCode string `json:"default_country_code,omitempty"` // default "55"
	AttemptTimeoutMs   int    `json:"attempt_timeout_ms,omitempty"`   // per auth-convention attempt (default 10000)
}

// Configured reports whether outbound credentials are present at all.
func (d DeliveryConfig) Configured() bool {
	return d.BaseURL != "" && d.APIKey != ""
}

// AttemptTimeout returns the per-attempt HTTP timeout.
func (d DeliveryConfig) AttemptTimeout() time.Duration {
	if d.AttemptTimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(d.AttemptTimeoutMs) * time.Millisecond
}

// ReplyConfig holds pipeline defaults. Persona values override these.
type ReplyConfig struct {
	MaxTokens         int                 `json:"max_tokens"`
	Temperature       float64             `json:"temperature"`
	MaxResponseTimeMs int                 `json:"max_response_time_ms"`
	HistoryLimit      int                 `json:"history_limit"`
	KnowledgeLimit    int                 `json:"knowledge_limit"`   // candidates fetched before scoring
	KnowledgeTopK     int                 `json:"knowledge_top_k"`   // snippets kept after scoring
	SnippetMaxChars   int                 `json:"snippet_max_chars"` // knowledge body truncation in the prompt
	Language          string              `json:"language,omitempty"`
	HandoffMessage    string              `json:"handoff_message,omitempty"`
	HandoffTriggers   FlexibleStringSlice `json:"handoff_triggers,omitempty"` // global fallback when no persona lists any
}

// MaxResponseTime returns the completion timeout.
func (r ReplyConfig) MaxResponseTime() time.Duration {
	if r.MaxResponseTimeMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.MaxResponseTimeMs) * time.Millisecond
}

// TelemetryConfig configures OpenTelemetry export for pipeline spans.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`     // OTLP endpoint (e.g. "localhost:4317")
	Protocol    string            `json:"protocol,omitempty"`     // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`     // plaintext transport for local collectors
	ServiceName string            `json:"service_name,omitempty"` // default "autoreply"
	Headers     map[string]string `json:"headers,omitempty"`
}

// BridgeConfig connects to a WhatsApp bridge websocket as a second inbound
// source next to the HTTP webhook.
type BridgeConfig struct {
	Enabled         bool                `json:"enabled,omitempty"`
	URL             string              `json:"url,omitempty"`              // ws://bridge:3001
	ReceiverAddress string              `json:"receiver_address,omitempty"` // number the bridge is logged in as
	AllowFrom       FlexibleStringSlice `json:"allow_from,omitempty"`       // empty = everyone
	GroupPolicy     string              `json:"group_policy,omitempty"`     // "disabled" (default), "open", "allowlist"
}

// ReplaceFrom copies all config fields from src under the write lock.
func (c *Config) ReplaceFrom(src *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Database = src.Database
	c.Gateway = src.Gateway
	c.Provider = src.Provider
	c.Delivery = src.Delivery
	c.Reply = src.Reply
	c.Telemetry = src.Telemetry
	c.Bridge = src.Bridge
}
