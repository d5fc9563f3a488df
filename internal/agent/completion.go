package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nextlevelbuilder/autoreply/internal/providers"
)

// CompletionParams bound one completion call.
type CompletionParams struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// CompletionClient turns a prompt into reply text. There is no retry: any
// failure is final for the run.
type CompletionClient struct {
	provider providers.Provider
}

// NewCompletionClient wraps provider, which may be nil when no API key is configured.
func NewCompletionClient(provider providers.Provider) *CompletionClient {
	return &CompletionClient{provider: provider}
}

// Complete calls the provider under the params' timeout and returns sanitized text.
// Every failure is a *ProviderError.
func (c *CompletionClient) Complete(ctx context.Context, msgs []providers.Message, params CompletionParams) (string, *providers.Usage, error) {
	if c.provider == nil {
		return "", nil, &ProviderError{Provider: "none", Err: errors.New("completion provider not configured")}
	}

	if params.MaxTokens <= 0 {
		params.MaxTokens = 150
	}
	if params.Timeout <= 0 {
		params.Timeout = 30 * time.Second
	}

	cctx, cancel := context.WithTimeout(ctx, params.Timeout)
	defer cancel()

	resp, err := c.provider.Chat(cctx, providers.ChatRequest{
		Messages: msgs,
		Model:    params.Model,
		Options: map[string]interface{}{
			providers.OptMaxTokens:   params.MaxTokens,
			providers.OptTemperature: params.Temperature,
		},
	})
	if err != nil {
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("no response within %s: %w", params.Timeout, err)
		}
		return "", nil, newProviderError(c.provider.Name(), err)
	}

	text := SanitizeReply(resp.Content)
	if text == "" {
		return "", resp.Usage, newProviderError(c.provider.Name(), errors.New("empty completion"))
	}
	return text, resp.Usage, nil
}
