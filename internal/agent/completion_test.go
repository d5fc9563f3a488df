package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nextlevelbuilder/autoreply/internal/providers"
)

func TestCompletion_PassesParamsAndSanitizes(t *testing.T) {
	p := &fakeProvider{reply: "<think>x</think>**Oi!** Tudo certo."}
	text, usage, err := NewCompletionClient(p).Complete(context.Background(),
		[]providers.Message{{Role: "user", Content: "oi"}},
		CompletionParams{Model: "gpt-4o-mini", MaxTokens: 120, Temperature: 0.2, Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if text != "*Oi!* Tudo certo." {
		t.Errorf("text = %q", text)
	}
	if usage == nil || usage.PromptTokens != 100 {
		t.Errorf("usage = %+v", usage)
	}
	if p.lastReq.Options[providers.OptMaxTokens] != 120 || p.lastReq.Model != "gpt-4o-mini" {
		t.Errorf("request = %+v", p.lastReq)
	}
}

func TestCompletion_DefaultMaxTokens(t *testing.T) {
	p := &fakeProvider{reply: "ok"}
	NewCompletionClient(p).Complete(context.Background(), nil, CompletionParams{})
	if p.lastReq.Options[providers.OptMaxTokens] != 150 {
		t.Errorf("max tokens = %v, want 150", p.lastReq.Options[providers.OptMaxTokens])
	}
}

func TestCompletion_Failures(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
	}{
		{"http error", &fakeProvider{err: &providers.HTTPError{Status: 500, Body: "boom"}}},
		{"transport", &fakeProvider{err: errors.New("connection refused")}},
		{"empty text", &fakeProvider{reply: "  <think>só pensei</think> "}},
		{"timeout", &fakeProvider{block: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewCompletionClient(tt.provider).Complete(context.Background(), nil,
				CompletionParams{Timeout: 20 * time.Millisecond})
			var pe *ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if pe.Provider != "fake" {
				t.Errorf("provider = %q", pe.Provider)
			}
		})
	}
}

func TestCompletion_TimeoutWrapsDeadline(t *testing.T) {
	_, _, err := NewCompletionClient(&fakeProvider{block: true}).Complete(context.Background(), nil,
		CompletionParams{Timeout: 10 * time.Millisecond})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
}

func TestCompletion_NilProvider(t *testing.T) {
	_, _, err := NewCompletionClient(nil).Complete(context.Background(), nil, CompletionParams{})
	if !IsProviderError(err) {
		t.Errorf("expected ProviderError, got %v", err)
	}
}
