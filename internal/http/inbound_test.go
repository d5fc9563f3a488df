package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/autoreply/internal/agent"
	"github.com/nextlevelbuilder/autoreply/internal/channels"
	"github.com/nextlevelbuilder/autoreply/internal/persona"
	"github.com/nextlevelbuilder/autoreply/internal/store"
)

type fakeRunner struct {
	res   *agent.Result
	err   error
	calls []agent.InboundEvent
}

func (f *fakeRunner) Run(_ context.Context, ev agent.InboundEvent) (*agent.Result, error) {
	f.calls = append(f.calls, ev)
	return f.res, f.err
}

const validBody = `{"conversationId":"c1","messageText":"Oi","senderAddress":"5511988887777"}`

func serve(h *InboundHandler, body string, header map[string]string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	req := httptest.NewRequest(http.MethodPost, "/v1/inbound", strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestInbound_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		res  *agent.Result
		err  error
		body string
		want int
	}{
		{"success", &agent.Result{Status: agent.StatusSent, Reply: "Olá"}, nil, validBody, http.StatusOK},
		{"failed delivery is still 200", &agent.Result{Status: agent.StatusFailed}, nil, validBody, http.StatusOK},
		{"configuration error", nil, &agent.ConfigurationError{Reason: "persona resolution", Err: persona.ErrNoPersona}, validBody, http.StatusUnprocessableEntity},
		{"provider error", nil, &agent.ProviderError{Provider: "openai", Status: 500, Err: errors.New("boom")}, validBody, http.StatusBadGateway},
		{"unexpected error", nil, errors.New("weird"), validBody, http.StatusInternalServerError},
		{"invalid json", nil, nil, `{`, http.StatusBadRequest},
		{"missing fields", nil, nil, `{"conversationId":"c1"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{res: tt.res, err: tt.err}
			rec := serve(NewInboundHandler(runner, "", nil, 0), tt.body, nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestInbound_SuccessBody(t *testing.T) {
	runner := &fakeRunner{res: &agent.Result{Status: agent.StatusSent, Reply: "Olá", Persona: "SP"}}
	rec := serve(NewInboundHandler(runner, "", nil, 0), validBody, nil)

	var got agent.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != agent.StatusSent || got.Reply != "Olá" || got.Persona != "SP" {
		t.Errorf("result = %+v", got)
	}
	if len(runner.calls) != 1 || runner.calls[0].SenderAddress != "5511988887777" {
		t.Errorf("runner calls = %+v", runner.calls)
	}
}

func TestInbound_BearerToken(t *testing.T) {
	runner := &fakeRunner{res: &agent.Result{Status: agent.StatusSent}}
	h := NewInboundHandler(runner, "s3cret", nil, 0)

	if rec := serve(h, validBody, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", rec.Code)
	}
	if rec := serve(h, validBody, map[string]string{"Authorization": "Bearer wrong"}); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d", rec.Code)
	}
	if rec := serve(h, validBody, map[string]string{"Authorization": "Bearer s3cret"}); rec.Code != http.StatusOK {
		t.Errorf("good token: status = %d", rec.Code)
	}
	if len(runner.calls) != 1 {
		t.Errorf("runner called %d times, want 1", len(runner.calls))
	}
}

func TestInbound_RateLimitPerSender(t *testing.T) {
	runner := &fakeRunner{res: &agent.Result{Status: agent.StatusSent}}
	h := NewInboundHandler(runner, "", channels.NewSenderRateLimiter(1, 1), 0)

	if rec := serve(h, validBody, nil); rec.Code != http.StatusOK {
		t.Fatalf("first: status = %d", rec.Code)
	}
	if rec := serve(h, validBody, nil); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second: status = %d, want 429", rec.Code)
	}
	other := `{"conversationId":"c2","messageText":"Oi","senderAddress":"5521977776666"}`
	if rec := serve(h, other, nil); rec.Code != http.StatusOK {
		t.Errorf("other sender: status = %d", rec.Code)
	}
}

func TestInbound_BodyTooLarge(t *testing.T) {
	runner := &fakeRunner{res: &agent.Result{Status: agent.StatusSent}}
	rec := serve(NewInboundHandler(runner, "", nil, 16), validBody, nil)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

type fakePersonas struct {
	byAddr map[string]*store.PersonaData
	global *store.PersonaData
}

func (f fakePersonas) GetByAddress(_ context.Context, d string) (*store.PersonaData, error) {
	if p, ok := f.byAddr[d]; ok {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (f fakePersonas) GetByAddressSuffix(context.Context, string) (*store.PersonaData, error) {
	return nil, store.ErrNotFound
}

func (f fakePersonas) GetGlobal(context.Context) (*store.PersonaData, error) {
	if f.global == nil {
		return nil, store.ErrNotFound
	}
	return f.global, nil
}

func TestPersonasResolve(t *testing.T) {
	repo := fakePersonas{
		byAddr: map[string]*store.PersonaData{"551133334444": {Name: "SP", AutoReplyEnabled: true, ReplyDelayMs: 1500}},
		global: &store.PersonaData{Name: "Global", IsGlobal: true, Model: "gpt-4o-mini"},
	}
	mux := http.NewServeMux()
	NewPersonasHandler(repo, persona.Defaults{MaxTokens: 150}, "").RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/personas/resolve?address=%2B55%2011%203333-4444", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got resolvedPersona
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "SP" || got.Source != persona.SourceAddress || got.Model != "gpt-4o-mini" || got.ReplyDelayMs != 1500 {
		t.Errorf("resolved = %+v", got)
	}

	mux = http.NewServeMux()
	NewPersonasHandler(fakePersonas{}, persona.Defaults{}, "").RegisterRoutes(mux)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/personas/resolve?address=1", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("no persona: status = %d, want 404", rec.Code)
	}
}

type fakeInstances []store.ChannelInstanceData

func (f fakeInstances) ListConnected(context.Context) ([]store.ChannelInstanceData, error) {
	return f, nil
}

func TestChannelInstancesList_HidesTokens(t *testing.T) {
	mux := http.NewServeMux()
	NewChannelInstancesHandler(fakeInstances{{InstanceKey: "main", Status: store.InstanceConnected, Token: "tok"}}, "").RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/channels/instances", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "tok\"") {
		t.Errorf("token leaked: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"has_token":true`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
