// Package evolution delivers outbound text through an Evolution-style WhatsApp HTTP gateway.
//
// Deployments disagree on which header carries the API key, so every send walks an
// ordered ladder of auth conventions against the same endpoint and stops at the first
// accepted attempt or the first non-auth failure.
package evolution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nextlevelbuilder/autoreply/internal/channels"
	"github.com/nextlevelbuilder/autoreply/internal/config"
)

// Delivery statuses reported in Outcome.Status.
const (
	StatusSent                = "sent"
	StatusFailed              = "failed"
	StatusPendingManualSend   = "pending_manual_send"
	StatusNoConnectedInstance = "no_connected_instance"
)

// Per-attempt outcomes.
const (
	AttemptAccepted     = "accepted"
	AttemptAuthRejected = "auth_rejected"
	AttemptError        = "error"
)

const maxRecordedBody = 512

// ErrNoConnectedInstance is returned by an InstanceSource when nothing is connected.
var ErrNoConnectedInstance = errors.New("no connected channel instance")

// Instance is the gateway instance a message is sent through.
type Instance struct {
	Key   string
	Token string // optional per-instance key, overrides the configured API key
}

// InstanceSource picks the instance to send through. Implementations prefer the
// instance matching routingKey and fall back to any connected one.
type InstanceSource interface {
	Connected(ctx context.Context, routingKey string) (Instance, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the default Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// AuthStrategy writes the API key onto a request using one header convention.
type AuthStrategy struct {
	Name  string
	Apply func(h http.Header, key string)
}

// DefaultStrategies is the ladder tried on every send, in order.
var DefaultStrategies = []AuthStrategy{
	{Name: "apikey", Apply: func(h http.Header, key string) {
		// Written as-is: some gateways only match the lower-case header name.
		h["apikey"] = []string{key}
	}},
	{Name: "bearer", Apply: func(h http.Header, key string) {
		h.Set("Authorization", "Bearer "+key)
	}},
	{Name: "Apikey", Apply: func(h http.Header, key string) {
		h.Set("Apikey", key)
	}},
}

// Request is one outbound message.
type Request struct {
	Recipient  string
	Text       string
	RoutingKey string        // receiver address the inbound message arrived on
	Delay      time.Duration // simulated typing latency, zero on the handoff branch
}

// Attempt records one rung of the auth ladder.
type Attempt struct {
	Strategy   string `json:"strategy"`
	HTTPStatus int    `json:"http_status,omitempty"`
	Outcome    string `json:"outcome"`
	Body       string `json:"body,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Outcome is the result of Deliver. Delivery failures never surface as errors.
type Outcome struct {
	Status      string    `json:"status"`
	InstanceKey string    `json:"instance_key,omitempty"`
	Recipient   string    `json:"recipient,omitempty"`
	Attempts    []Attempt `json:"attempts,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}

// Sent reports whether the gateway accepted the message.
func (o Outcome) Sent() bool { return o.Status == StatusSent }

// Gateway sends text messages through the configured Evolution-style API.
type Gateway struct {
	cfg        config.DeliveryConfig
	instances  InstanceSource
	client     *http.Client
	sleep      Sleeper
	strategies []AuthStrategy
}

// New creates a Gateway. instances may be nil only if credentials are unconfigured.
func New(cfg config.DeliveryConfig, instances InstanceSource) *Gateway {
	if cfg.SendPath == "" {
		cfg.SendPath = "/message/sendText"
	}
	return &Gateway{
		cfg:        cfg,
		instances:  instances,
		client:     &http.Client{},
		sleep:      ContextSleep,
		strategies: DefaultStrategies,
	}
}

// WithHTTPClient swaps the HTTP client.
func (g *Gateway) WithHTTPClient(c *http.Client) *Gateway {
	g.client = c
	return g
}

// WithSleeper swaps the delay implementation (tests use a recording no-op).
func (g *Gateway) WithSleeper(s Sleeper) *Gateway {
	g.sleep = s
	return g
}

// WithStrategies replaces the auth ladder.
func (g *Gateway) WithStrategies(s []AuthStrategy) *Gateway {
	g.strategies = s
	return g
}

// Configured reports whether outbound credentials are present.
func (g *Gateway) Configured() bool { return g.cfg.Configured() }

// Deliver sends req.Text to req.Recipient. It never returns an error; the
// outcome describes what happened.
func (g *Gateway) Deliver(ctx context.Context, req Request) Outcome {
	if !g.cfg.Configured() {
		slog.Warn("delivery.unconfigured", "recipient", req.Recipient)
		return Outcome{Status: StatusPendingManualSend, Detail: "delivery credentials not configured"}
	}

	inst, err := g.connectedInstance(ctx, req.RoutingKey)
	if err != nil {
		if errors.Is(err, ErrNoConnectedInstance) {
			slog.Warn("delivery.no_instance", "routing_key", req.RoutingKey)
			return Outcome{Status: StatusNoConnectedInstance, Detail: err.Error()}
		}
		slog.Error("delivery.instance_lookup_failed", "error", err)
		return Outcome{Status: StatusFailed, Detail: err.Error()}
	}

	base := channels.NormalizeBaseURL(g.cfg.BaseURL)
	recipient := channels.NormalizeRecipient(req.Recipient, g.cfg.DefaultCountryCode)
	out := Outcome{InstanceKey: inst.Key, Recipient: recipient}
	if recipient == "" {
		out.Status = StatusFailed
		out.Detail = "recipient has no digits"
		return out
	}

	if req.Delay > 0 {
		if err := g.sleep(ctx, req.Delay); err != nil {
			out.Status = StatusFailed
			out.Detail = fmt.Sprintf("reply delay interrupted: %v", err)
			return out
		}
	}

	key := g.cfg.APIKey
	if inst.Token != "" {
		key = inst.Token
	}
	endpoint := base + "/" + strings.Trim(g.cfg.SendPath, "/") + "/" + url.PathEscape(inst.Key)
	payload, err := json.Marshal(map[string]string{"to": recipient, "text": req.Text})
	if err != nil {
		out.Status = StatusFailed
		out.Detail = err.Error()
		return out
	}

	for _, strategy := range g.strategies {
		a := g.attempt(ctx, endpoint, payload, key, strategy)
		out.Attempts = append(out.Attempts, a)
		slog.Info("delivery.attempt",
			"instance", inst.Key, "strategy", a.Strategy, "status", a.HTTPStatus, "outcome", a.Outcome)

		switch a.Outcome {
		case AttemptAccepted:
			out.Status = StatusSent
			return out
		case AttemptAuthRejected:
			continue
		default:
			out.Status = StatusFailed
			out.Detail = a.Error
			return out
		}
	}

	out.Status = StatusFailed
	out.Detail = "all auth conventions rejected"
	return out
}

func (g *Gateway) connectedInstance(ctx context.Context, routingKey string) (Instance, error) {
	if g.instances == nil {
		return Instance{}, ErrNoConnectedInstance
	}
	return g.instances.Connected(ctx, routingKey)
}

func (g *Gateway) attempt(ctx context.Context, endpoint string, payload []byte, key string, s AuthStrategy) Attempt {
	a := Attempt{Strategy: s.Name}

	actx, cancel := context.WithTimeout(ctx, g.cfg.AttemptTimeout())
	defer cancel()

	httpReq, err := http.NewRequestWithContext(actx, "POST", endpoint, bytes.NewReader(payload))
	if err != nil {
		a.Outcome = AttemptError
		a.Error = fmt.Sprintf("create request: %v", err)
		return a
	}
	httpReq.Header.Set("Content-Type", "application/json")
	s.Apply(httpReq.Header, key)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		a.Outcome = AttemptError
		a.Error = fmt.Sprintf("send: %v", err)
		return a
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxRecordedBody))
	a.HTTPStatus = resp.StatusCode
	a.Body = string(body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		a.Outcome = AttemptAccepted
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		a.Outcome = AttemptAuthRejected
	default:
		a.Outcome = AttemptError
		a.Error = fmt.Sprintf("gateway returned HTTP %d", resp.StatusCode)
	}
	return a
}
