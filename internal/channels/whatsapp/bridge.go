// Package whatsapp listens to a WhatsApp bridge websocket and feeds inbound
// direct messages into the reply pipeline.
package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/autoreply/internal/agent"
	"github.com/nextlevelbuilder/autoreply/internal/channels"
	"github.com/nextlevelbuilder/autoreply/internal/config"
)

const maxBackoff = 30 * time.Second

// Runner runs the reply pipeline for one inbound event.
type Runner interface {
	Run(ctx context.Context, ev agent.InboundEvent) (*agent.Result, error)
}

// bridgeMessage is the bridge frame format:
// {"type":"message","from":"...","chat":"...","to":"...","content":"...","id":"...","from_name":"..."}
type bridgeMessage struct {
	Type     string `json:"type"`
	From     string `json:"from"`
	Chat     string `json:"chat"`
	To       string `json:"to"`
	Content  string `json:"content"`
	ID       string `json:"id"`
	FromName string `json:"from_name"`
	FromMe   bool   `json:"from_me"`
}

// Listener keeps a websocket connection to the bridge open and runs the
// pipeline for every accepted message. Replies go out through the delivery
// gateway, not back over this socket.
type Listener struct {
	cfg       config.BridgeConfig
	runner    Runner
	allowList channels.AllowList
	limiter   *channels.SenderRateLimiter
	dialer    *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewListener creates a bridge listener. limiter is shared with the webhook so
// a sender is bounded across both sources; nil disables limiting.
func NewListener(cfg config.BridgeConfig, runner Runner, limiter *channels.SenderRateLimiter) (*Listener, error) {
	if cfg.URL == "" {
		return nil, errors.New("whatsapp bridge url is required")
	}
	d := *websocket.DefaultDialer
	d.HandshakeTimeout = 10 * time.Second
	return &Listener{
		cfg:       cfg,
		runner:    runner,
		allowList: channels.NewAllowList(cfg.AllowFrom),
		limiter:   limiter,
		dialer:    &d,
	}, nil
}

// Start connects in the background and reconnects with backoff until Stop or ctx ends.
func (l *Listener) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	slog.Info("bridge.starting", "url", l.cfg.URL)
	l.wg.Add(1)
	go l.listenLoop(ctx)
}

// Stop closes the connection and waits for in-flight runs.
func (l *Listener) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.mu.Lock()
	if l.conn != nil {
		_ = l.conn.Close()
		l.conn = nil
	}
	l.mu.Unlock()
	l.wg.Wait()
	slog.Info("bridge.stopped")
}

func (l *Listener) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := l.dialer.DialContext(ctx, l.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial whatsapp bridge %s: %w", l.cfg.URL, err)
	}
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	slog.Info("bridge.connected", "url", l.cfg.URL)
	return conn, nil
}

func (l *Listener) listenLoop(ctx context.Context) {
	defer l.wg.Done()
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := l.connect(ctx)
		if err != nil {
			slog.Warn("bridge.connect_failed", "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("bridge.read_error", "error", err)
				}
				break
			}
			l.handleFrame(ctx, data)
		}

		l.mu.Lock()
		if l.conn == conn {
			_ = conn.Close()
			l.conn = nil
		}
		l.mu.Unlock()
	}
}

// handleFrame decodes one bridge frame and dispatches accepted messages.
func (l *Listener) handleFrame(ctx context.Context, data []byte) {
	var msg bridgeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("bridge.invalid_frame", "error", err)
		return
	}
	ev, ok := l.toEvent(msg)
	if !ok {
		return
	}
	if !l.limiter.Allow(channels.DigitsOnly(ev.SenderAddress)) {
		slog.Warn("bridge.rate_limited", "conversation", ev.ConversationID, "sender", ev.SenderAddress)
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		res, err := l.runner.Run(ctx, ev)
		if err != nil {
			slog.Error("bridge.run_failed", "conversation", ev.ConversationID, "error", err)
			return
		}
		slog.Debug("bridge.run_done", "conversation", ev.ConversationID, "status", res.Status)
	}()
}

// toEvent maps a bridge message to an inbound event. Own messages, groups
// (unless allowed by policy), senders outside the allowlist and empty texts
// are dropped.
func (l *Listener) toEvent(msg bridgeMessage) (agent.InboundEvent, bool) {
	if msg.Type != "message" || msg.FromMe || msg.From == "" {
		return agent.InboundEvent{}, false
	}
	chat := msg.Chat
	if chat == "" {
		chat = msg.From
	}

	if strings.HasSuffix(chat, "@g.us") && !l.groupAllowed(msg.From) {
		slog.Debug("bridge.group_rejected", "chat", chat)
		return agent.InboundEvent{}, false
	}
	if !l.allowList.Allows(msg.From) {
		slog.Debug("bridge.sender_rejected", "sender", msg.From)
		return agent.InboundEvent{}, false
	}

	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return agent.InboundEvent{}, false
	}

	receiver := msg.To
	if receiver == "" {
		receiver = l.cfg.ReceiverAddress
	}

	slog.Debug("bridge.message_received", "sender", msg.From, "chat", chat, "preview", truncate(text, 50))
	return agent.InboundEvent{
		ConversationID:  chat,
		MessageText:     text,
		SenderAddress:   msg.From,
		ReceiverAddress: receiver,
		OwnerName:       msg.FromName,
	}, true
}

func (l *Listener) groupAllowed(sender string) bool {
	switch l.cfg.GroupPolicy {
	case "open":
		return true
	case "allowlist":
		return !l.allowList.Empty() && l.allowList.Allows(sender)
	default:
		return false
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
