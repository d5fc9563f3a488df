package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/autoreply/internal/agent"
	"github.com/nextlevelbuilder/autoreply/internal/channels"
	"github.com/nextlevelbuilder/autoreply/internal/config"
)

type chanRunner struct{ got chan agent.InboundEvent }

func (r chanRunner) Run(_ context.Context, ev agent.InboundEvent) (*agent.Result, error) {
	r.got <- ev
	return &agent.Result{Status: agent.StatusSent}, nil
}

func TestToEvent(t *testing.T) {
	l, err := NewListener(config.BridgeConfig{URL: "ws://bridge", ReceiverAddress: "551133334444", AllowFrom: []string{"5511988887777"}}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		msg  bridgeMessage
		ok   bool
	}{
		{"direct allowed", bridgeMessage{Type: "message", From: "5511988887777@s.whatsapp.net", Content: " Oi "}, true},
		{"not a message", bridgeMessage{Type: "ack", From: "5511988887777"}, false},
		{"own message", bridgeMessage{Type: "message", From: "5511988887777", Content: "x", FromMe: true}, false},
		{"outside allowlist", bridgeMessage{Type: "message", From: "5511000000000", Content: "x"}, false},
		{"group disabled by default", bridgeMessage{Type: "message", From: "5511988887777", Chat: "123@g.us", Content: "x"}, false},
		{"empty text", bridgeMessage{Type: "message", From: "5511988887777", Content: "   "}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := l.toEvent(tt.msg)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if ev.MessageText != "Oi" || ev.ConversationID != "5511988887777@s.whatsapp.net" || ev.ReceiverAddress != "551133334444" {
				t.Errorf("event = %+v", ev)
			}
			if err := ev.Validate(); err != nil {
				t.Errorf("mapped event invalid: %v", err)
			}
		})
	}
}

func TestToEvent_GroupOpen(t *testing.T) {
	l, _ := NewListener(config.BridgeConfig{URL: "ws://bridge", GroupPolicy: "open"}, nil, nil)
	ev, ok := l.toEvent(bridgeMessage{Type: "message", From: "5511988887777", Chat: "123@g.us", To: "5521900000000", Content: "Oi"})
	if !ok || ev.ConversationID != "123@g.us" || ev.ReceiverAddress != "5521900000000" {
		t.Errorf("event = %+v ok=%v", ev, ok)
	}
}

func TestNewListener_RequiresURL(t *testing.T) {
	if _, err := NewListener(config.BridgeConfig{}, nil, nil); err == nil {
		t.Error("expected error for empty url")
	}
}

func TestListener_ReceivesFromBridge(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"message","from":"5511988887777","content":"Qual o status do pedido 123456?"}`))
		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	runner := chanRunner{got: make(chan agent.InboundEvent, 1)}
	l, err := NewListener(config.BridgeConfig{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}, runner, nil)
	if err != nil {
		t.Fatal(err)
	}
	l.Start(context.Background())
	defer l.Stop()

	select {
	case ev := <-runner.got:
		if ev.SenderAddress != "5511988887777" || !strings.Contains(ev.MessageText, "123456") {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no event received from bridge")
	}
}

type countingRunner struct{ calls chan string }

func (r countingRunner) Run(_ context.Context, ev agent.InboundEvent) (*agent.Result, error) {
	r.calls <- ev.SenderAddress
	return &agent.Result{Status: agent.StatusSent}, nil
}

func TestHandleFrame_RateLimitedPerSender(t *testing.T) {
	runner := countingRunner{calls: make(chan string, 4)}
	l, err := NewListener(config.BridgeConfig{URL: "ws://bridge"}, runner, channels.NewSenderRateLimiter(1, 1))
	if err != nil {
		t.Fatal(err)
	}

	frame := func(from string) []byte {
		return []byte(`{"type":"message","from":"` + from + `","content":"oi"}`)
	}
	l.handleFrame(context.Background(), frame("5511988887777"))
	l.handleFrame(context.Background(), frame("5511988887777@s.whatsapp.net"))
	l.handleFrame(context.Background(), frame("5521977776666"))
	l.wg.Wait()
	close(runner.calls)

	var got []string
	for c := range runner.calls {
		got = append(got, c)
	}
	if len(got) != 2 {
		t.Fatalf("runs = %v, want one per sender", got)
	}
}
