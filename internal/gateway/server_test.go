package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/autoreply/internal/bus"
	"github.com/nextlevelbuilder/autoreply/internal/config"
	"github.com/nextlevelbuilder/autoreply/pkg/protocol"
)

func newTestServer(t *testing.T, token string, origins ...string) (*Server, *bus.MessageBus, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.Gateway.Token = token
	cfg.Gateway.AllowedOrigins = origins
	b := bus.New()
	s := NewServer(cfg, b, nil)
	ts := httptest.NewServer(s.BuildMux())
	t.Cleanup(ts.Close)
	return s, b, ts
}

func wsURL(ts *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/events" + query
}

func waitClients(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", s.ClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealth(t *testing.T) {
	_, _, ts := newTestServer(t, "")
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Status   string `json:"status"`
		Protocol int    `json:"protocol"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.Protocol != protocol.ProtocolVersion {
		t.Errorf("health = %+v", body)
	}
}

func TestEventsFeed_ForwardsBusEventsSkipsCache(t *testing.T) {
	s, b, ts := newTestServer(t, "tok")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "?token=tok"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitClients(t, s, 1)

	b.Broadcast(bus.Event{Name: protocol.EventCacheInvalidate, Payload: bus.CacheInvalidatePayload{Kind: bus.CacheKindSeed}})
	b.Broadcast(bus.Event{Name: protocol.EventHandoffRequired, Payload: bus.HandoffPayload{ConversationID: "c1", OwnerKey: "o1"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame struct {
		Type    string             `json:"type"`
		Event   string             `json:"event"`
		Seq     int64              `json:"seq"`
		Payload bus.HandoffPayload `json:"payload"`
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	if frame.Type != protocol.FrameTypeEvent || frame.Event != protocol.EventHandoffRequired {
		t.Errorf("frame = %+v", frame)
	}
	if frame.Payload.OwnerKey != "o1" || frame.Seq != 1 {
		t.Errorf("payload/seq = %+v", frame)
	}

	conn.Close()
	waitClients(t, s, 0)
	if b.SubscriberCount() != 0 {
		t.Errorf("bus still has %d subscribers", b.SubscriberCount())
	}
}

func TestEventsFeed_RequiresToken(t *testing.T) {
	_, _, ts := newTestServer(t, "tok")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, ""), nil)
	if err == nil {
		t.Fatal("expected dial to fail without token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("resp = %+v", resp)
	}
}

func TestCheckOrigin(t *testing.T) {
	s, _, _ := newTestServer(t, "", "https://ops.example.com")

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://ops.example.com", true},
		{"https://evil.example.com", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := s.checkOrigin(r); got != tt.want {
			t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
