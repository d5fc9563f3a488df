package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nextlevelbuilder/autoreply/internal/bus"
	"github.com/nextlevelbuilder/autoreply/internal/store"
	"github.com/nextlevelbuilder/autoreply/pkg/protocol"
)

const testSeed = `{
	// personas
	personas: [
		{ name: "Global", is_global: true, auto_reply_enabled: true, tone: "cordial" },
		{ name: "SP", routing_address: "+55 (11) 3333-4444", auto_reply_enabled: true },
	],
	knowledge: [
		{ title: "Coleta", body: "Coletas de segunda a sexta.", keywords: ["coleta"], tag: "general" },
		{ title: "Pagamento", body: "Pagamento em 30 dias.", tag: "carrier" },
		{ title: "Antigo", body: "Desativado.", tag: "general", active: false },
	],
	contacts: [
		{ id: "c-1", kind: "carrier", name: "Transportes Silva", phone: "5511988887777" },
	],
	orders: [
		{ id: "o-1", order_number: "123456", status: "in_transit", customer_id: "cust-1",
		  created_at: "2026-01-10T10:00:00Z",
		  items: [{ description: "Caixas", quantity: 3 }],
		  volumes: [{ kind: "pallet", quantity: 2 }] },
		{ id: "o-2", order_number: "123457", status: "pending", customer_id: "cust-1",
		  created_at: "2026-02-01T10:00:00Z" },
	],
	instances: [
		{ instance_key: "main", status: "connected" },
		{ instance_key: "off", status: "disconnected" },
	],
	turns: [
		{ conversation_id: "conv", owner_id: "c-1", direction: "inbound", content: "primeira",
		  created_at: "2026-03-01T10:00:00Z" },
	],
}`

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json5")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestStores(t *testing.T) (*store.Stores, *Data) {
	t.Helper()
	seed, err := LoadSeed(writeSeed(t, testSeed))
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	d := NewData(seed)
	return &store.Stores{
		Personas:      NewFilePersonaStore(d),
		Conversations: NewFileConversationStore(d),
		Contacts:      NewFileContactStore(d),
		Knowledge:     NewFileKnowledgeStore(d),
		Records:       NewFileRecordStore(d),
		Notifications: NewFileNotificationStore(d),
		Handoffs:      NewFileHandoffStore(d),
		Instances:     NewFileChannelInstanceStore(d),
	}, d
}

func TestLoadSeed_EmptyPath(t *testing.T) {
	s, err := LoadSeed("")
	if err != nil || s == nil || len(s.Personas) != 0 {
		t.Fatalf("LoadSeed(\"\") = %+v, %v", s, err)
	}
}

func TestLoadSeed_InvalidFile(t *testing.T) {
	if _, err := LoadSeed(writeSeed(t, "{ personas: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPersonaLookups(t *testing.T) {
	s, _ := newTestStores(t)
	ctx := context.Background()

	p, err := s.Personas.GetByAddress(ctx, "551133334444")
	if err != nil || p.Name != "SP" {
		t.Fatalf("GetByAddress = %+v, %v", p, err)
	}
	p, err = s.Personas.GetByAddressSuffix(ctx, "33334444")
	if err != nil || p.Name != "SP" {
		t.Fatalf("GetByAddressSuffix = %+v, %v", p, err)
	}
	p, err = s.Personas.GetGlobal(ctx)
	if err != nil || p.Name != "Global" {
		t.Fatalf("GetGlobal = %+v, %v", p, err)
	}
	if _, err := s.Personas.GetByAddress(ctx, "5599"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestConversationTurns_NewestFirstWithLimit(t *testing.T) {
	s, _ := newTestStores(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i, text := range []string{"segunda", "terceira"} {
		turn := &store.ConversationTurn{
			ConversationID: "conv", OwnerID: "c-1", Direction: store.DirectionOutbound,
			Content: text, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.Conversations.InsertTurn(ctx, turn); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Conversations.RecentTurns(ctx, "c-1", 2)
	if err != nil {
		t.Fatal(err)
	}
	var contents []string
	for _, tr := range got {
		contents = append(contents, tr.Content)
	}
	if diff := cmp.Diff([]string{"terceira", "segunda"}, contents); diff != "" {
		t.Errorf("RecentTurns mismatch (-want +got):\n%s", diff)
	}
}

func TestContactsAndKnowledge(t *testing.T) {
	s, _ := newTestStores(t)
	ctx := context.Background()

	c, err := s.Contacts.FindBySuffix(ctx, "88887777")
	if err != nil || c.ID != "c-1" {
		t.Fatalf("FindBySuffix = %+v, %v", c, err)
	}

	items, err := s.Knowledge.ListCandidates(ctx, []string{store.KnowledgeTagGeneral}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Title != "Coleta" {
		t.Errorf("general candidates = %+v", items)
	}
	items, _ = s.Knowledge.ListCandidates(ctx, []string{store.KnowledgeTagGeneral, store.ContactCarrier}, 1)
	if len(items) != 1 {
		t.Errorf("limit not applied: %d items", len(items))
	}
}

func TestRecords(t *testing.T) {
	s, _ := newTestStores(t)
	ctx := context.Background()

	rec, err := s.Records.GetByNumber(ctx, "123456")
	if err != nil || rec.ID != "o-1" {
		t.Fatalf("GetByNumber = %+v, %v", rec, err)
	}
	latest, err := s.Records.GetLatestForCustomer(ctx, "cust-1")
	if err != nil || latest.ID != "o-2" {
		t.Fatalf("GetLatestForCustomer = %+v, %v", latest, err)
	}
	items, _ := s.Records.ListItems(ctx, "o-1")
	vols, _ := s.Records.ListVolumes(ctx, "o-1")
	if len(items) != 1 || len(vols) != 1 || vols[0].Quantity != 2 {
		t.Errorf("items=%+v volumes=%+v", items, vols)
	}
	if _, err := s.Records.GetByID(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInstancesConnectedOnly(t *testing.T) {
	s, _ := newTestStores(t)
	list, err := s.Instances.ListConnected(context.Background())
	if err != nil || len(list) != 1 || list[0].InstanceKey != "main" {
		t.Fatalf("ListConnected = %+v, %v", list, err)
	}
}

func TestHandoffUpsert_KeepsFirstDetection(t *testing.T) {
	s, d := newTestStores(t)
	ctx := context.Background()
	first := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	_ = s.Handoffs.Upsert(ctx, store.HandoffState{OwnerKey: "c-1", RequiresHuman: true, Reason: "a", DetectedAt: first, UpdatedAt: first})
	_ = s.Handoffs.Upsert(ctx, store.HandoffState{OwnerKey: "c-1", RequiresHuman: true, Reason: "b", DetectedAt: later, UpdatedAt: later})

	st, ok := d.Handoff("c-1")
	if !ok {
		t.Fatal("handoff not stored")
	}
	if !st.DetectedAt.Equal(first) || st.Reason != "b" || !st.UpdatedAt.Equal(later) {
		t.Errorf("state = %+v", st)
	}
}

func TestNotificationLogAppend(t *testing.T) {
	s, d := newTestStores(t)
	e := &store.NotificationLogEntry{Channel: "whatsapp", Recipient: "5511", Status: store.NotificationSent}
	if err := s.Notifications.InsertLog(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	logs := d.Logs()
	if len(logs) != 1 || logs[0].ID != e.ID {
		t.Errorf("logs = %+v", logs)
	}
}

type capturePub struct{ events []bus.Event }

func (c *capturePub) Subscribe(string, bus.EventHandler) {}
func (c *capturePub) Unsubscribe(string)                 {}
func (c *capturePub) Broadcast(e bus.Event)              { c.events = append(c.events, e) }

func TestSeedWatcher_ReloadReplacesSeedKeepsRuntimeWrites(t *testing.T) {
	path := writeSeed(t, testSeed)
	seed, err := LoadSeed(path)
	if err != nil {
		t.Fatal(err)
	}
	d := NewData(seed)
	conv := NewFileConversationStore(d)
	_ = conv.InsertTurn(context.Background(), &store.ConversationTurn{OwnerID: "c-1", Content: "runtime", CreatedAt: time.Now()})

	pub := &capturePub{}
	sw, err := NewSeedWatcher(path, d, pub)
	if err != nil {
		t.Fatal(err)
	}
	defer sw.Close()

	if err := os.WriteFile(path, []byte(`{ personas: [{ name: "Novo", is_global: true }] }`), 0600); err != nil {
		t.Fatal(err)
	}
	sw.Reload()

	p, err := NewFilePersonaStore(d).GetGlobal(context.Background())
	if err != nil || p.Name != "Novo" {
		t.Fatalf("GetGlobal after reload = %+v, %v", p, err)
	}
	turns, _ := conv.RecentTurns(context.Background(), "c-1", 10)
	if len(turns) != 1 || turns[0].Content != "runtime" {
		t.Errorf("runtime turns lost or seed turns kept: %+v", turns)
	}
	if len(pub.events) != 1 || pub.events[0].Name != protocol.EventCacheInvalidate {
		t.Errorf("events = %+v", pub.events)
	}

	// A broken file keeps the previous dataset and publishes nothing.
	_ = os.WriteFile(path, []byte("{ broken"), 0600)
	sw.Reload()
	if p, _ := NewFilePersonaStore(d).GetGlobal(context.Background()); p == nil || p.Name != "Novo" {
		t.Errorf("dataset replaced by broken seed: %+v", p)
	}
	if len(pub.events) != 1 {
		t.Errorf("unexpected events after failed reload: %d", len(pub.events))
	}
}

func TestNewFileStores_NoSeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, d, err := NewFileStores(ctx, store.StoreConfig{}, nil)
	if err != nil || s == nil || d == nil {
		t.Fatalf("NewFileStores = %v, %v, %v", s, d, err)
	}
	if _, err := s.Personas.GetGlobal(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Error(err)
	}
}
