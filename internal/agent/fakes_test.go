package agent

import (
	"context"
	"sync"
	"time"

	"github.com/nextlevelbuilder/autoreply/internal/bus"
	"github.com/nextlevelbuilder/autoreply/internal/channels/evolution"
	"github.com/nextlevelbuilder/autoreply/internal/persona"
	"github.com/nextlevelbuilder/autoreply/internal/providers"
	"github.com/nextlevelbuilder/autoreply/internal/store"
)

type memPersonas struct {
	byAddress map[string]*store.PersonaData
	global    *store.PersonaData
}

func (m *memPersonas) GetByAddress(_ context.Context, digits string) (*store.PersonaData, error) {
	if p, ok := m.byAddress[digits]; ok {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (m *memPersonas) GetByAddressSuffix(context.Context, string) (*store.PersonaData, error) {
	return nil, store.ErrNotFound
}

func (m *memPersonas) GetGlobal(context.Context) (*store.PersonaData, error) {
	if m.global == nil {
		return nil, store.ErrNotFound
	}
	return m.global, nil
}

type memConversations struct {
	mu        sync.Mutex
	recent    map[string][]store.ConversationTurn // newest first
	inserted  []*store.ConversationTurn
	readErr   error
	insertErr error
	askedFor  []string
}

func (m *memConversations) RecentTurns(_ context.Context, owner string, limit int) ([]store.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.askedFor = append(m.askedFor, owner)
	if m.readErr != nil {
		return nil, m.readErr
	}
	turns := m.recent[owner]
	if len(turns) > limit {
		turns = turns[:limit]
	}
	return turns, nil
}

func (m *memConversations) InsertTurn(_ context.Context, t *store.ConversationTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, t)
	return nil
}

type memContacts struct {
	bySuffix map[string]*store.ContactData
}

func (m *memContacts) FindBySuffix(_ context.Context, suffix string) (*store.ContactData, error) {
	if c, ok := m.bySuffix[suffix]; ok {
		return c, nil
	}
	return nil, store.ErrNotFound
}

type memKnowledge struct {
	mu      sync.Mutex
	items   []store.KnowledgeItem
	err     error
	gotTags []string
}

func (m *memKnowledge) ListCandidates(_ context.Context, tags []string, limit int) ([]store.KnowledgeItem, error) {
	m.mu.Lock()
	m.gotTags = tags
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	items := m.items
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

type memRecords struct {
	byNumber map[string]*store.OrderRecord
	err      error
}

func (m *memRecords) GetByID(context.Context, string) (*store.OrderRecord, error) {
	return nil, store.ErrNotFound
}

func (m *memRecords) GetByNumber(_ context.Context, n string) (*store.OrderRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	if r, ok := m.byNumber[n]; ok {
		return r, nil
	}
	return nil, store.ErrNotFound
}

func (m *memRecords) GetLatestForCustomer(context.Context, string) (*store.OrderRecord, error) {
	return nil, store.ErrNotFound
}

func (m *memRecords) ListItems(context.Context, string) ([]store.OrderItem, error) {
	return nil, nil
}

func (m *memRecords) ListVolumes(context.Context, string) ([]store.OrderVolume, error) {
	return nil, nil
}

type memNotifications struct {
	mu      sync.Mutex
	entries []*store.NotificationLogEntry
	err     error
}

func (m *memNotifications) InsertLog(_ context.Context, e *store.NotificationLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

type memHandoffs struct {
	states []store.HandoffState
}

func (m *memHandoffs) Upsert(_ context.Context, s store.HandoffState) error {
	m.states = append(m.states, s)
	return nil
}

type memInstances struct {
	list []store.ChannelInstanceData
}

func (m *memInstances) ListConnected(context.Context) ([]store.ChannelInstanceData, error) {
	return m.list, nil
}

type fakeProvider struct {
	mu      sync.Mutex
	reply   string
	err     error
	block   bool
	calls   int
	lastReq providers.ChatRequest
}

func (f *fakeProvider) Chat(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &providers.ChatResponse{Content: f.reply, Usage: &providers.Usage{PromptTokens: 100, CompletionTokens: 20}}, nil
}

func (f *fakeProvider) DefaultModel() string { return "gpt-4o-mini" }
func (f *fakeProvider) Name() string         { return "fake" }

type fakeDeliverer struct {
	mu      sync.Mutex
	outcome evolution.Outcome
	reqs    []evolution.Request
}

func (f *fakeDeliverer) Deliver(_ context.Context, req evolution.Request) evolution.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.outcome
}

type recordingBus struct {
	mu     sync.Mutex
	events []bus.Event
}

func (b *recordingBus) Subscribe(string, bus.EventHandler) {}
func (b *recordingBus) Unsubscribe(string)                 {}
func (b *recordingBus) Broadcast(e bus.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.events {
		out = append(out, e.Name)
	}
	return out
}

// harness bundles a pipeline with the fakes behind it.
type harness struct {
	personas      *memPersonas
	conversations *memConversations
	contacts      *memContacts
	knowledge     *memKnowledge
	records       *memRecords
	notifications *memNotifications
	handoffs      *memHandoffs
	instances     *memInstances
	provider      *fakeProvider
	gateway       *fakeDeliverer
	bus           *recordingBus
}

const (
	testReceiver = "5511987650000"
	testSender   = "5521912345678"
	testHandoff  = "Certo! Já chamei um atendente, ele continua com você por aqui."
)

func newHarness() *harness {
	temp := 0.3
	return &harness{
		personas: &memPersonas{
			byAddress: map[string]*store.PersonaData{
				testReceiver: {
					Name:             "Ana",
					Tone:             "cordial",
					AutoReplyEnabled: true,
					ReplyDelayMs:     1500,
					HandoffTriggers:  []string{"falar com uma pessoa", "atendente humano"},
					HandoffMessage:   testHandoff,
					Temperature:      &temp,
				},
			},
			global: &store.PersonaData{Name: "Global", IsGlobal: true, AutoReplyEnabled: true, Model: "gpt-4o-mini"},
		},
		conversations: &memConversations{recent: map[string][]store.ConversationTurn{}},
		contacts:      &memContacts{bySuffix: map[string]*store.ContactData{}},
		knowledge:     &memKnowledge{},
		records:       &memRecords{byNumber: map[string]*store.OrderRecord{}},
		notifications: &memNotifications{},
		handoffs:      &memHandoffs{},
		instances:     &memInstances{},
		provider:      &fakeProvider{reply: "Olá! Seu pedido 123456 está em trânsito e chega até sexta."},
		gateway:       &fakeDeliverer{outcome: evolution.Outcome{Status: evolution.StatusSent, Attempts: []evolution.Attempt{{Strategy: "apikey", HTTPStatus: 200, Outcome: evolution.AttemptAccepted}}}},
		bus:           &recordingBus{},
	}
}

func (h *harness) stores() *store.Stores {
	return &store.Stores{
		Personas:      h.personas,
		Conversations: h.conversations,
		Contacts:      h.contacts,
		Knowledge:     h.knowledge,
		Records:       h.records,
		Notifications: h.notifications,
		Handoffs:      h.handoffs,
		Instances:     h.instances,
	}
}

func (h *harness) pipeline(gw Deliverer) *Pipeline {
	if gw == nil {
		gw = h.gateway
	}
	var prov providers.Provider
	if h.provider != nil {
		prov = h.provider
	}
	p := NewPipeline(PipelineConfig{
		Stores:   h.stores(),
		Provider: prov,
		Gateway:  gw,
		Bus:      h.bus,
		Defaults: testDefaults(),
	})
	fixed := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }
	p.recorder.now = p.now
	return p
}

func testDefaults() persona.Defaults {
	return persona.Defaults{
		Model:           "gpt-4o-mini",
		MaxTokens:       150,
		Temperature:     0.5,
		MaxResponseTime: 2 * time.Second,
		Language:        "pt-BR",
		HandoffMessage:  "Vou transferir você para um atendente.",
	}
}
