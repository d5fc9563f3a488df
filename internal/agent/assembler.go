package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/autoreply/internal/channels"
	"github.com/nextlevelbuilder/autoreply/internal/knowledge"
	"github.com/nextlevelbuilder/autoreply/internal/providers"
	"github.com/nextlevelbuilder/autoreply/internal/records"
	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// Assembled is the grounding context of one run.
type Assembled struct {
	OwnerID   string // resolved conversation owner, "" if unknown
	History   []providers.Message
	Knowledge []knowledge.Scored
	Snapshot  *records.Snapshot
	Errors    []string // fetches that failed and degraded to empty
}

// Assembler gathers history, knowledge and the referenced order concurrently.
// Each fetch fails independently; failures are logged and recorded, never returned.
type Assembler struct {
	conversations store.ConversationStore
	contacts      store.ContactStore
	knowledge     store.KnowledgeStore
	records       store.RecordStore

	historyLimit   int
	knowledgeLimit int
	topK           int
}

// NewAssembler creates an Assembler. Zero limits fall back to 20 turns, 10 candidates and top 3.
func NewAssembler(s *store.Stores, historyLimit, knowledgeLimit, topK int) *Assembler {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	if knowledgeLimit <= 0 {
		knowledgeLimit = 10
	}
	if topK <= 0 {
		topK = 3
	}
	return &Assembler{
		conversations:  s.Conversations,
		contacts:       s.Contacts,
		knowledge:      s.Knowledge,
		records:        s.Records,
		historyLimit:   historyLimit,
		knowledgeLimit: knowledgeLimit,
		topK:           topK,
	}
}

// Assemble runs the three fetches and ranks knowledge once all of them are done,
// since the partner bonus needs the order's counterparties.
func (a *Assembler) Assemble(ctx context.Context, ev InboundEvent) *Assembled {
	out := &Assembled{}
	var mu sync.Mutex
	fail := func(what string, err error) {
		slog.Warn("context.fetch_failed", "fetch", what, "conversation", ev.ConversationID, "error", err)
		mu.Lock()
		out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", what, err))
		mu.Unlock()
	}

	var candidates []store.KnowledgeItem
	var g errgroup.Group

	g.Go(func() error {
		owner, history, err := a.history(ctx, ev)
		out.OwnerID = owner
		out.History = history
		if err != nil {
			fail("history", err)
		}
		return nil
	})

	g.Go(func() error {
		tags := []string{ev.contactType(), store.KnowledgeTagGeneral}
		items, err := a.knowledge.ListCandidates(ctx, tags, a.knowledgeLimit)
		if err != nil {
			fail("knowledge", err)
			return nil
		}
		candidates = items
		return nil
	})

	g.Go(func() error {
		snap, err := records.Find(ctx, a.records, records.Query{
			Text:        ev.MessageText,
			RecordID:    ev.RecordID,
			ContactType: ev.contactType(),
			CustomerID:  ev.CustomerID,
		})
		out.Snapshot = snap
		if err != nil {
			fail("record", err)
		}
		return nil
	})

	g.Wait()

	out.Knowledge = knowledge.Rank(ev.MessageText, candidates, out.Snapshot.PartnerNames(), a.topK)
	for _, s := range out.Knowledge {
		slog.Debug("context.knowledge_ranked",
			"title", s.Item.Title, "score", s.Score, "matches", len(s.Matches), "partner", s.PartnerMatch)
	}
	return out
}

// ResolveOwner returns the conversation owner: the explicit owner id, else the
// contact matched by the sender's phone suffix, else "".
func (a *Assembler) ResolveOwner(ctx context.Context, ev InboundEvent) string {
	if ev.OwnerID != "" {
		return ev.OwnerID
	}
	suffix := channels.SuffixKey(ev.SenderAddress)
	if suffix == "" {
		return ""
	}
	contact, err := a.contacts.FindBySuffix(ctx, suffix)
	if err != nil || contact == nil {
		// Unknown sender: empty history is the normal case, not a failure.
		return ""
	}
	return contact.ID
}

// history returns the owner's recent turns in chronological order.
func (a *Assembler) history(ctx context.Context, ev InboundEvent) (string, []providers.Message, error) {
	owner := a.ResolveOwner(ctx, ev)
	if owner == "" {
		return "", nil, nil
	}

	turns, err := a.conversations.RecentTurns(ctx, owner, a.historyLimit)
	if err != nil {
		return owner, nil, err
	}

	msgs := make([]providers.Message, 0, len(turns))
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		role := "user"
		if t.Direction == store.DirectionOutbound {
			role = "assistant"
		}
		msgs = append(msgs, providers.Message{Role: role, Content: t.Content})
	}
	return owner, msgs, nil
}
