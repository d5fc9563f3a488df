package agent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/autoreply/internal/bus"
	"github.com/nextlevelbuilder/autoreply/internal/channels/evolution"
	"github.com/nextlevelbuilder/autoreply/internal/handoff"
	"github.com/nextlevelbuilder/autoreply/internal/persona"
	"github.com/nextlevelbuilder/autoreply/internal/providers"
	"github.com/nextlevelbuilder/autoreply/internal/store"
	"github.com/nextlevelbuilder/autoreply/pkg/protocol"
)

// Deliverer sends a reply through the messaging gateway.
type Deliverer interface {
	Deliver(ctx context.Context, req evolution.Request) evolution.Outcome
}

// PipelineConfig configures a new Pipeline.
type PipelineConfig struct {
	Stores   *store.Stores
	Provider providers.Provider // nil = completion unconfigured, runs fail with ProviderError
	Gateway  Deliverer
	Bus      bus.EventPublisher // optional
	Defaults persona.Defaults
	Channel  string // notification log channel, default "whatsapp"
	Tracer   trace.Tracer

	HistoryLimit    int
	KnowledgeLimit  int
	KnowledgeTopK   int
	SnippetMaxChars int
}

// Pipeline runs one inbound message end to end: persona, handoff gate,
// context, prompt, completion, delivery and recording.
type Pipeline struct {
	stores     *store.Stores
	assembler  *Assembler
	completion *CompletionClient
	gateway    Deliverer
	recorder   *Recorder
	eventPub   bus.EventPublisher
	defaults   persona.Defaults
	channel    string
	snippetMax int
	tracer     trace.Tracer
	locks      *convLocks
	now        func() time.Time
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Channel == "" {
		cfg.Channel = ChannelWhatsApp
	}
	if cfg.Tracer == nil {
		cfg.Tracer = defaultTracer()
	}
	return &Pipeline{
		stores:     cfg.Stores,
		assembler:  NewAssembler(cfg.Stores, cfg.HistoryLimit, cfg.KnowledgeLimit, cfg.KnowledgeTopK),
		completion: NewCompletionClient(cfg.Provider),
		gateway:    cfg.Gateway,
		recorder:   NewRecorder(cfg.Stores.Conversations, cfg.Stores.Notifications),
		eventPub:   cfg.Bus,
		defaults:   cfg.Defaults,
		channel:    cfg.Channel,
		snippetMax: cfg.SnippetMaxChars,
		tracer:     cfg.Tracer,
		locks:      newConvLocks(),
		now:        time.Now,
	}
}

// Run processes ev. Only *ConfigurationError and *ProviderError are returned;
// every other failure degrades into the Result.
func (p *Pipeline) Run(ctx context.Context, ev InboundEvent) (*Result, error) {
	start := p.now()
	ctx, span := p.startStage(ctx, "run",
		attribute.String("conversation.id", ev.ConversationID),
		attribute.String("contact.type", ev.contactType()),
	)
	defer span.End()

	unlock := p.locks.Lock(ev.ConversationID)
	defer unlock()

	// 1. Persona
	pctx, pspan := p.startStage(ctx, "persona.resolve", attribute.String("receiver", ev.ReceiverAddress))
	ep, err := persona.Resolve(pctx, ev.ReceiverAddress, p.stores.Personas, p.defaults)
	endStage(pspan, err)
	if err != nil {
		cerr := &ConfigurationError{Reason: "persona resolution", Err: err}
		markFailed(span, cerr)
		slog.Error("pipeline.config_error", "conversation", ev.ConversationID, "error", err)
		return nil, cerr
	}
	span.SetAttributes(attribute.String("persona.name", ep.Name), attribute.String("persona.source", ep.Source))
	slog.Info("pipeline.persona_resolved", "conversation", ev.ConversationID, "persona", ep.Name, "source", ep.Source)

	if !ep.AutoReplyEnabled {
		slog.Info("pipeline.auto_reply_disabled", "conversation", ev.ConversationID, "persona", ep.Name)
		res := &Result{Status: StatusSkipped, Persona: ep.Name, PersonaSource: ep.Source, ProcessingMs: p.since(start)}
		p.publish(protocol.EventReplySkipped, ev, res)
		return res, nil
	}

	// Resolved before the handoff gate so both branches key on the same owner.
	ev.OwnerID = p.assembler.ResolveOwner(ctx, ev)

	// 2. Handoff gate
	_, hspan := p.startStage(ctx, "handoff.classify")
	hres := handoff.Classify(ev.MessageText, ep.HandoffTriggers)
	hspan.SetAttributes(attribute.Bool("handoff.triggered", hres.Triggered))
	endStage(hspan, nil)
	if hres.Triggered {
		return p.runHandoff(ctx, ev, ep, hres, start), nil
	}

	// 3. Context
	actx, aspan := p.startStage(ctx, "context.assemble")
	assembled := p.assembler.Assemble(actx, ev)
	aspan.SetAttributes(
		attribute.Int("history.length", len(assembled.History)),
		attribute.Int("knowledge.used", len(assembled.Knowledge)),
		attribute.Bool("record.found", assembled.Snapshot != nil),
	)
	endStage(aspan, nil)

	// 4. Prompt
	msgs := ComposePrompt(ep, assembled, ev.MessageText, p.snippetMax)

	// 5. Completion
	cctx, cspan := p.startStage(ctx, "completion", attribute.String("model", ep.Model))
	reply, usage, err := p.completion.Complete(cctx, msgs, CompletionParams{
		Model:       ep.Model,
		MaxTokens:   ep.MaxTokens,
		Temperature: ep.Temperature,
		Timeout:     ep.MaxResponseTime,
	})
	if usage != nil {
		cspan.SetAttributes(attribute.Int("tokens.prompt", usage.PromptTokens), attribute.Int("tokens.completion", usage.CompletionTokens))
	}
	endStage(cspan, err)
	if err != nil {
		markFailed(span, err)
		slog.Error("pipeline.provider_error", "conversation", ev.ConversationID, "error", err)
		return nil, err
	}
	if found := containsForbidden(reply, ep.ForbiddenPhrases); len(found) > 0 {
		slog.Warn("pipeline.forbidden_phrase", "conversation", ev.ConversationID, "phrases", found)
	}

	// A reply exists from here on: the recorder runs on every exit path.
	res := &Result{
		Reply:         reply,
		Persona:       ep.Name,
		PersonaSource: ep.Source,
		Model:         ep.Model,
		KnowledgeUsed: len(assembled.Knowledge),
		HistoryLength: len(assembled.History),
		Warnings:      assembled.Errors,
		Status:        StatusFailed,
	}
	if assembled.Snapshot != nil {
		res.OrderNumber = assembled.Snapshot.OrderNumber
	}

	var outcome evolution.Outcome
	defer func() {
		res.ProcessingMs = p.since(start)
		p.recorder.Record(ctx, RecordEntry{
			ConversationID: ev.ConversationID,
			OwnerID:        assembled.OwnerID,
			Channel:        p.channel,
			Recipient:      ev.SenderAddress,
			Message:        reply,
			Status:         res.Status,
			Delivered:      outcome.Sent(),
			AIGenerated:    true,
			Model:          ep.Model,
			Persona:        ep.Name,
			DeliveryStatus: res.DeliveryStatus,
			ProcessingMs:   res.ProcessingMs,
			Extra: map[string]any{
				"knowledge_items_used": res.KnowledgeUsed,
				"history_length":       res.HistoryLength,
				"attempts":             len(outcome.Attempts),
				"order_number":         res.OrderNumber,
			},
		})
		p.publish(replyEvent(res.Status), ev, res)
	}()

	// 6. Delivery
	dctx, dspan := p.startStage(ctx, "delivery")
	outcome = p.gateway.Deliver(dctx, evolution.Request{
		Recipient:  ev.SenderAddress,
		Text:       reply,
		RoutingKey: ev.routingKey(),
		Delay:      ep.ReplyDelay,
	})
	derr := deliveryError(outcome)
	dspan.SetAttributes(attribute.String("delivery.status", outcome.Status), attribute.Int("delivery.attempts", len(outcome.Attempts)))
	if derr != nil {
		endStage(dspan, derr)
		res.Error = derr.Error()
	} else {
		endStage(dspan, nil)
	}

	res.Status = logStatus(outcome)
	res.DeliveryStatus = outcome.Status
	res.Attempts = outcome.Attempts
	slog.Info("pipeline.completed", "conversation", ev.ConversationID, "status", res.Status, "delivery_status", outcome.Status)
	return res, nil
}

// runHandoff flags the owner for a human, sends the fixed acknowledgment
// without delay and records one human_handoff_required entry. The completion
// provider is never called.
func (p *Pipeline) runHandoff(ctx context.Context, ev InboundEvent, ep *persona.EffectivePersona, hres handoff.Result, start time.Time) *Result {
	ctx, span := p.startStage(ctx, "handoff", attribute.StringSlice("handoff.matched", hres.Matched))
	defer span.End()

	ownerKey := ev.OwnerID
	if ownerKey == "" {
		ownerKey = ev.ConversationID
	}
	reason := handoff.Reason(hres.Matched)
	now := p.now().UTC()

	if err := p.stores.Handoffs.Upsert(ctx, store.HandoffState{
		OwnerKey:      ownerKey,
		RequiresHuman: true,
		Reason:        reason,
		DetectedAt:    now,
		UpdatedAt:     now,
	}); err != nil {
		slog.Error("pipeline.handoff_upsert_failed", "owner", ownerKey, "error", err)
	}
	slog.Info("pipeline.handoff", "conversation", ev.ConversationID, "owner", ownerKey, "matched", hres.Matched)

	ack := ep.HandoffMessage
	res := &Result{
		Status:         StatusHandoffRequired,
		Reply:          ack,
		Persona:        ep.Name,
		PersonaSource:  ep.Source,
		Handoff:        true,
		MatchedPhrases: hres.Matched,
	}

	var outcome evolution.Outcome
	defer func() {
		res.ProcessingMs = p.since(start)
		p.recorder.Record(ctx, RecordEntry{
			ConversationID: ev.ConversationID,
			OwnerID:        ev.OwnerID,
			Channel:        p.channel,
			Recipient:      ev.SenderAddress,
			Message:        ack,
			Status:         StatusHandoffRequired,
			Delivered:      outcome.Sent(),
			AIGenerated:    false,
			Persona:        ep.Name,
			DeliveryStatus: res.DeliveryStatus,
			ProcessingMs:   res.ProcessingMs,
			Extra: map[string]any{
				"matched_phrases": hres.Matched,
				"handoff_reason":  reason,
				"attempts":        len(outcome.Attempts),
			},
		})
		if p.eventPub != nil {
			p.eventPub.Broadcast(bus.Event{Name: protocol.EventHandoffRequired, Payload: bus.HandoffPayload{
				ConversationID: ev.ConversationID,
				OwnerKey:       ownerKey,
				Sender:         ev.SenderAddress,
				Matched:        hres.Matched,
			}})
		}
	}()

	if ack == "" {
		res.DeliveryStatus = evolution.StatusFailed
		res.Error = "handoff message not configured"
		return res
	}

	outcome = p.gateway.Deliver(ctx, evolution.Request{
		Recipient:  ev.SenderAddress,
		Text:       ack,
		RoutingKey: ev.routingKey(),
	})
	res.DeliveryStatus = outcome.Status
	res.Attempts = outcome.Attempts
	if derr := deliveryError(outcome); derr != nil {
		res.Error = derr.Error()
	}
	return res
}

func replyEvent(status string) string {
	if status == StatusSent {
		return protocol.EventReplySent
	}
	return protocol.EventReplyFailed
}

func (p *Pipeline) publish(name string, ev InboundEvent, res *Result) {
	if p.eventPub == nil {
		return
	}
	p.eventPub.Broadcast(bus.Event{Name: name, Payload: bus.ReplyPayload{
		ConversationID: ev.ConversationID,
		Recipient:      ev.SenderAddress,
		Persona:        res.Persona,
		Status:         res.Status,
		DeliveryStatus: res.DeliveryStatus,
		Reply:          res.Reply,
		ProcessingMs:   res.ProcessingMs,
	}})
}

func (p *Pipeline) since(start time.Time) int64 {
	return p.now().Sub(start).Milliseconds()
}

// IsConfigurationError reports whether err aborted a run for configuration reasons.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsProviderError reports whether err is a completion failure.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
