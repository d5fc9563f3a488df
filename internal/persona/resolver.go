// Package persona resolves which configured persona answers an inbound message.
package persona

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/autoreply/internal/channels"
	"github.com/nextlevelbuilder/autoreply/internal/config"
	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// ErrNoPersona means neither a routed nor a global persona exists.
var ErrNoPersona = errors.New("no persona configured")

// Resolution sources.
const (
	SourceAddress = "address"
	SourceSuffix  = "suffix"
	SourceGlobal  = "global"
)

// Defaults are the config-level values used when neither the routed nor the
// global persona sets a field.
type Defaults struct {
	Model           string
	MaxTokens       int
	Temperature     float64
	MaxResponseTime time.Duration
	Language        string
	HandoffMessage  string
	HandoffTriggers []string
}

// DefaultsFromConfig builds Defaults from the reply and provider sections.
func DefaultsFromConfig(cfg *config.Config) Defaults {
	return Defaults{
		Model:           cfg.Provider.Model,
		MaxTokens:       cfg.Reply.MaxTokens,
		Temperature:     cfg.Reply.Temperature,
		MaxResponseTime: cfg.Reply.MaxResponseTime(),
		Language:        cfg.Reply.Language,
		HandoffMessage:  cfg.Reply.HandoffMessage,
		HandoffTriggers: cfg.Reply.HandoffTriggers,
	}
}

// EffectivePersona is the fully merged persona a pipeline run uses.
type EffectivePersona struct {
	ID                 uuid.UUID
	Name               string
	Tone               string
	Language           string
	Personality        string
	CustomInstructions string
	Signature          string
	Model              string
	ForbiddenPhrases   []string
	Style              string
	ReplyDelay         time.Duration
	AutoReplyEnabled   bool
	CustomSystemPrompt string
	HandoffTriggers    []string
	HandoffMessage     string
	MaxTokens          int
	Temperature        float64
	MaxResponseTime    time.Duration
	Source             string
}

// Resolve picks the persona for receiverAddress: exact digits, then the
// 8-digit suffix, then the global persona. Fields the chosen persona leaves
// empty inherit from the global persona and then from defaults.
func Resolve(ctx context.Context, receiverAddress string, repo store.PersonaStore, defaults Defaults) (*EffectivePersona, error) {
	addr := channels.NormalizeAddress(receiverAddress)

	var specific *store.PersonaData
	source := ""
	if !addr.Empty() {
		if p, err := repo.GetByAddress(ctx, addr.Digits); err == nil {
			specific, source = p, SourceAddress
		} else if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("persona.address_lookup_failed", "address", addr.Digits, "error", err)
		}

		if specific == nil && addr.Suffix != "" {
			if p, err := repo.GetByAddressSuffix(ctx, addr.Suffix); err == nil {
				specific, source = p, SourceSuffix
			} else if !errors.Is(err, store.ErrNotFound) {
				slog.Warn("persona.suffix_lookup_failed", "suffix", addr.Suffix, "error", err)
			}
		}
	}

	global, gerr := repo.GetGlobal(ctx)
	if gerr != nil {
		global = nil
		if specific == nil {
			if errors.Is(gerr, store.ErrNotFound) {
				return nil, ErrNoPersona
			}
			return nil, fmt.Errorf("%w: global persona lookup: %w", ErrNoPersona, gerr)
		}
		if !errors.Is(gerr, store.ErrNotFound) {
			slog.Warn("persona.global_lookup_failed", "error", gerr)
		}
	}

	if specific == nil {
		specific, source = global, SourceGlobal
		global = nil
	}

	ep := merge(specific, global, defaults)
	ep.Source = source
	slog.Debug("persona.resolved", "persona", ep.Name, "source", source, "address", addr.Digits)
	return ep, nil
}

func merge(p, global *store.PersonaData, d Defaults) *EffectivePersona {
	ep := &EffectivePersona{
		ID:                 p.ID,
		Name:               p.Name,
		Personality:        p.Personality,
		CustomInstructions: p.CustomInstructions,
		Style:              p.Style,
		ReplyDelay:         time.Duration(p.ReplyDelayMs) * time.Millisecond,
		AutoReplyEnabled:   p.AutoReplyEnabled,
		CustomSystemPrompt: p.CustomSystemPrompt,

		Tone:             p.Tone,
		Language:         p.Language,
		Signature:        p.Signature,
		Model:            p.Model,
		ForbiddenPhrases: p.ForbiddenPhrases,
		HandoffTriggers:  p.HandoffTriggers,
		HandoffMessage:   p.HandoffMessage,
		MaxTokens:        p.MaxTokens,
		MaxResponseTime:  time.Duration(p.MaxResponseTimeMs) * time.Millisecond,
	}
	temp := p.Temperature

	// Inherit from the global persona.
	if global != nil {
		inheritStr(&ep.Tone, global.Tone)
		inheritStr(&ep.Language, global.Language)
		inheritStr(&ep.Signature, global.Signature)
		inheritStr(&ep.Model, global.Model)
		inheritStr(&ep.HandoffMessage, global.HandoffMessage)
		inheritSlice(&ep.ForbiddenPhrases, global.ForbiddenPhrases)
		inheritSlice(&ep.HandoffTriggers, global.HandoffTriggers)
		if ep.MaxTokens <= 0 {
			ep.MaxTokens = global.MaxTokens
		}
		if ep.MaxResponseTime <= 0 {
			ep.MaxResponseTime = time.Duration(global.MaxResponseTimeMs) * time.Millisecond
		}
		if temp == nil {
			temp = global.Temperature
		}
	}

	// Then from config defaults.
	inheritStr(&ep.Language, d.Language)
	inheritStr(&ep.Model, d.Model)
	inheritStr(&ep.HandoffMessage, d.HandoffMessage)
	inheritSlice(&ep.HandoffTriggers, d.HandoffTriggers)
	if ep.MaxTokens <= 0 {
		ep.MaxTokens = d.MaxTokens
	}
	if ep.MaxResponseTime <= 0 {
		ep.MaxResponseTime = d.MaxResponseTime
	}
	if temp != nil {
		ep.Temperature = *temp
	} else {
		ep.Temperature = d.Temperature
	}
	return ep
}

func inheritStr(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func inheritSlice(dst *[]string, v []string) {
	if len(*dst) == 0 && len(v) > 0 {
		*dst = append([]string(nil), v...)
	}
}
