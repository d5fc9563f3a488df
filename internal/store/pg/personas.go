package pg

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// PGPersonaStore implements store.PersonaStore backed by Postgres.
type PGPersonaStore struct {
	db *sql.DB
}

func NewPGPersonaStore(db *sql.DB) *PGPersonaStore {
	return &PGPersonaStore{db: db}
}

const personaColumns = `id, name, tone, language, personality, custom_instructions, signature, model,
	 forbidden_phrases, style, reply_delay_ms, auto_reply_enabled, routing_address, is_global,
	 custom_system_prompt, handoff_triggers, handoff_message, max_tokens, temperature,
	 max_response_time_ms, created_at, updated_at`

// routing_address is stored as typed by operators; comparisons strip non-digits.
const digitsExpr = `regexp_replace(coalesce(routing_address, ''), '\D', '', 'g')`

func (s *PGPersonaStore) GetByAddress(ctx context.Context, digits string) (*store.PersonaData, error) {
	return s.scanPersona(s.db.QueryRowContext(ctx,
		`SELECT `+personaColumns+` FROM agent_personas
		 WHERE `+digitsExpr+` = $1
		 ORDER BY updated_at DESC LIMIT 1`, digits))
}

func (s *PGPersonaStore) GetByAddressSuffix(ctx context.Context, suffix string) (*store.PersonaData, error) {
	return s.scanPersona(s.db.QueryRowContext(ctx,
		`SELECT `+personaColumns+` FROM agent_personas
		 WHERE right(`+digitsExpr+`, $2) = $1 AND `+digitsExpr+` <> ''
		 ORDER BY updated_at DESC LIMIT 1`, suffix, len(suffix)))
}

func (s *PGPersonaStore) GetGlobal(ctx context.Context) (*store.PersonaData, error) {
	return s.scanPersona(s.db.QueryRowContext(ctx,
		`SELECT `+personaColumns+` FROM agent_personas
		 WHERE is_global = true
		 ORDER BY updated_at DESC LIMIT 1`))
}

func (s *PGPersonaStore) scanPersona(row *sql.Row) (*store.PersonaData, error) {
	var p store.PersonaData
	var tone, language, personality, instructions, signature, model, style *string
	var routing, customPrompt, handoffMsg *string
	var maxTokens, maxResponseMs *int
	var temperature sql.NullFloat64

	err := row.Scan(
		&p.ID, &p.Name, &tone, &language, &personality, &instructions, &signature, &model,
		pq.Array(&p.ForbiddenPhrases), &style, &p.ReplyDelayMs, &p.AutoReplyEnabled, &routing, &p.IsGlobal,
		&customPrompt, pq.Array(&p.HandoffTriggers), &handoffMsg, &maxTokens, &temperature,
		&maxResponseMs, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}

	p.Tone = derefStr(tone)
	p.Language = derefStr(language)
	p.Personality = derefStr(personality)
	p.CustomInstructions = derefStr(instructions)
	p.Signature = derefStr(signature)
	p.Model = derefStr(model)
	p.Style = derefStr(style)
	p.RoutingAddress = derefStr(routing)
	p.CustomSystemPrompt = derefStr(customPrompt)
	p.HandoffMessage = derefStr(handoffMsg)
	p.MaxTokens = derefInt(maxTokens)
	p.MaxResponseTimeMs = derefInt(maxResponseMs)
	if temperature.Valid {
		t := temperature.Float64
		p.Temperature = &t
	}
	return &p, nil
}
