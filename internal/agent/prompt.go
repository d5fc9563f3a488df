package agent

import (
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/autoreply/internal/persona"
	"github.com/nextlevelbuilder/autoreply/internal/providers"
	"github.com/nextlevelbuilder/autoreply/internal/records"
)

// DefaultSnippetChars caps each knowledge body placed in the prompt.
const DefaultSnippetChars = 400

const contextMarkerPrefix = "[Contexto]"

const noOrderInstruction = "Nenhum pedido foi identificado nesta conversa. Se o cliente perguntar sobre uma entrega, " +
	"peça educadamente o número do pedido antes de responder. Nunca invente status, datas ou prazos."

var styleContract = []string{
	"Responda de forma curta: no máximo 3 frases.",
	"Faça apenas uma pergunta por vez.",
	"Use no máximo um emoji por mensagem.",
	"Varie as despedidas e não repita a mesma saudação da mensagem anterior.",
	"Use somente as informações acima; quando não souber, diga que vai verificar com a equipe.",
	"Nunca mencione valores de frete, nota fiscal, CPF, CNPJ ou endereços completos.",
}

// ComposePrompt builds the message list for the completion call: system
// instruction, optional context note, history, then the new user turn.
func ComposePrompt(p *persona.EffectivePersona, c *Assembled, inboundText string, snippetChars int) []providers.Message {
	msgs := make([]providers.Message, 0, len(c.History)+3)
	msgs = append(msgs, providers.Message{Role: "system", Content: SystemPrompt(p, c, snippetChars)})

	if len(c.History) > 0 {
		msgs = append(msgs, providers.Message{
			Role: "system",
			Content: fmt.Sprintf("%s Histórico com %d mensagens anteriores desta conversa, da mais antiga para a mais recente.",
				contextMarkerPrefix, len(c.History)),
		})
		msgs = append(msgs, c.History...)
	}

	msgs = append(msgs, providers.Message{Role: "user", Content: inboundText})
	return msgs
}

// SystemPrompt renders the system instruction. A persona's custom system
// prompt replaces the generated one verbatim.
func SystemPrompt(p *persona.EffectivePersona, c *Assembled, snippetChars int) string {
	if strings.TrimSpace(p.CustomSystemPrompt) != "" {
		return p.CustomSystemPrompt
	}
	if snippetChars <= 0 {
		snippetChars = DefaultSnippetChars
	}

	var b strings.Builder

	// Identity
	fmt.Fprintf(&b, "Você é %s, atendente virtual de uma operação de transporte e logística no WhatsApp.\n", p.Name)
	if p.Tone != "" {
		fmt.Fprintf(&b, "Tom de voz: %s.\n", p.Tone)
	}
	if p.Language != "" {
		fmt.Fprintf(&b, "Idioma das respostas: %s.\n", p.Language)
	}
	if p.Personality != "" {
		fmt.Fprintf(&b, "Personalidade: %s.\n", p.Personality)
	}
	if p.Style != "" {
		fmt.Fprintf(&b, "Estilo: %s.\n", p.Style)
	}

	if s := strings.TrimSpace(p.CustomInstructions); s != "" {
		b.WriteString("\n## Instruções\n")
		b.WriteString(s)
		b.WriteString("\n")
	}

	if s := strings.TrimSpace(p.Signature); s != "" {
		b.WriteString("\n## Assinatura\n")
		fmt.Fprintf(&b, "Quando encerrar o atendimento, assine como: %s\n", s)
	}

	if len(p.ForbiddenPhrases) > 0 {
		b.WriteString("\n## Nunca diga\n")
		for _, f := range p.ForbiddenPhrases {
			if f = strings.TrimSpace(f); f != "" {
				fmt.Fprintf(&b, "- %s\n", f)
			}
		}
	}

	b.WriteString("\n## Pedido\n")
	if c.Snapshot != nil {
		if c.Snapshot.Source == records.SourceCustomerLatest {
			b.WriteString("O cliente não citou um número; abaixo está o pedido mais recente do cliente. Confirme antes de afirmar que é o pedido em questão.\n")
		}
		b.WriteString(c.Snapshot.Render())
	} else {
		b.WriteString(noOrderInstruction)
		b.WriteString("\n")
	}

	if len(c.Knowledge) > 0 {
		b.WriteString("\n## Base de conhecimento\n")
		for _, k := range c.Knowledge {
			fmt.Fprintf(&b, "### %s\n%s\n", k.Item.Title, truncateRunes(strings.TrimSpace(k.Item.Body), snippetChars))
		}
	}

	b.WriteString("\n## Regras de estilo\n")
	for _, rule := range styleContract {
		fmt.Fprintf(&b, "- %s\n", rule)
	}

	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
