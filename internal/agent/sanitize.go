package agent

import (
	"log/slog"
	"regexp"
	"strings"
)

// SanitizeReply cleans model output before it is delivered over WhatsApp:
// reasoning tags, echoed context notes, duplicated paragraphs and Markdown
// that WhatsApp does not render.
func SanitizeReply(content string) string {
	if content == "" {
		return content
	}

	content = stripThinkingTags(content)
	content = stripFinalTags(content)
	content = stripEchoedContextNotes(content)
	content = collapseConsecutiveDuplicateBlocks(content)
	content = toWhatsAppMarkup(content)
	content = stripLeadingBlankLines(content)
	return strings.TrimSpace(content)
}

// Go regexp has no backreferences, so each tag gets its own pattern.
var thinkingTagPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<think>.*?</think>`),
	regexp.MustCompile(`(?is)<thinking>.*?</thinking>`),
	regexp.MustCompile(`(?is)<thought>.*?</thought>`),
}

func stripThinkingTags(content string) string {
	lower := strings.ToLower(content)
	if !strings.Contains(lower, "<think") && !strings.Contains(lower, "<thought") {
		return content
	}
	result := content
	for _, pat := range thinkingTagPatterns {
		result = pat.ReplaceAllString(result, "")
	}
	return strings.TrimSpace(result)
}

var finalTagPattern = regexp.MustCompile(`(?i)<\s*/?\s*final\s*>`)

func stripFinalTags(content string) string {
	if !strings.Contains(strings.ToLower(content), "final") {
		return content
	}
	return finalTagPattern.ReplaceAllString(content, "")
}

// stripEchoedContextNotes removes "[Contexto] ..." blocks that models sometimes
// copy from the system note into their answer. A blank line ends a block.
func stripEchoedContextNotes(content string) string {
	if !strings.Contains(content, contextMarkerPrefix) {
		return content
	}

	var result []string
	skipping := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, contextMarkerPrefix) {
			skipping = true
			continue
		}
		if skipping {
			if trimmed == "" {
				skipping = false
			}
			continue
		}
		result = append(result, line)
	}

	cleaned := strings.TrimSpace(strings.Join(result, "\n"))
	if cleaned != strings.TrimSpace(content) {
		slog.Warn("reply.stripped_context_note", "original_len", len(content), "cleaned_len", len(cleaned))
	}
	return cleaned
}

func collapseConsecutiveDuplicateBlocks(content string) string {
	blocks := strings.Split(content, "\n\n")
	if len(blocks) <= 1 {
		return content
	}

	var result []string
	for _, block := range blocks {
		trimmed := strings.TrimSpace(block)
		if trimmed == "" {
			continue
		}
		if len(result) > 0 && trimmed == strings.TrimSpace(result[len(result)-1]) {
			continue
		}
		result = append(result, block)
	}
	return strings.Join(result, "\n\n")
}

var (
	mdBoldPattern    = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	mdHeadingPattern = regexp.MustCompile(`(?m)^#{1,6}\s+`)
)

// toWhatsAppMarkup rewrites **bold** to *bold* and drops heading markers.
func toWhatsAppMarkup(content string) string {
	content = mdBoldPattern.ReplaceAllString(content, "*$1*")
	return mdHeadingPattern.ReplaceAllString(content, "")
}

var leadingBlankLinesPattern = regexp.MustCompile(`^(?:[ \t]*\r?\n)+`)

func stripLeadingBlankLines(content string) string {
	return leadingBlankLinesPattern.ReplaceAllString(content, "")
}

// containsForbidden returns the forbidden phrases present in reply (case-insensitive).
func containsForbidden(reply string, phrases []string) []string {
	lower := strings.ToLower(reply)
	var found []string
	for _, p := range phrases {
		if p = strings.TrimSpace(p); p != "" && strings.Contains(lower, strings.ToLower(p)) {
			found = append(found, p)
		}
	}
	return found
}
