// Package records finds the logistics order an inbound message refers to and
// projects it into a redacted snapshot that is safe to place in a prompt.
package records

import "regexp"

// referencePatterns are tried in order; the first match wins and its first
// capture group is the order reference.
var referencePatterns = []*regexp.Regexp{
	// "pedido 123", "pedido nº 123", "ordem #123", "pedido: n. 123"
	regexp.MustCompile(`(?i)(?:pedido|ordem)\s*:?\s*(?:n(?:º|°|o|\.)\s*)?#?\s*(\d+)`),
	// "número 12345", "número do pedido: #12345"
	regexp.MustCompile(`(?i)n(?:ú|u)mero\s*(?:do\s+pedido)?\s*:?\s*#?\s*(\d{5,})`),
	// bare 6-digit token
	regexp.MustCompile(`\b(\d{6})\b`),
}

// ExtractReference returns the order reference mentioned in text, or "".
func ExtractReference(text string) string {
	for _, re := range referencePatterns {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}
