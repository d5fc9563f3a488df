// Package handoff decides whether an inbound message asks for a human agent.
package handoff

import "strings"

// Result is the outcome of Classify.
type Result struct {
	Triggered bool
	Matched   []string // matching phrases, deduplicated, in configuration order
}

// Classify matches text against phrases case-insensitively by substring.
// Blank phrases are ignored.
func Classify(text string, phrases []string) Result {
	lower := strings.ToLower(text)
	seen := make(map[string]struct{}, len(phrases))

	var res Result
	for _, p := range phrases {
		needle := strings.ToLower(strings.TrimSpace(p))
		if needle == "" {
			continue
		}
		if _, dup := seen[needle]; dup {
			continue
		}
		seen[needle] = struct{}{}
		if strings.Contains(lower, needle) {
			res.Matched = append(res.Matched, strings.TrimSpace(p))
		}
	}
	res.Triggered = len(res.Matched) > 0
	return res
}

// Reason renders matched phrases for the handoff record.
func Reason(matched []string) string {
	return strings.Join(matched, ", ")
}
