// Package knowledge ranks knowledge-base snippets against an inbound message with a
// deterministic keyword score whose provenance can be logged.
package knowledge

import (
	"sort"
	"strings"
	"unicode"

	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// Scoring weights.
const (
	WeightKeyword = 10
	WeightTitle   = 5
	WeightBody    = 2
	PartnerBonus  = 15

	MinTokenRunes = 3
	MaxTokens     = 10
)

// Match records why a token contributed to a score.
type Match struct {
	Token  string `json:"token"`
	Field  string `json:"field"` // "keyword", "title", "body"
	Points int    `json:"points"`
}

// Scored is a candidate with its score and provenance.
type Scored struct {
	Item         store.KnowledgeItem `json:"item"`
	Score        int                 `json:"score"`
	Matches      []Match             `json:"matches,omitempty"`
	PartnerMatch string              `json:"partner_match,omitempty"`
}

// Tokenize lower-cases text, splits on anything that is not a letter or digit,
// drops tokens shorter than MinTokenRunes and keeps the first MaxTokens distinct ones.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	var out []string
	for _, f := range fields {
		if len([]rune(f)) < MinTokenRunes {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
		if len(out) == MaxTokens {
			break
		}
	}
	return out
}

// Score computes one item's score for the given tokens and known partner names.
func Score(tokens []string, item store.KnowledgeItem, partnerNames []string) Scored {
	s := Scored{Item: item}

	keywords := make([]string, 0, len(item.Keywords))
	for _, k := range item.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	title := strings.ToLower(item.Title)
	body := strings.ToLower(item.Body)

	for _, tok := range tokens {
		for _, k := range keywords {
			if strings.Contains(k, tok) || strings.Contains(tok, k) {
				s.add(tok, "keyword", WeightKeyword)
				break
			}
		}
		if strings.Contains(title, tok) {
			s.add(tok, "title", WeightTitle)
		}
		if strings.Contains(body, tok) {
			s.add(tok, "body", WeightBody)
		}
	}

	if p := partnerOverlap(item.PartnerName, partnerNames); p != "" {
		s.Score += PartnerBonus
		s.PartnerMatch = p
	}
	return s
}

func (s *Scored) add(tok, field string, points int) {
	s.Score += points
	s.Matches = append(s.Matches, Match{Token: tok, Field: field, Points: points})
}

// partnerOverlap returns the known partner name that overlaps the item's partner
// (case-insensitive containment either way), or "".
func partnerOverlap(itemPartner string, known []string) string {
	ip := strings.ToLower(strings.TrimSpace(itemPartner))
	if ip == "" {
		return ""
	}
	for _, k := range known {
		kl := strings.ToLower(strings.TrimSpace(k))
		if kl == "" {
			continue
		}
		if strings.Contains(ip, kl) || strings.Contains(kl, ip) {
			return k
		}
	}
	return ""
}

// Rank scores every candidate, keeps those with a positive score, sorts them by
// score descending (ties keep candidate order) and returns at most topK.
func Rank(text string, candidates []store.KnowledgeItem, partnerNames []string, topK int) []Scored {
	tokens := Tokenize(text)

	var scored []Scored
	for _, item := range candidates {
		if s := Score(tokens, item, partnerNames); s.Score > 0 {
			scored = append(scored, s)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
