package channels

import "strings"

// AllowList matches sender addresses against configured entries.
// Entries and senders are compared by digits, so "+55 11 9..." and JIDs match.
// An empty list allows everyone.
type AllowList struct {
	digits map[string]bool
}

// NewAllowList builds an AllowList from raw entries. Entries without digits are ignored.
func NewAllowList(entries []string) AllowList {
	al := AllowList{}
	for _, e := range entries {
		d := DigitsOnly(strings.TrimSpace(e))
		if d == "" {
			continue
		}
		if al.digits == nil {
			al.digits = make(map[string]bool)
		}
		al.digits[d] = true
	}
	return al
}

// Empty reports whether no entries are configured.
func (a AllowList) Empty() bool { return len(a.digits) == 0 }

// Allows reports whether sender may be answered.
func (a AllowList) Allows(sender string) bool {
	if a.Empty() {
		return true
	}
	return a.digits[DigitsOnly(sender)]
}
