package channels

import "strings"

// SuffixLen is how many trailing digits are compared when exact number matches fail
// because of country/area-code formatting drift.
const SuffixLen = 8

// Address is a phone-like identifier reduced to comparable keys.
type Address struct {
	Raw    string
	Digits string
	Suffix string
}

// NormalizeAddress canonicalizes a raw sender/receiver field. Never fails:
// malformed input simply yields empty keys.
func NormalizeAddress(raw string) Address {
	d := DigitsOnly(raw)
	return Address{Raw: raw, Digits: d, Suffix: SuffixKey(d)}
}

// Empty reports whether the address carries no digits at all.
func (a Address) Empty() bool { return a.Digits == "" }

// DigitsOnly strips every non-digit character, including WhatsApp JID suffixes
// like "@s.whatsapp.net" (which contain none).
func DigitsOnly(s string) string {
	// JIDs may carry a device part: "5511999999999:12@s.whatsapp.net".
	if i := strings.IndexByte(s, '@'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SuffixKey returns the last SuffixLen digits of s (all digits if shorter).
func SuffixKey(s string) string {
	d := DigitsOnly(s)
	if len(d) <= SuffixLen {
		return d
	}
	return d[len(d)-SuffixLen:]
}

// NormalizeRecipient prepares a number for the delivery gateway: digits only,
// with countryCode prepended when missing and the number is short enough
// (<= 11 digits: area code + local number) to plausibly need it.
func NormalizeRecipient(raw, countryCode string) string {
	d := DigitsOnly(raw)
	if d == "" || countryCode == "" {
		return d
	}
	if strings.HasPrefix(d, countryCode) && len(d) > 11 {
		return d
	}
	if len(d) <= 11 {
		return countryCode + d
	}
	return d
}

// NormalizeBaseURL ensures a scheme prefix (https by default) and strips trailing slashes.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return strings.TrimRight(u, "/")
}
