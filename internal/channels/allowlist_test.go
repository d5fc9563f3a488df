package channels

import "testing"

func TestAllowList(t *testing.T) {
	empty := NewAllowList(nil)
	if !empty.Allows("5511999999999") || !empty.Empty() {
		t.Error("empty list should allow everyone")
	}

	al := NewAllowList([]string{"+55 (11) 99999-9999", "  ", "abc"})
	tests := []struct {
		sender string
		want   bool
	}{
		{"5511999999999", true},
		{"5511999999999@s.whatsapp.net", true},
		{"5511999999999:3@s.whatsapp.net", true},
		{"5511888888888", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := al.Allows(tt.sender); got != tt.want {
			t.Errorf("Allows(%q) = %v, want %v", tt.sender, got, tt.want)
		}
	}
}
