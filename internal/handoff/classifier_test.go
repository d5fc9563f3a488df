package handoff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassify(t *testing.T) {
	phrases := []string{"falar com uma pessoa", "  ", "Atendente", "humano", "atendente"}

	tests := []struct {
		name string
		text string
		want Result
	}{
		{"single match", "quero falar com uma pessoa", Result{true, []string{"falar com uma pessoa"}}},
		{"case insensitive", "Quero FALAR COM UMA PESSOA agora", Result{true, []string{"falar com uma pessoa"}}},
		{"multiple in config order", "um humano ou atendente por favor", Result{true, []string{"Atendente", "humano"}}},
		{"no match", "qual o status do pedido 123456", Result{}},
		{"empty text", "", Result{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text, phrases)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Classify mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassify_NoPhrases(t *testing.T) {
	if got := Classify("quero falar com uma pessoa", nil); got.Triggered {
		t.Errorf("no phrases should never trigger, got %+v", got)
	}
}

func TestReason(t *testing.T) {
	if got := Reason([]string{"atendente", "humano"}); got != "atendente, humano" {
		t.Errorf("Reason = %q", got)
	}
}
