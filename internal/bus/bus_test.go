package bus

import "testing"

func TestMessageBus_BroadcastAndUnsubscribe(t *testing.T) {
	b := New()
	var a, c []string
	b.Subscribe("a", func(e Event) { a = append(a, e.Name) })
	b.Subscribe("c", func(e Event) { c = append(c, e.Name) })

	b.Broadcast(Event{Name: "reply.sent"})
	b.Unsubscribe("c")
	b.Broadcast(Event{Name: "handoff.required"})

	if len(a) != 2 || len(c) != 1 {
		t.Fatalf("a=%v c=%v", a, c)
	}
	if b.SubscriberCount() != 1 {
		t.Errorf("SubscriberCount = %d", b.SubscriberCount())
	}
}

func TestMessageBus_PanickingHandlerIsolated(t *testing.T) {
	b := New()
	got := 0
	b.Subscribe("bad", func(Event) { panic("boom") })
	b.Subscribe("good", func(Event) { got++ })

	b.Broadcast(Event{Name: "reply.failed"})
	if got != 1 {
		t.Errorf("good handler called %d times, want 1", got)
	}
}
