package feed

import (
	"testing"
	"time"

	"taskboard/internal/domain"
)

func received(w *Watch) bool {
	select {
	case <-w.C:
		return true
	case <-time.After(50 * time.Millisecond):
		return false
	}
}

func TestBroker_PublishScopedToOwner(t *testing.T) {
	b := NewBroker()
	a := b.Watch("a@example.com")
	defer a.Close()
	other := b.Watch("b@example.com")
	defer other.Close()

	b.Publish("a@example.com")

	if !received(a) {
		t.Fatalf("expected notification for a")
	}
	if received(other) {
		t.Fatalf("b must not be notified for a's change")
	}
}

func TestBroker_PublishCoalesces(t *testing.T) {
	b := NewBroker()
	w := b.Watch("a@example.com")
	defer w.Close()

	for i := 0; i < 10; i++ {
		b.Publish("a@example.com")
	}

	if !received(w) {
		t.Fatalf("expected one notification")
	}
	if received(w) {
		t.Fatalf("expected notifications to coalesce")
	}
}

func TestBroker_CloseUnregisters(t *testing.T) {
	b := NewBroker()
	w := b.Watch(domain.Identity("a@example.com"))
	if got := b.Len(); got != 1 {
		t.Fatalf("Len() = %d; want 1", got)
	}

	w.Close()
	w.Close()

	if got := b.Len(); got != 0 {
		t.Fatalf("Len() = %d; want 0", got)
	}
	b.Publish("a@example.com")
	if received(w) {
		t.Fatalf("closed watch must not be notified")
	}
}

func TestBroker_PublishAll(t *testing.T) {
	b := NewBroker()
	a := b.Watch("a@example.com")
	defer a.Close()
	c := b.Watch("c@example.com")
	defer c.Close()

	b.PublishAll()

	if !received(a) || !received(c) {
		t.Fatalf("expected every watcher to be notified")
	}
}
