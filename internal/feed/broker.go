// Package feed delivers per-owner change notifications to live subscribers.
package feed

import (
	"sync"

	"taskboard/internal/domain"
)

// Broker fans change notifications out to watchers keyed by owner.
// Publish never blocks: a watcher with an unread notification absorbs
// further ones, since subscribers always reload the full set.
type Broker struct {
	mu       sync.Mutex
	watchers map[domain.Identity]map[*Watch]struct{}
}

func NewBroker() *Broker {
	return &Broker{watchers: make(map[domain.Identity]map[*Watch]struct{})}
}

// Watch is a registration for one owner's changes.
type Watch struct {
	C <-chan struct{}

	c      chan struct{}
	owner  domain.Identity
	broker *Broker
	once   sync.Once
}

// Watch registers interest in owner's changes. Close must be called to release it.
func (b *Broker) Watch(owner domain.Identity) *Watch {
	c := make(chan struct{}, 1)
	w := &Watch{C: c, c: c, owner: owner, broker: b}

	b.mu.Lock()
	set, ok := b.watchers[owner]
	if !ok {
		set = make(map[*Watch]struct{})
		b.watchers[owner] = set
	}
	set[w] = struct{}{}
	b.mu.Unlock()

	return w
}

// Publish notifies every watcher of owner.
func (b *Broker) Publish(owner domain.Identity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for w := range b.watchers[owner] {
		w.notify()
	}
}

// PublishAll notifies every watcher. Used after the upstream channel
// reconnects and notifications may have been lost.
func (b *Broker) PublishAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, set := range b.watchers {
		for w := range set {
			w.notify()
		}
	}
}

// Len returns the number of registered watchers.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, set := range b.watchers {
		n += len(set)
	}
	return n
}

func (w *Watch) notify() {
	select {
	case w.c <- struct{}{}:
	default:
	}
}

// Close unregisters the watch. Safe to call more than once.
func (w *Watch) Close() {
	w.once.Do(func() {
		b := w.broker
		b.mu.Lock()
		defer b.mu.Unlock()
		set := b.watchers[w.owner]
		delete(set, w)
		if len(set) == 0 {
			delete(b.watchers, w.owner)
		}
	})
}
