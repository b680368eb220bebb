package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskboard/internal/domain"
	"taskboard/internal/feed"
	"taskboard/internal/repository"
)

var errStoreDown = errors.New("store unavailable")

// flakyStore wraps the in-memory store and fails selected operations.
type flakyStore struct {
	*repository.MemoryTaskRepository
	broker *feed.Broker

	mu         sync.Mutex
	failInsert bool
	failList   bool
}

func newFlakyStore() *flakyStore {
	broker := feed.NewBroker()
	return &flakyStore{
		MemoryTaskRepository: repository.NewMemoryTaskRepository(broker),
		broker:               broker,
	}
}

func (s *flakyStore) setFailInsert(v bool) {
	s.mu.Lock()
	s.failInsert = v
	s.mu.Unlock()
}

func (s *flakyStore) setFailList(v bool) {
	s.mu.Lock()
	s.failList = v
	s.mu.Unlock()
}

func (s *flakyStore) Insert(ctx context.Context, t *domain.Task) error {
	s.mu.Lock()
	fail := s.failInsert
	s.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return s.MemoryTaskRepository.Insert(ctx, t)
}

func (s *flakyStore) ListByOwner(ctx context.Context, owner domain.Identity) ([]domain.Task, error) {
	s.mu.Lock()
	fail := s.failList
	s.mu.Unlock()
	if fail {
		return nil, errStoreDown
	}
	return s.MemoryTaskRepository.ListByOwner(ctx, owner)
}

// stepClock returns strictly increasing timestamps.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type testLinks struct{}

func (testLinks) Link(id string) string { return "https://tasks.example.com/tasks/" + id }
func (testLinks) Path(id string) string { return "/tasks/" + id }

func nextSnapshot(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.C:
		if !ok {
			t.Fatalf("subscription closed unexpectedly")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for snapshot")
	}
	return Snapshot{}
}

// waitSnapshot reads snapshots until cond holds.
func waitSnapshot(t *testing.T, sub *Subscription, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-sub.C:
			if !ok {
				t.Fatalf("subscription closed unexpectedly")
			}
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatalf("timeout waiting for matching snapshot")
		}
	}
}

func bodies(ts []domain.Task) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Body)
	}
	return out
}
