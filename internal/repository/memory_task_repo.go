package repository

import (
	"context"
	"sync"

	"taskboard/internal/domain"
	"taskboard/internal/feed"

	"github.com/google/uuid"
)

// MemoryTaskRepository is an in-process task store used in DEV_MODE and
// tests. It enforces the same owner rule on delete as the Postgres store.
type MemoryTaskRepository struct {
	mu     sync.RWMutex
	tasks  map[string]domain.Task
	broker *feed.Broker
}

func NewMemoryTaskRepository(broker *feed.Broker) *MemoryTaskRepository {
	return &MemoryTaskRepository{
		tasks:  make(map[string]domain.Task),
		broker: broker,
	}
}

func (r *MemoryTaskRepository) ListByOwner(ctx context.Context, owner domain.Identity) ([]domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	res := []domain.Task{}
	for _, t := range r.tasks {
		if t.Owner == owner {
			res = append(res, t)
		}
	}
	r.mu.RUnlock()

	domain.SortTasks(res)
	return res, nil
}

func (r *MemoryTaskRepository) Get(ctx context.Context, id string) (domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	return t, nil
}

func (r *MemoryTaskRepository) Insert(ctx context.Context, t *domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.ID = uuid.NewString()

	r.mu.Lock()
	r.tasks[t.ID] = *t
	r.mu.Unlock()

	r.broker.Publish(t.Owner)
	return nil
}

func (r *MemoryTaskRepository) Delete(ctx context.Context, requester domain.Identity, id string) error {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	if t.Owner != requester {
		r.mu.Unlock()
		return domain.ErrForbidden
	}
	delete(r.tasks, id)
	r.mu.Unlock()

	r.broker.Publish(t.Owner)
	return nil
}

func (r *MemoryTaskRepository) Watch(ctx context.Context, owner domain.Identity) (*feed.Watch, error) {
	return r.broker.Watch(owner), nil
}

// Count returns the number of stored tasks for owner.
func (r *MemoryTaskRepository) Count(owner domain.Identity) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, t := range r.tasks {
		if t.Owner == owner {
			n++
		}
	}
	return n
}

func (r *MemoryTaskRepository) Ping(ctx context.Context) error { return nil }
