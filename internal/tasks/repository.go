package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"taskboard/internal/domain"
	"taskboard/internal/logger"
)

// Repository scopes every task operation to an identity. It is the only
// component that talks to the Store.
type Repository struct {
	store Store
	now   func() time.Time
	log   *slog.Logger

	retryMin time.Duration
	retryMax time.Duration
}

type Option func(*Repository)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithRetryBackoff bounds how often a subscription rereads the store after
// a failed read.
func WithRetryBackoff(lo, hi time.Duration) Option {
	return func(r *Repository) {
		r.retryMin, r.retryMax = lo, hi
	}
}

func NewRepository(store Store, opts ...Option) *Repository {
	r := &Repository{
		store:    store,
		now:      time.Now,
		log:      logger.With("component", "tasks"),
		retryMin: 250 * time.Millisecond,
		retryMax: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.retryMin <= 0 {
		r.retryMin = 250 * time.Millisecond
	}
	if r.retryMax < r.retryMin {
		r.retryMax = r.retryMin
	}
	return r
}

// Create stores a new task for owner. A body that is empty after trimming
// is rejected with ErrEmptyBody and nothing is written.
func (r *Repository) Create(ctx context.Context, owner domain.Identity, body string, visibility domain.Visibility) (domain.Task, error) {
	if owner.IsZero() {
		return domain.Task{}, ErrNoIdentity
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.Task{}, ErrEmptyBody
	}
	if len(body) > MaxBodyLen {
		return domain.Task{}, ErrBodyTooLong
	}
	if visibility != domain.VisibilityPublic {
		visibility = domain.VisibilityPrivate
	}

	t := domain.Task{
		Owner:      owner,
		Body:       body,
		Visibility: visibility,
		// storage keeps microseconds
		CreatedAt: r.now().UTC().Truncate(time.Microsecond),
	}
	if err := r.store.Insert(ctx, &t); err != nil {
		storeErrors.WithLabelValues("create").Inc()
		r.log.Error("create task failed", "owner", owner, "error", err)
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}

	tasksCreated.Inc()
	r.log.Debug("task created", "owner", owner, "task_id", t.ID, "visibility", t.Visibility)
	return t, nil
}

// Delete removes id on behalf of requester. Ownership is enforced by the
// store; deleting a missing id is a no-op.
func (r *Repository) Delete(ctx context.Context, requester domain.Identity, id string) error {
	if requester.IsZero() {
		return ErrNoIdentity
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}

	err := r.store.Delete(ctx, requester, id)
	switch {
	case errors.Is(err, domain.ErrForbidden):
		r.log.Warn("delete denied by store", "requester", requester, "task_id", id)
		return ErrForbidden
	case err != nil:
		storeErrors.WithLabelValues("delete").Inc()
		r.log.Error("delete task failed", "requester", requester, "task_id", id, "error", err)
		return fmt.Errorf("delete task: %w", err)
	}

	tasksDeleted.Inc()
	return nil
}

// List returns a one-shot snapshot of owner's tasks.
func (r *Repository) List(ctx context.Context, owner domain.Identity) (Snapshot, error) {
	if owner.IsZero() {
		return Snapshot{}, ErrNoIdentity
	}
	ts, err := r.store.ListByOwner(ctx, owner)
	if err != nil {
		storeErrors.WithLabelValues("list").Inc()
		return Snapshot{}, fmt.Errorf("list tasks: %w", err)
	}
	return newSnapshot(owner, ts, r.now()), nil
}

// Get returns one of owner's tasks. A task owned by someone else reads as
// missing.
func (r *Repository) Get(ctx context.Context, owner domain.Identity, id string) (domain.Task, error) {
	if owner.IsZero() {
		return domain.Task{}, ErrNoIdentity
	}
	t, err := r.store.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		if !errors.Is(err, domain.ErrTaskNotFound) {
			storeErrors.WithLabelValues("get").Inc()
		}
		return domain.Task{}, err
	}
	if t.Owner != owner {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	return t, nil
}
