// Package tasks owns identity-scoped task operations: create, delete and
// live subscriptions, plus the View that renders a subscription.
package tasks

import (
	"context"
	"errors"

	"taskboard/internal/domain"
	"taskboard/internal/feed"
)

// Store is the document store collaborator. Implementations must filter
// ListByOwner by owner, order it created_at descending, and refuse to
// delete a task on behalf of anyone but its owner.
type Store interface {
	ListByOwner(ctx context.Context, owner domain.Identity) ([]domain.Task, error)
	Get(ctx context.Context, id string) (domain.Task, error)
	Insert(ctx context.Context, t *domain.Task) error
	Delete(ctx context.Context, requester domain.Identity, id string) error
	Watch(ctx context.Context, owner domain.Identity) (*feed.Watch, error)
}

// MaxBodyLen caps task bodies in bytes.
const MaxBodyLen = 4096

var (
	ErrNoIdentity   = errors.New("tasks: no identity")
	ErrEmptyBody    = errors.New("tasks: empty body")
	ErrBodyTooLong  = errors.New("tasks: body too long")
	ErrForbidden    = domain.ErrForbidden
	ErrViewClosed   = errors.New("tasks: view closed")
	ErrNotInView    = errors.New("tasks: task not in view")
	ErrNotShareable = errors.New("tasks: task is not public")
)
