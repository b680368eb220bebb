package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskboard/internal/domain"
)

// ViewState tracks a View through its subscription lifecycle.
type ViewState string

const (
	ViewUninitialized ViewState = "uninitialized"
	ViewSubscribing   ViewState = "subscribing"
	ViewSynced        ViewState = "synced"
	ViewTornDown      ViewState = "torn_down"
)

// Links builds share URLs and in-app paths for a task id.
type Links interface {
	Link(id string) string
	Path(id string) string
}

// Clipboard receives share links. The websocket client forwards them to
// the browser.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Draft is the transient input form state.
type Draft struct {
	Body       string            `json:"body"`
	Visibility domain.Visibility `json:"visibility"`
}

func emptyDraft() Draft { return Draft{Visibility: domain.VisibilityPrivate} }

// Item is one rendered row. ShareURL and Href are set only for public
// tasks; private rows carry no share affordance.
type Item struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Public    bool      `json:"public"`
	ShareURL  string    `json:"share_url,omitempty"`
	Href      string    `json:"href,omitempty"`
}

// Frame is what a View hands to its renderer.
type Frame struct {
	State    ViewState
	Identity domain.Identity
	Items    []Item
	Digest   string
	Draft    Draft
	Err      error
}

// RenderFunc is invoked once per applied snapshot and after a draft reset.
// It must not call back into the View.
type RenderFunc func(Frame)

// View holds the latest snapshot of one identity's tasks and routes user
// actions to the Repository. Nothing is inserted locally: a created task
// shows up only when the subscription pushes a snapshot containing it.
type View struct {
	repo   *Repository
	links  Links
	render RenderFunc

	renderMu sync.Mutex

	mu       sync.Mutex
	state    ViewState
	identity domain.Identity
	sub      *Subscription
	gen      uint64
	tasks    []domain.Task
	digest   string
	draft    Draft
	err      error
}

func NewView(repo *Repository, links Links, render RenderFunc) *View {
	return &View{
		repo:   repo,
		links:  links,
		render: render,
		state:  ViewUninitialized,
		draft:  emptyDraft(),
	}
}

// SetIdentity points the view at identity. The previous subscription, if
// any, is cancelled before a new one is opened. Setting the current
// identity again does nothing; an empty identity leaves the view
// unsubscribed.
func (v *View) SetIdentity(ctx context.Context, identity domain.Identity) error {
	v.mu.Lock()
	if v.state == ViewTornDown {
		v.mu.Unlock()
		return ErrViewClosed
	}
	if identity == v.identity && (v.sub != nil || identity.IsZero()) {
		v.mu.Unlock()
		return nil
	}
	old := v.sub
	v.sub = nil
	v.gen++
	gen := v.gen
	v.identity = identity
	v.tasks = nil
	v.digest = ""
	v.err = nil
	v.draft = emptyDraft()
	if identity.IsZero() {
		v.state = ViewUninitialized
	} else {
		v.state = ViewSubscribing
	}
	v.mu.Unlock()

	if old != nil {
		old.Cancel()
	}
	if identity.IsZero() {
		return nil
	}

	sub, err := v.repo.Subscribe(ctx, identity)
	if err != nil {
		v.mu.Lock()
		if v.gen == gen {
			v.state = ViewUninitialized
			v.err = err
		}
		v.mu.Unlock()
		return fmt.Errorf("subscribe: %w", err)
	}

	v.mu.Lock()
	if v.gen != gen {
		v.mu.Unlock()
		sub.Cancel()
		return nil
	}
	v.sub = sub
	v.mu.Unlock()

	go v.pump(gen, sub)
	return nil
}

func (v *View) pump(gen uint64, sub *Subscription) {
	for snap := range sub.C {
		v.apply(gen, snap)
	}
}

// apply replaces local state with snap unless snap belongs to a cancelled
// subscription or the view is gone.
func (v *View) apply(gen uint64, snap Snapshot) {
	v.renderMu.Lock()
	defer v.renderMu.Unlock()

	v.mu.Lock()
	if v.gen != gen || v.state == ViewTornDown {
		v.mu.Unlock()
		return
	}
	if snap.Err != nil {
		v.err = snap.Err
		if v.state == ViewSubscribing && len(v.tasks) == 0 && len(snap.Tasks) == 0 {
			// nothing good seen yet
			frame := v.frameLocked()
			v.mu.Unlock()
			v.emit(frame)
			return
		}
	} else {
		v.err = nil
	}
	v.tasks = snap.Tasks
	v.digest = snap.Digest
	v.state = ViewSynced
	frame := v.frameLocked()
	v.mu.Unlock()

	v.emit(frame)
}

func (v *View) emit(f Frame) {
	if v.render != nil {
		v.render(f)
	}
}

// Close tears the view down. Later pushes are ignored. Safe to call more
// than once.
func (v *View) Close() {
	v.mu.Lock()
	if v.state == ViewTornDown {
		v.mu.Unlock()
		return
	}
	v.state = ViewTornDown
	v.gen++
	sub := v.sub
	v.sub = nil
	v.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}

func (v *View) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *View) Identity() domain.Identity {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.identity
}

// Frame returns the current state without rendering it.
func (v *View) Frame() Frame {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frameLocked()
}

// Items returns the rows of the latest snapshot.
func (v *View) Items() []Item {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.itemsLocked()
}

func (v *View) frameLocked() Frame {
	return Frame{
		State:    v.state,
		Identity: v.identity,
		Items:    v.itemsLocked(),
		Digest:   v.digest,
		Draft:    v.draft,
		Err:      v.err,
	}
}

func (v *View) itemsLocked() []Item {
	return Items(v.tasks, v.links)
}

// Items renders tasks as rows. links may be nil, in which case no row gets
// a share affordance.
func Items(ts []domain.Task, links Links) []Item {
	items := make([]Item, 0, len(ts))
	for _, t := range ts {
		it := Item{
			ID:        t.ID,
			Body:      t.Body,
			CreatedAt: t.CreatedAt,
			Public:    t.Visibility.IsPublic(),
		}
		if it.Public && links != nil {
			it.ShareURL = links.Link(t.ID)
			it.Href = links.Path(t.ID)
		}
		items = append(items, it)
	}
	return items
}

// SetDraft updates the input form.
func (v *View) SetDraft(body string, visibility domain.Visibility) {
	if visibility != domain.VisibilityPublic {
		visibility = domain.VisibilityPrivate
	}
	v.mu.Lock()
	v.draft = Draft{Body: body, Visibility: visibility}
	v.mu.Unlock()
}

func (v *View) Draft() Draft {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

// Submit creates a task from the draft. On success the draft resets to
// empty and private; on any error it is kept. An empty draft returns
// ErrEmptyBody without touching the store.
func (v *View) Submit(ctx context.Context) (domain.Task, error) {
	v.mu.Lock()
	if v.state == ViewTornDown {
		v.mu.Unlock()
		return domain.Task{}, ErrViewClosed
	}
	identity, draft := v.identity, v.draft
	v.mu.Unlock()

	if identity.IsZero() {
		return domain.Task{}, ErrNoIdentity
	}
	t, err := v.repo.Create(ctx, identity, draft.Body, draft.Visibility)
	if err != nil {
		return domain.Task{}, err
	}

	v.renderMu.Lock()
	defer v.renderMu.Unlock()
	v.mu.Lock()
	if v.state == ViewTornDown || v.identity != identity {
		v.mu.Unlock()
		return t, nil
	}
	v.draft = emptyDraft()
	frame := v.frameLocked()
	v.mu.Unlock()
	v.emit(frame)

	return t, nil
}

// Delete removes a task with no confirmation step.
func (v *View) Delete(ctx context.Context, id string) error {
	v.mu.Lock()
	if v.state == ViewTornDown {
		v.mu.Unlock()
		return ErrViewClosed
	}
	identity := v.identity
	v.mu.Unlock()

	if identity.IsZero() {
		return ErrNoIdentity
	}
	return v.repo.Delete(ctx, identity, id)
}

// Share copies the share URL of a public task in the view to clip and
// returns it.
func (v *View) Share(ctx context.Context, id string, clip Clipboard) (string, error) {
	v.mu.Lock()
	if v.state == ViewTornDown {
		v.mu.Unlock()
		return "", ErrViewClosed
	}
	var (
		found bool
		t     domain.Task
	)
	for _, cur := range v.tasks {
		if cur.ID == id {
			found, t = true, cur
			break
		}
	}
	v.mu.Unlock()

	if !found {
		return "", ErrNotInView
	}
	if !t.Visibility.IsPublic() {
		return "", ErrNotShareable
	}
	if v.links == nil {
		return "", errors.New("tasks: no link builder")
	}

	url := v.links.Link(id)
	if clip != nil {
		if err := clip.WriteText(ctx, url); err != nil {
			return url, fmt.Errorf("clipboard: %w", err)
		}
	}
	return url, nil
}
