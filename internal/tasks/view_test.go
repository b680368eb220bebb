package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskboard/internal/domain"
)

type frameRecorder struct {
	frames chan Frame
}

func newFrameRecorder() *frameRecorder {
	return &frameRecorder{frames: make(chan Frame, 64)}
}

func (r *frameRecorder) render(f Frame) { r.frames <- f }

func (r *frameRecorder) waitFor(t *testing.T, cond func(Frame) bool) Frame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case f := <-r.frames:
			if cond(f) {
				return f
			}
		case <-deadline:
			t.Fatalf("timeout waiting for frame")
		}
	}
}

type memClipboard struct {
	mu   sync.Mutex
	text string
	err  error
}

func (c *memClipboard) WriteText(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

func synced(n int) func(Frame) bool {
	return func(f Frame) bool { return f.State == ViewSynced && len(f.Items) == n }
}

func TestView_OwnerScenario(t *testing.T) {
	store := newFlakyStore()
	repo := NewRepository(store, WithClock(newStepClock().Now))
	rec := newFrameRecorder()
	view := NewView(repo, testLinks{}, rec.render)
	defer view.Close()
	ctx := context.Background()

	if view.State() != ViewUninitialized {
		t.Fatalf("state = %s; want uninitialized", view.State())
	}
	if err := view.SetIdentity(ctx, "u1@example.com"); err != nil {
		t.Fatalf("set identity: %v", err)
	}
	rec.waitFor(t, synced(0))

	view.SetDraft("buy milk", domain.VisibilityPrivate)
	if _, err := view.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if d := view.Draft(); d.Body != "" || d.Visibility != domain.VisibilityPrivate {
		t.Fatalf("draft not reset: %+v", d)
	}
	f := rec.waitFor(t, synced(1))
	milk := f.Items[0]
	if milk.Body != "buy milk" || milk.Public || milk.ShareURL != "" || milk.Href != "" {
		t.Fatalf("private item must have no share affordance: %+v", milk)
	}

	view.SetDraft("team meeting", domain.VisibilityPublic)
	if _, err := view.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	f = rec.waitFor(t, synced(2))
	meeting := f.Items[0]
	if meeting.Body != "team meeting" || !meeting.Public {
		t.Fatalf("unexpected first item: %+v", meeting)
	}
	if meeting.ShareURL != "https://tasks.example.com/tasks/"+meeting.ID || meeting.Href != "/tasks/"+meeting.ID {
		t.Fatalf("public item affordances wrong: %+v", meeting)
	}

	clip := &memClipboard{}
	url, err := view.Share(ctx, meeting.ID, clip)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if clip.text != url || url != meeting.ShareURL {
		t.Fatalf("clipboard = %q, url = %q", clip.text, url)
	}
	if _, err := view.Share(ctx, milk.ID, clip); !errors.Is(err, ErrNotShareable) {
		t.Fatalf("expected ErrNotShareable for private task, got %v", err)
	}

	if err := view.Delete(ctx, milk.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	f = rec.waitFor(t, synced(1))
	if f.Items[0].Body != "team meeting" {
		t.Fatalf("remaining item = %+v", f.Items[0])
	}
}

func TestView_NoOptimisticInsert(t *testing.T) {
	store := newFlakyStore()
	repo := NewRepository(store)
	view := NewView(repo, testLinks{}, nil)
	defer view.Close()
	ctx := context.Background()

	// never subscribed, so no snapshot can arrive
	view.mu.Lock()
	view.identity = "u1@example.com"
	view.state = ViewSubscribing
	view.mu.Unlock()

	view.SetDraft("pending", domain.VisibilityPrivate)
	if _, err := view.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if n := len(view.Items()); n != 0 {
		t.Fatalf("expected no local insert, got %d items", n)
	}
	if store.Count("u1@example.com") != 1 {
		t.Fatalf("expected task in store")
	}
}

func TestView_EmptySubmitIsSilentNoop(t *testing.T) {
	store := newFlakyStore()
	view := NewView(NewRepository(store), testLinks{}, nil)
	defer view.Close()
	ctx := context.Background()

	if err := view.SetIdentity(ctx, "u1@example.com"); err != nil {
		t.Fatalf("set identity: %v", err)
	}
	view.SetDraft("   ", domain.VisibilityPublic)

	if _, err := view.Submit(ctx); !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
	if store.Count("u1@example.com") != 0 {
		t.Fatalf("empty submit wrote to the store")
	}
	if d := view.Draft(); d.Visibility != domain.VisibilityPublic {
		t.Fatalf("draft should be untouched on empty submit: %+v", d)
	}
}

func TestView_StoreFailureKeepsDraft(t *testing.T) {
	store := newFlakyStore()
	store.setFailInsert(true)
	view := NewView(NewRepository(store), testLinks{}, nil)
	defer view.Close()
	ctx := context.Background()

	if err := view.SetIdentity(ctx, "u1@example.com"); err != nil {
		t.Fatalf("set identity: %v", err)
	}
	view.SetDraft("important", domain.VisibilityPublic)
	if _, err := view.Submit(ctx); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got %v", err)
	}
	if d := view.Draft(); d.Body != "important" {
		t.Fatalf("draft lost after failed submit: %+v", d)
	}
}

func TestView_IdentityChangeReplacesSubscription(t *testing.T) {
	store := newFlakyStore()
	repo := NewRepository(store, WithClock(newStepClock().Now))
	rec := newFrameRecorder()
	view := NewView(repo, testLinks{}, rec.render)
	defer view.Close()
	ctx := context.Background()

	if _, err := repo.Create(ctx, "a@example.com", "a1", domain.VisibilityPrivate); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, "b@example.com", "b1", domain.VisibilityPrivate); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := view.SetIdentity(ctx, "a@example.com"); err != nil {
		t.Fatalf("set identity: %v", err)
	}
	rec.waitFor(t, func(f Frame) bool { return f.Identity == "a@example.com" && len(f.Items) == 1 })

	// same identity again must not resubscribe
	if err := view.SetIdentity(ctx, "a@example.com"); err != nil {
		t.Fatalf("set identity: %v", err)
	}
	if n := store.broker.Len(); n != 1 {
		t.Fatalf("expected one watch, got %d", n)
	}

	if err := view.SetIdentity(ctx, "b@example.com"); err != nil {
		t.Fatalf("set identity: %v", err)
	}
	f := rec.waitFor(t, func(f Frame) bool { return f.Identity == "b@example.com" && f.State == ViewSynced })
	if len(f.Items) != 1 || f.Items[0].Body != "b1" {
		t.Fatalf("b's frame = %+v", f.Items)
	}
	if n := store.broker.Len(); n != 1 {
		t.Fatalf("previous subscription leaked: %d watches", n)
	}

	if err := view.SetIdentity(ctx, ""); err != nil {
		t.Fatalf("clear identity: %v", err)
	}
	if view.State() != ViewUninitialized {
		t.Fatalf("state = %s; want uninitialized", view.State())
	}
	if n := store.broker.Len(); n != 0 {
		t.Fatalf("expected no watches after clearing identity, got %d", n)
	}
}

func TestView_CloseIgnoresLaterPushes(t *testing.T) {
	store := newFlakyStore()
	repo := NewRepository(store)
	rec := newFrameRecorder()
	view := NewView(repo, testLinks{}, rec.render)
	ctx := context.Background()

	if err := view.SetIdentity(ctx, "u1@example.com"); err != nil {
		t.Fatalf("set identity: %v", err)
	}
	rec.waitFor(t, synced(0))

	view.Close()
	view.Close()
	if view.State() != ViewTornDown {
		t.Fatalf("state = %s; want torn_down", view.State())
	}

	if _, err := repo.Create(ctx, "u1@example.com", "late", domain.VisibilityPrivate); err != nil {
		t.Fatalf("create: %v", err)
	}
	select {
	case f := <-rec.frames:
		t.Fatalf("torn down view rendered %+v", f)
	case <-time.After(100 * time.Millisecond):
	}

	if err := view.SetIdentity(ctx, "u1@example.com"); !errors.Is(err, ErrViewClosed) {
		t.Fatalf("expected ErrViewClosed, got %v", err)
	}
	if _, err := view.Submit(ctx); !errors.Is(err, ErrViewClosed) {
		t.Fatalf("expected ErrViewClosed, got %v", err)
	}
	if n := store.broker.Len(); n != 0 {
		t.Fatalf("subscription leaked after close: %d", n)
	}
}

func TestView_ReadFailureIsReported(t *testing.T) {
	store := newFlakyStore()
	store.setFailList(true)
	rec := newFrameRecorder()
	view := NewView(NewRepository(store), testLinks{}, rec.render)
	defer view.Close()

	if err := view.SetIdentity(context.Background(), "u1@example.com"); err != nil {
		t.Fatalf("set identity: %v", err)
	}
	f := rec.waitFor(t, func(f Frame) bool { return f.Err != nil })
	if f.State != ViewSubscribing {
		t.Fatalf("state = %s; want subscribing until a good snapshot arrives", f.State)
	}
}

func TestView_ShareClipboardFailure(t *testing.T) {
	store := newFlakyStore()
	rec := newFrameRecorder()
	view := NewView(NewRepository(store), testLinks{}, rec.render)
	defer view.Close()
	ctx := context.Background()

	if err := view.SetIdentity(ctx, "u1@example.com"); err != nil {
		t.Fatalf("set identity: %v", err)
	}
	view.SetDraft("shared", domain.VisibilityPublic)
	if _, err := view.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	f := rec.waitFor(t, synced(1))

	clipErr := errors.New("permission denied")
	if _, err := view.Share(ctx, f.Items[0].ID, &memClipboard{err: clipErr}); !errors.Is(err, clipErr) {
		t.Fatalf("expected clipboard error, got %v", err)
	}
	if _, err := view.Share(ctx, "unknown", &memClipboard{}); !errors.Is(err, ErrNotInView) {
		t.Fatalf("expected ErrNotInView, got %v", err)
	}
}
