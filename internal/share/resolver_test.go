package share

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"taskboard/internal/domain"
	"taskboard/internal/feed"
	"taskboard/internal/repository"
)

func seed(t *testing.T, store *repository.MemoryTaskRepository, owner domain.Identity, body string, vis domain.Visibility) domain.Task {
	t.Helper()
	task := &domain.Task{Owner: owner, Body: body, Visibility: vis, CreatedAt: time.Now()}
	if err := store.Insert(context.Background(), task); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return *task
}

func TestLink_IsDeterministicAndStoreFree(t *testing.T) {
	r := NewResolver("https://tasks.example.com/tasks/", nil)

	if got := r.Link("abc"); got != "https://tasks.example.com/tasks/abc" {
		t.Fatalf("Link = %q", got)
	}
	if got := r.Path("abc"); got != "/tasks/abc" {
		t.Fatalf("Path = %q", got)
	}
	if got := r.Link("a/b"); got != "https://tasks.example.com/tasks/a%2Fb" {
		t.Fatalf("Link should escape ids, got %q", got)
	}
}

func TestResolve_VisibilityCheckedAtReadTime(t *testing.T) {
	store := repository.NewMemoryTaskRepository(feed.NewBroker())
	r := NewResolver("http://localhost:8080/tasks", store)
	ctx := context.Background()

	private := seed(t, store, "u1@example.com", "buy milk", domain.VisibilityPrivate)
	public := seed(t, store, "u1@example.com", "team meeting", domain.VisibilityPublic)

	got, err := r.Resolve(ctx, public.ID)
	if err != nil {
		t.Fatalf("resolve public: %v", err)
	}
	if got.Body != "team meeting" {
		t.Fatalf("body = %q", got.Body)
	}

	if _, err := r.Resolve(ctx, private.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("private task must not resolve, got %v", err)
	}
	if _, err := r.Resolve(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing task must not resolve, got %v", err)
	}

	// link generated before deletion stops resolving afterwards
	link := r.Link(public.ID)
	if err := store.Delete(ctx, "u1@example.com", public.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := r.Resolve(ctx, public.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted task resolved via %s: %v", link, err)
	}
}

func TestRenderBody_EscapesRawHTML(t *testing.T) {
	r := NewResolver("http://localhost/tasks", nil)
	html, err := r.RenderBody("**team** meeting <script>alert(1)</script>")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "<strong>team</strong>") {
		t.Fatalf("expected markdown rendering, got %q", html)
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("raw html leaked: %q", html)
	}
}
