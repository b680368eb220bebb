// Package share maps task ids to public links and decides, at read time,
// whether a task may be shown to an anonymous visitor.
package share

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"

	"taskboard/internal/domain"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// ErrNotFound covers both missing and private tasks so a visitor cannot
// tell them apart.
var ErrNotFound = errors.New("share: task not found")

// TaskReader is the one-shot read the resolver needs.
type TaskReader interface {
	Get(ctx context.Context, id string) (domain.Task, error)
}

type Resolver struct {
	base   string
	prefix string
	tasks  TaskReader
	md     goldmark.Markdown
}

// NewResolver builds links as base/id. The path of base is also used as
// the in-app prefix for the public page.
func NewResolver(base string, tasks TaskReader) *Resolver {
	base = strings.TrimRight(base, "/")
	prefix := "/tasks"
	if u, err := url.Parse(base); err == nil && u.Path != "" {
		prefix = u.Path
	}
	return &Resolver{
		base:   base,
		prefix: prefix,
		tasks:  tasks,
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Link returns the absolute share URL. It never consults the store.
func (r *Resolver) Link(id string) string {
	return r.base + "/" + url.PathEscape(id)
}

// Prefix is the in-app path the public task page is served under.
func (r *Resolver) Prefix() string { return r.prefix }

// Path returns the in-app path of the public task page.
func (r *Resolver) Path(id string) string {
	return r.prefix + "/" + url.PathEscape(id)
}

// Resolve fetches id for an anonymous viewer. It succeeds only for
// existing public tasks.
func (r *Resolver) Resolve(ctx context.Context, id string) (domain.Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Task{}, ErrNotFound
	}
	t, err := r.tasks.Get(ctx, id)
	if errors.Is(err, domain.ErrTaskNotFound) {
		return domain.Task{}, ErrNotFound
	}
	if err != nil {
		return domain.Task{}, err
	}
	if !t.Visibility.IsPublic() {
		return domain.Task{}, ErrNotFound
	}
	return t, nil
}

// RenderBody converts a task body to HTML. Raw HTML in the body is
// escaped since goldmark omits it unless WithUnsafe is set.
func (r *Resolver) RenderBody(body string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
