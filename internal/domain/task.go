package domain

import (
	"slices"
	"strings"
	"time"
)

// Identity is the verified email that scopes task ownership.
type Identity string

func (i Identity) String() string { return string(i) }

// IsZero reports whether no identity is present.
func (i Identity) IsZero() bool { return strings.TrimSpace(string(i)) == "" }

// Visibility controls anonymous access through a share link.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// VisibilityFromBool maps the is_public flag used on the wire and in storage.
func VisibilityFromBool(public bool) Visibility {
	if public {
		return VisibilityPublic
	}
	return VisibilityPrivate
}

func (v Visibility) IsPublic() bool { return v == VisibilityPublic }

type Task struct {
	ID         string     `db:"id" json:"id"`
	Owner      Identity   `db:"owner" json:"owner"`
	Body       string     `db:"body" json:"body"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	Visibility Visibility `db:"is_public" json:"visibility"`
}

// SortTasks orders tasks newest first. Ties on created_at fall back to id so
// the order is total and stable across reloads.
func SortTasks(ts []Task) {
	slices.SortFunc(ts, func(a, b Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
}
