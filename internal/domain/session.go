package domain

// SessionStatus is the client-visible state of the identity collaborator.
type SessionStatus string

const (
	SessionLoading         SessionStatus = "loading"
	SessionAuthenticated   SessionStatus = "authenticated"
	SessionUnauthenticated SessionStatus = "unauthenticated"
)

// Header affordances. Loading renders nothing.
const (
	AffordanceNone    = ""
	AffordanceSignIn  = "sign_in"
	AffordanceSignOut = "sign_out"
)

// Session is ephemeral and sourced per request; it is never persisted.
type Session struct {
	Identity Identity      `json:"identity,omitempty"`
	Name     string        `json:"name,omitempty"`
	Status   SessionStatus `json:"status"`
}

// Affordance picks the header control for this status.
func (s Session) Affordance() string {
	switch s.Status {
	case SessionAuthenticated:
		return AffordanceSignOut
	case SessionUnauthenticated:
		return AffordanceSignIn
	default:
		return AffordanceNone
	}
}
