// Package session resolves who is signed in before any task operation runs.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"taskboard/internal/domain"
	"taskboard/internal/logger"
)

const (
	CookieName      = "session"
	StateCookieName = "oauth_state"
	stateMaxAge     = 600
)

var (
	ErrUnknownProvider = errors.New("unknown identity provider")
	ErrStateMismatch   = errors.New("oauth state mismatch")
	ErrNoSession       = errors.New("no session")
)

// Redirect is returned instead of an identity when a gated page must not render.
type Redirect struct {
	Destination string
	Permanent   bool
}

func (r *Redirect) StatusCode() int {
	if r.Permanent {
		return http.StatusPermanentRedirect
	}
	return http.StatusTemporaryRedirect
}

// Gate resolves sessions from requests and drives sign-in and sign-out.
type Gate struct {
	tokens       *Tokens
	revoked      Revocations
	providers    map[string]Provider
	landing      string
	secureCookie bool
	log          *slog.Logger
}

type GateConfig struct {
	// Landing is where unauthenticated page requests are sent.
	Landing      string
	SecureCookie bool
}

func NewGate(tokens *Tokens, revoked Revocations, cfg GateConfig, providers ...Provider) *Gate {
	if revoked == nil {
		revoked = NewMemoryRevocations()
	}
	if cfg.Landing == "" {
		cfg.Landing = "/"
	}
	g := &Gate{
		tokens:       tokens,
		revoked:      revoked,
		providers:    make(map[string]Provider),
		landing:      cfg.Landing,
		secureCookie: cfg.SecureCookie,
		log:          logger.With("component", "session"),
	}
	for _, p := range providers {
		g.providers[p.Name()] = p
	}
	return g
}

// Require returns the identity behind r, or a non-permanent redirect to
// the landing page. It fails closed: any doubt about the token redirects.
func (g *Gate) Require(r *http.Request) (domain.Identity, *Redirect) {
	c, err := g.authenticate(r)
	if err != nil {
		return "", &Redirect{Destination: g.landing, Permanent: false}
	}
	return c.Identity, nil
}

// Authenticate returns the verified claims behind r.
func (g *Gate) Authenticate(r *http.Request) (Claims, error) {
	return g.authenticate(r)
}

// Status reports the session for header display. A sign-in flow that has
// started but not completed reads as loading.
func (g *Gate) Status(r *http.Request) domain.Session {
	c, err := g.authenticate(r)
	if err == nil {
		return domain.Session{Identity: c.Identity, Name: c.Name, Status: domain.SessionAuthenticated}
	}
	if ck, err := r.Cookie(StateCookieName); err == nil && ck.Value != "" {
		return domain.Session{Status: domain.SessionLoading}
	}
	return domain.Session{Status: domain.SessionUnauthenticated}
}

// AuthenticateUpgrade is Authenticate for websocket upgrades. Browsers
// cannot set headers on an upgrade, so ?token= is accepted here and only here.
func (g *Gate) AuthenticateUpgrade(r *http.Request) (Claims, error) {
	raw := tokenFromRequest(r)
	if raw == "" {
		raw = r.URL.Query().Get("token")
	}
	return g.verify(r.Context(), raw)
}

func (g *Gate) authenticate(r *http.Request) (Claims, error) {
	return g.verify(r.Context(), tokenFromRequest(r))
}

func (g *Gate) verify(ctx context.Context, raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrNoSession
	}
	c, err := g.tokens.Parse(raw)
	if err != nil {
		return Claims{}, err
	}
	if c.TokenID != "" {
		revoked, err := g.revoked.IsRevoked(ctx, c.TokenID)
		if err != nil {
			g.log.Error("revocation lookup failed", "error", err)
			return Claims{}, err
		}
		if revoked {
			return Claims{}, ErrTokenRevoked
		}
	}
	return c, nil
}

// tokenFromRequest checks the bearer header, then the session cookie.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if ck, err := r.Cookie(CookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	return ""
}

// SignIn starts delegation to the named provider.
func (g *Gate) SignIn(w http.ResponseWriter, r *http.Request, provider string) error {
	p, ok := g.providers[provider]
	if !ok {
		return ErrUnknownProvider
	}
	state := randomState()
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   stateMaxAge,
		HttpOnly: true,
		Secure:   g.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, p.AuthCodeURL(state), http.StatusFound)
	return nil
}

// Callback completes delegation and issues the session cookie.
func (g *Gate) Callback(w http.ResponseWriter, r *http.Request, provider string) (domain.Session, error) {
	p, ok := g.providers[provider]
	if !ok {
		return domain.Session{}, ErrUnknownProvider
	}

	ck, err := r.Cookie(StateCookieName)
	g.clearCookie(w, StateCookieName)
	state := r.URL.Query().Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(ck.Value), []byte(state)) != 1 {
		return domain.Session{}, ErrStateMismatch
	}

	prof, err := p.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		return domain.Session{}, err
	}
	if !prof.EmailVerified || strings.TrimSpace(prof.Email) == "" {
		return domain.Session{}, ErrUnverifiedEmail
	}

	identity := domain.Identity(strings.ToLower(strings.TrimSpace(prof.Email)))
	if _, err := g.Issue(w, identity, prof.Name); err != nil {
		return domain.Session{}, err
	}
	g.log.Info("signed in", "identity", identity, "provider", provider)
	return domain.Session{Identity: identity, Name: prof.Name, Status: domain.SessionAuthenticated}, nil
}

// Issue mints a session token for identity and sets it as a cookie.
func (g *Gate) Issue(w http.ResponseWriter, identity domain.Identity, name string) (string, error) {
	token, c, err := g.tokens.Issue(identity, name)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  c.ExpiresAt,
		HttpOnly: true,
		Secure:   g.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// SignOut revokes the current token and clears the cookie. It never
// touches task data.
func (g *Gate) SignOut(w http.ResponseWriter, r *http.Request) (domain.Identity, error) {
	defer g.clearCookie(w, CookieName)

	c, err := g.authenticate(r)
	if err != nil {
		return "", nil
	}
	if c.TokenID != "" {
		if err := g.revoked.Revoke(r.Context(), c.TokenID, c.ExpiresAt); err != nil {
			g.log.Error("revoke failed", "identity", c.Identity, "error", err)
			return c.Identity, err
		}
	}
	g.log.Info("signed out", "identity", c.Identity)
	return c.Identity, nil
}

func (g *Gate) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func randomState() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

type identityKey struct{}

// WithIdentity attaches identity to ctx.
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFrom returns the identity attached by WithIdentity.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok && !id.IsZero()
}
