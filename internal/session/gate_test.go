package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"taskboard/internal/domain"
)

type fakeProvider struct {
	profile Profile
	err     error
	code    string
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://idp.example.com/auth?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (Profile, error) {
	p.code = code
	return p.profile, p.err
}

func newTestGate(t *testing.T, providers ...Provider) *Gate {
	t.Helper()
	tokens, err := NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	return NewGate(tokens, NewMemoryRevocations(), GateConfig{}, providers...)
}

func requestWithCookies(target string, cookies []*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestTokens_RoundTrip(t *testing.T) {
	tokens, _ := NewTokens("secret", time.Hour)
	raw, issued, err := tokens.Issue("u1@example.com", "User One")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c, err := tokens.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Identity != "u1@example.com" || c.Name != "User One" || c.TokenID != issued.TokenID {
		t.Fatalf("unexpected claims: %+v", c)
	}
}

func TestTokens_RejectsTamperedAndExpired(t *testing.T) {
	tokens, _ := NewTokens("secret", time.Hour)
	raw, _, _ := tokens.Issue("u1@example.com", "")

	other, _ := NewTokens("another-secret", time.Hour)
	if _, err := other.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign secret, got %v", err)
	}

	expired := &Tokens{secret: []byte("secret"), ttl: -time.Minute}
	old, _, _ := expired.Issue("u1@example.com", "")
	if _, err := tokens.Parse(old); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}

	if _, err := tokens.Parse("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestRequire_FailsClosed(t *testing.T) {
	g := newTestGate(t)

	id, redirect := g.Require(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if redirect == nil || id != "" {
		t.Fatalf("expected redirect without session, got id=%q", id)
	}
	if redirect.Destination != "/" || redirect.Permanent || redirect.StatusCode() != http.StatusTemporaryRedirect {
		t.Fatalf("unexpected redirect: %+v", redirect)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	if _, redirect := g.Require(req); redirect == nil {
		t.Fatalf("expected redirect for invalid token")
	}
}

func TestRequire_AcceptsCookieAndHeader(t *testing.T) {
	g := newTestGate(t)
	rec := httptest.NewRecorder()
	token, err := g.Issue(rec, "u1@example.com", "User One")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	byCookie := requestWithCookies("/dashboard", rec.Result().Cookies())
	if id, redirect := g.Require(byCookie); redirect != nil || id != "u1@example.com" {
		t.Fatalf("cookie session: id=%q redirect=%+v", id, redirect)
	}

	byHeader := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	byHeader.Header.Set("Authorization", "Bearer "+token)
	if id, redirect := g.Require(byHeader); redirect != nil || id != "u1@example.com" {
		t.Fatalf("header session: id=%q redirect=%+v", id, redirect)
	}

	// a token in the URL is not a session for pages or the API
	byQuery := httptest.NewRequest(http.MethodGet, "/dashboard?token="+token, nil)
	if _, redirect := g.Require(byQuery); redirect == nil {
		t.Fatalf("query token accepted outside websocket upgrades")
	}
	if _, err := g.Authenticate(byQuery); err == nil {
		t.Fatalf("Authenticate accepted a query token")
	}
}

func TestAuthenticateUpgrade_AcceptsQueryToken(t *testing.T) {
	g := newTestGate(t)
	token, err := g.Issue(httptest.NewRecorder(), "u1@example.com", "User One")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	c, err := g.AuthenticateUpgrade(httptest.NewRequest(http.MethodGet, "/ws/tasks?token="+token, nil))
	if err != nil || c.Identity != "u1@example.com" {
		t.Fatalf("upgrade with query token: %+v, %v", c, err)
	}

	if _, err := g.AuthenticateUpgrade(httptest.NewRequest(http.MethodGet, "/ws/tasks?token=garbage", nil)); err == nil {
		t.Fatalf("garbage query token accepted")
	}
	if _, err := g.AuthenticateUpgrade(httptest.NewRequest(http.MethodGet, "/ws/tasks", nil)); !errors.Is(err, ErrNoSession) {
		t.Fatalf("missing token err = %v", err)
	}
}

func TestStatus(t *testing.T) {
	g := newTestGate(t)

	s := g.Status(httptest.NewRequest(http.MethodGet, "/", nil))
	if s.Status != domain.SessionUnauthenticated || s.Affordance() != domain.AffordanceSignIn {
		t.Fatalf("anonymous status = %+v", s)
	}

	pending := requestWithCookies("/", []*http.Cookie{{Name: StateCookieName, Value: "abc"}})
	s = g.Status(pending)
	if s.Status != domain.SessionLoading || s.Affordance() != domain.AffordanceNone {
		t.Fatalf("pending status = %+v", s)
	}

	rec := httptest.NewRecorder()
	if _, err := g.Issue(rec, "u1@example.com", "User One"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	s = g.Status(requestWithCookies("/", rec.Result().Cookies()))
	if s.Status != domain.SessionAuthenticated || s.Name != "User One" || s.Affordance() != domain.AffordanceSignOut {
		t.Fatalf("signed-in status = %+v", s)
	}
}

func TestSignInAndCallback(t *testing.T) {
	p := &fakeProvider{profile: Profile{Email: "U1@Example.com", EmailVerified: true, Name: "User One"}}
	g := newTestGate(t, p)

	rec := httptest.NewRecorder()
	if err := g.SignIn(rec, httptest.NewRequest(http.MethodGet, "/auth/signin/fake", nil), "fake"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect to provider, got %d", rec.Code)
	}
	state := cookieNamed(rec.Result().Cookies(), StateCookieName)
	if state == nil || !strings.Contains(rec.Header().Get("Location"), state.Value) {
		t.Fatalf("state cookie missing or not forwarded")
	}

	cb := requestWithCookies("/auth/callback/fake?code=xyz&state="+state.Value, []*http.Cookie{state})
	rec = httptest.NewRecorder()
	sess, err := g.Callback(rec, cb, "fake")
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if sess.Identity != "u1@example.com" || p.code != "xyz" {
		t.Fatalf("unexpected session %+v (code %q)", sess, p.code)
	}
	if cookieNamed(rec.Result().Cookies(), CookieName) == nil {
		t.Fatalf("expected session cookie")
	}
}

func TestCallback_Rejections(t *testing.T) {
	p := &fakeProvider{profile: Profile{Email: "u1@example.com", EmailVerified: false}}
	g := newTestGate(t, p)

	if err := g.SignIn(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), "github"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}

	state := &http.Cookie{Name: StateCookieName, Value: "good"}
	mismatch := requestWithCookies("/auth/callback/fake?code=x&state=bad", []*http.Cookie{state})
	if _, err := g.Callback(httptest.NewRecorder(), mismatch, "fake"); !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch, got %v", err)
	}

	unverified := requestWithCookies("/auth/callback/fake?code=x&state=good", []*http.Cookie{state})
	if _, err := g.Callback(httptest.NewRecorder(), unverified, "fake"); !errors.Is(err, ErrUnverifiedEmail) {
		t.Fatalf("expected ErrUnverifiedEmail, got %v", err)
	}
}

func TestSignOut_RevokesToken(t *testing.T) {
	g := newTestGate(t)
	rec := httptest.NewRecorder()
	if _, err := g.Issue(rec, "u1@example.com", ""); err != nil {
		t.Fatalf("issue: %v", err)
	}
	cookies := rec.Result().Cookies()

	out := httptest.NewRecorder()
	id, err := g.SignOut(out, requestWithCookies("/auth/signout", cookies))
	if err != nil || id != "u1@example.com" {
		t.Fatalf("sign out: id=%q err=%v", id, err)
	}
	if c := cookieNamed(out.Result().Cookies(), CookieName); c == nil || c.MaxAge >= 0 {
		t.Fatalf("expected session cookie to be cleared")
	}

	// the old cookie must no longer authenticate
	if _, redirect := g.Require(requestWithCookies("/dashboard", cookies)); redirect == nil {
		t.Fatalf("revoked token still accepted")
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := WithIdentity(context.Background(), "u1@example.com")
	if id, ok := IdentityFrom(ctx); !ok || id != "u1@example.com" {
		t.Fatalf("IdentityFrom = %q, %v", id, ok)
	}
	if _, ok := IdentityFrom(context.Background()); ok {
		t.Fatalf("expected no identity on bare context")
	}
}
