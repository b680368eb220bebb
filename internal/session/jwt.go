package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"taskboard/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)

const DefaultTTL = 24 * time.Hour

// Claims is the decoded content of a session token.
type Claims struct {
	Identity  domain.Identity
	Name      string
	TokenID   string
	ExpiresAt time.Time
}

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl}, nil
}

func (t *Tokens) TTL() time.Duration { return t.ttl }

// Issue signs a token for identity.
func (t *Tokens) Issue(identity domain.Identity, name string) (string, Claims, error) {
	if identity.IsZero() {
		return "", Claims{}, errors.New("identity required")
	}
	now := time.Now()
	c := Claims{
		Identity:  identity,
		Name:      name,
		TokenID:   newTokenID(),
		ExpiresAt: now.Add(t.ttl),
	}
	claims := jwt.MapClaims{
		"sub":  string(identity),
		"name": name,
		"jti":  c.TokenID,
		"exp":  c.ExpiresAt.Unix(),
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", Claims{}, err
	}
	return signed, c, nil
}

// Parse validates signature, algorithm and time claims.
func (t *Tokens) Parse(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	sub, _ := mc["sub"].(string)
	if domain.Identity(sub).IsZero() {
		return Claims{}, ErrInvalidToken
	}
	name, _ := mc["name"].(string)
	jti, _ := mc["jti"].(string)

	var exp time.Time
	if e, err := mc.GetExpirationTime(); err == nil && e != nil {
		exp = e.Time
	}

	return Claims{
		Identity:  domain.Identity(sub),
		Name:      name,
		TokenID:   jti,
		ExpiresAt: exp,
	}, nil
}

func newTokenID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
