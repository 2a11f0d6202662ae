// Package auth verifies connection credentials into domain identities.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dkeye/dicetable/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrNoSecret     = errors.New("jwt secret not configured")
)

// Provider turns a transport credential into a verified identity.
type Provider interface {
	Verify(ctx context.Context, credential string) (*domain.Identity, error)
}

// Claims carry the account identity; Subject holds the user id.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// JWTProvider issues and verifies HS256 identity tokens.
type JWTProvider struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTProvider(secret, issuer string, ttl time.Duration) (*JWTProvider, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTProvider{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for displayName. An empty userID gets a fresh one.
func (p *JWTProvider) Issue(userID, displayName string) (string, *domain.Identity, error) {
	if userID == "" {
		userID = "usr_" + uuid.NewString()[:8]
	}
	id, err := domain.NewIdentity(userID, displayName)
	if err != nil {
		return "", nil, err
	}
	now := p.now()
	claims := Claims{
		Name: id.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   string(id.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", nil, err
	}
	return token, id, nil
}

// Verify returns the identity in token, or ErrInvalidToken.
func (p *JWTProvider) Verify(_ context.Context, token string) (*domain.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	id, err := domain.NewIdentity(claims.Subject, claims.Name)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return id, nil
}

// TokenFromRequest finds a credential in the "token" query parameter,
// a bearer Authorization header or the "token" cookie, in that order.
func TokenFromRequest(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		return t
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if rest, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(rest)
		}
	}
	if c, err := r.Cookie("token"); err == nil {
		return c.Value
	}
	return ""
}
