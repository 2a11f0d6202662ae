package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dkeye/dicetable/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	p, err := NewJWTProvider("s3cret", "dicetable", time.Hour)
	require.NoError(t, err)

	token, id, err := p.Issue("u-1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("u-1"), id.ID)

	got, err := p.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestIssueGeneratesUserID(t *testing.T) {
	p, err := NewJWTProvider("s3cret", "", 0)
	require.NoError(t, err)
	_, id, err := p.Issue("", "Bob")
	require.NoError(t, err)
	assert.Contains(t, string(id.ID), "usr_")

	_, _, err = p.Issue("", "  ")
	assert.ErrorIs(t, err, domain.ErrDisplayNameEmpty)
}

func TestVerifyRejects(t *testing.T) {
	p, err := NewJWTProvider("s3cret", "dicetable", time.Hour)
	require.NoError(t, err)
	token, _, err := p.Issue("u-1", "Alice")
	require.NoError(t, err)

	other, err := NewJWTProvider("different", "dicetable", time.Hour)
	require.NoError(t, err)
	_, err = other.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = p.Verify(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	p.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = p.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuerAndMissingName(t *testing.T) {
	p, err := NewJWTProvider("s3cret", "dicetable", time.Hour)
	require.NoError(t, err)

	sign := func(c Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("s3cret"))
		require.NoError(t, err)
		return s
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	_, err = p.Verify(context.Background(), sign(Claims{Name: "A", RegisteredClaims: jwt.RegisteredClaims{Issuer: "elsewhere", Subject: "u", ExpiresAt: exp}}))
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = p.Verify(context.Background(), sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "dicetable", Subject: "u", ExpiresAt: exp}}))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewJWTProviderNeedsSecret(t *testing.T) {
	_, err := NewJWTProvider("", "x", time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/ws?token=q", nil)
	r.Header.Set("Authorization", "Bearer h")
	assert.Equal(t, "q", TokenFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/api/ws", nil)
	r.Header.Set("Authorization", "Bearer h")
	r.AddCookie(&http.Cookie{Name: "token", Value: "c"})
	assert.Equal(t, "h", TokenFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/api/ws", nil)
	r.AddCookie(&http.Cookie{Name: "token", Value: "c"})
	assert.Equal(t, "c", TokenFromRequest(r))

	assert.Empty(t, TokenFromRequest(httptest.NewRequest(http.MethodGet, "/", nil)))
}
