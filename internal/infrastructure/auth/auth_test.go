package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/cfg"
	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newManager() *JWTManager {
	return NewJWTManager(&cfg.AuthCfg{JWTSecret: "test-secret", AccessTTL: time.Hour})
}

func TestJWTManagerRoundTrip(t *testing.T) {
	m := newManager()

	token, err := m.Issue(&domain.User{ID: 7, Username: "ana", Role: domain.RoleCashier})
	require.NoError(t, err)

	principal, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), principal.UserID)
	assert.Equal(t, domain.RoleCashier, principal.Role)
	assert.False(t, principal.IsAdmin())
}

func TestJWTManagerRejectsExpired(t *testing.T) {
	m := newManager()
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := m.Issue(&domain.User{ID: 1, Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.True(t, errors.Is(err, e.ErrInvalidToken))
}

func TestJWTManagerRejectsForeignSignature(t *testing.T) {
	other := NewJWTManager(&cfg.AuthCfg{JWTSecret: "other", AccessTTL: time.Hour})
	token, err := other.Issue(&domain.User{ID: 1, Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = newManager().Parse(token)
	assert.True(t, errors.Is(err, e.ErrInvalidToken))

	_, err = newManager().Parse("not-a-token")
	assert.True(t, errors.Is(err, e.ErrInvalidToken))
}

func TestJWTManagerRejectsUnknownRole(t *testing.T) {
	claims := &Claims{
		Role: "root",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = newManager().Parse(token)
	assert.True(t, errors.Is(err, e.ErrInvalidToken))
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.NoError(t, h.Compare(hash, "s3cret"))
	assert.True(t, errors.Is(h.Compare(hash, "wrong"), e.ErrInvalidCredentials))
}

func TestNewBcryptHasherFallsBackToDefaultCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).cost)
}
