package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/garyjia/zoompay/internal/domain/entity"
	domainwf "github.com/garyjia/zoompay/internal/domain/workflow"
)

func testUser() *entity.User {
	return &entity.User{ID: "u-1", Name: "Fiona", Designation: domainwf.RoleFinance, Company: "Acme"}
}

func TestJWTIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewJWTIssuer("secret", "zoompay", time.Hour)
	require.NoError(t, err)

	fixed := time.Now().Truncate(time.Second)
	issuer.now = func() time.Time { return fixed }

	token, expiresAt, err := issuer.Issue(testUser())
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(time.Hour), expiresAt)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.True(t, claims.ExpiresAt.Equal(expiresAt))
}

func TestJWTIssuer_Rejects(t *testing.T) {
	issuer, err := NewJWTIssuer("secret", "zoompay", time.Hour)
	require.NoError(t, err)
	token, _, err := issuer.Issue(testUser())
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other, _ := NewJWTIssuer("other", "zoompay", time.Hour)
		_, err := other.Verify(token)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, _ := NewJWTIssuer("secret", "someone-else", time.Hour)
		_, err := other.Verify(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		later, _ := NewJWTIssuer("secret", "zoompay", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Verify(token)
		assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Verify("not-a-token")
		assert.Error(t, err)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			UserID: "u-1",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "zoompay",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Verify(s)
		assert.Error(t, err)
	})
}

func TestNewJWTIssuer_RequiresSecret(t *testing.T) {
	_, err := NewJWTIssuer("", "zoompay", time.Hour)
	assert.Error(t, err)
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, h.Compare(hash, "correct horse"))
	assert.ErrorIs(t, h.Compare(hash, "wrong"), ErrPasswordMismatch)
	assert.Error(t, h.Compare("not-a-hash", "correct horse"))
}

func TestNewBcryptHasher_DefaultCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.MinCost, NewBcryptHasher(bcrypt.MinCost).cost)
}
