package jwt

import (
	"testing"
	"time"

	jwtLib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims *UserClaims, secret []byte) string {
	t.Helper()
	token, err := jwtLib.NewWithClaims(jwtLib.SigningMethodHS256, claims).
		SignedString(secret)
	require.NoError(t, err)
	return token
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewVerifier(nil)
	require.Error(t, err)

	v, err := NewVerifier(testSecret)
	require.NoError(t, err)
	require.NotNil(t, v)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	v, err := NewVerifier(testSecret)
	require.NoError(t, err)

	token := signToken(t, &UserClaims{
		RegisteredClaims: jwtLib.RegisteredClaims{
			ExpiresAt: jwtLib.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID:   "u1",
		Username: "alice",
		Email:    "alice@example.com",
	}, testSecret)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "alice@example.com", claims.Email)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	t.Parallel()

	v, err := NewVerifier(testSecret)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		token := signToken(t, &UserClaims{
			RegisteredClaims: jwtLib.RegisteredClaims{
				ExpiresAt: jwtLib.NewNumericDate(time.Now().Add(time.Hour)),
			},
			UserID: "u1",
		}, []byte("another-secret"))
		_, err := v.Verify(token)
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		token := signToken(t, &UserClaims{
			RegisteredClaims: jwtLib.RegisteredClaims{
				ExpiresAt: jwtLib.NewNumericDate(time.Now().Add(-time.Hour)),
			},
			UserID: "u1",
		}, testSecret)
		_, err := v.Verify(token)
		require.Error(t, err)
	})

	t.Run("no user id", func(t *testing.T) {
		t.Parallel()
		token := signToken(t, &UserClaims{
			RegisteredClaims: jwtLib.RegisteredClaims{
				ExpiresAt: jwtLib.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}, testSecret)
		_, err := v.Verify(token)
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		_, err := v.Verify("not.a.token")
		require.Error(t, err)
	})

	t.Run("no expiry", func(t *testing.T) {
		t.Parallel()
		token := signToken(t, &UserClaims{UserID: "u1"}, testSecret)
		_, err := v.Verify(token)
		require.Error(t, err)
	})
}
