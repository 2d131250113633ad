package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtLib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/opendraw/opendraw-sync/internal/sync/model"
	"github.com/opendraw/opendraw-sync/library/jwt"
	"github.com/opendraw/opendraw-sync/library/log"
)

func TestCredentialFromRequest(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/ws?token=from-query", nil)
	req.Header.Set("Authorization", "Bearer from-header")
	require.Equal(t, "from-query", credentialFromRequest(req))

	req = httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Authorization", "Bearer from-header")
	require.Equal(t, "from-header", credentialFromRequest(req))

	req = httptest.NewRequest("GET", "/ws", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "from-cookie"})
	require.Equal(t, "from-cookie", credentialFromRequest(req))

	req = httptest.NewRequest("GET", "/ws", nil)
	require.Empty(t, credentialFromRequest(req))
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	secret := []byte("test-secret")
	verifier, err := jwt.NewVerifier(secret)
	require.NoError(t, err)
	ctl := &Controller{verifier: verifier, logger: log.Logger.Named("test")}

	token, err := jwtLib.NewWithClaims(jwtLib.SigningMethodHS256, &jwt.UserClaims{
		RegisteredClaims: jwtLib.RegisteredClaims{
			ExpiresAt: jwtLib.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID:   "u1",
		Username: "alice",
	}).SignedString(secret)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/ws?token="+token, nil)
	identity, err := ctl.authenticate(req)
	require.NoError(t, err)
	require.Equal(t, "u1", identity.UserID)
	require.Equal(t, "alice", identity.Username)

	req = httptest.NewRequest("GET", "/ws", nil)
	_, err = ctl.authenticate(req)
	require.Error(t, err)
	require.True(t, model.IsCode(err, model.ErrCodeAuthFailed))
	require.EqualError(t, err, "Authentication token required")

	req = httptest.NewRequest("GET", "/ws?token=bogus", nil)
	_, err = ctl.authenticate(req)
	require.Error(t, err)
	require.True(t, model.IsCode(err, model.ErrCodeAuthFailed))
	require.EqualError(t, err, "Invalid authentication token")
}
