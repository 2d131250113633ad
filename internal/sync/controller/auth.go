package controller

import (
	"net/http"
	"strings"

	errors "github.com/Laisky/errors/v2"

	"github.com/opendraw/opendraw-sync/internal/sync/model"
)

// credentialFromRequest extracts the bearer credential from a connection
// attempt: explicit token query field, then Authorization header, then
// the session cookie.
func credentialFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	if cookie, err := r.Cookie("session"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return ""
}

// authenticate verifies the credential and derives the session identity.
// Failure rejects the connection attempt; the gate never retries.
func (ctl *Controller) authenticate(r *http.Request) (model.Identity, error) {
	token := credentialFromRequest(r)
	if token == "" {
		return model.Identity{}, errors.WithStack(
			model.NewError(model.ErrCodeAuthFailed, "Authentication token required"))
	}

	claims, err := ctl.verifier.Verify(token)
	if err != nil {
		return model.Identity{}, &model.Error{
			Code:    model.ErrCodeAuthFailed,
			Message: "Invalid authentication token",
			Cause:   err,
		}
	}

	return model.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}
