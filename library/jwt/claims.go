package jwt

import (
	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	"github.com/golang-jwt/jwt/v5"
)

// UserClaims is the identity payload carried by a signed session token.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"uid"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Validate rejects tokens without a subject identity or with a
// missing/expired lifetime. Signature checks happen in Verify.
func (uc *UserClaims) Validate() error {
	if uc.UserID == "" {
		return errors.Errorf("token has no user id")
	}

	now := gutils.Clock.GetUTCNow()
	if uc.ExpiresAt == nil || !uc.ExpiresAt.After(now) {
		return errors.Errorf("token expired")
	}

	return nil
}
