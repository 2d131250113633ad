// Package jwt verifies signed session credentials with a shared secret.
package jwt

import (
	"github.com/Laisky/errors/v2"
	jwtLib "github.com/golang-jwt/jwt/v5"
)

// Verifier checks HS256 session tokens issued by the web application.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, errors.Errorf("empty jwt secret")
	}

	return &Verifier{secret: secret}, nil
}

// Verify parses and validates a bearer token, returning its identity claims.
func (v *Verifier) Verify(token string) (*UserClaims, error) {
	claims := new(UserClaims)
	parsed, err := jwtLib.ParseWithClaims(token, claims,
		func(t *jwtLib.Token) (any, error) {
			return v.secret, nil
		},
		jwtLib.WithValidMethods([]string{jwtLib.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "parse token")
	}
	if !parsed.Valid {
		return nil, errors.Errorf("invalid token")
	}

	if err = claims.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate claims")
	}

	return claims, nil
}
