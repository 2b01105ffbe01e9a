// Package auth identifies HTTP callers from HMAC-signed bearer tokens whose
// subject is the caller's principal address.
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken indicates a malformed, expired or mis-signed token.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrSecretRequired rejects an empty signing secret.
	ErrSecretRequired = errors.New("auth: signing secret required")
)

// Claims carried by caller tokens.
type Claims struct {
	jwt.RegisteredClaims
}
