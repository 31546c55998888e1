package api

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Username returns the subject of a session token. The signature is not
// checked: the server verifies it on every call, the client only needs to
// know who it is.
func Username(token string) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("token subject: %w", err)
	}
	if sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}
