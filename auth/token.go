// Package auth reads the claims of the stored bearer token. The signature is
// never verified here; the API remains the only authority on token validity.
package auth

import (
	"errors"
	"strings"
	"time"

	"cinebook-cli/model"
	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	Subject   string
	Role      model.Role
	ExpiresAt time.Time
	Opaque    bool
}

// Expired reports whether the token carried an exp claim that is before now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Parse extracts claims from token. Tokens that are not JWTs are returned as
// opaque claims with no role and no expiry.
func Parse(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, errors.New("empty token")
	}
	if strings.Count(token, ".") != 2 {
		return Claims{Opaque: true}, nil
	}

	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, err
	}
	out := Claims{
		Subject: claims.Subject,
		Role:    model.Role(strings.ToUpper(claims.Role)),
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Usable reports whether token is present and not known to be expired.
func Usable(token string, now time.Time) bool {
	claims, err := Parse(token)
	if err != nil {
		return false
	}
	return !claims.Expired(now)
}
