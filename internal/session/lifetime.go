package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Lifetime returns how long tokens should be kept: fallback, shortened to
// the refresh token's exp claim when that token is a JWT that expires sooner.
// Signatures are not checked here; the backend remains the authority.
func Lifetime(tokens Tokens, fallback time.Duration, now time.Time) time.Duration {
	exp, ok := expiry(tokens.RefreshToken)
	if !ok {
		return fallback
	}

	remaining := exp.Sub(now)
	if remaining <= 0 {
		return time.Second
	}
	if remaining < fallback {
		return remaining
	}

	return fallback
}

func expiry(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}
