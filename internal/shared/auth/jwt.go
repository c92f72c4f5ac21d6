package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the identity contained in an access token. The client
// never holds the signing key, so claims are read without verification and
// are only used for local decisions such as refreshing before a call.
type Claims struct {
	Sub       string
	Email     string
	Name      string
	ExpiresAt time.Time
}

var ErrInvalidToken = errors.New("invalid token")

var parser = jwt.NewParser()

// InspectJWT decodes token without checking its signature.
func InspectJWT(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrInvalidToken
	}
	mc := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, mc); err != nil {
		return Claims{}, ErrInvalidToken
	}

	var claims Claims
	claims.Sub, _ = mc.GetSubject()
	claims.Email, _ = mc["email"].(string)
	claims.Name, _ = mc["name"].(string)
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// Expired reports whether token is a JWT whose exp is before now+leeway.
// Opaque tokens and tokens without exp are never considered expired.
func Expired(token string, now time.Time, leeway time.Duration) bool {
	claims, err := InspectJWT(token)
	if err != nil || claims.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(claims.ExpiresAt)
}
