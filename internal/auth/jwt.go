package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingSubject is returned for a token that does not name a user
var ErrMissingSubject = errors.New("token has no subject")

// Claims are the fields of a backend access token the dashboard relies on.
// The user id travels in the registered "sub" claim.
type Claims struct {
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token
func (c *Claims) UserID() string {
	return c.Subject
}

// MintToken signs an HS256 access token for userID. The backend issues the
// real tokens; this is used by local tooling and tests.
func MintToken(userID, email, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	return t.SignedString([]byte(secret))
}

// ParseClaims reads an access token. With a secret the HS256 signature is
// verified. Without one the token is only decoded and checked for expiry;
// callers must then match it against a token they already trust.
func ParseClaims(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}

	if secret == "" {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
			return nil, err
		}
		exp, err := claims.GetExpirationTime()
		if err != nil {
			return nil, err
		}
		if exp != nil && time.Now().After(exp.Time) {
			return nil, jwt.ErrTokenExpired
		}
	} else {
		t, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return nil, err
		}
		if !t.Valid {
			return nil, jwt.ErrTokenInvalidClaims
		}
	}

	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}
