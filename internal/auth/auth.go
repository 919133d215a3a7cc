package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret []byte

// Init stores the signing secret used to verify session tokens. Must be
// called once at startup before any request is served.
func Init(secret string) {
	jwtSecret = []byte(secret)
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Principal extracts and verifies the bearer token on the request and
// returns the authenticated user's email. An absent or invalid token
// returns an error; callers decide whether that is fatal or a degraded
// read.
func Principal(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}

	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return "", fmt.Errorf("authorization header is not a bearer token")
	}

	return VerifyToken(token)
}

// VerifyToken validates an HS256 session token and returns the email claim.
func VerifyToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Email == "" {
		return "", fmt.Errorf("invalid token claims")
	}

	return c.Email, nil
}
