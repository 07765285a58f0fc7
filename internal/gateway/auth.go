// internal/gateway/auth.go
package gateway

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Backend handshake tokens carry "sub" = the backend instance's name and
// "role" = "backend", signed with the shared channel secret. A connection
// that cannot present one never reaches the message dispatcher; that is
// the channel's authenticity check — a player-controlled connection has no
// way to speak on it.

// CreateBackendToken signs a handshake token for a backend instance.
func CreateBackendToken(secret []byte, server string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  server,
		"role": "backend",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyBackendToken verifies a handshake token and returns the backend
// instance name it was issued to.
func VerifyBackendToken(secret []byte, tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid jwt claims")
	}
	if role, _ := claims["role"].(string); role != "backend" {
		return "", fmt.Errorf("token does not carry the backend role")
	}
	server, ok := claims["sub"].(string)
	if !ok || server == "" {
		return "", fmt.Errorf("missing sub in jwt")
	}
	return server, nil
}
