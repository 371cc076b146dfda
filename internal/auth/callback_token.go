// Package auth issues and verifies the inter-service callback tokens
// carried by the external worker when it posts progress webhooks.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CallbackClaims bind a callback token to one job: a token minted for
// one project cannot report progress for another.
type CallbackClaims struct {
	Kind      string `json:"kind"`
	ProjectID string `json:"projectId"`
	jwt.RegisteredClaims
}

// MintCallbackToken signs an HS256 token for the given job. The token is
// long-lived because media jobs can run for hours and there is no
// re-issue channel to a running worker.
func MintCallbackToken(secret, kind, projectID string) (string, error) {
	now := time.Now()
	claims := CallbackClaims{
		Kind:      kind,
		ProjectID: projectID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   projectID,
			Issuer:    "mediagen",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(48 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign callback token: %w", err)
	}
	return signed, nil
}

// VerifyCallbackToken validates the signature and returns the claims.
func VerifyCallbackToken(secret, tokenString string) (*CallbackClaims, error) {
	claims := &CallbackClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse callback token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid callback token")
	}
	return claims, nil
}
