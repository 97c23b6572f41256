// Package auth implements the signed-token codec. Tokens are HS256 JWTs
// carrying the account email as subject plus an explicit kind claim, so an
// access token can never be replayed against the refresh or logout paths.
package auth

import (
	"errors"
	"time"

	"github.com/akarpov87/authkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Kind tags a token as access or refresh. The two kinds share one encoding
// and differ in TTL; the claim makes the distinction explicit.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the token payload: registered claims (sub, exp, iat) plus Kind.
type Claims struct {
	jwt.RegisteredClaims
	Kind Kind `json:"kind"`
}

// GenerateToken mints a signed token for subject with expiry now+ttl.
// The codec is TTL-agnostic; callers supply the access or refresh duration.
func GenerateToken(subject string, kind Kind, secretKey []byte, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies signature and expiry and returns the claims.
// Expired tokens yield common.ErrTokenExpired; any other defect (malformed
// input, bad signature, unexpected algorithm, missing subject or kind)
// yields common.ErrInvalidToken. A token is rejected at exactly its expiry
// instant.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	if claims.Kind != KindAccess && claims.Kind != KindRefresh {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
