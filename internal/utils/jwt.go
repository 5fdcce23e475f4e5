package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const adminSubject = "admin"

type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateAdminToken signs a back-office session token valid for ttl.
func GenerateAdminToken(secret string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &adminClaims{
		Role: adminSubject,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   adminSubject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	return signed, expiresAt, err
}

// ParseAdminToken validates signature, expiry and subject.
func ParseAdminToken(secret, tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &adminClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return err
	}

	claims, ok := token.Claims.(*adminClaims)
	if !ok || !token.Valid || claims.Subject != adminSubject || claims.Role != adminSubject {
		return jwt.ErrTokenInvalidClaims
	}
	if claims.ExpiresAt == nil {
		return errors.New("token has no expiry")
	}
	return nil
}
