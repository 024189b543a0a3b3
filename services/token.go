package services

import (
	"errors"
	"fmt"
	"time"

	"clinic-chat/models"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the participant a token was issued to. The subject is the
// participant id.
type Claims struct {
	Name string      `json:"name,omitempty"`
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for p valid for ttl.
func GenerateToken(secret string, p models.Participant, ttl time.Duration) (string, error) {
	if p.ID == "" {
		return "", fmt.Errorf("%w: missing participant id", ErrInvalidToken)
	}
	now := time.Now()
	claims := Claims{
		Name: p.DisplayName,
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies tokenString and returns the participant it names.
func ParseToken(secret, tokenString string) (models.Participant, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.Participant{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return models.Participant{}, ErrInvalidToken
	}
	return models.Participant{ID: claims.Subject, DisplayName: claims.Name, Role: claims.Role}, nil
}
