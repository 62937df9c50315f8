package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptySubject = errors.New("token has no subject")
)

// Service verifies session tokens issued by the account subsystem and can
// mint equivalent tokens for local development and tests.
type Service interface {
	GenerateAccessToken(userID string) (string, error)
	ValidateToken(tokenString string) (*jwt.RegisteredClaims, error)
}
