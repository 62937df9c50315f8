package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/saxenasajal03/ConnectX/internal/services/auth"
	"go.uber.org/zap"
)

const (
	// UserIDKey is the key used to store the authenticated user ID in Fiber's locals.
	UserIDKey = "user_id"
	// ClaimsKey is the key used to store JWT claims in Fiber's locals.
	ClaimsKey = "claims"
)

var (
	// ErrMissingToken indicates neither a bearer token nor a session cookie was sent.
	ErrMissingToken = errors.New("missing or malformed authorization")
	// ErrInvalidToken indicates the token is invalid or expired.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// AuthMiddleware validates the session token from the Authorization header
// or, failing that, the session cookie.
func AuthMiddleware(authService auth.Service, cookieName string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := extractToken(c, cookieName)
		if err != nil {
			logger.Debug("no session token", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": ErrMissingToken.Error(),
			})
		}

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			logger.Debug("token validation failed", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": ErrInvalidToken.Error(),
			})
		}

		c.Locals(UserIDKey, claims.Subject)
		c.Locals(ClaimsKey, claims)

		logger.Debug("token validated", zap.String("user_id", claims.Subject))
		return c.Next()
	}
}

func extractToken(c *fiber.Ctx, cookieName string) (string, error) {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", ErrMissingToken
		}
		return parts[1], nil
	}
	if cookieName != "" {
		if token := c.Cookies(cookieName); token != "" {
			return token, nil
		}
	}
	return "", ErrMissingToken
}

// GetUserID retrieves the authenticated user ID from Fiber's locals.
func GetUserID(c *fiber.Ctx) (string, bool) {
	userID, ok := c.Locals(UserIDKey).(string)
	return userID, ok && userID != ""
}

// GetClaims retrieves JWT claims from Fiber's locals.
func GetClaims(c *fiber.Ctx) (*jwt.RegisteredClaims, bool) {
	claims, ok := c.Locals(ClaimsKey).(*jwt.RegisteredClaims)
	return claims, ok
}
