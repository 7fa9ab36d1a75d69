package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/gatewatch/internal/config"
	"github.com/example/gatewatch/internal/utils"
)

const operatorContextKey = "currentOperatorID"

// AuthMiddleware validates bearer tokens from the auth service and
// loads the operator ID into context.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		operatorID, err := utils.ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(operatorContextKey, operatorID)
		return c.Next()
	}
}

// GetCurrentOperatorID extracts the authenticated operator ID from
// context.
func GetCurrentOperatorID(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(operatorContextKey)
	if value == nil {
		return uuid.Nil, false
	}

	if id, ok := value.(uuid.UUID); ok {
		return id, true
	}

	return uuid.Nil, false
}
