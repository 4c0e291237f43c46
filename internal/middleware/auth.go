package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sociogram/chat-service/internal/auth"
)

// JWTAuth rejects requests without a valid bearer token and stashes the
// verified user id in locals for the handlers.
func JWTAuth(v *auth.JWTValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.ParseBearerToken(c.Get("Authorization"))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing auth"})
		}
		userID, err := v.Verify(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		c.Locals("user_id", userID)
		return c.Next()
	}
}

// UserID reads the verified caller identity set by JWTAuth.
func UserID(c *fiber.Ctx) string {
	uid, _ := c.Locals("user_id").(string)
	return uid
}
