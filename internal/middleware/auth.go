package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/skylift/skylift/engine/pkg/response"
)

// ApiKeyAuth guards the API with a shared key carried in the X-Api-Key
// header. An empty configured key disables the check, for local use.
func ApiKeyAuth(apiKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if apiKey == "" {
			return c.Next()
		}
		provided := c.Get("X-Api-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			return response.Unauthorized(c, "Invalid or missing API key")
		}
		return c.Next()
	}
}
