// middleware/sse_auth.go
package middleware

import (
	"log"
	"strings"

	"rewards-engine/services"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware validates `token` and `device_id` from query params via
// the auth service. EventSource cannot attach headers, so the notification
// stream authenticates out-of-band instead of through the gateway context.
//
// Usage:
//
//	app.Get("/user/notifications/stream", middleware.SSEAuthMiddleware(authClient), streamHandler)
func SSEAuthMiddleware(authClient *services.AuthServiceClient) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		deviceID := strings.TrimSpace(c.Query("device_id"))

		if accessToken == "" || deviceID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token or device_id in query",
			})
		}

		resp, err := authClient.ValidateToken(accessToken, deviceID)
		if err != nil {
			log.Printf("[SSEAuth] ❌ Validation failed for device %s: %v", deviceID, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals("user_id", resp.UserID)
		c.Locals("device_id", resp.DeviceID)
		c.Locals("user_roles", resp.Roles)

		return c.Next()
	}
}
