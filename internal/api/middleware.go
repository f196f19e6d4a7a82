package api

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"tracker-backend/internal/config"
)

// BearerAuth accepts requests whose Authorization header carries exactly
// token after the Bearer scheme. An empty token rejects everything.
func BearerAuth(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return UnauthorizedError("API token is not configured")
		}

		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return UnauthorizedError("Missing auth token")
		}

		const scheme = "bearer "
		if len(header) < len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
			return UnauthorizedError("Invalid auth header format")
		}

		presented := strings.TrimSpace(header[len(scheme):])
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			return UnauthorizedError("Invalid auth token")
		}
		return c.Next()
	}
}

// CORS allows the configured origins. It returns nil when no usable origin is
// configured, in which case no CORS headers are sent at all. A "*" anywhere in
// the list allows every origin; malformed entries never match.
func CORS(origins []string) fiber.Handler {
	var allowed []string
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowed = []string{"*"}
			break
		}
		if normalized, ok := config.NormalizeOrigin(o); ok {
			allowed = append(allowed, normalized)
		}
	}
	if len(allowed) == 0 {
		return nil
	}
	return cors.New(cors.Config{
		AllowOrigins: strings.Join(allowed, ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Authorization, Content-Type",
	})
}
