package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/apperr"
	"github.com/Joaozinhos/jf-imports-elegance-sub000/internal/utils"
)

const adminContextKey = "adminSession"

// SessionExpiredMessage is the only detail given for a rejected admin token.
const SessionExpiredMessage = "session expired"

// Authenticate checks the bearer token on c and marks the request as an admin session.
func Authenticate(c *fiber.Ctx, secret string) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return apperr.Unauthorized(SessionExpiredMessage)
	}

	if err := utils.ParseAdminToken(secret, strings.TrimSpace(parts[1])); err != nil {
		return apperr.Unauthorized(SessionExpiredMessage)
	}

	c.Locals(adminContextKey, true)
	return nil
}

// AdminAuth rejects requests without a valid admin bearer token.
func AdminAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := Authenticate(c, secret); err != nil {
			return err
		}
		return c.Next()
	}
}

// IsAdmin reports whether the request carried a valid admin token.
func IsAdmin(c *fiber.Ctx) bool {
	ok, _ := c.Locals(adminContextKey).(bool)
	return ok
}
