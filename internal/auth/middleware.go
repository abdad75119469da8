package auth

import (
	"fmt"
	"strings"

	"relief-backend/internal/config"
	"relief-backend/internal/httpx"
	"relief-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey    = "user_id"
	CtxUserEmailKey = "user_email"
	CtxUserRoleKey  = "user_role"

	// TokenCookie carries the credential for browser clients; API
	// clients use the Authorization header instead.
	TokenCookie = "relief_token"
)

// extractToken pulls the bearer credential from the cookie or the
// Authorization header. Empty string means no credential was sent.
func extractToken(c *fiber.Ctx) (string, error) {
	if cookie := c.Cookies(TokenCookie); cookie != "" {
		return cookie, nil
	}

	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("authorization format must be 'Bearer <token>'")
	}
	return parts[1], nil
}

// Gate classifies the request credential (absent / invalid / valid) and
// attaches the verified identity to the request context.
func Gate(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, err := extractToken(c)
		if err != nil {
			return httpx.NewError(fiber.StatusUnauthorized, httpx.CodeAuthenticationRequired, err.Error())
		}
		if tokenStr == "" {
			return httpx.NewError(fiber.StatusUnauthorized, httpx.CodeAuthenticationRequired, "Authentication required")
		}

		claims, err := ParseToken(cfg.JWTSecret, tokenStr)
		if err != nil {
			return httpx.NewError(fiber.StatusForbidden, httpx.CodeInvalidCredential, "Invalid or expired token")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserEmailKey, claims.Email)
		c.Locals(CtxUserRoleKey, claims.Role)

		return c.Next()
	}
}

// RequireRole enforces a route's role allowlist. The 403 message names
// the accepted roles and the caller's actual role.
func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roleVal := c.Locals(CtxUserRoleKey)
		role, ok := roleVal.(models.UserRole)
		if !ok {
			return httpx.NewError(fiber.StatusForbidden, httpx.CodeInsufficientPermissions, "Could not resolve caller role")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}

		names := make([]string, 0, len(allowedRoles))
		for _, r := range allowedRoles {
			names = append(names, string(r))
		}
		msg := fmt.Sprintf("Requires role %s, caller has role %s", strings.Join(names, " or "), role)
		return httpx.NewError(fiber.StatusForbidden, httpx.CodeInsufficientPermissions, msg)
	}
}

// SkipIfAuthenticated short-circuits login-style routes for callers that
// already hold a valid credential, answering with their identity instead
// of reprocessing the login.
func SkipIfAuthenticated(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, err := extractToken(c)
		if err != nil || tokenStr == "" {
			return c.Next()
		}

		claims, err := ParseToken(cfg.JWTSecret, tokenStr)
		if err != nil {
			return c.Next()
		}

		return httpx.OK(c, fiber.StatusOK, "Already authenticated", fiber.Map{
			"user_id": claims.UserID,
			"email":   claims.Email,
			"role":    claims.Role,
		})
	}
}

// UserInfo reads the identity the gate attached to the request context.
func UserInfo(c *fiber.Ctx) (uint, string, models.UserRole, error) {
	userID, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok {
		return 0, "", "", fmt.Errorf("missing user id in context")
	}
	email, _ := c.Locals(CtxUserEmailKey).(string)
	role, _ := c.Locals(CtxUserRoleKey).(models.UserRole)
	return userID, email, role, nil
}
