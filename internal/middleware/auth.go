package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/verifly/internal/config"
	"github.com/example/verifly/internal/store"
	"github.com/example/verifly/internal/utils"
)

const (
	userContextKey   = "currentUserID"
	claimsContextKey = "currentClaims"
)

// AuthMiddleware validates bearer access tokens, rejects revoked ones and
// loads the authenticated account ID into context.
func AuthMiddleware(cfg *config.Config, tokens store.RevokedTokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		claims, err := utils.ParseToken(cfg.JWTSecret, parts[1], utils.TokenUseAccess)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		revoked, err := tokens.IsRevoked(c.Context(), claims.ID)
		if err != nil {
			return err
		}
		if revoked {
			return fiber.NewError(fiber.StatusUnauthorized, "token revoked")
		}

		userID, err := claims.SubjectID()
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(userContextKey, userID)
		c.Locals(claimsContextKey, claims)
		return c.Next()
	}
}

// RequireStaff allows only accounts with the staff flag through. Must run
// after AuthMiddleware.
func RequireStaff(accounts store.Accounts) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := GetCurrentUserID(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}

		user, err := accounts.ByID(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}

		if !user.IsStaff {
			return fiber.NewError(fiber.StatusForbidden, "staff access required")
		}

		return c.Next()
	}
}

// GetCurrentUserID extracts the authenticated account ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(userContextKey)
	if value == nil {
		return uuid.Nil, false
	}

	if id, ok := value.(uuid.UUID); ok {
		return id, true
	}

	return uuid.Nil, false
}

// GetCurrentClaims extracts the validated access-token claims from context.
func GetCurrentClaims(c *fiber.Ctx) (*utils.Claims, bool) {
	value := c.Locals(claimsContextKey)
	if value == nil {
		return nil, false
	}

	claims, ok := value.(*utils.Claims)
	return claims, ok
}
