package serverutils

import (
	"errors"
	"strings"

	"content-studio-be/internal/entity"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// UserID returns the caller set by the auth middleware, or the anonymous user
func UserID(ctx *fiber.Ctx) string {
	if id, ok := ctx.Locals("user_id").(string); ok && id != "" {
		return id
	}
	return entity.DefaultUserId
}

// BearerToken extracts the token from the Authorization header
func BearerToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(authHeader, "Bearer ")
}

// ParseUserToken validates an HS256 token and returns its user_id claim
func ParseUserToken(secret, tokenStr string) (string, error) {
	if secret == "" {
		return "", ErrInvalidToken
	}
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userId, _ := claims["user_id"].(string)
	if userId == "" {
		return "", ErrInvalidToken
	}
	return userId, nil
}

// JwtMiddleware accepts anonymous callers. A bearer token, when sent, must be
// valid; its user_id claim becomes the caller.
func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if ctx.Get("Authorization") == "" {
			ctx.Locals("user_id", entity.DefaultUserId)
			return ctx.Next()
		}
		tokenStr := BearerToken(ctx)
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, "Missing token"))
		}

		userId, err := ParseUserToken(secret, tokenStr)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, "Invalid token"))
		}

		ctx.Locals("user_id", userId)
		return ctx.Next()
	}
}
