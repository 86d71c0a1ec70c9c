package serverutils

import (
	"strings"

	"ai-interviewer-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JwtMiddleware requires an access token signed with secret and stores its
// user_id claim in Locals("user_id").
func JwtMiddleware(secret string) fiber.Handler {
	return jwtMiddleware(secret, false)
}

// OptionalJwtMiddleware attaches the user when a valid access token is sent
// and lets anonymous requests through.
func OptionalJwtMiddleware(secret string) fiber.Handler {
	return jwtMiddleware(secret, true)
}

func jwtMiddleware(secret string, optional bool) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			if optional {
				return ctx.Next()
			}
			return WriteError(ctx, apperror.New(apperror.ErrAuthenticationFailed, "missing token"))
		}
		tokenStr := authHeader[7:]

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			return WriteError(ctx, apperror.New(apperror.ErrAuthenticationFailed, "invalid token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return WriteError(ctx, apperror.New(apperror.ErrAuthenticationFailed, "invalid claims"))
		}

		if userID, ok := claims["user_id"].(string); ok {
			ctx.Locals("user_id", userID)
		}
		return ctx.Next()
	}
}
