package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/services"
	"github.com/vopenia-io/meet/pkg/errors"
)

const principalKey = "principal"

// Principal returns the caller set by the auth middlewares; anonymous when unset.
func Principal(c *gin.Context) domain.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(domain.Principal); ok {
			return p
		}
	}
	return domain.Principal{}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func AuthMiddleware(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, errors.NewUnauthorizedError("authorization header required"))
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			abortWithError(c, errors.NewUnauthorizedError("invalid authorization header format"))
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			abortWithError(c, errors.NewUnauthorizedError(err.Error()))
			return
		}

		c.Set(principalKey, claims.Principal())
		c.Next()
	}
}

// OptionalAuthMiddleware identifies the caller when a valid bearer token is
// present and lets anonymous requests through otherwise.
func OptionalAuthMiddleware(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if claims, err := authService.ValidateToken(token); err == nil {
				c.Set(principalKey, claims.Principal())
			}
		}
		c.Next()
	}
}
