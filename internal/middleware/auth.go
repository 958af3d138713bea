package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"moral-torture-machine/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const claimsContextKey = "mtm_claims"

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier func(ctx context.Context, tokenString string) (*models.Claims, error)

// AdminAuth requires a valid bearer token carrying one of requiredRoles.
func AdminAuth(verifier TokenVerifier, logger *zap.Logger, requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.With(zap.String("path", c.Request.URL.Path))

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn("Authorization header missing")
			abort(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Unauthorized: Missing token")
			return
		}
		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || tokenString == "" {
			log.Warn("Malformed Authorization header")
			abort(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Unauthorized: Malformed token header")
			return
		}

		claims, err := verifier(c.Request.Context(), tokenString)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrTokenExpired):
				abort(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Unauthorized: Token expired")
			case errors.Is(err, models.ErrTokenMalformed), errors.Is(err, models.ErrTokenInvalid):
				abort(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Unauthorized: Invalid token")
			default:
				log.Error("Unexpected token verification error", zap.Error(err))
				abort(c, http.StatusInternalServerError, models.ErrCodeInternal, "Internal server error during token verification")
			}
			return
		}

		if len(requiredRoles) > 0 {
			allowed := false
			for _, role := range requiredRoles {
				if claims.HasRole(role) {
					allowed = true
					break
				}
			}
			if !allowed {
				log.Warn("Missing required role",
					zap.String("subject", claims.Subject),
					zap.Strings("roles", claims.Roles),
					zap.Strings("required_roles", requiredRoles),
				)
				abort(c, http.StatusForbidden, models.ErrCodeForbidden, "Forbidden: Insufficient permissions")
				return
			}
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by AdminAuth.
func ClaimsFrom(c *gin.Context) (*models.Claims, bool) {
	v, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*models.Claims)
	return claims, ok
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Code: code, Message: message})
}
