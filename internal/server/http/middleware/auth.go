package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	pkgAuth "github.com/polkiloo/salesrollup/internal/pkg/auth"
)

const (
	// TenantIDContextKey is a gin context key for the authenticated tenant.
	TenantIDContextKey = "tenantID"
	// APIKeyHeader carries the ingest credential.
	APIKeyHeader = "X-Api-Key"
	// TenantParam names the route parameter holding the tenant id.
	TenantParam = "tenantId"
)

// TokenParser resolves a bearer token to its tenant.
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// TenantTokenRequired accepts a bearer token only for the tenant named in the
// route.
func TenantTokenRequired(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		tenantID, err := parser.ParseToken(token)
		if err != nil {
			if errors.Is(err, pkgAuth.ErrInvalidToken) {
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		if tenantID != c.Param(TenantParam) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		c.Set(TenantIDContextKey, tenantID)
		c.Next()
	}
}

// APIKeyRequired rejects requests without a valid ingest key.
func APIKeyRequired(verifier pkgAuth.KeyVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := verifier.Verify(strings.TrimSpace(c.GetHeader(APIKeyHeader))); err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
