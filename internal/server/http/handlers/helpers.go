package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/salesrollup/internal/server/http/middleware"
)

// CurrentTenantID extracts authenticated tenant identifier from context.
func CurrentTenantID(c *gin.Context) string {
	val, ok := c.Get(middleware.TenantIDContextKey)
	if !ok {
		return ""
	}
	id, _ := val.(string)
	return id
}

func errorBody(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "requestId": middleware.CurrentRequestID(c)})
}
